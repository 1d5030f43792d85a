// Package index provides the semantic search backends the ranker queries:
// an in-process lexical index and a SurrealDB-backed vector/full-text index.
package index

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/raphaelgruber/videorag-go/internal/models"
)

// Memory is an in-process index scoring segments by cosine similarity of
// term-frequency vectors. It holds whole transcripts and suits tests, demos
// and running without a database.
type Memory struct {
	mu   sync.RWMutex
	docs map[string][]document // video ID -> segments
}

type document struct {
	start, end float64
	text       string
	terms      map[string]float64
}

// NewMemory creates an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{docs: map[string][]document{}}
}

// Put replaces the indexed segments of a video and returns how many were stored.
func (m *Memory) Put(videoID string, segments []models.TranscriptSegmentInput) int {
	docs := make([]document, 0, len(segments))
	for _, s := range segments {
		docs = append(docs, document{
			start: s.StartTime,
			end:   s.EndTime,
			text:  s.Text,
			terms: termVector(s.Text),
		})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[videoID] = docs
	return len(docs)
}

// Delete drops a video from the index.
func (m *Memory) Delete(videoID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, videoID)
}

// Search implements ranker.Index. Segments sharing no term with the query are
// not returned.
func (m *Memory) Search(ctx context.Context, video models.VideoRef, query string) ([]models.RawHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	docs, ok := m.docs[video.ID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrIndexNotReady, video.ID)
	}

	qv := termVector(query)
	hits := make([]models.RawHit, 0, len(docs))
	for _, d := range docs {
		score := cosine(qv, d.terms)
		if score <= 0 {
			continue
		}
		hits = append(hits, models.NewRawHit(d.start, d.end, score, d.text))
	}
	return hits, nil
}

// Transcript returns the indexed text of a video, one segment per line.
func (m *Memory) Transcript(_ context.Context, video models.VideoRef) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs, ok := m.docs[video.ID]
	if !ok {
		return "", fmt.Errorf("%w: %s", models.ErrNotFound, video.ID)
	}
	lines := make([]string, len(docs))
	for i, d := range docs {
		lines[i] = d.text
	}
	return strings.Join(lines, "\n"), nil
}

func termVector(text string) map[string]float64 {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	vec := make(map[string]float64, len(words))
	for _, w := range words {
		vec[w]++
	}
	return vec
}

func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, na, nb float64
	for k, va := range a {
		na += va * va
		if vb, ok := b[k]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		nb += vb * vb
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
