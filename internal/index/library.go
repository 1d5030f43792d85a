package index

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/raphaelgruber/videorag-go/internal/models"
)

// Library is a process-local video catalog whose segments live in a Memory
// index. It stands in for the database when the server runs without one;
// nothing survives a restart.
type Library struct {
	mu          sync.RWMutex
	videos      map[string]*models.Video
	transcripts map[string]string
	mem         *Memory
}

// NewLibrary creates an empty library backed by mem.
func NewLibrary(mem *Memory) *Library {
	return &Library{
		videos:      map[string]*models.Video{},
		transcripts: map[string]string{},
		mem:         mem,
	}
}

// Index returns the Memory index holding the library's segments.
func (l *Library) Index() *Memory {
	return l.mem
}

// GetVideo returns a copy of the video, or nil when it is unknown.
func (l *Library) GetVideo(_ context.Context, id string) (*models.Video, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.videos[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

// UpsertVideo creates or updates video metadata. Index state is left alone.
func (l *Library) UpsertVideo(_ context.Context, in models.VideoInput) (*models.Video, error) {
	if in.ID == "" {
		return nil, fmt.Errorf("upsert video: %w: empty id", models.ErrValidation)
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.videos[in.ID]
	if !ok {
		v = &models.Video{ID: surrealmodels.NewRecordID("video", in.ID), Created: now}
		l.videos[in.ID] = v
	}
	v.Title, v.SourceURL, v.Collection = in.Title, in.SourceURL, in.Collection
	v.Updated = now
	cp := *v
	return &cp, nil
}

// ReplaceSegments swaps the indexed segments of a known video and stores its
// transcript.
func (l *Library) ReplaceSegments(_ context.Context, videoID string, segments []models.TranscriptSegmentInput, transcript string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.videos[videoID]
	if !ok {
		return 0, fmt.Errorf("replace segments: %w: %s", models.ErrNotFound, videoID)
	}
	v.SegmentCount = l.mem.Put(videoID, segments)
	v.Indexed = true
	v.Updated = time.Now()
	l.transcripts[videoID] = transcript
	return v.SegmentCount, nil
}

// ListVideos returns the videos of a collection ordered by title.
// An empty collection lists every video.
func (l *Library) ListVideos(_ context.Context, collection string) ([]models.Video, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := []models.Video{}
	for _, v := range l.videos {
		if collection == "" || v.Collection == collection {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// ListCollections returns collection names with their video counts.
func (l *Library) ListCollections(context.Context) ([]models.CollectionCount, error) {
	l.mu.RLock()
	counts := map[string]int{}
	for _, v := range l.videos {
		counts[v.Collection]++
	}
	l.mu.RUnlock()

	out := make([]models.CollectionCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, models.CollectionCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteVideo removes a video and its segments. Returns 0 for an unknown video.
func (l *Library) DeleteVideo(_ context.Context, id string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.videos[id]; !ok {
		return 0, nil
	}
	delete(l.videos, id)
	delete(l.transcripts, id)
	l.mem.Delete(id)
	return 1, nil
}

// GetTranscript returns the transcript stored at ingest, or "" when none was.
func (l *Library) GetTranscript(_ context.Context, videoID string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.videos[videoID]; !ok {
		return "", fmt.Errorf("get transcript: %w: %s", models.ErrNotFound, videoID)
	}
	return l.transcripts[videoID], nil
}

// SegmentTranscript rebuilds a transcript from the indexed segments.
func (l *Library) SegmentTranscript(ctx context.Context, videoID string) (string, error) {
	return l.mem.Transcript(ctx, models.VideoRef{ID: videoID})
}

// WipeData forgets every video and segment.
func (l *Library) WipeData(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id := range l.videos {
		l.mem.Delete(id)
	}
	l.videos = map[string]*models.Video{}
	l.transcripts = map[string]string{}
	return nil
}
