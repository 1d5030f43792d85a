package index

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/videorag-go/internal/models"
)

// CandidateLimit is how many hits the database index returns per query.
// The ranker caps results further.
const CandidateLimit = 20

// SegmentStore is the subset of the database client the index reads from.
type SegmentStore interface {
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	SearchSegmentsVector(ctx context.Context, videoID string, embedding []float32, limit int) ([]models.SegmentHit, error)
	SearchSegmentsText(ctx context.Context, videoID, query string, limit int) ([]models.SegmentHit, error)
}

// QueryEmbedder turns a query into a vector.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Surreal searches indexed segments in SurrealDB. With an embedder it ranks by
// cosine similarity; without one it falls back to BM25 full-text scoring.
type Surreal struct {
	store    SegmentStore
	embedder QueryEmbedder
	logger   *slog.Logger
}

// NewSurreal creates a database-backed index. embedder may be nil.
func NewSurreal(store SegmentStore, embedder QueryEmbedder, logger *slog.Logger) *Surreal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Surreal{store: store, embedder: embedder, logger: logger}
}

// Search implements ranker.Index.
func (s *Surreal) Search(ctx context.Context, video models.VideoRef, query string) ([]models.RawHit, error) {
	v, err := s.store.GetVideo(ctx, video.ID)
	if err != nil {
		return nil, err
	}
	if v == nil || !v.Indexed {
		return nil, fmt.Errorf("%w: %s", models.ErrIndexNotReady, video.ID)
	}

	if s.embedder != nil {
		emb, err := s.embedder.Embed(ctx, query)
		if err != nil {
			return nil, err
		}
		rows, err := s.store.SearchSegmentsVector(ctx, video.ID, emb, CandidateLimit)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("vector search", "video", video.ID, "hits", len(rows))
		if len(rows) > 0 {
			return toRawHits(rows, 1), nil
		}
		// Segments stored before embeddings were enabled have no vectors.
		s.logger.Debug("no embedded segments, using full-text search", "video", video.ID)
	}

	rows, err := s.store.SearchSegmentsText(ctx, video.ID, query, CandidateLimit)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("full-text search", "video", video.ID, "hits", len(rows))

	// BM25 is unbounded; rescale so the best hit scores 1.
	top := 0.0
	for _, r := range rows {
		top = max(top, r.Score)
	}
	return toRawHits(rows, top), nil
}

func toRawHits(rows []models.SegmentHit, divisor float64) []models.RawHit {
	hits := make([]models.RawHit, 0, len(rows))
	for _, r := range rows {
		h := r.RawHit()
		if divisor > 0 {
			h.RawScore = r.Score / divisor
		}
		hits = append(hits, h)
	}
	return hits
}
