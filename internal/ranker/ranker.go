// Package ranker turns a free-text query plus raw index hits into an ordered,
// capped list of normalized segments.
package ranker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/raphaelgruber/videorag-go/internal/metrics"
	"github.com/raphaelgruber/videorag-go/internal/models"
	"github.com/raphaelgruber/videorag-go/internal/timestamp"
)

const (
	// DefaultMaxResults is used when the caller passes 0.
	DefaultMaxResults = 5

	// MaxResultsLimit is the largest max_results a caller may request.
	MaxResultsLimit = 10

	// DefaultScoreScale maps fractional raw scores (cosine similarity) to percentages.
	DefaultScoreScale = 100.0

	// DefaultTimeout bounds a single index call.
	DefaultTimeout = 5 * time.Second
)

// Index is the external semantic search collaborator. Search returns raw hits
// for a spoken-transcript query scoped to one video. Implementations signal an
// unbuilt index with models.ErrIndexNotReady.
type Index interface {
	Search(ctx context.Context, video models.VideoRef, query string) ([]models.RawHit, error)
}

// Config holds ranker tuning.
type Config struct {
	// ScoreScale multiplies raw scores before rounding and clamping to [0, 100].
	ScoreScale float64
	// Timeout bounds each index call. Zero uses DefaultTimeout.
	Timeout time.Duration
}

// Ranker produces RankedResultSets from an Index.
type Ranker struct {
	index   Index
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Collector
}

// New creates a ranker. logger and collector may be nil.
func New(index Index, cfg Config, logger *slog.Logger, collector *metrics.Collector) *Ranker {
	if cfg.ScoreScale <= 0 {
		cfg.ScoreScale = DefaultScoreScale
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{
		index:   index,
		cfg:     cfg,
		logger:  logger,
		metrics: collector,
	}
}

// Rank searches the index for query within video and returns at most maxResults
// segments ordered by descending score, ties broken by earliest start.
// maxResults of 0 selects DefaultMaxResults.
func (r *Ranker) Rank(ctx context.Context, video models.VideoRef, query string, maxResults int) (models.RankedResultSet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query cannot be empty", models.ErrValidation)
	}
	if maxResults == 0 {
		maxResults = DefaultMaxResults
	}
	if maxResults < 1 || maxResults > MaxResultsLimit {
		return nil, fmt.Errorf("%w: max_results must be 1-%d, got %d", models.ErrValidation, MaxResultsLimit, maxResults)
	}
	if video.IsZero() {
		return nil, fmt.Errorf("%w: no video selected", models.ErrValidation)
	}

	searchCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	hits, err := r.index.Search(searchCtx, video, query)
	r.metrics.Observe(metrics.OpIndexSearch, start, err)
	if err != nil {
		return nil, fmt.Errorf("%w: search video %s: %w", models.ErrRetrieval, video.ID, err)
	}

	segments := r.normalize(video, hits)
	SortSegments(segments)
	if len(segments) > maxResults {
		segments = segments[:maxResults]
	}

	r.logger.Debug("ranked segments",
		"video_id", video.ID,
		"query_len", len(query),
		"hits", len(hits),
		"results", len(segments),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return segments, nil
}

// normalize maps raw hits to strict segments, dropping hits without a usable start.
func (r *Ranker) normalize(video models.VideoRef, hits []models.RawHit) models.RankedResultSet {
	out := make(models.RankedResultSet, 0, len(hits))
	for i, hit := range hits {
		seg, ok := ToSegment(hit, r.cfg.ScoreScale)
		if !ok {
			r.logger.Warn("dropping malformed index hit", "video_id", video.ID, "position", i)
			continue
		}
		out = append(out, seg)
	}
	return out
}

// ToSegment maps a raw hit to a Segment. Hits with a missing, non-finite or
// negative start are rejected. A missing end, or one before start, is coerced to start.
func ToSegment(hit models.RawHit, scale float64) (models.Segment, bool) {
	if hit.StartTime == nil {
		return models.Segment{}, false
	}
	start := timestamp.Offset(*hit.StartTime)
	if !start.Valid() {
		return models.Segment{}, false
	}

	end := start
	if hit.EndTime != nil {
		if e := timestamp.Offset(*hit.EndTime); e.Valid() && e >= start {
			end = e
		}
	}

	return models.NewSegment(start, end, hit.Text, NormalizeScore(hit.RawScore, scale)), true
}

// NormalizeScore converts a raw relevance score to an integer percentage.
// Out-of-range values are clamped, never rejected.
func NormalizeScore(raw, scale float64) int {
	if scale <= 0 {
		scale = DefaultScoreScale
	}
	v := raw * scale
	if math.IsNaN(v) {
		return 0
	}
	if v <= 0 {
		return 0
	}
	if v >= 100 {
		return 100
	}
	return int(math.Round(v))
}

// SortSegments orders segments by descending score, then ascending start.
// Remaining ties keep their input order.
func SortSegments(segments models.RankedResultSet) {
	sort.SliceStable(segments, func(i, j int) bool {
		if segments[i].Score != segments[j].Score {
			return segments[i].Score > segments[j].Score
		}
		return segments[i].StartTime < segments[j].StartTime
	})
}
