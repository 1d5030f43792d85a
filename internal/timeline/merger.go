// Package timeline merges per-topic ranked results into a single playback timeline.
package timeline

import (
	"log/slog"
	"sort"

	"github.com/raphaelgruber/videorag-go/internal/models"
	"github.com/raphaelgruber/videorag-go/internal/timestamp"
)

// Merger turns several ranked result sets into one ascending, deduplicated timeline.
//
// Entries are keyed by the integer second of their start. When two segments share
// a key the one that sorts first wins; overlapping intervals with different keys
// are passed through untouched.
type Merger struct {
	// Strict makes malformed segments fail the merge with models.ErrInvariant.
	// When false they are dropped and logged.
	Strict bool

	logger *slog.Logger
}

// NewMerger creates a merger. logger may be nil.
func NewMerger(strict bool, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{Strict: strict, logger: logger}
}

// Merge concatenates sets, orders them by start and emits one entry per start second.
// An empty input yields an empty, non-nil timeline.
func (m *Merger) Merge(sets ...models.RankedResultSet) (models.Timeline, error) {
	var all []models.Segment
	for _, set := range sets {
		for _, seg := range set {
			if err := seg.Validate(); err != nil {
				if m.Strict {
					return nil, err
				}
				m.logger.Warn("dropping malformed segment from timeline",
					"start_time", float64(seg.StartTime),
					"end_time", float64(seg.EndTime),
					"error", err,
				)
				continue
			}
			all = append(all, seg)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].StartTime < all[j].StartTime
	})

	out := make(models.Timeline, 0, len(all))
	seen := make(map[int]struct{}, len(all))
	for _, seg := range all {
		key := timestamp.ToSecondsInt(seg.StartTime)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, models.TimelineEntry{
			Start: key,
			End:   timestamp.ToSecondsInt(seg.EndTime),
		})
	}

	m.logger.Debug("merged timeline", "sets", len(sets), "segments", len(all), "entries", len(out))
	return out, nil
}

// Merge runs a lenient merge with the default logger.
func Merge(sets ...models.RankedResultSet) models.Timeline {
	// lenient merges never fail
	tl, _ := NewMerger(false, nil).Merge(sets...)
	return tl
}
