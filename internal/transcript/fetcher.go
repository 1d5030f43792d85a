package transcript

import (
	"context"
	"errors"
	"log/slog"

	"github.com/raphaelgruber/videorag-go/internal/models"
)

// Fetcher returns the full transcript text of a video. An empty string means
// no transcript is available yet and is not an error.
type Fetcher interface {
	Transcript(ctx context.Context, video models.VideoRef) (string, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, video models.VideoRef) (string, error)

// Transcript implements Fetcher.
func (f FetcherFunc) Transcript(ctx context.Context, video models.VideoRef) (string, error) {
	return f(ctx, video)
}

// TwoTier tries Primary and consults Fallback only when Primary fails or
// returns nothing. Fallback failures are logged and reported as an empty transcript.
type TwoTier struct {
	Primary  Fetcher
	Fallback Fetcher
	Logger   *slog.Logger
}

// Transcript implements Fetcher.
func (t TwoTier) Transcript(ctx context.Context, video models.VideoRef) (string, error) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if t.Primary != nil {
		text, err := t.Primary.Transcript(ctx, video)
		switch {
		case err == nil && text != "":
			return text, nil
		case err != nil && !errors.Is(err, models.ErrNotFound):
			logger.Warn("primary transcript source failed", "video_id", video.ID, "error", err)
		}
	}

	if t.Fallback == nil {
		return "", nil
	}
	text, err := t.Fallback.Transcript(ctx, video)
	if err != nil {
		logger.Warn("fallback transcript source failed", "video_id", video.ID, "error", err)
		return "", nil
	}
	return text, nil
}
