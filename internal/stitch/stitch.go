// Package stitch turns a highlight-reel timeline into a playable stream URL.
package stitch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/raphaelgruber/videorag-go/internal/metrics"
	"github.com/raphaelgruber/videorag-go/internal/models"
)

// DefaultTimeout bounds a single stitch request.
const DefaultTimeout = 30 * time.Second

// ErrUnavailable indicates no stream could be produced. Callers fall back to
// an embed player at the first timeline entry.
var ErrUnavailable = errors.New("stitching unavailable")

// Stitcher produces a stream URL for a timeline of one video.
type Stitcher interface {
	Stitch(ctx context.Context, video models.VideoRef, timeline models.Timeline) (string, error)
}

// Unavailable is a Stitcher that always declines.
type Unavailable struct{}

// Stitch implements Stitcher.
func (Unavailable) Stitch(context.Context, models.VideoRef, models.Timeline) (string, error) {
	return "", fmt.Errorf("%w: no stitching service configured", ErrUnavailable)
}

// Request is the body posted to the stitching service.
type Request struct {
	VideoID   string   `json:"video_id"`
	SourceURL string   `json:"source_url,omitempty"`
	Timeline  [][2]int `json:"timeline"`
}

// Response is the stitching service reply.
type Response struct {
	StreamURL string `json:"stream_url"`
}

// HTTP posts timelines to a stitching service.
type HTTP struct {
	url     string
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewHTTP creates a client for the stitching service at url.
func NewHTTP(url string, timeout time.Duration, logger *slog.Logger, collector *metrics.Collector) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTP{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		metrics: collector,
	}
}

// Stitch implements Stitcher. Every failure is reported as ErrUnavailable.
func (h *HTTP) Stitch(ctx context.Context, video models.VideoRef, timeline models.Timeline) (string, error) {
	if len(timeline) == 0 {
		return "", fmt.Errorf("%w: empty timeline", ErrUnavailable)
	}

	start := time.Now()
	url, err := h.post(ctx, Request{
		VideoID:   video.ID,
		SourceURL: video.SourceURL,
		Timeline:  timeline.Pairs(),
	})
	h.metrics.Observe(metrics.OpStitch, start, err)
	if err != nil {
		h.logger.Warn("stitch failed",
			"video_id", video.ID,
			"entries", len(timeline),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	h.logger.Info("stitched stream",
		"video_id", video.ID,
		"entries", len(timeline),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return url, nil
}

func (h *HTTP) post(ctx context.Context, body Request) (string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.StreamURL == "" {
		return "", errors.New("empty stream url")
	}
	return out.StreamURL, nil
}
