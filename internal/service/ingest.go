package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/raphaelgruber/videorag-go/internal/db"
	"github.com/raphaelgruber/videorag-go/internal/models"
	"github.com/raphaelgruber/videorag-go/internal/source"
	"github.com/raphaelgruber/videorag-go/internal/transcript"
)

// embedBatchSize is how many segments are embedded per provider call.
const embedBatchSize = 32

// Ingest stages reported through ProgressFunc.
const (
	StageParse = "parse"
	StageEmbed = "embed"
	StageStore = "store"
)

// ProgressFunc receives ingest progress. total is the number of segments.
type ProgressFunc func(stage string, done, total int)

// VideoStore is the storage the ingest service writes to.
type VideoStore interface {
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	UpsertVideo(ctx context.Context, input models.VideoInput) (*models.Video, error)
	ReplaceSegments(ctx context.Context, videoID string, segments []models.TranscriptSegmentInput, transcript string) (int, error)
}

// BatchEmbedder embeds segment texts.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// IngestService registers videos and indexes their transcripts.
type IngestService struct {
	store    VideoStore
	embedder BatchEmbedder
	chunking transcript.ChunkConfig
	logger   *slog.Logger
}

// NewIngestService creates an ingest service. embedder may be nil, in which
// case segments are stored for full-text search only.
func NewIngestService(store VideoStore, embedder BatchEmbedder, logger *slog.Logger) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		store:    store,
		embedder: embedder,
		chunking: transcript.DefaultChunkConfig(),
		logger:   logger,
	}
}

// IngestRequest describes a video and its transcript file.
type IngestRequest struct {
	Video models.VideoInput
	// Filename is used to detect the transcript format.
	Filename string
	Content  string
	// Force re-indexes a video that is already indexed.
	Force bool
}

// IngestResult summarizes an ingest.
type IngestResult struct {
	Video    models.VideoRef `json:"video"`
	Cues     int             `json:"cues"`
	Segments int             `json:"segments"`
	Embedded bool            `json:"embedded"`
	Skipped  bool            `json:"skipped"`
}

// Ingest parses the transcript, groups cues into segments, embeds them and
// stores them as the video's index. An indexed video is left alone unless
// Force is set.
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest, progress ProgressFunc) (*IngestResult, error) {
	if progress == nil {
		progress = func(string, int, int) {}
	}

	input, err := normalizeVideoInput(req.Video)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetVideo(ctx, input.ID)
	if err != nil {
		return nil, fmt.Errorf("lookup video: %w", err)
	}
	if existing != nil && existing.Indexed && !req.Force {
		s.logger.Info("video already indexed, skipping", "video_id", input.ID)
		return &IngestResult{Video: existing.Ref(), Segments: existing.SegmentCount, Skipped: true}, nil
	}

	format := transcript.DetectFormat(req.Filename, req.Content)
	cues, err := transcript.Parse(req.Content, format)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s transcript: %w", models.ErrValidation, format, err)
	}
	chunks := transcript.Chunk(cues, s.chunking)
	progress(StageParse, len(chunks), len(chunks))

	segments := make([]models.TranscriptSegmentInput, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		segments[i] = models.TranscriptSegmentInput{
			VideoID:   input.ID,
			Position:  i,
			StartTime: float64(c.Start),
			EndTime:   float64(c.End),
			Text:      c.Text,
		}
		texts[i] = c.Text
	}

	embedded := false
	if s.embedder != nil {
		if err := s.embed(ctx, segments, texts, progress); err != nil {
			return nil, err
		}
		embedded = true
	}

	video, err := s.store.UpsertVideo(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("register video: %w", err)
	}

	start := time.Now()
	stored, err := s.replaceSegments(ctx, input.ID, segments, transcript.Text(cues))
	if err != nil {
		return nil, err
	}
	progress(StageStore, stored, len(segments))

	s.logger.Info("video indexed",
		"video_id", input.ID,
		"collection", input.Collection,
		"format", string(format),
		"cues", len(cues),
		"segments", stored,
		"embedded", embedded,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	ref := video.Ref()
	if ref.ID == "" {
		ref = models.VideoRef{ID: input.ID, Collection: input.Collection, Title: input.Title}
		if input.SourceURL != nil {
			ref.SourceURL = *input.SourceURL
		}
	}
	return &IngestResult{
		Video:    ref,
		Cues:     len(cues),
		Segments: stored,
		Embedded: embedded,
	}, nil
}

func (s *IngestService) embed(ctx context.Context, segments []models.TranscriptSegmentInput, texts []string, progress ProgressFunc) error {
	for lo := 0; lo < len(texts); lo += embedBatchSize {
		hi := min(lo+embedBatchSize, len(texts))
		vectors, err := s.embedder.EmbedBatch(ctx, texts[lo:hi])
		if err != nil {
			return fmt.Errorf("embed segments %d-%d: %w", lo, hi-1, err)
		}
		for i, v := range vectors {
			segments[lo+i].Embedding = v
		}
		progress(StageEmbed, hi, len(texts))
	}
	return nil
}

// replaceSegments retries transaction conflicts from concurrent ingests of the
// same video.
func (s *IngestService) replaceSegments(ctx context.Context, videoID string, segments []models.TranscriptSegmentInput, text string) (int, error) {
	var stored int
	op := func() error {
		n, err := s.store.ReplaceSegments(ctx, videoID, segments, text)
		if errors.Is(err, db.ErrTransactionConflict) {
			s.logger.Debug("segment write conflict, retrying", "video_id", videoID)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		stored = n
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = time.Second
	bo.MaxElapsedTime = 5 * time.Second

	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return 0, fmt.Errorf("store segments: %w", err)
	}
	return stored, nil
}

// normalizeVideoInput fills the video ID from a YouTube URL when missing.
func normalizeVideoInput(in models.VideoInput) (models.VideoInput, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Collection = strings.TrimSpace(in.Collection)
	if in.ID == "" && in.SourceURL != nil {
		if id, ok := source.YouTubeID(*in.SourceURL); ok {
			in.ID = id
		}
	}
	if in.ID == "" {
		return in, fmt.Errorf("%w: video id is required", models.ErrValidation)
	}
	if in.Collection == "" {
		return in, fmt.Errorf("%w: collection is required", models.ErrValidation)
	}
	if in.Title == "" {
		in.Title = in.ID
	}
	return in, nil
}
