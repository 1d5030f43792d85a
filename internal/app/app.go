// Package app wires configuration into the services shared by the CLI and the server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/videorag-go/internal/config"
	"github.com/raphaelgruber/videorag-go/internal/db"
	"github.com/raphaelgruber/videorag-go/internal/index"
	"github.com/raphaelgruber/videorag-go/internal/llm"
	"github.com/raphaelgruber/videorag-go/internal/metrics"
	"github.com/raphaelgruber/videorag-go/internal/models"
	"github.com/raphaelgruber/videorag-go/internal/ranker"
	"github.com/raphaelgruber/videorag-go/internal/service"
	"github.com/raphaelgruber/videorag-go/internal/session"
	"github.com/raphaelgruber/videorag-go/internal/stitch"
	"github.com/raphaelgruber/videorag-go/internal/timeline"
	"github.com/raphaelgruber/videorag-go/internal/transcript"
)

// ingestConcurrency bounds background ingests started through the job manager.
const ingestConcurrency = 2

// App holds every long-lived dependency.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Metrics  *metrics.Collector
	DB       *db.Client // nil with in-memory storage
	Store    Store
	Embedder *llm.Embedder

	Query    *service.QueryService
	Ingest   *service.IngestService
	Library  *service.LibraryService
	Jobs     *service.JobManager
	Sessions session.Store
}

// Store is where videos, segments and transcripts are kept.
type Store interface {
	service.VideoStore
	service.Catalog
	TranscriptSource
	WipeData(ctx context.Context) error
}

// New opens the configured storage and builds the services. SurrealDB storage
// connects and prepares the schema first.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mc := metrics.NewCollector()

	embedder, err := llm.NewEmbedder(cfg, logger, mc)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}

	// A nil *llm.Embedder must not leak into the interfaces as a typed nil.
	var (
		queryEmbedder index.QueryEmbedder
		batchEmbedder service.BatchEmbedder
	)
	if embedder != nil {
		queryEmbedder = embedder
		batchEmbedder = embedder
	}

	var (
		dbClient *db.Client
		store    Store
		idx      ranker.Index
	)
	switch cfg.Storage {
	case config.StorageMemory:
		lib := index.NewLibrary(index.NewMemory())
		store, idx = lib, lib.Index()
		// The lexical index scores text only.
		batchEmbedder = nil
		logger.Warn("using in-memory storage, the library is lost on exit")
	default:
		dbClient, err = openDB(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		store, idx = dbClient, index.NewSurreal(dbClient, queryEmbedder, logger)
	}

	sessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		if dbClient != nil {
			dbClient.Close(ctx)
		}
		return nil, err
	}

	rk := ranker.New(
		idx,
		ranker.Config{ScoreScale: cfg.ScoreScale, Timeout: cfg.IndexTimeout},
		logger,
		mc,
	)

	var stitcher stitch.Stitcher = stitch.Unavailable{}
	if cfg.StitchURL != "" {
		stitcher = stitch.NewHTTP(cfg.StitchURL, cfg.StitchTimeout, logger, mc)
	}

	query := service.NewQueryService(
		rk,
		llm.NewAdapter(cfg, logger, mc),
		timeline.NewMerger(cfg.Strict, logger),
		stitcher,
		Transcripts(store, logger),
		service.QueryOptions{
			TopK:                   cfg.TopK,
			TranscriptPreviewChars: cfg.TranscriptPreviewChars,
			ReelConcurrency:        cfg.ReelConcurrency,
		},
		logger,
	)

	ingest := service.NewIngestService(store, batchEmbedder, logger)

	logger.Info("services ready",
		"storage", cfg.Storage,
		"llm_provider", cfg.LLMProvider,
		"embed_provider", cfg.EmbedProvider,
		"stitch", cfg.StitchURL != "",
		"redis", cfg.RedisAddr != "",
	)

	return &App{
		Config:   cfg,
		Logger:   logger,
		Metrics:  mc,
		DB:       dbClient,
		Store:    store,
		Embedder: embedder,
		Query:    query,
		Ingest:   ingest,
		Library:  service.NewLibraryService(store, logger),
		Jobs:     service.NewJobManager(ingest, ingestConcurrency, logger),
		Sessions: sessions,
	}, nil
}

func openDB(ctx context.Context, cfg config.Config, logger *slog.Logger) (*db.Client, error) {
	dbClient, err := db.NewClient(ctx, db.ConfigFrom(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := dbClient.InitSchema(ctx, cfg.EmbedDimension); err != nil {
		dbClient.Close(ctx)
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return dbClient, nil
}

// TranscriptSource is the storage the transcript fetcher reads from.
type TranscriptSource interface {
	GetTranscript(ctx context.Context, videoID string) (string, error)
	SegmentTranscript(ctx context.Context, videoID string) (string, error)
}

// Transcripts prefers the transcript stored at ingest and falls back to
// rebuilding it from indexed segments.
func Transcripts(src TranscriptSource, logger *slog.Logger) transcript.Fetcher {
	return transcript.TwoTier{
		Primary: transcript.FetcherFunc(func(ctx context.Context, v models.VideoRef) (string, error) {
			return src.GetTranscript(ctx, v.ID)
		}),
		Fallback: transcript.FetcherFunc(func(ctx context.Context, v models.VideoRef) (string, error) {
			return src.SegmentTranscript(ctx, v.ID)
		}),
		Logger: logger,
	}
}

func newSessionStore(ctx context.Context, cfg config.Config) (session.Store, error) {
	if cfg.RedisAddr == "" {
		return session.NewMemoryStore(cfg.SessionTTL), nil
	}
	store, err := session.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return store, nil
}

// NewSession starts a session with the configured defaults.
func (a *App) NewSession() session.Session {
	return session.New(a.Config.Collection, a.Config.LLMProvider, a.Config.TopK)
}

// Close releases the database and session store connections.
func (a *App) Close(ctx context.Context) error {
	if closer, ok := a.Sessions.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.Logger.Warn("failed to close session store", "error", err)
		}
	}
	if a.DB == nil {
		return nil
	}
	return a.DB.Close(ctx)
}
