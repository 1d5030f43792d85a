package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raphaelgruber/videorag-go/internal/models"
	"github.com/raphaelgruber/videorag-go/internal/session"
)

// Catalog lists and resolves stored videos.
type Catalog interface {
	GetVideo(ctx context.Context, id string) (*models.Video, error)
	ListVideos(ctx context.Context, collection string) ([]models.Video, error)
	ListCollections(ctx context.Context) ([]models.CollectionCount, error)
	DeleteVideo(ctx context.Context, id string) (int, error)
}

// LibraryService browses collections and selects the session's active video.
type LibraryService struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewLibraryService creates a library service.
func NewLibraryService(catalog Catalog, logger *slog.Logger) *LibraryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LibraryService{catalog: catalog, logger: logger}
}

// Collections lists collections with their video counts.
func (l *LibraryService) Collections(ctx context.Context) ([]models.CollectionCount, error) {
	return l.catalog.ListCollections(ctx)
}

// Videos lists the videos of a collection. An empty collection lists all.
func (l *LibraryService) Videos(ctx context.Context, collection string) ([]models.Video, error) {
	return l.catalog.ListVideos(ctx, strings.TrimSpace(collection))
}

// Load makes the video the session's active video. When collection is set the
// video must belong to it.
func (l *LibraryService) Load(ctx context.Context, sess session.Session, id, collection string) (session.Session, error) {
	id = strings.TrimSpace(id)
	collection = strings.TrimSpace(collection)
	if id == "" {
		return sess, fmt.Errorf("%w: video id is required", models.ErrValidation)
	}

	v, err := l.catalog.GetVideo(ctx, id)
	if err != nil {
		return sess, fmt.Errorf("load video: %w", err)
	}
	if v == nil || (collection != "" && v.Collection != collection) {
		return sess, fmt.Errorf("video %s: %w", id, models.ErrNotFound)
	}
	if !v.Indexed {
		l.logger.Warn("loaded video is not indexed yet", "video_id", id)
	}

	sess.Video = v.Ref()
	if sess.Video.ID == "" {
		sess.Video.ID = id
	}
	sess.Collection = v.Collection
	return sess, nil
}

// Delete removes a video and its index. Returns false when it did not exist.
func (l *LibraryService) Delete(ctx context.Context, id string) (bool, error) {
	n, err := l.catalog.DeleteVideo(ctx, id)
	if err != nil {
		return false, err
	}
	if n > 0 {
		l.logger.Info("video deleted", "video_id", id)
	}
	return n > 0, nil
}
