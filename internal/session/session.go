// Package session holds per-user request context: the active video, the
// chosen provider and result limits. Nothing here is process-wide state;
// callers load a Session and pass it down explicitly.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/videorag-go/internal/models"
)

// Session is one user's working context.
type Session struct {
	ID         string          `json:"id"`
	Video      models.VideoRef `json:"video"`
	Collection string          `json:"collection"`
	Provider   string          `json:"provider"`
	MaxResults int             `json:"max_results"`
	Updated    time.Time       `json:"updated"`
}

// New creates a session with a fresh ID.
func New(collection, provider string, maxResults int) Session {
	return Session{
		ID:         uuid.NewString(),
		Collection: collection,
		Provider:   provider,
		MaxResults: maxResults,
		Updated:    time.Now().UTC(),
	}
}

// HasVideo reports whether a video has been loaded into the session.
func (s Session) HasVideo() bool {
	return !s.Video.IsZero()
}

// Store persists sessions. Get returns an error wrapping models.ErrNotFound
// for unknown or expired sessions.
type Store interface {
	Get(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
}
