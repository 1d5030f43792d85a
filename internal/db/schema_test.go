package db

import (
	"errors"
	"testing"

	"github.com/raphaelgruber/videorag-go/internal/config"
	"github.com/raphaelgruber/videorag-go/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestSchemaSQL(t *testing.T) {
	sql := SchemaSQL(768)
	assert.Contains(t, sql, "HNSW DIMENSION 768 DIST COSINE")
	assert.Contains(t, sql, "DEFINE TABLE IF NOT EXISTS video")
	assert.Contains(t, sql, "DEFINE TABLE IF NOT EXISTS segment")
	assert.NotContains(t, sql, "%!")
}

func TestWrapQueryError(t *testing.T) {
	assert.NoError(t, wrapQueryError(nil))

	plain := errors.New("socket closed")
	assert.Same(t, plain, wrapQueryError(plain))
}

func TestErrNotFoundIsModelNotFound(t *testing.T) {
	assert.ErrorIs(t, ErrNotFound, models.ErrNotFound)
}

func TestConfigFrom(t *testing.T) {
	cfg := config.Defaults()
	cfg.SurrealDBURL = "wss://db.example.com/rpc"

	got := ConfigFrom(cfg)
	assert.Equal(t, "wss://db.example.com/rpc", got.URL)
	assert.Equal(t, "videorag", got.Namespace)
	assert.Equal(t, "library", got.Database)
	assert.Equal(t, "root", got.AuthLevel)
}

func TestRPCBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ws://localhost:8000/rpc", "ws://localhost:8000"},
		{"wss://db.example.com/rpc/", "wss://db.example.com"},
		{"ws://localhost:8000", "ws://localhost:8000"},
		{"ws://localhost:8000/", "ws://localhost:8000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rpcBaseURL(tt.in), tt.in)
	}
}

func TestAuthFor(t *testing.T) {
	cfg := Config{Namespace: "videorag", Database: "library", Username: "u", Password: "p"}

	cfg.AuthLevel = "root"
	root := authFor(cfg)
	assert.Empty(t, root.Namespace)
	assert.Empty(t, root.Database)
	assert.Equal(t, "u", root.Username)

	cfg.AuthLevel = "database"
	scoped := authFor(cfg)
	assert.Equal(t, "videorag", scoped.Namespace)
	assert.Equal(t, "library", scoped.Database)
	assert.Equal(t, "p", scoped.Password)
}
