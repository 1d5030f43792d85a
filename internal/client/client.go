// Package client provides an HTTP client for the videorag server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/videorag-go/internal/metrics"
	"github.com/raphaelgruber/videorag-go/internal/server"
	"github.com/raphaelgruber/videorag-go/internal/service"
	"github.com/raphaelgruber/videorag-go/internal/session"
)

// DefaultEndpoint is used when neither the caller nor VIDEORAG_SERVER_URL sets one.
const DefaultEndpoint = "http://localhost:8080"

// Client talks to a running videorag server.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// New creates a new client.
// If endpoint is empty, uses VIDEORAG_SERVER_URL env var or defaults to localhost:8080.
// Timeout can be configured via VIDEORAG_CLIENT_TIMEOUT env var (default 2m for provider answers).
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = os.Getenv("VIDEORAG_SERVER_URL")
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	timeout := 2 * time.Minute
	if t := os.Getenv("VIDEORAG_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server error: %d - %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// do sends a request with an optional JSON body and decodes the JSON response into result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// =============================================================================
// SESSIONS
// =============================================================================

// SessionOptions override the server's session defaults.
type SessionOptions struct {
	Collection string `json:"collection,omitempty"`
	Provider   string `json:"provider,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

// CreateSession starts a new session.
func (c *Client) CreateSession(ctx context.Context, opts SessionOptions) (*session.Session, error) {
	var sess session.Session
	if err := c.do(ctx, http.MethodPost, "/api/sessions", opts, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// LoadVideo makes videoID the session's active video. An empty collection
// accepts the video from any collection.
func (c *Client) LoadVideo(ctx context.Context, sessionID, videoID, collection string) (*session.Session, error) {
	body := map[string]string{"video_id": videoID, "collection": collection}
	var sess session.Session
	if err := c.do(ctx, http.MethodPost, "/api/sessions/"+url.PathEscape(sessionID)+"/video", body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Search ranks the active video's segments against query.
func (c *Client) Search(ctx context.Context, sessionID, query string, maxResults int) (*service.SearchResult, error) {
	body := map[string]any{"session_id": sessionID, "query": query, "max_results": maxResults}
	var result service.SearchResult
	if err := c.do(ctx, http.MethodPost, "/api/search", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ask answers a question about the active video.
func (c *Client) Ask(ctx context.Context, sessionID, question string) (*service.Answer, error) {
	body := map[string]any{"session_id": sessionID, "question": question}
	var answer service.Answer
	if err := c.do(ctx, http.MethodPost, "/api/ask", body, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

// =============================================================================
// JOBS AND STATS
// =============================================================================

// IngestInput describes a transcript to ingest in the background.
type IngestInput struct {
	ID         string  `json:"id,omitempty"`
	Title      string  `json:"title,omitempty"`
	SourceURL  *string `json:"source_url,omitempty"`
	Collection string  `json:"collection,omitempty"`
	Filename   string  `json:"filename,omitempty"`
	Content    string  `json:"content"`
	Force      bool    `json:"force,omitempty"`
}

// Ingest starts a background ingest and returns its job.
func (c *Client) Ingest(ctx context.Context, input IngestInput) (*service.JobSnapshot, error) {
	var job service.JobSnapshot
	if err := c.do(ctx, http.MethodPost, "/api/ingest", input, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs returns all jobs, most recent first.
func (c *Client) ListJobs(ctx context.Context) ([]service.JobSnapshot, error) {
	var jobs []service.JobSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/jobs", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// GetJob returns a job by ID, or nil when the server does not know it.
func (c *Client) GetJob(ctx context.Context, id string) (*service.JobSnapshot, error) {
	var job service.JobSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &job); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// GetServerStats returns in-memory runtime statistics.
func (c *Client) GetServerStats(ctx context.Context) (*metrics.Snapshot, error) {
	var snap metrics.Snapshot
	if err := c.do(ctx, http.MethodGet, "/stats", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// =============================================================================
// STREAMING OPERATIONS
// =============================================================================

// AskStream asks a question and streams the answer token by token.
// The onToken callback is invoked for each token. Return an error from onToken to abort.
// The complete answer is returned once the server sends it.
func (c *Client) AskStream(ctx context.Context, sessionID, question string, onToken func(token string) error) (*service.Answer, error) {
	// Convert HTTP endpoint to WebSocket endpoint
	wsEndpoint := c.endpoint
	wsEndpoint = strings.Replace(wsEndpoint, "http://", "ws://", 1)
	wsEndpoint = strings.Replace(wsEndpoint, "https://", "wss://", 1)

	u, err := url.Parse(wsEndpoint + "/ws/ask")
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	// Track connection state for proper cleanup
	var mu sync.Mutex
	closed := false
	closeConn := func() {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			closed = true
			conn.Close()
		}
	}
	defer closeConn()

	if err := conn.WriteJSON(map[string]string{"session_id": sessionID, "question": question}); err != nil {
		return nil, fmt.Errorf("send question: %w", err)
	}

	// Handle context cancellation in a separate goroutine
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			closeConn()
		case <-done:
		}
	}()

	for {
		var ev server.StreamEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("read message: %w", err)
		}

		switch ev.Type {
		case server.EventToken:
			if ev.Token == "" {
				continue
			}
			if err := onToken(ev.Token); err != nil {
				return nil, err
			}
		case server.EventDone:
			return ev.Answer, nil
		case server.EventError:
			return nil, &APIError{Status: ev.Status, Message: ev.Error}
		default:
			// Ignore unknown message types
			continue
		}
	}
}
