package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/videorag-go/internal/service"
)

// Stream event types sent on /ws/ask.
const (
	EventToken = "token"
	EventDone  = "done"
	EventError = "error"
)

// StreamEvent is one message of a streamed answer. The final event is either
// EventDone carrying the full answer or EventError.
type StreamEvent struct {
	Type   string          `json:"type"`
	Token  string          `json:"token,omitempty"`
	Answer *service.Answer `json:"answer,omitempty"`
	Error  string          `json:"error,omitempty"`
	Status int             `json:"status,omitempty"`
}

const wsWriteTimeout = 10 * time.Second

// handleAskStream upgrades to a websocket, reads one ask request and streams
// the answer token by token.
func (s *Server) handleAskStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	send := func(ev StreamEvent) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(ev)
	}
	sendErr := func(err error) {
		_ = send(StreamEvent{Type: EventError, Error: err.Error(), Status: statusFor(err)})
	}

	var req askRequest
	if err := conn.ReadJSON(&req); err != nil {
		sendErr(validationError("invalid JSON message: %v", err))
		return
	}
	if err := s.check(&req); err != nil {
		sendErr(err)
		return
	}

	ctx := r.Context()
	sess, err := s.deps.Sessions.Get(ctx, req.SessionID)
	if err != nil {
		sendErr(err)
		return
	}

	answer, err := s.deps.Query.AskStream(ctx, sess, req.Question, func(token string) error {
		return send(StreamEvent{Type: EventToken, Token: token})
	})
	if err != nil {
		sendErr(err)
		return
	}
	if err := send(StreamEvent{Type: EventDone, Answer: answer}); err != nil {
		s.logger.Debug("websocket closed before answer was sent", "error", err)
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}
