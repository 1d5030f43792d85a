package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/raphaelgruber/videorag-go/internal/models"
	"github.com/raphaelgruber/videorag-go/internal/render"
	"github.com/raphaelgruber/videorag-go/internal/service"
	"github.com/raphaelgruber/videorag-go/internal/stitch"
	"github.com/raphaelgruber/videorag-go/internal/timestamp"
)

// maxBodyBytes bounds request bodies; transcripts are the largest payload.
const maxBodyBytes = 16 << 20

type createSessionRequest struct {
	Collection string `json:"collection"`
	Provider   string `json:"provider" validate:"omitempty,oneof=none gemini openai groq anthropic ollama bedrock"`
	MaxResults int    `json:"max_results" validate:"min=0,max=10"`
}

type loadVideoRequest struct {
	VideoID    string `json:"video_id" validate:"required"`
	Collection string `json:"collection"`
}

type searchRequest struct {
	SessionID  string `json:"session_id" validate:"required"`
	Query      string `json:"query" validate:"required"`
	MaxResults int    `json:"max_results" validate:"min=0,max=10"`
}

type askRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Question  string `json:"question" validate:"required"`
}

type quizRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Topic     string `json:"topic" validate:"required"`
	Questions int    `json:"questions" validate:"omitempty,min=3,max=10"`
}

type reelRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Topics    string `json:"topics" validate:"required"`
}

type ingestRequest struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	SourceURL  *string `json:"source_url" validate:"omitempty,url"`
	Collection string  `json:"collection"`
	Filename   string  `json:"filename"`
	Content    string  `json:"content" validate:"required"`
	Force      bool    `json:"force"`
}

// askResponse adds rendered HTML fragments to an answer.
type askResponse struct {
	*service.Answer
	ResultsHTML string `json:"results_html"`
	PlayerHTML  string `json:"player_html,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Metrics.Snapshot())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	sess := s.deps.NewSession()
	if req.Collection != "" {
		sess.Collection = req.Collection
	}
	if req.Provider != "" {
		sess.Provider = req.Provider
	}
	if req.MaxResults > 0 {
		sess.MaxResults = req.MaxResults
	}
	if err := s.deps.Sessions.Save(r.Context(), sess); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sessions.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLoadVideo(w http.ResponseWriter, r *http.Request) {
	var req loadVideoRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.deps.Sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err = s.deps.Library.Load(r.Context(), sess, req.VideoID, req.Collection)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.deps.Sessions.Save(r.Context(), sess); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.deps.Sessions.Get(r.Context(), req.SessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	result, err := s.deps.Query.Search(r.Context(), sess, req.Query, req.MaxResults)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.deps.Sessions.Get(r.Context(), req.SessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	answer, err := s.deps.Query.Ask(r.Context(), sess, req.Question)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp, err := withHTML(sess.Video, answer)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// withHTML renders the answer's results table and, when there is a best
// segment, an embedded player starting at it.
func withHTML(video models.VideoRef, answer *service.Answer) (askResponse, error) {
	resp := askResponse{Answer: answer}
	var err error
	resp.ResultsHTML, err = render.ResultsHTML(video.SourceURL, answer.Segments, "")
	if err != nil {
		return resp, fmt.Errorf("render results: %w", err)
	}
	if answer.Best != nil {
		resp.PlayerHTML, err = render.EmbedPlayerHTML(video.SourceURL, timestamp.ToSecondsInt(answer.Best.StartTime))
		if err != nil {
			return resp, fmt.Errorf("render player: %w", err)
		}
	}
	return resp, nil
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.deps.Sessions.Get(r.Context(), req.SessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	quiz, err := s.deps.Query.Quiz(r.Context(), sess, req.Topic, req.Questions)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (s *Server) handleReel(w http.ResponseWriter, r *http.Request) {
	var req reelRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	sess, err := s.deps.Sessions.Get(r.Context(), req.SessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	reel, err := s.deps.Query.Reel(r.Context(), sess, req.Topics)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reel)
}

// handleTranscript returns the transcript view, or the full text as a file
// download when ?download=1 is set.
func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session_id")
	if id == "" {
		s.fail(w, r, validationError("session_id is required"))
		return
	}
	sess, err := s.deps.Sessions.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	view, err := s.deps.Query.Transcript(r.Context(), sess)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", view.Filename))
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, view.Full)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := s.deps.Library.Collections(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if cols == nil {
		cols = []models.CollectionCount{}
	}
	writeJSON(w, http.StatusOK, cols)
}

func (s *Server) handleVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := s.deps.Library.Videos(r.Context(), r.URL.Query().Get("collection"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	refs := make([]models.VideoRef, 0, len(videos))
	for _, v := range videos {
		refs = append(refs, v.Ref())
	}
	writeJSON(w, http.StatusOK, refs)
}

func (s *Server) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.deps.Library.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !deleted {
		s.fail(w, r, fmt.Errorf("video %s: %w", r.PathValue("id"), models.ErrNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := s.decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	collection := req.Collection
	if collection == "" {
		collection = s.deps.NewSession().Collection
	}

	job := s.deps.Jobs.Start(s.jobCtx, service.IngestRequest{
		Video: models.VideoInput{
			ID:         req.ID,
			Title:      req.Title,
			SourceURL:  req.SourceURL,
			Collection: collection,
		},
		Filename: req.Filename,
		Content:  req.Content,
		Force:    req.Force,
	})
	writeJSON(w, http.StatusAccepted, job.Snapshot())
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Jobs.ListJobs())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job := s.deps.Jobs.GetJob(r.PathValue("id"))
	if job == nil {
		s.fail(w, r, fmt.Errorf("job %s: %w", r.PathValue("id"), models.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// decode reads a JSON body into v and validates its struct tags.
func (s *Server) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return validationError("invalid JSON body: %v", err)
	}
	return s.check(v)
}

func (s *Server) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", models.ErrValidation, strings.Join(msgs, ", "))
		}
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	return nil
}

// fail writes err with the status matching its kind.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request error", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}

// statusFor maps error kinds to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrIndexNotReady):
		return http.StatusConflict
	case errors.Is(err, models.ErrRetrieval),
		errors.Is(err, models.ErrProviderUnavailable),
		errors.Is(err, stitch.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", models.ErrValidation, fmt.Sprintf(format, args...))
}
