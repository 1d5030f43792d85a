// Package service orchestrates the retrieval core into user operations:
// search, ask, quiz, highlight reels, transcripts, ingestion and the library.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raphaelgruber/videorag-go/internal/llm"
	"github.com/raphaelgruber/videorag-go/internal/models"
	"github.com/raphaelgruber/videorag-go/internal/ranker"
	"github.com/raphaelgruber/videorag-go/internal/render"
	"github.com/raphaelgruber/videorag-go/internal/session"
	"github.com/raphaelgruber/videorag-go/internal/source"
	"github.com/raphaelgruber/videorag-go/internal/stitch"
	"github.com/raphaelgruber/videorag-go/internal/timeline"
	"github.com/raphaelgruber/videorag-go/internal/timestamp"
	"github.com/raphaelgruber/videorag-go/internal/transcript"
	"golang.org/x/sync/errgroup"
)

const (
	askContextSegments = 3
	quizMaxResults     = 8
	reelPerTopic       = 3

	DefaultQuizQuestions = 5
	MinQuizQuestions     = 3
	MaxQuizQuestions     = 10
)

// ErrNoVideo is returned when an operation needs an active video and the session has none.
var ErrNoVideo = fmt.Errorf("%w: add and index a video first", models.ErrValidation)

// QueryOptions tunes the query operations.
type QueryOptions struct {
	// TopK is used when the session does not set MaxResults.
	TopK int
	// TranscriptPreviewChars bounds the transcript preview.
	TranscriptPreviewChars int
	// ReelConcurrency limits parallel topic searches.
	ReelConcurrency int
}

// QueryService answers questions about the session's active video.
type QueryService struct {
	ranker      *ranker.Ranker
	adapter     *llm.Adapter
	merger      *timeline.Merger
	stitcher    stitch.Stitcher
	transcripts transcript.Fetcher
	opts        QueryOptions
	logger      *slog.Logger
}

// NewQueryService creates a query service. adapter, merger, stitcher and
// transcripts may be nil; a nil adapter behaves as if AI were off.
func NewQueryService(
	r *ranker.Ranker,
	adapter *llm.Adapter,
	merger *timeline.Merger,
	stitcher stitch.Stitcher,
	transcripts transcript.Fetcher,
	opts QueryOptions,
	logger *slog.Logger,
) *QueryService {
	if adapter == nil {
		adapter = llm.NewAdapterWith(nil, 0, logger, nil)
	}
	if merger == nil {
		merger = timeline.NewMerger(false, logger)
	}
	if stitcher == nil {
		stitcher = stitch.Unavailable{}
	}
	if opts.TopK <= 0 {
		opts.TopK = ranker.DefaultMaxResults
	}
	if opts.TranscriptPreviewChars <= 0 {
		opts.TranscriptPreviewChars = render.DefaultTranscriptPreviewChars
	}
	if opts.ReelConcurrency <= 0 {
		opts.ReelConcurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryService{
		ranker:      r,
		adapter:     adapter,
		merger:      merger,
		stitcher:    stitcher,
		transcripts: transcripts,
		opts:        opts,
		logger:      logger,
	}
}

// SearchResult is a ranked search over the active video.
type SearchResult struct {
	Query    string                 `json:"query"`
	Segments models.RankedResultSet `json:"segments"`
	Message  string                 `json:"message,omitempty"`
}

// Answer is the outcome of Ask. Text is the provider's answer when FromAI is
// set and the best-match fallback otherwise.
type Answer struct {
	Question  string                 `json:"question"`
	Text      string                 `json:"text"`
	FromAI    bool                   `json:"from_ai"`
	Provider  string                 `json:"provider"`
	Segments  models.RankedResultSet `json:"segments"`
	Best      *models.Segment        `json:"best,omitempty"`
	PlayerURL string                 `json:"player_url,omitempty"`
	Message   string                 `json:"message,omitempty"`
}

// Quiz is the outcome of Quiz. Prompts holds the basic questions used when no
// AI quiz could be generated.
type Quiz struct {
	Topic     string                 `json:"topic"`
	Questions int                    `json:"questions"`
	Text      string                 `json:"text,omitempty"`
	FromAI    bool                   `json:"from_ai"`
	Prompts   []string               `json:"prompts,omitempty"`
	Segments  models.RankedResultSet `json:"segments"`
	Best      *models.Segment        `json:"best,omitempty"`
	Message   string                 `json:"message,omitempty"`
}

// Reel is a stitched highlight reel. When stitching fails, Fallback is set and
// PlayerURL starts at the first timeline entry.
type Reel struct {
	Topics    []string        `json:"topics"`
	Timeline  models.Timeline `json:"timeline"`
	Duration  int             `json:"duration"`
	StreamURL string          `json:"stream_url,omitempty"`
	PlayerURL string          `json:"player_url,omitempty"`
	Fallback  bool            `json:"fallback"`
	Message   string          `json:"message,omitempty"`
}

// TranscriptView is the full transcript with a bounded preview.
type TranscriptView struct {
	render.TranscriptPreview
	Filename string `json:"filename"`
	Message  string `json:"message,omitempty"`
}

func (s *QueryService) maxResults(sess session.Session) int {
	if sess.MaxResults > 0 {
		return sess.MaxResults
	}
	return s.opts.TopK
}

// rank runs the ranker and recovers retrieval failures into an empty set.
// Validation errors and an unbuilt index are returned to the caller.
func (s *QueryService) rank(ctx context.Context, video models.VideoRef, query string, maxResults int) (models.RankedResultSet, error) {
	set, err := s.ranker.Rank(ctx, video, query, maxResults)
	switch {
	case err == nil:
		return set, nil
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrIndexNotReady):
		return nil, err
	case errors.Is(err, models.ErrRetrieval):
		s.logger.Warn("search failed, returning no results", "video_id", video.ID, "query", query, "error", err)
		return models.RankedResultSet{}, nil
	default:
		return nil, err
	}
}

// Search ranks segments of the active video for query.
func (s *QueryService) Search(ctx context.Context, sess session.Session, query string, maxResults int) (*SearchResult, error) {
	if !sess.HasVideo() {
		return nil, ErrNoVideo
	}
	if maxResults == 0 {
		maxResults = s.maxResults(sess)
	}

	set, err := s.rank(ctx, sess.Video, query, maxResults)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{Query: query, Segments: set}
	if len(set) == 0 {
		result.Message = MsgNoMatches
	}
	return result, nil
}

// Ask answers question from the top segments of the active video. When the
// provider is off or fails, the answer falls back to the best match.
func (s *QueryService) Ask(ctx context.Context, sess session.Session, question string) (*Answer, error) {
	return s.ask(ctx, sess, question, func(prompt string) llm.Result {
		return s.adapter.Generate(ctx, sess.Provider, prompt)
	})
}

// AskStream is Ask with the provider's answer delivered through onToken as it
// is generated. onToken is not called for fallback answers.
func (s *QueryService) AskStream(ctx context.Context, sess session.Session, question string, onToken func(string) error) (*Answer, error) {
	return s.ask(ctx, sess, question, func(prompt string) llm.Result {
		return s.adapter.Stream(ctx, sess.Provider, prompt, onToken)
	})
}

func (s *QueryService) ask(ctx context.Context, sess session.Session, question string, generate func(prompt string) llm.Result) (*Answer, error) {
	if !sess.HasVideo() {
		return nil, ErrNoVideo
	}

	set, err := s.rank(ctx, sess.Video, question, s.maxResults(sess))
	if err != nil {
		return nil, err
	}

	answer := &Answer{Question: question, Provider: sess.Provider, Segments: set}
	best, ok := set.Top()
	if !ok {
		answer.Message = MsgNoMatches
		return answer, nil
	}
	answer.Best = &best
	answer.PlayerURL = embedURL(sess.Video, timestamp.ToSecondsInt(best.StartTime))

	promptContext := render.Context(set, askContextSegments)
	if llm.Enabled(sess.Provider) && promptContext != "" {
		res := generate(AskPrompt(question, promptContext))
		if res.Available {
			answer.Text = res.Text
			answer.FromAI = true
			return answer, nil
		}
		s.logger.Info("answer fell back to best match", "provider", sess.Provider, "reason", res.Reason)
	} else {
		answer.Message = MsgAIOff
	}

	answer.Text = render.BestMatch(best)
	return answer, nil
}

// Quiz builds n multiple-choice questions about topic. A zero n uses
// DefaultQuizQuestions.
func (s *QueryService) Quiz(ctx context.Context, sess session.Session, topic string, n int) (*Quiz, error) {
	if !sess.HasVideo() {
		return nil, ErrNoVideo
	}
	if n == 0 {
		n = DefaultQuizQuestions
	}
	if n < MinQuizQuestions || n > MaxQuizQuestions {
		return nil, fmt.Errorf("%w: questions must be between %d and %d, got %d",
			models.ErrValidation, MinQuizQuestions, MaxQuizQuestions, n)
	}

	set, err := s.rank(ctx, sess.Video, topic, quizMaxResults)
	if err != nil {
		return nil, err
	}

	quiz := &Quiz{Topic: topic, Questions: n, Segments: set}
	if best, ok := set.Top(); ok {
		quiz.Best = &best
	}

	promptContext := render.Context(set, 0)
	if !llm.Enabled(sess.Provider) || promptContext == "" {
		quiz.Prompts = BasicQuizPrompts(set, n)
		quiz.Message = MsgQuizBasic
		return quiz, nil
	}

	res := s.adapter.GenerateWithSystem(ctx, sess.Provider, QuizInstructions(n), promptContext)
	if !res.Available {
		s.logger.Warn("quiz generation failed", "provider", sess.Provider, "reason", res.Reason)
		quiz.Prompts = BasicQuizPrompts(set, n)
		quiz.Message = MsgAIFailed
		return quiz, nil
	}

	quiz.Text = res.Text
	quiz.FromAI = true
	return quiz, nil
}

// BasicQuizPrompts returns n copyable prompts cycling through the segment
// timestamps, or 00:00 when there are no segments.
func BasicQuizPrompts(set models.RankedResultSet, n int) []string {
	prompts := make([]string, n)
	for i := range n {
		base := "00:00"
		if len(set) > 0 {
			base = set[i%len(set)].Timestamp
		}
		prompts[i] = fmt.Sprintf("Q%d. Based on segment %s, write a question.", i+1, base)
	}
	return prompts
}

// SplitTopics splits a comma separated topic list, dropping blanks.
func SplitTopics(topics string) []string {
	var out []string
	for _, t := range strings.Split(topics, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Reel searches every topic concurrently, merges the results into a timeline
// and stitches it. A failing topic contributes nothing.
func (s *QueryService) Reel(ctx context.Context, sess session.Session, topics string) (*Reel, error) {
	if !sess.HasVideo() {
		return nil, ErrNoVideo
	}
	list := SplitTopics(topics)
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: no topics", models.ErrValidation)
	}

	sets := make([]models.RankedResultSet, len(list))
	var g errgroup.Group
	g.SetLimit(s.opts.ReelConcurrency)
	for i, topic := range list {
		g.Go(func() error {
			set, err := s.ranker.Rank(ctx, sess.Video, topic, reelPerTopic)
			if err != nil {
				s.logger.Warn("reel topic failed", "video_id", sess.Video.ID, "topic", topic, "error", err)
				return nil
			}
			sets[i] = set
			return nil
		})
	}
	_ = g.Wait()

	tl, err := s.merger.Merge(sets...)
	if err != nil {
		return nil, err
	}

	reel := &Reel{Topics: list, Timeline: tl, Duration: tl.Duration()}
	if len(tl) == 0 {
		reel.Message = MsgNoReel
		return reel, nil
	}

	url, err := s.stitcher.Stitch(ctx, sess.Video, tl)
	if err != nil {
		s.logger.Info("stitching unavailable, using embed player", "video_id", sess.Video.ID, "error", err)
		reel.Fallback = true
		reel.Message = MsgStitchFallback
		reel.PlayerURL = embedURL(sess.Video, tl[0].Start)
		return reel, nil
	}
	reel.StreamURL = url
	return reel, nil
}

// Transcript returns the active video's transcript with a bounded preview.
func (s *QueryService) Transcript(ctx context.Context, sess session.Session) (*TranscriptView, error) {
	if !sess.HasVideo() {
		return nil, ErrNoVideo
	}

	var text string
	if s.transcripts != nil {
		var err error
		text, err = s.transcripts.Transcript(ctx, sess.Video)
		if err != nil {
			return nil, fmt.Errorf("transcript: %w", err)
		}
	}

	view := &TranscriptView{
		TranscriptPreview: render.NewTranscriptPreview(text, s.opts.TranscriptPreviewChars),
		Filename:          "transcript.txt",
	}
	if strings.TrimSpace(text) == "" {
		view.Message = MsgTranscriptMissing
	}
	return view, nil
}

// embedURL returns an embeddable player URL starting at second, or "" when the
// video's source cannot be embedded.
func embedURL(video models.VideoRef, second int) string {
	linker, ok := source.NewLinker(video.SourceURL)
	if !ok {
		return ""
	}
	return linker.EmbedURL(second)
}
