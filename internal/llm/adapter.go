// Package llm provides answer generation and embeddings over several providers
// behind a contract that never fails the caller: a backend that is off, slow or
// broken yields an "unavailable" result instead of an error.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/raphaelgruber/videorag-go/internal/config"
	"github.com/raphaelgruber/videorag-go/internal/metrics"
	"github.com/raphaelgruber/videorag-go/internal/models"
)

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 20 * time.Second

// ErrNotConfigured indicates the provider is off or lacks credentials.
var ErrNotConfigured = errors.New("provider not configured")

// Result is the outcome of a generation call. When Available is false, Text is
// empty and Reason wraps models.ErrProviderUnavailable.
type Result struct {
	Text      string `json:"text,omitempty"`
	Available bool   `json:"available"`
	Provider  string `json:"provider"`
	Reason    error  `json:"-"`
}

// GeneratorFactory builds the backend for a provider on first use.
type GeneratorFactory func(ctx context.Context, provider string) (Generator, error)

// Adapter routes prompts to provider backends under a timeout.
type Adapter struct {
	mu         sync.Mutex
	generators map[string]Generator
	factory    GeneratorFactory

	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewAdapter creates an adapter that builds backends from cfg on demand.
func NewAdapter(cfg config.Config, logger *slog.Logger, collector *metrics.Collector) *Adapter {
	a := NewAdapterWith(nil, cfg.ProviderTimeout, logger, collector)
	a.factory = func(ctx context.Context, provider string) (Generator, error) {
		return NewGenerator(ctx, cfg, provider)
	}
	return a
}

// NewAdapterWith creates an adapter over a fixed set of backends keyed by provider.
func NewAdapterWith(generators map[string]Generator, timeout time.Duration, logger *slog.Logger, collector *metrics.Collector) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	gens := make(map[string]Generator, len(generators))
	for k, v := range generators {
		gens[k] = v
	}
	return &Adapter{
		generators: gens,
		timeout:    timeout,
		logger:     logger,
		metrics:    collector,
	}
}

// Enabled reports whether provider selects a backend at all.
func Enabled(provider string) bool {
	p := strings.ToLower(strings.TrimSpace(provider))
	return p != "" && p != config.ProviderNone
}

func (a *Adapter) generator(ctx context.Context, provider string) (Generator, error) {
	if !Enabled(provider) {
		return nil, fmt.Errorf("%w: AI is off", ErrNotConfigured)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if g, ok := a.generators[provider]; ok {
		return g, nil
	}
	if a.factory == nil {
		return nil, fmt.Errorf("%w: no backend for %s", ErrNotConfigured, provider)
	}
	g, err := a.factory(ctx, provider)
	if err != nil {
		return nil, err
	}
	a.generators[provider] = g
	return g, nil
}

// Generate asks provider to answer prompt. It never returns an error; failures,
// timeouts and empty answers come back as an unavailable Result.
func (a *Adapter) Generate(ctx context.Context, provider, prompt string) Result {
	provider = strings.ToLower(strings.TrimSpace(provider))
	return a.run(ctx, metrics.OpLLMGenerate, provider, func(ctx context.Context, g Generator) (string, error) {
		return g.Generate(ctx, prompt)
	})
}

// GenerateWithSystem is Generate with instructions sent as a system message.
// Backends without system message support get both parts in one prompt.
func (a *Adapter) GenerateWithSystem(ctx context.Context, provider, systemPrompt, userPrompt string) Result {
	provider = strings.ToLower(strings.TrimSpace(provider))
	return a.run(ctx, metrics.OpLLMGenerate, provider, func(ctx context.Context, g Generator) (string, error) {
		if sg, ok := g.(SystemGenerator); ok {
			return sg.GenerateWithSystem(ctx, systemPrompt, userPrompt)
		}
		return g.Generate(ctx, systemPrompt+"\n\n"+userPrompt)
	})
}

// Stream is Generate with incremental delivery. onToken is never called after
// Stream returns, even when the backend keeps producing output past the timeout.
func (a *Adapter) Stream(ctx context.Context, provider, prompt string, onToken func(string) error) Result {
	provider = strings.ToLower(strings.TrimSpace(provider))

	var mu sync.Mutex
	closed := false
	guarded := func(chunk string) error {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return context.Canceled
		}
		return onToken(chunk)
	}
	defer func() {
		mu.Lock()
		closed = true
		mu.Unlock()
	}()

	return a.run(ctx, metrics.OpLLMStream, provider, func(ctx context.Context, g Generator) (string, error) {
		return g.Stream(ctx, prompt, guarded)
	})
}

type generation struct {
	text string
	err  error
}

func (a *Adapter) run(ctx context.Context, op, provider string, call func(context.Context, Generator) (string, error)) Result {
	g, err := a.generator(ctx, provider)
	if err != nil {
		return a.unavailable(provider, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan generation, 1)
	go func() {
		text, err := call(callCtx, g)
		done <- generation{text: text, err: err}
	}()

	var res generation
	select {
	case res = <-done:
	case <-callCtx.Done():
		res = generation{err: callCtx.Err()}
	}
	if res.err == nil && strings.TrimSpace(res.text) == "" {
		res.err = errors.New("empty answer")
	}
	a.metrics.Observe(op, start, res.err)

	if res.err != nil {
		return a.unavailable(provider, res.err)
	}

	a.logger.Debug("generated answer",
		"provider", provider,
		"answer_len", len(res.text),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Result{Text: strings.TrimSpace(res.text), Available: true, Provider: provider}
}

func (a *Adapter) unavailable(provider string, cause error) Result {
	if !errors.Is(cause, ErrNotConfigured) {
		a.logger.Warn("answer generation unavailable", "provider", provider, "error", cause)
	}
	return Result{
		Provider: provider,
		Reason:   fmt.Errorf("%w: %s: %w", models.ErrProviderUnavailable, provider, cause),
	}
}
