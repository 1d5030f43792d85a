package llm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/raphaelgruber/videorag-go/internal/metrics"
	"github.com/raphaelgruber/videorag-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	answer string
	tokens []string
	err    error
	delay  time.Duration

	mu    sync.Mutex
	calls int
}

func (f *fakeGenerator) wait(ctx context.Context) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay == 0 {
		return nil
	}
	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeGenerator) Generate(ctx context.Context, _ string) (string, error) {
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	return f.answer, f.err
}

func (f *fakeGenerator) Stream(ctx context.Context, _ string, onToken func(string) error) (string, error) {
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	if f.err != nil {
		return "", f.err
	}
	var full strings.Builder
	for _, tok := range f.tokens {
		full.WriteString(tok)
		if err := onToken(tok); err != nil {
			return "", err
		}
	}
	return full.String(), nil
}

func TestAdapter_Generate(t *testing.T) {
	gen := &fakeGenerator{answer: "  It is explained at 02:05.  "}
	collector := metrics.NewCollector()
	a := NewAdapterWith(map[string]Generator{"gemini": gen}, time.Second, nil, collector)

	res := a.Generate(context.Background(), "Gemini", "where?")

	assert.True(t, res.Available)
	assert.Equal(t, "It is explained at 02:05.", res.Text)
	assert.Equal(t, "gemini", res.Provider)
	assert.NoError(t, res.Reason)

	snap := collector.Snapshot()
	require.NotNil(t, snap.LLMGenerate)
	assert.Equal(t, int64(1), snap.LLMGenerate.Count)
}

func TestAdapter_Unavailable(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		gen      *fakeGenerator
	}{
		{name: "provider none", provider: "none"},
		{name: "empty provider", provider: ""},
		{name: "unknown backend", provider: "openai"},
		{name: "backend error", provider: "gemini", gen: &fakeGenerator{err: errors.New("connection refused")}},
		{name: "empty answer", provider: "gemini", gen: &fakeGenerator{answer: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gens := map[string]Generator{}
			if tt.gen != nil {
				gens["gemini"] = tt.gen
			}
			a := NewAdapterWith(gens, time.Second, nil, nil)

			res := a.Generate(context.Background(), tt.provider, "prompt")

			assert.False(t, res.Available)
			assert.Empty(t, res.Text)
			assert.ErrorIs(t, res.Reason, models.ErrProviderUnavailable)
		})
	}
}

func TestAdapter_Timeout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timeout test in short mode")
	}

	gen := &fakeGenerator{answer: "late", delay: 2 * time.Second}
	a := NewAdapterWith(map[string]Generator{"groq": gen}, 50*time.Millisecond, nil, nil)

	start := time.Now()
	res := a.Generate(context.Background(), "groq", "prompt")

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, res.Available)
	assert.ErrorIs(t, res.Reason, models.ErrProviderUnavailable)
	assert.ErrorIs(t, res.Reason, context.DeadlineExceeded)
}

func TestAdapter_Stream(t *testing.T) {
	gen := &fakeGenerator{tokens: []string{"Found ", "at ", "01:30"}}
	a := NewAdapterWith(map[string]Generator{"ollama": gen}, time.Second, nil, nil)

	var got []string
	res := a.Stream(context.Background(), "ollama", "prompt", func(tok string) error {
		got = append(got, tok)
		return nil
	})

	require.True(t, res.Available)
	assert.Equal(t, "Found at 01:30", res.Text)
	assert.Equal(t, []string{"Found ", "at ", "01:30"}, got)
}

func TestAdapter_StreamCallbackError(t *testing.T) {
	gen := &fakeGenerator{tokens: []string{"a", "b"}}
	a := NewAdapterWith(map[string]Generator{"ollama": gen}, time.Second, nil, nil)

	stop := errors.New("client gone")
	res := a.Stream(context.Background(), "ollama", "prompt", func(string) error {
		return stop
	})

	assert.False(t, res.Available)
	assert.ErrorIs(t, res.Reason, stop)
}

func TestAdapter_FactoryCachesBackend(t *testing.T) {
	gen := &fakeGenerator{answer: "ok"}
	built := 0
	a := NewAdapterWith(nil, time.Second, nil, nil)
	a.factory = func(_ context.Context, provider string) (Generator, error) {
		built++
		return gen, nil
	}

	for range 3 {
		res := a.Generate(context.Background(), "anthropic", "prompt")
		require.True(t, res.Available)
	}
	assert.Equal(t, 1, built)
	assert.Equal(t, 3, gen.calls)
}

func TestAdapter_FactoryError(t *testing.T) {
	a := NewAdapterWith(nil, time.Second, nil, nil)
	a.factory = func(context.Context, string) (Generator, error) {
		return nil, ErrNotConfigured
	}

	res := a.Generate(context.Background(), "gemini", "prompt")
	assert.False(t, res.Available)
	assert.ErrorIs(t, res.Reason, ErrNotConfigured)
}

func TestEnabled(t *testing.T) {
	assert.False(t, Enabled(""))
	assert.False(t, Enabled("none"))
	assert.False(t, Enabled(" NONE "))
	assert.True(t, Enabled("gemini"))
}

type promptRecorder struct {
	prompt string
}

func (p *promptRecorder) Generate(_ context.Context, prompt string) (string, error) {
	p.prompt = prompt
	return "plain", nil
}

func (p *promptRecorder) Stream(ctx context.Context, prompt string, _ func(string) error) (string, error) {
	return p.Generate(ctx, prompt)
}

type systemRecorder struct {
	promptRecorder
	system, user string
}

func (s *systemRecorder) GenerateWithSystem(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	s.system, s.user = systemPrompt, userPrompt
	return "with system", nil
}

func TestAdapter_GenerateWithSystem(t *testing.T) {
	t.Run("system message backend", func(t *testing.T) {
		gen := &systemRecorder{}
		a := NewAdapterWith(map[string]Generator{"openai": gen}, time.Second, nil, nil)

		res := a.GenerateWithSystem(context.Background(), "openai", "Create 3 questions.", "00:06: loss")
		require.True(t, res.Available)
		assert.Equal(t, "with system", res.Text)
		assert.Equal(t, "Create 3 questions.", gen.system)
		assert.Equal(t, "00:06: loss", gen.user)
		assert.Empty(t, gen.prompt)
	})

	t.Run("single prompt backend", func(t *testing.T) {
		gen := &promptRecorder{}
		a := NewAdapterWith(map[string]Generator{"openai": gen}, time.Second, nil, nil)

		res := a.GenerateWithSystem(context.Background(), "openai", "Create 3 questions.", "00:06: loss")
		require.True(t, res.Available)
		assert.Equal(t, "plain", res.Text)
		assert.Equal(t, "Create 3 questions.\n\n00:06: loss", gen.prompt)
	})

	t.Run("provider off", func(t *testing.T) {
		a := NewAdapterWith(nil, time.Second, nil, nil)
		res := a.GenerateWithSystem(context.Background(), "none", "x", "y")
		assert.False(t, res.Available)
		assert.ErrorIs(t, res.Reason, models.ErrProviderUnavailable)
	})
}

func TestModel_IsSystemGenerator(t *testing.T) {
	var g Generator = NewModel(nil, "m")
	_, ok := g.(SystemGenerator)
	assert.True(t, ok)

	g = NewGroq("key", "m", "")
	_, ok = g.(SystemGenerator)
	assert.True(t, ok)
}
