package ranker

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/raphaelgruber/videorag-go/internal/metrics"
	"github.com/raphaelgruber/videorag-go/internal/models"
	"github.com/raphaelgruber/videorag-go/internal/timestamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIndex returns canned hits and records calls.
type fakeIndex struct {
	hits  []models.RawHit
	err   error
	delay time.Duration
	calls int
}

func (f *fakeIndex) Search(ctx context.Context, _ models.VideoRef, _ string) ([]models.RawHit, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.hits, f.err
}

var video = models.VideoRef{ID: "vid1", Collection: "default"}

func ptr(f float64) *float64 { return &f }

func TestRankScenario(t *testing.T) {
	idx := &fakeIndex{hits: []models.RawHit{
		models.NewRawHit(40, 46, 0.40, "detail"),
		models.NewRawHit(10, 15, 0.92, "intro"),
	}}
	r := New(idx, Config{}, nil, nil)

	got, err := r.Rank(context.Background(), video, "what is this about", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, timestamp.Offset(10), got[0].StartTime)
	assert.Equal(t, 92, got[0].Score)
	assert.Equal(t, "intro", got[0].Text)
	assert.Equal(t, "00:10", got[0].Timestamp)

	assert.Equal(t, timestamp.Offset(40), got[1].StartTime)
	assert.Equal(t, 40, got[1].Score)
}

func TestRankRejectsEmptyQuery(t *testing.T) {
	for _, q := range []string{"", "   ", "\n\t"} {
		idx := &fakeIndex{}
		r := New(idx, Config{}, nil, nil)

		_, err := r.Rank(context.Background(), video, q, 5)
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrValidation))
		assert.Equal(t, 0, idx.calls, "index must not be called for %q", q)
	}
}

func TestRankMaxResultsValidation(t *testing.T) {
	tests := []struct {
		name    string
		max     int
		wantErr bool
	}{
		{"zero uses default", 0, false},
		{"one", 1, false},
		{"limit", MaxResultsLimit, false},
		{"negative", -1, true},
		{"over limit", MaxResultsLimit + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := &fakeIndex{}
			r := New(idx, Config{}, nil, nil)
			_, err := r.Rank(context.Background(), video, "query", tt.max)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, models.ErrValidation))
				assert.Equal(t, 0, idx.calls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, idx.calls)
		})
	}
}

func TestRankRequiresVideo(t *testing.T) {
	idx := &fakeIndex{}
	r := New(idx, Config{}, nil, nil)
	_, err := r.Rank(context.Background(), models.VideoRef{}, "query", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrValidation))
	assert.Equal(t, 0, idx.calls)
}

func TestRankOrderingAndCap(t *testing.T) {
	var hits []models.RawHit
	for i := 0; i < 20; i++ {
		score := float64((i*37)%11) / 10
		hits = append(hits, models.NewRawHit(float64(100-i*3), float64(105-i*3), score, "seg"))
	}
	r := New(&fakeIndex{hits: hits}, Config{}, nil, nil)

	for _, max := range []int{1, 3, 5, 10} {
		got, err := r.Rank(context.Background(), video, "query", max)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), max)
		for i := 1; i < len(got); i++ {
			prev, cur := got[i-1], got[i]
			require.GreaterOrEqual(t, prev.Score, cur.Score)
			if prev.Score == cur.Score {
				assert.LessOrEqual(t, prev.StartTime, cur.StartTime)
			}
		}
	}
}

func TestRankDefaultMaxResults(t *testing.T) {
	var hits []models.RawHit
	for i := 0; i < 8; i++ {
		hits = append(hits, models.NewRawHit(float64(i*10), float64(i*10+5), 0.5, ""))
	}
	r := New(&fakeIndex{hits: hits}, Config{}, nil, nil)

	got, err := r.Rank(context.Background(), video, "query", 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultMaxResults)
}

func TestRankTieBreaksByStart(t *testing.T) {
	r := New(&fakeIndex{hits: []models.RawHit{
		models.NewRawHit(50, 55, 0.7, "late"),
		models.NewRawHit(5, 9, 0.7, "early"),
		models.NewRawHit(20, 25, 0.9, "best"),
	}}, Config{}, nil, nil)

	got, err := r.Rank(context.Background(), video, "query", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"best", "early", "late"}, []string{got[0].Text, got[1].Text, got[2].Text})
}

func TestRankZeroHits(t *testing.T) {
	r := New(&fakeIndex{}, Config{}, nil, nil)
	got, err := r.Rank(context.Background(), video, "query", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRankRetrievalError(t *testing.T) {
	cause := errors.New("connection refused")
	r := New(&fakeIndex{err: cause}, Config{}, nil, nil)

	got, err := r.Rank(context.Background(), video, "query", 5)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, models.ErrRetrieval))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, models.ErrIndexNotReady))
}

func TestRankIndexNotReady(t *testing.T) {
	r := New(&fakeIndex{err: models.ErrIndexNotReady}, Config{}, nil, nil)

	_, err := r.Rank(context.Background(), video, "query", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrRetrieval))
	assert.True(t, errors.Is(err, models.ErrIndexNotReady))
}

func TestRankTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timeout test in short mode")
	}
	idx := &fakeIndex{delay: time.Second}
	r := New(idx, Config{Timeout: 20 * time.Millisecond}, nil, nil)

	_, err := r.Rank(context.Background(), video, "query", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrRetrieval))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRankRecordsMetrics(t *testing.T) {
	c := metrics.NewCollector()
	r := New(&fakeIndex{err: errors.New("boom")}, Config{}, nil, c)
	_, _ = r.Rank(context.Background(), video, "query", 5)

	snap := c.Snapshot()
	require.NotNil(t, snap.IndexSearch)
	assert.Equal(t, int64(1), snap.IndexSearch.Count)
	assert.Equal(t, int64(1), snap.IndexSearch.Failures)
}

func TestToSegment(t *testing.T) {
	tests := []struct {
		name    string
		hit     models.RawHit
		wantOK  bool
		wantEnd timestamp.Offset
	}{
		{"complete", models.NewRawHit(10, 15, 0.5, ""), true, 15},
		{"missing start", models.RawHit{EndTime: ptr(5), RawScore: 0.5}, false, 0},
		{"negative start", models.NewRawHit(-1, 5, 0.5, ""), false, 0},
		{"NaN start", models.NewRawHit(math.NaN(), 5, 0.5, ""), false, 0},
		{"missing end", models.RawHit{StartTime: ptr(7), RawScore: 0.5}, true, 7},
		{"end before start", models.NewRawHit(30, 20, 0.5, ""), true, 30},
		{"NaN end", models.NewRawHit(30, math.NaN(), 0.5, ""), true, 30},
		{"start beyond max offset", models.NewRawHit(1e300, 1e300, 0.5, ""), false, 0},
		{"start overflowing int", models.NewRawHit(1e19, 1e19, 0.5, ""), false, 0},
		{"end beyond max offset", models.NewRawHit(30, 1e19, 0.5, ""), true, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg, ok := ToSegment(tt.hit, DefaultScoreScale)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantEnd, seg.EndTime)
				assert.NoError(t, seg.Validate())
			}
		})
	}
}

func TestRankDropsMalformedHits(t *testing.T) {
	r := New(&fakeIndex{hits: []models.RawHit{
		{Text: "no start", RawScore: 0.99},
		models.NewRawHit(12, 18, 0.5, "ok"),
	}}, Config{}, nil, nil)

	got, err := r.Rank(context.Background(), video, "query", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].Text)
}

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		raw   float64
		scale float64
		want  int
	}{
		{0.92, 100, 92},
		{0.404, 100, 40},
		{1.7, 100, 100},
		{-0.2, 100, 0},
		{math.NaN(), 100, 0},
		{math.Inf(1), 100, 100},
		{87, 1, 87},
		{0.5, 0, 50},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeScore(tt.raw, tt.scale), "raw=%v scale=%v", tt.raw, tt.scale)
	}
}
