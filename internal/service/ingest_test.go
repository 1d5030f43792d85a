package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/raphaelgruber/videorag-go/internal/db"
	"github.com/raphaelgruber/videorag-go/internal/models"
	"github.com/raphaelgruber/videorag-go/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const sampleSRT = `1
00:00:01,000 --> 00:00:04,000
Hello and welcome.

2
00:00:04,500 --> 00:00:09,000
Today we talk about gradient descent.
`

// fakeVideoStore is an in-memory VideoStore and Catalog.
type fakeVideoStore struct {
	mu        sync.Mutex
	videos    map[string]*models.Video
	segments  map[string][]models.TranscriptSegmentInput
	conflicts int
	writes    int
}

func newFakeVideoStore() *fakeVideoStore {
	return &fakeVideoStore{
		videos:   map[string]*models.Video{},
		segments: map[string][]models.TranscriptSegmentInput{},
	}
}

func (f *fakeVideoStore) GetVideo(_ context.Context, id string) (*models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.videos[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (f *fakeVideoStore) UpsertVideo(_ context.Context, in models.VideoInput) (*models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.videos[in.ID]
	if !ok {
		v = &models.Video{ID: surrealmodels.NewRecordID("video", in.ID)}
		f.videos[in.ID] = v
	}
	v.Title = in.Title
	v.SourceURL = in.SourceURL
	v.Collection = in.Collection
	cp := *v
	return &cp, nil
}

func (f *fakeVideoStore) ReplaceSegments(_ context.Context, id string, segs []models.TranscriptSegmentInput, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.conflicts > 0 {
		f.conflicts--
		return 0, fmt.Errorf("%w: retry", db.ErrTransactionConflict)
	}
	v, ok := f.videos[id]
	if !ok {
		return 0, db.ErrNotFound
	}
	f.segments[id] = segs
	v.Indexed = true
	v.SegmentCount = len(segs)
	return len(segs), nil
}

func (f *fakeVideoStore) ListVideos(_ context.Context, collection string) ([]models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Video
	for _, v := range f.videos {
		if collection == "" || v.Collection == collection {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (f *fakeVideoStore) ListCollections(context.Context) ([]models.CollectionCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[string]int{}
	for _, v := range f.videos {
		counts[v.Collection]++
	}
	var out []models.CollectionCount
	for name, n := range counts {
		out = append(out, models.CollectionCount{Name: name, Count: n})
	}
	return out, nil
}

func (f *fakeVideoStore) DeleteVideo(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.videos[id]; !ok {
		return 0, nil
	}
	delete(f.videos, id)
	delete(f.segments, id)
	return 1, nil
}

type fakeBatchEmbedder struct {
	err   error
	calls int
}

func (f *fakeBatchEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1, 0}
	}
	return out, nil
}

func ingestRequest(id string) IngestRequest {
	url := "https://youtu.be/" + id
	return IngestRequest{
		Video:    models.VideoInput{ID: id, Title: "Optimization", SourceURL: &url, Collection: "educational_videos"},
		Filename: "lecture.srt",
		Content:  sampleSRT,
	}
}

func TestIngest(t *testing.T) {
	store := newFakeVideoStore()
	emb := &fakeBatchEmbedder{}
	svc := NewIngestService(store, emb, nil)

	var stages []string
	res, err := svc.Ingest(context.Background(), ingestRequest("vid1"), func(stage string, done, total int) {
		stages = append(stages, stage)
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Cues)
	assert.Equal(t, 1, res.Segments)
	assert.True(t, res.Embedded)
	assert.False(t, res.Skipped)
	assert.Equal(t, "vid1", res.Video.ID)
	assert.Equal(t, "https://youtu.be/vid1", res.Video.SourceURL)
	assert.Equal(t, []string{StageParse, StageEmbed, StageStore}, stages)

	segs := store.segments["vid1"]
	require.Len(t, segs, 1)
	assert.Equal(t, "Hello and welcome. Today we talk about gradient descent.", segs[0].Text)
	assert.InDelta(t, 1.0, segs[0].StartTime, 1e-9)
	assert.InDelta(t, 9.0, segs[0].EndTime, 1e-9)
	assert.NotEmpty(t, segs[0].Embedding)
}

func TestIngest_SkipsIndexedUnlessForced(t *testing.T) {
	store := newFakeVideoStore()
	emb := &fakeBatchEmbedder{}
	svc := NewIngestService(store, emb, nil)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, ingestRequest("vid1"), nil)
	require.NoError(t, err)

	res, err := svc.Ingest(ctx, ingestRequest("vid1"), nil)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, 1, emb.calls)

	req := ingestRequest("vid1")
	req.Force = true
	res, err = svc.Ingest(ctx, req, nil)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 2, emb.calls)
}

func TestIngest_WithoutEmbedder(t *testing.T) {
	store := newFakeVideoStore()
	svc := NewIngestService(store, nil, nil)

	res, err := svc.Ingest(context.Background(), ingestRequest("vid1"), nil)
	require.NoError(t, err)
	assert.False(t, res.Embedded)
	assert.Empty(t, store.segments["vid1"][0].Embedding)
}

func TestIngest_DerivesIDFromYouTubeURL(t *testing.T) {
	store := newFakeVideoStore()
	svc := NewIngestService(store, nil, nil)

	req := ingestRequest("")
	url := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	req.Video.SourceURL = &url

	res, err := svc.Ingest(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", res.Video.ID)
}

func TestIngest_Validation(t *testing.T) {
	svc := NewIngestService(newFakeVideoStore(), nil, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		req  IngestRequest
	}{
		{name: "no id", req: IngestRequest{Video: models.VideoInput{Collection: "c"}, Content: sampleSRT}},
		{name: "no collection", req: IngestRequest{Video: models.VideoInput{ID: "v"}, Content: sampleSRT}},
		{name: "empty transcript", req: IngestRequest{Video: models.VideoInput{ID: "v", Collection: "c"}, Content: "  \n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Ingest(ctx, tt.req, nil)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestIngest_EmbedFailure(t *testing.T) {
	store := newFakeVideoStore()
	boom := errors.New("embedding backend down")
	svc := NewIngestService(store, &fakeBatchEmbedder{err: boom}, nil)

	_, err := svc.Ingest(context.Background(), ingestRequest("vid1"), nil)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.videos)
}

func TestIngest_RetriesTransactionConflict(t *testing.T) {
	store := newFakeVideoStore()
	store.conflicts = 2
	svc := NewIngestService(store, nil, nil)

	res, err := svc.Ingest(context.Background(), ingestRequest("vid1"), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Segments)
	assert.Equal(t, 3, store.writes)
}

func TestLibrary(t *testing.T) {
	store := newFakeVideoStore()
	ctx := context.Background()
	_, err := NewIngestService(store, nil, nil).Ingest(ctx, ingestRequest("vid1"), nil)
	require.NoError(t, err)

	lib := NewLibraryService(store, nil)

	cols, err := lib.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.CollectionCount{{Name: "educational_videos", Count: 1}}, cols)

	videos, err := lib.Videos(ctx, "educational_videos")
	require.NoError(t, err)
	assert.Len(t, videos, 1)

	t.Run("load", func(t *testing.T) {
		sess, err := lib.Load(ctx, session.New("other", "none", 0), "vid1", "")
		require.NoError(t, err)
		assert.Equal(t, "vid1", sess.Video.ID)
		assert.Equal(t, "https://youtu.be/vid1", sess.Video.SourceURL)
		assert.Equal(t, "educational_videos", sess.Collection)
	})

	t.Run("load with matching collection", func(t *testing.T) {
		_, err := lib.Load(ctx, session.New("", "none", 0), "vid1", "educational_videos")
		require.NoError(t, err)
	})

	t.Run("wrong collection", func(t *testing.T) {
		_, err := lib.Load(ctx, session.New("", "none", 0), "vid1", "history")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("unknown video", func(t *testing.T) {
		_, err := lib.Load(ctx, session.New("", "none", 0), "nope", "")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("empty id", func(t *testing.T) {
		_, err := lib.Load(ctx, session.New("", "none", 0), " ", "")
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("delete", func(t *testing.T) {
		ok, err := lib.Delete(ctx, "vid1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = lib.Delete(ctx, "vid1")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestJobManager(t *testing.T) {
	store := newFakeVideoStore()
	jm := NewJobManager(NewIngestService(store, &fakeBatchEmbedder{}, nil), 1, nil)

	ok := jm.Start(context.Background(), ingestRequest("vid1"))
	bad := jm.Start(context.Background(), IngestRequest{Video: models.VideoInput{ID: "x", Collection: "c"}})

	require.Eventually(t, func() bool { return ok.Done() && bad.Done() }, 5*time.Second, 10*time.Millisecond)

	snap := jm.GetJob(ok.ID).Snapshot()
	assert.Equal(t, JobStatusCompleted, snap.Status)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 1, snap.Result.Segments)
	assert.Equal(t, StageStore, snap.Stage)

	failed := jm.GetJob(bad.ID).Snapshot()
	assert.Equal(t, JobStatusFailed, failed.Status)
	assert.NotEmpty(t, failed.Error)

	assert.Len(t, jm.ListJobs(), 2)
	assert.Nil(t, jm.GetJob("missing"))
}
