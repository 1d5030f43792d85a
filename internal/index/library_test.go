package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/videorag-go/internal/models"
)

func TestLibrary_IngestAndSearch(t *testing.T) {
	ctx := context.Background()
	lib := NewLibrary(NewMemory())

	_, err := lib.ReplaceSegments(ctx, "bio", lecture(), "full text")
	assert.ErrorIs(t, err, models.ErrNotFound, "segments need a registered video")

	v, err := lib.UpsertVideo(ctx, models.VideoInput{ID: "bio", Title: "Plants", Collection: "science"})
	require.NoError(t, err)
	assert.False(t, v.Indexed)

	_, err = lib.Index().Search(ctx, models.VideoRef{ID: "bio"}, "light")
	assert.ErrorIs(t, err, models.ErrIndexNotReady)

	n, err := lib.ReplaceSegments(ctx, "bio", lecture(), "full text")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := lib.GetVideo(ctx, "bio")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Indexed)
	assert.Equal(t, 3, got.SegmentCount)

	hits, err := lib.Index().Search(ctx, models.VideoRef{ID: "bio"}, "chlorophyll")
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	text, err := lib.GetTranscript(ctx, "bio")
	require.NoError(t, err)
	assert.Equal(t, "full text", text)

	text, err = lib.SegmentTranscript(ctx, "bio")
	require.NoError(t, err)
	assert.Contains(t, text, "Photosynthesis")
}

func TestLibrary_Catalog(t *testing.T) {
	ctx := context.Background()
	lib := NewLibrary(NewMemory())
	for _, in := range []models.VideoInput{
		{ID: "c", Title: "Cells", Collection: "science"},
		{ID: "a", Title: "Algebra", Collection: "math"},
		{ID: "b", Title: "Atoms", Collection: "science"},
	} {
		_, err := lib.UpsertVideo(ctx, in)
		require.NoError(t, err)
	}

	tests := []struct {
		collection string
		want       []string
	}{
		{"", []string{"Algebra", "Atoms", "Cells"}},
		{"science", []string{"Atoms", "Cells"}},
		{"history", nil},
	}
	for _, tt := range tests {
		videos, err := lib.ListVideos(ctx, tt.collection)
		require.NoError(t, err)
		var titles []string
		for _, v := range videos {
			titles = append(titles, v.Title)
		}
		assert.Equal(t, tt.want, titles, tt.collection)
	}

	counts, err := lib.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.CollectionCount{{Name: "math", Count: 1}, {Name: "science", Count: 2}}, counts)
}

func TestLibrary_DeleteAndWipe(t *testing.T) {
	ctx := context.Background()
	lib := NewLibrary(NewMemory())
	for _, id := range []string{"bio", "chem"} {
		_, err := lib.UpsertVideo(ctx, models.VideoInput{ID: id, Title: id, Collection: "science"})
		require.NoError(t, err)
		_, err = lib.ReplaceSegments(ctx, id, lecture(), "")
		require.NoError(t, err)
	}

	n, err := lib.DeleteVideo(ctx, "bio")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = lib.DeleteVideo(ctx, "bio")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = lib.Index().Search(ctx, models.VideoRef{ID: "bio"}, "light")
	assert.ErrorIs(t, err, models.ErrIndexNotReady)
	_, err = lib.GetTranscript(ctx, "bio")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, lib.WipeData(ctx))
	videos, err := lib.ListVideos(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, videos)
	_, err = lib.Index().Search(ctx, models.VideoRef{ID: "chem"}, "light")
	assert.ErrorIs(t, err, models.ErrIndexNotReady)
}

func TestLibrary_RejectsEmptyID(t *testing.T) {
	_, err := NewLibrary(NewMemory()).UpsertVideo(context.Background(), models.VideoInput{Title: "x"})
	assert.ErrorIs(t, err, models.ErrValidation)
}
