package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYouTubeID(t *testing.T) {
	tests := []struct {
		url    string
		want   string
		wantOK bool
	}{
		{"https://www.youtube.com/watch?v=fNk_zzaMoSs", "fNk_zzaMoSs", true},
		{"https://youtube.com/watch?v=abc123&list=xyz", "abc123", true},
		{"https://m.youtube.com/watch?feature=share&v=abc-123", "abc-123", true},
		{"https://youtu.be/abc123", "abc123", true},
		{"https://www.youtube.com/watch", "", false},
		{"https://vimeo.com/12345?v=abc", "", false},
		{"https://www.youtube.com/watch?v=<script>", "", false},
		{"", "", false},
		{"not a url at all", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, ok := YouTubeID(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestLinker(t *testing.T) {
	l, ok := NewLinker("https://www.youtube.com/watch?v=fNk_zzaMoSs")
	require.True(t, ok)
	assert.Equal(t, "https://www.youtube.com/watch?v=fNk_zzaMoSs&t=65s", l.WatchURL(65))
	assert.Equal(t, "https://www.youtube.com/embed/fNk_zzaMoSs?start=12&autoplay=0", l.EmbedURL(12))
	assert.Equal(t, "https://www.youtube.com/embed/fNk_zzaMoSs?start=0&autoplay=0", l.EmbedURL(-4))
}

func TestLinkerWithoutTemplate(t *testing.T) {
	l, ok := NewLinker("/uploads/lecture.mp4")
	assert.False(t, ok)
	assert.False(t, l.CanLink())
	assert.Empty(t, l.WatchURL(10))
	assert.Empty(t, l.EmbedURL(10))
}
