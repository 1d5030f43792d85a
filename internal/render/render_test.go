package render

import (
	"strings"
	"testing"

	"github.com/raphaelgruber/videorag-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ytURL = "https://www.youtube.com/watch?v=fNk_zzaMoSs"

func sampleSet() models.RankedResultSet {
	return models.RankedResultSet{
		models.NewSegment(65, 70, "intro to the topic", 92),
		models.NewSegment(3661, 3670, "", 40),
	}
}

func TestResultsHTMLEmpty(t *testing.T) {
	out, err := ResultsHTML(ytURL, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "<p>No segments to show.</p>", out)
}

func TestResultsHTMLWithLinks(t *testing.T) {
	out, err := ResultsHTML(ytURL, sampleSet(), "")
	require.NoError(t, err)

	assert.Contains(t, out, "<h4>Top matches</h4>")
	assert.Contains(t, out, "<th style=\"padding:6px;text-align:left\">Timestamp</th>")
	assert.Contains(t, out, "watch?v=fNk_zzaMoSs")
	assert.Contains(t, out, "t=65s")
	assert.Contains(t, out, ">01:05</a>")
	assert.Contains(t, out, ">1:01:01</a>")
	assert.Contains(t, out, "<td style=\"padding:6px\">92</td>")
	assert.Equal(t, 2, strings.Count(out, "<tr><td"))
}

func TestResultsHTMLPlainTimestamps(t *testing.T) {
	out, err := ResultsHTML("/uploads/talk.mp4", sampleSet(), "Quiz context")
	require.NoError(t, err)

	assert.Contains(t, out, "<h4>Quiz context</h4>")
	assert.NotContains(t, out, "<a ")
	assert.Contains(t, out, "<td style=\"padding:6px\">01:05</td>")
}

func TestResultsHTMLEscapesTranscriptText(t *testing.T) {
	set := models.RankedResultSet{
		models.NewSegment(1, 2, "<script>alert(1)</script></td></table>\x00\x1b[31m", 50),
	}
	out, err := ResultsHTML("", set, "<b>title</b>")
	require.NoError(t, err)

	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<b>title</b>")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "\x00")
	assert.NotContains(t, out, "\x1b")
	assert.Equal(t, 1, strings.Count(out, "</table>"))
}

func TestEmbedPlayerHTML(t *testing.T) {
	out, err := EmbedPlayerHTML(ytURL, 42)
	require.NoError(t, err)
	assert.Contains(t, out, "<iframe")
	assert.Contains(t, out, "embed/fNk_zzaMoSs?start=42")

	out, err = EmbedPlayerHTML("", 42)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<p>No embeddable URL available."))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a b\nc\td", Sanitize("a\x07b\nc\td"))
	assert.Equal(t, "x y", Sanitize("x\ry"))
	assert.Equal(t, "héllo", Sanitize("héllo"))
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		max     int
		want    string
		wantCut bool
	}{
		{"short", "hello", 10, "hello", false},
		{"exact", "hello", 5, "hello", false},
		{"cut", "hello world", 5, "hello", true},
		{"multibyte", "日本語のテキスト", 3, "日本語", true},
		{"unbounded", "hello", 0, "hello", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, cut := Preview(tt.text, tt.max)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCut, cut)
		})
	}
}

func TestNewTranscriptPreview(t *testing.T) {
	full := strings.Repeat("a", DefaultTranscriptPreviewChars+10)
	p := NewTranscriptPreview(full, 0)

	assert.True(t, p.Truncated)
	assert.Len(t, p.Preview, DefaultTranscriptPreviewChars)
	assert.Equal(t, full, p.Full)
	assert.Equal(t, DefaultTranscriptPreviewChars+10, p.Chars)
}

func TestContext(t *testing.T) {
	set := models.RankedResultSet{
		models.NewSegment(10, 15, "first\nline", 90),
		models.NewSegment(20, 25, "", 80),
		models.NewSegment(30, 35, "third", 70),
		models.NewSegment(40, 45, "fourth", 60),
	}

	assert.Equal(t, "00:10: first line\n00:30: third", Context(set, 3))
	assert.Equal(t, "00:10: first line\n00:30: third\n00:40: fourth", Context(set, 0))
	assert.Empty(t, Context(nil, 3))
}

func TestBestMatch(t *testing.T) {
	got := BestMatch(models.NewSegment(65, 70, "intro", 92))
	assert.Equal(t, "Found at 01:05 (score 92%)\n\nintro", got)
}

func TestResultsTable(t *testing.T) {
	assert.Equal(t, "No segments to show.", ResultsTable(nil, 10))

	out := ResultsTable(sampleSet(), 5)
	assert.Contains(t, out, "Timestamp")
	assert.Contains(t, out, "01:05")
	assert.Contains(t, out, "1:01:01")
	assert.Contains(t, out, "intro...")
	assert.Contains(t, out, "92")
}
