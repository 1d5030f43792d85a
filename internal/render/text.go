package render

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/raphaelgruber/videorag-go/internal/models"
)

// DefaultTranscriptPreviewChars bounds the transcript preview.
const DefaultTranscriptPreviewChars = 5000

// Sanitize replaces control characters other than newline and tab with spaces.
func Sanitize(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return ' '
		}
		return r
	}, text)
}

// Preview truncates text to at most maxChars runes. It reports whether text was cut.
// A non-positive maxChars returns text unchanged.
func Preview(text string, maxChars int) (string, bool) {
	if maxChars <= 0 {
		return text, false
	}
	n := 0
	for i := range text {
		if n == maxChars {
			return text[:i], true
		}
		n++
	}
	return text, false
}

// TranscriptPreview is a bounded view of a transcript. Full is never truncated.
type TranscriptPreview struct {
	Preview   string `json:"preview"`
	Full      string `json:"full"`
	Truncated bool   `json:"truncated"`
	Chars     int    `json:"chars"`
}

// NewTranscriptPreview builds a preview of at most maxChars runes of text.
func NewTranscriptPreview(text string, maxChars int) TranscriptPreview {
	if maxChars <= 0 {
		maxChars = DefaultTranscriptPreviewChars
	}
	preview, truncated := Preview(Sanitize(text), maxChars)
	return TranscriptPreview{
		Preview:   preview,
		Full:      text,
		Truncated: truncated,
		Chars:     len([]rune(text)),
	}
}

// Context renders the first limit segments as "timestamp: text" lines for a prompt.
// Segments without text are skipped. A non-positive limit uses the whole set.
func Context(set models.RankedResultSet, limit int) string {
	if limit <= 0 || limit > len(set) {
		limit = len(set)
	}
	var lines []string
	for _, seg := range set[:limit] {
		text := strings.TrimSpace(oneLine(seg.Text))
		if text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", seg.Timestamp, text))
	}
	return strings.Join(lines, "\n")
}

// BestMatch is the no-AI presentation of the top segment.
func BestMatch(seg models.Segment) string {
	return fmt.Sprintf("Found at %s (score %d%%)\n\n%s", seg.Timestamp, seg.Score, seg.Text)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	scoreStyle  = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#00D787"))
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C6C6C"))
)

// ResultsTable renders set as a terminal table. Text is flattened to one line and
// cut to previewChars runes.
func ResultsTable(set models.RankedResultSet, previewChars int) string {
	if len(set) == 0 {
		return "No segments to show."
	}
	if previewChars <= 0 {
		previewChars = RowPreviewChars
	}

	rows := make([][]string, 0, len(set))
	for i, seg := range set {
		text, cut := Preview(oneLine(Sanitize(seg.Text)), previewChars)
		if cut {
			text += "..."
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), seg.Timestamp, strconv.Itoa(seg.Score), text})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 2:
				return scoreStyle
			default:
				return cellStyle
			}
		}).
		Headers("#", "Timestamp", "Score", "Preview").
		Rows(rows...)

	return t.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
