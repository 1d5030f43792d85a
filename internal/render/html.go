// Package render formats ranked segments and transcript text for display.
// Output is deterministic and never lets transcript text break its surrounding markup.
package render

import (
	"bytes"
	"html/template"

	"github.com/raphaelgruber/videorag-go/internal/models"
	"github.com/raphaelgruber/videorag-go/internal/source"
	"github.com/raphaelgruber/videorag-go/internal/timestamp"
)

const (
	// DefaultTitle heads a results table when the caller gives none.
	DefaultTitle = "Top matches"

	// RowPreviewChars caps the transcript text shown per result row.
	RowPreviewChars = 300

	noSegmentsHTML = "<p>No segments to show.</p>"
	noEmbedHTML    = "<p>No embeddable URL available. If this is a file upload, use Highlight Reel to generate a stream.</p>"
)

var templates = template.Must(template.New("render").Parse(`
{{- define "results" -}}
<h4>{{.Title}}</h4>
<table style="border-collapse:collapse;border:1px solid #ddd;width:100%">
<tr><th style="padding:6px;text-align:left">#</th><th style="padding:6px;text-align:left">Timestamp</th><th style="padding:6px;text-align:left">Score</th><th style="padding:6px;text-align:left">Preview</th></tr>
{{- range .Rows}}
<tr><td style="padding:6px">{{.Index}}</td><td style="padding:6px">{{if .Link}}<a href="{{.Link}}" target="_blank">{{.Timestamp}}</a>{{else}}{{.Timestamp}}{{end}}</td><td style="padding:6px">{{.Score}}</td><td style="padding:6px">{{.Preview}}</td></tr>
{{- end}}
</table>
{{- end -}}
{{- define "player" -}}
<iframe width="640" height="360" src="{{.}}" frameborder="0" allowfullscreen></iframe>
{{- end -}}
`))

type resultRow struct {
	Index     int
	Timestamp string
	Link      string
	Score     int
	Preview   string
}

type resultsView struct {
	Title string
	Rows  []resultRow
}

// ResultsHTML renders set as an HTML table with one row per segment.
// Timestamps link into the video when sourceURL has a stable link template.
func ResultsHTML(sourceURL string, set models.RankedResultSet, title string) (string, error) {
	if len(set) == 0 {
		return noSegmentsHTML, nil
	}
	if title == "" {
		title = DefaultTitle
	}

	linker, canLink := source.NewLinker(sourceURL)
	view := resultsView{Title: Sanitize(title), Rows: make([]resultRow, 0, len(set))}
	for i, seg := range set {
		row := resultRow{
			Index:     i + 1,
			Timestamp: seg.Timestamp,
			Score:     seg.Score,
		}
		row.Preview, _ = Preview(Sanitize(seg.Text), RowPreviewChars)
		if canLink {
			row.Link = linker.WatchURL(timestamp.ToSecondsInt(seg.StartTime))
		}
		view.Rows = append(view.Rows, row)
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "results", view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// EmbedPlayerHTML renders an embedded player starting at second, or a notice
// when the source cannot be embedded.
func EmbedPlayerHTML(sourceURL string, second int) (string, error) {
	linker, ok := source.NewLinker(sourceURL)
	if !ok {
		return noEmbedHTML, nil
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "player", linker.EmbedURL(second)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
