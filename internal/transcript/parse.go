// Package transcript parses subtitle and plain-text transcripts into timed cues
// and resolves a video's transcript text through a two-tier fetcher.
package transcript

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/raphaelgruber/videorag-go/internal/timestamp"
)

// Format identifies a transcript file format.
type Format string

const (
	FormatSRT   Format = "srt"
	FormatVTT   Format = "vtt"
	FormatPlain Format = "plain"
)

// ErrNoCues is returned when a transcript yields no usable text.
var ErrNoCues = errors.New("transcript has no cues")

// wordsPerSecond estimates speaking rate for untimed plain text.
const wordsPerSecond = 2.5

// Cue is one timed line of transcript text.
type Cue struct {
	Start timestamp.Offset `json:"start"`
	End   timestamp.Offset `json:"end"`
	Text  string           `json:"text"`
}

var (
	// VTT inline markup such as <c.yellow>, <v Speaker> and <00:00:01.000>.
	tagPattern = regexp.MustCompile(`<[^>]*>`)
	// "[01:05] text", "01:05 text", "1:01:05 - text"
	timedLinePattern = regexp.MustCompile(`^\[?(\d{1,2}(?::\d{2}){1,2}(?:[.,]\d+)?)\]?\s*[-:]?\s*(.*)$`)
)

// DetectFormat picks a format from the file name, falling back to content sniffing.
func DetectFormat(name, content string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".srt":
		return FormatSRT
	case ".vtt":
		return FormatVTT
	}

	trimmed := strings.TrimSpace(strings.TrimPrefix(content, "\ufeff"))
	if strings.HasPrefix(trimmed, "WEBVTT") {
		return FormatVTT
	}
	if strings.Contains(trimmed, "-->") {
		return FormatSRT
	}
	return FormatPlain
}

// Parse reads content in the given format.
func Parse(content string, format Format) ([]Cue, error) {
	var (
		cues []Cue
		err  error
	)
	switch format {
	case FormatSRT, FormatVTT:
		cues, err = parseCueBlocks(content)
	case FormatPlain:
		cues = parsePlain(content)
	default:
		return nil, fmt.Errorf("unsupported transcript format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if len(cues) == 0 {
		return nil, ErrNoCues
	}
	return cues, nil
}

// ParseSRT parses SubRip content.
//
//	1
//	00:00:00,000 --> 00:00:01,830
//	I'm happy to
//	have you here today.
func ParseSRT(content string) ([]Cue, error) {
	return Parse(content, FormatSRT)
}

// ParseVTT parses WebVTT content. Headers, NOTE/STYLE/REGION blocks and cue
// settings are ignored.
func ParseVTT(content string) ([]Cue, error) {
	return Parse(content, FormatVTT)
}

// parseCueBlocks handles both SRT and VTT, which share the "start --> end" timing line.
func parseCueBlocks(content string) ([]Cue, error) {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var cues []Cue
	for _, block := range strings.Split(content, "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) == 0 || lines[0] == "" {
			continue
		}

		timing := -1
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				timing = i
				break
			}
		}
		// WEBVTT header, NOTE, STYLE, REGION or stray text
		if timing < 0 {
			continue
		}

		start, end, err := parseTiming(lines[timing])
		if err != nil {
			return nil, fmt.Errorf("cue %q: %w", lines[timing], err)
		}

		var text []string
		for _, line := range lines[timing+1:] {
			line = strings.TrimSpace(tagPattern.ReplaceAllString(line, ""))
			if line != "" {
				text = append(text, line)
			}
		}
		if len(text) == 0 {
			continue
		}

		cues = append(cues, Cue{Start: start, End: end, Text: strings.Join(text, " ")})
	}
	return cues, nil
}

func parseTiming(line string) (timestamp.Offset, timestamp.Offset, error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed timing line")
	}

	start, err := timestamp.Parse(parts[0])
	if err != nil {
		return 0, 0, err
	}

	// VTT allows cue settings after the end time
	endFields := strings.Fields(parts[1])
	if len(endFields) == 0 {
		return 0, 0, fmt.Errorf("missing end time")
	}
	end, err := timestamp.Parse(endFields[0])
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		end = start
	}
	return start, end, nil
}

// parsePlain reads "[MM:SS] text" lines. Untimed lines continue the previous cue.
// A transcript with no timestamps at all is split into sentences with estimated times.
func parsePlain(content string) []Cue {
	content = strings.ReplaceAll(strings.TrimPrefix(content, "\ufeff"), "\r\n", "\n")

	var cues []Cue
	timed := false
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := timedLinePattern.FindStringSubmatch(line); m != nil {
			if start, err := timestamp.Parse(m[1]); err == nil {
				cues = append(cues, Cue{Start: start, End: start, Text: strings.TrimSpace(m[2])})
				timed = true
				continue
			}
		}

		if len(cues) == 0 {
			cues = append(cues, Cue{})
		}
		last := &cues[len(cues)-1]
		last.Text = strings.TrimSpace(last.Text + " " + line)
	}

	if !timed {
		return estimateCues(content)
	}

	// Each timed line runs until the next one starts.
	out := make([]Cue, 0, len(cues))
	for i, c := range cues {
		if i+1 < len(cues) && cues[i+1].Start >= c.Start {
			c.End = cues[i+1].Start
		} else {
			c.End = c.Start + estimateDuration(c.Text)
		}
		if c.Text != "" {
			out = append(out, c)
		}
	}
	return out
}

// estimateCues assigns sequential times to sentences of untimed text.
func estimateCues(content string) []Cue {
	var cues []Cue
	var at timestamp.Offset
	for _, sentence := range splitSentences(strings.Join(strings.Fields(content), " ")) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		d := estimateDuration(sentence)
		cues = append(cues, Cue{Start: at, End: at + d, Text: sentence})
		at += d
	}
	return cues
}

func estimateDuration(text string) timestamp.Offset {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return timestamp.Offset(float64(words) / wordsPerSecond)
}

// Text joins cue text into a plain transcript, one cue per line.
func Text(cues []Cue) string {
	lines := make([]string, 0, len(cues))
	for _, c := range cues {
		lines = append(lines, c.Text)
	}
	return strings.Join(lines, "\n")
}
