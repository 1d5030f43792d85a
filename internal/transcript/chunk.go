package transcript

import (
	"strings"
	"unicode"
)

// ChunkConfig defines how cues are grouped into indexed segments.
type ChunkConfig struct {
	// TargetSize: ideal segment text length in characters
	TargetSize int
	// MaxSize: a segment is flushed before exceeding this length
	MaxSize int
	// MaxDuration: a segment is flushed before spanning more seconds than this
	MaxDuration float64
}

// DefaultChunkConfig returns sensible defaults for spoken transcripts.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		TargetSize:  400,
		MaxSize:     800,
		MaxDuration: 45,
	}
}

// Chunk merges consecutive cues into segments. Subtitle cues are usually a second
// or two long, too short to carry meaning on their own. A segment is closed at
// a sentence end once it reaches TargetSize, or unconditionally before it would
// exceed MaxSize or MaxDuration.
func Chunk(cues []Cue, config ChunkConfig) []Cue {
	if len(cues) == 0 {
		return []Cue{}
	}
	if config.TargetSize <= 0 {
		config = DefaultChunkConfig()
	}

	var chunks []Cue
	var current Cue
	var text strings.Builder

	flush := func() {
		if text.Len() == 0 {
			return
		}
		current.Text = strings.TrimSpace(text.String())
		chunks = append(chunks, current)
		text.Reset()
	}

	for _, cue := range cues {
		cueText := strings.TrimSpace(cue.Text)
		if cueText == "" {
			continue
		}

		if text.Len() > 0 {
			tooLong := text.Len()+len(cueText)+1 > config.MaxSize
			tooWide := config.MaxDuration > 0 && float64(cue.End-current.Start) > config.MaxDuration
			if tooLong || tooWide {
				flush()
			}
		}

		if text.Len() == 0 {
			current = Cue{Start: cue.Start, End: cue.End}
		} else {
			text.WriteString(" ")
		}
		text.WriteString(cueText)
		if cue.End > current.End {
			current.End = cue.End
		}

		if text.Len() >= config.TargetSize && endsSentence(cueText) {
			flush()
		}
	}
	flush()

	return chunks
}

func endsSentence(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}

// splitSentences splits text into sentences.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				// Likely abbreviation like "Dr." or "U.S."
				if i > 1 && unicode.IsUpper(runes[i-1]) {
					continue
				}
				sentences = append(sentences, current.String())
				current.Reset()
			}
		}
	}

	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}

	return sentences
}
