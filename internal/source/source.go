// Package source derives playback links from a video's source reference.
package source

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	watchURLFormat = "https://www.youtube.com/watch?v=%s&t=%ds"
	embedURLFormat = "https://www.youtube.com/embed/%s?start=%d&autoplay=0"
)

// YouTubeID extracts the video id from a YouTube watch URL ("...watch?v=ID&...").
// It returns false when no stable id can be derived.
func YouTubeID(sourceURL string) (string, bool) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return "", false
	}

	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		id := u.Query().Get("v")
		return id, validID(id)
	case "youtu.be":
		id := strings.Trim(u.Path, "/")
		return id, validID(id)
	}
	return "", false
}

func validID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Linker builds per-second links into a video. The zero value links nowhere.
type Linker struct {
	id string
}

// NewLinker returns a linker for sourceURL. ok is false when the source has no
// stable link template, in which case timestamps render as plain text.
func NewLinker(sourceURL string) (Linker, bool) {
	id, ok := YouTubeID(sourceURL)
	if !ok {
		return Linker{}, false
	}
	return Linker{id: id}, true
}

// CanLink reports whether the linker has a template.
func (l Linker) CanLink() bool {
	return l.id != ""
}

// WatchURL links to the video at second.
func (l Linker) WatchURL(second int) string {
	if !l.CanLink() {
		return ""
	}
	return fmt.Sprintf(watchURLFormat, l.id, clampSecond(second))
}

// EmbedURL returns an embeddable player URL starting at second.
func (l Linker) EmbedURL(second int) string {
	if !l.CanLink() {
		return ""
	}
	return fmt.Sprintf(embedURLFormat, l.id, clampSecond(second))
}

func clampSecond(s int) int {
	if s < 0 {
		return 0
	}
	return s
}
