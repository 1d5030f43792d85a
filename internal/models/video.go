package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Video is an ingested video in the library.
type Video struct {
	ID           surrealmodels.RecordID `json:"id"`
	Title        string                 `json:"title"`
	SourceURL    *string                `json:"source_url,omitempty"`
	Collection   string                 `json:"collection"`
	Indexed      bool                   `json:"indexed"`
	SegmentCount int                    `json:"segment_count"`
	Transcript   *string                `json:"transcript,omitempty"` // Full transcript text
	Created      time.Time              `json:"created,omitempty"`
	Updated      time.Time              `json:"updated,omitempty"`
}

// Ref returns the request-scoped reference for this video.
func (v Video) Ref() VideoRef {
	ref := VideoRef{
		Collection: v.Collection,
		Title:      v.Title,
	}
	if id, err := RecordIDString(v.ID); err == nil {
		ref.ID = id
	}
	if v.SourceURL != nil {
		ref.SourceURL = *v.SourceURL
	}
	return ref
}

// VideoRef identifies the video a request is about. It is passed explicitly
// to every operation instead of being held as process-wide state.
type VideoRef struct {
	ID         string `json:"id"`
	Collection string `json:"collection,omitempty"`
	SourceURL  string `json:"source_url,omitempty"`
	Title      string `json:"title,omitempty"`
}

// IsZero reports whether no video is selected.
func (r VideoRef) IsZero() bool {
	return r.ID == ""
}

// VideoInput is the input structure for registering a video.
type VideoInput struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	SourceURL  *string `json:"source_url,omitempty"`
	Collection string  `json:"collection"`
}

// CollectionCount is a collection name with the number of videos in it.
type CollectionCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
