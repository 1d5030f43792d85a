package models

import (
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// TranscriptSegment is an indexed transcript cue stored for a video.
type TranscriptSegment struct {
	ID surrealmodels.RecordID `json:"id"`

	// Parent reference
	Video surrealmodels.RecordID `json:"video"`

	Position  int     `json:"position"` // Order within the transcript
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Text      string  `json:"text"`

	// Search
	Embedding []float32 `json:"embedding,omitempty"`
}

// TranscriptSegmentInput is the input structure for indexing a transcript cue.
type TranscriptSegmentInput struct {
	VideoID   string    `json:"video_id"`
	Position  int       `json:"position"`
	StartTime float64   `json:"start_time"`
	EndTime   float64   `json:"end_time"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// SegmentHit is a scored segment row returned by a search query.
type SegmentHit struct {
	StartTime *float64 `json:"start_time"`
	EndTime   *float64 `json:"end_time"`
	Text      string   `json:"text"`
	Score     float64  `json:"score"`
}

// RawHit converts a query row to the index hit shape.
func (h SegmentHit) RawHit() RawHit {
	return RawHit{
		StartTime: h.StartTime,
		EndTime:   h.EndTime,
		RawScore:  h.Score,
		Text:      h.Text,
	}
}
