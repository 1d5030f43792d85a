package models

import (
	"fmt"

	"github.com/raphaelgruber/videorag-go/internal/timestamp"
)

// Segment is a scored, timestamped excerpt of transcript text returned by a content search.
// Build segments with NewSegment so Timestamp always agrees with StartTime.
type Segment struct {
	StartTime timestamp.Offset `json:"start_time"`
	EndTime   timestamp.Offset `json:"end_time"`
	Text      string           `json:"text"`
	Score     int              `json:"score"` // 0-100
	Timestamp string           `json:"timestamp"`
}

// NewSegment builds a Segment, deriving Timestamp from start and clamping score to [0, 100].
func NewSegment(start, end timestamp.Offset, text string, score int) Segment {
	return Segment{
		StartTime: start,
		EndTime:   end,
		Text:      text,
		Score:     ClampScore(score),
		Timestamp: timestamp.Format(start),
	}
}

// Interval returns the segment's time span.
func (s Segment) Interval() timestamp.Interval {
	return timestamp.Interval{Start: s.StartTime, End: s.EndTime}
}

// Validate checks the segment's interval invariants.
func (s Segment) Validate() error {
	if err := s.Interval().Validate(); err != nil {
		return fmt.Errorf("%w: segment at %s: %v", ErrInvariant, s.Timestamp, err)
	}
	return nil
}

// ClampScore bounds a percentage to [0, 100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// RawHit is a loosely shaped hit returned by an index. Start and End are
// pointers because backends may omit them.
type RawHit struct {
	StartTime *float64 `json:"start_time,omitempty"`
	EndTime   *float64 `json:"end_time,omitempty"`
	RawScore  float64  `json:"raw_score"`
	Text      string   `json:"text"`
}

// NewRawHit is a convenience constructor for fully populated hits.
func NewRawHit(start, end, score float64, text string) RawHit {
	return RawHit{StartTime: &start, EndTime: &end, RawScore: score, Text: text}
}

// RankedResultSet is an ordered sequence of segments, descending by score.
type RankedResultSet []Segment

// Top returns the highest ranked segment, if any.
func (r RankedResultSet) Top() (Segment, bool) {
	if len(r) == 0 {
		return Segment{}, false
	}
	return r[0], true
}

// TimelineEntry is an integer-second interval used for reel stitching.
type TimelineEntry struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Timeline is an ordered, deduplicated sequence of entries, ascending by Start.
type Timeline []TimelineEntry

// Segments converts the timeline back to segments so it can be fed to the merger again.
func (t Timeline) Segments() RankedResultSet {
	out := make(RankedResultSet, 0, len(t))
	for _, e := range t {
		out = append(out, NewSegment(timestamp.Offset(e.Start), timestamp.Offset(e.End), "", 0))
	}
	return out
}

// Duration sums the playback length of all entries in seconds.
func (t Timeline) Duration() int {
	total := 0
	for _, e := range t {
		if e.End > e.Start {
			total += e.End - e.Start
		}
	}
	return total
}

// Pairs returns the timeline as [start, end] pairs, the shape stitching services expect.
func (t Timeline) Pairs() [][2]int {
	out := make([][2]int, len(t))
	for i, e := range t {
		out[i] = [2]int{e.Start, e.End}
	}
	return out
}
