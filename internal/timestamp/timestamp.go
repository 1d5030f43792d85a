// Package timestamp provides the canonical representation of media time offsets
// and intervals, with formatting and parsing rules.
package timestamp

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Offset is a non-negative number of seconds from media start.
type Offset float64

// ErrInvalidOffset is returned when an offset or interval violates its invariants.
var ErrInvalidOffset = errors.New("invalid time offset")

// secondsPerHour is the threshold at which Format switches to H:MM:SS.
const secondsPerHour = 3600

// MaxOffset is the largest valid offset. Every whole second up to it is exactly
// representable as a float64 and converts to int without overflow.
const MaxOffset Offset = 1 << 53

// Seconds returns the offset as a float64.
func (o Offset) Seconds() float64 {
	return float64(o)
}

// Valid reports whether the offset is a finite number in [0, MaxOffset].
func (o Offset) Valid() bool {
	f := float64(o)
	return !math.IsNaN(f) && f >= 0 && f <= float64(MaxOffset)
}

// String implements fmt.Stringer using Format.
func (o Offset) String() string {
	return Format(o)
}

// Format renders an offset as MM:SS below one hour and H:MM:SS otherwise.
// Fractional seconds are floored. Invalid offsets render as 00:00.
func Format(o Offset) string {
	total := 0
	if o.Valid() {
		total = ToSecondsInt(o)
	}

	hours := total / secondsPerHour
	minutes := (total % secondsPerHour) / 60
	seconds := total % 60

	if total < secondsPerHour {
		return fmt.Sprintf("%02d:%02d", minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
}

// ToSecondsInt floors an offset to whole seconds. It is the deduplication key
// used by the timeline merger.
// Offsets above MaxOffset are clamped to it.
func ToSecondsInt(o Offset) int {
	if o > MaxOffset {
		o = MaxOffset
	}
	return int(math.Trunc(float64(o)))
}

// Parse reads an offset written as SS, MM:SS, H:MM:SS or as an SRT/VTT cue time
// (HH:MM:SS,mmm or HH:MM:SS.mmm).
func Parse(s string) (Offset, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty timestamp", ErrInvalidOffset)
	}

	// SRT uses a comma before milliseconds
	s = strings.Replace(s, ",", ".", 1)

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: too many fields in %q", ErrInvalidOffset, s)
	}

	var total float64
	for i, part := range parts {
		last := i == len(parts)-1
		if part == "" {
			return 0, fmt.Errorf("%w: empty field in %q", ErrInvalidOffset, s)
		}

		var v float64
		if last {
			f, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: %q: %v", ErrInvalidOffset, s, err)
			}
			v = f
		} else {
			n, err := strconv.Atoi(part)
			if err != nil {
				return 0, fmt.Errorf("%w: %q: %v", ErrInvalidOffset, s, err)
			}
			v = float64(n)
		}

		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: negative or non-finite field in %q", ErrInvalidOffset, s)
		}
		// Minutes and seconds fields below the leading one must stay under 60.
		if i > 0 && v >= 60 {
			return 0, fmt.Errorf("%w: field out of range in %q", ErrInvalidOffset, s)
		}
		total = total*60 + v
	}

	if Offset(total) > MaxOffset {
		return 0, fmt.Errorf("%w: %q exceeds the maximum offset", ErrInvalidOffset, s)
	}
	return Offset(total), nil
}

// Interval is a half-open span of media time.
type Interval struct {
	Start Offset `json:"start"`
	End   Offset `json:"end"`
}

// Validate checks End >= Start >= 0.
func (iv Interval) Validate() error {
	if !iv.Start.Valid() {
		return fmt.Errorf("%w: start %v", ErrInvalidOffset, float64(iv.Start))
	}
	if !iv.End.Valid() {
		return fmt.Errorf("%w: end %v", ErrInvalidOffset, float64(iv.End))
	}
	if iv.End < iv.Start {
		return fmt.Errorf("%w: end %.3f before start %.3f", ErrInvalidOffset, float64(iv.End), float64(iv.Start))
	}
	return nil
}

// Duration returns End - Start in seconds, or 0 for an invalid interval.
func (iv Interval) Duration() float64 {
	if iv.Validate() != nil {
		return 0
	}
	return float64(iv.End - iv.Start)
}
