package timestamp

import (
	"errors"
	"math"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		in   Offset
		want string
	}{
		{"zero", 0, "00:00"},
		{"seconds only", 7, "00:07"},
		{"minute and seconds", 65, "01:05"},
		{"fraction floored", 65.9, "01:05"},
		{"just under an hour", 3599, "59:59"},
		{"exactly one hour", 3600, "1:00:00"},
		{"hour minute second", 3661, "1:01:01"},
		{"double digit hours", 36000 + 62, "10:01:02"},
		{"negative clamps", -5, "00:00"},
		{"nan clamps", Offset(math.NaN()), "00:00"},
		{"infinity clamps", Offset(math.Inf(1)), "00:00"},
		{"beyond max clamps", 1e19, "00:00"},
		{"far beyond max clamps", 1e300, "00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(tt.in)
			if got != tt.want {
				t.Errorf("Format(%v) = %q, want %q", float64(tt.in), got, tt.want)
			}
		})
	}
}

func TestFormatDistinguishesWholeSeconds(t *testing.T) {
	seen := make(map[string]int)
	for s := 0; s < 2*secondsPerHour+10; s++ {
		f := Format(Offset(s))
		if prev, ok := seen[f]; ok {
			t.Fatalf("offsets %d and %d both format as %q", prev, s, f)
		}
		seen[f] = s
	}
}

func TestToSecondsInt(t *testing.T) {
	tests := []struct {
		in   Offset
		want int
	}{
		{0, 0},
		{12.1, 12},
		{12.7, 12},
		{13, 13},
		{3661.99, 3661},
		{MaxOffset, 1 << 53},
		{1e300, 1 << 53},
	}

	for _, tt := range tests {
		if got := ToSecondsInt(tt.in); got != tt.want {
			t.Errorf("ToSecondsInt(%v) = %d, want %d", float64(tt.in), got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Offset
		wantErr bool
	}{
		{"bare seconds", "42", 42, false},
		{"fractional seconds", "4.5", 4.5, false},
		{"minutes seconds", "01:05", 65, false},
		{"hours", "1:01:01", 3661, false},
		{"srt cue", "00:01:02,500", 62.5, false},
		{"vtt cue", "00:01:02.250", 62.25, false},
		{"surrounding space", "  00:10 ", 10, false},
		{"empty", "", 0, true},
		{"garbage", "abc", 0, true},
		{"too many fields", "1:2:3:4", 0, true},
		{"seconds out of range", "01:75", 0, true},
		{"negative", "-5", 0, true},
		{"empty field", "1::05", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidOffset) {
					t.Fatalf("Parse(%q) error = %v, want ErrInvalidOffset", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.in, err)
			}
			if math.Abs(float64(got-tt.want)) > 1e-9 {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, float64(got), float64(tt.want))
			}
		})
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, s := range []int{0, 1, 59, 60, 61, 599, 3599, 3600, 3601, 7322} {
		o := Offset(s)
		got, err := Parse(Format(o))
		if err != nil {
			t.Fatalf("Parse(Format(%d)) error: %v", s, err)
		}
		if got != o {
			t.Errorf("round trip %d -> %q -> %v", s, Format(o), float64(got))
		}
	}
}

func TestIntervalValidate(t *testing.T) {
	tests := []struct {
		name    string
		iv      Interval
		wantErr bool
	}{
		{"valid", Interval{Start: 10, End: 15}, false},
		{"zero length", Interval{Start: 10, End: 10}, false},
		{"reversed", Interval{Start: 15, End: 10}, true},
		{"negative start", Interval{Start: -1, End: 10}, true},
		{"nan end", Interval{Start: 1, End: Offset(math.NaN())}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.iv.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIntervalDuration(t *testing.T) {
	if d := (Interval{Start: 10, End: 15.5}).Duration(); d != 5.5 {
		t.Errorf("Duration() = %v, want 5.5", d)
	}
	if d := (Interval{Start: 15, End: 10}).Duration(); d != 0 {
		t.Errorf("Duration() of reversed interval = %v, want 0", d)
	}
}

func TestValidBounds(t *testing.T) {
	tests := []struct {
		name string
		in   Offset
		want bool
	}{
		{"zero", 0, true},
		{"max", MaxOffset, true},
		{"just over max", MaxOffset * 2, false},
		{"huge", 1e19, false},
		{"negative", -1, false},
		{"nan", Offset(math.NaN()), false},
		{"infinity", Offset(math.Inf(1)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Valid(); got != tt.want {
				t.Errorf("Offset(%v).Valid() = %v, want %v", float64(tt.in), got, tt.want)
			}
		})
	}

	// Large valid offsets keep distinct renderings and never go negative.
	a, b := Format(MaxOffset), Format(MaxOffset-1)
	if a == b {
		t.Errorf("Format(MaxOffset) and Format(MaxOffset-1) both = %q", a)
	}
	if a[0] == '-' {
		t.Errorf("Format(MaxOffset) = %q, want non-negative", a)
	}
}

func TestParseRejectsOverflow(t *testing.T) {
	if _, err := Parse("99999999999999999999:00:00"); err == nil {
		t.Error("Parse accepted an hour field that overflows int")
	}
	if _, err := Parse("1e300"); !errors.Is(err, ErrInvalidOffset) {
		t.Errorf("Parse(1e300) error = %v, want ErrInvalidOffset", err)
	}
}
