package clock

import (
	"testing"
	"time"
)

func TestFixedClock(t *testing.T) {
	base := time.Date(2026, time.August, 25, 14, 30, 0, 0, time.UTC)
	clk := NewFixed(base)

	if !clk.Now().Equal(base) {
		t.Errorf("Now = %v, want %v", clk.Now(), base)
	}

	clk.Advance(90 * time.Minute)
	if !clk.Now().Equal(base.Add(90 * time.Minute)) {
		t.Errorf("Now after Advance = %v, want %v", clk.Now(), base.Add(90*time.Minute))
	}

	other := base.AddDate(0, 0, 3)
	clk.Set(other)
	if !clk.Now().Equal(other) {
		t.Errorf("Now after Set = %v, want %v", clk.Now(), other)
	}
}

func TestStartOfDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation failed: %v", err)
	}
	in := time.Date(2026, time.August, 25, 23, 45, 12, 999, loc)
	got := StartOfDay(in)
	want := time.Date(2026, time.August, 25, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("StartOfDay = %v, want %v", got, want)
	}
	if got.Location() != loc {
		t.Errorf("StartOfDay location = %v, want %v", got.Location(), loc)
	}
}

func TestMinuteOfDay(t *testing.T) {
	cases := []struct {
		hour, minute, want int
	}{
		{0, 0, 0},
		{8, 0, 480},
		{22, 30, 1350},
		{23, 59, 1439},
	}
	for _, tc := range cases {
		in := time.Date(2026, time.August, 25, tc.hour, tc.minute, 59, 0, time.UTC)
		if got := MinuteOfDay(in); got != tc.want {
			t.Errorf("MinuteOfDay(%02d:%02d) = %d, want %d", tc.hour, tc.minute, got, tc.want)
		}
	}
}
