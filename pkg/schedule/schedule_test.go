package schedule

import (
	"testing"
	"time"
)

func TestInterval(t *testing.T) {
	tests := []struct {
		hour int
		want int
	}{
		{10, 30},
		{23, 240},
		{7, 240},
		{8, 30},
		{22, 30},
		{0, 240},
	}
	for _, tt := range tests {
		if got := Interval(8, 23, 30, 240, tt.hour); got != tt.want {
			t.Errorf("Interval(8, 23, 30, 240, %d) = %d, want %d", tt.hour, got, tt.want)
		}
	}
}

func TestIntervalConstantPair(t *testing.T) {
	for hour := 0; hour < 24; hour++ {
		if got := Interval(8, 23, 480, 480, hour); got != 480 {
			t.Errorf("hour %d: got %d, want 480", hour, got)
		}
	}
}

func TestPolicyAt(t *testing.T) {
	p := DefaultPolicy
	day := 10 * time.Minute
	night := 2 * time.Hour

	morning := time.Date(2024, 3, 1, 8, 0, 0, 0, time.Local)
	if got := p.At(morning, day, night); got != day {
		t.Errorf("At(08:00) = %v, want %v", got, day)
	}
	lateEvening := time.Date(2024, 3, 1, 23, 30, 0, 0, time.Local)
	if got := p.At(lateEvening, day, night); got != night {
		t.Errorf("At(23:30) = %v, want %v", got, night)
	}
	if p.IsDay(time.Date(2024, 3, 1, 7, 59, 0, 0, time.Local)) {
		t.Error("IsDay(07:59) = true, want false")
	}
}
