package quota

import (
	"testing"
	"time"
)

func TestWeekWindowMidweek(t *testing.T) {
	loc, err := time.LoadLocation("America/Lima")
	if err != nil {
		t.Fatal(err)
	}
	// Wednesday 2026-03-04 15:30 local.
	now := time.Date(2026, 3, 4, 15, 30, 0, 0, loc)
	start, end := WeekWindow(now, loc)

	wantStart := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)
	if !start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", start, wantStart)
	}
	if !end.Equal(wantStart.AddDate(0, 0, 7)) {
		t.Fatalf("end = %v", end)
	}
	if start.Weekday() != time.Monday {
		t.Fatalf("start weekday = %v", start.Weekday())
	}
}

func TestWeekWindowOnMonday(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)
	start, _ := WeekWindow(now, loc)
	if !start.Equal(now) {
		t.Fatalf("Monday midnight must start its own window, got %v", start)
	}
}

func TestWeekWindowOnSunday(t *testing.T) {
	loc := time.UTC
	// Sunday belongs to the window opened the previous Monday.
	now := time.Date(2026, 3, 8, 23, 59, 59, 0, loc)
	start, end := WeekWindow(now, loc)
	if !start.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, loc)) {
		t.Fatalf("start = %v", start)
	}
	if !now.Before(end) {
		t.Fatal("now must fall inside the window")
	}
}

func TestWeekWindowUsesLocalTimezone(t *testing.T) {
	lima, err := time.LoadLocation("America/Lima")
	if err != nil {
		t.Fatal(err)
	}
	// Monday 02:00 UTC is still Sunday 21:00 in Lima, so the Lima window
	// starts the previous Monday.
	now := time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC)
	start, _ := WeekWindow(now, lima)
	if !start.Equal(time.Date(2026, 2, 23, 0, 0, 0, 0, lima)) {
		t.Fatalf("start = %v", start)
	}
}
