package core

import (
	"testing"
	"time"
)

func TestParseDateRange(t *testing.T) {
	for _, v := range []string{"1", "7", "30", "90", "180", "365", "all"} {
		r, err := ParseDateRange(v)
		if err != nil || string(r) != v {
			t.Fatalf("%q: got %q, %v", v, r, err)
		}
	}
	if r, err := ParseDateRange(""); err != nil || r != RangeAll {
		t.Fatalf("empty range should default to all, got %q, %v", r, err)
	}
	for _, v := range []string{"2", "-7", "ALL", "week"} {
		if _, err := ParseDateRange(v); err != ErrInvalidDateRange {
			t.Fatalf("%q: expected ErrInvalidDateRange, got %v", v, err)
		}
	}
}

func TestDateRangeContainsBoundary(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	cutoff := time.Date(2024, 3, 24, 12, 0, 0, 0, time.UTC)

	if !RangeLastWeek.Contains(cutoff, now) {
		t.Fatal("cutoff instant must be inside the window")
	}
	if RangeLastWeek.Contains(cutoff.Add(-time.Millisecond), now) {
		t.Fatal("instant before cutoff must be outside the window")
	}
	if !RangeAll.Contains(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC), now) {
		t.Fatal("all range must contain everything")
	}
}

func TestDateRangeCutoffUsesCalendarDays(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	got, ok := RangeLastMonth.Cutoff(now)
	if !ok {
		t.Fatal("expected a cutoff")
	}
	want := time.Date(2024, 1, 31, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("cutoff = %v, want %v", got, want)
	}
	if _, ok := RangeAll.Cutoff(now); ok {
		t.Fatal("all range has no cutoff")
	}
}

func TestMonthKeyOrderingAndLabel(t *testing.T) {
	a := MonthKey{Year: 2023, Month: time.December}
	b := MonthKey{Year: 2024, Month: time.January}
	if !a.Before(b) || b.Before(a) {
		t.Fatal("2023-12 must sort before 2024-01")
	}
	if b.Label() != "Jan 2024" || b.String() != "2024-01" {
		t.Fatalf("unexpected formatting %q / %q", b.Label(), b.String())
	}
}
