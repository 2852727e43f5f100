package core

import (
	"strconv"
	"time"
)

// DateRange selects a trailing window of whole days, or everything.
type DateRange string

const (
	RangeLastDay     DateRange = "1"
	RangeLastWeek    DateRange = "7"
	RangeLastMonth   DateRange = "30"
	RangeLast3Months DateRange = "90"
	RangeLast6Months DateRange = "180"
	RangeLastYear    DateRange = "365"
	RangeAll         DateRange = "all"
)

// DefaultDateRange is used when no range is requested.
const DefaultDateRange = RangeAll

// DateRangeOption pairs a range with its selector label.
type DateRangeOption struct {
	Value DateRange
	Label string
}

var dateRanges = []DateRangeOption{
	{Value: RangeLastDay, Label: "Last Day"},
	{Value: RangeLastWeek, Label: "Last 7 Days"},
	{Value: RangeLastMonth, Label: "Last 30 Days"},
	{Value: RangeLast3Months, Label: "Last 3 Months"},
	{Value: RangeLast6Months, Label: "Last 6 Months"},
	{Value: RangeLastYear, Label: "Last Year"},
	{Value: RangeAll, Label: "All Time"},
}

// DateRanges returns the selectable ranges in display order.
func DateRanges() []DateRangeOption {
	out := make([]DateRangeOption, len(dateRanges))
	copy(out, dateRanges)
	return out
}

// ParseDateRange validates a range value. An empty string yields the default.
func ParseDateRange(s string) (DateRange, error) {
	if s == "" {
		return DefaultDateRange, nil
	}
	for _, r := range dateRanges {
		if string(r.Value) == s {
			return r.Value, nil
		}
	}
	return "", ErrInvalidDateRange
}

// Days returns the window length; ok is false for RangeAll.
func (r DateRange) Days() (days int, ok bool) {
	if r == RangeAll {
		return 0, false
	}
	n, err := strconv.Atoi(string(r))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Cutoff is the earliest instant still inside the window: now minus N
// calendar days, wall clock preserved. ok is false for RangeAll.
func (r DateRange) Cutoff(now time.Time) (time.Time, bool) {
	days, ok := r.Days()
	if !ok {
		return time.Time{}, false
	}
	return now.AddDate(0, 0, -days), true
}

// Contains reports whether t falls inside the window ending at now.
// The cutoff itself is inside.
func (r DateRange) Contains(t, now time.Time) bool {
	cutoff, ok := r.Cutoff(now)
	if !ok {
		return true
	}
	return !t.Before(cutoff)
}

func (r DateRange) Label() string {
	for _, o := range dateRanges {
		if o.Value == r {
			return o.Label
		}
	}
	return string(r)
}
