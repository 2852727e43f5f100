package core

import (
	"fmt"
	"time"
)

// MonthKey identifies a calendar month bucket. Keys order chronologically.
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthOf returns the bucket containing t, in t's location.
func MonthOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// Before reports whether k is an earlier month than o.
func (k MonthKey) Before(o MonthKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Month < o.Month
}

// Label is the display form, e.g. "Jan 2024".
func (k MonthKey) Label() string {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC).Format("Jan 2006")
}

// String is the sortable form, e.g. "2024-01".
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}
