package booking

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of a vendor's booked dates.
const DateLayout = "02/01/2006"

const isoDateLayout = "2006-01-02"

const day = 24 * time.Hour

// NormalizeDate drops the clock part of t and pins it to UTC.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a calendar date as DD/MM/YYYY.
func FormatDate(t time.Time) string {
	return NormalizeDate(t).Format(DateLayout)
}

// ParseDate accepts DD/MM/YYYY, YYYY-MM-DD or RFC3339 and returns the calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, isoDateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return NormalizeDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// ExpandDates returns numberOfDays consecutive calendar dates starting at start.
// Callers reject numberOfDays < 1 before getting here.
func ExpandDates(start time.Time, numberOfDays int) []time.Time {
	if numberOfDays < 1 {
		return nil
	}
	first := NormalizeDate(start)
	dates := make([]time.Time, 0, numberOfDays)
	for i := 0; i < numberOfDays; i++ {
		dates = append(dates, first.AddDate(0, 0, i))
	}
	return dates
}

// FormatDates renders dates in DateLayout, preserving order.
func FormatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = FormatDate(d)
	}
	return out
}

// ConflictResult lists the requested dates already present in a booked set.
type ConflictResult struct {
	HasConflict bool
	Conflicting []string
}

// FindConflicts intersects requested with booked. Conflicting keeps the order
// of requested so error messages are stable.
func FindConflicts(requested []time.Time, booked []string) ConflictResult {
	set := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		set[b] = struct{}{}
	}
	var res ConflictResult
	seen := make(map[string]struct{}, len(requested))
	for _, d := range requested {
		key := FormatDate(d)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, taken := set[key]; taken {
			res.Conflicting = append(res.Conflicting, key)
		}
	}
	res.HasConflict = len(res.Conflicting) > 0
	return res
}

// daysBetween counts whole calendar days from a to b; negative when b precedes a.
func daysBetween(a, b time.Time) int {
	return int(NormalizeDate(b).Sub(NormalizeDate(a)) / day)
}
