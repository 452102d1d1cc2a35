// Package analytics turns an owner's transactions into per-category summaries
// bucketed over calendar periods, in a shape a charting library can draw.
package analytics

import (
	"fmt"
	"sort"
	"strings"

	"fintrack/internal/core"
)

// Granularity is the calendar period transactions are bucketed into.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
	Year  Granularity = "year"
)

// Interval is a named lookback window and the bucket size used to chart it.
type Interval struct {
	Key          string      `json:"key"`
	LookbackDays int         `json:"lookback_days"`
	Granularity  Granularity `json:"granularity"`
}

var intervals = map[string]Interval{
	"last-week":    {Key: "last-week", LookbackDays: 7, Granularity: Day},
	"last-month":   {Key: "last-month", LookbackDays: 30, Granularity: Week},
	"last-quarter": {Key: "last-quarter", LookbackDays: 90, Granularity: Week},
	"last-year":    {Key: "last-year", LookbackDays: 365, Granularity: Month},
	"last-5-years": {Key: "last-5-years", LookbackDays: 1825, Granularity: Year},
}

// UnknownIntervalError reports an interval key missing from the catalogue.
type UnknownIntervalError struct {
	Key string
}

func (e *UnknownIntervalError) Error() string {
	return fmt.Sprintf("unknown interval %q", e.Key)
}

// ResolveInterval looks key up in the catalogue. There is no fallback window:
// an unrecognised key is always an error.
func ResolveInterval(key string) (Interval, error) {
	iv, ok := intervals[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return Interval{}, &UnknownIntervalError{Key: key}
	}
	return iv, nil
}

// Intervals lists the catalogue, shortest window first.
func Intervals() []Interval {
	out := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		out = append(out, iv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LookbackDays < out[j].LookbackDays })
	return out
}

// Window returns the inclusive date range ending on today.
func (iv Interval) Window(today core.Date) (core.Date, core.Date) {
	return today.AddDays(-iv.LookbackDays), today
}
