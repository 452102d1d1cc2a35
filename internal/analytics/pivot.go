package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Matrix is the period x category pivot of a series. Every category holds one
// amount per label, zero where the period had no transactions.
type Matrix struct {
	Labels     []string
	Categories []string
	Cells      map[string][]decimal.Decimal
}

// Pivot buckets rows by period and category, summing exactly, and reindexes
// over every period between the first and last observed one. Categories come
// out in lexicographic order.
func Pivot(rows []Row, g Granularity) Matrix {
	m := Matrix{Labels: []string{}, Categories: []string{}, Cells: map[string][]decimal.Decimal{}}
	if len(rows) == 0 {
		return m
	}

	sums := make(map[string]map[string]decimal.Decimal)
	var first, last time.Time
	for i, r := range rows {
		start := truncate(r.Date.Time, g)
		if i == 0 || start.Before(first) {
			first = start
		}
		if i == 0 || start.After(last) {
			last = start
		}
		byPeriod, ok := sums[r.Category]
		if !ok {
			byPeriod = make(map[string]decimal.Decimal)
			sums[r.Category] = byPeriod
			m.Categories = append(m.Categories, r.Category)
		}
		l := label(start, g)
		byPeriod[l] = byPeriod[l].Add(r.Amount)
	}
	sort.Strings(m.Categories)

	for p := first; !p.After(last); p = step(p, g) {
		m.Labels = append(m.Labels, label(p, g))
	}
	for _, c := range m.Categories {
		cells := make([]decimal.Decimal, len(m.Labels))
		for i, l := range m.Labels {
			cells[i] = sums[c][l]
		}
		m.Cells[c] = cells
	}
	return m
}

func truncate(t time.Time, g Granularity) time.Time {
	y, mo, d := t.Date()
	switch g {
	case Week:
		offset := (int(t.Weekday()) + 6) % 7
		return time.Date(y, mo, d-offset, 0, 0, 0, 0, time.UTC)
	case Month:
		return time.Date(y, mo, 1, 0, 0, 0, 0, time.UTC)
	case Year:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	}
}

func step(t time.Time, g Granularity) time.Time {
	switch g {
	case Week:
		return t.AddDate(0, 0, 7)
	case Month:
		return t.AddDate(0, 1, 0)
	case Year:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

func label(t time.Time, g Granularity) string {
	switch g {
	case Week:
		y, w := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case Month:
		return t.Format("2006-01")
	case Year:
		return t.Format("2006")
	default:
		return t.Format(time.DateOnly)
	}
}
