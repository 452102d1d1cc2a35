package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// CalculationType selects what a summary reports per category.
type CalculationType string

const (
	Total CalculationType = "total"
	Mean  CalculationType = "mean"
	Share CalculationType = "share"
)

var hundred = decimal.NewFromInt(100)

// InvalidCalculationTypeError reports an unsupported calculation type.
type InvalidCalculationTypeError struct {
	Value string
}

func (e *InvalidCalculationTypeError) Error() string {
	return fmt.Sprintf("invalid calculation type %q", e.Value)
}

func ParseCalculationType(s string) (CalculationType, error) {
	switch c := CalculationType(strings.ToLower(strings.TrimSpace(s))); c {
	case Total, Mean, Share:
		return c, nil
	}
	return "", &InvalidCalculationTypeError{Value: s}
}

// CategoryValue is one aggregate for one category.
type CategoryValue struct {
	Category string
	Value    decimal.Decimal
}

// mean is sum/n rounded to cents. Zero when n is zero.
func mean(sum decimal.Decimal, n int64) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return sum.Div(decimal.NewFromInt(n)).Round(2)
}

// share is the percentage of window carried by sum, rounded to two decimals.
// Zero when window is zero.
func share(sum, window decimal.Decimal) decimal.Decimal {
	if window.IsZero() {
		return decimal.Zero
	}
	return sum.Mul(hundred).Div(window).Round(2)
}

// Aggregate computes calc for every category present in rows, in
// lexicographic category order.
func Aggregate(rows []Row, calc CalculationType) ([]CategoryValue, error) {
	type acc struct {
		sum decimal.Decimal
		n   int64
	}
	byCategory := make(map[string]*acc)
	var window decimal.Decimal
	for _, r := range rows {
		a, ok := byCategory[r.Category]
		if !ok {
			a = &acc{}
			byCategory[r.Category] = a
		}
		a.sum = a.sum.Add(r.Amount)
		a.n++
		window = window.Add(r.Amount)
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	out := make([]CategoryValue, 0, len(categories))
	for _, c := range categories {
		a := byCategory[c]
		var v decimal.Decimal
		switch calc {
		case Total:
			v = a.sum
		case Mean:
			v = mean(a.sum, a.n)
		case Share:
			v = share(a.sum, window)
		default:
			return nil, &InvalidCalculationTypeError{Value: string(calc)}
		}
		out = append(out, CategoryValue{Category: c, Value: v})
	}
	return out, nil
}
