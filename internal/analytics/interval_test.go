package analytics

import (
	"errors"
	"testing"

	"fintrack/internal/core"
)

func TestResolveInterval(t *testing.T) {
	cases := []struct {
		key  string
		days int
		g    Granularity
	}{
		{"last-week", 7, Day},
		{"last-month", 30, Week},
		{"last-quarter", 90, Week},
		{"Last-Year", 365, Month},
		{" last-5-years ", 1825, Year},
	}
	for _, tc := range cases {
		iv, err := ResolveInterval(tc.key)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.key, err)
		}
		if iv.LookbackDays != tc.days || iv.Granularity != tc.g {
			t.Fatalf("%q: got %+v", tc.key, iv)
		}
	}
}

func TestResolveIntervalUnknown(t *testing.T) {
	for _, key := range []string{"", "Year", "Month", "Week", "last-century"} {
		_, err := ResolveInterval(key)
		var uie *UnknownIntervalError
		if !errors.As(err, &uie) {
			t.Fatalf("%q: expected UnknownIntervalError, got %v", key, err)
		}
		if uie.Key != key {
			t.Fatalf("expected key %q in error, got %q", key, uie.Key)
		}
	}
}

func TestIntervalWindow(t *testing.T) {
	iv, _ := ResolveInterval("last-week")
	from, to := iv.Window(core.NewDate(2024, 3, 5))
	if from.String() != "2024-02-27" || to.String() != "2024-03-05" {
		t.Fatalf("unexpected window %s..%s", from, to)
	}
}

func TestIntervalsOrdered(t *testing.T) {
	all := Intervals()
	if len(all) != 5 {
		t.Fatalf("expected 5 intervals, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].LookbackDays >= all[i].LookbackDays {
			t.Fatalf("intervals not ordered: %+v", all)
		}
	}
}
