package core

import (
	"reflect"
	"testing"
)

func TestDefaultPreferences(t *testing.T) {
	p := DefaultPreferences(7)
	if p.Currency != "EUR - Euro" || p.CurrencyCode != "EUR" || p.RowsPerPage != 25 {
		t.Fatalf("unexpected defaults %+v", p)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("defaults should validate, got %v", err)
	}
}

func TestCurrencyCode(t *testing.T) {
	if got := CurrencyCode("USD - US Dollar"); got != "USD" {
		t.Fatalf("got %q", got)
	}
	if got := CurrencyCode("XYZ"); got != "XYZ" {
		t.Fatalf("got %q", got)
	}
}

func TestPreferencesValidate(t *testing.T) {
	p := DefaultPreferences(1)
	p.RowsPerPage = 30
	if err := p.Validate(); err != ErrInvalidRowsPerPage {
		t.Fatalf("expected ErrInvalidRowsPerPage, got %v", err)
	}
	p.RowsPerPage = 100
	p.Currency = "ABC - Nowhere"
	if err := p.Validate(); err != ErrUnsupportedCurrency {
		t.Fatalf("expected ErrUnsupportedCurrency, got %v", err)
	}
}

func TestNormalizeLabels(t *testing.T) {
	in := []string{" Food ", "", "Rent", "Food", PlaceholderCategory, "Travel"}
	want := []string{"Food", "Rent", "Travel"}
	if got := NormalizeLabels(in); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
