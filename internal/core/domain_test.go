package core

import (
	"errors"
	"testing"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-17")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.Year() != 2024 || d.Month() != 3 || d.Day() != 17 {
		t.Fatalf("unexpected date %v", d)
	}
	if d.String() != "2024-03-17" {
		t.Fatalf("unexpected string %q", d.String())
	}
	for _, bad := range []string{"", "2024-13-01", "17/03/2024"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", bad, err)
		}
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{"expense": Expense, "Expenses": Expense, "income": Income, " incomes ": Income}
	for in, want := range cases {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %q, %v", in, got, err)
		}
	}
	if _, err := ParseKind("transfer"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
	if Expense.Plural() != "expenses" || Income.Plural() != "incomes" {
		t.Fatalf("unexpected plurals")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Kind:        Expense,
		Date:        NewDate(2025, 1, 1),
		Description: "groceries",
		Category:    "Food",
		Account:     "Cash",
		Amount:      MoneyFromCents(100),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	noDesc := good
	noDesc.Description = ""
	if err := noDesc.Validate(); err != nil {
		t.Fatalf("description is optional, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
		{"amount too large", func(tx *Transaction) { tx.Amount = MoneyFromCents(10_000_000_000) }, ErrInvalidAmount},
		{"placeholder category", func(tx *Transaction) { tx.Category = PlaceholderCategory }, ErrEmptyCategory},
		{"blank category", func(tx *Transaction) { tx.Category = "  " }, ErrEmptyCategory},
		{"placeholder account", func(tx *Transaction) { tx.Account = PlaceholderAccount }, ErrEmptyAccount},
		{"long description", func(tx *Transaction) {
			b := make([]byte, 201)
			for i := range b {
				b[i] = 'x'
			}
			tx.Description = string(b)
		}, ErrDescriptionTooLong},
		{"bad kind", func(tx *Transaction) { tx.Kind = "transfer" }, ErrUnknownKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := good
			tc.mutate(&tx)
			if err := tx.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestNewBalance(t *testing.T) {
	b := NewBalance(1, MoneyFromCents(12000), MoneyFromCents(10050))
	if b.Balance.String() != "-19.50" {
		t.Fatalf("unexpected balance %s", b.Balance)
	}
}

func TestClampPage(t *testing.T) {
	cases := []struct {
		page, total, per    int
		wantPage, wantPages int
		wantOffset          int
	}{
		{1, 0, 25, 1, 1, 0},
		{3, 60, 25, 3, 3, 50},
		{9, 60, 25, 3, 3, 50},
		{0, 60, 10, 1, 6, 0},
		{2, 10, 10, 1, 1, 0},
	}
	for i, tc := range cases {
		p, pages, off := ClampPage(tc.page, tc.total, tc.per)
		if p != tc.wantPage || pages != tc.wantPages || off != tc.wantOffset {
			t.Fatalf("case %d: got (%d,%d,%d)", i, p, pages, off)
		}
	}
}
