package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Expense Kind = "expense"
	Income  Kind = "income"
)

// Sentinel labels the forms submit when nothing was chosen.
const (
	PlaceholderCategory = "--- Select Category ---"
	PlaceholderAccount  = "--- Select Account ---"
)

const maxDescriptionLen = 200

type (
	// Kind tells expenses and incomes apart. Both share one shape.
	Kind string

	Date struct {
		time.Time
	}

	Transaction struct {
		ID          int64  `json:"id"`
		OwnerID     int64  `json:"-"`
		Kind        Kind   `json:"-"`
		Date        Date   `json:"date"`
		Description string `json:"description"`
		Category    string `json:"category"`
		Account     string `json:"account"`
		Amount      Money  `json:"amount"`
	}

	// Balance is derived from the owner's transactions, never edited directly.
	Balance struct {
		UserID        int64 `json:"-"`
		TotalExpenses Money `json:"total_expenses"`
		TotalIncomes  Money `json:"total_incomes"`
		Balance       Money `json:"balance"`
	}

	User struct {
		ID           int64
		Username     string
		Email        string
		PasswordHash string
		Active       bool
		CreatedAt    time.Time
	}
)

var (
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyCategory       = errors.New("category is required")
	ErrEmptyAccount        = errors.New("account is required")
	ErrDescriptionTooLong  = fmt.Errorf("description too long (max %d characters)", maxDescriptionLen)
	ErrUnknownKind         = errors.New("unknown transaction kind")
	ErrInvalidRowsPerPage  = errors.New("invalid rows per page")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

// ParseKind accepts both singular and plural names ("expense", "expenses").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "expense", "expenses":
		return Expense, nil
	case "income", "incomes":
		return Income, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Plural is the collection name used in routes and payload keys.
func (k Kind) Plural() string {
	return string(k) + "s"
}

func (k Kind) Valid() bool {
	return k == Expense || k == Income
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t, keeping its calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses an ISO calendar date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// AddDays returns the date n calendar days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	v, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Validate checks a transaction as submitted by its owner.
func (t Transaction) Validate() error {
	if !t.Kind.Valid() {
		return ErrUnknownKind
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len([]rune(t.Description)) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if c := strings.TrimSpace(t.Category); c == "" || c == PlaceholderCategory {
		return ErrEmptyCategory
	}
	if a := strings.TrimSpace(t.Account); a == "" || a == PlaceholderAccount {
		return ErrEmptyAccount
	}
	return nil
}

// Normalize trims the free text fields in place.
func (t *Transaction) Normalize() {
	t.Description = strings.TrimSpace(t.Description)
	t.Category = strings.TrimSpace(t.Category)
	t.Account = strings.TrimSpace(t.Account)
}

// NewBalance derives a balance from the two totals.
func NewBalance(userID int64, expenses, incomes Money) Balance {
	return Balance{
		UserID:        userID,
		TotalExpenses: expenses,
		TotalIncomes:  incomes,
		Balance:       incomes.Sub(expenses),
	}
}
