package core

import "strings"

const (
	DefaultCurrency    = "EUR - Euro"
	DefaultRowsPerPage = 25
)

// RowsPerPageOptions are the page sizes a user may pick.
var RowsPerPageOptions = []int{10, 25, 50, 100}

// Currencies is the selectable catalogue, formatted "<code> - <name>".
var Currencies = []string{
	"AUD - Australian Dollar",
	"BRL - Brazilian Real",
	"CAD - Canadian Dollar",
	"CHF - Swiss Franc",
	"CNY - Chinese Yuan",
	"CZK - Czech Koruna",
	"DKK - Danish Krone",
	"EUR - Euro",
	"GBP - British Pound",
	"HKD - Hong Kong Dollar",
	"HUF - Hungarian Forint",
	"INR - Indian Rupee",
	"JPY - Japanese Yen",
	"MXN - Mexican Peso",
	"NOK - Norwegian Krone",
	"NZD - New Zealand Dollar",
	"PLN - Polish Zloty",
	"SEK - Swedish Krona",
	"SGD - Singapore Dollar",
	"TRY - Turkish Lira",
	"USD - US Dollar",
	"ZAR - South African Rand",
}

var (
	defaultExpenseCategories = []string{"Food", "Housing", "Transport", "Utilities", "Health", "Leisure", "Other"}
	defaultIncomeCategories  = []string{"Salary", "Bonus", "Investments", "Gifts", "Other"}
	defaultAccounts          = []string{"Cash", "Checking", "Savings", "Credit Card"}
)

type UserPreferences struct {
	UserID            int64    `json:"-"`
	Currency          string   `json:"currency"`
	CurrencyCode      string   `json:"currency_code"`
	RowsPerPage       int      `json:"rows_per_page"`
	ExpenseCategories []string `json:"expense_categories"`
	IncomeCategories  []string `json:"income_categories"`
	Accounts          []string `json:"accounts"`
}

// DefaultPreferences is what a user gets before saving anything.
func DefaultPreferences(userID int64) UserPreferences {
	return UserPreferences{
		UserID:            userID,
		Currency:          DefaultCurrency,
		CurrencyCode:      CurrencyCode(DefaultCurrency),
		RowsPerPage:       DefaultRowsPerPage,
		ExpenseCategories: append([]string(nil), defaultExpenseCategories...),
		IncomeCategories:  append([]string(nil), defaultIncomeCategories...),
		Accounts:          append([]string(nil), defaultAccounts...),
	}
}

// CurrencyCode returns the part of a catalogue entry before " - ".
func CurrencyCode(currency string) string {
	code, _, _ := strings.Cut(currency, " - ")
	return strings.TrimSpace(code)
}

func ValidCurrency(currency string) bool {
	for _, c := range Currencies {
		if c == currency {
			return true
		}
	}
	return false
}

func ValidRowsPerPage(n int) bool {
	for _, o := range RowsPerPageOptions {
		if o == n {
			return true
		}
	}
	return false
}

// Categories returns the selectable categories for kind.
func (p UserPreferences) Categories(kind Kind) []string {
	if kind == Income {
		return p.IncomeCategories
	}
	return p.ExpenseCategories
}

func (p UserPreferences) Validate() error {
	if !ValidCurrency(p.Currency) {
		return ErrUnsupportedCurrency
	}
	if !ValidRowsPerPage(p.RowsPerPage) {
		return ErrInvalidRowsPerPage
	}
	return nil
}

// NormalizeLabels trims labels, drops blanks and placeholders, and removes
// duplicates while keeping first-seen order.
func NormalizeLabels(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || s == PlaceholderCategory || s == PlaceholderAccount {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
