package sheets

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

// Header is the first row of every ledger sheet.
var Header = []any{"Date", "Description", "Category", "Account", "Amount", "Owner", "Event", "Transaction ID"}

// Row is one line of the exported ledger. Every event becomes a new row;
// earlier rows are never rewritten.
type Row struct {
	Date          core.Date
	Description   string
	Category      string
	Account       string
	Amount        core.Money
	Owner         string
	Event         string
	TransactionID int64
}

// Values renders the row in Header order.
func (r Row) Values() []any {
	return []any{
		r.Date.String(),
		r.Description,
		r.Category,
		r.Account,
		r.Amount.String(),
		r.Owner,
		r.Event,
		r.TransactionID,
	}
}

// SheetBase names the per-year sheet family for a kind.
func SheetBase(kind core.Kind) string {
	if kind == core.Income {
		return "Incomes"
	}
	return "Expenses"
}

// SheetTitle is "<year> Expenses" or "<year> Incomes".
func SheetTitle(kind core.Kind, year int) string {
	return fmt.Sprintf("%d %s", year, SheetBase(kind))
}

// Ports for outbound adapters.
type (
	LedgerWriter interface {
		AppendRow(ctx context.Context, kind core.Kind, row Row) error
	}
)
