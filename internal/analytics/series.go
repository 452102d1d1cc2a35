package analytics

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Store is the read side the series builder needs. Implementations return the
// owner's transactions of one kind dated within [from, to], both inclusive.
type Store interface {
	QueryTransactions(ctx context.Context, ownerID int64, kind core.Kind, from, to core.Date) ([]core.Transaction, error)
}

// Row is one long-form series entry.
type Row struct {
	Date     core.Date
	Category string
	Amount   decimal.Decimal
}

// BuildSeries returns one row per transaction in the window, unaggregated.
// An empty window yields an empty series and no error.
func BuildSeries(ctx context.Context, store Store, ownerID int64, kind core.Kind, from, to core.Date) ([]Row, error) {
	txs, err := store.QueryTransactions(ctx, ownerID, kind, from, to)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind.Plural(), err)
	}
	rows := make([]Row, 0, len(txs))
	for _, tx := range txs {
		if tx.Date.Before(from.Time) || tx.Date.After(to.Time) {
			continue
		}
		rows = append(rows, Row{Date: tx.Date, Category: tx.Category, Amount: tx.Amount.Decimal()})
	}
	return rows, nil
}
