package analytics

import (
	"context"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

type fakeStore struct {
	txs   []core.Transaction
	err   error
	calls int
	from  core.Date
	to    core.Date
}

func (f *fakeStore) QueryTransactions(_ context.Context, ownerID int64, kind core.Kind, from, to core.Date) ([]core.Transaction, error) {
	f.calls++
	f.from, f.to = from, to
	if f.err != nil {
		return nil, f.err
	}
	var out []core.Transaction
	for _, tx := range f.txs {
		if tx.OwnerID != ownerID || tx.Kind != kind {
			continue
		}
		if tx.Date.Before(from.Time) || tx.Date.After(to.Time) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func expense(y, m, d int, category, amount string) core.Transaction {
	a, err := core.ParseAmount(amount)
	if err != nil {
		panic(err)
	}
	return core.Transaction{OwnerID: 1, Kind: core.Expense, Date: core.NewDate(y, m, d), Category: category, Account: "Cash", Amount: a}
}

func row(y, m, d int, category, amount string) Row {
	return Row{Date: core.NewDate(y, m, d), Category: category, Amount: decimal.RequireFromString(amount)}
}

// scenarioRows is the three-month food/rent fixture.
func scenarioRows() []Row {
	return []Row{
		row(2024, 1, 5, "food", "10.00"),
		row(2024, 3, 20, "food", "5.00"),
		row(2024, 2, 10, "rent", "100.00"),
	}
}
