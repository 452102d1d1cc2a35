package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

// Ledger keeps exported rows in memory, keyed by sheet title.
type Ledger struct {
	mu     sync.Mutex
	sheets map[string][]sheets.Row
	order  []string
}

var _ sheets.LedgerWriter = (*Ledger)(nil)

func New() *Ledger {
	return &Ledger{sheets: map[string][]sheets.Row{}}
}

// AppendRow stores the row under the sheet it would land on in Google Sheets.
func (l *Ledger) AppendRow(_ context.Context, kind core.Kind, row sheets.Row) error {
	title := sheets.SheetTitle(kind, row.Date.Year())
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.sheets[title]; !ok {
		l.order = append(l.order, title)
	}
	l.sheets[title] = append(l.sheets[title], row)
	return nil
}

// Rows returns a copy of the rows on one sheet.
func (l *Ledger) Rows(title string) []sheets.Row {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sheets.Row(nil), l.sheets[title]...)
}

// Titles lists sheets in creation order.
func (l *Ledger) Titles() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}
