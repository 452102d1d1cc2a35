package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/core"
)

// CreateTransaction inserts tx and recomputes its owner's balance in the same
// database transaction.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, core.Balance, error) {
	var row Transaction
	var bal Balance
	err := r.inTx(ctx, func(q *Queries) error {
		now := r.now().Unix()
		var err error
		row, err = q.CreateTransaction(ctx, CreateTransactionParams{
			OwnerID:     tx.OwnerID,
			Kind:        string(tx.Kind),
			Date:        tx.Date.String(),
			Description: tx.Description,
			Category:    tx.Category,
			Account:     tx.Account,
			AmountCents: tx.Amount.Cents(),
			Now:         now,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", tx.Kind, err)
		}
		if bal, err = q.RecomputeBalance(ctx, tx.OwnerID, now); err != nil {
			return fmt.Errorf("recompute balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, core.Balance{}, err
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"kind", row.Kind,
		"owner_id", row.OwnerID,
		"amount_cents", row.AmountCents,
		"date", row.Date)

	created, err := toCoreTransaction(row)
	return created, toCoreBalance(bal), err
}

// UpdateTransaction rewrites an existing transaction of the same owner and
// kind, then recomputes the balance.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, core.Balance, error) {
	var row Transaction
	var bal Balance
	err := r.inTx(ctx, func(q *Queries) error {
		now := r.now().Unix()
		var err error
		row, err = q.UpdateTransaction(ctx, UpdateTransactionParams{
			ID:          tx.ID,
			OwnerID:     tx.OwnerID,
			Kind:        string(tx.Kind),
			Date:        tx.Date.String(),
			Description: tx.Description,
			Category:    tx.Category,
			Account:     tx.Account,
			AmountCents: tx.Amount.Cents(),
			Now:         now,
		})
		if err != nil {
			return notFound(err, fmt.Sprintf("update %s %d", tx.Kind, tx.ID))
		}
		if bal, err = q.RecomputeBalance(ctx, tx.OwnerID, now); err != nil {
			return fmt.Errorf("recompute balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, core.Balance{}, err
	}
	updated, err := toCoreTransaction(row)
	return updated, toCoreBalance(bal), err
}

// DeleteTransaction removes a transaction and returns what was deleted along
// with the recomputed balance.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, ownerID int64, kind core.Kind, id int64) (core.Transaction, core.Balance, error) {
	var row Transaction
	var bal Balance
	err := r.inTx(ctx, func(q *Queries) error {
		var err error
		row, err = q.DeleteTransaction(ctx, id, ownerID, string(kind))
		if err != nil {
			return notFound(err, fmt.Sprintf("delete %s %d", kind, id))
		}
		if bal, err = q.RecomputeBalance(ctx, ownerID, r.now().Unix()); err != nil {
			return fmt.Errorf("recompute balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, core.Balance{}, err
	}
	deleted, err := toCoreTransaction(row)
	return deleted, toCoreBalance(bal), err
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, ownerID int64, kind core.Kind, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id, ownerID, string(kind))
	if err != nil {
		return core.Transaction{}, notFound(err, fmt.Sprintf("get %s %d", kind, id))
	}
	return toCoreTransaction(row)
}

// QueryTransactions returns the owner's transactions dated within [from, to].
func (r *SQLiteRepository) QueryTransactions(ctx context.Context, ownerID int64, kind core.Kind, from, to core.Date) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsInRange(ctx, ownerID, string(kind), from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list %s in range: %w", kind.Plural(), err)
	}
	return toCoreTransactions(rows)
}

// likePattern escapes LIKE wildcards in s and wraps it for substring matching.
func likePattern(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

// SearchTransactions returns matching transactions newest first. A negative
// limit returns every match.
func (r *SQLiteRepository) SearchTransactions(ctx context.Context, ownerID int64, kind core.Kind, search string, limit, offset int) ([]core.Transaction, error) {
	search = strings.TrimSpace(search)
	rows, err := r.queries.SearchTransactions(ctx, SearchTransactionsParams{
		OwnerID: ownerID,
		Kind:    string(kind),
		Search:  search,
		Pattern: likePattern(search),
		Limit:   int64(limit),
		Offset:  int64(offset),
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", kind.Plural(), err)
	}
	return toCoreTransactions(rows)
}

func (r *SQLiteRepository) CountTransactions(ctx context.Context, ownerID int64, kind core.Kind, search string) (int, error) {
	search = strings.TrimSpace(search)
	n, err := r.queries.CountTransactions(ctx, ownerID, string(kind), search, likePattern(search))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", kind.Plural(), err)
	}
	return int(n), nil
}

// Balance returns the stored balance, deriving it on first access.
func (r *SQLiteRepository) Balance(ctx context.Context, userID int64) (core.Balance, error) {
	b, err := r.queries.GetBalance(ctx, userID)
	if err == nil {
		return toCoreBalance(b), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return core.Balance{}, fmt.Errorf("get balance: %w", err)
	}
	err = r.inTx(ctx, func(q *Queries) error {
		var err error
		if b, err = q.RecomputeBalance(ctx, userID, r.now().Unix()); err != nil {
			return fmt.Errorf("recompute balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Balance{}, err
	}
	return toCoreBalance(b), nil
}

// Preferences returns the user's preferences, storing the defaults on first
// access.
func (r *SQLiteRepository) Preferences(ctx context.Context, userID int64) (core.UserPreferences, error) {
	p, err := r.queries.GetPreferences(ctx, userID)
	if err == nil {
		return toCorePreferences(p)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return core.UserPreferences{}, fmt.Errorf("get preferences: %w", err)
	}
	defaults := core.DefaultPreferences(userID)
	if err := r.SavePreferences(ctx, defaults); err != nil {
		return core.UserPreferences{}, err
	}
	return defaults, nil
}

func (r *SQLiteRepository) SavePreferences(ctx context.Context, p core.UserPreferences) error {
	row := UserPreferences{
		UserID:       p.UserID,
		Currency:     p.Currency,
		CurrencyCode: p.CurrencyCode,
		RowsPerPage:  int64(p.RowsPerPage),
		UpdatedAt:    r.now().Unix(),
	}
	var err error
	if row.ExpenseCategories, err = encodeLabels(p.ExpenseCategories); err != nil {
		return err
	}
	if row.IncomeCategories, err = encodeLabels(p.IncomeCategories); err != nil {
		return err
	}
	if row.Accounts, err = encodeLabels(p.Accounts); err != nil {
		return err
	}
	if err := r.queries.UpsertPreferences(ctx, row); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

func toCorePreferences(p UserPreferences) (core.UserPreferences, error) {
	out := core.UserPreferences{
		UserID:       p.UserID,
		Currency:     p.Currency,
		CurrencyCode: p.CurrencyCode,
		RowsPerPage:  int(p.RowsPerPage),
	}
	for _, f := range []struct {
		raw string
		dst *[]string
	}{
		{p.ExpenseCategories, &out.ExpenseCategories},
		{p.IncomeCategories, &out.IncomeCategories},
		{p.Accounts, &out.Accounts},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return core.UserPreferences{}, fmt.Errorf("decode preferences of user %d: %w", p.UserID, err)
		}
	}
	return out, nil
}

func encodeLabels(labels []string) (string, error) {
	if labels == nil {
		labels = []string{}
	}
	b, err := json.Marshal(labels)
	if err != nil {
		return "", fmt.Errorf("encode labels: %w", err)
	}
	return string(b), nil
}
