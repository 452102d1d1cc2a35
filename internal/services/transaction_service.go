package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// ErrNotFound is returned for transactions that do not exist or belong to
// someone else.
var ErrNotFound = storage.ErrNotFound

// FlexString accepts either a JSON string or a JSON number.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// TransactionInput is a create or edit form as submitted.
type TransactionInput struct {
	Date        string     `json:"date"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Account     string     `json:"account"`
	Amount      FlexString `json:"amount"`
}

// TransactionService orchestrates expense and income writes across SQLite,
// the summary cache and AMQP.
type TransactionService struct {
	repo      *storage.SQLiteRepository
	events    EventPublisher
	summaries *SummaryService
	locks     sync.Map
	now       func() time.Time
}

func NewTransactionService(repo *storage.SQLiteRepository, events EventPublisher, summaries *SummaryService) *TransactionService {
	return &TransactionService{
		repo:      repo,
		events:    events,
		summaries: summaries,
		now:       time.Now,
	}
}

func (s *TransactionService) build(ownerID int64, kind core.Kind, in TransactionInput) (core.Transaction, error) {
	date := core.DateOf(s.now().UTC())
	if d := strings.TrimSpace(in.Date); d != "" {
		var err error
		if date, err = core.ParseDate(d); err != nil {
			return core.Transaction{}, err
		}
	}
	amount, err := core.ParseAmount(string(in.Amount))
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		OwnerID:     ownerID,
		Kind:        kind,
		Date:        date,
		Description: in.Description,
		Category:    in.Category,
		Account:     in.Account,
		Amount:      amount,
	}
	tx.Normalize()
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// lock serializes writes of one owner so events leave in commit order.
func (s *TransactionService) lock(ownerID int64) func() {
	m, _ := s.locks.LoadOrStore(ownerID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *TransactionService) Create(ctx context.Context, ownerID int64, kind core.Kind, in TransactionInput) (core.Transaction, core.Balance, error) {
	tx, err := s.build(ownerID, kind, in)
	if err != nil {
		return core.Transaction{}, core.Balance{}, err
	}
	defer s.lock(ownerID)()
	created, bal, err := s.repo.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, core.Balance{}, fmt.Errorf("save %s: %w", kind, err)
	}
	s.afterWrite(ctx, amqp.EventCreated, created)
	return created, bal, nil
}

// Update rewrites one of the owner's transactions; ErrNotFound otherwise.
func (s *TransactionService) Update(ctx context.Context, ownerID int64, kind core.Kind, id int64, in TransactionInput) (core.Transaction, core.Balance, error) {
	tx, err := s.build(ownerID, kind, in)
	if err != nil {
		return core.Transaction{}, core.Balance{}, err
	}
	tx.ID = id
	defer s.lock(ownerID)()
	updated, bal, err := s.repo.UpdateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, core.Balance{}, err
	}
	s.afterWrite(ctx, amqp.EventUpdated, updated)
	return updated, bal, nil
}

func (s *TransactionService) Delete(ctx context.Context, ownerID int64, kind core.Kind, id int64) (core.Transaction, core.Balance, error) {
	defer s.lock(ownerID)()
	deleted, bal, err := s.repo.DeleteTransaction(ctx, ownerID, kind, id)
	if err != nil {
		return core.Transaction{}, core.Balance{}, err
	}
	s.afterWrite(ctx, amqp.EventDeleted, deleted)
	return deleted, bal, nil
}

// afterWrite drops cached summaries and publishes the event. Publishing is
// best effort; the write is already committed.
func (s *TransactionService) afterWrite(ctx context.Context, event string, tx core.Transaction) {
	if s.summaries != nil {
		s.summaries.Invalidate(tx.OwnerID)
	}
	if s.events == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping transaction event", "id", tx.ID)
		return
	}
	if err := s.events.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(event, tx)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"id", tx.ID, "kind", tx.Kind, "event", event, "error", err)
	}
}

// Get returns one of the owner's transactions; ErrNotFound otherwise.
func (s *TransactionService) Get(ctx context.Context, ownerID int64, kind core.Kind, id int64) (core.Transaction, error) {
	return s.repo.GetTransaction(ctx, ownerID, kind, id)
}

// List returns one page of the owner's transactions, newest first, using
// the owner's rows-per-page preference. Out of range pages are clamped.
func (s *TransactionService) List(ctx context.Context, ownerID int64, kind core.Kind, page int, search string) (core.Page, error) {
	prefs, err := s.repo.Preferences(ctx, ownerID)
	if err != nil {
		return core.Page{}, err
	}
	total, err := s.repo.CountTransactions(ctx, ownerID, kind, search)
	if err != nil {
		return core.Page{}, err
	}
	page, pages, offset := core.ClampPage(page, total, prefs.RowsPerPage)
	items, err := s.repo.SearchTransactions(ctx, ownerID, kind, search, prefs.RowsPerPage, offset)
	if err != nil {
		return core.Page{}, err
	}
	if items == nil {
		items = []core.Transaction{}
	}
	return core.Page{
		Items:       items,
		Page:        page,
		TotalPages:  pages,
		Total:       total,
		RowsPerPage: prefs.RowsPerPage,
	}, nil
}

// Search returns every matching transaction, newest first.
func (s *TransactionService) Search(ctx context.Context, ownerID int64, kind core.Kind, text string) ([]core.Transaction, error) {
	items, err := s.repo.SearchTransactions(ctx, ownerID, kind, text, -1, 0)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []core.Transaction{}
	}
	return items, nil
}

func (s *TransactionService) Balance(ctx context.Context, ownerID int64) (core.Balance, error) {
	return s.repo.Balance(ctx, ownerID)
}
