package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/mail"
	"fintrack/internal/sheets"
	"fintrack/internal/storage"
)

// UserLookup resolves owner ids to users.
type UserLookup interface {
	UserByID(ctx context.Context, id int64) (core.User, error)
}

// Consumer is satisfied by *amqp.Client.
type Consumer interface {
	ConsumeTransactionEvents(ctx context.Context, handler func(context.Context, *amqp.TransactionEvent) error) error
	ConsumeEmails(ctx context.Context, handler func(context.Context, *amqp.EmailMessage) error) error
}

// ExportWorker appends every transaction event to the spreadsheet ledger.
type ExportWorker struct {
	users  UserLookup
	ledger sheets.LedgerWriter
	names  *cache.LRUCache[string]
}

// NewExportWorker builds an exporter. A nil ledger acknowledges events
// without exporting them.
func NewExportWorker(users UserLookup, ledger sheets.LedgerWriter) *ExportWorker {
	return &ExportWorker{
		users:  users,
		ledger: ledger,
		names:  cache.NewLRUCache[string](1000, time.Hour),
	}
}

// HandleTransactionEvent processes a single transaction event from AMQP
func (w *ExportWorker) HandleTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"id", ev.ID,
		"kind", ev.Kind,
		"event", ev.Event)

	if w.ledger == nil {
		slog.WarnContext(ctx, "No spreadsheet configured, skipping export", "id", ev.ID)
		return nil
	}

	owner, err := w.ownerName(ctx, ev.OwnerID)
	if err != nil {
		return err
	}
	snap := ev.Snapshot
	row := sheets.Row{
		Date:          snap.Date,
		Description:   snap.Description,
		Category:      snap.Category,
		Account:       snap.Account,
		Amount:        snap.Amount,
		Owner:         owner,
		Event:         ev.Event,
		TransactionID: ev.ID,
	}
	if err := w.ledger.AppendRow(ctx, ev.Kind, row); err != nil {
		return fmt.Errorf("export %s %d: %w", ev.Kind, ev.ID, err)
	}

	slog.InfoContext(ctx, "Transaction exported", "id", ev.ID, "kind", ev.Kind, "event", ev.Event)
	return nil
}

// ownerName returns the username, or the numeric id for users that no
// longer exist.
func (w *ExportWorker) ownerName(ctx context.Context, id int64) (string, error) {
	key := strconv.FormatInt(id, 10)
	if name, ok := w.names.Get(key); ok {
		return name, nil
	}
	u, err := w.users.UserByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return key, nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup owner %d: %w", id, err)
	}
	w.names.Set(key, u.Username)
	return u.Username, nil
}

// MailWorker sends queued emails.
type MailWorker struct {
	sender mail.Sender
}

func NewMailWorker(sender mail.Sender) *MailWorker {
	return &MailWorker{sender: sender}
}

func (w *MailWorker) HandleEmail(ctx context.Context, msg *amqp.EmailMessage) error {
	if err := w.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// Run consumes both queues until ctx is cancelled or one consumer fails.
func Run(ctx context.Context, consumer Consumer, export *ExportWorker, mailer *MailWorker) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.ConsumeTransactionEvents(ctx, export.HandleTransactionEvent)
	})
	g.Go(func() error {
		return consumer.ConsumeEmails(ctx, mailer.HandleEmail)
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
