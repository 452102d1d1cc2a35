package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

// Token purposes stored in user_tokens.
const (
	PurposeActivation    = "activation"
	PurposePasswordReset = "password_reset"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

// dsn enables foreign keys, waits on locks instead of failing, and makes every
// transaction take the write lock up front.
func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks database connectivity for readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// inTx runs fn inside a transaction, committing when fn returns nil.
func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// notFound maps sql.ErrNoRows to ErrNotFound and wraps everything else.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// duplicate maps unique constraint violations to ErrDuplicate.
func duplicate(err error, what string) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func toCoreUser(u User) core.User {
	return core.User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Active:       u.Active,
		CreatedAt:    time.Unix(u.CreatedAt, 0).UTC(),
	}
}

func toCoreTransaction(t Transaction) (core.Transaction, error) {
	d, err := core.ParseDate(t.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", t.ID, err)
	}
	return core.Transaction{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Kind:        core.Kind(t.Kind),
		Date:        d,
		Description: t.Description,
		Category:    t.Category,
		Account:     t.Account,
		Amount:      core.MoneyFromCents(t.AmountCents),
	}, nil
}

func toCoreTransactions(rows []Transaction) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		t, err := toCoreTransaction(r)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func toCoreBalance(b Balance) core.Balance {
	return core.NewBalance(b.UserID, core.MoneyFromCents(b.TotalExpensesCents), core.MoneyFromCents(b.TotalIncomesCents))
}

// CreateUser inserts an inactive user together with its activation token.
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User, token string, expires time.Time) (core.User, error) {
	var created User
	err := r.inTx(ctx, func(q *Queries) error {
		now := r.now().Unix()
		var err error
		created, err = q.CreateUser(ctx, CreateUserParams{
			Username:     u.Username,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
			CreatedAt:    now,
		})
		if err != nil {
			return duplicate(err, "create user")
		}
		err = q.CreateToken(ctx, CreateTokenParams{
			Token:     token,
			UserID:    created.ID,
			Purpose:   PurposeActivation,
			ExpiresAt: expires.Unix(),
			CreatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("create activation token: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.User{}, err
	}

	slog.InfoContext(ctx, "User created", "user_id", created.ID, "username", created.Username)
	return toCoreUser(created), nil
}

func (r *SQLiteRepository) UserByID(ctx context.Context, id int64) (core.User, error) {
	u, err := r.queries.GetUserByID(ctx, id)
	if err != nil {
		return core.User{}, notFound(err, "get user")
	}
	return toCoreUser(u), nil
}

func (r *SQLiteRepository) UserByUsername(ctx context.Context, username string) (core.User, error) {
	u, err := r.queries.GetUserByUsername(ctx, username)
	if err != nil {
		return core.User{}, notFound(err, "get user by username")
	}
	return toCoreUser(u), nil
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := r.queries.GetUserByEmail(ctx, email)
	if err != nil {
		return core.User{}, notFound(err, "get user by email")
	}
	return toCoreUser(u), nil
}

func (r *SQLiteRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	n, err := r.queries.CountUsersByUsername(ctx, username)
	if err != nil {
		return false, fmt.Errorf("count users by username: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := r.queries.CountUsersByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("count users by email: %w", err)
	}
	return n > 0, nil
}

// CreateToken stores a single-use token for userID.
func (r *SQLiteRepository) CreateToken(ctx context.Context, userID int64, token, purpose string, expires time.Time) error {
	err := r.queries.CreateToken(ctx, CreateTokenParams{
		Token:     token,
		UserID:    userID,
		Purpose:   purpose,
		ExpiresAt: expires.Unix(),
		CreatedAt: r.now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("create token: %w", err)
	}
	return nil
}

// ActivateUser consumes an activation token and marks its user active.
func (r *SQLiteRepository) ActivateUser(ctx context.Context, token string) (core.User, error) {
	var u User
	err := r.inTx(ctx, func(q *Queries) error {
		userID, err := q.UseToken(ctx, r.now().Unix(), token, PurposeActivation)
		if err != nil {
			return notFound(err, "use activation token")
		}
		if err := q.ActivateUser(ctx, userID); err != nil {
			return fmt.Errorf("activate user: %w", err)
		}
		if u, err = q.GetUserByID(ctx, userID); err != nil {
			return notFound(err, "get user")
		}
		return nil
	})
	if err != nil {
		return core.User{}, err
	}
	return toCoreUser(u), nil
}

// ResetPassword consumes a reset token, stores the new hash and drops every
// session of the user.
func (r *SQLiteRepository) ResetPassword(ctx context.Context, token, passwordHash string) (core.User, error) {
	var u User
	err := r.inTx(ctx, func(q *Queries) error {
		userID, err := q.UseToken(ctx, r.now().Unix(), token, PurposePasswordReset)
		if err != nil {
			return notFound(err, "use reset token")
		}
		if err := q.UpdatePasswordHash(ctx, passwordHash, userID); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if err := q.DeleteUserSessions(ctx, userID); err != nil {
			return fmt.Errorf("delete sessions: %w", err)
		}
		if u, err = q.GetUserByID(ctx, userID); err != nil {
			return notFound(err, "get user")
		}
		return nil
	})
	if err != nil {
		return core.User{}, err
	}
	return toCoreUser(u), nil
}

func (r *SQLiteRepository) CreateSession(ctx context.Context, id string, userID int64, expires time.Time) error {
	if err := r.queries.CreateSession(ctx, id, userID, expires.Unix(), r.now().Unix()); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// SessionUser returns the owner of a live session.
func (r *SQLiteRepository) SessionUser(ctx context.Context, id string) (core.User, error) {
	u, err := r.queries.GetSessionUser(ctx, id, r.now().Unix())
	if err != nil {
		return core.User{}, notFound(err, "get session")
	}
	return toCoreUser(u), nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, id string) error {
	if err := r.queries.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions past their expiry and reports how many.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	n, err := r.queries.DeleteExpiredSessions(ctx, r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return n, nil
}
