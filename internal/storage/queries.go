package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    int64
}

type Transaction struct {
	ID          int64
	OwnerID     int64
	Kind        string
	Date        string
	Description string
	Category    string
	Account     string
	AmountCents int64
	CreatedAt   int64
	UpdatedAt   int64
}

type Balance struct {
	UserID             int64
	TotalExpensesCents int64
	TotalIncomesCents  int64
	UpdatedAt          int64
}

type UserPreferences struct {
	UserID            int64
	Currency          string
	CurrencyCode      string
	RowsPerPage       int64
	ExpenseCategories string
	IncomeCategories  string
	Accounts          string
	UpdatedAt         int64
}

const userColumns = `id, username, email, password_hash, active, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Active, &u.CreatedAt)
	return u, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (username, email, password_hash, active, created_at)
VALUES (?, ?, ?, 0, ?)
RETURNING ` + userColumns

type CreateUserParams struct {
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    int64
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, createUser, arg.Username, arg.Email, arg.PasswordHash, arg.CreatedAt))
}

const getUserByID = `-- name: GetUserByID :one
SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByUsername = `-- name: GetUserByUsername :one
SELECT ` + userColumns + ` FROM users WHERE username = ?`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByUsername, username))
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT ` + userColumns + ` FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const countUsersByUsername = `-- name: CountUsersByUsername :one
SELECT COUNT(*) FROM users WHERE username = ?`

func (q *Queries) CountUsersByUsername(ctx context.Context, username string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countUsersByUsername, username).Scan(&n)
	return n, err
}

const countUsersByEmail = `-- name: CountUsersByEmail :one
SELECT COUNT(*) FROM users WHERE email = ?`

func (q *Queries) CountUsersByEmail(ctx context.Context, email string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countUsersByEmail, email).Scan(&n)
	return n, err
}

const activateUser = `-- name: ActivateUser :exec
UPDATE users SET active = 1 WHERE id = ?`

func (q *Queries) ActivateUser(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, activateUser, id)
	return err
}

const updatePasswordHash = `-- name: UpdatePasswordHash :exec
UPDATE users SET password_hash = ? WHERE id = ?`

func (q *Queries) UpdatePasswordHash(ctx context.Context, hash string, id int64) error {
	_, err := q.db.ExecContext(ctx, updatePasswordHash, hash, id)
	return err
}

const createToken = `-- name: CreateToken :exec
INSERT INTO user_tokens (token, user_id, purpose, expires_at, created_at)
VALUES (?, ?, ?, ?, ?)`

type CreateTokenParams struct {
	Token     string
	UserID    int64
	Purpose   string
	ExpiresAt int64
	CreatedAt int64
}

func (q *Queries) CreateToken(ctx context.Context, arg CreateTokenParams) error {
	_, err := q.db.ExecContext(ctx, createToken, arg.Token, arg.UserID, arg.Purpose, arg.ExpiresAt, arg.CreatedAt)
	return err
}

const useToken = `-- name: UseToken :one
UPDATE user_tokens SET used_at = ?1
WHERE token = ?2 AND purpose = ?3 AND used_at IS NULL AND expires_at > ?1
RETURNING user_id`

// UseToken marks a live token as used and returns its user.
func (q *Queries) UseToken(ctx context.Context, now int64, token, purpose string) (int64, error) {
	var userID int64
	err := q.db.QueryRowContext(ctx, useToken, now, token, purpose).Scan(&userID)
	return userID, err
}

const createSession = `-- name: CreateSession :exec
INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`

func (q *Queries) CreateSession(ctx context.Context, id string, userID, expiresAt, createdAt int64) error {
	_, err := q.db.ExecContext(ctx, createSession, id, userID, expiresAt, createdAt)
	return err
}

const getSessionUser = `-- name: GetSessionUser :one
SELECT u.id, u.username, u.email, u.password_hash, u.active, u.created_at
FROM sessions s JOIN users u ON u.id = s.user_id
WHERE s.id = ? AND s.expires_at > ?`

func (q *Queries) GetSessionUser(ctx context.Context, id string, now int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getSessionUser, id, now))
}

const deleteSession = `-- name: DeleteSession :exec
DELETE FROM sessions WHERE id = ?`

func (q *Queries) DeleteSession(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, id)
	return err
}

const deleteUserSessions = `-- name: DeleteUserSessions :exec
DELETE FROM sessions WHERE user_id = ?`

func (q *Queries) DeleteUserSessions(ctx context.Context, userID int64) error {
	_, err := q.db.ExecContext(ctx, deleteUserSessions, userID)
	return err
}

const deleteExpiredSessions = `-- name: DeleteExpiredSessions :execrows
DELETE FROM sessions WHERE expires_at <= ?`

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredSessions, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const transactionColumns = `id, owner_id, kind, date, description, category, account, amount_cents, created_at, updated_at`

func scanTransaction(row interface{ Scan(...interface{}) error }) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.OwnerID, &t.Kind, &t.Date, &t.Description, &t.Category, &t.Account,
		&t.AmountCents, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func scanTransactions(rows *sql.Rows) ([]Transaction, error) {
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (owner_id, kind, date, description, category, account, amount_cents, created_at, updated_at)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7, ?8, ?8)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	OwnerID     int64
	Kind        string
	Date        string
	Description string
	Category    string
	Account     string
	AmountCents int64
	Now         int64
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, createTransaction,
		arg.OwnerID, arg.Kind, arg.Date, arg.Description, arg.Category, arg.Account, arg.AmountCents, arg.Now))
}

const updateTransaction = `-- name: UpdateTransaction :one
UPDATE transactions
SET date = ?4, description = ?5, category = ?6, account = ?7, amount_cents = ?8, updated_at = ?9
WHERE id = ?1 AND owner_id = ?2 AND kind = ?3
RETURNING ` + transactionColumns

type UpdateTransactionParams struct {
	ID          int64
	OwnerID     int64
	Kind        string
	Date        string
	Description string
	Category    string
	Account     string
	AmountCents int64
	Now         int64
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, updateTransaction,
		arg.ID, arg.OwnerID, arg.Kind, arg.Date, arg.Description, arg.Category, arg.Account, arg.AmountCents, arg.Now))
}

const deleteTransaction = `-- name: DeleteTransaction :one
DELETE FROM transactions WHERE id = ? AND owner_id = ? AND kind = ?
RETURNING ` + transactionColumns

func (q *Queries) DeleteTransaction(ctx context.Context, id, ownerID int64, kind string) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, deleteTransaction, id, ownerID, kind))
}

const getTransaction = `-- name: GetTransaction :one
SELECT ` + transactionColumns + ` FROM transactions WHERE id = ? AND owner_id = ? AND kind = ?`

func (q *Queries) GetTransaction(ctx context.Context, id, ownerID int64, kind string) (Transaction, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id, ownerID, kind))
}

const listTransactionsInRange = `-- name: ListTransactionsInRange :many
SELECT ` + transactionColumns + ` FROM transactions
WHERE owner_id = ? AND kind = ? AND date >= ? AND date <= ?
ORDER BY date, id`

func (q *Queries) ListTransactionsInRange(ctx context.Context, ownerID int64, kind, from, to string) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsInRange, ownerID, kind, from, to)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

// searchFilter matches ?3 against the free text columns and the amount rendered
// with two decimals. An empty ?3 matches everything.
const searchFilter = `owner_id = ?1 AND kind = ?2 AND (
    ?3 = ''
    OR description LIKE ?4 ESCAPE '\'
    OR category LIKE ?4 ESCAPE '\'
    OR account LIKE ?4 ESCAPE '\'
    OR (CAST(amount_cents / 100 AS TEXT) || '.' || printf('%02d', amount_cents % 100)) LIKE ?4 ESCAPE '\'
)`

const searchTransactions = `-- name: SearchTransactions :many
SELECT ` + transactionColumns + ` FROM transactions
WHERE ` + searchFilter + `
ORDER BY date DESC, id DESC
LIMIT ?5 OFFSET ?6`

type SearchTransactionsParams struct {
	OwnerID int64
	Kind    string
	Search  string
	Pattern string
	Limit   int64
	Offset  int64
}

func (q *Queries) SearchTransactions(ctx context.Context, arg SearchTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, searchTransactions,
		arg.OwnerID, arg.Kind, arg.Search, arg.Pattern, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

const countTransactions = `-- name: CountTransactions :one
SELECT COUNT(*) FROM transactions WHERE ` + searchFilter

func (q *Queries) CountTransactions(ctx context.Context, ownerID int64, kind, search, pattern string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countTransactions, ownerID, kind, search, pattern).Scan(&n)
	return n, err
}

const recomputeBalance = `-- name: RecomputeBalance :one
INSERT INTO balances (user_id, total_expenses_cents, total_incomes_cents, updated_at)
SELECT ?1,
    COALESCE(SUM(CASE WHEN kind = 'expense' THEN amount_cents END), 0),
    COALESCE(SUM(CASE WHEN kind = 'income' THEN amount_cents END), 0),
    ?2
FROM transactions WHERE owner_id = ?1
ON CONFLICT (user_id) DO UPDATE SET
    total_expenses_cents = excluded.total_expenses_cents,
    total_incomes_cents = excluded.total_incomes_cents,
    updated_at = excluded.updated_at
RETURNING user_id, total_expenses_cents, total_incomes_cents, updated_at`

// RecomputeBalance re-derives the user's balance row from the transactions table.
func (q *Queries) RecomputeBalance(ctx context.Context, userID, now int64) (Balance, error) {
	var b Balance
	err := q.db.QueryRowContext(ctx, recomputeBalance, userID, now).
		Scan(&b.UserID, &b.TotalExpensesCents, &b.TotalIncomesCents, &b.UpdatedAt)
	return b, err
}

const getBalance = `-- name: GetBalance :one
SELECT user_id, total_expenses_cents, total_incomes_cents, updated_at FROM balances WHERE user_id = ?`

func (q *Queries) GetBalance(ctx context.Context, userID int64) (Balance, error) {
	var b Balance
	err := q.db.QueryRowContext(ctx, getBalance, userID).
		Scan(&b.UserID, &b.TotalExpensesCents, &b.TotalIncomesCents, &b.UpdatedAt)
	return b, err
}

const getPreferences = `-- name: GetPreferences :one
SELECT user_id, currency, currency_code, rows_per_page, expense_categories, income_categories, accounts, updated_at
FROM user_preferences WHERE user_id = ?`

func (q *Queries) GetPreferences(ctx context.Context, userID int64) (UserPreferences, error) {
	var p UserPreferences
	err := q.db.QueryRowContext(ctx, getPreferences, userID).Scan(&p.UserID, &p.Currency, &p.CurrencyCode,
		&p.RowsPerPage, &p.ExpenseCategories, &p.IncomeCategories, &p.Accounts, &p.UpdatedAt)
	return p, err
}

const upsertPreferences = `-- name: UpsertPreferences :exec
INSERT INTO user_preferences (user_id, currency, currency_code, rows_per_page, expense_categories, income_categories, accounts, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    currency = excluded.currency,
    currency_code = excluded.currency_code,
    rows_per_page = excluded.rows_per_page,
    expense_categories = excluded.expense_categories,
    income_categories = excluded.income_categories,
    accounts = excluded.accounts,
    updated_at = excluded.updated_at`

func (q *Queries) UpsertPreferences(ctx context.Context, p UserPreferences) error {
	_, err := q.db.ExecContext(ctx, upsertPreferences, p.UserID, p.Currency, p.CurrencyCode, p.RowsPerPage,
		p.ExpenseCategories, p.IncomeCategories, p.Accounts, p.UpdatedAt)
	return err
}
