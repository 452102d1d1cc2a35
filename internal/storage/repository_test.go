package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *SQLiteRepository, name string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
	}, "tok-"+name, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func expense(owner int64, date, category, amount string) core.Transaction {
	d, _ := core.ParseDate(date)
	a, _ := core.ParseAmount(amount)
	return core.Transaction{OwnerID: owner, Kind: core.Expense, Date: d, Category: category, Account: "Cash", Amount: a}
}

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "alice")
	if u.Active {
		t.Fatalf("new users must be inactive")
	}

	if _, err := repo.CreateUser(ctx, core.User{Username: "ALICE", Email: "other@example.com", PasswordHash: "x"}, "t2", time.Now().Add(time.Hour)); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for username, got %v", err)
	}
	exists, err := repo.EmailExists(ctx, "Alice@Example.com")
	if err != nil || !exists {
		t.Fatalf("expected email to exist, got %v %v", exists, err)
	}

	activated, err := repo.ActivateUser(ctx, "tok-alice")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !activated.Active {
		t.Fatalf("expected active user")
	}
	if _, err := repo.ActivateUser(ctx, "tok-alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected token to be single use, got %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "bob")
	if err := repo.CreateToken(ctx, u.ID, "old", PurposePasswordReset, time.Now().Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.ResetPassword(ctx, "old", "newhash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
	// An activation token cannot be used for a reset.
	if _, err := repo.ResetPassword(ctx, "tok-bob", "newhash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected wrong purpose to fail, got %v", err)
	}
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "carol")

	if err := repo.CreateSession(ctx, "live", u.ID, time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateSession(ctx, "dead", u.ID, time.Now().Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	got, err := repo.SessionUser(ctx, "live")
	if err != nil || got.ID != u.ID {
		t.Fatalf("expected session user %d, got %+v %v", u.ID, got, err)
	}
	if _, err := repo.SessionUser(ctx, "dead"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session to be ignored, got %v", err)
	}
	n, err := repo.DeleteExpiredSessions(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 expired session removed, got %d %v", n, err)
	}
	if err := repo.DeleteSession(ctx, "live"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.SessionUser(ctx, "live"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deleted session, got %v", err)
	}
}

func TestTransactionsAndBalance(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "dave")

	created, bal, err := repo.CreateTransaction(ctx, expense(u.ID, "2024-01-05", "food", "10.00"))
	if err != nil {
		t.Fatal(err)
	}
	if bal.TotalExpenses.String() != "10.00" || bal.Balance.String() != "-10.00" {
		t.Fatalf("unexpected balance %+v", bal)
	}

	income := expense(u.ID, "2024-01-31", "salary", "1500,50")
	income.Kind = core.Income
	if _, bal, err = repo.CreateTransaction(ctx, income); err != nil {
		t.Fatal(err)
	}
	if bal.Balance.String() != "1490.50" {
		t.Fatalf("unexpected balance %s", bal.Balance)
	}

	created.Amount = core.MoneyFromCents(2500)
	if _, bal, err = repo.UpdateTransaction(ctx, created); err != nil {
		t.Fatal(err)
	}
	if bal.TotalExpenses.String() != "25.00" {
		t.Fatalf("unexpected expenses after update %s", bal.TotalExpenses)
	}

	// Wrong kind must not match.
	wrong := created
	wrong.Kind = core.Income
	if _, _, err := repo.UpdateTransaction(ctx, wrong); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	deleted, bal, err := repo.DeleteTransaction(ctx, u.ID, core.Expense, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if deleted.ID != created.ID || !bal.TotalExpenses.IsZero() {
		t.Fatalf("unexpected delete result %+v %+v", deleted, bal)
	}

	stored, err := repo.Balance(ctx, u.ID)
	if err != nil || stored.Balance.String() != "1500.50" {
		t.Fatalf("unexpected stored balance %+v %v", stored, err)
	}
}

func TestBalanceCreatedLazily(t *testing.T) {
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "erin")
	b, err := repo.Balance(context.Background(), u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !b.Balance.IsZero() || !b.TotalIncomes.IsZero() {
		t.Fatalf("expected zero balance, got %+v", b)
	}
}

func TestOtherOwnersAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a := newTestUser(t, repo, "frank")
	b := newTestUser(t, repo, "grace")

	tx, _, err := repo.CreateTransaction(ctx, expense(a.ID, "2024-02-01", "food", "3"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetTransaction(ctx, b.ID, core.Expense, tx.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected other owner to miss, got %v", err)
	}
	if _, _, err := repo.DeleteTransaction(ctx, b.ID, core.Expense, tx.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected other owner delete to miss, got %v", err)
	}
}

func TestQueryTransactionsInclusiveRange(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "heidi")
	for _, d := range []string{"2023-12-31", "2024-01-01", "2024-01-15", "2024-01-31", "2024-02-01"} {
		if _, _, err := repo.CreateTransaction(ctx, expense(u.ID, d, "food", "1")); err != nil {
			t.Fatal(err)
		}
	}
	got, err := repo.QueryTransactions(ctx, u.ID, core.Expense, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 31))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].Date.String() != "2024-01-01" || got[2].Date.String() != "2024-01-31" {
		t.Fatalf("unexpected range result %+v", got)
	}
}

func TestSearchAndCount(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "ivan")
	fixtures := []core.Transaction{
		expense(u.ID, "2024-01-01", "Groceries", "12.50"),
		expense(u.ID, "2024-01-02", "Rent", "800"),
		expense(u.ID, "2024-01-03", "Fun", "7.05"),
	}
	fixtures[2].Description = "100% cinema"
	for _, tx := range fixtures {
		if _, _, err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatal(err)
		}
	}

	cases := []struct {
		search string
		want   int
	}{
		{"", 3},
		{"groc", 1},
		{"800.00", 1},
		{"7.05", 1},
		{"cash", 3},
		{"100%", 1},
		{"%", 1},
		{"nothing", 0},
	}
	for _, tc := range cases {
		n, err := repo.CountTransactions(ctx, u.ID, core.Expense, tc.search)
		if err != nil || n != tc.want {
			t.Fatalf("count %q: got %d %v, want %d", tc.search, n, err, tc.want)
		}
	}

	page, err := repo.SearchTransactions(ctx, u.ID, core.Expense, "", 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 2 || page[0].Date.String() != "2024-01-03" {
		t.Fatalf("expected newest first, got %+v", page)
	}
	all, err := repo.SearchTransactions(ctx, u.ID, core.Expense, "", -1, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected all rows, got %d %v", len(all), err)
	}
}

func TestPreferencesDefaultsAndSave(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "judy")

	p, err := repo.Preferences(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.RowsPerPage != 25 || p.CurrencyCode != "EUR" || len(p.Accounts) == 0 {
		t.Fatalf("unexpected defaults %+v", p)
	}

	p.RowsPerPage = 50
	p.Currency = "USD - US Dollar"
	p.CurrencyCode = "USD"
	p.Accounts = []string{"Wallet"}
	if err := repo.SavePreferences(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, err := repo.Preferences(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.RowsPerPage != 50 || got.CurrencyCode != "USD" || len(got.Accounts) != 1 || got.Accounts[0] != "Wallet" {
		t.Fatalf("unexpected saved preferences %+v", got)
	}
}

func TestConcurrentWritesKeepBalanceConsistent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "mallory")

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.CreateTransaction(ctx, expense(u.ID, "2024-03-01", "food", "1.01"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent create: %v", err)
		}
	}
	b, err := repo.Balance(ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if b.TotalExpenses.String() != "20.20" {
		t.Fatalf("expected 20.20, got %s", b.TotalExpenses)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.db")
	for i := 0; i < 2; i++ {
		version, err := RunMigrations(path)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if version != 1 {
			t.Fatalf("run %d: version = %d, want 1", i, version)
		}
	}
}
