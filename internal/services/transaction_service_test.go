package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
)

func TestFlexStringUnmarshal(t *testing.T) {
	var in TransactionInput
	if err := json.Unmarshal([]byte(`{"amount": 12.5}`), &in); err != nil || in.Amount != "12.5" {
		t.Fatalf("number: %q %v", in.Amount, err)
	}
	if err := json.Unmarshal([]byte(`{"amount": "12,50"}`), &in); err != nil || in.Amount != "12,50" {
		t.Fatalf("string: %q %v", in.Amount, err)
	}
	if err := json.Unmarshal([]byte(`{"amount": true}`), &in); err == nil {
		t.Fatal("expected error for bool amount")
	}
}

func newTestTransactions(t *testing.T) (*TransactionService, *fakePublisher, core.User) {
	t.Helper()
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "alice")
	pub := &fakePublisher{}
	now := fixedClock("2024-03-31")
	s := NewTransactionService(repo, pub, newTestSummaries(repo, now))
	s.now = now
	return s, pub, u
}

func TestTransactionCreate(t *testing.T) {
	ctx := context.Background()
	s, pub, u := newTestTransactions(t)

	tx, bal, err := s.Create(ctx, u.ID, core.Expense, TransactionInput{
		Description: " Lunch ",
		Category:    "Food",
		Account:     "Cash",
		Amount:      "12,345",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tx.Date.String() != "2024-03-31" {
		t.Errorf("expected default date today, got %s", tx.Date)
	}
	if tx.Amount.String() != "12.35" || tx.Description != "Lunch" {
		t.Errorf("unexpected transaction %+v", tx)
	}
	if bal.TotalExpenses.String() != "12.35" || bal.Balance.String() != "-12.35" {
		t.Errorf("unexpected balance %+v", bal)
	}
	if pub.count() != 1 || pub.events[0].Event != amqp.EventCreated || pub.events[0].Snapshot.Amount.Cents() != 1235 {
		t.Fatalf("expected one created event, got %+v", pub.events)
	}
}

func TestTransactionValidation(t *testing.T) {
	ctx := context.Background()
	s, pub, u := newTestTransactions(t)

	tests := []struct {
		name string
		in   TransactionInput
		want error
	}{
		{"placeholder category", TransactionInput{Category: core.PlaceholderCategory, Account: "Cash", Amount: "1"}, core.ErrEmptyCategory},
		{"placeholder account", TransactionInput{Category: "Food", Account: core.PlaceholderAccount, Amount: "1"}, core.ErrEmptyAccount},
		{"amount too large", TransactionInput{Category: "Food", Account: "Cash", Amount: "100000000"}, core.ErrInvalidAmount},
		{"bad amount", TransactionInput{Category: "Food", Account: "Cash", Amount: "ten"}, core.ErrInvalidAmount},
		{"bad date", TransactionInput{Date: "2024-02-30", Category: "Food", Account: "Cash", Amount: "1"}, core.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := s.Create(ctx, u.ID, core.Expense, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if pub.count() != 0 {
		t.Fatalf("rejected input must not publish, got %d events", pub.count())
	}
}

func TestTransactionUpdateDeleteOwnership(t *testing.T) {
	ctx := context.Background()
	s, pub, u := newTestTransactions(t)
	other := newTestUser(t, s.repo, "mallory")

	tx, _, err := s.Create(ctx, u.ID, core.Income, TransactionInput{Date: "2024-03-01", Category: "Salary", Account: "Bank", Amount: "1000"})
	if err != nil {
		t.Fatal(err)
	}

	in := TransactionInput{Date: "2024-03-02", Category: "Salary", Account: "Bank", Amount: "1200.00"}
	if _, _, err := s.Update(ctx, other.ID, core.Income, tx.ID, in); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign update, got %v", err)
	}
	if _, _, err := s.Update(ctx, u.ID, core.Expense, tx.ID, in); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong kind, got %v", err)
	}
	updated, bal, err := s.Update(ctx, u.ID, core.Income, tx.ID, in)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Date.String() != "2024-03-02" || bal.Balance.String() != "1200.00" {
		t.Fatalf("unexpected update %+v %+v", updated, bal)
	}

	if _, _, err := s.Delete(ctx, other.ID, core.Income, tx.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign delete, got %v", err)
	}
	deleted, bal, err := s.Delete(ctx, u.ID, core.Income, tx.ID)
	if err != nil {
		t.Fatal(err)
	}
	if deleted.ID != tx.ID || !bal.Balance.IsZero() {
		t.Fatalf("unexpected delete %+v %+v", deleted, bal)
	}

	events := []string{}
	for _, ev := range pub.events {
		events = append(events, ev.Event)
	}
	want := []string{amqp.EventCreated, amqp.EventUpdated, amqp.EventDeleted}
	if fmt.Sprint(events) != fmt.Sprint(want) {
		t.Fatalf("expected events %v, got %v", want, events)
	}
}

func TestTransactionPublishFailureDoesNotFail(t *testing.T) {
	s, pub, u := newTestTransactions(t)
	pub.err = amqp.ErrCircuitOpen
	if _, _, err := s.Create(context.Background(), u.ID, core.Expense, TransactionInput{Category: "Food", Account: "Cash", Amount: "3"}); err != nil {
		t.Fatalf("publish failure must not fail the write: %v", err)
	}
}

func TestTransactionWithoutPublisher(t *testing.T) {
	repo := newTestRepo(t)
	u := newTestUser(t, repo, "alice")
	s := NewTransactionService(repo, nil, nil)
	if _, _, err := s.Create(context.Background(), u.ID, core.Expense, TransactionInput{Category: "Food", Account: "Cash", Amount: "3"}); err != nil {
		t.Fatal(err)
	}
}

func TestTransactionListPagination(t *testing.T) {
	ctx := context.Background()
	s, _, u := newTestTransactions(t)
	prefs := core.DefaultPreferences(u.ID)
	prefs.RowsPerPage = 10
	if err := s.repo.SavePreferences(ctx, prefs); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= 25; i++ {
		in := TransactionInput{Date: fmt.Sprintf("2024-01-%02d", i), Category: "Food", Account: "Cash", Amount: "1"}
		if i%5 == 0 {
			in.Description = "pizza night"
		}
		if _, _, err := s.Create(ctx, u.ID, core.Expense, in); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		page      int
		search    string
		wantPage  int
		wantPages int
		wantItems int
		wantFirst string
	}{
		{1, "", 1, 3, 10, "2024-01-25"},
		{3, "", 3, 3, 5, "2024-01-05"},
		{99, "", 3, 3, 5, "2024-01-05"},
		{0, "", 1, 3, 10, "2024-01-25"},
		{1, "PIZZA", 1, 1, 5, "2024-01-25"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d %q", tt.page, tt.search), func(t *testing.T) {
			p, err := s.List(ctx, u.ID, core.Expense, tt.page, tt.search)
			if err != nil {
				t.Fatal(err)
			}
			if p.Page != tt.wantPage || p.TotalPages != tt.wantPages || len(p.Items) != tt.wantItems || p.RowsPerPage != 10 {
				t.Fatalf("unexpected page %d/%d with %d items", p.Page, p.TotalPages, len(p.Items))
			}
			if p.Items[0].Date.String() != tt.wantFirst {
				t.Errorf("expected first %s, got %s", tt.wantFirst, p.Items[0].Date)
			}
		})
	}

	empty, err := s.List(ctx, u.ID, core.Income, 1, "")
	if err != nil {
		t.Fatal(err)
	}
	if empty.Items == nil || empty.TotalPages != 1 || empty.Total != 0 {
		t.Fatalf("unexpected empty page %+v", empty)
	}
}

func TestTransactionSearch(t *testing.T) {
	ctx := context.Background()
	s, _, u := newTestTransactions(t)
	for _, amt := range []string{"7.50", "17.5", "3"} {
		if _, _, err := s.Create(ctx, u.ID, core.Expense, TransactionInput{Category: "Food", Account: "Cash", Amount: FlexString(amt)}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.Search(ctx, u.ID, core.Expense, "7.50")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 7.50 and 17.50 to match, got %d", len(got))
	}
	none, err := s.Search(ctx, u.ID, core.Income, "7.50")
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("expected empty slice, got %v %v", none, err)
	}
}
