package services

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/analytics"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newTestUser(t *testing.T, repo *storage.SQLiteRepository, name string) core.User {
	t.Helper()
	ctx := context.Background()
	u, err := repo.CreateUser(ctx, core.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
	}, "tok-"+name, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []*amqp.EmailMessage
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg *amqp.EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func (m *fakeMailer) last(t *testing.T) *amqp.EmailMessage {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no email sent")
	}
	return m.sent[len(m.sent)-1]
}

// linkToken pulls the token out of the single link in an email body.
func linkToken(t *testing.T, body string) string {
	t.Helper()
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "http") {
			continue
		}
		if i := strings.Index(line, "token="); i >= 0 {
			return line[i+len("token="):]
		}
		return line[strings.LastIndex(line, "/")+1:]
	}
	t.Fatalf("no link in body %q", body)
	return ""
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.TransactionEvent
	err    error
}

func (p *fakePublisher) PublishTransactionEvent(_ context.Context, ev *amqp.TransactionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func fixedClock(date string) func() time.Time {
	d, _ := time.Parse(time.DateOnly, date)
	return func() time.Time { return d.Add(12 * time.Hour) }
}

func newTestSummaries(repo *storage.SQLiteRepository, now func() time.Time) *SummaryService {
	return newSummaryService(repo, cache.NewLRUCache[analytics.Summary](100, time.Minute), now)
}
