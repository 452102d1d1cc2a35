// Command fintrack-summary prints one user's category summary as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"fintrack/internal/analytics"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()

	var (
		username = flag.String("user", "", "username whose transactions are summarized")
		kind     = flag.String("kind", "expenses", "expenses or incomes")
		interval = flag.String("interval", "last-month", "one of: "+intervalKeys())
		calc     = flag.String("calc", "total", "total, mean or share")
		dbPath   = flag.String("db", cfg.SQLiteDBPath, "SQLite database path")
	)
	flag.Parse()

	cfg.LogLevel = "warn"
	logger := cli.SetupLogger(cfg, applog.ComponentAnalytics)

	if err := run(context.Background(), *dbPath, *username, *kind, *interval, *calc); err != nil {
		logger.Error("Summary failed", "error", err)
		fmt.Fprintln(os.Stderr, "fintrack-summary:", err)
		os.Exit(1)
	}
}

// intervalKeys lists the accepted -interval values, shortest window first.
func intervalKeys() string {
	var keys []string
	for _, iv := range analytics.Intervals() {
		keys = append(keys, iv.Key)
	}
	return strings.Join(keys, ", ")
}

func run(ctx context.Context, dbPath, username, kindName, interval, calc string) error {
	if username == "" {
		return fmt.Errorf("missing -user")
	}
	kind, err := core.ParseKind(kindName)
	if err != nil {
		return err
	}

	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()

	u, err := repo.UserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("find user %q: %w", username, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	summary, err := analytics.NewService(repo).Summarize(ctx, u.ID, kind, interval, calc)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
