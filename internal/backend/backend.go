// Package backend selects where the worker exports transaction events.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/config"
	"fintrack/internal/sheets"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/sheets/memory"
)

// Type names an export ledger implementation.
type Type string

const (
	SheetsBackend Type = "sheets"
	MemoryBackend Type = "memory"
	NoneBackend   Type = "none"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SheetsBackend, MemoryBackend, NoneBackend:
		return true
	default:
		return false
	}
}

// Types returns all valid backend types
func Types() []Type {
	return []Type{SheetsBackend, MemoryBackend, NoneBackend}
}

// TypeFromConfig reads EXPORT_BACKEND, defaulting to sheets when a
// spreadsheet is configured and to none otherwise.
func TypeFromConfig(cfg *config.Config) (Type, error) {
	if cfg == nil {
		return "", fmt.Errorf("app config is nil")
	}
	t := Type(cfg.ExportBackend)
	if t == "" {
		if cfg.HasSheets() {
			return SheetsBackend, nil
		}
		return NoneBackend, nil
	}
	if !t.IsValid() {
		return "", fmt.Errorf("invalid export backend %q: want one of %v", cfg.ExportBackend, Types())
	}
	if t == SheetsBackend && !cfg.HasSheets() {
		return "", fmt.Errorf("export backend sheets requires GOOGLE_SPREADSHEET_ID")
	}
	return t, nil
}

// sheetsFactory is replaced in tests.
var sheetsFactory = func(ctx context.Context, cfg *config.Config) (sheets.LedgerWriter, error) {
	return gsheet.NewFromConfig(ctx, cfg)
}

// NewLedger builds the configured export ledger. A nil ledger means events
// are acknowledged without being exported.
func NewLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger) (sheets.LedgerWriter, Type, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t, err := TypeFromConfig(cfg)
	if err != nil {
		return nil, "", err
	}

	switch t {
	case SheetsBackend:
		ledger, err := sheetsFactory(ctx, cfg)
		if err != nil {
			return nil, t, fmt.Errorf("initialize Google Sheets client: %w", err)
		}
		logger.Info("Initialized Google Sheets export", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		return ledger, t, nil
	case MemoryBackend:
		logger.Warn("Initialized in-memory export; rows are lost on exit")
		return memory.New(), t, nil
	default:
		logger.Info("Export disabled")
		return nil, t, nil
	}
}
