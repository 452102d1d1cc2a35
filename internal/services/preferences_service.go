package services

import (
	"context"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// PreferencesInput is a partial update. Nil lists are left untouched.
type PreferencesInput struct {
	Currency          string    `json:"currency"`
	RowsPerPage       int       `json:"rows_per_page"`
	ExpenseCategories *[]string `json:"expense_categories,omitempty"`
	IncomeCategories  *[]string `json:"income_categories,omitempty"`
	Accounts          *[]string `json:"accounts,omitempty"`
}

type PreferencesService struct {
	repo *storage.SQLiteRepository
}

func NewPreferencesService(repo *storage.SQLiteRepository) *PreferencesService {
	return &PreferencesService{repo: repo}
}

func (s *PreferencesService) Get(ctx context.Context, userID int64) (core.UserPreferences, error) {
	return s.repo.Preferences(ctx, userID)
}

// Update validates and stores the new preferences. An empty currency or a
// zero rows_per_page keeps the current value.
func (s *PreferencesService) Update(ctx context.Context, userID int64, in PreferencesInput) (core.UserPreferences, error) {
	p, err := s.repo.Preferences(ctx, userID)
	if err != nil {
		return core.UserPreferences{}, err
	}
	if c := strings.TrimSpace(in.Currency); c != "" {
		p.Currency = c
		p.CurrencyCode = core.CurrencyCode(c)
	}
	if in.RowsPerPage != 0 {
		p.RowsPerPage = in.RowsPerPage
	}
	if in.ExpenseCategories != nil {
		p.ExpenseCategories = core.NormalizeLabels(*in.ExpenseCategories)
	}
	if in.IncomeCategories != nil {
		p.IncomeCategories = core.NormalizeLabels(*in.IncomeCategories)
	}
	if in.Accounts != nil {
		p.Accounts = core.NormalizeLabels(*in.Accounts)
	}
	if err := p.Validate(); err != nil {
		return core.UserPreferences{}, err
	}
	if err := s.repo.SavePreferences(ctx, p); err != nil {
		return core.UserPreferences{}, err
	}
	return p, nil
}
