package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"fintrack/internal/config"
	"fintrack/internal/core"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type fakeSheetsAPI struct {
	mu      sync.Mutex
	titles  []string
	calls   []string
	appends [][]any
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/spreadsheets/sheet-id"):
		f.calls = append(f.calls, "get")
		var sheets []map[string]any
		for _, t := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "batchUpdate")
		var req gsheet.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.titles = append(f.titles, rq.AddSheet.Properties.Title)
			}
		}
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPut:
		f.calls = append(f.calls, "header")
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		f.calls = append(f.calls, "append")
		var vr gsheet.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.appends = append(f.appends, vr.Values...)
		_, _ = io.WriteString(w, `{"updates":{"updatedRows":1}}`)
	default:
		http.Error(w, "unexpected "+r.Method+" "+path, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, api *fakeSheetsAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return New(svc, "sheet-id")
}

func sampleRow() ports.Row {
	amount, _ := core.ParseAmount("12,50")
	return ports.Row{
		Date:          core.NewDate(2024, 3, 9),
		Description:   "Groceries",
		Category:      "Food",
		Account:       "Card",
		Amount:        amount,
		Owner:         "alice",
		Event:         "created",
		TransactionID: 7,
	}
}

func TestAppendRowCreatesSheetOnce(t *testing.T) {
	api := &fakeSheetsAPI{titles: []string{"2023 Expenses"}}
	c := newTestClient(t, api)
	ctx := context.Background()

	if err := c.AppendRow(ctx, core.Expense, sampleRow()); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := c.AppendRow(ctx, core.Expense, sampleRow()); err != nil {
		t.Fatalf("second append: %v", err)
	}

	want := []string{"get", "batchUpdate", "header", "append", "append"}
	if strings.Join(api.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("expected calls %v, got %v", want, api.calls)
	}
	if len(api.appends) != 2 {
		t.Fatalf("expected 2 appended rows, got %d", len(api.appends))
	}
	got := api.appends[0]
	if got[0] != "2024-03-09" || got[1] != "Groceries" || got[4] != "12.50" || got[5] != "alice" {
		t.Errorf("unexpected row values %v", got)
	}
}

func TestAppendRowExistingSheet(t *testing.T) {
	api := &fakeSheetsAPI{titles: []string{"2024 Incomes"}}
	c := newTestClient(t, api)

	if err := c.AppendRow(context.Background(), core.Income, sampleRow()); err != nil {
		t.Fatalf("append: %v", err)
	}
	if strings.Join(api.calls, ",") != "get,append" {
		t.Fatalf("expected no sheet creation, got %v", api.calls)
	}
}

func TestAppendRowRejectsUnknownKind(t *testing.T) {
	c := New(&gsheet.Service{}, "sheet-id")
	if err := c.AppendRow(context.Background(), core.Kind("loan"), sampleRow()); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestAppendRowWithoutService(t *testing.T) {
	c := &Client{}
	if err := c.AppendRow(context.Background(), core.Expense, sampleRow()); err == nil {
		t.Fatal("expected error without service")
	}
}

func TestNewFromConfigMissingSpreadsheetID(t *testing.T) {
	_, err := NewFromConfig(context.Background(), &config.Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewFromConfigMissingCredentials(t *testing.T) {
	_, err := NewFromConfig(context.Background(), &config.Config{GoogleSpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewFromConfigUnreadableFile(t *testing.T) {
	cfg := &config.Config{GoogleSpreadsheetID: "x", GoogleServiceAccountFile: t.TempDir() + "/nope.json"}
	_, err := NewFromConfig(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSheetRangeQuotesTitle(t *testing.T) {
	if got := sheetRange("2024 Expenses"); got != "'2024 Expenses'!A:H" {
		t.Errorf("unexpected range %q", got)
	}
}
