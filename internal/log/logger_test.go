package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func jsonLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{Level: slog.LevelDebug, Format: "json", Component: component, Output: buf})
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("decode log line %q: %v", line, err)
	}
	return m
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, ComponentAnalytics)
	l.InfoContext(context.Background(), "Summary computed", FieldUserID, 7)

	m := decodeLine(t, &buf)
	if m[FieldComponent] != ComponentAnalytics {
		t.Errorf("component = %v", m[FieldComponent])
	}
	if m[FieldUserID] != float64(7) {
		t.Errorf("user_id = %v", m[FieldUserID])
	}

	buf.Reset()
	l.WithComponent(ComponentStorage).Warn("slow query")
	if m := decodeLine(t, &buf); m[FieldComponent] != ComponentStorage {
		t.Errorf("component after WithComponent = %v", m[FieldComponent])
	}
}

func TestFieldsWithTransaction(t *testing.T) {
	tx := core.Transaction{ID: 3, OwnerID: 9, Kind: core.Income, Date: core.NewDate(2024, 2, 1), Category: "Salary", Account: "Bank", Amount: core.MoneyFromCents(123456)}
	f := NewFields().WithTransaction(tx).WithError(nil)
	if f[FieldAmountCents] != int64(123456) || f[FieldKind] != "income" || f[FieldDate] != "2024-02-01" {
		t.Errorf("unexpected fields %v", f)
	}
	if _, ok := f[FieldError]; ok {
		t.Errorf("nil error should not add a field")
	}
	s := f.ToSlice()
	if len(s) != 2*len(f) || s[0] != FieldAccount {
		t.Errorf("ToSlice should be sorted by key, got %v", s)
	}
}

func TestMiddlewareAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := jsonLogger(&buf, ComponentHTTP)
	h := Middleware(base, func(r *http.Request) string { return "req_abc" })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if m := decodeLine(t, &buf); m[FieldRequestID] != "req_abc" {
		t.Errorf("request_id = %v", m[FieldRequestID])
	}
}

func TestFromContextFallback(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Errorf("expected fallback logger, got %+v", l)
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	cases := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{503, "ERROR"},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		sl := NewStructuredLogger(jsonLogger(&buf, ComponentApp))
		sl.LogHTTPEnd(context.Background(), httptest.NewRequest(http.MethodGet, "/balance", nil), tc.status, 3, "10.0.0.1")
		m := decodeLine(t, &buf)
		if m["level"] != tc.level || m[FieldComponent] != ComponentHTTP {
			t.Errorf("status %d: level=%v component=%v", tc.status, m["level"], m[FieldComponent])
		}
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(jsonLogger(&buf, ComponentApp))
	sl.LogError(context.Background(), "Export failed", errors.New("quota"), ComponentSheets, OpExport, nil)
	m := decodeLine(t, &buf)
	if m[FieldError] != "quota" || m[FieldOperation] != OpExport || m[FieldComponent] != ComponentSheets {
		t.Errorf("unexpected record %v", m)
	}
}
