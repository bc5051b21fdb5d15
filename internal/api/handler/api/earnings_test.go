// internal/api/handler/api/earnings_test.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/newthinker/quarterly/internal/api/response"
	"github.com/newthinker/quarterly/internal/core"
)

type stubService struct {
	report *core.EarningsReport
	cal    core.Calendar
	err    error
	symbol string
}

func (s *stubService) Lookup(_ context.Context, symbol string) (*core.EarningsReport, error) {
	s.symbol = symbol
	return s.report, s.err
}

func (s *stubService) Calendar(context.Context) (core.Calendar, error) {
	return s.cal, s.err
}

func serve(h http.HandlerFunc, pattern, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
	return w
}

func TestEarningsHandler_Lookup(t *testing.T) {
	svc := &stubService{report: &core.EarningsReport{
		Symbol: "AAPL",
		Streak: core.Streak{Type: core.StreakBeat, Count: 4},
	}}
	h := NewEarningsHandler(svc, nil)

	w := serve(h.Lookup, "GET /api/v1/earnings/{symbol}", "/api/v1/earnings/aapl")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if svc.symbol != "aapl" {
		t.Errorf("expected raw path symbol, got %q", svc.symbol)
	}

	var resp struct {
		Data core.EarningsReport `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Streak.Count != 4 {
		t.Errorf("expected streak 4, got %d", resp.Data.Streak.Count)
	}
}

func TestEarningsHandler_LookupErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"invalid symbol", core.ErrSymbolInvalid, http.StatusBadRequest, "SYMBOL_INVALID"},
		{"no sources", core.WrapError(core.ErrNoSources, errors.New("down")), http.StatusBadGateway, "NO_SOURCES"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEarningsHandler(&stubService{err: tt.err}, nil)
			w := serve(h.Lookup, "GET /api/v1/earnings/{symbol}", "/api/v1/earnings/X")

			if w.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, w.Code)
			}
			var resp response.ErrorResponse
			json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Error.Code != tt.body {
				t.Errorf("expected %s, got %s", tt.body, resp.Error.Code)
			}
		})
	}
}

func TestEarningsHandler_Calendar(t *testing.T) {
	svc := &stubService{cal: core.Calendar{
		"2024-03-05": {{Symbol: "AAA"}, {Symbol: "BBB"}},
		"2024-03-06": {{Symbol: "CCC"}},
	}}
	h := NewEarningsHandler(svc, nil)

	w := serve(h.Calendar, "GET /api/v1/earnings-calendar", "/api/v1/earnings-calendar")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp response.SuccessResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	data := resp.Data.(map[string]any)
	if data["dates"].(float64) != 2 {
		t.Errorf("expected 2 dates, got %v", data["dates"])
	}
	if data["entries"].(float64) != 3 {
		t.Errorf("expected 3 entries, got %v", data["entries"])
	}
}
