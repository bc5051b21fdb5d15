package finnhub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/quarterly/internal/collector"
	"github.com/newthinker/quarterly/internal/core"
)

func TestFinnhub_ImplementsCollectors(t *testing.T) {
	var _ collector.EarningsCollector = (*Finnhub)(nil)
	var _ collector.CalendarCollector = (*Finnhub)(nil)
}

func newTestServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if body == "429" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestCollector(srv *httptest.Server) *Finnhub {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return New(collector.Config{APIKey: "test-key", BaseURL: srv.URL, RateLimit: -1},
		WithClock(func() time.Time { return now }))
}

func TestFinnhub_FetchEarnings(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/stock/earnings": `[
			{"actual":2.18,"estimate":2.1,"period":"2023-12-31","quarter":1,"year":2024,"surprisePercent":3.81,"symbol":"AAPL"},
			{"actual":null,"estimate":null,"period":"","quarter":0,"year":0}
		]`,
		"/stock/recommendation": `[{"period":"2024-03-01","strongBuy":12,"buy":20,"hold":10,"sell":1,"strongSell":0,"symbol":"AAPL"}]`,
		"/calendar/earnings": `{"earningsCalendar":[
			{"date":"2024-02-01","epsActual":2.18,"epsEstimate":2.09,"hour":"amc","quarter":1,"revenueActual":119575000000,"revenueEstimate":117910000000,"symbol":"AAPL","year":2024},
			{"date":"2024-05-02","epsActual":null,"epsEstimate":1.5,"hour":"amc","quarter":2,"revenueActual":null,"revenueEstimate":90000000000,"symbol":"AAPL","year":2024}
		]}`,
	})

	payload, err := newTestCollector(srv).FetchEarnings(context.Background(), "aapl")
	require.NoError(t, err)

	assert.Equal(t, "finnhub", payload.Provider)
	require.Len(t, payload.EPS, 1)
	assert.Equal(t, "2023-12-31", payload.EPS[0].Period)
	assert.Equal(t, 1, payload.EPS[0].Quarter)
	assert.Equal(t, 3.81, *payload.EPS[0].SurprisePercent)

	require.Len(t, payload.Announcements, 2)
	assert.Equal(t, "2024-02-01", payload.Announcements[0].Date)
	assert.Equal(t, 119575000000.0, *payload.Announcements[0].RevenueActual)
	assert.Nil(t, payload.Announcements[1].EPSActual)

	require.Len(t, payload.Recommendations, 1)
	assert.Equal(t, 32, payload.Recommendations[0].Bullish())
}

func TestFinnhub_PartialFailureStillReturns(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/stock/earnings":       "429",
		"/stock/recommendation": `[]`,
		"/calendar/earnings":    `{"earningsCalendar":[{"date":"2024-02-01","epsActual":1.0,"epsEstimate":0.9,"quarter":1,"year":2024,"symbol":"X"}]}`,
	})

	payload, err := newTestCollector(srv).FetchEarnings(context.Background(), "X")
	require.NoError(t, err)
	assert.Empty(t, payload.EPS)
	assert.Len(t, payload.Announcements, 1)
}

func TestFinnhub_AllEndpointsFail(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/stock/earnings":       "429",
		"/stock/recommendation": "429",
		"/calendar/earnings":    "429",
	})

	_, err := newTestCollector(srv).FetchEarnings(context.Background(), "X")
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrRateLimited))
}

func TestFinnhub_InvalidSymbol(t *testing.T) {
	f := New(collector.Config{APIKey: "k"})
	_, err := f.FetchEarnings(context.Background(), "not a symbol")
	assert.True(t, errors.Is(err, core.ErrSymbolInvalid))
}

func TestFinnhub_MissingKey(t *testing.T) {
	f := New(collector.Config{BaseURL: "http://127.0.0.1:0"})
	_, err := f.FetchCalendar(context.Background(), time.Now(), time.Now())
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}

func TestFinnhub_FetchCalendar(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/calendar/earnings": `{"earningsCalendar":[
			{"date":"2024-03-05","epsEstimate":0.5,"symbol":"AAA"},
			{"date":"2024-03-06","symbol":""},
			{"date":"2024-03-07","epsEstimate":null,"symbol":"BBB"}
		]}`,
	})

	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	events, err := newTestCollector(srv).FetchCalendar(context.Background(), from, from.AddDate(0, 0, 14))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "AAA", events[0].Symbol)
	assert.Equal(t, 0.5, *events[0].EPSEstimate)
	assert.Equal(t, "2024-03-07", events[1].Date)
}
