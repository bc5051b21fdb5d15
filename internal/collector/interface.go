package collector

import (
	"context"
	"time"

	"github.com/newthinker/quarterly/internal/core"
)

// Config holds collector configuration
type Config struct {
	Enabled   bool
	APIKey    string
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	// Priority orders collectors for reconciliation; lower runs first
	Priority int
	Extra    map[string]any
}

// Collector is the common surface of every provider adapter
type Collector interface {
	Name() string
}

// EarningsCollector fetches one symbol's earnings contribution
type EarningsCollector interface {
	Collector
	FetchEarnings(ctx context.Context, symbol string) (*core.EarningsPayload, error)
}

// CalendarCollector fetches announcement events across symbols
type CalendarCollector interface {
	Collector
	FetchCalendar(ctx context.Context, from, to time.Time) ([]core.CalendarEvent, error)
}

// QuoteCollector fetches market snapshots for a batch of symbols
type QuoteCollector interface {
	Collector
	FetchQuotes(ctx context.Context, symbols []string) ([]core.Quote, error)
}
