package cache

import (
	"context"
	"time"

	"github.com/newthinker/quarterly/internal/collector"
	"github.com/newthinker/quarterly/internal/core"
	"github.com/newthinker/quarterly/internal/metrics"
)

// Default lifetimes
const (
	DefaultLookupTTL   = 300 * time.Second
	DefaultCalendarTTL = 120 * time.Second
	DefaultMaxEntries  = 500
)

// EarningsSource is what the cache wraps
type EarningsSource interface {
	Lookup(ctx context.Context, symbol string) (*core.EarningsReport, error)
	Calendar(ctx context.Context) (core.Calendar, error)
}

// Config sizes the earnings cache
type Config struct {
	LookupTTL   time.Duration
	CalendarTTL time.Duration
	MaxEntries  int
}

// Earnings caches successful lookups per normalized symbol and the calendar
// as a single entry. Errors are never cached.
type Earnings struct {
	next     EarningsSource
	reports  *Store[*core.EarningsReport]
	calendar *Store[core.Calendar]
	metrics  *metrics.Registry
}

const calendarKey = "calendar"

// NewEarnings wraps next. Zero config fields take the defaults.
func NewEarnings(next EarningsSource, cfg Config, reg *metrics.Registry) *Earnings {
	if cfg.LookupTTL <= 0 {
		cfg.LookupTTL = DefaultLookupTTL
	}
	if cfg.CalendarTTL <= 0 {
		cfg.CalendarTTL = DefaultCalendarTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	return &Earnings{
		next:     next,
		reports:  NewStore[*core.EarningsReport](cfg.MaxEntries, cfg.LookupTTL),
		calendar: NewStore[core.Calendar](1, cfg.CalendarTTL),
		metrics:  reg,
	}
}

// Lookup returns a cached report when one is fresh
func (c *Earnings) Lookup(ctx context.Context, symbol string) (*core.EarningsReport, error) {
	key, err := collector.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if r, ok := c.reports.Get(key); ok {
		c.metrics.RecordCache(true)
		return r, nil
	}
	c.metrics.RecordCache(false)

	r, err := c.next.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	c.reports.Set(key, r)
	return r, nil
}

// Calendar returns the cached calendar when fresh
func (c *Earnings) Calendar(ctx context.Context) (core.Calendar, error) {
	if cal, ok := c.calendar.Get(calendarKey); ok {
		c.metrics.RecordCache(true)
		return cal, nil
	}
	c.metrics.RecordCache(false)

	cal, err := c.next.Calendar(ctx)
	if err != nil {
		return nil, err
	}
	c.calendar.Set(calendarKey, cal)
	return cal, nil
}
