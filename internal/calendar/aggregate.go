// Package calendar builds the cross-symbol earnings calendar from several
// announcement feeds.
package calendar

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/quarterly/internal/core"
	"github.com/newthinker/quarterly/internal/metrics"
	"github.com/newthinker/quarterly/internal/period"
	"github.com/newthinker/quarterly/internal/sector"
)

// Feed is one provider's calendar events
type Feed struct {
	Name   string
	Events []core.CalendarEvent
}

// Window is the inclusive date range kept in the calendar
type Window struct {
	From time.Time
	To   time.Time
}

// Around returns the window [now-back, now+forward] in whole days
func Around(now time.Time, backDays, forwardDays int) Window {
	return Window{
		From: now.AddDate(0, 0, -backDays),
		To:   now.AddDate(0, 0, forwardDays),
	}
}

// Contains reports whether a YYYY-MM-DD date falls inside the window
func (w Window) Contains(date string) bool {
	return date >= w.From.UTC().Format(period.Layout) && date <= w.To.UTC().Format(period.Layout)
}

// SectorLookup resolves a symbol's sector
type SectorLookup interface {
	Sector(symbol string) (string, bool)
}

// Aggregator merges calendar feeds into date buckets
type Aggregator struct {
	sectors  SectorLookup
	enricher *Enricher
	logger   *zap.Logger
	metrics  *metrics.Registry
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithSectors sets the sector lookup
func WithSectors(s SectorLookup) Option {
	return func(a *Aggregator) { a.sectors = s }
}

// WithEnricher sets the market-data backfill
func WithEnricher(e *Enricher) Option {
	return func(a *Aggregator) { a.enricher = e }
}

// WithLogger sets a logger
func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// WithMetrics sets the metrics registry
func WithMetrics(r *metrics.Registry) Option {
	return func(a *Aggregator) { a.metrics = r }
}

// NewAggregator creates an aggregator
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type pending struct {
	date  string
	entry core.CalendarEntry
}

// Build merges feeds given in priority order. A symbol lands in exactly one
// bucket: the first in-window date reported for it. A later feed reporting
// the same symbol and date fills fields the earlier one left empty. Entries
// still lacking both price and market cap are backfilled through the
// enricher. Buckets are ordered by market cap descending with missing caps
// last, then by symbol.
func (a *Aggregator) Build(ctx context.Context, feeds []Feed, window Window) core.Calendar {
	bySymbol := make(map[string]*pending)
	var order []string

	for _, feed := range feeds {
		for _, ev := range feed.Events {
			sym := strings.ToUpper(strings.TrimSpace(ev.Symbol))
			date := period.Normalize(ev.Date)
			if sym == "" || date == "" || !window.Contains(date) {
				continue
			}

			if p, ok := bySymbol[sym]; ok {
				if p.date == date {
					p.entry = fill(p.entry, ev)
				}
				continue
			}
			e := fill(core.CalendarEntry{Symbol: sym}, ev)
			bySymbol[sym] = &pending{date: date, entry: e}
			order = append(order, sym)
		}
	}

	var missing []string
	for _, sym := range order {
		e := bySymbol[sym].entry
		if e.Price == nil && e.MarketCap == nil {
			missing = append(missing, sym)
		}
	}
	if len(missing) > 0 && a.enricher != nil {
		quotes := a.enricher.Enrich(ctx, missing)
		for _, sym := range missing {
			if q, ok := quotes[sym]; ok {
				p := bySymbol[sym]
				p.entry = applyQuote(p.entry, q)
			}
		}
		a.logger.Debug("calendar enriched",
			zap.Int("missing", len(missing)),
			zap.Int("resolved", len(quotes)))
	}

	cal := make(core.Calendar)
	for _, sym := range order {
		p := bySymbol[sym]
		p.entry.Sector = a.sectorFor(sym, p.entry.Sector)
		if p.entry.Name == "" {
			p.entry.Name = sym
		}
		cal[p.date] = append(cal[p.date], p.entry)
	}
	for _, entries := range cal {
		sortEntries(entries)
	}

	a.metrics.SetCalendarSize(cal.Size())
	a.logger.Debug("calendar built",
		zap.Int("feeds", len(feeds)),
		zap.Int("symbols", len(order)),
		zap.Int("dates", len(cal)))
	return cal
}

func (a *Aggregator) sectorFor(symbol, fromFeed string) string {
	if a.sectors != nil {
		if s, ok := a.sectors.Sector(symbol); ok {
			return s
		}
	}
	if fromFeed != "" {
		return fromFeed
	}
	return sector.Other
}

// fill copies every field of ev that e is missing
func fill(e core.CalendarEntry, ev core.CalendarEvent) core.CalendarEntry {
	if e.Name == "" {
		e.Name = ev.Name
	}
	if e.Price == nil {
		e.Price = ev.Price
	}
	if e.ChangePercent == nil {
		e.ChangePercent = ev.ChangePercent
	}
	if e.MarketCap == nil {
		e.MarketCap = ev.MarketCap
	}
	if e.Sector == "" {
		e.Sector = ev.Sector
	}
	if e.EPSEstimate == nil {
		e.EPSEstimate = ev.EPSEstimate
	}
	if e.EPSTTM == nil {
		e.EPSTTM = ev.EPSTTM
	}
	return e
}

func applyQuote(e core.CalendarEntry, q core.Quote) core.CalendarEntry {
	if q.Name != "" && (e.Name == "" || e.Name == e.Symbol) {
		e.Name = q.Name
	}
	if e.Price == nil {
		e.Price = q.Price
	}
	if e.ChangePercent == nil {
		e.ChangePercent = q.ChangePercent
	}
	if e.MarketCap == nil {
		e.MarketCap = q.MarketCap
	}
	if e.EPSEstimate == nil {
		e.EPSEstimate = q.EPSForward
	}
	if e.EPSTTM == nil {
		e.EPSTTM = q.EPSTTM
	}
	return e
}

func sortEntries(entries []core.CalendarEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		mi, mj := entries[i].MarketCap, entries[j].MarketCap
		switch {
		case mi != nil && mj != nil && *mi != *mj:
			return *mi > *mj
		case mi != nil && mj == nil:
			return true
		case mi == nil && mj != nil:
			return false
		}
		return entries[i].Symbol < entries[j].Symbol
	})
}
