// Package earnings turns provider payloads into a reconciled per-symbol
// earnings report and drives the provider fan-out.
package earnings

import (
	"sort"
	"time"

	"github.com/newthinker/quarterly/internal/analysis"
	"github.com/newthinker/quarterly/internal/core"
	"github.com/newthinker/quarterly/internal/period"
	"github.com/newthinker/quarterly/internal/reconcile"
)

// Options tunes reconciliation
type Options struct {
	EPS     reconcile.EPSConfig
	Revenue reconcile.RevenueConfig
}

// DefaultOptions returns the standard reconciliation settings
func DefaultOptions() Options {
	return Options{
		EPS:     reconcile.DefaultEPSConfig(),
		Revenue: reconcile.DefaultRevenueConfig(),
	}
}

// Reconcile merges already-fetched payloads, given in provider priority
// order, into a report. Nil payloads stand for providers that returned
// nothing. It performs no I/O.
func Reconcile(symbol string, payloads []*core.EarningsPayload, now time.Time) *core.EarningsReport {
	return ReconcileWith(symbol, payloads, now, DefaultOptions())
}

// ReconcileWith is Reconcile with explicit options
func ReconcileWith(symbol string, payloads []*core.EarningsPayload, now time.Time, opts Options) *core.EarningsReport {
	eps := reconcile.EPS(epsSources(payloads, opts.EPS), opts.EPS)
	revAll, revDisplay := reconcile.Revenue(revenueSources(payloads, opts.Revenue), revenueTrends(payloads), opts.Revenue)

	streak := analysis.ComputeStreak(eps.All)
	rec := latestRecommendation(payloads)

	return &core.EarningsReport{
		Symbol:         symbol,
		EPSHistory:     eps.Display,
		RevenueHistory: revDisplay,
		Streak:         streak,
		Highlights: analysis.Highlights(analysis.Input{
			EPS:            eps.All,
			Revenue:        revAll,
			Streak:         streak,
			Recommendation: rec,
			Financials:     firstFinancials(payloads),
		}),
		NextEarningsDate: nextEarningsDate(payloads, now),
		Recommendation:   rec,
		Timestamp:        now,
	}
}

// epsSources orders every period-end history ahead of every announcement
// stream; within each group provider priority holds.
func epsSources(payloads []*core.EarningsPayload, cfg reconcile.EPSConfig) []reconcile.Source[core.EPSQuarter] {
	var history, announced []reconcile.Source[core.EPSQuarter]
	for _, p := range payloads {
		if p == nil {
			continue
		}
		if len(p.EPS) > 0 {
			history = append(history, reconcile.Source[core.EPSQuarter]{
				Name:    p.Provider,
				Records: p.EPS,
				Match:   reconcile.EPSHistoryMatch(cfg),
			})
		}
		if len(p.Announcements) > 0 {
			name := p.Provider + ".calendar"
			announced = append(announced, reconcile.Source[core.EPSQuarter]{
				Name:    name,
				Records: reconcile.AnnouncementEPS(p.Announcements, name),
				Match:   reconcile.EPSAnnouncementMatch(cfg),
			})
		}
	}
	return append(history, announced...)
}

func revenueSources(payloads []*core.EarningsPayload, cfg reconcile.RevenueConfig) []reconcile.Source[core.RevenueQuarter] {
	var history, announced []reconcile.Source[core.RevenueQuarter]
	for _, p := range payloads {
		if p == nil {
			continue
		}
		if len(p.Revenue) > 0 {
			history = append(history, reconcile.Source[core.RevenueQuarter]{
				Name:    p.Provider,
				Records: p.Revenue,
				Match:   reconcile.RevenueHistoryMatch(cfg),
			})
		}
		if len(p.Announcements) > 0 {
			name := p.Provider + ".calendar"
			announced = append(announced, reconcile.Source[core.RevenueQuarter]{
				Name:    name,
				Records: reconcile.AnnouncementRevenue(p.Announcements, name),
				Match:   reconcile.RevenueAnnouncementMatch(cfg),
			})
		}
	}
	return append(history, announced...)
}

// revenueTrends takes the trends of the first provider that has any
func revenueTrends(payloads []*core.EarningsPayload) []core.RevenueTrend {
	for _, p := range payloads {
		if p != nil && len(p.RevenueTrends) > 0 {
			return p.RevenueTrends
		}
	}
	return nil
}

func firstFinancials(payloads []*core.EarningsPayload) *core.Financials {
	for _, p := range payloads {
		if p != nil && p.Financials != nil {
			return p.Financials
		}
	}
	return nil
}

// latestRecommendation returns the newest period from the first provider
// that reported any.
func latestRecommendation(payloads []*core.EarningsPayload) *core.Recommendation {
	for _, p := range payloads {
		if p == nil || len(p.Recommendations) == 0 {
			continue
		}
		recs := append([]core.Recommendation(nil), p.Recommendations...)
		sort.SliceStable(recs, func(i, j int) bool {
			return period.Normalize(recs[i].Period) > period.Normalize(recs[j].Period)
		})
		latest := recs[0]
		return &latest
	}
	return nil
}

// nextEarningsDate is the earliest announcement strictly after now
func nextEarningsDate(payloads []*core.EarningsPayload, now time.Time) string {
	today := now.UTC().Format(period.Layout)
	next := ""
	for _, p := range payloads {
		if p == nil {
			continue
		}
		for _, a := range p.Announcements {
			d := period.Normalize(a.Date)
			if d == "" || d <= today {
				continue
			}
			if next == "" || d < next {
				next = d
			}
		}
	}
	return next
}
