package reconcile

import (
	"math"
	"sort"
	"time"

	"github.com/newthinker/quarterly/internal/core"
	"github.com/newthinker/quarterly/internal/period"
)

// RevenueConfig tunes revenue reconciliation
type RevenueConfig struct {
	Display            int
	WindowDays         float64
	AnnounceWindowDays float64
	// MatchTolerance is the absolute difference, in currency units, under
	// which a year-ago figure is taken to equal a reported actual. Zero
	// requires the figures to be identical.
	MatchTolerance float64
}

// DefaultRevenueConfig returns the standard revenue settings
func DefaultRevenueConfig() RevenueConfig {
	return RevenueConfig{
		Display:            12,
		WindowDays:         45,
		AnnounceWindowDays: 100,
		MatchTolerance:     0,
	}
}

// Forward-projection trend periods
const (
	TrendCurrentQuarter = "0q"
	TrendNextQuarter    = "+1q"
)

// RevenueHistoryMatch resolves period-end keyed revenue records by
// Q{quarter}-{year}, then by exact date, then by nearest date.
func RevenueHistoryMatch(cfg RevenueConfig) period.Matcher[core.RevenueQuarter] {
	return period.Chain[core.RevenueQuarter](
		period.SameFiscalQuarter[core.RevenueQuarter],
		period.SameDate[core.RevenueQuarter],
		period.Nearest[core.RevenueQuarter](period.Symmetric(cfg.WindowDays)),
	)
}

// RevenueAnnouncementMatch joins an announcement to the closest period end it
// follows, then falls back to the quarter key. History quarters are keyed by
// calendar quarter and announcements by fiscal quarter, so proximity does not
// compare the two keys.
func RevenueAnnouncementMatch(cfg RevenueConfig) period.Matcher[core.RevenueQuarter] {
	return period.Chain[core.RevenueQuarter](
		period.Where(revenueAnchor, period.Nearest[core.RevenueQuarter](period.After(cfg.AnnounceWindowDays))),
		period.SameFiscalQuarter[core.RevenueQuarter],
	)
}

func revenueAnchor(_, cand core.RevenueQuarter) bool {
	return !cand.Announced
}

// AnnouncementRevenue converts calendar announcements into revenue records
func AnnouncementRevenue(anns []core.Announcement, source string) []core.RevenueQuarter {
	out := make([]core.RevenueQuarter, 0, len(anns))
	for _, a := range anns {
		if a.RevenueActual == nil && a.RevenueEstimate == nil {
			continue
		}
		out = append(out, core.RevenueQuarter{
			Date:            period.Normalize(a.Date),
			Quarter:         a.Quarter,
			Year:            a.Year,
			RevenueActual:   a.RevenueActual,
			RevenueEstimate: a.RevenueEstimate,
			Source:          source,
			Announced:       true,
		})
	}
	return out
}

// Revenue merges revenue sources given in priority order, applies forward
// projections from trends, and returns the ascending history plus the
// display slice.
func Revenue(sources []Source[core.RevenueQuarter], trends []core.RevenueTrend, cfg RevenueConfig) (all, display []core.RevenueQuarter) {
	merged := Merge(sources)
	for i := range merged {
		r := &merged[i]
		r.Date = normalizedOr(r.Date)
		if r.Quarter == 0 || r.Year == 0 {
			if d, ok := period.Parse(r.Date); ok {
				r.Quarter, r.Year = period.QuarterOf(d), d.Year()
			}
		}
	}
	merged = Project(merged, trends, cfg.MatchTolerance)

	all = make([]core.RevenueQuarter, 0, len(merged))
	for _, r := range merged {
		if !r.HasValue() {
			continue
		}
		r.Beat = nil
		if r.RevenueActual != nil && r.RevenueEstimate != nil {
			r.Beat = core.Bool(*r.RevenueActual > *r.RevenueEstimate)
		}
		all = append(all, r)
	}

	// Order by (year, quarter), not by date string.
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Year != all[j].Year {
			return all[i].Year < all[j].Year
		}
		if all[i].Quarter != all[j].Quarter {
			return all[i].Quarter < all[j].Quarter
		}
		return all[i].Date < all[j].Date
	})

	display = all
	if cfg.Display > 0 && len(display) > cfg.Display {
		display = display[len(display)-cfg.Display:]
	}
	return all, display
}

// Project attaches forward revenue estimates. For each current or next
// quarter trend, the record whose actual equals the trend's year-ago revenue
// anchors the projection; the estimate goes to the same quarter one year
// later, creating a placeholder record when none exists.
func Project(recs []core.RevenueQuarter, trends []core.RevenueTrend, tolerance float64) []core.RevenueQuarter {
	for _, t := range trends {
		if t.Period != TrendCurrentQuarter && t.Period != TrendNextQuarter {
			continue
		}
		if t.Estimate == nil || t.YearAgoRevenue == nil {
			continue
		}

		for _, anchor := range recs {
			if anchor.RevenueActual == nil || math.Abs(*anchor.RevenueActual-*t.YearAgoRevenue) > tolerance {
				continue
			}
			ago, ok := period.Parse(anchor.Date)
			if !ok {
				continue
			}
			target := oneYearLater(ago)
			tq, ty := period.QuarterOf(target), target.Year()

			found := false
			for i := range recs {
				if recs[i].Quarter == tq && recs[i].Year == ty {
					if recs[i].RevenueEstimate == nil {
						recs[i].RevenueEstimate = t.Estimate
					}
					found = true
					break
				}
			}
			if !found {
				recs = append(recs, core.RevenueQuarter{
					Date:            target.Format(period.Layout),
					Quarter:         tq,
					Year:            ty,
					RevenueEstimate: t.Estimate,
					Source:          anchor.Source,
				})
			}
			break
		}
	}
	return recs
}

// oneYearLater keeps the month fixed, clamping Feb 29 to Feb 28.
func oneYearLater(t time.Time) time.Time {
	next := t.AddDate(1, 0, 0)
	if next.Month() != t.Month() {
		next = time.Date(t.Year()+1, t.Month()+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	}
	return next
}
