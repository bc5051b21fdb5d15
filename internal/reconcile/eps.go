package reconcile

import (
	"math"
	"sort"

	"github.com/newthinker/quarterly/internal/core"
	"github.com/newthinker/quarterly/internal/period"
)

// EPSConfig tunes EPS reconciliation
type EPSConfig struct {
	// Display is how many of the most recent quarters are shown
	Display int
	// WindowDays is the ± proximity tolerance between period-end feeds
	WindowDays float64
	// AnnounceWindowDays is how far after a period end an announcement may fall
	AnnounceWindowDays float64
	// Value is the final cleanup rule
	Value period.ValueRule
}

// DefaultEPSConfig returns the standard EPS settings
func DefaultEPSConfig() EPSConfig {
	return EPSConfig{
		Display:            16,
		WindowDays:         45,
		AnnounceWindowDays: 100,
		Value:              period.DefaultValueRule,
	}
}

// EPSResult holds the merged EPS history
type EPSResult struct {
	// All is the full ascending history, used for streaks
	All []core.EPSQuarter
	// Display is the most recent slice of All
	Display []core.EPSQuarter
}

// EPSHistoryMatch resolves period-end keyed EPS records: exact date, then
// fiscal quarter, then nearest date within the window.
func EPSHistoryMatch(cfg EPSConfig) period.Matcher[core.EPSQuarter] {
	return period.Chain[core.EPSQuarter](
		period.SameDate[core.EPSQuarter],
		period.SameFiscalQuarter[core.EPSQuarter],
		period.Nearest[core.EPSQuarter](period.Symmetric(cfg.WindowDays)),
	)
}

// EPSAnnouncementMatch resolves announcement-dated EPS records: fiscal
// quarter, then the closest period end the announcement follows. Proximity
// only considers period-end records whose fiscal quarter does not contradict
// the announcement's.
func EPSAnnouncementMatch(cfg EPSConfig) period.Matcher[core.EPSQuarter] {
	return period.Chain[core.EPSQuarter](
		period.SameFiscalQuarter[core.EPSQuarter],
		period.Where(epsAnchor, period.Nearest[core.EPSQuarter](period.After(cfg.AnnounceWindowDays))),
	)
}

func epsAnchor(rec, cand core.EPSQuarter) bool {
	return !cand.Announced && period.FiscalAgrees(rec, cand)
}

// AnnouncementEPS converts calendar announcements into EPS quarter records
// dated by announcement.
func AnnouncementEPS(anns []core.Announcement, source string) []core.EPSQuarter {
	out := make([]core.EPSQuarter, 0, len(anns))
	for _, a := range anns {
		if a.EPSActual == nil && a.EPSEstimate == nil {
			continue
		}
		out = append(out, core.EPSQuarter{
			Period:    period.Normalize(a.Date),
			Quarter:   a.Quarter,
			Year:      a.Year,
			Actual:    a.EPSActual,
			Estimate:  a.EPSEstimate,
			Source:    source,
			Announced: true,
		})
	}
	return out
}

// EPS merges EPS sources given in priority order.
func EPS(sources []Source[core.EPSQuarter], cfg EPSConfig) EPSResult {
	merged := Merge(sources)
	merged = DedupByValue(merged, cfg.Value, func(q core.EPSQuarter) *float64 { return q.Actual })

	all := make([]core.EPSQuarter, 0, len(merged))
	for _, q := range merged {
		if !q.HasValue() {
			continue
		}
		q.Period = normalizedOr(q.Period)
		all = append(all, annotateEPS(q))
	}
	sortByBestDate(all)

	display := all
	if cfg.Display > 0 && len(display) > cfg.Display {
		display = display[len(display)-cfg.Display:]
	}
	return EPSResult{All: all, Display: display}
}

func annotateEPS(q core.EPSQuarter) core.EPSQuarter {
	q.Beat = nil
	if q.Actual == nil || q.Estimate == nil {
		return q
	}
	q.Beat = core.Bool(*q.Actual > *q.Estimate)
	if q.SurprisePercent == nil && *q.Estimate != 0 {
		q.SurprisePercent = core.Float((*q.Actual - *q.Estimate) / math.Abs(*q.Estimate) * 100)
	}
	return q
}

func sortByBestDate(qs []core.EPSQuarter) {
	sort.SliceStable(qs, func(i, j int) bool {
		di, _ := period.BestDate(qs[i])
		dj, _ := period.BestDate(qs[j])
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return qs[i].Period < qs[j].Period
	})
}

func normalizedOr(s string) string {
	if n := period.Normalize(s); n != "" {
		return n
	}
	return s
}
