package analysis

import (
	"sort"

	"github.com/newthinker/quarterly/internal/core"
)

// ComputeStreak returns the current run of quarters that share the same
// classification against consensus, counted from the newest quarter back.
// Quarters without an actual are ignored; quarters without an estimate are
// skipped without breaking the run.
func ComputeStreak(history []core.EPSQuarter) core.Streak {
	reported := make([]core.EPSQuarter, 0, len(history))
	for _, q := range history {
		if q.Actual != nil {
			reported = append(reported, q)
		}
	}
	sort.SliceStable(reported, func(i, j int) bool {
		return reported[i].Period > reported[j].Period
	})

	streak := core.Streak{Type: core.StreakNone}
	for _, q := range reported {
		if q.Estimate == nil {
			continue
		}
		c := classify(*q.Actual, *q.Estimate)
		if streak.Count == 0 {
			streak.Type = c
		} else if c != streak.Type {
			break
		}
		streak.Count++
	}
	return streak
}

func classify(actual, estimate float64) core.StreakType {
	switch {
	case actual > estimate:
		return core.StreakBeat
	case actual < estimate:
		return core.StreakMiss
	default:
		return core.StreakMet
	}
}
