package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/newthinker/quarterly/internal/core"
)

// MaxHighlights caps the number of generated insights
const MaxHighlights = 6

// Input is everything the highlight generator reads
type Input struct {
	// EPS and Revenue are ascending histories as produced by reconcile
	EPS            []core.EPSQuarter
	Revenue        []core.RevenueQuarter
	Streak         core.Streak
	Recommendation *core.Recommendation
	Financials     *core.Financials
}

// Highlights derives a short ordered list of insights. Each insight is
// emitted only when its inputs are present.
func Highlights(in Input) []core.Highlight {
	out := make([]core.Highlight, 0, MaxHighlights)
	for _, gen := range []func(Input) (core.Highlight, bool){
		latestResults,
		revenueGrowth,
		profitability,
		consistency,
		consensus,
		priceTarget,
	} {
		if h, ok := gen(in); ok {
			out = append(out, h)
		}
		if len(out) == MaxHighlights {
			break
		}
	}
	return out
}

func latestResults(in Input) (core.Highlight, bool) {
	var eps *core.EPSQuarter
	for i := len(in.EPS) - 1; i >= 0; i-- {
		if in.EPS[i].Actual != nil {
			eps = &in.EPS[i]
			break
		}
	}
	if eps == nil {
		return core.Highlight{}, false
	}

	var b strings.Builder
	if eps.Estimate != nil {
		fmt.Fprintf(&b, "EPS of %s %s the %s estimate (%s).",
			FormatEPS(*eps.Actual), verb(*eps.Actual, *eps.Estimate),
			FormatEPS(*eps.Estimate), FormatEPS(*eps.Actual-*eps.Estimate))
	} else {
		fmt.Fprintf(&b, "Reported EPS of %s.", FormatEPS(*eps.Actual))
	}

	if rev := revenueFor(in.Revenue, eps.Quarter, eps.Year); rev != nil {
		if rev.RevenueEstimate != nil {
			fmt.Fprintf(&b, " Revenue of %s %s the %s estimate.",
				FormatRevenue(*rev.RevenueActual), verb(*rev.RevenueActual, *rev.RevenueEstimate),
				FormatRevenue(*rev.RevenueEstimate))
		} else {
			fmt.Fprintf(&b, " Revenue came in at %s.", FormatRevenue(*rev.RevenueActual))
		}
	}

	title := "Latest Quarter Results"
	if eps.Quarter != 0 && eps.Year != 0 {
		title = fmt.Sprintf("Q%d %d Results", eps.Quarter, eps.Year)
	}
	return core.Highlight{Title: title, Detail: b.String()}, true
}

// revenueFor prefers the revenue quarter labelled like the EPS quarter and
// falls back to the latest reported revenue.
func revenueFor(revs []core.RevenueQuarter, q, y int) *core.RevenueQuarter {
	var latest *core.RevenueQuarter
	for i := len(revs) - 1; i >= 0; i-- {
		r := &revs[i]
		if r.RevenueActual == nil {
			continue
		}
		if q != 0 && r.Quarter == q && r.Year == y {
			return r
		}
		if latest == nil {
			latest = r
		}
	}
	return latest
}

func verb(actual, estimate float64) string {
	switch classify(actual, estimate) {
	case core.StreakBeat:
		return "beat"
	case core.StreakMiss:
		return "missed"
	default:
		return "met"
	}
}

func revenueGrowth(in Input) (core.Highlight, bool) {
	var reported []core.RevenueQuarter
	for _, r := range in.Revenue {
		if r.RevenueActual != nil {
			reported = append(reported, r)
		}
	}
	if len(reported) < 4 {
		return core.Highlight{}, false
	}

	last := reported[len(reported)-1]
	for _, prior := range reported {
		if prior.Quarter != last.Quarter || prior.Year != last.Year-1 || *prior.RevenueActual == 0 {
			continue
		}
		growth := (*last.RevenueActual - *prior.RevenueActual) / math.Abs(*prior.RevenueActual) * 100
		direction := "up"
		if growth < 0 {
			direction = "down"
		}
		return core.Highlight{
			Title: "Revenue Growth",
			Detail: fmt.Sprintf("Q%d %d revenue of %s is %s %s year over year from %s.",
				last.Quarter, last.Year, FormatRevenue(*last.RevenueActual), direction,
				FormatPercent(math.Abs(growth)), FormatRevenue(*prior.RevenueActual)),
		}, true
	}
	return core.Highlight{}, false
}

func profitability(in Input) (core.Highlight, bool) {
	f := in.Financials
	if f == nil {
		return core.Highlight{}, false
	}

	var parts []string
	add := func(label string, v *float64) {
		if v != nil {
			parts = append(parts, label+" "+FormatPercent(*v*100))
		}
	}
	add("gross margin", f.GrossMargin)
	add("operating margin", f.OperatingMargin)
	add("net margin", f.ProfitMargin)
	add("revenue growth", f.RevenueGrowth)
	add("earnings growth", f.EarningsGrowth)
	add("return on equity", f.ReturnOnEquity)
	if len(parts) == 0 {
		return core.Highlight{}, false
	}

	detail := strings.Join(parts, ", ")
	return core.Highlight{
		Title:  "Profitability",
		Detail: strings.ToUpper(detail[:1]) + detail[1:] + ".",
	}, true
}

func consistency(in Input) (core.Highlight, bool) {
	s := in.Streak
	if s.Count < 2 || s.Type == core.StreakNone {
		return core.Highlight{}, false
	}

	var what string
	switch s.Type {
	case core.StreakBeat:
		what = "Beat"
	case core.StreakMiss:
		what = "Missed"
	default:
		what = "Met"
	}
	return core.Highlight{
		Title:  "Earnings Consistency",
		Detail: fmt.Sprintf("%s EPS estimates %d quarters in a row.", what, s.Count),
	}, true
}

// ConsensusLabel buckets the share of buy and strong-buy ratings
func ConsensusLabel(bullishRatio float64) string {
	switch {
	case bullishRatio >= 0.7:
		return "Strong Buy"
	case bullishRatio >= 0.5:
		return "Buy"
	case bullishRatio >= 0.3:
		return "Hold"
	default:
		return "Sell"
	}
}

func consensus(in Input) (core.Highlight, bool) {
	r := in.Recommendation
	if r == nil || r.Total() <= 0 {
		return core.Highlight{}, false
	}

	ratio := float64(r.Bullish()) / float64(r.Total())
	return core.Highlight{
		Title: "Analyst Consensus",
		Detail: fmt.Sprintf("%s: %d of %d analysts (%s) rate it a buy.",
			ConsensusLabel(ratio), r.Bullish(), r.Total(), FormatPercent(ratio*100)),
	}, true
}

func priceTarget(in Input) (core.Highlight, bool) {
	f := in.Financials
	if f == nil || f.TargetMeanPrice == nil || f.CurrentPrice == nil || *f.CurrentPrice <= 0 {
		return core.Highlight{}, false
	}

	target, price := *f.TargetMeanPrice, *f.CurrentPrice
	change := (target - price) / price * 100
	direction := "upside"
	if change < 0 {
		direction = "downside"
	}
	return core.Highlight{
		Title: "Price Target",
		Detail: fmt.Sprintf("Mean analyst target of %s implies %s %s from %s.",
			formatPrice(target), FormatPercent(math.Abs(change)), direction, formatPrice(price)),
	}, true
}
