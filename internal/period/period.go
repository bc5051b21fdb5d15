// Package period resolves whether quarter records reported by different
// providers describe the same fiscal quarter.
package period

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Layout is the canonical date format for period keys
const Layout = "2006-01-02"

var layouts = []string{
	Layout,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// Parse reads a provider date string in any of the accepted layouts.
func Parse(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// Normalize returns s as YYYY-MM-DD, or "" if it cannot be parsed.
func Normalize(s string) string {
	t, ok := Parse(s)
	if !ok {
		return ""
	}
	return t.Format(Layout)
}

// Days returns b minus a in whole-day units
func Days(a, b time.Time) float64 {
	return b.Sub(a).Hours() / 24
}

// QuarterOf returns the calendar quarter (1-4) containing t
func QuarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// QuarterEnd returns the last day of calendar quarter q in year y
func QuarterEnd(q, y int) time.Time {
	firstOfNext := time.Date(y, time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1)
}

// Key returns the "Q{quarter}-{year}" identity used for revenue quarters
func Key(q, y int) string {
	return fmt.Sprintf("Q%d-%d", q, y)
}

// Keyed is implemented by quarter records that carry a period identity.
type Keyed interface {
	// PeriodDate is the record's date string, possibly empty
	PeriodDate() string
	// FiscalQuarter returns quarter and year, zero when unknown
	FiscalQuarter() (quarter, year int)
}

// Date returns the parsed PeriodDate of k.
func Date(k Keyed) (time.Time, bool) {
	return Parse(k.PeriodDate())
}

// BestDate returns the record's own date, falling back to the calendar end
// of its fiscal quarter.
func BestDate(k Keyed) (time.Time, bool) {
	if t, ok := Date(k); ok {
		return t, true
	}
	q, y := k.FiscalQuarter()
	if q >= 1 && q <= 4 && y > 0 {
		return QuarterEnd(q, y), true
	}
	return time.Time{}, false
}

// Identifiable reports whether k carries a date or a fiscal quarter.
func Identifiable(k Keyed) bool {
	_, ok := BestDate(k)
	return ok
}

// Matcher resolves rec against the canonical set and returns the index of
// the matching record, or -1.
type Matcher[T Keyed] func(rec T, canon []T) int

// Chain tries each matcher in order and returns the first match.
func Chain[T Keyed](matchers ...Matcher[T]) Matcher[T] {
	return func(rec T, canon []T) int {
		for _, m := range matchers {
			if i := m(rec, canon); i >= 0 {
				return i
			}
		}
		return -1
	}
}

// SameDate matches records whose normalized dates are equal.
func SameDate[T Keyed](rec T, canon []T) int {
	d := Normalize(rec.PeriodDate())
	if d == "" {
		return -1
	}
	for i, c := range canon {
		if Normalize(c.PeriodDate()) == d {
			return i
		}
	}
	return -1
}

// SameFiscalQuarter matches records carrying equal, non-zero quarter and year.
func SameFiscalQuarter[T Keyed](rec T, canon []T) int {
	q, y := rec.FiscalQuarter()
	if q == 0 || y == 0 {
		return -1
	}
	for i, c := range canon {
		cq, cy := c.FiscalQuarter()
		if cq == q && cy == y {
			return i
		}
	}
	return -1
}

// Window bounds the signed day difference (record date minus canonical
// date) accepted by a proximity match.
type Window struct {
	MinDays float64
	MaxDays float64
}

// Symmetric returns a window of ±days
func Symmetric(days float64) Window {
	return Window{MinDays: -days, MaxDays: days}
}

// After returns a window accepting records 0..days after the canonical date
func After(days float64) Window {
	return Window{MinDays: 0, MaxDays: days}
}

// Contains reports whether diff falls inside the window
func (w Window) Contains(diff float64) bool {
	return diff >= w.MinDays && diff <= w.MaxDays
}

// Nearest returns a matcher selecting the canonical record closest in time
// to rec within w. Ties keep the earliest canonical record, which is the one
// contributed by the higher-priority source.
//
// This is a linear scan per record, so a merge is O(n²) in the number of
// quarters. Histories are dozens of records, which keeps this negligible.
func Nearest[T Keyed](w Window) Matcher[T] {
	return func(rec T, canon []T) int {
		rd, ok := Date(rec)
		if !ok {
			return -1
		}
		best := -1
		bestDiff := math.Inf(1)
		for i, c := range canon {
			cd, ok := Date(c)
			if !ok {
				continue
			}
			diff := Days(cd, rd)
			if !w.Contains(diff) {
				continue
			}
			if abs := math.Abs(diff); abs < bestDiff {
				bestDiff = abs
				best = i
			}
		}
		return best
	}
}

// Where narrows the candidates m may choose from to those keep accepts for
// rec. Returned indices refer to the full canonical set.
func Where[T Keyed](keep func(rec, cand T) bool, m Matcher[T]) Matcher[T] {
	return func(rec T, canon []T) int {
		var idx []int
		var sub []T
		for i, c := range canon {
			if keep(rec, c) {
				idx = append(idx, i)
				sub = append(sub, c)
			}
		}
		if j := m(rec, sub); j >= 0 {
			return idx[j]
		}
		return -1
	}
}

// FiscalAgrees reports whether a and b could be the same fiscal quarter:
// false only when both carry a quarter and year and they differ.
func FiscalAgrees(a, b Keyed) bool {
	aq, ay := a.FiscalQuarter()
	bq, by := b.FiscalQuarter()
	if aq == 0 || ay == 0 || bq == 0 || by == 0 {
		return true
	}
	return aq == bq && ay == by
}

// ValueRule is the last-resort duplicate test: two records whose actual
// values differ by less than Epsilon and whose dates are less than Days
// apart. Both bounds are strict: adjacent quarter ends can be exactly 90
// days apart.
type ValueRule struct {
	Epsilon float64
	Days    float64
}

// DefaultValueRule is the EPS cleanup rule
var DefaultValueRule = ValueRule{Epsilon: 0.015, Days: 90}

// Duplicate reports whether a and b are the same quarter under the rule.
func (r ValueRule) Duplicate(a, b Keyed, av, bv *float64) bool {
	if av == nil || bv == nil {
		return false
	}
	if math.Abs(*av-*bv) >= r.Epsilon {
		return false
	}
	ad, ok := BestDate(a)
	if !ok {
		return false
	}
	bd, ok := BestDate(b)
	if !ok {
		return false
	}
	return math.Abs(Days(ad, bd)) < r.Days
}
