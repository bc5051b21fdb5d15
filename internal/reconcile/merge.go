// Package reconcile merges per-provider quarter records into one
// deduplicated history.
package reconcile

import "github.com/newthinker/quarterly/internal/period"

// Record is a quarter record the generic merge can operate on
type Record[T any] interface {
	period.Keyed
	// Fill returns the receiver with its missing fields copied from other
	Fill(other T) T
	// HasValue reports whether the record carries any usable value
	HasValue() bool
}

// Source is one named provider stream and the strategy used to resolve its
// records against the canonical set.
type Source[T period.Keyed] struct {
	Name    string
	Records []T
	Match   period.Matcher[T]
}

// Merge applies sources in order. Each record is resolved against the
// records contributed by earlier sources: a match fills only the canonical
// record's missing fields, no match appends the record. A source never
// resolves against its own records, so the first source is taken verbatim
// and each provider's quarters stay distinct. Records with no value or no
// period identity are skipped.
func Merge[T Record[T]](sources []Source[T]) []T {
	var canon []T
	for _, src := range sources {
		base := len(canon)
		for _, rec := range src.Records {
			if !rec.HasValue() || !period.Identifiable(rec) {
				continue
			}
			i := -1
			if src.Match != nil && base > 0 {
				i = src.Match(rec, canon[:base])
			}
			if i >= 0 {
				canon[i] = canon[i].Fill(rec)
				continue
			}
			canon = append(canon, rec)
		}
	}
	return canon
}

// DedupByValue runs the value-proximity cleanup once over a merged set. A
// later record that duplicates an earlier one under rule is folded into it
// and discarded.
func DedupByValue[T Record[T]](recs []T, rule period.ValueRule, value func(T) *float64) []T {
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		merged := false
		for i := range out {
			if rule.Duplicate(out[i], r, value(out[i]), value(r)) {
				out[i] = out[i].Fill(r)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, r)
		}
	}
	return out
}
