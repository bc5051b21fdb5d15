package collector

import (
	"sort"
	"sync"
)

type entry struct {
	c        Collector
	priority int
	seq      int
}

// Registry manages provider adapters and hands them out in priority order
type Registry struct {
	mu         sync.RWMutex
	collectors map[string]entry
	seq        int
}

// NewRegistry creates a new collector registry
func NewRegistry() *Registry {
	return &Registry{
		collectors: make(map[string]entry),
	}
}

// Register adds a collector with the given priority. Lower priorities are
// returned first; equal priorities keep registration order.
func (r *Registry) Register(c Collector, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seq := r.seq
	if old, ok := r.collectors[c.Name()]; ok {
		seq = old.seq
	} else {
		r.seq++
	}
	r.collectors[c.Name()] = entry{c: c, priority: priority, seq: seq}
}

// Get retrieves a collector by name
func (r *Registry) Get(name string) (Collector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.collectors[name]
	return e.c, ok
}

// GetAll returns all registered collectors in priority order
func (r *Registry) GetAll() []Collector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]entry, 0, len(r.collectors))
	for _, e := range r.collectors {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority < entries[j].priority
		}
		return entries[i].seq < entries[j].seq
	})

	result := make([]Collector, 0, len(entries))
	for _, e := range entries {
		result = append(result, e.c)
	}
	return result
}

// Earnings returns the earnings collectors in priority order
func (r *Registry) Earnings() []EarningsCollector {
	var out []EarningsCollector
	for _, c := range r.GetAll() {
		if ec, ok := c.(EarningsCollector); ok {
			out = append(out, ec)
		}
	}
	return out
}

// Calendars returns the calendar collectors in priority order
func (r *Registry) Calendars() []CalendarCollector {
	var out []CalendarCollector
	for _, c := range r.GetAll() {
		if cc, ok := c.(CalendarCollector); ok {
			out = append(out, cc)
		}
	}
	return out
}

// Quotes returns the first registered quote collector
func (r *Registry) Quotes() (QuoteCollector, bool) {
	for _, c := range r.GetAll() {
		if qc, ok := c.(QuoteCollector); ok {
			return qc, true
		}
	}
	return nil, false
}
