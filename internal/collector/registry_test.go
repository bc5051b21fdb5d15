package collector

import (
	"context"
	"testing"
	"time"

	"github.com/newthinker/quarterly/internal/core"
)

type mockCollector struct {
	name string
}

func (m *mockCollector) Name() string { return m.name }
func (m *mockCollector) FetchEarnings(ctx context.Context, symbol string) (*core.EarningsPayload, error) {
	return &core.EarningsPayload{Provider: m.name}, nil
}

type mockCalendar struct {
	name string
}

func (m *mockCalendar) Name() string { return m.name }
func (m *mockCalendar) FetchCalendar(ctx context.Context, from, to time.Time) ([]core.CalendarEvent, error) {
	return nil, nil
}
func (m *mockCalendar) FetchQuotes(ctx context.Context, symbols []string) ([]core.Quote, error) {
	return nil, nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	mock := &mockCollector{name: "mock"}
	r.Register(mock, 0)

	c, ok := r.Get("mock")
	if !ok {
		t.Fatal("expected to find registered collector")
	}

	if c.Name() != "mock" {
		t.Errorf("expected name 'mock', got '%s'", c.Name())
	}
}

func TestRegistry_GetAllPriorityOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockCollector{name: "c"}, 2)
	r.Register(&mockCollector{name: "a"}, 1)
	r.Register(&mockCollector{name: "b"}, 1)

	all := r.GetAll()
	if len(all) != 3 {
		t.Fatalf("expected 3 collectors, got %d", len(all))
	}
	want := []string{"a", "b", "c"}
	for i, c := range all {
		if c.Name() != want[i] {
			t.Errorf("position %d = %s, want %s", i, c.Name(), want[i])
		}
	}
}

func TestRegistry_ReRegisterKeepsOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockCollector{name: "a"}, 0)
	r.Register(&mockCollector{name: "b"}, 0)
	r.Register(&mockCollector{name: "a"}, 0)

	all := r.GetAll()
	if len(all) != 2 || all[0].Name() != "a" {
		t.Errorf("unexpected order: %v", all)
	}
}

func TestRegistry_ByCapability(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockCalendar{name: "screener"}, 1)
	r.Register(&mockCollector{name: "history"}, 0)

	if got := r.Earnings(); len(got) != 1 || got[0].Name() != "history" {
		t.Errorf("Earnings() = %v", got)
	}
	if got := r.Calendars(); len(got) != 1 || got[0].Name() != "screener" {
		t.Errorf("Calendars() = %v", got)
	}
	qc, ok := r.Quotes()
	if !ok || qc.Name() != "screener" {
		t.Errorf("Quotes() = %v, %v", qc, ok)
	}
}
