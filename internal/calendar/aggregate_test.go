package calendar

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/quarterly/internal/core"
	"github.com/newthinker/quarterly/internal/sector"
)

var now = time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

func f(v float64) *float64 { return core.Float(v) }

func symbols(entries []core.CalendarEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Symbol
	}
	return out
}

func TestWindow(t *testing.T) {
	w := Around(now, 84, 84)
	assert.True(t, w.Contains("2024-03-01"))
	assert.True(t, w.Contains("2023-12-08"))
	assert.True(t, w.Contains("2024-05-24"))
	assert.False(t, w.Contains("2023-12-07"))
	assert.False(t, w.Contains("2024-05-25"))
}

func TestBuild_DedupAndFill(t *testing.T) {
	feeds := []Feed{
		{Name: "screener", Events: []core.CalendarEvent{
			{Symbol: "AAA", Date: "2024-03-05", Name: "Alpha"},
			{Symbol: "BBB", Date: "2024-03-05", Name: "Beta", MarketCap: f(5e9)},
		}},
		{Name: "finnhub", Events: []core.CalendarEvent{
			{Symbol: "aaa", Date: "2024-03-05", Price: f(12), MarketCap: f(1e9), EPSEstimate: f(0.4)},
			{Symbol: "BBB", Date: "2024-03-07", MarketCap: f(9e9)},
		}},
	}

	cal := NewAggregator().Build(context.Background(), feeds, Around(now, 84, 84))

	require.Len(t, cal, 1, "BBB keeps its first-seen date")
	day := cal["2024-03-05"]
	require.Len(t, day, 2)
	assert.Equal(t, []string{"BBB", "AAA"}, symbols(day))

	aaa := day[1]
	assert.Equal(t, "Alpha", aaa.Name)
	assert.Equal(t, 12.0, *aaa.Price, "later feed fills absent price")
	assert.Equal(t, 0.4, *aaa.EPSEstimate)
	assert.Equal(t, 5e9, *day[0].MarketCap, "first feed's market cap wins")
	assert.Equal(t, sector.Other, aaa.Sector)
}

func TestBuild_WindowAppliedBeforeDedup(t *testing.T) {
	feeds := []Feed{
		{Name: "a", Events: []core.CalendarEvent{{Symbol: "OLD", Date: "2022-01-01", MarketCap: f(1)}}},
		{Name: "b", Events: []core.CalendarEvent{{Symbol: "OLD", Date: "2024-03-10", MarketCap: f(2)}}},
	}

	cal := NewAggregator().Build(context.Background(), feeds, Around(now, 84, 84))
	require.Contains(t, cal, "2024-03-10")
	assert.Equal(t, 2.0, *cal["2024-03-10"][0].MarketCap)
	assert.Equal(t, 1, cal.Size())
}

func TestBuild_SortNilLastAndTieBreak(t *testing.T) {
	feeds := []Feed{{Events: []core.CalendarEvent{
		{Symbol: "NIL2", Date: "2024-03-04"},
		{Symbol: "SMALL", Date: "2024-03-04", MarketCap: f(1e8)},
		{Symbol: "NIL1", Date: "2024-03-04"},
		{Symbol: "BIGB", Date: "2024-03-04", MarketCap: f(3e11)},
		{Symbol: "BIGA", Date: "2024-03-04", MarketCap: f(3e11)},
	}}}

	cal := NewAggregator().Build(context.Background(), feeds, Around(now, 7, 7))
	assert.Equal(t, []string{"BIGA", "BIGB", "SMALL", "NIL1", "NIL2"}, symbols(cal["2024-03-04"]))
}

func TestBuild_SectorPrecedence(t *testing.T) {
	feeds := []Feed{{Events: []core.CalendarEvent{
		{Symbol: "AAPL", Date: "2024-03-04", Sector: "Feed Sector"},
		{Symbol: "XYZ", Date: "2024-03-04", Sector: "Industrials"},
		{Symbol: "QQQQ", Date: "2024-03-04"},
	}}}

	agg := NewAggregator(WithSectors(sector.New(nil)))
	cal := agg.Build(context.Background(), feeds, Around(now, 7, 7))

	got := map[string]string{}
	for _, e := range cal["2024-03-04"] {
		got[e.Symbol] = e.Sector
	}
	assert.Equal(t, "Technology", got["AAPL"])
	assert.Equal(t, "Industrials", got["XYZ"])
	assert.Equal(t, sector.Other, got["QQQQ"])
}

func TestBuild_Idempotent(t *testing.T) {
	feeds := []Feed{
		{Events: []core.CalendarEvent{
			{Symbol: "A", Date: "2024-03-02", MarketCap: f(1)},
			{Symbol: "B", Date: "2024-03-02"},
			{Symbol: "C", Date: "2024-03-03", Price: f(3)},
		}},
		{Events: []core.CalendarEvent{{Symbol: "B", Date: "2024-03-02", Price: f(2)}}},
	}

	agg := NewAggregator()
	first := agg.Build(context.Background(), feeds, Around(now, 7, 7))
	second := agg.Build(context.Background(), feeds, Around(now, 7, 7))
	assert.Equal(t, first, second)
	assert.Nil(t, feeds[0].Events[1].Price, "inputs are not mutated")
}

type fakeQuotes struct {
	mu       sync.Mutex
	calls    [][]string
	inFlight int32
	peak     int32
	fail     map[string]bool
}

func (q *fakeQuotes) FetchQuotes(ctx context.Context, symbols []string) ([]core.Quote, error) {
	cur := atomic.AddInt32(&q.inFlight, 1)
	defer atomic.AddInt32(&q.inFlight, -1)
	for {
		p := atomic.LoadInt32(&q.peak)
		if cur <= p || atomic.CompareAndSwapInt32(&q.peak, p, cur) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	q.mu.Lock()
	q.calls = append(q.calls, append([]string(nil), symbols...))
	q.mu.Unlock()

	if q.fail[symbols[0]] {
		return nil, errors.New("upstream down")
	}
	out := make([]core.Quote, 0, len(symbols))
	for _, s := range symbols {
		out = append(out, core.Quote{Symbol: s, Name: s + " Inc", Price: f(10), MarketCap: f(1e9)})
	}
	return out, nil
}

func TestBuild_EnrichesMissingMarketData(t *testing.T) {
	feeds := []Feed{{Events: []core.CalendarEvent{
		{Symbol: "HAS", Date: "2024-03-04", Price: f(5)},
		{Symbol: "NEEDS", Date: "2024-03-04"},
	}}}

	quotes := &fakeQuotes{}
	agg := NewAggregator(WithEnricher(NewEnricher(quotes, EnrichConfig{}, nil, nil)))
	cal := agg.Build(context.Background(), feeds, Around(now, 7, 7))

	require.Len(t, quotes.calls, 1)
	assert.Equal(t, []string{"NEEDS"}, quotes.calls[0])

	day := cal["2024-03-04"]
	assert.Equal(t, "NEEDS", day[0].Symbol, "enriched market cap sorts first")
	assert.Equal(t, "NEEDS Inc", day[0].Name)
	assert.Equal(t, 1e9, *day[0].MarketCap)
	assert.Nil(t, day[1].MarketCap)
}

func TestEnricher_ChunkingBounds(t *testing.T) {
	var syms []string
	for i := 0; i < 23; i++ {
		syms = append(syms, string(rune('A'+i)))
	}

	quotes := &fakeQuotes{fail: map[string]bool{"F": true}}
	e := NewEnricher(quotes, EnrichConfig{ChunkSize: 5, MaxChunks: 4, Concurrency: 2}, nil, nil)
	got := e.Enrich(context.Background(), syms)

	require.Len(t, quotes.calls, 4, "chunks past MaxChunks are dropped")
	assert.LessOrEqual(t, atomic.LoadInt32(&quotes.peak), int32(2))

	var keys []string
	for k := range got {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"A", "B", "C", "D", "E", "K", "L", "M", "N", "O", "P", "Q", "R", "S", "T"}, keys,
		"failed chunk F..J contributes nothing")
}

func TestEnricher_NilSafe(t *testing.T) {
	var e *Enricher
	assert.Empty(t, e.Enrich(context.Background(), []string{"A"}))
	assert.Empty(t, NewEnricher(nil, EnrichConfig{}, nil, nil).Enrich(context.Background(), []string{"A"}))
}
