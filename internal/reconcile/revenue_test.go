package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/quarterly/internal/core"
	"github.com/newthinker/quarterly/internal/period"
)

func revenueSources(cfg RevenueConfig, history []core.RevenueQuarter, anns []core.Announcement) []Source[core.RevenueQuarter] {
	return []Source[core.RevenueQuarter]{
		{Name: "yahoo", Records: history, Match: RevenueHistoryMatch(cfg)},
		{Name: "finnhub.calendar", Records: AnnouncementRevenue(anns, "finnhub.calendar"), Match: RevenueAnnouncementMatch(cfg)},
	}
}

func TestRevenue_AnnouncementJoinsByProximity(t *testing.T) {
	cfg := DefaultRevenueConfig()
	history := []core.RevenueQuarter{
		{Date: "2023-09-30", Quarter: 3, Year: 2023, RevenueActual: f(2.30e9)},
		{Date: "2023-12-31", Quarter: 4, Year: 2023, RevenueActual: f(2.50e9)},
	}
	anns := []core.Announcement{
		// fiscal Q1 2024 reported 32 days after the calendar Q4 end
		{Date: "2024-02-01", Quarter: 1, Year: 2024, RevenueActual: f(2.49e9), RevenueEstimate: f(2.40e9)},
		{Date: "2024-04-25", Quarter: 2, Year: 2024, RevenueEstimate: f(2.60e9)},
	}

	all, display := Revenue(revenueSources(cfg, history, anns), nil, cfg)

	require.Len(t, all, 3)
	assert.Equal(t, all, display)

	q4 := all[1]
	assert.Equal(t, "2023-12-31", q4.Date)
	assert.Equal(t, 2.50e9, *q4.RevenueActual, "first writer keeps its actual")
	assert.Equal(t, 2.40e9, *q4.RevenueEstimate)
	require.NotNil(t, q4.Beat)
	assert.True(t, *q4.Beat)

	next := all[2]
	assert.Equal(t, 2, next.Quarter)
	assert.Equal(t, 2024, next.Year)
	assert.Nil(t, next.RevenueActual)
	assert.Nil(t, next.Beat)
}

func TestRevenue_KeyFallbackWhenNoPeriodNearby(t *testing.T) {
	cfg := DefaultRevenueConfig()
	history := []core.RevenueQuarter{
		{Date: "2023-06-30", Quarter: 2, Year: 2023, RevenueActual: f(5e8)},
	}
	anns := []core.Announcement{
		{Date: "2023-12-20", Quarter: 2, Year: 2023, RevenueEstimate: f(4.8e8)},
	}

	all, _ := Revenue(revenueSources(cfg, history, anns), nil, cfg)
	require.Len(t, all, 1)
	assert.Equal(t, 4.8e8, *all[0].RevenueEstimate)
	require.NotNil(t, all[0].Beat)
	assert.True(t, *all[0].Beat)
}

func TestRevenue_ForwardProjection(t *testing.T) {
	cfg := DefaultRevenueConfig()
	history := []core.RevenueQuarter{
		{Date: "2023-06-30", RevenueActual: f(100)},
		{Date: "2023-09-30", RevenueActual: f(110)},
	}
	trends := []core.RevenueTrend{
		{Period: TrendNextQuarter, Estimate: f(120), YearAgoRevenue: f(100)},
		{Period: "0y", Estimate: f(999), YearAgoRevenue: f(110)},
	}

	all, _ := Revenue(revenueSources(cfg, history, nil), trends, cfg)

	require.Len(t, all, 3)
	target := all[2]
	assert.Equal(t, "2024-06-30", target.Date)
	assert.Equal(t, 2, target.Quarter)
	assert.Equal(t, 2024, target.Year)
	assert.Equal(t, 120.0, *target.RevenueEstimate)
	assert.Nil(t, target.RevenueActual)
}

func TestRevenue_ProjectionFillsExistingWithoutOverwrite(t *testing.T) {
	history := []core.RevenueQuarter{
		{Date: "2023-06-30", Quarter: 2, Year: 2023, RevenueActual: f(100)},
		{Date: "2023-09-30", Quarter: 3, Year: 2023, RevenueActual: f(110)},
		{Date: "2024-06-30", Quarter: 2, Year: 2024, RevenueEstimate: f(118)},
		{Date: "2024-09-30", Quarter: 3, Year: 2024},
	}
	trends := []core.RevenueTrend{
		{Period: TrendCurrentQuarter, Estimate: f(120), YearAgoRevenue: f(100)},
		{Period: TrendNextQuarter, Estimate: f(130), YearAgoRevenue: f(110)},
	}

	out := Project(history, trends, 0.5)
	require.Len(t, out, 4)
	assert.Equal(t, 118.0, *out[2].RevenueEstimate)
	assert.Equal(t, 130.0, *out[3].RevenueEstimate)
}

func never(core.RevenueQuarter, []core.RevenueQuarter) int { return -1 }

func TestRevenue_SortByYearQuarterAndTruncate(t *testing.T) {
	cfg := DefaultRevenueConfig()
	var history []core.RevenueQuarter
	// fiscal labels whose dates do not sort the same way
	for y := 2020; y <= 2023; y++ {
		for q := 4; q >= 1; q-- {
			history = append(history, core.RevenueQuarter{
				Date:          "2019-01-01",
				Quarter:       q,
				Year:          y,
				RevenueActual: f(float64(y*10 + q)),
			})
		}
	}
	src := []Source[core.RevenueQuarter]{{Name: "fiscal", Records: history, Match: never}}

	all, display := Revenue(src, nil, cfg)
	require.Len(t, all, 16)
	require.Len(t, display, 12)
	assert.Equal(t, 1, all[0].Quarter)
	assert.Equal(t, 2020, all[0].Year)
	assert.Equal(t, 2021, display[0].Year)
	assert.Equal(t, 1, display[0].Quarter)
	assert.Equal(t, 4, display[11].Quarter)
	assert.Equal(t, 2023, display[11].Year)
}

func TestOneYearLater(t *testing.T) {
	tests := map[string]string{
		"2023-06-30": "2024-06-30",
		"2024-02-29": "2025-02-28",
		"2023-12-31": "2024-12-31",
	}
	for in, want := range tests {
		d, ok := period.Parse(in)
		require.True(t, ok)
		assert.Equal(t, want, oneYearLater(d).Format("2006-01-02"), in)
	}
}

func TestRevenue_ThreeYearCalendarAlongsideHistory(t *testing.T) {
	cfg := DefaultRevenueConfig()
	var history []core.RevenueQuarter
	for q := 1; q <= 4; q++ {
		history = append(history, core.RevenueQuarter{
			Date:          period.QuarterEnd(q, 2023).Format(period.Layout),
			Quarter:       q,
			Year:          2023,
			RevenueActual: f(float64(20+q) * 1e9),
		})
	}
	anns := quarterly(2021, 2023, func(i int, a *core.Announcement) {
		a.RevenueActual = f(float64(10+i) * 1e9)
		a.RevenueEstimate = f(float64(10+i)*1e9 - 1e8)
	})

	all, _ := Revenue(revenueSources(cfg, history, anns), nil, cfg)

	require.Len(t, all, 12)
	for i, r := range all {
		y, q := 2021+i/4, i%4+1
		assert.Equal(t, q, r.Quarter, "row %d", i)
		assert.Equal(t, y, r.Year, "row %d", i)
		require.NotNil(t, r.RevenueEstimate, "row %d", i)
	}

	// history actuals win, announcement estimates fill in
	q1 := all[8]
	assert.Equal(t, "2023-03-31", q1.Date)
	assert.Equal(t, 21e9, *q1.RevenueActual)
	assert.Equal(t, 18e9-1e8, *q1.RevenueEstimate)
}

func TestRevenue_ProjectionNeedsExactYearAgoByDefault(t *testing.T) {
	cfg := DefaultRevenueConfig()
	history := []core.RevenueQuarter{
		{Date: "2023-06-30", RevenueActual: f(100)},
		{Date: "2023-09-30", RevenueActual: f(100.4)},
	}
	trends := []core.RevenueTrend{
		{Period: TrendNextQuarter, Estimate: f(130), YearAgoRevenue: f(100.4)},
	}

	all, _ := Revenue(revenueSources(cfg, history, nil), trends, cfg)

	require.Len(t, all, 3)
	target := all[2]
	assert.Equal(t, 3, target.Quarter, "anchored on the identical figure, not the nearby one")
	assert.Equal(t, 2024, target.Year)
	assert.Equal(t, 130.0, *target.RevenueEstimate)
}
