package core

import "time"

// Float returns a pointer to v. Optional numeric fields use nil for "absent".
func Float(v float64) *float64 {
	return &v
}

// Bool returns a pointer to v
func Bool(v bool) *bool {
	return &v
}

// Quote represents a point-in-time market snapshot used for calendar enrichment
type Quote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Price         *float64  `json:"price"`
	ChangePercent *float64  `json:"changePercent"`
	MarketCap     *float64  `json:"marketCap"`
	EPSForward    *float64  `json:"epsForward"`
	EPSTTM        *float64  `json:"epsTTM"`
	Time          time.Time `json:"time"`
	Source        string    `json:"source"`
}

// IsValid checks if the quote has required fields
func (q Quote) IsValid() bool {
	return q.Symbol != "" && (q.Price != nil || q.MarketCap != nil)
}

// EPSQuarter is one fiscal quarter of earnings-per-share data.
// Period is a YYYY-MM-DD date: the period end for history feeds, the
// announcement date for calendar feeds that never matched a period end.
type EPSQuarter struct {
	Period          string   `json:"period"`
	Quarter         int      `json:"quarter"`
	Year            int      `json:"year"`
	Actual          *float64 `json:"actual"`
	Estimate        *float64 `json:"estimate"`
	SurprisePercent *float64 `json:"surprisePercent"`
	Beat            *bool    `json:"beat"`
	Source          string   `json:"source,omitempty"`

	// Announced marks records dated by announcement rather than period end
	Announced bool `json:"-"`
}

// RevenueQuarter is one fiscal quarter of revenue data
type RevenueQuarter struct {
	Date            string   `json:"date"`
	Quarter         int      `json:"quarter"`
	Year            int      `json:"year"`
	RevenueActual   *float64 `json:"revenueActual"`
	RevenueEstimate *float64 `json:"revenueEstimate"`
	Beat            *bool    `json:"beat"`
	Source          string   `json:"source,omitempty"`

	// Announced marks records dated by announcement rather than period end
	Announced bool `json:"-"`
}

// Announcement is an earnings-calendar event for a single symbol, keyed by
// announcement date rather than period end.
type Announcement struct {
	Symbol          string   `json:"symbol"`
	Date            string   `json:"date"`
	Hour            string   `json:"hour,omitempty"`
	Quarter         int      `json:"quarter"`
	Year            int      `json:"year"`
	EPSActual       *float64 `json:"epsActual"`
	EPSEstimate     *float64 `json:"epsEstimate"`
	RevenueActual   *float64 `json:"revenueActual"`
	RevenueEstimate *float64 `json:"revenueEstimate"`
}

// RevenueTrend is a forward consensus revenue estimate for an upcoming
// quarter ("0q" current, "+1q" next) with the year-ago actual it compares to.
type RevenueTrend struct {
	Period         string   `json:"period"`
	Estimate       *float64 `json:"estimate"`
	YearAgoRevenue *float64 `json:"yearAgoRevenue"`
}

// Recommendation is an analyst consensus snapshot, taken as-is
type Recommendation struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
}

// Total returns the number of analyst ratings
func (r Recommendation) Total() int {
	return r.StrongBuy + r.Buy + r.Hold + r.Sell + r.StrongSell
}

// Bullish returns the number of buy or strong-buy ratings
func (r Recommendation) Bullish() int {
	return r.StrongBuy + r.Buy
}

// Financials holds supplementary profitability metrics. Margins and growth
// rates are fractions (0.25 = 25%).
type Financials struct {
	GrossMargin     *float64 `json:"grossMargin"`
	OperatingMargin *float64 `json:"operatingMargin"`
	ProfitMargin    *float64 `json:"profitMargin"`
	RevenueGrowth   *float64 `json:"revenueGrowth"`
	EarningsGrowth  *float64 `json:"earningsGrowth"`
	ReturnOnEquity  *float64 `json:"returnOnEquity"`
	CurrentPrice    *float64 `json:"currentPrice"`
	TargetMeanPrice *float64 `json:"targetMeanPrice"`
}

// EarningsPayload is one provider's already-fetched contribution to a
// per-symbol lookup. Any field may be empty.
type EarningsPayload struct {
	Provider        string
	EPS             []EPSQuarter
	Announcements   []Announcement
	Revenue         []RevenueQuarter
	RevenueTrends   []RevenueTrend
	Recommendations []Recommendation
	Financials      *Financials
}

// StreakType classifies consecutive quarters against consensus
type StreakType string

const (
	StreakBeat StreakType = "beat"
	StreakMiss StreakType = "miss"
	StreakMet  StreakType = "met"
	StreakNone StreakType = "none"
)

// Streak is the current run of same-classified quarters, newest first
type Streak struct {
	Type  StreakType `json:"type"`
	Count int        `json:"count"`
}

// Highlight is a short human-readable insight
type Highlight struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// SourceStatus reports how one collector fared during a request
type SourceStatus struct {
	Name     string        `json:"name"`
	OK       bool          `json:"ok"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// EarningsReport is the reconciled per-symbol result
type EarningsReport struct {
	Symbol           string           `json:"symbol"`
	EPSHistory       []EPSQuarter     `json:"epsHistory"`
	RevenueHistory   []RevenueQuarter `json:"revenueHistory"`
	Streak           Streak           `json:"streak"`
	Highlights       []Highlight      `json:"highlights"`
	NextEarningsDate string           `json:"nextEarningsDate,omitempty"`
	Recommendation   *Recommendation  `json:"recommendation"`
	Sources          []SourceStatus   `json:"sources"`
	Timestamp        time.Time        `json:"timestamp"`
}

// CalendarEvent is a single symbol's scheduled announcement as reported by
// one calendar feed.
type CalendarEvent struct {
	Symbol        string   `json:"symbol"`
	Date          string   `json:"date"`
	Name          string   `json:"name"`
	Price         *float64 `json:"price"`
	ChangePercent *float64 `json:"changePercent"`
	MarketCap     *float64 `json:"marketCap"`
	Sector        string   `json:"sector"`
	EPSEstimate   *float64 `json:"epsEstimate"`
	EPSTTM        *float64 `json:"epsTTM"`
}

// CalendarEntry is one company inside a calendar date bucket
type CalendarEntry struct {
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	Price         *float64 `json:"price"`
	ChangePercent *float64 `json:"changePercent"`
	MarketCap     *float64 `json:"marketCap"`
	Sector        string   `json:"sector"`
	EPSEstimate   *float64 `json:"epsEstimate"`
	EPSTTM        *float64 `json:"epsTTM"`
}

// Calendar maps YYYY-MM-DD announcement dates to companies reporting that day
type Calendar map[string][]CalendarEntry

// Size returns the number of entries across all buckets
func (c Calendar) Size() int {
	n := 0
	for _, entries := range c {
		n += len(entries)
	}
	return n
}
