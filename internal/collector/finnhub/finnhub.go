package finnhub

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/newthinker/quarterly/internal/collector"
	"github.com/newthinker/quarterly/internal/core"
	"github.com/newthinker/quarterly/internal/period"
)

const (
	// DefaultBaseURL is the Finnhub REST root
	DefaultBaseURL = "https://finnhub.io/api/v1"

	// DefaultRateLimit stays under the free tier's 60 calls per minute
	DefaultRateLimit = 1.0

	historyLimit = 20
)

// Finnhub implements the Finnhub earnings and calendar collector
type Finnhub struct {
	baseURL string
	apiKey  string
	client  collector.Doer
	limiter *rate.Limiter
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures the collector
type Option func(*Finnhub)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(c collector.Doer) Option {
	return func(f *Finnhub) { f.client = c }
}

// WithLogger sets a logger
func WithLogger(l *zap.Logger) Option {
	return func(f *Finnhub) { f.logger = l }
}

// WithClock overrides the clock used to size the calendar window
func WithClock(now func() time.Time) Option {
	return func(f *Finnhub) { f.now = now }
}

// New creates a new Finnhub collector
func New(cfg collector.Config, opts ...Option) *Finnhub {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rl := cfg.RateLimit
	if rl == 0 {
		rl = DefaultRateLimit
	}

	f := &Finnhub{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		limiter: collector.NewLimiter(rl),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Finnhub) Name() string {
	return "finnhub"
}

func (f *Finnhub) get(ctx context.Context, path string, params url.Values, out any) error {
	if f.apiKey == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("finnhub api key"))
	}
	params.Set("token", f.apiKey)
	return collector.GetJSON(ctx, f.client, f.limiter, f.baseURL+path+"?"+params.Encode(), nil, out)
}

// FetchEarnings pulls period-end EPS history, analyst recommendations and
// the symbol's announcement calendar. Each endpoint fails independently;
// an error is returned only when all of them fail.
func (f *Finnhub) FetchEarnings(ctx context.Context, symbol string) (*core.EarningsPayload, error) {
	sym, err := collector.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	now := f.now().UTC()
	from := now.AddDate(-3, 0, 0).Format(period.Layout)
	to := now.AddDate(0, 6, 0).Format(period.Layout)

	var (
		eps  []epsItem
		recs []recommendationItem
		cal  calendarResponse
		errs [3]error
	)

	var g errgroup.Group
	g.Go(func() error {
		errs[0] = f.get(ctx, "/stock/earnings", url.Values{
			"symbol": {sym},
			"limit":  {fmt.Sprint(historyLimit)},
		}, &eps)
		return nil
	})
	g.Go(func() error {
		errs[1] = f.get(ctx, "/stock/recommendation", url.Values{"symbol": {sym}}, &recs)
		return nil
	})
	g.Go(func() error {
		errs[2] = f.get(ctx, "/calendar/earnings", url.Values{
			"symbol": {sym},
			"from":   {from},
			"to":     {to},
		}, &cal)
		return nil
	})
	_ = g.Wait()

	endpoints := [3]string{"stock/earnings", "stock/recommendation", "calendar/earnings"}
	failed := 0
	for i, e := range errs {
		if e != nil {
			failed++
			f.logger.Warn("finnhub endpoint failed",
				zap.String("symbol", sym),
				zap.String("endpoint", endpoints[i]),
				zap.Error(e))
		}
	}
	if failed == len(errs) {
		return nil, errs[0]
	}

	payload := &core.EarningsPayload{Provider: f.Name()}
	for _, e := range eps {
		if e.Period == "" {
			continue
		}
		payload.EPS = append(payload.EPS, core.EPSQuarter{
			Period:          e.Period,
			Quarter:         e.Quarter,
			Year:            e.Year,
			Actual:          e.Actual,
			Estimate:        e.Estimate,
			SurprisePercent: e.SurprisePercent,
			Source:          f.Name(),
		})
	}
	for _, r := range recs {
		payload.Recommendations = append(payload.Recommendations, core.Recommendation{
			Period:     r.Period,
			StrongBuy:  r.StrongBuy,
			Buy:        r.Buy,
			Hold:       r.Hold,
			Sell:       r.Sell,
			StrongSell: r.StrongSell,
		})
	}
	for _, e := range cal.EarningsCalendar {
		if e.Date == "" {
			continue
		}
		payload.Announcements = append(payload.Announcements, e.announcement())
	}

	f.logger.Debug("finnhub earnings fetched",
		zap.String("symbol", sym),
		zap.Int("eps", len(payload.EPS)),
		zap.Int("announcements", len(payload.Announcements)),
		zap.Int("recommendations", len(payload.Recommendations)))
	return payload, nil
}

// FetchCalendar returns every announcement in [from, to]
func (f *Finnhub) FetchCalendar(ctx context.Context, from, to time.Time) ([]core.CalendarEvent, error) {
	var cal calendarResponse
	err := f.get(ctx, "/calendar/earnings", url.Values{
		"from": {from.UTC().Format(period.Layout)},
		"to":   {to.UTC().Format(period.Layout)},
	}, &cal)
	if err != nil {
		return nil, err
	}

	events := make([]core.CalendarEvent, 0, len(cal.EarningsCalendar))
	for _, e := range cal.EarningsCalendar {
		if e.Symbol == "" || e.Date == "" {
			continue
		}
		events = append(events, core.CalendarEvent{
			Symbol:      e.Symbol,
			Date:        period.Normalize(e.Date),
			EPSEstimate: e.EPSEstimate,
		})
	}
	return events, nil
}

// Finnhub API response types
type epsItem struct {
	Actual          *float64 `json:"actual"`
	Estimate        *float64 `json:"estimate"`
	Period          string   `json:"period"`
	Quarter         int      `json:"quarter"`
	Year            int      `json:"year"`
	Surprise        *float64 `json:"surprise"`
	SurprisePercent *float64 `json:"surprisePercent"`
	Symbol          string   `json:"symbol"`
}

type recommendationItem struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strongBuy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strongSell"`
	Symbol     string `json:"symbol"`
}

type calendarResponse struct {
	EarningsCalendar []calendarItem `json:"earningsCalendar"`
}

type calendarItem struct {
	Date            string   `json:"date"`
	EPSActual       *float64 `json:"epsActual"`
	EPSEstimate     *float64 `json:"epsEstimate"`
	Hour            string   `json:"hour"`
	Quarter         int      `json:"quarter"`
	RevenueActual   *float64 `json:"revenueActual"`
	RevenueEstimate *float64 `json:"revenueEstimate"`
	Symbol          string   `json:"symbol"`
	Year            int      `json:"year"`
}

func (c calendarItem) announcement() core.Announcement {
	return core.Announcement{
		Symbol:          c.Symbol,
		Date:            period.Normalize(c.Date),
		Hour:            c.Hour,
		Quarter:         c.Quarter,
		Year:            c.Year,
		EPSActual:       c.EPSActual,
		EPSEstimate:     c.EPSEstimate,
		RevenueActual:   c.RevenueActual,
		RevenueEstimate: c.RevenueEstimate,
	}
}
