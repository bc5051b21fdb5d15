package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/newthinker/quarterly/internal/collector"
	"github.com/newthinker/quarterly/internal/core"
	"github.com/newthinker/quarterly/internal/period"
)

const (
	// DefaultBaseURL serves quoteSummary, screeners and batch quotes
	DefaultBaseURL = "https://query2.finance.yahoo.com"

	// DefaultCookieURL hands out the session cookie the crumb is bound to
	DefaultCookieURL = "https://fc.yahoo.com"

	// DefaultRateLimit is requests per second
	DefaultRateLimit = 5.0

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	summaryModules = "earningsHistory,incomeStatementHistoryQuarterly,earningsTrend,financialData"
)

// Screener is a predefined Yahoo screener used as a calendar feed
type Screener struct {
	ID    string
	Count int
}

// DefaultScreeners gives wide coverage of liquid US names
var DefaultScreeners = []Screener{
	{ID: "most_actives", Count: 200},
	{ID: "day_gainers", Count: 100},
	{ID: "day_losers", Count: 100},
	{ID: "growth_technology_stocks", Count: 100},
	{ID: "undervalued_large_caps", Count: 100},
}

// Yahoo implements the Yahoo Finance earnings, calendar and quote collector
type Yahoo struct {
	baseURL   string
	cookieURL string
	client    *http.Client
	limiter   *rate.Limiter
	logger    *zap.Logger
	screeners []Screener

	mu    sync.Mutex
	crumb string
}

// Option configures the collector
type Option func(*Yahoo)

// WithLogger sets a logger
func WithLogger(l *zap.Logger) Option {
	return func(y *Yahoo) { y.logger = l }
}

// WithScreeners replaces the calendar screeners
func WithScreeners(s []Screener) Option {
	return func(y *Yahoo) { y.screeners = s }
}

// WithCookieURL overrides the session cookie endpoint
func WithCookieURL(u string) Option {
	return func(y *Yahoo) { y.cookieURL = u }
}

// New creates a new Yahoo collector
func New(cfg collector.Config, opts ...Option) *Yahoo {
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

	jar, _ := cookiejar.New(nil)
	y := &Yahoo{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		cookieURL: DefaultCookieURL,
		client:    &http.Client{Timeout: timeout, Jar: jar},
		limiter:   collector.NewLimiter(rl),
		logger:    zap.NewNop(),
		screeners: DefaultScreeners,
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

func header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	return h
}

// authCrumb returns the cached crumb, fetching one on first use. Yahoo
// serves some endpoints without it, so failures yield an empty crumb.
func (y *Yahoo) authCrumb(ctx context.Context, refresh bool) string {
	y.mu.Lock()
	defer y.mu.Unlock()
	if y.crumb != "" && !refresh {
		return y.crumb
	}

	if req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.cookieURL, nil); err == nil {
		req.Header = header()
		if resp, err := y.client.Do(req); err == nil {
			resp.Body.Close()
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+"/v1/test/getcrumb", nil)
	if err != nil {
		return ""
	}
	req.Header = header()
	resp, err := y.client.Do(req)
	if err != nil {
		y.logger.Debug("yahoo crumb fetch failed", zap.Error(err))
		return ""
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
	if resp.StatusCode != http.StatusOK {
		return ""
	}
	y.crumb = strings.TrimSpace(string(body))
	return y.crumb
}

// getAuth performs a crumb-authenticated GET, refreshing the crumb once on
// an authorization failure.
func (y *Yahoo) getAuth(ctx context.Context, path string, params url.Values, out any) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		p := url.Values{}
		for k, v := range params {
			p[k] = v
		}
		if crumb := y.authCrumb(ctx, attempt > 0); crumb != "" {
			p.Set("crumb", crumb)
		}
		err = collector.GetJSON(ctx, y.client, y.limiter, y.baseURL+path+"?"+p.Encode(), header(), out)
		if err == nil || !isAuthFailure(err) {
			return err
		}
	}
	return err
}

func isAuthFailure(err error) bool {
	if !errors.Is(err, core.ErrSourceFailed) {
		return false
	}
	return strings.Contains(err.Error(), "status 401") || strings.Contains(err.Error(), "status 403")
}

// FetchEarnings pulls period-end EPS history, quarterly revenue actuals,
// forward revenue trends and supplementary financials for one symbol.
func (y *Yahoo) FetchEarnings(ctx context.Context, symbol string) (*core.EarningsPayload, error) {
	sym, err := collector.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	var resp summaryResponse
	if err := y.getAuth(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(sym),
		url.Values{"modules": {summaryModules}}, &resp); err != nil {
		return nil, err
	}
	if resp.QuoteSummary.Error != nil {
		return nil, core.WrapError(core.ErrSourceFailed,
			fmt.Errorf("yahoo error: %s", resp.QuoteSummary.Error.Description))
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no summary for symbol: %s", sym))
	}

	payload := toPayload(y.Name(), resp.QuoteSummary.Result[0])
	y.logger.Debug("yahoo earnings fetched",
		zap.String("symbol", sym),
		zap.Int("eps", len(payload.EPS)),
		zap.Int("revenue", len(payload.Revenue)),
		zap.Int("trends", len(payload.RevenueTrends)))
	return payload, nil
}

func toPayload(provider string, r summaryResult) *core.EarningsPayload {
	payload := &core.EarningsPayload{Provider: provider}

	if r.EarningsHistory != nil {
		for _, h := range r.EarningsHistory.History {
			p := h.Quarter.date()
			if p == "" {
				continue
			}
			var surprise *float64
			if h.SurprisePercent.Raw != nil {
				surprise = core.Float(*h.SurprisePercent.Raw * 100)
			}
			payload.EPS = append(payload.EPS, core.EPSQuarter{
				Period:          p,
				Actual:          h.EPSActual.Raw,
				Estimate:        h.EPSEstimate.Raw,
				SurprisePercent: surprise,
				Source:          provider,
			})
		}
	}

	if r.IncomeStatementHistoryQuarterly != nil {
		for _, s := range r.IncomeStatementHistoryQuarterly.IncomeStatementHistory {
			end := s.EndDate.date()
			if end == "" || s.TotalRevenue.Raw == nil {
				continue
			}
			d, _ := period.Parse(end)
			payload.Revenue = append(payload.Revenue, core.RevenueQuarter{
				Date:          end,
				Quarter:       period.QuarterOf(d),
				Year:          d.Year(),
				RevenueActual: s.TotalRevenue.Raw,
				Source:        provider,
			})
		}
	}

	if r.EarningsTrend != nil {
		for _, t := range r.EarningsTrend.Trend {
			payload.RevenueTrends = append(payload.RevenueTrends, core.RevenueTrend{
				Period:         t.Period,
				Estimate:       t.RevenueEstimate.Avg.Raw,
				YearAgoRevenue: t.RevenueEstimate.YearAgoRevenue.Raw,
			})
		}
	}

	if fd := r.FinancialData; fd != nil {
		payload.Financials = &core.Financials{
			GrossMargin:     fd.GrossMargins.Raw,
			OperatingMargin: fd.OperatingMargins.Raw,
			ProfitMargin:    fd.ProfitMargins.Raw,
			RevenueGrowth:   fd.RevenueGrowth.Raw,
			EarningsGrowth:  fd.EarningsGrowth.Raw,
			ReturnOnEquity:  fd.ReturnOnEquity.Raw,
			CurrentPrice:    fd.CurrentPrice.Raw,
			TargetMeanPrice: fd.TargetMeanPrice.Raw,
		}
	}
	return payload
}

// FetchCalendar reads the configured screeners and returns every quote that
// carries an earnings timestamp. Screeners cannot be queried by date, so
// from and to are left to the aggregator's window.
func (y *Yahoo) FetchCalendar(ctx context.Context, from, to time.Time) ([]core.CalendarEvent, error) {
	results := make([][]screenerQuote, len(y.screeners))
	errs := make([]error, len(y.screeners))

	var g errgroup.Group
	for i, s := range y.screeners {
		g.Go(func() error {
			var resp screenerResponse
			errs[i] = collector.GetJSON(ctx, y.client, y.limiter,
				fmt.Sprintf("%s/v1/finance/screener/predefined/saved?scrIds=%s&count=%d",
					y.baseURL, url.QueryEscape(s.ID), s.Count),
				header(), &resp)
			if errs[i] == nil && len(resp.Finance.Result) > 0 {
				results[i] = resp.Finance.Result[0].Quotes
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			y.logger.Warn("yahoo screener failed", zap.String("screener", y.screeners[i].ID), zap.Error(err))
		}
	}
	if len(errs) > 0 && failed == len(errs) {
		return nil, errs[0]
	}

	var events []core.CalendarEvent
	for _, quotes := range results {
		for _, q := range quotes {
			ts, ok := q.earningsTime()
			if q.Symbol == "" || !ok {
				continue
			}
			events = append(events, core.CalendarEvent{
				Symbol:        q.Symbol,
				Date:          ts.UTC().Format(period.Layout),
				Name:          q.name(),
				Price:         q.RegularMarketPrice,
				ChangePercent: q.RegularMarketChangePercent,
				MarketCap:     q.MarketCap,
				Sector:        q.Sector,
				EPSEstimate:   firstNonNil(q.EPSCurrentYear, q.EPSForward),
				EPSTTM:        q.EPSTrailingTwelveMonths,
			})
		}
	}
	return events, nil
}

// FetchQuotes returns batch quotes for up to a few hundred symbols
func (y *Yahoo) FetchQuotes(ctx context.Context, symbols []string) ([]core.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	var resp quoteResponse
	if err := y.getAuth(ctx, "/v7/finance/quote",
		url.Values{"symbols": {strings.Join(symbols, ",")}}, &resp); err != nil {
		return nil, err
	}

	quotes := make([]core.Quote, 0, len(resp.QuoteResponse.Result))
	for _, q := range resp.QuoteResponse.Result {
		quote := core.Quote{
			Symbol:        q.Symbol,
			Name:          q.name(),
			Price:         q.RegularMarketPrice,
			ChangePercent: q.RegularMarketChangePercent,
			MarketCap:     q.MarketCap,
			EPSForward:    q.EPSForward,
			EPSTTM:        q.EPSTrailingTwelveMonths,
			Source:        y.Name(),
		}
		if q.RegularMarketTime != nil {
			quote.Time = time.Unix(*q.RegularMarketTime, 0)
		}
		if quote.IsValid() {
			quotes = append(quotes, quote)
		}
	}
	return quotes, nil
}

func firstNonNil(vs ...*float64) *float64 {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}

// Yahoo API response types
type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// rawValue is Yahoo's {raw, fmt} number wrapper; either half may be absent
type rawValue struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

// date returns the YYYY-MM-DD form of a date-valued field
func (v rawValue) date() string {
	if n := period.Normalize(v.Fmt); n != "" {
		return n
	}
	if v.Raw != nil {
		return time.Unix(int64(*v.Raw), 0).UTC().Format(period.Layout)
	}
	return ""
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []summaryResult `json:"result"`
		Error  *yahooError     `json:"error"`
	} `json:"quoteSummary"`
}

type summaryResult struct {
	EarningsHistory *struct {
		History []struct {
			EPSActual       rawValue `json:"epsActual"`
			EPSEstimate     rawValue `json:"epsEstimate"`
			SurprisePercent rawValue `json:"surprisePercent"`
			Quarter         rawValue `json:"quarter"`
			Period          string   `json:"period"`
		} `json:"history"`
	} `json:"earningsHistory"`

	IncomeStatementHistoryQuarterly *struct {
		IncomeStatementHistory []struct {
			EndDate      rawValue `json:"endDate"`
			TotalRevenue rawValue `json:"totalRevenue"`
		} `json:"incomeStatementHistory"`
	} `json:"incomeStatementHistoryQuarterly"`

	EarningsTrend *struct {
		Trend []struct {
			Period          string `json:"period"`
			EndDate         string `json:"endDate"`
			RevenueEstimate struct {
				Avg            rawValue `json:"avg"`
				YearAgoRevenue rawValue `json:"yearAgoRevenue"`
			} `json:"revenueEstimate"`
		} `json:"trend"`
	} `json:"earningsTrend"`

	FinancialData *struct {
		GrossMargins     rawValue `json:"grossMargins"`
		OperatingMargins rawValue `json:"operatingMargins"`
		ProfitMargins    rawValue `json:"profitMargins"`
		RevenueGrowth    rawValue `json:"revenueGrowth"`
		EarningsGrowth   rawValue `json:"earningsGrowth"`
		ReturnOnEquity   rawValue `json:"returnOnEquity"`
		CurrentPrice     rawValue `json:"currentPrice"`
		TargetMeanPrice  rawValue `json:"targetMeanPrice"`
	} `json:"financialData"`
}

type screenerResponse struct {
	Finance struct {
		Result []struct {
			Quotes []screenerQuote `json:"quotes"`
		} `json:"result"`
	} `json:"finance"`
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []screenerQuote `json:"result"`
	} `json:"quoteResponse"`
}

type screenerQuote struct {
	Symbol                     string          `json:"symbol"`
	ShortName                  string          `json:"shortName"`
	LongName                   string          `json:"longName"`
	Sector                     string          `json:"sector"`
	RegularMarketPrice         *float64        `json:"regularMarketPrice"`
	RegularMarketChangePercent *float64        `json:"regularMarketChangePercent"`
	RegularMarketTime          *int64          `json:"regularMarketTime"`
	MarketCap                  *float64        `json:"marketCap"`
	EPSCurrentYear             *float64        `json:"epsCurrentYear"`
	EPSForward                 *float64        `json:"epsForward"`
	EPSTrailingTwelveMonths    *float64        `json:"epsTrailingTwelveMonths"`
	EarningsTimestamp          json.RawMessage `json:"earningsTimestamp"`
	EarningsTimestampStart     json.RawMessage `json:"earningsTimestampStart"`
}

func (q screenerQuote) name() string {
	switch {
	case q.ShortName != "":
		return q.ShortName
	case q.LongName != "":
		return q.LongName
	default:
		return q.Symbol
	}
}

// earningsTime reads earningsTimestamp, falling back to
// earningsTimestampStart. Each may be a number or an array of numbers.
func (q screenerQuote) earningsTime() (time.Time, bool) {
	for _, raw := range []json.RawMessage{q.EarningsTimestamp, q.EarningsTimestampStart} {
		if ts, ok := parseTimestamp(raw); ok {
			return time.Unix(ts, 0), true
		}
	}
	return time.Time{}, false
}

func parseTimestamp(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return int64(n), n != 0
	}
	var arr []float64
	if err := json.Unmarshal(raw, &arr); err == nil && len(arr) > 0 {
		return int64(arr[0]), arr[0] != 0
	}
	return 0, false
}
