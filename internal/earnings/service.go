package earnings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newthinker/quarterly/internal/calendar"
	"github.com/newthinker/quarterly/internal/collector"
	"github.com/newthinker/quarterly/internal/core"
	"github.com/newthinker/quarterly/internal/metrics"
)

// Config controls the provider fan-out
type Config struct {
	// SourceTimeout bounds each collector call independently
	SourceTimeout time.Duration
	// CalendarBackDays and CalendarForwardDays size the calendar window
	CalendarBackDays    int
	CalendarForwardDays int
	Reconcile           Options
}

// DefaultConfig returns the standard service settings
func DefaultConfig() Config {
	return Config{
		SourceTimeout:       10 * time.Second,
		CalendarBackDays:    84,
		CalendarForwardDays: 84,
		Reconcile:           DefaultOptions(),
	}
}

// Service fetches from every configured provider concurrently and
// reconciles the results. It holds no per-request state.
type Service struct {
	cfg        Config
	earnings   []collector.EarningsCollector
	calendars  []collector.CalendarCollector
	aggregator *calendar.Aggregator
	logger     *zap.Logger
	metrics    *metrics.Registry
	now        func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets a logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the metrics registry
func WithMetrics(r *metrics.Registry) Option {
	return func(s *Service) { s.metrics = r }
}

// WithClock overrides the wall clock
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithCalendar sets the calendar collectors and aggregator
func WithCalendar(collectors []collector.CalendarCollector, agg *calendar.Aggregator) Option {
	return func(s *Service) {
		s.calendars = collectors
		s.aggregator = agg
	}
}

// NewService creates a service over earnings collectors given in priority
// order.
func NewService(cfg Config, earnings []collector.EarningsCollector, opts ...Option) *Service {
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = DefaultConfig().SourceTimeout
	}
	s := &Service{
		cfg:      cfg,
		earnings: earnings,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.aggregator == nil {
		s.aggregator = calendar.NewAggregator(calendar.WithLogger(s.logger), calendar.WithMetrics(s.metrics))
	}
	return s
}

// fetchResult is one collector's outcome
type fetchResult[T any] struct {
	value  T
	status core.SourceStatus
	err    error
}

// fanOut runs fn for every source concurrently, each under its own timeout.
// A failing source never cancels its siblings. Results keep source order.
func fanOut[C collector.Collector, T any](ctx context.Context, s *Service, sources []C, fn func(context.Context, C) (T, error)) []fetchResult[T] {
	results := make([]fetchResult[T], len(sources))

	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.cfg.SourceTimeout)
			defer cancel()

			start := time.Now()
			v, err := fn(cctx, src)
			elapsed := time.Since(start)
			if err != nil && errors.Is(cctx.Err(), context.DeadlineExceeded) && !errors.Is(err, core.ErrSourceTimeout) {
				err = core.WrapError(core.ErrSourceTimeout, err)
			}

			results[i] = fetchResult[T]{
				value: v,
				err:   err,
				status: core.SourceStatus{
					Name:     src.Name(),
					OK:       err == nil,
					Duration: elapsed,
				},
			}
			if err != nil {
				results[i].status.Error = err.Error()
			}
			s.metrics.RecordSourceFetch(src.Name(), err == nil, elapsed.Seconds())
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Lookup builds the reconciled earnings report for one symbol. It fails
// with core.ErrNoSources only when every collector failed; a report with
// empty histories is a valid answer.
func (s *Service) Lookup(ctx context.Context, symbol string) (*core.EarningsReport, error) {
	sym, err := collector.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if len(s.earnings) == 0 {
		return nil, core.WrapError(core.ErrNoSources, fmt.Errorf("no earnings collectors configured"))
	}

	results := fanOut(ctx, s, s.earnings, func(ctx context.Context, c collector.EarningsCollector) (*core.EarningsPayload, error) {
		return c.FetchEarnings(ctx, sym)
	})

	payloads := make([]*core.EarningsPayload, len(results))
	statuses := make([]core.SourceStatus, len(results))
	var errs []error
	for i, r := range results {
		statuses[i] = r.status
		if r.err != nil {
			errs = append(errs, r.err)
			s.logger.Warn("source failed",
				zap.String("source", r.status.Name),
				zap.String("symbol", sym),
				zap.Error(r.err))
			continue
		}
		payloads[i] = r.value
	}
	if len(errs) == len(results) {
		return nil, core.WrapError(core.ErrNoSources, errors.Join(errs...))
	}

	report := ReconcileWith(sym, payloads, s.now(), s.cfg.Reconcile)
	report.Sources = statuses

	s.metrics.RecordReconcile("eps", len(report.EPSHistory))
	s.metrics.RecordReconcile("revenue", len(report.RevenueHistory))
	s.logger.Debug("earnings reconciled",
		zap.String("symbol", sym),
		zap.Int("eps", len(report.EPSHistory)),
		zap.Int("revenue", len(report.RevenueHistory)),
		zap.String("streak", string(report.Streak.Type)),
		zap.Int("highlights", len(report.Highlights)))
	return report, nil
}

// Calendar builds the cross-symbol earnings calendar around now
func (s *Service) Calendar(ctx context.Context) (core.Calendar, error) {
	if len(s.calendars) == 0 {
		return nil, core.WrapError(core.ErrNoSources, fmt.Errorf("no calendar collectors configured"))
	}

	window := calendar.Around(s.now(), s.cfg.CalendarBackDays, s.cfg.CalendarForwardDays)
	results := fanOut(ctx, s, s.calendars, func(ctx context.Context, c collector.CalendarCollector) ([]core.CalendarEvent, error) {
		return c.FetchCalendar(ctx, window.From, window.To)
	})

	feeds := make([]calendar.Feed, 0, len(results))
	var errs []error
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			s.logger.Warn("calendar source failed", zap.String("source", r.status.Name), zap.Error(r.err))
			continue
		}
		feeds = append(feeds, calendar.Feed{Name: r.status.Name, Events: r.value})
	}
	if len(errs) == len(results) {
		return nil, core.WrapError(core.ErrNoSources, errors.Join(errs...))
	}

	return s.aggregator.Build(ctx, feeds, window), nil
}
