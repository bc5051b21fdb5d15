// Package app assembles collectors, reconciliation, caching and archiving
// from configuration.
package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/quarterly/internal/cache"
	"github.com/newthinker/quarterly/internal/calendar"
	"github.com/newthinker/quarterly/internal/collector"
	"github.com/newthinker/quarterly/internal/collector/finnhub"
	"github.com/newthinker/quarterly/internal/collector/yahoo"
	"github.com/newthinker/quarterly/internal/config"
	"github.com/newthinker/quarterly/internal/core"
	"github.com/newthinker/quarterly/internal/earnings"
	"github.com/newthinker/quarterly/internal/metrics"
	"github.com/newthinker/quarterly/internal/period"
	"github.com/newthinker/quarterly/internal/reconcile"
	"github.com/newthinker/quarterly/internal/sector"
	"github.com/newthinker/quarterly/internal/storage/archive"
)

// Earnings is the request-facing surface, cached when enabled
type Earnings interface {
	Lookup(ctx context.Context, symbol string) (*core.EarningsReport, error)
	Calendar(ctx context.Context) (core.Calendar, error)
}

// App is the main application orchestrator
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	metrics    *metrics.Registry
	collectors *collector.Registry
	service    *earnings.Service
	earnings   Earnings

	archiveOnce sync.Once
	snapshots   *archive.Snapshots
	archiveErr  error
}

// Option configures an App
type Option func(*App)

// WithCollectors replaces the collectors built from config
func WithCollectors(r *collector.Registry) Option {
	return func(a *App) { a.collectors = r }
}

// WithMetrics sets the metrics registry
func WithMetrics(r *metrics.Registry) Option {
	return func(a *App) { a.metrics = r }
}

// New creates a new App instance
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(a)
	}

	if a.collectors == nil {
		reg, err := buildCollectors(cfg, logger)
		if err != nil {
			return nil, err
		}
		a.collectors = reg
	}

	agg := calendar.NewAggregator(
		calendar.WithSectors(sector.New(cfg.Sectors)),
		calendar.WithLogger(logger.Named("calendar")),
		calendar.WithMetrics(a.metrics),
	)
	if quotes, ok := a.collectors.Quotes(); ok {
		enricher := calendar.NewEnricher(quotes, calendar.EnrichConfig{
			ChunkSize:   cfg.Calendar.ChunkSize,
			MaxChunks:   cfg.Calendar.MaxChunks,
			Concurrency: cfg.Calendar.Concurrency,
			Timeout:     cfg.Calendar.Timeout,
		}, logger.Named("enrich"), a.metrics)
		calendar.WithEnricher(enricher)(agg)
	}

	a.service = earnings.NewService(serviceConfig(cfg), a.collectors.Earnings(),
		earnings.WithLogger(logger.Named("earnings")),
		earnings.WithMetrics(a.metrics),
		earnings.WithCalendar(a.collectors.Calendars(), agg),
	)

	a.earnings = a.service
	if cfg.Cache.Enabled {
		a.earnings = cache.NewEarnings(a.service, cache.Config{
			LookupTTL:   cfg.Cache.LookupTTL,
			CalendarTTL: cfg.Cache.CalendarTTL,
			MaxEntries:  cfg.Cache.MaxEntries,
		}, a.metrics)
	}

	logger.Info("application assembled",
		zap.Int("earnings_collectors", len(a.collectors.Earnings())),
		zap.Int("calendar_collectors", len(a.collectors.Calendars())),
		zap.Bool("cache", cfg.Cache.Enabled))
	return a, nil
}

func buildCollectors(cfg *config.Config, logger *zap.Logger) (*collector.Registry, error) {
	reg := collector.NewRegistry()
	cfgs := cfg.Collectors

	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cc := cfgs[name]
		if !cc.Enabled {
			continue
		}
		ccfg := collector.Config{
			Enabled:   true,
			APIKey:    cc.APIKey,
			BaseURL:   cc.BaseURL,
			Timeout:   cc.Timeout,
			RateLimit: cc.RateLimit,
			Priority:  cc.Priority,
		}
		switch name {
		case "yahoo":
			opts := []yahoo.Option{yahoo.WithLogger(logger.Named("yahoo"))}
			if len(cfg.Calendar.Screeners) > 0 {
				screeners := make([]yahoo.Screener, len(cfg.Calendar.Screeners))
				for i, sc := range cfg.Calendar.Screeners {
					screeners[i] = yahoo.Screener{ID: sc.ID, Count: sc.Count}
				}
				opts = append(opts, yahoo.WithScreeners(screeners))
			}
			reg.Register(yahoo.New(ccfg, opts...), cc.Priority)
		case "finnhub":
			reg.Register(finnhub.New(ccfg, finnhub.WithLogger(logger.Named("finnhub"))), cc.Priority)
		default:
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown collector %q", name))
		}
	}
	return reg, nil
}

func serviceConfig(cfg *config.Config) earnings.Config {
	sc := earnings.DefaultConfig()
	if cfg.Server.SourceTimeout > 0 {
		sc.SourceTimeout = cfg.Server.SourceTimeout
	}
	sc.CalendarBackDays = cfg.Calendar.BackDays
	sc.CalendarForwardDays = cfg.Calendar.ForwardDays

	r := cfg.Reconcile
	sc.Reconcile = earnings.Options{
		EPS: reconcile.EPSConfig{
			Display:            r.EPSDisplay,
			WindowDays:         r.WindowDays,
			AnnounceWindowDays: r.AnnounceWindowDays,
			Value:              period.ValueRule{Epsilon: r.ValueEpsilon, Days: r.ValueDays},
		},
		Revenue: reconcile.RevenueConfig{
			Display:            r.RevenueDisplay,
			WindowDays:         r.WindowDays,
			AnnounceWindowDays: r.AnnounceWindowDays,
			MatchTolerance:     r.RevenueTolerance,
		},
	}
	return sc
}

// Earnings returns the request-facing service
func (a *App) Earnings() Earnings {
	return a.earnings
}

// Collectors returns the collector registry
func (a *App) Collectors() *collector.Registry {
	return a.collectors
}

// Snapshots opens the configured archive on first use
func (a *App) Snapshots() (*archive.Snapshots, error) {
	a.archiveOnce.Do(func() {
		store, err := archive.Open(archive.Config{
			Type: a.cfg.Archive.Type,
			Path: a.cfg.Archive.Path,
			S3: archive.S3Config{
				Bucket:    a.cfg.Archive.S3.Bucket,
				Endpoint:  a.cfg.Archive.S3.Endpoint,
				Region:    a.cfg.Archive.S3.Region,
				AccessKey: a.cfg.Archive.S3.AccessKey,
				SecretKey: a.cfg.Archive.S3.SecretKey,
				Prefix:    a.cfg.Archive.S3.Prefix,
			},
		})
		if err != nil {
			a.archiveErr = core.WrapError(core.ErrArchiveFailed, err)
			return
		}
		a.snapshots = archive.NewSnapshots(store)
	})
	return a.snapshots, a.archiveErr
}

// SnapshotResult is the outcome for one symbol
type SnapshotResult struct {
	Symbol string
	Path   string
	Err    error
}

// Snapshot looks up each symbol and archives the report. Symbols run
// sequentially so collector rate limits are honored; one failure does not
// stop the rest.
func (a *App) Snapshot(ctx context.Context, symbols []string) ([]SnapshotResult, error) {
	snaps, err := a.Snapshots()
	if err != nil {
		return nil, err
	}

	results := make([]SnapshotResult, 0, len(symbols))
	for _, sym := range symbols {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := SnapshotResult{Symbol: sym}
		report, err := a.service.Lookup(ctx, sym)
		if err == nil {
			res.Path, err = snaps.SaveReport(ctx, report)
		}
		res.Err = err
		if err != nil {
			a.logger.Warn("snapshot failed", zap.String("symbol", sym), zap.Error(err))
		} else {
			a.logger.Info("snapshot written", zap.String("symbol", report.Symbol), zap.String("path", res.Path))
		}
		results = append(results, res)
	}
	return results, nil
}

// SnapshotCalendar builds the current calendar and archives it
func (a *App) SnapshotCalendar(ctx context.Context) (string, error) {
	snaps, err := a.Snapshots()
	if err != nil {
		return "", err
	}
	cal, err := a.service.Calendar(ctx)
	if err != nil {
		return "", err
	}
	path, err := snaps.SaveCalendar(ctx, cal, time.Now().UTC())
	if err != nil {
		return "", err
	}
	a.logger.Info("calendar snapshot written", zap.String("path", path), zap.Int("dates", len(cal)))
	return path, nil
}
