package calendar

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newthinker/quarterly/internal/core"
	"github.com/newthinker/quarterly/internal/metrics"
)

// QuoteFetcher resolves batch quotes
type QuoteFetcher interface {
	FetchQuotes(ctx context.Context, symbols []string) ([]core.Quote, error)
}

// EnrichConfig bounds the batch-quote backfill
type EnrichConfig struct {
	ChunkSize   int
	MaxChunks   int
	Concurrency int
	// Timeout applies to each chunk
	Timeout time.Duration
}

// DefaultEnrichConfig returns the standard enrichment bounds
func DefaultEnrichConfig() EnrichConfig {
	return EnrichConfig{
		ChunkSize:   50,
		MaxChunks:   10,
		Concurrency: 3,
		Timeout:     8 * time.Second,
	}
}

// Enricher backfills market data for calendar entries through chunked,
// concurrency-limited quote lookups.
type Enricher struct {
	quotes  QuoteFetcher
	cfg     EnrichConfig
	logger  *zap.Logger
	metrics *metrics.Registry
}

// NewEnricher creates an enricher. Zero config fields take defaults.
func NewEnricher(quotes QuoteFetcher, cfg EnrichConfig, logger *zap.Logger, reg *metrics.Registry) *Enricher {
	def := DefaultEnrichConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = def.MaxChunks
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{quotes: quotes, cfg: cfg, logger: logger, metrics: reg}
}

// Enrich returns quotes keyed by symbol. Symbols past MaxChunks*ChunkSize
// are left unenriched; failed chunks contribute nothing.
func (e *Enricher) Enrich(ctx context.Context, symbols []string) map[string]core.Quote {
	out := make(map[string]core.Quote)
	if e == nil || e.quotes == nil || len(symbols) == 0 {
		return out
	}

	chunks := chunk(symbols, e.cfg.ChunkSize)
	if len(chunks) > e.cfg.MaxChunks {
		e.logger.Debug("enrichment truncated",
			zap.Int("symbols", len(symbols)),
			zap.Int("chunks", len(chunks)),
			zap.Int("max_chunks", e.cfg.MaxChunks))
		chunks = chunks[:e.cfg.MaxChunks]
	}

	results := make([][]core.Quote, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for i, batch := range chunks {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, e.cfg.Timeout)
			defer cancel()

			quotes, err := e.quotes.FetchQuotes(cctx, batch)
			e.metrics.RecordEnrichBatch(err == nil)
			if err != nil {
				e.logger.Warn("enrichment batch failed", zap.Int("batch", i), zap.Int("size", len(batch)), zap.Error(err))
				return nil
			}
			results[i] = quotes
			return nil
		})
	}
	_ = g.Wait()

	for _, quotes := range results {
		for _, q := range quotes {
			if _, ok := out[q.Symbol]; !ok {
				out[q.Symbol] = q
			}
		}
	}
	return out
}

func chunk(symbols []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		chunks = append(chunks, symbols[start:end])
	}
	return chunks
}
