package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/newthinker/quarterly/internal/core"
)

// Doer is the subset of *http.Client the adapters use
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewLimiter returns a limiter allowing perSecond requests with an equal
// burst. A non-positive rate disables limiting.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// GetJSON waits on the limiter, performs a GET and decodes a JSON body
// into out. A 429 maps to core.ErrRateLimited, other non-2xx statuses and
// transport failures to core.ErrSourceFailed, and an expired context to
// core.ErrSourceTimeout.
func GetJSON(ctx context.Context, client Doer, limiter *rate.Limiter, url string, header http.Header, out any) error {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return core.WrapError(core.ErrRateLimited, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return core.WrapError(core.ErrSourceFailed, fmt.Errorf("creating request: %w", err))
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return core.WrapError(core.ErrSourceTimeout, ctx.Err())
		}
		return core.WrapError(core.ErrSourceFailed, fmt.Errorf("executing request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return core.WrapError(core.ErrRateLimited, fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return core.WrapError(core.ErrSourceFailed, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.WrapError(core.ErrSourceFailed, fmt.Errorf("decoding response: %w", err))
	}
	return nil
}
