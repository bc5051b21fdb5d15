// internal/api/handler/api/earnings.go
package api

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/newthinker/quarterly/internal/api/response"
	"github.com/newthinker/quarterly/internal/core"
)

// EarningsService is what the handler needs from the reconciliation layer
type EarningsService interface {
	Lookup(ctx context.Context, symbol string) (*core.EarningsReport, error)
	Calendar(ctx context.Context) (core.Calendar, error)
}

// EarningsHandler serves per-symbol reports and the earnings calendar
type EarningsHandler struct {
	svc    EarningsService
	logger *zap.Logger
}

// NewEarningsHandler creates a new earnings handler
func NewEarningsHandler(svc EarningsService, logger *zap.Logger) *EarningsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EarningsHandler{svc: svc, logger: logger}
}

// Lookup handles GET /api/v1/earnings/{symbol}
func (h *EarningsHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	report, err := h.svc.Lookup(r.Context(), symbol)
	if err != nil {
		h.logger.Warn("earnings lookup failed", zap.String("symbol", symbol), zap.Error(err))
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, report)
}

// Calendar handles GET /api/v1/earnings-calendar
func (h *EarningsHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	cal, err := h.svc.Calendar(r.Context())
	if err != nil {
		h.logger.Warn("earnings calendar failed", zap.Error(err))
		response.Fail(w, err)
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"calendar": cal,
		"dates":    len(cal),
		"entries":  cal.Size(),
	})
}
