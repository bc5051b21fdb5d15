package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/newthinker/quarterly/internal/core"
)

const (
	earningsDir = "earnings"
	calendarDir = "calendar"
	stampLayout = "20060102T150405Z"
)

// Snapshots writes reconciled reports and calendars as JSON documents.
// Report paths sort chronologically within a symbol.
type Snapshots struct {
	store Storage
}

// NewSnapshots wraps a storage backend
func NewSnapshots(store Storage) *Snapshots {
	return &Snapshots{store: store}
}

// ReportPath is where a report for symbol taken at t is stored
func ReportPath(symbol string, t time.Time) string {
	return path.Join(earningsDir, strings.ToUpper(symbol), t.UTC().Format(stampLayout)+".json")
}

// CalendarPath is where the calendar built at t is stored
func CalendarPath(t time.Time) string {
	return path.Join(calendarDir, t.UTC().Format("2006-01-02")+".json")
}

// SaveReport stores report under its symbol and timestamp
func (s *Snapshots) SaveReport(ctx context.Context, report *core.EarningsReport) (string, error) {
	if report == nil || report.Symbol == "" {
		return "", core.WrapError(core.ErrArchiveFailed, fmt.Errorf("report without symbol"))
	}
	p := ReportPath(report.Symbol, report.Timestamp)
	if err := s.put(ctx, p, report); err != nil {
		return "", err
	}
	return p, nil
}

// SaveCalendar stores cal under the day of at; a later save that day replaces it
func (s *Snapshots) SaveCalendar(ctx context.Context, cal core.Calendar, at time.Time) (string, error) {
	p := CalendarPath(at)
	if err := s.put(ctx, p, cal); err != nil {
		return "", err
	}
	return p, nil
}

// LatestReport returns the newest stored report for symbol, or
// core.ErrNoData when none exists.
func (s *Snapshots) LatestReport(ctx context.Context, symbol string) (*core.EarningsReport, error) {
	paths, err := s.store.List(ctx, path.Join(earningsDir, strings.ToUpper(symbol))+"/")
	if err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, err)
	}
	if len(paths) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("no snapshot for %s", symbol))
	}

	data, err := s.store.Read(ctx, paths[len(paths)-1])
	if err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, err)
	}
	var report core.EarningsReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, fmt.Errorf("decoding %s: %w", paths[len(paths)-1], err))
	}
	return &report, nil
}

func (s *Snapshots) put(ctx context.Context, p string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return core.WrapError(core.ErrArchiveFailed, err)
	}
	if err := s.store.Write(ctx, p, data); err != nil {
		return core.WrapError(core.ErrArchiveFailed, fmt.Errorf("writing %s: %w", p, err))
	}
	return nil
}
