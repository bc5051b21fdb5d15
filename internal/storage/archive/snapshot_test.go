package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/quarterly/internal/core"
)

func TestReportPath(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 30, 5, 0, time.FixedZone("EST", -5*3600))
	assert.Equal(t, "earnings/AAPL/20240301T173005Z.json", ReportPath("aapl", at))
	assert.Equal(t, "calendar/2024-03-01.json", CalendarPath(at))
}

func TestSnapshots_LatestReport(t *testing.T) {
	fs, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	snaps := NewSnapshots(fs)
	ctx := context.Background()

	first := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, sym := range []string{"AAPL", "AAPL", "AAPLX"} {
		_, err := snaps.SaveReport(ctx, &core.EarningsReport{
			Symbol:    sym,
			Timestamp: first.Add(time.Duration(i) * time.Hour),
			Streak:    core.Streak{Type: core.StreakBeat, Count: i},
		})
		require.NoError(t, err)
	}

	latest, err := snaps.LatestReport(ctx, "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", latest.Symbol)
	assert.Equal(t, 1, latest.Streak.Count)
}

func TestSnapshots_LatestReportMissing(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	_, err := NewSnapshots(fs).LatestReport(context.Background(), "NONE")
	assert.True(t, errors.Is(err, core.ErrNoData))
}

func TestSnapshots_SaveCalendar(t *testing.T) {
	fs, _ := NewLocalFS(t.TempDir())
	snaps := NewSnapshots(fs)
	ctx := context.Background()

	p, err := snaps.SaveCalendar(ctx, core.Calendar{"2024-03-05": {{Symbol: "AAA"}}}, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "calendar/2024-03-01.json", p)

	ok, err := fs.Exists(ctx, p)
	require.NoError(t, err)
	assert.True(t, ok)
}

type failingStore struct{ Storage }

func (failingStore) Write(context.Context, string, []byte) error { return errors.New("disk full") }

func TestSnapshots_WriteFailure(t *testing.T) {
	_, err := NewSnapshots(failingStore{}).SaveReport(context.Background(), &core.EarningsReport{Symbol: "AAPL"})
	assert.True(t, errors.Is(err, core.ErrArchiveFailed))

	_, err = NewSnapshots(failingStore{}).SaveReport(context.Background(), nil)
	assert.True(t, errors.Is(err, core.ErrArchiveFailed))
}
