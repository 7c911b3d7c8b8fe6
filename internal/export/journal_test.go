package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/events"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestJournalRecordsTrades(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	path := filepath.Join(t.TempDir(), "journal", "trades.csv")

	j, err := NewJournal(path, time.Hour, logger)
	require.NoError(t, err)

	bus := events.NewBus(logger, 4)
	defer bus.Shutdown(ctx)
	j.Subscribe(bus)

	trades := generateTestTrades()
	require.NoError(t, bus.PublishSync(ctx, events.TradeEvent{BaseEvent: events.NewBase(events.TokensBought), Receipt: *trades[0]}))
	require.NoError(t, bus.PublishSync(ctx, events.TradeEvent{BaseEvent: events.NewBase(events.TokensSold), Receipt: *trades[2]}))
	require.NoError(t, bus.PublishSync(ctx, events.AssetGraduatedEvent{BaseEvent: events.NewBase(events.AssetGraduated), AssetID: 1}))
	require.NoError(t, j.Handle(ctx, events.MigrationFailedEvent{BaseEvent: events.NewBase(events.MigrationFailed)}))

	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	records, _ := j.Stats()
	assert.Equal(t, uint64(2), records)

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, CSVHeaders(), rows[0])
	assert.Equal(t, string(domain.SideBuy), rows[1][3])
	assert.Equal(t, string(domain.SideSell), rows[2][3])

	err = j.Handle(ctx, events.TradeEvent{BaseEvent: events.NewBase(events.TokensBought), Receipt: *trades[1]})
	assert.ErrorIs(t, err, ErrJournalClosed)
}

func TestJournalAppendsWithoutSecondHeader(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trades.csv")
	trades := generateTestTrades()

	for _, r := range trades[:2] {
		j, err := NewJournal(path, time.Hour, zaptest.NewLogger(t))
		require.NoError(t, err)
		require.NoError(t, j.Handle(ctx, events.TradeEvent{BaseEvent: events.NewBase(events.TokensBought), Receipt: *r}))
		require.NoError(t, j.Close())
	}

	rows := readRows(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "2", rows[2][0])
}

func TestJournalPeriodicFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	j, err := NewJournal(path, 5*time.Millisecond, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.Handle(context.Background(), events.TradeEvent{
		BaseEvent: events.NewBase(events.TokensBought),
		Receipt:   *generateTestTrades()[0],
	}))

	require.Eventually(t, func() bool {
		content, err := os.ReadFile(path)
		return err == nil && len(readRowsFrom(content)) == 2
	}, time.Second, 5*time.Millisecond)
}

func readRowsFrom(content []byte) [][]string {
	rows, _ := csv.NewReader(bytes.NewReader(content)).ReadAll()
	return rows
}
