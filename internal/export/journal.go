package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/events"
)

// ErrJournalClosed is returned by writes after Close.
var ErrJournalClosed = errors.New("trade journal closed")

// Journal appends every settled trade to a CSV file as it is published.
// Rows are buffered and flushed periodically and on Close.
type Journal struct {
	mu       sync.Mutex
	writer   *csv.Writer
	file     *os.File
	ticker   *time.Ticker
	done     chan struct{}
	closed   bool
	logger   *zap.Logger
	filePath string

	writtenRecords uint64
	flushCount     uint64
}

var _ events.Handler = (*Journal)(nil)

// NewJournal opens filePath for appending and writes the header to a new file.
func NewJournal(filePath string, flushInterval time.Duration, logger *zap.Logger) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	j := &Journal{
		writer:   csv.NewWriter(file),
		file:     file,
		ticker:   time.NewTicker(flushInterval),
		done:     make(chan struct{}),
		logger:   logger.Named("journal"),
		filePath: filePath,
	}

	if stat.Size() == 0 {
		if err := j.writer.Write(CSVHeaders()); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		j.writer.Flush()
	}

	go j.periodicFlush()
	return j, nil
}

// Subscribe attaches the journal to both trade events of bus.
func (j *Journal) Subscribe(bus *events.Bus) []events.Subscription {
	return []events.Subscription{
		bus.Subscribe(events.TokensBought, j),
		bus.Subscribe(events.TokensSold, j),
	}
}

// Handle records trade events and ignores everything else.
func (j *Journal) Handle(_ context.Context, event events.Event) error {
	trade, ok := event.(events.TradeEvent)
	if !ok {
		return nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrJournalClosed
	}
	if err := j.writer.Write(csvRow(&trade.Receipt)); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	j.writtenRecords++
	return nil
}

// Flush forces buffered rows to disk.
func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.flushLocked()
}

func (j *Journal) flushLocked() error {
	if j.closed {
		return nil
	}
	j.writer.Flush()
	if err := j.writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	if err := j.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	j.flushCount++
	return nil
}

func (j *Journal) periodicFlush() {
	for {
		select {
		case <-j.ticker.C:
			if err := j.Flush(); err != nil {
				j.logger.Error("Periodic journal flush failed",
					zap.String("file", j.filePath),
					zap.Error(err))
			}
		case <-j.done:
			return
		}
	}
}

// Close flushes and closes the file. Later calls are no-ops.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	close(j.done)
	j.ticker.Stop()

	flushErr := j.flushLocked()
	j.closed = true
	if err := errors.Join(flushErr, j.file.Close()); err != nil {
		return err
	}

	j.logger.Info("Trade journal closed",
		zap.String("file", j.filePath),
		zap.Uint64("written_records", j.writtenRecords),
		zap.Uint64("flush_count", j.flushCount))
	return nil
}

// Stats returns the number of rows written and flushes performed.
func (j *Journal) Stats() (records, flushes uint64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.writtenRecords, j.flushCount
}
