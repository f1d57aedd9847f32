package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/signal-intel/pkg/logger"
)

// BufferedMetrics manages batched metrics with auto-flush
type BufferedMetrics struct {
	writer      Writer
	buffer      map[string][]Metric
	flushTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
	batchSize   int
	bufferMu    sync.Mutex
}

// BufferConfig configures metrics buffer
type BufferConfig struct {
	Writer        Writer
	BatchSize     int           // Flush when buffer reaches this size
	FlushInterval time.Duration // Auto-flush interval
}

// NewBufferedMetrics creates new buffered metrics manager
func NewBufferedMetrics(cfg BufferConfig) *BufferedMetrics {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval == 0 {
		cfg.FlushInterval = 10 * time.Second
	}

	bm := &BufferedMetrics{
		writer:      cfg.Writer,
		buffer:      make(map[string][]Metric),
		batchSize:   cfg.BatchSize,
		flushTicker: time.NewTicker(cfg.FlushInterval),
		stopCh:      make(chan struct{}),
	}

	bm.wg.Add(1)
	go bm.autoFlush()

	logger.Debug("metrics buffer initialized",
		zap.Int("batch_size", cfg.BatchSize),
		zap.Duration("flush_interval", cfg.FlushInterval),
	)

	return bm
}

// Add adds metric to buffer (thread-safe)
func (bm *BufferedMetrics) Add(metric Metric) error {
	if metric == nil {
		return fmt.Errorf("metric is nil")
	}

	tableName := metric.TableName()
	if tableName == "" {
		return fmt.Errorf("metric table name is empty")
	}

	bm.bufferMu.Lock()
	bm.buffer[tableName] = append(bm.buffer[tableName], metric)
	full := len(bm.buffer[tableName]) >= bm.batchSize
	bm.bufferMu.Unlock()

	if full {
		// Flush in background to avoid blocking the caller
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := bm.Flush(ctx); err != nil {
				logger.Error("auto-flush failed", zap.Error(err))
			}
		}()
	}

	return nil
}

// Flush flushes all buffered metrics to writer
func (bm *BufferedMetrics) Flush(ctx context.Context) error {
	bm.bufferMu.Lock()
	toFlush := make(map[string][]Metric)
	for table, metrics := range bm.buffer {
		if len(metrics) > 0 {
			toFlush[table] = metrics
			bm.buffer[table] = nil
		}
	}
	bm.bufferMu.Unlock()

	if len(toFlush) == 0 {
		return nil
	}

	var failed int
	for tableName, metrics := range toFlush {
		if err := bm.writer.Write(ctx, tableName, metrics); err != nil {
			logger.Error("failed to flush metrics",
				zap.String("table", tableName),
				zap.Int("count", len(metrics)),
				zap.Error(err),
			)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("flush failed for %d tables", failed)
	}
	return nil
}

// Size returns current buffer size across all tables
func (bm *BufferedMetrics) Size() int {
	bm.bufferMu.Lock()
	defer bm.bufferMu.Unlock()

	total := 0
	for _, metrics := range bm.buffer {
		total += len(metrics)
	}
	return total
}

// Close stops the auto-flush loop and flushes what remains.
func (bm *BufferedMetrics) Close() error {
	close(bm.stopCh)
	bm.flushTicker.Stop()
	bm.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return bm.Flush(ctx)
}

func (bm *BufferedMetrics) autoFlush() {
	defer bm.wg.Done()

	for {
		select {
		case <-bm.stopCh:
			return
		case <-bm.flushTicker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := bm.Flush(ctx); err != nil {
				logger.Error("periodic flush failed", zap.Error(err))
			}
			cancel()
		}
	}
}
