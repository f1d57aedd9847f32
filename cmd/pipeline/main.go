package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/signal-intel/internal/adapters/clickhouse"
	"github.com/selivandex/signal-intel/internal/adapters/config"
	"github.com/selivandex/signal-intel/internal/adapters/database"
	"github.com/selivandex/signal-intel/internal/adapters/history"
	"github.com/selivandex/signal-intel/internal/adapters/source"
	"github.com/selivandex/signal-intel/internal/adapters/telegram"
	"github.com/selivandex/signal-intel/internal/digest"
	"github.com/selivandex/signal-intel/internal/filtering"
	"github.com/selivandex/signal-intel/internal/health"
	"github.com/selivandex/signal-intel/internal/intel"
	"github.com/selivandex/signal-intel/internal/pipeline"
	"github.com/selivandex/signal-intel/internal/scoring"
	"github.com/selivandex/signal-intel/internal/trends"
	"github.com/selivandex/signal-intel/pkg/logger"
	"github.com/selivandex/signal-intel/pkg/metrics"
)

func main() {
	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("Signal intelligence pipeline starting",
		zap.Duration("interval", cfg.Pipeline.Interval),
	)

	// History store: Postgres when enabled, files otherwise.
	store, db, err := initStore(cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	// Optional ClickHouse analytics sink.
	sink, cleanupSink := initSink(cfg)
	if cleanupSink != nil {
		defer cleanupSink()
	}

	// Optional digest delivery.
	notifier := initNotifier(cfg)

	compiler, err := digest.NewCompiler(store)
	if err != nil {
		return err
	}

	orchestrator := pipeline.New(ctx, &cfg.Pipeline, pipeline.Deps{
		Source:      initSource(cfg),
		Scorer:      scoring.NewScorer(&cfg.Scoring),
		Filter:      filtering.New(ctx, &cfg.Filter, store),
		Detector:    trends.NewDetector(&cfg.Trends, store),
		Synthesizer: intel.NewSynthesizer(store),
		Compiler:    compiler,
		Store:       store,
		Sink:        sink,
		Notifier:    notifier,
	})

	scheduler := pipeline.NewScheduler(&cfg.Pipeline, orchestrator)
	scheduler.Start(ctx)

	var healthServer *health.Server
	if cfg.Health.Enabled {
		healthServer = health.NewServer(cfg.Health.Port, db, orchestrator.Status)
		go func() {
			if err := healthServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("health server error", zap.Error(err))
			}
		}()
		healthServer.SetReady(true)
	}

	logger.Info("pipeline scheduler running")
	<-ctx.Done()

	logger.Info("shutdown signal received, stopping pipeline...")
	if healthServer != nil {
		healthServer.SetReady(false)
	}
	scheduler.Stop()

	if healthServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := healthServer.Stop(shutdownCtx); err != nil {
			logger.Warn("health server shutdown error", zap.Error(err))
		}
	}

	logger.Info("pipeline stopped")
	return nil
}

// initStore wires the history store. With the database enabled it runs
// migrations and uses Postgres; otherwise one JSON file per key on disk.
func initStore(cfg *config.Config) (history.Store, *database.DB, error) {
	if cfg.Database.Enabled {
		db, err := database.New(&cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := database.RunMigrations(db.DB().DB, cfg.Database.MigrationsPath); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("history store using PostgreSQL")
		return history.NewPostgresStore(db.DB()), db, nil
	}

	fileStore, err := history.NewFileStore(cfg.Database.HistoryDir)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("history store using files",
		zap.String("dir", cfg.Database.HistoryDir),
	)
	return fileStore, nil, nil
}

func initSource(cfg *config.Config) source.Source {
	var sources []source.Source
	if cfg.Source.File != "" {
		sources = append(sources, source.NewFileSource(cfg.Source.File))
	}
	if len(sources) == 0 {
		logger.Warn("no signal sources configured, batches will be empty")
	}
	return source.NewMulti(sources...)
}

func initSink(cfg *config.Config) (pipeline.MetricsSink, func()) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}

	repo, err := clickhouse.Connect(cfg.ClickHouse.DSN)
	if err != nil {
		logger.Warn("ClickHouse not available, run metrics disabled", zap.Error(err))
		return nil, nil
	}

	buffered := metrics.NewBufferedMetrics(metrics.BufferConfig{
		Writer:        repo,
		BatchSize:     cfg.ClickHouse.BatchSize,
		FlushInterval: cfg.ClickHouse.FlushInterval,
	})
	cleanup := func() {
		if err := buffered.Close(); err != nil {
			logger.Warn("metrics buffer close error", zap.Error(err))
		}
		repo.Close()
	}
	return buffered, cleanup
}

func initNotifier(cfg *config.Config) pipeline.Notifier {
	if !cfg.Telegram.Enabled {
		logger.Info("telegram delivery disabled")
		return nil
	}

	notifier, err := telegram.NewNotifier(&cfg.Telegram)
	if err != nil {
		logger.Error("failed to create telegram notifier", zap.Error(err))
		return nil
	}
	return notifier
}
