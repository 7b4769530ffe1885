package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	accountapp "orderflow/application/account"
	"orderflow/cmd"
	"orderflow/config"
	infraauth "orderflow/infrastructure/auth"
	"orderflow/infrastructure/messaging"
	"orderflow/infrastructure/persistence/gormdb"
	"orderflow/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("Worker startup failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := parseConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.InitForApp(cfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if !cfg.Worker.Enabled {
		logger.Info("Worker is disabled by config; exiting")
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := cmd.OpenDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer cmd.CloseDatabase(db)

	publisher, err := messaging.NewFromConfig(ctx, cfg.Messaging, logger.Get())
	if err != nil {
		return fmt.Errorf("failed to create publishers: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("Failed to close publishers", zap.Error(err))
		}
	}()

	worker, err := gormdb.NewOutboxWorker(
		gormdb.NewOutboxRepository(db),
		publisher,
		cfg.Worker.PollInterval,
		cfg.Worker.BatchSize,
		cfg.Worker.MaxRetries,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox worker: %w", err)
	}
	worker.WithMaintenance(cfg.Worker.ClaimTimeout, cfg.Worker.Retention)

	accounts := accountapp.NewService(
		gormdb.NewAccountRepository(db),
		infraauth.NewBcryptHasher(cfg.Auth.BcryptCost),
		infraauth.FromAppConfig(cfg.Auth),
		logger.Get(),
	)

	logger.Info("Worker started",
		zap.Duration("poll_interval", cfg.Worker.PollInterval),
		zap.Int("batch_size", cfg.Worker.BatchSize),
		zap.Int("max_retries", cfg.Worker.MaxRetries),
		zap.Strings("sinks", publisher.Sinks()),
		zap.Duration("cleanup_interval", cfg.Worker.CleanupInterval),
		zap.Duration("claim_timeout", cfg.Worker.ClaimTimeout),
		zap.Duration("retention", cfg.Worker.Retention),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error { return runCleanup(gctx, worker, accounts, cfg.Worker.CleanupInterval) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker exited with error: %w", err)
	}

	logger.Info("Worker stopped")
	return nil
}

// runCleanup 启动时执行一次，之后按间隔执行：过期账户清理与 outbox 维护
func runCleanup(ctx context.Context, worker *gormdb.OutboxWorker, accounts *accountapp.Service, interval time.Duration) error {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := accounts.CleanupUnconfirmed(ctx, time.Now().UTC()); err != nil && !errors.Is(err, context.Canceled) {
			// 单次失败不终止 worker
			logger.Error("Unconfirmed account cleanup failed", zap.Error(err))
		}
		if err := worker.Maintain(ctx, time.Now().UTC()); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Outbox maintenance failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func parseConfigPath() string {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()
	return configPath
}
