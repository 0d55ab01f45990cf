package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-deposit-reconcile-go/internal/common"
	"crypto-deposit-reconcile-go/internal/config"
	"crypto-deposit-reconcile-go/internal/explorer"
	"crypto-deposit-reconcile-go/internal/pricing"
	"crypto-deposit-reconcile-go/internal/reconcile"

	"go.uber.org/zap"
)

func main() {
	assetsFile := flag.String("assets", "", "Optional path to assets.yaml (default: ASSETS_FILE env or assets.yaml)")
	flag.Parse()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}
	if *assetsFile != "" {
		cfg.Reconciler.AssetsFile = *assetsFile
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting deposit reconciler")

	enabled, err := common.LoadEnabledAssets(cfg.Reconciler.AssetsFile)
	if err != nil {
		zap.L().Fatal("Failed to load enabled assets", zap.Error(err))
	}
	zap.L().Info("Enabled assets loaded",
		zap.String("file", cfg.Reconciler.AssetsFile),
		zap.Int("count", len(enabled)))

	dbService, err := common.InitializeDatabase(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	clients, err := explorer.NewClients(cfg.Explorer, enabled)
	if err != nil {
		zap.L().Fatal("Failed to build explorer clients", zap.Error(err))
	}

	engine := reconcile.NewEngine(reconcile.EngineConfig{
		Store:          dbService,
		Clients:        clients,
		Oracle:         pricing.NewKrakenOracle(cfg.Oracle),
		LookbackWindow: cfg.Reconciler.LookbackWindow,
	})

	worker := reconcile.NewWorker(reconcile.WorkerConfig{
		Engine:        engine,
		Store:         dbService,
		SweepInterval: cfg.Reconciler.SweepInterval,
		SweepParallel: cfg.Reconciler.SweepParallel,
	})
	if err := worker.Start(ctx); err != nil {
		zap.L().Fatal("Failed to start reconciliation worker", zap.Error(err))
	}

	zap.L().Info("Reconciler running, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping worker...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		worker.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}
}
