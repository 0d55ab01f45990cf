package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"crypto-deposit-reconcile-go/internal/common"
	"crypto-deposit-reconcile-go/internal/config"
	"crypto-deposit-reconcile-go/internal/explorer"
	"crypto-deposit-reconcile-go/internal/pricing"
	"crypto-deposit-reconcile-go/internal/reconcile"

	"go.uber.org/zap"
)

// One-shot reconciliation for a single user: the "check my balance" path.
func main() {
	userId := flag.String("user", "", "User id to reconcile (required)")
	flag.Parse()

	if *userId == "" {
		fmt.Println("Usage: reconcile -user <user-id>")
		os.Exit(1)
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()

	enabled, err := common.LoadEnabledAssets(cfg.Reconciler.AssetsFile)
	if err != nil {
		zap.L().Fatal("Failed to load enabled assets", zap.Error(err))
	}

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

	sums, err := engine.ReconcileUser(ctx, *userId)
	if err != nil {
		zap.L().Fatal("Reconciliation failed", zap.Error(err))
	}

	common.PrintHeader("RECONCILIATION RESULT", common.DefaultWidth)
	if len(sums) == 0 {
		fmt.Println("No new deposits found this cycle")
	} else {
		for asset, amount := range sums {
			fmt.Printf("  %-16s %s\n", asset.Key(), amount.String())
		}
	}

	user, err := dbService.GetUserById(ctx, *userId)
	if err != nil {
		zap.L().Fatal("Failed to load user", zap.Error(err))
	}
	common.PrintFooter(fmt.Sprintf("Balance for %s: %s", user.Name, user.TopUpAmount.String()), common.DefaultWidth)
}
