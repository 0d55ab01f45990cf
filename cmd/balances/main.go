package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"crypto-deposit-reconcile-go/internal/common"
	"crypto-deposit-reconcile-go/internal/config"
	"crypto-deposit-reconcile-go/internal/store"

	"go.uber.org/zap"
)

// Prints a user's balance, uncredited deposit backlog and recent credits.
func main() {
	userId := flag.String("user", "", "User id (required)")
	limit := flag.Int("limit", 10, "Number of recent credit events to show")
	flag.Parse()

	if *userId == "" {
		fmt.Println("Usage: balances -user <user-id> [-limit <n>]")
		os.Exit(1)
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()
	dbService, err := common.InitializeDatabase(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	user, err := dbService.GetUserById(ctx, *userId)
	if err != nil {
		zap.L().Fatal("Failed to load user", zap.Error(err))
	}

	common.PrintHeader(fmt.Sprintf("BALANCE - %s", user.Name), common.DefaultWidth)
	fmt.Printf("  Top-up total: %s\n", user.TopUpAmount.String())

	uncredited, err := dbService.UncreditedDeposits(ctx, user.Id)
	if err != nil {
		zap.L().Fatal("Failed to load uncredited deposits", zap.Error(err))
	}
	if len(uncredited) > 0 {
		fmt.Printf("\nUncredited deposits (%d):\n", len(uncredited))
		for i, deposit := range uncredited {
			prefix := common.BoxPrefix(i == len(uncredited)-1)
			fmt.Printf("%s%s  %d (raw)  tx %s\n", prefix,
				store.DepositKey(deposit.Network, deposit.TokenName), deposit.Amount, deposit.TxId)
		}
	}

	events, err := dbService.GetCreditEvents(ctx, user.Id, *limit)
	if err != nil {
		zap.L().Fatal("Failed to load credit events", zap.Error(err))
	}
	if len(events) > 0 {
		fmt.Printf("\nRecent credits (%d):\n", len(events))
		for i, event := range events {
			prefix := common.BoxPrefix(i == len(events)-1)
			fmt.Printf("%s+%s  (%s -> %s)  %s\n", prefix,
				event.FiatAmount.String(), event.BalanceBefore.String(),
				event.BalanceAfter.String(), event.CreatedAt.Format("2006-01-02 15:04:05"))
		}
	}

	common.PrintFooter("Done", common.DefaultWidth)
}
