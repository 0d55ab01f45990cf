package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"crypto-deposit-reconcile-go/internal/common"
	"crypto-deposit-reconcile-go/internal/config"

	"go.uber.org/zap"
)

// Registers a user plus per-network deposit addresses. Address generation
// and key custody happen outside this system; the tool only records the
// addresses the reconciler should watch.
func main() {
	name := flag.String("name", "", "User display name (required)")
	btcAddress := flag.String("btc", "", "BTC deposit address")
	ltcAddress := flag.String("ltc", "", "LTC deposit address")
	trxAddress := flag.String("trx", "", "TRX deposit address")
	ethAddress := flag.String("eth", "", "ETH deposit address")
	flag.Parse()

	if *name == "" {
		fmt.Println("Usage: adduser -name <name> [-btc <addr>] [-ltc <addr>] [-trx <addr>] [-eth <addr>]")
		os.Exit(1)
	}

	addresses := map[string]string{
		"BTC": *btcAddress,
		"LTC": *ltcAddress,
		"TRX": *trxAddress,
		"ETH": *ethAddress,
	}
	hasAddress := false
	for _, addr := range addresses {
		if addr != "" {
			hasAddress = true
		}
	}
	if !hasAddress {
		fmt.Println("At least one deposit address is required")
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

	user, err := dbService.CreateUser(ctx, *name)
	if err != nil {
		zap.L().Fatal("Failed to create user", zap.Error(err))
	}

	stored := 0
	for _, network := range []string{"BTC", "LTC", "TRX", "ETH"} {
		address := addresses[network]
		if address == "" {
			continue
		}
		if _, err := dbService.StoreAddress(ctx, user.Id, network, address); err != nil {
			zap.L().Error("Failed to store address",
				zap.String("network", network),
				zap.Error(err))
			continue
		}
		stored++
	}

	common.PrintHeader("USER CREATED", common.DefaultWidth)
	fmt.Printf("  Id:        %s\n", user.Id)
	fmt.Printf("  Name:      %s\n", user.Name)
	fmt.Printf("  Addresses: %d\n", stored)
	common.PrintFooter("Done", common.DefaultWidth)
}
