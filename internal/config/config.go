package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"crypto-deposit-reconcile-go/internal/models"
)

func Load() (*models.Config, error) {
	lookbackWindow, err := getEnvDuration("RECONCILER_LOOKBACK_WINDOW", 6*time.Hour)
	if err != nil {
		return nil, err
	}

	sweepInterval, err := getEnvDuration("RECONCILER_SWEEP_INTERVAL", 60*time.Second)
	if err != nil {
		return nil, err
	}

	explorerTimeout, err := getEnvDuration("EXPLORER_REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	oracleTimeout, err := getEnvDuration("ORACLE_REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "deposits.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Explorer: models.ExplorerConfig{
			RequestTimeout:     explorerTimeout,
			EthplorerAPIKey:    getEnvString("ETHPLORER_API_KEY", "freekey"),
			MempoolBaseURL:     getEnvString("MEMPOOL_BASE_URL", ""),
			BlockcypherBaseURL: getEnvString("BLOCKCYPHER_BASE_URL", ""),
			TrongridBaseURL:    getEnvString("TRONGRID_BASE_URL", ""),
			TronscanBaseURL:    getEnvString("TRONSCAN_BASE_URL", ""),
			EthplorerBaseURL:   getEnvString("ETHPLORER_BASE_URL", ""),
		},
		Oracle: models.OracleConfig{
			RequestTimeout: oracleTimeout,
			KrakenBaseURL:  getEnvString("KRAKEN_BASE_URL", ""),
		},
		Reconciler: models.ReconcilerConfig{
			LookbackWindow: lookbackWindow,
			SweepInterval:  sweepInterval,
			SweepParallel:  getEnvInt("RECONCILER_SWEEP_PARALLEL", 4),
			AssetsFile:     getEnvString("ASSETS_FILE", "assets.yaml"),
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
