package models

import "time"

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	Explorer   ExplorerConfig
	Oracle     OracleConfig
	Reconciler ReconcilerConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// ExplorerConfig holds blockchain explorer client settings
type ExplorerConfig struct {
	RequestTimeout  time.Duration
	EthplorerAPIKey string

	// Base URL overrides, used by tests and self-hosted indexers.
	// Empty means the public endpoint.
	MempoolBaseURL     string
	BlockcypherBaseURL string
	TrongridBaseURL    string
	TronscanBaseURL    string
	EthplorerBaseURL   string
}

// OracleConfig holds price oracle settings
type OracleConfig struct {
	RequestTimeout time.Duration
	KrakenBaseURL  string
}

// ReconcilerConfig holds reconciliation worker settings
type ReconcilerConfig struct {
	LookbackWindow time.Duration
	SweepInterval  time.Duration
	SweepParallel  int
	AssetsFile     string
}
