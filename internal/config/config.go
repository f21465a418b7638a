package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// RPC settings
	RPCUrl string

	// HTTP client settings. Retries are off unless MAX_RETRIES is set.
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// CP-Swap
	CPMMProgramID       string
	StrictDiscriminator bool
	PoolConfigPath      string

	// Aggregator fallback
	JupiterBaseURL  string
	JupiterUltraURL string
	JupiterAPIKey   string

	// Redis settings
	RedisAddr string

	// ClickHouse settings (empty addr disables swap history)
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// API server
	APIAddr  string
	APIKey   string
	DevMode  bool
	LogLevel string

	// Execution
	WalletPrivateKey string
	ConfirmTimeout   time.Duration
	SkipPreflight    bool

	// Risk limits, zero disables
	MaxSwapLamports    uint64
	DailyLimitLamports uint64
	MaxPriceImpactBps  uint64
	MinBalanceLamports uint64
}

func Load() *Config {
	return &Config{
		// RPC
		RPCUrl: getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 0),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 500*time.Millisecond),

		// CP-Swap
		CPMMProgramID:       getEnv("CPMM_PROGRAM_ID", ""),
		StrictDiscriminator: getBoolEnv("CPMM_STRICT_DISCRIMINATOR", false),
		PoolConfigPath:      getEnv("POOL_CONFIG_PATH", ""),

		// Jupiter
		JupiterBaseURL:  getEnv("JUPITER_BASE_URL", ""),
		JupiterUltraURL: getEnv("JUPITER_ULTRA_URL", ""),
		JupiterAPIKey:   getEnv("JUPITER_API_KEY", ""),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "solana"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// API
		APIAddr:  getEnv("API_ADDR", ":8090"),
		APIKey:   getEnv("API_KEY", ""),
		DevMode:  getBoolEnv("DEV_MODE", false),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Execution
		WalletPrivateKey: getEnv("WALLET_PRIVATE_KEY", ""),
		ConfirmTimeout:   getDurationEnv("CONFIRM_TIMEOUT", 60*time.Second),
		SkipPreflight:    getBoolEnv("SKIP_PREFLIGHT", false),

		// Risk
		MaxSwapLamports:    getUint64Env("RISK_MAX_SWAP_LAMPORTS", 1_000_000_000),
		DailyLimitLamports: getUint64Env("RISK_DAILY_LIMIT_LAMPORTS", 10_000_000_000),
		MaxPriceImpactBps:  getUint64Env("RISK_MAX_PRICE_IMPACT_BPS", 500),
		MinBalanceLamports: getUint64Env("RISK_MIN_BALANCE_LAMPORTS", 50_000_000),
	}
}

// Validate checks the fields every binary needs
func (c *Config) Validate() error {
	if strings.TrimSpace(c.RPCUrl) == "" {
		return fmt.Errorf("SOLANA_RPC_URL is required")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be > 0")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES must be >= 0")
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("CONFIRM_TIMEOUT must be > 0")
	}
	if c.CPMMProgramID != "" {
		if _, err := solana.PublicKeyFromBase58(c.CPMMProgramID); err != nil {
			return fmt.Errorf("CPMM_PROGRAM_ID: %w", err)
		}
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// ProgramID returns the configured CP-Swap program, or the zero key to
// select the default. Call Validate first.
func (c *Config) ProgramID() solana.PublicKey {
	if c.CPMMProgramID == "" {
		return solana.PublicKey{}
	}
	return solana.MustPublicKeyFromBase58(c.CPMMProgramID)
}

// Level parses LogLevel, defaulting to info
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getUint64Env(key string, defaultVal uint64) uint64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseUint(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
