package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents runtime configuration for the market gateway service.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	JournalPath string
	Env         string
	Market      MarketFile
}

// MarketFile is the TOML-backed market definition: the privileged principal,
// the registry allowlist seed and the per-principal request quota.
type MarketFile struct {
	Admin             string   `toml:"admin"`
	AllowlistDisabled bool     `toml:"allowlist_disabled"`
	Allowlist         []string `toml:"allowlist"`
	RequestsPerMin    uint32   `toml:"requests_per_min"`
}

// FromEnv loads configuration from the environment variables required by the
// service and the TOML market file they point at.
func FromEnv() (*Config, error) {
	port := getEnvDefault("MARKET_PORT", "8080")

	dbURL := os.Getenv("MARKET_DB_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("MARKET_DB_URL is required")
	}

	secret := os.Getenv("MARKET_JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("MARKET_JWT_SECRET is required")
	}

	marketFile := os.Getenv("MARKET_CONFIG_FILE")
	if marketFile == "" {
		return nil, fmt.Errorf("MARKET_CONFIG_FILE is required")
	}
	market, err := loadMarketFile(marketFile)
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:        port,
		DatabaseURL: dbURL,
		JWTSecret:   secret,
		JournalPath: getEnvDefault("MARKET_JOURNAL_PATH", "market-events.db"),
		Env:         os.Getenv("MARKET_ENV"),
		Market:      market,
	}, nil
}

func loadMarketFile(path string) (MarketFile, error) {
	var market MarketFile
	if _, err := toml.DecodeFile(path, &market); err != nil {
		return MarketFile{}, fmt.Errorf("market file %s: %w", path, err)
	}
	if market.Admin == "" {
		return MarketFile{}, fmt.Errorf("market file %s: admin is required", path)
	}
	return market, nil
}

func getEnvDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
