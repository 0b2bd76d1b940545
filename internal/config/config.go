// internal/config/config.go
package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	BackendLevelDB  = "leveldb"
	BackendPostgres = "postgres"
)

// Config is the process configuration read from the environment.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"crowdfund"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	LedgerBackend string `env:"LEDGER_BACKEND" envDefault:"leveldb"`
	LevelDBPath   string `env:"LEVELDB_PATH" envDefault:"data/ledger"`

	DatabaseURL string `env:"DATABASE_URL"`
	DBUser      string `env:"DB_USER"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBPort      string `env:"DB_PORT" envDefault:"5432"`
	DBName      string `env:"DB_NAME"`

	AMQPURL     string `env:"AMQP_URL"`
	EventsQueue string `env:"EVENTS_QUEUE" envDefault:"ledger_events"`
	RedisAddr   string `env:"REDIS_ADDR"`

	AuthAudience    string        `env:"AUTH_AUDIENCE" envDefault:"crowdfund"`
	AuthMaxTokenAge time.Duration `env:"AUTH_MAX_TOKEN_AGE" envDefault:"5m"`

	FaucetEnabled bool   `env:"FAUCET_ENABLED" envDefault:"false"`
	SeedAccounts  string `env:"SEED_ACCOUNTS"`

	OTelEndpoint    string  `env:"OTEL_ENDPOINT"`
	OTelSampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on OS environment variables")
	}
	return Parse()
}

// Parse reads configuration from the environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.LedgerBackend = strings.ToLower(strings.TrimSpace(cfg.LedgerBackend))
	switch cfg.LedgerBackend {
	case BackendLevelDB, BackendPostgres:
	default:
		return Config{}, fmt.Errorf("LEDGER_BACKEND must be %q or %q, got %q", BackendLevelDB, BackendPostgres, cfg.LedgerBackend)
	}
	if cfg.AuthMaxTokenAge <= 0 {
		return Config{}, fmt.Errorf("AUTH_MAX_TOKEN_AGE must be positive")
	}
	if cfg.OTelSampleRatio < 0 || cfg.OTelSampleRatio > 1 {
		return Config{}, fmt.Errorf("OTEL_SAMPLE_RATIO must be between 0 and 1, got %v", cfg.OTelSampleRatio)
	}
	return cfg, nil
}

// PostgresDSN prefers DATABASE_URL and otherwise assembles one from the DB_* parts.
func (c Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	if c.DBName == "" {
		return ""
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName,
	)
}

// SeedCredit is one account to pre-fund from SEED_ACCOUNTS.
type SeedCredit struct {
	Account string
	Amount  uint64
}

// SeedCredits parses SEED_ACCOUNTS, a comma separated list of address:amount.
func (c Config) SeedCredits() ([]SeedCredit, error) {
	var credits []SeedCredit
	for _, item := range strings.Split(c.SeedAccounts, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		account, rawAmount, ok := strings.Cut(item, ":")
		if !ok {
			return nil, fmt.Errorf("seed account %q must be address:amount", item)
		}
		amount, err := strconv.ParseUint(strings.TrimSpace(rawAmount), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("seed account %q: %w", item, err)
		}
		credits = append(credits, SeedCredit{Account: strings.TrimSpace(account), Amount: amount})
	}
	return credits, nil
}
