package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ducminhle1904/fusion-trading-bot/internal/fusion"
	"github.com/ducminhle1904/fusion-trading-bot/internal/risk"
	"github.com/ducminhle1904/fusion-trading-bot/internal/venue"
)

// Config is the full runtime configuration: a JSON file loaded first,
// then environment variables override the sensitive and deploy-specific
// fields.
type Config struct {
	Environment   string  `json:"environment"`
	LogLevel      string  `json:"log_level"`
	InitialEquity float64 `json:"initial_equity"`

	Fusion    fusion.Weights    `json:"fusion"`
	Risk      risk.Policy       `json:"risk"`
	Venue     venue.Config      `json:"venue"`
	Retry     venue.RetryPolicy `json:"retry"`
	Execution ExecutionConfig   `json:"execution"`
	Trading   TradingConfig     `json:"trading"`
	Server    ServerConfig      `json:"server"`

	Notifications NotificationsConfig `json:"notifications"`
	Journal       JournalConfig       `json:"journal"`
	Reporting     ReportingConfig     `json:"reporting"`
}

// ExecutionConfig tunes the coordinator.
type ExecutionConfig struct {
	Concurrency  int           `json:"concurrency"`
	PollInterval time.Duration `json:"poll_interval"`
}

// TradingConfig drives the demo decision loop.
type TradingConfig struct {
	Symbols    []string           `json:"symbols"`
	Quantity   float64            `json:"quantity"`
	PriceHints map[string]float64 `json:"price_hints"`
	Interval   time.Duration      `json:"interval"`
}

type ServerConfig struct {
	Port int `json:"port"`
}

type NotificationsConfig struct {
	TelegramToken  string `json:"telegram_token"`
	TelegramChatID string `json:"telegram_chat_id"`
}

type JournalConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir"`
}

type ReportingConfig struct {
	XLSXPath string `json:"xlsx_path"`
}

// Default returns the built-in configuration: paper venue, default
// weights and policy, one symbol.
func Default() *Config {
	return &Config{
		Environment:   "development",
		LogLevel:      "info",
		InitialEquity: 10_000,
		Fusion:        fusion.DefaultWeights(),
		Risk:          risk.DefaultPolicy(),
		Venue:         venue.Config{Name: "paper"},
		Retry:         venue.DefaultRetryPolicy(),
		Execution: ExecutionConfig{
			Concurrency:  5,
			PollInterval: 5 * time.Second,
		},
		Trading: TradingConfig{
			Symbols:    []string{"BTCUSDT"},
			Quantity:   0.01,
			PriceHints: map[string]float64{"BTCUSDT": 50_000},
			Interval:   time.Minute,
		},
		Server:  ServerConfig{Port: 8080},
		Journal: JournalConfig{Enabled: true, Dir: "logs"},
	}
}

// Load reads the JSON file (optional), applies environment overrides
// and validates the result.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	c.Environment = getEnv("ENV", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.InitialEquity = getEnvFloat("INITIAL_EQUITY", c.InitialEquity)

	c.Venue.Name = getEnv("VENUE_NAME", c.Venue.Name)
	if key := os.Getenv("BYBIT_API_KEY"); key != "" {
		if c.Venue.Bybit == nil {
			c.Venue.Bybit = &venue.BybitConfig{Category: "linear"}
		}
		c.Venue.Bybit.APIKey = key
		c.Venue.Bybit.APISecret = getEnv("BYBIT_API_SECRET", c.Venue.Bybit.APISecret)
		c.Venue.Bybit.Testnet = getEnvBool("BYBIT_TESTNET", c.Venue.Bybit.Testnet)
		c.Venue.Bybit.Demo = getEnvBool("BYBIT_DEMO", c.Venue.Bybit.Demo)
	}

	c.Server.Port = getEnvInt("SERVER_PORT", c.Server.Port)
	c.Execution.Concurrency = getEnvInt("EXECUTION_CONCURRENCY", c.Execution.Concurrency)
	c.Execution.PollInterval = getEnvDuration("POLL_INTERVAL", c.Execution.PollInterval)
	c.Trading.Interval = getEnvDuration("TRADING_INTERVAL", c.Trading.Interval)

	c.Notifications.TelegramToken = getEnv("TELEGRAM_TOKEN", c.Notifications.TelegramToken)
	c.Notifications.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", c.Notifications.TelegramChatID)
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if _, err := fusion.NewFuser(c.Fusion); err != nil {
		return fmt.Errorf("fusion config: %w", err)
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk config: %w", err)
	}
	if c.InitialEquity <= 0 {
		return fmt.Errorf("initial_equity must be positive, got %v", c.InitialEquity)
	}
	if c.Venue.Name == "" {
		return fmt.Errorf("venue name is required")
	}
	if c.Venue.Name == "bybit" && c.Venue.Bybit == nil {
		return fmt.Errorf("bybit venue selected but bybit credentials missing")
	}
	if c.Execution.Concurrency <= 0 {
		return fmt.Errorf("execution concurrency must be positive, got %d", c.Execution.Concurrency)
	}
	if c.Execution.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", c.Execution.PollInterval)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry max_retries must not be negative, got %d", c.Retry.MaxRetries)
	}
	if c.Trading.Quantity <= 0 {
		return fmt.Errorf("trading quantity must be positive, got %v", c.Trading.Quantity)
	}
	for _, symbol := range c.Trading.Symbols {
		if c.Trading.PriceHints[symbol] <= 0 {
			return fmt.Errorf("price hint for %s must be positive", symbol)
		}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
