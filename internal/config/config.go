package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Telegram
	TelegramBotToken string
	AdminChatID      int64

	// DexScreener
	DexScreenerBaseURL string
	ListingsCacheTTL   time.Duration

	// Helius
	HeliusAPIKey   string
	HeliusBaseURL  string
	HolderCacheTTL time.Duration

	// Redis settings
	RedisAddr string
	RedisDB   int

	// ClickHouse call-log archive (optional)
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration

	// Autopost
	ScanInterval     time.Duration
	GlobalMinScore   float64
	AutopostEnabled  bool
	FilterPolicyName string

	// Real-time graduation stream
	StreamEnabled bool

	// Ops HTTP server
	ServerAddr   string
	ServerAPIKey string
	DevMode      bool

	// AI digest
	OpenRouterAPIKey string
	DigestModel      string
}

func Load() *Config {
	return &Config{
		// Telegram
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		AdminChatID:      getInt64Env("TELEGRAM_ADMIN_CHAT_ID", 0),

		// DexScreener
		DexScreenerBaseURL: getEnv("DEXSCREENER_BASE_URL", "https://api.dexscreener.com"),
		ListingsCacheTTL:   getDurationEnv("LISTINGS_CACHE_TTL", 30*time.Second),

		// Helius
		HeliusAPIKey:   getEnv("HELIUS_API_KEY", ""),
		HeliusBaseURL:  getEnv("HELIUS_BASE_URL", "https://mainnet.helius-rpc.com"),
		HolderCacheTTL: getDurationEnv("HOLDER_CACHE_TTL", 60*time.Second),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getIntEnv("REDIS_DB", 0),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "gradwatch"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 15*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 3),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 2*time.Second),

		// Autopost
		ScanInterval:     getDurationEnv("SCAN_INTERVAL", 60*time.Second),
		GlobalMinScore:   getFloatEnv("GLOBAL_MIN_SCORE", 6.5),
		AutopostEnabled:  getBoolEnv("AUTOPOST_ENABLED", true),
		FilterPolicyName: getEnv("FILTER_POLICY", "default"),

		// Stream
		StreamEnabled: getBoolEnv("GRADUATION_STREAM_ENABLED", false),

		// Server
		ServerAddr:   getEnv("SERVER_ADDR", ":8090"),
		ServerAPIKey: getEnv("SERVER_API_KEY", ""),
		DevMode:      getBoolEnv("DEV_MODE", false),

		// AI digest
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		DigestModel:      getEnv("DIGEST_MODEL", "openai/gpt-4.1-mini"),
	}
}

// Validate checks the settings the bot cannot start without.
func (c *Config) Validate() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.ScanInterval < time.Second {
		return fmt.Errorf("SCAN_INTERVAL must be at least 1s, got %s", c.ScanInterval)
	}
	if c.GlobalMinScore < 0 || c.GlobalMinScore > 10 {
		return fmt.Errorf("GLOBAL_MIN_SCORE must be between 0 and 10, got %g", c.GlobalMinScore)
	}
	return nil
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

func getInt64Env(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
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
