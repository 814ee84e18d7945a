package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	applog "matchday/internal/log"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	// TrustedProxies are CIDRs, beyond private ranges, whose forwarding
	// headers are believed.
	TrustedProxies []string

	// Data backend: memory, sqlite or api
	DataBackend  string
	SQLiteDBPath string
	SeedFile     string

	// Remote booking API
	BookingAPIURL     string
	BookingAPIToken   string
	BookingAPITimeout time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Telegram
	TelegramBotToken     string
	TelegramAuthMaxAge   time.Duration
	TelegramAllowedUsers []int64

	// Match history
	HistoryTimezone   string
	HistoryPageSize   int
	HistoryTransition time.Duration
	HistoryKickoff    time.Duration
	HistoryCacheTTL   time.Duration

	// Rendering
	ImageProxyURL string
	Theme         string

	// Logging
	LogLevel  string
	LogFormat string

	// ConfigFile is the optional YAML file applied beneath environment variables.
	ConfigFile string
	fileErr    error
}

func defaults() *Config {
	return &Config{
		Port:               "8081",
		RateLimitPerMinute: 60,

		DataBackend:  "memory",
		SQLiteDBPath: "./data/matchday.db",
		SeedFile:     "./data/matches.json",

		BookingAPITimeout: 10 * time.Second,

		AMQPExchange: "matchday",
		AMQPQueue:    "match_completed",

		TelegramAuthMaxAge: 24 * time.Hour,

		HistoryTimezone:   "UTC",
		HistoryPageSize:   3,
		HistoryTransition: 300 * time.Millisecond,
		HistoryKickoff:    10 * time.Millisecond,
		HistoryCacheTTL:   time.Minute,

		Theme:     "light",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds the configuration from defaults, the optional CONFIG_FILE and
// the environment, in increasing order of precedence. A config file that
// cannot be read is reported by Validate.
func Load() *Config {
	cfg := defaults()

	cfg.ConfigFile = os.Getenv("CONFIG_FILE")
	if cfg.ConfigFile != "" {
		cfg.fileErr = cfg.applyFile(cfg.ConfigFile)
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute)
	cfg.TrustedProxies = getEnvList("TRUSTED_PROXIES", cfg.TrustedProxies)

	cfg.DataBackend = getEnv("DATA_BACKEND", cfg.DataBackend)
	cfg.SQLiteDBPath = getEnv("SQLITE_DB_PATH", cfg.SQLiteDBPath)
	cfg.SeedFile = getEnv("SEED_FILE", cfg.SeedFile)

	cfg.BookingAPIURL = getEnv("BOOKING_API_URL", cfg.BookingAPIURL)
	cfg.BookingAPIToken = getEnv("BOOKING_API_TOKEN", cfg.BookingAPIToken)
	cfg.BookingAPITimeout = getEnvDuration("BOOKING_API_TIMEOUT", cfg.BookingAPITimeout)

	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)
	cfg.AMQPQueue = getEnv("AMQP_QUEUE", cfg.AMQPQueue)

	cfg.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	cfg.TelegramAuthMaxAge = getEnvDuration("TELEGRAM_AUTH_MAX_AGE", cfg.TelegramAuthMaxAge)
	cfg.TelegramAllowedUsers = getEnvInt64List("TELEGRAM_ALLOWED_USERS", cfg.TelegramAllowedUsers)

	cfg.HistoryTimezone = getEnv("HISTORY_TIMEZONE", cfg.HistoryTimezone)
	cfg.HistoryPageSize = getEnvInt("HISTORY_PAGE_SIZE", cfg.HistoryPageSize)
	cfg.HistoryTransition = getEnvDuration("HISTORY_TRANSITION", cfg.HistoryTransition)
	cfg.HistoryKickoff = getEnvDuration("HISTORY_KICKOFF", cfg.HistoryKickoff)
	cfg.HistoryCacheTTL = getEnvDuration("HISTORY_CACHE_TTL", cfg.HistoryCacheTTL)

	cfg.ImageProxyURL = getEnv("IMAGE_PROXY_URL", cfg.ImageProxyURL)
	cfg.Theme = getEnv("THEME", cfg.Theme)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	return cfg
}

// Location resolves HistoryTimezone.
func (c *Config) Location() (*time.Location, error) {
	if c.HistoryTimezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.HistoryTimezone)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.fileErr != nil {
		errors = append(errors, fmt.Sprintf("cannot load config file '%s': %v", c.ConfigFile, c.fileErr))
	}

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if _, err := c.TrustedProxyPrefixes(); err != nil {
		errors = append(errors, err.Error())
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite", "api"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "api" {
		if c.BookingAPIURL == "" {
			errors = append(errors, "booking API URL is required when using api backend")
		} else if u, err := url.Parse(c.BookingAPIURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid booking API URL '%s': %v", c.BookingAPIURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid booking API URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
		if c.BookingAPITimeout <= 0 {
			errors = append(errors, fmt.Sprintf("invalid booking API timeout %v: must be positive", c.BookingAPITimeout))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.TelegramAuthMaxAge < 0 {
		errors = append(errors, fmt.Sprintf("invalid Telegram auth max age %v: must not be negative", c.TelegramAuthMaxAge))
	}

	// Validate history settings
	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid history timezone '%s': %v", c.HistoryTimezone, err))
	}
	if c.HistoryPageSize < 1 || c.HistoryPageSize > 12 {
		errors = append(errors, fmt.Sprintf("invalid history page size %d: must be between 1 and 12", c.HistoryPageSize))
	}
	if c.HistoryTransition < 50*time.Millisecond || c.HistoryTransition > 5*time.Second {
		errors = append(errors, fmt.Sprintf("invalid history transition %v: must be between 50ms and 5s", c.HistoryTransition))
	}
	if c.HistoryKickoff <= 0 || c.HistoryKickoff >= c.HistoryTransition {
		errors = append(errors, fmt.Sprintf("invalid history kickoff %v: must be positive and shorter than the transition", c.HistoryKickoff))
	}
	if c.HistoryCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid history cache TTL %v: must not be negative", c.HistoryCacheTTL))
	}

	if c.ImageProxyURL != "" {
		if u, err := url.Parse(c.ImageProxyURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid image proxy URL '%s': must be an http(s) URL", c.ImageProxyURL))
		}
	}

	if c.Theme != "light" && c.Theme != "dark" {
		errors = append(errors, fmt.Sprintf("invalid theme '%s': must be 'light' or 'dark'", c.Theme))
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// TrustedProxyPrefixes parses TrustedProxies.
func (c *Config) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(c.TrustedProxies))
	for _, cidr := range c.TrustedProxies {
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy '%s': must be a CIDR", cidr)
		}
		out = append(out, p.Masked())
	}
	return out, nil
}

// IsUserAllowed reports whether a Telegram user may use the bot. An empty
// allow-list admits everyone.
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.TelegramAllowedUsers) == 0 {
		return true
	}
	for _, id := range c.TelegramAllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt64List(key string, defaultValue []int64) []int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []int64
	for _, part := range strings.Split(value, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil {
			out = append(out, id)
		}
	}
	return out
}
