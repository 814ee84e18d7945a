package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for the YAML overlay. Zero values leave the
// current setting untouched.
type fileConfig struct {
	Port               string   `yaml:"port"`
	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
	TrustedProxies     []string `yaml:"trusted_proxies"`

	DataBackend  string `yaml:"data_backend"`
	SQLiteDBPath string `yaml:"sqlite_db_path"`
	SeedFile     string `yaml:"seed_file"`

	Booking struct {
		URL     string        `yaml:"url"`
		Token   string        `yaml:"token"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"booking"`

	AMQP struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
		Queue    string `yaml:"queue"`
	} `yaml:"amqp"`

	Telegram struct {
		BotToken     string        `yaml:"bot_token"`
		AuthMaxAge   time.Duration `yaml:"auth_max_age"`
		AllowedUsers []int64       `yaml:"allowed_users"`
	} `yaml:"telegram"`

	History struct {
		Timezone   string        `yaml:"timezone"`
		PageSize   int           `yaml:"page_size"`
		Transition time.Duration `yaml:"transition"`
		Kickoff    time.Duration `yaml:"kickoff"`
		CacheTTL   time.Duration `yaml:"cache_ttl"`
	} `yaml:"history"`

	ImageProxyURL string `yaml:"image_proxy_url"`
	Theme         string `yaml:"theme"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	setString(&c.Port, fc.Port)
	setInt(&c.RateLimitPerMinute, fc.RateLimitPerMinute)
	if len(fc.TrustedProxies) > 0 {
		c.TrustedProxies = fc.TrustedProxies
	}

	setString(&c.DataBackend, fc.DataBackend)
	setString(&c.SQLiteDBPath, fc.SQLiteDBPath)
	setString(&c.SeedFile, fc.SeedFile)

	setString(&c.BookingAPIURL, fc.Booking.URL)
	setString(&c.BookingAPIToken, fc.Booking.Token)
	setDuration(&c.BookingAPITimeout, fc.Booking.Timeout)

	setString(&c.AMQPURL, fc.AMQP.URL)
	setString(&c.AMQPExchange, fc.AMQP.Exchange)
	setString(&c.AMQPQueue, fc.AMQP.Queue)

	setString(&c.TelegramBotToken, fc.Telegram.BotToken)
	setDuration(&c.TelegramAuthMaxAge, fc.Telegram.AuthMaxAge)
	if len(fc.Telegram.AllowedUsers) > 0 {
		c.TelegramAllowedUsers = fc.Telegram.AllowedUsers
	}

	setString(&c.HistoryTimezone, fc.History.Timezone)
	setInt(&c.HistoryPageSize, fc.History.PageSize)
	setDuration(&c.HistoryTransition, fc.History.Transition)
	setDuration(&c.HistoryKickoff, fc.History.Kickoff)
	setDuration(&c.HistoryCacheTTL, fc.History.CacheTTL)

	setString(&c.ImageProxyURL, fc.ImageProxyURL)
	setString(&c.Theme, fc.Theme)

	setString(&c.LogLevel, fc.Log.Level)
	setString(&c.LogFormat, fc.Log.Format)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
