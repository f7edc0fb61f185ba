// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Source formats understood by the fetcher.
const (
	FormatJSON = "json"
	FormatRSS  = "rss"
)

// Source is one crawler feed that the ingest runner polls.
type Source struct {
	Name   string
	URL    string
	Format string
}

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string
	AllowedUsers     []int64
	HTTPAddr         string
	RedisURL         string
	DefaultLanguage  string

	Sources        []Source
	ScrapeInterval time.Duration
	FetchTimeout   time.Duration
	USDToARSRate   float64

	NotifyInterval      time.Duration
	SendTimeout         time.Duration
	DailyCap            int
	MaxDeliveryAttempts int
	DailySummaryHour    int
	WeeklySummaryDay    int
	SummaryTimezone     string
	SummaryItems        int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	var allowedUsers []int64
	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			allowedUsers = append(allowedUsers, uid)
		}
	}

	sources, err := parseSources(os.Getenv("SOURCES"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		TelegramBotToken: token,
		DatabasePath:     envOr("DATABASE_PATH", "./data/bot.db"),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		AllowedUsers:     allowedUsers,
		HTTPAddr:         envOr("HTTP_ADDR", ":8000"),
		RedisURL:         os.Getenv("REDIS_URL"),
		DefaultLanguage:  envOr("DEFAULT_LANGUAGE", "es"),
		Sources:          sources,
		SummaryTimezone:  envOr("SUMMARY_TIMEZONE", "UTC"),
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"SCRAPE_INTERVAL", time.Hour, &cfg.ScrapeInterval},
		{"FETCH_TIMEOUT", 60 * time.Second, &cfg.FetchTimeout},
		{"NOTIFY_INTERVAL", 5 * time.Minute, &cfg.NotifyInterval},
		{"SEND_TIMEOUT", 15 * time.Second, &cfg.SendTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = durationEnv(d.key, d.def); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		key      string
		def      int
		min, max int
		dst      *int
	}{
		{"DAILY_NOTIFICATION_CAP", 50, 1, 10000, &cfg.DailyCap},
		{"MAX_DELIVERY_ATTEMPTS", 3, 1, 100, &cfg.MaxDeliveryAttempts},
		{"DAILY_SUMMARY_HOUR", 9, 0, 23, &cfg.DailySummaryHour},
		{"WEEKLY_SUMMARY_DAY", 1, 0, 6, &cfg.WeeklySummaryDay},
		{"SUMMARY_ITEMS", 10, 1, 50, &cfg.SummaryItems},
	}
	for _, i := range ints {
		if *i.dst, err = intEnv(i.key, i.def, i.min, i.max); err != nil {
			return nil, err
		}
	}

	cfg.USDToARSRate = 1000
	if raw := os.Getenv("USD_TO_ARS_RATE"); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil || rate <= 0 {
			return nil, fmt.Errorf("invalid USD_TO_ARS_RATE %q", raw)
		}
		cfg.USDToARSRate = rate
	}

	if _, err := time.LoadLocation(cfg.SummaryTimezone); err != nil {
		return nil, fmt.Errorf("invalid SUMMARY_TIMEZONE %q: %w", cfg.SummaryTimezone, err)
	}

	return cfg, nil
}

// Location returns the time zone in which summaries are scheduled.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SummaryTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// parseSources parses "name=url[,format];name=url[,format]".
func parseSources(raw string) ([]Source, error) {
	var sources []Source
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, rest, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid source %q in SOURCES: want name=url[,format]", entry)
		}
		url, format, _ := strings.Cut(rest, ",")
		url = strings.TrimSpace(url)
		format = strings.ToLower(strings.TrimSpace(format))
		if format == "" {
			format = FormatJSON
		}
		if url == "" {
			return nil, fmt.Errorf("source %q has no URL", name)
		}
		if format != FormatJSON && format != FormatRSS {
			return nil, fmt.Errorf("source %q has unknown format %q", name, format)
		}
		sources = append(sources, Source{Name: name, URL: url, Format: format})
	}
	return sources, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func intEnv(key string, def, lo, hi int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%s must be between %d and %d", key, lo, hi)
	}
	return v, nil
}
