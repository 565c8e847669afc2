package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the panel server configuration.
type Config struct {
	Port     string
	LogLevel slog.Level
	Env      string

	// Backend base URL, already resolved for Env.
	APIURL      string
	HTTPTimeout time.Duration

	CookieName   string
	CookieMaxAge time.Duration

	QueryStaleTime   time.Duration
	SessionStaleTime time.Duration
	CacheRetention   time.Duration
	SweepInterval    time.Duration
	RedisURL         string

	LoginRatePerMinute int
	LoginBurst         int
}

// Production reports whether the panel runs in production mode.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	_ = godotenv.Load()

	env := strings.ToLower(os.Getenv("APP_ENV"))
	if env == "" {
		env = "development"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	cookieName := os.Getenv("RELAY_COOKIE_NAME")
	if cookieName == "" {
		cookieName = "auth-token"
	}

	return &Config{
		Port:               port,
		LogLevel:           parseLevel(os.Getenv("LOG_LEVEL")),
		Env:                env,
		APIURL:             apiURL(env),
		HTTPTimeout:        duration("HTTP_TIMEOUT", 30*time.Second),
		CookieName:         cookieName,
		CookieMaxAge:       duration("RELAY_COOKIE_MAX_AGE", 15*time.Minute),
		QueryStaleTime:     duration("QUERY_STALE_TIME", 2*time.Minute),
		SessionStaleTime:   duration("SESSION_STALE_TIME", 5*time.Minute),
		CacheRetention:     duration("CACHE_RETENTION", 30*time.Minute),
		SweepInterval:      duration("CACHE_SWEEP_INTERVAL", time.Minute),
		RedisURL:           os.Getenv("REDIS_URL"),
		LoginRatePerMinute: integer("LOGIN_RATE_PER_MINUTE", 10),
		LoginBurst:         integer("LOGIN_BURST", 5),
	}
}

// apiURL wählt die Backend-URL passend zur Umgebung.
func apiURL(env string) string {
	if env != "production" {
		if v := os.Getenv("API_URL_DEV"); v != "" {
			return v
		}
	}
	if v := os.Getenv("API_URL"); v != "" {
		return v
	}
	return "http://localhost:8000"
}

func duration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func integer(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func parseLevel(v string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return slog.LevelInfo
	}
	return level
}
