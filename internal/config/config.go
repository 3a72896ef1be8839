// Package config loads application configuration from environment variables.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the full application configuration.
type Config struct {
	DB       DBConfig
	Server   ServerConfig
	Gemini   GeminiConfig
	News     NewsConfig
	Search   SearchConfig
	S3       S3Config
	CORS     []string
	LogLevel string
}

// DBConfig holds the database connection string. Postgres URLs select the
// pgx driver; anything else is treated as a SQLite location.
type DBConfig struct {
	URL string
}

// Driver returns the database/sql driver name for the configured URL.
func (c DBConfig) Driver() string {
	if c.IsPostgres() {
		return "pgx"
	}
	return "sqlite"
}

// IsPostgres reports whether the URL points at a PostgreSQL server.
func (c DBConfig) IsPostgres() bool {
	return strings.HasPrefix(c.URL, "postgres://") || strings.HasPrefix(c.URL, "postgresql://")
}

// DSN returns the driver-specific data source name. Both sqlite:///relative
// and sqlite:////absolute forms are accepted, and SQLite
// connections always enable foreign keys and a busy timeout.
func (c DBConfig) DSN() string {
	if c.IsPostgres() {
		return c.URL
	}

	path := c.URL
	if rest, ok := strings.CutPrefix(path, "sqlite://"); ok {
		// sqlite:///./app.db -> ./app.db, sqlite:////var/app.db -> /var/app.db
		path = strings.TrimPrefix(rest, "/")
	}
	if path == "" {
		path = "app.db"
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port string
	Host string
}

// Addr returns the full listen address (host:port).
func (c ServerConfig) Addr() string {
	return c.Host + c.Port
}

// LookupBudget is the longest a company lookup can spend on outbound calls:
// the official-site search, the news API, the scraped news fallback, and the
// summary.
func (c Config) LookupBudget() time.Duration {
	return 2*c.Search.Timeout + c.News.Timeout + c.Gemini.Timeout
}

// GeminiConfig holds the generative-language API parameters.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// NewsConfig holds the structured news API parameters. An empty key disables
// the API and forces the scraped-search fallback.
type NewsConfig struct {
	GNewsAPIKey string
	BaseURL     string
	Timeout     time.Duration
}

// SearchConfig holds the HTML search page parameters.
type SearchConfig struct {
	BaseURL       string
	UserAgent     string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		slog.Debug("config: loaded .env file")
	}

	return Config{
		DB: DBConfig{
			URL: envOr("DATABASE_URL", "sqlite:///./app.db"),
		},
		Server: ServerConfig{
			Port: envOr("SERVER_PORT", ":8000"),
			Host: envOr("SERVER_HOST", ""),
		},
		Gemini: GeminiConfig{
			APIKey:  envOr("GEMINI_API_KEY", ""),
			Model:   envOr("GEMINI_MODEL", "gemini-2.5-flash"),
			BaseURL: envOr("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			Timeout: envOrDuration("GEMINI_TIMEOUT", 60*time.Second),
		},
		News: NewsConfig{
			GNewsAPIKey: envOr("GNEWS_API_KEY", ""),
			BaseURL:     envOr("GNEWS_BASE_URL", "https://gnews.io"),
			Timeout:     envOrDuration("GNEWS_TIMEOUT", 10*time.Second),
		},
		Search: SearchConfig{
			BaseURL:       envOr("SEARCH_BASE_URL", "https://duckduckgo.com"),
			UserAgent:     envOr("SEARCH_USER_AGENT", "Mozilla/5.0"),
			Timeout:       envOrDuration("SEARCH_TIMEOUT", 10*time.Second),
			RatePerSecond: envOrFloat("SEARCH_RATE", 1),
			Burst:         envOrInt("SEARCH_BURST", 3),
		},
		S3: S3Config{
			Endpoint:  envOr("S3_ENDPOINT", ""),
			Bucket:    envOr("S3_BUCKET", "scout-evidence"),
			AccessKey: envOr("S3_ACCESS_KEY", ""),
			SecretKey: envOr("S3_SECRET_KEY", ""),
			Region:    envOr("S3_REGION", "us-east-1"),
		},
		CORS:     envOrList("CORS_ORIGINS", []string{"*"}),
		LogLevel: envOr("LOG_LEVEL", "info"),
	}
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envOrFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envOrDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envOrList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
