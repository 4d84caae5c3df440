// Package config loads settings for cmd/server and cmd/chatdb.
//
// SOURCES (later wins):
//  1. .env and .env.local in the working directory (best effort, never
//     override variables that are already set)
//  2. the YAML file named by CONFIG_FILE, keyed by the same names as the
//     environment variables (PORT: 8084, SESSION_TTL: 12h, ...)
//  3. the process environment
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultDatabaseURL = "postgres://postgres:@localhost:5432/postgres"

// Config is the merged configuration for both binaries.
type Config struct {
	Port               int
	DatabaseURL        string
	SessionSecret      string
	SessionTTL         time.Duration
	RedisURL           string
	BcryptCost         int
	CORSAllowedOrigins []string
	LogLevel           slog.Level
	LogFormat          string
	ShutdownTimeout    time.Duration

	DB DBConfig
}

// DBConfig drives cmd/chatdb.
type DBConfig struct {
	// URL is DATABASE_URL when set, otherwise built from the POSTGRES_* keys.
	URL            string
	WaitMaxRetries int
	WaitRetryDelay time.Duration
}

// Load reads every source and returns the merged Config.
func Load() (*Config, error) {
	for _, f := range []string{".env", ".env.local"} {
		_ = godotenv.Load(f)
	}

	file, err := readFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	return parse(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := file[key]
		return v, ok
	})
}

func readFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	out := make(map[string]string, len(doc))
	for k, v := range doc {
		switch v := v.(type) {
		case nil:
		case []any:
			parts := make([]string, len(v))
			for i, p := range v {
				parts[i] = fmt.Sprint(p)
			}
			out[strings.ToUpper(k)] = strings.Join(parts, ",")
		default:
			out[strings.ToUpper(k)] = fmt.Sprint(v)
		}
	}
	return out, nil
}

// parse builds a Config from a key lookup. Every malformed value is
// reported, not just the first.
func parse(lookup func(string) (string, bool)) (*Config, error) {
	p := parser{lookup: lookup}

	cfg := &Config{
		Port:               p.int("PORT", 8084),
		DatabaseURL:        p.string("DATABASE_URL", defaultDatabaseURL),
		SessionSecret:      p.string("SESSION_SECRET", ""),
		SessionTTL:         p.duration("SESSION_TTL", 24*time.Hour),
		RedisURL:           p.string("REDIS_URL", ""),
		BcryptCost:         p.int("BCRYPT_COST", 10),
		CORSAllowedOrigins: p.list("CORS_ALLOWED_ORIGINS", []string{"*"}),
		LogLevel:           p.level("LOG_LEVEL", slog.LevelInfo),
		LogFormat:          strings.ToLower(p.string("LOG_FORMAT", "text")),
		ShutdownTimeout:    p.duration("SHUTDOWN_TIMEOUT", 30*time.Second),
		DB: DBConfig{
			WaitMaxRetries: p.int("WAIT_MAX_RETRIES", 30),
			WaitRetryDelay: p.duration("WAIT_RETRY_DELAY", 2*time.Second),
		},
	}

	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		cfg.DB.URL = v
	} else {
		cfg.DB.URL = (&url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(p.string("POSTGRES_USER", "chatapp"), p.string("POSTGRES_PASSWORD", "chatapp")),
			Host:     p.string("POSTGRES_HOST", "localhost") + ":" + strconv.Itoa(p.int("POSTGRES_PORT", 5432)),
			Path:     "/" + p.string("POSTGRES_DB", "chatapp"),
			RawQuery: "sslmode=disable",
		}).String()
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		p.errs = append(p.errs, fmt.Errorf("LOG_FORMAT: must be text or json, got %q", cfg.LogFormat))
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		p.errs = append(p.errs, fmt.Errorf("PORT: out of range: %d", cfg.Port))
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// ValidateServer checks the settings only cmd/server needs.
func (c *Config) ValidateServer() error {
	var errs []error
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// UsesSQLite reports whether DATABASE_URL selects the embedded store.
func (c *Config) UsesSQLite() bool {
	return strings.HasPrefix(c.DatabaseURL, "sqlite:")
}

// SQLitePath is the file (or ":memory:") after the sqlite: prefix.
func (c *Config) SQLitePath() string {
	return strings.TrimPrefix(c.DatabaseURL, "sqlite:")
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

type parser struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (p *parser) raw(key string) (string, bool) {
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) string(key, def string) string {
	if v, ok := p.raw(key); ok {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: not an integer: %q", key, v))
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: not a duration: %q", key, v))
		return def
	}
	return d
}

func (p *parser) list(key string, def []string) []string {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func (p *parser) level(key string, def slog.Level) slog.Level {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: unknown level %q", key, v))
		return def
	}
	return l
}
