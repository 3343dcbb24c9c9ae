// Package config reads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const devSigningKey = "dev-secret-key-change-in-production"

// ID strategies for newly added developer records.
const (
	IDStrategyUUID     = "uuid"
	IDStrategySequence = "sequence"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	JWTSigningKey   string
	TokenTTL        time.Duration
	PageSize        int
	IDStrategy      string
	DatabaseURL     string
	Redis           RedisConfig
	Lockout         LockoutConfig
	Log             LogConfig
	Tracing         TracingConfig
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

// RedisConfig configures the optional Redis connection. An empty URL
// disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LockoutConfig struct {
	MaxAttempts int
	Window      time.Duration
}

type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

type TracingConfig struct {
	Exporter     string // "none", "stdout" or "otlp"
	OTLPEndpoint string
	SampleRate   float64
}

// FromEnv builds a Server config from environment variables so main stays lean.
// Malformed values are reported together.
func FromEnv() (Server, error) {
	r := envReader{lookup: os.LookupEnv}
	cfg := Server{
		Addr:          r.str("DEVCONNECT_ADDR", ":8080"),
		JWTSigningKey: r.str("JWT_SIGNING_KEY", devSigningKey),
		TokenTTL:      r.duration("TOKEN_TTL", 24*time.Hour),
		PageSize:      r.integer("PAGE_SIZE", 6),
		IDStrategy:    strings.ToLower(r.str("ID_STRATEGY", IDStrategyUUID)),
		DatabaseURL:   r.str("DATABASE_URL", ""),
		Redis: RedisConfig{
			URL:          r.str("REDIS_URL", ""),
			PoolSize:     r.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: r.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  r.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  r.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: r.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Lockout: LockoutConfig{
			MaxAttempts: r.integer("LOGIN_MAX_ATTEMPTS", 5),
			Window:      r.duration("LOGIN_LOCKOUT_WINDOW", 15*time.Minute),
		},
		Log: LogConfig{
			Level:  strings.ToLower(r.str("LOG_LEVEL", "info")),
			Format: strings.ToLower(r.str("LOG_FORMAT", "json")),
		},
		Tracing: TracingConfig{
			Exporter:     strings.ToLower(r.str("TRACING_EXPORTER", "none")),
			OTLPEndpoint: r.str("OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:   r.float("TRACING_SAMPLE_RATE", 1.0),
		},
		ShutdownTimeout: r.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		RequestTimeout:  r.duration("REQUEST_TIMEOUT", 30*time.Second),
	}
	if err := errors.Join(append(r.errs, cfg.validate()...)...); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// UsingDevSigningKey reports whether JWT_SIGNING_KEY was left unset.
func (s Server) UsingDevSigningKey() bool {
	return s.JWTSigningKey == devSigningKey
}

func (s Server) validate() []error {
	var errs []error
	if s.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if s.PageSize < 1 || s.PageSize > 100 {
		errs = append(errs, errors.New("PAGE_SIZE must be between 1 and 100"))
	}
	if s.IDStrategy != IDStrategyUUID && s.IDStrategy != IDStrategySequence {
		errs = append(errs, fmt.Errorf("ID_STRATEGY must be %q or %q", IDStrategyUUID, IDStrategySequence))
	}
	if s.Lockout.MaxAttempts < 1 {
		errs = append(errs, errors.New("LOGIN_MAX_ATTEMPTS must be at least 1"))
	}
	if s.Lockout.Window <= 0 {
		errs = append(errs, errors.New("LOGIN_LOCKOUT_WINDOW must be positive"))
	}
	switch s.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, errors.New(`LOG_FORMAT must be "json" or "text"`))
	}
	switch s.Tracing.Exporter {
	case "none", "stdout", "otlp":
	default:
		errs = append(errs, errors.New(`TRACING_EXPORTER must be "none", "stdout" or "otlp"`))
	}
	return errs
}

type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (r *envReader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r *envReader) integer(key string, def int) int {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (r *envReader) float(key string, def float64) float64 {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return f
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
