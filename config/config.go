// Package config loads the service configuration from the environment.
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	AuthNone   = "none"
	AuthHS256  = "hs256"
	AuthJWKS   = "jwks"
	FormatText = "text"
	FormatJSON = "json"
)

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	// Azure Functions custom handlers are told their port here.
	FunctionsPort string `env:"FUNCTIONS_CUSTOMHANDLER_PORT"`

	Debug     bool   `env:"DEBUG"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogFile   string `env:"LOG_FILE"`

	StoreLatency time.Duration `env:"STORE_LATENCY" envDefault:"0s"`
	SeedData     bool          `env:"SEED_DATA" envDefault:"true"`

	RedisConnectionString string        `env:"REDIS_CONNECTION_STRING"`
	BoardCacheTTL         time.Duration `env:"BOARD_CACHE_TTL" envDefault:"30s"`
	IdempotencyTTL        time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	StorageConnectionString string `env:"STORAGE_CONNECTION_STRING"`
	SnapshotTable           string `env:"SNAPSHOT_TABLE" envDefault:"boardsnapshot"`
	EventsQueue             string `env:"EVENTS_QUEUE"`

	AuthMode         string        `env:"AUTH_MODE" envDefault:"none"`
	AuthSharedSecret string        `env:"AUTH_SHARED_SECRET"`
	Auth0Domain      string        `env:"AUTH0_DOMAIN"`
	Auth0Audience    string        `env:"AUTH0_AUDIENCE"`
	DefaultUserID    int64         `env:"DEFAULT_USER_ID" envDefault:"1"`
	JWKSCacheTTL     time.Duration `env:"JWKS_CACHE_TTL" envDefault:"10m"`

	OutboxWorkers        int           `env:"OUTBOX_WORKERS" envDefault:"4"`
	OutboxBuffer         int           `env:"OUTBOX_BUFFER" envDefault:"256"`
	OutboxTimeout        time.Duration `env:"OUTBOX_TIMEOUT" envDefault:"30s"`
	OutboxHandoffTimeout time.Duration `env:"OUTBOX_HANDOFF_TIMEOUT" envDefault:"50ms"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.FunctionsPort != "" {
		cfg.ListenAddr = ":" + cfg.FunctionsPort
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.AuthMode {
	case AuthNone:
		if c.DefaultUserID <= 0 {
			errs = append(errs, errors.New("DEFAULT_USER_ID must be positive"))
		}
	case AuthHS256:
		if c.AuthSharedSecret == "" {
			errs = append(errs, errors.New("AUTH_SHARED_SECRET is required for hs256 auth"))
		}
	case AuthJWKS:
		if c.Auth0Domain == "" || c.Auth0Audience == "" {
			errs = append(errs, errors.New("AUTH0_DOMAIN and AUTH0_AUDIENCE are required for jwks auth"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode))
	}
	if c.LogFormat != FormatText && c.LogFormat != FormatJSON {
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if c.StoreLatency < 0 {
		errs = append(errs, errors.New("STORE_LATENCY must not be negative"))
	}
	if c.BoardCacheTTL < 0 || c.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("BOARD_CACHE_TTL must not be negative and IDEMPOTENCY_TTL must be positive"))
	}
	if c.OutboxWorkers < 0 || c.OutboxBuffer < 0 {
		errs = append(errs, errors.New("OUTBOX_WORKERS and OUTBOX_BUFFER must not be negative"))
	}
	if c.EventsQueue != "" && c.StorageConnectionString == "" {
		errs = append(errs, errors.New("EVENTS_QUEUE requires STORAGE_CONNECTION_STRING"))
	}
	return errors.Join(errs...)
}

// JWKSURL is the Auth0 key set location for the configured tenant.
func (c Config) JWKSURL() string {
	return fmt.Sprintf("https://%s/.well-known/jwks.json", c.Auth0Domain)
}

func (c Config) Issuer() string {
	return "https://" + c.Auth0Domain + "/"
}

// NewLogger builds the process logger. With LOG_FILE set, entries go to both
// stderr and a rotating file.
func (c Config) NewLogger() *log.Logger {
	logger := log.New()
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	if c.Debug {
		level = log.DebugLevel
	}
	logger.SetLevel(level)
	if c.LogFormat == FormatJSON {
		logger.SetFormatter(&log.JSONFormatter{})
	}
	if c.LogFile != "" {
		logger.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   c.LogFile,
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     30,
		}))
	}
	return logger
}

// RedisOptions accepts either a redis:// URL or the Azure style
// "host:port,password=...,ssl=True" connection string.
func RedisOptions(conn string) (*redis.Options, error) {
	if conn == "" {
		return nil, errors.New("missing redis connection string")
	}
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts, nil
	}
	parts := strings.Split(conn, ",")
	if parts[0] == "" {
		return nil, fmt.Errorf("invalid redis connection string: %w", err)
	}
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts, nil
}
