package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPPort       string        `yaml:"http_port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	LogLevel       string        `yaml:"log_level"`

	Database struct {
		Driver string `yaml:"driver"` // postgres or sqlite
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	Auth struct {
		JWTSecret     string        `yaml:"jwt_secret"`
		TokenTTL      time.Duration `yaml:"token_ttl"`
		AdminEmail    string        `yaml:"admin_email"`
		AdminPassword string        `yaml:"admin_password"`
	} `yaml:"auth"`

	Lock struct {
		Backend   string        `yaml:"backend"` // memory or redis
		RedisAddr string        `yaml:"redis_addr"`
		TTL       time.Duration `yaml:"ttl"`
	} `yaml:"lock"`

	ApplyRatePerMinute int `yaml:"apply_rate_per_minute"`

	GeminiAPIKey string `yaml:"gemini_api_key"`

	Gmail struct {
		CredentialsFile string `yaml:"credentials_file"`
		TokenFile       string `yaml:"token_file"`
	} `yaml:"gmail"`

	envErrs []error
}

func defaults() Config {
	var cfg Config
	cfg.HTTPPort = "8080"
	cfg.RequestTimeout = 10 * time.Second
	cfg.CORSOrigins = []string{"*"}
	cfg.LogLevel = "info"
	cfg.Database.Driver = "postgres"
	cfg.Auth.TokenTTL = 24 * time.Hour
	cfg.Lock.Backend = "memory"
	cfg.Lock.TTL = 15 * time.Second
	cfg.ApplyRatePerMinute = 3
	cfg.Gmail.CredentialsFile = "credential.json"
	cfg.Gmail.TokenFile = "token.json"
	return cfg
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE and finally the environment (a .env file is honoured if present).
func Load() (Config, error) {
	// A missing .env is fine outside local development.
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return cfg, err
		}
	}
	overlayEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func overlayFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func overlayEnv(cfg *Config) {
	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.RequestTimeout = cfg.getDuration("REQUEST_TIMEOUT", cfg.RequestTimeout)
	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok {
		cfg.CORSOrigins = splitList(v)
	}
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("DATABASE_URL", cfg.Database.DSN)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTL = cfg.getDuration("TOKEN_TTL", cfg.Auth.TokenTTL)
	cfg.Auth.AdminEmail = getEnv("ADMIN_EMAIL", cfg.Auth.AdminEmail)
	cfg.Auth.AdminPassword = getEnv("ADMIN_PASSWORD", cfg.Auth.AdminPassword)

	cfg.Lock.Backend = getEnv("LOCK_BACKEND", cfg.Lock.Backend)
	cfg.Lock.RedisAddr = getEnv("REDIS_ADDR", cfg.Lock.RedisAddr)
	cfg.Lock.TTL = cfg.getDuration("LOCK_TTL", cfg.Lock.TTL)

	cfg.ApplyRatePerMinute = cfg.getInt("APPLY_RATE_PER_MINUTE", cfg.ApplyRatePerMinute)
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.Gmail.CredentialsFile = getEnv("GMAIL_CREDENTIALS_FILE", cfg.Gmail.CredentialsFile)
	cfg.Gmail.TokenFile = getEnv("GMAIL_TOKEN_FILE", cfg.Gmail.TokenFile)
}

func (c Config) Validate() error {
	errs := append([]error(nil), c.envErrs...)
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver))
	}
	switch c.Lock.Backend {
	case "memory":
	case "redis":
		if c.Lock.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required for the redis lock backend"))
		}
		if c.Lock.TTL < c.RequestTimeout {
			errs = append(errs, fmt.Errorf("LOCK_TTL %s must not be shorter than REQUEST_TIMEOUT %s", c.Lock.TTL, c.RequestTimeout))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LOCK_BACKEND %q", c.Lock.Backend))
	}
	if c.ApplyRatePerMinute < 0 {
		errs = append(errs, errors.New("APPLY_RATE_PER_MINUTE must not be negative"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func (c *Config) getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
		c.envErrs = append(c.envErrs, fmt.Errorf("%s: %w", key, err))
	}
	return fallback
}

func (c *Config) getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
		c.envErrs = append(c.envErrs, fmt.Errorf("%s: %w", key, err))
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
