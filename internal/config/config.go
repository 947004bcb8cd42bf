// Package config loads runtime settings from flags, APPRAISAL_* environment variables
// and an optional configs/.env file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const devJWTSecret = "default_super_secret_key"

type DBConfig struct {
	Driver   string
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ConnectionString returns DSN when set, otherwise builds one for the driver.
func (c DBConfig) ConnectionString() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Driver == "sqlite" {
		return "file:appraisal.db?_foreign_keys=on"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type Config struct {
	HTTPAddr    string
	GinMode     string
	DB          DBConfig
	JWTSecret   string
	TokenTTL    time.Duration
	CORSOrigins []string
	LogLevel    slog.Level
}

// RegisterFlags declares every setting on fs with its default.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("http-addr", ":8080", "address the HTTP server listens on")
	fs.String("gin-mode", "debug", "gin mode: debug, release or test")

	fs.String("db-driver", "postgres", "database driver: postgres or sqlite")
	fs.String("db-dsn", "", "full database DSN, overrides the db-* parts")
	fs.String("db-host", "localhost", "")
	fs.Int("db-port", 5432, "")
	fs.String("db-user", "postgres", "")
	fs.String("db-password", "postgres", "")
	fs.String("db-name", "postgres", "")
	fs.String("db-sslmode", "disable", "")

	fs.String("jwt-secret", "", "HMAC secret for access tokens")
	fs.Duration("token-ttl", 24*time.Hour, "access token lifetime")
	fs.StringSlice("cors-origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"}, "allowed CORS origins")
	fs.String("log-level", "info", "debug, info, warn or error")
}

// Load reads configuration after flags on fs have been parsed.
func Load(fs *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load("configs/.env"); err != nil {
		slog.Debug("No configs/.env file loaded", slog.Any("error", err))
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	v.SetEnvPrefix("APPRAISAL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		HTTPAddr: v.GetString("http-addr"),
		GinMode:  v.GetString("gin-mode"),
		DB: DBConfig{
			Driver:   v.GetString("db-driver"),
			DSN:      v.GetString("db-dsn"),
			Host:     v.GetString("db-host"),
			Port:     v.GetInt("db-port"),
			User:     v.GetString("db-user"),
			Password: v.GetString("db-password"),
			Name:     v.GetString("db-name"),
			SSLMode:  v.GetString("db-sslmode"),
		},
		JWTSecret:   v.GetString("jwt-secret"),
		TokenTTL:    v.GetDuration("token-ttl"),
		CORSOrigins: v.GetStringSlice("cors-origins"),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
		return nil, fmt.Errorf("invalid log-level: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported db-driver %q", c.DB.Driver)
	}
	if c.JWTSecret == "" {
		if c.GinMode == "release" {
			return errors.New("jwt-secret is required in release mode")
		}
		c.JWTSecret = devJWTSecret
	}
	if c.TokenTTL <= 0 {
		return errors.New("token-ttl must be positive")
	}
	return nil
}
