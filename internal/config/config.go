// Package config loads application configuration from environment
// variables. Variables are prefixed APP_ and nested fields are joined with a
// double underscore, e.g. APP_DATABASE__HOST, APP_APPLICATION__HMAC_SECRET.
// This mirrors the original project's layered config crate (base.yaml +
// {environment}.yaml + APP-prefixed env overrides), minus the YAML file
// layer: everything here comes from the environment plus an optional .env
// file loaded with godotenv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment selects which defaults apply. Production tightens the
// database SSL mode; local relaxes it so docker-compose postgres works
// without certificates.
type Environment string

const (
	EnvironmentLocal      Environment = "local"
	EnvironmentProduction Environment = "production"
)

// Config holds all configuration values for the application, grouped the
// way the environment variables are grouped.
type Config struct {
	Environment Environment

	Database    DatabaseConfig
	Application ApplicationConfig
	EmailClient EmailClientConfig
	Redis       RedisConfig
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	Name        string
	RequireSSL  bool
}

// ConnString builds a postgres:// URL suitable for pgx and lib/pq.
func (d DatabaseConfig) ConnString() string {
	sslmode := "prefer"
	if d.RequireSSL {
		sslmode = "require"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// ApplicationConfig holds settings for the HTTP server itself.
type ApplicationConfig struct {
	Port                   int
	Host                   string
	BaseURL                string
	HMACSecret             string
	EnableBackgroundWorker bool
}

// Address is the host:port pair net/http.ListenAndServe expects.
func (a ApplicationConfig) Address() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// EmailClientConfig holds settings for the outbound transactional email
// transport (see internal/email).
type EmailClientConfig struct {
	BaseURL            string
	Sender             string
	AuthorizationToken string
	TimeoutMilliseconds int
}

// RedisConfig is optional: present only if Redis-backed session storage is
// wired in a given deployment. Left zero-valued otherwise, in which case the
// Postgres-backed session store (see internal/session) is used.
type RedisConfig struct {
	Host        string
	Port        int
	Credentials string
}

// Load reads configuration from environment variables (after trying to
// load a .env file, which is a no-op if none exists) and validates required
// fields.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := Environment(strings.ToLower(getEnvWithDefault("APP_ENVIRONMENT", "local")))
	if env != EnvironmentLocal && env != EnvironmentProduction {
		return nil, fmt.Errorf("%s is not a supported environment, use either local or production", env)
	}

	dbPort, err := parseIntEnv("APP_DATABASE__PORT", 5432)
	if err != nil {
		return nil, err
	}
	appPort, err := parseIntEnv("APP_APPLICATION__PORT", 8080)
	if err != nil {
		return nil, err
	}
	emailTimeoutMs, err := parseIntEnv("APP_EMAIL_CLIENT__TIMEOUT_MILLISECONDS", 10_000)
	if err != nil {
		return nil, err
	}
	redisPort, err := parseIntEnv("APP_REDIS__PORT", 6379)
	if err != nil {
		return nil, err
	}
	enableBackgroundWorker, err := strconv.ParseBool(getEnvWithDefault("APP_APPLICATION__ENABLE_BACKGROUND_WORKER", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_APPLICATION__ENABLE_BACKGROUND_WORKER: %w", err)
	}

	cfg := &Config{
		Environment: env,
		Database: DatabaseConfig{
			Host:       getEnvWithDefault("APP_DATABASE__HOST", "localhost"),
			Port:       dbPort,
			Username:   os.Getenv("APP_DATABASE__USERNAME"),
			Password:   os.Getenv("APP_DATABASE__PASSWORD"),
			Name:       os.Getenv("APP_DATABASE__NAME"),
			RequireSSL: env == EnvironmentProduction,
		},
		Application: ApplicationConfig{
			Port:                   appPort,
			Host:                   getEnvWithDefault("APP_APPLICATION__HOST", "127.0.0.1"),
			BaseURL:                os.Getenv("APP_APPLICATION__BASE_URL"),
			HMACSecret:             os.Getenv("APP_APPLICATION__HMAC_SECRET"),
			EnableBackgroundWorker: enableBackgroundWorker,
		},
		EmailClient: EmailClientConfig{
			BaseURL:             os.Getenv("APP_EMAIL_CLIENT__BASE_URL"),
			Sender:              os.Getenv("APP_EMAIL_CLIENT__SENDER"),
			AuthorizationToken:  os.Getenv("APP_EMAIL_CLIENT__AUTHORIZATION_TOKEN"),
			TimeoutMilliseconds: emailTimeoutMs,
		},
		Redis: RedisConfig{
			Host:        os.Getenv("APP_REDIS__HOST"),
			Port:        redisPort,
			Credentials: os.Getenv("APP_REDIS__CREDENTIALS"),
		},
	}

	if requireSSLOverride := os.Getenv("APP_DATABASE__REQUIRE_SSL"); requireSSLOverride != "" {
		v, err := strconv.ParseBool(requireSSLOverride)
		if err != nil {
			return nil, fmt.Errorf("invalid APP_DATABASE__REQUIRE_SSL: %w", err)
		}
		cfg.Database.RequireSSL = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks required configuration fields that have no sane default.
func (c *Config) validate() error {
	required := map[string]string{
		"APP_DATABASE__USERNAME":      c.Database.Username,
		"APP_DATABASE__NAME":          c.Database.Name,
		"APP_APPLICATION__BASE_URL":   c.Application.BaseURL,
		"APP_APPLICATION__HMAC_SECRET": c.Application.HMACSecret,
		"APP_EMAIL_CLIENT__BASE_URL":  c.EmailClient.BaseURL,
		"APP_EMAIL_CLIENT__SENDER":    c.EmailClient.Sender,
	}

	for field, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", field)
		}
	}

	return nil
}

// getEnvWithDefault returns environment variable value or default if empty.
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
