// Package config provides configuration management for the dog list server.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Default configuration values.
const (
	DefaultServerPort      = 8080
	DefaultLogLevel        = "info"
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMetricsEnabled  = true
	DefaultAuthMode        = "none"
	DefaultStoreDriver     = "sqlite"
	DefaultSQLitePath      = "doglist.db"
	DefaultPhotoAPIURL     = "https://dog.ceo/api"
	DefaultPhotoTimeout    = 10 * time.Second
	DefaultPhotoRateLimit  = 5.0
	DefaultFlowTTL         = 15 * time.Minute
)

// Environment variable names.
const (
	EnvServerPort      = "APP_SERVER_PORT"
	EnvLogLevel        = "APP_LOG_LEVEL"
	EnvShutdownTimeout = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled  = "APP_METRICS_ENABLED"
	EnvStoreDriver     = "APP_STORE_DRIVER"
	EnvSQLitePath      = "APP_SQLITE_PATH"
	EnvPostgresDSN     = "APP_POSTGRES_DSN"
	EnvPhotoAPIURL     = "APP_PHOTO_API_URL"
	EnvPhotoTimeout    = "APP_PHOTO_TIMEOUT"
	EnvPhotoRateLimit  = "APP_PHOTO_RATE_LIMIT"
	EnvFlowTTL         = "APP_FLOW_TTL"
	EnvAuthMode        = "APP_AUTH_MODE"
	EnvBasicAuthUsers  = "APP_BASIC_AUTH_USERS"
	EnvAPIKeys         = "APP_API_KEYS" //nolint:gosec // env var name, not a credential
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int
	LogLevel        string
	ShutdownTimeout time.Duration
	MetricsEnabled  bool

	// Persistence: memory, sqlite or postgres.
	StoreDriver string
	SQLitePath  string
	PostgresDSN string

	// Random photo service.
	PhotoAPIURL    string
	PhotoTimeout   time.Duration
	PhotoRateLimit float64 // requests per second, 0 = unlimited

	// FlowTTL is how long an untouched photo flow is kept.
	FlowTTL time.Duration

	// Authentication mode: none, basic, apikey, multi.
	AuthMode string

	// Basic auth settings (format: "user1:bcrypt_hash,user2:bcrypt_hash").
	BasicAuthUsers string

	// API key settings (format: "key1:name1,key2:name2").
	APIKeys string
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidStoreDriver     = errors.New("store driver must be one of: memory, sqlite, postgres")
	ErrInvalidPostgresConfig  = errors.New(
		"postgres DSN must be set when store driver is postgres",
	)
	ErrInvalidPhotoAPIURL  = errors.New("photo API URL must be an absolute http or https URL")
	ErrInvalidPhotoTimeout = errors.New("photo timeout must be positive")
	ErrInvalidPhotoRate    = errors.New("photo rate limit must not be negative")
	ErrInvalidFlowTTL      = errors.New("flow TTL must be positive")
	ErrInvalidAuthMode     = errors.New(
		"auth mode must be one of: none, basic, apikey, multi",
	)
	ErrInvalidBasicAuthConfig = errors.New(
		"basic auth users must be set when auth mode is basic",
	)
	ErrInvalidAPIKeyConfig = errors.New(
		"API keys must be set when auth mode is apikey",
	)
	ErrInvalidMultiAuthConfig = errors.New(
		"at least one auth config must be provided when auth mode is multi",
	)
)

// Load reads configuration from environment variables with defaults.
// Environment variables have priority over default values.
func Load() (*Config, error) {
	cfg := Default()

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration populated with default values only.
func Default() *Config {
	return &Config{
		ServerPort:      DefaultServerPort,
		LogLevel:        DefaultLogLevel,
		ShutdownTimeout: DefaultShutdownTimeout,
		MetricsEnabled:  DefaultMetricsEnabled,
		StoreDriver:     DefaultStoreDriver,
		SQLitePath:      DefaultSQLitePath,
		PhotoAPIURL:     DefaultPhotoAPIURL,
		PhotoTimeout:    DefaultPhotoTimeout,
		PhotoRateLimit:  DefaultPhotoRateLimit,
		FlowTTL:         DefaultFlowTTL,
		AuthMode:        DefaultAuthMode,
	}
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	c.loadStoreEnv()

	if err := c.loadPhotoEnv(); err != nil {
		return err
	}

	c.loadAuthEnv()

	return nil
}

// loadServerEnv loads server-related environment variables.
func (c *Config) loadServerEnv() error {
	if val := os.Getenv(EnvServerPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvServerPort, err)
		}
		c.ServerPort = port
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	if val := os.Getenv(EnvMetricsEnabled); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMetricsEnabled, err)
		}
		c.MetricsEnabled = enabled
	}

	return nil
}

// loadStoreEnv loads persistence environment variables.
func (c *Config) loadStoreEnv() {
	if val := os.Getenv(EnvStoreDriver); val != "" {
		c.StoreDriver = val
	}

	if val := os.Getenv(EnvSQLitePath); val != "" {
		c.SQLitePath = val
	}

	if val := os.Getenv(EnvPostgresDSN); val != "" {
		c.PostgresDSN = val
	}
}

// loadPhotoEnv loads photo service and flow environment variables.
func (c *Config) loadPhotoEnv() error {
	if val := os.Getenv(EnvPhotoAPIURL); val != "" {
		c.PhotoAPIURL = val
	}

	if val := os.Getenv(EnvPhotoTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvPhotoTimeout, err)
		}
		c.PhotoTimeout = timeout
	}

	if val := os.Getenv(EnvPhotoRateLimit); val != "" {
		rate, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvPhotoRateLimit, err)
		}
		c.PhotoRateLimit = rate
	}

	if val := os.Getenv(EnvFlowTTL); val != "" {
		ttl, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvFlowTTL, err)
		}
		c.FlowTTL = ttl
	}

	return nil
}

// loadAuthEnv loads authentication environment variables.
func (c *Config) loadAuthEnv() {
	if val := os.Getenv(EnvAuthMode); val != "" {
		c.AuthMode = val
	}

	if val := os.Getenv(EnvBasicAuthUsers); val != "" {
		c.BasicAuthUsers = val
	}

	if val := os.Getenv(EnvAPIKeys); val != "" {
		c.APIKeys = val
	}
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	if err := c.validatePhoto(); err != nil {
		return err
	}

	if err := c.validateAuth(); err != nil {
		return err
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// validateStore validates persistence configuration.
func (c *Config) validateStore() error {
	switch c.StoreDriver {
	case "memory", "sqlite":
	case "postgres":
		if c.PostgresDSN == "" {
			return ErrInvalidPostgresConfig
		}
	default:
		return ErrInvalidStoreDriver
	}

	return nil
}

// validatePhoto validates photo service and flow configuration.
func (c *Config) validatePhoto() error {
	u, err := url.Parse(c.PhotoAPIURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrInvalidPhotoAPIURL
	}

	if c.PhotoTimeout <= 0 {
		return ErrInvalidPhotoTimeout
	}

	if c.PhotoRateLimit < 0 {
		return ErrInvalidPhotoRate
	}

	if c.FlowTTL <= 0 {
		return ErrInvalidFlowTTL
	}

	return nil
}

// validateAuth validates authentication configuration.
func (c *Config) validateAuth() error {
	authMode := c.authModeOrDefault()

	validAuthModes := map[string]bool{
		"none":   true,
		"basic":  true,
		"apikey": true,
		"multi":  true,
	}
	if !validAuthModes[authMode] {
		return ErrInvalidAuthMode
	}

	switch authMode {
	case "basic":
		if c.BasicAuthUsers == "" {
			return ErrInvalidBasicAuthConfig
		}
	case "apikey":
		if c.APIKeys == "" {
			return ErrInvalidAPIKeyConfig
		}
	case "multi":
		if c.BasicAuthUsers == "" && c.APIKeys == "" {
			return ErrInvalidMultiAuthConfig
		}
	}

	return nil
}

// authModeOrDefault returns the auth mode, defaulting to "none" if empty.
func (c *Config) authModeOrDefault() string {
	if c.AuthMode == "" {
		return DefaultAuthMode
	}
	return c.AuthMode
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}
