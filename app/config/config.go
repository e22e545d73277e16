package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"account-service/app/domain"
)

// Config holds all configuration for the account service
type Config struct {
	// Server
	Port     string `env:"PORT" default:"9600"`
	Host     string `env:"HOST" default:"0.0.0.0"`
	LogLevel string `env:"LOG_LEVEL" default:"info"`

	// Database
	DatabaseURL      string `env:"DATABASE_URL" required:"true"`
	DatabaseHost     string `env:"DB_HOST" default:"account-postgres"`
	DatabasePort     string `env:"DB_PORT" default:"5432"`
	DatabaseName     string `env:"DB_NAME" default:"account_db"`
	DatabaseUser     string `env:"DB_USER" default:"account_user"`
	DatabasePassword string `env:"DB_PASSWORD"`
	DatabaseSSLMode  string `env:"DB_SSL_MODE" default:"require"`

	// Kratos
	KratosPublicURL string        `env:"KRATOS_PUBLIC_URL" required:"true"`
	KratosAdminURL  string        `env:"KRATOS_ADMIN_URL" required:"true"`
	GatewayTimeout  time.Duration `env:"GATEWAY_TIMEOUT" default:"30s"`

	// Credential persistence, in-memory when REDIS_URL is empty
	RedisURL       string `env:"REDIS_URL"`
	InstallationID string `env:"INSTALLATION_ID" default:"default"`

	// Account flows
	AppBaseURL            string        `env:"APP_BASE_URL" default:"http://localhost:5173"`
	PasswordResetRedirect string        `env:"PASSWORD_RESET_REDIRECT"`
	OperationTimeout      time.Duration `env:"OPERATION_TIMEOUT" default:"30s"`
	CountryCodes          []domain.CountryCode

	// HTTP surface
	AllowedOrigins []string `env:"ALLOWED_ORIGINS"`
	ResetRateLimit float64  `env:"RESET_RATE_LIMIT" default:"5"`
	ResetRateBurst int      `env:"RESET_RATE_BURST" default:"3"`

	// Features
	EnableMetrics bool   `env:"ENABLE_METRICS" default:"true"`
	ConfigFile    string `env:"CONFIG_FILE"`
}

// fileConfig is the optional YAML overlay for non-secret settings
type fileConfig struct {
	AppBaseURL            string               `yaml:"app_base_url"`
	PasswordResetRedirect string               `yaml:"password_reset_redirect"`
	CountryCodes          []domain.CountryCode `yaml:"country_codes"`
	AllowedOrigins        []string             `yaml:"allowed_origins"`
	RateLimit             struct {
		ResetPerMinute float64 `yaml:"reset_per_minute"`
		ResetBurst     int     `yaml:"reset_burst"`
	} `yaml:"rate_limit"`
}

// Load reads configuration from the optional YAML file and environment variables.
// Environment variables win over the file.
func Load() (*Config, error) {
	config := defaults()

	config.ConfigFile = os.Getenv("CONFIG_FILE")
	if config.ConfigFile != "" {
		if err := config.applyFile(config.ConfigFile); err != nil {
			return nil, err
		}
	}

	// Server configuration
	config.Port = getEnvOrDefault("PORT", config.Port)
	config.Host = getEnvOrDefault("HOST", config.Host)
	config.LogLevel = getEnvOrDefault("LOG_LEVEL", config.LogLevel)

	// Database configuration
	config.DatabaseURL = os.Getenv("DATABASE_URL")
	if config.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	config.DatabaseHost = getEnvOrDefault("DB_HOST", config.DatabaseHost)
	config.DatabasePort = getEnvOrDefault("DB_PORT", config.DatabasePort)
	config.DatabaseName = getEnvOrDefault("DB_NAME", config.DatabaseName)
	config.DatabaseUser = getEnvOrDefault("DB_USER", config.DatabaseUser)
	config.DatabasePassword = os.Getenv("DB_PASSWORD")
	config.DatabaseSSLMode = getEnvOrDefault("DB_SSL_MODE", config.DatabaseSSLMode)

	// Kratos configuration
	config.KratosPublicURL = os.Getenv("KRATOS_PUBLIC_URL")
	if config.KratosPublicURL == "" {
		return nil, fmt.Errorf("KRATOS_PUBLIC_URL is required")
	}
	config.KratosAdminURL = os.Getenv("KRATOS_ADMIN_URL")
	if config.KratosAdminURL == "" {
		return nil, fmt.Errorf("KRATOS_ADMIN_URL is required")
	}

	var err error
	config.GatewayTimeout, err = getDurationEnv("GATEWAY_TIMEOUT", config.GatewayTimeout)
	if err != nil {
		return nil, err
	}

	config.RedisURL = os.Getenv("REDIS_URL")
	config.InstallationID = getEnvOrDefault("INSTALLATION_ID", config.InstallationID)

	// Account flow configuration
	config.AppBaseURL = strings.TrimRight(getEnvOrDefault("APP_BASE_URL", config.AppBaseURL), "/")
	config.PasswordResetRedirect = getEnvOrDefault("PASSWORD_RESET_REDIRECT", config.PasswordResetRedirect)
	if config.PasswordResetRedirect == "" {
		config.PasswordResetRedirect = config.AppBaseURL + domain.RouteResetPassword
	}
	config.OperationTimeout, err = getDurationEnv("OPERATION_TIMEOUT", config.OperationTimeout)
	if err != nil {
		return nil, err
	}

	// HTTP configuration
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = splitList(origins)
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{config.AppBaseURL}
	}
	if value := os.Getenv("RESET_RATE_LIMIT"); value != "" {
		config.ResetRateLimit, err = strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid RESET_RATE_LIMIT: %w", err)
		}
	}
	if value := os.Getenv("RESET_RATE_BURST"); value != "" {
		config.ResetRateBurst, err = strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid RESET_RATE_BURST: %w", err)
		}
	}

	// Feature flags
	config.EnableMetrics = getBoolEnv("ENABLE_METRICS", config.EnableMetrics)

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func defaults() *Config {
	return &Config{
		Port:             "9600",
		Host:             "0.0.0.0",
		LogLevel:         "info",
		DatabaseHost:     "account-postgres",
		DatabasePort:     "5432",
		DatabaseName:     "account_db",
		DatabaseUser:     "account_user",
		DatabaseSSLMode:  "require",
		GatewayTimeout:   30 * time.Second,
		InstallationID:   "default",
		AppBaseURL:       "http://localhost:5173",
		OperationTimeout: 30 * time.Second,
		CountryCodes:     append([]domain.CountryCode(nil), domain.DefaultCountryCodes...),
		ResetRateLimit:   5,
		ResetRateBurst:   3,
		EnableMetrics:    true,
	}
}

// applyFile overlays the settings present in a YAML file
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if file.AppBaseURL != "" {
		c.AppBaseURL = file.AppBaseURL
	}
	if file.PasswordResetRedirect != "" {
		c.PasswordResetRedirect = file.PasswordResetRedirect
	}
	if len(file.CountryCodes) > 0 {
		c.CountryCodes = file.CountryCodes
	}
	if len(file.AllowedOrigins) > 0 {
		c.AllowedOrigins = file.AllowedOrigins
	}
	if file.RateLimit.ResetPerMinute > 0 {
		c.ResetRateLimit = file.RateLimit.ResetPerMinute
	}
	if file.RateLimit.ResetBurst > 0 {
		c.ResetRateBurst = file.RateLimit.ResetBurst
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate port
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return fmt.Errorf("invalid port: %s", c.Port)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535: %s", c.Port)
	}

	// Validate log level
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if !isAbsoluteURL(c.KratosPublicURL) {
		return fmt.Errorf("invalid Kratos public URL: %s", c.KratosPublicURL)
	}
	if !isAbsoluteURL(c.KratosAdminURL) {
		return fmt.Errorf("invalid Kratos admin URL: %s", c.KratosAdminURL)
	}
	if !isAbsoluteURL(c.PasswordResetRedirect) {
		return fmt.Errorf("invalid password reset redirect: %s", c.PasswordResetRedirect)
	}

	if c.GatewayTimeout < time.Second {
		return fmt.Errorf("gateway timeout must be at least 1 second, got: %v", c.GatewayTimeout)
	}
	if c.OperationTimeout < time.Second {
		return fmt.Errorf("operation timeout must be at least 1 second, got: %v", c.OperationTimeout)
	}

	if len(c.CountryCodes) == 0 {
		return fmt.Errorf("at least one country code must be configured")
	}
	for _, cc := range c.CountryCodes {
		if !strings.HasPrefix(cc.Code, "+") || len(cc.Code) < 2 {
			return fmt.Errorf("invalid country code: %q", cc.Code)
		}
	}

	if c.ResetRateLimit <= 0 || c.ResetRateBurst < 1 {
		return fmt.Errorf("reset rate limit must be positive, got: %v/min burst %d", c.ResetRateLimit, c.ResetRateBurst)
	}

	return nil
}

// DatabaseDSN returns DATABASE_URL, or a postgres URL assembled from the DB_* settings
func (c *Config) DatabaseDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DatabaseUser, c.DatabasePassword),
		Host:     c.DatabaseHost + ":" + c.DatabasePort,
		Path:     "/" + c.DatabaseName,
		RawQuery: url.Values{"sslmode": {c.DatabaseSSLMode}}.Encode(),
	}
	return dsn.String()
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isAbsoluteURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && parsed.Host != ""
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
