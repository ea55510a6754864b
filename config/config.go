// Package config has the configuration for the lookup front end
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment is the deployment environment name
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

// String returns the canonical environment name
func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment maps ENV values (including long forms) to an Environment
func ParseEnvironment(value string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", value)
}

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes
	MaxHeaderSize     int64 // Maximum header size in bytes

	APIBaseURL         string
	RequestTimeout     time.Duration
	ToastVisible       time.Duration
	ToastFade          time.Duration
	StateDBPath        string
	SessionIdleTimeout time.Duration
}

// LoadDotEnv reads a .env file from the working directory, falling back to the
// executable's directory. A missing file is not an error.
func LoadDotEnv() {
	if err := godotenv.Load(); err == nil {
		return
	}
	ex, err := os.Executable()
	if err != nil {
		return
	}
	_ = godotenv.Load(filepath.Join(filepath.Dir(ex), ".env"))
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		LogLevel:          getEnvWithDefault("LOG_LEVEL", "info"),
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 1048576),    // 1MB default
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),     // 1MB default

		APIBaseURL:         strings.TrimRight(getEnvWithDefault("API_BASE_URL", "http://localhost:4000"), "/"),
		RequestTimeout:     getDurationEnvWithDefault("REQUEST_TIMEOUT", 10*time.Second),
		ToastVisible:       getDurationEnvWithDefault("TOAST_VISIBLE", 1600*time.Millisecond),
		ToastFade:          getDurationEnvWithDefault("TOAST_FADE", 200*time.Millisecond),
		StateDBPath:        getEnvWithDefault("STATE_DB_PATH", "data/state.db"),
		SessionIdleTimeout: getDurationEnvWithDefault("SESSION_IDLE_TIMEOUT", 30*time.Minute),
	}

	env, err := ParseEnvironment(getEnvWithDefault("ENV", "dev"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}
	cfg.Env = env

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateEnv(cfg.Env); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	if cfg.LogRetentionWeeks <= 0 || cfg.LogRetentionWeeks > 52 {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: must be between 1 and 52, got: %d", cfg.LogRetentionWeeks)
	}

	if cfg.MaxLogFileSize < 1024*1024 || cfg.MaxLogFileSize > 1024*1024*1024 {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: must be between 1MB and 1GB, got: %d bytes", cfg.MaxLogFileSize)
	}

	if err := validateBaseURL(cfg.APIBaseURL); err != nil {
		return fmt.Errorf("invalid API_BASE_URL: %w", err)
	}

	// Timers
	if cfg.RequestTimeout <= 0 || cfg.RequestTimeout > 2*time.Minute {
		return fmt.Errorf("invalid REQUEST_TIMEOUT: must be in (0, 2m], got: %s", cfg.RequestTimeout)
	}
	if cfg.ToastVisible <= 0 || cfg.ToastFade <= 0 {
		return fmt.Errorf("invalid toast timing: visible=%s fade=%s", cfg.ToastVisible, cfg.ToastFade)
	}
	if cfg.SessionIdleTimeout < time.Minute {
		return fmt.Errorf("invalid SESSION_IDLE_TIMEOUT: must be at least 1m, got: %s", cfg.SessionIdleTimeout)
	}

	if strings.TrimSpace(cfg.StateDBPath) == "" {
		return fmt.Errorf("STATE_DB_PATH cannot be empty")
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "127.0.0.1" || address == "::1" || address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateEnv validates the ENV environment variable
func validateEnv(env Environment) error {
	switch env {
	case EnvDevelopment, EnvStaging, EnvProduction, EnvTest:
		return nil
	case "":
		return fmt.Errorf("ENV cannot be empty")
	}
	return fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", env)
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	logLevel = strings.ToLower(logLevel)

	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 { // 100MB
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateBaseURL checks the backend base URL is an absolute http(s) URL
func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("API_BASE_URL must be a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL must use http or https, got: %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("API_BASE_URL must include a host")
	}
	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault accepts Go durations ("10s") or plain milliseconds ("1600")
func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"API_BASE_URL",
		"REQUEST_TIMEOUT",
		"TOAST_VISIBLE",
		"TOAST_FADE",
		"STATE_DB_PATH",
		"SESSION_IDLE_TIMEOUT",
	}
}
