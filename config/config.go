// Package config provides configuration management for the moviesns service.
// It handles loading and validation of configuration values from environment variables,
// with support for default values and collective error reporting.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// InsecureDefaultSecret is used when JWT_SECRET is unset. Tokens signed with it
// can be forged by anyone who has read this source, so startup logs a warning.
const InsecureDefaultSecret = "default-secret-key-insecure"

// DatabaseConfig holds the hosted store connection settings.
type DatabaseConfig struct {
	URL      string // Takes precedence over the discrete fields when set
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxSize  int
}

// DSN returns the connection string for the store.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	JWTSecret      string        // Secret key for signing session tokens
	InsecureSecret bool          // True when JWTSecret fell back to InsecureDefaultSecret
	SessionTTL     time.Duration // Token and cookie lifetime
	CookieSecure   bool          // Sets the Secure attribute on the session cookie
	Revocation     bool          // Enables the server-side revocation set
	BcryptCost     int
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
}

// AppConfig is the top-level configuration structure for the application.
type AppConfig struct {
	Database *DatabaseConfig
	Auth     *AuthConfig
	Server   *ServerConfig
	Log      *LogConfig
}

// Helper function to get an optional environment variable with a default string value.
func getOptionalEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// Helper function to get an optional environment variable parsed as an int.
// Appends an error if parsing fails.
func getOptionalEnvInt(key string, defaultValue int, errors *[]string) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected integer, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueInt
}

// Helper function to get an optional environment variable parsed as a bool.
func getOptionalEnvBool(key string, defaultValue bool, errors *[]string) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	valueBool, err := strconv.ParseBool(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected boolean, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	return valueBool
}

// Helper function to get an optional environment variable parsed as time.Duration.
// `time.ParseDuration` expects a string like "15m", "168h".
func getOptionalEnvDuration(key string, defaultValue time.Duration, errors *[]string) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	valueDuration, err := time.ParseDuration(valueStr)
	if err != nil {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: expected duration string, got '%s': %v", key, valueStr, err))
		return defaultValue
	}
	if valueDuration <= 0 {
		*errors = append(*errors, fmt.Sprintf("invalid value for %s: duration must be positive, got '%s'", key, valueStr))
		return defaultValue
	}
	return valueDuration
}

// clampPoolSize keeps the pool size between 2 and 100.
func clampPoolSize(size int) int {
	if size < 2 {
		return 2
	}
	if size > 100 {
		return 100
	}
	return size
}

// splitList parses a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadConfig creates and returns an AppConfig by reading and validating environment variables.
// It collects all errors encountered during loading and returns a single error if any exist.
func LoadConfig() (*AppConfig, error) {
	var errors []string

	// Database Configuration. The fallbacks mirror a local development database.
	database := &DatabaseConfig{
		URL:      getOptionalEnv("DATABASE_URL", ""),
		Host:     getOptionalEnv("DB_HOST", "localhost"),
		Port:     getOptionalEnvInt("DB_PORT", 5432, &errors),
		User:     getOptionalEnv("DB_USER", "postgres"),
		Password: getOptionalEnv("DB_PASSWORD", "postgres"),
		DBName:   getOptionalEnv("DB_NAME", "moviesns"),
		MaxSize:  clampPoolSize(getOptionalEnvInt("DB_POOL_SIZE", 10, &errors)),
	}

	// Auth Configuration
	jwtSecret := getOptionalEnv("JWT_SECRET", InsecureDefaultSecret)
	bcryptCost := getOptionalEnvInt("BCRYPT_COST", 10, &errors)
	if bcryptCost < 4 || bcryptCost > 31 {
		errors = append(errors, fmt.Sprintf("invalid value for BCRYPT_COST: must be between 4 and 31, got %d", bcryptCost))
	}
	auth := &AuthConfig{
		JWTSecret:      jwtSecret,
		InsecureSecret: jwtSecret == InsecureDefaultSecret,
		SessionTTL:     getOptionalEnvDuration("SESSION_TTL", 7*24*time.Hour, &errors),
		CookieSecure:   getOptionalEnvBool("SESSION_COOKIE_SECURE", false, &errors),
		Revocation:     getOptionalEnvBool("SESSION_REVOCATION", false, &errors),
		BcryptCost:     bcryptCost,
	}

	server := &ServerConfig{
		Port:           getOptionalEnv("PORT", "8080"),
		AllowedOrigins: splitList(getOptionalEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
	}

	logCfg := &LogConfig{
		Level:  getOptionalEnv("LOG_LEVEL", "info"),
		Format: getOptionalEnv("LOG_FORMAT", "json"),
	}
	if logCfg.Format != "json" && logCfg.Format != "console" {
		errors = append(errors, fmt.Sprintf("invalid value for LOG_FORMAT: expected json or console, got '%s'", logCfg.Format))
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return &AppConfig{
		Database: database,
		Auth:     auth,
		Server:   server,
		Log:      logCfg,
	}, nil
}
