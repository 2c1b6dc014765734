package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	Port string
	Env  string

	// Database configuration
	DatabaseURL       string
	DBMaxConns        int
	DBMinConns        int
	DBMaxConnLifetime time.Duration
	DBMaxConnIdleTime time.Duration

	// Redis configuration. An empty RedisAddr disables the auth cache.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	AuthCacheTTL  time.Duration

	// HTTP configuration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	RateLimitRPS    float64
	RateLimitBurst  int

	// Bootstrap admin provisioning. All three must be set together; when set,
	// the server creates an initial tenant and ADMIN key on a zero-state
	// database at startup.
	BootstrapTenantName string
	BootstrapKeyName    string
	BootstrapAPIKey     string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first if present (development convenience).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "3000"),
		Env:               getEnv("ENV", "development"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DBMaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
		DBMinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
		DBMaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", time.Hour),
		DBMaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Minute),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		AuthCacheTTL:  getEnvAsDuration("AUTH_CACHE_TTL", 60*time.Second),

		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		AllowedOrigins:  getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:    getEnvAsFloat("RATE_LIMIT_RPS", 100),
		RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 20),

		BootstrapTenantName: getEnv("BOOTSTRAP_TENANT_NAME", ""),
		BootstrapKeyName:    getEnv("BOOTSTRAP_KEY_NAME", ""),
		BootstrapAPIKey:     getEnv("BOOTSTRAP_API_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and sane.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("PORT must be a positive port number, got %q", c.Port)
	}

	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DBMaxConns)
	}
	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS, got %d", c.DBMinConns)
	}
	if c.DBMaxConnLifetime <= 0 || c.DBMaxConnIdleTime <= 0 {
		return fmt.Errorf("database connection lifetimes must be positive")
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	if c.AuthCacheTTL <= 0 {
		return fmt.Errorf("AUTH_CACHE_TTL must be positive")
	}

	// The bootstrap triple is all-or-nothing.
	set := 0
	for _, v := range []string{c.BootstrapTenantName, c.BootstrapKeyName, c.BootstrapAPIKey} {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != 3 {
		return fmt.Errorf("BOOTSTRAP_TENANT_NAME, BOOTSTRAP_KEY_NAME and BOOTSTRAP_API_KEY must be set together")
	}

	return nil
}

// BootstrapEnabled reports whether initial admin provisioning is configured.
func (c *Config) BootstrapEnabled() bool {
	return c.BootstrapTenantName != "" && c.BootstrapKeyName != "" && c.BootstrapAPIKey != ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as a float with a default value.
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a time.Duration
// ("30s", "5m", "1h") with a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsSlice gets a comma-separated environment variable as a string slice.
func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
