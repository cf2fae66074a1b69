package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	DatabaseURL string
	Port        string
	GoEnv       string

	// Staff authentication. When AuthJWTSecret is set tokens are HS256 signed with it
	// (Supabase style); otherwise RS256 keys come from the issuer's JWKS.
	AuthIssuerURL   string
	AuthAudience    string
	AuthJWTSecret   string
	AuthUserInfoURL string
	StaffRoles      []string
	StaffAdmins     []string

	OrderTokenSecret string
	OrderTokenTTL    time.Duration

	AWSRegion          string
	AWSS3Bucket        string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	RabbitMQURL      string
	RabbitMQExchange string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	CORSAllowedOrigins []string
	// TrustedProxies lists the proxy addresses or CIDRs whose forwarding headers
	// are honoured for the client IP. Empty means only RemoteAddr is used.
	TrustedProxies []string
	LogLevel       string
}

var current *Config

// Load loads the configuration from environment variables
// It automatically determines which .env file to load based on GO_ENV
func Load() (*Config, error) {
	// Determine which environment file to load
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Try to load environment-specific file first
	envFile := fmt.Sprintf(".env.%s", env)
	if err := godotenv.Load(envFile); err != nil {
		// If environment-specific file doesn't exist, try .env
		if err := godotenv.Load(); err != nil {
			// In production, environment variables are set directly
			log.Printf("No .env file found, using system environment variables")
		}
	} else {
		log.Printf("Loaded configuration from %s", envFile)
	}

	tokenTTL, err := getEnvDuration("ORDER_TOKEN_TTL", 90*24*time.Hour)
	if err != nil {
		return nil, err
	}
	rateLimitRequests, err := getEnvInt("RATE_LIMIT_REQUESTS", 60)
	if err != nil {
		return nil, err
	}
	rateLimitWindow, err := getEnvDuration("RATE_LIMIT_WINDOW", time.Minute)
	if err != nil {
		return nil, err
	}

	config := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Port:               getEnv("PORT", "8080"),
		GoEnv:              getEnv("GO_ENV", "development"),
		AuthIssuerURL:      getEnv("AUTH_ISSUER_URL", ""),
		AuthAudience:       getEnv("AUTH_AUDIENCE", "authenticated"),
		AuthJWTSecret:      getEnv("AUTH_JWT_SECRET", ""),
		AuthUserInfoURL:    getEnv("AUTH_USERINFO_URL", ""),
		StaffRoles:         getEnvList("STAFF_ROLES", []string{"admin", "staff"}),
		StaffAdmins:        getEnvList("STAFF_BOOTSTRAP_ADMINS", nil),
		OrderTokenSecret:   getEnv("ORDER_TOKEN_SECRET", ""),
		OrderTokenTTL:      tokenTTL,
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSS3Bucket:        getEnv("AWS_S3_BUCKET", ""),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		RabbitMQURL:        getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange:   getEnv("RABBITMQ_EXCHANGE", "trade_in_events"),
		RateLimitRequests:  rateLimitRequests,
		RateLimitWindow:    rateLimitWindow,
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TrustedProxies:     getEnvList("TRUSTED_PROXIES", nil),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	SetConfig(config)
	return config, nil
}

// Validate checks that all required configuration values are set
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.AuthIssuerURL == "" {
		return fmt.Errorf("AUTH_ISSUER_URL is required")
	}
	if c.OrderTokenSecret == "" {
		return fmt.Errorf("ORDER_TOKEN_SECRET is required")
	}
	if c.RateLimitRequests <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive")
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// IsTest returns true if the application is running in test mode
func (c *Config) IsTest() bool {
	return c.GoEnv == "test"
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// S3Enabled reports whether device image storage is configured
func (c *Config) S3Enabled() bool {
	return c.AWSS3Bucket != ""
}

// String masks secrets so the config can be logged
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, Port: %s, Issuer: %s, S3: %t, RabbitMQ: %t, Secrets: *** (masked) ***}",
		c.GoEnv, c.Port, c.AuthIssuerURL, c.S3Enabled(), c.RabbitMQURL != "")
}

// SetConfig replaces the process-wide configuration (used by Load and tests)
func SetConfig(cfg *Config) {
	current = cfg
}

// GetConfig returns the configuration loaded by Load
func GetConfig() *Config {
	return current
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// getEnvList splits a comma separated variable, dropping empty entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
