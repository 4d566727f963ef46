package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/gocips/infra/validate"
)

type CKey string

type Config struct {
	Validator *validator.Validate
}

// AppConfig represents the application configuration
type AppConfig struct {
	Port              string
	Environment       string
	APIKey            string
	StorageDriver     string
	SQLitePath        string
	DatabaseURL       string
	CertDir           string
	DefaultTenant     string
	ValidationTimeout time.Duration
	ConfigCacheTTL    time.Duration
	RejectionMarker   string
	OpenSearchURL     string
	OpenSearchUser    string
	OpenSearchPass    string
	EnableLogging     bool
	LoggingLevel      string
	LogRetentionDays  int
	EnableMetrics     bool
	JWTSecret         string
	JWTExpiry         time.Duration
	RateLimitPerMin   int
	IPWhitelist       string
}

var (
	instance          *Config
	appConfigInstance *AppConfig
)

func App() *Config {
	if instance == nil {
		instance = &Config{
			Validator: validate.New(),
		}
	}
	return instance
}

// GetAppConfig returns the application configuration
func GetAppConfig() *AppConfig {
	if appConfigInstance == nil {
		appConfigInstance = LoadAppConfig()
	}
	return appConfigInstance
}

// LoadAppConfig reads the application configuration from the environment
func LoadAppConfig() *AppConfig {
	return &AppConfig{
		Port:              GetEnv("APP_PORT", "9999"),
		Environment:       GetEnv("ENVIRONMENT", "development"),
		APIKey:            GetEnv("API_KEY", ""),
		StorageDriver:     strings.ToLower(GetEnv("STORAGE_DRIVER", "sqlite")),
		SQLitePath:        GetEnv("SQLITE_PATH", "./data/gocips.db"),
		DatabaseURL:       GetEnv("DATABASE_URL", ""),
		CertDir:           GetEnv("CERT_DIR", "./data/certs"),
		DefaultTenant:     GetEnv("CIPS_DEFAULT_TENANT", ""),
		ValidationTimeout: GetDurationEnv("CIPS_VALIDATION_TIMEOUT", 30*time.Second),
		ConfigCacheTTL:    GetDurationEnv("CIPS_CONFIG_CACHE_TTL", 0),
		RejectionMarker:   GetEnv("CIPS_CREDENTIAL_REJECTION_MARKER", "Bad credentials"),
		OpenSearchURL:     GetEnv("OPENSEARCH_URL", "http://localhost:9200"),
		OpenSearchUser:    GetEnv("OPENSEARCH_USER", ""),
		OpenSearchPass:    GetEnv("OPENSEARCH_PASSWORD", ""),
		EnableLogging:     GetBoolEnv("ENABLE_OPENSEARCH_LOGGING", false),
		LoggingLevel:      GetEnv("LOGGING_LEVEL", "info"),
		LogRetentionDays:  GetIntEnv("LOG_RETENTION_DAYS", 30),
		EnableMetrics:     GetBoolEnv("ENABLE_METRICS", true),
		JWTSecret:         GetEnv("JWT_SECRET", ""),
		JWTExpiry:         GetDurationEnv("JWT_EXPIRY", 12*time.Hour),
		RateLimitPerMin:   GetIntEnv("RATE_LIMIT_PER_MINUTE", 60),
		IPWhitelist:       GetEnv("IP_WHITELIST", ""),
	}
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetBoolEnv returns the boolean value of an environment variable or a default value
func GetBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetIntEnv returns the integer value of an environment variable or a default value
func GetIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetDurationEnv accepts Go durations ("15s") or plain seconds ("15")
func GetDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
		return parsed
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
