package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends accepted by STORE_BACKEND.
const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"
	StoreBackendDynamoDB = "dynamodb"
)

// Config holds application configuration
type Config struct {
	Port              string
	Env               string
	LogLevel          string
	StoreBackend      string
	DatabaseURL       string
	AppointmentsTable string
	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool
	DirectorySeedFile string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	EventsQueueURL      string
	OutboxPollInterval  time.Duration
	OutboxBatchSize     int

	// Booking defaults
	DefaultVisitFee       float64
	DefaultDurationMins   int
	BookingTimezone       string
	DefaultVisitAddress   string
	DefaultVisitLatitude  float64
	DefaultVisitLongitude float64

	APIJWTSecret       string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		StoreBackend:      strings.ToLower(strings.TrimSpace(getEnv("STORE_BACKEND", StoreBackendMemory))),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		AppointmentsTable: getEnv("APPOINTMENTS_TABLE", "appointments"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),
		DirectorySeedFile: getEnv("DIRECTORY_SEED_FILE", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		EventsQueueURL:      getEnv("EVENTS_QUEUE_URL", ""),
		OutboxPollInterval:  getEnvAsDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:     getEnvAsInt("OUTBOX_BATCH_SIZE", 25),

		DefaultVisitFee:       getEnvAsFloat("DEFAULT_VISIT_FEE", 100.0),
		DefaultDurationMins:   getEnvAsInt("DEFAULT_DURATION_MINS", 30),
		BookingTimezone:       getEnv("BOOKING_TIMEZONE", "UTC"),
		DefaultVisitAddress:   getEnv("DEFAULT_VISIT_ADDRESS", "123 Main St, San Francisco, CA"),
		DefaultVisitLatitude:  getEnvAsFloat("DEFAULT_VISIT_LAT", 37.7749),
		DefaultVisitLongitude: getEnvAsFloat("DEFAULT_VISIT_LNG", -122.4194),

		APIJWTSecret:       getEnv("API_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),
	}
}

// BookingLocation resolves BookingTimezone, falling back to UTC when it is unknown.
func (c *Config) BookingLocation() *time.Location {
	if c == nil || strings.TrimSpace(c.BookingTimezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.BookingTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
