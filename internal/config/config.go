package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds application configuration
type Config struct {
	ServerPort   string
	DatabaseType string
	DatabasePath string
	DatabaseURL  string

	SessionDuration  time.Duration
	TokenTTL         time.Duration
	MaxVisitDuration time.Duration
	TokenSecret      string
	CSRFSecret       string

	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string

	NATSURL   string
	NATSToken string

	CORSOrigins    []string
	LoginRateLimit int
	TrustedProxies []string

	VenueLocation *time.Location

	GoogleClientID       string
	GoogleClientSecret   string
	AppleClientID        string
	AppleClientSecret    string
	OAuthRedirectBaseURL string

	LogLevel string
	Debug    bool
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Info(".env file loaded")
	}

	cfg := &Config{
		ServerPort:   getEnv("PORT", "8080"),
		DatabaseType: getEnv("DB_TYPE", "sqlite"),
		DatabasePath: getEnv("DB_PATH", "./airjump.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		SessionDuration:  getDuration("SESSION_DURATION", 24*time.Hour),
		TokenTTL:         getDuration("TOKEN_TTL", 2*time.Hour),
		MaxVisitDuration: getDuration("MAX_VISIT_DURATION", 24*time.Hour),
		TokenSecret:      getEnv("TOKEN_SECRET", "air-jump-dev-token-secret"),
		CSRFSecret:       getEnv("CSRF_SECRET", "air-jump-dev-csrf-secret"),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "Air Jump"),
		AppBaseURL:   getEnv("APP_BASE_URL", "http://localhost:8080"),

		NATSURL:   getEnv("NATS_URL", ""),
		NATSToken: getEnv("NATS_TOKEN", ""),

		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8081")),
		LoginRateLimit: getInt("LOGIN_RATE_LIMIT", 10),
		TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),

		VenueLocation: getLocation("VENUE_TZ", "America/Sao_Paulo"),

		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		AppleClientID:        getEnv("APPLE_CLIENT_ID", ""),
		AppleClientSecret:    getEnv("APPLE_CLIENT_SECRET", ""),
		OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		Debug:    getEnv("DEBUG", "") == "true",
	}

	// A pending token can never outlive the longest allowed visit
	if cfg.TokenTTL > cfg.MaxVisitDuration {
		log.Warnf("TOKEN_TTL %s exceeds MAX_VISIT_DURATION %s, capping", cfg.TokenTTL, cfg.MaxVisitDuration)
		cfg.TokenTTL = cfg.MaxVisitDuration
	}

	return cfg
}

// ConfigureLogging applies the configured log level and formatter
func (c *Config) ConfigureLogging() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.Warnf("invalid LOG_LEVEL %q, using info", c.LogLevel)
		level = log.InfoLevel
	}
	if c.Debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Warnf("invalid duration for %s: %q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Warnf("invalid integer for %s: %q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

// getLocation loads an IANA time zone, falling back to UTC when the name is unknown
func getLocation(key, defaultValue string) *time.Location {
	name := getEnv(key, defaultValue)
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warnf("invalid time zone for %s: %q, using UTC", key, name)
		return time.UTC
	}
	return loc
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
