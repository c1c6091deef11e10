package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds the service configuration read from the environment
type Config struct {
	Port   string
	AppURL string

	MongoURI      string
	MongoDatabase string

	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	ConnectionCacheTTL time.Duration

	BackendBaseURL string
	BackendTimeout time.Duration

	IdentityJWTSecret string
	IdentityJWTIssuer string

	IkasPlatformHost string
	IkasTokenPath    string
	IkasAPIURL       string
	IkasTokenRPS     float64

	ShopifyAPIKey    string
	ShopifyAPISecret string

	OnboardingAutoApprove bool
	AutosaveDebounce      time.Duration

	OTLPEndpoint string
	OTLPInsecure bool
	LogLevel     zerolog.Level
}

// LoadDotEnv loads .env if present
func LoadDotEnv(logger zerolog.Logger) {
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg(".env file not found, using process environment")
	}
}

// Load reads the configuration. Missing required values are reported together.
func Load() (*Config, error) {
	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		AppURL:                getEnv("APP_URL", "http://localhost:8080"),
		MongoURI:              getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:         getEnv("MONGODB_DATABASE", "merchant_onboarding"),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		BackendBaseURL:        os.Getenv("BACKEND_BASE_URL"),
		IdentityJWTSecret:     os.Getenv("IDENTITY_JWT_SECRET"),
		IdentityJWTIssuer:     os.Getenv("IDENTITY_JWT_ISSUER"),
		IkasPlatformHost:      getEnv("IKAS_PLATFORM_HOST", "myikas.com"),
		IkasTokenPath:         getEnv("IKAS_TOKEN_PATH", "/oauth/token"),
		IkasAPIURL:            getEnv("IKAS_API_URL", "https://api.myikas.com/api/v1/admin/graphql"),
		ShopifyAPIKey:         os.Getenv("SHOPIFY_API_KEY"),
		ShopifyAPISecret:      os.Getenv("SHOPIFY_API_SECRET"),
		OTLPEndpoint:          os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	var errs []string
	var err error

	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.ConnectionCacheTTL, err = getDuration("CONNECTION_CACHE_TTL", 10*time.Minute); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.BackendTimeout, err = getDuration("BACKEND_TIMEOUT", 15*time.Second); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.AutosaveDebounce, err = getDuration("AUTOSAVE_DEBOUNCE", 1500*time.Millisecond); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.IkasTokenRPS, err = getFloat("IKAS_TOKEN_RPS", 1); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.OnboardingAutoApprove, err = getBool("ONBOARDING_AUTO_APPROVE", true); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.OTLPInsecure, err = getBool("OTEL_EXPORTER_OTLP_INSECURE", true); err != nil {
		errs = append(errs, err.Error())
	}

	cfg.LogLevel = zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(lvl))
		if err != nil {
			errs = append(errs, fmt.Sprintf("LOG_LEVEL: %v", err))
		} else {
			cfg.LogLevel = parsed
		}
	}

	if cfg.IdentityJWTSecret == "" {
		errs = append(errs, "IDENTITY_JWT_SECRET environment variable is required")
	}
	if cfg.BackendBaseURL == "" {
		errs = append(errs, "BACKEND_BASE_URL environment variable is required")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
