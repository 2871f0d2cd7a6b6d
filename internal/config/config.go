package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port      string
	Env       string
	JWTSecret string

	// CORSAllowedHosts lists the portal origins (host[:port]) allowed to call the API.
	CORSAllowedHosts []string

	DB       DatabaseConfig
	Redis    RedisConfig
	Login    LoginConfig
	Admin    AdminConfig
	Analysis AnalysisConfig
	AWS      AWSConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// LoginConfig controls the simulated three-step login flow.
type LoginConfig struct {
	FlowTTL           time.Duration
	CredentialsDelay  time.Duration
	CodeDelay         time.Duration
	SessionTTL        time.Duration
	MockIPAddress     string
	AuthenticatorKey  string
	AuthenticatorName string
}

// AdminConfig controls the admin login and admin creation OTP challenges.
type AdminConfig struct {
	ChallengeTTL time.Duration
	VerifyDelay  time.Duration
	SessionTTL   time.Duration
}

// AnalysisConfig points at the external business card analysis backend.
type AnalysisConfig struct {
	BaseURL      string
	Timeout      time.Duration
	MaxImageSize int64

	// Retention is how long history records are kept; 0 keeps them forever.
	Retention     time.Duration
	PruneInterval time.Duration
}

// AWSConfig contains AWS configuration for Rekognition text detection.
type AWSConfig struct {
	RekognitionEnabled bool
	RekognitionRegion  string
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first. It returns a populated
// Config or an error with a human-friendly message.
func Load() (*Config, error) {
	// Load .env if present; ignore error if file is missing so that production
	// environments relying solely on real environment variables keep working.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "3001")
	cfg.Env = getEnv("ENV", "development")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.CORSAllowedHosts = splitList(getEnv("CORS_ALLOWED_HOSTS", "localhost:3000,127.0.0.1:3000,localhost:8080,127.0.0.1:8080"))

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// Login flow
	cfg.Login = LoginConfig{
		MockIPAddress:     os.Getenv("LOGIN_MOCK_IP"),
		AuthenticatorKey:  getEnv("LOGIN_AUTHENTICATOR_SECRET", "JBSWY3DPEHPK3PXP"),
		AuthenticatorName: getEnv("LOGIN_AUTHENTICATOR_ISSUER", "Secure Portal"),
	}
	if _, set := os.LookupEnv("LOGIN_MOCK_IP"); !set {
		cfg.Login.MockIPAddress = "192.168.1.1"
	}

	// Analysis backend
	cfg.Analysis = AnalysisConfig{
		BaseURL:      getEnv("ANALYSIS_BASE_URL", "http://localhost:3001"),
		MaxImageSize: int64(getEnvInt("ANALYSIS_MAX_IMAGE_BYTES", 5*1024*1024)),
	}

	// AWS (Rekognition text detection)
	cfg.AWS = AWSConfig{
		RekognitionEnabled: getEnvBool("AWS_REKOGNITION_ENABLED", false),
		RekognitionRegion:  getEnv("AWS_REKOGNITION_REGION", "ap-southeast-1"),
	}

	// Durations
	var err error
	if cfg.Login.FlowTTL, err = parseDurationEnv("LOGIN_FLOW_TTL", "15m"); err != nil {
		return nil, fmt.Errorf("invalid LOGIN_FLOW_TTL: %w", err)
	}
	if cfg.Login.CredentialsDelay, err = parseDurationEnv("LOGIN_CREDENTIALS_DELAY", "1500ms"); err != nil {
		return nil, fmt.Errorf("invalid LOGIN_CREDENTIALS_DELAY: %w", err)
	}
	if cfg.Login.CodeDelay, err = parseDurationEnv("LOGIN_CODE_DELAY", "1s"); err != nil {
		return nil, fmt.Errorf("invalid LOGIN_CODE_DELAY: %w", err)
	}
	if cfg.Login.SessionTTL, err = parseDurationEnv("LOGIN_SESSION_TTL", "24h"); err != nil {
		return nil, fmt.Errorf("invalid LOGIN_SESSION_TTL: %w", err)
	}
	if cfg.Admin.ChallengeTTL, err = parseDurationEnv("ADMIN_CHALLENGE_TTL", "5m"); err != nil {
		return nil, fmt.Errorf("invalid ADMIN_CHALLENGE_TTL: %w", err)
	}
	if cfg.Admin.VerifyDelay, err = parseDurationEnv("ADMIN_VERIFY_DELAY", "1s"); err != nil {
		return nil, fmt.Errorf("invalid ADMIN_VERIFY_DELAY: %w", err)
	}
	if cfg.Admin.SessionTTL, err = parseDurationEnv("ADMIN_SESSION_TTL", "8h"); err != nil {
		return nil, fmt.Errorf("invalid ADMIN_SESSION_TTL: %w", err)
	}
	if cfg.Analysis.Timeout, err = parseDurationEnv("ANALYSIS_TIMEOUT", "2m"); err != nil {
		return nil, fmt.Errorf("invalid ANALYSIS_TIMEOUT: %w", err)
	}
	if cfg.Analysis.Retention, err = parseDurationEnv("ANALYSIS_RETENTION", "720h"); err != nil {
		return nil, fmt.Errorf("invalid ANALYSIS_RETENTION: %w", err)
	}
	if cfg.Analysis.PruneInterval, err = parseDurationEnv("ANALYSIS_PRUNE_INTERVAL", "1h"); err != nil {
		return nil, fmt.Errorf("invalid ANALYSIS_PRUNE_INTERVAL: %w", err)
	}

	// Basic validation for DB parameters
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}

	// Validate JWT_SECRET
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set for authentication")
	}

	if cfg.Analysis.Retention > 0 && cfg.Analysis.PruneInterval <= 0 {
		return nil, errors.New("ANALYSIS_PRUNE_INTERVAL must be positive when retention is enabled")
	}

	if cfg.Analysis.MaxImageSize <= 0 {
		return nil, errors.New("ANALYSIS_MAX_IMAGE_BYTES must be positive")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvBool returns the value of an environment variable as a bool or a default if empty/invalid.
func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}

// splitList splits a comma separated value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}
