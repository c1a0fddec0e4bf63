package config

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const minSecretLength = 32

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Email     EmailConfig
	Analytics AnalyticsConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AppURL          string // public URL of the web app, optional
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	Secret  string
	BaseURL string
	// TrustedOrigins are the origins allowed for CORS and callback URLs.
	TrustedOrigins []string
	// SessionExpiresIn is the absolute session lifetime.
	SessionExpiresIn time.Duration
	// SessionUpdateAge is how old a session may get before it is slid forward.
	SessionUpdateAge time.Duration
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	From         string
	Secure       bool // implicit TLS, usually port 465
}

// AnalyticsConfig holds optional third-party keys. Empty values disable the integration.
type AnalyticsConfig struct {
	ArcjetKey              string
	BetterStackSourceToken string
	PosthogKey             string
	PosthogHost            string
}

// Load reads configuration from environment variables and validates it.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	baseURL := getEnv("AUTH_URL", "")

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", "dev"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			AppURL:          getEnv("APP_URL", ""),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Auth: AuthConfig{
			Secret:           getEnv("AUTH_SECRET", ""),
			BaseURL:          baseURL,
			TrustedOrigins:   getSliceEnv("TRUSTED_ORIGINS", []string{baseURL}),
			SessionExpiresIn: getDurationEnv("SESSION_EXPIRES_IN", 7*24*time.Hour),
			SessionUpdateAge: getDurationEnv("SESSION_UPDATE_AGE", 24*time.Hour),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			From:         getEnv("SMTP_FROM", ""),
			Secure:       strings.EqualFold(getEnv("SMTP_SECURE", "false"), "true"),
		},
		Analytics: AnalyticsConfig{
			ArcjetKey:              getEnv("ARCJET_KEY", ""),
			BetterStackSourceToken: getEnv("BETTER_STACK_SOURCE_TOKEN", ""),
			PosthogKey:             getEnv("POSTHOG_KEY", ""),
			PosthogHost:            getEnv("POSTHOG_HOST", ""),
		},
	}

	// reset links built by the pages point at APP_URL
	cfg.Auth.TrustedOrigins = withOrigin(cfg.Auth.TrustedOrigins, cfg.Server.AppURL)

	var errs []error

	port, err := strconv.Atoi(getEnv("SMTP_PORT", ""))
	if err != nil || port <= 0 {
		errs = append(errs, fmt.Errorf("SMTP_PORT must be a positive integer"))
	}
	cfg.Email.SMTPPort = port

	if err := cfg.validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid environment: %w", errors.Join(errs...))
	}

	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	required := map[string]string{
		"DATABASE_URL":  c.Database.URL,
		"SMTP_HOST":     c.Email.SMTPHost,
		"SMTP_USER":     c.Email.SMTPUser,
		"SMTP_PASSWORD": c.Email.SMTPPassword,
	}
	for _, key := range []string{"DATABASE_URL", "SMTP_HOST", "SMTP_USER", "SMTP_PASSWORD"} {
		if required[key] == "" {
			errs = append(errs, fmt.Errorf("%s is required", key))
		}
	}

	if len(c.Auth.Secret) < minSecretLength {
		errs = append(errs, fmt.Errorf("AUTH_SECRET must be at least %d characters, got %d", minSecretLength, len(c.Auth.Secret)))
	}
	if !isAbsoluteURL(c.Auth.BaseURL) {
		errs = append(errs, fmt.Errorf("AUTH_URL must be an absolute URL"))
	}
	if c.Server.AppURL != "" && !isAbsoluteURL(c.Server.AppURL) {
		errs = append(errs, fmt.Errorf("APP_URL must be an absolute URL"))
	}
	if _, err := mail.ParseAddress(c.Email.From); err != nil {
		errs = append(errs, fmt.Errorf("SMTP_FROM must be an email address"))
	}
	if c.Analytics.ArcjetKey != "" && !strings.HasPrefix(c.Analytics.ArcjetKey, "ajkey_") {
		errs = append(errs, fmt.Errorf("ARCJET_KEY must start with ajkey_"))
	}
	if c.Auth.SessionUpdateAge >= c.Auth.SessionExpiresIn {
		errs = append(errs, fmt.Errorf("SESSION_UPDATE_AGE must be shorter than SESSION_EXPIRES_IN"))
	}

	return errors.Join(errs...)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

// SMTPAddress returns the host:port pair of the mail server.
func (c *EmailConfig) SMTPAddress() string {
	return fmt.Sprintf("%s:%d", c.SMTPHost, c.SMTPPort)
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// withOrigin appends the origin of raw to origins unless it is already
// listed. Empty or relative values are ignored.
func withOrigin(origins []string, raw string) []string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return origins
	}
	origin := u.Scheme + "://" + u.Host

	for _, o := range origins {
		if t, err := url.Parse(o); err == nil && t.Scheme+"://"+t.Host == origin {
			return origins
		}
	}
	return append(append([]string(nil), origins...), origin)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	seconds, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return time.Duration(seconds) * time.Second
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Split by comma and trim whitespace
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
