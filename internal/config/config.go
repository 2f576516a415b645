package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port            int
	APIKey          string // API key protecting the local agent surface
	BackendURL      string // base URL of the CrossPostMe REST backend
	SessionToken    string // bearer token for backend calls; owned by the session collaborator
	RedirectBaseURL string // base URL the OAuth provider redirects back to
	RequestTimeout  time.Duration
	TrustedProxies  []string // proxy IPs whose X-Forwarded-For header is honored
	LogLevel        string
	LogFormat       string
	LogDir          string
	ServiceName     string
	Version         string
	Environment     string
}

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists, but don't fail if it doesn't (could be real env vars)
	_ = godotenv.Load()

	cfg := &Config{
		APIKey:          getEnv("API_KEY", ""),
		BackendURL:      getEnv("BACKEND_URL", ""),
		SessionToken:    getEnv("SESSION_TOKEN", ""),
		RedirectBaseURL: getEnv("REDIRECT_BASE_URL", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		LogDir:          getEnv("LOG_DIR", "logs"),
		ServiceName:     getEnv("SERVICE_NAME", "crosspost-agent"),
		Version:         getEnv("VERSION", "dev"),
		Environment:     getEnv("ENVIRONMENT", "dev"),
	}

	portStr := getEnv("PORT", "8090")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT value: %w", err)
	}
	cfg.Port = port

	timeoutStr := getEnv("REQUEST_TIMEOUT_SECONDS", strconv.Itoa(DefaultRequestTimeoutSeconds))
	timeoutSecs, err := strconv.Atoi(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT_SECONDS value: %w", err)
	}
	if timeoutSecs < MinRequestTimeoutSeconds || timeoutSecs > MaxRequestTimeoutSeconds {
		return nil, fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be between %d and %d, got %d",
			MinRequestTimeoutSeconds, MaxRequestTimeoutSeconds, timeoutSecs)
	}
	cfg.RequestTimeout = time.Duration(timeoutSecs) * time.Second

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY environment variable must be set for security")
	}
	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL environment variable must be set")
	}
	if _, err := url.ParseRequestURI(cfg.BackendURL); err != nil {
		return nil, fmt.Errorf("invalid BACKEND_URL value: %w", err)
	}
	if cfg.RedirectBaseURL == "" {
		cfg.RedirectBaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	cfg.RedirectBaseURL = strings.TrimRight(cfg.RedirectBaseURL, "/")

	if proxies := getEnv("TRUSTED_PROXIES", ""); proxies != "" {
		for _, p := range strings.Split(proxies, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.TrustedProxies = append(cfg.TrustedProxies, p)
			}
		}
	}

	return cfg, nil
}

// RedirectURI returns the OAuth redirect target sent on connection initiation.
func (c *Config) RedirectURI() string {
	return c.RedirectBaseURL + "/oauth/callback"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
