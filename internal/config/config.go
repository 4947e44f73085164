package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds the process configuration, resolved from the environment.
type Config struct {
	Addr        string
	Environment string
	LogLevel    string

	// Evaluator. When EvaluatorURL is empty the in-process evaluator is
	// used; when set, EvaluatorKey authenticates against the remote one.
	EvaluatorURL     string
	EvaluatorKey     string
	EvaluatorTimeout time.Duration

	// Session / OAuth collaborator.
	SessionSecret      string
	GitHubClientID     string
	GitHubClientSecret string
	OAuthRedirectURL   string

	// Optional infrastructure.
	DatabaseURL string
	RedisAddr   string

	// Coarse edge limiter protecting the service itself.
	EdgeRPS   float64
	EdgeBurst int
}

// FromEnv reads configuration from the environment with sensible defaults.
func FromEnv() Config {
	return Config{
		Addr:        getenv("GATEWARDEN_ADDR", ":8080"),
		Environment: getenv("GATEWARDEN_ENV", "development"),
		LogLevel:    getenv("GATEWARDEN_LOG_LEVEL", "info"),

		EvaluatorURL:     os.Getenv("GATEWARDEN_EVALUATOR_URL"),
		EvaluatorKey:     os.Getenv("GATEWARDEN_KEY"),
		EvaluatorTimeout: getduration("GATEWARDEN_EVALUATOR_TIMEOUT", 10*time.Second),

		SessionSecret:      getenv("GATEWARDEN_SESSION_SECRET", "dev-only-insecure-secret"),
		GitHubClientID:     os.Getenv("AUTH_GITHUB_ID"),
		GitHubClientSecret: os.Getenv("AUTH_GITHUB_SECRET"),
		OAuthRedirectURL:   getenv("GATEWARDEN_OAUTH_REDIRECT_URL", "http://localhost:8080/auth/github/callback"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),

		EdgeRPS:   getfloat("GATEWARDEN_EDGE_RPS", 50),
		EdgeBurst: getint("GATEWARDEN_EDGE_BURST", 100),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getint(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getfloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
