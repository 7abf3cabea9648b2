package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppName     = "analysis-suite"
	EnvFileName = "config.env"
)

// LoadEnvFile loads environment variables from a local .env file and
// from the config file in the user's config directory. Errors are
// ignored since neither file needs to exist.
func LoadEnvFile() {
	_ = godotenv.Load()

	configBase, err := os.UserConfigDir()
	if err != nil {
		return
	}
	configPath := filepath.Join(configBase, AppName, EnvFileName)
	_ = godotenv.Load(configPath)
}

// Config holds the video analysis service's settings, resolved once at
// startup. API keys come only from the environment, never from code.
type Config struct {
	GeminiAPIKey string
	ListenAddr   string
	DBPath       string
	StagingDir   string

	MaxAttempts int
	PollDelay   time.Duration
	Timeout     time.Duration
}

// FromEnv builds the config from environment variables, applying
// defaults for everything except the API key.
func FromEnv() (*Config, error) {
	cfg := &Config{
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		ListenAddr:   envOr("LISTEN_ADDR", ":8080"),
		DBPath:       envOr("ANALYSIS_DB_PATH", "analysis.db"),
		StagingDir:   envOr("STAGING_DIR", filepath.Join(os.TempDir(), AppName)),
		MaxAttempts:  3,
		PollDelay:    2 * time.Second,
		Timeout:      5 * time.Minute,
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	if raw := os.Getenv("ANALYSIS_MAX_ATTEMPTS"); raw != "" {
		var attempts int
		if _, err := fmt.Sscanf(raw, "%d", &attempts); err != nil || attempts < 1 {
			return nil, fmt.Errorf("ANALYSIS_MAX_ATTEMPTS must be a positive integer, got %q", raw)
		}
		cfg.MaxAttempts = attempts
	}
	if raw := os.Getenv("ANALYSIS_POLL_DELAY"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("ANALYSIS_POLL_DELAY must be a duration like 2s, got %q", raw)
		}
		cfg.PollDelay = d
	}
	if raw := os.Getenv("ANALYSIS_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("ANALYSIS_TIMEOUT must be a positive duration like 5m, got %q", raw)
		}
		cfg.Timeout = d
	}

	if err := os.MkdirAll(cfg.StagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
