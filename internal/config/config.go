package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the jobpilot server.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Backend    BackendConfig
	Automation AutomationConfig
	AI         AIConfig
}

type ServerConfig struct {
	Port          int
	Env           string
	RequireAuth   bool
	RateLimitRPM  int
	UploadDir     string
	MaxUploadSize int64
	PDFToText     string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// BackendConfig configures the client side (watch, batch, apply commands).
type BackendConfig struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	PollInterval time.Duration
}

// AutomationConfig controls how application attempts are simulated or probed.
type AutomationConfig struct {
	Applier          string
	SuccessRate      float64
	Seed             int64
	StageDelay       time.Duration
	JobDelay         time.Duration
	ProbeTimeout     time.Duration
	ApplyConcurrency int
	StatusTTL        time.Duration
}

type AIConfig struct {
	Provider         string
	InferenceTimeout time.Duration
	Ollama           OllamaConfig
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

var validAppliers = map[string]bool{
	"random": true,
	"probe":  true,
	"remote": true,
}

var validProviders = map[string]bool{
	"ollama": true,
	"mock":   true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := load()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClient reads the same environment as Load but only validates what the
// client commands need to reach a running backend.
func LoadClient() (*Config, error) {
	cfg := load()
	if err := cfg.validateBackend(); err != nil {
		return nil, err
	}
	if err := cfg.validateAutomation(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase reads the environment for administrative commands that only
// talk to Postgres.
func LoadDatabase() (*Config, error) {
	cfg := load()
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          envInt("JOBPILOT_PORT", 5000),
			Env:           envString("JOBPILOT_ENV", "development"),
			RequireAuth:   envBool("JOBPILOT_REQUIRE_AUTH", false),
			RateLimitRPM:  envInt("JOBPILOT_RATE_LIMIT_RPM", 120),
			UploadDir:     envString("JOBPILOT_UPLOAD_DIR", os.TempDir()+"/job_automation"),
			MaxUploadSize: int64(envInt("JOBPILOT_MAX_UPLOAD_MB", 10)) << 20,
			PDFToText:     envString("JOBPILOT_PDFTOTEXT", "pdftotext"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Backend: BackendConfig{
			BaseURL:      envString("JOBPILOT_BACKEND_URL", "http://localhost:5000/api"),
			APIKey:       os.Getenv("JOBPILOT_API_KEY"),
			Timeout:      envDuration("JOBPILOT_BACKEND_TIMEOUT", 30*time.Second),
			PollInterval: envDuration("JOBPILOT_POLL_INTERVAL", 3*time.Second),
		},
		Automation: AutomationConfig{
			Applier:          envString("AUTOMATION_APPLIER", "random"),
			SuccessRate:      envFloat("AUTOMATION_SUCCESS_RATE", 0.9),
			Seed:             int64(envInt("AUTOMATION_SEED", 0)),
			StageDelay:       envDuration("AUTOMATION_STAGE_DELAY", time.Second),
			JobDelay:         envDuration("AUTOMATION_JOB_DELAY", 2*time.Second),
			ProbeTimeout:     envDuration("AUTOMATION_PROBE_TIMEOUT", 15*time.Second),
			ApplyConcurrency: envInt("AUTOMATION_APPLY_CONCURRENCY", 4),
			StatusTTL:        envDuration("AUTOMATION_STATUS_TTL", 24*time.Hour),
		},
		AI: AIConfig{
			Provider:         envString("AI_PROVIDER", "ollama"),
			InferenceTimeout: envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 60*time.Second),
			Ollama: OllamaConfig{
				BaseURL: envString("OLLAMA_BASE_URL", "http://localhost:11434"),
				Model:   envString("OLLAMA_MODEL", "mistral"),
			},
		},
	}
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("JOBPILOT_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if err := c.validateAutomation(); err != nil {
		return err
	}
	// The server has no backend to call, so "remote" would loop back into itself.
	if c.Automation.Applier == "remote" {
		return fmt.Errorf("AUTOMATION_APPLIER=remote is only valid for client commands")
	}

	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("AI_PROVIDER must be one of ollama, mock; got %q", c.AI.Provider)
	}
	if c.AI.Provider == "ollama" && !isHTTPURL(c.AI.Ollama.BaseURL) {
		return fmt.Errorf("OLLAMA_BASE_URL must start with http:// or https://, got %q", c.AI.Ollama.BaseURL)
	}

	return nil
}

func (c *Config) validateBackend() error {
	if !isHTTPURL(c.Backend.BaseURL) {
		return fmt.Errorf("JOBPILOT_BACKEND_URL must start with http:// or https://, got %q", c.Backend.BaseURL)
	}
	if c.Backend.PollInterval <= 0 {
		return fmt.Errorf("JOBPILOT_POLL_INTERVAL must be positive, got %s", c.Backend.PollInterval)
	}
	return nil
}

func (c *Config) validateAutomation() error {
	if !validAppliers[c.Automation.Applier] {
		return fmt.Errorf("AUTOMATION_APPLIER must be one of random, probe, remote; got %q", c.Automation.Applier)
	}
	if c.Automation.SuccessRate < 0 || c.Automation.SuccessRate > 1 {
		return fmt.Errorf("AUTOMATION_SUCCESS_RATE must be within [0, 1], got %v", c.Automation.SuccessRate)
	}
	if c.Automation.ApplyConcurrency < 1 {
		return fmt.Errorf("AUTOMATION_APPLY_CONCURRENCY must be at least 1, got %d", c.Automation.ApplyConcurrency)
	}
	return nil
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
