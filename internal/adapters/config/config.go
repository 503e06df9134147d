package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"openstocks/pkg/errors"
)

type Config struct {
	App           AppConfig
	Robinhood     RobinhoodConfig
	Schwab        SchwabConfig
	Redis         RedisConfig
	Agent         AgentConfig
	Metrics       MetricsConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"openstocks"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`

	// 32-byte key enabling encryption of cached broker sessions.
	// Sessions are stored in plaintext when unset.
	SessionEncryptionKey string `envconfig:"SESSION_ENCRYPTION_KEY"`

	// Directory for cached broker sessions and OAuth tokens.
	TokenDir string `envconfig:"TOKEN_DIR" default:"~/.tokens"`
}

// ResolvedTokenDir expands a leading ~ in TokenDir.
func (c AppConfig) ResolvedTokenDir() string {
	if strings.HasPrefix(c.TokenDir, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(c.TokenDir, "~"))
		}
	}
	return c.TokenDir
}

type RobinhoodConfig struct {
	Username string `envconfig:"ROBINHOOD_USERNAME"`
	Password string `envconfig:"ROBINHOOD_PASSWORD"`
	MFACode  string `envconfig:"ROBINHOOD_MFA_CODE"`

	// Session lifetime requested from the token endpoint.
	ExpiresIn time.Duration `envconfig:"ROBINHOOD_EXPIRES_IN" default:"24h"`
}

// Configured reports whether both Robinhood credentials are present.
func (c RobinhoodConfig) Configured() bool {
	return c.Username != "" && c.Password != ""
}

// Partial reports whether exactly one of the two credentials was supplied.
func (c RobinhoodConfig) Partial() bool {
	return (c.Username != "") != (c.Password != "")
}

type SchwabConfig struct {
	APIKey      string `envconfig:"SCHWAB_API_KEY"`
	AppSecret   string `envconfig:"SCHWAB_APP_SECRET"`
	CallbackURL string `envconfig:"SCHWAB_CALLBACK_URL" default:"https://127.0.0.1:8182/"`
	TokenPath   string `envconfig:"SCHWAB_TOKEN_PATH"`
}

// Configured reports whether both Schwab credentials are present.
func (c SchwabConfig) Configured() bool {
	return c.APIKey != "" && c.AppSecret != ""
}

type RedisConfig struct {
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`

	QuoteCacheTTL time.Duration `envconfig:"REDIS_QUOTE_CACHE_TTL" default:"5s"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AgentConfig struct {
	Provider string `envconfig:"AGENT_AI_PROVIDER" default:"gemini"`
	Model    string `envconfig:"AGENT_MODEL" default:"gemini-2.0-flash"`
	// Maximum tool invocations per agent turn, surfaced in the instruction.
	MaxToolCalls int `envconfig:"AGENT_MAX_TOOL_CALLS" default:"10"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"METRICS_ENABLED" default:"true"`
	// Port for the combined health and metrics HTTP server.
	Port int `envconfig:"HTTP_PORT" default:"8080"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	Provider    string `envconfig:"ERROR_TRACKING_PROVIDER" default:"sentry"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
