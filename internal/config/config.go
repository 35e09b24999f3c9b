package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	env "github.com/netflix/go-env"
)

// Config is the service configuration, read once at startup.
type Config struct {
	Port string `env:"PORT,default=8080"`

	// SlackBotToken authenticates conversations.history and stars.add calls.
	SlackBotToken string `env:"SLACK_BOT_TOKEN"`
	// VerificationToken is the shared secret Slack sends with every slash command.
	VerificationToken string `env:"SLACK_VERIFICATION_TOKEN"`
	// SigningSecret enables X-Slack-Signature checks on the webhook when set.
	SigningSecret string `env:"SLACK_SIGNING_SECRET"`
	// SlackAPIURL overrides the Slack Web API base URL, e.g. for a local stub.
	SlackAPIURL string `env:"SLACK_API_URL"`
	// SlackAPITimeout bounds each Slack call and reply POST. Zero means no timeout.
	SlackAPITimeout time.Duration `env:"SLACK_API_TIMEOUT,default=0s"`

	WebhookRatePerSecond float64 `env:"WEBHOOK_RATE_PER_SECOND,default=100"`
	WebhookRateBurst     int     `env:"WEBHOOK_RATE_BURST,default=200"`

	OTelEnabled          bool   `env:"OTEL_ENABLED,default=false"`
	OTelServiceName      string `env:"OTEL_SERVICE_NAME,default=starlord"`
	OTelExporterEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	LogLevel    string `env:"LOG_LEVEL,default=INFO"`
	LogFormat   string `env:"LOG_FORMAT,default=text"`
	Environment string `env:"ENVIRONMENT,default=development"`
}

// Load reads configuration from the process environment. Any env files given
// are loaded first; variables already set in the environment win. Missing
// files are ignored.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration from environment: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []string

	if c.SlackBotToken == "" {
		errs = append(errs, "SLACK_BOT_TOKEN is required")
	}

	if c.VerificationToken == "" {
		errs = append(errs, "SLACK_VERIFICATION_TOKEN is required")
	}

	if c.SlackBotToken != "" && !strings.HasPrefix(c.SlackBotToken, "xoxb-") && !strings.HasPrefix(c.SlackBotToken, "xoxp-") {
		errs = append(errs, "SLACK_BOT_TOKEN must start with 'xoxb-' or 'xoxp-'")
	}

	if c.SlackAPIURL != "" && !strings.HasPrefix(c.SlackAPIURL, "http://") && !strings.HasPrefix(c.SlackAPIURL, "https://") {
		errs = append(errs, "SLACK_API_URL must be an http or https URL")
	}

	if c.SlackAPITimeout < 0 {
		errs = append(errs, "SLACK_API_TIMEOUT must not be negative")
	}

	if c.WebhookRatePerSecond <= 0 || c.WebhookRateBurst <= 0 {
		errs = append(errs, "WEBHOOK_RATE_PER_SECOND and WEBHOOK_RATE_BURST must be positive")
	}

	if c.OTelEnabled && c.OTelExporterEndpoint == "" {
		errs = append(errs, "OTEL_EXPORTER_OTLP_ENDPOINT is required when OTEL_ENABLED is true")
	}

	validLogLevels := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	if !contains(validLogLevels, strings.ToUpper(c.LogLevel)) {
		errs = append(errs, "LOG_LEVEL must be one of: DEBUG, INFO, WARN, ERROR")
	}

	validLogFormats := []string{"text", "json", "pretty"}
	if !contains(validLogFormats, strings.ToLower(c.LogFormat)) {
		errs = append(errs, "LOG_FORMAT must be one of: text, json, pretty")
	}

	if len(errs) > 0 {
		return errors.New(errs[0])
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return strings.ToLower(c.Environment) == "production"
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
