package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type TransportMode string

const (
	TransportPolling TransportMode = "polling"
	TransportWebhook TransportMode = "webhook"
)

type Config struct {
	TelegramBotToken string        `env:"TELEGRAM_BOT_TOKEN,required"`
	TransportMode    TransportMode `env:"TRANSPORT_MODE" envDefault:"polling"`
	WebhookURL       string        `env:"WEBHOOK_URL"`
	WebhookSecret    string        `env:"WEBHOOK_SECRET"`
	Port             int           `env:"PORT" envDefault:"8080"`
	// TrustProxy honours X-Forwarded-For on webhook requests.
	TrustProxy bool `env:"TRUST_PROXY" envDefault:"false"`
	// MetricsAddr serves /metrics in polling mode; webhook mode uses PORT.
	MetricsAddr string `env:"METRICS_ADDR"`
	AdminUserID int64  `env:"ADMIN_USER"`

	// LLM settings
	LLMProvider      string `env:"LLM_PROVIDER" envDefault:"gemini"`
	GeminiAPIKey     string `env:"GEMINI_API_KEY"`
	GeminiModel      string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `env:"OPENAI_BASE_URL"`
	OpenAIModel      string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	YandexOAuthToken string `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	SystemPromptPath string        `env:"SYSTEM_PROMPT_PATH"`
	RecommendTimeout time.Duration `env:"RECOMMEND_TIMEOUT" envDefault:"60s"`

	// Storage
	DatabaseURL   string `env:"DATABASE_URL"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"healthmentor"`

	// Geolocation
	GeoEnabled bool   `env:"GEO_ENABLED" envDefault:"true"`
	GeoBaseURL string `env:"GEO_BASE_URL" envDefault:"http://ip-api.com"`

	ReportCron string `env:"REPORT_CRON" envDefault:"0 21 * * *"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// New reads the configuration from the environment and validates it.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Model returns the model name configured for the selected provider.
func (c *Config) Model() string {
	switch strings.ToLower(c.LLMProvider) {
	case "gemini":
		return c.GeminiModel
	case "openai":
		return c.OpenAIModel
	default:
		return ""
	}
}

func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.TelegramBotToken) == "" {
		errs = append(errs, errors.New("TELEGRAM_BOT_TOKEN is empty"))
	}

	switch c.TransportMode {
	case TransportPolling:
	case TransportWebhook:
		if c.WebhookURL == "" {
			errs = append(errs, errors.New("WEBHOOK_URL is required in webhook mode"))
		}
		if c.WebhookSecret == "" {
			errs = append(errs, errors.New("WEBHOOK_SECRET is required in webhook mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TRANSPORT_MODE %q", c.TransportMode))
	}

	switch strings.ToLower(c.LLMProvider) {
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini provider"))
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	case "yandex":
		if c.YandexOAuthToken == "" || c.YandexFolderID == "" {
			errs = append(errs, errors.New("YANDEX_OAUTH_TOKEN and YANDEX_FOLDER_ID are required for the yandex provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %d", c.Port))
	}
	if c.RecommendTimeout < 0 {
		errs = append(errs, errors.New("RECOMMEND_TIMEOUT must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
