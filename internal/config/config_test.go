package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, TransportPolling, cfg.TransportMode)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "gemini", cfg.LLMProvider)
	require.Equal(t, "gemini-2.0-flash", cfg.Model())
	require.Equal(t, 60*time.Second, cfg.RecommendTimeout)
	require.True(t, cfg.GeoEnabled)
	require.Equal(t, "healthmentor", cfg.MongoDatabase)
	require.Equal(t, "0 21 * * *", cfg.ReportCron)
	require.False(t, cfg.TrustProxy)
}

func TestNew_MissingToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("GEMINI_API_KEY", "g-key")

	_, err := New()
	require.Error(t, err)
}

func TestNew_WebhookOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TRANSPORT_MODE", "webhook")
	t.Setenv("WEBHOOK_URL", "https://bot.example.org")
	t.Setenv("WEBHOOK_SECRET", "s3cr3t")
	t.Setenv("PORT", "9000")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("RECOMMEND_TIMEOUT", "15s")
	t.Setenv("GEO_ENABLED", "false")
	t.Setenv("ADMIN_USER", "777")
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, TransportWebhook, cfg.TransportMode)
	require.Equal(t, 9000, cfg.Port)
	require.Equal(t, "gpt-4o", cfg.Model())
	require.Equal(t, 15*time.Second, cfg.RecommendTimeout)
	require.False(t, cfg.GeoEnabled)
	require.Equal(t, int64(777), cfg.AdminUserID)
	require.True(t, cfg.TrustProxy)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			TelegramBotToken: "t",
			TransportMode:    TransportPolling,
			Port:             8080,
			LLMProvider:      "gemini",
			GeminiAPIKey:     "k",
		}
	}

	cases := map[string]func(c *Config){
		"webhook without url":    func(c *Config) { c.TransportMode = TransportWebhook; c.WebhookSecret = "s" },
		"webhook without secret": func(c *Config) { c.TransportMode = TransportWebhook; c.WebhookURL = "https://x" },
		"unknown transport":      func(c *Config) { c.TransportMode = "carrier-pigeon" },
		"gemini without key":     func(c *Config) { c.GeminiAPIKey = "" },
		"openai without key":     func(c *Config) { c.LLMProvider = "openai" },
		"yandex without folder":  func(c *Config) { c.LLMProvider = "yandex"; c.YandexOAuthToken = "o" },
		"unknown provider":       func(c *Config) { c.LLMProvider = "eliza" },
		"bad port":               func(c *Config) { c.Port = 70000 },
		"negative timeout":       func(c *Config) { c.RecommendTimeout = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base()
			mutate(&c)
			require.Error(t, c.Validate())
		})
	}

	ok := base()
	require.NoError(t, ok.Validate())
}
