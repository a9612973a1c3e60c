package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

// InsecureSessionSecret is used to sign session cookies when SESSION_SECRET is unset.
// Anyone who knows it can forge a session cookie.
const InsecureSessionSecret = "career-chat-insecure-default-secret"

const DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

type Config struct {
	// LLM settings
	LLMProvider   LLMProvider `env:"LLM_PROVIDER" envDefault:"gemini"`
	Model         string      `env:"LLM_MODEL" envDefault:"gemini-2.5-flash"`
	GeminiAPIKey  string      `env:"GEMINI_API_KEY"`
	APIKey        string      `env:"API_KEY"`
	GeminiBaseURL string      `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/openai/"`

	OpenAIAPIKey       string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL      string `env:"OPENAI_BASE_URL"`
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	YandexOAuthToken string `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string `env:"YANDEX_FOLDER_ID"`

	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"60s"`

	// Prompts
	PersonaPromptPath string `env:"PERSONA_PROMPT_PATH"`

	// Web
	ListenAddr    string `env:"LISTEN_ADDR" envDefault:":5000"`
	SessionSecret string `env:"SESSION_SECRET"`
	EagerPriming  bool   `env:"EAGER_PRIMING" envDefault:"false"`

	// Storage and reporting
	TranscriptLogPath string `env:"TRANSCRIPT_LOG_PATH"`
	StatsSchedule     string `env:"STATS_SCHEDULE" envDefault:"@every 15m"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// Error reports a missing or invalid setting. The process must not start with it.
type Error struct {
	Var    string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Var, e.Reason)
}

// Load parses the environment and checks that the selected provider has its credential.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.LLMProvider = LLMProvider(strings.ToLower(strings.TrimSpace(string(cfg.LLMProvider))))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGemini:
		if c.GeminiKey() == "" {
			return &Error{Var: "GEMINI_API_KEY", Reason: "not set (API_KEY is also accepted)"}
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return &Error{Var: "OPENAI_API_KEY", Reason: "not set"}
		}
	case ProviderYandex:
		if c.YandexOAuthToken == "" || c.YandexFolderID == "" {
			return &Error{Var: "YANDEX_OAUTH_TOKEN", Reason: "YANDEX_OAUTH_TOKEN and YANDEX_FOLDER_ID are required"}
		}
	default:
		return &Error{Var: "LLM_PROVIDER", Reason: fmt.Sprintf("unknown provider %q", c.LLMProvider)}
	}
	if c.UpstreamTimeout <= 0 {
		return &Error{Var: "UPSTREAM_TIMEOUT", Reason: "must be positive"}
	}
	return nil
}

// GeminiKey prefers GEMINI_API_KEY and falls back to API_KEY.
func (c *Config) GeminiKey() string {
	if c.GeminiAPIKey != "" {
		return c.GeminiAPIKey
	}
	return c.APIKey
}

// SessionKey returns the cookie signing secret and whether it is the insecure default.
func (c *Config) SessionKey() ([]byte, bool) {
	if c.SessionSecret == "" {
		return []byte(InsecureSessionSecret), true
	}
	return []byte(c.SessionSecret), false
}
