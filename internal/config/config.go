package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"

	SummarizerLines = "lines"
	SummarizerModel = "model"
)

type Config struct {
	AppEnv               string   `env:"APP_ENV" envDefault:"local"`
	AppName              string   `env:"APP_NAME" envDefault:"MedAssist API"`
	APIPrefix            string   `env:"API_PREFIX" envDefault:"/api"`
	AppPort              string   `env:"APP_PORT" envDefault:"8000"`
	CORSAllowOrigins     []string `env:"CORS_ALLOW_ORIGINS" envSeparator:"," envDefault:"*"`
	CORSAllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`

	// Model provider
	AIProvider        string  `env:"AI_PROVIDER" envDefault:"gemini"`
	GoogleAPIKey      string  `env:"GOOGLE_API_KEY"`
	GeminiModel       string  `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	GeminiBaseURL     string  `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	OpenAIAPIKey      string  `env:"OPENAI_API_KEY"`
	OpenAIModel       string  `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL     string  `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	AIMaxOutputTokens int     `env:"AI_MAX_OUTPUT_TOKENS" envDefault:"1200"`
	AITimeoutSeconds  int     `env:"AI_TIMEOUT_SECONDS" envDefault:"30"`
	AITemperature     float64 `env:"AI_TEMPERATURE" envDefault:"0.3"`

	// Conversation memory
	MemorySummarizer     string        `env:"MEMORY_SUMMARIZER" envDefault:"lines"`
	MemoryRecentTurns    int           `env:"MEMORY_RECENT_TURNS" envDefault:"6"`
	MemorySummaryCharMax int           `env:"MEMORY_SUMMARY_CHAR_MAX" envDefault:"3200"`
	SessionIdleTTL       time.Duration `env:"SESSION_IDLE_TTL" envDefault:"2h"`
	MaxUploadBytes       int64         `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`

	// Optional consultation archive
	DatabaseURL string `env:"DATABASE_URL"`

	// Optional bearer auth; disabled while JWT_SECRET is empty
	JWTSecret    string `env:"JWT_SECRET"`
	JWTAlgorithm string `env:"JWT_ALGORITHM" envDefault:"HS256"`
	JWTAudience  string `env:"JWT_AUDIENCE"`
	JWTIssuer    string `env:"JWT_ISSUER"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.AIProvider = strings.ToLower(strings.TrimSpace(cfg.AIProvider))
	cfg.MemorySummarizer = strings.ToLower(strings.TrimSpace(cfg.MemorySummarizer))
	cfg.CORSAllowOrigins = cleanList(cfg.CORSAllowOrigins)
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.AIProvider {
	case ProviderGemini:
		if strings.TrimSpace(c.GoogleAPIKey) == "" {
			return errors.New("GOOGLE_API_KEY is required when AI_PROVIDER=gemini")
		}
	case ProviderOpenAI:
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			return errors.New("OPENAI_API_KEY is required when AI_PROVIDER=openai")
		}
	case ProviderMock:
	default:
		return fmt.Errorf("AI_PROVIDER %q is not supported; use gemini, openai or mock", c.AIProvider)
	}

	switch c.MemorySummarizer {
	case SummarizerLines, SummarizerModel:
	default:
		return fmt.Errorf("MEMORY_SUMMARIZER %q is not supported; use lines or model", c.MemorySummarizer)
	}
	if c.MemoryRecentTurns <= 0 {
		return errors.New("MEMORY_RECENT_TURNS must be positive")
	}
	if c.MemorySummaryCharMax <= 0 {
		return errors.New("MEMORY_SUMMARY_CHAR_MAX must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.SessionIdleTTL < 0 {
		return errors.New("SESSION_IDLE_TTL must not be negative")
	}

	if secret := strings.TrimSpace(c.JWTSecret); secret != "" {
		if secret == "change-me-in-production" {
			return errors.New("JWT_SECRET must not use insecure default value")
		}
		if len(secret) < 16 {
			return errors.New("JWT_SECRET is too short; use at least 16 characters")
		}
		if strings.TrimSpace(c.JWTAlgorithm) == "" {
			return errors.New("JWT_ALGORITHM is required")
		}
	}
	return nil
}

func (c Config) AuthEnabled() bool {
	return strings.TrimSpace(c.JWTSecret) != ""
}

func (c Config) ArchiveEnabled() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}

// ActiveModel is the model name of the selected provider.
func (c Config) ActiveModel() string {
	switch c.AIProvider {
	case ProviderOpenAI:
		return c.OpenAIModel
	case ProviderMock:
		return "mock"
	default:
		return c.GeminiModel
	}
}

func (c Config) AITimeout() time.Duration {
	if c.AITimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.AITimeoutSeconds) * time.Second
}

func cleanList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, item := range values {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return []string{"*"}
	}
	return result
}
