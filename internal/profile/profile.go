package profile

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Profile is configuration to start the main server.
type Profile struct {
	// LLM configuration (OpenAI-compatible protocol). anthropic and gemini
	// are reached through their compatible endpoints.
	LLMProvider       string // openai, anthropic, gemini
	LLMAPIKey         string
	LLMBaseURL        string // optional, has default per provider
	LLMModel          string
	LLMTimeoutMs      int     // classifier call budget in milliseconds
	LLMTemperature    float64 // classifier temperature
	LLMRoutingEnabled bool

	// Turn handling.
	SessionTTL      time.Duration
	LockTTL         time.Duration
	IdempotencyTTL  time.Duration
	MaxBatonHops    int
	MaxDialogueText int

	// Session store. Driver is redis or memory.
	Driver        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// WhatsApp Cloud API.
	WhatsAppToken       string
	WhatsAppPhoneID     string
	WhatsAppVerifyToken string

	// Server.
	Mode    string // demo, dev, prod
	Addr    string
	Port    int
	Version string
}

// Provider default configurations, used when LLM_BASE_URL is not set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"anthropic": {
		BaseURL: "https://api.anthropic.com/v1",
		Model:   "claude-3-5-haiku-latest",
	},
	"gemini": {
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai",
		Model:   "gemini-2.0-flash",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMEnabled reports whether an LLM API key is configured.
func (p *Profile) IsLLMEnabled() bool {
	return p.LLMAPIKey != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvOrDefaultFloat returns environment variable value as float or default value.
func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("CHARLA_LLM_PROVIDER", "openai")
	p.LLMAPIKey = getEnvOrDefault("CHARLA_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("CHARLA_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("CHARLA_LLM_MODEL", "")
	p.LLMTimeoutMs = getEnvOrDefaultInt("CHARLA_LLM_TIMEOUT_MS", 900)
	p.LLMTemperature = getEnvOrDefaultFloat("CHARLA_LLM_TEMPERATURE", 0.3)
	p.LLMRoutingEnabled = getEnvOrDefault("CHARLA_LLM_ROUTING_ENABLED", "true") == "true" && p.LLMAPIKey != ""

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		slog.Warn("unknown LLM provider, using default: openai", "provider", p.LLMProvider)
		p.LLMProvider = "openai"
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	p.SessionTTL = time.Duration(getEnvOrDefaultInt("CHARLA_SESSION_TTL", 86400)) * time.Second
	p.LockTTL = time.Duration(getEnvOrDefaultInt("CHARLA_LOCK_TTL", 30)) * time.Second
	p.IdempotencyTTL = time.Duration(getEnvOrDefaultInt("CHARLA_IDEMPOTENCY_TTL", 3600)) * time.Second
	p.MaxBatonHops = getEnvOrDefaultInt("CHARLA_MAX_BATON_HOPS", 2)
	p.MaxDialogueText = getEnvOrDefaultInt("CHARLA_MAX_DIALOGUE_TEXT", 200)

	p.Driver = getEnvOrDefault("CHARLA_DRIVER", "redis")
	p.RedisAddr = getEnvOrDefault("CHARLA_REDIS_ADDR", "localhost:6379")
	p.RedisPassword = getEnvOrDefault("CHARLA_REDIS_PASSWORD", "")
	p.RedisDB = getEnvOrDefaultInt("CHARLA_REDIS_DB", 0)

	p.WhatsAppToken = getEnvOrDefault("CHARLA_WHATSAPP_TOKEN", "")
	p.WhatsAppPhoneID = getEnvOrDefault("CHARLA_WHATSAPP_PHONE_ID", "")
	p.WhatsAppVerifyToken = getEnvOrDefault("CHARLA_WHATSAPP_VERIFY_TOKEN", "")
}

// Validate normalises the profile and rejects unusable combinations.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver != "redis" && p.Driver != "memory" {
		return fmt.Errorf("unknown store driver %q (want redis or memory)", p.Driver)
	}
	if p.Driver == "redis" && p.RedisAddr == "" {
		return fmt.Errorf("redis driver requires a redis address")
	}
	if p.Mode == "prod" && p.Driver == "memory" {
		slog.Warn("memory store in prod mode: sessions will not survive restarts")
	}
	if p.Port <= 0 {
		p.Port = 8080
	}
	return nil
}
