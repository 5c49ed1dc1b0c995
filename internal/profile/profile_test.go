package profile

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfileDefaults(t *testing.T) {
	clearEnvVars()

	profile := &Profile{}
	profile.FromEnv()

	assert.Equal(t, "openai", profile.LLMProvider)
	assert.Equal(t, "https://api.openai.com/v1", profile.LLMBaseURL)
	assert.False(t, profile.LLMRoutingEnabled, "routing must stay off without an API key")
	assert.Equal(t, 24*time.Hour, profile.SessionTTL)
	assert.Equal(t, 30*time.Second, profile.LockTTL)
	assert.Equal(t, time.Hour, profile.IdempotencyTTL)
	assert.Equal(t, 2, profile.MaxBatonHops)
	assert.Equal(t, 200, profile.MaxDialogueText)
	assert.Equal(t, "redis", profile.Driver)
}

func TestProfileFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envValue string
		field    func(*Profile) string
		expected string
	}{
		{
			name:     "provider anthropic gets compatible base URL",
			envVar:   "CHARLA_LLM_PROVIDER",
			envValue: "anthropic",
			field:    func(p *Profile) string { return p.LLMBaseURL },
			expected: "https://api.anthropic.com/v1",
		},
		{
			name:     "explicit model wins over provider default",
			envVar:   "CHARLA_LLM_MODEL",
			envValue: "gpt-4o",
			field:    func(p *Profile) string { return p.LLMModel },
			expected: "gpt-4o",
		},
		{
			name:     "redis address",
			envVar:   "CHARLA_REDIS_ADDR",
			envValue: "redis.internal:6380",
			field:    func(p *Profile) string { return p.RedisAddr },
			expected: "redis.internal:6380",
		},
		{
			name:     "unknown provider falls back to openai",
			envVar:   "CHARLA_LLM_PROVIDER",
			envValue: "mistral",
			field:    func(p *Profile) string { return p.LLMProvider },
			expected: "openai",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()
			os.Setenv(tt.envVar, tt.envValue)
			defer os.Unsetenv(tt.envVar)

			profile := &Profile{}
			profile.FromEnv()

			if actual := tt.field(profile); actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, actual)
			}
		})
	}
}

func TestLLMRoutingRequiresAPIKey(t *testing.T) {
	clearEnvVars()
	os.Setenv("CHARLA_LLM_ROUTING_ENABLED", "true")
	os.Setenv("CHARLA_LLM_API_KEY", "test-key")
	defer clearEnvVars()

	profile := &Profile{}
	profile.FromEnv()
	if !profile.LLMRoutingEnabled {
		t.Error("expected routing enabled with key present")
	}

	os.Unsetenv("CHARLA_LLM_API_KEY")
	profile = &Profile{}
	profile.FromEnv()
	if profile.LLMRoutingEnabled {
		t.Error("expected routing disabled without a key")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*Profile)
		wantErr bool
	}{
		{
			name:  "redis driver with address",
			setup: func(p *Profile) { p.Driver = "redis"; p.RedisAddr = "localhost:6379" },
		},
		{
			name:  "memory driver",
			setup: func(p *Profile) { p.Driver = "memory" },
		},
		{
			name:    "unknown driver rejected",
			setup:   func(p *Profile) { p.Driver = "sqlite" },
			wantErr: true,
		},
		{
			name:    "redis driver without address rejected",
			setup:   func(p *Profile) { p.Driver = "redis" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profile := &Profile{}
			tt.setup(profile)
			err := profile.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(): err = %v, wantErr = %v", err, tt.wantErr)
			}
			if err == nil && profile.Port != 8080 {
				t.Errorf("Validate(): expected default port 8080, got %d", profile.Port)
			}
		})
	}
}

func clearEnvVars() {
	prefix := "CHARLA_"
	suffixes := []string{
		"LLM_PROVIDER", "LLM_API_KEY", "LLM_BASE_URL", "LLM_MODEL",
		"LLM_TIMEOUT_MS", "LLM_TEMPERATURE", "LLM_ROUTING_ENABLED",
		"SESSION_TTL", "LOCK_TTL", "IDEMPOTENCY_TTL",
		"MAX_BATON_HOPS", "MAX_DIALOGUE_TEXT",
		"DRIVER", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"WHATSAPP_TOKEN", "WHATSAPP_PHONE_ID", "WHATSAPP_VERIFY_TOKEN",
	}
	for _, suffix := range suffixes {
		os.Unsetenv(prefix + suffix)
	}
}
