// Package llm wraps the OpenAI-compatible chat API behind the three
// operations the core needs: plain chat, chat with tool calling, and chat
// with a structured-output schema.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// CallStats carries token usage and timing for a single LLM call.
type CallStats struct {
	PromptTokens     int   `json:"prompt_tokens"`
	CompletionTokens int   `json:"completion_tokens"`
	TotalTokens      int   `json:"total_tokens"`
	TotalDurationMs  int64 `json:"total_duration_ms"`
}

// ToolDescriptor represents a function/tool available to the LLM.
type ToolDescriptor struct {
	Name        string
	Description string
	Parameters  string // JSON Schema string
}

// ChatResponse represents the LLM response including potential tool calls.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// ToolCall represents a request to call a tool.
type ToolCall struct {
	ID       string
	Name     string
	Argument string // JSON-encoded arguments
}

// SchemaOptions tune a structured-output call.
type SchemaOptions struct {
	Temperature float32
	Timeout     time.Duration
}

// Service is the chat interface the router and agents consume.
type Service interface {
	// Chat performs a synchronous chat and returns the assistant text.
	Chat(ctx context.Context, messages []Message) (string, *CallStats, error)

	// ChatWithTools performs one chat round with function calling enabled.
	// Tool dispatch is the caller's job; the response carries the requested
	// calls.
	ChatWithTools(ctx context.Context, messages []Message, tools []ToolDescriptor) (*ChatResponse, *CallStats, error)

	// ChatWithSchema asks for a response conforming to the given JSON
	// schema and returns the raw JSON content.
	ChatWithSchema(ctx context.Context, messages []Message, schema *ResponseSchema, opts SchemaOptions) (json.RawMessage, *CallStats, error)

	// Warmup sends a lightweight ping to establish the connection.
	Warmup(ctx context.Context)
}

// Config represents LLM service configuration.
type Config struct {
	Provider    string // openai, anthropic, gemini
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 1024
	Temperature float32 // default: 0.3
	Timeout     int     // request timeout in seconds (default: 60)
}

type service struct {
	client      *openai.Client
	model       string
	provider    string
	maxTokens   int
	temperature float32
	timeout     int
}

// NewService creates a Service for the configured provider. All three
// providers are reached through their OpenAI-compatible endpoints.
func NewService(cfg *Config) (Service, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: API key is required")
	}

	httpClient := newHTTPClient()
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.HTTPClient = httpClient

	switch cfg.Provider {
	case "openai", "":
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
	case "anthropic":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.anthropic.com/v1"
		}
		clientConfig.BaseURL = baseURL
	case "gemini":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
		}
		clientConfig.BaseURL = baseURL
	default:
		slog.Info("llm: unknown provider, using OpenAI-compatible defaults", "provider", cfg.Provider)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.3
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60
	}

	return &service{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		provider:    cfg.Provider,
		maxTokens:   maxTokens,
		temperature: temperature,
		timeout:     timeout,
	}, nil
}

func (s *service) Chat(ctx context.Context, messages []Message) (string, *CallStats, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeout)*time.Second)
	defer cancel()

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		Messages:    convertMessages(messages),
	})
	if err != nil {
		return "", nil, fmt.Errorf("llm chat failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("empty response from LLM")
	}

	stats := statsFromUsage(resp.Usage, start)
	slog.Debug("llm: chat response",
		"model", s.model,
		"content_length", len(resp.Choices[0].Message.Content),
		"total_tokens", stats.TotalTokens,
		"duration_ms", stats.TotalDurationMs,
	)
	return resp.Choices[0].Message.Content, stats, nil
}

func (s *service) ChatWithTools(ctx context.Context, messages []Message, tools []ToolDescriptor) (*ChatResponse, *CallStats, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeout)*time.Second)
	defer cancel()

	openaiTools := make([]openai.Tool, len(tools))
	for i, t := range tools {
		openaiTools[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  json.RawMessage(t.Parameters),
			},
		}
	}

	// Lower temperature for tool calls keeps argument shapes deterministic.
	toolTemperature := float32(0.1)
	if s.temperature < 0.1 {
		toolTemperature = s.temperature
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: toolTemperature,
		Messages:    convertMessages(messages),
		Tools:       openaiTools,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("llm chat with tools failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil, fmt.Errorf("empty response from LLM")
	}

	stats := statsFromUsage(resp.Usage, start)
	choice := resp.Choices[0]
	response := &ChatResponse{Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		response.ToolCalls = append(response.ToolCalls, ToolCall{
			ID:       tc.ID,
			Name:     tc.Function.Name,
			Argument: tc.Function.Arguments,
		})
	}
	return response, stats, nil
}

func (s *service) ChatWithSchema(ctx context.Context, messages []Message, schema *ResponseSchema, opts SchemaOptions) (json.RawMessage, *CallStats, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Duration(s.timeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = s.temperature
	}

	schemaJSON, err := json.Marshal(schema.Schema)
	if err != nil {
		return nil, nil, fmt.Errorf("llm: marshal response schema: %w", err)
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: temperature,
		Messages:    convertMessages(messages),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schema.Name,
				Schema: json.RawMessage(schemaJSON),
				Strict: true,
			},
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("llm structured chat failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, nil, fmt.Errorf("empty response from LLM")
	}

	stats := statsFromUsage(resp.Usage, start)
	content := resp.Choices[0].Message.Content
	if !json.Valid([]byte(content)) {
		return nil, stats, fmt.Errorf("llm structured chat returned invalid JSON")
	}
	return json.RawMessage(content), stats, nil
}

func (s *service) Warmup(ctx context.Context) {
	warmupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	_, err := s.client.CreateChatCompletion(warmupCtx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   1,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Hi"},
		},
	})
	if err != nil {
		slog.Warn("llm: warmup ping failed (first request may be slower)",
			"provider", s.provider,
			"model", s.model,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}
	slog.Info("llm: connection warmed up",
		"provider", s.provider,
		"model", s.model,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

func statsFromUsage(usage openai.Usage, start time.Time) *CallStats {
	return &CallStats{
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		TotalTokens:      usage.TotalTokens,
		TotalDurationMs:  time.Since(start).Milliseconds(),
	}
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := m.Role
		switch role {
		case "system", "user", "assistant":
		default:
			role = "user"
		}
		out[i] = openai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return out
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// SystemPrompt builds a system message.
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage builds a user message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// AssistantMessage builds an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}
