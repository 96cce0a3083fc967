package ai

import (
	"context"
	"fmt"
	"strings"

	"medassist/apps/backend/internal/config"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	TaskChat    = "chat"
	TaskDiet    = "diet"
	TaskSummary = "summary"
)

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Request struct {
	Task         string
	Model        string
	SystemPrompt string
	Conversation []ChatTurn
	UserPrompt   string
	// JSON asks the provider for a JSON object response when it supports it.
	JSON bool
}

type Response struct {
	Answer string
	Model  string
	Usage  Usage
}

type Client interface {
	Query(ctx context.Context, req Request) (Response, error)
}

// New builds the client for the configured provider.
func New(cfg config.Config) (Client, error) {
	switch cfg.AIProvider {
	case config.ProviderGemini:
		return NewGeminiClient(cfg), nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	case config.ProviderMock:
		return MockClient{Model: "mock"}, nil
	default:
		return nil, fmt.Errorf("unsupported AI_PROVIDER %q", cfg.AIProvider)
	}
}

func requestModel(req Request, fallback string) string {
	if model := strings.TrimSpace(req.Model); model != "" {
		return model
	}
	return strings.TrimSpace(fallback)
}

func normalizedRole(role string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleUser:
		return RoleUser, true
	case RoleAssistant, "model":
		return RoleAssistant, true
	default:
		return "", false
	}
}

func truncateForLog(value string, limit int) string {
	trimmed := strings.TrimSpace(value)
	if limit <= 0 || len(trimmed) <= limit {
		return trimmed
	}
	return trimmed[:limit] + "...(truncated)"
}
