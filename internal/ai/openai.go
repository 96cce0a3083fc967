package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"medassist/apps/backend/internal/config"
)

const openAIMaxAttempts = 2

// OpenAIClient calls the chat completions API.
type OpenAIClient struct {
	client          *openai.Client
	apiKey          string
	model           string
	maxOutputTokens int
	temperature     float32
}

func NewOpenAIClient(cfg config.Config) *OpenAIClient {
	apiKey := strings.TrimSpace(cfg.OpenAIAPIKey)
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL := strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/"); baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: cfg.AITimeout()}

	return &OpenAIClient{
		client:          openai.NewClientWithConfig(clientConfig),
		apiKey:          apiKey,
		model:           strings.TrimSpace(cfg.OpenAIModel),
		maxOutputTokens: cfg.AIMaxOutputTokens,
		temperature:     float32(cfg.AITemperature),
	}
}

func (c *OpenAIClient) Query(ctx context.Context, req Request) (Response, error) {
	if c.apiKey == "" {
		return Response{}, errors.New("OPENAI_API_KEY is not configured")
	}
	model := requestModel(req, c.model)
	if model == "" {
		return Response{}, errors.New("OPENAI_MODEL is not configured")
	}

	messages := buildOpenAIMessages(req)
	if len(messages) == 0 || messages[len(messages)-1].Role == openai.ChatMessageRoleSystem {
		return Response{}, errors.New("AI request input is empty")
	}
	completionRequest := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   c.maxOutputTokens,
		Temperature: c.temperature,
	}
	if req.JSON {
		completionRequest.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var (
		resp openai.ChatCompletionResponse
		err  error
	)
	for attempt := 1; attempt <= openAIMaxAttempts; attempt++ {
		resp, err = c.client.CreateChatCompletion(ctx, completionRequest)
		if err == nil || !retryableOpenAIError(ctx, err) {
			break
		}
		slog.Warn("openai upstream error", "attempt", attempt, "error", err)
	}
	if err != nil {
		return Response{}, fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return Response{}, errors.New("openai response has no choices")
	}
	choice := resp.Choices[0]
	answer := strings.TrimSpace(choice.Message.Content)
	if answer == "" {
		if choice.FinishReason == openai.FinishReasonLength {
			return Response{}, errors.New("openai response incomplete due max output tokens")
		}
		return Response{}, errors.New("openai response answer is empty")
	}

	modelName := strings.TrimSpace(resp.Model)
	if modelName == "" {
		modelName = model
	}
	return Response{
		Answer: answer,
		Model:  modelName,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func buildOpenAIMessages(req Request) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Conversation)+2)
	if system := strings.TrimSpace(req.SystemPrompt); system != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, turn := range req.Conversation {
		role, ok := normalizedRole(turn.Role)
		content := strings.TrimSpace(turn.Content)
		if !ok || content == "" {
			continue
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: content})
	}
	if prompt := strings.TrimSpace(req.UserPrompt); prompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})
	}
	return messages
}

func retryableOpenAIError(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	var requestErr *openai.RequestError
	if errors.As(err, &requestErr) {
		return requestErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	return true
}
