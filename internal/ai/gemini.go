package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"medassist/apps/backend/internal/config"
)

const geminiMaxAttempts = 2

// GeminiClient calls the generateContent endpoint of the Gemini REST API.
type GeminiClient struct {
	http            *resty.Client
	apiKey          string
	model           string
	maxOutputTokens int
	temperature     float64
}

func NewGeminiClient(cfg config.Config) *GeminiClient {
	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(strings.TrimSpace(cfg.GeminiBaseURL), "/")).
		SetTimeout(cfg.AITimeout()).
		SetHeader("Content-Type", "application/json")
	return &GeminiClient{
		http:            httpClient,
		apiKey:          strings.TrimSpace(cfg.GoogleAPIKey),
		model:           strings.TrimSpace(cfg.GeminiModel),
		maxOutputTokens: cfg.AIMaxOutputTokens,
		temperature:     cfg.AITemperature,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

func (c *GeminiClient) Query(ctx context.Context, req Request) (Response, error) {
	if c.apiKey == "" {
		return Response{}, errors.New("GOOGLE_API_KEY is not configured")
	}
	model := requestModel(req, c.model)
	if model == "" {
		return Response{}, errors.New("GEMINI_MODEL is not configured")
	}

	payload := c.buildRequest(req)
	if len(payload.Contents) == 0 {
		return Response{}, errors.New("AI request input is empty")
	}

	var lastErr error
	for attempt := 1; attempt <= geminiMaxAttempts; attempt++ {
		resp, err := c.http.R().
			SetContext(ctx).
			SetHeader("x-goog-api-key", c.apiKey).
			SetBody(payload).
			Post("/models/" + model + ":generateContent")
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Response{}, ctxErr
			}
			lastErr = fmt.Errorf("gemini request: %w", err)
			continue
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			lastErr = fmt.Errorf("gemini error (%d): %s", resp.StatusCode(), truncateForLog(resp.String(), 600))
			slog.Warn("gemini upstream error", "attempt", attempt, "status", resp.StatusCode())
			continue
		}
		if resp.IsError() {
			return Response{}, fmt.Errorf("gemini error (%d): %s", resp.StatusCode(), truncateForLog(resp.String(), 600))
		}
		return parseGeminiResponse(resp.Body(), model)
	}
	return Response{}, lastErr
}

func (c *GeminiClient) buildRequest(req Request) geminiRequest {
	payload := geminiRequest{
		Contents: make([]geminiContent, 0, len(req.Conversation)+1),
		GenerationConfig: geminiGenerationConfig{
			Temperature:     c.temperature,
			MaxOutputTokens: c.maxOutputTokens,
		},
	}
	if req.JSON {
		payload.GenerationConfig.ResponseMimeType = "application/json"
	}
	if system := strings.TrimSpace(req.SystemPrompt); system != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}
	for _, turn := range req.Conversation {
		role, ok := normalizedRole(turn.Role)
		content := strings.TrimSpace(turn.Content)
		if !ok || content == "" {
			continue
		}
		if role == RoleAssistant {
			role = "model"
		}
		payload.Contents = append(payload.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: content}}})
	}
	if prompt := strings.TrimSpace(req.UserPrompt); prompt != "" {
		payload.Contents = append(payload.Contents, geminiContent{Role: RoleUser, Parts: []geminiPart{{Text: prompt}}})
	}
	return payload
}

func parseGeminiResponse(body []byte, model string) (Response, error) {
	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Response{}, fmt.Errorf("decode gemini response: %w", err)
	}
	if reason := parsed.PromptFeedback.BlockReason; reason != "" {
		return Response{}, fmt.Errorf("gemini blocked the prompt: %s", reason)
	}
	if len(parsed.Candidates) == 0 {
		return Response{}, errors.New("gemini response has no candidates")
	}

	candidate := parsed.Candidates[0]
	parts := make([]string, 0, len(candidate.Content.Parts))
	for _, part := range candidate.Content.Parts {
		if text := strings.TrimSpace(part.Text); text != "" {
			parts = append(parts, text)
		}
	}
	answer := strings.Join(parts, "\n")
	if answer == "" {
		if candidate.FinishReason == "MAX_TOKENS" {
			return Response{}, errors.New("gemini response incomplete due max output tokens")
		}
		slog.Warn("gemini response had no extractable answer", "body", truncateForLog(string(body), 1200))
		return Response{}, errors.New("gemini response answer is empty")
	}

	if version := strings.TrimSpace(parsed.ModelVersion); version != "" {
		model = version
	}
	return Response{
		Answer: answer,
		Model:  model,
		Usage: Usage{
			PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
			CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      parsed.UsageMetadata.TotalTokenCount,
		},
	}, nil
}
