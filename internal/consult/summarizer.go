package consult

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"medassist/apps/backend/internal/ai"
	"medassist/apps/backend/internal/config"
	"medassist/apps/backend/internal/session"
)

// SummarizerFor picks the memory summarizer named by MEMORY_SUMMARIZER.
func SummarizerFor(cfg config.Config, client ai.Client) session.Summarizer {
	if cfg.MemorySummarizer == config.SummarizerModel && client != nil {
		return ModelSummarizer{Client: client, MaxChars: cfg.MemorySummaryCharMax}
	}
	return session.LineSummarizer{MaxChars: cfg.MemorySummaryCharMax}
}

// ModelSummarizer asks the model to merge old turns into the running
// summary of a session.
type ModelSummarizer struct {
	Client   ai.Client
	MaxChars int
}

func (m ModelSummarizer) Summarize(ctx context.Context, existing string, turns []session.Turn) (string, error) {
	if m.Client == nil {
		return "", errors.New("summarizer has no model client")
	}
	if len(turns) == 0 {
		return strings.TrimSpace(existing), nil
	}

	system, user := buildSummaryPrompt(existing, turns)
	resp, err := m.Client.Query(ctx, ai.Request{
		Task:         ai.TaskSummary,
		SystemPrompt: system,
		UserPrompt:   user,
	})
	if err != nil {
		return "", fmt.Errorf("summarize with model: %w", err)
	}
	summary := strings.TrimSpace(resp.Answer)
	if summary == "" {
		return "", errors.New("model returned an empty summary")
	}

	maxChars := m.MaxChars
	if maxChars <= 0 {
		maxChars = session.DefaultSummaryCharMax
	}
	if runes := []rune(summary); len(runes) > maxChars {
		summary = strings.TrimSpace(string(runes[len(runes)-maxChars:]))
	}
	return summary, nil
}
