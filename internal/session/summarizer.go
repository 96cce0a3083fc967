package session

import (
	"context"
	"strings"
)

const (
	DefaultSummaryCharMax = 3200
	DefaultSummaryLineMax = 180

	compressedPrefix = "(older memory compressed)\n"
)

// Summarizer folds turns that leave the recent window into the running
// summary of a conversation.
type Summarizer interface {
	Summarize(ctx context.Context, existing string, turns []Turn) (string, error)
}

// LineSummarizer keeps one compact line per speaker and drops the oldest
// lines once the summary exceeds MaxChars runes.
type LineSummarizer struct {
	MaxChars int
	LineMax  int
}

func (s LineSummarizer) Summarize(_ context.Context, existing string, turns []Turn) (string, error) {
	maxChars := s.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultSummaryCharMax
	}
	lineMax := s.LineMax
	if lineMax <= 0 {
		lineMax = DefaultSummaryLineMax
	}

	lines := make([]string, 0, len(turns)*2+8)
	if trimmed := strings.TrimSpace(existing); trimmed != "" {
		for _, line := range strings.Split(trimmed, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
	}
	for _, turn := range turns {
		if content := compactLine(turn.Input, lineMax); content != "" {
			lines = append(lines, "- Patient: "+content)
		}
		if content := compactLine(turn.Output, lineMax); content != "" {
			lines = append(lines, "- Assistant: "+content)
		}
	}
	if len(lines) == 0 {
		return "", nil
	}
	return trimToRuneLimit(strings.Join(lines, "\n"), maxChars), nil
}

func compactLine(content string, limit int) string {
	compact := strings.Join(strings.Fields(strings.TrimSpace(content)), " ")
	if compact == "" {
		return ""
	}
	return truncateRunes(compact, limit)
}

func trimToRuneLimit(value string, limit int) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || limit <= 0 {
		return trimmed
	}
	runes := []rune(trimmed)
	if len(runes) <= limit {
		return trimmed
	}

	keep := limit - len([]rune(compressedPrefix))
	if keep < 64 {
		keep = limit
	}
	tail := strings.TrimSpace(string(runes[len(runes)-keep:]))
	if keep == limit {
		return tail
	}
	return compressedPrefix + tail
}

func truncateRunes(value string, max int) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" || max <= 0 {
		return ""
	}
	runes := []rune(trimmed)
	if len(runes) <= max {
		return trimmed
	}
	return strings.TrimSpace(string(runes[:max])) + "..."
}
