package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const DefaultRecentTurns = 6

// Turn is one exchange: the normalized patient input and the compact JSON
// of the structured answer.
type Turn struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// History is the model-facing view of a conversation.
type History struct {
	Summary string
	Turns   []Turn
}

func (h History) Empty() bool {
	return h.Summary == "" && len(h.Turns) == 0
}

// Memory is the summarized dialogue of one session. It stays usable after
// the store has dropped it, so an in-flight turn can finish against it.
type Memory struct {
	mu          sync.Mutex
	summary     string
	turns       []Turn
	total       int
	recentLimit int
	summarizer  Summarizer
	fallback    Summarizer
	lastActive  time.Time
	now         func() time.Time
}

func newMemory(recentLimit int, summarizer Summarizer, now func() time.Time) *Memory {
	if recentLimit <= 0 {
		recentLimit = DefaultRecentTurns
	}
	fallback := LineSummarizer{}
	if summarizer == nil {
		summarizer = fallback
	}
	return &Memory{
		recentLimit: recentLimit,
		summarizer:  summarizer,
		fallback:    fallback,
		lastActive:  now(),
		now:         now,
	}
}

// History returns a copy of the summary and the recent raw turns.
func (m *Memory) History() History {
	m.mu.Lock()
	defer m.mu.Unlock()
	turns := make([]Turn, len(m.turns))
	copy(turns, m.turns)
	return History{Summary: m.summary, Turns: turns}
}

// Append records one turn. Turns beyond the recent window are folded into
// the summary. The turn is always recorded; a summarizer failure is
// reported after the line summarizer has been used instead.
func (m *Memory) Append(ctx context.Context, input, output string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns = append(m.turns, Turn{Input: input, Output: output})
	m.total++
	m.lastActive = m.now()

	overflow := len(m.turns) - m.recentLimit
	if overflow <= 0 {
		return nil
	}
	folded := m.turns[:overflow]

	var summarizeErr error
	summary, err := m.summarizer.Summarize(ctx, m.summary, folded)
	if err != nil {
		summarizeErr = fmt.Errorf("summarize memory: %w", err)
		summary, _ = m.fallback.Summarize(ctx, m.summary, folded)
	}
	m.summary = summary
	m.turns = append([]Turn(nil), m.turns[overflow:]...)
	return summarizeErr
}

// Len is the number of turns recorded over the whole conversation.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

func (m *Memory) LastActive() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActive
}

func (m *Memory) touch() {
	m.mu.Lock()
	m.lastActive = m.now()
	m.mu.Unlock()
}
