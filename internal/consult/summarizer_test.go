package consult

import (
	"context"
	"errors"
	"strings"
	"testing"

	"medassist/apps/backend/internal/ai"
	"medassist/apps/backend/internal/config"
	"medassist/apps/backend/internal/session"
)

func TestModelSummarizerMergesTurns(t *testing.T) {
	client := &scriptedClient{answers: []string{"Asha, 34, female. Fever for two days."}}
	summarizer := ModelSummarizer{Client: client, MaxChars: 200}

	summary, err := summarizer.Summarize(context.Background(), "Asha, 34, female.", []session.Turn{
		{Input: "fever", Output: `{"question":"since when?"}`},
		{Input: "two days", Output: `{"question":"any cough?"}`},
	})
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if summary != "Asha, 34, female. Fever for two days." {
		t.Fatalf("unexpected summary %q", summary)
	}

	req := client.lastRequest(t)
	if req.Task != ai.TaskSummary || req.JSON {
		t.Fatalf("unexpected summary request: %+v", req)
	}
	for _, want := range []string{"Asha, 34, female.", "Patient: fever", "Patient: two days"} {
		if !strings.Contains(req.UserPrompt, want) {
			t.Fatalf("expected prompt to contain %q, got %q", want, req.UserPrompt)
		}
	}
}

func TestModelSummarizerKeepsNewestText(t *testing.T) {
	client := &scriptedClient{answers: []string{strings.Repeat("a", 50) + "TAIL"}}
	summary, err := ModelSummarizer{Client: client, MaxChars: 10}.Summarize(context.Background(), "", []session.Turn{{Input: "x"}})
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if summary != "aaaaaaTAIL" {
		t.Fatalf("expected tail of summary, got %q", summary)
	}
}

func TestModelSummarizerFailureFallsBackInMemory(t *testing.T) {
	client := &scriptedClient{err: errors.New("quota exceeded")}
	store := session.NewStore(session.Options{RecentTurns: 1, Summarizer: ModelSummarizer{Client: client}})
	memory, _ := store.GetOrCreate("m1")
	ctx := context.Background()

	_ = memory.Append(ctx, "fever", "{}")
	if err := memory.Append(ctx, "two days", "{}"); err == nil {
		t.Fatalf("expected summarizer failure to surface")
	}
	if summary := memory.History().Summary; !strings.Contains(summary, "- Patient: fever") {
		t.Fatalf("expected line summary fallback, got %q", summary)
	}
}

func TestSummarizerForConfig(t *testing.T) {
	cfg := config.Config{MemorySummarizer: config.SummarizerLines, MemorySummaryCharMax: 500}
	if got, ok := SummarizerFor(cfg, &scriptedClient{}).(session.LineSummarizer); !ok || got.MaxChars != 500 {
		t.Fatalf("expected line summarizer, got %#v", got)
	}

	cfg.MemorySummarizer = config.SummarizerModel
	if _, ok := SummarizerFor(cfg, &scriptedClient{}).(ModelSummarizer); !ok {
		t.Fatalf("expected model summarizer")
	}
	if _, ok := SummarizerFor(cfg, nil).(session.LineSummarizer); !ok {
		t.Fatalf("expected line summarizer without a client")
	}
}
