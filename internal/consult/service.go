package consult

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"medassist/apps/backend/internal/ai"
	"medassist/apps/backend/internal/response"
	"medassist/apps/backend/internal/session"
)

const DefaultRetryMessage = "Sorry, something went wrong while processing your input."

const (
	PipelineChat = "chat"
	PipelineDiet = "diet"
)

// ArchivedTurn is one completed turn as written to the consultation archive.
type ArchivedTurn struct {
	SessionID string
	Pipeline  string
	Input     string
	Output    string
	Closed    bool
	Fallback  bool
	Model     string
	Usage     ai.Usage
	CreatedAt time.Time
}

// Archive records completed turns. It is write-only; sessions are never
// restored from it.
type Archive interface {
	RecordTurn(ctx context.Context, turn ArchivedTurn) error
}

type nopArchive struct{}

func (nopArchive) RecordTurn(context.Context, ArchivedTurn) error { return nil }

type Options struct {
	Store        *session.Store
	Client       ai.Client
	Reader       DocumentReader
	Archive      Archive
	Logger       *slog.Logger
	Now          func() time.Time
	RetryMessage string
}

// Service runs the chat and diet pipelines over a shared session store.
type Service struct {
	store        *session.Store
	client       ai.Client
	reader       DocumentReader
	archive      Archive
	logger       *slog.Logger
	now          func() time.Time
	retryMessage string
}

func NewService(opts Options) *Service {
	if opts.Store == nil {
		opts.Store = session.NewStore(session.Options{})
	}
	if opts.Archive == nil {
		opts.Archive = nopArchive{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if strings.TrimSpace(opts.RetryMessage) == "" {
		opts.RetryMessage = DefaultRetryMessage
	}
	return &Service{
		store:        opts.Store,
		client:       opts.Client,
		reader:       opts.Reader,
		archive:      opts.Archive,
		logger:       opts.Logger,
		now:          opts.Now,
		retryMessage: opts.RetryMessage,
	}
}

func (s *Service) Store() *session.Store {
	return s.store
}

// Outcome is the result of one pipeline turn.
type Outcome struct {
	SessionID string
	Result    response.Result
	Closed    bool
	Fallback  bool
	Model     string
	Usage     ai.Usage
}

type turnSpec struct {
	pipeline  string
	sessionID string
	input     string
	memory    func(id string) *session.Memory
	system    func(history session.History) string
	project   func(result response.Result) response.Result
}

// runTurn executes steps shared by both pipelines under the session lock:
// query the model with the memory as context, recover the structured
// result, commit the turn to memory and close the session when final.
func (s *Service) runTurn(ctx context.Context, spec turnSpec) (Outcome, error) {
	logger := s.logger.With("session_id", spec.sessionID, "pipeline", spec.pipeline)

	unlock := s.store.Lock(spec.sessionID)
	defer unlock()

	memory := spec.memory(spec.sessionID)
	history := memory.History()

	resp, err := s.client.Query(ctx, ai.Request{
		Task:         spec.pipeline,
		SystemPrompt: spec.system(history),
		Conversation: conversationTurns(history.Turns),
		UserPrompt:   spec.input,
		JSON:         true,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("query model: %w", err)
	}

	result, err := recoverResult(resp.Answer, spec.project)
	fallback := false
	if err != nil {
		logger.Warn("model output could not be parsed", "error", err, "raw", truncateForLog(resp.Answer, 600))
		result = response.Fallback(s.retryMessage)
		fallback = true
	}

	// The turn is committed even when the caller has gone away.
	commitCtx := context.WithoutCancel(ctx)
	output := result.Compact()
	if err := memory.Append(commitCtx, spec.input, output); err != nil {
		logger.Warn("memory summarizer failed; used line summary", "error", err)
	}

	closed := false
	if result.Terminal() {
		s.store.Close(spec.sessionID)
		closed = true
	}

	if err := s.archive.RecordTurn(commitCtx, ArchivedTurn{
		SessionID: spec.sessionID,
		Pipeline:  spec.pipeline,
		Input:     spec.input,
		Output:    output,
		Closed:    closed,
		Fallback:  fallback,
		Model:     resp.Model,
		Usage:     resp.Usage,
		CreatedAt: s.now().UTC(),
	}); err != nil {
		logger.Error("archive turn failed", "error", err)
	}

	logger.Info("consultation turn completed",
		"closed", closed,
		"fallback", fallback,
		"model", resp.Model,
		"total_tokens", resp.Usage.TotalTokens,
	)
	return Outcome{
		SessionID: spec.sessionID,
		Result:    result,
		Closed:    closed,
		Fallback:  fallback,
		Model:     resp.Model,
		Usage:     resp.Usage,
	}, nil
}

// recoverResult runs extraction and decoding, keeps only the fields the
// pipeline surfaces and sanitizes what is left.
func recoverResult(raw string, project func(response.Result) response.Result) (response.Result, error) {
	obj, err := response.Extract(raw)
	if err != nil {
		return response.Result{}, err
	}
	result, err := response.Decode(obj)
	if err != nil {
		return response.Result{}, err
	}
	if project != nil {
		result = project(result)
	}
	return response.Sanitize(result), nil
}

func conversationTurns(turns []session.Turn) []ai.ChatTurn {
	conversation := make([]ai.ChatTurn, 0, len(turns)*2)
	for _, turn := range turns {
		conversation = append(conversation,
			ai.ChatTurn{Role: ai.RoleUser, Content: turn.Input},
			ai.ChatTurn{Role: ai.RoleAssistant, Content: turn.Output},
		)
	}
	return conversation
}

// ResolveSessionID returns the caller's session id, or a new random one
// when the caller did not send any.
func ResolveSessionID(id string) string {
	if trimmed := strings.TrimSpace(id); trimmed != "" {
		return trimmed
	}
	return uuid.NewString()
}

func truncateForLog(value string, limit int) string {
	trimmed := strings.TrimSpace(value)
	if limit <= 0 || len(trimmed) <= limit {
		return trimmed
	}
	return trimmed[:limit] + "...(truncated)"
}
