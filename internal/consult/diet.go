package consult

import (
	"context"
	"strings"

	"medassist/apps/backend/internal/response"
	"medassist/apps/backend/internal/session"
)

type DietRequest struct {
	SessionID string
	Condition string
	Message   string
}

// Diet runs one turn of diet plan elicitation for an already diagnosed
// condition. The session memory of the interview is reused so answered
// questions are not asked again.
func (s *Service) Diet(ctx context.Context, req DietRequest) (Outcome, error) {
	condition := strings.TrimSpace(req.Condition)
	if condition == "" {
		return Outcome{}, missingConditionError()
	}

	input := "Diagnosed condition: " + condition
	if message := strings.TrimSpace(req.Message); message != "" {
		input += "\n" + message
	}
	now := s.now()

	return s.runTurn(ctx, turnSpec{
		pipeline:  PipelineDiet,
		sessionID: ResolveSessionID(req.SessionID),
		input:     input,
		memory: func(id string) *session.Memory {
			if memory, ok := s.store.Lookup(id); ok {
				return memory
			}
			// The interview closes its session on diagnosis, so the plan
			// usually starts from a fresh memory.
			memory, _ := s.store.GetOrCreate(id)
			s.logger.Info("started diet session memory", "session_id", id)
			return memory
		},
		system: func(history session.History) string {
			return buildDietSystemPrompt(history, now)
		},
		project: dietFields,
	})
}

func dietFields(result response.Result) response.Result {
	result.Diagnosis = nil
	result.HomeRemedy = nil
	return result
}
