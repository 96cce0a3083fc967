package consult

import (
	"context"

	"medassist/apps/backend/internal/response"
	"medassist/apps/backend/internal/session"
)

type ChatRequest struct {
	SessionID string
	Message   string
	Upload    *Upload
}

// Chat runs one turn of the diagnostic interview. The session is closed
// once the model stops asking questions.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (Outcome, error) {
	input, err := Normalize(ctx, s.reader, req.Upload, req.Message)
	if err != nil {
		return Outcome{}, err
	}

	return s.runTurn(ctx, turnSpec{
		pipeline:  PipelineChat,
		sessionID: ResolveSessionID(req.SessionID),
		input:     input,
		memory: func(id string) *session.Memory {
			memory, created := s.store.GetOrCreate(id)
			if created {
				s.logger.Info("created session memory", "session_id", id)
			}
			return memory
		},
		system:  buildChatSystemPrompt,
		project: chatFields,
	})
}

func chatFields(result response.Result) response.Result {
	result.DietPlan = nil
	return result
}
