package ai

import (
	"context"
	"strings"
)

// MockClient answers without a network call. It asks follow-up questions
// for the first turns of a conversation and then completes it.
type MockClient struct {
	Model string
	// Turns is the number of follow-up questions asked before completing.
	Turns int
}

func (m MockClient) Query(_ context.Context, req Request) (Response, error) {
	prompt := strings.TrimSpace(req.UserPrompt)
	lowered := strings.ToLower(prompt)
	turns := m.Turns
	if turns <= 0 {
		turns = 2
	}
	asked := 0
	for _, turn := range req.Conversation {
		if role, ok := normalizedRole(turn.Role); ok && role == RoleAssistant {
			asked++
		}
	}

	var answer string
	switch req.Task {
	case TaskSummary:
		answer = "Patient summary: " + truncateRunesForMock(strings.Join(strings.Fields(prompt), " "), 400)
	case TaskDiet:
		if asked < turns {
			answer = `{"question": "Do you follow a vegetarian or non-vegetarian diet, and do you have any food allergies?", "diet_plan": null}`
		} else {
			answer = "Here is the plan:\n```json\n" +
				`{"question": null, "diet_plan": "**Day 1**` + "\n" + `* Breakfast: oats porridge` + "\n" + `* Lunch: moong dal khichdi` + "\n" + `* Dinner: vegetable soup"}` +
				"\n```"
		}
	default:
		switch {
		case prompt == "":
			answer = `{"question": "Could you describe your symptoms?"}`
		case asked < turns && !strings.Contains(lowered, "diagnose now"):
			answer = `{"question": "How long have you had these symptoms, and have you measured your temperature?", "diagnosis": null, "home_remedy": null}`
		default:
			answer = "```json\n" + `{"question": null, "diagnosis": {"condition": "Viral fever", "probability": 0.7, "genesis": "Common viral infection", "recommendations": ["Rest", "Stay hydrated"]}, "severity_score": 0.3, "home_remedy": "Tulsi tea` + "\n" + `Steam inhalation"}` + "\n```"
		}
	}

	model := requestModel(req, m.Model)
	if model == "" {
		model = "mock"
	}
	return Response{
		Answer: answer,
		Model:  model,
		Usage: Usage{
			PromptTokens:     120,
			CompletionTokens: 80,
			TotalTokens:      200,
		},
	}, nil
}

func truncateRunesForMock(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max]) + "..."
}
