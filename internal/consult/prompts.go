package consult

import (
	"strings"
	"time"

	"medassist/apps/backend/internal/session"
)

const chatResponseSchema = `While asking: {"question": "string", "diagnosis": null, "severity_score": null, "home_remedy": null}
When diagnosing: {"question": null, "diagnosis": {"condition": "string", "probability": 0.0, "genesis": "string", "recommendations": ["string"], "tests": ["string"], "medications": ["string"], "lifestyle_changes": ["string"]}, "severity_score": 0.0, "home_remedy": "string"}
When inconclusive: {"question": null, "diagnosis": null, "severity_score": null, "home_remedy": null}`

const dietResponseSchema = `While asking: {"question": "string", "diet_plan": null}
When the plan is ready: {"question": null, "diet_plan": "string"}`

func buildChatSystemPrompt(history session.History) string {
	lines := []string{
		"You are a medical assistant with knowledge of modern medicine and of home remedies, including Ayurveda.",
		"Help the patient understand their condition through a short interview, then give a diagnosis with modern and home treatment options.",
		"If name, age or gender is missing from the input and the conversation so far, ask for it first.",
		"Then ask what symptoms the patient has, and for each symptom ask about severity, duration and related symptoms.",
		"Ask exactly one question per reply and no more than eight questions in total.",
		"Once the symptoms are clear, diagnose: condition name, probability between 0 and 1, a short medical genesis, recommendations (tests, medications, lifestyle changes), and a regional Indian home remedy when one exists.",
		"End the home remedy with a short polite goodbye.",
		"If the condition stays unclear after several answers, return the inconclusive shape so the patient is referred to a qualified doctor.",
		"Do not discuss anything unrelated to the patient's condition or home remedies.",
		"Reply with one JSON object only, without markdown and without code fences.",
		"JSON shapes:",
		chatResponseSchema,
	}
	lines = appendHistorySummary(lines, history)
	return strings.Join(lines, "\n")
}

func buildDietSystemPrompt(history session.History, now time.Time) string {
	lines := []string{
		"You are a clinical dietitian preparing a diet plan for a patient whose condition has already been diagnosed.",
		"Do not ask again for details the conversation already contains, such as name, age or gender.",
		"Ask one question per reply, in this order, skipping anything already answered:",
		"1. vegetarian, non-vegetarian or vegan preference",
		"2. food allergies",
		"3. foods the patient dislikes",
		"4. medical or religious dietary restrictions",
		"5. plan duration in days (use 7 if the patient has no preference)",
		"6. any specific goal such as weight loss (assume none if the patient says no)",
		"When everything is known, return a day-by-day plan suited to the condition, using foods available in the current season.",
		"Today is " + now.Format("2006-01-02") + " and the season in India is " + indianSeason(now) + ".",
		"Reply with one JSON object only, without markdown and without code fences.",
		"JSON shapes:",
		dietResponseSchema,
	}
	lines = appendHistorySummary(lines, history)
	return strings.Join(lines, "\n")
}

func buildSummaryPrompt(existing string, turns []session.Turn) (string, string) {
	system := strings.Join([]string{
		"You keep the running summary of a patient consultation.",
		"Merge the new exchanges into the existing summary.",
		"Keep demographics, symptoms with severity and duration, answers already given, and any diagnosis or plan.",
		"Reply with plain text only, at most 12 short lines.",
	}, "\n")

	var user strings.Builder
	user.WriteString("Existing summary:\n")
	if trimmed := strings.TrimSpace(existing); trimmed != "" {
		user.WriteString(trimmed)
	} else {
		user.WriteString("(none)")
	}
	user.WriteString("\n\nNew exchanges:\n")
	for _, turn := range turns {
		user.WriteString("Patient: ")
		user.WriteString(strings.TrimSpace(turn.Input))
		user.WriteString("\nAssistant: ")
		user.WriteString(strings.TrimSpace(turn.Output))
		user.WriteString("\n")
	}
	return system, strings.TrimSpace(user.String())
}

func appendHistorySummary(lines []string, history session.History) []string {
	if summary := strings.TrimSpace(history.Summary); summary != "" {
		lines = append(lines, "Summary of earlier conversation:", summary)
	}
	return lines
}

// indianSeason maps a date to the Indian meteorological season.
func indianSeason(now time.Time) string {
	switch now.Month() {
	case time.December, time.January, time.February:
		return "winter"
	case time.March, time.April, time.May:
		return "summer"
	case time.June, time.July, time.August, time.September:
		return "monsoon"
	default:
		return "post-monsoon"
	}
}
