package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"medassist/apps/backend/internal/consult"
	"medassist/apps/backend/internal/response"
)

var (
	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	questionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	conditionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("135"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

func renderResult(w io.Writer, result response.Result) {
	if result.Question != nil {
		fmt.Fprintln(w, questionStyle.Render("assistant> "+*result.Question))
		return
	}
	if !result.HasCompletion() {
		fmt.Fprintln(w, questionStyle.Render("assistant> I could not reach a conclusive answer. Please consult a doctor."))
		return
	}

	if d := result.Diagnosis; d != nil {
		fmt.Fprintln(w, headerStyle.Render("Diagnosis"))
		fmt.Fprintf(w, "  %s %s\n", conditionStyle.Render(d.Condition), mutedStyle.Render(formatScore(d.Probability)))
		if d.Genesis != "" {
			fmt.Fprintf(w, "  %s\n", d.Genesis)
		}
		if d.SeverityScore != nil {
			fmt.Fprintf(w, "  severity %s\n", formatScore(*d.SeverityScore))
		}
		renderList(w, "Recommendations", d.Recommendations)
		renderList(w, "Tests", d.Tests)
		renderList(w, "Medications", d.Medications)
		renderList(w, "Lifestyle changes", d.LifestyleChanges)
	}
	renderBlock(w, "Home remedy", result.HomeRemedy)
	renderBlock(w, "Diet plan", result.DietPlan)
}

func renderList(w io.Writer, title string, items response.TextList) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(w, headerStyle.Render(title))
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
}

func renderBlock(w io.Writer, title string, text *string) {
	if text == nil {
		return
	}
	fmt.Fprintln(w, headerStyle.Render(title))
	for _, line := range strings.Split(*text, "\n") {
		fmt.Fprintf(w, "  %s\n", line)
	}
}

func formatScore(score response.Score) string {
	return fmt.Sprintf("%.0f%%", float64(score)*100)
}

func renderArchivedTurn(w io.Writer, turn consult.ArchivedTurn) {
	status := turn.Pipeline
	if turn.Closed {
		status += ", closed"
	}
	if turn.Fallback {
		status += ", fallback"
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("%s  %s  (%s, %d tokens)",
		turn.CreatedAt.Local().Format("2006-01-02 15:04:05"), status, turn.Model, turn.Usage.TotalTokens)))
	fmt.Fprintln(w, promptStyle.Render("you> ")+turn.Input)

	result, err := response.Parse(turn.Output)
	if err != nil {
		fmt.Fprintln(w, questionStyle.Render("assistant> "+turn.Output))
		return
	}
	renderResult(w, result)
}
