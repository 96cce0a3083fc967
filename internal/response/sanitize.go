package response

import (
	"regexp"
	"strings"
)

var (
	bulletPattern     = regexp.MustCompile(`(?m)^([ \t]*)\*[ \t]+`)
	escapedBreaks     = strings.NewReplacer(`\r\n`, "\n", `\n`, "\n", `\r`, "\n")
	lineBreaks        = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	emphasisMarkers   = strings.NewReplacer("*", "", "__", "", "~~", "")
	trailingLineSpace = " \t"
)

// Sanitize cleans every text field of r. It never fails and
// Sanitize(Sanitize(r)) == Sanitize(r).
func Sanitize(r Result) Result {
	out := Result{
		Question:   cleanOptional(r.Question),
		Diagnosis:  sanitizeDiagnosis(r.Diagnosis),
		HomeRemedy: cleanOptional(r.HomeRemedy),
		DietPlan:   cleanOptional(r.DietPlan),
	}
	if out.HasCompletion() {
		out.Question = nil
	}
	return out
}

func sanitizeDiagnosis(d *Diagnosis) *Diagnosis {
	if d == nil {
		return nil
	}
	out := Diagnosis{
		Condition:        cleanText(d.Condition),
		Probability:      d.Probability.normalized(),
		Genesis:          cleanText(d.Genesis),
		Recommendations:  cleanList(d.Recommendations),
		Tests:            cleanList(d.Tests),
		Medications:      cleanList(d.Medications),
		LifestyleChanges: cleanList(d.LifestyleChanges),
	}
	if d.SeverityScore != nil {
		severity := d.SeverityScore.normalized()
		out.SeverityScore = &severity
	}
	if out.isZero() {
		return nil
	}
	return &out
}

func cleanOptional(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := cleanText(*value)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

func cleanList(items TextList) TextList {
	if len(items) == 0 {
		return nil
	}
	out := make(TextList, 0, len(items))
	for _, item := range items {
		if cleaned := cleanText(item); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// cleanText runs cleanPass to a fixed point. Every changing pass either
// shortens the text or removes an asterisk, so the loop terminates.
func cleanText(value string) string {
	for {
		next := cleanPass(value)
		if next == value {
			return next
		}
		value = next
	}
}

func cleanPass(value string) string {
	text := escapedBreaks.Replace(value)
	text = lineBreaks.Replace(text)
	text = bulletPattern.ReplaceAllString(text, "$1- ")
	text = emphasisMarkers.Replace(text)

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimRight(line, trailingLineSpace)
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
