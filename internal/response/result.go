package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Result is the structured answer of one consultation turn. A turn either
// asks a follow-up Question or carries the completion fields, never both.
// All four fields nil is the inconclusive terminal answer.
type Result struct {
	Question   *string    `json:"question" yaml:"question"`
	Diagnosis  *Diagnosis `json:"diagnosis" yaml:"diagnosis"`
	HomeRemedy *string    `json:"home_remedy" yaml:"home_remedy"`
	DietPlan   *string    `json:"diet_plan" yaml:"diet_plan"`
}

type Diagnosis struct {
	Condition        string   `json:"condition" yaml:"condition"`
	Probability      Score    `json:"probability" yaml:"probability"`
	Genesis          string   `json:"genesis,omitempty" yaml:"genesis,omitempty"`
	Recommendations  TextList `json:"recommendations" yaml:"recommendations"`
	Tests            TextList `json:"tests,omitempty" yaml:"tests,omitempty"`
	Medications      TextList `json:"medications,omitempty" yaml:"medications,omitempty"`
	LifestyleChanges TextList `json:"lifestyle_changes,omitempty" yaml:"lifestyle_changes,omitempty"`
	SeverityScore    *Score   `json:"severity_score,omitempty" yaml:"severity_score,omitempty"`
}

// Fallback is the result substituted when the model output cannot be
// recovered; it keeps the conversation open.
func Fallback(message string) Result {
	question := message
	return Result{Question: &question}
}

// Terminal reports whether the turn ends the conversation.
func (r Result) Terminal() bool {
	return r.Question == nil
}

func (r Result) HasCompletion() bool {
	return r.Diagnosis != nil || r.HomeRemedy != nil || r.DietPlan != nil
}

// Compact is the JSON form stored in conversation memory.
func (r Result) Compact() string {
	encoded, err := json.Marshal(r)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

func (d *Diagnosis) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var condition string
		if err := json.Unmarshal(trimmed, &condition); err != nil {
			return err
		}
		*d = Diagnosis{Condition: condition}
		return nil
	}
	type plain Diagnosis
	var decoded plain
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return err
	}
	*d = Diagnosis(decoded)
	return nil
}

func (d Diagnosis) isZero() bool {
	return strings.TrimSpace(d.Condition) == "" &&
		len(d.Recommendations) == 0 &&
		len(d.Tests) == 0 &&
		len(d.Medications) == 0 &&
		len(d.LifestyleChanges) == 0
}

// Score is a confidence value in [0,1]. It decodes from numbers and from
// strings such as "0.7" or "70%".
type Score float64

func (s *Score) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*s = 0
		return nil
	}
	if !strings.HasPrefix(trimmed, `"`) {
		var value float64
		if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
			return err
		}
		*s = Score(value)
		return nil
	}

	var raw string
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	percent := strings.HasSuffix(raw, "%")
	raw = strings.TrimSpace(strings.TrimSuffix(raw, "%"))
	if raw == "" {
		*s = 0
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid score %q: %w", raw, err)
	}
	if percent {
		value /= 100
	}
	*s = Score(value)
	return nil
}

func (s Score) normalized() Score {
	value := float64(s)
	switch {
	case math.IsNaN(value):
		return 0
	case value > 1 && value <= 100:
		value /= 100
	}
	return Score(math.Max(0, math.Min(1, value)))
}

// TextList decodes from a JSON list or from a single string.
type TextList []string

func (l *TextList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*l = nil
	case []any:
		items := make(TextList, 0, len(v))
		for _, item := range v {
			if text := flattenText(item); strings.TrimSpace(text) != "" {
				items = append(items, text)
			}
		}
		*l = items
	default:
		if text := flattenText(v); strings.TrimSpace(text) != "" {
			*l = TextList{text}
		} else {
			*l = nil
		}
	}
	return nil
}

// Decode maps an extracted object onto the known result fields. Unknown
// keys are dropped.
func Decode(obj map[string]any) (Result, error) {
	result := Result{
		Question:   optionalText(obj["question"]),
		HomeRemedy: optionalText(obj["home_remedy"]),
		DietPlan:   optionalText(obj["diet_plan"]),
	}

	rawDiagnosis, ok := obj["diagnosis"]
	if !ok || rawDiagnosis == nil {
		return result, nil
	}
	encoded, err := json.Marshal(rawDiagnosis)
	if err != nil {
		return Result{}, &ExtractionError{Reason: ReasonMalformed, Err: err}
	}
	var diagnosis Diagnosis
	if err := json.Unmarshal(encoded, &diagnosis); err != nil {
		return Result{}, &ExtractionError{Reason: ReasonMalformed, Err: fmt.Errorf("diagnosis: %w", err)}
	}
	if diagnosis.SeverityScore == nil {
		if severity, ok := scoreValue(obj["severity_score"]); ok {
			diagnosis.SeverityScore = &severity
		}
	}
	result.Diagnosis = &diagnosis
	return result, nil
}

func scoreValue(raw any) (Score, bool) {
	if raw == nil {
		return 0, false
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return 0, false
	}
	var score Score
	if err := json.Unmarshal(encoded, &score); err != nil {
		return 0, false
	}
	return score, true
}

func optionalText(raw any) *string {
	if raw == nil {
		return nil
	}
	text := flattenText(raw)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return &text
}

// flattenText renders loosely shaped model values as plain text: lists
// become one line per item, objects become "key: value" lines.
func flattenText(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case json.Number:
		return v.String()
	case []any:
		lines := make([]string, 0, len(v))
		for _, item := range v {
			if text := strings.TrimSpace(flattenText(item)); text != "" {
				lines = append(lines, text)
			}
		}
		return strings.Join(lines, "\n")
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		lines := make([]string, 0, len(keys))
		for _, key := range keys {
			if text := strings.TrimSpace(flattenText(v[key])); text != "" {
				lines = append(lines, key+": "+text)
			}
		}
		return strings.Join(lines, "\n")
	default:
		return fmt.Sprintf("%v", v)
	}
}
