package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrExtraction = errors.New("response extraction failed")

const (
	ReasonEmpty          = "empty output"
	ReasonNoOpeningBrace = "no opening brace"
	ReasonUnbalanced     = "unbalanced braces"
	ReasonMalformed      = "malformed object"
	ReasonNotObject      = "not an object"
)

// maxBraceCandidates bounds how many opening braces the balanced scan tries.
const maxBraceCandidates = 8

var jsonFencePattern = regexp.MustCompile("(?is)```json[ \t]*\\r?\\n?(.*?)```")

// ExtractionError reports why no object could be recovered from model text.
// It matches ErrExtraction with errors.Is.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", ErrExtraction, e.Reason, e.Err)
	}
	return fmt.Sprintf("%v: %s", ErrExtraction, e.Reason)
}

func (e *ExtractionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExtraction}
	}
	return []error{ErrExtraction, e.Err}
}

// Parse recovers, decodes and sanitizes a result from raw model text.
func Parse(raw string) (Result, error) {
	obj, err := Extract(raw)
	if err != nil {
		return Result{}, err
	}
	result, err := Decode(obj)
	if err != nil {
		return Result{}, err
	}
	return Sanitize(result), nil
}

// Extract recovers one JSON object from raw model text. It tries the whole
// text, then a ```json fenced block, then the first balanced {...} span.
// Every candidate has its string literals repaired before parsing.
func Extract(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, &ExtractionError{Reason: ReasonEmpty}
	}

	if obj, err := parseObject(text); err == nil {
		return obj, nil
	}
	if match := jsonFencePattern.FindStringSubmatch(text); match != nil {
		if obj, err := parseObject(match[1]); err == nil {
			return obj, nil
		}
	}
	return extractBalanced(text)
}

func extractBalanced(text string) (map[string]any, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, &ExtractionError{Reason: ReasonNoOpeningBrace}
	}

	var firstErr error
	for attempt := 0; attempt < maxBraceCandidates && start >= 0; attempt++ {
		candidate, err := balancedObject(text[start:])
		if err == nil {
			var obj map[string]any
			obj, err = parseObject(candidate)
			if err == nil {
				return obj, nil
			}
		}
		if firstErr == nil {
			firstErr = err
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return nil, firstErr
}

// balancedObject returns the prefix of text (which starts with '{') up to
// the brace that closes it. Braces inside string literals are not counted.
func balancedObject(text string) (string, error) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[:i+1], nil
			}
		}
	}
	return "", &ExtractionError{Reason: ReasonUnbalanced}
}

func parseObject(candidate string) (map[string]any, error) {
	repaired := RepairStrings(strings.TrimSpace(candidate))
	var value any
	if err := json.Unmarshal([]byte(repaired), &value); err != nil {
		return nil, &ExtractionError{Reason: ReasonMalformed, Err: err}
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, &ExtractionError{Reason: ReasonNotObject}
	}
	return obj, nil
}

// RepairStrings escapes raw control characters (line breaks, tabs) that
// appear inside quoted JSON strings. Text outside string literals is left
// untouched.
func RepairStrings(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 16)
	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if !inString {
			if ch == '"' {
				inString = true
			}
			b.WriteByte(ch)
			continue
		}
		switch {
		case escaped:
			escaped = false
			if ch == '\n' {
				b.WriteByte('n')
				continue
			}
			b.WriteByte(ch)
		case ch == '\\':
			escaped = true
			b.WriteByte(ch)
		case ch == '"':
			inString = false
			b.WriteByte(ch)
		case ch == '\n':
			b.WriteString(`\n`)
		case ch == '\r':
			b.WriteString(`\r`)
		case ch == '\t':
			b.WriteString(`\t`)
		case ch < 0x20:
			fmt.Fprintf(&b, `\u%04x`, ch)
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}
