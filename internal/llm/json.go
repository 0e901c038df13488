package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a response contains no JSON object.
var ErrNoJSON = errors.New("no JSON object found in response")

// StripFences removes markdown code fences around a model answer.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```JSON", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// ExtractObject finds the first balanced JSON object in text. Braces inside
// string literals are ignored. It returns "" when none is found.
func ExtractObject(text string) string {
	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
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
				return text[start : i+1]
			}
		}
	}

	return ""
}

// DecodeObject parses a model answer into v, tolerating code fences and
// surrounding commentary.
func DecodeObject(text string, v any) error {
	clean := StripFences(text)
	if err := json.Unmarshal([]byte(clean), v); err == nil {
		return nil
	}

	obj := ExtractObject(clean)
	if obj == "" {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("parse extracted json: %w", err)
	}
	return nil
}
