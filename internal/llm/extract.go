package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	backtickFence = regexp.MustCompile("(?is)```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	tildeFence    = regexp.MustCompile("(?is)~~~(?:json)?\\s*([\\s\\S]*?)\\s*~~~")
)

// StripCodeFence removes markdown code fences around a model response,
// returning the inner content when a fenced block is found.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if m := backtickFence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := tildeFence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// ExtractJSON locates and unmarshals the first JSON object in a model
// response into target. Models wrap JSON in fences, prose, or both; this
// tries a direct parse first, then a balanced-brace scan.
func ExtractJSON(text string, target any) error {
	cleaned := StripCodeFence(text)
	if cleaned == "" {
		return fmt.Errorf("empty response")
	}

	if err := json.Unmarshal([]byte(cleaned), target); err == nil {
		return nil
	}

	start := strings.IndexByte(cleaned, '{')
	if start < 0 {
		return fmt.Errorf("no JSON object in response")
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(cleaned); i++ {
		ch := cleaned[i]
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
				candidate := cleaned[start : i+1]
				if err := json.Unmarshal([]byte(candidate), target); err != nil {
					return fmt.Errorf("parse extracted JSON: %w", err)
				}
				return nil
			}
		}
	}
	return fmt.Errorf("unbalanced JSON object in response")
}
