package evaluation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// decodeObject pulls the first top-level JSON object out of a free-form
// oracle response and decodes it, repairing minor syntax damage on the way.
func decodeObject(raw string) (map[string]any, error) {
	object, ok := extractObject(stripFences(raw))
	if !ok {
		return nil, errNoObject
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(object), &data); err == nil {
		return data, nil
	}

	repaired, err := jsonrepair.JSONRepair(object)
	if err != nil {
		return nil, fmt.Errorf("repair oracle json: %w", err)
	}

	if err := json.Unmarshal([]byte(repaired), &data); err != nil {
		return nil, fmt.Errorf("parse oracle json: %w", err)
	}
	if data == nil {
		return nil, errNoObject
	}

	return data, nil
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if start := strings.Index(raw, "```"); start != -1 {
		body := raw[start+3:]
		body = strings.TrimPrefix(body, "json")
		body = strings.TrimPrefix(body, "JSON")
		if end := strings.Index(body, "```"); end != -1 {
			body = body[:end]
		}
		if strings.Contains(body, "{") {
			raw = body
		}
	}
	return strings.TrimSpace(raw)
}

// extractObject returns the first balanced {...} block. Braces inside JSON
// strings are ignored. An unterminated object is returned up to the end of
// the input so the repair step can close it.
func extractObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		c := raw[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}

	return raw[start:], true
}
