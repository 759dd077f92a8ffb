// Package jsonscan locates a JSON object embedded in free-form text, as
// printed by scanners which put deprecation banners or warnings on the same
// stream as their report.
package jsonscan

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/CZERTAINLY/Gatekeeper/internal/model"
)

// Object returns the first balanced JSON object in b together with the
// offset at which it starts. The object starts at the first '{' and ends
// where the brace depth returns to zero. Braces inside string literals are
// not counted.
//
// ErrNoJSON is returned when b contains no '{', ErrUnbalanced when the input
// ends before the depth returns to zero.
func Object(b []byte) ([]byte, int, error) {
	start := bytes.IndexByte(b, '{')
	if start == -1 {
		return nil, -1, model.ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(b); i++ {
		c := b[i]
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
				return b[start : i+1], start, nil
			}
		}
	}
	return nil, start, fmt.Errorf("object starting at offset %d: %w", start, model.ErrUnbalanced)
}

// Unmarshal decodes b into v. When b as a whole is not valid JSON, the first
// embedded object is extracted with Object and decoded instead; embedded is
// then true.
func Unmarshal(b []byte, v any) (embedded bool, err error) {
	trimmed := bytes.TrimSpace(b)
	if json.Valid(trimmed) {
		return false, json.Unmarshal(trimmed, v)
	}
	obj, _, err := Object(b)
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(obj, v); err != nil {
		return true, fmt.Errorf("decoding embedded JSON: %w", err)
	}
	return true, nil
}
