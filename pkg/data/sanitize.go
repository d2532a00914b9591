package data

import (
	"errors"
)

var ErrNoJSON = errors.New("error sanitizing answer")

// SanitizeAnswer returns the first balanced JSON object found in a model answer.
// Braces inside string literals are ignored.
func SanitizeAnswer(ans string) (string, error) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, r := range ans {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return ans[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSON
}
