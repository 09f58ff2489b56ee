// Package recovery repairs and parses model output that is expected to
// contain a JSON array. Remote generation is frequently cut off
// mid-object by token limits; rather than failing the whole batch, the
// repair sacrifices only the incomplete trailing element and keeps
// everything parseable before it.
package recovery

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MalformedResponseError indicates that the raw response could not be
// repaired into syntactically valid JSON of the expected shape.
type MalformedResponseError struct {
	Repaired string // the text as it looked after the repair attempt
	Err      error  // the underlying parse error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %v (repaired text: %s)", e.Err, e.Repaired)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// ParseArray parses raw model output into a slice of T, tolerating
// markdown fencing, trailing prose after the array, and truncation. It
// returns a *MalformedResponseError if repair cannot produce valid JSON.
func ParseArray[T any](raw string) ([]T, error) {
	text := stripFence(strings.TrimSpace(raw))

	var out []T
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return out, nil
	}

	// The last ']' byte may sit inside a quoted string, so trimming the
	// tail is a second attempt rather than a preprocessing step.
	if trimmed := trimAfterArray(text); trimmed != text {
		if err := json.Unmarshal([]byte(trimmed), &out); err == nil {
			return out, nil
		}
	}

	repaired := repair(text)
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return nil, &MalformedResponseError{Repaired: repaired, Err: err}
	}
	return out, nil
}

// stripFence removes a leading/trailing markdown code fence, optionally
// tagged "json".
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:] // drop the fence tag line (e.g. "json")
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// trimAfterArray discards any commentary the model appended after the
// closing bracket of the array.
func trimAfterArray(s string) string {
	if i := strings.LastIndexByte(s, ']'); i >= 0 && i < len(s)-1 {
		return s[:i+1]
	}
	return s
}

// repair runs a single left-to-right scan tracking string state and
// bracket/brace depth, then closes whatever the model left open. If a
// partial trailing element exists, the text is truncated to the end of
// the last fully closed element of the top-level array first.
func repair(s string) string {
	inString := false
	escaped := false
	bracketDepth := 0
	braceDepth := 0
	lastComplete := -1 // index just past the last fully closed top-level element

	for i := 0; i < len(s); i++ {
		c := s[i]
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
		case '[':
			bracketDepth++
		case ']':
			bracketDepth--
		case '{':
			braceDepth++
		case '}':
			braceDepth--
			if braceDepth == 0 && bracketDepth == 1 {
				lastComplete = i + 1
			}
		}
	}

	if bracketDepth == 0 && braceDepth == 0 && !inString {
		return s // balanced; the parse failure has some other cause
	}

	if lastComplete >= 0 {
		// Drop the dangling partial element; the array is the only
		// thing still open at that point.
		return s[:lastComplete] + "]"
	}

	var b strings.Builder
	b.WriteString(s)
	for ; braceDepth > 0; braceDepth-- {
		b.WriteByte('}')
	}
	for ; bracketDepth > 0; bracketDepth-- {
		b.WriteByte(']')
	}
	return b.String()
}
