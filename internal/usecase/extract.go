package usecase

import (
	"encoding/json"
	"strings"

	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
)

// ExtractJSON returns the first candidate span of JSONSpans, or ErrNoJSON.
func ExtractJSON(text string) (string, error) {
	spans := JSONSpans(text)
	if len(spans) == 0 {
		return "", domain.ErrNoJSON
	}
	return spans[0], nil
}

// JSONSpans lists, in reading order, every balanced JSON object or array in free
// text that parses, repaired of trailing commas where needed. Spans inside a
// fenced code block come first. Once a span parses, scanning resumes after its
// end, so nested values are never listed on their own.
func JSONSpans(text string) []string {
	var out []string
	if fenced, ok := fencedBlock(text); ok {
		out = scanJSON(fenced)
	}
	return append(out, scanJSON(text)...)
}

func scanJSON(s string) []string {
	var spans []string
	for start := strings.IndexAny(s, "{["); start >= 0; {
		resume := start + 1
		if end := matchBracket(s, start); end > start {
			span := s[start : end+1]
			if !json.Valid([]byte(span)) {
				span = RepairJSON(span)
			}
			if json.Valid([]byte(span)) {
				spans = append(spans, span)
				resume = end + 1
			}
		}
		next := strings.IndexAny(s[resume:], "{[")
		if next < 0 {
			break
		}
		start = resume + next
	}
	return spans
}

// matchBracket returns the index of the bracket closing the one at start, or -1
// when the span is unbalanced or mismatched. Brackets inside strings are ignored.
func matchBracket(s string, start int) int {
	stack := make([]byte, 0, 16)
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
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
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}

// fencedBlock returns the body of the first ``` fenced block, minus any
// language tag on the opening line.
func fencedBlock(text string) (string, bool) {
	open := strings.Index(text, "```")
	if open < 0 {
		return "", false
	}
	body := text[open+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		tag := strings.TrimSpace(body[:nl])
		if len(tag) < 20 && !strings.ContainsAny(tag, " {[") {
			body = body[nl+1:]
		}
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body), true
}

// RepairJSON removes commas that directly precede a closing bracket. String
// literals are copied untouched.
func RepairJSON(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	inString, escaped := false, false
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
			sb.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
		} else if c == ',' && closesNext(s[i+1:]) {
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func closesNext(rest string) bool {
	rest = strings.TrimLeft(rest, " \t\r\n")
	return rest != "" && (rest[0] == '}' || rest[0] == ']')
}
