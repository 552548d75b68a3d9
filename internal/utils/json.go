package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Repair regexes, compiled once. They cover the syntax errors models emit
// most often; deeply malformed output still fails and the caller treats the
// response as claim-free.
var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

	// "value"\n"key": -> "value",\n"key":
	missingCommaRe = regexp.MustCompile(`(["\d]|true|false|null|[}\]])\s*\n\s*("[A-Za-z0-9_][^"]*"\s*:)`)

	// ,} -> }  and  ,] -> ]
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

	// {'key': -> {"key":
	singleQuoteKeyRe = regexp.MustCompile(`([{,]\s*)'([A-Za-z0-9_]+)'(\s*:)`)
)

// ExtractJSON locates the first JSON value inside an LLM response and
// unmarshals it into T. The search order is: first fenced code block that
// holds a JSON value, then the longest balanced substring starting at the
// first '{' or '['. Trailing prose after the value is ignored. A repair pass
// for common model mistakes (raw control characters, missing or trailing
// commas, single-quoted keys, truncated output) runs before giving up.
func ExtractJSON[T any](response string) (T, error) {
	var out T

	candidate := fencedJSON(response)
	if candidate == "" {
		candidate = balancedJSON(response)
	}
	if candidate == "" {
		return out, fmt.Errorf("no JSON value found in response")
	}

	if err := decodeValue(candidate, &out); err == nil {
		return out, nil
	}

	repaired := RepairJSON(candidate)
	if err := decodeValue(repaired, &out); err != nil {
		return out, fmt.Errorf("parse JSON: %w", err)
	}
	return out, nil
}

// decodeValue parses exactly one JSON value and ignores anything after it.
func decodeValue[T any](s string, out *T) error {
	dec := json.NewDecoder(strings.NewReader(s))
	return dec.Decode(out)
}

// fencedJSON returns the body of the first fenced block that contains a JSON
// value, trimmed to start at the value.
func fencedJSON(response string) string {
	for _, m := range fencedBlockRe.FindAllStringSubmatch(response, -1) {
		body := strings.TrimSpace(m[1])
		if idx := strings.IndexAny(body, "{["); idx >= 0 {
			return body[idx:]
		}
	}
	return ""
}

// balancedJSON returns the longest balanced JSON substring starting at the
// first '{' or '['. If the structure never closes (truncated output) the
// remainder of the string is returned so the repair pass can close it.
func balancedJSON(response string) string {
	start := strings.IndexAny(response, "{[")
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	end := -1
	for i := start; i < len(response); i++ {
		c := response[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{' || c == '[':
			depth++
		case c == '}' || c == ']':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
	}
	if end > start {
		return response[start:end]
	}
	return response[start:]
}

// RepairJSON fixes the common syntax errors in model-emitted JSON. It never
// guarantees validity; callers must still decode-check the result.
func RepairJSON(input string) string {
	s := escapeControlChars(input)
	s = missingCommaRe.ReplaceAllString(s, `$1, $2`)
	s = trailingCommaRe.ReplaceAllString(s, `$1`)
	s = singleQuoteKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	return closeTruncated(s)
}

// escapeControlChars escapes raw control characters that appear inside JSON
// strings. Models routinely emit literal newlines and tabs mid-string.
func escapeControlChars(input string) string {
	var b strings.Builder
	b.Grow(len(input))

	inString := false
	escaped := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		if c == '\\' && inString {
			b.WriteByte(c)
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			b.WriteByte(c)
			continue
		}
		if !inString || c >= 0x20 {
			b.WriteByte(c)
			continue
		}
		switch c {
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			fmt.Fprintf(&b, `\u%04x`, c)
		}
	}
	return b.String()
}

// closeTruncated closes an unterminated string and any structures still open
// when the output was cut, innermost first.
func closeTruncated(input string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{' || c == '[':
			stack = append(stack, c)
		case c == '}' || c == ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if inString {
		input += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			input += "}"
		} else {
			input += "]"
		}
	}
	return input
}
