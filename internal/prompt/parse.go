package prompt

import (
	"regexp"
	"strings"
)

// All regex extraction over model output lives here, behind tested helpers,
// instead of being scattered through prompt code.
var (
	thinkingRe = regexp.MustCompile(`(?s)<thinking>.*?</thinking>`)
	// An unterminated thinking block swallows the rest of the response.
	openThinkingRe = regexp.MustCompile(`(?s)<thinking>.*$`)
	fenceRe        = regexp.MustCompile("(?s)\\A```[a-zA-Z]*\\s*\n(.*)\n```\\s*\\z")
)

// StripReasoning removes <thinking> blocks from a model response. The
// operation is idempotent: stripping a stripped body is a no-op.
func StripReasoning(text string) string {
	text = thinkingRe.ReplaceAllString(text, "")
	text = openThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// StripFences unwraps a response whose whole body is a fenced code block.
// Fences inside the body are left alone.
func StripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(trimmed); m != nil {
		return strings.TrimSpace(m[1])
	}
	return trimmed
}

// StripLeadingHeading drops a first-line Markdown heading that repeats the
// section name; the assembler adds canonical headings itself.
func StripLeadingHeading(text, section string) string {
	trimmed := strings.TrimSpace(text)
	line, rest, found := strings.Cut(trimmed, "\n")
	if !found {
		line, rest = trimmed, ""
	}
	h := strings.TrimSpace(strings.TrimLeft(line, "#"))
	if strings.HasPrefix(line, "#") && strings.EqualFold(h, strings.TrimSpace(section)) {
		return strings.TrimSpace(rest)
	}
	return trimmed
}

// CleanBody applies the full response cleanup: reasoning blocks out, outer
// fences unwrapped, duplicate heading dropped.
func CleanBody(text, section string) string {
	return StripLeadingHeading(StripFences(StripReasoning(text)), section)
}
