package utils

import "strings"

// TruncationSentinel marks where compressed file content was cut.
const TruncationSentinel = "…[truncated]…"

// Truncate cuts s to at most maxLen runes, appending "..." when it shortens.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// TruncateMiddle keeps the first and last keep runes of s and replaces the
// middle with the truncation sentinel. Strings of 2*keep runes or fewer pass
// through unchanged.
func TruncateMiddle(s string, keep int) string {
	runes := []rune(s)
	if len(runes) <= 2*keep {
		return s
	}
	return string(runes[:keep]) + TruncationSentinel + string(runes[len(runes)-keep:])
}

// EstimateTokens approximates the token cost of a string as chars/4, the
// usual rough cut for English prose and source code.
func EstimateTokens(s string) int {
	return len(s) / 4
}

// FirstNonEmptyLine returns the first line of s that contains non-blank
// content, trimmed.
func FirstNonEmptyLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}
