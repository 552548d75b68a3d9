package utils

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		maxLen int
		want   string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"long string gets ellipsis", "hello world", 8, "hello..."},
		{"tiny budget", "hello", 2, "he"},
		{"unicode safe", "héllo wörld", 8, "héllo..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truncate(tt.in, tt.maxLen); got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateMiddle(t *testing.T) {
	short := strings.Repeat("a", 1000)
	if got := TruncateMiddle(short, 500); got != short {
		t.Error("content at 2*keep should pass through unchanged")
	}

	long := strings.Repeat("a", 500) + strings.Repeat("b", 2000) + strings.Repeat("c", 500)
	got := TruncateMiddle(long, 500)
	if !strings.Contains(got, TruncationSentinel) {
		t.Error("truncated content must carry the sentinel")
	}
	if !strings.HasPrefix(got, strings.Repeat("a", 500)) {
		t.Error("first 500 runes must be preserved")
	}
	if !strings.HasSuffix(got, strings.Repeat("c", 500)) {
		t.Error("last 500 runes must be preserved")
	}
	if len([]rune(got)) != 1000+len([]rune(TruncationSentinel)) {
		t.Errorf("truncated length = %d runes", len([]rune(got)))
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(strings.Repeat("x", 400)); got != 100 {
		t.Errorf("EstimateTokens = %d, want 100", got)
	}
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("EstimateTokens empty = %d, want 0", got)
	}
}

func TestFirstNonEmptyLine(t *testing.T) {
	if got := FirstNonEmptyLine("\n\n  \n  first real line\nsecond"); got != "first real line" {
		t.Errorf("FirstNonEmptyLine = %q", got)
	}
	if got := FirstNonEmptyLine(""); got != "" {
		t.Errorf("FirstNonEmptyLine empty = %q", got)
	}
}
