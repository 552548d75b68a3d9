package prompt

import "testing"

func TestStripReasoning(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"removes block",
			"<thinking>checking the graph</thinking>\nThe system validates input.",
			"The system validates input.",
		},
		{
			"removes multiple blocks",
			"<thinking>a</thinking>body<thinking>b</thinking>",
			"body",
		},
		{
			"unterminated block swallows tail",
			"prefix <thinking>never closed",
			"prefix",
		},
		{
			"no block is untouched",
			"plain text",
			"plain text",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripReasoning(tt.in)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			// Idempotence.
			if again := StripReasoning(got); again != got {
				t.Errorf("not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"whole body fenced", "```markdown\nThe section body.\n```", "The section body."},
		{"bare fence", "```\ncontent\n```", "content"},
		{"inner fence kept", "text\n```go\ncode\n```\nmore", "text\n```go\ncode\n```\nmore"},
		{"no fence", "plain", "plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStripLeadingHeading(t *testing.T) {
	got := StripLeadingHeading("## Executive Summary\nThe body.", "Executive Summary")
	if got != "The body." {
		t.Errorf("got %q", got)
	}
	// A different heading stays.
	got = StripLeadingHeading("## Overview\nThe body.", "Executive Summary")
	if got != "## Overview\nThe body." {
		t.Errorf("unrelated heading removed: %q", got)
	}
}

func TestCleanBodyComposed(t *testing.T) {
	in := "<thinking>reason</thinking>\n```markdown\n## Business Context\nIt does X.\n```"
	got := CleanBody(in, "Business Context")
	if got != "It does X." {
		t.Errorf("got %q", got)
	}
	if again := CleanBody(got, "Business Context"); again != got {
		t.Errorf("not idempotent: %q", again)
	}
}
