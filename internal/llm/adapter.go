package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"brdgen/internal/skills"
)

// ErrCompletionFailed wraps any completion failure surfaced when fallback
// mode is off.
var ErrCompletionFailed = errors.New("llm completion failed")

// sectionLineRe extracts the section name a generation prompt targets, so
// fallback text can carry the right heading.
var sectionLineRe = regexp.MustCompile(`(?m)^#+\s*Section:\s*(.+)$`)

// Adapter is the single completion surface the pipeline uses: one call, one
// timeout, deterministic fallback. Safe for concurrent use.
type Adapter struct {
	chatModel model.BaseChatModel
	timeout   time.Duration
	fallback  bool
	skills    *skills.Registry

	mu        sync.Mutex
	toolTrace []EventContent
}

// NewAdapter wraps a chat model with the per-call timeout and fallback
// policy from cfg. Skill directories are loaded once here; a broken skill
// file leaves the partial registry and must not break completions.
func NewAdapter(chatModel model.BaseChatModel, cfg Config) *Adapter {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	a := &Adapter{
		chatModel: chatModel,
		timeout:   timeout,
		fallback:  cfg.FallbackMode,
	}
	if len(cfg.SkillDirs) > 0 {
		a.skills, _ = skills.NewRegistry(cfg.SkillDirs, false)
	}
	return a
}

// Complete sends one prompt and returns the assistant text. On failure or
// timeout with fallback mode on, it returns deterministic canned Markdown
// and a nil error so the generation loop keeps moving; with fallback off it
// returns the wrapped error.
func (a *Adapter) Complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.complete(callCtx, prompt)
	if err == nil {
		return text, nil
	}
	if a.fallback {
		return FallbackText(prompt), nil
	}
	return "", fmt.Errorf("%w: %v", ErrCompletionFailed, err)
}

func (a *Adapter) complete(ctx context.Context, prompt string) (string, error) {
	msgs := a.messages(prompt)

	// Prefer streaming so tool-use events are observable; models that do
	// not stream fall through to a blocking call.
	reader, err := a.chatModel.Stream(ctx, msgs)
	if err == nil {
		return a.drain(reader)
	}

	msg, err := a.chatModel.Generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	return a.collect(ContentsFromMessage(msg)), nil
}

// messages builds the call payload. Skills whose trigger phrase appears in
// the prompt contribute their instructions as a system message; skill
// content never lands in the user prompt itself.
func (a *Adapter) messages(prompt string) []*schema.Message {
	instructions := a.skillInstructions(prompt)
	if instructions == "" {
		return []*schema.Message{schema.UserMessage(prompt)}
	}
	return []*schema.Message{
		schema.SystemMessage(instructions),
		schema.UserMessage(prompt),
	}
}

// skillInstructions joins the instructions of every skill triggered by the
// prompt, case-insensitive, each skill at most once.
func (a *Adapter) skillInstructions(prompt string) string {
	if a.skills == nil {
		return ""
	}
	lower := strings.ToLower(prompt)
	seen := make(map[string]bool)
	var parts []string
	for _, trigger := range a.skills.Triggers() {
		if !strings.Contains(lower, trigger) {
			continue
		}
		s, err := a.skills.ByTrigger(trigger)
		if err != nil || seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		parts = append(parts, s.Instructions)
	}
	return strings.Join(parts, "\n\n")
}

// drain walks a stream to completion, concatenating message text.
func (a *Adapter) drain(reader *schema.StreamReader[*schema.Message]) (string, error) {
	defer reader.Close()

	var b strings.Builder
	for {
		chunk, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), nil
		}
		if err != nil {
			return "", err
		}
		b.WriteString(a.collect(ContentsFromMessage(chunk)))
	}
}

// collect appends text content and records tool events for diagnostics.
func (a *Adapter) collect(contents []EventContent) string {
	var b strings.Builder
	for _, c := range contents {
		switch v := c.(type) {
		case Message:
			b.WriteString(v.Text)
		case Raw:
			b.WriteString(v.Text)
		case ToolCall, ToolResult:
			a.mu.Lock()
			a.toolTrace = append(a.toolTrace, c)
			a.mu.Unlock()
		}
	}
	return b.String()
}

// ToolTrace returns the tool events observed so far, for diagnostics.
func (a *Adapter) ToolTrace() []EventContent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]EventContent{}, a.toolTrace...)
}

// FallbackText is the deterministic response used when a call fails in
// fallback mode. It names the section the prompt targets so downstream
// assembly keeps its structure; it deliberately contains no claims.
func FallbackText(prompt string) string {
	section := "Section"
	if m := sectionLineRe.FindStringSubmatch(prompt); m != nil {
		section = strings.TrimSpace(m[1])
	}
	return fmt.Sprintf(
		"## %s\n\nContent for this section could not be generated because the language model was unavailable. Re-run the generation to fill it in.\n",
		section)
}
