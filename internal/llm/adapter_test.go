package llm

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

func TestCompleteReturnsScriptedText(t *testing.T) {
	mock := NewMockModel([]string{"first", "second"})
	a := NewAdapter(mock, Config{TimeoutSeconds: 5})

	for _, want := range []string{"first", "second"} {
		got, err := a.Complete(context.Background(), "prompt")
		if err != nil {
			t.Fatalf("Complete: %v", err)
		}
		if got != want {
			t.Errorf("Complete = %q, want %q", got, want)
		}
	}
	if mock.Calls() != 2 {
		t.Errorf("calls = %d, want 2", mock.Calls())
	}
}

func TestCompleteRecordsPrompts(t *testing.T) {
	mock := NewMockModel([]string{"ok"})
	a := NewAdapter(mock, Config{TimeoutSeconds: 5})

	if _, err := a.Complete(context.Background(), "the prompt"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	prompts := mock.Prompts()
	if len(prompts) != 1 || prompts[0] != "the prompt" {
		t.Errorf("prompts = %v", prompts)
	}
}

func TestFallbackModeMasksFailure(t *testing.T) {
	mock := NewMockModel(nil)
	mock.Err = errors.New("provider down")
	a := NewAdapter(mock, Config{TimeoutSeconds: 5, FallbackMode: true})

	got, err := a.Complete(context.Background(), "## Section: Executive Summary\nwrite it")
	if err != nil {
		t.Fatalf("fallback should not error: %v", err)
	}
	if !strings.Contains(got, "## Executive Summary") {
		t.Errorf("fallback lost the section heading: %q", got)
	}

	// Deterministic across calls.
	again, _ := a.Complete(context.Background(), "## Section: Executive Summary\nwrite it")
	if got != again {
		t.Error("fallback text not deterministic")
	}
}

func TestFallbackOffSurfacesError(t *testing.T) {
	mock := NewMockModel(nil)
	mock.Err = errors.New("provider down")
	a := NewAdapter(mock, Config{TimeoutSeconds: 5})

	_, err := a.Complete(context.Background(), "prompt")
	if !errors.Is(err, ErrCompletionFailed) {
		t.Errorf("err = %v, want ErrCompletionFailed", err)
	}
}

func TestCancelledContextStopsCall(t *testing.T) {
	mock := NewMockModel([]string{"never"})
	a := NewAdapter(mock, Config{TimeoutSeconds: 5})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Complete(ctx, "prompt"); err == nil {
		t.Error("cancelled context should fail without fallback")
	}
}

func TestFallbackTextWithoutSectionLine(t *testing.T) {
	got := FallbackText("no heading here")
	if !strings.HasPrefix(got, "## Section") {
		t.Errorf("generic fallback = %q", got)
	}
}

// captureModel records the full message payload of each call.
type captureModel struct {
	mu    sync.Mutex
	calls [][]*schema.Message
}

func (c *captureModel) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, input)
	return schema.AssistantMessage("ok", nil), nil
}

func (c *captureModel) Stream(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming unsupported")
}

func writeSkillFile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "skill.md"), []byte(content), 0o644); err != nil {
		t.Fatalf("write skill: %v", err)
	}
}

func TestSkillTriggerAddsSystemMessage(t *testing.T) {
	dir := t.TempDir()
	writeSkillFile(t, dir, `---
name: payments
triggers:
  - payment flow
---

Always cite ledger entries.
`)

	capture := &captureModel{}
	a := NewAdapter(capture, Config{TimeoutSeconds: 5, SkillDirs: []string{dir}})

	if _, err := a.Complete(context.Background(), "Describe the Payment Flow end to end."); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if len(capture.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(capture.calls))
	}
	msgs := capture.calls[0]
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want system + user", len(msgs))
	}
	if msgs[0].Role != schema.System || !strings.Contains(msgs[0].Content, "Always cite ledger entries.") {
		t.Errorf("system message = %+v", msgs[0])
	}
	if msgs[1].Role != schema.User || !strings.Contains(msgs[1].Content, "Payment Flow") {
		t.Errorf("user message = %+v", msgs[1])
	}
}

func TestNoTriggerKeepsBarePrompt(t *testing.T) {
	dir := t.TempDir()
	writeSkillFile(t, dir, `---
name: payments
triggers:
  - payment flow
---

Always cite ledger entries.
`)

	capture := &captureModel{}
	a := NewAdapter(capture, Config{TimeoutSeconds: 5, SkillDirs: []string{dir}})

	if _, err := a.Complete(context.Background(), "List the storage modules."); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if msgs := capture.calls[0]; len(msgs) != 1 || msgs[0].Role != schema.User {
		t.Errorf("messages = %+v, want single user message", msgs)
	}
}

func TestNoSkillDirsSkipsRegistry(t *testing.T) {
	capture := &captureModel{}
	a := NewAdapter(capture, Config{TimeoutSeconds: 5})

	if _, err := a.Complete(context.Background(), "generate brd sections"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if msgs := capture.calls[0]; len(msgs) != 1 {
		t.Errorf("messages = %d, want 1", len(msgs))
	}
}
