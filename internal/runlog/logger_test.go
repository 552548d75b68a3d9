package runlog

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger_WritesJSONL(t *testing.T) {
	dir := t.TempDir()
	var stderr bytes.Buffer

	l, err := New(Options{
		OutputDir:    dir,
		EnableStderr: true,
		StderrWriter: &stderr,
		RunID:        "run-abc12345",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.Info("run_start", "generating BRD", map[string]any{"sections": 3})
	l.WithSection("Executive Summary").Debug("claims_extracted", "4 claims", nil)
	l.Error("llm_failure", "completion failed", os.ErrDeadlineExceeded, nil)

	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(l.LogPath())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}

	var first Entry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("line 0 is not valid JSON: %v", err)
	}
	if first.Event != "run_start" || first.RunID != "run-abc12345" {
		t.Errorf("first entry = %+v", first)
	}

	var second Entry
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("line 1 is not valid JSON: %v", err)
	}
	if second.Section != "Executive Summary" {
		t.Errorf("section = %q", second.Section)
	}

	var third Entry
	if err := json.Unmarshal([]byte(lines[2]), &third); err != nil {
		t.Fatalf("line 2 is not valid JSON: %v", err)
	}
	if third.Error == "" || third.Level != LevelError {
		t.Errorf("third entry = %+v", third)
	}

	if stderr.Len() == 0 {
		t.Error("stderr mirror is empty")
	}
}

func TestLogger_StartPhase(t *testing.T) {
	dir := t.TempDir()
	l, err := New(Options{OutputDir: dir})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	stop := l.StartPhase("aggregate_context", nil)
	stop(nil)

	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, _ := os.ReadFile(l.LogPath())
	if !strings.Contains(string(data), "phase_start") || !strings.Contains(string(data), "phase_end") {
		t.Errorf("phase markers missing:\n%s", data)
	}
	if !strings.Contains(string(data), "duration_ms") {
		t.Error("phase end should carry duration_ms")
	}

	// Every phase entry is tagged with the phase name as its step.
	for i, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("line %d is not valid JSON: %v", i, err)
		}
		if entry.Step != "aggregate_context" {
			t.Errorf("line %d step = %q, want %q", i, entry.Step, "aggregate_context")
		}
	}
}

func TestLogger_NilSafe(t *testing.T) {
	var l *Logger
	l.Info("event", "message", nil)
	l.WithSection("x").Info("event", "message", nil)
	if err := l.Close(); err != nil {
		t.Errorf("nil Close() = %v", err)
	}
}

func TestPrune(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"run-20250101T000000Z.log",
		"run-20250102T000000Z.log",
		"run-20250103T000000Z.log",
		"run-20250104T000000Z.log",
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("{}\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	if err := Prune(dir, 2); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Fatalf("kept %d files, want 2", len(entries))
	}
	kept := []string{entries[0].Name(), entries[1].Name()}
	for _, k := range kept {
		if k != "run-20250103T000000Z.log" && k != "run-20250104T000000Z.log" {
			t.Errorf("wrong file kept: %s", k)
		}
	}
}
