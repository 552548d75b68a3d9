// Package runlog writes structured JSONL logs for BRD generation runs.
package runlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level is the severity of a log entry.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Entry is a single JSONL log line.
type Entry struct {
	Timestamp  string         `json:"timestamp"`
	Level      Level          `json:"level"`
	RunID      string         `json:"run_id,omitempty"`
	Section    string         `json:"section,omitempty"`
	Step       string         `json:"step,omitempty"`
	Event      string         `json:"event"`
	Message    string         `json:"message"`
	DurationMs *int64         `json:"duration_ms,omitempty"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Options configures the Logger.
type Options struct {
	// OutputDir is the directory for log files. Default: ".brdgen/logs".
	OutputDir string

	// EnableStderr mirrors entries to stderr.
	EnableStderr bool

	// RetentionCount is the number of run logs to keep. Default: 5.
	RetentionCount int

	// RunID tags every entry written through this logger.
	RunID string

	// StderrWriter overrides the stderr mirror target (for tests).
	StderrWriter io.Writer
}

// Logger writes buffered JSONL entries to a per-run file, with an optional
// stderr mirror. Safe for concurrent use.
type Logger struct {
	mu           sync.Mutex
	file         *os.File
	writer       *bufio.Writer
	opts         Options
	logPath      string
	closed       bool
	flushTicker  *time.Ticker
	flushDone    chan struct{}
	stderrWriter io.Writer
}

// New creates a run logger, creating the output directory when missing.
func New(opts Options) (*Logger, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = filepath.Join(".brdgen", "logs")
	}
	if opts.RetentionCount == 0 {
		opts.RetentionCount = 5
	}
	stderrWriter := opts.StderrWriter
	if stderrWriter == nil {
		stderrWriter = os.Stderr
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}

	filename := fmt.Sprintf("run-%s.log", time.Now().UTC().Format("20060102T150405Z"))
	logPath := filepath.Join(opts.OutputDir, filename)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	latest := filepath.Join(opts.OutputDir, "run-latest.log")
	_ = os.Remove(latest)
	_ = os.Symlink(filename, latest)

	l := &Logger{
		file:         file,
		writer:       bufio.NewWriter(file),
		opts:         opts,
		logPath:      logPath,
		flushTicker:  time.NewTicker(time.Second),
		flushDone:    make(chan struct{}),
		stderrWriter: stderrWriter,
	}
	go l.periodicFlush()
	return l, nil
}

func (l *Logger) periodicFlush() {
	for {
		select {
		case <-l.flushTicker.C:
			l.mu.Lock()
			if !l.closed && l.writer != nil {
				_ = l.writer.Flush()
			}
			l.mu.Unlock()
		case <-l.flushDone:
			return
		}
	}
}

func (l *Logger) write(level Level, section, step, event, message, errStr string, durationMs *int64, metadata map[string]any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}

	entry := Entry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Level:      level,
		RunID:      l.opts.RunID,
		Section:    section,
		Step:       step,
		Event:      event,
		Message:    message,
		DurationMs: durationMs,
		Error:      errStr,
		Metadata:   metadata,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"timestamp":%q,"level":"error","event":"marshal_error","message":"failed to marshal log entry"}`,
			entry.Timestamp))
	}

	if l.writer != nil {
		_, _ = l.writer.Write(data)
		_, _ = l.writer.Write([]byte("\n"))
	}
	if l.opts.EnableStderr && l.stderrWriter != nil {
		_, _ = l.stderrWriter.Write(data)
		_, _ = l.stderrWriter.Write([]byte("\n"))
	}
}

// Debug logs a debug-level entry.
func (l *Logger) Debug(event, message string, metadata map[string]any) {
	l.write(LevelDebug, "", "", event, message, "", nil, metadata)
}

// Info logs an info-level entry.
func (l *Logger) Info(event, message string, metadata map[string]any) {
	l.write(LevelInfo, "", "", event, message, "", nil, metadata)
}

// Warn logs a warn-level entry.
func (l *Logger) Warn(event, message string, metadata map[string]any) {
	l.write(LevelWarn, "", "", event, message, "", nil, metadata)
}

// Error logs an error-level entry carrying err.
func (l *Logger) Error(event, message string, err error, metadata map[string]any) {
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	l.write(LevelError, "", "", event, message, errStr, nil, metadata)
}

// WithSection returns a logger scoped to one BRD section.
func (l *Logger) WithSection(section string) *SectionLogger {
	return &SectionLogger{logger: l, section: section}
}

// SectionLogger tags entries with a section name.
type SectionLogger struct {
	logger  *Logger
	section string
}

// Debug logs a debug entry for this section.
func (s *SectionLogger) Debug(event, message string, metadata map[string]any) {
	if s == nil {
		return
	}
	s.logger.write(LevelDebug, s.section, "", event, message, "", nil, metadata)
}

// Info logs an info entry for this section.
func (s *SectionLogger) Info(event, message string, metadata map[string]any) {
	if s == nil {
		return
	}
	s.logger.write(LevelInfo, s.section, "", event, message, "", nil, metadata)
}

// Warn logs a warning entry for this section.
func (s *SectionLogger) Warn(event, message string, metadata map[string]any) {
	if s == nil {
		return
	}
	s.logger.write(LevelWarn, s.section, "", event, message, "", nil, metadata)
}

// Error logs an error entry for this section.
func (s *SectionLogger) Error(event, message string, err error, metadata map[string]any) {
	if s == nil {
		return
	}
	errStr := ""
	if err != nil {
		errStr = err.Error()
	}
	s.logger.write(LevelError, s.section, "", event, message, errStr, nil, metadata)
}

// StartPhase times a pipeline phase. The returned stopper logs completion or
// failure with the elapsed duration.
func (l *Logger) StartPhase(phase string, metadata map[string]any) func(err error) {
	start := time.Now()
	l.write(LevelDebug, "", phase, "phase_start", "starting "+phase, "", nil, metadata)

	return func(err error) {
		if l == nil {
			return
		}
		duration := time.Since(start).Milliseconds()
		if err != nil {
			l.write(LevelError, "", phase, "phase_error", "phase "+phase+" failed", err.Error(), &duration, metadata)
			return
		}
		l.write(LevelDebug, "", phase, "phase_end", "completed "+phase, "", &duration, metadata)
	}
}

// LogPath returns the path of the current log file.
func (l *Logger) LogPath() string {
	if l == nil {
		return ""
	}
	return l.logPath
}

// Close flushes and closes the file, then prunes old run logs.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.flushTicker.Stop()
	close(l.flushDone)

	var errs []error
	if l.writer != nil {
		if err := l.writer.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush: %w", err))
		}
	}
	if l.file != nil {
		if err := l.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close: %w", err))
		}
	}
	l.mu.Unlock()

	if err := Prune(l.opts.OutputDir, l.opts.RetentionCount); err != nil {
		errs = append(errs, fmt.Errorf("prune: %w", err))
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
