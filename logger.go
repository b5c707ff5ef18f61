package dishwise

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// TraceLogger records per-stage outputs for later inspection.
type TraceLogger interface {
	LogStage(entry StageLog) error
}

// NewTraceLogFilePath returns a file path keyed by session id so traces
// from different analysis sessions are easy to tell apart.
func NewTraceLogFilePath(dir, sessionID string) string {
	return fmt.Sprintf(
		"%s/%d.%s.json",
		strings.TrimRight(dir, "/"),
		time.Now().Unix(),
		sessionID,
	)
}

// StageLog is a single stage execution record within a session.
type StageLog struct {
	Stage     string    `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
	Input     string    `json:"input,omitempty"`
	Output    any       `json:"output"`
	Error     string    `json:"error,omitempty"`
}

// FileTraceLogger accumulates stage logs and flushes them as one JSON
// document at the end of a session.
type FileTraceLogger struct {
	entries []StageLog
	writer  io.Writer
}

// NewFileTraceLogger creates a new file-based trace logger.
func NewFileTraceLogger(writer io.Writer) *FileTraceLogger {
	return &FileTraceLogger{
		entries: make([]StageLog, 0),
		writer:  writer,
	}
}

// LogStage buffers an entry (does not flush immediately).
func (l *FileTraceLogger) LogStage(entry StageLog) error {
	l.entries = append(l.entries, entry)
	return nil
}

// Flush writes all accumulated entries to the writer.
func (l *FileTraceLogger) Flush() error {
	if l.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"analysis_session": map[string]any{
			"timestamp": time.Now(),
			"stages":    l.entries,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal trace log: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write trace log: %w", err)
	}

	l.entries = l.entries[:0]
	return nil
}

// NoOpTraceLogger discards all entries.
type NoOpTraceLogger struct{}

// NewNoOpTraceLogger creates a new no-op trace logger.
func NewNoOpTraceLogger() *NoOpTraceLogger {
	return &NoOpTraceLogger{}
}

// LogStage discards the entry.
func (l *NoOpTraceLogger) LogStage(entry StageLog) error {
	return nil
}

// StdoutTraceLogger writes each entry as a JSON line to stdout (for
// Lambda/CloudWatch).
type StdoutTraceLogger struct{}

// NewStdoutTraceLogger creates a new stdout-based trace logger.
func NewStdoutTraceLogger() *StdoutTraceLogger {
	return &StdoutTraceLogger{}
}

// LogStage writes the entry as a JSON line to os.Stdout.
func (l *StdoutTraceLogger) LogStage(entry StageLog) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
