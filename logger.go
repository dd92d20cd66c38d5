package mealprep

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// EventLogger is the interface for the session/pantry mutation journal.
type EventLogger interface {
	LogEvent(event Event) error
}

// NewEventLogFilePath returns a file path that groups journal files by day and subject.
func NewEventLogFilePath(subject string) string {
	return fmt.Sprintf(
		"./logs/%s.%s.json",
		time.Now().Format("20060102"),
		sanitizeSubject(subject),
	)
}

func sanitizeSubject(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// Event represents one mutating operation against a session or pantry.
type Event struct {
	Operation string         `json:"operation"`
	Timestamp time.Time      `json:"timestamp"`
	UserID    string         `json:"user_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	StepID    string         `json:"step_id,omitempty"`
	Attempt   int            `json:"attempt,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// FileEventLogger accumulates events and flushes them to a writer as one document.
type FileEventLogger struct {
	mu     sync.Mutex
	events []Event
	writer io.Writer
}

// NewFileEventLogger creates a new file-based event logger
func NewFileEventLogger(writer io.Writer) *FileEventLogger {
	return &FileEventLogger{
		events: make([]Event, 0),
		writer: writer,
	}
}

// LogEvent buffers an event (does not flush immediately)
func (l *FileEventLogger) LogEvent(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

// Flush writes all buffered events to the writer
func (l *FileEventLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"journal": map[string]any{
			"timestamp": time.Now(),
			"events":    l.events,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal event journal: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write event journal: %w", err)
	}

	l.events = l.events[:0]
	return nil
}

// Events returns a copy of the buffered events.
func (l *FileEventLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// NoOpEventLogger discards all events
type NoOpEventLogger struct{}

func NewNoOpEventLogger() *NoOpEventLogger {
	return &NoOpEventLogger{}
}

func (nop *NoOpEventLogger) LogEvent(event Event) error {
	return nil
}

// StdoutEventLogger writes each event as a JSON line to stdout (for Lambda/CloudWatch)
type StdoutEventLogger struct {
	out io.Writer
}

func NewStdoutEventLogger() *StdoutEventLogger {
	return &StdoutEventLogger{out: os.Stdout}
}

func (l *StdoutEventLogger) LogEvent(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(l.out, string(data))
	return err
}
