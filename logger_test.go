package mealprep

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileEventLogger_Flush(t *testing.T) {
	var buf bytes.Buffer
	logger := NewFileEventLogger(&buf)
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, logger.LogEvent(Event{Operation: "step_complete", Timestamp: ts, UserID: "u1", SessionID: "s1", StepID: "soup#1"}))
	require.NoError(t, logger.LogEvent(Event{Operation: "pantry_consume", Timestamp: ts, UserID: "u1", Error: "insufficient"}))
	assert.Len(t, logger.Events(), 2)

	require.NoError(t, logger.Flush())
	var doc struct {
		Journal struct {
			Events []Event `json:"events"`
		} `json:"journal"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Journal.Events, 2)
	assert.Equal(t, "soup#1", doc.Journal.Events[0].StepID)
	assert.Equal(t, "insufficient", doc.Journal.Events[1].Error)
	assert.Empty(t, logger.Events(), "flush drains the buffer")
}

func TestStdoutEventLogger_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	logger := &StdoutEventLogger{out: &buf}
	require.NoError(t, logger.LogEvent(Event{Operation: "session_create", UserID: "u1"}))
	require.NoError(t, logger.LogEvent(Event{Operation: "time_adjust", UserID: "u1"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &ev))
	assert.Equal(t, "time_adjust", ev.Operation)
}

func TestNewEventLogFilePath(t *testing.T) {
	path := NewEventLogFilePath("Jane Doe/42")
	assert.True(t, strings.HasPrefix(path, "./logs/"))
	assert.True(t, strings.HasSuffix(path, ".jane_doe_42.json"), path)
}
