// Package tools exposes the planning engine as named operations with JSON-schema'd inputs
// and outputs. The CLI and the Lambda handler both dispatch through a Registry.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"mealprep"
)

type Tool interface {
	Name() string
	Title() string
	Description() string
	InputSchema() *jsonschema.Schema
	OutputSchema() *jsonschema.Schema
	Run(ctx context.Context, input map[string]any) (output map[string]any, err error)
}

type Call struct {
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
}

// InvalidInputError reports a tool input that does not match the tool's schema.
type InvalidInputError struct {
	Tool string
	Err  error
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input for %s: %v", e.Tool, e.Err)
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

func (e *InvalidInputError) ErrorClass() mealprep.ErrorClass { return mealprep.ClassState }

var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeInput converts a loosely typed input map into a tagged struct and validates it.
func decodeInput(tool string, input map[string]any, v any) error {
	b, err := json.Marshal(input)
	if err != nil {
		return &InvalidInputError{Tool: tool, Err: err}
	}
	if err := json.Unmarshal(b, v); err != nil {
		return &InvalidInputError{Tool: tool, Err: err}
	}
	if err := validate.Struct(v); err != nil {
		return &InvalidInputError{Tool: tool, Err: err}
	}
	return nil
}

// toMap marshals v and decodes it back into a map to keep outputs uniform.
func toMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}
	return m, nil
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errors.New("date must be RFC 3339 or YYYY-MM-DD")
	}
	return t, nil
}

// parseRangeEnd is parseDate for an inclusive upper bound: a plain date covers the whole day.
func parseRangeEnd(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := parseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	return t.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
}
