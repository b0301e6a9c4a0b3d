package mcp

import (
	"fmt"
	"math"

	"changelens/internal/changes"
	"changelens/internal/envelope"
	"changelens/internal/errors"
	"changelens/internal/repostate"
)

// ToolResponse is a convenience builder for MCP tool responses.
type ToolResponse struct {
	builder *envelope.Builder
}

// NewToolResponse creates a new tool response builder.
func NewToolResponse() *ToolResponse {
	return &ToolResponse{
		builder: envelope.New(),
	}
}

// Data sets the payload.
func (t *ToolResponse) Data(data interface{}) *ToolResponse {
	t.builder.Data(data)
	return t
}

// WithState records the repository state the payload was read from.
func (t *ToolResponse) WithState(state *repostate.RepoState, sources ...string) *ToolResponse {
	t.builder.Provenance(changes.Provenance(state, sources...))
	return t
}

// Warning adds a warning with a code.
func (t *ToolResponse) Warning(code, msg string) *ToolResponse {
	t.builder.WarningWithCode(code, msg)
	return t
}

// Suggest adds a follow-up call.
func (t *ToolResponse) Suggest(tool string, params map[string]interface{}, reason string) *ToolResponse {
	t.builder.Suggest(tool, params, reason)
	return t
}

// Build returns the envelope response.
func (t *ToolResponse) Build() *envelope.Response {
	return t.builder.Build()
}

// Parameter extraction. Absent or null parameters report ok=false; present
// parameters of the wrong type are INVALID_PARAMETER.

func stringParam(params map[string]interface{}, name string) (string, bool, error) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return "", false, nil
	}
	v, ok := raw.(string)
	if !ok {
		return "", false, errors.NewInvalidParameterError(name, "must be a string")
	}
	return v, true, nil
}

func intParam(params map[string]interface{}, name string) (int, bool, error) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return 0, false, nil
	}
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case int:
		return v, true, nil
	default:
		return 0, false, errors.NewInvalidParameterError(name, "must be an integer")
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
		return 0, false, errors.NewInvalidParameterError(name, fmt.Sprintf("must be an integer, got %v", f))
	}
	return int(f), true, nil
}

func floatParam(params map[string]interface{}, name string) (float64, bool, error) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return 0, false, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, true, nil
	case int:
		return float64(v), true, nil
	}
	return 0, false, errors.NewInvalidParameterError(name, "must be a number")
}

func boolParam(params map[string]interface{}, name string) (bool, error) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return false, nil
	}
	v, ok := raw.(bool)
	if !ok {
		return false, errors.NewInvalidParameterError(name, "must be a boolean")
	}
	return v, nil
}

func stringSliceParam(params map[string]interface{}, name string) ([]string, error) {
	raw, ok := params[name]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errors.NewInvalidParameterError(name, fmt.Sprintf("item %d must be a string", i))
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, errors.NewInvalidParameterError(name, "must be an array of strings")
}
