// Package envelope provides the response wrapper shared by every MCP tool
// and the CLI's JSON output. Each response carries the payload plus
// provenance, warnings and, on failure, a typed error.
package envelope

// CurrentSchemaVersion is the current envelope schema version.
const CurrentSchemaVersion = "1.0"

// Provenance describes where the data came from and which repository
// state it reflects.
type Provenance struct {
	Sources     []string `json:"sources"`               // e.g. ["git"], ["git", "embedding:local"]
	RepoStateID string   `json:"repoStateId,omitempty"` // fingerprint of HEAD + staged + unstaged
	HeadCommit  string   `json:"headCommit,omitempty"`
	Dirty       bool     `json:"dirty"`
}

// Meta holds response metadata.
type Meta struct {
	RequestID  string      `json:"requestId"`
	Provenance *Provenance `json:"provenance,omitempty"`
}

// SuggestedCall represents a recommended follow-up tool call.
type SuggestedCall struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params,omitempty"`
	Reason string                 `json:"reason,omitempty"`
}

// Warning represents a non-fatal issue.
type Warning struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Response is the standard envelope for all tool responses. Exactly one of
// Data or Error is meaningful: a failed call never carries a partial payload.
type Response struct {
	SchemaVersion      string          `json:"schemaVersion"`
	Data               interface{}     `json:"data"`
	Meta               *Meta           `json:"meta,omitempty"`
	Warnings           []Warning       `json:"warnings,omitempty"`
	Error              *string         `json:"error,omitempty"`
	ErrorCode          string          `json:"errorCode,omitempty"`
	ErrorDetails       interface{}     `json:"errorDetails,omitempty"`
	SuggestedNextCalls []SuggestedCall `json:"suggestedNextCalls,omitempty"`
}

// Failed reports whether the response carries an error.
func (r *Response) Failed() bool {
	return r.Error != nil
}
