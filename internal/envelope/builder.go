package envelope

import (
	"github.com/google/uuid"

	"changelens/internal/errors"
)

// Builder constructs Response envelopes using a fluent API.
type Builder struct {
	resp *Response
}

// New creates a new envelope builder with a fresh request ID.
func New() *Builder {
	return &Builder{
		resp: &Response{
			SchemaVersion: CurrentSchemaVersion,
			Meta:          &Meta{RequestID: uuid.NewString()},
		},
	}
}

// Data sets the tool-specific payload.
func (b *Builder) Data(data interface{}) *Builder {
	b.resp.Data = data
	return b
}

// Provenance records the repository state the data reflects.
func (b *Builder) Provenance(p *Provenance) *Builder {
	b.resp.Meta.Provenance = p
	return b
}

// WarningWithCode adds a warning with a code.
func (b *Builder) WarningWithCode(code, msg string) *Builder {
	b.resp.Warnings = append(b.resp.Warnings, Warning{Code: code, Message: msg})
	return b
}

// Suggest adds a follow-up call.
func (b *Builder) Suggest(tool string, params map[string]interface{}, reason string) *Builder {
	b.resp.SuggestedNextCalls = append(b.resp.SuggestedNextCalls, SuggestedCall{
		Tool:   tool,
		Params: params,
		Reason: reason,
	})
	return b
}

// Error sets the error fields and clears any payload. Typed errors keep
// their code and details; anything else is reported as INTERNAL_ERROR.
func (b *Builder) Error(err error) *Builder {
	if err == nil {
		return b
	}
	msg := err.Error()
	b.resp.Error = &msg
	b.resp.ErrorCode = string(errors.CodeOf(err))
	if typed, ok := errors.As(err); ok {
		msg = typed.Describe()
		b.resp.Error = &msg
		b.resp.ErrorDetails = typed.Details
	}
	b.resp.Data = nil
	b.resp.SuggestedNextCalls = nil
	return b
}

// Build returns the completed response envelope.
func (b *Builder) Build() *Response {
	return b.resp
}

// Operational creates a simple envelope for status-style tools.
func Operational(data interface{}) *Response {
	return New().Data(data).Build()
}

// Failure creates an envelope carrying only err.
func Failure(err error) *Response {
	return New().Error(err).Build()
}
