package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// NotARepository indicates the working directory is not inside a git repository
	NotARepository ErrorCode = "NOT_A_REPOSITORY"
	// PathNotFound indicates git does not know the requested path
	PathNotFound ErrorCode = "PATH_NOT_FOUND"
	// RefNotFound indicates an unknown revision or ref
	RefNotFound ErrorCode = "REF_NOT_FOUND"
	// GitFailed indicates any other git subprocess failure
	GitFailed ErrorCode = "GIT_FAILED"
	// OutputTooLarge indicates git produced more output than allowed
	OutputTooLarge ErrorCode = "OUTPUT_TOO_LARGE"
	// Timeout indicates an upstream call timed out
	Timeout ErrorCode = "TIMEOUT"
	// UnknownChangeIDs indicates requested change identifiers are not in the current state
	UnknownChangeIDs ErrorCode = "UNKNOWN_CHANGE_IDS"
	// EmbeddingFailed indicates the embedding provider failed
	EmbeddingFailed ErrorCode = "EMBEDDING_FAILED"
	// InvalidParameter indicates a bad caller-supplied parameter
	InvalidParameter ErrorCode = "INVALID_PARAMETER"
	// ConfigInvalid indicates the configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// Error is a typed failure with a stable code, message and optional suggestions
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new Error
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Describe returns the message followed by the cause, without the code prefix
func (e *Error) Describe() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// WithFixes replaces the suggested fixes
func (e *Error) WithFixes(fixes ...FixAction) *Error {
	e.SuggestedFixes = fixes
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or InternalError.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return InternalError
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// NewInvalidParameterError reports a bad parameter value
func NewInvalidParameterError(param, reason string) *Error {
	msg := fmt.Sprintf("invalid parameter %q", param)
	if reason != "" {
		msg += ": " + reason
	}
	return New(InvalidParameter, msg, nil).WithDetails(map[string]interface{}{
		"parameter": param,
	})
}

// NewUnknownChangeIDsError reports every requested identifier that is not in the
// current change set.
func NewUnknownChangeIDsError(unknown []string) *Error {
	return New(
		UnknownChangeIDs,
		fmt.Sprintf("unknown change ids: %s", strings.Join(unknown, ", ")),
		nil,
	).WithDetails(map[string]interface{}{
		"unknownIds": unknown,
	})
}

// NewEmbeddingError wraps a provider failure
func NewEmbeddingError(message string, cause error) *Error {
	return New(EmbeddingFailed, message, cause)
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	NotARepository: {
		{
			Type:        RunCommand,
			Command:     "git status",
			Safe:        true,
			Description: "Verify you're in a git repository",
		},
	},
	UnknownChangeIDs: {
		{
			Type:        RunCommand,
			Command:     "changelens changes",
			Safe:        true,
			Description: "Change ids are positional; list the current changes again",
		},
	},
	EmbeddingFailed: {
		{
			Type:        RunCommand,
			Command:     "changelens config show",
			Safe:        true,
			Description: "Check the embedding provider configuration",
		},
	},
	Timeout: {
		{
			Type:        RunCommand,
			Command:     "changelens config show",
			Safe:        true,
			Description: "Raise git.timeoutMs if the repository is large",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
