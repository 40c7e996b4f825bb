// Package errors provides explicit, human-readable error types for rowguard.
// All errors must include a Reason and Suggestion for actionable feedback.
//
// The one deliberate exception is the sentinel abort in internal/guard: its
// message stays generic so error output never leaks how detection works.
package errors

import (
	stderrors "errors"
	"fmt"
)

// RowguardError is the base error type for all rowguard errors.
// Every error must provide a human-readable reason and suggestion.
type RowguardError struct {
	Code       ErrorCode
	Message    string
	Reason     string
	Suggestion string
	Cause      error
}

// ErrorCode represents the category of error for exit code mapping.
type ErrorCode int

const (
	CodeValidation ErrorCode = 1
	CodeSession    ErrorCode = 2
	CodeEngine     ErrorCode = 3
	CodeInternal   ErrorCode = 4
)

func (e *RowguardError) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s\nReason: %s", msg, e.Reason)
	}
	if e.Suggestion != "" {
		msg = fmt.Sprintf("%s\nSuggestion: %s", msg, e.Suggestion)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s\nCaused by: %v", msg, e.Cause)
	}
	return msg
}

func (e *RowguardError) Unwrap() error {
	return e.Cause
}

// ErrorCode returns the error's category. Promoted to every typed error
// through the embedded base struct.
func (e *RowguardError) ErrorCode() ErrorCode {
	return e.Code
}

// Coder is satisfied by every rowguard error.
type Coder interface {
	ErrorCode() ErrorCode
}

// CodeOf returns the category of err, or CodeInternal when err carries no
// rowguard code.
func CodeOf(err error) ErrorCode {
	var c Coder
	if stderrors.As(err, &c) {
		return c.ErrorCode()
	}
	return CodeInternal
}

// ErrRelationNotFound is returned when a referenced relation is not
// registered in the relation registry.
type ErrRelationNotFound struct {
	RowguardError
	Relation string
}

// NewRelationNotFound creates a new ErrRelationNotFound.
func NewRelationNotFound(relation string) *ErrRelationNotFound {
	return &ErrRelationNotFound{
		RowguardError: RowguardError{
			Code:       CodeValidation,
			Message:    fmt.Sprintf("relation not registered: %s", relation),
			Reason:     "no relation ID has been assigned to this name",
			Suggestion: "register it with 'rowguard relation register' or list known relations with 'rowguard relation list'",
		},
		Relation: relation,
	}
}

// ErrEngineUnavailable is returned when the configured engine adapter is
// missing or unreachable.
type ErrEngineUnavailable struct {
	RowguardError
	Engine string
}

// NewEngineUnavailable creates a new ErrEngineUnavailable.
func NewEngineUnavailable(engine string, cause error) *ErrEngineUnavailable {
	return &ErrEngineUnavailable{
		RowguardError: RowguardError{
			Code:       CodeEngine,
			Message:    fmt.Sprintf("engine unavailable: %s", engine),
			Reason:     "the adapter is not registered or the engine is unreachable",
			Suggestion: "check engine health with 'rowguard doctor'",
			Cause:      cause,
		},
		Engine: engine,
	}
}

// ErrUnsupportedStatement is returned when a statement cannot be classified.
type ErrUnsupportedStatement struct {
	RowguardError
	SQL string
}

// NewUnsupportedStatement creates a new ErrUnsupportedStatement.
func NewUnsupportedStatement(sql, reason string) *ErrUnsupportedStatement {
	return &ErrUnsupportedStatement{
		RowguardError: RowguardError{
			Code:       CodeValidation,
			Message:    "unsupported statement",
			Reason:     reason,
			Suggestion: "rowguard executes SELECT, INSERT, UPDATE, DELETE, and MERGE statements",
		},
		SQL: sql,
	}
}

// ErrSessionTerminated is returned for every statement submitted to a
// session after a connection-scoped abort poisoned it.
type ErrSessionTerminated struct {
	RowguardError
}

// NewSessionTerminated creates a new ErrSessionTerminated.
func NewSessionTerminated() *ErrSessionTerminated {
	return &ErrSessionTerminated{
		RowguardError: RowguardError{
			Code:       CodeSession,
			Message:    "session terminated",
			Reason:     "the connection was dropped by a prior fatal error",
			Suggestion: "open a new session",
		},
	}
}

// ErrInvalidManifest is returned when a bootstrap manifest fails validation.
type ErrInvalidManifest struct {
	RowguardError
	Field string
}

// NewInvalidManifest creates a new ErrInvalidManifest.
func NewInvalidManifest(field, reason string) *ErrInvalidManifest {
	return &ErrInvalidManifest{
		RowguardError: RowguardError{
			Code:       CodeValidation,
			Message:    "invalid bootstrap manifest",
			Reason:     fmt.Sprintf("field '%s': %s", field, reason),
			Suggestion: "validate the manifest with 'rowguard bootstrap validate'",
		},
		Field: field,
	}
}

// ErrInvalidGuardConfig is returned when the sentinel settings cannot form a
// usable rule at startup.
type ErrInvalidGuardConfig struct {
	RowguardError
	Setting string
}

// NewInvalidGuardConfig creates a new ErrInvalidGuardConfig.
func NewInvalidGuardConfig(setting, reason string) *ErrInvalidGuardConfig {
	return &ErrInvalidGuardConfig{
		RowguardError: RowguardError{
			Code:       CodeValidation,
			Message:    "invalid guard configuration",
			Reason:     fmt.Sprintf("setting '%s': %s", setting, reason),
			Suggestion: "fix the guard section of the config file; guard settings are read once at startup",
		},
		Setting: setting,
	}
}
