package guard

import "errors"

// Scope is the blast radius of a sentinel abort.
type Scope int

const (
	// ScopeStatement unwinds only the current statement; the session
	// remains usable afterwards.
	ScopeStatement Scope = iota

	// ScopeConnection terminates the whole session. The execution driver
	// must treat this as non-recoverable and tear the connection down.
	ScopeConnection
)

// String returns the scope name.
func (s Scope) String() string {
	if s == ScopeStatement {
		return "statement"
	}
	return "connection"
}

// abortMessage is deliberately generic. Revealing the sentinel value, the
// relation, or the column would tell an attacker observing error output
// exactly how detection works.
const abortMessage = "severe internal error detected"

// AbortError is the distinguished error raised when a row trips the
// sentinel rule. It is never caught or retried inside the executor; it
// unwinds through the driver's normal error path. Callers are contractually
// required to propagate ScopeConnection up to session teardown.
type AbortError struct {
	scope Scope
}

// Error returns the fixed generic message.
func (e *AbortError) Error() string { return abortMessage }

// Scope returns the configured abort scope.
func (e *AbortError) Scope() Scope { return e.scope }

// AsAbort unwraps err to an *AbortError if one is present.
func AsAbort(err error) (*AbortError, bool) {
	var abort *AbortError
	if errors.As(err, &abort) {
		return abort, true
	}
	return nil, false
}
