package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestRowguardError_FormatsReasonAndSuggestion(t *testing.T) {
	err := NewRelationNotFound("customers")

	msg := err.Error()
	if !strings.Contains(msg, "relation not registered: customers") {
		t.Errorf("missing message: %q", msg)
	}
	if !strings.Contains(msg, "Reason:") || !strings.Contains(msg, "Suggestion:") {
		t.Errorf("expected reason and suggestion: %q", msg)
	}
}

func TestRowguardError_UnwrapsCause(t *testing.T) {
	cause := stderrors.New("dial tcp: refused")
	err := NewEngineUnavailable("trino", cause)

	if !stderrors.Is(err, cause) {
		t.Error("expected cause reachable through Unwrap")
	}
	if !strings.Contains(err.Error(), "Caused by:") {
		t.Errorf("expected cause in message: %q", err.Error())
	}
}

func TestCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorCode
	}{
		{NewRelationNotFound("x"), CodeValidation},
		{NewInvalidManifest("relations", "empty"), CodeValidation},
		{NewInvalidGuardConfig("column", "negative"), CodeValidation},
		{NewSessionTerminated(), CodeSession},
		{NewEngineUnavailable("trino", nil), CodeEngine},
		{stderrors.New("plain"), CodeInternal},
	}
	for i, tc := range cases {
		if got := CodeOf(tc.err); got != tc.want {
			t.Errorf("case %d: got %d, want %d", i, got, tc.want)
		}
	}

	// Wrapped rowguard errors keep their code.
	wrapped := fmt.Errorf("context: %w", NewSessionTerminated())
	if CodeOf(wrapped) != CodeSession {
		t.Error("expected wrapped error to keep its code")
	}
}
