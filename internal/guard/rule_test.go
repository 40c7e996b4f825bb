package guard

import (
	"errors"
	"fmt"
	"testing"
)

func TestRule_MatchesExactValue(t *testing.T) {
	rule := NewRule(16389, 2, "SENTINEL", false)

	if !rule.Matches("SENTINEL") {
		t.Error("expected exact sentinel value to match")
	}
}

// TestRule_MatchesPrefix proves the comparison is a prefix match bounded by
// the sentinel's length, so operationally tagged canary values still trip.
func TestRule_MatchesPrefix(t *testing.T) {
	rule := NewRule(16389, 2, "SENTINEL", false)

	if !rule.Matches("SENTINEL-123") {
		t.Error("expected 'SENTINEL-123' to match rule value 'SENTINEL'")
	}
	if !rule.Matches("SENTINELXYZ") {
		t.Error("expected 'SENTINELXYZ' to match rule value 'SENTINEL'")
	}
}

func TestRule_DoesNotMatchShorterOrDifferent(t *testing.T) {
	rule := NewRule(16389, 2, "SENTINEL", false)

	for _, candidate := range []string{"SENTINE", "sentinel", "XSENTINEL", "", "alice"} {
		if rule.Matches(candidate) {
			t.Errorf("expected %q not to match", candidate)
		}
	}
}

func TestRule_DisarmedNeverMatches(t *testing.T) {
	cases := []*Rule{
		Disarmed(),
		NewRule(InvalidRelation, 2, "SENTINEL", false), // no relation
		NewRule(16389, 0, "SENTINEL", false),           // no column
		NewRule(16389, 2, "", false),                   // no value
	}
	for i, rule := range cases {
		if rule.Enabled() {
			t.Errorf("case %d: expected rule to be disarmed", i)
		}
		if rule.Matches("SENTINEL") {
			t.Errorf("case %d: disarmed rule must not match", i)
		}
	}
}

func TestRule_AbortScopeFollowsConfiguration(t *testing.T) {
	connRule := NewRule(16389, 2, "SENTINEL", false)
	if got := connRule.Abort().Scope(); got != ScopeConnection {
		t.Errorf("expected connection scope by default, got %v", got)
	}

	stmtRule := NewRule(16389, 2, "SENTINEL", true)
	if got := stmtRule.Abort().Scope(); got != ScopeStatement {
		t.Errorf("expected statement scope, got %v", got)
	}
}

// TestAbortError_MessageIsGeneric proves the abort carries the fixed message
// and nothing about the rule that raised it.
func TestAbortError_MessageIsGeneric(t *testing.T) {
	rule := NewRule(16389, 2, "SENTINEL", false)
	err := rule.Abort()

	if err.Error() != "severe internal error detected" {
		t.Errorf("unexpected abort message: %q", err.Error())
	}
}

func TestAsAbort_UnwrapsWrappedAborts(t *testing.T) {
	inner := NewRule(16389, 2, "SENTINEL", true).Abort()
	wrapped := fmt.Errorf("statement failed: %w", inner)

	abort, ok := AsAbort(wrapped)
	if !ok {
		t.Fatal("expected wrapped abort to be recognized")
	}
	if abort.Scope() != ScopeStatement {
		t.Errorf("expected statement scope, got %v", abort.Scope())
	}

	if _, ok := AsAbort(errors.New("plain failure")); ok {
		t.Error("plain errors must not be treated as aborts")
	}
	if _, ok := AsAbort(nil); ok {
		t.Error("nil must not be treated as an abort")
	}
}

func TestScope_String(t *testing.T) {
	if ScopeStatement.String() != "statement" {
		t.Errorf("got %q", ScopeStatement.String())
	}
	if ScopeConnection.String() != "connection" {
		t.Errorf("got %q", ScopeConnection.String())
	}
}
