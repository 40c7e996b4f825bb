// Package guard holds the sentinel rule and the abort signal it raises.
//
// A sentinel (canary) value is planted in a table specifically to detect
// unauthorized reads. The rule names one relation, one column, and one value;
// the executor consults it on every row of every SELECT. The rule is built
// once at process startup and cannot be changed afterward; no setter API
// exists at all.
package guard

import "strings"

// RelationID identifies a registered relation. Zero is reserved for rows
// whose source relation is unknown (joins, subqueries, expressions); such
// rows are never inspected.
type RelationID uint32

// InvalidRelation is the untagged relation ID.
const InvalidRelation RelationID = 0

// Rule is the immutable sentinel configuration shared read-only by every
// query execution in the process.
type Rule struct {
	relation      RelationID
	column        int // 1-based ordinal
	value         string
	statementOnly bool
}

// NewRule builds the process-lifetime sentinel rule.
// relation is the target relation ID, column the 1-based ordinal of the
// guarded column, value the sentinel string, and statementOnly selects
// statement-scoped aborts instead of the default connection-scoped ones.
func NewRule(relation RelationID, column int, value string, statementOnly bool) *Rule {
	return &Rule{
		relation:      relation,
		column:        column,
		value:         value,
		statementOnly: statementOnly,
	}
}

// Disarmed returns a rule that never matches.
func Disarmed() *Rule {
	return &Rule{}
}

// Enabled reports whether the rule can ever fire.
func (r *Rule) Enabled() bool {
	return r != nil && r.relation != InvalidRelation && r.column > 0 && r.value != ""
}

// Relation returns the guarded relation ID.
func (r *Rule) Relation() RelationID { return r.relation }

// Column returns the guarded 1-based column ordinal.
func (r *Rule) Column() int { return r.column }

// StatementOnly reports whether a match aborts only the statement rather
// than the whole connection.
func (r *Rule) StatementOnly() bool { return r.statementOnly }

// Matches reports whether the text rendering of a column value trips the
// rule. The comparison is a prefix match bounded by the sentinel's own
// length, so tagged values such as "SENTINEL-123" trip a "SENTINEL" rule.
// An empty candidate never matches.
func (r *Rule) Matches(candidate string) bool {
	if !r.Enabled() || candidate == "" {
		return false
	}
	return strings.HasPrefix(candidate, r.value)
}

// Abort returns the abort signal for this rule's configured scope.
func (r *Rule) Abort() *AbortError {
	scope := ScopeConnection
	if r.statementOnly {
		scope = ScopeStatement
	}
	return &AbortError{scope: scope}
}
