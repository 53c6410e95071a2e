package protocol

import (
	"fmt"
	"regexp"
	"strings"
)

// StatementKind classifies a write statement by the failure semantics it
// carries on the replica path.
type StatementKind int

const (
	StatementSimple      StatementKind = iota // Plain INSERT/UPDATE/DELETE
	StatementBatch                            // BEGIN BATCH ... APPLY BATCH
	StatementCounter                          // Counter column update
	StatementConditional                      // Guarded by a consensus round (IF NOT EXISTS / IF ...)
)

// String returns string representation of statement kind
func (k StatementKind) String() string {
	switch k {
	case StatementSimple:
		return "SIMPLE"
	case StatementBatch:
		return "BATCH"
	case StatementCounter:
		return "COUNTER"
	case StatementConditional:
		return "CONDITIONAL"
	default:
		return "UNKNOWN"
	}
}

// ParseStatementKind parses a string into StatementKind
func ParseStatementKind(s string) (StatementKind, error) {
	switch s {
	case "SIMPLE":
		return StatementSimple, nil
	case "BATCH":
		return StatementBatch, nil
	case "COUNTER":
		return StatementCounter, nil
	case "CONDITIONAL":
		return StatementConditional, nil
	default:
		return StatementSimple, fmt.Errorf("unknown statement kind: %s", s)
	}
}

// Statement represents a single write statement submitted to the cluster.
type Statement struct {
	Text     string
	Kind     StatementKind
	Keyspace string
	Table    string
	Key      string
}

var (
	batchRe       = regexp.MustCompile(`(?is)^\s*BEGIN\s+(UNLOGGED\s+|COUNTER\s+)?BATCH\b`)
	conditionalRe = regexp.MustCompile(`(?is)\bIF\s+(NOT\s+EXISTS|EXISTS|\w+\s*=)`)
	counterRe     = regexp.MustCompile(`(?is)\bSET\s+\w+\s*=\s*\w+\s*[+-]\s*\d+`)
)

// ClassifyStatement infers the statement kind from its text. Explicit kinds
// on a Statement always win; this exists for ad-hoc statements where only the
// text is known.
func ClassifyStatement(text string) StatementKind {
	switch {
	case batchRe.MatchString(text):
		if strings.Contains(strings.ToUpper(text), "COUNTER BATCH") {
			return StatementCounter
		}
		return StatementBatch
	case conditionalRe.MatchString(text):
		return StatementConditional
	case counterRe.MatchString(text):
		return StatementCounter
	default:
		return StatementSimple
	}
}
