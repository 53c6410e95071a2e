package protocol

import "fmt"

// OutcomeKind tags the normalized result class of a write.
type OutcomeKind int

const (
	OutcomeSuccess        OutcomeKind = iota // Write acknowledged at the requested level
	OutcomeTimeout                           // Legacy failure signal: rejection indistinguishable from loss
	OutcomePartialFailure                    // Explicit failure signal naming rejecting replicas
)

// String returns string representation of outcome kind
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeTimeout:
		return "TIMEOUT"
	case OutcomePartialFailure:
		return "PARTIAL_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Outcome is the normalized result of one write, shared by the oracle and
// the execution driver. Values are immutable once produced; every comparison
// downstream uses this form, never a collaborator error type.
type Outcome struct {
	Kind OutcomeKind
	// FailedReplicas is the number of replicas that explicitly rejected the
	// write. Only meaningful for OutcomePartialFailure.
	FailedReplicas int
}

// Success returns the success outcome.
func Success() Outcome {
	return Outcome{Kind: OutcomeSuccess}
}

// Timeout returns the legacy timeout outcome.
func Timeout() Outcome {
	return Outcome{Kind: OutcomeTimeout}
}

// PartialFailure returns a failure outcome carrying the count of replicas
// that explicitly rejected the write.
func PartialFailure(failedReplicas int) Outcome {
	return Outcome{Kind: OutcomePartialFailure, FailedReplicas: failedReplicas}
}

// Equal reports whether two outcomes are the same, including the rejecting
// replica count for partial failures.
func (o Outcome) Equal(other Outcome) bool {
	if o.Kind != other.Kind {
		return false
	}
	if o.Kind == OutcomePartialFailure {
		return o.FailedReplicas == other.FailedReplicas
	}
	return true
}

func (o Outcome) String() string {
	if o.Kind == OutcomePartialFailure {
		return fmt.Sprintf("PARTIAL_FAILURE(failed_replicas=%d)", o.FailedReplicas)
	}
	return o.Kind.String()
}
