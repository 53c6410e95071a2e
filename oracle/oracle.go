package oracle

import (
	"github.com/quorumlab/faultprobe/protocol"
)

// Predict computes the outcome a write must produce given the replication
// factor, the number of replicas rejecting writes for the keyspace, the
// requested consistency level, the negotiated protocol version and the
// statement kind. Every non-failing replica is assumed to acknowledge.
//
// Pure and deterministic: identical inputs always yield identical outcomes.
func Predict(rf, failing int, level protocol.ConsistencyLevel,
	version protocol.Version, kind protocol.StatementKind) (protocol.Outcome, error) {

	if rf < 1 {
		return protocol.Outcome{}, protocol.NewConfigurationError("replication factor must be >= 1, got %d", rf)
	}
	if failing < 0 || failing > rf {
		return protocol.Outcome{}, protocol.NewConfigurationError(
			"failing replica count %d out of range [0, %d]", failing, rf)
	}
	if err := version.Validate(); err != nil {
		return protocol.Outcome{}, protocol.NewConfigurationError("%v", err)
	}

	required, hinted, err := RequiredAcks(level, rf)
	if err != nil {
		return protocol.Outcome{}, err
	}

	acksAvailable := rf - failing

	// Conditional writes first run a consensus round that needs its own
	// majority, and that round is NOT covered by the ANY hint exemption: a
	// conditional write at ANY must still fail when the round's quorum is
	// unattainable. This asymmetry is intentional and modeled explicitly
	// here rather than derived from the general ANY rule below.
	if kind == protocol.StatementConditional && acksAvailable < PaxosQuorum(rf) {
		return failureOutcome(version, failing), nil
	}

	// ANY writes are durable through a coordinator hint even when every
	// replica rejects; a conditional write that survived its consensus
	// round gets the same exemption for the commit phase.
	if hinted {
		return protocol.Success(), nil
	}

	if acksAvailable >= required {
		return protocol.Success(), nil
	}

	return failureOutcome(version, failing), nil
}

// BatchPart is one statement inside a batch, with the number of replicas
// that would reject it under the scenario's topology.
type BatchPart struct {
	Kind    protocol.StatementKind
	Failing int
}

// PredictBatch predicts the outcome of a batch. A batch has no partial
// success from the caller's perspective: if any contained statement would
// fail, the whole batch reports that failure.
func PredictBatch(rf int, level protocol.ConsistencyLevel, version protocol.Version,
	parts []BatchPart) (protocol.Outcome, error) {

	if len(parts) == 0 {
		return protocol.Outcome{}, protocol.NewConfigurationError("batch must contain at least one statement")
	}

	for _, part := range parts {
		outcome, err := Predict(rf, part.Failing, level, version, part.Kind)
		if err != nil {
			return protocol.Outcome{}, err
		}
		if outcome.Kind != protocol.OutcomeSuccess {
			return outcome, nil
		}
	}
	return protocol.Success(), nil
}

// failureOutcome classifies a failed write by protocol version. Before the
// write-failure threshold the client cannot distinguish an explicit
// rejection from an unreachable replica, so the signal degrades to a
// timeout. From the threshold on, the response names how many replicas
// explicitly rejected.
func failureOutcome(version protocol.Version, failing int) protocol.Outcome {
	if version.SupportsWriteFailure() {
		return protocol.PartialFailure(failing)
	}
	return protocol.Timeout()
}
