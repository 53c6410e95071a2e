package oracle

import (
	"math"

	"github.com/quorumlab/faultprobe/protocol"
)

// RequiredAcks calculates the number of replica acknowledgements a write
// needs before the coordinator may report success.
//
// ANY is special: the write is durably recorded through a coordinator-side
// hint even when every replica rejects it, so it carries no replica ack
// threshold at all. That case is reported through hinted rather than a
// count, and callers must branch on it instead of treating zero as a
// threshold. Datacenter-local levels are modeled against a single
// datacenter, so LOCAL_QUORUM and EACH_QUORUM collapse to QUORUM.
func RequiredAcks(level protocol.ConsistencyLevel, rf int) (acks int, hinted bool, err error) {
	if rf < 1 {
		return 0, false, protocol.NewConfigurationError("replication factor must be >= 1, got %d", rf)
	}

	switch level {
	case protocol.ConsistencyAny:
		return 0, true, nil

	case protocol.ConsistencyOne, protocol.ConsistencyLocalOne:
		return 1, false, nil

	case protocol.ConsistencyTwo:
		return 2, false, nil

	case protocol.ConsistencyThree:
		return 3, false, nil

	case protocol.ConsistencyQuorum, protocol.ConsistencyLocalQuorum, protocol.ConsistencyEachQuorum:
		// Majority: floor(RF/2) + 1
		return int(math.Floor(float64(rf)/2)) + 1, false, nil

	case protocol.ConsistencyAll:
		return rf, false, nil

	default:
		return 0, false, protocol.NewConfigurationError("unknown consistency level: %v", level)
	}
}

// PaxosQuorum is the consensus-round majority a conditional write must
// collect, independent of the configured consistency level.
func PaxosQuorum(rf int) int {
	return rf/2 + 1
}

// ValidateLevel rejects level/RF combinations that can never be satisfied,
// so the harness can abort before touching the cluster.
func ValidateLevel(level protocol.ConsistencyLevel, rf int) error {
	required, hinted, err := RequiredAcks(level, rf)
	if err != nil {
		return err
	}
	if hinted {
		return nil
	}
	if required > rf {
		return protocol.NewConfigurationError(
			"consistency level %v requires %d acks, but replication factor is %d", level, required, rf)
	}
	return nil
}
