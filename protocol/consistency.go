package protocol

import "fmt"

// ConsistencyLevel defines how many replica acknowledgements a write must
// collect before the coordinator reports it successful.
type ConsistencyLevel int

const (
	ConsistencyAny         ConsistencyLevel = iota // Durable via coordinator hint, no replica ack needed
	ConsistencyOne                                 // Any single replica
	ConsistencyTwo                                 // Two replicas
	ConsistencyThree                               // Three replicas
	ConsistencyQuorum                              // Majority of replicas (floor(RF/2) + 1)
	ConsistencyAll                                 // Every replica
	ConsistencyLocalOne                            // One replica in the local datacenter
	ConsistencyLocalQuorum                         // Majority in the local datacenter
	ConsistencyEachQuorum                          // Majority in every datacenter
)

// String returns string representation of consistency level
func (c ConsistencyLevel) String() string {
	switch c {
	case ConsistencyAny:
		return "ANY"
	case ConsistencyOne:
		return "ONE"
	case ConsistencyTwo:
		return "TWO"
	case ConsistencyThree:
		return "THREE"
	case ConsistencyQuorum:
		return "QUORUM"
	case ConsistencyAll:
		return "ALL"
	case ConsistencyLocalOne:
		return "LOCAL_ONE"
	case ConsistencyLocalQuorum:
		return "LOCAL_QUORUM"
	case ConsistencyEachQuorum:
		return "EACH_QUORUM"
	default:
		return "UNKNOWN"
	}
}

// ParseConsistencyLevel parses a string into ConsistencyLevel
func ParseConsistencyLevel(s string) (ConsistencyLevel, error) {
	switch s {
	case "ANY":
		return ConsistencyAny, nil
	case "ONE":
		return ConsistencyOne, nil
	case "TWO":
		return ConsistencyTwo, nil
	case "THREE":
		return ConsistencyThree, nil
	case "QUORUM":
		return ConsistencyQuorum, nil
	case "ALL":
		return ConsistencyAll, nil
	case "LOCAL_ONE":
		return ConsistencyLocalOne, nil
	case "LOCAL_QUORUM":
		return ConsistencyLocalQuorum, nil
	case "EACH_QUORUM":
		return ConsistencyEachQuorum, nil
	default:
		return ConsistencyOne, fmt.Errorf("unknown consistency level: %s", s)
	}
}
