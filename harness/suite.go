package harness

import (
	"github.com/quorumlab/faultprobe/protocol"
)

const (
	insertStatement = "INSERT INTO mytable (key, value) VALUES ('key1', 'Value 1')"

	batchStatement = "BEGIN BATCH\n" +
		"INSERT INTO mytable (key, value) VALUES ('key1', 'Value 1')\n" +
		"INSERT INTO mytable (key, value) VALUES ('key1', 'Value 2')\n" +
		"APPLY BATCH"

	counterStatement = "UPDATE countertable SET value = value + 1 WHERE key = 'key1'"

	conditionalStatement = "INSERT INTO mytable (key, value) VALUES ('key1', 'Value 1') IF NOT EXISTS"
)

// DefaultSuite is the built-in scenario matrix: every statement kind
// crossed with the consistency levels and protocol versions whose
// interplay decides the failure signal. All scenarios share one 3-node,
// RF 3 topology, so the whole suite runs against a single environment.
func DefaultSuite() []Scenario {
	base := func(name, desc, stmt string, level protocol.ConsistencyLevel,
		version protocol.Version, failing ...uint64) Scenario {

		sc := Scenario{
			Name:              name,
			Description:       desc,
			ReplicationFactor: 3,
			Level:             level,
			Version:           version,
			Kind:              protocol.ClassifyStatement(stmt),
			Statement:         stmt,
			FailingNodes:      failing,
		}
		sc.applyDefaults()
		return sc
	}

	return []Scenario{
		base("mutation-all-v2",
			"majority rejecting at ALL on a legacy connection degrades to a timeout",
			insertStatement, protocol.ConsistencyAll, protocol.Version2, 2, 3),
		base("mutation-all-v3",
			"the last legacy version still cannot carry an explicit failure",
			insertStatement, protocol.ConsistencyAll, protocol.Version3, 2, 3),
		base("mutation-all-v4",
			"the modern connection names the rejecting replicas",
			insertStatement, protocol.ConsistencyAll, protocol.Version4, 2, 3),
		base("mutation-any-all-rejecting",
			"coordinator hints make ANY succeed with every replica rejecting",
			insertStatement, protocol.ConsistencyAny, protocol.Version4, 1, 2, 3),
		base("mutation-one-all-rejecting",
			"ONE still needs a real acknowledgment, hints do not count",
			insertStatement, protocol.ConsistencyOne, protocol.Version4, 1, 2, 3),
		base("mutation-quorum-minority",
			"a rejecting minority is absorbed at QUORUM",
			insertStatement, protocol.ConsistencyQuorum, protocol.Version4, 2),
		base("mutation-quorum-majority",
			"a rejecting majority breaks QUORUM",
			insertStatement, protocol.ConsistencyQuorum, protocol.Version4, 2, 3),
		base("batch-all-v4",
			"a batch reports the first failing contained statement, no partial success",
			batchStatement, protocol.ConsistencyAll, protocol.Version4, 2, 3),
		base("batch-all-v2",
			"batch failures degrade to timeouts on legacy connections too",
			batchStatement, protocol.ConsistencyAll, protocol.Version2, 2, 3),
		base("counter-all-v4",
			"counter writes classify like plain mutations",
			counterStatement, protocol.ConsistencyAll, protocol.Version4, 2, 3),
		base("paxos-quorum-majority",
			"a rejecting majority denies the consensus round its quorum",
			conditionalStatement, protocol.ConsistencyQuorum, protocol.Version4, 2, 3),
		base("paxos-quorum-minority",
			"the consensus round carries past a rejecting minority",
			conditionalStatement, protocol.ConsistencyQuorum, protocol.Version4, 3),
		base("paxos-any-majority",
			"no hint can stand in for a refused ballot, so ANY does not rescue a conditional write",
			conditionalStatement, protocol.ConsistencyAny, protocol.Version4, 2, 3),
	}
}
