package topology

import (
	"fmt"
	"sync"

	"github.com/quorumlab/faultprobe/protocol"
)

// Role describes what part a node plays in a scenario.
type Role int

const (
	RoleReplica     Role = iota // Holds a copy of the keyspace data
	RoleCoordinator             // Entry point for the scenario's statements
)

func (r Role) String() string {
	switch r {
	case RoleReplica:
		return "replica"
	case RoleCoordinator:
		return "coordinator"
	default:
		return "unknown"
	}
}

// Node is one member of the topology. The failing set records, per keyspace,
// whether the node has been restarted with write rejection enabled.
type Node struct {
	ID      uint64
	Address string
	Role    Role

	mu        sync.RWMutex
	rejecting map[string]bool
}

// IsFailing reports whether the node rejects writes for the keyspace.
func (n *Node) IsFailing(keyspace string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.rejecting[keyspace]
}

func (n *Node) setFailing(keyspace string, failing bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.rejecting == nil {
		n.rejecting = make(map[string]bool)
	}
	if failing {
		n.rejecting[keyspace] = true
	} else {
		delete(n.rejecting, keyspace)
	}
}

func (n *Node) clearFailing() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejecting = nil
}

// Topology is an ordered set of nodes replicating one keyspace. It is
// rebuilt per scenario; the failing set never survives a Reset.
type Topology struct {
	Keyspace          string
	ReplicationFactor int
	nodes             []*Node
}

// New builds a topology of n nodes replicating keyspace at the given
// replication factor. Node 1 doubles as the coordinator, matching the
// layout the harness connects to.
func New(keyspace string, rf, n int) (*Topology, error) {
	if n < 1 {
		return nil, protocol.NewConfigurationError("topology needs at least one node, got %d", n)
	}
	if rf < 1 {
		return nil, protocol.NewConfigurationError("replication factor must be >= 1, got %d", rf)
	}
	if rf > n {
		return nil, protocol.NewConfigurationError("replication factor %d exceeds node count %d", rf, n)
	}
	if keyspace == "" {
		return nil, protocol.NewConfigurationError("keyspace name is required")
	}

	nodes := make([]*Node, n)
	for i := range nodes {
		role := RoleReplica
		if i == 0 {
			role = RoleCoordinator
		}
		nodes[i] = &Node{
			ID:      uint64(i + 1),
			Address: fmt.Sprintf("127.0.0.1:%d", 9042+i),
			Role:    role,
		}
	}

	return &Topology{
		Keyspace:          keyspace,
		ReplicationFactor: rf,
		nodes:             nodes,
	}, nil
}

// Nodes returns the ordered node list.
func (t *Topology) Nodes() []*Node {
	return t.nodes
}

// Node returns the node with the given ID, or nil.
func (t *Topology) Node(id uint64) *Node {
	for _, n := range t.nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Coordinator returns the node the harness connects its sessions to.
func (t *Topology) Coordinator() *Node {
	return t.nodes[0]
}

// MarkFailing flags a node as rejecting writes for a keyspace. Returns a
// ConfigurationError if the node is not part of the topology; the failing
// set must always be a subset of the topology.
func (t *Topology) MarkFailing(id uint64, keyspace string) error {
	n := t.Node(id)
	if n == nil {
		return protocol.NewConfigurationError("failing node %d is not part of the topology", id)
	}
	n.setFailing(keyspace, true)
	return nil
}

// ClearFailing removes the rejecting flag for a keyspace on one node.
func (t *Topology) ClearFailing(id uint64, keyspace string) error {
	n := t.Node(id)
	if n == nil {
		return protocol.NewConfigurationError("node %d is not part of the topology", id)
	}
	n.setFailing(keyspace, false)
	return nil
}

// FailingCount returns how many nodes reject writes for the keyspace.
func (t *Topology) FailingCount(keyspace string) int {
	count := 0
	for _, n := range t.nodes {
		if n.IsFailing(keyspace) {
			count++
		}
	}
	return count
}

// FailingIDs returns the IDs of nodes rejecting writes for the keyspace.
func (t *Topology) FailingIDs(keyspace string) []uint64 {
	var ids []uint64
	for _, n := range t.nodes {
		if n.IsFailing(keyspace) {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// Reset clears every failing flag on every node. Called between scenarios
// so no injected fault leaks across scenario boundaries.
func (t *Topology) Reset() {
	for _, n := range t.nodes {
		n.clearFailing()
	}
}
