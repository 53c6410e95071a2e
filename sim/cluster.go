package sim

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"

	"github.com/quorumlab/faultprobe/protocol"
)

// keyspace holds the replication settings and tables of one keyspace.
type keyspace struct {
	name   string
	rf     int
	tables *xsync.MapOf[string, string]
}

// Cluster is the in-process reference cluster. It satisfies the harness
// collaborator interfaces: fault.ClusterControl, driver.Connector and the
// schema bootstrap.
type Cluster struct {
	nodes        *xsync.MapOf[uint64, *node]
	keyspaces    *xsync.MapOf[string, *keyspace]
	readyDelay   time.Duration
	pollInterval time.Duration

	// hintsStored counts coordinator hints taken for rejected or dead
	// replicas on ANY-level writes.
	hintsStored *xsync.Counter
}

// NewCluster builds a cluster of n nodes, all started and ready.
func NewCluster(n int) *Cluster {
	c := &Cluster{
		nodes:        xsync.NewMapOf[uint64, *node](),
		keyspaces:    xsync.NewMapOf[string, *keyspace](),
		readyDelay:   5 * time.Millisecond,
		pollInterval: time.Millisecond,
		hintsStored:  xsync.NewCounter(),
	}
	for i := 1; i <= n; i++ {
		nd := &node{id: uint64(i)}
		nd.start(nil, 0)
		c.nodes.Store(uint64(i), nd)
	}
	return c
}

// SetTiming tunes node startup latency and the readiness poll interval.
// Zero values keep the current setting.
func (c *Cluster) SetTiming(readyDelay, pollInterval time.Duration) {
	if readyDelay > 0 {
		c.readyDelay = readyDelay
	}
	if pollInterval > 0 {
		c.pollInterval = pollInterval
	}
}

// HintsStored returns how many coordinator hints have been taken.
func (c *Cluster) HintsStored() int64 {
	return c.hintsStored.Value()
}

// ---- fault.ClusterControl ----

// StartNode boots a node with the given startup arguments.
func (c *Cluster) StartNode(ctx context.Context, id uint64, args []string) error {
	nd, ok := c.nodes.Load(id)
	if !ok {
		return fmt.Errorf("unknown node %d", id)
	}
	nd.start(args, c.readyDelay)
	return nil
}

// StopNode shuts a node down.
func (c *Cluster) StopNode(ctx context.Context, id uint64) error {
	nd, ok := c.nodes.Load(id)
	if !ok {
		return fmt.Errorf("unknown node %d", id)
	}
	nd.stop()
	return nil
}

// RestartNode stops the node and starts it with the extra arguments. Every
// session connected to it is invalidated.
func (c *Cluster) RestartNode(ctx context.Context, id uint64, extraArgs []string) error {
	nd, ok := c.nodes.Load(id)
	if !ok {
		return fmt.Errorf("unknown node %d", id)
	}
	nd.stop()
	nd.start(extraArgs, c.readyDelay)
	log.Trace().Uint64("node_id", id).Str("args", nd.describeArgs()).Msg("Node restarted")
	return nil
}

// WaitReady blocks until the node accepts requests, or the context ends.
func (c *Cluster) WaitReady(ctx context.Context, id uint64) error {
	nd, ok := c.nodes.Load(id)
	if !ok {
		return fmt.Errorf("unknown node %d", id)
	}
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		if nd.isReady() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ---- schema bootstrap ----

// CreateKeyspace creates a keyspace with the given replication factor.
// Idempotent: an existing keyspace is left untouched.
func (c *Cluster) CreateKeyspace(ctx context.Context, name string, rf int) error {
	if rf < 1 {
		return fmt.Errorf("replication factor must be >= 1, got %d", rf)
	}
	c.keyspaces.LoadOrStore(name, &keyspace{
		name:   name,
		rf:     rf,
		tables: xsync.NewMapOf[string, string](),
	})
	return nil
}

// CreateTable registers a table in the keyspace. Idempotent.
func (c *Cluster) CreateTable(ctx context.Context, ksName, table, schema string) error {
	ks, ok := c.keyspaces.Load(ksName)
	if !ok {
		return fmt.Errorf("unknown keyspace %q", ksName)
	}
	ks.tables.LoadOrStore(table, schema)
	return nil
}

// DropKeyspace removes a keyspace, for cleanup between topologies.
func (c *Cluster) DropKeyspace(ctx context.Context, name string) error {
	c.keyspaces.Delete(name)
	return nil
}

// ---- replica placement ----

// replicasFor picks the rf replicas holding a partition key, walking a ring
// of node IDs starting at the key's token.
func (c *Cluster) replicasFor(key string, rf int) []*node {
	ids := make([]uint64, 0, c.nodes.Size())
	c.nodes.Range(func(id uint64, _ *node) bool {
		ids = append(ids, id)
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if rf > len(ids) {
		rf = len(ids)
	}

	start := int(xxhash.Sum64String(key) % uint64(len(ids)))
	replicas := make([]*node, 0, rf)
	for i := 0; i < rf; i++ {
		nd, _ := c.nodes.Load(ids[(start+i)%len(ids)])
		replicas = append(replicas, nd)
	}
	return replicas
}

// quorumFor is the coordinator's own ack threshold table. The harness
// oracle computes the same arithmetic independently; that duplication is
// the point, since the oracle exists to check this side.
func quorumFor(level protocol.ConsistencyLevel, rf int) int {
	switch level {
	case protocol.ConsistencyOne, protocol.ConsistencyLocalOne:
		return 1
	case protocol.ConsistencyTwo:
		return 2
	case protocol.ConsistencyThree:
		return 3
	case protocol.ConsistencyAll:
		return rf
	default:
		return rf/2 + 1
	}
}
