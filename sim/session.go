package sim

import (
	"context"
	"fmt"
	"regexp"
	"sync/atomic"

	"github.com/quorumlab/faultprobe/driver"
	"github.com/quorumlab/faultprobe/protocol"
)

// session is a client connection pinned to one coordinator node and one
// protocol version. Restarting the node invalidates the session; callers
// must reconnect, the same way a real client loses its TCP connection.
type session struct {
	cluster    *Cluster
	nodeID     uint64
	generation uint64
	version    protocol.Version
	closed     atomic.Bool
}

// Connect establishes a session against a node at the given protocol
// version. Fails while the node is down or still starting up.
func (c *Cluster) Connect(ctx context.Context, nodeID uint64, version protocol.Version) (driver.Session, error) {
	if err := version.Validate(); err != nil {
		return nil, err
	}
	nd, ok := c.nodes.Load(nodeID)
	if !ok {
		return nil, fmt.Errorf("unknown node %d", nodeID)
	}
	if !nd.isReady() {
		return nil, fmt.Errorf("node %d: connection refused", nodeID)
	}
	return &session{
		cluster:    c,
		nodeID:     nodeID,
		generation: nd.currentGeneration(),
		version:    version,
	}, nil
}

var innerStatementRe = regexp.MustCompile(`(?im)^\s*(INSERT|UPDATE|DELETE)\b`)

// Execute submits one statement at the given consistency level. The result
// comes back as a typed client error, or nil on success.
func (s *session) Execute(ctx context.Context, stmt protocol.Statement, level protocol.ConsistencyLevel) error {
	if s.closed.Load() {
		return fmt.Errorf("session closed")
	}

	nd, ok := s.cluster.nodes.Load(s.nodeID)
	if !ok {
		return fmt.Errorf("unknown node %d", s.nodeID)
	}
	if !nd.isUp() || nd.currentGeneration() != s.generation {
		return fmt.Errorf("session invalidated: node %d restarted", s.nodeID)
	}

	req := writeRequest{
		Keyspace: stmt.Keyspace,
		Level:    int(level),
		Version:  int(s.version),
		Batch:    stmt.Kind == protocol.StatementBatch,
		Parts:    buildParts(stmt),
	}

	frame, err := marshalFrame(&req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	respFrame := s.cluster.dispatch(frame)

	var resp writeResponse
	if err := unmarshalFrame(respFrame, &resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return responseError(&resp, level)
}

func (s *session) Close() error {
	s.closed.Store(true)
	return nil
}

// buildParts splits a batch into its contained statements; non-batch
// statements are a single part. Inner batch statements share the outer
// statement's partition key and table, which is all the replica math needs.
func buildParts(stmt protocol.Statement) []writePart {
	if stmt.Kind != protocol.StatementBatch {
		return []writePart{{Table: stmt.Table, Key: stmt.Key, Kind: int(stmt.Kind)}}
	}

	count := len(innerStatementRe.FindAllString(stmt.Text, -1))
	if count == 0 {
		count = 1
	}
	parts := make([]writePart, count)
	for i := range parts {
		parts[i] = writePart{Table: stmt.Table, Key: stmt.Key, Kind: int(protocol.StatementSimple)}
	}
	return parts
}

// responseError converts a response frame into the typed error the client
// library would raise, or nil for success.
func responseError(resp *writeResponse, level protocol.ConsistencyLevel) error {
	switch resp.Status {
	case statusOK:
		return nil
	case statusWriteTimeout:
		return &driver.WriteTimeoutError{
			Level:     level,
			Received:  resp.Received,
			Required:  resp.Required,
			WriteType: resp.WriteType,
		}
	case statusWriteFailure:
		return &driver.WriteFailureError{
			Level:     level,
			Received:  resp.Received,
			Required:  resp.Required,
			Failures:  resp.Failures,
			WriteType: resp.WriteType,
		}
	case statusUnavailable:
		return &driver.UnavailableError{
			Level:    level,
			Required: resp.Required,
			Alive:    resp.Alive,
		}
	default:
		return fmt.Errorf("server error: %s", resp.Message)
	}
}
