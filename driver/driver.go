package driver

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/quorumlab/faultprobe/protocol"
	"github.com/quorumlab/faultprobe/telemetry"
)

// Session is a client connection negotiated at a protocol version. After the
// node it points at restarts, the session is dead and must be re-established
// through the Connector.
type Session interface {
	Execute(ctx context.Context, stmt protocol.Statement, level protocol.ConsistencyLevel) error
	Close() error
}

// Connector establishes sessions against cluster nodes.
type Connector interface {
	Connect(ctx context.Context, nodeID uint64, version protocol.Version) (Session, error)
}

// preparedCacheSize bounds the statement classification cache per driver.
const preparedCacheSize = 512

// Driver submits single statements and normalizes whatever the client
// returns into the shared outcome taxonomy. Downstream comparisons only
// ever see the normalized form.
type Driver struct {
	timeout  time.Duration
	prepared *lru.Cache[string, protocol.StatementKind]
}

// New creates a driver. The timeout bounds one blocking statement
// execution; on expiry it is reported as a timeout outcome, never a hang.
func New(timeout time.Duration) *Driver {
	cache, _ := lru.New[string, protocol.StatementKind](preparedCacheSize)
	return &Driver{
		timeout:  timeout,
		prepared: cache,
	}
}

// Prepare classifies a statement text, caching the classification the way a
// client caches prepared statements.
func (d *Driver) Prepare(text, keyspace, table, key string) protocol.Statement {
	kind, ok := d.prepared.Get(text)
	if !ok {
		kind = protocol.ClassifyStatement(text)
		d.prepared.Add(text, kind)
	}
	return protocol.Statement{
		Text:     text,
		Kind:     kind,
		Keyspace: keyspace,
		Table:    table,
		Key:      key,
	}
}

// Execute submits one statement through the session and returns the
// normalized outcome. The error return is reserved for normalization
// failures; failed writes are outcomes, not errors.
func (d *Driver) Execute(ctx context.Context, session Session, stmt protocol.Statement,
	level protocol.ConsistencyLevel, version protocol.Version) (protocol.Outcome, error) {

	execCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	execErr := session.Execute(execCtx, stmt, level)
	telemetry.StatementSeconds.Observe(time.Since(start).Seconds())

	outcome, err := Normalize(execErr, version)
	if err != nil {
		telemetry.NormalizationErrorsTotal.Inc()
		return protocol.Outcome{}, err
	}

	telemetry.StatementsTotal.With(outcome.Kind.String()).Inc()
	log.Debug().
		Str("statement", stmt.Kind.String()).
		Str("level", level.String()).
		Str("outcome", outcome.String()).
		Msg("Statement executed")

	return outcome, nil
}
