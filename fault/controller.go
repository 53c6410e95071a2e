package fault

import (
	"context"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"

	"github.com/quorumlab/faultprobe/protocol"
	"github.com/quorumlab/faultprobe/telemetry"
	"github.com/quorumlab/faultprobe/topology"
)

// rejectWritesFlag is the startup flag that makes a node reject writes for
// the keyspaces matching the given pattern. All other keyspaces on the node
// stay unaffected.
const rejectWritesFlag = "-reject-writes-ks="

// RejectWritesArg builds the startup argument enabling scoped write
// rejection for keyspaces matching pattern.
func RejectWritesArg(pattern string) string {
	return rejectWritesFlag + pattern
}

// ParseRejectWritesArg extracts the keyspace pattern from a startup
// argument, if it is the write-rejection flag.
func ParseRejectWritesArg(arg string) (string, bool) {
	if !strings.HasPrefix(arg, rejectWritesFlag) {
		return "", false
	}
	return strings.TrimPrefix(arg, rejectWritesFlag), true
}

// ClusterControl is the collaborator operating cluster node processes. The
// controller owns no process lifecycle itself.
type ClusterControl interface {
	StartNode(ctx context.Context, id uint64, args []string) error
	StopNode(ctx context.Context, id uint64) error
	RestartNode(ctx context.Context, id uint64, extraArgs []string) error
	// WaitReady blocks until the node accepts requests again.
	WaitReady(ctx context.Context, id uint64) error
}

// Controller drives node restarts to activate and deactivate write
// rejection scoped to a keyspace. Injection is inherently serializing: a
// restart blocks the calling scenario until the node reports ready.
type Controller struct {
	control      ClusterControl
	readyTimeout time.Duration
}

const defaultReadyTimeout = 10 * time.Second

// NewController creates a fault injection controller.
func NewController(control ClusterControl) *Controller {
	return &Controller{control: control, readyTimeout: defaultReadyTimeout}
}

// SetReadyTimeout bounds how long a restarted node may take to report
// ready before the injection fails.
func (c *Controller) SetReadyTimeout(d time.Duration) {
	if d > 0 {
		c.readyTimeout = d
	}
}

// EnableFailure restarts each targeted node with write rejection scoped to
// keyspaces matching pattern. A restart that does not complete is fatal for
// the scenario and surfaces as an InfrastructureError; the expectation is
// never silently downgraded. Nodes already restarted are rolled back so a
// partial injection cannot leak into the next scenario.
func (c *Controller) EnableFailure(ctx context.Context, topo *topology.Topology, ids []uint64, pattern string) error {
	g, err := glob.Compile(pattern)
	if err != nil {
		return protocol.NewConfigurationError("invalid keyspace pattern %q: %v", pattern, err)
	}

	for _, id := range ids {
		if topo.Node(id) == nil {
			return protocol.NewConfigurationError("failing node %d is not part of the topology", id)
		}
	}

	injected := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if err := c.restart(ctx, id, []string{RejectWritesArg(pattern)}, "enable"); err != nil {
			c.rollback(topo, injected, pattern)
			return err
		}
		injected = append(injected, id)
		if g.Match(topo.Keyspace) {
			if err := topo.MarkFailing(id, topo.Keyspace); err != nil {
				return err
			}
		}
		log.Debug().
			Uint64("node_id", id).
			Str("pattern", pattern).
			Str("keyspace", topo.Keyspace).
			Msg("Write rejection enabled")
	}
	return nil
}

// DisableFailure restarts the targeted nodes without the rejection flag and
// clears their failing marks.
func (c *Controller) DisableFailure(ctx context.Context, topo *topology.Topology, ids []uint64) error {
	for _, id := range ids {
		if topo.Node(id) == nil {
			return protocol.NewConfigurationError("node %d is not part of the topology", id)
		}
	}

	for _, id := range ids {
		if err := c.restart(ctx, id, nil, "disable"); err != nil {
			return err
		}
		if err := topo.ClearFailing(id, topo.Keyspace); err != nil {
			return err
		}
		log.Debug().Uint64("node_id", id).Msg("Write rejection disabled")
	}
	return nil
}

// Rollback clears any fault still injected into the topology. Called on
// cancellation between scenario steps so no fault crosses a scenario
// boundary. Best effort on the restarts, but the failing set is always
// cleared.
func (c *Controller) Rollback(ctx context.Context, topo *topology.Topology) error {
	ids := topo.FailingIDs(topo.Keyspace)
	var firstErr error
	for _, id := range ids {
		if err := c.restart(ctx, id, nil, "rollback"); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	topo.Reset()
	return firstErr
}

func (c *Controller) restart(ctx context.Context, id uint64, extraArgs []string, direction string) error {
	start := time.Now()

	if err := c.control.RestartNode(ctx, id, extraArgs); err != nil {
		telemetry.InfrastructureErrorsTotal.Inc()
		return &protocol.InfrastructureError{NodeID: id, Op: "restart", Err: err}
	}
	waitCtx, cancel := context.WithTimeout(ctx, c.readyTimeout)
	defer cancel()
	if err := c.control.WaitReady(waitCtx, id); err != nil {
		telemetry.InfrastructureErrorsTotal.Inc()
		return &protocol.InfrastructureError{NodeID: id, Op: "wait-ready", Err: err}
	}

	telemetry.FaultInjectionsTotal.With(direction).Inc()
	telemetry.FaultInjectionSeconds.Observe(time.Since(start).Seconds())
	return nil
}

// rollback undoes an interrupted EnableFailure.
func (c *Controller) rollback(topo *topology.Topology, injected []uint64, pattern string) {
	if len(injected) == 0 {
		return
	}
	log.Warn().
		Uints64("node_ids", injected).
		Str("pattern", pattern).
		Msg("Rolling back partially injected fault")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, id := range injected {
		if err := c.restart(ctx, id, nil, "rollback"); err != nil {
			log.Error().Err(err).Uint64("node_id", id).Msg("Rollback restart failed")
		}
		if err := topo.ClearFailing(id, topo.Keyspace); err != nil {
			log.Error().Err(err).Uint64("node_id", id).Msg("Failed to clear failing mark")
		}
	}
}
