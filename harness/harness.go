package harness

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/quorumlab/faultprobe/driver"
	"github.com/quorumlab/faultprobe/fault"
	"github.com/quorumlab/faultprobe/oracle"
	"github.com/quorumlab/faultprobe/protocol"
	"github.com/quorumlab/faultprobe/telemetry"
	"github.com/quorumlab/faultprobe/topology"
)

// Environment bundles the collaborators one topology runs against: node
// lifecycle control, client connections and schema bootstrap.
type Environment interface {
	fault.ClusterControl
	driver.Connector

	CreateKeyspace(ctx context.Context, name string, rf int) error
	CreateTable(ctx context.Context, keyspace, table, schema string) error
}

// Status classifies how a scenario run ended. A failed write predicted by
// the oracle is a pass; only a divergence between prediction and
// observation is a mismatch.
type Status string

const (
	StatusPass        Status = "pass"
	StatusMismatch    Status = "mismatch"
	StatusConfigError Status = "config_error"
	StatusInfraError  Status = "infra_error"
	StatusNormError   Status = "normalization_error"
)

// Result records one scenario run.
type Result struct {
	Scenario  Scenario
	Status    Status
	Predicted protocol.Outcome
	Actual    protocol.Outcome
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// Failed reports whether the run needs operator attention.
func (r *Result) Failed() bool {
	return r.Status != StatusPass
}

const (
	simpleTableSchema  = "(key text PRIMARY KEY, value text)"
	counterTableSchema = "(key text PRIMARY KEY, value counter)"
)

// Harness runs scenarios against one environment, one at a time. Faults
// injected for a scenario are always rolled back before it returns, so
// consecutive scenarios never see each other's faults.
type Harness struct {
	env        Environment
	controller *fault.Controller
	driver     *driver.Driver
}

// New builds a harness around an environment. writeTimeout bounds every
// statement execution.
func New(env Environment, writeTimeout time.Duration) *Harness {
	return &Harness{
		env:        env,
		controller: fault.NewController(env),
		driver:     driver.New(writeTimeout),
	}
}

// SetReadyTimeout bounds how long a restarted node may take to report
// ready during fault injection.
func (h *Harness) SetReadyTimeout(d time.Duration) {
	h.controller.SetReadyTimeout(d)
}

// RunScenario executes one scenario end to end: build the topology,
// bootstrap the schema, inject the fault, run the statement through a
// fresh session, and compare the observed outcome against the oracle's
// prediction. The returned result is never nil-like; every run ends in
// exactly one status.
func (h *Harness) RunScenario(ctx context.Context, sc Scenario) Result {
	res := Result{Scenario: sc, StartedAt: time.Now()}
	defer func() {
		res.Duration = time.Since(res.StartedAt)
		telemetry.ScenariosTotal.With(string(res.Status)).Inc()
		h.logResult(&res)
	}()

	telemetry.ScenariosInFlight.Inc()
	defer telemetry.ScenariosInFlight.Dec()

	if err := sc.Validate(); err != nil {
		return fail(res, err)
	}

	topo, err := topology.New(sc.Keyspace, sc.ReplicationFactor, sc.Nodes)
	if err != nil {
		return fail(res, err)
	}

	if err := h.bootstrap(ctx, sc); err != nil {
		return fail(res, err)
	}

	if len(sc.FailingNodes) > 0 {
		if err := h.controller.EnableFailure(ctx, topo, sc.FailingNodes, sc.RejectPattern); err != nil {
			return fail(res, err)
		}
	}
	defer func() {
		// Roll back on a fresh context so a cancelled scenario still
		// leaves the cluster clean for the next one.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.controller.Rollback(cleanupCtx, topo); err != nil {
			log.Error().Err(err).Str("scenario", sc.Name).Msg("Failed to roll back injected fault")
		}
	}()

	// Connect after injection: restarting a node kills its sessions, so a
	// session opened earlier could be dead by now.
	session, err := h.env.Connect(ctx, topo.Coordinator().ID, sc.Version)
	if err != nil {
		return fail(res, &protocol.InfrastructureError{
			NodeID: topo.Coordinator().ID, Op: "connect", Err: err,
		})
	}
	defer session.Close()

	stmt := h.driver.Prepare(sc.Statement, sc.Keyspace, sc.Table, sc.Key)
	stmt.Kind = sc.Kind

	res.Predicted, err = oracle.Predict(
		sc.ReplicationFactor, topo.FailingCount(sc.Keyspace), sc.Level, sc.Version, sc.Kind)
	if err != nil {
		return fail(res, err)
	}

	res.Actual, err = h.driver.Execute(ctx, session, stmt, sc.Level, sc.Version)
	if err != nil {
		return fail(res, err)
	}

	if !res.Actual.Equal(res.Predicted) {
		res.Status = StatusMismatch
		res.Err = &protocol.MismatchError{
			Scenario:  sc.Name,
			Predicted: res.Predicted,
			Actual:    res.Actual,
		}
		telemetry.OracleMismatchesTotal.Inc()
		return res
	}

	res.Status = StatusPass
	return res
}

// bootstrap creates the scenario's keyspace and both tables. Idempotent,
// so scenarios sharing a topology bootstrap cheaply.
func (h *Harness) bootstrap(ctx context.Context, sc Scenario) error {
	if err := h.env.CreateKeyspace(ctx, sc.Keyspace, sc.ReplicationFactor); err != nil {
		return &protocol.InfrastructureError{Op: "create-keyspace", Err: err}
	}
	if err := h.env.CreateTable(ctx, sc.Keyspace, defaultTable, simpleTableSchema); err != nil {
		return &protocol.InfrastructureError{Op: "create-table", Err: err}
	}
	if err := h.env.CreateTable(ctx, sc.Keyspace, counterTable, counterTableSchema); err != nil {
		return &protocol.InfrastructureError{Op: "create-table", Err: err}
	}
	return nil
}

// fail stamps the result with the status matching the error class.
func fail(res Result, err error) Result {
	res.Err = err
	res.Status = classify(err)
	if res.Status == StatusInfraError {
		telemetry.InfrastructureErrorsTotal.Inc()
	}
	return res
}

// classify maps the error taxonomy onto run statuses. Scenario problems
// and environment problems must stay distinguishable from oracle
// divergences, which is the whole reason the taxonomy exists.
func classify(err error) Status {
	var configErr *protocol.ConfigurationError
	if errors.As(err, &configErr) {
		return StatusConfigError
	}
	var normErr *protocol.NormalizationError
	if errors.As(err, &normErr) {
		return StatusNormError
	}
	var mismatchErr *protocol.MismatchError
	if errors.As(err, &mismatchErr) {
		return StatusMismatch
	}
	return StatusInfraError
}

func (h *Harness) logResult(res *Result) {
	ev := log.Info()
	if res.Failed() {
		ev = log.Warn().Err(res.Err)
	}
	if res.Status == StatusPass || res.Status == StatusMismatch {
		ev = ev.Str("predicted", res.Predicted.String()).Str("actual", res.Actual.String())
	}
	ev.Str("scenario", res.Scenario.Name).
		Str("status", string(res.Status)).
		Dur("duration", res.Duration).
		Msg("Scenario finished")
}
