package harness

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quorumlab/faultprobe/driver"
	"github.com/quorumlab/faultprobe/protocol"
	"github.com/quorumlab/faultprobe/sim"
)

const testWriteTimeout = 2 * time.Second

func simProvider(ctx context.Context, nodes int) (Environment, error) {
	return sim.NewCluster(nodes), nil
}

func TestRunScenarioDefaultSuite(t *testing.T) {
	// Every built-in scenario must agree with the oracle when run against
	// the reference cluster.
	ctx := context.Background()
	h := New(sim.NewCluster(3), testWriteTimeout)

	for _, sc := range DefaultSuite() {
		t.Run(sc.Name, func(t *testing.T) {
			res := h.RunScenario(ctx, sc)
			require.Equal(t, StatusPass, res.Status, "predicted %v, actual %v, err %v",
				res.Predicted, res.Actual, res.Err)
			require.True(t, res.Actual.Equal(res.Predicted))
		})
	}
}

func TestRunScenarioPredictions(t *testing.T) {
	ctx := context.Background()
	h := New(sim.NewCluster(3), testWriteTimeout)

	cases := []struct {
		name     string
		level    protocol.ConsistencyLevel
		version  protocol.Version
		failing  []uint64
		expected protocol.Outcome
	}{
		{"legacy timeout", protocol.ConsistencyAll, protocol.Version2, []uint64{2, 3}, protocol.Timeout()},
		{"explicit failure", protocol.ConsistencyAll, protocol.Version4, []uint64{2, 3}, protocol.PartialFailure(2)},
		{"any hinted", protocol.ConsistencyAny, protocol.Version4, []uint64{1, 2, 3}, protocol.Success()},
		{"quorum holds", protocol.ConsistencyQuorum, protocol.Version4, []uint64{3}, protocol.Success()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sc := Scenario{
				Name:              "probe",
				ReplicationFactor: 3,
				Level:             tc.level,
				Version:           tc.version,
				Kind:              protocol.StatementSimple,
				Statement:         insertStatement,
				FailingNodes:      tc.failing,
			}
			sc.applyDefaults()

			res := h.RunScenario(ctx, sc)
			require.Equal(t, StatusPass, res.Status, "err: %v", res.Err)
			require.True(t, res.Predicted.Equal(tc.expected),
				"predicted %v, want %v", res.Predicted, tc.expected)
		})
	}
}

func TestRunScenarioRollsBackFaults(t *testing.T) {
	ctx := context.Background()
	cluster := sim.NewCluster(3)
	h := New(cluster, testWriteTimeout)

	faulty := Scenario{
		Name:              "inject",
		ReplicationFactor: 3,
		Level:             protocol.ConsistencyAll,
		Version:           protocol.Version4,
		Kind:              protocol.StatementSimple,
		Statement:         insertStatement,
		FailingNodes:      []uint64{1, 2, 3},
	}
	faulty.applyDefaults()
	require.Equal(t, StatusPass, h.RunScenario(ctx, faulty).Status)

	// The next scenario sees a clean cluster: every replica acknowledges.
	clean := faulty
	clean.Name = "clean"
	clean.FailingNodes = nil
	res := h.RunScenario(ctx, clean)
	require.Equal(t, StatusPass, res.Status)
	require.True(t, res.Actual.Equal(protocol.Success()))
}

func TestRunScenarioConfigError(t *testing.T) {
	ctx := context.Background()
	h := New(sim.NewCluster(3), testWriteTimeout)

	sc := Scenario{
		Name:              "level-exceeds-rf",
		ReplicationFactor: 1,
		Level:             protocol.ConsistencyTwo,
		Version:           protocol.Version4,
		Kind:              protocol.StatementSimple,
		Statement:         insertStatement,
	}
	sc.applyDefaults()

	res := h.RunScenario(ctx, sc)
	require.Equal(t, StatusConfigError, res.Status)
	require.Error(t, res.Err)
}

// brokenControl makes every restart fail, leaving injection impossible.
type brokenControl struct {
	Environment
}

func (b *brokenControl) RestartNode(ctx context.Context, id uint64, extraArgs []string) error {
	return &protocol.InfrastructureError{NodeID: id, Op: "restart", Err: context.DeadlineExceeded}
}

func TestRunScenarioInfraError(t *testing.T) {
	ctx := context.Background()
	h := New(&brokenControl{Environment: sim.NewCluster(3)}, testWriteTimeout)

	sc := DefaultSuite()[2]
	res := h.RunScenario(ctx, sc)
	require.Equal(t, StatusInfraError, res.Status)

	var infraErr *protocol.InfrastructureError
	require.ErrorAs(t, res.Err, &infraErr)
}

// lyingEnv hands out sessions that acknowledge everything, so predicted
// failures never materialize.
type lyingEnv struct {
	Environment
}

type lyingSession struct{}

func (lyingSession) Execute(ctx context.Context, stmt protocol.Statement, level protocol.ConsistencyLevel) error {
	return nil
}
func (lyingSession) Close() error { return nil }

func (e *lyingEnv) Connect(ctx context.Context, nodeID uint64, version protocol.Version) (driver.Session, error) {
	return lyingSession{}, nil
}

func TestRunScenarioDetectsMismatch(t *testing.T) {
	ctx := context.Background()
	h := New(&lyingEnv{Environment: sim.NewCluster(3)}, testWriteTimeout)

	sc := Scenario{
		Name:              "lying-cluster",
		ReplicationFactor: 3,
		Level:             protocol.ConsistencyAll,
		Version:           protocol.Version4,
		Kind:              protocol.StatementSimple,
		Statement:         insertStatement,
		FailingNodes:      []uint64{2, 3},
	}
	sc.applyDefaults()

	res := h.RunScenario(ctx, sc)
	require.Equal(t, StatusMismatch, res.Status)

	var mismatchErr *protocol.MismatchError
	require.ErrorAs(t, res.Err, &mismatchErr)
	require.True(t, mismatchErr.Predicted.Equal(protocol.PartialFailure(2)))
	require.True(t, mismatchErr.Actual.Equal(protocol.Success()))
}

func TestRunnerFullSuite(t *testing.T) {
	runner := NewRunner(simProvider, testWriteTimeout, 2, nil)

	report, err := runner.Run(context.Background(), DefaultSuite())
	require.NoError(t, err)
	require.NotEmpty(t, report.RunID)
	require.Len(t, report.Results, len(DefaultSuite()))
	require.Equal(t, len(DefaultSuite()), report.Passed)
	require.Zero(t, report.Mismatches)
	require.Zero(t, report.Errors)
	require.Nil(t, report.FirstDivergence)
	require.False(t, report.Failed())

	// Suite order survives concurrent group execution.
	for i, sc := range DefaultSuite() {
		require.Equal(t, sc.Name, report.Results[i].Scenario.Name)
	}
}

func TestRunnerReportsFirstDivergence(t *testing.T) {
	provider := func(ctx context.Context, nodes int) (Environment, error) {
		return &lyingEnv{Environment: sim.NewCluster(nodes)}, nil
	}
	runner := NewRunner(provider, testWriteTimeout, 1, nil)

	scenarios := DefaultSuite()
	report, err := runner.Run(context.Background(), scenarios)
	require.NoError(t, err)
	require.True(t, report.Failed())
	require.NotNil(t, report.FirstDivergence)

	// The earliest failing scenario in suite order is the one surfaced.
	for _, res := range report.Results {
		if res.Failed() {
			require.Equal(t, res.Scenario.Name, report.FirstDivergence.Scenario.Name)
			break
		}
	}
}
