package harness

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EnvironmentProvider provisions an isolated environment of n nodes for
// one topology group. Groups running concurrently each get their own.
type EnvironmentProvider func(ctx context.Context, nodes int) (Environment, error)

// Report aggregates one run of a scenario suite.
type Report struct {
	RunID      string
	StartedAt  time.Time
	Duration   time.Duration
	Results    []Result
	Passed     int
	Mismatches int
	Errors     int

	// FirstDivergence points at the earliest failing result in suite
	// order, the one worth reading first.
	FirstDivergence *Result
}

// Failed reports whether any scenario diverged or errored.
func (r *Report) Failed() bool {
	return r.Mismatches > 0 || r.Errors > 0
}

// Runner executes scenario suites. Scenarios sharing a topology run
// sequentially against one environment; distinct topologies run
// concurrently, bounded by maxParallel.
type Runner struct {
	provider     EnvironmentProvider
	writeTimeout time.Duration
	readyTimeout time.Duration
	maxParallel  int
	store        *Store
}

// NewRunner builds a runner. store may be nil to skip result archival.
func NewRunner(provider EnvironmentProvider, writeTimeout time.Duration,
	maxParallel int, store *Store) *Runner {

	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Runner{
		provider:     provider,
		writeTimeout: writeTimeout,
		maxParallel:  maxParallel,
		store:        store,
	}
}

// SetReadyTimeout bounds node restarts during fault injection for every
// harness the runner spawns.
func (r *Runner) SetReadyTimeout(d time.Duration) {
	r.readyTimeout = d
}

// group is the unit of sequential execution: the scenarios of one
// topology, in suite order.
type group struct {
	nodes     int
	scenarios []Scenario
	positions []int
}

// Run executes every scenario and returns the aggregated report. Scenario
// failures land in the report, not the error return; the error covers run
// infrastructure such as provisioning or archiving.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Results:   make([]Result, len(scenarios)),
	}

	log.Info().
		Str("run_id", report.RunID).
		Int("scenarios", len(scenarios)).
		Int("max_parallel", r.maxParallel).
		Msg("Suite run starting")

	groups := groupByTopology(scenarios)

	sem := make(chan struct{}, r.maxParallel)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var provisionErr error

	for _, g := range groups {
		wg.Add(1)
		go func(g group) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			env, err := r.provider(ctx, g.nodes)
			if err != nil {
				mu.Lock()
				if provisionErr == nil {
					provisionErr = err
				}
				mu.Unlock()
				return
			}

			h := New(env, r.writeTimeout)
			if r.readyTimeout > 0 {
				h.SetReadyTimeout(r.readyTimeout)
			}
			for i, sc := range g.scenarios {
				res := h.RunScenario(ctx, sc)
				mu.Lock()
				report.Results[g.positions[i]] = res
				mu.Unlock()
			}
		}(g)
	}
	wg.Wait()

	if provisionErr != nil {
		return nil, provisionErr
	}

	report.Duration = time.Since(report.StartedAt)
	for i := range report.Results {
		res := &report.Results[i]
		switch res.Status {
		case StatusPass:
			report.Passed++
		case StatusMismatch:
			report.Mismatches++
		default:
			report.Errors++
		}
		if res.Failed() && report.FirstDivergence == nil {
			report.FirstDivergence = res
		}
	}

	ev := log.Info()
	if report.Failed() {
		ev = log.Warn()
	}
	ev.Str("run_id", report.RunID).
		Int("passed", report.Passed).
		Int("mismatches", report.Mismatches).
		Int("errors", report.Errors).
		Dur("duration", report.Duration).
		Msg("Suite run finished")

	if r.store != nil {
		if err := r.store.SaveReport(report); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// groupByTopology splits scenarios into per-topology groups, keeping suite
// order inside each group.
func groupByTopology(scenarios []Scenario) []group {
	index := make(map[string]int)
	var groups []group
	for pos, sc := range scenarios {
		key := sc.topologyKey()
		gi, ok := index[key]
		if !ok {
			gi = len(groups)
			index[key] = gi
			groups = append(groups, group{nodes: sc.Nodes})
		}
		groups[gi].scenarios = append(groups[gi].scenarios, sc)
		groups[gi].positions = append(groups[gi].positions, pos)
	}
	return groups
}
