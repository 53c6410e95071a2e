package telemetry

// Histogram bucket definitions
var (
	// InjectionBuckets for node restart + ready-wait latencies
	InjectionBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

	// ExecuteBuckets for single statement execution latencies
	ExecuteBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5}
)

// Scenario metrics
var (
	// ScenariosTotal counts scenarios by result (pass, mismatch, infra_error, config_error)
	ScenariosTotal CounterVec = noopCounterVec{}

	// OracleMismatchesTotal counts oracle divergences, the primary signal
	OracleMismatchesTotal Counter = NoopStat{}

	// ScenariosInFlight tracks currently executing scenarios
	ScenariosInFlight Gauge = NoopStat{}
)

// Fault injection metrics
var (
	// FaultInjectionsTotal counts node restarts by direction (enable, disable)
	FaultInjectionsTotal CounterVec = noopCounterVec{}

	// FaultInjectionSeconds measures restart-until-ready latency
	FaultInjectionSeconds Histogram = NoopStat{}

	// InfrastructureErrorsTotal counts failed node restarts
	InfrastructureErrorsTotal Counter = NoopStat{}
)

// Execution driver metrics
var (
	// StatementsTotal counts executed statements by normalized outcome
	StatementsTotal CounterVec = noopCounterVec{}

	// StatementSeconds measures statement execution latency
	StatementSeconds Histogram = NoopStat{}

	// NormalizationErrorsTotal counts collaborator results that mapped to no known outcome
	NormalizationErrorsTotal Counter = NoopStat{}
)

// registerMetrics binds the package-level metrics to the live registry.
// Before InitializeTelemetry runs they stay noop, which keeps tests silent.
func registerMetrics() {
	ScenariosTotal = NewCounterVec("scenarios_total", "Scenarios executed by result", []string{"result"})
	OracleMismatchesTotal = NewCounter("oracle_mismatches_total", "Predicted vs observed outcome divergences")
	ScenariosInFlight = NewGauge("scenarios_in_flight", "Currently executing scenarios")

	FaultInjectionsTotal = NewCounterVec("fault_injections_total", "Node restarts by direction", []string{"direction"})
	FaultInjectionSeconds = NewHistogram("fault_injection_seconds", "Restart-until-ready latency", InjectionBuckets)
	InfrastructureErrorsTotal = NewCounter("infrastructure_errors_total", "Failed node restarts")

	StatementsTotal = NewCounterVec("statements_total", "Executed statements by normalized outcome", []string{"outcome"})
	StatementSeconds = NewHistogram("statement_seconds", "Statement execution latency", ExecuteBuckets)
	NormalizationErrorsTotal = NewCounter("normalization_errors_total", "Unmappable collaborator results")
}
