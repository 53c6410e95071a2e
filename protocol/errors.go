package protocol

import "fmt"

// ConfigurationError indicates an invalid scenario configuration (bad RF,
// level or version combination). Fatal: detected before the cluster is
// touched.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// NewConfigurationError builds a ConfigurationError from a format string.
func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// InfrastructureError indicates a node failed to start, stop or restart.
// Fatal for the scenario; reported separately from oracle mismatches so it
// is never conflated with a defect in the system under test.
type InfrastructureError struct {
	NodeID uint64
	Op     string // "start", "stop", "restart", "wait-ready"
	Err    error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("node %d: %s failed: %v", e.NodeID, e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// NormalizationError indicates a collaborator result that maps to no known
// outcome. Hard failure of the execution driver; never coerced to the
// nearest known outcome.
type NormalizationError struct {
	Raw error
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("unmappable collaborator result: %v", e.Raw)
}

func (e *NormalizationError) Unwrap() error {
	return e.Raw
}

// MismatchError reports a divergence between the predicted and the observed
// outcome of one scenario. This is the primary signal the harness exists to
// produce; it is never retried or averaged away.
type MismatchError struct {
	Scenario  string
	Predicted Outcome
	Actual    Outcome
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("scenario %q: predicted %s, observed %s", e.Scenario, e.Predicted, e.Actual)
}
