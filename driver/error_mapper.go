package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/quorumlab/faultprobe/protocol"
)

// WriteTimeoutError is the timeout-class client error: the coordinator gave
// up waiting for acknowledgements. At protocol versions below the
// write-failure threshold this is also what an explicit rejection degrades
// to, which is exactly the ambiguity the newer versions exist to remove.
type WriteTimeoutError struct {
	Level    protocol.ConsistencyLevel
	Received int
	Required int
	// WriteType distinguishes simple, batch, counter and CAS paths.
	WriteType string
}

func (e *WriteTimeoutError) Error() string {
	return fmt.Sprintf("write timeout at %v: received %d of %d acks (%s)",
		e.Level, e.Received, e.Required, e.WriteType)
}

// WriteFailureError is the rejection-class client error: the coordinator
// learned that replicas explicitly refused the write. Only protocol
// versions at or above the threshold can carry it.
type WriteFailureError struct {
	Level    protocol.ConsistencyLevel
	Received int
	Required int
	Failures int
	WriteType string
}

func (e *WriteFailureError) Error() string {
	return fmt.Sprintf("write failure at %v: %d replicas rejected, received %d of %d acks (%s)",
		e.Level, e.Failures, e.Received, e.Required, e.WriteType)
}

// UnavailableError means too few replicas were alive to even attempt the
// write. The harness never takes replicas down for good, so this class has
// no place in the outcome taxonomy and normalization refuses it.
type UnavailableError struct {
	Level    protocol.ConsistencyLevel
	Required int
	Alive    int
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("unavailable at %v: %d alive of %d required", e.Level, e.Alive, e.Required)
}

// Normalize maps a collaborator result onto the shared outcome taxonomy.
// This is the single exhaustive mapping table; review it whenever the
// client grows a new error class. Anything unrecognized is a
// NormalizationError, never coerced to the nearest known outcome.
func Normalize(err error, version protocol.Version) (protocol.Outcome, error) {
	if err == nil {
		return protocol.Success(), nil
	}

	var timeoutErr *WriteTimeoutError
	if errors.As(err, &timeoutErr) {
		return protocol.Timeout(), nil
	}

	var failureErr *WriteFailureError
	if errors.As(err, &failureErr) {
		if !version.SupportsWriteFailure() {
			// A legacy connection cannot carry this signal; receiving it
			// means the collaborator violated the negotiated version.
			return protocol.Outcome{}, &protocol.NormalizationError{
				Raw: fmt.Errorf("write failure response on %v connection: %w", version, err),
			}
		}
		return protocol.PartialFailure(failureErr.Failures), nil
	}

	// The driver-level deadline on the blocking call maps to a timeout
	// rather than hanging the scenario.
	if errors.Is(err, context.DeadlineExceeded) {
		return protocol.Timeout(), nil
	}

	return protocol.Outcome{}, &protocol.NormalizationError{Raw: err}
}
