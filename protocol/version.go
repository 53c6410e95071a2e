package protocol

import "fmt"

// Version is the negotiated native protocol version. The version controls
// how much detail the coordinator may put in a failed-write response.
type Version int

const (
	Version2 Version = 2
	Version3 Version = 3
	Version4 Version = 4

	// VersionWriteFailure is the first version able to carry an explicit
	// write-failure response naming how many replicas rejected the write.
	// Older versions collapse every replica-side failure into a timeout.
	VersionWriteFailure = Version4
)

// SupportsWriteFailure reports whether a failed write can be surfaced as a
// partial failure with a replica count instead of a bare timeout.
func (v Version) SupportsWriteFailure() bool {
	return v >= VersionWriteFailure
}

// Validate returns an error for versions the harness does not model.
// Versions below 2 predate the write-failure taxonomy entirely.
func (v Version) Validate() error {
	if v < Version2 {
		return fmt.Errorf("unsupported protocol version: %d", int(v))
	}
	return nil
}

func (v Version) String() string {
	return fmt.Sprintf("v%d", int(v))
}
