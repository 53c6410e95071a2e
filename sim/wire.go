package sim

// Wire frames exchanged between a session and its coordinator node. The
// frames cross an in-process boundary only, but they are encoded the same
// way a real transport would encode them so nothing leaks through except
// what the frame carries.

const (
	statusOK           = "OK"
	statusWriteTimeout = "WRITE_TIMEOUT"
	statusWriteFailure = "WRITE_FAILURE"
	statusUnavailable  = "UNAVAILABLE"
	statusInvalid      = "INVALID"
)

// Write types reported in failure responses.
const (
	writeTypeSimple  = "SIMPLE"
	writeTypeBatch   = "BATCH"
	writeTypeCounter = "COUNTER"
	writeTypeCAS     = "CAS"
)

// writePart is one statement inside a request. A non-batch request carries
// exactly one part.
type writePart struct {
	Table string `msgpack:"table"`
	Key   string `msgpack:"key"`
	Kind  int    `msgpack:"kind"`
}

// writeRequest is the request frame a session sends to its coordinator.
type writeRequest struct {
	Keyspace string      `msgpack:"keyspace"`
	Level    int         `msgpack:"level"`
	Version  int         `msgpack:"version"`
	Batch    bool        `msgpack:"batch"`
	Parts    []writePart `msgpack:"parts"`
}

// writeResponse is the response frame the coordinator sends back.
type writeResponse struct {
	Status    string `msgpack:"status"`
	Received  int    `msgpack:"received"`
	Required  int    `msgpack:"required"`
	Failures  int    `msgpack:"failures"`
	Alive     int    `msgpack:"alive"`
	WriteType string `msgpack:"write_type"`
	Message   string `msgpack:"message"`
}
