// Package sim provides an in-process reference cluster implementing the
// collaborator interfaces the harness depends on: cluster control, session
// connector and schema bootstrap. It models acknowledgement and rejection
// bookkeeping only; it is not a storage or replication engine.
package sim

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// marshalFrame encodes a wire frame to msgpack.
func marshalFrame(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// unmarshalFrame decodes a msgpack wire frame.
func unmarshalFrame(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)

	return dec.Decode(v)
}
