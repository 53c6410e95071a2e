package sim

import (
	"github.com/quorumlab/faultprobe/protocol"
)

// dispatch is the coordinator-side write path. It takes an encoded request
// frame and returns an encoded response frame.
func (c *Cluster) dispatch(frame []byte) []byte {
	var req writeRequest
	if err := unmarshalFrame(frame, &req); err != nil {
		return encodeResponse(&writeResponse{Status: statusInvalid, Message: "malformed request frame"})
	}

	ks, ok := c.keyspaces.Load(req.Keyspace)
	if !ok {
		return encodeResponse(&writeResponse{Status: statusInvalid, Message: "unknown keyspace: " + req.Keyspace})
	}

	level := protocol.ConsistencyLevel(req.Level)
	version := protocol.Version(req.Version)

	if len(req.Parts) == 0 {
		return encodeResponse(&writeResponse{Status: statusInvalid, Message: "empty request"})
	}

	// A batch has no partial success: the first failing part decides the
	// outcome for the whole request.
	for _, part := range req.Parts {
		resp := c.applyPart(ks, level, version, part)
		if resp.Status != statusOK {
			if req.Batch {
				resp.WriteType = writeTypeBatch
			}
			return encodeResponse(resp)
		}
	}

	return encodeResponse(&writeResponse{Status: statusOK})
}

// applyPart runs one write against its replica set and classifies the
// result the way the coordinator would report it at the negotiated
// protocol version.
func (c *Cluster) applyPart(ks *keyspace, level protocol.ConsistencyLevel,
	version protocol.Version, part writePart) *writeResponse {

	kind := protocol.StatementKind(part.Kind)
	replicas := c.replicasFor(part.Key, ks.rf)
	rf := len(replicas)

	acks, rejections, down := 0, 0, 0
	for _, r := range replicas {
		switch {
		case !r.isUp():
			down++
		case r.rejectsWrites(ks.name):
			rejections++
		default:
			acks++
		}
	}

	writeType := writeTypeSimple
	if kind == protocol.StatementCounter {
		writeType = writeTypeCounter
	}

	// Conditional writes run a consensus round needing its own majority.
	// Replicas rejecting writes for the keyspace refuse the ballot as
	// well, and no hint can stand in for a refused ballot, so this gate
	// applies at every consistency level including ANY.
	if kind == protocol.StatementConditional {
		ballotQuorum := rf/2 + 1
		if acks < ballotQuorum {
			return failResponse(version, acks, ballotQuorum, rejections, writeTypeCAS)
		}
		writeType = writeTypeCAS
	}

	// ANY: the coordinator stores a hint for every replica that did not
	// acknowledge and reports success regardless.
	if level == protocol.ConsistencyAny {
		c.hintsStored.Add(int64(rf - acks))
		return &writeResponse{Status: statusOK}
	}

	required := quorumFor(level, rf)

	// Too few live replicas to even attempt the write.
	if alive := rf - down; alive < required {
		return &writeResponse{Status: statusUnavailable, Required: required, Alive: alive}
	}

	if acks >= required {
		return &writeResponse{Status: statusOK}
	}

	return failResponse(version, acks, required, rejections, writeType)
}

// failResponse picks the failure signal the negotiated protocol version can
// carry: an explicit write failure naming the rejecting replicas from the
// threshold version on, a bare timeout before it.
func failResponse(version protocol.Version, acks, required, rejections int, writeType string) *writeResponse {
	if version.SupportsWriteFailure() {
		return &writeResponse{
			Status:    statusWriteFailure,
			Received:  acks,
			Required:  required,
			Failures:  rejections,
			WriteType: writeType,
		}
	}
	return &writeResponse{
		Status:    statusWriteTimeout,
		Received:  acks,
		Required:  required,
		WriteType: writeType,
	}
}

func encodeResponse(resp *writeResponse) []byte {
	frame, err := marshalFrame(resp)
	if err != nil {
		// Response frames are plain structs; encoding cannot fail short of
		// a bug in the codec itself.
		panic(err)
	}
	return frame
}
