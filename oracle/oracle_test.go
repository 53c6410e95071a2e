package oracle

import (
	"testing"

	"github.com/quorumlab/faultprobe/protocol"
)

func TestPredict(t *testing.T) {
	tests := []struct {
		name    string
		rf      int
		failing int
		level   protocol.ConsistencyLevel
		version protocol.Version
		kind    protocol.StatementKind
		want    protocol.Outcome
	}{
		// Protocol version gates the failure signal.
		{
			name:    "RF 3 two failing ALL v4 partial failure",
			rf:      3, failing: 2,
			level:   protocol.ConsistencyAll,
			version: protocol.Version4,
			kind:    protocol.StatementSimple,
			want:    protocol.PartialFailure(2),
		},
		{
			name:    "RF 3 two failing ALL v3 legacy timeout",
			rf:      3, failing: 2,
			level:   protocol.ConsistencyAll,
			version: protocol.Version3,
			kind:    protocol.StatementSimple,
			want:    protocol.Timeout(),
		},
		{
			name:    "RF 3 two failing ALL v2 legacy timeout",
			rf:      3, failing: 2,
			level:   protocol.ConsistencyAll,
			version: protocol.Version2,
			kind:    protocol.StatementSimple,
			want:    protocol.Timeout(),
		},

		// ANY succeeds through hints even with every replica failing.
		{
			name:    "RF 3 all failing ANY succeeds via hints",
			rf:      3, failing: 3,
			level:   protocol.ConsistencyAny,
			version: protocol.Version4,
			kind:    protocol.StatementSimple,
			want:    protocol.Success(),
		},

		// ONE with every replica failing fails.
		{
			name:    "RF 3 all failing ONE fails",
			rf:      3, failing: 3,
			level:   protocol.ConsistencyOne,
			version: protocol.Version4,
			kind:    protocol.StatementSimple,
			want:    protocol.PartialFailure(3),
		},

		// Quorum arithmetic around the boundary.
		{
			name:    "RF 3 one failing QUORUM succeeds",
			rf:      3, failing: 1,
			level:   protocol.ConsistencyQuorum,
			version: protocol.Version4,
			kind:    protocol.StatementSimple,
			want:    protocol.Success(),
		},
		{
			name:    "RF 3 two failing QUORUM fails",
			rf:      3, failing: 2,
			level:   protocol.ConsistencyQuorum,
			version: protocol.Version4,
			kind:    protocol.StatementSimple,
			want:    protocol.PartialFailure(2),
		},
		{
			name:    "RF 5 two failing QUORUM succeeds",
			rf:      5, failing: 2,
			level:   protocol.ConsistencyQuorum,
			version: protocol.Version4,
			kind:    protocol.StatementSimple,
			want:    protocol.Success(),
		},
		{
			name:    "RF 5 three failing QUORUM fails",
			rf:      5, failing: 3,
			level:   protocol.ConsistencyQuorum,
			version: protocol.Version4,
			kind:    protocol.StatementSimple,
			want:    protocol.PartialFailure(3),
		},

		// Counter mutations follow the general rules.
		{
			name:    "counter RF 3 two failing ALL v4",
			rf:      3, failing: 2,
			level:   protocol.ConsistencyAll,
			version: protocol.Version4,
			kind:    protocol.StatementCounter,
			want:    protocol.PartialFailure(2),
		},

		// Conditional writes pay a consensus-round quorum even at ANY.
		{
			name:    "conditional at ANY fails when paxos quorum unattainable",
			rf:      3, failing: 2,
			level:   protocol.ConsistencyAny,
			version: protocol.Version4,
			kind:    protocol.StatementConditional,
			want:    protocol.PartialFailure(2),
		},
		{
			name:    "conditional at ANY succeeds when paxos quorum holds",
			rf:      3, failing: 1,
			level:   protocol.ConsistencyAny,
			version: protocol.Version4,
			kind:    protocol.StatementConditional,
			want:    protocol.Success(),
		},
		{
			name:    "conditional at ALL fails on single rejection",
			rf:      3, failing: 1,
			level:   protocol.ConsistencyAll,
			version: protocol.Version4,
			kind:    protocol.StatementConditional,
			want:    protocol.PartialFailure(1),
		},
		{
			name:    "conditional legacy version degrades to timeout",
			rf:      3, failing: 2,
			level:   protocol.ConsistencyAny,
			version: protocol.Version3,
			kind:    protocol.StatementConditional,
			want:    protocol.Timeout(),
		},

		// No failures at all.
		{
			name:    "healthy topology ALL succeeds",
			rf:      3, failing: 0,
			level:   protocol.ConsistencyAll,
			version: protocol.Version4,
			kind:    protocol.StatementSimple,
			want:    protocol.Success(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Predict(tt.rf, tt.failing, tt.level, tt.version, tt.kind)
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Predict(rf=%d failing=%d %v %v %v) = %v, want %v",
					tt.rf, tt.failing, tt.level, tt.version, tt.kind, got, tt.want)
			}
		})
	}
}

func TestPredictIsPure(t *testing.T) {
	first, err := Predict(3, 2, protocol.ConsistencyAll, protocol.Version4, protocol.StatementSimple)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	for i := 0; i < 100; i++ {
		again, err := Predict(3, 2, protocol.ConsistencyAll, protocol.Version4, protocol.StatementSimple)
		if err != nil {
			t.Fatalf("Predict() error = %v", err)
		}
		if !again.Equal(first) {
			t.Fatalf("Predict() not deterministic: %v then %v", first, again)
		}
	}
}

func TestPredictAnyAlwaysSucceedsForNonConditional(t *testing.T) {
	for rf := 1; rf <= 5; rf++ {
		for failing := 0; failing <= rf; failing++ {
			for _, kind := range []protocol.StatementKind{protocol.StatementSimple, protocol.StatementCounter, protocol.StatementBatch} {
				got, err := Predict(rf, failing, protocol.ConsistencyAny, protocol.Version4, kind)
				if err != nil {
					t.Fatalf("Predict(rf=%d failing=%d) error = %v", rf, failing, err)
				}
				if got.Kind != protocol.OutcomeSuccess {
					t.Errorf("Predict(rf=%d failing=%d ANY %v) = %v, want SUCCESS", rf, failing, kind, got)
				}
			}
		}
	}
}

func TestPredictConfigurationErrors(t *testing.T) {
	tests := []struct {
		name    string
		rf      int
		failing int
		version protocol.Version
	}{
		{"zero rf", 0, 0, protocol.Version4},
		{"failing above rf", 3, 4, protocol.Version4},
		{"negative failing", 3, -1, protocol.Version4},
		{"prehistoric version", 3, 1, protocol.Version(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Predict(tt.rf, tt.failing, protocol.ConsistencyOne, tt.version, protocol.StatementSimple)
			if err == nil {
				t.Error("Predict() expected ConfigurationError, got nil")
			}
		})
	}
}

func TestPredictBatch(t *testing.T) {
	// A batch where one insert would fail has no partial success: the whole
	// batch reports the failure.
	parts := []BatchPart{
		{Kind: protocol.StatementSimple, Failing: 0},
		{Kind: protocol.StatementSimple, Failing: 2},
	}
	got, err := PredictBatch(3, protocol.ConsistencyAll, protocol.Version4, parts)
	if err != nil {
		t.Fatalf("PredictBatch() error = %v", err)
	}
	if want := protocol.PartialFailure(2); !got.Equal(want) {
		t.Errorf("PredictBatch() = %v, want %v", got, want)
	}

	// All parts healthy.
	healthy := []BatchPart{
		{Kind: protocol.StatementSimple, Failing: 0},
		{Kind: protocol.StatementCounter, Failing: 0},
	}
	got, err = PredictBatch(3, protocol.ConsistencyQuorum, protocol.Version4, healthy)
	if err != nil {
		t.Fatalf("PredictBatch() error = %v", err)
	}
	if got.Kind != protocol.OutcomeSuccess {
		t.Errorf("PredictBatch() = %v, want SUCCESS", got)
	}

	// Empty batches are a configuration error.
	if _, err := PredictBatch(3, protocol.ConsistencyAll, protocol.Version4, nil); err == nil {
		t.Error("PredictBatch(empty) expected error, got nil")
	}
}
