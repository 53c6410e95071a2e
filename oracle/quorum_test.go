package oracle

import (
	"testing"

	"github.com/quorumlab/faultprobe/protocol"
)

func TestRequiredAcks(t *testing.T) {
	tests := []struct {
		name       string
		level      protocol.ConsistencyLevel
		rf         int
		want       int
		wantHinted bool
	}{
		// ONE tests
		{
			name:  "ONE with RF 3",
			level: protocol.ConsistencyOne,
			rf:    3,
			want:  1,
		},
		{
			name:  "LOCAL_ONE with RF 3",
			level: protocol.ConsistencyLocalOne,
			rf:    3,
			want:  1,
		},

		// QUORUM tests
		{
			name:  "QUORUM with RF 3",
			level: protocol.ConsistencyQuorum,
			rf:    3,
			want:  2, // floor(3/2) + 1 = 2
		},
		{
			name:  "QUORUM with RF 4",
			level: protocol.ConsistencyQuorum,
			rf:    4,
			want:  3, // floor(4/2) + 1 = 3
		},
		{
			name:  "QUORUM with RF 5",
			level: protocol.ConsistencyQuorum,
			rf:    5,
			want:  3, // floor(5/2) + 1 = 3
		},
		{
			name:  "QUORUM with RF 1",
			level: protocol.ConsistencyQuorum,
			rf:    1,
			want:  1,
		},
		{
			name:  "LOCAL_QUORUM collapses to QUORUM",
			level: protocol.ConsistencyLocalQuorum,
			rf:    5,
			want:  3,
		},
		{
			name:  "EACH_QUORUM collapses to QUORUM",
			level: protocol.ConsistencyEachQuorum,
			rf:    5,
			want:  3,
		},

		// ALL tests
		{
			name:  "ALL with RF 3",
			level: protocol.ConsistencyAll,
			rf:    3,
			want:  3,
		},
		{
			name:  "ALL with RF 5",
			level: protocol.ConsistencyAll,
			rf:    5,
			want:  5,
		},

		// Fixed-count levels
		{
			name:  "TWO with RF 3",
			level: protocol.ConsistencyTwo,
			rf:    3,
			want:  2,
		},
		{
			name:  "THREE with RF 5",
			level: protocol.ConsistencyThree,
			rf:    5,
			want:  3,
		},

		// ANY never waits on replica acks
		{
			name:       "ANY with RF 3",
			level:      protocol.ConsistencyAny,
			rf:         3,
			wantHinted: true,
		},
		{
			name:       "ANY with RF 1",
			level:      protocol.ConsistencyAny,
			rf:         1,
			wantHinted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, hinted, err := RequiredAcks(tt.level, tt.rf)
			if err != nil {
				t.Fatalf("RequiredAcks(%v, %d) error = %v", tt.level, tt.rf, err)
			}
			if hinted != tt.wantHinted {
				t.Errorf("RequiredAcks(%v, %d) hinted = %v, want %v", tt.level, tt.rf, hinted, tt.wantHinted)
			}
			if !hinted && got != tt.want {
				t.Errorf("RequiredAcks(%v, %d) = %d, want %d", tt.level, tt.rf, got, tt.want)
			}
		})
	}
}

func TestRequiredAcksInvariants(t *testing.T) {
	// For RF in [1,5]: ALL=RF, QUORUM=floor(RF/2)+1, ONE=1.
	for rf := 1; rf <= 5; rf++ {
		all, _, err := RequiredAcks(protocol.ConsistencyAll, rf)
		if err != nil || all != rf {
			t.Errorf("RequiredAcks(ALL, %d) = %d, %v; want %d", rf, all, err, rf)
		}
		quorum, _, err := RequiredAcks(protocol.ConsistencyQuorum, rf)
		if err != nil || quorum != rf/2+1 {
			t.Errorf("RequiredAcks(QUORUM, %d) = %d, %v; want %d", rf, quorum, err, rf/2+1)
		}
		one, _, err := RequiredAcks(protocol.ConsistencyOne, rf)
		if err != nil || one != 1 {
			t.Errorf("RequiredAcks(ONE, %d) = %d, %v; want 1", rf, one, err)
		}
	}
}

func TestRequiredAcksInvalidRF(t *testing.T) {
	for _, rf := range []int{0, -1} {
		if _, _, err := RequiredAcks(protocol.ConsistencyQuorum, rf); err == nil {
			t.Errorf("RequiredAcks(QUORUM, %d) expected ConfigurationError, got nil", rf)
		}
	}
}

func TestPaxosQuorum(t *testing.T) {
	tests := []struct {
		rf   int
		want int
	}{
		{1, 1},
		{2, 2},
		{3, 2},
		{4, 3},
		{5, 3},
	}
	for _, tt := range tests {
		if got := PaxosQuorum(tt.rf); got != tt.want {
			t.Errorf("PaxosQuorum(%d) = %d, want %d", tt.rf, got, tt.want)
		}
	}
}

func TestValidateLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   protocol.ConsistencyLevel
		rf      int
		wantErr bool
	}{
		{"QUORUM with RF 3", protocol.ConsistencyQuorum, 3, false},
		{"ALL with RF 3", protocol.ConsistencyAll, 3, false},
		{"ANY with RF 1", protocol.ConsistencyAny, 1, false},
		{"THREE with RF 2", protocol.ConsistencyThree, 2, true},
		{"TWO with RF 1", protocol.ConsistencyTwo, 1, true},
		{"zero RF", protocol.ConsistencyOne, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLevel(tt.level, tt.rf)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLevel(%v, %d) error = %v, wantErr %v", tt.level, tt.rf, err, tt.wantErr)
			}
		})
	}
}
