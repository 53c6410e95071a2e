package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConsistencyLevelRoundTrip(t *testing.T) {
	levels := []ConsistencyLevel{
		ConsistencyAny, ConsistencyOne, ConsistencyTwo, ConsistencyThree,
		ConsistencyQuorum, ConsistencyAll, ConsistencyLocalOne,
		ConsistencyLocalQuorum, ConsistencyEachQuorum,
	}
	for _, level := range levels {
		parsed, err := ParseConsistencyLevel(level.String())
		assert.NoError(t, err, "level %v", level)
		assert.Equal(t, level, parsed)
	}
}

func TestParseConsistencyLevelUnknown(t *testing.T) {
	_, err := ParseConsistencyLevel("SERIAL_MAYBE")
	assert.Error(t, err)
}

func TestStatementKindRoundTrip(t *testing.T) {
	kinds := []StatementKind{StatementSimple, StatementBatch, StatementCounter, StatementConditional}
	for _, kind := range kinds {
		parsed, err := ParseStatementKind(kind.String())
		assert.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}
}

func TestClassifyStatement(t *testing.T) {
	tests := []struct {
		name string
		text string
		want StatementKind
	}{
		{
			name: "plain insert",
			text: "INSERT INTO mytable (key, value) VALUES ('key1', 'Value 1')",
			want: StatementSimple,
		},
		{
			name: "conditional insert",
			text: "INSERT INTO mytable (key, value) VALUES ('key1', 'Value 1') IF NOT EXISTS",
			want: StatementConditional,
		},
		{
			name: "counter update",
			text: "UPDATE countertable SET value = value + 1 WHERE key = 'k'",
			want: StatementCounter,
		},
		{
			name: "batch",
			text: "BEGIN BATCH\nINSERT INTO mytable (key, value) VALUES ('key2', 'Value 2')\nAPPLY BATCH",
			want: StatementBatch,
		},
		{
			name: "unlogged batch",
			text: "begin unlogged batch insert into t (k) values ('a') apply batch",
			want: StatementBatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyStatement(tt.text)
			if got != tt.want {
				t.Errorf("ClassifyStatement(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestOutcomeEqual(t *testing.T) {
	assert.True(t, Success().Equal(Success()))
	assert.True(t, Timeout().Equal(Timeout()))
	assert.True(t, PartialFailure(2).Equal(PartialFailure(2)))
	assert.False(t, PartialFailure(2).Equal(PartialFailure(3)))
	assert.False(t, Success().Equal(Timeout()))
	assert.False(t, Timeout().Equal(PartialFailure(0)))
}

func TestVersionSupportsWriteFailure(t *testing.T) {
	assert.False(t, Version2.SupportsWriteFailure())
	assert.False(t, Version3.SupportsWriteFailure())
	assert.True(t, Version4.SupportsWriteFailure())
	assert.True(t, Version(5).SupportsWriteFailure())
}

func TestVersionValidate(t *testing.T) {
	assert.Error(t, Version(1).Validate())
	assert.NoError(t, Version2.Validate())
	assert.NoError(t, Version4.Validate())
}
