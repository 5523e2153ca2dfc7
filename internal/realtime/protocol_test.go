package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkoster/circulate/internal/ledger"
	"github.com/tkoster/circulate/internal/testutil"
)

func TestEnvelope_Validate(t *testing.T) {
	valid := Envelope{V: Version, Type: TypeSnapshot, ID: "x", TS: time.Now()}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		env  Envelope
	}{
		{"missing version", Envelope{Type: TypeSnapshot}},
		{"wrong version", Envelope{V: "v0", Type: TypeSnapshot}},
		{"missing type", Envelope{V: Version}},
		{"unknown type", Envelope{V: Version, Type: "subscribe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.env.Validate())
		})
	}
}

func TestNewEnvelope_AssignsIdentityAndVersion(t *testing.T) {
	a, err := NewEnvelope(TypeWrite, WritePayload{})
	require.NoError(t, err)
	b, err := NewEnvelope(TypeWrite, WritePayload{})
	require.NoError(t, err)

	assert.Equal(t, Version, a.V)
	assert.NoError(t, a.Validate())
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID, "envelope ids must be unique for ack correlation")
}

func TestWireMapping_SeqLivesInTheKey(t *testing.T) {
	records := []ledger.Record{
		testutil.Rec(2, "B200", "2024-01-05", ""),
		testutil.Rec(1, "A100", "2024-01-01", "2024-01-10"),
	}

	wire := ToWire(records)
	require.Len(t, wire, 2)
	require.Contains(t, wire, "1")
	require.Contains(t, wire, "2")
	assert.Equal(t, "A100", wire["1"].Code)

	back, err := FromWire(wire)
	require.NoError(t, err)
	require.Len(t, back, 2)
	// Reconstructed seq from the key, ordered ascending.
	assert.Equal(t, int64(1), back[0].Seq)
	assert.Equal(t, "A100", back[0].Code)
	assert.Equal(t, int64(2), back[1].Seq)
}

func TestFromWire_RejectsNonNumericKeys(t *testing.T) {
	_, err := FromWire(map[string]WireRecord{
		"not-a-seq": {Code: "A100", IssueDate: "2024-01-01"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-a-seq")
}

func TestFromWire_EmptyMapping(t *testing.T) {
	back, err := FromWire(nil)
	require.NoError(t, err)
	assert.Empty(t, back)
}
