package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "github.com/MindFlow-Startup/MindFlow/pkg/domain-errors"
)

// TestParsePsychologistID_Invariants validates the parsing invariant:
// ids must be valid, non-empty, non-nil UUIDs.
func TestParsePsychologistID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParsePsychologistID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParsePsychologistID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParsePsychologistID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		parsed, err := ParsePsychologistID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, PsychologistID(valid), parsed)
	})
}

func TestParseID_HostileInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE psychologists;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errRecord := ParsePsychologistID(tt.input)
			_, errDraft := ParseDraftID(tt.input)
			if tt.wantErr {
				require.Error(t, errRecord)
				require.Error(t, errDraft)
				assert.True(t, dErrors.HasCode(errRecord, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, errRecord)
			require.NoError(t, errDraft)
		})
	}
}

func TestIDTextRoundTrip(t *testing.T) {
	original := NewPsychologistID()
	text, err := original.MarshalText()
	require.NoError(t, err)

	var decoded PsychologistID
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, original, decoded)
	assert.False(t, decoded.IsNil())
	assert.True(t, PsychologistID{}.IsNil())
}
