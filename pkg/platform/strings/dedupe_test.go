package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeFold(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "empty slice",
			input:    []string{},
			expected: []string{},
		},
		{
			name:     "trims and collapses whitespace",
			input:    []string{"  Terapia   cognitiva ", "Neuropsicologia  "},
			expected: []string{"Terapia cognitiva", "Neuropsicologia"},
		},
		{
			name:     "removes case-insensitive duplicates keeping first spelling",
			input:    []string{"Psicanálise", "psicanálise", "PSICANÁLISE"},
			expected: []string{"Psicanálise"},
		},
		{
			name:     "removes blanks preserving order",
			input:    []string{"b", "", "  ", "a", "b"},
			expected: []string{"b", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeFold(tt.input))
		})
	}
}

func TestSplitAndJoinList(t *testing.T) {
	t.Run("empty string yields empty slice", func(t *testing.T) {
		assert.Equal(t, []string{}, SplitList("   ", ","))
	})

	t.Run("splits comma separated values", func(t *testing.T) {
		assert.Equal(t, []string{"Infantil", "Casal"}, SplitList("Infantil, Casal,,infantil", ","))
	})

	t.Run("join then split preserves values", func(t *testing.T) {
		values := []string{"Clínica", "Organizacional", "Hospitalar"}
		assert.Equal(t, values, SplitList(JoinList(values, ","), ","))
	})
}
