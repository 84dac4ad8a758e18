package applier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloseMatches(t *testing.T) {
	candidates := []string{"alpha", "beta", "alphabet", "gamma", "alpine"}

	tests := []struct {
		word string
		want []string
	}{
		{"alpha", []string{"alpha", "alphabet", "alpine"}},
		{"bta", []string{"beta"}},
		{"zzz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, closeMatches(tt.word, candidates))
		})
	}
}
