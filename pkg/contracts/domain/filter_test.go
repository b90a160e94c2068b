package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitValues(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "single", input: "Acme", want: []string{"Acme"}},
		{name: "comma separated", input: "tx, ca ,NY", want: []string{"tx", "ca", "NY"}},
		{name: "blanks dropped", input: "a,,b, ", want: []string{"a", "b"}},
		{name: "empty", input: "", want: nil},
		{name: "quoted comma", input: `"Smith, Jones & Co",Acme`, want: []string{"Smith, Jones & Co", "Acme"}},
		{name: "quoted after space", input: `Acme, "Bolt, Inc"`, want: []string{"Acme", "Bolt, Inc"}},
		{name: "escaped quote", input: `"The ""Best"" Supply"`, want: []string{`The "Best" Supply`}},
		{name: "bare quote falls back", input: `O"Brien,Acme`, want: []string{`O"Brien`, "Acme"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitValues(tt.input))
		})
	}
}

func TestFilterSpec_KeyIgnoresOrder(t *testing.T) {
	a := FilterSpec{Suppliers: []string{"Bolt, Inc", "Acme"}}
	b := FilterSpec{Suppliers: []string{"Acme", "Bolt, Inc", "Acme"}}
	assert.Equal(t, a.Key(), b.Key())
	assert.Empty(t, FilterSpec{}.Key())
}
