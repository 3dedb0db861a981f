package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-opgraph/engine/data"
)

func TestDefaultRegistryClasses(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()

	assert.Equal(t, []string{
		ClassAddFloat, ClassLowpass, ClassGain, ClassInput, ClassIntToFloat, ClassLiteral,
		ClassMixer, ClassMultiply, ClassOutput, ClassSine, ClassSpectralPeak,
	}, r.Classes())
}

func TestRegistryNew(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()

	tests := []struct {
		name    string
		class   string
		params  map[string]any
		wantErr bool
		check   func(t *testing.T, n *Node)
	}{
		{
			name:   "weakly typed sine",
			class:  ClassSine,
			params: map[string]any{"frequency": "220", "amplitude": 0.5},
			check: func(t *testing.T, n *Node) {
				in, ok := n.VertexInterface().Input("Frequency")
				require.True(t, ok)

				f, _ := in.Default.AsFloat()
				assert.InDelta(t, 220, f, 0)
			},
		},
		{
			name:   "mixer inputs",
			class:  ClassMixer,
			params: map[string]any{"inputs": 4},
			check: func(t *testing.T, n *Node) {
				assert.Len(t, n.VertexInterface().Inputs(), 4)
			},
		},
		{
			name:   "literal",
			class:  ClassLiteral,
			params: map[string]any{"type": data.TypeInt32, "value": 3},
			check: func(t *testing.T, n *Node) {
				assert.Equal(t, "OpGraph.Literal v1.0", n.Class().String())
				assert.True(t, n.VertexInterface().ContainsOutput(LiteralVertex, data.TypeInt32))
			},
		},
		{
			name:   "input default",
			class:  ClassInput,
			params: map[string]any{"type": data.TypeFloat, "default": 2.5},
			check: func(t *testing.T, n *Node) {
				in, ok := n.VertexInterface().Input(n.InstanceName())
				require.True(t, ok)
				assert.Equal(t, data.FloatLiteral(2.5), in.Default)
			},
		},
		{name: "unknown key", class: ClassGain, params: map[string]any{"gian": 1}, wantErr: true},
		{name: "missing type", class: ClassOutput, params: map[string]any{}, wantErr: true},
		{name: "params on parameterless class", class: ClassMultiply, params: map[string]any{"x": 1}, wantErr: true},
		{name: "unknown class", class: "Reverb", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			n, err := r.New(tc.class, "node", tc.params)

			if tc.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			tc.check(t, n)
		})
	}
}

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	ctor := noParams(NewMultiply)
	require.NoError(t, r.Register("Mul", ctor))
	require.Error(t, r.Register("Mul", ctor))
	require.Error(t, r.Register("", ctor))
	require.Error(t, r.Register("Nil", nil))
	assert.Panics(t, func() { r.MustRegister("Mul", ctor) })
	assert.Nil(t, r.Lookup("Other"))
}
