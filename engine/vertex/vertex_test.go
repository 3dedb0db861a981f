package vertex

import (
	"testing"

	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInterfaceRejectsDuplicates(t *testing.T) {
	t.Parallel()

	_, err := NewInterface([]Input{{Name: "In", TypeName: data.TypeFloat}, {Name: "In", TypeName: data.TypeInt32}}, nil)
	require.Error(t, err)

	_, err = NewInterface(nil, []Output{{Name: "Out"}, {Name: "Out"}})
	require.Error(t, err)

	_, err = NewInterface([]Input{{}}, nil)
	require.Error(t, err)

	// The same name may appear once on each side.
	_, err = NewInterface([]Input{{Name: "Value"}}, []Output{{Name: "Value"}})
	require.NoError(t, err)
}

func TestInterfaceLookup(t *testing.T) {
	t.Parallel()

	iface := MustInterface(
		[]Input{
			{Name: "Gain", TypeName: data.TypeFloat, Default: data.FloatLiteral(1)},
			{Name: "In", TypeName: data.TypeAudio},
		},
		[]Output{{Name: "Out", TypeName: data.TypeAudio}},
	)

	in, ok := iface.Input("Gain")
	require.True(t, ok)

	def, _ := in.Default.AsFloat()
	assert.InDelta(t, 1.0, def, 0)

	assert.True(t, iface.ContainsInput("In", data.TypeAudio))
	assert.False(t, iface.ContainsInput("In", data.TypeFloat))
	assert.True(t, iface.ContainsOutput("Out", data.TypeAudio))

	_, ok = iface.Output("Missing")
	assert.False(t, ok)

	assert.Equal(t, "Gain", iface.Inputs()[0].Name)
	assert.Equal(t, []string{"Gain", "In"}, iface.InputNames())
	assert.Equal(t, []string{"Out"}, iface.OutputNames())
}

func TestInterfaceEqualIgnoresOrder(t *testing.T) {
	t.Parallel()

	a := MustInterface([]Input{{Name: "A", TypeName: "Float"}, {Name: "B", TypeName: "Int32"}}, nil)
	b := MustInterface([]Input{{Name: "B", TypeName: "Int32"}, {Name: "A", TypeName: "Float"}}, nil)
	c := MustInterface([]Input{{Name: "B", TypeName: "Float"}, {Name: "A", TypeName: "Float"}}, nil)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(Interface{}))
	assert.Panics(t, func() { MustInterface([]Input{{Name: "X"}, {Name: "X"}}, nil) })
}
