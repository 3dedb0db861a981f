package graph

import (
	"testing"

	"github.com/cwbudde/algo-opgraph/engine/core"
	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ioOperator struct {
	IO
	in data.ReadRef[float64]
}

func TestIORebindsTypedViews(t *testing.T) {
	t.Parallel()

	types := data.NewBuiltinRegistry()
	settings := core.DefaultSettings()

	first, err := data.CreateWrite[float64](types, data.TypeFloat, settings, data.FloatLiteral(1))
	require.NoError(t, err)

	second, err := data.CreateWrite[float64](types, data.TypeFloat, settings, data.FloatLiteral(2))
	require.NoError(t, err)

	text, err := types.Create(data.TypeString, settings, data.StringLiteral("x"))
	require.NoError(t, err)

	op := &ioOperator{}
	BindInput(&op.IO, "In", &op.in, first.AsRead())
	assert.InDelta(t, 1.0, op.in.Get(), 0)

	rebind := data.NewCollection()
	rebind.AddRead("In", second.Ref())
	rebind.AddRead("Unknown", second.Ref())
	op.BindInputs(rebind)
	assert.InDelta(t, 2.0, op.in.Get(), 0)

	ref, ok := op.Inputs().Get("In")
	require.True(t, ok)
	assert.True(t, ref.SameValue(second.Ref()))
	assert.False(t, op.Inputs().ContainsRead("Unknown", data.TypeFloat))

	wrongType := data.NewCollection()
	wrongType.AddRead("In", text)
	op.BindInputs(wrongType)
	assert.InDelta(t, 2.0, op.in.Get(), 0)
}

func TestIOOutputsAndRawInputs(t *testing.T) {
	t.Parallel()

	types := data.NewBuiltinRegistry()
	ref, err := types.CreateDefault(data.TypeInt32, core.DefaultSettings())
	require.NoError(t, err)

	var io IO
	io.SetInput("Value", ref)
	io.SetOutput("Value", ref)

	assert.True(t, io.Inputs().ContainsWrite("Value", data.TypeInt32))
	assert.True(t, io.Outputs().ContainsWrite("Value", data.TypeInt32))
}
