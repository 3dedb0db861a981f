package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/nodes"
	"github.com/cwbudde/algo-opgraph/internal/testutil"
)

// plusTen is a graph computing Y = X + 10.
func plusTen(t *testing.T, trace *testutil.Trace) *graph.Graph {
	t.Helper()

	in := nodes.NewInput("X", data.TypeFloat, data.FloatLiteral(0))
	sum := testutil.SumNode("inner", trace, 10, []string{"In"}, []string{"Out"})
	out := nodes.NewOutput("Y", data.TypeFloat)

	g := graph.New("plus-ten")
	testutil.AddNodes(g, in, sum, out)
	testutil.Connect(g, in, "X", sum, "In")
	testutil.Connect(g, sum, "Out", out, "Y")
	require.NoError(t, g.AddInputDestination("X", in.ID(), "X"))
	require.NoError(t, g.AddOutputSource("Y", out.ID(), "Y"))

	return g
}

func TestSubgraphNode(t *testing.T) {
	t.Parallel()

	trace := &testutil.Trace{}
	sub, err := NewSubgraphNode("sub", plusTen(t, trace), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"X"}, sub.VertexInterface().InputNames())
	assert.Equal(t, []string{"Y"}, sub.VertexInterface().OutputNames())
	assert.Equal(t, "Graph.plus-ten v1.0", sub.Class().String())

	five := nodes.NewLiteral("five", data.TypeFloat, data.FloatLiteral(5))
	out := nodes.NewOutput("Result", data.TypeFloat)
	g := graph.New("outer")
	testutil.AddNodes(g, out, sub, five)
	testutil.Connect(g, five, nodes.LiteralVertex, sub, "X")
	testutil.Connect(g, sub, "Y", out, "Result")
	require.NoError(t, g.AddOutputSource("Result", out.ID(), "Result"))

	op := mustBuild(t, g)
	assert.Equal(t, 1, op.ExecuteStackLen())
	op.Execute()
	assert.InDelta(t, 15, floatValue(t, op.Outputs(), "Result"), 0)
	assert.Equal(t, []string{"inner"}, trace.Executed())
}

func TestSubgraphUnconnectedInputUsesDefault(t *testing.T) {
	t.Parallel()

	sub, err := NewSubgraphNode("sub", plusTen(t, nil), nil)
	require.NoError(t, err)

	out := nodes.NewOutput("Result", data.TypeFloat)
	g := graph.New("outer")
	testutil.AddNodes(g, sub, out)
	testutil.Connect(g, sub, "Y", out, "Result")
	require.NoError(t, g.AddOutputSource("Result", out.ID(), "Result"))

	op := mustBuild(t, g)
	op.Execute()
	assert.InDelta(t, 10, floatValue(t, op.Outputs(), "Result"), 0)
}

func TestSubgraphErrorsPropagate(t *testing.T) {
	t.Parallel()

	inner := graph.New("broken")
	testutil.AddNodes(inner, testutil.FailingNode("F", nil, nil))

	sub, err := NewSubgraphNode("sub", inner, nil)
	require.NoError(t, err)

	g := graph.New("outer")
	testutil.AddNodes(g, sub)

	op, res := build(t, g)
	assert.Nil(t, op)

	failures := res.Errors.OfKind(graph.KindFactoryFailure)
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, `subgraph "sub"`)
}

func TestGraphOperatorRebindsInputs(t *testing.T) {
	t.Parallel()

	op := mustBuild(t, plusTen(t, nil))
	op.Execute()
	assert.InDelta(t, 10, floatValue(t, op.Outputs(), "Y"), 0)

	host, err := data.CreateWrite[float64](data.NewBuiltinRegistry(), data.TypeFloat, settings(), data.FloatLiteral(7))
	require.NoError(t, err)

	c := data.NewCollection()
	c.AddRead("X", host.Ref())
	op.BindInputs(c)

	op.Execute()
	assert.InDelta(t, 17, floatValue(t, op.Outputs(), "Y"), 0)
	host.Set(1)
	op.Execute()
	assert.InDelta(t, 11, floatValue(t, op.Outputs(), "Y"), 0)

	ref, ok := op.Inputs().Get("X")
	require.True(t, ok)
	assert.True(t, ref.SameValue(host.Ref()))
}
