package dynamic

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-opgraph/engine/core"
	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/nodes"
	"github.com/cwbudde/algo-opgraph/engine/vertex"
	"github.com/cwbudde/algo-opgraph/internal/testutil"
)

// liveGraph is A -> B -> Y where A writes 5 and B writes 1 + In. B.In
// defaults to 7.
type liveGraph struct {
	g     *graph.Graph
	a, b  *testutil.Node
	out   *nodes.Node
	trace *testutil.Trace
}

func newLiveGraph(t *testing.T) *liveGraph {
	t.Helper()

	trace := &testutil.Trace{}
	a := testutil.SumNode("A", trace, 5, nil, []string{"Out"})
	b := testutil.NewNode("B", vertex.MustInterface(
		[]vertex.Input{{Name: "In", TypeName: data.TypeFloat, Default: data.FloatLiteral(7)}},
		[]vertex.Output{{Name: "Out", TypeName: data.TypeFloat}},
	), testutil.SumFactory(trace, 1))
	out := nodes.NewOutput("Y", data.TypeFloat)

	g := graph.New("live")
	testutil.AddNodes(g, a, b, out)
	testutil.Connect(g, a, "Out", b, "In")
	testutil.Connect(g, b, "Out", out, "Y")
	require.NoError(t, g.AddOutputSource("Y", out.ID(), "Y"))

	return &liveGraph{g: g, a: a, b: b, out: out, trace: trace}
}

func testSettings() core.OperatorSettings {
	return core.ApplyOptions(core.WithSampleRate(48000), core.WithBlockSize(64))
}

func newInstance(t *testing.T, tr *Transactor, opts ...OperatorOption) *Operator {
	t.Helper()

	op, err := tr.NewOperator(testSettings(), nil, opts...)
	require.NoError(t, err)
	t.Cleanup(op.Release)

	return op
}

func floatOut(t *testing.T, op *Operator, name string) float64 {
	t.Helper()

	r, ok := data.GetRead[float64](op.Outputs(), name)
	require.True(t, ok, "missing output %q", name)

	return r.Get()
}

func inputValue(t *testing.T, op *Operator, id graph.NodeID, vertexName string) any {
	t.Helper()

	inner, ok := op.Operator(id)
	require.True(t, ok)

	ref, ok := inner.Inputs().Get(vertexName)
	require.True(t, ok)

	return ref.Value()
}
