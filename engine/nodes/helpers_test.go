package nodes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-opgraph/engine/builder"
	"github.com/cwbudde/algo-opgraph/engine/core"
	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/graph"
)

const testSampleRate = 48000

func testSettings(blockSize int) core.OperatorSettings {
	return core.ApplyOptions(core.WithSampleRate(testSampleRate), core.WithBlockSize(blockSize))
}

// testGraph collects nodes and edges and exposes named outputs.
type testGraph struct {
	t *testing.T
	g *graph.Graph
}

func newTestGraph(t *testing.T, nodes ...graph.Node) *testGraph {
	t.Helper()

	g := graph.New(t.Name())

	for _, n := range nodes {
		require.NoError(t, g.AddNode(n))
	}

	return &testGraph{t: t, g: g}
}

func (tg *testGraph) connect(from graph.Node, fromVertex string, to graph.Node, toVertex string) *testGraph {
	tg.t.Helper()

	_, err := tg.g.AddEdge(from.ID(), fromVertex, to.ID(), toVertex)
	require.NoError(tg.t, err)

	return tg
}

// output adds an Output node reading from.fromVertex and exposes it as
// graph output name.
func (tg *testGraph) output(name, typeName string, from graph.Node, fromVertex string) *testGraph {
	tg.t.Helper()

	out := NewOutput(name, typeName)
	require.NoError(tg.t, tg.g.AddNode(out))
	tg.connect(from, fromVertex, out, name)
	require.NoError(tg.t, tg.g.AddOutputSource(name, out.ID(), name))

	return tg
}

// input adds an Input node feeding to.toVertex and exposes it as graph
// input name.
func (tg *testGraph) input(name, typeName string, def data.Literal, to graph.Node, toVertex string) *testGraph {
	tg.t.Helper()

	in := NewInput(name, typeName, def)
	require.NoError(tg.t, tg.g.AddNode(in))
	tg.connect(in, name, to, toVertex)
	require.NoError(tg.t, tg.g.AddInputDestination(name, in.ID(), name))

	return tg
}

func (tg *testGraph) build(settings core.OperatorSettings) *builder.GraphOperator {
	tg.t.Helper()

	op, res := builder.New().Build(builder.BuildParams{Graph: tg.g, Settings: settings})
	require.NotNil(tg.t, op, res.Errors.String())

	return op
}

func audioOutput(t *testing.T, op *builder.GraphOperator, name string) []float64 {
	t.Helper()

	r, ok := data.GetRead[*data.Buffer](op.Outputs(), name)
	require.True(t, ok, "missing audio output %q", name)

	return r.Get().Samples()
}

func floatOutput(t *testing.T, op *builder.GraphOperator, name string) float64 {
	t.Helper()

	r, ok := data.GetRead[float64](op.Outputs(), name)
	require.True(t, ok, "missing float output %q", name)

	return r.Get()
}
