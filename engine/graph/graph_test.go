package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphNodes(t *testing.T) {
	t.Parallel()

	g := New("g")
	a := newTestNode("A")
	require.NoError(t, g.AddNode(a))
	require.ErrorIs(t, g.AddNode(a), ErrDuplicateNode)
	require.Error(t, g.AddNode(nil))

	n, ok := g.Node(a.ID())
	require.True(t, ok)
	assert.Equal(t, "A", n.InstanceName())
	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, "g", g.Name())
}

func TestGraphAddEdgeResolvesVertices(t *testing.T) {
	t.Parallel()

	g, byName := chain([]string{"A", "B"}, nil)
	a, b := byName["A"], byName["B"]

	e, err := g.AddEdge(a.ID(), "Out", b.ID(), "In")
	require.NoError(t, err)
	assert.Equal(t, "A.Out -> B.In", e.String())
	assert.True(t, e.Connects(a.ID(), "Out", b.ID(), "In"))

	_, err = g.AddEdge(a.ID(), "Nope", b.ID(), "In")
	require.ErrorIs(t, err, ErrVertexNotFound)

	_, err = g.AddEdge(a.ID(), "Out", b.ID(), "Nope")
	require.ErrorIs(t, err, ErrVertexNotFound)

	_, err = g.AddEdge(NewNodeID(), "Out", b.ID(), "In")
	require.ErrorIs(t, err, ErrNodeNotFound)

	assert.Len(t, g.IncomingEdges(b.ID()), 1)
	assert.Len(t, g.OutgoingEdges(a.ID()), 1)
	assert.Len(t, g.EdgesInto(b.ID(), "In"), 1)

	require.True(t, g.RemoveEdge(a.ID(), "Out", b.ID(), "In"))
	assert.False(t, g.RemoveEdge(a.ID(), "Out", b.ID(), "In"))
	assert.Empty(t, g.Edges())
}

func TestGraphInputsOutputs(t *testing.T) {
	t.Parallel()

	g, byName := chain([]string{"A", "B"}, [][2]string{{"A", "B"}})
	a, b := byName["A"], byName["B"]

	require.NoError(t, g.AddInputDestination("Freq", a.ID(), "In"))
	require.ErrorIs(t, g.AddInputDestination("Freq", a.ID(), "In"), ErrDuplicateName)
	require.ErrorIs(t, g.AddInputDestination("X", a.ID(), "Missing"), ErrVertexNotFound)
	require.NoError(t, g.AddOutputSource("Result", b.ID(), "Out"))
	require.ErrorIs(t, g.AddOutputSource("Y", NewNodeID(), "Out"), ErrNodeNotFound)

	assert.Equal(t, []string{"Freq"}, g.InputNames())
	assert.Equal(t, []string{"Result"}, g.OutputNames())

	clone := g.Clone()

	require.True(t, g.RemoveNode(a.ID()))
	assert.False(t, g.RemoveNode(a.ID()))
	assert.Empty(t, g.Edges())
	assert.Empty(t, g.InputNames())
	assert.Equal(t, []string{"Result"}, g.OutputNames())

	// The clone is unaffected.
	assert.Len(t, clone.Edges(), 1)
	assert.Equal(t, []string{"Freq"}, clone.InputNames())
	assert.True(t, clone.ContainsNode(a.ID()))

	require.True(t, g.RemoveOutputSource("Result"))
	assert.False(t, g.RemoveOutputSource("Result"))

	_, ok := g.OutputSource("Result")
	assert.False(t, ok)
}

func TestBuildErrors(t *testing.T) {
	t.Parallel()

	var errs BuildErrors
	assert.NoError(t, errs.Err())

	id := NewNodeID()
	errs.Add(NewError(KindGraphCycle, "cycle through %d nodes", 2).WithNodes(id))
	errs.Add(NewError(KindMissingVertex, "gone").WithVertex("In"))
	errs.Add(nil)

	require.Equal(t, 2, errs.Len())
	assert.Len(t, errs.OfKind(KindGraphCycle), 1)
	assert.Equal(t, "graph-cycle: cycle through 2 nodes", errs.All()[0].Error())
	assert.Equal(t, "In", errs.All()[1].Vertex)
	require.Error(t, errs.Err())
	assert.Contains(t, errs.String(), "missing-vertex: gone")

	var nilErrs *BuildErrors
	nilErrs.Add(NewError(KindInternal, "dropped"))
	assert.Zero(t, nilErrs.Len())
	assert.Equal(t, "kind(200)", ErrorKind(200).String())
}
