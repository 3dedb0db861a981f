package dynamic

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/metrics"
	"github.com/cwbudde/algo-opgraph/engine/nodes"
	"github.com/cwbudde/algo-opgraph/internal/testutil"
)

func TestNewOperatorRunsCurrentGraph(t *testing.T) {
	t.Parallel()

	lg := newLiveGraph(t)
	tr := NewTransactor(lg.g)
	op := newInstance(t, tr)

	assert.Equal(t, []graph.NodeID{lg.a.ID(), lg.b.ID(), lg.out.ID()}, op.Order())
	assert.Equal(t, 2, op.ExecuteStackLen())
	op.Execute()
	assert.InDelta(t, 6, floatOut(t, op, "Y"), 0)
	assert.Equal(t, []string{"A", "B"}, lg.trace.Executed())
	assert.Equal(t, 1, tr.Instances())
}

func TestNewOperatorBuildFailure(t *testing.T) {
	t.Parallel()

	g := graph.New("broken")
	testutil.AddNodes(g, testutil.FailingNode("F", nil, []string{"Out"}))

	op, err := NewTransactor(g).NewOperator(testSettings(), nil)
	require.Error(t, err)
	assert.Nil(t, op)
	assert.Contains(t, err.Error(), "factory-failure")
}

func TestEditIsOneAtomicTransform(t *testing.T) {
	t.Parallel()

	lg := newLiveGraph(t)
	tr := NewTransactor(lg.g)
	op := newInstance(t, tr)
	op.Execute()

	d := testutil.SumNode("D", lg.trace, 100, nil, []string{"Out"})
	err := tr.Edit(func(e *Edit) error {
		err := e.AddNode(d)
		if err != nil {
			return err
		}

		return e.AddDataEdge(d.ID(), "Out", lg.b.ID(), "In")
	})
	require.NoError(t, err)

	// The mirror changes at once, the instance only at its next block.
	mirror := tr.Graph()
	assert.True(t, mirror.ContainsNode(d.ID()))
	require.Len(t, mirror.EdgesInto(lg.b.ID(), "In"), 1)
	assert.Equal(t, d.ID(), mirror.EdgesInto(lg.b.ID(), "In")[0].From.Node.ID())
	assert.Equal(t, 1, op.Pending())
	assert.InDelta(t, 6, floatOut(t, op, "Y"), 0)

	lg.trace.Clear()
	op.Execute()
	assert.Equal(t, 0, op.Pending())
	assert.InDelta(t, 101, floatOut(t, op, "Y"), 0)
	assert.Equal(t, []string{"A", "D", "B"}, lg.trace.Executed())
}

func TestRemoveDataEdgeFeedsReplacementLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		replacement data.Literal
		want        float64
	}{
		{name: "explicit", replacement: data.FloatLiteral(42), want: 42},
		{name: "vertex default", replacement: data.NoneLiteral(), want: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			lg := newLiveGraph(t)
			tr := NewTransactor(lg.g)
			op := newInstance(t, tr)
			op.Execute()

			require.NoError(t, tr.RemoveDataEdge(lg.a.ID(), "Out", lg.b.ID(), "In", tt.replacement))
			op.Execute()

			assert.Equal(t, tt.want, inputValue(t, op, lg.b.ID(), "In"))
			assert.InDelta(t, tt.want+1, floatOut(t, op, "Y"), 0)

			edges := tr.Graph().EdgesInto(lg.b.ID(), "In")
			require.Len(t, edges, 1)
			assert.Equal(t, nodes.ClassLiteral, edges[0].From.Node.Class().Name.Name)
		})
	}
}

func TestRemoveMissingEdge(t *testing.T) {
	t.Parallel()

	lg := newLiveGraph(t)
	tr := NewTransactor(lg.g)
	op := newInstance(t, tr)

	err := tr.RemoveDataEdge(lg.b.ID(), "Out", lg.a.ID(), "Out", data.NoneLiteral())
	require.ErrorIs(t, err, ErrEdgeNotFound)
	assert.Equal(t, 0, op.Pending())
}

func TestFenceHoldsLaterTransforms(t *testing.T) {
	t.Parallel()

	lg := newLiveGraph(t)
	tr := NewTransactor(lg.g)
	op := newInstance(t, tr)

	require.NoError(t, tr.RemoveDataEdge(lg.a.ID(), "Out", lg.b.ID(), "In", data.FloatLiteral(42)))
	require.NoError(t, tr.AddDataEdge(lg.a.ID(), "Out", lg.b.ID(), "In"))
	assert.Equal(t, 3, op.Pending())

	op.Execute()
	assert.Equal(t, 1, op.Pending())
	assert.InDelta(t, 43, floatOut(t, op, "Y"), 0)

	op.Execute()
	assert.Equal(t, 0, op.Pending())
	assert.InDelta(t, 6, floatOut(t, op, "Y"), 0)
	assert.Len(t, tr.Graph().Nodes(), 3, "literal node should be gone")
}

func TestCycleIsRejected(t *testing.T) {
	t.Parallel()

	lg := newLiveGraph(t)
	tr := NewTransactor(lg.g)
	op := newInstance(t, tr)

	d := testutil.SumNode("D", lg.trace, 0, []string{"In"}, []string{"Out"})
	require.NoError(t, tr.AddNode(d))
	require.NoError(t, tr.AddDataEdge(lg.b.ID(), "Out", d.ID(), "In"))

	pending := op.Pending()
	before := tr.Graph().Edges()

	err := tr.AddDataEdge(d.ID(), "Out", lg.b.ID(), "In")
	require.ErrorIs(t, err, graph.ErrCycle)
	assert.Equal(t, pending, op.Pending())
	assert.Len(t, tr.Graph().Edges(), len(before))
	assert.Equal(t, lg.a.ID(), tr.Graph().EdgesInto(lg.b.ID(), "In")[0].From.Node.ID())

	op.Execute()
	assert.InDelta(t, 6, floatOut(t, op, "Y"), 0)
}

func TestInvalidEditsChangeNothing(t *testing.T) {
	t.Parallel()

	lg := newLiveGraph(t)
	conv := nodes.NewIntToFloat("conv")
	testutil.AddNodes(lg.g, conv)

	tr := NewTransactor(lg.g)
	op := newInstance(t, tr)
	edges := len(tr.Graph().Edges())

	tests := []struct {
		name string
		edit func() error
		want error
	}{
		{
			name: "unknown node",
			edit: func() error { return tr.RemoveNode(graph.NewNodeID()) },
			want: graph.ErrNodeNotFound,
		},
		{
			name: "unknown vertex",
			edit: func() error { return tr.AddDataEdge(lg.a.ID(), "Nope", lg.b.ID(), "In") },
			want: graph.ErrVertexNotFound,
		},
		{
			name: "type mismatch",
			edit: func() error { return tr.AddDataEdge(lg.a.ID(), "Out", conv.ID(), "In") },
			want: ErrTypeMismatch,
		},
		{
			name: "unknown graph input",
			edit: func() error { return tr.RemoveInputDataDestination("X") },
			want: ErrNameNotFound,
		},
		{
			name: "unknown graph output",
			edit: func() error { return tr.RemoveOutputDataSource("Z") },
			want: ErrNameNotFound,
		},
		{
			name: "value on connected input",
			edit: func() error { return tr.SetValue(lg.b.ID(), "In", data.FloatLiteral(1)) },
			want: ErrInputConnected,
		},
		{
			name: "duplicate node",
			edit: func() error { return tr.AddNode(lg.a) },
			want: graph.ErrDuplicateNode,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.edit(), tt.want)
			assert.Equal(t, 0, op.Pending())
			assert.Len(t, tr.Graph().Edges(), edges)
		})
	}
}

func TestRemoveNodeFeedsDefaults(t *testing.T) {
	t.Parallel()

	lg := newLiveGraph(t)
	tr := NewTransactor(lg.g)
	op := newInstance(t, tr)

	require.NoError(t, tr.RemoveNode(lg.a.ID()))
	assert.False(t, tr.Graph().ContainsNode(lg.a.ID()))

	lg.trace.Clear()
	op.Execute()
	assert.InDelta(t, 8, floatOut(t, op, "Y"), 0)
	assert.Equal(t, []string{"B"}, lg.trace.Executed())
	assert.NotContains(t, op.Order(), lg.a.ID())

	_, ok := op.Operator(lg.a.ID())
	assert.False(t, ok)
}

func TestRemoveOwnedLiteralQueuesOneRemoval(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	lg := newLiveGraph(t)
	tr := NewTransactor(lg.g, WithLogger(logger))
	op := newInstance(t, tr)

	require.NoError(t, tr.RemoveDataEdge(lg.a.ID(), "Out", lg.b.ID(), "In", data.FloatLiteral(42)))
	op.Execute()
	require.InDelta(t, 43, floatOut(t, op, "Y"), 0)

	lit, ok := tr.literals[inputKey{lg.b.ID(), "In"}]
	require.True(t, ok)
	require.NoError(t, tr.RemoveNode(lit))
	op.Execute()
	op.Execute()

	assert.InDelta(t, 8, floatOut(t, op, "Y"), 0)
	assert.False(t, tr.Graph().ContainsNode(lit))

	_, ok = op.Operator(lit)
	assert.False(t, ok)
	assert.NotContains(t, logs.String(), "skipped stale transform")

	next, ok := tr.literals[inputKey{lg.b.ID(), "In"}]
	require.True(t, ok)
	assert.NotEqual(t, lit, next)
}

func TestSetValue(t *testing.T) {
	t.Parallel()

	lg := newLiveGraph(t)
	tr := NewTransactor(lg.g)
	op := newInstance(t, tr)

	require.NoError(t, tr.RemoveNode(lg.a.ID()))
	op.Execute()

	count := len(tr.Graph().Nodes())

	require.NoError(t, tr.SetValue(lg.b.ID(), "In", data.FloatLiteral(3)))
	op.Execute()
	assert.InDelta(t, 4, floatOut(t, op, "Y"), 0)

	require.NoError(t, tr.SetValue(lg.b.ID(), "In", data.FloatLiteral(9)))
	op.Execute()
	assert.InDelta(t, 10, floatOut(t, op, "Y"), 0)
	assert.Len(t, tr.Graph().Nodes(), count, "the previous literal should be replaced")

	require.ErrorIs(t, tr.SetValue(lg.b.ID(), "Nope", data.FloatLiteral(1)), graph.ErrVertexNotFound)
}

func TestOutputNodeFollowsNewSource(t *testing.T) {
	t.Parallel()

	lg := newLiveGraph(t)
	tr := NewTransactor(lg.g)
	op := newInstance(t, tr)

	require.NoError(t, tr.AddDataEdge(lg.a.ID(), "Out", lg.out.ID(), "Y"))
	op.Execute()
	assert.InDelta(t, 5, floatOut(t, op, "Y"), 0)

	a, ok := op.Operator(lg.a.ID())
	require.True(t, ok)

	src, _ := a.Outputs().Read("Out")
	y, _ := op.Outputs().Read("Y")
	assert.True(t, y.SameValue(src))
}

func TestGraphVertexCallbacks(t *testing.T) {
	t.Parallel()

	lg := newLiveGraph(t)
	tr := NewTransactor(lg.g)

	var (
		events []string
		added  data.Reference
		cb     Callbacks
	)
	cb.OnInputAdded = func(name string, _ data.Reference) { events = append(events, "+in:"+name) }
	cb.OnInputRemoved = func(name string) { events = append(events, "-in:"+name) }
	cb.OnOutputAdded = func(name string, ref data.Reference) {
		events = append(events, "+out:"+name)
		added = ref
	}
	cb.OnOutputRemoved = func(name string) { events = append(events, "-out:"+name) }
	op := newInstance(t, tr, WithCallbacks(cb))

	require.NoError(t, tr.AddOutputDataSource("Z", lg.a.ID(), "Out"))
	require.NoError(t, tr.AddInputDataDestination("X", lg.b.ID(), "In"))
	assert.Empty(t, events, "callbacks run on the render side")

	op.Execute()
	assert.Equal(t, []string{"+out:Z", "+in:X"}, events)
	require.True(t, added.IsValid())
	assert.Equal(t, 5.0, added.Value())
	assert.InDelta(t, 5, floatOut(t, op, "Z"), 0)

	require.NoError(t, tr.RemoveOutputDataSource("Z"))
	require.NoError(t, tr.RemoveInputDataDestination("X"))
	op.Execute()
	assert.Equal(t, []string{"+out:Z", "+in:X", "-out:Z", "-in:X"}, events)

	_, ok := op.Outputs().Get("Z")
	assert.False(t, ok)
}

func TestBindGraphInputs(t *testing.T) {
	t.Parallel()

	trace := &testutil.Trace{}
	in := nodes.NewInput("X", data.TypeFloat, data.FloatLiteral(2))
	sum := testutil.SumNode("S", trace, 1, []string{"In"}, []string{"Out"})
	g := graph.New("inputs")
	testutil.AddNodes(g, in, sum)
	testutil.Connect(g, in, "X", sum, "In")
	require.NoError(t, g.AddInputDestination("X", in.ID(), "X"))
	require.NoError(t, g.AddOutputSource("Y", sum.ID(), "Out"))

	op := newInstance(t, NewTransactor(g))
	op.Execute()
	assert.InDelta(t, 3, floatOut(t, op, "Y"), 0)

	x, ok := data.GetWrite[float64](op.Inputs(), "X")
	require.True(t, ok)
	x.Set(10)
	op.Execute()
	assert.InDelta(t, 11, floatOut(t, op, "Y"), 0)

	external, err := data.NewBuiltinRegistry().Create(data.TypeFloat, testSettings(), data.FloatLiteral(20))
	require.NoError(t, err)

	bound := data.NewCollection()
	bound.Add("X", external)
	op.BindInputs(bound)
	op.Execute()
	assert.InDelta(t, 21, floatOut(t, op, "Y"), 0)
}

func TestEditsFanOutAndStopAfterRelease(t *testing.T) {
	t.Parallel()

	lg := newLiveGraph(t)
	tr := NewTransactor(lg.g)
	first := newInstance(t, tr)
	second := newInstance(t, tr)

	assert.Equal(t, 2, tr.Instances())

	require.NoError(t, tr.AddDataEdge(lg.a.ID(), "Out", lg.out.ID(), "Y"))
	assert.Equal(t, 1, first.Pending())
	assert.Equal(t, 1, second.Pending())

	second.Release()
	assert.True(t, second.Released())
	assert.Equal(t, 1, tr.Instances())

	require.NoError(t, tr.AddDataEdge(lg.b.ID(), "Out", lg.out.ID(), "Y"))
	assert.Equal(t, 2, first.Pending())
	assert.Equal(t, 1, second.Pending())
}

func TestStaleTransformsAreSkipped(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reg := prometheus.NewRegistry()
	m := metrics.New()
	m.MustRegister(reg)

	lg := newLiveGraph(t)
	tr := NewTransactor(lg.g, WithLogger(logger), WithMetrics(m))
	op := newInstance(t, tr)

	gone := graph.NewNodeID()
	op.enqueue(ConnectOperators{From: gone, FromVertex: "Out", To: lg.b.ID(), ToVertex: "In"})
	op.enqueue(AtomicTransform{Transforms: []Transform{
		RemoveOperator{ID: gone},
		AddInput{Name: "X", ID: gone, Vertex: "In"},
	}})
	op.enqueue(NullTransform{})

	require.NotPanics(t, op.Execute)
	assert.Equal(t, 0, op.Pending())
	assert.InDelta(t, 6, floatOut(t, op, "Y"), 0)
	assert.Contains(t, logs.String(), "skipped stale transform")

	count, err := promtest.GatherAndCount(reg, "opgraph_dynamic_transforms_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 3)
}

// Every edit swaps the node feeding B for a new one inside a single atomic
// transform. A block that saw the removal without the new edge would read
// the literal B.In falls back to.
func TestConcurrentEditsAreAtomic(t *testing.T) {
	t.Parallel()

	const edits = 200
	lg := newLiveGraph(t)
	tr := NewTransactor(lg.g)
	op := newInstance(t, tr)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		prev := lg.a.ID()

		for i := range edits {
			next := testutil.SumNode("D", nil, float64(100+i), nil, []string{"Out"})
			err := tr.Edit(func(e *Edit) error {
				err := e.RemoveNode(prev)
				if err != nil {
					return err
				}

				err = e.AddNode(next)
				if err != nil {
					return err
				}

				return e.AddDataEdge(next.ID(), "Out", lg.b.ID(), "In")
			})
			if err != nil {
				t.Errorf("edit %d: %v", i, err)

				return
			}

			prev = next.ID()
		}
	}()

	done := make(chan struct{})

	go func() {
		wg.Wait()
		close(done)
	}()

	check := func() {
		y := floatOut(t, op, "Y")
		if y != 6 && y < 101 {
			t.Fatalf("block observed a partial edit: Y = %v", y)
		}
	}

	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		op.Execute()
		check()
	}

	for op.Pending() > 0 {
		op.Execute()
		check()
	}

	assert.InDelta(t, 100+edits, floatOut(t, op, "Y"), 0)
}
