// Package builder compiles a graph.Graph into a GraphOperator.
//
// A build orders the nodes by their data dependencies, creates one operator
// per node in that order while wiring each node's inputs to the outputs of
// the nodes it reads from, and gathers the graph-level inputs and outputs.
// Any failure aborts the build: there is no partially built operator.
package builder

import (
	"io"
	"log/slog"
	"time"

	"github.com/cwbudde/algo-opgraph/engine/core"
	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/lint"
	"github.com/cwbudde/algo-opgraph/engine/metrics"
)

// Builder turns graphs into GraphOperators. A Builder holds no per-build
// state and may be shared.
type Builder struct {
	logger   *slog.Logger
	metrics  *metrics.Recorder
	checks   lint.Check
	internal bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithMetrics records build durations and errors.
func WithMetrics(m *metrics.Recorder) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithLint runs the given lint checks before building. A graph failing
// them is not built.
func WithLint(checks lint.Check) Option {
	return func(b *Builder) { b.checks = checks }
}

// WithInternalDataReferences makes BuildResults carry every node's output
// collection.
func WithInternalDataReferences() Option {
	return func(b *Builder) { b.internal = true }
}

// New creates a Builder.
func New(opts ...Option) *Builder {
	b := &Builder{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// BuildParams is the input of one build.
type BuildParams struct {
	Graph       *graph.Graph
	Settings    core.OperatorSettings
	Environment core.Environment
	// Types constructs default and literal values. Nil means the builtin
	// registry.
	Types *data.Registry
	// Inputs optionally binds graph inputs, keyed by graph input name, to
	// references owned by the caller. Unbound graph inputs use the
	// destination's default.
	Inputs *data.Collection
}

// BuildResults holds the diagnostics of one build.
type BuildResults struct {
	Errors graph.BuildErrors
	// InternalDataReferences maps node IDs to their built output
	// collections when the builder was created with
	// WithInternalDataReferences.
	InternalDataReferences map[graph.NodeID]*data.Collection
}

// OK reports whether the build produced no errors.
func (r *BuildResults) OK() bool { return r.Errors.Len() == 0 }

// Build compiles params.Graph. On failure it returns a nil operator and
// results describing every error found.
func (b *Builder) Build(params BuildParams) (*GraphOperator, *BuildResults) {
	start := time.Now()
	results := &BuildResults{}

	op := b.build(params, results)

	b.metrics.ObserveBuild(time.Since(start), &results.Errors)

	name := ""

	if params.Graph != nil {
		name = params.Graph.Name()
	}

	if op == nil {
		b.logger.Warn("graph build failed",
			"graph", name,
			"errors", results.Errors.Len(),
			"err", results.Errors.Err())

		return nil, results
	}

	b.logger.Debug("graph built",
		"graph", name,
		"operators", op.Len(),
		"execute_stack", op.ExecuteStackLen(),
		"duration", time.Since(start))

	return op, results
}

func (b *Builder) build(params BuildParams, results *BuildResults) *GraphOperator {
	errs := &results.Errors

	g := params.Graph
	if g == nil {
		errs.Add(graph.NewError(graph.KindInternal, "no graph to build"))

		return nil
	}

	err := params.Settings.Validate()
	if err != nil {
		errs.Add(graph.NewError(graph.KindInvalidSettings, "%v", err))

		return nil
	}

	types := params.Types
	if types == nil {
		types = data.NewBuiltinRegistry()
	}

	if b.checks != 0 {
		var lintErrs graph.BuildErrors
		ok := lint.New(lint.WithChecks(b.checks), lint.WithTypes(types)).Validate(g, &lintErrs)

		b.metrics.ObserveLint(&lintErrs)
		errs.Append(&lintErrs)

		if !ok {
			return nil
		}
	}

	// Incoming edges per destination node.
	incoming := make(map[graph.NodeID][]graph.Edge)

	for _, e := range g.Edges() {
		if e.To.Node == nil {
			errs.Add(graph.NewError(graph.KindDanglingVertex, "edge %s has no destination node", e).WithEdges(e))

			return nil
		}

		id := e.To.Node.ID()
		if !g.ContainsNode(id) {
			errs.Add(graph.NewError(graph.KindDanglingVertex, "edge %s writes a node outside the graph", e).
				WithEdges(e).WithNodes(id))

			return nil
		}

		incoming[id] = append(incoming[id], e)
	}

	order, err := graph.DependencyOrder(g)
	if err != nil {
		buildErr := graph.NewError(graph.KindGraphCycle, "cannot order nodes: %v", err)

		if ce := graph.AsCycleError(err); ce != nil {
			buildErr.WithNodes(ce.Remaining...)
		}

		errs.Add(buildErr)

		return nil
	}

	// External references per destination node and vertex.
	external := make(map[graph.NodeID]map[string]data.Reference)

	for _, name := range g.InputNames() {
		ref, ok := params.Inputs.Get(name)
		if !ok {
			continue
		}

		dest, _ := g.InputDestination(name)
		if dest.Node == nil {
			continue
		}

		if ref.TypeName() != dest.Vertex.TypeName {
			errs.Add(graph.NewError(graph.KindInvalidEdgeDataType, "graph input %q expects %s, got %s",
				name, dest.Vertex.TypeName, ref.TypeName()).WithNodes(dest.Node.ID()).WithVertex(dest.Vertex.Name))

			return nil
		}

		m := external[dest.Node.ID()]
		if m == nil {
			m = make(map[string]data.Reference)
			external[dest.Node.ID()] = m
		}

		m[dest.Vertex.Name] = ref
	}

	index := make(map[graph.NodeID]int, len(order))
	ops := make([]graph.Operator, 0, len(order))
	ids := make([]graph.NodeID, 0, len(order))

	var links []link

	for _, node := range order {
		inputs := data.NewCollection()

		for vertexName, ref := range external[node.ID()] {
			inputs.Add(vertexName, ref)
		}

		failed := false
		wired := make(map[string]bool)

		for _, e := range incoming[node.ID()] {
			if wired[e.To.Vertex.Name] {
				errs.Add(graph.NewError(graph.KindDuplicateInput, "input %q of node %q has more than one incoming edge",
					e.To.Vertex.Name, node.InstanceName()).WithNodes(node.ID()).WithEdges(e).WithVertex(e.To.Vertex.Name))

				failed = true

				continue
			}

			wired[e.To.Vertex.Name] = true

			l, ok := wireEdge(e, g, index, ops, inputs, errs)
			if !ok {
				failed = true

				continue
			}

			links = append(links, l)
		}

		if failed {
			return nil
		}

		factory := node.DefaultOperatorFactory()
		if factory == nil {
			errs.Add(graph.NewError(graph.KindFactoryFailure, "node %q has no operator factory", node.InstanceName()).
				WithNodes(node.ID()))

			return nil
		}

		before := errs.Len()
		op := factory.CreateOperator(graph.BuildParams{
			Node:        node,
			Settings:    params.Settings,
			Environment: params.Environment,
			Inputs:      inputs,
			Types:       types,
		}, errs)
		if op == nil {
			if errs.Len() == before {
				errs.Add(graph.NewError(graph.KindFactoryFailure, "factory of node %q returned no operator", node.InstanceName()).
					WithNodes(node.ID()))
			}

			return nil
		}

		index[node.ID()] = len(ops)
		ops = append(ops, op)
		ids = append(ids, node.ID())
	}

	result := newGraphOperator(ids, ops)
	result.links = links

	// Graph-level inputs expose the destination's writable reference, or
	// the caller's reference when one was bound.
	for _, name := range g.InputNames() {
		dest, _ := g.InputDestination(name)

		i, ok := builtIndex(dest.Node, index)
		if !ok {
			errs.Add(graph.NewError(graph.KindMissingVertex, "graph input %q targets a node that was not built", name).
				WithVertex(name))

			return nil
		}

		opInputs := ops[i].Inputs()
		_, bound := params.Inputs.Get(name)

		if !opInputs.ContainsWrite(dest.Vertex.Name, dest.Vertex.TypeName) &&
			!(bound && opInputs.ContainsRead(dest.Vertex.Name, dest.Vertex.TypeName)) {
			errs.Add(graph.NewError(graph.KindMissingInputReference,
				"graph input %q: node %q exposes no writable %s input %q",
				name, dest.Node.InstanceName(), dest.Vertex.TypeName, dest.Vertex.Name).
				WithNodes(dest.Node.ID()).WithVertex(dest.Vertex.Name))

			return nil
		}

		result.inputOf[name] = binding{op: i, vertex: dest.Vertex.Name}
	}

	for _, name := range g.OutputNames() {
		src, _ := g.OutputSource(name)

		i, ok := builtIndex(src.Node, index)
		if !ok {
			errs.Add(graph.NewError(graph.KindMissingVertex, "graph output %q reads a node that was not built", name).
				WithVertex(name))

			return nil
		}

		if !ops[i].Outputs().ContainsRead(src.Vertex.Name, src.Vertex.TypeName) {
			errs.Add(graph.NewError(graph.KindMissingVertex,
				"graph output %q: node %q exposes no %s output %q",
				name, src.Node.InstanceName(), src.Vertex.TypeName, src.Vertex.Name).
				WithNodes(src.Node.ID()).WithVertex(src.Vertex.Name))

			return nil
		}

		result.outputOf[name] = binding{op: i, vertex: src.Vertex.Name}
	}

	result.gather()

	if b.internal {
		results.InternalDataReferences = make(map[graph.NodeID]*data.Collection, len(ops))

		for i, op := range ops {
			results.InternalDataReferences[ids[i]] = op.Outputs()
		}
	}

	return result
}

// wireEdge copies the source operator's output reference for e into the
// destination's input collection.
func wireEdge(e graph.Edge, g *graph.Graph, index map[graph.NodeID]int, ops []graph.Operator,
	inputs *data.Collection, errs *graph.BuildErrors,
) (link, bool) {
	if e.From.Node == nil || !g.ContainsNode(e.From.Node.ID()) {
		errs.Add(graph.NewError(graph.KindDanglingVertex, "edge %s reads a node outside the graph", e).WithEdges(e))

		return link{}, false
	}

	if e.From.Vertex.TypeName != e.To.Vertex.TypeName {
		errs.Add(graph.NewError(graph.KindInvalidEdgeDataType, "edge %s connects %s to %s",
			e, e.From.Vertex.TypeName, e.To.Vertex.TypeName).
			WithNodes(e.From.Node.ID(), e.To.Node.ID()).WithEdges(e).WithVertex(e.To.Vertex.Name))

		return link{}, false
	}

	if !e.To.Node.VertexInterface().ContainsInput(e.To.Vertex.Name, e.To.Vertex.TypeName) {
		errs.Add(graph.NewError(graph.KindMissingVertex, "node %q has no %s input %q",
			e.To.Node.InstanceName(), e.To.Vertex.TypeName, e.To.Vertex.Name).
			WithNodes(e.To.Node.ID()).WithEdges(e).WithVertex(e.To.Vertex.Name))

		return link{}, false
	}

	src, built := index[e.From.Node.ID()]
	if !built {
		errs.Add(graph.NewError(graph.KindInternal, "source node %q of edge %s was not built before its reader",
			e.From.Node.InstanceName(), e).WithNodes(e.From.Node.ID()).WithEdges(e))

		return link{}, false
	}

	if !inputs.AddReadFrom(ops[src].Outputs(), e.From.Vertex.Name, e.To.Vertex.Name, e.From.Vertex.TypeName) {
		errs.Add(graph.NewError(graph.KindMissingVertex, "operator of node %q exposes no %s output %q",
			e.From.Node.InstanceName(), e.From.Vertex.TypeName, e.From.Vertex.Name).
			WithNodes(e.From.Node.ID()).WithEdges(e).WithVertex(e.From.Vertex.Name))

		return link{}, false
	}

	return link{
		from:       src,
		fromVertex: e.From.Vertex.Name,
		to:         len(ops),
		toVertex:   e.To.Vertex.Name,
	}, true
}

func builtIndex(n graph.Node, index map[graph.NodeID]int) (int, bool) {
	if n == nil {
		return 0, false
	}

	i, ok := index[n.ID()]

	return i, ok
}
