package dynamic

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/cwbudde/algo-opgraph/engine/builder"
	"github.com/cwbudde/algo-opgraph/engine/core"
	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/metrics"
	"github.com/cwbudde/algo-opgraph/engine/nodes"
)

var (
	// ErrEdgeNotFound is returned when removing an edge that does not exist.
	ErrEdgeNotFound = errors.New("edge not found")
	// ErrTypeMismatch is returned when connecting vertices of different
	// data types.
	ErrTypeMismatch = errors.New("vertex data types differ")
	// ErrInputConnected is returned by SetValue for inputs fed by an edge
	// from another node.
	ErrInputConnected = errors.New("input is connected")
	// ErrNameNotFound is returned for unknown graph input or output names.
	ErrNameNotFound = errors.New("graph vertex name not found")
)

// Option configures a Transactor.
type Option func(*Transactor)

// WithLogger sets the logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transactor) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithMetrics records transforms, blocks and live instances.
func WithMetrics(m *metrics.Recorder) Option {
	return func(t *Transactor) { t.metrics = m }
}

// WithTypes sets the data type registry used to create operators. The
// default is the builtin registry.
func WithTypes(r *data.Registry) Option {
	return func(t *Transactor) {
		if r != nil {
			t.types = r
		}
	}
}

// inputKey is a node input vertex fed by a transactor-owned literal node.
type inputKey struct {
	node   graph.NodeID
	vertex string
}

type instance struct {
	op       *Operator
	settings core.OperatorSettings
	env      core.Environment
}

// Transactor owns the authoritative copy of a live graph. Every edit
// mutates that copy synchronously and queues the matching transforms to
// each running Operator. All methods are safe for concurrent use.
type Transactor struct {
	mu        sync.Mutex
	graph     *graph.Graph
	literals  map[inputKey]graph.NodeID
	instances []*instance

	types   *data.Registry
	logger  *slog.Logger
	metrics *metrics.Recorder
}

// NewTransactor starts from a copy of g.
func NewTransactor(g *graph.Graph, opts ...Option) *Transactor {
	t := &Transactor{
		graph:    g.Clone(),
		literals: make(map[inputKey]graph.NodeID),
		types:    data.NewBuiltinRegistry(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Graph returns a snapshot of the current topology.
func (t *Transactor) Graph() *graph.Graph {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.graph.Clone()
}

// Instances returns the number of live operators.
func (t *Transactor) Instances() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune()

	return len(t.instances)
}

// NewOperator builds the current topology into a new live Operator. Every
// later edit is queued to it until it is released.
func (t *Transactor) NewOperator(settings core.OperatorSettings, env core.Environment, opts ...OperatorOption) (*Operator, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b := builder.New(builder.WithLogger(t.logger), builder.WithMetrics(t.metrics))
	built, res := b.Build(builder.BuildParams{
		Graph:       t.graph,
		Settings:    settings,
		Environment: env,
		Types:       t.types,
	})
	if built == nil {
		return nil, fmt.Errorf("dynamic: build %q: %w", t.graph.Name(), res.Errors.Err())
	}

	op := newOperator(settings, env, t.logger, t.metrics)

	for _, opt := range opts {
		opt(op)
	}

	s := &op.state

	s.order = built.Order()
	for _, id := range s.order {
		inner, _ := built.Operator(id)
		s.operators[id] = inner
	}

	for _, e := range t.graph.Edges() {
		s.links = append(s.links, ConnectOperators{
			From:       e.From.Node.ID(),
			FromVertex: e.From.Vertex.Name,
			To:         e.To.Node.ID(),
			ToVertex:   e.To.Vertex.Name,
		})
	}

	for _, name := range t.graph.InputNames() {
		dst, _ := t.graph.InputDestination(name)
		s.inputOf[name] = endpoint{dst.Node.ID(), dst.Vertex.Name}
	}

	for _, name := range t.graph.OutputNames() {
		src, _ := t.graph.OutputSource(name)
		s.outputOf[name] = endpoint{src.Node.ID(), src.Vertex.Name}
	}

	s.rebuildStacks()
	s.gather()

	t.prune()

	t.instances = append(t.instances, &instance{op: op, settings: settings, env: env})
	t.metrics.InstanceStarted()
	t.logger.Debug("dynamic operator created",
		"instance", op.id,
		"graph", t.graph.Name(),
		"operators", len(s.operators))

	return op, nil
}

// prune forgets released instances.
func (t *Transactor) prune() {
	live := t.instances[:0]

	for _, inst := range t.instances {
		if !inst.op.Released() {
			live = append(live, inst)
		}
	}

	for i := len(live); i < len(t.instances); i++ {
		t.instances[i] = nil
	}

	t.instances = live
}

// Edit runs fn with an Edit that batches every change it makes into one
// AtomicTransform per instance. If fn returns an error nothing changes.
func (t *Transactor) Edit(fn func(e *Edit) error) error {
	return t.run("edit", fn)
}

// AddNode adds a node and queues its operator to every instance.
func (t *Transactor) AddNode(n graph.Node) error {
	if n == nil {
		return t.run("add-node", func(e *Edit) error { return e.AddNode(n) })
	}

	return t.run("add-node", func(e *Edit) error { return e.AddNode(n) }, "node_id", n.ID())
}

// RemoveNode removes a node. Inputs it fed fall back to literals holding
// their vertex defaults.
func (t *Transactor) RemoveNode(id graph.NodeID) error {
	return t.run("remove-node", func(e *Edit) error { return e.RemoveNode(id) }, "node_id", id)
}

// AddDataEdge connects from.fromVertex to to.toVertex, replacing any edge
// or literal already feeding to.toVertex.
func (t *Transactor) AddDataEdge(from graph.NodeID, fromVertex string, to graph.NodeID, toVertex string) error {
	return t.run("add-data-edge", func(e *Edit) error {
		return e.AddDataEdge(from, fromVertex, to, toVertex)
	}, "node_id", to, "vertex", toVertex)
}

// RemoveDataEdge disconnects an edge and feeds the destination from a
// literal node holding replacement, or the vertex default if replacement
// is None.
func (t *Transactor) RemoveDataEdge(from graph.NodeID, fromVertex string, to graph.NodeID, toVertex string, replacement data.Literal) error {
	return t.run("remove-data-edge", func(e *Edit) error {
		return e.RemoveDataEdge(from, fromVertex, to, toVertex, replacement)
	}, "node_id", to, "vertex", toVertex)
}

// SetValue feeds an unconnected input from a literal node holding value.
func (t *Transactor) SetValue(to graph.NodeID, toVertex string, value data.Literal) error {
	return t.run("set-value", func(e *Edit) error { return e.SetValue(to, toVertex, value) }, "node_id", to, "vertex", toVertex)
}

// AddInputDataDestination exposes an input vertex as graph input name.
func (t *Transactor) AddInputDataDestination(name string, id graph.NodeID, vertexName string) error {
	return t.run("add-input", func(e *Edit) error {
		return e.AddInputDataDestination(name, id, vertexName)
	}, "name", name, "node_id", id, "vertex", vertexName)
}

// RemoveInputDataDestination withdraws graph input name.
func (t *Transactor) RemoveInputDataDestination(name string) error {
	return t.run("remove-input", func(e *Edit) error { return e.RemoveInputDataDestination(name) }, "name", name)
}

// AddOutputDataSource exposes an output vertex as graph output name.
func (t *Transactor) AddOutputDataSource(name string, id graph.NodeID, vertexName string) error {
	return t.run("add-output", func(e *Edit) error {
		return e.AddOutputDataSource(name, id, vertexName)
	}, "name", name, "node_id", id, "vertex", vertexName)
}

// RemoveOutputDataSource withdraws graph output name.
func (t *Transactor) RemoveOutputDataSource(name string) error {
	return t.run("remove-output", func(e *Edit) error { return e.RemoveOutputDataSource(name) }, "name", name)
}

// run applies fn to the mirror and, if it and the new order are valid,
// queues the collected transforms. On failure the mirror is restored and
// the error is logged with attrs.
func (t *Transactor) run(op string, fn func(e *Edit) error, attrs ...any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.prune()

	snapshot := t.graph.Clone()

	literals := make(map[inputKey]graph.NodeID, len(t.literals))
	for k, v := range t.literals {
		literals[k] = v
	}

	e := &Edit{t: t, pending: make([][]Transform, len(t.instances))}
	err := fn(e)

	var order []graph.NodeID

	if err == nil && e.structural {
		var sorted []graph.Node
		sorted, err = graph.DependencyOrder(t.graph)
		order = graph.NodeIDs(sorted)
	}

	if err != nil {
		t.graph = snapshot
		t.literals = literals
		args := append([]any{"graph", t.graph.Name(), "op", op}, attrs...)
		t.logger.Warn("dynamic edit rejected", append(args, "err", err)...)

		return err
	}

	for i, inst := range t.instances {
		batch := e.pending[i]

		if e.structural {
			batch = append(batch, SetOperatorOrder{Order: order})
		}

		if len(batch) == 0 {
			continue
		}

		inst.op.enqueue(AtomicTransform{Transforms: batch})

		if e.fence {
			inst.op.enqueue(ExecuteFence{})
		}
	}

	t.logger.Debug("dynamic edit queued",
		"graph", t.graph.Name(),
		"op", op,
		"instances", len(t.instances),
		"structural", e.structural)

	return nil
}

// createOperator builds n's operator for one instance with every input
// unconnected. Connections arrive as separate transforms.
func (t *Transactor) createOperator(n graph.Node, inst *instance) (graph.Operator, error) {
	var errs graph.BuildErrors
	op := n.DefaultOperatorFactory().CreateOperator(graph.BuildParams{
		Node:        n,
		Settings:    inst.settings,
		Environment: inst.env,
		Inputs:      data.NewCollection(),
		Types:       t.types,
	}, &errs)

	err := errs.Err()
	if err != nil {
		return nil, err
	}

	if op == nil {
		return nil, fmt.Errorf("dynamic: factory of %q returned no operator", n.InstanceName())
	}

	return op, nil
}

// Edit is one batch of changes inside Transactor.Edit. It is only valid
// during the callback.
type Edit struct {
	t          *Transactor
	pending    [][]Transform
	structural bool
	fence      bool
}

func (e *Edit) broadcast(tr Transform) {
	for i := range e.pending {
		e.pending[i] = append(e.pending[i], tr)
	}
}

// create builds n's operator for every instance and queues it.
func (e *Edit) create(n graph.Node) error {
	ops := make([]graph.Operator, len(e.t.instances))

	for i, inst := range e.t.instances {
		op, err := e.t.createOperator(n, inst)
		if err != nil {
			return err
		}

		ops[i] = op
	}

	for i, op := range ops {
		e.pending[i] = append(e.pending[i], AddOperator{ID: n.ID(), Operator: op})
	}

	e.structural = true

	return nil
}

func (e *Edit) node(id graph.NodeID) (graph.Node, error) {
	n, ok := e.t.graph.Node(id)
	if !ok {
		return nil, fmt.Errorf("dynamic: %w: %s", graph.ErrNodeNotFound, id)
	}

	return n, nil
}

// AddNode adds a node.
func (e *Edit) AddNode(n graph.Node) error {
	err := e.t.graph.AddNode(n)
	if err != nil {
		return err
	}

	return e.create(n)
}

// RemoveNode removes a node.
func (e *Edit) RemoveNode(id graph.NodeID) error {
	n, err := e.node(id)
	if err != nil {
		return err
	}

	g := e.t.graph

	// A removed literal is released here so feeding its destination does not
	// queue its removal a second time.
	if key, ok := e.ownedLiteral(id); ok {
		delete(e.t.literals, key)
	}

	for _, edge := range g.OutgoingEdges(id) {
		to := edge.To.Node

		err := e.feedLiteral(to, edge.To.Vertex.Name, edge.To.Vertex.Default)
		if err != nil {
			return err
		}
	}

	for key, lit := range e.t.literals {
		if key.node == id {
			g.RemoveNode(lit)
			delete(e.t.literals, key)
			e.broadcast(RemoveOperator{ID: lit})
		}
	}

	g.RemoveNode(n.ID())
	e.broadcast(RemoveOperator{ID: id})

	e.structural = true
	e.fence = true

	return nil
}

// ownedLiteral reports whether id is a transactor-owned literal node.
func (e *Edit) ownedLiteral(id graph.NodeID) (inputKey, bool) {
	for key, lit := range e.t.literals {
		if lit == id {
			return key, true
		}
	}

	return inputKey{}, false
}

// AddDataEdge connects two vertices.
func (e *Edit) AddDataEdge(from graph.NodeID, fromVertex string, to graph.NodeID, toVertex string) error {
	g := e.t.graph

	var replaced []graph.Edge

	if dst, ok := g.Node(to); ok {
		replaced = g.EdgesInto(dst.ID(), toVertex)
	}

	edge, err := g.AddEdge(from, fromVertex, to, toVertex)
	if err != nil {
		return err
	}

	if edge.From.Vertex.TypeName != edge.To.Vertex.TypeName {
		return fmt.Errorf("dynamic: %w: %s is %s, %s is %s", ErrTypeMismatch,
			edge.From.Vertex.Name, edge.From.Vertex.TypeName, edge.To.Vertex.Name, edge.To.Vertex.TypeName)
	}

	for _, old := range replaced {
		g.RemoveEdge(old.From.Node.ID(), old.From.Vertex.Name, to, toVertex)
	}

	e.dropLiteral(inputKey{to, toVertex})

	e.broadcast(ConnectOperators{From: from, FromVertex: fromVertex, To: to, ToVertex: toVertex})

	e.structural = true

	return nil
}

// RemoveDataEdge disconnects two vertices and feeds the destination from a
// literal.
func (e *Edit) RemoveDataEdge(from graph.NodeID, fromVertex string, to graph.NodeID, toVertex string, replacement data.Literal) error {
	g := e.t.graph
	if !g.RemoveEdge(from, fromVertex, to, toVertex) {
		return fmt.Errorf("dynamic: %w: %s.%s -> %s.%s", ErrEdgeNotFound, from, fromVertex, to, toVertex)
	}

	dst, err := e.node(to)
	if err != nil {
		return err
	}

	if replacement.IsNone() {
		if in, ok := dst.VertexInterface().Input(toVertex); ok {
			replacement = in.Default
		}
	}

	return e.feedLiteral(dst, toVertex, replacement)
}

// SetValue feeds an input from a literal holding value.
func (e *Edit) SetValue(to graph.NodeID, toVertex string, value data.Literal) error {
	dst, err := e.node(to)
	if err != nil {
		return err
	}

	if _, ok := dst.VertexInterface().Input(toVertex); !ok {
		return fmt.Errorf("dynamic: %w: %s.%s", graph.ErrVertexNotFound, dst.InstanceName(), toVertex)
	}

	key := inputKey{to, toVertex}

	for _, edge := range e.t.graph.EdgesInto(to, toVertex) {
		if lit, ok := e.t.literals[key]; !ok || lit != edge.From.Node.ID() {
			return fmt.Errorf("dynamic: %w: %s.%s", ErrInputConnected, dst.InstanceName(), toVertex)
		}
	}

	e.dropLiteral(key)

	return e.feedLiteral(dst, toVertex, value)
}

// feedLiteral adds a transactor-owned literal node holding value and
// connects it to dst.vertexName.
func (e *Edit) feedLiteral(dst graph.Node, vertexName string, value data.Literal) error {
	in, ok := dst.VertexInterface().Input(vertexName)
	if !ok {
		return fmt.Errorf("dynamic: %w: %s.%s", graph.ErrVertexNotFound, dst.InstanceName(), vertexName)
	}

	key := inputKey{dst.ID(), vertexName}
	e.dropLiteral(key)

	lit := nodes.NewLiteral(fmt.Sprintf("%s.%s", dst.InstanceName(), vertexName), in.TypeName, value)
	g := e.t.graph

	err := g.AddNode(lit)
	if err != nil {
		return err
	}

	_, err = g.AddEdge(lit.ID(), nodes.LiteralVertex, dst.ID(), vertexName)
	if err != nil {
		return err
	}

	err = e.create(lit)
	if err != nil {
		return err
	}

	e.t.literals[key] = lit.ID()
	e.broadcast(ConnectOperators{From: lit.ID(), FromVertex: nodes.LiteralVertex, To: dst.ID(), ToVertex: vertexName})

	e.fence = true

	return nil
}

// dropLiteral removes the literal node feeding key, if any.
func (e *Edit) dropLiteral(key inputKey) {
	lit, ok := e.t.literals[key]
	if !ok {
		return
	}

	delete(e.t.literals, key)
	e.t.graph.RemoveNode(lit)
	e.broadcast(RemoveOperator{ID: lit})

	e.structural = true
}

// AddInputDataDestination exposes an input vertex.
func (e *Edit) AddInputDataDestination(name string, id graph.NodeID, vertexName string) error {
	err := e.t.graph.AddInputDestination(name, id, vertexName)
	if err != nil {
		return err
	}

	e.broadcast(AddInput{Name: name, ID: id, Vertex: vertexName})

	return nil
}

// RemoveInputDataDestination withdraws a graph input.
func (e *Edit) RemoveInputDataDestination(name string) error {
	if !e.t.graph.RemoveInputDestination(name) {
		return fmt.Errorf("dynamic: %w: input %q", ErrNameNotFound, name)
	}

	e.broadcast(RemoveInput{Name: name})

	return nil
}

// AddOutputDataSource exposes an output vertex.
func (e *Edit) AddOutputDataSource(name string, id graph.NodeID, vertexName string) error {
	err := e.t.graph.AddOutputSource(name, id, vertexName)
	if err != nil {
		return err
	}

	e.broadcast(AddOutput{Name: name, ID: id, Vertex: vertexName})

	return nil
}

// RemoveOutputDataSource withdraws a graph output.
func (e *Edit) RemoveOutputDataSource(name string) error {
	if !e.t.graph.RemoveOutputSource(name) {
		return fmt.Errorf("dynamic: %w: output %q", ErrNameNotFound, name)
	}

	e.broadcast(RemoveOutput{Name: name})

	return nil
}
