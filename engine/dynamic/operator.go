package dynamic

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-opgraph/engine/core"
	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/metrics"
)

// Callbacks are invoked on the render goroutine when queued transforms
// change the graph-level inputs or outputs of an Operator.
type Callbacks struct {
	OnInputAdded    func(name string, ref data.Reference)
	OnInputRemoved  func(name string)
	OnOutputAdded   func(name string, ref data.Reference)
	OnOutputRemoved func(name string)
}

// OperatorOption configures an Operator created by Transactor.NewOperator.
type OperatorOption func(*Operator)

// WithCallbacks installs graph input and output callbacks.
func WithCallbacks(cb Callbacks) OperatorOption {
	return func(o *Operator) { o.callbacks = cb }
}

// endpoint is one operator vertex.
type endpoint struct {
	node   graph.NodeID
	vertex string
}

type eventKind uint8

const (
	inputAdded eventKind = iota

	inputRemoved
	outputAdded
	outputRemoved
)

type event struct {
	kind eventKind
	name string
}

// state is the render-side topology of an Operator. Only the goroutine
// calling Execute touches it.
type state struct {
	order     []graph.NodeID
	operators map[graph.NodeID]graph.Operator
	links     []ConnectOperators
	external  map[endpoint]data.Reference

	inputOf  map[string]endpoint
	outputOf map[string]endpoint
	inputs   *data.Collection
	outputs  *data.Collection

	execStack  []graph.Executor
	postStack  []graph.PostExecutor
	resetStack []graph.Resetter

	dirtyStacks bool
	dirtyLinks  bool
	events      []event
	onStale     func(Transform)
}

func newState() state {
	return state{
		operators: make(map[graph.NodeID]graph.Operator),
		external:  make(map[endpoint]data.Reference),
		inputOf:   make(map[string]endpoint),
		outputOf:  make(map[string]endpoint),
		inputs:    data.NewCollection(),
		outputs:   data.NewCollection(),
	}
}

func (s *state) recordStale(t Transform) {
	if s.onStale != nil {
		s.onStale(t)
	}
}

func (s *state) disconnect(id graph.NodeID, vertex string) {
	for i, l := range s.links {
		if l.To == id && l.ToVertex == vertex {
			s.links = append(s.links[:i], s.links[i+1:]...)

			return
		}
	}
}

func (s *state) removeInput(name string) {
	delete(s.inputOf, name)
	s.inputs.Remove(name)

	s.events = append(s.events, event{kind: inputRemoved, name: name})
}

func (s *state) removeOutput(name string) {
	delete(s.outputOf, name)
	s.outputs.Remove(name)

	s.events = append(s.events, event{kind: outputRemoved, name: name})
}

// rebuildStacks derives the execution stacks from the order.
func (s *state) rebuildStacks() {
	s.execStack = s.execStack[:0]
	s.postStack = s.postStack[:0]

	s.resetStack = s.resetStack[:0]
	for _, id := range s.order {
		op, ok := s.operators[id]
		if !ok {
			continue
		}

		if e, ok := op.(graph.Executor); ok {
			s.execStack = append(s.execStack, e)
		}

		if p, ok := op.(graph.PostExecutor); ok {
			s.postStack = append(s.postStack, p)
		}

		if r, ok := op.(graph.Resetter); ok {
			s.resetStack = append(s.resetStack, r)
		}
	}

	s.dirtyStacks = false
}

// relink rebinds every ordered operator to its sources in one pass. Sources
// precede their destinations in the order, so references forwarded by
// pass-through operators are already current when read.
func (s *state) relink() {
	for _, id := range s.order {
		op, ok := s.operators[id]
		if !ok {
			continue
		}

		var c *data.Collection

		for _, l := range s.links {
			if l.To != id {
				continue
			}

			src, ok := s.operators[l.From]
			if !ok {
				continue
			}

			ref, ok := src.Outputs().Read(l.FromVertex)
			if !ok {
				continue
			}

			if c == nil {
				c = data.NewCollection()
			}

			c.AddRead(l.ToVertex, ref)
		}

		for ep, ref := range s.external {
			if ep.node != id {
				continue
			}

			if c == nil {
				c = data.NewCollection()
			}

			c.Add(ep.vertex, ref)
		}

		if c.Len() > 0 {
			op.BindInputs(c)
		}
	}

	s.gather()

	s.dirtyLinks = false
}

// gather refreshes the graph-level collections from the operators.
func (s *state) gather() {
	for name, ep := range s.inputOf {
		if op, ok := s.operators[ep.node]; ok {
			if ref, ok := op.Inputs().Get(ep.vertex); ok {
				s.inputs.Add(name, ref)
			}
		}
	}

	for name, ep := range s.outputOf {
		if op, ok := s.operators[ep.node]; ok {
			if ref, ok := op.Outputs().Read(ep.vertex); ok {
				s.outputs.AddRead(name, ref)
			}
		}
	}
}

// Operator is a graph operator whose topology changes while it runs. It is
// created by a Transactor, which queues every later edit to it.
//
// Execute, PostExecute, Reset, BindInputs, Inputs, Outputs and
// FlushEnqueuedTransforms must all be called from one goroutine, the
// renderer. Release may be called from any goroutine.
type Operator struct {
	id       uuid.UUID
	queue    *queue
	state    state
	settings core.OperatorSettings
	env      core.Environment

	callbacks Callbacks
	logger    *slog.Logger
	metrics   *metrics.Recorder
	released  atomic.Bool
}

func newOperator(settings core.OperatorSettings, env core.Environment, logger *slog.Logger, m *metrics.Recorder) *Operator {
	o := &Operator{
		id:       uuid.New(),
		queue:    newQueue(),
		state:    newState(),
		settings: settings,
		env:      env,
		logger:   logger,
		metrics:  m,
	}
	o.state.onStale = o.stale

	return o
}

// ID identifies the instance in logs.
func (o *Operator) ID() uuid.UUID { return o.id }

// Settings returns the settings the instance was created with.
func (o *Operator) Settings() core.OperatorSettings { return o.settings }

// Execute applies queued transforms up to the next fence, then runs one
// block.
func (o *Operator) Execute() {
	start := time.Now()

	o.FlushEnqueuedTransforms()

	for _, e := range o.state.execStack {
		e.Execute()
	}

	o.metrics.ObserveBlock(time.Since(start))
}

// PostExecute runs the post-execute hooks in order.
func (o *Operator) PostExecute() {
	for _, p := range o.state.postStack {
		p.PostExecute()
	}
}

// Reset resets every stateful operator.
func (o *Operator) Reset(params graph.ResetParams) {
	for _, r := range o.state.resetStack {
		r.Reset(params)
	}
}

// FlushEnqueuedTransforms applies queued transforms until the queue is
// empty or a fence has been consumed. It returns the number of transforms
// taken off the queue.
func (o *Operator) FlushEnqueuedTransforms() int {
	n := 0

	for {
		t := o.queue.pop()
		if t == nil {
			break
		}

		n++

		res := t.apply(&o.state)
		if res == fence {
			break
		}

		if res == stale {
			o.stale(t)

			continue
		}

		o.metrics.ObserveTransform(t.Kind(), false)
	}

	if n > 0 {
		o.settle()
	}

	return n
}

// Pending returns the number of queued transforms.
func (o *Operator) Pending() int { return o.queue.size() }

// settle brings the stacks and bindings up to date and fires callbacks.
func (o *Operator) settle() {
	s := &o.state
	if s.dirtyStacks {
		s.rebuildStacks()
	}

	if s.dirtyLinks {
		s.relink()
	}

	for _, ev := range s.events {
		o.notify(ev)
	}

	s.events = s.events[:0]
}

func (o *Operator) notify(ev event) {
	cb := o.callbacks

	switch ev.kind {
	case inputAdded:
		if cb.OnInputAdded != nil {
			if ref, ok := o.state.inputs.Get(ev.name); ok {
				cb.OnInputAdded(ev.name, ref)
			}
		}
	case inputRemoved:
		if cb.OnInputRemoved != nil {
			cb.OnInputRemoved(ev.name)
		}
	case outputAdded:
		if cb.OnOutputAdded != nil {
			if ref, ok := o.state.outputs.Get(ev.name); ok {
				cb.OnOutputAdded(ev.name, ref)
			}
		}
	case outputRemoved:
		if cb.OnOutputRemoved != nil {
			cb.OnOutputRemoved(ev.name)
		}
	}
}

func (o *Operator) stale(t Transform) {
	o.metrics.ObserveTransform(t.Kind(), true)
	o.logger.Debug("skipped stale transform", "instance", o.id, "transform", t.Kind())
}

// Inputs returns the graph-level input references.
func (o *Operator) Inputs() *data.Collection { return o.state.inputs }

// Outputs returns the graph-level output references.
func (o *Operator) Outputs() *data.Collection { return o.state.outputs }

// BindInputs rebinds graph inputs to references owned by the caller.
func (o *Operator) BindInputs(inputs *data.Collection) {
	for name, ref := range inputs.All() {
		ep, ok := o.state.inputOf[name]
		if !ok {
			continue
		}

		SetOperatorInput{ID: ep.node, Vertex: ep.vertex, Ref: ref}.apply(&o.state)
	}

	o.settle()
}

// Order returns the current execution order.
func (o *Operator) Order() []graph.NodeID {
	return append([]graph.NodeID(nil), o.state.order...)
}

// Operator returns the operator running for node id.
func (o *Operator) Operator(id graph.NodeID) (graph.Operator, bool) {
	op, ok := o.state.operators[id]

	return op, ok
}

// ExecuteStackLen returns the number of operators with per-block work.
func (o *Operator) ExecuteStackLen() int { return len(o.state.execStack) }

// Release detaches the instance from its Transactor. No further transforms
// are queued to it.
func (o *Operator) Release() {
	if o.released.CompareAndSwap(false, true) {
		o.metrics.InstanceReleased()
		o.logger.Debug("dynamic operator released", "instance", o.id)
	}
}

// Released reports whether Release has been called.
func (o *Operator) Released() bool { return o.released.Load() }

// enqueue is called by the Transactor only.
func (o *Operator) enqueue(t Transform) {
	o.queue.push(t)
}
