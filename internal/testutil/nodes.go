package testutil

import (
	"strings"
	"sync"

	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/vertex"
)

// Trace records operator activity in call order. It is safe for
// concurrent use.
type Trace struct {
	mu     sync.Mutex
	events []string
}

// Record appends one event.
func (t *Trace) Record(event string) {
	t.mu.Lock()

	t.events = append(t.events, event)
	t.mu.Unlock()
}

// Events returns every recorded event.
func (t *Trace) Events() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]string(nil), t.events...)
}

// Executed returns the names recorded by Execute calls, in order.
func (t *Trace) Executed() []string {
	return t.withPrefix("exec:")
}

// ResetCalls returns the names recorded by Reset calls, in order.
func (t *Trace) ResetCalls() []string {
	return t.withPrefix("reset:")
}

// Clear drops all events.
func (t *Trace) Clear() {
	t.mu.Lock()

	t.events = nil
	t.mu.Unlock()
}

func (t *Trace) withPrefix(prefix string) []string {
	var out []string

	for _, e := range t.Events() {
		if name, ok := strings.CutPrefix(e, prefix); ok {
			out = append(out, name)
		}
	}

	return out
}

// Node is a configurable graph.Node.
type Node struct {
	id      graph.NodeID
	name    string
	class   graph.ClassInfo
	iface   vertex.Interface
	factory graph.OperatorFactory
}

// NewNode creates a node with a fresh ID.
func NewNode(name string, iface vertex.Interface, factory graph.OperatorFactory) *Node {
	return &Node{
		id:      graph.NewNodeID(),
		name:    name,
		class:   graph.ClassInfo{Name: graph.ClassName{Namespace: "Test", Name: name}, MajorVersion: 1},
		iface:   iface,
		factory: factory,
	}
}

func (n *Node) ID() graph.NodeID                  { return n.id }
func (n *Node) InstanceName() string              { return n.name }
func (n *Node) Class() graph.ClassInfo            { return n.class }
func (n *Node) VertexInterface() vertex.Interface { return n.iface }

func (n *Node) IsVertexInterfaceSupported(iface vertex.Interface) bool { return true }

func (n *Node) SetVertexInterface(iface vertex.Interface) bool {
	n.iface = iface

	return true
}

func (n *Node) DefaultOperatorFactory() graph.OperatorFactory { return n.factory }

// FloatInterface declares Float inputs defaulting to 0 and Float outputs.
func FloatInterface(inputs, outputs []string) vertex.Interface {
	in := make([]vertex.Input, len(inputs))

	for i, name := range inputs {
		in[i] = vertex.Input{Name: name, TypeName: data.TypeFloat, Default: data.FloatLiteral(0)}
	}

	out := make([]vertex.Output, len(outputs))

	for i, name := range outputs {
		out[i] = vertex.Output{Name: name, TypeName: data.TypeFloat}
	}

	return vertex.MustInterface(in, out)
}

// SumNode is a node with Float inputs and outputs whose operator writes
// offset plus the sum of its inputs to every output once per block.
func SumNode(name string, trace *Trace, offset float64, inputs, outputs []string) *Node {
	return NewNode(name, FloatInterface(inputs, outputs), SumFactory(trace, offset))
}

// SumFactory creates SumOperators.
func SumFactory(trace *Trace, offset float64) graph.OperatorFactory {
	return graph.FactoryFunc(func(params graph.BuildParams, errs *graph.BuildErrors) graph.Operator {
		op := &SumOperator{name: params.Node.InstanceName(), trace: trace, offset: offset}
		iface := params.Node.VertexInterface()

		op.ins = make([]data.ReadRef[float64], len(iface.Inputs()))

		for i, in := range iface.Inputs() {
			r, ok := graph.InputOrDefault[float64](params, in.Name, errs)
			if !ok {
				return nil
			}

			graph.BindInput(&op.IO, in.Name, &op.ins[i], r)
		}

		for _, out := range iface.Outputs() {
			w, ok := graph.NewOutput[float64](params, out.Name, data.NoneLiteral(), errs)
			if !ok {
				return nil
			}

			op.outs = append(op.outs, w)
			op.SetOutput(out.Name, w.Ref())
		}

		return op
	})
}

// SumOperator is the operator built by SumFactory.
type SumOperator struct {
	graph.IO

	name   string
	trace  *Trace
	offset float64
	ins    []data.ReadRef[float64]
	outs   []data.WriteRef[float64]
}

// Execute implements graph.Executor.
func (o *SumOperator) Execute() {
	sum := o.offset

	for _, in := range o.ins {
		sum += in.Get()
	}

	for _, out := range o.outs {
		out.Set(sum)
	}

	if o.trace != nil {
		o.trace.Record("exec:" + o.name)
	}
}

// Reset implements graph.Resetter.
func (o *SumOperator) Reset(graph.ResetParams) {
	for _, out := range o.outs {
		out.Set(0)
	}

	if o.trace != nil {
		o.trace.Record("reset:" + o.name)
	}
}

// PostExecute implements graph.PostExecutor.
func (o *SumOperator) PostExecute() {
	if o.trace != nil {
		o.trace.Record("post:" + o.name)
	}
}

// PassiveNode is a node whose operator exposes default-valued Float outputs
// and does no per-block work.
func PassiveNode(name string, inputs, outputs []string) *Node {
	return NewNode(name, FloatInterface(inputs, outputs), graph.FactoryFunc(
		func(params graph.BuildParams, errs *graph.BuildErrors) graph.Operator {
			op := &passiveOperator{}

			for _, out := range params.Node.VertexInterface().Outputs() {
				w, ok := graph.NewOutput[float64](params, out.Name, data.NoneLiteral(), errs)
				if !ok {
					return nil
				}

				op.SetOutput(out.Name, w.Ref())
			}

			return op
		}))
}

type passiveOperator struct {
	graph.IO
}

// FailingNode is a node whose factory always fails with KindFactoryFailure.
func FailingNode(name string, inputs, outputs []string) *Node {
	return NewNode(name, FloatInterface(inputs, outputs), graph.FactoryFunc(
		func(params graph.BuildParams, errs *graph.BuildErrors) graph.Operator {
			errs.Add(graph.NewError(graph.KindFactoryFailure, "node %q refuses to build", params.Node.InstanceName()).
				WithNodes(params.Node.ID()))

			return nil
		}))
}

// Connect adds an edge from.fromVertex -> to.toVertex and panics on error.
func Connect(g *graph.Graph, from graph.Node, fromVertex string, to graph.Node, toVertex string) graph.Edge {
	e, err := g.AddEdge(from.ID(), fromVertex, to.ID(), toVertex)
	if err != nil {
		panic(err)
	}

	return e
}

// AddNodes adds nodes to g and panics on error.
func AddNodes(g *graph.Graph, nodes ...graph.Node) {
	for _, n := range nodes {
		err := g.AddNode(n)
		if err != nil {
			panic(err)
		}
	}
}
