package builder

import (
	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/graph"
)

// link is one resolved edge between two operators of a GraphOperator.
type link struct {
	from       int
	fromVertex string
	to         int
	toVertex   string
}

// binding maps a graph-level name to one operator vertex.
type binding struct {
	op     int
	vertex string
}

// GraphOperator is the flat executable form of a graph: the built operators
// in dependency order plus the stacks of those with per-block work. It is
// itself an operator, which is how subgraphs run inside a parent graph.
type GraphOperator struct {
	ids       []graph.NodeID
	operators []graph.Operator

	execStack  []graph.Executor
	postStack  []graph.PostExecutor
	resetStack []graph.Resetter

	links    []link
	inputOf  map[string]binding
	outputOf map[string]binding

	inputs  *data.Collection
	outputs *data.Collection
}

func newGraphOperator(ids []graph.NodeID, ops []graph.Operator) *GraphOperator {
	o := &GraphOperator{
		ids:       ids,
		operators: ops,
		inputOf:   make(map[string]binding),
		outputOf:  make(map[string]binding),
		inputs:    data.NewCollection(),
		outputs:   data.NewCollection(),
	}

	for _, op := range ops {
		if e, ok := op.(graph.Executor); ok {
			o.execStack = append(o.execStack, e)
		}

		if p, ok := op.(graph.PostExecutor); ok {
			o.postStack = append(o.postStack, p)
		}

		if r, ok := op.(graph.Resetter); ok {
			o.resetStack = append(o.resetStack, r)
		}
	}

	return o
}

// Execute runs every operator with per-block work once, in dependency
// order.
func (o *GraphOperator) Execute() {
	for _, e := range o.execStack {
		e.Execute()
	}
}

// PostExecute runs the post-execute hooks in dependency order.
func (o *GraphOperator) PostExecute() {
	for _, p := range o.postStack {
		p.PostExecute()
	}
}

// Reset resets every operator that holds state.
func (o *GraphOperator) Reset(params graph.ResetParams) {
	for _, r := range o.resetStack {
		r.Reset(params)
	}
}

// Inputs returns the graph-level input references, keyed by graph input
// name. Hosts write parameter values through them between blocks.
func (o *GraphOperator) Inputs() *data.Collection { return o.inputs }

// Outputs returns the graph-level output references, keyed by graph output
// name.
func (o *GraphOperator) Outputs() *data.Collection { return o.outputs }

// BindInputs rebinds graph inputs to the references in inputs and
// propagates the new references through every edge.
func (o *GraphOperator) BindInputs(inputs *data.Collection) {
	external := make(map[int]*data.Collection)

	for name, ref := range inputs.All() {
		b, ok := o.inputOf[name]
		if !ok {
			continue
		}

		c := external[b.op]
		if c == nil {
			c = data.NewCollection()
			external[b.op] = c
		}

		c.Add(b.vertex, ref)
	}

	if len(external) == 0 {
		return
	}

	o.relink(external)
}

// relink rebinds every operator, in order, to the current outputs of its
// sources plus any external references. Pass-through operators forward
// rebound references to their outputs, so a single ordered pass suffices.
func (o *GraphOperator) relink(external map[int]*data.Collection) {
	incoming := make([][]link, len(o.operators))

	for _, l := range o.links {
		incoming[l.to] = append(incoming[l.to], l)
	}

	for i, op := range o.operators {
		c := external[i]

		for _, l := range incoming[i] {
			ref, ok := o.operators[l.from].Outputs().Read(l.fromVertex)
			if !ok {
				continue
			}

			if c == nil {
				c = data.NewCollection()
			}

			c.AddRead(l.toVertex, ref)
		}

		if c.Len() > 0 {
			op.BindInputs(c)
		}
	}

	o.gather()
}

// gather refreshes the graph-level collections from the operators.
func (o *GraphOperator) gather() {
	for name, b := range o.inputOf {
		if ref, ok := o.operators[b.op].Inputs().Get(b.vertex); ok {
			o.inputs.Add(name, ref)
		}
	}

	for name, b := range o.outputOf {
		if ref, ok := o.operators[b.op].Outputs().Read(b.vertex); ok {
			o.outputs.AddRead(name, ref)
		}
	}
}

// Order returns the node IDs of the built operators in execution order.
func (o *GraphOperator) Order() []graph.NodeID {
	return append([]graph.NodeID(nil), o.ids...)
}

// Operator returns the operator built for node id.
func (o *GraphOperator) Operator(id graph.NodeID) (graph.Operator, bool) {
	for i, nid := range o.ids {
		if nid == id {
			return o.operators[i], true
		}
	}

	return nil, false
}

// Len returns the number of built operators.
func (o *GraphOperator) Len() int { return len(o.operators) }

// ExecuteStackLen returns the number of operators with per-block work.
func (o *GraphOperator) ExecuteStackLen() int { return len(o.execStack) }
