package dynamic

import (
	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/graph"
)

// Transform is one queued change to a running Operator. Transforms are
// created by the Transactor and applied by Operator.Execute on the render
// goroutine.
type Transform interface {
	// Kind names the transform for logs and metrics.
	Kind() string
	apply(s *state) outcome
}

type outcome uint8

const (
	applied outcome = iota

	// stale transforms name operators or vertices that no longer exist.
	// They are skipped.
	stale
	// fence stops draining until the next block.
	fence
)

// AddOperator inserts an operator. An existing operator with the same ID is
// replaced. The operator joins the execution stacks on the next
// SetOperatorOrder.
type AddOperator struct {
	ID       graph.NodeID
	Operator graph.Operator
}

func (AddOperator) Kind() string { return "add-operator" }

func (t AddOperator) apply(s *state) outcome {
	if t.Operator == nil {
		return stale
	}

	s.operators[t.ID] = t.Operator
	s.dirtyStacks = true

	return applied
}

// RemoveOperator removes an operator together with its connections and any
// graph inputs or outputs bound to it.
type RemoveOperator struct {
	ID graph.NodeID
}

func (RemoveOperator) Kind() string { return "remove-operator" }

func (t RemoveOperator) apply(s *state) outcome {
	if _, ok := s.operators[t.ID]; !ok {
		return stale
	}

	delete(s.operators, t.ID)

	kept := s.links[:0]

	for _, l := range s.links {
		if l.From != t.ID && l.To != t.ID {
			kept = append(kept, l)
		}
	}

	s.links = kept
	for ep := range s.external {
		if ep.node == t.ID {
			delete(s.external, ep)
		}
	}

	for name, ep := range s.inputOf {
		if ep.node == t.ID {
			s.removeInput(name)
		}
	}

	for name, ep := range s.outputOf {
		if ep.node == t.ID {
			s.removeOutput(name)
		}
	}

	s.dirtyStacks = true
	s.dirtyLinks = true

	return applied
}

// ConnectOperators wires an output vertex of one operator into an input
// vertex of another, replacing whatever that input was reading.
type ConnectOperators struct {
	From       graph.NodeID
	FromVertex string
	To         graph.NodeID
	ToVertex   string
}

func (ConnectOperators) Kind() string { return "connect-operators" }

func (t ConnectOperators) apply(s *state) outcome {
	if _, ok := s.operators[t.From]; !ok {
		return stale
	}

	if _, ok := s.operators[t.To]; !ok {
		return stale
	}

	for i, l := range s.links {
		if l.To == t.To && l.ToVertex == t.ToVertex {
			s.links[i] = t
			s.dirtyLinks = true

			return applied
		}
	}

	delete(s.external, endpoint{t.To, t.ToVertex})

	s.links = append(s.links, t)
	s.dirtyLinks = true

	return applied
}

// SetOperatorInput binds an input vertex to a reference from outside the
// graph. It replaces a connection into the same vertex.
type SetOperatorInput struct {
	ID     graph.NodeID
	Vertex string
	Ref    data.Reference
}

func (SetOperatorInput) Kind() string { return "set-operator-input" }

func (t SetOperatorInput) apply(s *state) outcome {
	if _, ok := s.operators[t.ID]; !ok || !t.Ref.IsValid() {
		return stale
	}

	s.disconnect(t.ID, t.Vertex)
	s.external[endpoint{t.ID, t.Vertex}] = t.Ref

	s.dirtyLinks = true

	return applied
}

// SetOperatorOrder replaces the execution order. IDs without an operator
// are skipped; operators missing from the order do not execute.
type SetOperatorOrder struct {
	Order []graph.NodeID
}

func (SetOperatorOrder) Kind() string { return "set-operator-order" }

func (t SetOperatorOrder) apply(s *state) outcome {
	s.order = append(s.order[:0], t.Order...)
	s.dirtyStacks = true

	return applied
}

// AddInput exposes an operator input vertex as a graph input.
type AddInput struct {
	Name   string
	ID     graph.NodeID
	Vertex string
}

func (AddInput) Kind() string { return "add-input" }

func (t AddInput) apply(s *state) outcome {
	op, ok := s.operators[t.ID]
	if !ok {
		return stale
	}

	ref, ok := op.Inputs().Get(t.Vertex)
	if !ok {
		return stale
	}

	s.inputOf[t.Name] = endpoint{t.ID, t.Vertex}
	s.inputs.Add(t.Name, ref)

	s.events = append(s.events, event{kind: inputAdded, name: t.Name})

	return applied
}

// RemoveInput withdraws a graph input.
type RemoveInput struct {
	Name string
}

func (RemoveInput) Kind() string { return "remove-input" }

func (t RemoveInput) apply(s *state) outcome {
	if _, ok := s.inputOf[t.Name]; !ok {
		return stale
	}

	s.removeInput(t.Name)

	return applied
}

// AddOutput exposes an operator output vertex as a graph output.
type AddOutput struct {
	Name   string
	ID     graph.NodeID
	Vertex string
}

func (AddOutput) Kind() string { return "add-output" }

func (t AddOutput) apply(s *state) outcome {
	op, ok := s.operators[t.ID]
	if !ok {
		return stale
	}

	ref, ok := op.Outputs().Read(t.Vertex)
	if !ok {
		return stale
	}

	s.outputOf[t.Name] = endpoint{t.ID, t.Vertex}
	s.outputs.AddRead(t.Name, ref)

	s.events = append(s.events, event{kind: outputAdded, name: t.Name})

	return applied
}

// RemoveOutput withdraws a graph output.
type RemoveOutput struct {
	Name string
}

func (RemoveOutput) Kind() string { return "remove-output" }

func (t RemoveOutput) apply(s *state) outcome {
	if _, ok := s.outputOf[t.Name]; !ok {
		return stale
	}

	s.removeOutput(t.Name)

	return applied
}

// AtomicTransform applies its transforms in order within a single drain, so
// no block observes part of them. Fences inside it are ignored.
type AtomicTransform struct {
	Transforms []Transform
}

func (AtomicTransform) Kind() string { return "atomic" }

func (t AtomicTransform) apply(s *state) outcome {
	result := stale

	for _, sub := range t.Transforms {
		switch sub.apply(s) {
		case applied:
			result = applied
		case stale:
			s.recordStale(sub)
		}
	}

	if len(t.Transforms) == 0 {
		return applied
	}

	return result
}

// ExecuteFence holds back every later transform until at least one block
// has executed.
type ExecuteFence struct{}

func (ExecuteFence) Kind() string { return "fence" }

func (ExecuteFence) apply(*state) outcome { return fence }

// NullTransform does nothing.
type NullTransform struct{}

func (NullTransform) Kind() string { return "null" }

func (NullTransform) apply(*state) outcome { return applied }
