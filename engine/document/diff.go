package document

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/dynamic"
	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/nodes"
)

// Changes is the difference between two versions of a document.
//
// A node whose class or parameters changed is listed in ChangedNodes and
// rebuilt in place; its edges are in Rewired. Inputs and outputs that
// changed in any way, or that touch a changed node, are listed as removed
// and added.
type Changes struct {
	AddedNodes     []Node
	RemovedNodes   []Node
	ChangedNodes   []Node
	AddedEdges     []Edge
	RemovedEdges   []Edge
	Rewired        []Edge
	AddedInputs    []Input
	RemovedInputs  []Input
	AddedOutputs   []Output
	RemovedOutputs []Output
}

// Empty reports whether the versions are equivalent.
func (c Changes) Empty() bool {
	return len(c.AddedNodes)+len(c.RemovedNodes)+len(c.ChangedNodes)+
		len(c.AddedEdges)+len(c.RemovedEdges)+
		len(c.AddedInputs)+len(c.RemovedInputs)+
		len(c.AddedOutputs)+len(c.RemovedOutputs) == 0
}

func (c Changes) String() string {
	var parts []string
	add := func(label string, n int) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", label, n))
		}
	}
	add("+nodes", len(c.AddedNodes))
	add("-nodes", len(c.RemovedNodes))
	add("~nodes", len(c.ChangedNodes))
	add("+edges", len(c.AddedEdges))
	add("-edges", len(c.RemovedEdges))
	add("+inputs", len(c.AddedInputs))
	add("-inputs", len(c.RemovedInputs))
	add("+outputs", len(c.AddedOutputs))
	add("-outputs", len(c.RemovedOutputs))

	if len(parts) == 0 {
		return "no changes"
	}

	return strings.Join(parts, " ")
}

// Diff computes the changes turning before into after. Entities are
// matched by name.
func Diff(before, after *Document) Changes {
	var c Changes
	opts := cmpopts.EquateEmpty()

	oldNodes := make(map[string]Node, len(before.Nodes))

	for _, n := range before.Nodes {
		oldNodes[n.Name] = n
	}

	newNodes := make(map[string]bool, len(after.Nodes))
	changed := make(map[string]bool)

	for _, n := range after.Nodes {
		newNodes[n.Name] = true
		prev, ok := oldNodes[n.Name]

		switch {
		case !ok:
			c.AddedNodes = append(c.AddedNodes, n)
		case prev.Class != n.Class || !cmp.Equal(prev.Params, n.Params, opts):
			c.ChangedNodes = append(c.ChangedNodes, n)
			changed[n.Name] = true
		}
	}

	for _, n := range before.Nodes {
		if !newNodes[n.Name] {
			c.RemovedNodes = append(c.RemovedNodes, n)
		}
	}

	touchesChanged := func(endpoints ...string) bool {
		for _, ep := range endpoints {
			if name, _, err := splitEndpoint(ep); err == nil && changed[name] {
				return true
			}
		}

		return false
	}

	oldEdges := make(map[Edge]bool, len(before.Edges))

	for _, e := range before.Edges {
		oldEdges[e] = true
	}

	newEdges := make(map[Edge]bool, len(after.Edges))

	for _, e := range after.Edges {
		newEdges[e] = true

		switch {
		case !oldEdges[e]:
			c.AddedEdges = append(c.AddedEdges, e)
		case touchesChanged(e.From, e.To):
			c.Rewired = append(c.Rewired, e)
		}
	}

	for _, e := range before.Edges {
		if !newEdges[e] {
			c.RemovedEdges = append(c.RemovedEdges, e)
		}
	}

	oldInputs := make(map[string]Input, len(before.Inputs))

	for _, in := range before.Inputs {
		oldInputs[in.Name] = in
	}

	newInputs := make(map[string]bool, len(after.Inputs))

	for _, in := range after.Inputs {
		newInputs[in.Name] = true

		prev, ok := oldInputs[in.Name]
		if ok && cmp.Equal(prev, in, opts) && !touchesChanged(in.To...) {
			continue
		}

		if ok {
			c.RemovedInputs = append(c.RemovedInputs, prev)
		}

		c.AddedInputs = append(c.AddedInputs, in)
	}

	for _, in := range before.Inputs {
		if !newInputs[in.Name] {
			c.RemovedInputs = append(c.RemovedInputs, in)
		}
	}

	oldOutputs := make(map[string]Output, len(before.Outputs))

	for _, out := range before.Outputs {
		oldOutputs[out.Name] = out
	}

	newOutputs := make(map[string]bool, len(after.Outputs))

	for _, out := range after.Outputs {
		newOutputs[out.Name] = true

		prev, ok := oldOutputs[out.Name]
		if ok && prev == out && !touchesChanged(out.From) {
			continue
		}

		if ok {
			c.RemovedOutputs = append(c.RemovedOutputs, prev)
		}

		c.AddedOutputs = append(c.AddedOutputs, out)
	}

	for _, out := range before.Outputs {
		if !newOutputs[out.Name] {
			c.RemovedOutputs = append(c.RemovedOutputs, out)
		}
	}

	return c
}

// Apply replays c through tr as a single edit, so every running instance
// switches from the old to the new version between two blocks.
func Apply(tr *dynamic.Transactor, c Changes, reg *nodes.Registry) error {
	gone := make(map[string]bool)

	for _, n := range c.RemovedNodes {
		gone[n.Name] = true
	}

	for _, n := range c.ChangedNodes {
		gone[n.Name] = true
	}

	return tr.Edit(func(e *dynamic.Edit) error {
		for _, out := range c.RemovedOutputs {
			err := e.RemoveNode(OutputNodeID(out.Name))
			if err != nil {
				return fmt.Errorf("document: remove output %q: %w", out.Name, err)
			}
		}

		for _, in := range c.RemovedInputs {
			err := e.RemoveNode(InputNodeID(in.Name))
			if err != nil {
				return fmt.Errorf("document: remove input %q: %w", in.Name, err)
			}
		}

		for _, edge := range c.RemovedEdges {
			from, fromVertex, err := splitEndpoint(edge.From)
			if err != nil {
				return err
			}

			to, toVertex, err := splitEndpoint(edge.To)
			if err != nil {
				return err
			}

			// Removing an endpoint node already takes its edges.
			if gone[from] || gone[to] {
				continue
			}

			err = e.RemoveDataEdge(NodeID(from), fromVertex, NodeID(to), toVertex, data.NoneLiteral())
			if err != nil {
				return fmt.Errorf("document: remove edge %s: %w", edge, err)
			}
		}

		for _, n := range slices.Concat(c.RemovedNodes, c.ChangedNodes) {
			err := e.RemoveNode(NodeID(n.Name))
			if err != nil {
				return fmt.Errorf("document: remove node %q: %w", n.Name, err)
			}
		}

		for _, spec := range slices.Concat(c.AddedNodes, c.ChangedNodes) {
			n, err := newNode(spec, reg)
			if err != nil {
				return err
			}

			err = e.AddNode(n)
			if err != nil {
				return fmt.Errorf("document: add node %q: %w", spec.Name, err)
			}
		}

		for _, edge := range slices.Concat(c.AddedEdges, c.Rewired) {
			from, fromVertex, err := splitEndpoint(edge.From)
			if err != nil {
				return err
			}

			err = connectLive(e, NodeID(from), fromVertex, edge.To)
			if err != nil {
				return err
			}
		}

		for _, in := range c.AddedInputs {
			n, err := newInputNode(in, reg)
			if err != nil {
				return err
			}

			err = e.AddNode(n)
			if err != nil {
				return fmt.Errorf("document: add input %q: %w", in.Name, err)
			}

			for _, to := range in.To {
				err := connectLive(e, n.ID(), in.Name, to)
				if err != nil {
					return err
				}
			}

			err = e.AddInputDataDestination(in.Name, n.ID(), in.Name)
			if err != nil {
				return fmt.Errorf("document: add input %q: %w", in.Name, err)
			}
		}

		for _, out := range c.AddedOutputs {
			n, err := newOutputNode(out, reg)
			if err != nil {
				return err
			}

			err = e.AddNode(n)
			if err != nil {
				return fmt.Errorf("document: add output %q: %w", out.Name, err)
			}

			from, fromVertex, err := splitEndpoint(out.From)
			if err != nil {
				return err
			}

			err = e.AddDataEdge(NodeID(from), fromVertex, n.ID(), out.Name)
			if err != nil {
				return fmt.Errorf("document: output %q: %w", out.Name, err)
			}

			err = e.AddOutputDataSource(out.Name, n.ID(), out.Name)
			if err != nil {
				return fmt.Errorf("document: add output %q: %w", out.Name, err)
			}
		}

		return nil
	})
}

// connectLive adds the edge from src.srcVertex to the "node.vertex"
// endpoint to.
func connectLive(e *dynamic.Edit, src graph.NodeID, srcVertex, to string) error {
	dst, dstVertex, err := splitEndpoint(to)
	if err != nil {
		return err
	}

	err = e.AddDataEdge(src, srcVertex, NodeID(dst), dstVertex)
	if err != nil {
		return fmt.Errorf("document: edge to %q: %w", to, err)
	}

	return nil
}
