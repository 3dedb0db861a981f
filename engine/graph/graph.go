package graph

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-opgraph/engine/vertex"
)

var (
	// ErrDuplicateNode is returned when a node ID is added twice.
	ErrDuplicateNode = errors.New("duplicate node")
	// ErrNodeNotFound is returned for node IDs absent from the graph.
	ErrNodeNotFound = errors.New("node not found")
	// ErrVertexNotFound is returned for vertex names absent from a node interface.
	ErrVertexNotFound = errors.New("vertex not found")
	// ErrDuplicateName is returned when a graph input or output name is reused.
	ErrDuplicateName = errors.New("duplicate graph vertex name")
)

// OutputSource is a node output vertex.
type OutputSource struct {
	Node   Node
	Vertex vertex.Output
}

// InputDestination is a node input vertex.
type InputDestination struct {
	Node   Node
	Vertex vertex.Input
}

// Edge carries data from one node's output vertex to another node's input
// vertex.
type Edge struct {
	From OutputSource
	To   InputDestination
}

func (e Edge) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", nodeLabel(e.From.Node), e.From.Vertex.Name, nodeLabel(e.To.Node), e.To.Vertex.Name)
}

// Connects reports whether e joins the given endpoints.
func (e Edge) Connects(from NodeID, fromVertex string, to NodeID, toVertex string) bool {
	return e.From.Node != nil && e.To.Node != nil &&
		e.From.Node.ID() == from && e.From.Vertex.Name == fromVertex &&
		e.To.Node.ID() == to && e.To.Vertex.Name == toVertex
}

func nodeLabel(n Node) string {
	if n == nil {
		return "<nil>"
	}

	if name := n.InstanceName(); name != "" {
		return name
	}

	return n.ID().String()
}

// Graph is a set of nodes, the data edges between their vertices, and the
// vertices the graph exposes as its own inputs and outputs.
type Graph struct {
	name string

	nodes []Node
	index map[NodeID]Node
	edges []Edge

	inputs      map[string]InputDestination
	inputOrder  []string
	outputs     map[string]OutputSource
	outputOrder []string
}

// New creates an empty graph.
func New(name string) *Graph {
	return &Graph{
		name:    name,
		index:   make(map[NodeID]Node),
		inputs:  make(map[string]InputDestination),
		outputs: make(map[string]OutputSource),
	}
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// AddNode adds n. Insertion order is the tie-break of dependency ordering.
func (g *Graph) AddNode(n Node) error {
	if n == nil {
		return errors.New("graph: nil node")
	}

	if _, exists := g.index[n.ID()]; exists {
		return fmt.Errorf("graph: %w: %s", ErrDuplicateNode, n.ID())
	}

	g.nodes = append(g.nodes, n)
	g.index[n.ID()] = n

	return nil
}

// RemoveNode removes a node together with every edge touching it and every
// graph input or output bound to it.
func (g *Graph) RemoveNode(id NodeID) bool {
	if _, ok := g.index[id]; !ok {
		return false
	}

	delete(g.index, id)

	for i, n := range g.nodes {
		if n.ID() == id {
			g.nodes = append(g.nodes[:i:i], g.nodes[i+1:]...)

			break
		}
	}

	kept := g.edges[:0:0]

	for _, e := range g.edges {
		if endpointID(e.From.Node) == id || endpointID(e.To.Node) == id {
			continue
		}

		kept = append(kept, e)
	}

	g.edges = kept

	for _, name := range g.InputNames() {
		if endpointID(g.inputs[name].Node) == id {
			g.RemoveInputDestination(name)
		}
	}

	for _, name := range g.OutputNames() {
		if endpointID(g.outputs[name].Node) == id {
			g.RemoveOutputSource(name)
		}
	}

	return true
}

func endpointID(n Node) NodeID {
	if n == nil {
		return NodeID{}
	}

	return n.ID()
}

// Node returns the node with the given ID.
func (g *Graph) Node(id NodeID) (Node, bool) {
	n, ok := g.index[id]

	return n, ok
}

// ContainsNode reports whether the graph holds the node with the given ID.
func (g *Graph) ContainsNode(id NodeID) bool {
	_, ok := g.index[id]

	return ok
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []Node { return append([]Node(nil), g.nodes...) }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Edges returns the edges in insertion order.
func (g *Graph) Edges() []Edge { return append([]Edge(nil), g.edges...) }

// AddEdge connects from.fromVertex to to.toVertex after resolving both
// vertices on the nodes' interfaces. Data types are not compared here; the
// linter and the builder reject mismatches.
func (g *Graph) AddEdge(from NodeID, fromVertex string, to NodeID, toVertex string) (Edge, error) {
	src, ok := g.index[from]
	if !ok {
		return Edge{}, fmt.Errorf("graph: %w: %s", ErrNodeNotFound, from)
	}

	dst, ok := g.index[to]
	if !ok {
		return Edge{}, fmt.Errorf("graph: %w: %s", ErrNodeNotFound, to)
	}

	out, ok := src.VertexInterface().Output(fromVertex)
	if !ok {
		return Edge{}, fmt.Errorf("graph: %w: output %q on %s", ErrVertexNotFound, fromVertex, nodeLabel(src))
	}

	in, ok := dst.VertexInterface().Input(toVertex)
	if !ok {
		return Edge{}, fmt.Errorf("graph: %w: input %q on %s", ErrVertexNotFound, toVertex, nodeLabel(dst))
	}

	e := Edge{
		From: OutputSource{Node: src, Vertex: out},
		To:   InputDestination{Node: dst, Vertex: in},
	}
	g.edges = append(g.edges, e)

	return e, nil
}

// AppendEdge stores e as-is, without resolving its endpoints. It exists for
// callers that carry pre-resolved edges, such as graph copies.
func (g *Graph) AppendEdge(e Edge) {
	g.edges = append(g.edges, e)
}

// RemoveEdge removes the edge joining the given endpoints.
func (g *Graph) RemoveEdge(from NodeID, fromVertex string, to NodeID, toVertex string) bool {
	for i, e := range g.edges {
		if e.Connects(from, fromVertex, to, toVertex) {
			g.edges = append(g.edges[:i:i], g.edges[i+1:]...)

			return true
		}
	}

	return false
}

// IncomingEdges returns the edges whose destination is node id.
func (g *Graph) IncomingEdges(id NodeID) []Edge {
	var out []Edge

	for _, e := range g.edges {
		if endpointID(e.To.Node) == id {
			out = append(out, e)
		}
	}

	return out
}

// OutgoingEdges returns the edges whose source is node id.
func (g *Graph) OutgoingEdges(id NodeID) []Edge {
	var out []Edge

	for _, e := range g.edges {
		if endpointID(e.From.Node) == id {
			out = append(out, e)
		}
	}

	return out
}

// EdgesInto returns the edges feeding the given input vertex.
func (g *Graph) EdgesInto(id NodeID, inputVertex string) []Edge {
	var out []Edge

	for _, e := range g.edges {
		if endpointID(e.To.Node) == id && e.To.Vertex.Name == inputVertex {
			out = append(out, e)
		}
	}

	return out
}

// AddInputDestination exposes node id's input vertex as graph input name.
func (g *Graph) AddInputDestination(name string, id NodeID, vertexName string) error {
	n, ok := g.index[id]
	if !ok {
		return fmt.Errorf("graph: %w: %s", ErrNodeNotFound, id)
	}

	in, ok := n.VertexInterface().Input(vertexName)
	if !ok {
		return fmt.Errorf("graph: %w: input %q on %s", ErrVertexNotFound, vertexName, nodeLabel(n))
	}

	return g.SetInputDestination(name, InputDestination{Node: n, Vertex: in})
}

// SetInputDestination stores dest under name without resolving it.
func (g *Graph) SetInputDestination(name string, dest InputDestination) error {
	if _, exists := g.inputs[name]; exists {
		return fmt.Errorf("graph: %w: input %q", ErrDuplicateName, name)
	}

	g.inputs[name] = dest
	g.inputOrder = append(g.inputOrder, name)

	return nil
}

// RemoveInputDestination removes graph input name.
func (g *Graph) RemoveInputDestination(name string) bool {
	if _, ok := g.inputs[name]; !ok {
		return false
	}

	delete(g.inputs, name)

	g.inputOrder = removeName(g.inputOrder, name)

	return true
}

// InputDestination returns the destination bound to graph input name.
func (g *Graph) InputDestination(name string) (InputDestination, bool) {
	d, ok := g.inputs[name]

	return d, ok
}

// InputNames returns graph input names in insertion order.
func (g *Graph) InputNames() []string { return append([]string(nil), g.inputOrder...) }

// AddOutputSource exposes node id's output vertex as graph output name.
func (g *Graph) AddOutputSource(name string, id NodeID, vertexName string) error {
	n, ok := g.index[id]
	if !ok {
		return fmt.Errorf("graph: %w: %s", ErrNodeNotFound, id)
	}

	out, ok := n.VertexInterface().Output(vertexName)
	if !ok {
		return fmt.Errorf("graph: %w: output %q on %s", ErrVertexNotFound, vertexName, nodeLabel(n))
	}

	return g.SetOutputSource(name, OutputSource{Node: n, Vertex: out})
}

// SetOutputSource stores src under name without resolving it.
func (g *Graph) SetOutputSource(name string, src OutputSource) error {
	if _, exists := g.outputs[name]; exists {
		return fmt.Errorf("graph: %w: output %q", ErrDuplicateName, name)
	}

	g.outputs[name] = src
	g.outputOrder = append(g.outputOrder, name)

	return nil
}

// RemoveOutputSource removes graph output name.
func (g *Graph) RemoveOutputSource(name string) bool {
	if _, ok := g.outputs[name]; !ok {
		return false
	}

	delete(g.outputs, name)

	g.outputOrder = removeName(g.outputOrder, name)

	return true
}

// OutputSource returns the source bound to graph output name.
func (g *Graph) OutputSource(name string) (OutputSource, bool) {
	s, ok := g.outputs[name]

	return s, ok
}

// OutputNames returns graph output names in insertion order.
func (g *Graph) OutputNames() []string { return append([]string(nil), g.outputOrder...) }

// Clone returns a structural copy. Nodes are shared, containers are not.
func (g *Graph) Clone() *Graph {
	c := New(g.name)

	for _, n := range g.nodes {
		c.nodes = append(c.nodes, n)
		c.index[n.ID()] = n
	}

	c.edges = append(c.edges, g.edges...)

	for _, name := range g.inputOrder {
		c.inputs[name] = g.inputs[name]
	}

	c.inputOrder = append(c.inputOrder, g.inputOrder...)

	for _, name := range g.outputOrder {
		c.outputs[name] = g.outputs[name]
	}

	c.outputOrder = append(c.outputOrder, g.outputOrder...)

	return c
}

func removeName(names []string, name string) []string {
	for i, n := range names {
		if n == name {
			return append(names[:i:i], names[i+1:]...)
		}
	}

	return names
}
