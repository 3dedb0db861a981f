package builder

import (
	"fmt"

	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/vertex"
)

// SubgraphNode wraps a graph as a node of another graph. Its vertices are
// the wrapped graph's inputs and outputs; its operator is the wrapped
// graph's GraphOperator.
type SubgraphNode struct {
	id      graph.NodeID
	name    string
	graph   *graph.Graph
	builder *Builder
	iface   vertex.Interface
}

// NewSubgraphNode derives the node interface from g's input destinations
// and output sources. b builds the wrapped graph; nil means New().
func NewSubgraphNode(name string, g *graph.Graph, b *Builder) (*SubgraphNode, error) {
	iface, err := subgraphInterface(g)
	if err != nil {
		return nil, err
	}

	if b == nil {
		b = New()
	}

	return &SubgraphNode{
		id:      graph.NewNodeID(),
		name:    name,
		graph:   g,
		builder: b,
		iface:   iface,
	}, nil
}

func subgraphInterface(g *graph.Graph) (vertex.Interface, error) {
	var inputs []vertex.Input

	for _, name := range g.InputNames() {
		dest, _ := g.InputDestination(name)
		inputs = append(inputs, vertex.Input{
			Name:     name,
			TypeName: dest.Vertex.TypeName,
			Default:  dest.Vertex.Default,
			Tooltip:  dest.Vertex.Tooltip,
		})
	}

	var outputs []vertex.Output

	for _, name := range g.OutputNames() {
		src, _ := g.OutputSource(name)
		outputs = append(outputs, vertex.Output{
			Name:     name,
			TypeName: src.Vertex.TypeName,
			Tooltip:  src.Vertex.Tooltip,
		})
	}

	iface, err := vertex.NewInterface(inputs, outputs)
	if err != nil {
		return vertex.Interface{}, fmt.Errorf("builder: subgraph %q: %w", g.Name(), err)
	}

	return iface, nil
}

func (n *SubgraphNode) ID() graph.NodeID     { return n.id }
func (n *SubgraphNode) InstanceName() string { return n.name }

func (n *SubgraphNode) Class() graph.ClassInfo {
	return graph.ClassInfo{Name: graph.ClassName{Namespace: "Graph", Name: n.graph.Name()}, MajorVersion: 1}
}

func (n *SubgraphNode) VertexInterface() vertex.Interface { return n.iface }

// Graph returns the wrapped graph.
func (n *SubgraphNode) Graph() *graph.Graph { return n.graph }

// IsVertexInterfaceSupported reports whether iface matches the wrapped
// graph's inputs and outputs; the interface of a subgraph is not editable.
func (n *SubgraphNode) IsVertexInterfaceSupported(iface vertex.Interface) bool {
	return iface.Equal(n.iface)
}

func (n *SubgraphNode) SetVertexInterface(iface vertex.Interface) bool {
	return n.IsVertexInterfaceSupported(iface)
}

func (n *SubgraphNode) DefaultOperatorFactory() graph.OperatorFactory {
	return graph.FactoryFunc(n.createOperator)
}

func (n *SubgraphNode) createOperator(params graph.BuildParams, errs *graph.BuildErrors) graph.Operator {
	inputs := data.NewCollection()

	for name, ref := range params.Inputs.All() {
		inputs.Add(name, ref)
	}

	op, results := n.builder.Build(BuildParams{
		Graph:       n.graph,
		Settings:    params.Settings,
		Environment: params.Environment,
		Types:       params.Types,
		Inputs:      inputs,
	})
	if op == nil {
		for _, e := range results.Errors.All() {
			e.Message = fmt.Sprintf("subgraph %q: %s", n.name, e.Message)
			errs.Add(e)
		}

		return nil
	}

	return op
}
