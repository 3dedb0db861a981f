package document

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/nodes"
)

var (
	// ErrBadEndpoint is returned for endpoints not of the form
	// "node.vertex".
	ErrBadEndpoint = errors.New("malformed endpoint")
	// ErrUnknownNode is returned for endpoints naming an undeclared node.
	ErrUnknownNode = errors.New("unknown node")
	// ErrDuplicateName is returned when a node, input or output name is
	// declared twice.
	ErrDuplicateName = errors.New("duplicate name")
)

// idSpace is the UUID namespace of document node IDs.
var idSpace = uuid.MustParse("7a3e51c4-2f0b-4d8e-9c61-0b5d2e8f4a17")

// NodeID returns the ID Build gives the node called name.
func NodeID(name string) graph.NodeID {
	return uuid.NewSHA1(idSpace, []byte("node/"+name))
}

// InputNodeID returns the ID of the Input node behind graph input name.
func InputNodeID(name string) graph.NodeID {
	return uuid.NewSHA1(idSpace, []byte("input/"+name))
}

// OutputNodeID returns the ID of the Output node behind graph output name.
func OutputNodeID(name string) graph.NodeID {
	return uuid.NewSHA1(idSpace, []byte("output/"+name))
}

// Build creates the graph described by doc. Graph inputs and outputs
// become Input and Output nodes from reg.
func Build(doc *Document, reg *nodes.Registry) (*graph.Graph, error) {
	g := graph.New(doc.Name)

	for _, spec := range doc.Nodes {
		n, err := newNode(spec, reg)
		if err != nil {
			return nil, err
		}

		if g.ContainsNode(n.ID()) {
			return nil, fmt.Errorf("document: %w: node %q", ErrDuplicateName, spec.Name)
		}

		err = g.AddNode(n)
		if err != nil {
			return nil, fmt.Errorf("document: %w", err)
		}
	}

	for _, e := range doc.Edges {
		err := addEdge(g, e.From, e.To)
		if err != nil {
			return nil, err
		}
	}

	for _, in := range doc.Inputs {
		n, err := newInputNode(in, reg)
		if err != nil {
			return nil, err
		}

		err = g.AddNode(n)
		if err != nil {
			return nil, fmt.Errorf("document: %w: input %q", ErrDuplicateName, in.Name)
		}

		err = g.AddInputDestination(in.Name, n.ID(), in.Name)
		if err != nil {
			return nil, fmt.Errorf("document: input %q: %w", in.Name, err)
		}

		for _, to := range in.To {
			err := connect(g, n.ID(), in.Name, to)
			if err != nil {
				return nil, err
			}
		}
	}

	for _, out := range doc.Outputs {
		n, err := newOutputNode(out, reg)
		if err != nil {
			return nil, err
		}

		err = g.AddNode(n)
		if err != nil {
			return nil, fmt.Errorf("document: %w: output %q", ErrDuplicateName, out.Name)
		}

		from, fromVertex, err := resolve(g, out.From)
		if err != nil {
			return nil, err
		}

		_, err = g.AddEdge(from, fromVertex, n.ID(), out.Name)
		if err != nil {
			return nil, fmt.Errorf("document: output %q: %w", out.Name, err)
		}

		err = g.AddOutputSource(out.Name, n.ID(), out.Name)
		if err != nil {
			return nil, fmt.Errorf("document: output %q: %w", out.Name, err)
		}
	}

	return g, nil
}

func newNode(spec Node, reg *nodes.Registry) (*nodes.Node, error) {
	if spec.Name == "" {
		return nil, errors.New("document: node without name")
	}

	n, err := reg.New(spec.Class, spec.Name, spec.Params)
	if err != nil {
		return nil, fmt.Errorf("document: %w", err)
	}

	return n.WithID(NodeID(spec.Name)), nil
}

func newInputNode(in Input, reg *nodes.Registry) (*nodes.Node, error) {
	n, err := reg.New(nodes.ClassInput, in.Name, map[string]any{"type": in.Type, "default": in.Default})
	if err != nil {
		return nil, fmt.Errorf("document: input %q: %w", in.Name, err)
	}

	return n.WithID(InputNodeID(in.Name)), nil
}

func newOutputNode(out Output, reg *nodes.Registry) (*nodes.Node, error) {
	n, err := reg.New(nodes.ClassOutput, out.Name, map[string]any{"type": out.Type})
	if err != nil {
		return nil, fmt.Errorf("document: output %q: %w", out.Name, err)
	}

	return n.WithID(OutputNodeID(out.Name)), nil
}

// resolve maps "node.vertex" to a node ID of g.
func resolve(g *graph.Graph, endpoint string) (graph.NodeID, string, error) {
	name, vertexName, err := splitEndpoint(endpoint)
	if err != nil {
		return graph.NodeID{}, "", err
	}

	id := NodeID(name)
	if !g.ContainsNode(id) {
		return graph.NodeID{}, "", fmt.Errorf("document: %w: %q in %q", ErrUnknownNode, name, endpoint)
	}

	return id, vertexName, nil
}

func addEdge(g *graph.Graph, from, to string) error {
	src, srcVertex, err := resolve(g, from)
	if err != nil {
		return err
	}

	return connect(g, src, srcVertex, to)
}

func connect(g *graph.Graph, src graph.NodeID, srcVertex, to string) error {
	dst, dstVertex, err := resolve(g, to)
	if err != nil {
		return err
	}

	_, err = g.AddEdge(src, srcVertex, dst, dstVertex)
	if err != nil {
		return fmt.Errorf("document: edge to %q: %w", to, err)
	}

	return nil
}
