package nodes

import (
	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/vertex"
)

// Namespace is the class namespace of every built-in node.
const Namespace = "OpGraph"

// Node is the graph.Node implementation shared by all built-in classes.
type Node struct {
	id      graph.NodeID
	name    string
	class   graph.ClassInfo
	iface   vertex.Interface
	factory graph.OperatorFactory
}

func newNode(name, class string, iface vertex.Interface, factory graph.OperatorFactory) *Node {
	return &Node{
		id:   graph.NewNodeID(),
		name: name,
		class: graph.ClassInfo{
			Name:         graph.ClassName{Namespace: Namespace, Name: class},
			MajorVersion: 1,
		},
		iface:   iface,
		factory: factory,
	}
}

// WithID returns n with its ID replaced. Documents use it to give nodes
// IDs that are stable across reloads.
func (n *Node) WithID(id graph.NodeID) *Node {
	n.id = id

	return n
}

func (n *Node) ID() graph.NodeID                  { return n.id }
func (n *Node) InstanceName() string              { return n.name }
func (n *Node) Class() graph.ClassInfo            { return n.class }
func (n *Node) VertexInterface() vertex.Interface { return n.iface }

// IsVertexInterfaceSupported reports whether iface equals the current
// interface. Built-in classes have fixed interfaces.
func (n *Node) IsVertexInterfaceSupported(iface vertex.Interface) bool {
	return iface.Equal(n.iface)
}

func (n *Node) SetVertexInterface(iface vertex.Interface) bool {
	return n.IsVertexInterfaceSupported(iface)
}

func (n *Node) DefaultOperatorFactory() graph.OperatorFactory { return n.factory }
