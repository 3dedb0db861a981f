package graph

import (
	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/vertex"
)

// testNode is a minimal Node for graph-level tests.
type testNode struct {
	id    NodeID
	name  string
	iface vertex.Interface
}

func newTestNode(name string) *testNode {
	return &testNode{
		id:   NewNodeID(),
		name: name,
		iface: vertex.MustInterface(
			[]vertex.Input{{Name: "In", TypeName: data.TypeFloat, Default: data.FloatLiteral(1)}},
			[]vertex.Output{{Name: "Out", TypeName: data.TypeFloat}},
		),
	}
}

func (n *testNode) ID() NodeID                        { return n.id }
func (n *testNode) InstanceName() string              { return n.name }
func (n *testNode) Class() ClassInfo                  { return ClassInfo{Name: ClassName{Name: "Test"}} }
func (n *testNode) VertexInterface() vertex.Interface { return n.iface }

func (n *testNode) IsVertexInterfaceSupported(iface vertex.Interface) bool {
	return iface.Equal(n.iface)
}

func (n *testNode) SetVertexInterface(iface vertex.Interface) bool {
	return n.IsVertexInterfaceSupported(iface)
}

func (n *testNode) DefaultOperatorFactory() OperatorFactory { return nil }

func names(nodes []Node) []string {
	out := make([]string, len(nodes))

	for i, n := range nodes {
		out[i] = n.InstanceName()
	}

	return out
}

// chain builds a graph from "A->B" style edge specs over the named nodes.
func chain(nodeNames []string, edges [][2]string) (*Graph, map[string]*testNode) {
	g := New("test")
	byName := make(map[string]*testNode, len(nodeNames))

	for _, name := range nodeNames {
		n := newTestNode(name)
		byName[name] = n

		err := g.AddNode(n)
		if err != nil {
			panic(err)
		}
	}

	for _, e := range edges {
		_, err := g.AddEdge(byName[e[0]].ID(), "Out", byName[e[1]].ID(), "In")
		if err != nil {
			panic(err)
		}
	}

	return g, byName
}
