package lint

import (
	"sort"

	"github.com/cwbudde/algo-opgraph/engine/graph"
)

// Cycle is one strongly connected component that forms a cycle, with the
// edges running between its members.
type Cycle struct {
	Nodes []graph.Node
	Edges []graph.Edge
}

// Cycles returns the cyclic strongly connected components of g. Components
// are ordered by their earliest member in node insertion order and members
// keep insertion order.
func Cycles(g *graph.Graph) []Cycle {
	nodes := g.Nodes()
	pos := make(map[graph.NodeID]int, len(nodes))

	for i, n := range nodes {
		pos[n.ID()] = i
	}

	adj := make([][]int, len(nodes))
	selfLoop := make([]bool, len(nodes))

	for _, e := range g.Edges() {
		if e.From.Node == nil || e.To.Node == nil {
			continue
		}

		from, okFrom := pos[e.From.Node.ID()]

		to, okTo := pos[e.To.Node.ID()]
		if !okFrom || !okTo {
			continue
		}

		if from == to {
			selfLoop[from] = true
		}

		adj[from] = append(adj[from], to)
	}

	var cycles [][]int

	for _, comp := range tarjan(adj) {
		if len(comp) > 1 || selfLoop[comp[0]] {
			sort.Ints(comp)

			cycles = append(cycles, comp)
		}
	}

	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })

	out := make([]Cycle, 0, len(cycles))

	for _, comp := range cycles {
		member := make(map[graph.NodeID]struct{}, len(comp))
		c := Cycle{Nodes: make([]graph.Node, len(comp))}

		for i, idx := range comp {
			c.Nodes[i] = nodes[idx]
			member[nodes[idx].ID()] = struct{}{}
		}

		for _, e := range g.Edges() {
			if e.From.Node == nil || e.To.Node == nil {
				continue
			}

			_, fromIn := member[e.From.Node.ID()]

			_, toIn := member[e.To.Node.ID()]
			if fromIn && toIn {
				c.Edges = append(c.Edges, e)
			}
		}

		out = append(out, c)
	}

	return out
}

// tarjan returns the strongly connected components of the graph given by
// adjacency lists over vertices 0..len(adj)-1.
func tarjan(adj [][]int) [][]int {
	const unvisited = -1

	n := len(adj)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)

	for i := range index {
		index[i] = unvisited
	}

	var (
		next  int
		stack []int
		comps [][]int
	)

	var strongConnect func(v int)
	strongConnect = func(v int) {
		index[v] = next
		low[v] = next
		next++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			switch {
			case index[w] == unvisited:
				strongConnect(w)

				low[v] = min(low[v], low[w])
			case onStack[w]:
				low[v] = min(low[v], index[w])
			}
		}

		if low[v] != index[v] {
			return
		}

		var comp []int

		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			comp = append(comp, w)

			if w == v {
				break
			}
		}

		comps = append(comps, comp)
	}

	for v := range adj {
		if index[v] == unvisited {
			strongConnect(v)
		}
	}

	return comps
}
