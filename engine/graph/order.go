package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCycle is matched by errors.Is for every CycleError.
var ErrCycle = errors.New("graph contains a cycle")

// CycleError reports the nodes that could not be ordered because each of
// them still depends on another unordered node.
type CycleError struct {
	Remaining []NodeID
}

func (e *CycleError) Error() string {
	ids := make([]string, len(e.Remaining))

	for i, id := range e.Remaining {
		ids[i] = id.String()
	}

	return fmt.Sprintf("%v: no independent node among [%s]", ErrCycle, strings.Join(ids, ", "))
}

// Is makes errors.Is(err, ErrCycle) succeed.
func (e *CycleError) Is(target error) bool { return target == ErrCycle }

// AsCycleError returns err as a *CycleError, or nil.
func AsCycleError(err error) *CycleError {
	var ce *CycleError
	if errors.As(err, &ce) {
		return ce
	}

	return nil
}

// DependencyOrder returns g's nodes ordered so that every node comes after
// all nodes it reads from.
func DependencyOrder(g *Graph) ([]Node, error) {
	return SortNodes(g.nodes, g.edges)
}

// SortNodes orders nodes by the dependencies the edges imply. Each round
// extracts every node whose dependencies are all ordered; nodes within a
// round keep their order in the nodes slice. Edges touching nodes outside
// the slice are ignored. A round without any independent node means the
// remaining nodes form or depend on a cycle.
func SortNodes(nodes []Node, edges []Edge) ([]Node, error) {
	levels, err := SortLevels(nodes, edges)
	if err != nil {
		return nil, err
	}

	order := make([]Node, 0, len(nodes))

	for _, level := range levels {
		order = append(order, level...)
	}

	return order, nil
}

// SortLevels is SortNodes keeping the rounds apart: nodes of one level do
// not depend on each other.
func SortLevels(nodes []Node, edges []Edge) ([][]Node, error) {
	present := make(map[NodeID]struct{}, len(nodes))

	for _, n := range nodes {
		present[n.ID()] = struct{}{}
	}

	// node -> set of nodes it depends on
	deps := make(map[NodeID]map[NodeID]struct{}, len(nodes))

	for _, e := range edges {
		if e.From.Node == nil || e.To.Node == nil {
			continue
		}

		from, to := e.From.Node.ID(), e.To.Node.ID()
		if _, ok := present[from]; !ok {
			continue
		}

		if _, ok := present[to]; !ok {
			continue
		}

		set := deps[to]
		if set == nil {
			set = make(map[NodeID]struct{})
			deps[to] = set
		}

		set[from] = struct{}{}
	}

	remaining := append([]Node(nil), nodes...)

	var levels [][]Node

	for len(remaining) > 0 {
		var ready, blocked []Node

		for _, n := range remaining {
			if len(deps[n.ID()]) == 0 {
				ready = append(ready, n)
			} else {
				blocked = append(blocked, n)
			}
		}

		if len(ready) == 0 {
			ids := make([]NodeID, len(blocked))

			for i, n := range blocked {
				ids[i] = n.ID()
			}

			return nil, &CycleError{Remaining: ids}
		}

		for _, n := range ready {
			for _, set := range deps {
				delete(set, n.ID())
			}
		}

		levels = append(levels, ready)
		remaining = blocked
	}

	return levels, nil
}

// NodeIDs maps nodes to their IDs.
func NodeIDs(nodes []Node) []NodeID {
	ids := make([]NodeID, len(nodes))

	for i, n := range nodes {
		ids[i] = n.ID()
	}

	return ids
}
