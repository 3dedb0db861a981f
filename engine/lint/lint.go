// Package lint validates graphs without building them.
//
// Every check is read-only and appends its findings to a graph.BuildErrors
// list. The checks are independent of the builder and can run before it or
// instead of it.
package lint

import (
	"github.com/cwbudde/algo-opgraph/engine/data"
	"github.com/cwbudde/algo-opgraph/engine/graph"
)

// Check selects one validation pass.
type Check uint8

const (
	CheckEdgeDataTypes Check = 1 << iota

	CheckVertices
	CheckDuplicateInputs
	CheckCycles
	CheckDataTypesRegistered

	// AllChecks runs every pass. CheckDataTypesRegistered is skipped when
	// the linter has no registry.
	AllChecks = CheckEdgeDataTypes | CheckVertices | CheckDuplicateInputs | CheckCycles | CheckDataTypesRegistered
)

var checkNames = []struct {
	check Check
	name  string
}{
	{CheckEdgeDataTypes, "edge-data-types"},
	{CheckVertices, "vertices"},
	{CheckDuplicateInputs, "duplicate-inputs"},
	{CheckCycles, "cycles"},
	{CheckDataTypesRegistered, "data-types"},
}

// ParseCheck maps a check name as used on the command line to its Check.
func ParseCheck(name string) (Check, bool) {
	if name == "all" {
		return AllChecks, true
	}

	for _, c := range checkNames {
		if c.name == name {
			return c.check, true
		}
	}

	return 0, false
}

// Linter runs a configured set of checks.
type Linter struct {
	checks Check
	types  *data.Registry
}

// Option configures a Linter.
type Option func(*Linter)

// WithChecks restricts the linter to the given checks.
func WithChecks(checks Check) Option {
	return func(l *Linter) { l.checks = checks }
}

// WithTypes enables CheckDataTypesRegistered against r.
func WithTypes(r *data.Registry) Option {
	return func(l *Linter) { l.types = r }
}

// New creates a linter running AllChecks unless configured otherwise.
func New(opts ...Option) *Linter {
	l := &Linter{checks: AllChecks}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Validate runs every enabled check and reports whether all passed. All
// checks run even after a failure so the caller sees every finding.
func (l *Linter) Validate(g *graph.Graph, errs *graph.BuildErrors) bool {
	ok := true

	if l.checks&CheckVertices != 0 {
		ok = ValidateVerticesExist(g, errs) && ok
	}

	if l.checks&CheckEdgeDataTypes != 0 {
		ok = ValidateEdgeDataTypesMatch(g, errs) && ok
	}

	if l.checks&CheckDuplicateInputs != 0 {
		ok = ValidateNoDuplicateInputs(g, errs) && ok
	}

	if l.checks&CheckCycles != 0 {
		ok = ValidateNoCyclesInGraph(g, errs) && ok
	}

	if l.checks&CheckDataTypesRegistered != 0 && l.types != nil {
		ok = ValidateDataTypesRegistered(g, l.types, errs) && ok
	}

	return ok
}

// ValidateEdgeDataTypesMatch reports one error per edge whose endpoint
// vertices declare different data types.
func ValidateEdgeDataTypesMatch(g *graph.Graph, errs *graph.BuildErrors) bool {
	ok := true

	for _, e := range g.Edges() {
		if e.From.Vertex.TypeName == e.To.Vertex.TypeName {
			continue
		}

		ok = false

		errs.Add(graph.NewError(graph.KindInvalidEdgeDataType, "edge %s connects %s to %s",
			e, e.From.Vertex.TypeName, e.To.Vertex.TypeName).
			WithNodes(edgeNodes(e)...).WithEdges(e).WithVertex(e.To.Vertex.Name))
	}

	return ok
}

// ValidateVerticesExist checks that every edge endpoint, input destination
// and output source refers to a node of the graph and to a vertex that node
// still declares.
func ValidateVerticesExist(g *graph.Graph, errs *graph.BuildErrors) bool {
	ok := true

	for _, e := range g.Edges() {
		if !checkOutput(g, e.From, errs, e) {
			ok = false
		}

		if !checkInput(g, e.To, errs, e) {
			ok = false
		}
	}

	for _, name := range g.InputNames() {
		dest, _ := g.InputDestination(name)
		if !checkInput(g, dest, errs) {
			ok = false
		}
	}

	for _, name := range g.OutputNames() {
		src, _ := g.OutputSource(name)
		if !checkOutput(g, src, errs) {
			ok = false
		}
	}

	return ok
}

func checkOutput(g *graph.Graph, src graph.OutputSource, errs *graph.BuildErrors, edges ...graph.Edge) bool {
	if src.Node == nil || !g.ContainsNode(src.Node.ID()) {
		err := graph.NewError(graph.KindDanglingVertex, "output %q refers to a node outside the graph", src.Vertex.Name).
			WithEdges(edges...).WithVertex(src.Vertex.Name)

		if src.Node != nil {
			err.WithNodes(src.Node.ID())
		}

		errs.Add(err)

		return false
	}

	if !src.Node.VertexInterface().ContainsOutput(src.Vertex.Name, src.Vertex.TypeName) {
		errs.Add(graph.NewError(graph.KindMissingVertex, "node %q has no output %q of type %s",
			src.Node.InstanceName(), src.Vertex.Name, src.Vertex.TypeName).
			WithNodes(src.Node.ID()).WithEdges(edges...).WithVertex(src.Vertex.Name))

		return false
	}

	return true
}

func checkInput(g *graph.Graph, dst graph.InputDestination, errs *graph.BuildErrors, edges ...graph.Edge) bool {
	if dst.Node == nil || !g.ContainsNode(dst.Node.ID()) {
		err := graph.NewError(graph.KindDanglingVertex, "input %q refers to a node outside the graph", dst.Vertex.Name).
			WithEdges(edges...).WithVertex(dst.Vertex.Name)

		if dst.Node != nil {
			err.WithNodes(dst.Node.ID())
		}

		errs.Add(err)

		return false
	}

	if !dst.Node.VertexInterface().ContainsInput(dst.Vertex.Name, dst.Vertex.TypeName) {
		errs.Add(graph.NewError(graph.KindMissingVertex, "node %q has no input %q of type %s",
			dst.Node.InstanceName(), dst.Vertex.Name, dst.Vertex.TypeName).
			WithNodes(dst.Node.ID()).WithEdges(edges...).WithVertex(dst.Vertex.Name))

		return false
	}

	return true
}

type inputKey struct {
	node   graph.NodeID
	vertex string
}

// ValidateNoDuplicateInputs reports one error per input vertex fed by more
// than one edge. The error carries every edge into that vertex.
func ValidateNoDuplicateInputs(g *graph.Graph, errs *graph.BuildErrors) bool {
	var order []inputKey
	byKey := make(map[inputKey][]graph.Edge)

	for _, e := range g.Edges() {
		if e.To.Node == nil {
			continue
		}

		k := inputKey{node: e.To.Node.ID(), vertex: e.To.Vertex.Name}
		if _, seen := byKey[k]; !seen {
			order = append(order, k)
		}

		byKey[k] = append(byKey[k], e)
	}

	ok := true

	for _, k := range order {
		edges := byKey[k]
		if len(edges) < 2 {
			continue
		}

		ok = false

		errs.Add(graph.NewError(graph.KindDuplicateInput, "input %q of node %q has %d incoming edges",
			k.vertex, edges[0].To.Node.InstanceName(), len(edges)).
			WithNodes(k.node).WithEdges(edges...).WithVertex(k.vertex))
	}

	return ok
}

// ValidateNoCyclesInGraph reports one error per cycle, where a cycle is a
// strongly connected component of more than one node or a node with an edge
// to itself.
func ValidateNoCyclesInGraph(g *graph.Graph, errs *graph.BuildErrors) bool {
	ok := true

	for _, c := range Cycles(g) {
		ok = false

		errs.Add(graph.NewError(graph.KindGraphCycle, "cycle through %d node(s): %s",
			len(c.Nodes), nodeNames(c.Nodes)).
			WithNodes(graph.NodeIDs(c.Nodes)...).WithEdges(c.Edges...))
	}

	return ok
}

// ValidateDataTypesRegistered reports vertices whose data type r does not
// know, once per node and vertex.
func ValidateDataTypesRegistered(g *graph.Graph, r *data.Registry, errs *graph.BuildErrors) bool {
	ok := true

	for _, n := range g.Nodes() {
		iface := n.VertexInterface()
		for _, in := range iface.Inputs() {
			if _, known := r.Lookup(in.TypeName); !known {
				ok = false

				errs.Add(graph.NewError(graph.KindInvalidEdgeDataType, "input %q of node %q has unregistered type %q",
					in.Name, n.InstanceName(), in.TypeName).WithNodes(n.ID()).WithVertex(in.Name))
			}
		}

		for _, out := range iface.Outputs() {
			if _, known := r.Lookup(out.TypeName); !known {
				ok = false

				errs.Add(graph.NewError(graph.KindInvalidEdgeDataType, "output %q of node %q has unregistered type %q",
					out.Name, n.InstanceName(), out.TypeName).WithNodes(n.ID()).WithVertex(out.Name))
			}
		}
	}

	return ok
}

func edgeNodes(e graph.Edge) []graph.NodeID {
	var ids []graph.NodeID

	if e.From.Node != nil {
		ids = append(ids, e.From.Node.ID())
	}

	if e.To.Node != nil {
		ids = append(ids, e.To.Node.ID())
	}

	return ids
}

func nodeNames(nodes []graph.Node) string {
	s := ""

	for i, n := range nodes {
		if i > 0 {
			s += ", "
		}

		s += n.InstanceName()
	}

	return s
}
