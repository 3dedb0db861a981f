// Package mermaid renders operator graphs as Mermaid flowcharts.
package mermaid

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-opgraph/engine/graph"
	"github.com/cwbudde/algo-opgraph/engine/nodes"
)

// Overlay marks nodes to highlight on top of the plain graph.
type Overlay struct {
	// Cycle holds the members of cyclic components.
	Cycle []graph.NodeID
	// Failed holds nodes that reported build errors.
	Failed []graph.NodeID
}

// Generate produces a left-to-right flowchart of g. Node shapes follow
// the class:
//   - Input: [/Parallelogram/]
//   - Output: [\Parallelogram\]
//   - Literal: ((Circle))
//   - Default: [Rectangle]
//
// Edges are labelled with their vertex names. Overlay styles are applied
// when overlay is non-nil.
func Generate(g *graph.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("flowchart LR\n")

	ids := make(map[graph.NodeID]string, g.NodeCount())

	for i, n := range g.Nodes() {
		id := fmt.Sprintf("n%d", i)
		ids[n.ID()] = id

		opener, closer := "[", "]"

		switch n.Class().Name.Name {
		case nodes.ClassInput:
			opener, closer = "[/", "/]"
		case nodes.ClassOutput:
			opener, closer = "[\\", "\\]"
		case nodes.ClassLiteral:
			opener, closer = "((", "))"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, label(n), closer)
	}

	for _, e := range g.Edges() {
		from, okFrom := ids[endpoint(e.From.Node)]

		to, okTo := ids[endpoint(e.To.Node)]
		if !okFrom || !okTo {
			continue
		}

		fmt.Fprintf(&sb, "    %s -- \"%s → %s\" --> %s\n",
			from, escape(e.From.Vertex.Name), escape(e.To.Vertex.Name), to)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef cycle fill:#ffebee,stroke:#c62828,stroke-width:3px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#fff3e0,stroke:#ef6c00,stroke-width:2px,color:#000;\n")
		writeClass(&sb, ids, overlay.Cycle, "cycle")
		writeClass(&sb, ids, overlay.Failed, "failed")
	}

	return sb.String()
}

func writeClass(sb *strings.Builder, ids map[graph.NodeID]string, members []graph.NodeID, class string) {
	seen := make(map[string]bool, len(members))

	for _, m := range members {
		id, ok := ids[m]
		if !ok || seen[id] {
			continue
		}

		seen[id] = true

		fmt.Fprintf(sb, "    class %s %s;\n", id, class)
	}
}

func label(n graph.Node) string {
	name := n.InstanceName()
	if name == "" {
		name = n.ID().String()
	}

	class := n.Class().Name.Name
	if class == "" || class == name {
		return escape(name)
	}

	return escape(name) + "<br/><small>" + escape(class) + "</small>"
}

func endpoint(n graph.Node) graph.NodeID {
	if n == nil {
		return graph.NodeID{}
	}

	return n.ID()
}

// escape keeps labels from closing the quoted Mermaid string.
func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
