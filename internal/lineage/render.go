package lineage

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mesh-intelligence/stemma/pkg/types"
)

// Direction orients the rendered graph.
type Direction string

const (
	DirectionTB Direction = "TB"
	DirectionLR Direction = "LR"
)

func (d Direction) validate() error {
	switch d {
	case DirectionTB, DirectionLR:
		return nil
	}
	return fmt.Errorf("direction %q (want TB or LR): %w", string(d), types.ErrInvalidArgument)
}

const shortDNALen = 8

// label composes the display text for a node: short DNA, type label or
// a placeholder, and the file's base name.
func label(n Node) string {
	short := strings.TrimPrefix(n.DNA, types.DNAPrefix)
	if len(short) > shortDNALen {
		short = short[:shortDNALen]
	}
	typeLabel := n.Type
	if typeLabel == "" {
		typeLabel = "n/a"
	}
	return short + " | " + typeLabel + " | " + filepath.Base(n.Path)
}

// sortedNodes returns the node set ordered by id, so output is stable
// regardless of traversal order.
func sortedNodes(nodes map[int64]Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// sortedEdges returns the edges ordered by (parent, child, relation).
func sortedEdges(edges []Edge) []Edge {
	out := make([]Edge, len(edges))
	copy(out, edges)
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ParentID != b.ParentID {
			return a.ParentID < b.ParentID
		}
		if a.ChildID != b.ChildID {
			return a.ChildID < b.ChildID
		}
		return a.RelationType < b.RelationType
	})
	return out
}

// FormatMermaid renders the graph as a mermaid flowchart. Output is
// deterministic for identical node and edge sets.
func FormatMermaid(nodes map[int64]Node, edges []Edge, dir Direction) (string, error) {
	if dir == "" {
		dir = DirectionTB
	}
	if err := dir.validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("flowchart " + string(dir) + "\n")
	for _, n := range sortedNodes(nodes) {
		fmt.Fprintf(&b, "    n_%d[\"%s\"]\n", n.ID, strings.ReplaceAll(label(n), "\"", "#quot;"))
	}
	for _, e := range sortedEdges(edges) {
		fmt.Fprintf(&b, "    n_%d -->|%s| n_%d\n", e.ParentID, escapeMermaid(e.RelationType), e.ChildID)
	}
	return b.String(), nil
}

// FormatDOT renders the graph in Graphviz DOT syntax. Output is
// deterministic for identical node and edge sets.
func FormatDOT(nodes map[int64]Node, edges []Edge, dir Direction) (string, error) {
	if dir == "" {
		dir = DirectionTB
	}
	if err := dir.validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("digraph lineage {\n")
	fmt.Fprintf(&b, "    rankdir=%s;\n", dir)
	for _, n := range sortedNodes(nodes) {
		fmt.Fprintf(&b, "    n_%d [label=\"%s\"];\n", n.ID, escapeDOT(label(n)))
	}
	for _, e := range sortedEdges(edges) {
		fmt.Fprintf(&b, "    n_%d -> n_%d [label=\"%s\"];\n", e.ParentID, e.ChildID, escapeDOT(e.RelationType))
	}
	b.WriteString("}\n")
	return b.String(), nil
}

// escapeMermaid neutralizes characters that break the |label| edge
// syntax. Node labels are quoted and only need quote escaping.
func escapeMermaid(s string) string {
	s = strings.ReplaceAll(s, "\"", "#quot;")
	s = strings.ReplaceAll(s, "|", "#124;")
	return s
}

// escapeDOT escapes backslashes and quotes for DOT string literals.
func escapeDOT(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return s
}
