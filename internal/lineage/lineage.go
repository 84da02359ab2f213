// Package lineage builds a node and edge view of the derivation graph
// from any root artefact and renders it to mermaid or DOT text.
package lineage

import (
	"fmt"

	"github.com/mesh-intelligence/stemma/internal/sqlite"
	"github.com/mesh-intelligence/stemma/pkg/types"
)

// Scope selects which directions the traversal walks from the root.
type Scope string

const (
	ScopeAncestors   Scope = "ancestors"
	ScopeDescendants Scope = "descendants"
	ScopeFull        Scope = "full"
)

func (s Scope) validate() error {
	switch s {
	case ScopeAncestors, ScopeDescendants, ScopeFull:
		return nil
	}
	return fmt.Errorf("scope %q (want ancestors, descendants, or full): %w", string(s), types.ErrInvalidArgument)
}

// Node is one artefact in the rendered graph.
type Node struct {
	ID   int64
	DNA  string
	Type string
	Path string
}

// Edge is one derivation relationship in the rendered graph.
type Edge struct {
	ParentID     int64
	ChildID      int64
	RelationType string
}

// Build walks the lineage graph breadth-first from root. A visited set
// stops re-expansion so cycles terminate; edges pointing into an
// already-visited node are still recorded, and both endpoints of every
// recorded edge are present in the node set.
func Build(store *sqlite.Store, root *types.Artefact, scope Scope) (map[int64]Node, []Edge, error) {
	if err := scope.validate(); err != nil {
		return nil, nil, err
	}

	nodes := map[int64]Node{root.ID: nodeFor(root.ID, root.DNA, root.Type, root.Path)}
	var edges []Edge
	seenEdges := make(map[Edge]bool)
	visited := map[int64]bool{root.ID: true}
	queue := []int64{root.ID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if scope == ScopeAncestors || scope == ScopeFull {
			parents, err := store.ListParents(id)
			if err != nil {
				return nil, nil, err
			}
			for _, p := range parents {
				edge := Edge{ParentID: p.ID, ChildID: id, RelationType: p.RelationType}
				if !seenEdges[edge] {
					seenEdges[edge] = true
					edges = append(edges, edge)
				}
				if _, ok := nodes[p.ID]; !ok {
					nodes[p.ID] = nodeFor(p.ID, p.DNA, p.Type, p.Path)
				}
				if !visited[p.ID] {
					visited[p.ID] = true
					queue = append(queue, p.ID)
				}
			}
		}
		if scope == ScopeDescendants || scope == ScopeFull {
			children, err := store.ListChildren(id)
			if err != nil {
				return nil, nil, err
			}
			for _, c := range children {
				edge := Edge{ParentID: id, ChildID: c.ID, RelationType: c.RelationType}
				if !seenEdges[edge] {
					seenEdges[edge] = true
					edges = append(edges, edge)
				}
				if _, ok := nodes[c.ID]; !ok {
					nodes[c.ID] = nodeFor(c.ID, c.DNA, c.Type, c.Path)
				}
				if !visited[c.ID] {
					visited[c.ID] = true
					queue = append(queue, c.ID)
				}
			}
		}
	}
	return nodes, edges, nil
}

func nodeFor(id int64, dna, typeLabel, path string) Node {
	return Node{ID: id, DNA: dna, Type: typeLabel, Path: path}
}
