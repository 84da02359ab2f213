package resolve

import (
	"strings"

	"github.com/mesh-intelligence/stemma/pkg/types"
)

// TraceAncestors walks parent edges depth-first from root and returns
// indented display lines, one per visit. The walk keeps an explicit
// stack so depth is bounded on arbitrary graphs; a node seen before is
// emitted once more with a repeat marker and not expanded again, which
// terminates cycles.
func (e *Engine) TraceAncestors(root *types.Artefact) ([]string, error) {
	type frame struct {
		art   *types.Artefact
		depth int
	}

	stack := []frame{{art: root, depth: 0}}
	visited := make(map[int64]bool)
	var lines []string

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		line := strings.Repeat("  ", f.depth) + "- " + f.art.DNA + " (" + f.art.Path + ")"
		if visited[f.art.ID] {
			lines = append(lines, line+" *")
			continue
		}
		visited[f.art.ID] = true
		lines = append(lines, line)

		parents, err := e.store.ListParents(f.art.ID)
		if err != nil {
			return nil, err
		}
		// Reverse push so the first listed parent is expanded first.
		for i := len(parents) - 1; i >= 0; i-- {
			p := parents[i].Artefact
			stack = append(stack, frame{art: &p, depth: f.depth + 1})
		}
	}
	return lines, nil
}
