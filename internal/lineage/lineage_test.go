package lineage

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/stemma/internal/sqlite"
	"github.com/mesh-intelligence/stemma/pkg/types"
)

// chainStore seeds a three generation chain a -> b -> c and returns the
// store plus the artefacts oldest first.
func chainStore(t *testing.T) (*sqlite.Store, []*types.Artefact) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "stemma.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	var arts []*types.Artefact
	for i, name := range []string{"a", "b", "c"} {
		art, err := store.CreateArtefact(sqlite.CreateArtefactParams{
			DNA:  "dna_" + name + "0000000000",
			Path: "/work/" + name + ".txt",
			Hash: fmt.Sprintf("h%d", i),
			Type: "doc",
		})
		require.NoError(t, err)
		arts = append(arts, art)
	}
	require.NoError(t, store.CreateEdge(arts[0].ID, arts[1].ID, types.RelationDerivedFrom, ""))
	require.NoError(t, store.CreateEdge(arts[1].ID, arts[2].ID, types.RelationDerivedFrom, ""))
	return store, arts
}

func TestBuild(t *testing.T) {
	store, arts := chainStore(t)
	a, b, c := arts[0], arts[1], arts[2]

	t.Run("ancestors from the newest", func(t *testing.T) {
		nodes, edges, err := Build(store, c, ScopeAncestors)
		require.NoError(t, err)
		assert.Len(t, nodes, 3)
		require.Len(t, edges, 2)
		assert.Contains(t, edges, Edge{ParentID: a.ID, ChildID: b.ID, RelationType: types.RelationDerivedFrom})
		assert.Contains(t, edges, Edge{ParentID: b.ID, ChildID: c.ID, RelationType: types.RelationDerivedFrom})
	})

	t.Run("descendants from the oldest", func(t *testing.T) {
		nodes, edges, err := Build(store, a, ScopeDescendants)
		require.NoError(t, err)
		assert.Len(t, nodes, 3)
		assert.Len(t, edges, 2)
	})

	t.Run("ancestors from the oldest sees only itself", func(t *testing.T) {
		nodes, edges, err := Build(store, a, ScopeAncestors)
		require.NoError(t, err)
		assert.Len(t, nodes, 1)
		assert.Empty(t, edges)
	})

	t.Run("full from the middle", func(t *testing.T) {
		nodes, edges, err := Build(store, b, ScopeFull)
		require.NoError(t, err)
		assert.Len(t, nodes, 3)
		assert.Len(t, edges, 2)
	})

	t.Run("cycle terminates", func(t *testing.T) {
		require.NoError(t, store.CreateEdge(c.ID, a.ID, types.RelationDerivedFrom, ""))
		nodes, edges, err := Build(store, a, ScopeFull)
		require.NoError(t, err)
		assert.Len(t, nodes, 3)
		assert.Len(t, edges, 3)
	})

	t.Run("invalid scope", func(t *testing.T) {
		_, _, err := Build(store, a, Scope("sideways"))
		assert.ErrorIs(t, err, types.ErrInvalidArgument)
	})
}

func TestFormatMermaid(t *testing.T) {
	store, arts := chainStore(t)
	nodes, edges, err := Build(store, arts[2], ScopeAncestors)
	require.NoError(t, err)

	out, err := FormatMermaid(nodes, edges, DirectionTB)
	require.NoError(t, err)

	a, b, c := arts[0], arts[1], arts[2]
	want := "flowchart TB\n" +
		fmt.Sprintf("    n_%d[\"a0000000 | doc | a.txt\"]\n", a.ID) +
		fmt.Sprintf("    n_%d[\"b0000000 | doc | b.txt\"]\n", b.ID) +
		fmt.Sprintf("    n_%d[\"c0000000 | doc | c.txt\"]\n", c.ID) +
		fmt.Sprintf("    n_%d -->|derived_from| n_%d\n", a.ID, b.ID) +
		fmt.Sprintf("    n_%d -->|derived_from| n_%d\n", b.ID, c.ID)
	assert.Equal(t, want, out)

	t.Run("deterministic", func(t *testing.T) {
		again, err := FormatMermaid(nodes, edges, DirectionTB)
		require.NoError(t, err)
		assert.Equal(t, out, again)
	})

	t.Run("invalid direction", func(t *testing.T) {
		_, err := FormatMermaid(nodes, edges, Direction("UP"))
		assert.ErrorIs(t, err, types.ErrInvalidArgument)
	})

	t.Run("empty direction defaults to TB", func(t *testing.T) {
		got, err := FormatMermaid(nodes, edges, "")
		require.NoError(t, err)
		assert.Equal(t, out, got)
	})
}

func TestFormatDOT(t *testing.T) {
	store, arts := chainStore(t)
	nodes, edges, err := Build(store, arts[2], ScopeAncestors)
	require.NoError(t, err)

	out, err := FormatDOT(nodes, edges, DirectionLR)
	require.NoError(t, err)

	a, b, c := arts[0], arts[1], arts[2]
	want := "digraph lineage {\n" +
		"    rankdir=LR;\n" +
		fmt.Sprintf("    n_%d [label=\"a0000000 | doc | a.txt\"];\n", a.ID) +
		fmt.Sprintf("    n_%d [label=\"b0000000 | doc | b.txt\"];\n", b.ID) +
		fmt.Sprintf("    n_%d [label=\"c0000000 | doc | c.txt\"];\n", c.ID) +
		fmt.Sprintf("    n_%d -> n_%d [label=\"derived_from\"];\n", a.ID, b.ID) +
		fmt.Sprintf("    n_%d -> n_%d [label=\"derived_from\"];\n", b.ID, c.ID)
	want += "}\n"
	assert.Equal(t, want, out)
}

func TestLabel(t *testing.T) {
	t.Run("missing type shows placeholder", func(t *testing.T) {
		n := Node{DNA: "dna_deadbeefcafe", Path: "/x/y/file.bin"}
		assert.Equal(t, "deadbeef | n/a | file.bin", label(n))
	})

	t.Run("short dna is kept whole", func(t *testing.T) {
		n := Node{DNA: "dna_ab", Type: "doc", Path: "f"}
		assert.Equal(t, "ab | doc | f", label(n))
	})

	t.Run("quotes escaped in mermaid labels", func(t *testing.T) {
		nodes := map[int64]Node{1: {ID: 1, DNA: "dna_x", Type: `say "hi"`, Path: "f"}}
		out, err := FormatMermaid(nodes, nil, DirectionTB)
		require.NoError(t, err)
		assert.Contains(t, out, `n_1["x | say #quot;hi#quot; | f"]`)
	})
}
