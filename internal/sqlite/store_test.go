package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/stemma/internal/identity"
	"github.com/mesh-intelligence/stemma/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "stemma.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func mustCreate(t *testing.T, store *Store, p CreateArtefactParams) *types.Artefact {
	t.Helper()
	if p.DNA == "" {
		p.DNA = identity.GenerateToken()
	}
	art, err := store.CreateArtefact(p)
	require.NoError(t, err)
	return art
}

func TestCreateArtefact(t *testing.T) {
	store := openTestStore(t)

	art := mustCreate(t, store, CreateArtefactParams{
		Path:        "/work/report.txt",
		Hash:        "aabb",
		Type:        "report",
		Description: "quarterly report",
		Tags:        []string{"Finance", "q3"},
	})
	assert.NotZero(t, art.ID)
	assert.Equal(t, "/work/report.txt", art.Path)
	assert.Equal(t, "report", art.Type)

	t.Run("created event carries hash", func(t *testing.T) {
		events, err := store.ListEvents(art.ID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, types.EventCreated, events[0].Type)
		assert.Equal(t, "quarterly report", events[0].Description)
		assert.Equal(t, "aabb", events[0].Metadata["hash"])
	})

	t.Run("tags are lowercased", func(t *testing.T) {
		tags, err := store.ListTags(art.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"finance", "q3"}, tags)
	})

	t.Run("duplicate DNA rejected", func(t *testing.T) {
		_, err := store.CreateArtefact(CreateArtefactParams{DNA: art.DNA, Path: "/x", Hash: "cc"})
		assert.Error(t, err)
	})
}

func TestLookups(t *testing.T) {
	store := openTestStore(t)
	art := mustCreate(t, store, CreateArtefactParams{Path: "/work/a.txt", Hash: "a1"})

	byDNA, err := store.ArtefactByDNA(art.DNA)
	require.NoError(t, err)
	assert.Equal(t, art.ID, byDNA.ID)

	byPath, err := store.ArtefactByPath("/work/a.txt")
	require.NoError(t, err)
	assert.Equal(t, art.ID, byPath.ID)

	byHash, err := store.ArtefactByHash("a1")
	require.NoError(t, err)
	assert.Equal(t, art.ID, byHash.ID)

	t.Run("not found wraps sentinel", func(t *testing.T) {
		_, err := store.ArtefactByDNA("dna_missing")
		assert.ErrorIs(t, err, types.ErrNotFound)
		_, err = store.ArtefactByPath("/nowhere")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestAddTagsIdempotent(t *testing.T) {
	store := openTestStore(t)
	art := mustCreate(t, store, CreateArtefactParams{Path: "/a", Hash: "h"})

	require.NoError(t, store.AddTags(art.ID, []string{"alpha"}))
	require.NoError(t, store.AddTags(art.ID, []string{"Alpha", "beta"}))

	tags, err := store.ListTags(art.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, tags)
}

func TestAssignProjects(t *testing.T) {
	store := openTestStore(t)
	_, err := store.CreateProject("proj-a", "Project A", "")
	require.NoError(t, err)
	art := mustCreate(t, store, CreateArtefactParams{Path: "/a", Hash: "h"})

	require.NoError(t, store.AssignProjects(art.ID, []string{"proj-a"}))
	projects, err := store.ListProjects(art.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "proj-a", projects[0].ID)

	t.Run("unknown project fails", func(t *testing.T) {
		err := store.AssignProjects(art.ID, []string{"proj-missing"})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("repeat assignment is a no-op", func(t *testing.T) {
		require.NoError(t, store.AssignProjects(art.ID, []string{"proj-a"}))
		projects, err := store.ListProjects(art.ID)
		require.NoError(t, err)
		assert.Len(t, projects, 1)
	})
}

func TestUpdateFields(t *testing.T) {
	store := openTestStore(t)
	art := mustCreate(t, store, CreateArtefactParams{Path: "/old", Hash: "h1"})

	require.NoError(t, store.UpdatePath(art.ID, "/new"))
	require.NoError(t, store.UpdateHash(art.ID, "h2"))
	require.NoError(t, store.UpdateType(art.ID, "schematic"))
	require.NoError(t, store.UpdateDescription(art.ID, "revised"))

	got, err := store.ArtefactByID(art.ID)
	require.NoError(t, err)
	assert.Equal(t, "/new", got.Path)
	assert.Equal(t, "h2", got.Hash)
	assert.Equal(t, "schematic", got.Type)
	assert.Equal(t, "revised", got.Description)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))
}

func TestEdges(t *testing.T) {
	store := openTestStore(t)
	parent := mustCreate(t, store, CreateArtefactParams{Path: "/p", Hash: "p"})
	child := mustCreate(t, store, CreateArtefactParams{Path: "/c", Hash: "c"})

	require.NoError(t, store.CreateEdge(parent.ID, child.ID, types.RelationDerivedFrom, ""))

	edges, err := store.EdgesBetween(parent.ID, child.ID, types.RelationDerivedFrom)
	require.NoError(t, err)
	require.Len(t, edges, 1)

	t.Run("duplicates permitted", func(t *testing.T) {
		require.NoError(t, store.CreateEdge(parent.ID, child.ID, types.RelationDerivedFrom, ""))
		edges, err := store.EdgesBetween(parent.ID, child.ID, types.RelationDerivedFrom)
		require.NoError(t, err)
		assert.Len(t, edges, 2)
	})

	t.Run("list parents and children", func(t *testing.T) {
		parents, err := store.ListParents(child.ID)
		require.NoError(t, err)
		require.NotEmpty(t, parents)
		assert.Equal(t, parent.ID, parents[0].ID)
		assert.Equal(t, types.RelationDerivedFrom, parents[0].RelationType)

		children, err := store.ListChildren(parent.ID)
		require.NoError(t, err)
		require.NotEmpty(t, children)
		assert.Equal(t, child.ID, children[0].ID)
	})

	t.Run("delete edge", func(t *testing.T) {
		edges, err := store.EdgesBetween(parent.ID, child.ID, types.RelationDerivedFrom)
		require.NoError(t, err)
		for _, e := range edges {
			require.NoError(t, store.DeleteEdge(e.ID))
		}
		remaining, err := store.EdgesBetween(parent.ID, child.ID, types.RelationDerivedFrom)
		require.NoError(t, err)
		assert.Empty(t, remaining)
	})
}

func TestCreateVersion(t *testing.T) {
	store := openTestStore(t)
	_, err := store.CreateProject("proj-a", "Project A", "")
	require.NoError(t, err)
	parent := mustCreate(t, store, CreateArtefactParams{
		Path:        "/work/notes.md",
		Hash:        "v1",
		Type:        "doc",
		Description: "working notes",
		Tags:        []string{"docs"},
		ProjectIDs:  []string{"proj-a"},
	})

	child, err := store.CreateVersion(parent, "v2", "/work/notes.md", "")
	require.NoError(t, err)

	assert.NotEqual(t, parent.DNA, child.DNA)
	assert.Equal(t, "v2", child.Hash)
	assert.Equal(t, "doc", child.Type)
	assert.Equal(t, "working notes", child.Description)

	t.Run("carries tags and projects", func(t *testing.T) {
		tags, err := store.ListTags(child.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"docs"}, tags)

		projects, err := store.ListProjects(child.ID)
		require.NoError(t, err)
		require.Len(t, projects, 1)
		assert.Equal(t, "proj-a", projects[0].ID)
	})

	t.Run("derived_from edge with reason", func(t *testing.T) {
		edges, err := store.EdgesBetween(parent.ID, child.ID, types.RelationDerivedFrom)
		require.NoError(t, err)
		require.Len(t, edges, 1)
		assert.Equal(t, types.ReasonContentChanged, edges[0].Reason)
	})

	t.Run("paired events", func(t *testing.T) {
		parentEvents, err := store.ListEvents(parent.ID)
		require.NoError(t, err)
		var superseded *types.Event
		for i := range parentEvents {
			if parentEvents[i].Type == types.EventVersionSuperseded {
				superseded = &parentEvents[i]
			}
		}
		require.NotNil(t, superseded)
		assert.Equal(t, child.DNA, superseded.Metadata["new_dna"])

		childEvents, err := store.ListEvents(child.ID)
		require.NoError(t, err)
		var created *types.Event
		for i := range childEvents {
			if childEvents[i].Type == types.EventVersionCreated {
				created = &childEvents[i]
			}
		}
		require.NotNil(t, created)
		assert.Equal(t, parent.DNA, created.Metadata["parent_dna"])
	})
}

func TestSearch(t *testing.T) {
	store := openTestStore(t)
	_, err := store.CreateProject("proj-a", "Project A", "")
	require.NoError(t, err)

	a := mustCreate(t, store, CreateArtefactParams{Path: "/a", Hash: "ha", Type: "report", Tags: []string{"alpha"}})
	b := mustCreate(t, store, CreateArtefactParams{Path: "/b", Hash: "hb", Type: "schematic", Tags: []string{"beta"}, ProjectIDs: []string{"proj-a"}})

	t.Run("by tag any-match", func(t *testing.T) {
		got, err := store.Search(SearchFilter{Tags: []string{"ALPHA", "missing"}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, a.ID, got[0].ID)
	})

	t.Run("by type", func(t *testing.T) {
		got, err := store.Search(SearchFilter{Type: "schematic"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, b.ID, got[0].ID)
	})

	t.Run("by project", func(t *testing.T) {
		got, err := store.Search(SearchFilter{ProjectID: "proj-a"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, b.ID, got[0].ID)
	})

	t.Run("no filter returns all", func(t *testing.T) {
		got, err := store.Search(SearchFilter{})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestProjects(t *testing.T) {
	store := openTestStore(t)

	p, err := store.CreateProject("proj-a", "Project A", "about A")
	require.NoError(t, err)
	assert.Equal(t, "Project A", p.Name)
	assert.Equal(t, "about A", p.Description)

	t.Run("duplicate id conflicts", func(t *testing.T) {
		_, err := store.CreateProject("proj-a", "again", "")
		assert.ErrorIs(t, err, types.ErrConflict)
	})

	t.Run("list", func(t *testing.T) {
		_, err := store.CreateProject("proj-b", "Project B", "")
		require.NoError(t, err)
		all, err := store.ListAllProjects()
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "proj-a", all[0].ID)
	})

	t.Run("exclusive members", func(t *testing.T) {
		shared := mustCreate(t, store, CreateArtefactParams{Path: "/s", Hash: "s", ProjectIDs: []string{"proj-a", "proj-b"}})
		only := mustCreate(t, store, CreateArtefactParams{Path: "/o", Hash: "o", ProjectIDs: []string{"proj-a"}})

		exclusive, err := store.ExclusiveMemberIDs("proj-a")
		require.NoError(t, err)
		assert.Equal(t, []int64{only.ID}, exclusive)

		members, err := store.ProjectMemberIDs("proj-a")
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{shared.ID, only.ID}, members)
	})

	t.Run("delete cascades links, artefacts persist", func(t *testing.T) {
		require.NoError(t, store.DeleteProject("proj-a"))
		_, err := store.ProjectByID("proj-a")
		assert.ErrorIs(t, err, types.ErrNotFound)

		only, err := store.ArtefactByPath("/o")
		require.NoError(t, err)
		projects, err := store.ListProjects(only.ID)
		require.NoError(t, err)
		assert.Empty(t, projects)
	})

	t.Run("delete unknown project", func(t *testing.T) {
		err := store.DeleteProject("proj-missing")
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestWithTxRollback(t *testing.T) {
	store := openTestStore(t)
	art := mustCreate(t, store, CreateArtefactParams{Path: "/a", Hash: "h"})

	failErr := assert.AnError
	err := store.WithTx(func(tx *Store) error {
		if err := tx.UpdatePath(art.ID, "/changed"); err != nil {
			return err
		}
		return failErr
	})
	assert.ErrorIs(t, err, failErr)

	got, err := store.ArtefactByID(art.ID)
	require.NoError(t, err)
	assert.Equal(t, "/a", got.Path, "rollback must undo the update")
}
