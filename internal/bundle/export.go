package bundle

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/mesh-intelligence/stemma/internal/sqlite"
	"github.com/mesh-intelligence/stemma/pkg/types"
)

// Export serializes the lineage closure of a project. The artefact set
// seeds from the project's members and expands transitively along edges
// in both directions, so the bundle never contains an edge whose
// endpoint is missing. Artefact and edge lists are sorted by DNA for
// reproducible output.
func Export(store *sqlite.Store, projectID string) (*Bundle, error) {
	ok, err := store.HasProject(projectID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("project %q: %w", projectID, types.ErrNotFound)
	}

	seedIDs, err := store.ProjectMemberIDs(projectID)
	if err != nil {
		return nil, err
	}
	idSet, err := expandLineage(store, seedIDs)
	if err != nil {
		return nil, err
	}

	artefacts := make([]sqlite.ArtefactRecord, 0, len(idSet))
	idToDNA := make(map[int64]string, len(idSet))
	for id := range idSet {
		rec, err := store.ArtefactRecord(id)
		if err != nil {
			return nil, err
		}
		artefacts = append(artefacts, *rec)
		idToDNA[rec.ID] = rec.DNA
	}
	sort.Slice(artefacts, func(i, j int) bool { return artefacts[i].DNA < artefacts[j].DNA })

	b := &Bundle{
		Format:     Format,
		Version:    Version,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Source:     Source{ProjectIDs: []string{projectID}},
	}

	projectIDs := map[string]bool{projectID: true}
	seenEdges := make(map[int64]bool)

	for _, rec := range artefacts {
		b.Artefacts = append(b.Artefacts, Artefact{
			DNA:         rec.DNA,
			Path:        rec.Path,
			Hash:        rec.Hash,
			Type:        rec.Type,
			Description: rec.Description,
			CreatedAt:   rec.CreatedAt,
			UpdatedAt:   rec.UpdatedAt,
		})

		tags, err := store.TagRecords(rec.ID)
		if err != nil {
			return nil, err
		}
		for _, t := range tags {
			b.Tags = append(b.Tags, Tag{DNA: rec.DNA, Tag: t.Tag})
		}

		notes, err := store.NoteRecords(rec.ID)
		if err != nil {
			return nil, err
		}
		for _, n := range notes {
			b.Notes = append(b.Notes, Note{DNA: rec.DNA, Note: n.Note, CreatedAt: n.CreatedAt})
		}

		events, err := store.EventRecords(rec.ID)
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			b.Events = append(b.Events, Event{
				DNA:         rec.DNA,
				Type:        ev.Type,
				Description: ev.Description,
				Metadata:    decodeMetadata(ev.Metadata),
				CreatedAt:   ev.CreatedAt,
			})
		}

		edges, err := store.EdgeRecords(rec.ID)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			if seenEdges[e.ID] {
				continue
			}
			seenEdges[e.ID] = true
			if !idSet[e.ParentID] || !idSet[e.ChildID] {
				continue
			}
			b.Edges = append(b.Edges, Edge{
				ParentDNA:    idToDNA[e.ParentID],
				ChildDNA:     idToDNA[e.ChildID],
				RelationType: e.RelationType,
				Reason:       e.Reason,
				CreatedAt:    e.CreatedAt,
			})
		}

		links, err := store.LinkRecords(rec.ID)
		if err != nil {
			return nil, err
		}
		for _, l := range links {
			projectIDs[l.ProjectID] = true
			b.Links = append(b.Links, Link{DNA: rec.DNA, ProjectID: l.ProjectID, AddedAt: l.AddedAt})
		}
	}

	sort.Slice(b.Edges, func(i, j int) bool {
		a, c := b.Edges[i], b.Edges[j]
		if a.ParentDNA != c.ParentDNA {
			return a.ParentDNA < c.ParentDNA
		}
		if a.ChildDNA != c.ChildDNA {
			return a.ChildDNA < c.ChildDNA
		}
		return a.RelationType < c.RelationType
	})
	sort.Slice(b.Links, func(i, j int) bool {
		if b.Links[i].ProjectID != b.Links[j].ProjectID {
			return b.Links[i].ProjectID < b.Links[j].ProjectID
		}
		return b.Links[i].DNA < b.Links[j].DNA
	})

	sortedProjects := make([]string, 0, len(projectIDs))
	for id := range projectIDs {
		sortedProjects = append(sortedProjects, id)
	}
	sort.Strings(sortedProjects)
	for _, id := range sortedProjects {
		rec, err := store.ProjectRecord(id)
		if err != nil {
			return nil, err
		}
		b.Projects = append(b.Projects, Project{
			ID:          rec.ID,
			Name:        rec.Name,
			Description: rec.Description,
			CreatedAt:   rec.CreatedAt,
		})
	}
	return b, nil
}

// expandLineage follows edges breadth-first in both directions from the
// seed set, returning the full connected component.
func expandLineage(store *sqlite.Store, seedIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(seedIDs))
	queue := make([]int64, 0, len(seedIDs))
	for _, id := range seedIDs {
		result[id] = true
		queue = append(queue, id)
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		parents, err := store.ParentIDs(current)
		if err != nil {
			return nil, err
		}
		children, err := store.ChildIDs(current)
		if err != nil {
			return nil, err
		}
		for _, id := range append(parents, children...) {
			if !result[id] {
				result[id] = true
				queue = append(queue, id)
			}
		}
	}
	return result, nil
}

// decodeMetadata re-expresses stored metadata text as structured data.
// Text that is not valid JSON is carried through as a string.
func decodeMetadata(raw *string) any {
	if raw == nil {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(*raw), &v); err != nil {
		return *raw
	}
	return v
}
