package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/stemma/internal/sqlite"
	"github.com/mesh-intelligence/stemma/pkg/types"
)

// Stats counts what an import inserted and what it skipped as already
// present. A dry run produces the same numbers as a real run.
type Stats struct {
	ProjectsNew       int `json:"projects_new"`
	ProjectsExisting  int `json:"projects_existing"`
	ArtefactsNew      int `json:"artefacts_new"`
	ArtefactsExisting int `json:"artefacts_existing"`
	TagsInserted      int `json:"tags_inserted"`
	TagsSkipped       int `json:"tags_skipped"`
	NotesInserted     int `json:"notes_inserted"`
	NotesSkipped      int `json:"notes_skipped"`
	EventsInserted    int `json:"events_inserted"`
	EventsSkipped     int `json:"events_skipped"`
	EdgesInserted     int `json:"edges_inserted"`
	EdgesSkipped      int `json:"edges_skipped"`
	LinksInserted     int `json:"links_inserted"`
	LinksSkipped      int `json:"links_skipped"`
}

// Import merges a bundle into the store. Records are processed in
// dependency order and deduplicated against existing rows, so importing
// the same bundle twice is a no-op. When not a dry run the whole merge
// is one transaction; a dry run performs every lookup but writes
// nothing, assigning synthetic negative ids to would-be-new artefacts
// so dependent counting still works.
func Import(store *sqlite.Store, b *Bundle, dryRun bool) (*Stats, error) {
	if b.Format != Format {
		return nil, fmt.Errorf("unsupported bundle format %q: %w", b.Format, types.ErrInvalidArgument)
	}
	if b.Version != Version {
		return nil, fmt.Errorf("unsupported bundle version %d: %w", b.Version, types.ErrInvalidArgument)
	}

	stats := &Stats{}
	apply := func(st *sqlite.Store) error { return applyBundle(st, b, dryRun, stats) }

	var err error
	if dryRun {
		err = apply(store)
	} else {
		err = store.WithTx(apply)
	}
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func applyBundle(st *sqlite.Store, b *Bundle, dryRun bool, stats *Stats) error {
	fallback := time.Now().UTC().Format(time.RFC3339)
	orNow := func(ts string) string {
		if ts == "" {
			return fallback
		}
		return ts
	}

	for _, p := range b.Projects {
		exists, err := st.HasProject(p.ID)
		if err != nil {
			return err
		}
		if exists {
			stats.ProjectsExisting++
			continue
		}
		stats.ProjectsNew++
		if dryRun {
			continue
		}
		err = st.ImportProject(sqlite.ProjectRecord{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			CreatedAt:   orNow(p.CreatedAt),
		})
		if err != nil {
			return err
		}
	}

	dnaToID := make(map[string]int64, len(b.Artefacts))
	tempID := int64(-1)
	for _, a := range b.Artefacts {
		existing, err := st.ArtefactByDNA(a.DNA)
		if err == nil {
			dnaToID[a.DNA] = existing.ID
			stats.ArtefactsExisting++
			continue
		}
		if !isNotFound(err) {
			return err
		}
		stats.ArtefactsNew++
		if dryRun {
			dnaToID[a.DNA] = tempID
			tempID--
			continue
		}
		path := a.Path
		if path == "" {
			path = a.DNA
		}
		id, err := st.CreateArtefactRaw(sqlite.ArtefactRecord{
			DNA:         a.DNA,
			Path:        path,
			Hash:        a.Hash,
			Type:        a.Type,
			Description: a.Description,
			CreatedAt:   orNow(a.CreatedAt),
			UpdatedAt:   orNow(a.UpdatedAt),
		})
		if err != nil {
			return err
		}
		dnaToID[a.DNA] = id
	}

	for _, t := range b.Tags {
		id, err := resolveDNA(dnaToID, t.DNA)
		if err != nil {
			return err
		}
		tag := strings.ToLower(t.Tag)
		exists, err := st.HasTag(id, tag)
		if err != nil {
			return err
		}
		if exists {
			stats.TagsSkipped++
			continue
		}
		stats.TagsInserted++
		if dryRun {
			continue
		}
		if err := st.InsertTagRaw(sqlite.TagRecord{ArtefactID: id, Tag: tag, CreatedAt: fallback}); err != nil {
			return err
		}
	}

	for _, n := range b.Notes {
		id, err := resolveDNA(dnaToID, n.DNA)
		if err != nil {
			return err
		}
		rec := sqlite.NoteRecord{ArtefactID: id, Note: n.Note, CreatedAt: n.CreatedAt}
		exists, err := st.HasNote(rec)
		if err != nil {
			return err
		}
		if exists {
			stats.NotesSkipped++
			continue
		}
		stats.NotesInserted++
		if dryRun {
			continue
		}
		rec.CreatedAt = orNow(rec.CreatedAt)
		if err := st.InsertNoteRaw(rec); err != nil {
			return err
		}
	}

	for _, ev := range b.Events {
		id, err := resolveDNA(dnaToID, ev.DNA)
		if err != nil {
			return err
		}
		exists, err := eventExists(st, id, ev)
		if err != nil {
			return err
		}
		if exists {
			stats.EventsSkipped++
			continue
		}
		stats.EventsInserted++
		if dryRun {
			continue
		}
		err = st.InsertEventRaw(sqlite.EventRecord{
			ArtefactID:  id,
			Type:        ev.Type,
			Description: ev.Description,
			Metadata:    encodeMetadata(ev.Metadata),
			CreatedAt:   orNow(ev.CreatedAt),
		})
		if err != nil {
			return err
		}
	}

	for _, e := range b.Edges {
		parentID, err := resolveDNA(dnaToID, e.ParentDNA)
		if err != nil {
			return err
		}
		childID, err := resolveDNA(dnaToID, e.ChildDNA)
		if err != nil {
			return err
		}
		rec := sqlite.EdgeRecord{
			ParentID:     parentID,
			ChildID:      childID,
			RelationType: e.RelationType,
			Reason:       e.Reason,
			CreatedAt:    e.CreatedAt,
		}
		exists, err := st.EdgeExists(rec)
		if err != nil {
			return err
		}
		if exists {
			stats.EdgesSkipped++
			continue
		}
		stats.EdgesInserted++
		if dryRun {
			continue
		}
		rec.CreatedAt = orNow(rec.CreatedAt)
		if err := st.InsertEdgeRaw(rec); err != nil {
			return err
		}
	}

	for _, l := range b.Links {
		id, err := resolveDNA(dnaToID, l.DNA)
		if err != nil {
			return err
		}
		exists, err := st.HasProjectLink(id, l.ProjectID)
		if err != nil {
			return err
		}
		if exists {
			stats.LinksSkipped++
			continue
		}
		stats.LinksInserted++
		if dryRun {
			continue
		}
		err = st.InsertLinkRaw(sqlite.LinkRecord{ArtefactID: id, ProjectID: l.ProjectID, AddedAt: orNow(l.AddedAt)})
		if err != nil {
			return err
		}
	}
	return nil
}

// resolveDNA maps a bundle DNA reference to a local artefact id. An
// unknown DNA is a bundle integrity violation, not a soft skip.
func resolveDNA(mapping map[string]int64, dna string) (int64, error) {
	id, ok := mapping[dna]
	if !ok {
		return 0, fmt.Errorf("bundle references unknown artefact DNA %q: %w", dna, types.ErrInvalidArgument)
	}
	return id, nil
}

// eventExists compares a bundle event against the artefact's existing
// events. Metadata is canonicalized to sorted-key JSON before the
// comparison so key order never causes a false "new" entry.
func eventExists(st *sqlite.Store, artefactID int64, ev Event) (bool, error) {
	if artefactID < 0 {
		// Dry-run placeholder: the artefact does not exist yet, so
		// neither do any of its events.
		return false, nil
	}
	existing, err := st.EventRecords(artefactID)
	if err != nil {
		return false, err
	}
	wantMeta := canonicalMetadata(ev.Metadata)
	for _, rec := range existing {
		if rec.Type != ev.Type {
			continue
		}
		if !ptrEqual(rec.Description, ev.Description) {
			continue
		}
		if rec.CreatedAt != ev.CreatedAt {
			continue
		}
		if ptrEqual(canonicalMetadata(decodeMetadata(rec.Metadata)), wantMeta) {
			return true, nil
		}
	}
	return false, nil
}

// canonicalMetadata reduces metadata to a comparable form: structured
// values become sorted-key JSON text, plain strings that do not parse
// as JSON objects or arrays stay as-is, nil stays nil.
func canonicalMetadata(v any) *string {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err == nil {
			switch parsed.(type) {
			case map[string]any, []any:
				return marshalString(parsed)
			}
		}
		return &s
	}
	return marshalString(v)
}

// encodeMetadata turns structured metadata into the stored JSON text.
func encodeMetadata(v any) *string {
	if v == nil {
		return nil
	}
	return marshalString(v)
}

func marshalString(v any) *string {
	blob, err := json.Marshal(v)
	if err != nil {
		s := fmt.Sprintf("%v", v)
		return &s
	}
	s := string(blob)
	return &s
}

func ptrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func isNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
