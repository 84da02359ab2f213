package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/stemma/internal/identity"
	"github.com/mesh-intelligence/stemma/pkg/types"
)

const (
	artefactColumns  = "id, dna_token, path, hash, type, description, created_at, updated_at"
	artefactColumnsA = "a.id, a.dna_token, a.path, a.hash, a.type, a.description, a.created_at, a.updated_at"
)

// ArtefactByDNA returns the artefact with the given DNA token.
func (s *Store) ArtefactByDNA(dna string) (*types.Artefact, error) {
	return s.artefactWhere("dna_token = ?", dna)
}

// ArtefactByPath returns the artefact whose stored path matches.
// The caller passes a canonical path.
func (s *Store) ArtefactByPath(path string) (*types.Artefact, error) {
	return s.artefactWhere("path = ?", path)
}

// ArtefactByHash returns an artefact with the given content hash.
// Hashes are not unique across time; when duplicates exist an arbitrary
// matching row is returned.
func (s *Store) ArtefactByHash(hash string) (*types.Artefact, error) {
	return s.artefactWhere("hash = ?", hash)
}

// ArtefactByID returns the artefact with the given internal id.
func (s *Store) ArtefactByID(id int64) (*types.Artefact, error) {
	return s.artefactWhere("id = ?", id)
}

func (s *Store) artefactWhere(cond string, arg any) (*types.Artefact, error) {
	row := s.q.QueryRow("SELECT "+artefactColumns+" FROM artefacts WHERE "+cond, arg)
	a, err := hydrateArtefact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("artefact (%s %v): %w", cond, arg, types.ErrNotFound)
		}
		return nil, fmt.Errorf("looking up artefact: %w", err)
	}
	return a, nil
}

// CreateArtefactParams carries the fields for a new artefact row.
type CreateArtefactParams struct {
	DNA         string
	Path        string
	Hash        string
	Type        string
	Description string
	Tags        []string
	ProjectIDs  []string
}

// CreateArtefact inserts a new artefact together with its created event,
// initial tags, and project links in one transaction.
func (s *Store) CreateArtefact(p CreateArtefactParams) (*types.Artefact, error) {
	var id int64
	err := s.WithTx(func(tx *Store) error {
		ts := now()
		res, err := tx.q.Exec(
			"INSERT INTO artefacts (dna_token, path, hash, type, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			p.DNA, p.Path, p.Hash, nullable(p.Type), nullable(p.Description), ts, ts,
		)
		if err != nil {
			return fmt.Errorf("inserting artefact: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading artefact id: %w", err)
		}

		createdDesc := p.Description
		if createdDesc == "" {
			createdDesc = "tagged"
		}
		if err := tx.RecordEvent(id, types.EventCreated, createdDesc, map[string]any{"hash": p.Hash}); err != nil {
			return err
		}
		if len(p.Tags) > 0 {
			if err := tx.AddTags(id, p.Tags); err != nil {
				return err
			}
		}
		if len(p.ProjectIDs) > 0 {
			if err := tx.AssignProjects(id, p.ProjectIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.ArtefactByID(id)
}

// AddTags attaches lowercased tags to an artefact. Duplicate tags are a
// no-op, not an error.
func (s *Store) AddTags(artefactID int64, tags []string) error {
	return s.WithTx(func(tx *Store) error {
		for _, tag := range tags {
			_, err := tx.q.Exec(
				"INSERT OR IGNORE INTO tags (artefact_id, tag, created_at) VALUES (?, ?, ?)",
				artefactID, strings.ToLower(tag), now(),
			)
			if err != nil {
				return fmt.Errorf("adding tag %q: %w", tag, err)
			}
		}
		return nil
	})
}

// AssignProjects links an artefact to projects. A project id with no
// project row fails the whole call.
func (s *Store) AssignProjects(artefactID int64, projectIDs []string) error {
	return s.WithTx(func(tx *Store) error {
		for _, projectID := range projectIDs {
			var one int
			err := tx.q.QueryRow("SELECT 1 FROM projects WHERE id = ?", projectID).Scan(&one)
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("project %q does not exist: %w", projectID, types.ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("checking project %q: %w", projectID, err)
			}
			_, err = tx.q.Exec(
				"INSERT OR IGNORE INTO artefact_projects (artefact_id, project_id, added_at) VALUES (?, ?, ?)",
				artefactID, projectID, now(),
			)
			if err != nil {
				return fmt.Errorf("linking project %q: %w", projectID, err)
			}
		}
		return nil
	})
}

// RecordEvent appends an audit event. Metadata is stored as canonical
// (sorted-key) JSON text; nil metadata stores NULL.
func (s *Store) RecordEvent(artefactID int64, eventType, description string, metadata map[string]any) error {
	var meta sql.NullString
	if metadata != nil {
		blob, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("encoding event metadata: %w", err)
		}
		meta = sql.NullString{String: string(blob), Valid: true}
	}
	_, err := s.q.Exec(
		"INSERT INTO events (artefact_id, event_type, description, metadata, created_at) VALUES (?, ?, ?, ?, ?)",
		artefactID, eventType, nullable(description), meta, now(),
	)
	if err != nil {
		return fmt.Errorf("recording %s event: %w", eventType, err)
	}
	return nil
}

// UpdatePath stores a new canonical path and bumps updated_at.
func (s *Store) UpdatePath(artefactID int64, path string) error {
	return s.updateField(artefactID, "path", path)
}

// UpdateHash stores a new content hash and bumps updated_at.
func (s *Store) UpdateHash(artefactID int64, hash string) error {
	return s.updateField(artefactID, "hash", hash)
}

// UpdateType stores a new type label and bumps updated_at.
func (s *Store) UpdateType(artefactID int64, typeLabel string) error {
	return s.updateField(artefactID, "type", typeLabel)
}

// UpdateDescription stores a new description and bumps updated_at.
func (s *Store) UpdateDescription(artefactID int64, description string) error {
	return s.updateField(artefactID, "description", description)
}

func (s *Store) updateField(artefactID int64, column, value string) error {
	_, err := s.q.Exec(
		"UPDATE artefacts SET "+column+" = ?, updated_at = ? WHERE id = ?",
		value, now(), artefactID,
	)
	if err != nil {
		return fmt.Errorf("updating artefact %s: %w", column, err)
	}
	return nil
}

// ListTags returns an artefact's tags sorted alphabetically.
func (s *Store) ListTags(artefactID int64) ([]string, error) {
	rows, err := s.q.Query("SELECT tag FROM tags WHERE artefact_id = ? ORDER BY tag", artefactID)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// ListEvents returns an artefact's events, newest first.
func (s *Store) ListEvents(artefactID int64) ([]types.Event, error) {
	rows, err := s.q.Query(
		"SELECT id, artefact_id, event_type, description, metadata, created_at FROM events WHERE artefact_id = ? ORDER BY created_at DESC, id DESC",
		artefactID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []types.Event
	for rows.Next() {
		var (
			e           types.Event
			desc, meta  sql.NullString
			createdAt   string
		)
		if err := rows.Scan(&e.ID, &e.ArtefactID, &e.Type, &desc, &meta, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Description = stringOrEmpty(desc)
		e.CreatedAt = parseTime(createdAt)
		if meta.Valid {
			if err := json.Unmarshal([]byte(meta.String), &e.Metadata); err != nil {
				return nil, fmt.Errorf("decoding event metadata: %w", err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ListNotes returns an artefact's notes, oldest first.
func (s *Store) ListNotes(artefactID int64) ([]types.Note, error) {
	rows, err := s.q.Query(
		"SELECT id, artefact_id, note, created_at FROM notes WHERE artefact_id = ? ORDER BY created_at ASC, id ASC",
		artefactID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}
	defer rows.Close()

	var notes []types.Note
	for rows.Next() {
		var (
			n         types.Note
			createdAt string
		)
		if err := rows.Scan(&n.ID, &n.ArtefactID, &n.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning note: %w", err)
		}
		n.CreatedAt = parseTime(createdAt)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// CreateEdge inserts a lineage edge. Duplicates are permitted; dedup is
// the concern of unlink matching and bundle import.
func (s *Store) CreateEdge(parentID, childID int64, relationType, reason string) error {
	_, err := s.q.Exec(
		"INSERT INTO edges (parent_id, child_id, relation_type, reason, created_at) VALUES (?, ?, ?, ?, ?)",
		parentID, childID, relationType, nullable(reason), now(),
	)
	if err != nil {
		return fmt.Errorf("creating edge: %w", err)
	}
	return nil
}

// EdgesBetween returns the edges matching (parent, child, relation).
func (s *Store) EdgesBetween(parentID, childID int64, relationType string) ([]types.Edge, error) {
	rows, err := s.q.Query(
		"SELECT id, parent_id, child_id, relation_type, reason, created_at FROM edges WHERE parent_id = ? AND child_id = ? AND relation_type = ?",
		parentID, childID, relationType,
	)
	if err != nil {
		return nil, fmt.Errorf("finding edges: %w", err)
	}
	defer rows.Close()

	var edges []types.Edge
	for rows.Next() {
		var (
			e         types.Edge
			reason    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.ParentID, &e.ChildID, &e.RelationType, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}
		e.Reason = stringOrEmpty(reason)
		e.CreatedAt = parseTime(createdAt)
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// DeleteEdge removes one edge by id.
func (s *Store) DeleteEdge(edgeID int64) error {
	if _, err := s.q.Exec("DELETE FROM edges WHERE id = ?", edgeID); err != nil {
		return fmt.Errorf("deleting edge: %w", err)
	}
	return nil
}

// ListParents returns the artefacts this artefact derives from, with the
// connecting relation, newest artefacts first.
func (s *Store) ListParents(childID int64) ([]types.Related, error) {
	return s.listRelated(
		"SELECT "+artefactColumnsA+", e.relation_type, e.reason FROM edges e JOIN artefacts a ON a.id = e.parent_id WHERE e.child_id = ? ORDER BY a.created_at DESC",
		childID,
	)
}

// ListChildren returns the artefacts derived from this artefact, with
// the connecting relation, newest artefacts first.
func (s *Store) ListChildren(parentID int64) ([]types.Related, error) {
	return s.listRelated(
		"SELECT "+artefactColumnsA+", e.relation_type, e.reason FROM edges e JOIN artefacts a ON a.id = e.child_id WHERE e.parent_id = ? ORDER BY a.created_at DESC",
		parentID,
	)
}

func (s *Store) listRelated(query string, id int64) ([]types.Related, error) {
	rows, err := s.q.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("listing related artefacts: %w", err)
	}
	defer rows.Close()

	var related []types.Related
	for rows.Next() {
		var (
			r                    types.Related
			typ, desc, reason    sql.NullString
			createdAt, updatedAt string
		)
		err := rows.Scan(
			&r.ID, &r.DNA, &r.Path, &r.Hash, &typ, &desc, &createdAt, &updatedAt,
			&r.RelationType, &reason,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning related artefact: %w", err)
		}
		r.Type = stringOrEmpty(typ)
		r.Description = stringOrEmpty(desc)
		r.CreatedAt = parseTime(createdAt)
		r.UpdatedAt = parseTime(updatedAt)
		r.Reason = stringOrEmpty(reason)
		related = append(related, r)
	}
	return related, rows.Err()
}

// ParentIDs returns the parent ids of an artefact. Used by lineage
// closure expansion.
func (s *Store) ParentIDs(childID int64) ([]int64, error) {
	return s.idColumn("SELECT parent_id FROM edges WHERE child_id = ?", childID)
}

// ChildIDs returns the child ids of an artefact.
func (s *Store) ChildIDs(parentID int64) ([]int64, error) {
	return s.idColumn("SELECT child_id FROM edges WHERE parent_id = ?", parentID)
}

func (s *Store) idColumn(query string, args ...any) ([]int64, error) {
	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateVersion creates a new artefact as the successor of parent:
// fresh DNA, parent's type/tags/projects carried forward, a derived_from
// edge with reason content_changed, and paired superseded/created
// events. The whole operation is one transaction.
func (s *Store) CreateVersion(parent *types.Artefact, newHash, newPath, description string) (*types.Artefact, error) {
	if description == "" {
		description = parent.Description
	}
	tags, err := s.ListTags(parent.ID)
	if err != nil {
		return nil, err
	}
	projects, err := s.ListProjects(parent.ID)
	if err != nil {
		return nil, err
	}
	projectIDs := make([]string, 0, len(projects))
	for _, p := range projects {
		projectIDs = append(projectIDs, p.ID)
	}

	dna := identity.GenerateToken()
	var child *types.Artefact
	err = s.WithTx(func(tx *Store) error {
		var err error
		child, err = tx.CreateArtefact(CreateArtefactParams{
			DNA:         dna,
			Path:        newPath,
			Hash:        newHash,
			Type:        parent.Type,
			Description: description,
			Tags:        tags,
			ProjectIDs:  projectIDs,
		})
		if err != nil {
			return err
		}
		if err := tx.CreateEdge(parent.ID, child.ID, types.RelationDerivedFrom, types.ReasonContentChanged); err != nil {
			return err
		}
		if err := tx.RecordEvent(parent.ID, types.EventVersionSuperseded, "", map[string]any{"new_dna": dna}); err != nil {
			return err
		}
		return tx.RecordEvent(child.ID, types.EventVersionCreated, "", map[string]any{"parent_dna": parent.DNA})
	})
	if err != nil {
		return nil, err
	}
	return child, nil
}

// SearchFilter narrows a search. Zero values mean "any".
type SearchFilter struct {
	Tags      []string // match any of these (lowercased on query)
	Type      string
	ProjectID string
}

// Search returns distinct artefacts matching the filter, newest first.
func (s *Store) Search(filter SearchFilter) ([]types.Artefact, error) {
	query := "SELECT DISTINCT " + artefactColumnsA + " FROM artefacts a"
	clauses := []string{"1=1"}
	var args []any

	if len(filter.Tags) > 0 {
		query += " JOIN tags t ON t.artefact_id = a.id"
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.Tags)), ",")
		clauses = append(clauses, "t.tag IN ("+placeholders+")")
		for _, tag := range filter.Tags {
			args = append(args, strings.ToLower(tag))
		}
	}
	if filter.ProjectID != "" {
		query += " JOIN artefact_projects ap ON ap.artefact_id = a.id"
		clauses = append(clauses, "ap.project_id = ?")
		args = append(args, filter.ProjectID)
	}
	if filter.Type != "" {
		clauses = append(clauses, "a.type = ?")
		args = append(args, filter.Type)
	}
	query += " WHERE " + strings.Join(clauses, " AND ") + " ORDER BY a.created_at DESC"

	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching artefacts: %w", err)
	}
	defer rows.Close()
	return scanArtefacts(rows)
}

func hydrateArtefact(row *sql.Row) (*types.Artefact, error) {
	var (
		a                    types.Artefact
		typ, desc            sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&a.ID, &a.DNA, &a.Path, &a.Hash, &typ, &desc, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.Type = stringOrEmpty(typ)
	a.Description = stringOrEmpty(desc)
	a.CreatedAt = parseTime(createdAt)
	a.UpdatedAt = parseTime(updatedAt)
	return &a, nil
}

func scanArtefacts(rows *sql.Rows) ([]types.Artefact, error) {
	var artefacts []types.Artefact
	for rows.Next() {
		var (
			a                    types.Artefact
			typ, desc            sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&a.ID, &a.DNA, &a.Path, &a.Hash, &typ, &desc, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning artefact: %w", err)
		}
		a.Type = stringOrEmpty(typ)
		a.Description = stringOrEmpty(desc)
		a.CreatedAt = parseTime(createdAt)
		a.UpdatedAt = parseTime(updatedAt)
		artefacts = append(artefacts, a)
	}
	return artefacts, rows.Err()
}
