package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/stemma/pkg/types"
)

// Record types mirror rows with timestamps kept as raw TEXT. Bundle
// export and import go through these so values written by another
// database round-trip byte for byte, which is what the dedup checks
// compare.

// ArtefactRecord is a raw artefact row.
type ArtefactRecord struct {
	ID          int64
	DNA         string
	Path        string
	Hash        string
	Type        *string
	Description *string
	CreatedAt   string
	UpdatedAt   string
}

// TagRecord is a raw tag row.
type TagRecord struct {
	ArtefactID int64
	Tag        string
	CreatedAt  string
}

// NoteRecord is a raw note row.
type NoteRecord struct {
	ArtefactID int64
	Note       string
	CreatedAt  string
}

// EventRecord is a raw event row. Metadata is the stored JSON text, nil
// when the column is NULL.
type EventRecord struct {
	ArtefactID  int64
	Type        string
	Description *string
	Metadata    *string
	CreatedAt   string
}

// EdgeRecord is a raw edge row. ID is carried so callers reading edges
// from both endpoints can deduplicate rows; it is never exported.
type EdgeRecord struct {
	ID           int64
	ParentID     int64
	ChildID      int64
	RelationType string
	Reason       *string
	CreatedAt    string
}

// LinkRecord is a raw artefact_projects row.
type LinkRecord struct {
	ArtefactID int64
	ProjectID  string
	AddedAt    string
}

// ProjectRecord is a raw project row.
type ProjectRecord struct {
	ID          string
	Name        string
	Description *string
	CreatedAt   string
}

// ArtefactRecord returns one raw artefact row by id.
func (s *Store) ArtefactRecord(id int64) (*ArtefactRecord, error) {
	row := s.q.QueryRow("SELECT "+artefactColumns+" FROM artefacts WHERE id = ?", id)
	var (
		r         ArtefactRecord
		typ, desc sql.NullString
	)
	if err := row.Scan(&r.ID, &r.DNA, &r.Path, &r.Hash, &typ, &desc, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("artefact %d: %w", id, types.ErrNotFound)
		}
		return nil, fmt.Errorf("reading artefact record: %w", err)
	}
	r.Type = ptrOrNil(typ)
	r.Description = ptrOrNil(desc)
	return &r, nil
}

// TagRecords returns an artefact's raw tag rows ordered by tag.
func (s *Store) TagRecords(artefactID int64) ([]TagRecord, error) {
	rows, err := s.q.Query("SELECT artefact_id, tag, created_at FROM tags WHERE artefact_id = ? ORDER BY tag", artefactID)
	if err != nil {
		return nil, fmt.Errorf("reading tag records: %w", err)
	}
	defer rows.Close()

	var records []TagRecord
	for rows.Next() {
		var r TagRecord
		if err := rows.Scan(&r.ArtefactID, &r.Tag, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning tag record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// NoteRecords returns an artefact's raw note rows, oldest first.
func (s *Store) NoteRecords(artefactID int64) ([]NoteRecord, error) {
	rows, err := s.q.Query("SELECT artefact_id, note, created_at FROM notes WHERE artefact_id = ? ORDER BY created_at ASC, id ASC", artefactID)
	if err != nil {
		return nil, fmt.Errorf("reading note records: %w", err)
	}
	defer rows.Close()

	var records []NoteRecord
	for rows.Next() {
		var r NoteRecord
		if err := rows.Scan(&r.ArtefactID, &r.Note, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning note record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// EventRecords returns an artefact's raw event rows, oldest first.
func (s *Store) EventRecords(artefactID int64) ([]EventRecord, error) {
	rows, err := s.q.Query(
		"SELECT artefact_id, event_type, description, metadata, created_at FROM events WHERE artefact_id = ? ORDER BY created_at ASC, id ASC",
		artefactID,
	)
	if err != nil {
		return nil, fmt.Errorf("reading event records: %w", err)
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var (
			r          EventRecord
			desc, meta sql.NullString
		)
		if err := rows.Scan(&r.ArtefactID, &r.Type, &desc, &meta, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event record: %w", err)
		}
		r.Description = ptrOrNil(desc)
		r.Metadata = ptrOrNil(meta)
		records = append(records, r)
	}
	return records, rows.Err()
}

// EdgeRecords returns the raw edges touching an artefact, as parent or
// child.
func (s *Store) EdgeRecords(artefactID int64) ([]EdgeRecord, error) {
	rows, err := s.q.Query(
		"SELECT id, parent_id, child_id, relation_type, reason, created_at FROM edges WHERE parent_id = ? OR child_id = ? ORDER BY id",
		artefactID, artefactID,
	)
	if err != nil {
		return nil, fmt.Errorf("reading edge records: %w", err)
	}
	defer rows.Close()

	var records []EdgeRecord
	for rows.Next() {
		var (
			r      EdgeRecord
			reason sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.ParentID, &r.ChildID, &r.RelationType, &reason, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning edge record: %w", err)
		}
		r.Reason = ptrOrNil(reason)
		records = append(records, r)
	}
	return records, rows.Err()
}

// LinkRecords returns an artefact's raw project links ordered by
// project id.
func (s *Store) LinkRecords(artefactID int64) ([]LinkRecord, error) {
	rows, err := s.q.Query(
		"SELECT artefact_id, project_id, added_at FROM artefact_projects WHERE artefact_id = ? ORDER BY project_id",
		artefactID,
	)
	if err != nil {
		return nil, fmt.Errorf("reading link records: %w", err)
	}
	defer rows.Close()

	var records []LinkRecord
	for rows.Next() {
		var r LinkRecord
		if err := rows.Scan(&r.ArtefactID, &r.ProjectID, &r.AddedAt); err != nil {
			return nil, fmt.Errorf("scanning link record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ProjectRecord returns one raw project row.
func (s *Store) ProjectRecord(id string) (*ProjectRecord, error) {
	row := s.q.QueryRow("SELECT id, name, description, created_at FROM projects WHERE id = ?", id)
	var (
		r    ProjectRecord
		desc sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Name, &desc, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %q: %w", id, types.ErrNotFound)
		}
		return nil, fmt.Errorf("reading project record: %w", err)
	}
	r.Description = ptrOrNil(desc)
	return &r, nil
}

// CreateArtefactRaw inserts an artefact row preserving the supplied
// timestamps, with no event or tag side effects. Returns the new id.
func (s *Store) CreateArtefactRaw(r ArtefactRecord) (int64, error) {
	res, err := s.q.Exec(
		"INSERT INTO artefacts (dna_token, path, hash, type, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		r.DNA, r.Path, r.Hash, nullablePtr(r.Type), nullablePtr(r.Description), r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("importing artefact %s: %w", r.DNA, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading imported artefact id: %w", err)
	}
	return id, nil
}

// InsertTagRaw inserts a tag row preserving the supplied timestamp.
func (s *Store) InsertTagRaw(r TagRecord) error {
	_, err := s.q.Exec(
		"INSERT OR IGNORE INTO tags (artefact_id, tag, created_at) VALUES (?, ?, ?)",
		r.ArtefactID, r.Tag, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("importing tag %q: %w", r.Tag, err)
	}
	return nil
}

// InsertNoteRaw inserts a note row preserving the supplied timestamp.
func (s *Store) InsertNoteRaw(r NoteRecord) error {
	_, err := s.q.Exec(
		"INSERT INTO notes (artefact_id, note, created_at) VALUES (?, ?, ?)",
		r.ArtefactID, r.Note, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("importing note: %w", err)
	}
	return nil
}

// InsertEventRaw inserts an event row preserving the supplied timestamp
// and metadata text.
func (s *Store) InsertEventRaw(r EventRecord) error {
	_, err := s.q.Exec(
		"INSERT INTO events (artefact_id, event_type, description, metadata, created_at) VALUES (?, ?, ?, ?, ?)",
		r.ArtefactID, r.Type, nullablePtr(r.Description), nullablePtr(r.Metadata), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("importing %s event: %w", r.Type, err)
	}
	return nil
}

// InsertEdgeRaw inserts an edge row preserving the supplied timestamp.
func (s *Store) InsertEdgeRaw(r EdgeRecord) error {
	_, err := s.q.Exec(
		"INSERT INTO edges (parent_id, child_id, relation_type, reason, created_at) VALUES (?, ?, ?, ?, ?)",
		r.ParentID, r.ChildID, r.RelationType, nullablePtr(r.Reason), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("importing edge: %w", err)
	}
	return nil
}

// InsertLinkRaw inserts an artefact-project link preserving the
// supplied timestamp.
func (s *Store) InsertLinkRaw(r LinkRecord) error {
	_, err := s.q.Exec(
		"INSERT OR IGNORE INTO artefact_projects (artefact_id, project_id, added_at) VALUES (?, ?, ?)",
		r.ArtefactID, r.ProjectID, r.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("importing project link: %w", err)
	}
	return nil
}

// ImportProject inserts a project row preserving the supplied
// timestamp. Existing projects are left untouched.
func (s *Store) ImportProject(r ProjectRecord) error {
	_, err := s.q.Exec(
		"INSERT OR IGNORE INTO projects (id, name, description, created_at) VALUES (?, ?, ?, ?)",
		r.ID, r.Name, nullablePtr(r.Description), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("importing project %q: %w", r.ID, err)
	}
	return nil
}

// HasProject reports whether a project row exists.
func (s *Store) HasProject(id string) (bool, error) {
	return s.exists("SELECT 1 FROM projects WHERE id = ?", id)
}

// HasTag reports whether an artefact already carries a tag.
func (s *Store) HasTag(artefactID int64, tag string) (bool, error) {
	return s.exists("SELECT 1 FROM tags WHERE artefact_id = ? AND tag = ?", artefactID, tag)
}

// HasNote reports whether a matching note row already exists. The
// timestamp participates in the match only when the record carries one.
func (s *Store) HasNote(r NoteRecord) (bool, error) {
	if r.CreatedAt == "" {
		return s.exists("SELECT 1 FROM notes WHERE artefact_id = ? AND note = ?", r.ArtefactID, r.Note)
	}
	return s.exists(
		"SELECT 1 FROM notes WHERE artefact_id = ? AND note = ? AND created_at = ?",
		r.ArtefactID, r.Note, r.CreatedAt,
	)
}

// EdgeExists reports whether an edge with the same endpoints, relation,
// and reason exists. A nil reason matches NULL, not the empty string;
// timestamps do not participate.
func (s *Store) EdgeExists(r EdgeRecord) (bool, error) {
	if r.Reason == nil {
		return s.exists(
			"SELECT 1 FROM edges WHERE parent_id = ? AND child_id = ? AND relation_type = ? AND reason IS NULL",
			r.ParentID, r.ChildID, r.RelationType,
		)
	}
	return s.exists(
		"SELECT 1 FROM edges WHERE parent_id = ? AND child_id = ? AND relation_type = ? AND reason = ?",
		r.ParentID, r.ChildID, r.RelationType, *r.Reason,
	)
}

// HasProjectLink reports whether an artefact-project link exists.
func (s *Store) HasProjectLink(artefactID int64, projectID string) (bool, error) {
	return s.exists(
		"SELECT 1 FROM artefact_projects WHERE artefact_id = ? AND project_id = ?",
		artefactID, projectID,
	)
}

func (s *Store) exists(query string, args ...any) (bool, error) {
	var one int
	err := s.q.QueryRow(query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("existence check: %w", err)
	}
	return true, nil
}
