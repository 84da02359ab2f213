package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/stemma/pkg/types"
)

// CreateProject inserts a project row. An existing id is an
// ErrConflict.
func (s *Store) CreateProject(id, name, description string) (*types.Project, error) {
	_, err := s.q.Exec(
		"INSERT INTO projects (id, name, description, created_at) VALUES (?, ?, ?, ?)",
		id, name, nullable(description), now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("project %q already exists: %w", id, types.ErrConflict)
		}
		return nil, fmt.Errorf("creating project: %w", err)
	}
	return s.ProjectByID(id)
}

// ProjectByID returns the project with the given id.
func (s *Store) ProjectByID(id string) (*types.Project, error) {
	row := s.q.QueryRow("SELECT id, name, description, created_at FROM projects WHERE id = ?", id)
	var (
		p         types.Project
		desc      sql.NullString
		createdAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &desc, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %q: %w", id, types.ErrNotFound)
		}
		return nil, fmt.Errorf("looking up project: %w", err)
	}
	p.Description = stringOrEmpty(desc)
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// ListAllProjects returns every project ordered by id.
func (s *Store) ListAllProjects() ([]types.Project, error) {
	rows, err := s.q.Query("SELECT id, name, description, created_at FROM projects ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []types.Project
	for rows.Next() {
		var (
			p         types.Project
			desc      sql.NullString
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.Name, &desc, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		p.Description = stringOrEmpty(desc)
		p.CreatedAt = parseTime(createdAt)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ListProjects returns the projects an artefact belongs to, ordered by
// project id.
func (s *Store) ListProjects(artefactID int64) ([]types.Project, error) {
	rows, err := s.q.Query(
		"SELECT p.id, p.name, p.description, p.created_at FROM artefact_projects ap JOIN projects p ON p.id = ap.project_id WHERE ap.artefact_id = ? ORDER BY p.id",
		artefactID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing artefact projects: %w", err)
	}
	defer rows.Close()

	var projects []types.Project
	for rows.Next() {
		var (
			p         types.Project
			desc      sql.NullString
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.Name, &desc, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		p.Description = stringOrEmpty(desc)
		p.CreatedAt = parseTime(createdAt)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ProjectArtefacts returns the project's member artefacts, newest first.
func (s *Store) ProjectArtefacts(projectID string) ([]types.Artefact, error) {
	rows, err := s.q.Query(
		"SELECT "+artefactColumnsA+" FROM artefact_projects ap JOIN artefacts a ON a.id = ap.artefact_id WHERE ap.project_id = ? ORDER BY a.created_at DESC",
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing project artefacts: %w", err)
	}
	defer rows.Close()
	return scanArtefacts(rows)
}

// ProjectMemberIDs returns the internal artefact ids linked to a
// project.
func (s *Store) ProjectMemberIDs(projectID string) ([]int64, error) {
	return s.idColumn("SELECT artefact_id FROM artefact_projects WHERE project_id = ?", projectID)
}

// ExclusiveMemberIDs returns the subset of a project's members that
// belong to no other project.
func (s *Store) ExclusiveMemberIDs(projectID string) ([]int64, error) {
	return s.idColumn(
		"SELECT ap.artefact_id FROM artefact_projects ap WHERE ap.project_id = ? AND NOT EXISTS (SELECT 1 FROM artefact_projects o WHERE o.artefact_id = ap.artefact_id AND o.project_id != ?)",
		projectID, projectID,
	)
}

// DeleteProject removes a project row; artefact_projects links cascade.
func (s *Store) DeleteProject(projectID string) error {
	res, err := s.q.Exec("DELETE FROM projects WHERE id = ?", projectID)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("project %q: %w", projectID, types.ErrNotFound)
	}
	return nil
}
