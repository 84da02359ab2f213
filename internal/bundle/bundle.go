// Package bundle exports a project's lineage closure to a portable JSON
// bundle and merges such bundles back into a store idempotently.
// Artefacts are keyed by DNA token because internal ids are not portable
// across stores.
package bundle

// Format identifies a lineage bundle file.
const Format = "stemma-lineage"

// Version is the current bundle schema version. Import requires an
// exact match.
const Version = 1

// Bundle is the portable lineage closure of one or more projects.
type Bundle struct {
	Format     string     `json:"format"`
	Version    int        `json:"version"`
	ExportedAt string     `json:"exported_at"`
	Source     Source     `json:"source"`
	Projects   []Project  `json:"projects"`
	Artefacts  []Artefact `json:"artefacts"`
	Tags       []Tag      `json:"tags"`
	Notes      []Note     `json:"notes"`
	Events     []Event    `json:"events"`
	Edges      []Edge     `json:"edges"`
	Links      []Link     `json:"artefact_projects"`
}

// Source records which projects seeded the export.
type Source struct {
	ProjectIDs []string `json:"project_ids"`
}

// Project is a project row in bundle form.
type Project struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// Artefact is an artefact row keyed by DNA.
type Artefact struct {
	DNA         string  `json:"dna"`
	Path        string  `json:"path"`
	Hash        string  `json:"hash"`
	Type        *string `json:"type"`
	Description *string `json:"description"`
	CreatedAt   string  `json:"created_at,omitempty"`
	UpdatedAt   string  `json:"updated_at,omitempty"`
}

// Tag attaches a label to an artefact by DNA.
type Tag struct {
	DNA string `json:"dna"`
	Tag string `json:"tag"`
}

// Note attaches free text to an artefact by DNA.
type Note struct {
	DNA       string `json:"dna"`
	Note      string `json:"note"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Event is an audit record by DNA, with metadata carried as structured
// data rather than opaque text.
type Event struct {
	DNA         string  `json:"dna"`
	Type        string  `json:"event_type"`
	Description *string `json:"description"`
	Metadata    any     `json:"metadata"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

// Edge connects two artefacts by DNA pair.
type Edge struct {
	ParentDNA    string  `json:"parent_dna"`
	ChildDNA     string  `json:"child_dna"`
	RelationType string  `json:"relation_type"`
	Reason       *string `json:"reason"`
	CreatedAt    string  `json:"created_at,omitempty"`
}

// Link joins an artefact (by DNA) to a project.
type Link struct {
	DNA       string `json:"dna"`
	ProjectID string `json:"project_id"`
	AddedAt   string `json:"added_at,omitempty"`
}
