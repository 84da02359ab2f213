package types

import "time"

// DNA token prefix. Tokens are the prefix followed by a UUID and are the
// portable, never-reassigned identity of an artefact.
const DNAPrefix = "dna_"

// Event types recorded against artefacts. Events are append-only.
const (
	EventCreated           = "created"
	EventMoved             = "moved"
	EventSidecarRestored   = "sidecar_restored"
	EventVersionSuperseded = "version_superseded"
	EventVersionCreated    = "version_created"
	EventWIPSaved          = "wip_saved"
	EventHashOverwritten   = "hash_overwritten"
	EventLinked            = "linked"
	EventUnlinked          = "unlinked"
)

// Relation labels used by automatic versioning.
const (
	RelationDerivedFrom  = "derived_from"
	ReasonContentChanged = "content_changed"
)

// Artefact is a tracked file identity. The DNA token is unique and
// immutable; path and hash track the last known location and content.
type Artefact struct {
	ID          int64
	DNA         string
	Path        string
	Hash        string
	Type        string // free-text label, empty when unset
	Description string // empty when unset
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Event is an immutable audit record attached to one artefact.
type Event struct {
	ID          int64
	ArtefactID  int64
	Type        string
	Description string
	Metadata    map[string]any
	CreatedAt   time.Time
}

// Edge is a directed lineage relationship between two artefacts.
// The graph tolerates cycles; traversals must be cycle-safe.
type Edge struct {
	ID           int64
	ParentID     int64
	ChildID      int64
	RelationType string
	Reason       string // empty when unset
	CreatedAt    time.Time
}

// Related pairs an artefact with the relation that connects it to the
// artefact it was listed for (a parent or child lookup).
type Related struct {
	Artefact
	RelationType string
	Reason       string
}

// Project is a named grouping with a caller-supplied stable id.
type Project struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// Note is a free-text annotation attached to one artefact.
type Note struct {
	ID         int64
	ArtefactID int64
	Note       string
	CreatedAt  time.Time
}
