// Package resolve implements the identity resolution and versioning
// engine: the decision logic that maps a file or reference string to a
// tracked artefact, reconciles moves and content changes, and chooses
// between in-place update and new-version creation.
package resolve

import (
	"fmt"
	"os"

	"github.com/mesh-intelligence/stemma/internal/identity"
	"github.com/mesh-intelligence/stemma/internal/sidecar"
	"github.com/mesh-intelligence/stemma/internal/sqlite"
	"github.com/mesh-intelligence/stemma/pkg/types"
)

// Mode selects how a content change on an already-tracked file is
// persisted.
type Mode string

const (
	// ModeSnapshot creates a new version for each content change. This
	// is the default.
	ModeSnapshot Mode = "snapshot"

	// ModeWIP updates the hash in place, preserving the DNA token
	// across successive edits.
	ModeWIP Mode = "wip"
)

func (m Mode) validate() error {
	switch m {
	case ModeSnapshot, ModeWIP:
		return nil
	}
	return fmt.Errorf("mode %q (want snapshot or wip): %w", string(m), types.ErrInvalidArgument)
}

// Engine resolves files and reference strings to artefacts and applies
// the versioning state machine.
type Engine struct {
	store    *sqlite.Store
	sidecars *sidecar.Store
	log      Logger
}

// NewEngine wires the engine. A nil logger disables logging.
func NewEngine(store *sqlite.Store, sidecars *sidecar.Store, log Logger) *Engine {
	if log == nil {
		log = NopLogger{}
	}
	return &Engine{store: store, sidecars: sidecars, log: log}
}

// ResolveOptions controls post-resolution housekeeping.
type ResolveOptions struct {
	// ForceOverwrite requests an in-place hash overwrite instead of a
	// new version. Only honored when versioning is allowed; through a
	// read-only path it is a conflict.
	ForceOverwrite bool

	// Mode selects snapshot or wip behavior when versioning is allowed.
	// Empty defaults to snapshot.
	Mode Mode

	// AllowVersioning permits hash reconciliation to mutate state.
	// Read-only callers (show, rescan) leave it false.
	AllowVersioning bool
}

// TagOptions carries the metadata supplied with a tag call.
type TagOptions struct {
	Type           string
	Description    string
	Tags           []string
	ProjectIDs     []string
	ForceOverwrite bool
	Mode           Mode

	// Command names the invoking operation for the <command>_existing
	// event on repeat tagging. Empty defaults to "tag".
	Command string
}

// ResolveTarget maps an opaque reference to an artefact. An existing
// file on disk wins; otherwise a DNA-looking string is looked up by
// token and anything else is treated as a stored path, so historical
// artefacts whose file is gone stay reachable. The bool reports whether
// the target was an on-disk file.
func (e *Engine) ResolveTarget(target string, opts ResolveOptions) (*types.Artefact, bool, error) {
	if info, err := os.Stat(target); err == nil && !info.IsDir() {
		a, err := e.ResolveFile(target, opts)
		return a, true, err
	}

	if identity.LooksLikeToken(target) {
		a, err := e.store.ArtefactByDNA(target)
		if err != nil {
			return nil, false, err
		}
		return a, false, nil
	}

	norm, err := identity.NormalizePath(target)
	if err != nil {
		return nil, false, err
	}
	a, err := e.store.ArtefactByPath(norm)
	if err != nil {
		return nil, false, err
	}
	return a, false, nil
}

// ResolveFile resolves an on-disk file to its artefact and applies
// post-resolution housekeeping. It never creates artefacts; an unknown
// file is an ErrUntracked.
func (e *Engine) ResolveFile(path string, opts ResolveOptions) (*types.Artefact, error) {
	if opts.Mode == "" {
		opts.Mode = ModeSnapshot
	}
	if err := opts.Mode.validate(); err != nil {
		return nil, err
	}

	norm, err := identity.NormalizePath(path)
	if err != nil {
		return nil, err
	}
	marker, hasMarker := e.sidecars.Read(norm)
	hash, err := identity.ComputeFileHash(norm)
	if err != nil {
		return nil, err
	}

	art := e.lookupByMarkerOrHash(marker, hash)
	if art == nil {
		return nil, fmt.Errorf("%s: %w (tag it first)", path, types.ErrUntracked)
	}
	return e.housekeep(art, norm, hash, hasMarker, opts)
}

// lookupByMarkerOrHash tries, in order, the marker's DNA token, the
// marker's recorded hash, and the freshly computed hash.
func (e *Engine) lookupByMarkerOrHash(marker *types.Marker, hash string) *types.Artefact {
	if marker != nil {
		if a, err := e.store.ArtefactByDNA(marker.DNA); err == nil {
			return a
		}
		if marker.Hash != "" {
			if a, err := e.store.ArtefactByHash(marker.Hash); err == nil {
				return a
			}
		}
	}
	if a, err := e.store.ArtefactByHash(hash); err == nil {
		return a
	}
	return nil
}

// housekeep reconciles the stored record with the observed file state:
// path first, then hash.
func (e *Engine) housekeep(art *types.Artefact, norm, hash string, hadMarker bool, opts ResolveOptions) (*types.Artefact, error) {
	if art.Path != norm {
		oldPath := art.Path
		err := e.store.WithTx(func(tx *sqlite.Store) error {
			if err := tx.UpdatePath(art.ID, norm); err != nil {
				return err
			}
			return tx.RecordEvent(art.ID, types.EventMoved, "", map[string]any{
				"old_path": oldPath,
				"new_path": norm,
			})
		})
		if err != nil {
			return nil, err
		}
		e.log.Debug("artefact moved", "dna", art.DNA, "old_path", oldPath, "new_path", norm)
		art, err = e.store.ArtefactByID(art.ID)
		if err != nil {
			return nil, err
		}
	}

	if art.Hash == hash {
		// Content unchanged. Heal any sidecar drift; a restore event is
		// recorded only when the marker was entirely absent.
		if err := e.writeMarker(art, norm); err != nil {
			return nil, err
		}
		if !hadMarker {
			if err := e.store.RecordEvent(art.ID, types.EventSidecarRestored, "", nil); err != nil {
				return nil, err
			}
			e.log.Debug("sidecar restored", "dna", art.DNA, "path", norm)
		}
		return art, nil
	}

	if !opts.AllowVersioning {
		if opts.ForceOverwrite {
			return nil, fmt.Errorf("%s: %w", norm, types.ErrConflict)
		}
		// Read-only view: show the last known good record and leave
		// reconciliation to a tagging operation.
		return art, nil
	}

	switch {
	case opts.Mode == ModeWIP:
		return e.overwriteHash(art, norm, hash, types.EventWIPSaved)
	case opts.ForceOverwrite:
		return e.overwriteHash(art, norm, hash, types.EventHashOverwritten)
	default:
		child, err := e.store.CreateVersion(art, hash, norm, "")
		if err != nil {
			return nil, err
		}
		if err := e.writeMarker(child, norm); err != nil {
			return nil, err
		}
		e.log.Debug("version created", "parent_dna", art.DNA, "dna", child.DNA)
		return child, nil
	}
}

// overwriteHash updates the hash in place under the same DNA token and
// records the given event.
func (e *Engine) overwriteHash(art *types.Artefact, norm, hash, eventType string) (*types.Artefact, error) {
	oldHash := art.Hash
	err := e.store.WithTx(func(tx *sqlite.Store) error {
		if err := tx.UpdateHash(art.ID, hash); err != nil {
			return err
		}
		return tx.RecordEvent(art.ID, eventType, "", map[string]any{
			"old_hash": oldHash,
			"new_hash": hash,
		})
	})
	if err != nil {
		return nil, err
	}
	art, err = e.store.ArtefactByID(art.ID)
	if err != nil {
		return nil, err
	}
	if err := e.writeMarker(art, norm); err != nil {
		return nil, err
	}
	e.log.Debug("hash updated in place", "dna", art.DNA, "event", eventType)
	return art, nil
}

// TagFile tags a file, either creating a brand-new artefact or routing
// an already-tracked file through the versioning state machine with the
// supplied metadata applied on top.
func (e *Engine) TagFile(path string, opts TagOptions) (*types.Artefact, error) {
	if opts.Mode == "" {
		opts.Mode = ModeSnapshot
	}
	if err := opts.Mode.validate(); err != nil {
		return nil, err
	}
	if opts.Mode == ModeWIP && opts.ForceOverwrite {
		return nil, fmt.Errorf("wip mode and force-overwrite are contradictory: %w", types.ErrInvalidArgument)
	}
	if opts.Command == "" {
		opts.Command = "tag"
	}

	norm, err := identity.NormalizePath(path)
	if err != nil {
		return nil, err
	}
	hash, err := identity.ComputeFileHash(norm)
	if err != nil {
		return nil, err
	}
	marker, hasMarker := e.sidecars.Read(norm)

	existing := e.lookupExisting(marker, hash)
	if existing != nil {
		return e.tagExisting(existing, norm, hash, hasMarker, opts)
	}
	return e.tagNew(norm, hash, opts)
}

// lookupExisting decides "already tracked" for tagging: sidecar DNA
// first, then the computed hash.
func (e *Engine) lookupExisting(marker *types.Marker, hash string) *types.Artefact {
	if marker != nil {
		if a, err := e.store.ArtefactByDNA(marker.DNA); err == nil {
			return a
		}
	}
	if a, err := e.store.ArtefactByHash(hash); err == nil {
		return a
	}
	return nil
}

func (e *Engine) tagExisting(art *types.Artefact, norm, hash string, hadMarker bool, opts TagOptions) (*types.Artefact, error) {
	art, err := e.housekeep(art, norm, hash, hadMarker, ResolveOptions{
		ForceOverwrite:  opts.ForceOverwrite,
		Mode:            opts.Mode,
		AllowVersioning: true,
	})
	if err != nil {
		return nil, err
	}

	changed := false
	if opts.Type != "" && opts.Type != art.Type {
		if err := e.store.UpdateType(art.ID, opts.Type); err != nil {
			return nil, err
		}
		changed = true
	}
	if opts.Description != "" && opts.Description != art.Description {
		if err := e.store.UpdateDescription(art.ID, opts.Description); err != nil {
			return nil, err
		}
		changed = true
	}
	if len(opts.Tags) > 0 {
		if err := e.store.AddTags(art.ID, opts.Tags); err != nil {
			return nil, err
		}
	}
	if len(opts.ProjectIDs) > 0 {
		if err := e.store.AssignProjects(art.ID, opts.ProjectIDs); err != nil {
			return nil, err
		}
	}
	if changed {
		art, err = e.store.ArtefactByID(art.ID)
		if err != nil {
			return nil, err
		}
		// The marker written by housekeeping predates the type change.
		if err := e.writeMarker(art, norm); err != nil {
			return nil, err
		}
	}

	err = e.store.RecordEvent(art.ID, opts.Command+"_existing", "", map[string]any{"hash": art.Hash})
	if err != nil {
		return nil, err
	}
	return art, nil
}

func (e *Engine) tagNew(norm, hash string, opts TagOptions) (*types.Artefact, error) {
	dna := identity.GenerateToken()
	art, err := e.store.CreateArtefact(sqlite.CreateArtefactParams{
		DNA:         dna,
		Path:        norm,
		Hash:        hash,
		Type:        opts.Type,
		Description: opts.Description,
		Tags:        opts.Tags,
		ProjectIDs:  opts.ProjectIDs,
	})
	if err != nil {
		return nil, err
	}
	if err := e.writeMarker(art, norm); err != nil {
		return nil, err
	}
	e.log.Debug("artefact tagged", "dna", art.DNA, "path", norm)
	return art, nil
}

func (e *Engine) writeMarker(art *types.Artefact, path string) error {
	return e.sidecars.Write(path, types.NewMarker(art.DNA, art.Hash, art.Type, path))
}

// Search returns artefacts matching the filter.
func (e *Engine) Search(filter sqlite.SearchFilter) ([]types.Artefact, error) {
	return e.store.Search(filter)
}
