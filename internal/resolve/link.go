package resolve

import (
	"github.com/mesh-intelligence/stemma/internal/sqlite"
	"github.com/mesh-intelligence/stemma/pkg/types"
)

// Removal previews or records one edge deleted by Unlink.
type Removal struct {
	EdgeID       int64
	ParentDNA    string
	ParentPath   string
	RelationType string
	Reason       string
}

// Link creates one lineage edge and one linked event per parent,
// unconditionally. Repeated calls create duplicate edges; dedup is the
// concern of unlink matching and bundle import.
func (e *Engine) Link(child *types.Artefact, parents []*types.Artefact, relationType, reason string) error {
	return e.store.WithTx(func(tx *sqlite.Store) error {
		for _, parent := range parents {
			if err := tx.CreateEdge(parent.ID, child.ID, relationType, reason); err != nil {
				return err
			}
			err := tx.RecordEvent(child.ID, types.EventLinked, "", map[string]any{
				"parent":   parent.DNA,
				"relation": relationType,
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Unlink removes edges matching (parent, child, relation) for each
// parent and records an unlinked event per removal. With dryRun the
// same removal list is returned without mutating anything. Nothing to
// remove is not an error; a second call after a real unlink returns an
// empty list.
func (e *Engine) Unlink(child *types.Artefact, parents []*types.Artefact, relationType string, dryRun bool) ([]Removal, error) {
	var removals []Removal
	err := e.store.WithTx(func(tx *sqlite.Store) error {
		for _, parent := range parents {
			edges, err := tx.EdgesBetween(parent.ID, child.ID, relationType)
			if err != nil {
				return err
			}
			for _, edge := range edges {
				removals = append(removals, Removal{
					EdgeID:       edge.ID,
					ParentDNA:    parent.DNA,
					ParentPath:   parent.Path,
					RelationType: edge.RelationType,
					Reason:       edge.Reason,
				})
				if dryRun {
					continue
				}
				if err := tx.DeleteEdge(edge.ID); err != nil {
					return err
				}
				err := tx.RecordEvent(child.ID, types.EventUnlinked, "", map[string]any{
					"parent":   parent.DNA,
					"relation": edge.RelationType,
				})
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removals, nil
}
