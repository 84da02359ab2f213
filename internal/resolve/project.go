package resolve

import (
	"os"

	"github.com/mesh-intelligence/stemma/internal/sidecar"
	"github.com/mesh-intelligence/stemma/pkg/types"
)

// ProjectDeletion reports what deleting a project touched, or would
// touch under dry run.
type ProjectDeletion struct {
	Project *types.Project

	// ArtefactCount is the number of artefacts linked to the project.
	// The artefact rows persist; only the links cascade away.
	ArtefactCount int

	// ExclusiveArtefactCount is the subset belonging to no other
	// project. Only their sidecars are eligible for purging.
	ExclusiveArtefactCount int

	// SidecarsToDelete lists the sidecar files of exclusive artefacts
	// that exist on disk.
	SidecarsToDelete []string
}

// DeleteProject removes a project row; artefact-project links cascade
// and artefact rows persist. With purgeSidecars the sidecar files of
// artefacts exclusive to this project are deleted from disk. Dry run
// computes the same report without mutating anything.
func (e *Engine) DeleteProject(projectID string, purgeSidecars, dryRun bool) (*ProjectDeletion, error) {
	project, err := e.store.ProjectByID(projectID)
	if err != nil {
		return nil, err
	}

	memberIDs, err := e.store.ProjectMemberIDs(projectID)
	if err != nil {
		return nil, err
	}
	exclusiveIDs, err := e.store.ExclusiveMemberIDs(projectID)
	if err != nil {
		return nil, err
	}

	report := &ProjectDeletion{
		Project:                project,
		ArtefactCount:          len(memberIDs),
		ExclusiveArtefactCount: len(exclusiveIDs),
	}
	for _, id := range exclusiveIDs {
		art, err := e.store.ArtefactByID(id)
		if err != nil {
			return nil, err
		}
		sidecarPath := sidecar.PathFor(art.Path)
		if _, err := os.Stat(sidecarPath); err == nil {
			report.SidecarsToDelete = append(report.SidecarsToDelete, sidecarPath)
		}
	}

	if dryRun {
		return report, nil
	}

	if err := e.store.DeleteProject(projectID); err != nil {
		return nil, err
	}
	if purgeSidecars {
		for _, path := range report.SidecarsToDelete {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				e.log.Warn("could not remove sidecar", "path", path, "error", err)
			}
		}
	}
	e.log.Info("project deleted", "project", projectID, "artefacts", report.ArtefactCount)
	return report, nil
}
