package resolve

import (
	"io/fs"
	"path/filepath"

	"github.com/mesh-intelligence/stemma/internal/sidecar"
)

// Rescan walks root and resolves every regular file read-only, healing
// moved paths and missing sidecars as it goes. Per-file failures,
// untracked files included, are logged and skipped so one bad file
// never aborts the sweep. Returns the DNA tokens of the files that
// resolved.
func (e *Engine) Rescan(root string) ([]string, error) {
	var updated []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			e.log.Debug("rescan: skipping unreadable entry", "path", path, "error", err)
			return nil
		}
		if d.IsDir() || sidecar.IsSidecar(path) {
			return nil
		}
		art, err := e.ResolveFile(path, ResolveOptions{})
		if err != nil {
			e.log.Debug("rescan: skipping file", "path", path, "error", err)
			return nil
		}
		updated = append(updated, art.DNA)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
