// Package sidecar reads and writes the per-file identity marker: a JSON
// sidecar beside the tracked file, with an optional embedded-comment
// variant. Marker corruption is never an error; a marker that cannot be
// parsed is simply absent and will be restored on the next resolution.
package sidecar

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/stemma/pkg/types"
)

// Suffix is appended to the tracked file's name to form the sidecar path.
const Suffix = ".dna"

// embedSentinel marks an embedded identity line inside file content.
const embedSentinel = ":dna:"

// handler describes how to wrap an embedded marker in a comment for one
// file extension.
type handler struct {
	prefix string
	suffix string
}

// commentHandlers gates embedding by extension. Extensions absent here
// only ever use the sidecar file.
var commentHandlers = map[string]handler{
	".go":   {prefix: "// "},
	".py":   {prefix: "# "},
	".txt":  {prefix: "# "},
	".md":   {prefix: "<!-- ", suffix: " -->"},
	".yaml": {prefix: "# "},
	".yml":  {prefix: "# "},
	".csv":  {prefix: "# "},
}

// Store reads and writes identity markers. EmbedEnabled controls the
// in-content embedding mode; it defaults to off because embedding
// mutates the hashed content and so feeds back into hash-based
// versioning.
type Store struct {
	EmbedEnabled bool
}

// NewStore returns a sidecar store with embedding disabled.
func NewStore() *Store {
	return &Store{}
}

// PathFor returns the sidecar path for a tracked file.
func PathFor(filePath string) string {
	return filePath + Suffix
}

// IsSidecar reports whether a path names a sidecar file. Directory scans
// use this to skip markers.
func IsSidecar(path string) bool {
	return strings.HasSuffix(path, Suffix)
}

// Read returns the identity marker for a file, preferring an embedded
// marker (scanned from the end of the file, so the most recent wins)
// when the extension supports embedding, then the sidecar file. The
// second result is false when no usable marker exists.
func (s *Store) Read(filePath string) (*types.Marker, bool) {
	if h, ok := commentHandlers[strings.ToLower(filepath.Ext(filePath))]; ok {
		if m, found := readEmbedded(filePath, h); found {
			return m, true
		}
	}
	return readSidecarFile(filePath)
}

// Write persists the marker. The sidecar file is always fully rewritten.
// When embedding is enabled and the extension supports it, prior embedded
// markers are stripped from the content and a single fresh marker line is
// appended.
func (s *Store) Write(filePath string, marker types.Marker) error {
	if s.EmbedEnabled {
		if h, ok := commentHandlers[strings.ToLower(filepath.Ext(filePath))]; ok {
			if err := writeEmbedded(filePath, h, marker); err != nil {
				return err
			}
		}
	}

	payload, err := json.MarshalIndent(marker, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding marker for %s: %w", filePath, err)
	}
	if err := os.WriteFile(PathFor(filePath), payload, 0o644); err != nil {
		return fmt.Errorf("writing sidecar for %s: %w", filePath, err)
	}
	return nil
}

// Remove deletes the sidecar file if present.
func (s *Store) Remove(filePath string) error {
	err := os.Remove(PathFor(filePath))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing sidecar for %s: %w", filePath, err)
	}
	return nil
}

func readSidecarFile(filePath string) (*types.Marker, bool) {
	data, err := os.ReadFile(PathFor(filePath))
	if err != nil {
		return nil, false
	}
	var m types.Marker
	if err := json.Unmarshal(data, &m); err != nil {
		// Corrupt sidecar: treated as absent, not an error.
		return nil, false
	}
	return &m, true
}

func readEmbedded(filePath string, h handler) (*types.Marker, bool) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, false
	}
	lines := strings.Split(string(data), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		_, rest, ok := strings.Cut(lines[i], embedSentinel)
		if !ok {
			continue
		}
		blob := strings.TrimSpace(rest)
		blob = strings.TrimSpace(strings.TrimSuffix(blob, "-->"))
		if !strings.HasPrefix(blob, "{") {
			continue
		}
		var m types.Marker
		if err := json.Unmarshal([]byte(blob), &m); err != nil {
			continue
		}
		return &m, true
	}
	return nil, false
}

func writeEmbedded(filePath string, h handler, marker types.Marker) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("embedding marker in %s: %w", filePath, err)
	}
	payload, err := json.Marshal(marker)
	if err != nil {
		return fmt.Errorf("encoding marker for %s: %w", filePath, err)
	}

	var kept []string
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		if strings.Contains(line, embedSentinel) {
			continue
		}
		kept = append(kept, line)
	}
	kept = append(kept, h.prefix+embedSentinel+" "+string(payload)+h.suffix)

	out := strings.Join(kept, "\n") + "\n"
	if err := os.WriteFile(filePath, []byte(out), 0o644); err != nil {
		return fmt.Errorf("embedding marker in %s: %w", filePath, err)
	}
	return nil
}
