// Package identity provides path normalization, content hashing, and DNA
// token generation. It has no storage dependencies; the rest of the
// system keys artefacts on the values produced here.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/stemma/pkg/types"
)

// hashChunkSize is the read buffer used when streaming file content
// through the digest. The digest is chunk-size independent.
const hashChunkSize = 1 << 20

// NormalizePath resolves a path to an absolute, user-expanded, symlink
// resolved canonical form. All path-based storage and lookup goes through
// this so relative references and ~ never cause false negatives.
func NormalizePath(path string) (string, error) {
	expanded, err := expandUser(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("normalizing %s: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// The file may not exist yet (historical paths, first tag of a
		// path we are about to create). The absolute form is canonical
		// enough in that case.
		if os.IsNotExist(err) {
			return abs, nil
		}
		return "", fmt.Errorf("normalizing %s: %w", path, err)
	}
	return resolved, nil
}

func expandUser(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expanding %s: %w", path, err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// ComputeFileHash streams the file through SHA-256 and returns the hex
// digest. File-not-found and permission errors are returned as-is so
// callers can distinguish them from digest failures.
func ComputeFileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// GenerateToken mints a fresh DNA token: the constant prefix plus a
// random UUID. Uniqueness is also enforced by the store's unique index.
func GenerateToken() string {
	return types.DNAPrefix + uuid.NewString()
}

// LooksLikeToken reports whether a string carries the DNA prefix. It is a
// heuristic used to disambiguate CLI arguments between tokens and stored
// paths, nothing more.
func LooksLikeToken(s string) bool {
	return strings.HasPrefix(s, types.DNAPrefix)
}
