package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/stemma/pkg/types"
)

func TestNormalizePath(t *testing.T) {
	t.Run("relative becomes absolute", func(t *testing.T) {
		got, err := NormalizePath("some/relative/file.txt")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got))
		assert.True(t, strings.HasSuffix(got, filepath.Join("some", "relative", "file.txt")))
	})

	t.Run("tilde expands to home", func(t *testing.T) {
		home, err := os.UserHomeDir()
		require.NoError(t, err)

		got, err := NormalizePath("~/notes.txt")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, home))
	})

	t.Run("missing file still normalizes", func(t *testing.T) {
		got, err := NormalizePath(filepath.Join(t.TempDir(), "does-not-exist.bin"))
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(got))
	})

	t.Run("identical output for equivalent spellings", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "file.txt")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

		a, err := NormalizePath(path)
		require.NoError(t, err)
		b, err := NormalizePath(filepath.Join(dir, ".", "file.txt"))
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}

func TestComputeFileHash(t *testing.T) {
	t.Run("matches direct digest", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.txt")
		content := []byte("the quick brown fox")
		require.NoError(t, os.WriteFile(path, content, 0o644))

		want := sha256.Sum256(content)
		got, err := ComputeFileHash(path)
		require.NoError(t, err)
		assert.Equal(t, hex.EncodeToString(want[:]), got)
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.txt")
		require.NoError(t, os.WriteFile(path, []byte("stable content"), 0o644))

		first, err := ComputeFileHash(path)
		require.NoError(t, err)
		second, err := ComputeFileHash(path)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := ComputeFileHash(filepath.Join(t.TempDir(), "absent.txt"))
		assert.Error(t, err)
	})
}

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token := GenerateToken()
		assert.True(t, strings.HasPrefix(token, types.DNAPrefix))
		assert.False(t, seen[token], "token %s repeated", token)
		seen[token] = true
	}
}

func TestLooksLikeToken(t *testing.T) {
	assert.True(t, LooksLikeToken(GenerateToken()))
	assert.True(t, LooksLikeToken(types.DNAPrefix+"anything"))
	assert.False(t, LooksLikeToken("/some/path/file.txt"))
	assert.False(t, LooksLikeToken(""))
	assert.False(t, LooksLikeToken("DNA_upper-prefix-does-not-count"))
}
