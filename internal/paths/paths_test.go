package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withGetwd overrides the working-directory lookup for one test.
func withGetwd(t *testing.T, dir string) {
	t.Helper()
	orig := platform.getwd
	platform.getwd = func() (string, error) { return dir, nil }
	t.Cleanup(func() { platform.getwd = orig })
}

func TestResolveConfigDir(t *testing.T) {
	t.Run("flag wins over env", func(t *testing.T) {
		t.Setenv(EnvConfigDir, "/tmp/env-config")
		got, err := ResolveConfigDir("/tmp/flag-config")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/flag-config", got)
	})

	t.Run("env wins over platform default", func(t *testing.T) {
		t.Setenv(EnvConfigDir, "/tmp/env-config")
		got, err := ResolveConfigDir("")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/env-config", got)
	})

	t.Run("platform default appends stemma", func(t *testing.T) {
		t.Setenv(EnvConfigDir, "")
		orig := platform.userConfigDir
		platform.userConfigDir = func() (string, error) { return "/tmp/user-config", nil }
		t.Cleanup(func() { platform.userConfigDir = orig })

		got, err := ResolveConfigDir("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join("/tmp/user-config", "stemma"), got)
	})
}

func TestResolveDBPath(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		got, err := ResolveDBPath("/tmp/explicit.db", "/tmp/config.db", false)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/explicit.db", got)
	})

	t.Run("config value wins over env", func(t *testing.T) {
		t.Setenv(EnvDBPath, "/tmp/env.db")
		got, err := ResolveDBPath("", "/tmp/config.db", false)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/config.db", got)
	})

	t.Run("env wins over search", func(t *testing.T) {
		t.Setenv(EnvDBPath, "/tmp/env.db")
		got, err := ResolveDBPath("", "", false)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/env.db", got)
	})

	t.Run("explicit override must exist when required", func(t *testing.T) {
		_, err := ResolveDBPath(filepath.Join(t.TempDir(), "missing.db"), "", true)
		assert.Error(t, err)
	})

	t.Run("searches upward from working directory", func(t *testing.T) {
		t.Setenv(EnvDBPath, "")
		root := t.TempDir()
		nested := filepath.Join(root, "a", "b")
		require.NoError(t, os.MkdirAll(nested, 0o755))
		dbPath := filepath.Join(root, DBFileName)
		require.NoError(t, os.WriteFile(dbPath, []byte{}, 0o644))
		withGetwd(t, nested)

		got, err := ResolveDBPath("", "", true)
		require.NoError(t, err)
		assert.Equal(t, dbPath, got)
	})

	t.Run("no hit fails when existence required", func(t *testing.T) {
		t.Setenv(EnvDBPath, "")
		withGetwd(t, t.TempDir())

		_, err := ResolveDBPath("", "", true)
		assert.Error(t, err)
	})

	t.Run("no hit falls back to cwd for init", func(t *testing.T) {
		t.Setenv(EnvDBPath, "")
		cwd := t.TempDir()
		withGetwd(t, cwd)

		got, err := ResolveDBPath("", "", false)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(cwd, DBFileName), got)
	})
}
