// Package paths resolves the configuration directory and the database
// file location.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// DBFileName is the conventional database file name searched for upward
// from the working directory.
const DBFileName = "stemma.db"

// Environment variable names for overrides.
const (
	EnvConfigDir = "STEMMA_CONFIG_DIR"
	EnvDBPath    = "STEMMA_DB_PATH"
)

// platform holds platform-detection functions that can be overridden in tests.
var platform = struct {
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > STEMMA_CONFIG_DIR env > platform default
// (os.UserConfigDir()/stemma).
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	dir, err := platform.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "stemma"), nil
}

// ResolveDBPath returns the database file path following the precedence
// chain: flag > config value > STEMMA_DB_PATH env > upward search for
// stemma.db from the working directory.
//
// When requireExists is true an explicit override must point at an
// existing file. Without any override and no upward hit, the fallback is
// $(CWD)/stemma.db, which only satisfies requireExists=false callers
// (init creates the file there).
func ResolveDBPath(flag, configValue string, requireExists bool) (string, error) {
	for _, candidate := range []struct {
		value  string
		origin string
	}{
		{flag, "--db"},
		{configValue, "config db_path"},
		{os.Getenv(EnvDBPath), "$" + EnvDBPath},
	} {
		if candidate.value == "" {
			continue
		}
		abs, err := filepath.Abs(candidate.value)
		if err != nil {
			return "", err
		}
		if requireExists {
			if _, err := os.Stat(abs); err != nil {
				return "", fmt.Errorf("%s points to %s, but no database is present", candidate.origin, abs)
			}
		}
		return abs, nil
	}

	cwd, err := platform.getwd()
	if err != nil {
		return "", err
	}
	if found, ok := searchUpward(cwd); ok {
		return found, nil
	}
	if requireExists {
		return "", fmt.Errorf("no %s found from %s upward; run 'stemma init' first or set %s", DBFileName, cwd, EnvDBPath)
	}
	return filepath.Join(cwd, DBFileName), nil
}

// searchUpward walks from start to the filesystem root looking for the
// conventionally-named database file.
func searchUpward(start string) (string, bool) {
	dir := start
	for {
		candidate := filepath.Join(dir, DBFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
