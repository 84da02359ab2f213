package sidecar

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/stemma/pkg/types"
)

func TestPathFor(t *testing.T) {
	assert.Equal(t, "/work/report.txt.dna", PathFor("/work/report.txt"))
}

func TestIsSidecar(t *testing.T) {
	assert.True(t, IsSidecar("/work/report.txt.dna"))
	assert.False(t, IsSidecar("/work/report.txt"))
	assert.False(t, IsSidecar("/work/dna"))
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.bin")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	store := NewStore()
	marker := types.NewMarker("dna_abc", "deadbeef", "report", path)
	require.NoError(t, store.Write(path, marker))

	got, found := store.Read(path)
	require.True(t, found)
	assert.Equal(t, "dna_abc", got.DNA)
	assert.Equal(t, "deadbeef", got.Hash)
	assert.Equal(t, "report", got.TypeLabel())
	assert.Equal(t, path, got.Path)
}

func TestReadMissingMarker(t *testing.T) {
	store := NewStore()
	_, found := store.Read(filepath.Join(t.TempDir(), "untouched.bin"))
	assert.False(t, found)
}

func TestReadCorruptSidecar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.bin")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))
	require.NoError(t, os.WriteFile(PathFor(path), []byte("{not json"), 0o644))

	store := NewStore()
	_, found := store.Read(path)
	assert.False(t, found, "corrupt sidecar must read as absent")
}

func TestEmptyTypeIsNull(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.bin")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	store := NewStore()
	require.NoError(t, store.Write(path, types.NewMarker("dna_abc", "ff", "", path)))

	data, err := os.ReadFile(PathFor(path))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type": null`)
}

func TestReadEmbeddedMarker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	content := "# Notes\n\nbody\n\n<!-- :dna: {\"dna\":\"dna_md\",\"hash\":\"aa\",\"type\":null,\"path\":\"" + path + "\"} -->\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store := NewStore()
	got, found := store.Read(path)
	require.True(t, found)
	assert.Equal(t, "dna_md", got.DNA)
}

func TestEmbeddedLastMarkerWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	content := "# :dna: {\"dna\":\"dna_old\",\"hash\":\"aa\",\"type\":null,\"path\":\"x\"}\nbody\n# :dna: {\"dna\":\"dna_new\",\"hash\":\"bb\",\"type\":null,\"path\":\"x\"}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store := NewStore()
	got, found := store.Read(path)
	require.True(t, found)
	assert.Equal(t, "dna_new", got.DNA)
}

func TestWriteEmbedded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	content := "body\n# :dna: {\"dna\":\"dna_old\",\"hash\":\"aa\",\"type\":null,\"path\":\"x\"}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store := &Store{EmbedEnabled: true}
	require.NoError(t, store.Write(path, types.NewMarker("dna_new", "bb", "", path)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), ":dna:"), "prior markers must be stripped")
	assert.Contains(t, string(data), "dna_new")
	assert.NotContains(t, string(data), "dna_old")
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.bin")
	require.NoError(t, os.WriteFile(path, []byte("payload"), 0o644))

	store := NewStore()
	require.NoError(t, store.Write(path, types.NewMarker("dna_abc", "ff", "", path)))
	require.NoError(t, store.Remove(path))
	_, err := os.Stat(PathFor(path))
	assert.True(t, os.IsNotExist(err))

	// Removing again is a no-op.
	assert.NoError(t, store.Remove(path))
}
