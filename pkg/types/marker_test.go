package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMarker(t *testing.T) {
	t.Run("with type", func(t *testing.T) {
		m := NewMarker("dna_x", "abc", "report", "/work/r.txt")
		require.NotNil(t, m.Type)
		assert.Equal(t, "report", m.TypeLabel())
	})

	t.Run("empty type maps to null", func(t *testing.T) {
		m := NewMarker("dna_x", "abc", "", "/work/r.txt")
		assert.Nil(t, m.Type)
		assert.Equal(t, "", m.TypeLabel())

		blob, err := json.Marshal(m)
		require.NoError(t, err)
		assert.Contains(t, string(blob), `"type":null`)
	})
}

func TestMarkerRoundtrip(t *testing.T) {
	in := NewMarker("dna_abc", "deadbeef", "schematic", "/a/b.txt")
	blob, err := json.Marshal(in)
	require.NoError(t, err)

	var out Marker
	require.NoError(t, json.Unmarshal(blob, &out))
	assert.Equal(t, in.DNA, out.DNA)
	assert.Equal(t, in.Hash, out.Hash)
	assert.Equal(t, "schematic", out.TypeLabel())
	assert.Equal(t, in.Path, out.Path)
}
