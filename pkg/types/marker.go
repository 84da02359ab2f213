package types

// Marker is the identity record kept beside a tracked file (the sidecar),
// or optionally embedded in its content. It is a disposable hint: the
// store record wins on conflict and the marker is rewritten whenever
// resolution succeeds.
type Marker struct {
	DNA  string  `json:"dna"`
	Hash string  `json:"hash"`
	Type *string `json:"type"`
	Path string  `json:"path"`
}

// TypeLabel returns the type as a plain string, empty when unset.
func (m *Marker) TypeLabel() string {
	if m.Type == nil {
		return ""
	}
	return *m.Type
}

// NewMarker builds a marker, mapping an empty type label to null.
func NewMarker(dna, hash, typeLabel, path string) Marker {
	m := Marker{DNA: dna, Hash: hash, Path: path}
	if typeLabel != "" {
		m.Type = &typeLabel
	}
	return m
}
