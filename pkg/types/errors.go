package types

import "errors"

// Standard errors surfaced by the store and the resolution engine.
// Callers match with errors.Is; layers wrap these with context via fmt.Errorf.
var (
	// ErrNotFound means no artefact or project matched the given
	// DNA token, path, hash, or id.
	ErrNotFound = errors.New("not found")

	// ErrInvalidArgument means a mode, scope, flag combination, or bundle
	// header failed validation before any mutation took place.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUntracked means an on-disk file resolved to no known identity.
	// The remedy is to tag the file first.
	ErrUntracked = errors.New("file is not tracked")

	// ErrConflict means a forced hash overwrite was requested through a
	// read-only code path. Overwrites are only permitted while tagging.
	ErrConflict = errors.New("hash overwrite not permitted here")
)
