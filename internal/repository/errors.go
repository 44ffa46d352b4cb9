// Package repository defines sentinel error values shared across the
// repositories. Higher layers use these to distinguish failure
// scenarios: a missing runsheet maps to HTTP 404, a sequence collision
// to HTTP 409, and so on.
package repository

import "errors"

// ErrRunsheetNotFound is returned when a runsheet lookup matches no row.
var ErrRunsheetNotFound = errors.New("runsheet not found")

// ErrCueNotFound is returned when a cue lookup matches no row, or when
// the cue exists but belongs to a different runsheet.
var ErrCueNotFound = errors.New("cue not found")

// ErrSequenceTaken is returned when inserting a cue whose sequence
// number collides with an existing cue of the same runsheet. Handlers
// should translate this into an HTTP 409 response.
var ErrSequenceTaken = errors.New("sequence already taken")
