package domain

import "errors"

// Sentinel errors for hierarchy operations
var (
	// ErrNameConflict indicates a playlist with the same name already exists
	ErrNameConflict = errors.New("playlist name already in use")

	// ErrNotFound indicates the named playlist does not exist
	ErrNotFound = errors.New("playlist not found")

	// ErrCycle indicates a playlist would become its own descendant
	ErrCycle = errors.New("playlist would contain itself")

	// ErrAudioItemNotFound indicates an audio item id could not be resolved
	ErrAudioItemNotFound = errors.New("audio item not found")

	// ErrChildNotFound indicates a persisted child playlist id is missing
	ErrChildNotFound = errors.New("child playlist not found")

	// ErrIllegalState indicates the hierarchy cannot be built from its inputs
	ErrIllegalState = errors.New("illegal hierarchy state")
)
