package version

import "errors"

var (
	// ErrTargetNotFound is returned when a file has no version folder in the room.
	ErrTargetNotFound = errors.New("no versions for that file")

	// ErrVersionNotFound is returned when the requested version number has no blob.
	ErrVersionNotFound = errors.New("version not found")
)
