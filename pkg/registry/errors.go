package registry

import "errors"

var (
	// ErrInvalidName is returned when a room name is not a single word.
	ErrInvalidName = errors.New("room names are only one word long")

	// ErrRoomExists is returned when attempting to create a room that already exists.
	ErrRoomExists = errors.New("room with that name already exists")

	// ErrRoomNotFound is returned when the requested room does not exist.
	ErrRoomNotFound = errors.New("no room by that name present")

	// ErrWrongPasscode is returned when the provided passcode does not match.
	ErrWrongPasscode = errors.New("wrong passcode provided")
)
