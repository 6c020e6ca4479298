package upload

import "errors"

var (
	// ErrUploadFailed wraps I/O errors during chunk writes. The affected
	// session surfaces the failure instead of silently absorbing it.
	ErrUploadFailed = errors.New("upload failed")

	// ErrBadChunk is returned for chunk metadata that cannot be honored
	// (negative index or offset, non-positive total).
	ErrBadChunk = errors.New("bad chunk metadata")
)
