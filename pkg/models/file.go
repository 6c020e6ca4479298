package models

// VersionEntry is one immutable numbered revision of a versioned file.
type VersionEntry struct {
	Number int    `json:"number"`
	Blob   string `json:"blob"` // blob filename inside the version folder
	Note   string `json:"note,omitempty"`
}

// FileHistory is the full version history of a versioned file.
type FileHistory struct {
	DisplayName string         `json:"display_name"`
	Latest      int            `json:"latest"`
	Versions    []VersionEntry `json:"versions"`
}

// Chunk is one byte-range fragment of an upload.
//
// Index is zero-based; arrival of the chunk with Index+1 == Total marks the
// upload of the target as complete. Offset is the absolute byte position of
// the payload inside the reassembled file, so retransmitted chunks are
// idempotent.
type Chunk struct {
	Room   string
	Target string // display name of the uploaded file
	Index  int
	Total  int
	Offset int64
	Data   []byte

	// Note is the change-note text, applied when the final chunk lands.
	Note string

	// Archive-mode fields. When Archive is set the chunk is staged under
	// Batch and bundled once FileCount files have completed.
	Archive   bool
	Batch     string
	FileCount int
}
