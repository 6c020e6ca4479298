// Package upload reconstructs files from out-of-order, retried byte-range
// chunks and routes them to either the version store or the archive builder.
package upload

import (
	"fmt"
	"sync"

	"roomdrop/pkg/archive"
	"roomdrop/pkg/log"
	"roomdrop/pkg/models"
	"roomdrop/pkg/room"
	"roomdrop/pkg/version"
)

// sessionKey identifies one in-flight versioned upload. Continuation state
// is scoped per (room, target) so concurrent uploads to different targets or
// rooms never interfere with each other's version numbering.
type sessionKey struct {
	room   string
	folder string
}

// session pins the version number decided when the upload began, so chunks
// arriving later in the same upload never re-trigger the computation. The
// received set tracks which chunk indices have landed; the session is
// cleared only once every index arrived, which keeps late out-of-order
// chunks in the same version even when the final-index chunk came first.
type session struct {
	number   int
	ext      string
	received map[int]bool
}

// batchKey identifies one in-flight archive batch.
type batchKey struct {
	room  string
	batch string
}

// batchState tracks chunk arrival per staged file of a declared batch.
type batchState struct {
	declared int
	files    map[string]map[int]bool // target -> received chunk indices
	totals   map[string]int          // target -> declared chunk count
}

// fullyReceived counts staged files whose every chunk has arrived.
func (b *batchState) fullyReceived() int {
	count := 0
	for target, received := range b.files {
		if total := b.totals[target]; total > 0 && len(received) >= total {
			count++
		}
	}
	return count
}

// Result reports what a chunk achieved.
type Result struct {
	// Completed is set when the chunk carried the target's final index.
	Completed bool
	// Version is the version number being written (version mode only).
	Version int
	// Bundled is set when the chunk finished its whole archive batch and
	// the bundle was materialized.
	Bundled bool
	// BundlePath is the materialized bundle location (when Bundled).
	BundlePath string
}

// Tracker is the upload session table. All session state lives here, keyed
// explicitly, never in process-wide variables.
type Tracker struct {
	versions *version.Store
	archives *archive.Builder

	mu       sync.Mutex
	sessions map[sessionKey]*session
	batches  map[batchKey]*batchState
}

// NewTracker creates a Tracker over the given stores.
func NewTracker(versions *version.Store, archives *archive.Builder) *Tracker {
	return &Tracker{
		versions: versions,
		archives: archives,
		sessions: make(map[sessionKey]*session),
		batches:  make(map[batchKey]*batchState),
	}
}

func validate(c models.Chunk) error {
	if c.Index < 0 || c.Total < 1 || c.Index >= c.Total || c.Offset < 0 {
		return fmt.Errorf("%w: index %d of %d at offset %d", ErrBadChunk, c.Index, c.Total, c.Offset)
	}
	// Target and batch names are joined into filesystem paths; anything
	// that is not a plain name could land a write outside the room.
	if !room.SafeBaseName(c.Target) {
		return fmt.Errorf("%w: target name %q", ErrBadChunk, c.Target)
	}
	if c.Batch != "" && !room.SafeBaseName(c.Batch) {
		return fmt.Errorf("%w: batch name %q", ErrBadChunk, c.Batch)
	}
	return nil
}

// HandleChunk ingests one chunk. Chunks may arrive out of order or be
// retransmitted; completion of a target is recognized on arrival of the
// chunk carrying the final index.
func (t *Tracker) HandleChunk(c models.Chunk) (*Result, error) {
	if err := validate(c); err != nil {
		return nil, err
	}
	if c.Archive {
		return t.handleArchiveChunk(c)
	}
	return t.handleVersionChunk(c)
}

// handleVersionChunk writes a chunk of a versioned upload. The first chunk
// to arrive for a target opens a session and fixes the version number; the
// session ends once every chunk has landed, so the next upload against the
// target starts a fresh version.
func (t *Tracker) handleVersionChunk(c models.Chunk) (*Result, error) {
	folder, err := room.EncodeFolderName(c.Target)
	if err != nil {
		return nil, err
	}
	key := sessionKey{room: c.Room, folder: folder}

	t.mu.Lock()
	sess, ok := t.sessions[key]
	if !ok {
		number, err := t.versions.Begin(c.Room, folder)
		if err != nil {
			t.mu.Unlock()
			return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
		sess = &session{number: number, ext: room.Ext(c.Target), received: make(map[int]bool)}
		t.sessions[key] = sess

		log.Debug().Str("room", c.Room).Str("target", c.Target).
			Int("version", number).Msg("Upload session opened")
	}
	t.mu.Unlock()

	if err := t.versions.WriteChunk(c.Room, folder, sess.number, sess.ext, c.Offset, c.Data); err != nil {
		// Session state is kept so a retried chunk resumes the same version.
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	result := &Result{Version: sess.number}
	if c.Index+1 == c.Total {
		// The note is logged only after the final chunk's write succeeded.
		if err := t.versions.AppendNote(c.Room, folder, sess.number, c.Note); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
		result.Completed = true
		log.Info().Str("room", c.Room).Str("target", c.Target).
			Int("version", sess.number).Msg("Version upload complete")
	}

	t.mu.Lock()
	sess.received[c.Index] = true
	if len(sess.received) >= c.Total {
		delete(t.sessions, key)
	}
	t.mu.Unlock()

	return result, nil
}

// handleArchiveChunk stages a chunk of a batch upload. Once every chunk of
// every declared file has arrived, the whole batch is bundled into the room;
// until then nothing of the batch is visible there.
func (t *Tracker) handleArchiveChunk(c models.Chunk) (*Result, error) {
	if c.Batch == "" {
		return nil, fmt.Errorf("%w: archive chunk without a batch name", ErrBadChunk)
	}
	key := batchKey{room: c.Room, batch: c.Batch}

	t.mu.Lock()
	state, ok := t.batches[key]
	if !ok {
		state = &batchState{
			files:  make(map[string]map[int]bool),
			totals: make(map[string]int),
		}
		t.batches[key] = state
	}
	if c.FileCount > 0 {
		state.declared = c.FileCount
	}
	t.mu.Unlock()

	if err := t.archives.WriteChunk(c.Room, c.Batch, c.Target, c.Offset, c.Data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	result := &Result{Completed: c.Index+1 == c.Total}

	t.mu.Lock()
	received, ok := state.files[c.Target]
	if !ok {
		received = make(map[int]bool)
		state.files[c.Target] = received
	}
	received[c.Index] = true
	state.totals[c.Target] = c.Total

	fullyReceived, declared := state.fullyReceived(), state.declared
	done := declared > 0 && fullyReceived >= declared
	if done {
		delete(t.batches, key)
	}
	t.mu.Unlock()

	if result.Completed {
		log.Info().Str("room", c.Room).Str("batch", c.Batch).Str("file", c.Target).
			Int("files_received", fullyReceived).Int("declared", declared).
			Msg("Batch file complete")
	}
	if !done {
		return result, nil
	}

	path, err := t.archives.Bundle(c.Room, c.Batch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	result.Bundled = true
	result.BundlePath = path
	return result, nil
}
