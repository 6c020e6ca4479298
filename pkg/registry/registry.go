// Package registry is the durable source of truth for room existence. Rooms
// are persisted one per line as "<name> : <passcode>" in a plain-text file
// under the content root; the passcode may be empty after the separator.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"roomdrop/pkg/log"
	"roomdrop/pkg/room"
)

const (
	// FileName is the registry file name inside the content root.
	FileName = "chatrooms.txt"

	lineSeparator = " : "
)

// roomNamePattern restricts room names to a single word.
var roomNamePattern = regexp.MustCompile(`^\w+$`)

// Registry maps room names to passcodes and owns the per-room storage
// directories. All mutations rewrite the registry file and are serialized by
// a mutex; the whole-file rewrite is acceptable at this scale.
type Registry struct {
	contentDir string
	mu         sync.Mutex
}

// New creates a Registry rooted at contentDir, creating the content root and
// an empty registry file if needed.
func New(contentDir string) (*Registry, error) {
	if err := os.MkdirAll(contentDir, room.DirPerm); err != nil {
		return nil, err
	}

	path := filepath.Join(contentDir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, room.FilePerm)
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	return &Registry{contentDir: contentDir}, nil
}

func (r *Registry) filePath() string {
	return filepath.Join(r.contentDir, FileName)
}

func (r *Registry) roomDir(name string) string {
	return filepath.Join(r.contentDir, name)
}

// load reads the registry file into an ordered list of (name, passcode)
// pairs. Callers must hold r.mu.
func (r *Registry) load() ([][2]string, error) {
	data, err := os.ReadFile(r.filePath())
	if err != nil {
		return nil, err
	}

	var entries [][2]string
	for _, line := range strings.Split(string(data), "\n") {
		if line == "" {
			continue
		}
		name, passcode, found := strings.Cut(line, lineSeparator)
		if !found {
			log.Warn().Str("line", line).Msg("Skipping malformed registry line")
			continue
		}
		entries = append(entries, [2]string{name, passcode})
	}
	return entries, nil
}

// Create registers a new room and creates its storage directory.
// The name must be a single word and must not collide with an existing room;
// duplicate detection is an exact membership test, so names that are
// substrings of other room names are fine.
func (r *Registry) Create(name, passcode string) error {
	if !roomNamePattern.MatchString(name) {
		return ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry[0] == name {
			return ErrRoomExists
		}
	}

	if err := os.MkdirAll(r.roomDir(name), room.DirPerm); err != nil {
		log.Error().Err(err).Str("room", name).Msg("Failed to create room directory")
		return err
	}

	f, err := os.OpenFile(r.filePath(), os.O_APPEND|os.O_WRONLY, room.FilePerm)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close registry file")
		}
	}()

	if _, err := fmt.Fprintf(f, "%s%s%s\n", name, lineSeparator, passcode); err != nil {
		return err
	}

	log.Info().Str("room", name).Bool("protected", passcode != "").Msg("Room created")
	return nil
}

// Authenticate checks a join attempt. A room with an empty stored passcode
// accepts any passcode, including an empty one; otherwise an exact match is
// required.
func (r *Registry) Authenticate(name, passcode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry[0] != name {
			continue
		}
		if entry[1] == "" || entry[1] == passcode {
			return nil
		}
		return ErrWrongPasscode
	}
	return ErrRoomNotFound
}

// Exists reports whether a room is registered.
func (r *Registry) Exists(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry[0] == name {
			return true, nil
		}
	}
	return false, nil
}

// List returns the names of all registered rooms.
func (r *Registry) List() ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry[0])
	}
	return names, nil
}

// Delete removes a room's registry entry and its storage tree. Deleting a
// room that is already gone is a no-op.
func (r *Registry) Delete(name string) error {
	// A name that could never have been registered must not reach the
	// filesystem: joined into roomDir it could name a path outside the
	// content root.
	if !roomNamePattern.MatchString(name) {
		return ErrInvalidName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		return err
	}

	var sb strings.Builder
	for _, entry := range entries {
		if entry[0] == name {
			continue
		}
		fmt.Fprintf(&sb, "%s%s%s\n", entry[0], lineSeparator, entry[1])
	}
	if err := os.WriteFile(r.filePath(), []byte(sb.String()), room.FilePerm); err != nil {
		log.Error().Err(err).Str("room", name).Msg("Failed to rewrite registry file")
		return err
	}

	if err := os.RemoveAll(r.roomDir(name)); err != nil {
		log.Error().Err(err).Str("room", name).Msg("Failed to remove room storage")
		return err
	}

	log.Info().Str("room", name).Msg("Room deleted")
	return nil
}
