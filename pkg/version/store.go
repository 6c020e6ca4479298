// Package version keeps an append-only series of immutable version blobs per
// uploaded file, plus a change-note log.
//
// Each versioned file owns a folder inside its room directory holding blobs
// named "<n>.<ext>" and a LogFileName log with one "Version <n>: <note>"
// line per completed version. The log is the source of truth for which
// versions exist and what changed.
package version

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"roomdrop/pkg/log"
	"roomdrop/pkg/models"
	"roomdrop/pkg/room"
)

// LogFileName is the change-note log file inside every version folder.
const LogFileName = "VersionInfo"

const notePrefix = "Version "

// Store reads and writes version folders under a room storage root.
//
// Store itself is stateless; which version an in-flight upload belongs to is
// tracked per session by the upload tracker, never here and never globally.
type Store struct {
	storage *room.Storage
}

// NewStore creates a Store over the given room storage.
func NewStore(storage *room.Storage) *Store {
	return &Store{storage: storage}
}

func (s *Store) folderDir(roomName, folder string) string {
	return filepath.Join(s.storage.Dir(roomName), folder)
}

// blobName builds the blob filename for a version number, e.g. "3.pdf".
func blobName(number int, ext string) string {
	if ext == "" {
		return strconv.Itoa(number)
	}
	return strconv.Itoa(number) + "." + ext
}

// numericID parses the version number out of a blob filename. The second
// return is false for non-numeric entries such as the note log, which
// callers skip rather than fail on.
func numericID(name string) (int, bool) {
	base, _, _ := strings.Cut(name, ".")
	number, err := strconv.Atoi(base)
	if err != nil || number < 1 {
		return 0, false
	}
	return number, true
}

// maxVersion returns the highest numeric version present in a folder, or 0
// when the folder holds no numeric entries yet.
func (s *Store) maxVersion(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	highest := 0
	for _, entry := range entries {
		name := entry.Name()
		if name == LogFileName {
			continue
		}
		number, ok := numericID(name)
		if !ok {
			log.Warn().Str("entry", name).Str("dir", dir).Msg("Skipping non-numeric version entry")
			continue
		}
		if number > highest {
			highest = number
		}
	}
	return highest, nil
}

// Begin opens a new version for a target and returns its number. For a brand
// new target it creates the version folder and its note log and returns 1;
// for an existing target it returns max(existing versions)+1. Callers hold
// the returned number for the whole multi-chunk upload so the computation is
// never repeated mid-upload.
func (s *Store) Begin(roomName, folder string) (int, error) {
	dir := s.folderDir(roomName, folder)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		// Plain Mkdir: the room directory must already exist, a deleted
		// room must not be resurrected by an in-flight upload.
		if err := os.Mkdir(dir, room.DirPerm); err != nil {
			log.Error().Err(err).Str("dir", dir).Msg("Failed to create version folder")
			return 0, err
		}
		logFile, err := os.OpenFile(filepath.Join(dir, LogFileName), os.O_CREATE|os.O_WRONLY, room.FilePerm)
		if err != nil {
			return 0, err
		}
		if err := logFile.Close(); err != nil {
			return 0, err
		}

		log.Info().Str("room", roomName).Str("folder", folder).Msg("New versioned file")
		return 1, nil
	} else if err != nil {
		return 0, err
	}

	highest, err := s.maxVersion(dir)
	if err != nil {
		return 0, err
	}
	return highest + 1, nil
}

// WriteChunk writes payload bytes at the given offset into a version blob.
// The blob is opened without truncation, so out-of-order and retransmitted
// chunks are idempotent.
func (s *Store) WriteChunk(roomName, folder string, number int, ext string, offset int64, data []byte) error {
	path := filepath.Join(s.folderDir(roomName, folder), blobName(number, ext))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, room.FilePerm)
	if err != nil {
		log.Error().Err(err).Str("blob", path).Msg("Failed to open version blob")
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Error().Err(err).Str("blob", path).Msg("Failed to close version blob")
		}
	}()

	if _, err := f.WriteAt(data, offset); err != nil {
		log.Error().Err(err).Str("blob", path).Int64("offset", offset).Msg("Failed to write chunk")
		return err
	}
	return nil
}

// AppendNote records the change note for a completed version. Newlines in
// the note are flattened to spaces to keep the log line-oriented. Called
// only after the version's final chunk was written successfully.
func (s *Store) AppendNote(roomName, folder string, number int, note string) error {
	path := filepath.Join(s.folderDir(roomName, folder), LogFileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, room.FilePerm)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Error().Err(err).Str("log_file", path).Msg("Failed to close note log")
		}
	}()

	flattened := strings.ReplaceAll(note, "\n", " ")
	if _, err := fmt.Fprintf(f, "%s%d: %s\n", notePrefix, number, flattened); err != nil {
		return err
	}

	log.Info().Str("room", roomName).Str("folder", folder).Int("version", number).Msg("Version recorded")
	return nil
}

// Note returns the change note for a version by scanning the log. Later
// lines win on duplicate version numbers, matching the last-write-wins
// semantics of the append-only log. Returns an empty string when the log has
// no line for the version.
func (s *Store) Note(roomName, folder string, number int) (string, error) {
	path := filepath.Join(s.folderDir(roomName, folder), LogFileName)

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Error().Err(err).Str("log_file", path).Msg("Failed to close note log")
		}
	}()

	result := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		rest, found := strings.CutPrefix(scanner.Text(), notePrefix)
		if !found {
			continue
		}
		numberText, note, found := strings.Cut(rest, ": ")
		if !found {
			continue
		}
		if parsed, err := strconv.Atoi(numberText); err == nil && parsed == number {
			result = note
		}
	}
	return result, scanner.Err()
}

// Latest returns the highest version number present for a target.
func (s *Store) Latest(roomName, folder string) (int, error) {
	dir := s.folderDir(roomName, folder)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, ErrTargetNotFound
	}
	return s.maxVersion(dir)
}

// List returns the full version history of a target, notes included,
// ordered by version number.
func (s *Store) List(roomName, folder string) (*models.FileHistory, error) {
	dir := s.folderDir(roomName, folder)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, ErrTargetNotFound
	} else if err != nil {
		return nil, err
	}

	history := &models.FileHistory{DisplayName: room.DecodeFolderName(folder)}
	for _, entry := range entries {
		name := entry.Name()
		if name == LogFileName {
			continue
		}
		number, ok := numericID(name)
		if !ok {
			log.Warn().Str("entry", name).Str("dir", dir).Msg("Skipping non-numeric version entry")
			continue
		}

		note, err := s.Note(roomName, folder, number)
		if err != nil {
			return nil, err
		}
		history.Versions = append(history.Versions, models.VersionEntry{
			Number: number,
			Blob:   name,
			Note:   note,
		})
		if number > history.Latest {
			history.Latest = number
		}
	}

	sort.Slice(history.Versions, func(i, j int) bool {
		return history.Versions[i].Number < history.Versions[j].Number
	})
	return history, nil
}

// Resolve returns the blob path of a specific version number.
func (s *Store) Resolve(roomName, folder string, number int) (string, error) {
	dir := s.folderDir(roomName, folder)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", ErrTargetNotFound
	} else if err != nil {
		return "", err
	}

	for _, entry := range entries {
		if entry.Name() == LogFileName {
			continue
		}
		if parsed, ok := numericID(entry.Name()); ok && parsed == number {
			return filepath.Join(dir, entry.Name()), nil
		}
	}
	return "", ErrVersionNotFound
}
