// Package room owns the on-disk layout of a room: its directory under the
// content root, message files, and the folder-name encoding of versioned
// files.
//
// Layout, per room:
//
//	<content>/<room>/tEXt<timestamp>.txt     message files
//	<content>/<room>/<encoded-name>/         version folder per uploaded file
//	<content>/<room>/<batch>.tar.gz          materialized archives
package room

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"roomdrop/pkg/log"
)

const (
	// MessagePrefix marks message files in a room directory.
	MessagePrefix = "tEXt"

	messageTimeFormat = "20060102-150405"

	DirPerm  = 0750
	FilePerm = 0640
)

// Storage resolves room paths under a content root directory.
type Storage struct {
	contentDir string
}

// NewStorage creates a Storage rooted at contentDir.
func NewStorage(contentDir string) *Storage {
	return &Storage{contentDir: contentDir}
}

// Dir returns the storage directory of a room.
func (s *Storage) Dir(name string) string {
	return filepath.Join(s.contentDir, name)
}

// Exists reports whether the room's directory is still present.
func (s *Storage) Exists(name string) bool {
	info, err := os.Stat(s.Dir(name))
	return err == nil && info.IsDir()
}

// WriteMessage stores a message as an immutable text file named by its
// creation timestamp and returns the filename. Messages are never edited
// after creation.
func (s *Storage) WriteMessage(name, text string) (string, error) {
	now := time.Now()
	filename := fmt.Sprintf("%s%s-%09d.txt", MessagePrefix, now.Format(messageTimeFormat), now.Nanosecond())
	path := filepath.Join(s.Dir(name), filename)

	if err := os.WriteFile(path, []byte(text), FilePerm); err != nil {
		log.Error().Err(err).Str("room", name).Str("message_file", filename).Msg("Failed to write message")
		return "", err
	}

	log.Debug().Str("room", name).Str("message_file", filename).Msg("Message stored")
	return filename, nil
}

// messageFilePattern matches exactly the filenames WriteMessage produces.
// A looser prefix check would misread uploads that merely start with the
// marker, e.g. an archive named "tEXtx.tar.gz".
var messageFilePattern = regexp.MustCompile(`^` + MessagePrefix + `\d{8}-\d{6}-\d{9}\.txt$`)

// IsMessageFile reports whether a directory entry name is a message file.
func IsMessageFile(name string) bool {
	return messageFilePattern.MatchString(name)
}
