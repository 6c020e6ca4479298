// Package feed produces point-in-time listings of a room's content for both
// full-page rendering and the lightweight poller.
package feed

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"roomdrop/pkg/log"
	"roomdrop/pkg/room"
	"roomdrop/pkg/version"
)

// DeletedLabel is the sentinel entry reported when the room's directory no
// longer exists.
const DeletedLabel = "DELETED"

// Assembler is a stateless, read-only scanner over room storage. A snapshot
// taken while an upload is mid-flight may observe a partial version; entries
// that cannot be parsed are skipped rather than failing the whole listing.
type Assembler struct {
	storage  *room.Storage
	versions *version.Store
}

// NewAssembler creates an Assembler over the given storage.
func NewAssembler(storage *room.Storage, versions *version.Store) *Assembler {
	return &Assembler{storage: storage, versions: versions}
}

// Snapshot lists a room's content as a label -> content-or-path map:
//
//   - message files are decoded as text (newlines flattened to spaces) and
//     keyed "tEXt<i>" in chronological order
//   - version folders are keyed "<display name>: Version <latest>" mapping
//     to the folder path
//   - everything else (standalone files, archives) is keyed by filename
//     mapping to its path
//
// A room whose directory is gone yields only the DeletedLabel sentinel.
func (a *Assembler) Snapshot(roomName string) map[string]string {
	roomDir := a.storage.Dir(roomName)

	entries, err := os.ReadDir(roomDir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Error().Err(err).Str("room", roomName).Msg("Failed to scan room directory")
		}
		return map[string]string{
			DeletedLabel: fmt.Sprintf("%q timer has expired", roomName),
		}
	}

	// ReadDir sorts by filename; message timestamps sort the same way, so
	// the ordinal message keys come out in chronological order.
	content := make(map[string]string)
	messageCount := 0
	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(roomDir, name)

		switch {
		case strings.HasPrefix(name, "."):
			// Bundles are built in dot-prefixed temp files before the
			// atomic rename; they are never part of a snapshot.
			continue

		case room.IsMessageFile(name):
			data, err := os.ReadFile(path)
			if err != nil {
				log.Warn().Err(err).Str("room", roomName).Str("entry", name).Msg("Skipping unreadable message")
				continue
			}
			content[fmt.Sprintf("%s%d", room.MessagePrefix, messageCount)] = strings.ReplaceAll(string(data), "\n", " ")
			messageCount++

		case entry.IsDir():
			folder := name
			latest, err := a.versions.Latest(roomName, folder)
			if err != nil || latest == 0 {
				// Incomplete or foreign folder; a concurrent reader must
				// not fail on it.
				log.Warn().Str("room", roomName).Str("entry", name).Msg("Skipping version folder with no versions")
				continue
			}
			label := fmt.Sprintf("%s: Version %d", room.DecodeFolderName(folder), latest)
			content[label] = path

		default:
			content[name] = path
		}
	}
	return content
}
