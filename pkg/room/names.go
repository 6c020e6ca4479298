package room

import (
	"errors"
	"strings"
)

const (
	extSeparator    = "."
	folderSeparator = "-"
)

// ErrAmbiguousName is returned for display names that already contain the
// folder separator. Such names would decode ambiguously, so they are
// rejected up front instead of being silently mis-encoded.
var ErrAmbiguousName = errors.New("file name contains the folder separator")

// ErrUnsafeName is returned for client-supplied names that do not name a
// single directory entry.
var ErrUnsafeName = errors.New("file name must be a plain name without path separators")

// SafeBaseName reports whether a client-supplied name names exactly one
// directory entry, so joining it under a room or staging directory cannot
// resolve outside of it.
func SafeBaseName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// EncodeFolderName converts a display name into a folder-safe name by
// substituting every extension separator. The substitution is reversible via
// DecodeFolderName as long as the display name passes validation here.
func EncodeFolderName(display string) (string, error) {
	if !SafeBaseName(display) {
		return "", ErrUnsafeName
	}
	if strings.Contains(display, folderSeparator) {
		return "", ErrAmbiguousName
	}
	return strings.ReplaceAll(display, extSeparator, folderSeparator), nil
}

// DecodeFolderName restores the display name from an encoded folder name.
func DecodeFolderName(folder string) string {
	return strings.ReplaceAll(folder, folderSeparator, extSeparator)
}

// Ext returns the extension part of a display name: everything after the
// first separator, e.g. "tar.gz" for "report.tar.gz". Empty when the name
// has no extension.
func Ext(display string) string {
	if i := strings.Index(display, extSeparator); i >= 0 {
		return display[i+1:]
	}
	return ""
}
