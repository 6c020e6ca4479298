// Package archive stages batch uploads and bundles them into compressed
// tarballs once every declared file has arrived.
package archive

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"

	"roomdrop/pkg/log"
	"roomdrop/pkg/room"
)

// StagingDirName is the staging area under the content root. Staged batches
// live outside room directories so a half-built batch never shows up in a
// room's feed.
const StagingDirName = "tempZipFiles"

// Suffix is appended to the batch name for the materialized bundle.
const Suffix = ".tar.gz"

// Builder stages batch files under <content>/tempZipFiles/<room>/<batch> and
// materializes finished batches as <batch>.tar.gz inside the room directory.
type Builder struct {
	contentDir string
	storage    *room.Storage
}

// NewBuilder creates a Builder over the given content root.
func NewBuilder(contentDir string, storage *room.Storage) *Builder {
	return &Builder{contentDir: contentDir, storage: storage}
}

func (b *Builder) stagingDir(roomName, batch string) string {
	return filepath.Join(b.contentDir, StagingDirName, roomName, batch)
}

// WriteChunk writes payload bytes at the given offset into a staged file,
// creating the staging directory on first use. Writes are offset-addressed
// and therefore idempotent under retransmission.
func (b *Builder) WriteChunk(roomName, batch, filename string, offset int64, data []byte) error {
	dir := b.stagingDir(roomName, batch)
	if err := os.MkdirAll(dir, room.DirPerm); err != nil {
		log.Error().Err(err).Str("staging_dir", dir).Msg("Failed to create staging directory")
		return err
	}

	path := filepath.Join(dir, filename)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, room.FilePerm)
	if err != nil {
		log.Error().Err(err).Str("staged_file", path).Msg("Failed to open staged file")
		return err
	}
	defer func() {
		if err := f.Close(); err != nil {
			log.Error().Err(err).Str("staged_file", path).Msg("Failed to close staged file")
		}
	}()

	if _, err := f.WriteAt(data, offset); err != nil {
		log.Error().Err(err).Str("staged_file", path).Int64("offset", offset).Msg("Failed to write chunk")
		return err
	}
	return nil
}

// Bundle compresses a completed staging directory into <batch>.tar.gz inside
// the room directory and removes the staging tree. The tarball is built in a
// temporary file and renamed into place, so the archive becomes visible in
// the room atomically and only once it is whole.
func (b *Builder) Bundle(roomName, batch string) (string, error) {
	stagingDir := b.stagingDir(roomName, batch)
	roomDir := b.storage.Dir(roomName)

	tmp, err := os.CreateTemp(roomDir, "."+batch+"-*")
	if err != nil {
		log.Error().Err(err).Str("room_dir", roomDir).Msg("Failed to create bundle temp file")
		return "", err
	}
	tmpPath := tmp.Name()

	if err := writeTarball(tmp, stagingDir, batch); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		log.Error().Err(err).Str("batch", batch).Msg("Failed to build bundle")
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}

	finalPath := filepath.Join(roomDir, batch+Suffix)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}

	if err := os.RemoveAll(stagingDir); err != nil {
		log.Error().Err(err).Str("staging_dir", stagingDir).Msg("Failed to remove staging directory")
		return "", err
	}

	log.Info().Str("room", roomName).Str("bundle", batch+Suffix).Msg("Archive materialized")
	return finalPath, nil
}

// writeTarball streams every file in stagingDir into a gzipped tar under a
// top-level directory named after the batch.
func writeTarball(w io.Writer, stagingDir, batch string) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(filepath.Join(batch, entry.Name()))
		if err := tw.WriteHeader(header); err != nil {
			return err
		}

		f, err := os.Open(filepath.Join(stagingDir, entry.Name()))
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, f)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}
