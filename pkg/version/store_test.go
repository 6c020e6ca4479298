package version

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"roomdrop/pkg/room"
)

// StoreTestSuite tests the version control store
type StoreTestSuite struct {
	suite.Suite
	tempDir string
	store   *Store
}

// SetupTest runs before each test
func (s *StoreTestSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "version-test-*")
	s.Require().NoError(err)

	s.Require().NoError(os.Mkdir(filepath.Join(s.tempDir, "teamalpha"), 0750))
	s.store = NewStore(room.NewStorage(s.tempDir))
}

// TearDownTest runs after each test
func (s *StoreTestSuite) TearDownTest() {
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

func (s *StoreTestSuite) folderDir(folder string) string {
	return filepath.Join(s.tempDir, "teamalpha", folder)
}

// completeVersion runs a whole single-chunk upload through the store
func (s *StoreTestSuite) completeVersion(folder, ext, content, note string) int {
	number, err := s.store.Begin("teamalpha", folder)
	s.Require().NoError(err)
	s.Require().NoError(s.store.WriteChunk("teamalpha", folder, number, ext, 0, []byte(content)))
	s.Require().NoError(s.store.AppendNote("teamalpha", folder, number, note))
	return number
}

// TestBeginNewTarget tests first-version setup for a brand new target
func (s *StoreTestSuite) TestBeginNewTarget() {
	number, err := s.store.Begin("teamalpha", "report-pdf")
	s.NoError(err)
	s.Equal(1, number)

	// Folder and note log must exist
	info, err := os.Stat(s.folderDir("report-pdf"))
	s.NoError(err)
	s.True(info.IsDir())

	_, err = os.Stat(filepath.Join(s.folderDir("report-pdf"), LogFileName))
	s.NoError(err)
}

// TestSequentialVersions tests contiguous version numbering
func (s *StoreTestSuite) TestSequentialVersions() {
	for want := 1; want <= 4; want++ {
		got := s.completeVersion("report-pdf", "pdf", "content", "change")
		s.Equal(want, got)
	}

	latest, err := s.store.Latest("teamalpha", "report-pdf")
	s.NoError(err)
	s.Equal(4, latest)
}

// TestBeginIgnoresStrayEntries tests that non-numeric folder entries are skipped
func (s *StoreTestSuite) TestBeginIgnoresStrayEntries() {
	s.completeVersion("report-pdf", "pdf", "v1", "first")

	// A stray non-numeric file must not break or shift numbering
	stray := filepath.Join(s.folderDir("report-pdf"), "notes.backup")
	s.Require().NoError(os.WriteFile(stray, []byte("junk"), 0640))

	number, err := s.store.Begin("teamalpha", "report-pdf")
	s.NoError(err)
	s.Equal(2, number)
}

// TestWriteChunkOutOfOrder tests offset-addressed reassembly
func (s *StoreTestSuite) TestWriteChunkOutOfOrder() {
	number, err := s.store.Begin("teamalpha", "report-pdf")
	s.Require().NoError(err)

	// Offsets 0/100/200 written in order 2,0,1
	chunkA := make([]byte, 100)
	chunkB := make([]byte, 100)
	chunkC := make([]byte, 50)
	for i := range chunkA {
		chunkA[i] = 'a'
	}
	for i := range chunkB {
		chunkB[i] = 'b'
	}
	for i := range chunkC {
		chunkC[i] = 'c'
	}

	s.Require().NoError(s.store.WriteChunk("teamalpha", "report-pdf", number, "pdf", 200, chunkC))
	s.Require().NoError(s.store.WriteChunk("teamalpha", "report-pdf", number, "pdf", 0, chunkA))
	s.Require().NoError(s.store.WriteChunk("teamalpha", "report-pdf", number, "pdf", 100, chunkB))

	data, err := os.ReadFile(filepath.Join(s.folderDir("report-pdf"), "1.pdf"))
	s.NoError(err)
	s.Len(data, 250)

	want := append(append(append([]byte{}, chunkA...), chunkB...), chunkC...)
	s.Equal(want, data)
}

// TestWriteChunkRetryIdempotent tests that retransmitted chunks do not corrupt the blob
func (s *StoreTestSuite) TestWriteChunkRetryIdempotent() {
	number, err := s.store.Begin("teamalpha", "report-pdf")
	s.Require().NoError(err)

	s.Require().NoError(s.store.WriteChunk("teamalpha", "report-pdf", number, "pdf", 0, []byte("hello ")))
	s.Require().NoError(s.store.WriteChunk("teamalpha", "report-pdf", number, "pdf", 6, []byte("world")))
	// Retry of the first chunk
	s.Require().NoError(s.store.WriteChunk("teamalpha", "report-pdf", number, "pdf", 0, []byte("hello ")))

	data, err := os.ReadFile(filepath.Join(s.folderDir("report-pdf"), "1.pdf"))
	s.NoError(err)
	s.Equal("hello world", string(data))
}

// TestNoteLastWriteWins tests that later log lines win on duplicate versions
func (s *StoreTestSuite) TestNoteLastWriteWins() {
	s.completeVersion("report-pdf", "pdf", "v1", "first note")
	s.Require().NoError(s.store.AppendNote("teamalpha", "report-pdf", 1, "corrected note"))

	note, err := s.store.Note("teamalpha", "report-pdf", 1)
	s.NoError(err)
	s.Equal("corrected note", note)
}

// TestNoteExactNumberMatch tests that version 1 does not match version 10's line
func (s *StoreTestSuite) TestNoteExactNumberMatch() {
	s.completeVersion("report-pdf", "pdf", "v1", "one")
	s.Require().NoError(s.store.AppendNote("teamalpha", "report-pdf", 10, "ten"))

	note, err := s.store.Note("teamalpha", "report-pdf", 1)
	s.NoError(err)
	s.Equal("one", note)
}

// TestAppendNoteFlattensNewlines tests the single-line note invariant
func (s *StoreTestSuite) TestAppendNoteFlattensNewlines() {
	s.completeVersion("report-pdf", "pdf", "v1", "line one\nline two")

	note, err := s.store.Note("teamalpha", "report-pdf", 1)
	s.NoError(err)
	s.Equal("line one line two", note)
}

// TestList tests the full history listing
func (s *StoreTestSuite) TestList() {
	s.completeVersion("report-pdf", "pdf", "v1", "first")
	s.completeVersion("report-pdf", "pdf", "v2", "second")

	history, err := s.store.List("teamalpha", "report-pdf")
	s.NoError(err)
	s.Equal("report.pdf", history.DisplayName)
	s.Equal(2, history.Latest)
	s.Require().Len(history.Versions, 2)
	s.Equal(1, history.Versions[0].Number)
	s.Equal("first", history.Versions[0].Note)
	s.Equal("2.pdf", history.Versions[1].Blob)
	s.Equal("second", history.Versions[1].Note)
}

// TestListUnknownTarget tests listing a target with no folder
func (s *StoreTestSuite) TestListUnknownTarget() {
	_, err := s.store.List("teamalpha", "ghost-pdf")
	s.ErrorIs(err, ErrTargetNotFound)
}

// TestResolve tests blob path resolution
func (s *StoreTestSuite) TestResolve() {
	s.completeVersion("report-pdf", "pdf", "v1", "first")

	path, err := s.store.Resolve("teamalpha", "report-pdf", 1)
	s.NoError(err)
	s.Equal(filepath.Join(s.folderDir("report-pdf"), "1.pdf"), path)

	_, err = s.store.Resolve("teamalpha", "report-pdf", 7)
	s.ErrorIs(err, ErrVersionNotFound)
}

// TestNoExtension tests blobs for display names without an extension
func (s *StoreTestSuite) TestNoExtension() {
	number := s.completeVersion("README", "", "readme body", "initial")
	s.Equal(1, number)

	path, err := s.store.Resolve("teamalpha", "README", 1)
	s.NoError(err)
	s.Equal(filepath.Join(s.folderDir("README"), "1"), path)
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
