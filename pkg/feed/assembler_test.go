package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"roomdrop/pkg/room"
	"roomdrop/pkg/version"
)

// AssemblerTestSuite tests the content feed assembler
type AssemblerTestSuite struct {
	suite.Suite
	tempDir   string
	storage   *room.Storage
	versions  *version.Store
	assembler *Assembler
}

// SetupTest runs before each test
func (s *AssemblerTestSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "feed-test-*")
	s.Require().NoError(err)

	s.Require().NoError(os.Mkdir(filepath.Join(s.tempDir, "teamalpha"), 0750))
	s.storage = room.NewStorage(s.tempDir)
	s.versions = version.NewStore(s.storage)
	s.assembler = NewAssembler(s.storage, s.versions)
}

// TearDownTest runs after each test
func (s *AssemblerTestSuite) TearDownTest() {
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

// TestEmptyRoom tests a room with no content
func (s *AssemblerTestSuite) TestEmptyRoom() {
	s.Empty(s.assembler.Snapshot("teamalpha"))
}

// TestMessages tests message decoding and ordinal keys
func (s *AssemblerTestSuite) TestMessages() {
	_, err := s.storage.WriteMessage("teamalpha", "first message")
	s.Require().NoError(err)
	_, err = s.storage.WriteMessage("teamalpha", "second\nmessage")
	s.Require().NoError(err)

	snapshot := s.assembler.Snapshot("teamalpha")
	s.Equal("first message", snapshot["tEXt0"])
	s.Equal("second message", snapshot["tEXt1"])
}

// TestVersionFolder tests that the latest version is surfaced
func (s *AssemblerTestSuite) TestVersionFolder() {
	for i := 1; i <= 3; i++ {
		number, err := s.versions.Begin("teamalpha", "report-pdf")
		s.Require().NoError(err)
		s.Require().Equal(i, number)
		s.Require().NoError(s.versions.WriteChunk("teamalpha", "report-pdf", number, "pdf", 0, []byte("v")))
		s.Require().NoError(s.versions.AppendNote("teamalpha", "report-pdf", number, "note"))
	}

	snapshot := s.assembler.Snapshot("teamalpha")
	path, ok := snapshot["report.pdf: Version 3"]
	s.True(ok)
	s.Equal(filepath.Join(s.tempDir, "teamalpha", "report-pdf"), path)
}

// TestStandaloneFiles tests archives and plain files keyed by filename
func (s *AssemblerTestSuite) TestStandaloneFiles() {
	bundle := filepath.Join(s.tempDir, "teamalpha", "bundle.tar.gz")
	s.Require().NoError(os.WriteFile(bundle, []byte("gz"), 0640))

	snapshot := s.assembler.Snapshot("teamalpha")
	s.Equal(bundle, snapshot["bundle.tar.gz"])
}

// TestSkipsEmptyVersionFolder tests that a mid-upload folder does not break the listing
func (s *AssemblerTestSuite) TestSkipsEmptyVersionFolder() {
	// Folder created, no blob written yet: reader must skip it, not crash
	_, err := s.versions.Begin("teamalpha", "draft-txt")
	s.Require().NoError(err)
	_, err = s.storage.WriteMessage("teamalpha", "still here")
	s.Require().NoError(err)

	snapshot := s.assembler.Snapshot("teamalpha")
	s.Equal("still here", snapshot["tEXt0"])
	s.Len(snapshot, 1)
}

// TestDeletedRoomSentinel tests the deleted-room report
func (s *AssemblerTestSuite) TestDeletedRoomSentinel() {
	snapshot := s.assembler.Snapshot("ghost")
	s.Len(snapshot, 1)
	s.Contains(snapshot[DeletedLabel], "ghost")
}

// TestMessageLookalikeServedAsFile tests that an upload merely prefixed with
// the message marker is served as a file, not inlined as message text
func (s *AssemblerTestSuite) TestMessageLookalikeServedAsFile() {
	path := filepath.Join(s.tempDir, "teamalpha", "tEXtx.tar.gz")
	s.Require().NoError(os.WriteFile(path, []byte{0x1f, 0x8b, 0x00}, 0640))

	snapshot := s.assembler.Snapshot("teamalpha")
	s.Equal(path, snapshot["tEXtx.tar.gz"])
	s.NotContains(snapshot, "tEXt0")
}

func TestAssemblerTestSuite(t *testing.T) {
	suite.Run(t, new(AssemblerTestSuite))
}
