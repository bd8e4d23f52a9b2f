package fs

import (
	"testing"
	"time"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narumatt/sqlitefs/internal/clock"
	"github.com/narumatt/sqlitefs/internal/store"
)

func newTestFileSystem(t *testing.T) (*FileSystem, *store.Store, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	s, err := store.Open(":memory:", clk)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, clk, t.TempDir(), time.Minute), s, clk
}

func addFile(t *testing.T, s *store.Store, clk *clock.FakeClock, name string) int64 {
	t.Helper()
	now := clk.Now()
	ino, err := s.AddInodeAndDentry(store.RootIno, name, store.Attrs{
		Kind: store.KindRegular, Mode: 0o644,
		Atime: now, Mtime: now, Ctime: now, Crtime: now,
	})
	require.NoError(t, err)
	return ino
}

// Two different inodes' first opens must never be handed the same handle id,
// since ReleaseFileHandleOp carries only a handle, no inode.
func TestOpenFileReleaseDoesNotCrossInodes(t *testing.T) {
	fsys, s, clk := newTestFileSystem(t)
	inoA := addFile(t, s, clk, "a")
	inoB := addFile(t, s, clk, "b")

	openA := &fuseops.OpenFileOp{Inode: fuseops.InodeID(inoA)}
	fsys.openFile(openA)
	openB := &fuseops.OpenFileOp{Inode: fuseops.InodeID(inoB)}
	fsys.openFile(openB)

	require.NotEqual(t, openA.Handle, openB.Handle, "handles for different inodes must never collide")

	ino, ok := fsys.sessions.InoForFileHandle(uint64(openA.Handle))
	require.True(t, ok)
	assert.Equal(t, uint64(inoA), ino)

	releaseA := &fuseops.ReleaseFileHandleOp{Handle: openA.Handle}
	fsys.releaseFileHandle(releaseA)

	_, ok = fsys.sessions.InoForFileHandle(uint64(openA.Handle))
	assert.False(t, ok, "releasing a's handle must drop only a's session entry")

	_, ok = fsys.sessions.InoForFileHandle(uint64(openB.Handle))
	assert.True(t, ok, "releasing a's handle must not disturb b's")
}

// write; close; reopen; read must return exactly what was written. Closing a
// handle must never delete the file's data blocks.
func TestWriteCloseReopenReadRoundTrip(t *testing.T) {
	fsys, s, clk := newTestFileSystem(t)
	ino := addFile(t, s, clk, "roundtrip")

	openOp := &fuseops.OpenFileOp{Inode: fuseops.InodeID(ino)}
	fsys.openFile(openOp)

	want := []byte("hello, sqlitefs")
	writeOp := &fuseops.WriteFileOp{
		Inode:  fuseops.InodeID(ino),
		Handle: openOp.Handle,
		Offset: 0,
		Data:   want,
	}
	require.NoError(t, fsys.writeFile(writeOp))

	releaseOp := &fuseops.ReleaseFileHandleOp{Handle: openOp.Handle}
	fsys.releaseFileHandle(releaseOp)

	reopenOp := &fuseops.OpenFileOp{Inode: fuseops.InodeID(ino)}
	fsys.openFile(reopenOp)

	readOp := &fuseops.ReadFileOp{
		Inode:  fuseops.InodeID(ino),
		Handle: reopenOp.Handle,
		Offset: 0,
		Dst:    make([]byte, len(want)),
	}
	require.NoError(t, fsys.readFile(readOp))
	assert.Equal(t, len(want), readOp.BytesRead)
	assert.Equal(t, want, readOp.Dst)
}

// Append-mode writes must land at the file's current end, ignoring the
// kernel-supplied offset, and must still read back intact after a close.
func TestAppendWriteSurvivesClose(t *testing.T) {
	fsys, s, clk := newTestFileSystem(t)
	ino := addFile(t, s, clk, "append")

	openOp := &fuseops.OpenFileOp{Inode: fuseops.InodeID(ino), Flags: 0}
	fsys.openFile(openOp)
	first := []byte("abc")
	require.NoError(t, fsys.writeFile(&fuseops.WriteFileOp{
		Inode: fuseops.InodeID(ino), Handle: openOp.Handle, Offset: 0, Data: first,
	}))
	fsys.releaseFileHandle(&fuseops.ReleaseFileHandleOp{Handle: openOp.Handle})

	appendOp := &fuseops.OpenFileOp{Inode: fuseops.InodeID(ino), Flags: 0x400} // O_APPEND
	fsys.openFile(appendOp)
	second := []byte("def")
	require.NoError(t, fsys.writeFile(&fuseops.WriteFileOp{
		Inode: fuseops.InodeID(ino), Handle: appendOp.Handle, Offset: 0, Data: second,
	}))
	fsys.releaseFileHandle(&fuseops.ReleaseFileHandleOp{Handle: appendOp.Handle})

	readOp := &fuseops.ReadFileOp{
		Inode: fuseops.InodeID(ino), Offset: 0, Dst: make([]byte, 6),
	}
	require.NoError(t, fsys.readFile(readOp))
	assert.Equal(t, []byte("abcdef"), readOp.Dst)
}
