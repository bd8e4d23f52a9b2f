package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/narumatt/sqlitefs/internal/session"
	"github.com/narumatt/sqlitefs/internal/store"
)

func TestLookupRefcount(t *testing.T) {
	m := session.NewManager()

	m.IncRef(5)
	m.IncRef(5)
	assert.True(t, m.HasLookup(5))

	assert.False(t, m.Forget(5, 1))
	assert.True(t, m.HasLookup(5))

	assert.True(t, m.Forget(5, 1))
	assert.False(t, m.HasLookup(5))
}

func TestForgetUnknownInodeIsNoop(t *testing.T) {
	m := session.NewManager()
	assert.False(t, m.Forget(99, 1))
}

func TestOpenFileHandlesAreGloballyUniqueAcrossInodes(t *testing.T) {
	m := session.NewManager()

	fh1 := m.OpenFile(1, session.OpenFileStat{Readonly: true})
	fh2 := m.OpenFile(2, session.OpenFileStat{Append: true})
	assert.NotEqual(t, fh1, fh2, "handles for different inodes must never collide")

	stat, ok := m.FileStat(1, fh1)
	assert.True(t, ok)
	assert.True(t, stat.Readonly)

	// Releasing the first inode's handle by id alone must resolve back to
	// inode 1, not inode 2, even though both handles were minted close
	// together.
	ino, ok := m.InoForFileHandle(fh1)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), ino)

	m.ReleaseFileByHandle(fh1)
	_, ok = m.FileStat(1, fh1)
	assert.False(t, ok)

	// Inode 2's handle and stat must be untouched by releasing inode 1's.
	stat2, ok := m.FileStat(2, fh2)
	assert.True(t, ok)
	assert.True(t, stat2.Append)
}

func TestOpenDirHandlesAreGloballyUniqueAcrossInodes(t *testing.T) {
	m := session.NewManager()

	fh1 := m.OpenDir(1, []store.Dentry{{Name: "a"}})
	fh2 := m.OpenDir(2, []store.Dentry{{Name: "b"}})
	assert.NotEqual(t, fh1, fh2, "handles for different inodes must never collide")

	m.ReleaseDirByHandle(fh1)
	_, ok := m.DirSnapshot(1, fh1)
	assert.False(t, ok)

	snap2, ok := m.DirSnapshot(2, fh2)
	assert.True(t, ok)
	assert.Equal(t, "b", snap2[0].Name)
}

func TestDirSnapshotRoundTripAndRelease(t *testing.T) {
	m := session.NewManager()

	snap := []store.Dentry{{Name: "a"}, {Name: "b"}}
	fh := m.OpenDir(1, snap)

	got, ok := m.DirSnapshot(1, fh)
	assert.True(t, ok)
	assert.Equal(t, snap, got)

	m.ReleaseDir(1, fh)
	_, ok = m.DirSnapshot(1, fh)
	assert.False(t, ok)
}
