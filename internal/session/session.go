// Package session holds the per-mount in-memory state that sits between the
// kernel interface and the storage engine: lookup refcounts and open
// file/directory handles. None of it is persisted; it is rebuilt from
// nothing on every mount.
package session

import (
	"sync"

	"github.com/narumatt/sqlitefs/internal/store"
)

// OpenFileStat records the flags an open file handle was created with.
type OpenFileStat struct {
	Readonly bool
	Append   bool
	Noatime  bool
}

// Manager owns the three session maps. Each is guarded by its own mutex; a
// mutex is never held across a storage call except to test presence before
// invoking Store.DeleteInodeIfNoRef, and nothing inside that call takes the
// lookup-count mutex, so no deadlock is possible.
type Manager struct {
	lookupMu sync.Mutex
	lookup   map[uint64]uint64 // ino -> refcount

	fileMu        sync.Mutex
	nextFileFh    uint64                              // global counter; fh must be unique across every inode
	openFiles     map[uint64]map[uint64]OpenFileStat // ino -> fh -> stat
	fileHandleIno map[uint64]uint64                  // fh -> ino, for release calls that carry only a handle

	dirMu        sync.Mutex
	nextDirFh    uint64                                // global counter; fh must be unique across every inode
	openDirs     map[uint64]map[uint64][]store.Dentry // ino -> fh -> snapshot
	dirHandleIno map[uint64]uint64                     // fh -> ino, for release calls that carry only a handle
}


func NewManager() *Manager {
	return &Manager{
		lookup:        make(map[uint64]uint64),
		openFiles:     make(map[uint64]map[uint64]OpenFileStat),
		fileHandleIno: make(map[uint64]uint64),
		openDirs:      make(map[uint64]map[uint64][]store.Dentry),
		dirHandleIno:  make(map[uint64]uint64),
	}
}

// IncRef bumps ino's lookup count by one, as happens whenever the storage
// answers a lookup-like call with a positive result.
func (m *Manager) IncRef(ino uint64) {
	m.lookupMu.Lock()
	defer m.lookupMu.Unlock()
	m.lookup[ino]++
}

// Forget decrements ino's lookup count by n and reports whether it reached
// zero (and was removed from the table). The caller is then responsible for
// invoking Store.DeleteInodeIfNoRef.
func (m *Manager) Forget(ino uint64, n uint64) (unreferenced bool) {
	m.lookupMu.Lock()
	defer m.lookupMu.Unlock()

	count, ok := m.lookup[ino]
	if !ok {
		return false
	}
	if n >= count {
		delete(m.lookup, ino)
		return true
	}
	m.lookup[ino] = count - n
	return false
}

// HasLookup reports whether ino currently has an outstanding lookup count.
func (m *Manager) HasLookup(ino uint64) bool {
	m.lookupMu.Lock()
	defer m.lookupMu.Unlock()
	_, ok := m.lookup[ino]
	return ok
}

// LookupInodes returns a snapshot of inode numbers with an outstanding
// lookup count, used by the unmount sweep.
func (m *Manager) LookupInodes() []uint64 {
	m.lookupMu.Lock()
	defer m.lookupMu.Unlock()
	out := make([]uint64, 0, len(m.lookup))
	for ino := range m.lookup {
		out = append(out, ino)
	}
	return out
}

// OpenFile allocates a new handle for ino and returns its id. The id is
// drawn from a single counter shared across every inode, since the
// dispatcher's release path only has the handle id to resolve back to an
// inode (fuseops.ReleaseFileHandleOp carries no Inode field) and two
// different inodes' handles must never collide.
func (m *Manager) OpenFile(ino uint64, stat OpenFileStat) uint64 {
	m.fileMu.Lock()
	defer m.fileMu.Unlock()

	m.nextFileFh++
	fh := m.nextFileFh
	slot, ok := m.openFiles[ino]
	if !ok {
		slot = make(map[uint64]OpenFileStat)
		m.openFiles[ino] = slot
	}
	slot[fh] = stat
	m.fileHandleIno[fh] = ino
	return fh
}

// FileStat returns the stat recorded for an open file handle.
func (m *Manager) FileStat(ino, fh uint64) (OpenFileStat, bool) {
	m.fileMu.Lock()
	defer m.fileMu.Unlock()
	slot, ok := m.openFiles[ino]
	if !ok {
		return OpenFileStat{}, false
	}
	stat, ok := slot[fh]
	return stat, ok
}

// ReleaseFile drops a file handle, removing the inode's slot once empty.
func (m *Manager) ReleaseFile(ino, fh uint64) {
	m.fileMu.Lock()
	defer m.fileMu.Unlock()
	slot, ok := m.openFiles[ino]
	if !ok {
		return
	}
	delete(slot, fh)
	delete(m.fileHandleIno, fh)
	if len(slot) == 0 {
		delete(m.openFiles, ino)
	}
}

// ReleaseFileByHandle releases a file handle when only its id is known, as
// is the case for the kernel's release callback.
func (m *Manager) ReleaseFileByHandle(fh uint64) {
	m.fileMu.Lock()
	ino, ok := m.fileHandleIno[fh]
	m.fileMu.Unlock()
	if !ok {
		return
	}
	m.ReleaseFile(ino, fh)
}

// InoForFileHandle returns the inode an open file handle belongs to.
func (m *Manager) InoForFileHandle(fh uint64) (uint64, bool) {
	m.fileMu.Lock()
	defer m.fileMu.Unlock()
	ino, ok := m.fileHandleIno[fh]
	return ino, ok
}

// OpenDir allocates a directory handle over a fixed snapshot of entries. Like
// OpenFile's handle, the id is drawn from a single counter shared across
// every inode so it stays globally unique.
func (m *Manager) OpenDir(ino uint64, snapshot []store.Dentry) uint64 {
	m.dirMu.Lock()
	defer m.dirMu.Unlock()

	m.nextDirFh++
	fh := m.nextDirFh
	slot, ok := m.openDirs[ino]
	if !ok {
		slot = make(map[uint64][]store.Dentry)
		m.openDirs[ino] = slot
	}
	slot[fh] = snapshot
	m.dirHandleIno[fh] = ino
	return fh
}

// DirSnapshot returns the entry snapshot for an open directory handle.
func (m *Manager) DirSnapshot(ino, fh uint64) ([]store.Dentry, bool) {
	m.dirMu.Lock()
	defer m.dirMu.Unlock()
	slot, ok := m.openDirs[ino]
	if !ok {
		return nil, false
	}
	snap, ok := slot[fh]
	return snap, ok
}

// ReleaseDir drops a directory handle, removing the inode's slot once empty.
func (m *Manager) ReleaseDir(ino, fh uint64) {
	m.dirMu.Lock()
	defer m.dirMu.Unlock()
	slot, ok := m.openDirs[ino]
	if !ok {
		return
	}
	delete(slot, fh)
	delete(m.dirHandleIno, fh)
	if len(slot) == 0 {
		delete(m.openDirs, ino)
	}
}

// ReleaseDirByHandle releases a directory handle when only its id is known,
// as is the case for the kernel's release callback.
func (m *Manager) ReleaseDirByHandle(fh uint64) {
	m.dirMu.Lock()
	ino, ok := m.dirHandleIno[fh]
	m.dirMu.Unlock()
	if !ok {
		return
	}
	m.ReleaseDir(ino, fh)
}
