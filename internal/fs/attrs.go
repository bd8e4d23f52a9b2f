package fs

import (
	"os"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/narumatt/sqlitefs/internal/store"
)

// fileModeBits returns the os.FileMode type bits (ModeDir, ModeSymlink,
// ...) corresponding to a stored kind; regular files contribute no bits.
func fileModeBits(k store.Kind) os.FileMode {
	switch k {
	case store.KindDirectory:
		return os.ModeDir
	case store.KindSymlink:
		return os.ModeSymlink
	case store.KindFIFO:
		return os.ModeNamedPipe
	case store.KindSocket:
		return os.ModeSocket
	case store.KindCharDev:
		return os.ModeDevice | os.ModeCharDevice
	case store.KindBlockDev:
		return os.ModeDevice
	default:
		return 0
	}
}

func direntType(k store.Kind) fuseutil.DirentType {
	switch k {
	case store.KindDirectory:
		return fuseutil.DT_Directory
	case store.KindSymlink:
		return fuseutil.DT_Link
	case store.KindFIFO:
		return fuseutil.DT_FIFO
	case store.KindSocket:
		return fuseutil.DT_Socket
	case store.KindCharDev:
		return fuseutil.DT_Char
	case store.KindBlockDev:
		return fuseutil.DT_Block
	default:
		return fuseutil.DT_File
	}
}

// toInodeAttributes converts a store.Attrs into the attribute struct the
// kernel interface expects.
func toInodeAttributes(a *store.Attrs) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:   uint64(a.Size),
		Nlink:  a.Nlink,
		Mode:   fileModeBits(a.Kind) | os.FileMode(a.Mode&0o7777),
		Rdev:   a.Rdev,
		Uid:    a.Uid,
		Gid:    a.Gid,
		Atime:  a.Atime,
		Mtime:  a.Mtime,
		Ctime:  a.Ctime,
		Crtime: a.Crtime,
	}
}

// modeToKindAndPerm splits an os.FileMode coming from mknod/mkdir/create
// into the stored kind plus the 16-bit permission field.
func modeToKindAndPerm(mode os.FileMode, fallback store.Kind) (store.Kind, uint32) {
	perm := uint32(mode.Perm())
	switch {
	case mode&os.ModeDir != 0:
		return store.KindDirectory, perm
	case mode&os.ModeSymlink != 0:
		return store.KindSymlink, perm
	case mode&os.ModeNamedPipe != 0:
		return store.KindFIFO, perm
	case mode&os.ModeSocket != 0:
		return store.KindSocket, perm
	case mode&os.ModeCharDevice != 0:
		return store.KindCharDev, perm
	case mode&os.ModeDevice != 0:
		return store.KindBlockDev, perm
	default:
		return fallback, perm
	}
}
