package fs

import (
	"errors"
	"syscall"

	"github.com/narumatt/sqlitefs/internal/store"
)

// toErrno maps a storage-layer error to the POSIX error number the kernel
// interface expects back. Nil maps to nil, a raw syscall.Errno passes
// through unchanged, and any other unrecognised error becomes EIO.
func toErrno(err error) error {
	var errno syscall.Errno
	switch {
	case err == nil:
		return nil
	case errors.As(err, &errno):
		return errno
	case errors.Is(err, store.ErrNotFound):
		return syscall.ENOENT
	case errors.Is(err, store.ErrIsDir):
		return syscall.EISDIR
	case errors.Is(err, store.ErrIsNotDir):
		return syscall.ENOTDIR
	case errors.Is(err, store.ErrNotEmpty):
		return syscall.ENOTEMPTY
	case errors.Is(err, store.ErrAlreadyExists):
		return syscall.EEXIST
	case errors.Is(err, store.ErrNameTooLong):
		return syscall.ENAMETOOLONG
	case errors.Is(err, store.ErrInvalidOperation):
		return syscall.EPERM
	default:
		return syscall.EIO
	}
}
