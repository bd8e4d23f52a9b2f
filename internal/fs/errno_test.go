package fs

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/narumatt/sqlitefs/internal/store"
)

func TestToErrnoMapsKnownErrors(t *testing.T) {
	cases := map[error]syscall.Errno{
		store.ErrNotFound:         syscall.ENOENT,
		store.ErrIsDir:            syscall.EISDIR,
		store.ErrIsNotDir:         syscall.ENOTDIR,
		store.ErrNotEmpty:         syscall.ENOTEMPTY,
		store.ErrAlreadyExists:    syscall.EEXIST,
		store.ErrNameTooLong:      syscall.ENAMETOOLONG,
		store.ErrInvalidOperation: syscall.EPERM,
	}
	for in, want := range cases {
		assert.Equal(t, want, toErrno(in))
	}
}

func TestToErrnoNilAndUnknown(t *testing.T) {
	assert.Nil(t, toErrno(nil))
	assert.Equal(t, syscall.EIO, toErrno(assertUnknownErr{}))
}

func TestToErrnoPassesThroughRawErrno(t *testing.T) {
	assert.Equal(t, syscall.ERANGE, toErrno(syscall.ERANGE))
}

type assertUnknownErr struct{}

func (assertUnknownErr) Error() string { return "boom" }
