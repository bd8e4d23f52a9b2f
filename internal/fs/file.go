package fs

import (
	"context"
	"syscall"

	"github.com/jacobsa/fuse/fuseops"

	"github.com/narumatt/sqlitefs/internal/session"
	"github.com/narumatt/sqlitefs/internal/store"
)

func (fs *FileSystem) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) {
	fs.openFile(op)
	op.Respond(nil)
}

func (fs *FileSystem) openFile(op *fuseops.OpenFileOp) {
	stat := session.OpenFileStat{
		Readonly: !op.Flags.IsWriteOnly() && !op.Flags.IsReadWrite(),
		Append:   op.Flags.IsAppend(),
	}
	fh := fs.sessions.OpenFile(uint64(op.Inode), stat)
	op.Handle = fuseops.HandleID(fh)
}

func (fs *FileSystem) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) {
	err := fs.readFile(op)
	op.Respond(toErrno(err))
}

func (fs *FileSystem) readFile(op *fuseops.ReadFileOp) error {
	attrs, err := fs.store.GetInode(int64(op.Inode))
	if err != nil {
		return err
	}
	if attrs == nil {
		return store.ErrNotFound
	}

	remaining := attrs.Size - op.Offset
	if remaining < 0 {
		remaining = 0
	}
	if int64(len(op.Dst)) > remaining {
		op.Dst = op.Dst[:remaining]
	}
	if err := readData(fs.store, int64(op.Inode), op.Offset, op.Dst); err != nil {
		return err
	}
	op.BytesRead = len(op.Dst)
	return nil
}

func (fs *FileSystem) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) {
	err := fs.writeFile(op)
	op.Respond(toErrno(err))
}

func (fs *FileSystem) writeFile(op *fuseops.WriteFileOp) error {
	offset := op.Offset
	if stat, ok := fs.sessions.FileStat(uint64(op.Inode), uint64(op.Handle)); ok && stat.Append {
		attrs, err := fs.store.GetInode(int64(op.Inode))
		if err != nil {
			return err
		}
		if attrs != nil {
			offset = attrs.Size
		}
	}
	return writeData(fs.store, int64(op.Inode), offset, op.Data)
}

func (fs *FileSystem) SyncFile(ctx context.Context, op *fuseops.SyncFileOp) {
	op.Respond(nil)
}

func (fs *FileSystem) FlushFile(ctx context.Context, op *fuseops.FlushFileOp) {
	op.Respond(nil)
}

func (fs *FileSystem) ReleaseFileHandle(ctx context.Context, op *fuseops.ReleaseFileHandleOp) {
	fs.releaseFileHandle(op)
	op.Respond(nil)
}

// releaseFileHandle drops the handle's session entry only. release_data is a
// storage-level cleanup method with no dispatcher caller: a file's data rows
// survive every close and are only ever removed by update_inode's truncate
// path or by the inode itself going unreferenced.
func (fs *FileSystem) releaseFileHandle(op *fuseops.ReleaseFileHandleOp) {
	fs.sessions.ReleaseFileByHandle(uint64(op.Handle))
}

func (fs *FileSystem) GetXattr(ctx context.Context, op *fuseops.GetXattrOp) {
	value, err := fs.store.GetXattr(int64(op.Inode), op.Name)
	if err == nil {
		switch {
		case len(op.Dst) == 0:
			op.BytesRead = len(value)
		case len(op.Dst) < len(value):
			err = syscall.ERANGE
		default:
			op.BytesRead = copy(op.Dst, value)
		}
	}
	op.Respond(toErrno(err))
}

func (fs *FileSystem) SetXattr(ctx context.Context, op *fuseops.SetXattrOp) {
	err := fs.store.SetXattr(int64(op.Inode), op.Name, op.Value)
	op.Respond(toErrno(err))
}

func (fs *FileSystem) ListXattr(ctx context.Context, op *fuseops.ListXattrOp) {
	names, err := fs.store.ListXattr(int64(op.Inode))
	if err == nil {
		var buf []byte
		for _, n := range names {
			buf = append(buf, n...)
			buf = append(buf, 0)
		}
		switch {
		case len(op.Dst) == 0:
			op.BytesRead = len(buf)
		case len(op.Dst) < len(buf):
			err = syscall.ERANGE
		default:
			op.BytesRead = copy(op.Dst, buf)
		}
	}
	op.Respond(toErrno(err))
}

func (fs *FileSystem) RemoveXattr(ctx context.Context, op *fuseops.RemoveXattrOp) {
	err := fs.store.DeleteXattr(int64(op.Inode), op.Name)
	op.Respond(toErrno(err))
}
