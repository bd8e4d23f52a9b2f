package fs

import (
	"context"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/narumatt/sqlitefs/internal/store"
)

func (fs *FileSystem) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) {
	entries, err := fs.store.GetDentries(int64(op.Inode))
	if err == nil {
		fh := fs.sessions.OpenDir(uint64(op.Inode), entries)
		op.Handle = fuseops.HandleID(fh)
	}
	op.Respond(toErrno(err))
}

func (fs *FileSystem) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) {
	entries, ok := fs.sessions.DirSnapshot(uint64(op.Inode), uint64(op.Handle))
	if !ok {
		op.Respond(toErrno(store.ErrInvalidOperation))
		return
	}

	op.BytesRead = 0
	offset := int(op.Offset)
	for i := offset; i < len(entries); i++ {
		de := entries[i]
		n := fuseutil.WriteDirent(op.Dst[op.BytesRead:], fuseutil.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  fuseops.InodeID(de.ChildIno),
			Name:   de.Name,
			Type:   direntType(de.FileType),
		})
		if n == 0 {
			break
		}
		op.BytesRead += n
	}
	op.Respond(nil)
}

func (fs *FileSystem) ReleaseDirHandle(ctx context.Context, op *fuseops.ReleaseDirHandleOp) {
	fs.sessions.ReleaseDirByHandle(uint64(op.Handle))
	op.Respond(nil)
}
