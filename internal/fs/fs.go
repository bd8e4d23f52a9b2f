// Package fs is the operation dispatcher: it implements fuseutil.FileSystem
// by translating each kernel upcall into storage-engine and session-layer
// calls, and maps storage errors back to POSIX error numbers.
package fs

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/jacobsa/timeutil"
	"golang.org/x/sys/unix"

	"github.com/narumatt/sqlitefs/internal/clock"
	"github.com/narumatt/sqlitefs/internal/logger"
	"github.com/narumatt/sqlitefs/internal/session"
	"github.com/narumatt/sqlitefs/internal/store"
)

// FileSystem implements fuseutil.FileSystem over a SQLite-backed store.
type FileSystem struct {
	fuseutil.NotImplementedFileSystem

	store    *store.Store
	sessions *session.Manager
	clock    clock.Clock

	// statfsDir is the directory statted to answer StatFS; it is the
	// directory holding the backing database file, or the mount point's
	// parent for an in-memory store.
	statfsDir string

	// cacheClock and attrCacheTTL control how long the kernel may cache the
	// attributes and directory entries handed back by a lookup, the same
	// role the teacher's CacheClock/InodeAttributeCacheTTL pair plays.
	cacheClock   timeutil.Clock
	attrCacheTTL time.Duration
}

// New wires a store and a fresh session manager into a FileSystem, running
// the mount-time orphan sweep described by the storage engine's lifecycle.
// statfsDir is the directory StatFS reports on; attrCacheTTL is how long the
// kernel is told it may cache attributes and directory entries.
func New(s *store.Store, clk clock.Clock, statfsDir string, attrCacheTTL time.Duration) *FileSystem {
	if err := s.DeleteAllNoRefInodes(); err != nil {
		logger.Warnf("startup orphan sweep failed: %v", err)
	}
	return &FileSystem{
		store:        s,
		sessions:     session.NewManager(),
		clock:        clk,
		statfsDir:    statfsDir,
		cacheClock:   timeutil.RealClock(),
		attrCacheTTL: attrCacheTTL,
	}
}

// expiration returns the instant, per the cache clock, until which the
// kernel may trust an attribute or directory-entry response without
// revalidating it.
func (fs *FileSystem) expiration() time.Time {
	return fs.cacheClock.Now().Add(fs.attrCacheTTL)
}

// Shutdown runs the unmount-time sweep: any inode the session layer still
// holds a lookup count for is retried against DeleteInodeIfNoRef, since its
// dentry may since have disappeared.
func (fs *FileSystem) Shutdown() {
	for _, ino := range fs.sessions.LookupInodes() {
		if err := fs.store.DeleteInodeIfNoRef(int64(ino)); err != nil {
			logger.Warnf("unmount sweep: inode %d: %v", ino, err)
		}
	}
}

func (fs *FileSystem) Init(ctx context.Context, op *fuseops.InitOp) {
	op.Respond(nil)
}

func (fs *FileSystem) Destroy() {
	fs.Shutdown()
}

// lookupAndRef performs a lookup and, on a hit, bumps the session lookup
// count the way every lookup-like operation (lookup, create, mkdir,
// symlink, link) is required to.
func (fs *FileSystem) lookupAndRef(parent int64, name string) (*store.Attrs, error) {
	attrs, err := fs.store.Lookup(parent, name)
	if err != nil {
		return nil, err
	}
	if attrs == nil {
		return nil, store.ErrNotFound
	}
	fs.sessions.IncRef(uint64(attrs.Ino))
	return attrs, nil
}

func (fs *FileSystem) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) {
	attrs, err := fs.lookupAndRef(int64(op.Parent), op.Name)
	if err == nil {
		op.Entry = fuseops.ChildInodeEntry{
			Child:                fuseops.InodeID(attrs.Ino),
			Attributes:           toInodeAttributes(attrs),
			AttributesExpiration: fs.expiration(),
			EntryExpiration:      fs.expiration(),
		}
	}
	op.Respond(toErrno(err))
}

func (fs *FileSystem) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) {
	attrs, err := fs.store.GetInode(int64(op.Inode))
	if err == nil && attrs == nil {
		err = store.ErrNotFound
	}
	if err == nil {
		op.Attributes = toInodeAttributes(attrs)
		op.AttributesExpiration = fs.expiration()
	}
	op.Respond(toErrno(err))
}

func (fs *FileSystem) SetInodeAttributes(ctx context.Context, op *fuseops.SetInodeAttributesOp) {
	err := fs.setInodeAttributes(op)
	op.Respond(toErrno(err))
}

func (fs *FileSystem) setInodeAttributes(op *fuseops.SetInodeAttributesOp) error {
	attrs, err := fs.store.GetInode(int64(op.Inode))
	if err != nil {
		return err
	}
	if attrs == nil {
		return store.ErrNotFound
	}

	oldSize := attrs.Size
	if op.Size != nil {
		attrs.Size = int64(*op.Size)
	}
	if op.Mode != nil {
		attrs.Mode = uint32(op.Mode.Perm())
	}
	if op.Atime != nil {
		attrs.Atime = *op.Atime
	}
	if op.Mtime != nil {
		attrs.Mtime = *op.Mtime
	}

	truncate := oldSize > attrs.Size
	if err := fs.store.UpdateInode(*attrs, truncate); err != nil {
		return err
	}

	refreshed, err := fs.store.GetInode(int64(op.Inode))
	if err != nil {
		return err
	}
	op.Attributes = toInodeAttributes(refreshed)
	return nil
}

func (fs *FileSystem) ForgetInode(ctx context.Context, op *fuseops.ForgetInodeOp) {
	if fs.sessions.Forget(uint64(op.Inode), uint64(op.N)) {
		if err := fs.store.DeleteInodeIfNoRef(int64(op.Inode)); err != nil {
			logger.Warnf("forget: delete inode %d: %v", op.Inode, err)
		}
	}
	op.Respond(nil)
}

// newChildTemplate builds the metadata template passed to
// AddInodeAndDentry, applying S_ISGID inheritance and S_ISVTX propagation
// from the parent per mkdir/create's documented behaviour.
func (fs *FileSystem) newChildTemplate(parent int64, kind store.Kind, mode os.FileMode, uid, gid uint32) (store.Attrs, error) {
	now := fs.clock.Now()
	perm := uint32(mode.Perm())

	parentAttrs, err := fs.store.GetInode(parent)
	if err != nil {
		return store.Attrs{}, err
	}
	if parentAttrs != nil {
		if parentAttrs.Mode&syscall.S_ISGID != 0 {
			perm |= syscall.S_ISGID
			gid = parentAttrs.Gid
		}
		if kind == store.KindDirectory && parentAttrs.Mode&syscall.S_ISVTX != 0 {
			perm |= syscall.S_ISVTX
		}
	}

	return store.Attrs{
		Kind: kind, Mode: perm, Uid: uid, Gid: gid,
		Atime: now, Mtime: now, Ctime: now, Crtime: now,
	}, nil
}

// opUidGid extracts the calling process's uid/gid from the request context,
// the way every creating operation stamps ownership onto a new inode.
func opUidGid(ctx context.Context) (uint32, uint32) {
	oc, ok := fuseops.OpContextFromContext(ctx)
	if !ok {
		return 0, 0
	}
	return oc.Uid, oc.Gid
}

func (fs *FileSystem) MkDir(ctx context.Context, op *fuseops.MkDirOp) {
	uid, gid := opUidGid(ctx)
	tmpl, err := fs.newChildTemplate(int64(op.Parent), store.KindDirectory, op.Mode, uid, gid)
	var ino int64
	if err == nil {
		ino, err = fs.store.AddInodeAndDentry(int64(op.Parent), op.Name, tmpl)
	}
	if err == nil {
		var attrs *store.Attrs
		attrs, err = fs.lookupAndRef(int64(op.Parent), op.Name)
		if err == nil {
			op.Entry = fuseops.ChildInodeEntry{
				Child: fuseops.InodeID(ino), Attributes: toInodeAttributes(attrs),
				AttributesExpiration: fs.expiration(), EntryExpiration: fs.expiration(),
			}
		}
	}
	op.Respond(toErrno(err))
}

func (fs *FileSystem) CreateFile(ctx context.Context, op *fuseops.CreateFileOp) {
	err := fs.createFile(ctx, op)
	op.Respond(toErrno(err))
}

// createFile is a lookup-or-create operation: an existing name is not an
// error, its attributes are simply returned (with the lookup count bumped
// as for any other lookup hit).
func (fs *FileSystem) createFile(ctx context.Context, op *fuseops.CreateFileOp) error {
	uid, gid := opUidGid(ctx)
	tmpl, err := fs.newChildTemplate(int64(op.Parent), store.KindRegular, op.Mode, uid, gid)
	if err != nil {
		return err
	}

	ino, err := fs.store.AddInodeAndDentry(int64(op.Parent), op.Name, tmpl)
	if err != nil && err != store.ErrAlreadyExists {
		return err
	}

	attrs, err := fs.lookupAndRef(int64(op.Parent), op.Name)
	if err != nil {
		return err
	}
	if ino == 0 {
		ino = attrs.Ino
	}

	fh := fs.sessions.OpenFile(uint64(ino), session.OpenFileStat{})
	op.Entry = fuseops.ChildInodeEntry{
		Child: fuseops.InodeID(ino), Attributes: toInodeAttributes(attrs),
		AttributesExpiration: fs.expiration(), EntryExpiration: fs.expiration(),
	}
	op.Handle = fuseops.HandleID(fh)
	return nil
}

func (fs *FileSystem) CreateSymlink(ctx context.Context, op *fuseops.CreateSymlinkOp) {
	err := fs.createSymlink(ctx, op)
	op.Respond(toErrno(err))
}

func (fs *FileSystem) createSymlink(ctx context.Context, op *fuseops.CreateSymlinkOp) error {
	if len(op.Target) > store.BlockSize {
		return store.ErrNameTooLong
	}
	uid, gid := opUidGid(ctx)
	tmpl, err := fs.newChildTemplate(int64(op.Parent), store.KindSymlink, 0o777, uid, gid)
	if err != nil {
		return err
	}
	ino, err := fs.store.AddInodeAndDentry(int64(op.Parent), op.Name, tmpl)
	if err != nil {
		return err
	}
	if err := fs.store.WriteData(ino, 1, []byte(op.Target), int64(len(op.Target))); err != nil {
		return err
	}
	attrs, err := fs.lookupAndRef(int64(op.Parent), op.Name)
	if err != nil {
		return err
	}
	op.Entry = fuseops.ChildInodeEntry{
		Child: fuseops.InodeID(ino), Attributes: toInodeAttributes(attrs),
		AttributesExpiration: fs.expiration(), EntryExpiration: fs.expiration(),
	}
	return nil
}

func (fs *FileSystem) CreateLink(ctx context.Context, op *fuseops.CreateLinkOp) {
	attrs, err := fs.store.LinkDentry(int64(op.Target), int64(op.Parent), op.Name)
	if err == nil {
		fs.sessions.IncRef(uint64(attrs.Ino))
		op.Entry = fuseops.ChildInodeEntry{
			Child: fuseops.InodeID(attrs.Ino), Attributes: toInodeAttributes(attrs),
			AttributesExpiration: fs.expiration(), EntryExpiration: fs.expiration(),
		}
	}
	op.Respond(toErrno(err))
}

func (fs *FileSystem) ReadSymlink(ctx context.Context, op *fuseops.ReadSymlinkOp) {
	attrs, err := fs.store.GetInode(int64(op.Inode))
	if err == nil && (attrs == nil) {
		err = store.ErrNotFound
	}
	if err == nil && attrs.Kind != store.KindSymlink {
		err = store.ErrInvalidOperation
	}
	if err == nil {
		b, gerr := fs.store.GetData(int64(op.Inode), 1, int(attrs.Size))
		if gerr != nil {
			err = gerr
		} else {
			op.Target = string(b)
		}
	}
	op.Respond(toErrno(err))
}

func (fs *FileSystem) Rename(ctx context.Context, op *fuseops.RenameOp) {
	overwritten, err := fs.store.MoveDentry(int64(op.OldParent), op.OldName, int64(op.NewParent), op.NewName)
	if err == nil && overwritten != nil && !fs.sessions.HasLookup(uint64(*overwritten)) {
		if derr := fs.store.DeleteInodeIfNoRef(*overwritten); derr != nil {
			logger.Warnf("rename: delete overwritten inode %d: %v", *overwritten, derr)
		}
	}
	op.Respond(toErrno(err))
}

func (fs *FileSystem) RmDir(ctx context.Context, op *fuseops.RmDirOp) {
	err := fs.rmDir(op)
	op.Respond(toErrno(err))
}

func (fs *FileSystem) rmDir(op *fuseops.RmDirOp) error {
	attrs, err := fs.store.Lookup(int64(op.Parent), op.Name)
	if err != nil {
		return err
	}
	if attrs == nil {
		return store.ErrNotFound
	}
	empty, err := fs.store.CheckDirectoryIsEmpty(attrs.Ino)
	if err != nil {
		return err
	}
	if !empty {
		return store.ErrNotEmpty
	}
	childIno, err := fs.store.DeleteDentry(int64(op.Parent), op.Name)
	if err != nil {
		return err
	}
	if !fs.sessions.HasLookup(uint64(childIno)) {
		return fs.store.DeleteInodeIfNoRef(childIno)
	}
	return nil
}

func (fs *FileSystem) Unlink(ctx context.Context, op *fuseops.UnlinkOp) {
	childIno, err := fs.store.DeleteDentry(int64(op.Parent), op.Name)
	if err == nil && !fs.sessions.HasLookup(uint64(childIno)) {
		if derr := fs.store.DeleteInodeIfNoRef(childIno); derr != nil {
			logger.Warnf("unlink: delete inode %d: %v", childIno, derr)
		}
	}
	op.Respond(toErrno(err))
}

// StatFS reports the free space and inode counts of the filesystem backing
// the database file, rather than invented constants, so df and friends see
// the real underlying disk.
func (fs *FileSystem) StatFS(ctx context.Context, op *fuseops.StatFSOp) {
	var st unix.Statfs_t
	if err := unix.Statfs(fs.statfsDir, &st); err != nil {
		logger.Warnf("statfs %q: %v", fs.statfsDir, err)
		op.BlockSize = store.BlockSize
		op.IoSize = store.BlockSize
		op.Respond(nil)
		return
	}

	op.BlockSize = store.BlockSize
	op.IoSize = store.BlockSize
	// st.Bsize is the host filesystem's block size, which may differ from
	// our own fixed BlockSize; rescale the block counts accordingly.
	bsize := uint64(st.Bsize)
	op.Blocks = uint64(st.Blocks) * bsize / store.BlockSize
	op.BlocksFree = uint64(st.Bfree) * bsize / store.BlockSize
	op.BlocksAvailable = uint64(st.Bavail) * bsize / store.BlockSize
	op.Inodes = st.Files
	op.InodesFree = st.Ffree
	op.Respond(nil)
}
