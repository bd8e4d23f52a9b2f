package store

// Kind encodes a metadata row's or dentry's file type as POSIX S_IF* bits
// shifted into the low 16 bits, matching the persisted on-disk encoding.
type Kind uint32

const (
	KindFIFO      Kind = 0o010000
	KindCharDev   Kind = 0o020000
	KindDirectory Kind = 0o040000
	KindBlockDev  Kind = 0o060000
	KindRegular   Kind = 0o100000
	KindSymlink   Kind = 0o120000
	KindSocket    Kind = 0o140000
)

// kindFromInt decodes a raw INTEGER column value; unknown values decode to
// a regular file per the persisted-format contract.
func kindFromInt(v int64) Kind {
	switch Kind(v) {
	case KindFIFO, KindCharDev, KindDirectory, KindBlockDev, KindRegular, KindSymlink, KindSocket:
		return Kind(v)
	default:
		return KindRegular
	}
}

const schema = `
CREATE TABLE IF NOT EXISTS metadata (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	size       INTEGER NOT NULL DEFAULT 0,
	atime      TEXT    NOT NULL,
	atime_nsec INTEGER NOT NULL DEFAULT 0,
	mtime      TEXT    NOT NULL,
	mtime_nsec INTEGER NOT NULL DEFAULT 0,
	ctime      TEXT    NOT NULL,
	ctime_nsec INTEGER NOT NULL DEFAULT 0,
	crtime     TEXT    NOT NULL,
	crtime_nsec INTEGER NOT NULL DEFAULT 0,
	kind       INTEGER NOT NULL,
	mode       INTEGER NOT NULL,
	uid        INTEGER NOT NULL DEFAULT 0,
	gid        INTEGER NOT NULL DEFAULT 0,
	rdev       INTEGER NOT NULL DEFAULT 0,
	flags      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS dentry (
	parent_id INTEGER NOT NULL,
	child_id  INTEGER NOT NULL,
	file_type INTEGER NOT NULL,
	name      TEXT    NOT NULL,
	PRIMARY KEY (parent_id, name),
	FOREIGN KEY (parent_id) REFERENCES metadata(id) ON DELETE CASCADE,
	FOREIGN KEY (child_id)  REFERENCES metadata(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS data (
	file_id   INTEGER NOT NULL,
	block_num INTEGER NOT NULL,
	data      BLOB    NOT NULL,
	PRIMARY KEY (file_id, block_num),
	FOREIGN KEY (file_id) REFERENCES metadata(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS xattr (
	file_id INTEGER NOT NULL,
	name    TEXT    NOT NULL,
	value   BLOB    NOT NULL,
	PRIMARY KEY (file_id, name),
	FOREIGN KEY (file_id) REFERENCES metadata(id) ON DELETE CASCADE
);
`

// RootIno is the inode number of the filesystem root; it is never deleted.
const RootIno = 1

// BlockSize is the fixed data-block size in bytes. Block numbering is
// 1-based: offset o lies in block o/BlockSize + 1.
const BlockSize = 4096
