package store

import "time"

// Attrs is the full set of inode attributes the store hands back to
// callers: the stored metadata row plus the two aggregates (link count,
// block count) that are never themselves persisted.
type Attrs struct {
	Ino    int64
	Size   int64
	Kind   Kind
	Mode   uint32
	Uid    uint32
	Gid    uint32
	Rdev   uint32
	Flags  uint32
	Atime  time.Time
	Mtime  time.Time
	Ctime  time.Time
	Crtime time.Time
	// Nlink is count of dentries whose child_id equals Ino. Derived on
	// every read, never stored.
	Nlink uint32
	// Blocks is the number of rows in the data table for this inode,
	// derived on every read.
	Blocks uint64
}

// Dentry is one directory-entry row.
type Dentry struct {
	ParentIno int64
	Name      string
	ChildIno  int64
	FileType  Kind
}

const timeLayout = "2006-01-02 15:04:05"

var epochZero = time.Unix(0, 0).UTC()

// encodeTime splits t into the persisted text-seconds + integer-nanosecond
// representation, collapsing any time before the UNIX epoch to epoch zero.
func encodeTime(t time.Time) (string, int64) {
	if t.Before(epochZero) {
		t = epochZero
	}
	return t.UTC().Format(timeLayout), int64(t.Nanosecond())
}

func decodeTime(s string, nsec int64) time.Time {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return epochZero
	}
	return t.Add(time.Duration(nsec)).UTC()
}
