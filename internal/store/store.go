// Package store implements the relational storage engine: the mapping of
// inode, directory-entry, data-block and extended-attribute state onto a
// SQLite-backed schema. Every multi-statement operation commits as one
// transaction; no SQL leaks past this package's method boundary.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/narumatt/sqlitefs/internal/clock"
)

// Store is the storage engine. The underlying *sql.DB is capped at one open
// connection so that SQLite's own locking, combined with foreign_keys
// enforcement, gives us the "one writer, serialised transactions" model the
// filesystem depends on.
type Store struct {
	db    *sql.DB
	clock clock.Clock
}

// Open creates or opens the database at dsn ("file:path.db" or ":memory:"),
// enables foreign-key enforcement, creates the schema if absent, and
// ensures the root inode exists. Re-opening an existing file is idempotent.
func Open(dsn string, clk clock.Clock) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	s := &Store{db: db, clock: clk}
	if err := s.ensureRoot(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureRoot() error {
	now := s.clock.Now()
	sec, nsec := encodeTime(now)
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO metadata
			(id, size, atime, atime_nsec, mtime, mtime_nsec, ctime, ctime_nsec,
			 crtime, crtime_nsec, kind, mode, uid, gid, rdev, flags)
		 VALUES (?, 0, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 0, 0)`,
		RootIno, sec, nsec, sec, nsec, sec, nsec, sec, nsec, KindDirectory, 0o40777)
	if err != nil {
		return fmt.Errorf("store: ensure root: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT OR IGNORE INTO dentry (parent_id, child_id, file_type, name) VALUES (?, ?, ?, '.')`,
		RootIno, RootIno, KindDirectory)
	if err != nil {
		return fmt.Errorf("store: ensure root dot: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT OR IGNORE INTO dentry (parent_id, child_id, file_type, name) VALUES (?, ?, ?, '..')`,
		RootIno, RootIno, KindDirectory)
	if err != nil {
		return fmt.Errorf("store: ensure root dotdot: %w", err)
	}
	return nil
}

// GetDBBlockSize reports the fixed data-block size.
func (s *Store) GetDBBlockSize() int64 {
	return BlockSize
}

const attrsSelect = `
	SELECT m.id, m.size, m.kind, m.mode, m.uid, m.gid, m.rdev, m.flags,
	       m.atime, m.atime_nsec, m.mtime, m.mtime_nsec,
	       m.ctime, m.ctime_nsec, m.crtime, m.crtime_nsec,
	       (SELECT COUNT(*) FROM dentry WHERE child_id = m.id) AS nlink,
	       (SELECT COUNT(*) FROM data WHERE file_id = m.id) AS blocks
	FROM metadata m`

func scanAttrs(row interface{ Scan(...any) error }) (*Attrs, error) {
	var a Attrs
	var kind int64
	var atime, mtime, ctime, crtime string
	var atimeNsec, mtimeNsec, ctimeNsec, crtimeNsec int64
	err := row.Scan(
		&a.Ino, &a.Size, &kind, &a.Mode, &a.Uid, &a.Gid, &a.Rdev, &a.Flags,
		&atime, &atimeNsec, &mtime, &mtimeNsec,
		&ctime, &ctimeNsec, &crtime, &crtimeNsec,
		&a.Nlink, &a.Blocks,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.Kind = kindFromInt(kind)
	a.Atime = decodeTime(atime, atimeNsec)
	a.Mtime = decodeTime(mtime, mtimeNsec)
	a.Ctime = decodeTime(ctime, ctimeNsec)
	a.Crtime = decodeTime(crtime, crtimeNsec)
	return &a, nil
}

// GetInode returns the inode's attributes, or (nil, nil) if it does not exist.
func (s *Store) GetInode(ino int64) (*Attrs, error) {
	row := s.db.QueryRow(attrsSelect+" WHERE m.id = ?", ino)
	return scanAttrs(row)
}

// AddInodeAndDentry creates a new inode and links it under parent/name. For
// directories the self-referential "." and ".." entries are created in the
// same transaction.
func (s *Store) AddInodeAndDentry(parent int64, name string, tmpl Attrs) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var exists int64
	err = tx.QueryRow(`SELECT 1 FROM dentry WHERE parent_id = ? AND name = ?`, parent, name).Scan(&exists)
	if err == nil {
		return 0, ErrAlreadyExists
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	asec, ansec := encodeTime(tmpl.Atime)
	msec, mnsec := encodeTime(tmpl.Mtime)
	csec, cnsec := encodeTime(tmpl.Ctime)
	rsec, rnsec := encodeTime(tmpl.Crtime)

	res, err := tx.Exec(
		`INSERT INTO metadata
			(size, atime, atime_nsec, mtime, mtime_nsec, ctime, ctime_nsec,
			 crtime, crtime_nsec, kind, mode, uid, gid, rdev, flags)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tmpl.Size, asec, ansec, msec, mnsec, csec, cnsec, rsec, rnsec,
		tmpl.Kind, tmpl.Mode, tmpl.Uid, tmpl.Gid, tmpl.Rdev, tmpl.Flags)
	if err != nil {
		return 0, err
	}
	newIno, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(
		`INSERT INTO dentry (parent_id, child_id, file_type, name) VALUES (?, ?, ?, ?)`,
		parent, newIno, tmpl.Kind, name); err != nil {
		return 0, err
	}

	if tmpl.Kind == KindDirectory {
		if _, err := tx.Exec(
			`INSERT INTO dentry (parent_id, child_id, file_type, name) VALUES (?, ?, ?, '.')`,
			newIno, newIno, KindDirectory); err != nil {
			return 0, err
		}
		if _, err := tx.Exec(
			`INSERT INTO dentry (parent_id, child_id, file_type, name) VALUES (?, ?, ?, '..')`,
			newIno, parent, KindDirectory); err != nil {
			return 0, err
		}
	}

	now := s.clock.Now()
	nsec, nnsec := encodeTime(now)
	if _, err := tx.Exec(
		`UPDATE metadata SET mtime = ?, mtime_nsec = ?, ctime = ?, ctime_nsec = ? WHERE id = ?`,
		nsec, nnsec, nsec, nnsec, parent); err != nil {
		return 0, err
	}

	return newIno, tx.Commit()
}

// UpdateInode overwrites the caller-supplied attribute fields. If truncate
// is set, data blocks beyond the new logical size are discarded and the new
// final block is trimmed.
func (s *Store) UpdateInode(attrs Attrs, truncate bool) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var oldSize int64
	err = tx.QueryRow(`SELECT size FROM metadata WHERE id = ?`, attrs.Ino).Scan(&oldSize)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	now := s.clock.Now()
	mtime := attrs.Mtime
	if attrs.Size != oldSize {
		mtime = now
	}
	ctime := now

	asec, ansec := encodeTime(attrs.Atime)
	msec, mnsec := encodeTime(mtime)
	csec, cnsec := encodeTime(ctime)
	rsec, rnsec := encodeTime(attrs.Crtime)

	_, err = tx.Exec(
		`UPDATE metadata SET
			size = ?, atime = ?, atime_nsec = ?, mtime = ?, mtime_nsec = ?,
			ctime = ?, ctime_nsec = ?, crtime = ?, crtime_nsec = ?,
			mode = ?, uid = ?, gid = ?, rdev = ?, flags = ?
		 WHERE id = ?`,
		attrs.Size, asec, ansec, msec, mnsec, csec, cnsec, rsec, rnsec,
		attrs.Mode, attrs.Uid, attrs.Gid, attrs.Rdev, attrs.Flags, attrs.Ino)
	if err != nil {
		return err
	}

	if truncate {
		lastBlock := int64(0)
		if attrs.Size > 0 {
			lastBlock = (attrs.Size + BlockSize - 1) / BlockSize
		}
		if _, err := tx.Exec(
			`DELETE FROM data WHERE file_id = ? AND block_num > ?`,
			attrs.Ino, lastBlock); err != nil {
			return err
		}
		if remainder := attrs.Size % BlockSize; remainder != 0 && lastBlock > 0 {
			var b []byte
			err := tx.QueryRow(
				`SELECT data FROM data WHERE file_id = ? AND block_num = ?`,
				attrs.Ino, lastBlock).Scan(&b)
			if err == nil && int64(len(b)) > remainder {
				if _, err := tx.Exec(
					`UPDATE data SET data = ? WHERE file_id = ? AND block_num = ?`,
					b[:remainder], attrs.Ino, lastBlock); err != nil {
					return err
				}
			} else if err != nil && err != sql.ErrNoRows {
				return err
			}
		}
	}

	return tx.Commit()
}

// DeleteInodeIfNoRef deletes the inode's metadata row (cascading to data,
// dentries and xattrs) iff no dentry references it. The root inode is never
// deleted through this path.
func (s *Store) DeleteInodeIfNoRef(ino int64) error {
	if ino == RootIno {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var count int64
	if err := tx.QueryRow(`SELECT COUNT(*) FROM dentry WHERE child_id = ?`, ino).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return tx.Commit()
	}
	if _, err := tx.Exec(`DELETE FROM metadata WHERE id = ?`, ino); err != nil {
		return err
	}
	return tx.Commit()
}

// GetDentries lists a directory's entries ordered by name.
func (s *Store) GetDentries(parent int64) ([]Dentry, error) {
	rows, err := s.db.Query(
		`SELECT parent_id, child_id, file_type, name FROM dentry WHERE parent_id = ? ORDER BY name ASC`,
		parent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Dentry
	for rows.Next() {
		var d Dentry
		var ft int64
		if err := rows.Scan(&d.ParentIno, &d.ChildIno, &ft, &d.Name); err != nil {
			return nil, err
		}
		d.FileType = kindFromInt(ft)
		out = append(out, d)
	}
	return out, rows.Err()
}

// LinkDentry creates an additional name for an existing regular file.
func (s *Store) LinkDentry(ino, newParent int64, newName string) (*Attrs, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var kindRaw int64
	if err := tx.QueryRow(`SELECT kind FROM metadata WHERE id = ?`, ino).Scan(&kindRaw); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if kindFromInt(kindRaw) != KindRegular {
		return nil, ErrInvalidOperation
	}

	var exists int64
	err = tx.QueryRow(`SELECT 1 FROM dentry WHERE parent_id = ? AND name = ?`, newParent, newName).Scan(&exists)
	if err == nil {
		return nil, ErrAlreadyExists
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	if _, err := tx.Exec(
		`INSERT INTO dentry (parent_id, child_id, file_type, name) VALUES (?, ?, ?, ?)`,
		newParent, ino, KindRegular, newName); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	sec, nsec := encodeTime(now)
	if _, err := tx.Exec(`UPDATE metadata SET mtime = ?, mtime_nsec = ? WHERE id = ?`, sec, nsec, ino); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(
		`UPDATE metadata SET mtime = ?, mtime_nsec = ?, ctime = ?, ctime_nsec = ? WHERE id = ?`,
		sec, nsec, sec, nsec, newParent); err != nil {
		return nil, err
	}

	row := tx.QueryRow(attrsSelect+" WHERE m.id = ?", ino)
	attrs, err := scanAttrs(row)
	if err != nil {
		return nil, err
	}
	return attrs, tx.Commit()
}

// DeleteDentry removes the named entry (and, if it is a directory, its own
// "." and ".." entries) without deleting the inode itself.
func (s *Store) DeleteDentry(parent int64, name string) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var childIno int64
	err = tx.QueryRow(`SELECT child_id FROM dentry WHERE parent_id = ? AND name = ?`, parent, name).Scan(&childIno)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}

	if _, err := tx.Exec(`DELETE FROM dentry WHERE parent_id = ? AND name = ?`, parent, name); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(`DELETE FROM dentry WHERE parent_id = ?`, childIno); err != nil {
		return 0, err
	}

	now := s.clock.Now()
	sec, nsec := encodeTime(now)
	if _, err := tx.Exec(`UPDATE metadata SET ctime = ?, ctime_nsec = ? WHERE id = ?`, sec, nsec, childIno); err != nil {
		return 0, err
	}
	if _, err := tx.Exec(
		`UPDATE metadata SET mtime = ?, mtime_nsec = ?, ctime = ?, ctime_nsec = ? WHERE id = ?`,
		sec, nsec, sec, nsec, parent); err != nil {
		return 0, err
	}

	return childIno, tx.Commit()
}

// CheckDirectoryIsEmpty reports whether ino has any entries besides "." and "..".
func (s *Store) CheckDirectoryIsEmpty(ino int64) (bool, error) {
	var count int64
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM dentry WHERE parent_id = ? AND name NOT IN ('.', '..')`, ino).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// MoveDentry is an atomic POSIX rename. It returns the inode number of an
// overwritten destination, if any.
func (s *Store) MoveDentry(parent int64, name string, newParent int64, newName string) (*int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var srcChild, srcKindRaw int64
	err = tx.QueryRow(
		`SELECT child_id, file_type FROM dentry WHERE parent_id = ? AND name = ?`,
		parent, name).Scan(&srcChild, &srcKindRaw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	srcKind := kindFromInt(srcKindRaw)

	var overwritten *int64
	var destChild, destKindRaw int64
	err = tx.QueryRow(
		`SELECT child_id, file_type FROM dentry WHERE parent_id = ? AND name = ?`,
		newParent, newName).Scan(&destChild, &destKindRaw)
	switch {
	case err == nil:
		destKind := kindFromInt(destKindRaw)
		if destKind != srcKind {
			if destKind == KindDirectory {
				return nil, ErrIsDir
			}
			if srcKind == KindDirectory {
				return nil, ErrIsNotDir
			}
		}
		if srcKind == KindDirectory {
			empty, err := s.checkDirectoryIsEmptyTx(tx, destChild)
			if err != nil {
				return nil, err
			}
			if !empty {
				return nil, ErrNotEmpty
			}
		}
		if _, err := tx.Exec(`DELETE FROM dentry WHERE parent_id = ? AND name = ?`, newParent, newName); err != nil {
			return nil, err
		}
		if _, err := tx.Exec(`DELETE FROM dentry WHERE parent_id = ?`, destChild); err != nil {
			return nil, err
		}
		overwritten = &destChild
	case err == sql.ErrNoRows:
		// no destination, nothing to overwrite
	default:
		return nil, err
	}

	if _, err := tx.Exec(
		`UPDATE dentry SET parent_id = ?, name = ? WHERE parent_id = ? AND name = ?`,
		newParent, newName, parent, name); err != nil {
		return nil, err
	}

	if srcKind == KindDirectory && newParent != parent {
		if _, err := tx.Exec(
			`UPDATE dentry SET child_id = ? WHERE parent_id = ? AND name = '..'`,
			newParent, srcChild); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	sec, nsec := encodeTime(now)
	if _, err := tx.Exec(`UPDATE metadata SET ctime = ?, ctime_nsec = ? WHERE id = ?`, sec, nsec, srcChild); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(
		`UPDATE metadata SET mtime = ?, mtime_nsec = ?, ctime = ?, ctime_nsec = ? WHERE id = ?`,
		sec, nsec, sec, nsec, parent); err != nil {
		return nil, err
	}
	if newParent != parent {
		if _, err := tx.Exec(
			`UPDATE metadata SET mtime = ?, mtime_nsec = ?, ctime = ?, ctime_nsec = ? WHERE id = ?`,
			sec, nsec, sec, nsec, newParent); err != nil {
			return nil, err
		}
	}

	return overwritten, tx.Commit()
}

func (s *Store) checkDirectoryIsEmptyTx(tx *sql.Tx, ino int64) (bool, error) {
	var count int64
	err := tx.QueryRow(
		`SELECT COUNT(*) FROM dentry WHERE parent_id = ? AND name NOT IN ('.', '..')`, ino).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// Lookup resolves parent/name and bumps the parent's atime. A nil Attrs
// with a nil error means the name does not exist.
func (s *Store) Lookup(parent int64, name string) (*Attrs, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(attrsSelect+`
		JOIN dentry d ON d.child_id = m.id
		WHERE d.parent_id = ? AND d.name = ?`, parent, name)
	attrs, err := scanAttrs(row)
	if err != nil {
		return nil, err
	}
	if attrs == nil {
		return nil, tx.Commit()
	}

	now := s.clock.Now()
	sec, nsec := encodeTime(now)
	if _, err := tx.Exec(`UPDATE metadata SET atime = ?, atime_nsec = ? WHERE id = ?`, sec, nsec, parent); err != nil {
		return nil, err
	}

	return attrs, tx.Commit()
}

// GetData reads one block, zero-padded to length if absent or short.
func (s *Store) GetData(ino, blockNum int64, length int) ([]byte, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var b []byte
	err = tx.QueryRow(`SELECT data FROM data WHERE file_id = ? AND block_num = ?`, ino, blockNum).Scan(&b)
	out := make([]byte, length)
	if err == nil {
		copy(out, b)
	} else if err != sql.ErrNoRows {
		return nil, err
	}

	now := s.clock.Now()
	sec, nsec := encodeTime(now)
	if _, err := tx.Exec(`UPDATE metadata SET atime = ?, atime_nsec = ? WHERE id = ?`, sec, nsec, ino); err != nil {
		return nil, err
	}

	return out, tx.Commit()
}

// WriteData upserts one block and grows size if newLogicalSize exceeds it.
func (s *Store) WriteData(ino, blockNum int64, data []byte, newLogicalSize int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO data (file_id, block_num, data) VALUES (?, ?, ?)
		 ON CONFLICT(file_id, block_num) DO UPDATE SET data = excluded.data`,
		ino, blockNum, data); err != nil {
		return err
	}

	var size int64
	if err := tx.QueryRow(`SELECT size FROM metadata WHERE id = ?`, ino).Scan(&size); err != nil {
		return err
	}

	now := s.clock.Now()
	sec, nsec := encodeTime(now)
	if newLogicalSize > size {
		if _, err := tx.Exec(
			`UPDATE metadata SET size = ?, mtime = ?, mtime_nsec = ?, ctime = ?, ctime_nsec = ? WHERE id = ?`,
			newLogicalSize, sec, nsec, sec, nsec, ino); err != nil {
			return err
		}
	} else {
		if _, err := tx.Exec(
			`UPDATE metadata SET mtime = ?, mtime_nsec = ?, ctime = ?, ctime_nsec = ? WHERE id = ?`,
			sec, nsec, sec, nsec, ino); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ReleaseData deletes all data rows for an inode. Not called by the
// dispatcher; truncation goes through UpdateInode. Kept for completeness.
func (s *Store) ReleaseData(ino int64) error {
	_, err := s.db.Exec(`DELETE FROM data WHERE file_id = ?`, ino)
	return err
}

// DeleteAllNoRefInodes is the mount-time sweep: it removes every inode
// (other than root) with no surviving dentry.
func (s *Store) DeleteAllNoRefInodes() error {
	_, err := s.db.Exec(
		`DELETE FROM metadata WHERE id != ? AND id NOT IN (SELECT DISTINCT child_id FROM dentry)`,
		RootIno)
	return err
}

// SetXattr upserts a named extended attribute and bumps ctime.
func (s *Store) SetXattr(ino int64, key string, value []byte) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO xattr (file_id, name, value) VALUES (?, ?, ?)
		 ON CONFLICT(file_id, name) DO UPDATE SET value = excluded.value`,
		ino, key, value); err != nil {
		return err
	}

	now := s.clock.Now()
	sec, nsec := encodeTime(now)
	if _, err := tx.Exec(`UPDATE metadata SET ctime = ?, ctime_nsec = ? WHERE id = ?`, sec, nsec, ino); err != nil {
		return err
	}

	return tx.Commit()
}

// GetXattr returns the value for key, or ErrNotFound.
func (s *Store) GetXattr(ino int64, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRow(`SELECT value FROM xattr WHERE file_id = ? AND name = ?`, ino, key).Scan(&v)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ListXattr returns the attribute names for ino, ordered by name.
func (s *Store) ListXattr(ino int64) ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM xattr WHERE file_id = ? ORDER BY name ASC`, ino)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// DeleteXattr removes a named extended attribute and bumps ctime.
func (s *Store) DeleteXattr(ino int64, key string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM xattr WHERE file_id = ? AND name = ?`, ino, key)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	now := s.clock.Now()
	sec, nsec := encodeTime(now)
	if _, err := tx.Exec(`UPDATE metadata SET ctime = ?, ctime_nsec = ? WHERE id = ?`, sec, nsec, ino); err != nil {
		return err
	}

	return tx.Commit()
}
