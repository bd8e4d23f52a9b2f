package fs

import "github.com/narumatt/sqlitefs/internal/store"

// blockOf returns the 1-based block number containing byte offset off.
func blockOf(off int64) int64 {
	return off/store.BlockSize + 1
}

// readData reads [offset, offset+len(dst)) into dst, splicing together
// whatever blocks it covers and zero-padding absent or short blocks.
func readData(s *store.Store, ino int64, offset int64, dst []byte) error {
	if len(dst) == 0 {
		return nil
	}
	end := offset + int64(len(dst))
	for pos := offset; pos < end; {
		block := blockOf(pos)
		blockStart := (block - 1) * store.BlockSize
		inBlockOffset := pos - blockStart
		want := end - pos
		if want > store.BlockSize-inBlockOffset {
			want = store.BlockSize - inBlockOffset
		}

		full, err := s.GetData(ino, block, store.BlockSize)
		if err != nil {
			return err
		}
		copy(dst[pos-offset:], full[inBlockOffset:inBlockOffset+want])
		pos += want
	}
	return nil
}

// writeData writes data at offset, performing read-modify-write on any
// block it only partially covers. The final block of the resulting file is
// trimmed to its logical remainder so the tail is never stored padded.
func writeData(s *store.Store, ino int64, offset int64, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	attrs, err := s.GetInode(ino)
	if err != nil {
		return err
	}
	curSize := int64(0)
	if attrs != nil {
		curSize = attrs.Size
	}

	end := offset + int64(len(data))
	newFileSize := curSize
	if end > newFileSize {
		newFileSize = end
	}
	finalBlock := blockOf(newFileSize - 1)
	finalBlockLen := newFileSize - (finalBlock-1)*store.BlockSize

	for pos := offset; pos < end; {
		block := blockOf(pos)
		blockStart := (block - 1) * store.BlockSize
		inBlockOffset := pos - blockStart
		want := end - pos
		if want > store.BlockSize-inBlockOffset {
			want = store.BlockSize - inBlockOffset
		}

		newLogicalSize := blockStart + inBlockOffset + want

		var blockImage []byte
		if inBlockOffset == 0 && want == store.BlockSize {
			blockImage = data[pos-offset : pos-offset+want]
		} else {
			full, err := s.GetData(ino, block, store.BlockSize)
			if err != nil {
				return err
			}
			copy(full[inBlockOffset:inBlockOffset+want], data[pos-offset:pos-offset+want])
			blockImage = full
		}
		if block == finalBlock && int64(len(blockImage)) > finalBlockLen {
			blockImage = blockImage[:finalBlockLen]
		}

		if err := s.WriteData(ino, block, blockImage, newLogicalSize); err != nil {
			return err
		}
		pos += want
	}
	return nil
}
