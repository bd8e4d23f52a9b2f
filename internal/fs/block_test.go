package fs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/narumatt/sqlitefs/internal/clock"
	"github.com/narumatt/sqlitefs/internal/store"
)

func newTestStoreForFS(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:", clock.NewFakeClock(time.Unix(1700000000, 0).UTC()))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBlockOf(t *testing.T) {
	assert.Equal(t, int64(1), blockOf(0))
	assert.Equal(t, int64(1), blockOf(store.BlockSize-1))
	assert.Equal(t, int64(2), blockOf(store.BlockSize))
	assert.Equal(t, int64(2), blockOf(2*store.BlockSize-1))
}

func TestWriteDataThenReadDataRoundTrip(t *testing.T) {
	s := newTestStoreForFS(t)
	ino, err := s.AddInodeAndDentry(store.RootIno, "f", store.Attrs{Kind: store.KindRegular, Mode: 0o644})
	require.NoError(t, err)

	payload := []byte("hello, sqlitefs")
	require.NoError(t, writeData(s, ino, 0, payload))

	dst := make([]byte, len(payload))
	require.NoError(t, readData(s, ino, 0, dst))
	assert.Equal(t, payload, dst)
}

func TestWriteDataShortFinalBlockTailReadsAsZero(t *testing.T) {
	s := newTestStoreForFS(t)
	ino, err := s.AddInodeAndDentry(store.RootIno, "f", store.Attrs{Kind: store.KindRegular, Mode: 0o644})
	require.NoError(t, err)

	payload := make([]byte, store.BlockSize-1)
	for i := range payload {
		payload[i] = 'x'
	}
	require.NoError(t, writeData(s, ino, 0, payload))

	stored, err := s.GetData(ino, 1, store.BlockSize)
	require.NoError(t, err)
	// GetData zero-pads short reads, so the tail beyond the logical size comes
	// back as zero even though it was never stored.
	assert.Equal(t, byte(0), stored[store.BlockSize-1])
}

func TestWriteDataSpanningTwoBlocks(t *testing.T) {
	s := newTestStoreForFS(t)
	ino, err := s.AddInodeAndDentry(store.RootIno, "f", store.Attrs{Kind: store.KindRegular, Mode: 0o644})
	require.NoError(t, err)

	payload := make([]byte, store.BlockSize+10)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, writeData(s, ino, 0, payload))

	dst := make([]byte, len(payload))
	require.NoError(t, readData(s, ino, 0, dst))
	assert.Equal(t, payload, dst)
}

func TestWriteDataPartialOverwrite(t *testing.T) {
	s := newTestStoreForFS(t)
	ino, err := s.AddInodeAndDentry(store.RootIno, "f", store.Attrs{Kind: store.KindRegular, Mode: 0o644})
	require.NoError(t, err)

	require.NoError(t, writeData(s, ino, 0, []byte("0123456789")))
	require.NoError(t, writeData(s, ino, 2, []byte("XY")))

	dst := make([]byte, 10)
	require.NoError(t, readData(s, ino, 0, dst))
	assert.Equal(t, "01XY456789", string(dst))
}
