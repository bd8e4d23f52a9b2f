package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jacobsa/syncutil"
	"github.com/stretchr/testify/require"

	"github.com/narumatt/sqlitefs/internal/store"
)

// TestConcurrentCreatesAreSerialized hammers a single store from many
// goroutines at once, the way the stress suite this was modelled on hammers
// a mounted file system, and checks that the single-connection database
// never corrupts its own bookkeeping under concurrent writers.
func TestConcurrentCreatesAreSerialized(t *testing.T) {
	s, _ := newTestStore(t)

	const numWorkers = 16
	b := syncutil.NewBundle(context.Background())
	for i := 0; i < numWorkers; i++ {
		name := fmt.Sprintf("file-%s", uuid.NewString())
		b.Add(func(ctx context.Context) error {
			_, err := s.AddInodeAndDentry(store.RootIno, name, store.Attrs{Kind: store.KindRegular, Mode: 0o644})
			return err
		})
	}
	require.NoError(t, b.Join())

	entries, err := s.GetDentries(store.RootIno)
	require.NoError(t, err)

	count := 0
	for _, e := range entries {
		if e.Name != "." && e.Name != ".." {
			count++
		}
	}
	require.Equal(t, numWorkers, count)
}
