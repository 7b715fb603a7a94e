package pgstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tmacam/dcrawl/internal/testutil"
)

func TestPgstoreRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	ns := testutil.RandomNamespace("pgstore")
	s := Open(db, testutil.StoreTable, ns)

	ok, err := s.Contains(ctx, "X")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "X", "1"))
	// Re-Set exercises the unique-violation-then-update path.
	require.NoError(t, s.Set(ctx, "X", "2"))

	value, ok, err := s.Get(ctx, "X")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", value)

	require.NoError(t, s.Delete(ctx, "X"))
	ok, err = s.Contains(ctx, "X")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestPgstoreNamespaceIsolation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	a := Open(db, testutil.StoreTable, testutil.RandomNamespace("a"))
	b := Open(db, testutil.StoreTable, testutil.RandomNamespace("b"))

	require.NoError(t, a.Set(ctx, "shared-key", "a-value"))

	ok, err := b.Contains(ctx, "shared-key")
	require.NoError(t, err)
	require.False(t, ok, "namespace b should not see namespace a's key")
}

func TestPgstoreIterateKeys(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	ctx := context.Background()
	s := Open(db, testutil.StoreTable, testutil.RandomNamespace("iter"))
	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, s.Set(ctx, k, "1"))
	}

	seen := map[string]bool{}
	err := s.IterateKeys(ctx, func(key string) error {
		seen[key] = true
		return nil
	})
	require.NoError(t, err)
	for _, k := range []string{"a", "b", "c"} {
		require.True(t, seen[k], "missing key %s", k)
	}
}
