package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Database {
	t.Helper()
	dir := t.TempDir()
	ldb, err := NewLevelDB(filepath.Join(dir, "leveldb"))
	require.NoError(t, err)
	bdb, err := NewBoltDB(filepath.Join(dir, "pool.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		ldb.Close()
		bdb.Close()
	})
	return map[string]Database{
		"memdb":   NewMemDB(),
		"leveldb": ldb,
		"boltdb":  bdb,
	}
}

func TestDatabaseRoundTrip(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put([]byte("k1"), []byte("v1")))

			value, err := db.Get([]byte("k1"))
			require.NoError(t, err)
			require.Equal(t, []byte("v1"), value)

			ok, err := db.Has([]byte("k1"))
			require.NoError(t, err)
			require.True(t, ok)

			require.NoError(t, db.Delete([]byte("k1")))
			ok, err = db.Has([]byte("k1"))
			require.NoError(t, err)
			require.False(t, ok)

			_, err = db.Get([]byte("k1"))
			require.ErrorIs(t, err, ErrKeyNotFound)
		})
	}
}

func TestDatabaseIteratePrefix(t *testing.T) {
	for name, db := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, db.Put([]byte("a/1"), []byte("1")))
			require.NoError(t, db.Put([]byte("a/2"), []byte("2")))
			require.NoError(t, db.Put([]byte("b/1"), []byte("3")))

			var keys []string
			require.NoError(t, db.IteratePrefix([]byte("a/"), func(key, value []byte) error {
				keys = append(keys, string(key))
				return nil
			}))
			require.Equal(t, []string{"a/1", "a/2"}, keys)
		})
	}
}
