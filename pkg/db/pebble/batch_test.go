package pebble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/beaconoracle/pkg/db"
)

func TestBatch(t *testing.T) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store db.KVStore)
	}{
		{
			name: "basic_batch_operations",
			fn:   testBasicBatchOperations,
		},
		{
			name: "batch_reads_own_writes",
			fn:   testBatchReadsOwnWrites,
		},
		{
			name: "batch_discarded_on_close",
			fn:   testBatchDiscardedOnClose,
		},
		{
			name: "batch_commit_closure",
			fn:   testBatchCommitAndClose,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store, err := NewKVStore()
			require.NoError(t, err)
			defer store.Close() //nolint:errcheck

			tc.fn(t, store)
		})
	}
}

func testBasicBatchOperations(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()
	defer batch.Close() //nolint:errcheck

	keys := [][]byte{[]byte("key1"), []byte("key2"), []byte("key3")}
	values := [][]byte{[]byte("value1"), []byte("value2"), []byte("value3")}

	for i := range keys {
		require.NoError(t, batch.Put(keys[i], values[i]))
	}

	// Delete one key in the same batch
	require.NoError(t, batch.Delete(keys[1]))

	// Nothing is visible before commit
	_, err := store.Get(keys[0])
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, batch.Commit())

	val1, err := store.Get(keys[0])
	require.NoError(t, err)
	assert.Equal(t, values[0], val1)

	_, err = store.Get(keys[1])
	assert.ErrorIs(t, err, ErrNotFound)

	val3, err := store.Get(keys[2])
	require.NoError(t, err)
	assert.Equal(t, values[2], val3)
}

func testBatchReadsOwnWrites(t *testing.T, store db.KVStore) {
	require.NoError(t, store.Put([]byte("a"), []byte("committed")))

	batch := store.NewBatch()
	defer batch.Close() //nolint:errcheck

	require.NoError(t, batch.Put([]byte("b"), []byte("pending")))
	require.NoError(t, batch.Delete([]byte("a")))

	val, err := batch.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("pending"), val)

	_, err = batch.Get([]byte("a"))
	assert.ErrorIs(t, err, ErrNotFound)

	iter, err := batch.NewIterator(nil, nil)
	require.NoError(t, err)
	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	require.NoError(t, iter.Close())
	assert.Equal(t, []string{"b"}, keys)

	// The committed view is untouched
	val, err = store.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("committed"), val)
}

func testBatchDiscardedOnClose(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()
	require.NoError(t, batch.Put([]byte("key"), []byte("value")))
	require.NoError(t, batch.Close())

	_, err := store.Get([]byte("key"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = batch.Get([]byte("key"))
	assert.ErrorIs(t, err, ErrBatchDone)
}

func testBatchCommitAndClose(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()

	require.NoError(t, batch.Put([]byte("key"), []byte("value")))
	require.NoError(t, batch.Commit())

	// Operations after commit should fail
	err := batch.Put([]byte("key2"), []byte("value2"))
	assert.ErrorIs(t, err, ErrBatchDone)

	err = batch.Delete([]byte("key2"))
	assert.ErrorIs(t, err, ErrBatchDone)

	err = batch.Commit()
	assert.ErrorIs(t, err, ErrBatchDone)

	// Close after commit is a no-op, twice
	assert.NoError(t, batch.Close())
	assert.NoError(t, batch.Close())
}
