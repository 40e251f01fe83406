package pebble

import (
	"sync/atomic"

	"github.com/cockroachdb/pebble"

	"github.com/eigerco/beaconoracle/pkg/db"
)

// Batch is an indexed pebble batch: reads observe the batch's own writes
// layered over the committed store.
type Batch struct {
	batch *pebble.Batch
	done  atomic.Bool
}

func (p *KVStore) NewBatch() db.Batch {
	return &Batch{
		batch: p.db.NewIndexedBatch(),
	}
}

func (b *Batch) Get(key []byte) ([]byte, error) {
	if b.done.Load() {
		return nil, ErrBatchDone
	}
	return get(b.batch, key)
}

func (b *Batch) NewIterator(start, end []byte) (db.Iterator, error) {
	if b.done.Load() {
		return nil, ErrBatchDone
	}
	return newIterator(b.batch, start, end, false)
}

func (b *Batch) NewReverseIterator(start, end []byte) (db.Iterator, error) {
	if b.done.Load() {
		return nil, ErrBatchDone
	}
	return newIterator(b.batch, start, end, true)
}

func (b *Batch) Put(key, value []byte) error {
	if b.done.Load() {
		return ErrBatchDone
	}
	return b.batch.Set(key, value, nil)
}

func (b *Batch) Delete(key []byte) error {
	if b.done.Load() {
		return ErrBatchDone
	}
	return b.batch.Delete(key, nil)
}

func (b *Batch) Commit() error {
	if b.done.Load() {
		return ErrBatchDone
	}
	if err := b.batch.Commit(pebble.Sync); err != nil {
		return err
	}
	b.done.Store(true)
	return b.batch.Close()
}

// Close discards the batch if it was not committed.
func (b *Batch) Close() error {
	if !b.done.CompareAndSwap(false, true) {
		return nil
	}
	return b.batch.Close()
}
