// Package store keeps the durable oracle state in a key-value store: the
// configuration, the beacon archive, the per-round job queues, submissions,
// registered bots and the whitelist.
package store

import (
	"errors"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/eigerco/beaconoracle/pkg/db"
	"github.com/eigerco/beaconoracle/pkg/serialization"
)

// DefaultBeaconCacheSize is the number of committed beacons kept in memory.
const DefaultBeaconCacheSize = 1024

var ErrStoreClosed = errors.New("oracle store is closed")

// State groups the typed stores operating on one view of the data.
type State struct {
	Config      *Configs
	Beacons     *Beacons
	Jobs        *Jobs
	Submissions *Submissions
	Bots        *Bots
	Whitelist   *Whitelist
}

func newState(rw db.ReadWriter, ser *serialization.Serializer, cache *lru.Cache[uint64, VerifiedBeacon]) State {
	return State{
		Config:      &Configs{rw: rw, ser: ser},
		Beacons:     &Beacons{rw: rw, ser: ser, cache: cache},
		Jobs:        &Jobs{rw: rw, ser: ser},
		Submissions: &Submissions{rw: rw, ser: ser},
		Bots:        &Bots{rw: rw, ser: ser},
		Whitelist:   &Whitelist{rw: rw},
	}
}

// Store owns the key-value store holding the oracle state.
type Store struct {
	kv          db.KVStore
	ser         *serialization.Serializer
	beaconCache *lru.Cache[uint64, VerifiedBeacon]
	closed      atomic.Bool
}

func New(kv db.KVStore) (*Store, error) {
	return NewWithCacheSize(kv, DefaultBeaconCacheSize)
}

func NewWithCacheSize(kv db.KVStore, cacheSize int) (*Store, error) {
	ser, err := serialization.NewRecordSerializer()
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[uint64, VerifiedBeacon](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("beacon cache: %w", err)
	}
	return &Store{kv: kv, ser: ser, beaconCache: cache}, nil
}

// Read returns the committed state. It must only be used for reads.
func (s *Store) Read() State {
	return newState(s.kv, s.ser, s.beaconCache)
}

// Begin starts a unit of work. All writes made through the returned Tx become
// visible together on Commit, or not at all.
func (s *Store) Begin() (*Tx, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	batch := s.kv.NewBatch()
	return &Tx{
		State: newState(batch, s.ser, nil),
		batch: batch,
	}, nil
}

// Close closes the underlying key-value store
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.kv.Close()
}

// Tx is one atomic unit of work over the oracle state.
type Tx struct {
	State
	batch db.Batch
}

func (tx *Tx) Commit() error {
	if err := tx.batch.Commit(); err != nil {
		return fmt.Errorf(ErrFailedBatchCommit, err)
	}
	return nil
}

// Discard drops every write of the unit of work. It is a no-op after Commit.
func (tx *Tx) Discard() error {
	return tx.batch.Close()
}
