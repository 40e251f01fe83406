package store

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/eigerco/beaconoracle/pkg/db"
	"github.com/eigerco/beaconoracle/pkg/serialization"
)

// VerifiedBeacon is the archived randomness of a round.
type VerifiedBeacon struct {
	// Verified is when the round was first archived.
	Verified   time.Time `cbor:"1,keyasint"`
	Randomness []byte    `cbor:"2,keyasint"`
}

// RoundBeacon pairs an archived beacon with its round.
type RoundBeacon struct {
	Round uint64
	VerifiedBeacon
}

// Beacons is the write-once archive of verified randomness by round.
type Beacons struct {
	rw    db.ReadWriter
	ser   *serialization.Serializer
	cache *lru.Cache[uint64, VerifiedBeacon]
}

// Store archives the randomness of a round unless the round is already
// archived, in which case the existing record (randomness and timestamp) is
// kept. It reports whether a new record was written.
func (b *Beacons) Store(round uint64, randomness []byte, now time.Time) (bool, error) {
	_, found, err := b.Get(round)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}
	beacon := VerifiedBeacon{Verified: now.UTC(), Randomness: randomness}
	if err := putRecord(b.rw, b.ser, makeRoundKey(prefixBeacon, round, nil), beacon); err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the full record of a round.
func (b *Beacons) Get(round uint64) (VerifiedBeacon, bool, error) {
	if b.cache != nil {
		if beacon, ok := b.cache.Get(round); ok {
			return beacon, true, nil
		}
	}
	var beacon VerifiedBeacon
	found, err := getRecord(b.rw, b.ser, makeRoundKey(prefixBeacon, round, nil), &beacon)
	if err != nil || !found {
		return VerifiedBeacon{}, false, err
	}
	// Records are immutable once committed, so a cached copy never goes stale.
	if b.cache != nil {
		b.cache.Add(round, beacon)
	}
	return beacon, true, nil
}

// Lookup returns the randomness of a round.
func (b *Beacons) Lookup(round uint64) ([]byte, bool, error) {
	beacon, found, err := b.Get(round)
	if err != nil || !found {
		return nil, false, err
	}
	return beacon.Randomness, true, nil
}

// Range lists archived beacons starting after an optional round (exclusive),
// ascending or descending, at most limit entries.
func (b *Beacons) Range(startAfter *uint64, limit int, descending bool) ([]RoundBeacon, error) {
	start, end := prefixRange(prefixBeacon)

	var (
		iter db.Iterator
		err  error
	)
	if descending {
		if startAfter != nil {
			end = makeRoundKey(prefixBeacon, *startAfter, nil)
		}
		iter, err = b.rw.NewReverseIterator(start, end)
	} else {
		if startAfter != nil {
			if *startAfter == ^uint64(0) {
				return []RoundBeacon{}, nil
			}
			start = makeRoundKey(prefixBeacon, *startAfter+1, nil)
		}
		iter, err = b.rw.NewIterator(start, end)
	}
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close() //nolint:errcheck

	beacons := make([]RoundBeacon, 0)
	for len(beacons) < limit && iter.Next() {
		value, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read beacon: %w", err)
		}
		var beacon VerifiedBeacon
		if err := b.ser.Decode(value, &beacon); err != nil {
			return nil, fmt.Errorf("unmarshal beacon: %w", err)
		}
		beacons = append(beacons, RoundBeacon{Round: roundFromKey(iter.Key()), VerifiedBeacon: beacon})
	}
	return beacons, nil
}
