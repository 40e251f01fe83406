package store

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/eigerco/beaconoracle/pkg/db"
	"github.com/eigerco/beaconoracle/pkg/serialization"
)

type StoredSubmission struct {
	Time time.Time `cbor:"1,keyasint"`
}

// Submission is a stored submission together with its submitter.
type Submission struct {
	Address string
	StoredSubmission
}

// Submissions records who submitted which round and in which order. The
// order index of a round is dense and starts at 0.
type Submissions struct {
	rw  db.ReadWriter
	ser *serialization.Serializer
}

func submissionKey(round uint64, addr string) []byte {
	return makeRoundKey(prefixSubmission, round, []byte(addr))
}

func submissionOrderKey(round uint64, index uint32) []byte {
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], index)
	return makeRoundKey(prefixSubmissionOrder, round, idx[:])
}

func (s *Submissions) Has(round uint64, addr string) (bool, error) {
	return has(s.rw, submissionKey(round, addr))
}

// Save records a submission and appends the submitter to the round's order.
// It returns the submitter's index in that order.
func (s *Submissions) Save(round uint64, addr string, now time.Time) (uint32, error) {
	if err := putRecord(s.rw, s.ser, submissionKey(round, addr), StoredSubmission{Time: now.UTC()}); err != nil {
		return 0, err
	}
	index, err := s.nextIndex(round)
	if err != nil {
		return 0, err
	}
	if err := s.rw.Put(submissionOrderKey(round, index), []byte(addr)); err != nil {
		return 0, fmt.Errorf("put submission order: %w", err)
	}
	return index, nil
}

// nextIndex is one past the highest order index of the round, or 0.
func (s *Submissions) nextIndex(round uint64) (uint32, error) {
	start, end := roundRange(prefixSubmissionOrder, round)
	iter, err := s.rw.NewReverseIterator(start, end)
	if err != nil {
		return 0, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close() //nolint:errcheck

	if !iter.Next() {
		return 0, nil
	}
	key := iter.Key()
	return binary.BigEndian.Uint32(key[9:]) + 1, nil
}

// List returns the submissions of a round in arrival order.
func (s *Submissions) List(round uint64) ([]Submission, error) {
	start, end := roundRange(prefixSubmissionOrder, round)
	iter, err := s.rw.NewIterator(start, end)
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close() //nolint:errcheck

	var addrs []string
	for iter.Next() {
		value, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read submission order: %w", err)
		}
		addrs = append(addrs, string(value))
	}

	submissions := make([]Submission, 0, len(addrs))
	for _, addr := range addrs {
		var stored StoredSubmission
		found, err := getRecord(s.rw, s.ser, submissionKey(round, addr), &stored)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, fmt.Errorf("submission of %s for round %d missing", addr, round)
		}
		submissions = append(submissions, Submission{Address: addr, StoredSubmission: stored})
	}
	return submissions, nil
}
