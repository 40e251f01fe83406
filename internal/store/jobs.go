package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/eigerco/beaconoracle/internal/safemath"
	"github.com/eigerco/beaconoracle/pkg/db"
	"github.com/eigerco/beaconoracle/pkg/db/pebble"
	"github.com/eigerco/beaconoracle/pkg/serialization"
)

// Job is a request waiting for the randomness of a round. A job carries
// either an opaque Origin or a (Sender, JobID) pair, depending on how the
// request was made.
type Job struct {
	SourceID string `cbor:"1,keyasint"`
	// Channel is the handle the delivery is sent back on.
	Channel string `cbor:"2,keyasint"`
	Origin  []byte `cbor:"3,keyasint,omitempty"`
	Sender  string `cbor:"4,keyasint,omitempty"`
	JobID   string `cbor:"5,keyasint,omitempty"`
}

// Jobs holds one FIFO queue of jobs per round, plus a per-round counter of
// processed jobs. Each queue is a deque addressed by a head and a tail index.
type Jobs struct {
	rw  db.ReadWriter
	ser *serialization.Serializer
}

type queueBounds struct {
	head uint64
	tail uint64
}

func (j *Jobs) bounds(round uint64) (queueBounds, error) {
	bytes, err := j.rw.Get(makeRoundKey(prefixJobBounds, round, nil))
	if errors.Is(err, pebble.ErrNotFound) {
		return queueBounds{}, nil
	}
	if err != nil {
		return queueBounds{}, fmt.Errorf("get job bounds: %w", err)
	}
	if len(bytes) != 16 {
		return queueBounds{}, fmt.Errorf("corrupt job bounds for round %d", round)
	}
	return queueBounds{
		head: binary.BigEndian.Uint64(bytes[:8]),
		tail: binary.BigEndian.Uint64(bytes[8:]),
	}, nil
}

func (j *Jobs) putBounds(round uint64, b queueBounds) error {
	key := makeRoundKey(prefixJobBounds, round, nil)
	if b.head == b.tail {
		// An empty queue restarts at index 0.
		if err := j.rw.Delete(key); err != nil {
			return fmt.Errorf("delete job bounds: %w", err)
		}
		return nil
	}
	value := make([]byte, 16)
	binary.BigEndian.PutUint64(value[:8], b.head)
	binary.BigEndian.PutUint64(value[8:], b.tail)
	if err := j.rw.Put(key, value); err != nil {
		return fmt.Errorf("put job bounds: %w", err)
	}
	return nil
}

func jobKey(round, index uint64) []byte {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], index)
	return makeRoundKey(prefixJob, round, idx[:])
}

// Enqueue appends a job to the tail of the round's queue.
func (j *Jobs) Enqueue(round uint64, job Job) error {
	b, err := j.bounds(round)
	if err != nil {
		return err
	}
	if err := putRecord(j.rw, j.ser, jobKey(round, b.tail), job); err != nil {
		return err
	}
	b.tail++
	return j.putBounds(round, b)
}

// Dequeue removes and returns the head of the round's queue.
func (j *Jobs) Dequeue(round uint64) (Job, bool, error) {
	b, err := j.bounds(round)
	if err != nil {
		return Job{}, false, err
	}
	if b.head == b.tail {
		return Job{}, false, nil
	}
	key := jobKey(round, b.head)
	var job Job
	found, err := getRecord(j.rw, j.ser, key, &job)
	if err != nil {
		return Job{}, false, err
	}
	if !found {
		return Job{}, false, fmt.Errorf("job %d of round %d missing", b.head, round)
	}
	if err := j.rw.Delete(key); err != nil {
		return Job{}, false, fmt.Errorf("delete job: %w", err)
	}
	b.head++
	if err := j.putBounds(round, b); err != nil {
		return Job{}, false, err
	}
	return job, true, nil
}

// Len is the number of jobs still queued for a round.
func (j *Jobs) Len(round uint64) (uint32, error) {
	b, err := j.bounds(round)
	if err != nil {
		return 0, err
	}
	return uint32(b.tail - b.head), nil
}

// Processed is the number of jobs delivered for a round so far.
func (j *Jobs) Processed(round uint64) (uint32, error) {
	bytes, err := j.rw.Get(makeRoundKey(prefixProcessedJobs, round, nil))
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get processed jobs: %w", err)
	}
	return binary.BigEndian.Uint32(bytes), nil
}

func (j *Jobs) IncrementProcessed(round uint64) error {
	processed, err := j.Processed(round)
	if err != nil {
		return err
	}
	next, ok := safemath.Add32(processed, 1)
	if !ok {
		return fmt.Errorf("processed jobs of round %d: %w", round, safemath.ErrOverflow)
	}
	value := make([]byte, 4)
	binary.BigEndian.PutUint32(value, next)
	if err := j.rw.Put(makeRoundKey(prefixProcessedJobs, round, nil), value); err != nil {
		return fmt.Errorf("put processed jobs: %w", err)
	}
	return nil
}
