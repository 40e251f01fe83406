package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/eigerco/beaconoracle/pkg/db"
	"github.com/eigerco/beaconoracle/pkg/db/pebble"
	"github.com/eigerco/beaconoracle/pkg/serialization"
)

const (
	ErrFailedBatchCommit = "failed to commit batch: %w"
)

// Prefix constants for all store types
const (
	prefixConfig byte = iota + 1
	prefixBeacon
	prefixJob
	prefixJobBounds
	prefixProcessedJobs
	prefixSubmission
	prefixSubmissionOrder
	prefixBot
	prefixWhitelist
)

// PrefixToString converts a prefix byte to a string
func PrefixToString(p byte) string {
	switch p {
	case prefixConfig:
		return "config"
	case prefixBeacon:
		return "beacon"
	case prefixJob:
		return "job"
	case prefixJobBounds:
		return "jobBounds"
	case prefixProcessedJobs:
		return "processedJobs"
	case prefixSubmission:
		return "submission"
	case prefixSubmissionOrder:
		return "submissionOrder"
	case prefixBot:
		return "bot"
	case prefixWhitelist:
		return "whitelist"
	default:
		return "unknown"
	}
}

// makeKey creates a key from a prefix and an arbitrary suffix
func makeKey(prefix byte, suffix []byte) []byte {
	key := make([]byte, 1+len(suffix))
	key[0] = prefix
	copy(key[1:], suffix)
	return key
}

// makeRoundKey creates prefix || round (big endian) || rest, so that keys of
// one prefix sort by round.
func makeRoundKey(prefix byte, round uint64, rest []byte) []byte {
	key := make([]byte, 9+len(rest))
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:9], round)
	copy(key[9:], rest)
	return key
}

// roundRange returns the [start, end) key range of all keys of a prefix for one round.
func roundRange(prefix byte, round uint64) ([]byte, []byte) {
	start := makeRoundKey(prefix, round, nil)
	if round == ^uint64(0) {
		return start, []byte{prefix + 1}
	}
	return start, makeRoundKey(prefix, round+1, nil)
}

// prefixRange returns the [start, end) key range of a whole prefix.
func prefixRange(prefix byte) ([]byte, []byte) {
	return []byte{prefix}, []byte{prefix + 1}
}

func roundFromKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[1:9])
}

// getRecord loads and decodes the value at key. A missing key is reported
// as found == false rather than an error.
func getRecord(r db.Reader, ser *serialization.Serializer, key []byte, v interface{}) (bool, error) {
	bytes, err := r.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", PrefixToString(key[0]), err)
	}
	if err := ser.Decode(bytes, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", PrefixToString(key[0]), err)
	}
	return true, nil
}

func putRecord(w db.Writer, ser *serialization.Serializer, key []byte, v interface{}) error {
	bytes, err := ser.Encode(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", PrefixToString(key[0]), err)
	}
	if err := w.Put(key, bytes); err != nil {
		return fmt.Errorf("put %s: %w", PrefixToString(key[0]), err)
	}
	return nil
}

func has(r db.Reader, key []byte) (bool, error) {
	_, err := r.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %s: %w", PrefixToString(key[0]), err)
	}
	return true, nil
}
