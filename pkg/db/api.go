package db

// Reader provides point lookups and ordered range scans.
type Reader interface {
	Get(key []byte) ([]byte, error)
	// NewIterator walks [start, end) in ascending key order.
	NewIterator(start, end []byte) (Iterator, error)
	// NewReverseIterator walks [start, end) in descending key order.
	NewReverseIterator(start, end []byte) (Iterator, error)
}

type Writer interface {
	Put(key []byte, value []byte) error
}

// ReadWriter is the view a single unit of work operates on. Both the store
// itself and an indexed batch satisfy it.
type ReadWriter interface {
	Reader
	Writer
	Delete(key []byte) error
}

// KVStore represents a key-value storage interface providing basic operations
// for data manipulation and iteration.
type KVStore interface {
	ReadWriter
	NewBatch() Batch
	Close() error
}

// Batch represents an atomic batch of operations.
// All operations in a batch are performed atomically. Reads through the batch
// observe its own uncommitted writes.
type Batch interface {
	ReadWriter
	Commit() error
	Close() error
}

// Iterator provides sequential access over a range of key-value pairs.
// Iterators must be closed after use.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() ([]byte, error)
	Valid() bool
	Close() error
}
