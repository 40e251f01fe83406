// Package treasury holds the oracle's own balances and the accounts
// incentives are paid into.
package treasury

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/eigerco/beaconoracle/internal/safemath"
	"github.com/eigerco/beaconoracle/pkg/db"
	"github.com/eigerco/beaconoracle/pkg/db/pebble"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// Coin is an amount of one denomination.
type Coin struct {
	Denom  string `json:"denom"`
	Amount uint64 `json:"amount"`
}

func (c Coin) String() string {
	return strconv.FormatUint(c.Amount, 10) + c.Denom
}

// Balances reports the oracle's own balance of a denomination.
type Balances interface {
	Balance(denom string) (uint64, error)
}

// Keys live above the oracle state prefixes so both can share one store.
const (
	prefixOwnBalance     byte = 0xf0
	prefixAccountBalance byte = 0xf1
)

// Ledger keeps balances in a key-value store.
type Ledger struct {
	kv db.KVStore
	mu sync.Mutex
}

var _ Balances = (*Ledger)(nil)

func NewLedger(kv db.KVStore) *Ledger {
	return &Ledger{kv: kv}
}

func ownKey(denom string) []byte {
	return append([]byte{prefixOwnBalance}, denom...)
}

// accountKey is prefix || len(addr) || addr || denom.
func accountKey(addr, denom string) []byte {
	key := make([]byte, 0, 2+len(addr)+len(denom))
	key = append(key, prefixAccountBalance, byte(len(addr)))
	key = append(key, addr...)
	return append(key, denom...)
}

func readAmount(r db.Reader, key []byte) (uint64, error) {
	value, err := r.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return binary.BigEndian.Uint64(value), nil
}

func writeAmount(w db.Writer, key []byte, amount uint64) error {
	value := make([]byte, 8)
	binary.BigEndian.PutUint64(value, amount)
	if err := w.Put(key, value); err != nil {
		return fmt.Errorf("put balance: %w", err)
	}
	return nil
}

func (l *Ledger) Balance(denom string) (uint64, error) {
	return readAmount(l.kv, ownKey(denom))
}

// AccountBalance is the amount paid out to addr so far.
func (l *Ledger) AccountBalance(addr, denom string) (uint64, error) {
	return readAmount(l.kv, accountKey(addr, denom))
}

// Fund credits the oracle's own balance.
func (l *Ledger) Fund(coin Coin) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := readAmount(l.kv, ownKey(coin.Denom))
	if err != nil {
		return err
	}
	total, ok := safemath.Add64(current, coin.Amount)
	if !ok {
		return fmt.Errorf("fund %s: %w", coin, safemath.ErrOverflow)
	}
	return writeAmount(l.kv, ownKey(coin.Denom), total)
}

// Send moves coin from the oracle's balance to addr. Nothing moves if the
// oracle holds less than coin.Amount.
func (l *Ledger) Send(addr string, coin Coin) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	own, err := readAmount(l.kv, ownKey(coin.Denom))
	if err != nil {
		return err
	}
	remaining, ok := safemath.Sub64(own, coin.Amount)
	if !ok {
		return fmt.Errorf("send %s to %s: %w", coin, addr, ErrInsufficientFunds)
	}
	theirs, err := readAmount(l.kv, accountKey(addr, coin.Denom))
	if err != nil {
		return err
	}
	received, ok := safemath.Add64(theirs, coin.Amount)
	if !ok {
		return fmt.Errorf("send %s to %s: %w", coin, addr, safemath.ErrOverflow)
	}

	batch := l.kv.NewBatch()
	defer batch.Close() //nolint:errcheck
	if err := writeAmount(batch, ownKey(coin.Denom), remaining); err != nil {
		return err
	}
	if err := writeAmount(batch, accountKey(addr, coin.Denom), received); err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("commit transfer: %w", err)
	}
	return nil
}
