package store

import (
	"fmt"

	"github.com/eigerco/beaconoracle/pkg/db"
)

// Whitelist is the set of submitters eligible for incentives.
type Whitelist struct {
	rw db.ReadWriter
}

func (w *Whitelist) Has(addr string) (bool, error) {
	return has(w.rw, makeKey(prefixWhitelist, []byte(addr)))
}

func (w *Whitelist) Add(addr string) error {
	if err := w.rw.Put(makeKey(prefixWhitelist, []byte(addr)), []byte{1}); err != nil {
		return fmt.Errorf("put whitelist: %w", err)
	}
	return nil
}

// Remove is a no-op for addresses not on the whitelist.
func (w *Whitelist) Remove(addr string) error {
	if err := w.rw.Delete(makeKey(prefixWhitelist, []byte(addr))); err != nil {
		return fmt.Errorf("delete whitelist: %w", err)
	}
	return nil
}
