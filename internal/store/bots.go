package store

import (
	"fmt"

	"github.com/eigerco/beaconoracle/pkg/db"
	"github.com/eigerco/beaconoracle/pkg/serialization"
)

// Bot is a registered submitter.
type Bot struct {
	Moniker     string `cbor:"1,keyasint" json:"moniker"`
	RoundsAdded uint64 `cbor:"2,keyasint" json:"rounds_added"`
}

// AddressedBot is a bot together with its address.
type AddressedBot struct {
	Address string
	Bot
}

type Bots struct {
	rw  db.ReadWriter
	ser *serialization.Serializer
}

func (b *Bots) Get(addr string) (Bot, bool, error) {
	var bot Bot
	found, err := getRecord(b.rw, b.ser, makeKey(prefixBot, []byte(addr)), &bot)
	if err != nil || !found {
		return Bot{}, false, err
	}
	return bot, true, nil
}

func (b *Bots) Save(addr string, bot Bot) error {
	return putRecord(b.rw, b.ser, makeKey(prefixBot, []byte(addr)), bot)
}

// List returns every registered bot ordered by address.
func (b *Bots) List() ([]AddressedBot, error) {
	start, end := prefixRange(prefixBot)
	iter, err := b.rw.NewIterator(start, end)
	if err != nil {
		return nil, fmt.Errorf("create iterator: %w", err)
	}
	defer iter.Close() //nolint:errcheck

	bots := make([]AddressedBot, 0)
	for iter.Next() {
		value, err := iter.Value()
		if err != nil {
			return nil, fmt.Errorf("read bot: %w", err)
		}
		var bot Bot
		if err := b.ser.Decode(value, &bot); err != nil {
			return nil, fmt.Errorf("unmarshal bot: %w", err)
		}
		bots = append(bots, AddressedBot{Address: string(iter.Key()[1:]), Bot: bot})
	}
	return bots, nil
}
