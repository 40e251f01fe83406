package store

import (
	"errors"

	"github.com/eigerco/beaconoracle/pkg/db"
	"github.com/eigerco/beaconoracle/pkg/serialization"
)

var ErrConfigNotFound = errors.New("config not found")

// Config is set at instantiation. Only Drand may change afterwards, once.
type Config struct {
	// Admin may update the whitelist and set the drand address.
	Admin string `cbor:"1,keyasint" json:"admin"`
	// Drand is the only address allowed to add rounds without verification.
	Drand string `cbor:"2,keyasint,omitempty" json:"drand,omitempty"`
	// MinRound is the lowest round accepted by the verifying path.
	MinRound        uint64 `cbor:"3,keyasint" json:"min_round"`
	IncentiveAmount uint64 `cbor:"4,keyasint" json:"incentive_amount"`
	IncentiveDenom  string `cbor:"5,keyasint" json:"incentive_denom"`
}

type Configs struct {
	rw  db.ReadWriter
	ser *serialization.Serializer
}

// Load returns ErrConfigNotFound before instantiation.
func (c *Configs) Load() (Config, error) {
	var cfg Config
	found, err := getRecord(c.rw, c.ser, []byte{prefixConfig}, &cfg)
	if err != nil {
		return Config{}, err
	}
	if !found {
		return Config{}, ErrConfigNotFound
	}
	return cfg, nil
}

func (c *Configs) Save(cfg Config) error {
	return putRecord(c.rw, c.ser, []byte{prefixConfig}, cfg)
}
