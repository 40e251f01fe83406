// Package drand holds the parameters of the drand mainnet chain and the two
// pure functions built on them: committing a request time to a future round
// and verifying a round's signature.
package drand

import (
	"fmt"
	"time"
)

const (
	// ChainHash identifies the drand mainnet chain (https://api3.drand.sh/info).
	ChainHash = "8990e7a9aaed2ffed73dbd7092123d6f289930540d7651336225dc172e51b2ce"

	// MainnetPubkey is the group public key of the chain, a compressed G1 point.
	MainnetPubkey = "868f005eb8e6e4ca0a47c8a77ceaa5309a47978a7c71bc5cce96366b5d7a569937c529eeda66c7293784a9402801af31"

	// Period is the time between two consecutive rounds.
	Period = 30 * time.Second
)

// Genesis is the publish time of round 1.
var Genesis = time.Unix(1595431050, 0).UTC()

// RoundAfter returns the smallest round whose publish time is strictly after
// the given time. Round r is published at Genesis + (r-1)*Period, so a time
// exactly on a period boundary maps to the following round.
func RoundAfter(after time.Time) uint64 {
	if after.Before(Genesis) {
		return 1
	}
	fromGenesis := after.Sub(Genesis)
	periodsSinceGenesis := uint64(fromGenesis / Period)
	nextPeriodIndex := periodsSinceGenesis + 1
	// 0-based period index to 1-based round number
	return nextPeriodIndex + 1
}

// PublishTime returns the nominal publish time of a round.
func PublishTime(round uint64) time.Time {
	if round == 0 {
		return Genesis.Add(-Period)
	}
	return Genesis.Add(time.Duration(round-1) * Period)
}

// SourceID is the canonical identifier of a round's randomness.
func SourceID(round uint64) string {
	return fmt.Sprintf("drand:%s:%d", ChainHash, round)
}

// CommitToRound calculates the next round in the future, i.e. publish time > after,
// together with its source id.
func CommitToRound(after time.Time) (uint64, string) {
	round := RoundAfter(after)
	return round, SourceID(round)
}
