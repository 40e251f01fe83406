package oracle

import (
	"github.com/eigerco/beaconoracle/internal/store"
	"github.com/eigerco/beaconoracle/internal/treasury"
)

// DefaultIncentivesPerRound is how many of a round's first submitters can
// be rewarded.
const DefaultIncentivesPerRound uint32 = 6

// Incentive is the reward of an eligible submission. Funded is false when
// the treasury could not cover it, in which case nothing is paid.
type Incentive struct {
	Coin   treasury.Coin
	Funded bool
}

// IncentiveAllocator decides which submissions are rewarded.
type IncentiveAllocator struct {
	perRound uint32
	balances treasury.Balances
}

func NewIncentiveAllocator(perRound uint32, balances treasury.Balances) *IncentiveAllocator {
	return &IncentiveAllocator{perRound: perRound, balances: balances}
}

// Evaluate does the bot bookkeeping of a submission and returns the incentive
// it earned, or nil. A submission is eligible when the submitter is a
// registered bot, is whitelisted and rank (its position among the round's
// submitters) is within the first perRound.
func (a *IncentiveAllocator) Evaluate(tx *store.Tx, cfg store.Config, submitter string, rank uint32) (*Incentive, error) {
	bot, registered, err := tx.Bots.Get(submitter)
	if err != nil {
		return nil, err
	}
	if registered {
		bot.RoundsAdded++
		if err := tx.Bots.Save(submitter, bot); err != nil {
			return nil, err
		}
	}
	whitelisted, err := tx.Whitelist.Has(submitter)
	if err != nil {
		return nil, err
	}
	if !registered || !whitelisted || rank >= a.perRound {
		return nil, nil
	}

	incentive := &Incentive{Coin: treasury.Coin{Denom: cfg.IncentiveDenom, Amount: cfg.IncentiveAmount}}
	balance, err := a.balances.Balance(cfg.IncentiveDenom)
	if err != nil {
		return nil, err
	}
	incentive.Funded = balance >= cfg.IncentiveAmount
	return incentive, nil
}
