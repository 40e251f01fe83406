package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/eigerco/beaconoracle/internal/protocol"
	"github.com/eigerco/beaconoracle/internal/store"
)

type InstantiateMsg struct {
	Admin           string `json:"admin"`
	MinRound        uint64 `json:"min_round"`
	IncentiveAmount uint64 `json:"incentive_amount"`
	IncentiveDenom  string `json:"incentive_denom"`
}

// ExecuteMsg holds exactly one operation.
type ExecuteMsg struct {
	AddRound            *AddRoundMsg            `json:"add_round,omitempty"`
	AddVerifiedRound    *AddVerifiedRoundMsg    `json:"add_verified_round,omitempty"`
	RegisterBot         *RegisterBotMsg         `json:"register_bot,omitempty"`
	UpdateWhitelistBots *UpdateWhitelistBotsMsg `json:"update_whitelist_bots,omitempty"`
	SetDrandAddr        *SetDrandAddrMsg        `json:"set_drand_addr,omitempty"`
}

type AddRoundMsg struct {
	Round             uint64            `json:"round"`
	PreviousSignature protocol.HexBytes `json:"previous_signature"`
	Signature         protocol.HexBytes `json:"signature"`
}

type AddVerifiedRoundMsg struct {
	Round      uint64            `json:"round"`
	Randomness protocol.HexBytes `json:"randomness"`
}

type RegisterBotMsg struct {
	Moniker string `json:"moniker"`
}

type UpdateWhitelistBotsMsg struct {
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

type SetDrandAddrMsg struct {
	Addr string `json:"addr"`
}

// Order of a listing.
type Order string

const (
	Ascending  Order = "ascending"
	Descending Order = "descending"
)

func (o *Order) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch Order(strings.ToLower(s)) {
	case Ascending:
		*o = Ascending
	case Descending:
		*o = Descending
	default:
		return fmt.Errorf("unknown order %q", s)
	}
	return nil
}

// QueryMsg holds exactly one query.
type QueryMsg struct {
	Config      *struct{}     `json:"config,omitempty"`
	Beacon      *RoundQuery   `json:"beacon,omitempty"`
	Beacons     *BeaconsQuery `json:"beacons,omitempty"`
	Bot         *BotQuery     `json:"bot,omitempty"`
	Bots        *struct{}     `json:"bots,omitempty"`
	Submissions *RoundQuery   `json:"submissions,omitempty"`
	JobStats    *RoundQuery   `json:"job_stats,omitempty"`
}

type RoundQuery struct {
	Round uint64 `json:"round"`
}

type BeaconsQuery struct {
	StartAfter *uint64 `json:"start_after,omitempty"`
	Limit      *uint32 `json:"limit,omitempty"`
	Order      Order   `json:"order"`
}

type BotQuery struct {
	Address string `json:"address"`
}

type ConfigResponse = store.Config

type QueriedBeacon struct {
	Round      uint64             `json:"round"`
	Randomness protocol.HexBytes  `json:"randomness"`
	Verified   protocol.Timestamp `json:"verified"`
}

type BeaconResponse struct {
	Beacon *QueriedBeacon `json:"beacon"`
}

type BeaconsResponse struct {
	Beacons []QueriedBeacon `json:"beacons"`
}

type QueriedBot struct {
	Address     string `json:"address"`
	Moniker     string `json:"moniker"`
	RoundsAdded uint64 `json:"rounds_added"`
}

type BotResponse struct {
	Bot *QueriedBot `json:"bot"`
}

type BotsResponse struct {
	Bots []QueriedBot `json:"bots"`
}

type QueriedSubmission struct {
	Bot  string             `json:"bot"`
	Time protocol.Timestamp `json:"time"`
}

type SubmissionsResponse struct {
	Round       uint64              `json:"round"`
	Submissions []QueriedSubmission `json:"submissions"`
}

type JobStatsResponse struct {
	Round       uint64 `json:"round"`
	Unprocessed uint32 `json:"unprocessed"`
	Processed   uint32 `json:"processed"`
}

func queriedBeacon(round uint64, b store.VerifiedBeacon) QueriedBeacon {
	return QueriedBeacon{
		Round:      round,
		Randomness: b.Randomness,
		Verified:   protocol.NewTimestamp(b.Verified),
	}
}

func queriedBot(addr string, b store.Bot) QueriedBot {
	return QueriedBot{Address: addr, Moniker: b.Moniker, RoundsAdded: b.RoundsAdded}
}
