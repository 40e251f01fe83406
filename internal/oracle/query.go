package oracle

import (
	"errors"

	"github.com/eigerco/beaconoracle/internal/address"
	"github.com/eigerco/beaconoracle/internal/protocol"
	"github.com/eigerco/beaconoracle/internal/store"
)

// DefaultQueryLimit is the number of beacons listed when no limit is given.
const DefaultQueryLimit = 100

// Query dispatches msg to the matching query. Queries read the committed
// state only.
func (o *Oracle) Query(msg QueryMsg) (interface{}, error) {
	switch {
	case msg.Config != nil:
		return o.QueryConfig()
	case msg.Beacon != nil:
		return o.QueryBeacon(msg.Beacon.Round)
	case msg.Beacons != nil:
		return o.QueryBeacons(msg.Beacons.StartAfter, msg.Beacons.Limit, msg.Beacons.Order)
	case msg.Bot != nil:
		return o.QueryBot(msg.Bot.Address)
	case msg.Bots != nil:
		return o.QueryBots()
	case msg.Submissions != nil:
		return o.QuerySubmissions(msg.Submissions.Round)
	case msg.JobStats != nil:
		return o.QueryJobStats(msg.JobStats.Round)
	default:
		return nil, errors.New("empty query message")
	}
}

func (o *Oracle) QueryConfig() (ConfigResponse, error) {
	cfg, err := o.store.Read().Config.Load()
	if errors.Is(err, store.ErrConfigNotFound) {
		return ConfigResponse{}, ErrNotInstantiated
	}
	return cfg, err
}

func (o *Oracle) QueryBeacon(round uint64) (BeaconResponse, error) {
	beacon, found, err := o.store.Read().Beacons.Get(round)
	if err != nil || !found {
		return BeaconResponse{}, err
	}
	b := queriedBeacon(round, beacon)
	return BeaconResponse{Beacon: &b}, nil
}

// QueryBeacons lists beacons after the optional startAfter round, which is
// excluded, in the given order. An empty order means ascending.
func (o *Oracle) QueryBeacons(startAfter *uint64, limit *uint32, order Order) (BeaconsResponse, error) {
	n := DefaultQueryLimit
	if limit != nil {
		n = int(*limit)
	}
	beacons, err := o.store.Read().Beacons.Range(startAfter, n, order == Descending)
	if err != nil {
		return BeaconsResponse{}, err
	}
	resp := BeaconsResponse{Beacons: make([]QueriedBeacon, 0, len(beacons))}
	for _, b := range beacons {
		resp.Beacons = append(resp.Beacons, queriedBeacon(b.Round, b.VerifiedBeacon))
	}
	return resp, nil
}

func (o *Oracle) QueryBot(addr string) (BotResponse, error) {
	if _, err := address.Validate(addr); err != nil {
		return BotResponse{}, err
	}
	bot, found, err := o.store.Read().Bots.Get(addr)
	if err != nil || !found {
		return BotResponse{}, err
	}
	b := queriedBot(addr, bot)
	return BotResponse{Bot: &b}, nil
}

func (o *Oracle) QueryBots() (BotsResponse, error) {
	bots, err := o.store.Read().Bots.List()
	if err != nil {
		return BotsResponse{}, err
	}
	resp := BotsResponse{Bots: make([]QueriedBot, 0, len(bots))}
	for _, b := range bots {
		resp.Bots = append(resp.Bots, queriedBot(b.Address, b.Bot))
	}
	return resp, nil
}

// QuerySubmissions lists the submitters of a round in arrival order.
func (o *Oracle) QuerySubmissions(round uint64) (SubmissionsResponse, error) {
	submissions, err := o.store.Read().Submissions.List(round)
	if err != nil {
		return SubmissionsResponse{}, err
	}
	resp := SubmissionsResponse{Round: round, Submissions: make([]QueriedSubmission, 0, len(submissions))}
	for _, s := range submissions {
		resp.Submissions = append(resp.Submissions, QueriedSubmission{Bot: s.Address, Time: protocol.NewTimestamp(s.Time)})
	}
	return resp, nil
}

func (o *Oracle) QueryJobStats(round uint64) (JobStatsResponse, error) {
	state := o.store.Read()
	unprocessed, err := state.Jobs.Len(round)
	if err != nil {
		return JobStatsResponse{}, err
	}
	processed, err := state.Jobs.Processed(round)
	if err != nil {
		return JobStatsResponse{}, err
	}
	return JobStatsResponse{Round: round, Unprocessed: unprocessed, Processed: processed}, nil
}
