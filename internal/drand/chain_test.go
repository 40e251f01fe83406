package drand

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCommitToRound(t *testing.T) {
	genesis := time.Unix(1595431050, 0)

	tests := []struct {
		name          string
		after         time.Time
		expectedRound uint64
	}{
		{name: "unix_epoch", after: time.Unix(0, 0), expectedRound: 1},
		{name: "before_genesis", after: genesis.Add(-time.Nanosecond), expectedRound: 1},
		{name: "at_genesis", after: genesis, expectedRound: 2},
		{name: "after_genesis", after: genesis.Add(time.Nanosecond), expectedRound: 2},
		{name: "genesis_plus_29s", after: genesis.Add(29 * time.Second), expectedRound: 2},
		{name: "one_period_minus_1ns", after: genesis.Add(Period - time.Nanosecond), expectedRound: 2},
		{name: "genesis_plus_30s", after: genesis.Add(30 * time.Second), expectedRound: 3},
		{name: "genesis_plus_31s", after: genesis.Add(31 * time.Second), expectedRound: 3},
		{name: "one_second_before_round_2183669", after: time.Unix(1660941090-1, 0), expectedRound: 2183669},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			round, sourceID := CommitToRound(tc.after)
			assert.Equal(t, tc.expectedRound, round)
			assert.Equal(t, SourceID(tc.expectedRound), sourceID)
		})
	}
}

func TestSourceID(t *testing.T) {
	assert.Equal(t,
		"drand:8990e7a9aaed2ffed73dbd7092123d6f289930540d7651336225dc172e51b2ce:1",
		SourceID(1))
	assert.Equal(t,
		"drand:8990e7a9aaed2ffed73dbd7092123d6f289930540d7651336225dc172e51b2ce:2",
		SourceID(2))
}

func TestRoundAfterIsStrictlyAfterPublishTime(t *testing.T) {
	for _, after := range []time.Time{
		Genesis,
		Genesis.Add(17 * time.Second),
		Genesis.Add(90 * time.Second),
		time.Unix(1660941000, 999),
	} {
		round := RoundAfter(after)
		assert.True(t, PublishTime(round).After(after), "round %d", round)
		assert.False(t, PublishTime(round-1).After(after), "round %d", round-1)
	}
}
