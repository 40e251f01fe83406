package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestOracleCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewOracleCollector(reg)

	c.RoundAdded(true, true)
	c.RoundAdded(true, false)
	c.RoundAdded(false, false)
	c.JobsDelivered(true, 3, 4)
	c.ImmediateDelivery()
	c.IncentivePaid(300)
	c.IncentiveSkipped()
	c.PacketReceived(true)
	c.ForeignError()

	require.Equal(t, 2.0, value(t, c.roundsAdded.WithLabelValues(PathVerifying)))
	require.Equal(t, 1.0, value(t, c.roundsAdded.WithLabelValues(PathTrusted)))
	require.Equal(t, 1.0, value(t, c.beaconsArchived))
	require.Equal(t, 3.0, value(t, c.jobsDelivered.WithLabelValues(PathVerifying)))
	require.Equal(t, 1.0, value(t, c.jobsDelivered.WithLabelValues("immediate")))
	require.Equal(t, 4.0, value(t, c.jobsLeft))
	require.Equal(t, 300.0, value(t, c.incentivesAmount))
	require.Equal(t, 1.0, value(t, c.packetsReceived.WithLabelValues("error")))
	require.Equal(t, 1.0, value(t, c.foreignErrors))
}

func TestCollectorsRegisterPerRegistry(t *testing.T) {
	// two collectors on separate registries must not collide
	require.NotPanics(t, func() {
		NewOracleCollector(prometheus.NewRegistry())
		NewOracleCollector(prometheus.NewRegistry())
	})
}
