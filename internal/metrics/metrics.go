// Package metrics exposes the oracle's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespaceOracle = "beacon_oracle"

	subsystemRounds     = "rounds"
	subsystemJobs       = "jobs"
	subsystemIncentives = "incentives"
	subsystemPackets    = "packets"

	LabelPath   = "path"
	LabelResult = "result"
)

const (
	PathVerifying = "verifying"
	PathTrusted   = "trusted"
)

// OracleCollector records what the oracle core does with rounds and jobs.
type OracleCollector struct {
	roundsAdded      *prometheus.CounterVec
	beaconsArchived  prometheus.Counter
	jobsQueued       prometheus.Counter
	jobsDelivered    *prometheus.CounterVec
	jobsLeft         prometheus.Gauge
	incentives       *prometheus.CounterVec
	incentivesAmount prometheus.Counter
	packetsReceived  *prometheus.CounterVec
	foreignErrors    prometheus.Counter
}

// NewOracleCollector registers the oracle collectors with reg.
func NewOracleCollector(reg prometheus.Registerer) *OracleCollector {
	factory := promauto.With(reg)
	return &OracleCollector{
		roundsAdded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceOracle,
			Subsystem: subsystemRounds,
			Name:      "submissions_total",
			Help:      "accepted round submissions, by path",
		}, []string{LabelPath}),
		beaconsArchived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceOracle,
			Subsystem: subsystemRounds,
			Name:      "archived_total",
			Help:      "rounds archived for the first time",
		}),
		jobsQueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceOracle,
			Subsystem: subsystemJobs,
			Name:      "queued_total",
			Help:      "requests queued for a round without randomness",
		}),
		jobsDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceOracle,
			Subsystem: subsystemJobs,
			Name:      "delivered_total",
			Help:      "delivery packets emitted, by path",
		}, []string{LabelPath}),
		jobsLeft: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceOracle,
			Subsystem: subsystemJobs,
			Name:      "left_after_drain",
			Help:      "jobs still queued for the round after the last drain",
		}),
		incentives: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceOracle,
			Subsystem: subsystemIncentives,
			Name:      "total",
			Help:      "eligible submissions, by whether the incentive was paid",
		}, []string{LabelResult}),
		incentivesAmount: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceOracle,
			Subsystem: subsystemIncentives,
			Name:      "paid_amount_total",
			Help:      "sum of incentive amounts paid",
		}),
		packetsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceOracle,
			Subsystem: subsystemPackets,
			Name:      "received_total",
			Help:      "request packets received, by ack result",
		}, []string{LabelResult}),
		foreignErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceOracle,
			Subsystem: subsystemPackets,
			Name:      "foreign_errors_total",
			Help:      "error acknowledgements received for delivery packets",
		}),
	}
}

func pathLabel(verifying bool) string {
	if verifying {
		return PathVerifying
	}
	return PathTrusted
}

func (c *OracleCollector) RoundAdded(verifying bool, archived bool) {
	c.roundsAdded.WithLabelValues(pathLabel(verifying)).Inc()
	if archived {
		c.beaconsArchived.Inc()
	}
}

func (c *OracleCollector) JobQueued() {
	c.jobsQueued.Inc()
}

func (c *OracleCollector) JobsDelivered(verifying bool, delivered int, left uint32) {
	c.jobsDelivered.WithLabelValues(pathLabel(verifying)).Add(float64(delivered))
	c.jobsLeft.Set(float64(left))
}

// ImmediateDelivery counts a request answered from the archive.
func (c *OracleCollector) ImmediateDelivery() {
	c.jobsDelivered.WithLabelValues("immediate").Inc()
}

func (c *OracleCollector) IncentivePaid(amount uint64) {
	c.incentives.WithLabelValues("paid").Inc()
	c.incentivesAmount.Add(float64(amount))
}

func (c *OracleCollector) IncentiveSkipped() {
	c.incentives.WithLabelValues("insufficient_funds").Inc()
}

func (c *OracleCollector) PacketReceived(errorAck bool) {
	result := "ok"
	if errorAck {
		result = "error"
	}
	c.packetsReceived.WithLabelValues(result).Inc()
}

func (c *OracleCollector) ForeignError() {
	c.foreignErrors.Inc()
}
