package metrics

type NoopCollector struct{}

func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (nc *NoopCollector) RoundAdded(verifying bool, archived bool)                 {}
func (nc *NoopCollector) JobQueued()                                               {}
func (nc *NoopCollector) JobsDelivered(verifying bool, delivered int, left uint32) {}
func (nc *NoopCollector) ImmediateDelivery()                                       {}
func (nc *NoopCollector) IncentivePaid(amount uint64)                              {}
func (nc *NoopCollector) IncentiveSkipped()                                        {}
func (nc *NoopCollector) PacketReceived(errorAck bool)                             {}
func (nc *NoopCollector) ForeignError()                                            {}
