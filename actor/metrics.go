package actor

// MetricsSink receives the mailbox and system events named in spec §6. Hosts
// wire in their own exporter; actorcore never assumes a concrete metrics
// backend. A nil sink is valid everywhere a sink is accepted and simply
// discards events.
type MetricsSink interface {
	MailboxEnqueued()
	MailboxDequeued()
	MailboxDroppedOldest(count int)
	MailboxDroppedNewest(count int)
	MailboxGrewTo(capacity int)
	ActorRegistered()
	ActorDeregistered()
	TelemetryInvoked()
	TelemetryLatencyNanos(nanos int64)
}

// NopMetricsSink implements MetricsSink by discarding every event. It is the
// default sink for a backend that has not had one installed.
type NopMetricsSink struct{}

func (NopMetricsSink) MailboxEnqueued()                  {}
func (NopMetricsSink) MailboxDequeued()                  {}
func (NopMetricsSink) MailboxDroppedOldest(count int)    {}
func (NopMetricsSink) MailboxDroppedNewest(count int)    {}
func (NopMetricsSink) MailboxGrewTo(capacity int)        {}
func (NopMetricsSink) ActorRegistered()                  {}
func (NopMetricsSink) ActorDeregistered()                {}
func (NopMetricsSink) TelemetryInvoked()                 {}
func (NopMetricsSink) TelemetryLatencyNanos(nanos int64) {}

var _ MetricsSink = NopMetricsSink{}
