package actor

import (
	"context"
	"time"

	"github.com/roasbeef/actorcore/internal/corelog"
)

// SupervisorDirective is a supervisor's decision about how to handle a
// child's failure.
type SupervisorDirective uint8

const (
	DirectiveRestart SupervisorDirective = iota
	DirectiveStopChild
	DirectiveResume
	DirectiveEscalate
)

// String implements fmt.Stringer.
func (d SupervisorDirective) String() string {
	switch d {
	case DirectiveRestart:
		return "Restart"
	case DirectiveStopChild:
		return "Stop"
	case DirectiveResume:
		return "Resume"
	case DirectiveEscalate:
		return "Escalate"
	default:
		return "Unknown"
	}
}

// Supervisor decides what a cell does in response to one of its own
// handler failures, or a failure escalated up from a child.
type Supervisor interface {
	Decide(failure FailureInfo) SupervisorDirective
}

// AlwaysRestart is the default strategy (spec §4.6): every failure is
// handled by restarting the failing cell in place.
type AlwaysRestart struct{}

func (AlwaysRestart) Decide(FailureInfo) SupervisorDirective { return DirectiveRestart }

// SupervisorFunc adapts a plain function to the Supervisor interface.
type SupervisorFunc func(FailureInfo) SupervisorDirective

func (f SupervisorFunc) Decide(failure FailureInfo) SupervisorDirective {
	return f(failure)
}

// FailureTelemetry is the pluggable sink a root guardian forwards
// propagation-hop snapshots to (the root_failure_telemetry configuration
// key, spec §6). The default is a no-op.
type FailureTelemetry interface {
	OnFailure(snapshot FailureInfo)
}

// NopFailureTelemetry discards every snapshot.
type NopFailureTelemetry struct{}

func (NopFailureTelemetry) OnFailure(FailureInfo) {}

var _ FailureTelemetry = NopFailureTelemetry{}

// TelemetryObservationConfig is the root_observation_config system
// configuration key (spec §6), supplemented from
// supervision/telemetry/telemetry_observation_config.rs (§12): when timing
// is on, every telemetry hop also records a TelemetryLatencyNanos metric.
type TelemetryObservationConfig struct {
	MetricsSink  MetricsSink
	RecordTiming bool
}

// telemetryObserver wraps a FailureTelemetry sink with the latency
// recording TelemetryObservationConfig asks for.
type telemetryObserver struct {
	telemetry FailureTelemetry
	cfg       TelemetryObservationConfig
}

func newTelemetryObserver(telemetry FailureTelemetry, cfg TelemetryObservationConfig) *telemetryObserver {
	if telemetry == nil {
		telemetry = NopFailureTelemetry{}
	}

	return &telemetryObserver{telemetry: telemetry, cfg: cfg}
}

// observe invokes the telemetry sink once for snapshot, recording
// TelemetryInvoked and (if enabled) TelemetryLatencyNanos on the configured
// metrics sink.
func (o *telemetryObserver) observe(snapshot FailureInfo) {
	start := time.Now()
	o.telemetry.OnFailure(snapshot)

	if o.cfg.MetricsSink == nil {
		return
	}

	o.cfg.MetricsSink.TelemetryInvoked()
	if o.cfg.RecordTiming {
		o.cfg.MetricsSink.TelemetryLatencyNanos(time.Since(start).Nanoseconds())
	}

	corelog.DebugS(context.Background(), "failure telemetry observed",
		"subsystem", "SPVR", "actor_id", snapshot.ActorID,
		"hops", snapshot.Stage.Hops())
}
