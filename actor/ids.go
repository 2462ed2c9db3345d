package actor

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// ActorId is an opaque, monotonically assigned identifier, unique within a
// single System.
type ActorId uint64

// String implements fmt.Stringer.
func (id ActorId) String() string {
	return fmt.Sprintf("%d", uint64(id))
}

// idGenerator hands out monotonically increasing ActorIds for one System.
type idGenerator struct {
	next atomic.Uint64
}

// allocate assigns the next ActorId, starting at 1 (0 is reserved for "no
// parent", i.e. the root guardian's own parent slot).
func (g *idGenerator) allocate() ActorId {
	return ActorId(g.next.Add(1))
}

// ActorPath is the ordered sequence of ActorIds from the root guardian down
// to a given actor; it doubles as the addressing path embedded in a Pid.
type ActorPath []ActorId

// Child returns a new path with id appended.
func (p ActorPath) Child(id ActorId) ActorPath {
	out := make(ActorPath, len(p)+1)
	copy(out, p)
	out[len(p)] = id

	return out
}

// String renders the path as slash-separated decimal segments, the same
// shape used inside a Pid URI.
func (p ActorPath) String() string {
	segs := make([]string, len(p))
	for i, id := range p {
		segs[i] = id.String()
	}

	return strings.Join(segs, "/")
}

// MetadataID references a slot in the process-wide metadata table (see
// metadata.go) holding a sender/responder dispatcher for a single user
// envelope.
type MetadataID uint64

// EscalationStage records how many times a FailureInfo has been forwarded
// up the supervision tree.
type EscalationStage struct {
	escalated bool
	hops      uint8
}

// InitialStage is the escalation stage of a freshly raised failure.
func InitialStage() EscalationStage {
	return EscalationStage{}
}

// IsEscalated reports whether this stage has been forwarded at least once.
func (s EscalationStage) IsEscalated() bool {
	return s.escalated
}

// Hops returns the number of escalation hops so far (0 if not escalated).
func (s EscalationStage) Hops() uint8 {
	return s.hops
}

// Next returns the stage reached after one more escalation hop, saturating
// at math.MaxUint8 per the spec's explicit escalation-hop-saturation
// invariant.
func (s EscalationStage) Next() EscalationStage {
	if !s.escalated {
		return EscalationStage{escalated: true, hops: 1}
	}
	if s.hops == 255 {
		return s
	}

	return EscalationStage{escalated: true, hops: s.hops + 1}
}

// FailureTag is a single free-form (key, value) annotation attached to a
// FailureInfo snapshot.
type FailureTag struct {
	Key   string
	Value string
}

// maxFailureTags bounds the number of free-form tags carried by a
// FailureInfo snapshot, per spec §3/§6.
const maxFailureTags = 8

// FailureInfo describes a handler failure as it propagates from the
// failing cell up through its supervisors to the root guardian.
type FailureInfo struct {
	ActorID     ActorId
	Path        ActorPath
	Payload     any
	Component   string
	Endpoint    string
	Transport   string
	Tags        []FailureTag
	Stage       EscalationStage
	Description string
}

// NewFailureInfo builds an Initial-stage FailureInfo for a handler failure.
func NewFailureInfo(actorID ActorId, path ActorPath, payload any, description string) FailureInfo {
	return FailureInfo{
		ActorID:     actorID,
		Path:        path,
		Payload:     payload,
		Stage:       InitialStage(),
		Description: description,
	}
}

// WithTag returns a copy of the snapshot with (key, value) appended, unless
// the tag budget is already exhausted, in which case the tag is dropped
// silently (snapshots must stay cheap to clone).
func (f FailureInfo) WithTag(key, value string) FailureInfo {
	if len(f.Tags) >= maxFailureTags {
		return f
	}

	tags := make([]FailureTag, len(f.Tags), len(f.Tags)+1)
	copy(tags, f.Tags)
	f.Tags = append(tags, FailureTag{Key: key, Value: value})

	return f
}

// EscalateToParent returns a copy of the snapshot with its escalation stage
// advanced by one hop, saturating at 255.
func (f FailureInfo) EscalateToParent() FailureInfo {
	f.Stage = f.Stage.Next()

	return f
}
