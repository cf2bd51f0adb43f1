package network

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/mantle"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/omath"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
)

// Kind identifies the message carried by an encoded frame.
type Kind uint8

const (
	KindSnapshot Kind = iota + 1
	KindMove
	KindEvent
)

// Message is a value that can be sent over a Transport. Marshal reads or writes the message
// depending on the protocol.IO passed.
type Message interface {
	Kind() Kind
	Marshal(io protocol.IO)
}

// Flags are the compressed one bit inputs sent along with moves and snapshots.
type Flags uint8

const (
	FlagJump   Flags = 0x01
	FlagCrouch Flags = 0x02
	// FlagSettingsChanged is set when the max walk speed changed during the tick.
	FlagSettingsChanged Flags = 0x10
)

// Has reports whether every bit of flag is set.
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

// Snapshot is the authoritative state of an agent after a tick.
type Snapshot struct {
	// Sequence is the last client move the authority processed. Zero if it processed none.
	Sequence uint64
	// Timestamp is the simulation time of the authority in microseconds.
	Timestamp int64

	Location     mgl64.Vec3
	Rotation     mgl64.Quat
	Velocity     mgl64.Vec3
	Acceleration mgl64.Vec3
	Mode         movement.Mode
	Flags        Flags
	// MaxWalkSpeed is only sent if FlagSettingsChanged is set.
	MaxWalkSpeed float64
	// Target is the pelvis location replicas pull their ragdoll towards. It is only sent in
	// movement.ModeRagdoll.
	Target mgl64.Vec3
}

// Kind ...
func (*Snapshot) Kind() Kind { return KindSnapshot }

// Marshal ...
func (s *Snapshot) Marshal(io protocol.IO) {
	io.Varuint64(&s.Sequence)
	io.Varint64(&s.Timestamp)
	vec3(io, &s.Location)
	quat(io, &s.Rotation)
	vec3(io, &s.Velocity)
	vec3(io, &s.Acceleration)
	mode(io, &s.Mode)
	io.Uint8((*uint8)(&s.Flags))
	if s.Flags.Has(FlagSettingsChanged) {
		float(io, &s.MaxWalkSpeed)
	}
	if s.Mode == movement.ModeRagdoll {
		vec3(io, &s.Target)
	}
}

// Move is a client tick sent from the autonomous proxy to the authority.
type Move struct {
	Sequence  uint64
	DeltaTime float64
	// Input is the normalised movement input of the tick.
	Input mgl64.Vec3
	Flags Flags
	// MaxWalkSpeed is only sent if FlagSettingsChanged is set.
	MaxWalkSpeed float64

	// Location, Velocity and Mode are the client state predicted at the end of the move.
	Location mgl64.Vec3
	Velocity mgl64.Vec3
	Mode     movement.Mode
}

// Kind ...
func (*Move) Kind() Kind { return KindMove }

// Marshal ...
func (m *Move) Marshal(io protocol.IO) {
	io.Varuint64(&m.Sequence)
	float(io, &m.DeltaTime)
	vec3(io, &m.Input)
	io.Uint8((*uint8)(&m.Flags))
	if m.Flags.Has(FlagSettingsChanged) {
		float(io, &m.MaxWalkSpeed)
	}
	vec3(io, &m.Location)
	vec3(io, &m.Velocity)
	mode(io, &m.Mode)
}

// EventType is the type of a one-shot Event.
type EventType uint8

const (
	EventStartMantle EventType = iota + 1
	EventStartRagdoll
	EventEndRagdoll
	EventPlayMontage
)

// String ...
func (t EventType) String() string {
	switch t {
	case EventStartMantle:
		return "start_mantle"
	case EventStartRagdoll:
		return "start_ragdoll"
	case EventEndRagdoll:
		return "end_ragdoll"
	case EventPlayMontage:
		return "play_montage"
	}
	return "unknown"
}

// Event is a one-shot action that has to happen on every instance of an agent. Which fields are
// sent depends on Type.
type Event struct {
	// Sequence is assigned by the sending Reconciler so repeated events stay distinct.
	Sequence uint64
	Type     EventType

	// MantleType, MantleHeight and LedgeID describe an EventStartMantle. LedgeID is empty if the
	// ledge does not belong to a component.
	MantleType   mantle.Type
	MantleHeight float64
	LedgeID      string

	// Location is the mantle target of an EventStartMantle or the final capsule location of an
	// EventEndRagdoll.
	Location mgl64.Vec3
	Rotation mgl64.Quat

	// Montage and PlayRate describe an EventPlayMontage.
	Montage  string
	PlayRate float64
}

// Kind ...
func (*Event) Kind() Kind { return KindEvent }

// Marshal ...
func (e *Event) Marshal(io protocol.IO) {
	io.Varuint64(&e.Sequence)
	io.Uint8((*uint8)(&e.Type))
	switch e.Type {
	case EventStartMantle:
		io.Uint8((*uint8)(&e.MantleType))
		float(io, &e.MantleHeight)
		io.String(&e.LedgeID)
		vec3(io, &e.Location)
		quat(io, &e.Rotation)
	case EventStartRagdoll:
	case EventEndRagdoll:
		vec3(io, &e.Location)
	case EventPlayMontage:
		io.String(&e.Montage)
		float(io, &e.PlayRate)
	default:
		io.InvalidValue(e.Type, "event type", "unknown event")
	}
}

// vec3 reads or writes v as a float32 vector. After a write v holds the value that was sent.
func vec3(io protocol.IO, v *mgl64.Vec3) {
	w := omath.Vec64To32(*v)
	io.Vec3(&w)
	if !omath.Vec32Finite(w) {
		io.InvalidValue(w, "vector", "non-finite component")
	}
	*v = omath.Vec32To64(w)
}

// quat reads or writes q as four float32 values. The quaternion is normalised on both ends.
func quat(io protocol.IO, q *mgl64.Quat) {
	w := mgl32.Quat{W: float32(q.W), V: omath.Vec64To32(q.V)}
	io.Float32(&w.W)
	io.Vec3(&w.V)
	w = omath.Quat32Normalize(w)
	*q = mgl64.Quat{W: float64(w.W), V: omath.Vec32To64(w.V)}
}

func float(io protocol.IO, f *float64) {
	w := float32(*f)
	io.Float32(&w)
	*f = float64(w)
}

func mode(io protocol.IO, m *movement.Mode) {
	io.Uint8((*uint8)(m))
	if !m.Valid() {
		io.InvalidValue(*m, "movement mode", "unknown mode")
	}
}
