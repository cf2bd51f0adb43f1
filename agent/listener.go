package agent

import (
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/mantle"
	"github.com/oomph-ac/locomotion/movement"
)

// Listener receives the notable events of an Agent. Methods are called on the goroutine ticking
// the agent and must not tick it themselves.
type Listener interface {
	// HandleModeChange is called after the movement mode of the agent changed.
	HandleModeChange(a *Agent, previous, current movement.Mode)
	// HandleLanded is called when a falling agent lands on a walkable floor.
	HandleLanded(a *Agent, hit collision.Hit)
	// HandleJumped is called after the agent jumped.
	HandleJumped(a *Agent)
	// HandleStuck is called when the capsule could not be freed from geometry.
	HandleStuck(a *Agent, hit collision.Hit)
	// HandleMantleStart is called when a mantle started, either found locally or received from
	// another instance of the agent.
	HandleMantleStart(a *Agent, p mantle.Params)
	// HandleRagdollPose is called once a ragdoll ended and its pose was saved. A grounded ragdoll
	// should play the get up animation matching faceUp.
	HandleRagdollPose(a *Agent, pose string, grounded, faceUp bool)
	// HandleMontage is called when a montage should be played on the agent.
	HandleMontage(a *Agent, montage string, playRate float64)
}

// NopListener implements Listener with no-op methods. Embed it to only implement the methods
// needed.
type NopListener struct{}

// Compile time check to make sure NopListener implements Listener.
var _ Listener = NopListener{}

func (NopListener) HandleModeChange(*Agent, movement.Mode, movement.Mode) {}
func (NopListener) HandleLanded(*Agent, collision.Hit)                    {}
func (NopListener) HandleJumped(*Agent)                                   {}
func (NopListener) HandleStuck(*Agent, collision.Hit)                     {}
func (NopListener) HandleMantleStart(*Agent, mantle.Params)               {}
func (NopListener) HandleRagdollPose(*Agent, string, bool, bool)          {}
func (NopListener) HandleMontage(*Agent, string, float64)                 {}

// Event is sent on the event channel of an agent created WithEventBuffer. It is one of
// ModeChangeEvent, LandedEvent, JumpedEvent, StuckEvent, MantleStartEvent, RagdollPoseEvent or
// MontageEvent.
type Event interface {
	// Tick is the number of the agent tick the event happened in.
	Tick() uint64
}

type tick uint64

func (t tick) Tick() uint64 { return uint64(t) }

type (
	ModeChangeEvent struct {
		tick
		Previous, Current movement.Mode
	}
	LandedEvent struct {
		tick
		Hit collision.Hit
	}
	JumpedEvent struct {
		tick
	}
	StuckEvent struct {
		tick
		Hit collision.Hit
	}
	MantleStartEvent struct {
		tick
		Params mantle.Params
	}
	RagdollPoseEvent struct {
		tick
		Pose             string
		Grounded, FaceUp bool
	}
	MontageEvent struct {
		tick
		Montage  string
		PlayRate float64
	}
)

// Handle sets the listener of the agent. A nil listener resets it.
func (a *Agent) Handle(l Listener) {
	if l == nil {
		l = NopListener{}
	}
	a.lMu.Lock()
	defer a.lMu.Unlock()
	a.l = l
}

// listener returns the current listener of the agent.
func (a *Agent) listener() Listener {
	a.lMu.RLock()
	defer a.lMu.RUnlock()
	return a.l
}

// Events returns the event channel of the agent, or nil if it was not created WithEventBuffer.
// Events are dropped rather than blocking the tick when the channel is full.
func (a *Agent) Events() <-chan Event {
	return a.events
}

// DroppedEvents returns how many events were dropped because the event channel was full.
func (a *Agent) DroppedEvents() uint64 {
	return a.dropped.Load()
}

func (a *Agent) emit(e Event) {
	if a.events == nil {
		return
	}
	select {
	case a.events <- e:
	default:
		a.dropped.Add(1)
	}
}
