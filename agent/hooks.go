package agent

import (
	"fmt"
	"math"

	"github.com/getsentry/sentry-go"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/mantle"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/network"
	"github.com/oomph-ac/locomotion/omath"
	"github.com/oomph-ac/locomotion/ragdoll"
)

// hooks forwards the callbacks of the parts of an agent to its listener. It keeps the observer,
// ragdoll handler and event handler methods off the Agent API.
type hooks struct {
	movement.NopObserver
	a *Agent
}

// Compile time checks to make sure hooks implements every callback interface it is used as.
var (
	_ movement.Observer    = (*hooks)(nil)
	_ ragdoll.Handler      = (*hooks)(nil)
	_ network.EventHandler = (*hooks)(nil)
)

func (h *hooks) HandleModeChange(_ *movement.Component, previous, current movement.Mode) {
	a := h.a
	a.targetForward = a.forward()
	if current == movement.ModeFalling {
		a.airForward = a.targetForward
	}
	a.listener().HandleModeChange(a, previous, current)
	a.emit(ModeChangeEvent{tick: tick(a.ticks), Previous: previous, Current: current})
}

func (h *hooks) HandleLanded(c *movement.Component, hit collision.Hit) {
	a := h.a
	a.landing = &landing{
		speed:    math.Abs(c.Frame().Vertical(c.Velocity())),
		hasInput: !omath.IsZero(c.Acceleration()),
	}
	a.listener().HandleLanded(a, hit)
	a.emit(LandedEvent{tick: tick(a.ticks), Hit: hit})
}

func (h *hooks) HandleStuck(c *movement.Component, hit collision.Hit) {
	a := h.a
	data := map[string]any{"location": fmt.Sprint(c.Location()), "mode": c.Mode().String()}
	if hit.Component != nil {
		data["component"] = hit.Component.ID()
	}
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Category: "locomotion",
		Message:  "agent " + a.id + " stuck in geometry",
		Data:     data,
		Level:    sentry.LevelWarning,
	})
	a.listener().HandleStuck(a, hit)
	a.emit(StuckEvent{tick: tick(a.ticks), Hit: hit})
}

func (h *hooks) HandleStart() {}

// HandleEnd plays the get up montage of a grounded ragdoll on this instance. Every instance ends
// the ragdoll on its own, so the montage is not replicated.
func (h *hooks) HandleEnd(pose string, grounded, faceUp bool) {
	a := h.a
	a.listener().HandleRagdollPose(a, pose, grounded, faceUp)
	a.emit(RagdollPoseEvent{tick: tick(a.ticks), Pose: pose, Grounded: grounded, FaceUp: faceUp})
	if !grounded {
		return
	}
	if faceUp {
		a.montage(GetUpBackMontage, 1)
	} else {
		a.montage(GetUpFrontMontage, 1)
	}
}

// HandleEvent applies an event received from another instance of the agent. Events that are
// already in effect are ignored.
func (h *hooks) HandleEvent(e network.Event) {
	a := h.a
	switch e.Type {
	case network.EventStartMantle:
		if a.mantle.Active() {
			return
		}
		p := mantle.Params{
			Type:   e.MantleType,
			Height: e.MantleHeight,
			Ledge:  mantle.Ledge{Transform: omath.NewTransform(e.Location, e.Rotation)},
		}
		if f, ok := a.q.(ComponentFinder); ok && e.LedgeID != "" {
			p.Ledge.Component, _ = f.Component(e.LedgeID)
		}
		if a.mantle.Start(p) {
			a.mantleStarted(p)
		}
	case network.EventStartRagdoll:
		a.ragdoll.Start()
	case network.EventEndRagdoll:
		if !a.ragdoll.Active() {
			return
		}
		a.ragdoll.End()
		if a.role == movement.RoleSimulatedProxy {
			a.c.SetLocation(e.Location)
		}
	case network.EventPlayMontage:
		a.montage(e.Montage, e.PlayRate)
	default:
		a.log.Debug("unknown agent event", "type", e.Type.String())
	}
}
