package movement

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
)

// Observer receives notifications from a Component. Notifications are delivered synchronously
// on the goroutine ticking the component, so implementations must not block. While the component
// replays moves with Replay, only observers that also drive a mode are notified.
type Observer interface {
	// HandleModeChange is called after the mode changed and its side effects were applied.
	HandleModeChange(c *Component, previous, current Mode)
	// HandleLanded is called when a falling agent lands on hit.
	HandleLanded(c *Component, hit collision.Hit)
	// HandleJumpApex is called once per jump when the agent stops rising.
	HandleJumpApex(c *Component)
	// HandleWalkingOffLedge is called when a walking agent is about to fall off a ledge.
	HandleWalkingOffLedge(c *Component, previousFloorNormal, previousLocation mgl64.Vec3, timeDelta float64)
	// HandleStuck is called when the capsule could not be freed from geometry.
	HandleStuck(c *Component, hit collision.Hit)
	// HandleImpact is called whenever a move is blocked.
	HandleImpact(c *Component, hit collision.Hit, timeSlice float64, delta mgl64.Vec3)
}

// NopObserver implements Observer with no-op methods. Embed it to only handle some notifications.
type NopObserver struct{}

// Compile time check to make sure NopObserver implements Observer.
var _ Observer = NopObserver{}

func (NopObserver) HandleModeChange(*Component, Mode, Mode)                           {}
func (NopObserver) HandleLanded(*Component, collision.Hit)                            {}
func (NopObserver) HandleJumpApex(*Component)                                         {}
func (NopObserver) HandleWalkingOffLedge(*Component, mgl64.Vec3, mgl64.Vec3, float64) {}
func (NopObserver) HandleStuck(*Component, collision.Hit)                             {}
func (NopObserver) HandleImpact(*Component, collision.Hit, float64, mgl64.Vec3)       {}

// AddObserver registers o. Observers are notified in registration order.
func (c *Component) AddObserver(o Observer) {
	c.observers = append(c.observers, o)
}

// RemoveObserver unregisters o.
func (c *Component) RemoveObserver(o Observer) {
	for i, registered := range c.observers {
		if registered == o {
			c.observers = append(c.observers[:i], c.observers[i+1:]...)
			return
		}
	}
}

// Replay runs f with notifications muted for every observer that is not also a ModeDriver. It is
// used to simulate moves again whose notifications already went out the first time around.
func (c *Component) Replay(f func()) {
	c.replaying = true
	defer func() {
		c.replaying = false
	}()
	f()
}

// Replaying reports whether the component is inside Replay.
func (c *Component) Replaying() bool {
	return c.replaying
}

// notify calls f for every observer that should hear about the current event.
func (c *Component) notify(f func(o Observer)) {
	for _, o := range c.observers {
		if c.replaying {
			if _, driver := o.(ModeDriver); !driver {
				continue
			}
		}
		f(o)
	}
}
