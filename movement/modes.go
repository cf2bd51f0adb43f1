package movement

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/omath"
)

// SetMode changes the movement mode. Outside of a tick the change and its side effects apply
// immediately. While a physics routine is running the change is recorded and applied by the
// dispatch loop once the routine returns, so no routine ever observes a mode switch mid-iteration.
func (c *Component) SetMode(m Mode) {
	if !m.Valid() {
		m = ModeNone
	}
	if c.dispatching {
		c.pendingMode, c.modePending = m, m != c.mode
		return
	}
	c.setMode(m)
}

// setMode commits m and applies the side effects of entering it.
func (c *Component) setMode(m Mode) {
	if m == c.mode {
		return
	}
	previous := c.mode
	c.mode = m
	c.diag.ModeChanges++
	c.onModeChanged(previous)
}

func (c *Component) onModeChanged(previous Mode) {
	// Ragdolls are driven by the physics body, the capsule must not collide meanwhile.
	if c.mode == ModeRagdoll {
		c.collisionEnabled = false
	} else if previous == ModeRagdoll {
		c.collisionEnabled = true
		c.forceNextFloorCheck = true
	}

	if c.mode == ModeWalking {
		c.floor = c.FindFloor(c.location, false, nil)
		c.rotation = c.frame.SnapRotation(c.rotation)
		c.adjustFloorHeight()
		c.setBaseFromFloor()
		c.maintainHorizontalGroundVelocity()
	} else {
		c.floor.Clear()
		c.rotation = c.frame.SnapRotation(c.rotation)
		if c.mode == ModeFalling {
			c.velocity = c.velocity.Add(c.impartedBaseVelocity())
		}
		c.setBase(nil)
		if c.mode == ModeNone {
			c.velocity, c.acceleration = mgl64.Vec3{}, mgl64.Vec3{}
			c.hasRequestedVelocity = false
			c.pressedJump = false
		}
	}

	c.dbg.Notify(DebugModeWalking|DebugModeFalling, true, "mode changed from %v to %v", previous, c.mode)
	c.notify(func(o Observer) { o.HandleModeChange(c, previous, c.mode) })
}

// setBase sets the body the agent stands on and remembers its transform for based movement.
func (c *Component) setBase(base collision.Component) {
	c.base = base
	if base != nil {
		c.saveBaseTransform()
	}
}

func (c *Component) setBaseFromFloor() {
	if c.floor.IsWalkableFloor() && c.floor.Hit.Component != nil {
		c.setBase(c.floor.Hit.Component)
		return
	}
	c.setBase(nil)
}

func (c *Component) saveBaseTransform() {
	if c.base == nil {
		return
	}
	t := c.base.Transform()
	c.baseTransform = omath.NewTransform(t.Location, t.Rotation)
}

// startNewPhysics runs the physics routine of the active mode for dt seconds. A routine that
// requests a mode change returns the time it did not use; the loop then commits the change and
// hands the remaining time to the routine of the new mode.
func (c *Component) startNewPhysics(dt float64, iterations int) int {
	for dt >= MinTickTime {
		if iterations >= c.cfg.MaxSimulationIterations {
			c.exhausted(dt)
			break
		}
		remaining := 0.0
		c.dispatching = true
		switch c.mode {
		case ModeNone:
		case ModeWalking:
			remaining, iterations = c.physWalking(dt, iterations)
		case ModeFalling:
			remaining, iterations = c.physFalling(dt, iterations)
		case ModeFlying:
			iterations = c.physFlying(dt, iterations)
		case ModeSwimming:
			iterations = c.physSwimming(dt, iterations)
		case ModeRagdoll, ModeMantling, ModeCustom:
			if d, ok := c.drivers[c.mode]; ok {
				d.Phys(c, dt)
			}
		default:
			c.SetMode(ModeNone)
		}
		c.dispatching = false

		if !c.modePending {
			break
		}
		c.modePending = false
		c.setMode(c.pendingMode)
		dt = remaining
	}
	c.tick.iterations = iterations
	return iterations
}

// exhausted records that the iteration budget ran out with time left to integrate.
func (c *Component) exhausted(remaining float64) {
	if remaining < MinTickTime || c.tick.budgetExhausted {
		return
	}
	c.tick.budgetExhausted = true
	c.diag.BudgetExhausted++
	c.dbg.Notify(DebugModeWalking|DebugModeFalling, true, "iteration budget exhausted with %.6fs left", remaining)
}

// simulationTimeStep returns the length of the next sub step. Sub steps are halved while they
// exceed the maximum time step, except for the last iteration which uses up the remaining time.
func (c *Component) simulationTimeStep(remaining float64, iterations int) float64 {
	if remaining > c.cfg.MaxSimulationTimeStep && iterations < c.cfg.MaxSimulationIterations {
		remaining = math.Min(c.cfg.MaxSimulationTimeStep, remaining*0.5)
	}
	return math.Max(MinTickTime, remaining)
}
