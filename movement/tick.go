package movement

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/assert"
	"github.com/oomph-ac/locomotion/omath"
)

// TickResult is the state of the component after a tick.
type TickResult struct {
	Location mgl64.Vec3
	Velocity mgl64.Vec3
	Rotation mgl64.Quat
	Mode     Mode

	// Iterations is the number of physics iterations the tick used.
	Iterations int
	// BudgetExhausted is set when the iteration cap stopped the tick with time left.
	BudgetExhausted bool
	// Stuck is set when the capsule could not be freed from geometry.
	Stuck bool
	// NaNClamped is set when a non-finite velocity or acceleration was reset to zero.
	NaNClamped bool
	// SettingsChanged is set when a change requested with RequestMaxWalkSpeed was applied.
	SettingsChanged bool
	// Jumped is set when the agent jumped during the tick.
	Jumped bool
}

// Tick advances the component by dt seconds. Authorities and autonomous proxies run the full
// physics while simulated proxies extrapolate the last replicated state.
func (c *Component) Tick(dt float64, role Role) TickResult {
	c.diag.Ticks++
	c.tick = tickStats{}
	c.role = role
	if math.IsNaN(dt) || math.IsInf(dt, 0) {
		dt = 0
	}

	switch role {
	case RoleSimulatedProxy:
		c.simulateMovement(dt)
	default:
		c.performMovement(dt)
	}
	c.diag.Iterations += uint64(c.tick.iterations)
	return c.result()
}

// Role returns the role of the current or last tick.
func (c *Component) Role() Role {
	return c.role
}

func (c *Component) result() TickResult {
	return TickResult{
		Location:        c.location,
		Velocity:        c.velocity,
		Rotation:        c.rotation,
		Mode:            c.mode,
		Iterations:      c.tick.iterations,
		BudgetExhausted: c.tick.budgetExhausted,
		Stuck:           c.tick.stuck,
		NaNClamped:      c.tick.nanClamped,
		SettingsChanged: c.tick.settingsChanged,
		Jumped:          c.tick.jumped,
	}
}

// performMovement runs the full movement update of an agent whose physics this instance owns.
func (c *Component) performMovement(dt float64) {
	if dt < MinTickTime {
		return
	}
	c.rotation = c.frame.SmoothRotation(c.rotation, dt, c.cfg.RotationRate)

	// Something else moved the capsule since the last tick.
	if c.mode == ModeWalking && c.location != c.lastUpdateLocation {
		c.forceNextFloorCheck = true
	}
	c.updateBasedMovement()

	c.applyAccumulatedForces(dt)
	c.crouching = c.wantsToCrouch
	c.handlePendingLaunch()
	if c.pressedJump {
		c.DoJump()
		c.pressedJump = false
	}

	if !assert.FiniteVec(c.velocity, "velocity") {
		c.velocity = mgl64.Vec3{}
		c.nanClamped()
	}
	if !assert.FiniteVec(c.acceleration, "acceleration") {
		c.acceleration = mgl64.Vec3{}
		c.nanClamped()
	}

	c.startNewPhysics(dt, 0)
	c.hasRequestedVelocity = false

	if c.settingsChangePending {
		c.cfg.MaxWalkSpeed = c.requestedMaxWalkSpeed
		c.settingsChangePending = false
		c.tick.settingsChanged = true
	}
	c.saveBaseTransform()
	c.lastUpdateLocation = c.location
}

func (c *Component) nanClamped() {
	if !c.tick.nanClamped {
		c.diag.NaNClamped++
	}
	c.tick.nanClamped = true
	c.dbg.Notify(DebugModeWalking|DebugModeFalling, true, "clamped non-finite movement state to zero")
}

// ReceiveNetworkUpdate applies replicated state. Simulated proxies only start extrapolating once
// the first update arrived.
func (c *Component) ReceiveNetworkUpdate(location mgl64.Vec3, rotation mgl64.Quat, velocity mgl64.Vec3, mode Mode) {
	c.hadNetworkUpdate, c.networkUpdateReceived = true, true
	if location != c.location {
		c.location = location
		c.justTeleported = true
		c.forceNextFloorCheck = true
	}
	c.rotation = rotation.Normalize()
	c.velocity, _ = omath.ZeroNonFinite(velocity)
	if mode != c.mode {
		c.replicatedMode, c.networkModeChanged = mode, true
	}
	c.dbg.Notify(DebugModeNetwork, true, "network update: loc=%v vel=%v mode=%v", location, velocity, mode)
}

// simulateMovement extrapolates a simulated proxy along its replicated velocity. It only runs the
// floor scan, landing and gravity steps the proxy needs to look right between updates.
func (c *Component) simulateMovement(dt float64) {
	if !c.hadNetworkUpdate {
		return
	}
	if c.networkUpdateReceived {
		c.networkUpdateReceived = false
		if c.networkModeChanged {
			c.networkModeChanged = false
			c.SetMode(c.replicatedMode)
		}
	}
	if c.mode == ModeNone || dt < MinTickTime {
		return
	}
	if _, driven := c.drivers[c.mode]; driven && c.mode >= ModeRagdoll {
		// Drivers run on proxies too and tell the roles apart through Role.
		c.startNewPhysics(dt, 0)
		c.lastUpdateLocation = c.location
		return
	}
	if c.mode == ModeWalking {
		c.maintainHorizontalGroundVelocity()
	}
	c.moveSmooth(c.velocity, dt)

	if c.mode != ModeWalking && c.mode != ModeFalling {
		return
	}
	gravDir := c.GravityDirection()
	if omath.IsZero(gravDir) || omath.SafeNormal(c.velocity).Dot(gravDir) >= simulatedLandingDot {
		c.floor = c.FindFloor(c.location, false, nil)
		switch {
		case c.mode == ModeFalling && c.floor.IsWalkableFloor() && c.floor.FloorDist <= MinFloorDist:
			c.SetMode(ModeWalking)
		case c.mode == ModeWalking && !c.floor.IsWalkableFloor():
			c.SetMode(ModeFalling)
		}
	} else {
		c.floor.Clear()
	}
	if c.mode == ModeFalling {
		c.velocity = c.NewFallVelocity(c.velocity, c.Gravity(), dt)
	}
	c.lastUpdateLocation = c.location
}

// moveSmooth moves the capsule by velocity for dt seconds without changing the velocity. Walking
// proxies follow their floor and climb steps, everything else slides.
func (c *Component) moveSmooth(velocity mgl64.Vec3, dt float64) {
	delta := velocity.Mul(dt)
	if omath.IsNearlyZero(delta, omath.KindaSmallNumber) {
		return
	}
	if c.mode == ModeWalking && c.floor.IsWalkableFloor() {
		var stepDown stepDownResult
		c.moveAlongFloor(velocity, dt, &stepDown)
		if stepDown.computedFloor {
			c.floor = stepDown.floor
		}
		return
	}
	hit := c.safeMove(delta)
	if hit.IsValidBlockingHit() {
		c.slideAlongSurface(delta, 1-hit.Time, hit.Normal, &hit, false)
	}
}
