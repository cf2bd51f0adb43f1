package movement

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/omath"
)

// AddForce accumulates a force that is integrated over the next tick. The force is divided by the
// mass of the agent.
func (c *Component) AddForce(force mgl64.Vec3) {
	if omath.IsZero(force) || c.cfg.Mass <= 0 {
		return
	}
	c.pendingForce = c.pendingForce.Add(force.Mul(1 / c.cfg.Mass))
}

// AddImpulse accumulates an impulse applied at the start of the next tick. With velocityChange
// the impulse is applied as is, otherwise it is divided by the mass of the agent.
func (c *Component) AddImpulse(impulse mgl64.Vec3, velocityChange bool) {
	if omath.IsZero(impulse) {
		return
	}
	if !velocityChange {
		if c.cfg.Mass <= 0 {
			return
		}
		impulse = impulse.Mul(1 / c.cfg.Mass)
	}
	c.pendingImpulse = c.pendingImpulse.Add(impulse)
}

// Launch replaces the velocity with v at the start of the next tick and makes the agent fall.
func (c *Component) Launch(v mgl64.Vec3) {
	if c.mode == ModeNone {
		return
	}
	c.pendingLaunch, c.hasLaunch = v, true
}

// ClearAccumulatedForces drops forces, impulses and launches that were not applied yet.
func (c *Component) ClearAccumulatedForces() {
	c.pendingForce, c.pendingImpulse, c.pendingLaunch = mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}
	c.hasLaunch = false
}

// applyAccumulatedForces adds the pending impulse and force to the velocity. A walking agent pushed
// away from its floor harder than gravity pulls it back starts falling.
func (c *Component) applyAccumulatedForces(dt float64) {
	if omath.IsZero(c.pendingImpulse) && omath.IsZero(c.pendingForce) {
		return
	}
	if c.mode.MovingOnGround() {
		gravDir := c.GravityDirection()
		if omath.IsZero(gravDir) {
			gravDir = c.CapsuleUp().Mul(-1)
		}
		push := c.pendingImpulse.Add(c.pendingForce.Mul(dt)).Add(c.Gravity().Mul(dt))
		if push.Dot(gravDir) < -omath.SmallNumber {
			c.SetMode(ModeFalling)
		}
	}
	c.velocity = c.velocity.Add(c.pendingImpulse).Add(c.pendingForce.Mul(dt))
	c.pendingImpulse, c.pendingForce = mgl64.Vec3{}, mgl64.Vec3{}
}

// handlePendingLaunch applies a launch requested with Launch. It reports whether there was one.
func (c *Component) handlePendingLaunch() bool {
	if !c.hasLaunch {
		return false
	}
	c.velocity = c.pendingLaunch
	c.pendingLaunch, c.hasLaunch = mgl64.Vec3{}, false
	c.SetMode(ModeFalling)
	return true
}

// Jump requests a jump on the next tick.
func (c *Component) Jump() {
	c.pressedJump = true
}

// StopJumping cancels a jump requested with Jump that has not been performed yet.
func (c *Component) StopJumping() {
	c.pressedJump = false
}

// CanJump reports whether the agent is in a state it can jump from.
func (c *Component) CanJump() bool {
	return c.mode.MovingOnGround() && !c.crouching && c.cfg.JumpZVelocity > 0
}

// DoJump makes the agent jump right away: its velocity is flattened against the capsule axis and
// JumpZVelocity is added along it. It reports whether the jump happened.
func (c *Component) DoJump() bool {
	if !c.CanJump() {
		return false
	}
	up := c.CapsuleUp()
	c.velocity = omath.PlaneProject(c.velocity, up).Add(up.Mul(c.cfg.JumpZVelocity))
	c.notifyApex = true
	c.tick.jumped = true
	c.SetMode(ModeFalling)
	c.dbg.Notify(DebugModeFalling, true, "jumped with velocity %v", c.velocity)
	return true
}

// SetCrouch sets whether the agent wants to crouch. Crouching only takes effect on the ground.
func (c *Component) SetCrouch(crouch bool) {
	c.wantsToCrouch = crouch
}

// Crouching reports whether the agent is crouched.
func (c *Component) Crouching() bool {
	return c.crouching
}

// RequestVelocity makes the next tick steer toward v, as used when following a path. With
// atMaxSpeed the agent accelerates to the speed limit along v instead of the speed of v.
func (c *Component) RequestVelocity(v mgl64.Vec3, atMaxSpeed bool) {
	c.requestedVelocity, c.hasRequestedVelocity, c.requestedAtMaxSpeed = v, true, atMaxSpeed
}

// RequestMaxWalkSpeed changes the walking speed limit once the current tick has finished. The
// change is reported through TickResult so proxies can replicate it.
func (c *Component) RequestMaxWalkSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	c.requestedMaxWalkSpeed, c.settingsChangePending = speed, true
}

// SetBrakingFrictionFactor scales the friction applied while braking. It lasts until the next
// SetConfig.
func (c *Component) SetBrakingFrictionFactor(factor float64) {
	c.cfg.BrakingFrictionFactor = max(factor, 0)
}

// SetInputAcceleration sets the normalised movement input. The input is constrained to the plane
// of the capsule on the ground and while falling, clamped to unit length and scaled by
// MaxAcceleration. Its length is kept as the analog input modifier.
func (c *Component) SetInputAcceleration(input mgl64.Vec3) {
	input, _ = omath.ZeroNonFinite(input)
	if c.mode == ModeWalking || c.mode == ModeFalling {
		input = omath.PlaneProject(input, c.CapsuleUp())
	}
	input = omath.ClampToMaxSize(input, 1)
	c.acceleration = input.Mul(c.cfg.MaxAcceleration)
	c.analogInput = 0
	if c.cfg.MaxAcceleration > 0 {
		c.analogInput = omath.ClampFloat(input.Len(), 0, 1)
	}
}

// SetGravityUp changes the up axis of the gravity frame. A zero axis switches gravity off: a walking
// or falling agent starts flying. Switching gravity back on makes an agent that started flying that
// way fall again.
func (c *Component) SetGravityUp(up mgl64.Vec3) {
	changed := c.frame.SetUp(up)
	c.forceNextFloorCheck = true
	if !changed {
		return
	}
	if c.frame.ZeroG() {
		if c.mode == ModeWalking || c.mode == ModeFalling {
			c.zeroGFlying = true
			c.SetMode(ModeFlying)
		}
		return
	}
	if c.zeroGFlying && c.mode == ModeFlying {
		c.SetMode(ModeFalling)
	}
	c.zeroGFlying = false
}

// updateBasedMovement carries the agent along with the body it stands on. The base point of the
// capsule keeps its offset from the base while the capsule keeps its up axis and only picks up
// the rotation of the base around it.
func (c *Component) updateBasedMovement() {
	if c.base == nil || !c.mode.MovingOnGround() {
		return
	}
	current := c.base.Transform()
	if current.Location == c.baseTransform.Location && omath.QuatEqual(current.Rotation, c.baseTransform.Rotation, 1e-8) {
		return
	}
	up := c.CapsuleUp()
	halfHeight := c.cfg.CapsuleHalfHeight
	basePoint := c.location.Sub(up.Mul(halfHeight))

	local := c.baseTransform.Rotation.Inverse().Rotate(basePoint.Sub(c.baseTransform.Location))
	newBasePoint := current.Location.Add(current.Rotation.Rotate(local))
	delta := newBasePoint.Sub(basePoint)

	deltaRotation := current.Rotation.Mul(c.baseTransform.Rotation.Inverse())
	if !omath.QuatEqual(deltaRotation, mgl64.QuatIdent(), 1e-8) {
		forward := omath.PlaneProject(deltaRotation.Rotate(omath.ForwardOf(c.rotation)), up)
		if !omath.IsNearlyZero(forward, omath.KindaSmallNumber) {
			c.rotation = omath.QuatFromZX(up, forward)
		}
	}

	// The base itself must not block the capsule it carries.
	filter := c.collision.Filter
	c.collision.Filter.Ignore = append(append([]string(nil), filter.Ignore...), c.base.ID())
	hit := c.safeMove(delta)
	c.collision.Filter = filter

	c.dbg.Notify(DebugModeWalking, true, "based movement by %v on %v (blocked=%v)", delta, c.base.ID(), hit.Blocking)
	c.saveBaseTransform()
}

// impartedBaseVelocity returns the velocity of the body the agent stands on, if it should carry
// over into a fall.
func (c *Component) impartedBaseVelocity() mgl64.Vec3 {
	if !c.cfg.ImpartBaseVelocity || c.base == nil {
		return mgl64.Vec3{}
	}
	return c.base.Velocity()
}

