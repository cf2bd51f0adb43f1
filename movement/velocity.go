package movement

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/omath"
)

// CalcVelocity integrates the input acceleration into the velocity for dt seconds. friction
// limits how fast the velocity may turn toward the acceleration, fluid applies friction as drag
// and braking is the deceleration used without input or above the speed limit.
func (c *Component) CalcVelocity(dt, friction float64, fluid bool, braking float64) {
	if dt < MinTickTime {
		return
	}
	friction = math.Max(0, friction)
	maxAccel := c.cfg.MaxAcceleration
	maxSpeed := c.MaxSpeed()

	zeroRequestedAccel := true
	var requestedAccel mgl64.Vec3
	var requestedSpeed float64
	if accel, speed, ok := c.applyRequestedMove(dt, maxAccel, maxSpeed, friction); ok {
		requestedAccel, requestedSpeed = omath.ClampToMaxSize(accel, maxAccel), speed
		zeroRequestedAccel = false
	}

	if c.cfg.ForceMaxAccel {
		switch {
		case c.acceleration.LenSqr() > omath.SmallNumber:
			c.acceleration = omath.SafeNormal(c.acceleration).Mul(maxAccel)
		case c.velocity.LenSqr() < omath.SmallNumber:
			c.acceleration = omath.ForwardOf(c.rotation).Mul(maxAccel)
		default:
			c.acceleration = omath.SafeNormal(c.velocity).Mul(maxAccel)
		}
		c.analogInput = 1
	}

	limit := math.Max(requestedSpeed, maxSpeed)
	maxSpeed = math.Max(requestedSpeed, maxSpeed*c.analogInput)
	zeroAccel := omath.IsZero(c.acceleration)
	overMax := c.isExceedingMaxSpeed(maxSpeed)
	overLimit := c.isExceedingMaxSpeed(limit)

	if (zeroAccel && zeroRequestedAccel) || overMax {
		old := c.velocity
		brakingFriction := friction
		if c.cfg.UseSeparateBrakingFriction {
			brakingFriction = c.cfg.BrakingFriction
		}
		c.applyVelocityBraking(dt, brakingFriction, braking)

		// Braking never takes an agent that started above the limit below it. Without input the
		// analog limit is zero, so the configured one applies.
		keep := maxSpeed
		if overLimit {
			keep = limit
		}
		if overMax && c.velocity.LenSqr() < keep*keep && ((overLimit && zeroAccel) || c.acceleration.Dot(old) > 0) {
			c.velocity = omath.SafeNormal(old).Mul(keep)
		}
	} else if !zeroAccel {
		dir := omath.SafeNormal(c.acceleration)
		speed := c.velocity.Len()
		c.velocity = c.velocity.Sub(c.velocity.Sub(dir.Mul(speed)).Mul(math.Min(dt*friction, 1)))
	}

	if fluid {
		c.velocity = c.velocity.Mul(1 - math.Min(friction*dt, 1))
	}

	newMaxSpeed := maxSpeed
	if c.isExceedingMaxSpeed(maxSpeed) {
		newMaxSpeed = c.velocity.Len()
	}
	c.velocity = c.velocity.Add(c.acceleration.Mul(dt)).Add(requestedAccel.Mul(dt))
	c.velocity = omath.ClampToMaxSize(c.velocity, newMaxSpeed)
}

// applyVelocityBraking slows the velocity down by friction and a constant deceleration, sub
// stepping so results stay consistent at low tick rates.
func (c *Component) applyVelocityBraking(dt, friction, braking float64) {
	if omath.IsZero(c.velocity) || dt < MinTickTime {
		return
	}
	friction = math.Max(0, friction*math.Max(0, c.cfg.BrakingFrictionFactor))
	braking = math.Max(0, braking)
	zeroFriction, zeroBraking := friction == 0, braking == 0
	if zeroFriction && zeroBraking {
		return
	}

	old := c.velocity
	maxStep := omath.ClampFloat(c.cfg.BrakingSubStepTime, 1.0/75.0, 1.0/20.0)
	var reverse mgl64.Vec3
	if !zeroBraking {
		reverse = omath.SafeNormal(c.velocity).Mul(-braking)
	}
	for remaining := dt; remaining >= MinTickTime; {
		step := remaining
		if remaining > maxStep && !zeroFriction {
			step = math.Min(maxStep, remaining*0.5)
		}
		remaining -= step
		c.velocity = c.velocity.Add(c.velocity.Mul(-friction).Add(reverse).Mul(step))
		if c.velocity.Dot(old) <= 0 {
			c.velocity = mgl64.Vec3{}
			return
		}
	}
	if speedSq := c.velocity.LenSqr(); speedSq <= omath.KindaSmallNumber || (!zeroBraking && speedSq <= BrakeToStopVelocity*BrakeToStopVelocity) {
		c.velocity = mgl64.Vec3{}
	}
}

// applyRequestedMove steers the velocity toward the requested velocity, if any. It returns the
// acceleration needed to reach it and the requested speed.
func (c *Component) applyRequestedMove(dt, maxAccel, maxSpeed, friction float64) (mgl64.Vec3, float64, bool) {
	if !c.hasRequestedVelocity {
		return mgl64.Vec3{}, 0, false
	}
	speedSq := c.requestedVelocity.LenSqr()
	if speedSq < omath.KindaSmallNumber {
		return mgl64.Vec3{}, 0, false
	}
	speed := math.Sqrt(speedSq)
	dir := c.requestedVelocity.Mul(1 / speed)
	if c.requestedAtMaxSpeed {
		speed = maxSpeed
	} else {
		speed = math.Min(maxSpeed, speed)
	}
	target := dir.Mul(speed)

	var accel mgl64.Vec3
	if c.velocity.LenSqr() < (speed*1.01)*(speed*1.01) {
		current := c.velocity.Len()
		c.velocity = c.velocity.Sub(c.velocity.Sub(dir.Mul(current)).Mul(math.Min(dt*friction, 1)))
		accel = omath.ClampToMaxSize(target.Sub(c.velocity).Mul(1/dt), maxAccel)
	} else {
		// Decelerate instantly so the agent does not overshoot its destination.
		c.velocity = target
	}
	return accel, speed, true
}

// isExceedingMaxSpeed reports whether the velocity is more than one percent above maxSpeed.
func (c *Component) isExceedingMaxSpeed(maxSpeed float64) bool {
	maxSpeed = math.Max(0, maxSpeed)
	return c.velocity.LenSqr() > maxSpeed*maxSpeed*1.01
}

// NewFallVelocity returns velocity after applying gravity for dt seconds. The component along
// gravity never exceeds the terminal velocity.
func (c *Component) NewFallVelocity(velocity, gravity mgl64.Vec3, dt float64) mgl64.Vec3 {
	return NewFallVelocity(velocity, gravity, dt, c.cfg.TerminalVelocity)
}

// NewFallVelocity returns velocity after applying gravity for dt seconds, clamping the part
// along gravity to terminal.
func NewFallVelocity(velocity, gravity mgl64.Vec3, dt, terminal float64) mgl64.Vec3 {
	if omath.IsZero(gravity) {
		return velocity
	}
	result := velocity.Add(gravity.Mul(dt))
	dir := omath.SafeNormal(gravity)
	limit := math.Abs(terminal)
	if result.Dot(dir) > limit {
		result = omath.PlaneProject(result, dir).Add(dir.Mul(limit))
	}
	return result
}

// fallingLateralAcceleration returns the part of the input acceleration perpendicular to gravity
// scaled by the air control of the agent.
func (c *Component) fallingLateralAcceleration() mgl64.Vec3 {
	gravDir := c.GravityDirection()
	accel := omath.PlaneProject(c.acceleration, gravDir)
	if accel.LenSqr() <= 0 {
		return accel
	}
	control := c.boostAirControl(c.cfg.AirControl)
	return omath.ClampToMaxSize(accel.Mul(control), c.cfg.MaxAcceleration)
}

// boostAirControl raises air control while the planar speed is below the boost threshold.
func (c *Component) boostAirControl(control float64) float64 {
	if control == 0 || c.cfg.AirControlBoostMultiplier <= 0 {
		return control
	}
	planar := omath.PlaneProject(c.velocity, c.GravityDirection())
	threshold := c.cfg.AirControlBoostVelocityThreshold
	if planar.LenSqr() < threshold*threshold {
		return math.Min(1, c.cfg.AirControlBoostMultiplier*control)
	}
	return control
}

// limitAirControl keeps air control from pushing the capsule into the wall described by hit,
// which could otherwise push it up the wall.
func (c *Component) limitAirControl(accel mgl64.Vec3, hit collision.Hit, checkLandingSpot bool) mgl64.Vec3 {
	up := c.CapsuleUp()
	if hit.IsValidBlockingHit() && hit.Normal.Dot(up) > VerticalSlopeNormalZ {
		if !checkLandingSpot || !c.isValidLandingSpot(hit.Location, hit) {
			if accel.Dot(hit.Normal) < 0 {
				planarNormal := omath.SafeNormal(omath.PlaneProject(hit.Normal, up))
				return omath.PlaneProject(accel, planarNormal)
			}
		}
	} else if hit.StartPenetrating {
		if accel.Dot(hit.Normal) > 0 {
			return accel
		}
		return mgl64.Vec3{}
	}
	return accel
}

// maintainHorizontalGroundVelocity removes the part of the velocity along the capsule axis,
// keeping the speed unless the config asks to drop it.
func (c *Component) maintainHorizontalGroundVelocity() {
	up := c.CapsuleUp()
	if c.cfg.MaintainHorizontalGroundVelocity {
		c.velocity = omath.PlaneProject(c.velocity, up)
		return
	}
	c.velocity = omath.SafeNormal(omath.PlaneProject(c.velocity, up)).Mul(c.velocity.Len())
}
