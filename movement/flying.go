package movement

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/omath"
)

// physFlying integrates a flying agent for dt seconds. Flying has no braking and no gravity; the
// agent steps up onto shallow obstacles and slides along everything else.
func (c *Component) physFlying(dt float64, iterations int) int {
	if dt < MinTickTime {
		return iterations
	}
	if c.cfg.GravityScale == 0 {
		c.acceleration, c.velocity = mgl64.Vec3{}, mgl64.Vec3{}
		return iterations
	}
	gravDir := c.GravityDirection()
	if omath.IsZero(gravDir) {
		gravDir = c.CapsuleUp().Mul(-1)
	}
	c.CalcVelocity(dt, 0.5*c.cfg.FluidFriction, true, c.cfg.BrakingDecelerationFlying)
	iterations++

	oldLocation := c.location
	c.justTeleported = false
	adjusted := c.velocity.Mul(dt)
	hit := c.safeMove(adjusted)

	if hit.Time < 1 {
		upDown := gravDir.Dot(omath.SafeNormal(c.velocity))
		steppedUp := false
		if upDown < 0.5 && upDown > -0.2 && math.Abs(hit.ImpactNormal.Dot(gravDir)) < 0.2 && c.canStepUp(hit) {
			stepLocation := c.location
			if steppedUp = c.stepUp(gravDir, adjusted.Mul(1-hit.Time), hit, nil); steppedUp {
				oldLocation = oldLocation.Add(gravDir.Mul(c.location.Sub(stepLocation).Dot(gravDir)))
			}
		}
		if !steppedUp {
			c.handleImpact(hit, dt, adjusted)
			c.slideAlongSurface(adjusted, 1-hit.Time, hit.Normal, &hit, true)
		}
	}
	if !c.justTeleported {
		c.velocity = c.location.Sub(oldLocation).Mul(1 / dt)
	}
	return iterations
}

// physSwimming integrates a swimming agent for dt seconds. Swimming behaves like flying with fluid
// friction and the swim braking deceleration; the agent is treated as fully immersed and neutrally
// buoyant.
func (c *Component) physSwimming(dt float64, iterations int) int {
	if dt < MinTickTime {
		return iterations
	}
	c.CalcVelocity(dt, 0.5*c.cfg.FluidFriction, true, c.cfg.BrakingDecelerationSwimming)
	iterations++

	oldLocation := c.location
	c.justTeleported = false
	adjusted := c.velocity.Mul(dt)
	hit := c.safeMove(adjusted)

	if hit.Time < 1 {
		gravDir := c.GravityDirection()
		if omath.IsZero(gravDir) {
			gravDir = c.CapsuleUp().Mul(-1)
		}
		upDown := gravDir.Dot(omath.SafeNormal(c.velocity))
		steppedUp := false
		if math.Abs(hit.ImpactNormal.Dot(gravDir)) < 0.2 && upDown < 0.5 && upDown > -0.2 && c.canStepUp(hit) {
			stepLocation := c.location
			real := c.velocity
			if steppedUp = c.stepUp(gravDir, adjusted.Mul(1-hit.Time), hit, nil); steppedUp {
				oldLocation = oldLocation.Add(gravDir.Mul(c.location.Sub(stepLocation).Dot(gravDir)))
			}
			c.velocity = real
		}
		if !steppedUp {
			c.handleImpact(hit, dt, adjusted)
			c.slideAlongSurface(adjusted, 1-hit.Time, hit.Normal, &hit, true)
		}
	}
	if !c.justTeleported {
		c.velocity = c.location.Sub(oldLocation).Mul(1 / dt)
	}
	return iterations
}
