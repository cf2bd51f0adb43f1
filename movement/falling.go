package movement

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/omath"
)

// physFalling integrates a falling agent for dt seconds. Input only steers the agent within the
// plane perpendicular to gravity, scaled by air control. It returns the time left after landing
// and the iterations used so far.
func (c *Component) physFalling(dt float64, iterations int) (float64, int) {
	if dt < MinTickTime {
		return 0, iterations
	}
	gravDir := c.GravityDirection()
	if omath.IsZero(gravDir) {
		c.acceleration, c.velocity = mgl64.Vec3{}, mgl64.Vec3{}
		return 0, iterations
	}

	fallAccel := c.fallingLateralAcceleration()
	hasAirControl := fallAccel.LenSqr() > 0
	remaining := dt

	for remaining >= MinTickTime && iterations < c.cfg.MaxSimulationIterations {
		iterations++
		timeTick := c.simulationTimeStep(remaining, iterations)
		remaining -= timeTick

		oldLocation := c.location
		c.justTeleported = false
		oldVelocity := c.velocity
		velocityNoAirControl := c.velocity

		oldVertical := omath.ProjectOnto(c.velocity, gravDir)
		input := c.acceleration
		if hasAirControl {
			// Integrate once without air control to know its contribution.
			c.acceleration = mgl64.Vec3{}
			c.velocity = omath.PlaneProject(c.velocity, gravDir)
			c.CalcVelocity(timeTick, c.cfg.FallingLateralFriction, false, c.cfg.BrakingDecelerationFalling)
			velocityNoAirControl = omath.PlaneProject(c.velocity, gravDir).Add(oldVertical)
			c.velocity = oldVelocity
		}
		c.acceleration = fallAccel
		c.velocity = omath.PlaneProject(c.velocity, gravDir)
		c.CalcVelocity(timeTick, c.cfg.FallingLateralFriction, false, c.cfg.BrakingDecelerationFalling)
		c.velocity = omath.PlaneProject(c.velocity, gravDir).Add(oldVertical)
		c.acceleration = input
		if !hasAirControl {
			velocityNoAirControl = c.velocity
		}

		gravity := c.Gravity()
		c.velocity = c.NewFallVelocity(c.velocity, gravity, timeTick)
		velocityNoAirControl = c.NewFallVelocity(velocityNoAirControl, gravity, timeTick)
		airControlAccel := c.velocity.Sub(velocityNoAirControl).Mul(1 / timeTick)

		if c.notifyApex && c.velocity.Dot(gravDir) >= 0 {
			c.notifyApex = false
			c.notify(func(o Observer) { o.HandleJumpApex(c) })
		}

		adjusted := oldVelocity.Add(c.velocity).Mul(0.5 * timeTick)
		hit := c.safeMove(adjusted)
		lastMoveTimeSlice := timeTick
		subTimeTickRemaining := timeTick * (1 - hit.Time)

		if hit.Blocking {
			if c.isValidLandingSpot(c.location, hit) {
				return c.processLanded(hit, remaining+subTimeTickRemaining), iterations
			}
			adjusted = c.velocity.Mul(timeTick)
			if !hit.StartPenetrating && c.shouldCheckForValidLandingSpot(hit) {
				floor := c.FindFloor(c.location, false, nil)
				if floor.IsWalkableFloor() && c.isValidLandingSpot(c.location, floor.Hit) {
					return c.processLanded(floor.Hit, remaining+subTimeTickRemaining), iterations
				}
			}
			c.handleImpact(hit, lastMoveTimeSlice, adjusted)
			if c.next() != ModeFalling {
				return remaining, iterations
			}

			if hasAirControl {
				deltaV := c.limitAirControl(airControlAccel, hit, false).Mul(lastMoveTimeSlice)
				adjusted = velocityNoAirControl.Add(deltaV).Mul(lastMoveTimeSlice)
			}
			oldHitNormal, oldHitImpactNormal := hit.Normal, hit.ImpactNormal
			delta := c.computeSlideVector(adjusted, 1-hit.Time, oldHitNormal, hit)

			if subTimeTickRemaining > omath.KindaSmallNumber && !c.justTeleported {
				c.velocity = delta.Mul(1 / subTimeTickRemaining)
			}
			if subTimeTickRemaining > omath.KindaSmallNumber && delta.Dot(adjusted) > 0 {
				hit = c.safeMove(delta)
				if hit.Blocking {
					lastMoveTimeSlice = subTimeTickRemaining
					subTimeTickRemaining *= 1 - hit.Time
					if c.isValidLandingSpot(c.location, hit) {
						return c.processLanded(hit, remaining+subTimeTickRemaining), iterations
					}
					c.handleImpact(hit, lastMoveTimeSlice, delta)
					if c.next() != ModeFalling {
						return remaining, iterations
					}

					if hasAirControl && hit.Normal.Dot(gravDir) < -VerticalSlopeNormalZ {
						// Compute the slide without air control so it cannot push the agent up a wall.
						delta = c.computeSlideVector(velocityNoAirControl.Mul(lastMoveTimeSlice), 1, oldHitNormal, hit)
					}
					delta = c.twoWallAdjust(delta, hit, oldHitNormal)
					if hasAirControl {
						deltaV := c.limitAirControl(airControlAccel, hit, false).Mul(subTimeTickRemaining)
						if deltaV.Dot(oldHitNormal) > 0 {
							delta = delta.Add(deltaV.Mul(subTimeTickRemaining))
						}
					}
					if subTimeTickRemaining > omath.KindaSmallNumber && !c.justTeleported {
						c.velocity = delta.Mul(1 / subTimeTickRemaining)
					}

					// Two opposing unwalkable slopes form a ditch the agent cannot slide out of.
					ditch := oldHitImpactNormal.Dot(gravDir) < 0 && hit.ImpactNormal.Dot(gravDir) < 0 &&
						math.Abs(delta.Dot(gravDir)) <= omath.KindaSmallNumber && hit.ImpactNormal.Dot(oldHitImpactNormal) < 0
					hit = c.safeMove(delta)
					if hit.Time == 0 {
						// Stuck in a corner: try to slide out sideways.
						side := omath.SafeNormal(omath.PlaneProject(oldHitNormal.Add(hit.ImpactNormal), gravDir))
						if omath.IsNearlyZero(side, omath.KindaSmallNumber) {
							side = gravDir.Cross(omath.SafeNormal(omath.PlaneProject(oldHitNormal, gravDir)))
						}
						hit = c.safeMove(side)
					}

					if ditch || c.isValidLandingSpot(c.location, hit) || hit.Time == 0 {
						return c.processLanded(hit, 0), iterations
					} else if c.perchRadiusThreshold() > 0 && hit.Time == 1 && oldHitImpactNormal.Dot(gravDir) <= -c.cfg.WalkableFloorZ {
						c.escapeDitch(oldLocation, gravDir, timeTick)
					}
				}
			}
		}

		if omath.PlaneProject(c.velocity, gravDir).LenSqr() <= omath.KindaSmallNumber*10 {
			c.velocity = omath.ProjectOnto(c.velocity, gravDir)
		}
	}
	c.exhausted(remaining)
	return 0, iterations
}

// escapeDitch gives an agent wedged in a ditch and barely moving a small hop in a random
// planar direction.
func (c *Component) escapeDitch(oldLocation, gravDir mgl64.Vec3, timeTick float64) {
	moved := c.location.Sub(oldLocation)
	vertical := math.Abs(moved.Dot(gravDir))
	planarSq := omath.PlaneProject(moved, gravDir).LenSqr()
	if vertical > 0.2*timeTick || planarSq > 4*timeTick {
		return
	}
	nudge := 0.25 * c.MaxSpeed()
	c.velocity = c.velocity.Add(mgl64.Vec3{
		nudge * (c.rng.Float64() - 0.5),
		nudge * (c.rng.Float64() - 0.5),
		nudge * (c.rng.Float64() - 0.5),
	})
	c.velocity = omath.PlaneProject(c.velocity, gravDir).Add(gravDir.Mul(-math.Max(c.cfg.JumpZVelocity*0.25, 1)))
	c.dbg.Notify(DebugModeFalling, true, "escaping ditch with velocity %v", c.velocity)
	c.safeMove(c.velocity.Mul(timeTick))
}

// processLanded notifies observers of the landing and requests the walking mode. It returns the
// time left to integrate after landing.
func (c *Component) processLanded(hit collision.Hit, remaining float64) float64 {
	c.diag.Landings++
	c.dbg.Notify(DebugModeFalling, true, "landed on %v with %.4fs left", hit.ImpactPoint, remaining)
	c.notify(func(o Observer) { o.HandleLanded(c, hit) })
	if c.next() == ModeFalling {
		c.SetMode(ModeWalking)
	}
	return remaining
}
