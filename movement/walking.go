package movement

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/omath"
)

// physWalking moves a walking agent along its floor for dt seconds. It returns the time left
// when the agent left the walking mode and the iterations used so far.
func (c *Component) physWalking(dt float64, iterations int) (float64, int) {
	if dt < MinTickTime {
		return 0, iterations
	}
	if !c.collisionEnabled {
		return 0, iterations
	}

	c.justTeleported = false
	checkedFall, triedLedgeMove := false, false
	remaining := dt

	for remaining >= MinTickTime && iterations < c.cfg.MaxSimulationIterations {
		iterations++
		c.justTeleported = false
		timeTick := c.simulationTimeStep(remaining, iterations)
		remaining -= timeTick

		oldBase := c.base
		var oldBaseLocation mgl64.Vec3
		if oldBase != nil {
			oldBaseLocation = oldBase.Transform().Location
		}
		oldLocation := c.location
		oldFloor := c.floor

		c.maintainHorizontalGroundVelocity()
		c.CalcVelocity(timeTick, c.cfg.GroundFriction, false, c.maxBrakingDeceleration())

		delta := c.velocity.Mul(timeTick)
		zeroDelta := omath.IsNearlyZero(delta, omath.KindaSmallNumber)
		var stepDown stepDownResult

		if zeroDelta {
			remaining = 0
		} else {
			c.moveAlongFloor(c.velocity, timeTick, &stepDown)
			if c.next() == ModeFalling {
				// Refund the part of the sub step that was not travelled.
				if desired := delta.Len(); desired > omath.KindaSmallNumber {
					actual := omath.PlaneProject(c.location.Sub(oldLocation), c.CapsuleUp()).Len()
					remaining += timeTick * (1 - math.Min(1, actual/desired))
				}
				return remaining, iterations
			}
		}

		if stepDown.computedFloor {
			c.floor = stepDown.floor
		} else {
			c.floor = c.FindFloor(c.location, zeroDelta, nil)
		}

		if !c.canWalkOffLedges() && !c.floor.IsWalkableFloor() {
			var newDelta mgl64.Vec3
			if !triedLedgeMove {
				newDelta = c.ledgeMove(oldLocation, delta, c.CapsuleUp().Mul(-1))
			}
			if !omath.IsZero(newDelta) {
				c.revertMove(oldLocation, oldBase, oldBaseLocation, oldFloor, false)
				triedLedgeMove = true
				c.velocity = newDelta.Mul(1 / timeTick)
				remaining += timeTick
				continue
			}
			mustJump := zeroDelta || oldBase == nil
			if mustJump || !checkedFall {
				if fell, left := c.checkFall(oldFloor, c.floor.Hit, delta, oldLocation, remaining, timeTick, mustJump); fell {
					return left, iterations
				}
			}
			checkedFall = true
			c.revertMove(oldLocation, oldBase, oldBaseLocation, oldFloor, true)
			remaining = 0
			break
		}

		if c.floor.IsWalkableFloor() {
			if c.shouldCatchAir(oldFloor, c.floor) {
				c.notifyWalkingOffLedge(oldFloor.Hit.ImpactNormal, oldLocation, timeTick)
				if c.next() == ModeWalking {
					return c.startFalling(remaining, timeTick, delta, oldLocation), iterations
				}
				return remaining, iterations
			}
			c.adjustFloorHeight()
			c.setBaseFromFloor()
		} else if c.floor.Hit.StartPenetrating && remaining <= 0 {
			// The floor sweep started inside geometry: pop out instead of sweeping down again.
			hit := c.floor.Hit
			hit.TraceEnd = hit.TraceStart.Add(c.CapsuleUp().Mul(MaxFloorDist))
			c.resolvePenetration(collision.PenetrationAdjustment(hit, c.cfg.MaxDepenetrationWithGeometry), hit)
		}

		if !c.floor.IsWalkableFloor() && !c.floor.Hit.StartPenetrating {
			mustJump := c.justTeleported || zeroDelta || oldBase == nil
			if mustJump || !checkedFall {
				if fell, left := c.checkFall(oldFloor, c.floor.Hit, delta, oldLocation, remaining, timeTick, mustJump); fell {
					return left, iterations
				}
			}
			checkedFall = true
		}

		if c.next() == ModeWalking && !c.justTeleported && timeTick >= MinTickTime {
			// Make the velocity reflect the actual move.
			c.velocity = c.location.Sub(oldLocation).Mul(1 / timeTick)
			c.maintainHorizontalGroundVelocity()
		}

		if c.location == oldLocation {
			remaining = 0
			break
		}
	}
	c.exhausted(remaining)

	if c.next() == ModeWalking {
		c.maintainHorizontalGroundVelocity()
	}
	return 0, iterations
}

// moveAlongFloor moves the capsule along the current floor by velocity for dt seconds, stepping
// up onto obstacles or sliding along them.
func (c *Component) moveAlongFloor(velocity mgl64.Vec3, dt float64, stepDown *stepDownResult) {
	if !c.floor.IsWalkableFloor() {
		return
	}
	up := c.CapsuleUp()
	delta := omath.PlaneProject(velocity, up).Mul(dt)
	ramp := c.ComputeGroundMovementDelta(delta, c.floor.Hit, c.floor.LineTrace)

	hit := c.safeMove(ramp)
	lastMoveTimeSlice := dt

	if hit.StartPenetrating {
		// Deflect off the geometry so the agent does not hitch for the rest of the tick.
		c.handleImpact(hit, 0, mgl64.Vec3{})
		c.slideAlongSurface(delta, 1, hit.Normal, &hit, true)
		if hit.StartPenetrating {
			c.tick.stuck = true
			c.diag.Stuck++
			c.dbg.Notify(DebugModeWalking, true, "stuck in geometry at %v", c.location)
			c.notify(func(o Observer) { o.HandleStuck(c, hit) })
		}
		return
	}
	if !hit.IsValidBlockingHit() {
		return
	}

	applied := hit.Time
	if hit.Time > 0 && hit.Normal.Dot(up) > omath.KindaSmallNumber && c.IsWalkable(hit) {
		// Another walkable ramp.
		initialRemaining := 1 - applied
		ramp = c.ComputeGroundMovementDelta(delta.Mul(initialRemaining), hit, false)
		lastMoveTimeSlice *= initialRemaining
		hit = c.safeMove(ramp)
		applied = omath.ClampFloat(applied+hit.Time*initialRemaining, 0, 1)
	}
	if !hit.IsValidBlockingHit() {
		return
	}

	onBase := c.base != nil && hit.Component != nil && hit.Component.ID() == c.base.ID()
	switch {
	case c.canStepUp(hit) || onBase:
		if !c.stepUp(up.Mul(-1), delta.Mul(1-applied), hit, stepDown) {
			c.handleImpact(hit, lastMoveTimeSlice, ramp)
			c.slideAlongSurface(delta, 1-applied, hit.Normal, &hit, true)
		} else {
			c.justTeleported = c.justTeleported || !c.cfg.MaintainHorizontalGroundVelocity
		}
	case hit.Component != nil && !hit.Component.CanStepUp():
		c.handleImpact(hit, lastMoveTimeSlice, ramp)
		c.slideAlongSurface(delta, 1-applied, hit.Normal, &hit, true)
	}
}

// ComputeGroundMovementDelta tilts a delta perpendicular to the capsule axis onto the plane of a
// walkable ramp so the agent follows the slope instead of pushing into it. Line trace hits and
// unwalkable surfaces leave the delta untouched.
func (c *Component) ComputeGroundMovementDelta(delta mgl64.Vec3, ramp collision.Hit, lineTrace bool) mgl64.Vec3 {
	if lineTrace || !c.IsWalkable(ramp) {
		return delta
	}
	up := c.CapsuleUp()
	dir := omath.SafeNormal(delta)
	if omath.IsZero(dir) {
		return delta
	}
	normal := ramp.ImpactNormal
	// Rotating dir about dir x up turns it toward up, the angle puts it in the ramp plane.
	angle := math.Atan2(-normal.Dot(dir), normal.Dot(up))
	axis := omath.SafeNormal(dir.Cross(up))
	if omath.IsZero(axis) {
		return delta
	}
	newDelta := mgl64.QuatRotate(angle, axis).Rotate(delta)
	if c.cfg.MaintainHorizontalGroundVelocity {
		newDir := omath.SafeNormal(newDelta)
		if d := dir.Dot(newDir); d > omath.KindaSmallNumber {
			newDelta = newDir.Mul(delta.Len() / d)
		}
	}
	return newDelta
}

// checkFall starts a fall when the agent walked off a ledge it may leave. It reports whether
// the agent is falling and the time it has left.
func (c *Component) checkFall(oldFloor FloorResult, hit collision.Hit, delta, oldLocation mgl64.Vec3, remaining, timeTick float64, mustJump bool) (bool, float64) {
	if !mustJump && !c.canWalkOffLedges() {
		return false, remaining
	}
	c.notifyWalkingOffLedge(oldFloor.Hit.ImpactNormal, oldLocation, timeTick)
	if c.next() == ModeWalking {
		remaining = c.startFalling(remaining, timeTick, delta, oldLocation)
	}
	return true, remaining
}

// startFalling switches a walking agent to falling, refunding the part of the last sub step it
// did not travel. It returns the time left for the falling routine.
func (c *Component) startFalling(remaining, timeTick float64, delta, oldLocation mgl64.Vec3) float64 {
	if desired := delta.Len(); desired < omath.KindaSmallNumber {
		remaining = 0
	} else {
		actual := c.location.Sub(oldLocation).Len()
		remaining += timeTick * (1 - math.Min(1, actual/desired))
	}
	if gravDir := c.GravityDirection(); c.cfg.FallingRemovesSpeedZ && !omath.IsZero(gravDir) {
		c.velocity = omath.PlaneProject(c.velocity, gravDir)
	}
	if c.next() == ModeWalking {
		c.SetMode(ModeFalling)
	}
	c.dbg.Notify(DebugModeWalking, true, "started falling with %.4fs left", remaining)
	return remaining
}

// revertMove puts the capsule back where it was before a failed sub step.
func (c *Component) revertMove(oldLocation mgl64.Vec3, oldBase collision.Component, oldBaseLocation mgl64.Vec3, oldFloor FloorResult, failMove bool) {
	c.location = oldLocation
	c.justTeleported = false
	if oldBase != nil && (omath.IsZero(oldBase.Velocity()) || oldBase.Transform().Location == oldBaseLocation) {
		c.floor = oldFloor
		c.setBase(oldBase)
	} else {
		c.setBase(nil)
	}
	if failMove {
		c.velocity, c.acceleration = mgl64.Vec3{}, mgl64.Vec3{}
	}
}

// shouldCatchAir reports whether the floor dropped away far enough for the agent to start
// falling instead of snapping down to it.
func (c *Component) shouldCatchAir(oldFloor, newFloor FloorResult) bool {
	if c.cfg.CatchAirDistance <= 0 || !oldFloor.IsWalkableFloor() {
		return false
	}
	return newFloor.FloorDist-oldFloor.FloorDist > c.cfg.CatchAirDistance
}

func (c *Component) notifyWalkingOffLedge(previousFloorNormal, previousLocation mgl64.Vec3, timeDelta float64) {
	c.notify(func(o Observer) { o.HandleWalkingOffLedge(c, previousFloorNormal, previousLocation, timeDelta) })
}
