package movement

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/omath"
)

// stepDownResult carries the floor found at the end of a successful step up.
type stepDownResult struct {
	computedFloor bool
	floor         FloorResult
}

// canStepUp reports whether the capsule may try to climb onto the surface of hit.
func (c *Component) canStepUp(hit collision.Hit) bool {
	if !hit.IsValidBlockingHit() || c.next() == ModeFalling {
		return false
	}
	if hit.Component == nil {
		return true
	}
	return hit.Component.CanStepUp()
}

// stepUp tries to climb the obstacle described by hit while moving by delta: the capsule is
// lifted by the step height, moved forward and swept back down. Every intermediate move is rolled
// back when the step turns out to be invalid.
func (c *Component) stepUp(gravDir, delta mgl64.Vec3, hit collision.Hit, out *stepDownResult) bool {
	if c.cfg.MaxStepHeight <= 0 || !c.canStepUp(hit) || omath.IsZero(gravDir) {
		return false
	}
	oldLocation := c.location
	radius, halfHeight := c.cfg.CapsuleRadius, c.cfg.CapsuleHalfHeight
	down := c.CapsuleUp().Mul(-1)

	// Project the impact on the capsule axis: only impacts between the bottom of the capsule and
	// the center of its top hemisphere are steps.
	bottom := oldLocation.Add(down.Mul(halfHeight))
	top := oldLocation.Sub(down.Mul(math.Max(0, halfHeight-radius)))
	segment := top.Sub(bottom)
	alpha := hit.ImpactPoint.Sub(bottom).Dot(segment) / segment.LenSqr()
	if alpha > 1 || alpha <= 0 {
		c.dbg.Notify(DebugModeStep, true, "step rejected: impact at %.3f along the capsule axis", alpha)
		return false
	}

	stepSideZ := -hit.ImpactNormal.Dot(gravDir)
	travelUp, travelDown := c.cfg.MaxStepHeight, c.cfg.MaxStepHeight
	floorPoint := bottom
	if c.mode == ModeWalking && c.floor.IsWalkableFloor() {
		floorDist := math.Max(0, c.floor.FloorDist)
		travelUp = math.Max(travelUp-floorDist, 0)
		travelDown = c.cfg.MaxStepHeight + MaxFloorDist*2

		verticalFace := !c.isWithinEdgeTolerance(hit.Location, hit.ImpactPoint, radius)
		if !c.floor.LineTrace && !verticalFace {
			floorPoint = c.floor.Hit.ImpactPoint
		} else {
			floorPoint = floorPoint.Add(down.Mul(c.floor.FloorDist))
		}
	}

	tx := c.begin()
	reject := func(reason string, args ...any) bool {
		tx.revert()
		c.diag.StepUpsRejected++
		c.dbg.Notify(DebugModeStep, true, "step rejected: "+reason, args...)
		return false
	}

	upHit := c.safeMove(gravDir.Mul(-travelUp))
	if upHit.StartPenetrating {
		return reject("capsule penetrating above")
	}

	forwardHit := c.safeMove(delta)
	if upHit.Blocking && forwardHit.Blocking {
		c.handleImpact(upHit, 0, mgl64.Vec3{})
	}
	if forwardHit.Blocking {
		if forwardHit.StartPenetrating {
			return reject("capsule penetrating ahead")
		}
		c.handleImpact(forwardHit, 0, mgl64.Vec3{})
		if c.next() == ModeFalling {
			return true
		}
		forwardTime := forwardHit.Time
		slide := c.slideAlongSurface(delta, 1-forwardHit.Time, forwardHit.Normal, &forwardHit, true)
		if c.next() == ModeFalling {
			return reject("started falling while sliding")
		}
		if forwardTime == 0 && slide == 0 {
			return reject("no forward progress")
		}
	}

	downHit := c.safeMove(gravDir.Mul(travelDown))
	if downHit.StartPenetrating {
		return reject("capsule penetrating below")
	}

	var result stepDownResult
	if downHit.IsValidBlockingHit() {
		deltaZ := floorPoint.Sub(downHit.ImpactPoint).Dot(down)
		if deltaZ > c.cfg.MaxStepHeight+stepHeightTolerance {
			return reject("step of %.4f is higher than %.4f", deltaZ, c.cfg.MaxStepHeight)
		}
		if !c.IsWalkable(downHit) {
			if delta.Dot(downHit.ImpactNormal) < 0 {
				return reject("unwalkable landing facing the move")
			}
			if oldLocation.Sub(downHit.Location).Dot(down) > 0 {
				return reject("unwalkable landing above the start")
			}
		}
		if !c.isWithinEdgeTolerance(downHit.Location, downHit.ImpactPoint, radius) {
			return reject("landing on the capsule rim")
		}
		if deltaZ > 0 && !c.canStepUp(downHit) {
			return reject("landing surface cannot be stepped on")
		}
		if out != nil {
			result.floor = c.FindFloor(c.location, false, &downHit)
			// A real step without a floor to perch on is slid along instead.
			if oldLocation.Sub(downHit.Location).Dot(down) > 0 && !result.floor.BlockingHit && stepSideZ < MaxStepSideZ {
				return reject("no floor on top of the step")
			}
			result.computedFloor = true
		}
	}
	if out != nil {
		*out = result
	}
	c.justTeleported = c.justTeleported || !c.cfg.MaintainHorizontalGroundVelocity
	c.diag.StepUps++
	c.dbg.Notify(DebugModeStep, true, "stepped up by %.3f", c.location.Sub(oldLocation).Dot(c.CapsuleUp()))
	return true
}

// checkLedgeDirection reports whether moving by sideStep from location keeps the capsule on a
// walkable floor.
func (c *Component) checkLedgeDirection(location, sideStep, gravDir mgl64.Vec3) bool {
	dest := location.Add(sideStep)
	shape := c.Shape()
	hit := c.collision.Sweep(shape, location, dest)
	if hit.Blocking && !c.IsWalkable(hit) {
		return false
	}
	if !hit.Blocking {
		hit = c.collision.Sweep(shape, dest, dest.Add(gravDir.Mul(c.cfg.MaxStepHeight+c.cfg.LedgeCheckThreshold)))
	}
	return hit.Time < 1 && c.IsWalkable(hit)
}

// ledgeMove returns a move perpendicular to delta that keeps the capsule on a floor, or zero
// when neither side has one.
func (c *Component) ledgeMove(location, delta, gravDir mgl64.Vec3) mgl64.Vec3 {
	if omath.IsZero(delta) || omath.IsZero(gravDir) {
		return mgl64.Vec3{}
	}
	side := mgl64.QuatRotate(math.Pi*0.5, gravDir).Rotate(omath.PlaneProject(delta, gravDir))
	if c.checkLedgeDirection(location, side, gravDir) {
		return side
	}
	side = side.Mul(-1)
	if c.checkLedgeDirection(location, side, gravDir) {
		return side
	}
	return mgl64.Vec3{}
}

// canWalkOffLedges reports whether the agent may walk off a ledge in its current state.
func (c *Component) canWalkOffLedges() bool {
	if !c.cfg.CanWalkOffLedgesWhenCrouching && c.crouching {
		return false
	}
	return c.cfg.CanWalkOffLedges
}

// isValidLandingSpot reports whether a falling capsule at location may land on the surface of
// hit.
func (c *Component) isValidLandingSpot(location mgl64.Vec3, hit collision.Hit) bool {
	if !hit.Blocking {
		return false
	}
	down := c.CapsuleUp().Mul(-1)
	if !hit.StartPenetrating {
		if !c.IsWalkable(hit) {
			return false
		}
		radius, halfHeight := c.cfg.CapsuleRadius, c.cfg.CapsuleHalfHeight
		// Hits above the lower hemisphere happen when sliding down a vertical surface.
		hemisphere := hit.Location.Add(down.Mul(math.Max(0, halfHeight-radius)))
		if hit.ImpactPoint.Sub(hemisphere).Dot(down.Mul(-1)) >= 0 {
			return false
		}
		if !c.isWithinEdgeTolerance(hit.Location, hit.ImpactPoint, radius) {
			return false
		}
	} else if hit.Normal.Dot(down) > -omath.KindaSmallNumber {
		// Pushed out sideways or downward: next to a wall or under an overhang.
		return false
	}
	return c.FindFloor(location, false, &hit).IsWalkableFloor()
}

// shouldCheckForValidLandingSpot reports whether hit touched the edge of a surface with the
// lower part of the capsule, in which case a downward sweep may still find a floor on top of it.
func (c *Component) shouldCheckForValidLandingSpot(hit collision.Hit) bool {
	return hit.Normal.Dot(c.CapsuleUp()) > omath.KindaSmallNumber &&
		!hit.Normal.ApproxEqualThreshold(hit.ImpactNormal, omath.KindaSmallNumber) &&
		c.isWithinEdgeTolerance(c.location, hit.ImpactPoint, c.cfg.CapsuleRadius)
}
