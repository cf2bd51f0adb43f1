package movement

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/gravity"
	"github.com/oomph-ac/locomotion/omath"
)

// FloorResult describes the surface under the capsule.
type FloorResult struct {
	// BlockingHit is true when a sweep or line trace hit anything.
	BlockingHit bool
	// Walkable is true when the hit surface can be walked on.
	Walkable bool
	// LineTrace is true when the result came from the line trace fallback.
	LineTrace bool
	// FloorDist is the distance from the capsule bottom to the floor along the capsule axis.
	FloorDist float64
	// LineDist is the distance found by the line trace, if any.
	LineDist float64
	Hit      collision.Hit
}

// Clear resets the result to "no floor".
func (f *FloorResult) Clear() {
	*f = FloorResult{}
}

// IsWalkableFloor reports whether the result is a walkable blocking hit.
func (f FloorResult) IsWalkableFloor() bool {
	return f.BlockingHit && f.Walkable
}

// Distance returns the line distance for line trace results and the sweep distance otherwise.
func (f FloorResult) Distance() float64 {
	if f.LineTrace {
		return f.LineDist
	}
	return f.FloorDist
}

// SetFromSweep fills the result from a capsule sweep.
func (f *FloorResult) SetFromSweep(hit collision.Hit, sweepDist float64, walkable bool) {
	f.BlockingHit = hit.IsValidBlockingHit()
	f.Walkable = walkable
	f.LineTrace = false
	f.FloorDist = sweepDist
	f.LineDist = 0
	f.Hit = hit
}

// SetFromLineTrace replaces the surface of a previous sweep result with the surface found by a
// line trace, keeping the sweep's timing and locations.
func (f *FloorResult) SetFromLineTrace(hit collision.Hit, sweepDist, lineDist float64, walkable bool) {
	if !f.Hit.Blocking || !hit.Blocking {
		return
	}
	old := f.Hit
	f.Hit = hit
	f.Hit.Time, f.Hit.ImpactPoint, f.Hit.Location = old.Time, old.ImpactPoint, old.Location
	f.Hit.TraceStart, f.Hit.TraceEnd = old.TraceStart, old.TraceEnd

	f.LineTrace = true
	f.FloorDist = sweepDist
	f.LineDist = lineDist
	f.Walkable = walkable
}

// IsWalkable reports whether the surface of hit can be stood on by this component.
func (c *Component) IsWalkable(hit collision.Hit) bool {
	return Walkable(hit, c.CapsuleUp(), c.cfg.WalkableFloorZ)
}

// Walkable reports whether hit is a blocking surface whose impact normal leans toward up by at
// least walkableZ. The hit body may override walkableZ. Surfaces steeper than vertical are never
// walkable.
func Walkable(hit collision.Hit, up mgl64.Vec3, walkableZ float64) bool {
	if !hit.IsValidBlockingHit() {
		return false
	}
	dot := hit.ImpactNormal.Dot(up)
	if dot < omath.KindaSmallNumber {
		return false
	}
	if hit.Component != nil {
		walkableZ = hit.Component.WalkableFloorZ(walkableZ)
	}
	return dot >= walkableZ
}

// isWithinEdgeTolerance reports whether impact is close enough to the capsule axis through
// location to be considered under the capsule rather than on its rim.
func (c *Component) isWithinEdgeTolerance(location, impact mgl64.Vec3, radius float64) bool {
	planar := omath.PlaneProject(impact.Sub(location), c.CapsuleUp())
	reduced := math.Max(omath.KindaSmallNumber, radius-SweepEdgeRejectDistance)
	return planar.LenSqr() < reduced*reduced
}

// computeFloorDist scans below location for a floor. The capsule sweep is shrunk so that hits
// on the rim of the capsule are not mistaken for floor; a line trace is used as fallback.
func (c *Component) computeFloorDist(location mgl64.Vec3, lineDist, sweepDist, sweepRadius float64, downward *collision.Hit) FloorResult {
	var floor FloorResult
	if !c.collisionEnabled || !c.collision.Enabled() {
		return floor
	}
	down := c.CapsuleUp().Mul(-1)
	radius, halfHeight := c.cfg.CapsuleRadius, c.cfg.CapsuleHalfHeight

	if downward != nil && downward.IsValidBlockingHit() {
		traceDir := omath.SafeNormal(downward.TraceEnd.Sub(downward.TraceStart))
		if down.Dot(traceDir) >= gravity.ParallelThreshold && c.isWithinEdgeTolerance(downward.Location, downward.ImpactPoint, radius) {
			dist := location.Sub(downward.Location).Len()
			floor.SetFromSweep(*downward, dist, c.IsWalkable(*downward))
			if floor.IsWalkableFloor() {
				return floor
			}
		}
	}
	if sweepDist < lineDist {
		return floor
	}

	foundSweep := false
	if sweepDist > 0 {
		shrinkHeight := (halfHeight - radius) * 0.1
		traceDist := sweepDist + shrinkHeight
		full := collision.Capsule(sweepRadius, halfHeight, c.CapsuleUp())
		shape := full.Shrink(0, shrinkHeight)
		hit := c.collision.Sweep(shape, location, location.Add(down.Mul(traceDist)))

		if hit.Blocking && (hit.StartPenetrating || !c.isWithinEdgeTolerance(location, hit.ImpactPoint, shape.Radius)) {
			shrinkHeight = (halfHeight - radius) * 0.9
			traceDist = sweepDist + shrinkHeight
			shape = full.Shrink(SweepEdgeRejectDistance+omath.KindaSmallNumber, shrinkHeight)
			hit = c.collision.Sweep(shape, location, location.Add(down.Mul(traceDist)))
		}

		maxPenetration := -math.Max(MaxFloorDist, radius)
		sweepResult := math.Max(maxPenetration, hit.Time*traceDist-shrinkHeight)
		floor.SetFromSweep(hit, sweepResult, false)
		if hit.IsValidBlockingHit() && c.IsWalkable(hit) && sweepResult <= sweepDist {
			floor.Walkable = true
			return floor
		}
		foundSweep = hit.Blocking
		if !hit.Blocking && !hit.StartPenetrating {
			floor.FloorDist = sweepDist
			return floor
		}
	}

	if lineDist > 0 {
		traceDist := lineDist + halfHeight
		hit := c.collision.LineTrace(location, location.Add(down.Mul(traceDist)))
		if hit.Blocking && hit.Time > 0 {
			maxPenetration := -math.Max(MaxFloorDist, radius)
			lineResult := math.Max(maxPenetration, hit.Time*traceDist-halfHeight)
			floor.BlockingHit = true
			if lineResult <= lineDist && c.IsWalkable(hit) {
				if !foundSweep {
					floor.Hit = hit
				}
				floor.SetFromLineTrace(hit, floor.FloorDist, lineResult, true)
				return floor
			}
		}
	}

	floor.Walkable = false
	floor.FloorDist = sweepDist
	return floor
}

// FindFloor scans for the floor below location. A downward sweep result may be passed in to
// skip the scan when it already found a walkable floor.
func (c *Component) FindFloor(location mgl64.Vec3, zeroDelta bool, downward *collision.Hit) FloorResult {
	var floor FloorResult
	if !c.collisionEnabled || !c.collision.Enabled() {
		return floor
	}
	walking := c.mode == ModeWalking
	heightAdjust := -MaxFloorDist
	if walking {
		heightAdjust = MaxFloorDist + omath.KindaSmallNumber
	}
	floorSweepDist := math.Max(MaxFloorDist, c.cfg.MaxStepHeight+heightAdjust)
	floorLineDist := floorSweepDist

	needsCheck := !zeroDelta || c.forceNextFloorCheck || c.justTeleported
	if !needsCheck && c.base != nil {
		// Moving bases and bases that stopped blocking us invalidate the cached floor.
		needsCheck = !omath.IsZero(c.base.Velocity()) || !c.base.Responds(c.collision.Filter.Channel)
	}
	if !needsCheck && c.base == nil {
		needsCheck = true
	}
	if needsCheck {
		floor = c.computeFloorDist(location, floorLineDist, floorSweepDist, c.cfg.CapsuleRadius, downward)
	} else {
		floor = c.floor
	}
	c.forceNextFloorCheck = false

	if floor.BlockingHit && !floor.LineTrace && c.shouldComputePerchResult(floor.Hit, true) {
		maxPerchHeight := floorLineDist
		if walking {
			maxPerchHeight += math.Max(0, c.cfg.PerchAdditionalHeight)
		}
		avg := (MinFloorDist + MaxFloorDist) * 0.5
		if perch, ok := c.computePerchResult(c.validPerchRadius(), floor.Hit, maxPerchHeight); ok {
			if (avg-floor.FloorDist)+perch.FloorDist >= maxPerchHeight {
				floor.FloorDist = avg
			}
			if !floor.Walkable {
				floor.SetFromLineTrace(perch.Hit, floor.FloorDist, math.Min(perch.FloorDist, perch.LineDist), true)
			}
		} else {
			floor.Walkable = false
		}
	}
	c.dbg.Notify(DebugModeFloor, true, "floor: blocking=%v walkable=%v dist=%.3f line=%v", floor.BlockingHit, floor.Walkable, floor.FloorDist, floor.LineTrace)
	return floor
}

// perchRadiusThreshold returns the distance from the capsule rim inside which the capsule may
// not perch on an edge.
func (c *Component) perchRadiusThreshold() float64 {
	return math.Max(0, c.cfg.PerchRadiusThreshold)
}

// validPerchRadius returns the radius within which the capsule may perch on an edge.
func (c *Component) validPerchRadius() float64 {
	radius := c.cfg.CapsuleRadius
	return omath.ClampFloat(radius-c.perchRadiusThreshold(), 0.11, radius)
}

// shouldComputePerchResult reports whether hit lies on the rim of the capsule far enough out
// that the capsule must be checked for perching.
func (c *Component) shouldComputePerchResult(hit collision.Hit, checkRadius bool) bool {
	if !hit.IsValidBlockingHit() {
		return false
	}
	if c.perchRadiusThreshold() <= SweepEdgeRejectDistance {
		return false
	}
	if checkRadius {
		planar := omath.PlaneProject(hit.ImpactPoint.Sub(hit.Location), c.CapsuleUp())
		perch := c.validPerchRadius()
		if planar.LenSqr() <= perch*perch {
			return false
		}
	}
	return true
}

// computePerchResult checks whether the capsule can perch on the edge described by hit using a
// narrower sweep of radius testRadius.
func (c *Component) computePerchResult(testRadius float64, hit collision.Hit, maxFloorDist float64) (FloorResult, bool) {
	if maxFloorDist <= 0 {
		return FloorResult{}, false
	}
	down := c.CapsuleUp().Mul(-1)
	halfHeight := c.cfg.CapsuleHalfHeight
	location := hit.Location

	impactOnAxis := location.Add(down.Mul(hit.ImpactPoint.Sub(location).Dot(down)))
	capsuleBottom := location.Add(down.Mul(halfHeight))
	inHitAboveBase := impactOnAxis.Sub(capsuleBottom).Len()

	perchLineDist := math.Max(0, maxFloorDist-inHitAboveBase)
	perchSweepDist := math.Max(0, maxFloorDist)
	actualSweepDist := perchSweepDist + c.cfg.CapsuleRadius

	perch := c.computeFloorDist(location, perchLineDist, actualSweepDist, testRadius, nil)
	if !perch.IsWalkableFloor() {
		return perch, false
	}
	if inHitAboveBase+perch.FloorDist > maxFloorDist {
		perch.Walkable = false
		return perch, false
	}
	return perch, true
}

// adjustFloorHeight keeps a walking capsule within the floor distance band by moving it along
// the capsule axis.
func (c *Component) adjustFloorHeight() {
	if !c.floor.IsWalkableFloor() {
		return
	}
	oldFloorDist := c.floor.FloorDist
	if c.floor.LineTrace {
		if oldFloorDist < MinFloorDist && c.floor.LineDist >= MinFloorDist {
			return
		}
		oldFloorDist = c.floor.LineDist
	}
	if oldFloorDist >= MinFloorDist && oldFloorDist <= MaxFloorDist {
		return
	}
	up := c.CapsuleUp()
	initialUp := c.location.Dot(up)
	avg := (MinFloorDist + MaxFloorDist) * 0.5
	moveDist := avg - oldFloorDist

	hit := c.safeMove(up.Mul(moveDist))
	switch {
	case !hit.IsValidBlockingHit():
		c.floor.FloorDist += moveDist
	case moveDist > 0:
		c.floor.FloorDist += c.location.Dot(up) - initialUp
	default:
		c.floor.FloorDist = c.location.Sub(hit.Location).Dot(up)
		if c.IsWalkable(hit) {
			c.floor.SetFromSweep(hit, c.floor.FloorDist, true)
		}
	}
	c.dbg.Notify(DebugModeFloor, true, "adjusted floor height by %.3f to %.3f", moveDist, c.floor.FloorDist)
	c.justTeleported = c.justTeleported || !c.cfg.MaintainHorizontalGroundVelocity || oldFloorDist < 0
}
