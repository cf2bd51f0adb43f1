package movement

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/omath"
)

// slideAlongSurface moves the capsule along the surface of hit for the given fraction of delta.
// It returns the fraction of that slide actually applied. hit is updated with the last blocking
// hit of the slide.
func (c *Component) slideAlongSurface(delta mgl64.Vec3, time float64, normal mgl64.Vec3, hit *collision.Hit, handleImpact bool) float64 {
	if !hit.Blocking {
		return 0
	}
	if c.next() == ModeWalking {
		up := c.CapsuleUp()
		dot := normal.Dot(up)
		switch {
		case dot > 0:
			// Never get pushed up an unwalkable surface.
			if !c.IsWalkable(*hit) {
				normal = omath.SafeNormal(omath.PlaneProject(normal, up))
			}
		case dot < -omath.KindaSmallNumber:
			// Impacts on the upper part of the capsule must not push it into the floor.
			if c.floor.FloorDist < MinFloorDist && c.floor.BlockingHit {
				floorNormal := c.floor.Hit.Normal
				if delta.Dot(floorNormal) < 0 && floorNormal.Dot(up) < 1-floorNormalTolerance {
					normal = floorNormal
				}
				normal = omath.SafeNormal(omath.PlaneProject(normal, up))
			}
		}
	}

	oldNormal := normal
	slide := c.computeSlideVector(delta, time, normal, *hit)
	if slide.Dot(delta) <= 0 {
		return 0
	}
	*hit = c.safeMove(slide)
	first := hit.Time
	applied := first
	if hit.IsValidBlockingHit() {
		if handleImpact {
			c.handleImpact(*hit, first*time, slide)
		}
		slide = c.twoWallAdjust(slide, *hit, oldNormal)
		if !omath.IsNearlyZero(slide, 1e-3) && slide.Dot(delta) > 0 {
			*hit = c.safeMove(slide)
			second := hit.Time * (1 - first)
			applied += second
			if handleImpact && hit.Blocking {
				c.handleImpact(*hit, second*time, slide)
			}
		}
	}
	return omath.ClampFloat(applied, 0, 1)
}

// computeSlideVector returns delta projected onto the plane of normal and scaled by time.
// Falling capsules are kept from being boosted up slopes.
func (c *Component) computeSlideVector(delta mgl64.Vec3, time float64, normal mgl64.Vec3, hit collision.Hit) mgl64.Vec3 {
	result := omath.PlaneProject(delta, normal).Mul(time)
	if c.next() == ModeFalling {
		result = c.handleSlopeBoosting(result, delta, time, normal, hit)
	}
	return result
}

// handleSlopeBoosting limits the upward part of a slide to what the original move intended and
// turns the rest of the slide sideways along the surface.
func (c *Component) handleSlopeBoosting(slide, delta mgl64.Vec3, time float64, normal mgl64.Vec3, hit collision.Hit) mgl64.Vec3 {
	up := c.CapsuleUp()
	slideUp := slide.Dot(up)
	if slideUp <= 0 {
		return slide
	}
	limit := delta.Dot(up) * time
	if slideUp-limit <= omath.KindaSmallNumber {
		return slide
	}
	result := mgl64.Vec3{}
	if limit > 0 {
		result = slide.Mul(limit / slideUp)
	}
	remainder := omath.PlaneProject(slide.Sub(result), up)
	planarNormal := omath.SafeNormal(omath.PlaneProject(normal, up))
	return result.Add(omath.PlaneProject(remainder, planarNormal))
}

// twoWallAdjust corrects a slide that ran into a second surface: in a corner the capsule slides
// along the crease, otherwise along the new surface.
func (c *Component) twoWallAdjust(delta mgl64.Vec3, hit collision.Hit, oldNormal mgl64.Vec3) mgl64.Vec3 {
	in := delta
	normal := hit.Normal
	if oldNormal.Dot(normal) <= 0 {
		dir := omath.SafeNormal(normal.Cross(oldNormal))
		adjusted := dir.Mul(delta.Dot(dir) * (1 - hit.Time))
		if in.Dot(adjusted) < 0 {
			adjusted = adjusted.Mul(-1)
		}
		delta = adjusted
	} else {
		adjusted := c.computeSlideVector(delta, 1-hit.Time, normal, hit)
		switch {
		case adjusted.Dot(in) <= 0:
			adjusted = mgl64.Vec3{}
		case math.Abs(normal.Dot(oldNormal)-1) < omath.KindaSmallNumber:
			// Same wall again after sliding along it: nudge away to escape rounding.
			adjusted = adjusted.Add(normal.Mul(0.01))
		}
		delta = adjusted
	}

	if c.next() != ModeWalking {
		return delta
	}
	up := c.CapsuleUp()
	switch vertical := delta.Dot(up); {
	case vertical > 0:
		normalUp := hit.Normal.Dot(up)
		if (normalUp >= c.cfg.WalkableFloorZ || c.IsWalkable(hit)) && normalUp > omath.KindaSmallNumber {
			// Slide up walkable surfaces keeping the planar speed.
			time := 1 - hit.Time
			scaled := omath.SafeNormal(delta).Mul(in.Len())
			delta = omath.PlaneProject(in, up).Add(up.Mul(scaled.Dot(up) / normalUp)).Mul(time)
			if rise := delta.Dot(up); rise > c.cfg.MaxStepHeight {
				delta = delta.Mul(c.cfg.MaxStepHeight / rise)
			}
		} else {
			delta = omath.PlaneProject(delta, up)
		}
	case vertical < 0:
		if c.floor.FloorDist < MinFloorDist && c.floor.BlockingHit {
			delta = omath.PlaneProject(delta, up)
		}
	}
	return delta
}

// handleImpact notifies observers that the capsule was blocked by hit.
func (c *Component) handleImpact(hit collision.Hit, timeSlice float64, delta mgl64.Vec3) {
	c.notify(func(o Observer) { o.HandleImpact(c, hit, timeSlice, delta) })
}
