package collision

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/omath"
)

const (
	// PenetrationPullback is added to every depenetration so the shape ends up clear of the body.
	PenetrationPullback = 0.125
	// movingOutTolerance is how far a move may point into a penetrated body and still count as leaving it.
	movingOutTolerance = -0.01
	maxIgnoredOverlaps = 4
)

// Adapter wraps a Query with the filter of one agent and the move and depenetration routines
// built on top of raw sweeps. A nil Query behaves like an empty world.
type Adapter struct {
	Query  Query
	Filter Filter
}

// Enabled reports whether queries reach a world.
func (a Adapter) Enabled() bool {
	return a.Query != nil
}

// Sweep sweeps shape from start to end.
func (a Adapter) Sweep(shape Shape, start, end mgl64.Vec3) Hit {
	if a.Query == nil {
		return NoHit(start, end)
	}
	return a.Query.Sweep(shape, start, end, a.Filter)
}

// LineTrace casts a ray from start to end.
func (a Adapter) LineTrace(start, end mgl64.Vec3) Hit {
	if a.Query == nil {
		return NoHit(start, end)
	}
	return a.Query.LineTrace(start, end, a.Filter)
}

// Overlap reports whether shape placed at center overlaps a body.
func (a Adapter) Overlap(shape Shape, center mgl64.Vec3) bool {
	if a.Query == nil {
		return false
	}
	return a.Query.Overlap(shape, center, a.Filter)
}

// HasRoom reports whether shape fits at center.
func (a Adapter) HasRoom(shape Shape, center mgl64.Vec3) bool {
	return !a.Overlap(shape, center)
}

// Move sweeps shape from start by delta and returns where it stops. Bodies the shape starts
// inside of are ignored when the move leads out of them. A blocking hit stops the shape slightly
// before the contact point: Hit.Time reports the fraction actually travelled while
// Hit.Location keeps the contact position of the shape.
func (a Adapter) Move(shape Shape, start, delta mgl64.Vec3) (mgl64.Vec3, Hit) {
	end := start.Add(delta)
	if omath.IsZero(delta) {
		return start, NoHit(start, end)
	}
	filter := a.Filter
	filter.Ignore = append([]string(nil), a.Filter.Ignore...)

	var hit Hit
	for range maxIgnoredOverlaps {
		if a.Query == nil {
			return end, NoHit(start, end)
		}
		hit = a.Query.Sweep(shape, start, end, filter)
		if !hit.StartPenetrating || hit.Component == nil {
			break
		}
		if hit.ImpactNormal.Dot(omath.SafeNormal(delta)) <= movingOutTolerance {
			return start, hit
		}
		filter.Ignore = append(filter.Ignore, hit.Component.ID())
	}
	if hit.StartPenetrating {
		return start, hit
	}
	if !hit.Blocking {
		return end, hit
	}
	dist := delta.Len()
	timeBack := omath.ClampFloat(0.1, 0.1/dist, 1/dist) + 0.001
	hit.Time = omath.ClampFloat(hit.Time-timeBack, 0, 1)
	return start.Add(delta.Mul(hit.Time)), hit
}

// PenetrationAdjustment returns the translation that resolves a penetrating hit, limited to
// maxDepenetration units.
func PenetrationAdjustment(hit Hit, maxDepenetration float64) mgl64.Vec3 {
	if !hit.StartPenetrating {
		return mgl64.Vec3{}
	}
	depth := hit.PenetrationDepth
	if depth <= 0 {
		depth = PenetrationPullback
	}
	return omath.ClampToMaxSize(hit.Normal.Mul(depth+PenetrationPullback), maxDepenetration)
}

// ResolvePenetration tries to move shape out of the body described by hit using adjustment. It
// returns the resolved location and whether the shape moved.
func (a Adapter) ResolvePenetration(shape Shape, location, adjustment mgl64.Vec3, hit Hit, maxDepenetration float64) (mgl64.Vec3, bool) {
	if omath.IsZero(adjustment) {
		return location, false
	}
	if a.HasRoom(shape, location.Add(adjustment)) {
		return location.Add(adjustment), true
	}
	to, out := a.Move(shape, location, adjustment)
	moved := to != location
	if !moved && out.StartPenetrating {
		second := PenetrationAdjustment(out, maxDepenetration)
		combined := adjustment.Add(second)
		if second != adjustment && !omath.IsZero(combined) {
			to, _ = a.Move(shape, location, combined)
			moved = to != location
		}
	}
	if !moved {
		if moveDelta := hit.TraceEnd.Sub(hit.TraceStart); !omath.IsZero(moveDelta) {
			to, _ = a.Move(shape, location, adjustment.Add(moveDelta))
			moved = to != location
		}
	}
	return to, moved
}
