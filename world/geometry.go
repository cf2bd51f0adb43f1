package world

import (
	"math"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/omath"
)

const (
	// penetrationTolerance is how deep a shape may sit inside a body before it counts as overlapping.
	penetrationTolerance = 1e-5
	faceTolerance        = 1e-6
	searchPrecision      = 1e-10
	invPhi               = 0.6180339887498949
)

// goldenMin returns the argument in [lo, hi] minimising the convex function f, and its value.
func goldenMin(f func(float64) float64, lo, hi float64) (float64, float64) {
	a, b := lo, hi
	c := b - invPhi*(b-a)
	d := a + invPhi*(b-a)
	fc, fd := f(c), f(d)
	for b-a > searchPrecision {
		if fc <= fd {
			b, d, fd = d, c, fc
			c = b - invPhi*(b-a)
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + invPhi*(b-a)
			fd = f(d)
		}
	}
	x := (a + b) / 2
	best, fx := x, f(x)
	// Flat minima at the interval ends are common for axis-aligned contacts.
	if f0 := f(lo); f0 <= fx {
		best, fx = lo, f0
	}
	if f1 := f(hi); f1 < fx {
		best, fx = hi, f1
	}
	return best, fx
}

func closestOnBox(p mgl64.Vec3, bb cube.BBox) mgl64.Vec3 {
	min, max := bb.Min(), bb.Max()
	return mgl64.Vec3{
		omath.ClampFloat(p[0], min[0], max[0]),
		omath.ClampFloat(p[1], min[1], max[1]),
		omath.ClampFloat(p[2], min[2], max[2]),
	}
}

// segmentBoxDistance returns the distance between segment ab and the box along with the closest
// points on each.
func segmentBoxDistance(a, b mgl64.Vec3, bb cube.BBox) (dist float64, onSegment, onBox mgl64.Vec3) {
	if a == b {
		onBox = closestOnBox(a, bb)
		return a.Sub(onBox).Len(), a, onBox
	}
	s, _ := goldenMin(func(s float64) float64 {
		p := omath.LerpVec(a, b, s)
		return p.Sub(closestOnBox(p, bb)).LenSqr()
	}, 0, 1)
	onSegment = omath.LerpVec(a, b, s)
	onBox = closestOnBox(onSegment, bb)
	return onSegment.Sub(onBox).Len(), onSegment, onBox
}

// shapeClearance returns how far the shape placed at center is from touching the box. Negative
// values mean the shape overlaps it.
func shapeClearance(shape collision.Shape, center mgl64.Vec3, bb cube.BBox) float64 {
	a, b := shape.Segment(center)
	dist, _, _ := segmentBoxDistance(a, b, bb)
	return dist - shape.Radius
}

// faceNormal returns the outward normal of the face of bb containing p that best matches hint.
func faceNormal(p mgl64.Vec3, bb cube.BBox, hint mgl64.Vec3) mgl64.Vec3 {
	min, max := bb.Min(), bb.Max()
	best, bestDot := mgl64.Vec3{}, math.Inf(-1)
	for axis := range 3 {
		var n mgl64.Vec3
		if math.Abs(p[axis]-min[axis]) < faceTolerance {
			n[axis] = -1
		} else if math.Abs(p[axis]-max[axis]) < faceTolerance {
			n[axis] = 1
		} else {
			continue
		}
		if d := n.Dot(hint); d > bestDot {
			best, bestDot = n, d
		}
	}
	if omath.IsZero(best) {
		return hint
	}
	return best
}

// pushOut returns the shortest axis direction and distance moving p out of bb.
func pushOut(p mgl64.Vec3, bb cube.BBox) (mgl64.Vec3, float64) {
	min, max := bb.Min(), bb.Max()
	var normal mgl64.Vec3
	depth := math.Inf(1)
	for axis := range 3 {
		if d := max[axis] - p[axis]; d < depth {
			depth, normal = d, mgl64.Vec3{}
			normal[axis] = 1
		}
		if d := p[axis] - min[axis]; d < depth {
			depth, normal = d, mgl64.Vec3{}
			normal[axis] = -1
		}
	}
	return normal, depth
}

// shapeBounds returns the world box enclosing shape placed at center.
func shapeBounds(shape collision.Shape, center mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var ext mgl64.Vec3
	for i := range 3 {
		ext[i] = shape.Radius
		if shape.Kind == collision.ShapeCapsule {
			ext[i] += math.Abs(shape.Up[i]) * (shape.HalfHeight - shape.Radius)
		}
	}
	return center.Sub(ext), center.Add(ext)
}

// sweptBounds returns the box enclosing shape over a sweep from start to end, grown by margin.
func sweptBounds(shape collision.Shape, start, end mgl64.Vec3, margin float64) cube.BBox {
	minA, maxA := shapeBounds(shape, start)
	minB, maxB := shapeBounds(shape, end)
	return cube.Box(
		math.Min(minA[0], minB[0])-margin, math.Min(minA[1], minB[1])-margin, math.Min(minA[2], minB[2])-margin,
		math.Max(maxA[0], maxB[0])+margin, math.Max(maxA[1], maxB[1])+margin, math.Max(maxA[2], maxB[2])+margin,
	)
}

// sweepBox sweeps shape against a single box. The clearance of a translating convex shape
// against a convex box is convex in time, so the first contact is found by minimising it and
// then bisecting the descending part.
func sweepBox(shape collision.Shape, start, end mgl64.Vec3, bb cube.BBox) (collision.Hit, bool) {
	delta := end.Sub(start)
	clearance := func(t float64) float64 {
		return shapeClearance(shape, start.Add(delta.Mul(t)), bb)
	}

	c0 := clearance(0)
	if c0 < -penetrationTolerance {
		return penetratingHit(shape, start, end, bb), true
	}
	tMin, cMin := goldenMin(clearance, 0, 1)
	// Grazing a face within rounding error does not block.
	if cMin >= -penetrationTolerance && c0 > 0 {
		return collision.Hit{}, false
	}
	if cMin > 0 {
		return collision.Hit{}, false
	}

	var t float64
	if c0 <= 0 {
		// Touching already. Only block when the move leads further in.
		if tMin < searchPrecision || cMin >= c0 {
			return collision.Hit{}, false
		}
	} else {
		lo, hi := 0.0, tMin
		for hi-lo > searchPrecision {
			mid := (lo + hi) / 2
			if clearance(mid) > 0 {
				lo = mid
			} else {
				hi = mid
			}
		}
		t = lo
	}

	location := start.Add(delta.Mul(t))
	a, b := shape.Segment(location)
	_, onSegment, onBox := segmentBoxDistance(a, b, bb)
	normal := omath.SafeNormal(onSegment.Sub(onBox))
	if omath.IsZero(normal) {
		normal = faceNormal(onBox, bb, omath.SafeNormal(delta).Mul(-1))
	}
	return collision.Hit{
		Blocking:     true,
		Time:         t,
		Distance:     delta.Len() * t,
		Location:     location,
		ImpactPoint:  onBox,
		Normal:       normal,
		ImpactNormal: faceNormal(onBox, bb, normal),
		TraceStart:   start,
		TraceEnd:     end,
	}, true
}

func penetratingHit(shape collision.Shape, start, end mgl64.Vec3, bb cube.BBox) collision.Hit {
	a, b := shape.Segment(start)
	dist, onSegment, onBox := segmentBoxDistance(a, b, bb)
	var normal mgl64.Vec3
	var depth float64
	if dist > faceTolerance {
		normal = onSegment.Sub(onBox).Mul(1 / dist)
		depth = shape.Radius - dist
	} else {
		var out float64
		normal, out = pushOut(onSegment, bb)
		depth = out + shape.Radius
		onBox = onSegment.Add(normal.Mul(out))
	}
	return collision.Hit{
		Blocking:         true,
		StartPenetrating: true,
		Location:         start,
		ImpactPoint:      onBox,
		Normal:           normal,
		ImpactNormal:     normal,
		PenetrationDepth: depth,
		TraceStart:       start,
		TraceEnd:         end,
	}
}
