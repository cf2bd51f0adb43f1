package omath

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	KindaSmallNumber = 1e-4
	SmallNumber      = 1e-8
)

// ClampFloat clamps num to [min, max].
func ClampFloat(num, min, max float64) float64 {
	if num < min {
		return min
	}
	return math.Min(num, max)
}

// Lerp linearly interpolates between a and b.
func Lerp(a, b, alpha float64) float64 {
	return a + (b-a)*alpha
}

// LerpVec linearly interpolates between a and b.
func LerpVec(a, b mgl64.Vec3, alpha float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(alpha))
}

// SafeNormal returns v normalised, or a zero vector if v is too short to normalise.
func SafeNormal(v mgl64.Vec3) mgl64.Vec3 {
	sq := v.LenSqr()
	if sq == 1 {
		return v
	} else if sq < SmallNumber {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / math.Sqrt(sq))
}

// PlaneProject removes the component of v along the unit vector normal.
func PlaneProject(v, normal mgl64.Vec3) mgl64.Vec3 {
	return v.Sub(normal.Mul(v.Dot(normal)))
}

// ProjectOnto returns the component of v along the unit vector axis.
func ProjectOnto(v, axis mgl64.Vec3) mgl64.Vec3 {
	return axis.Mul(v.Dot(axis))
}

// ClampToMaxSize shortens v to at most max units.
func ClampToMaxSize(v mgl64.Vec3, max float64) mgl64.Vec3 {
	if max < KindaSmallNumber {
		return mgl64.Vec3{}
	}
	sq := v.LenSqr()
	if sq > max*max {
		return v.Mul(max / math.Sqrt(sq))
	}
	return v
}

// IsNearlyZero reports whether every component of v is within tolerance of zero.
func IsNearlyZero(v mgl64.Vec3, tolerance float64) bool {
	return math.Abs(v[0]) <= tolerance && math.Abs(v[1]) <= tolerance && math.Abs(v[2]) <= tolerance
}

// IsZero reports whether v is exactly zero.
func IsZero(v mgl64.Vec3) bool {
	return v[0] == 0 && v[1] == 0 && v[2] == 0
}

// MapRangeClamped maps value from [inMin, inMax] to [outMin, outMax], clamping at the ends.
func MapRangeClamped(value, inMin, inMax, outMin, outMax float64) float64 {
	if inMin == inMax {
		if value < inMin {
			return outMin
		}
		return outMax
	}
	alpha := ClampFloat((value-inMin)/(inMax-inMin), 0, 1)
	return Lerp(outMin, outMax, alpha)
}

// FInterpTo moves current towards target at a rate proportional to the remaining distance.
func FInterpTo(current, target, dt, speed float64) float64 {
	if speed <= 0 {
		return target
	}
	dist := target - current
	if dist*dist < SmallNumber {
		return target
	}
	return current + dist*ClampFloat(dt*speed, 0, 1)
}

// ZeroNonFinite returns v, or a zero vector if any component is NaN or infinite.
func ZeroNonFinite(v mgl64.Vec3) (mgl64.Vec3, bool) {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return mgl64.Vec3{}, true
		}
	}
	return v, false
}

// Vec32To64 converts a 32 bit vector to a 64 bit one.
func Vec32To64(v mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

// Vec64To32 converts a 64 bit vector to a 32 bit one.
func Vec64To32(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

// Vec32Finite reports whether every component of v is a finite number.
func Vec32Finite(v mgl32.Vec3) bool {
	for _, c := range v {
		if math32.IsNaN(c) || math32.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Quat32Normalize returns q normalised in float32 precision, or the identity if q has no length.
func Quat32Normalize(q mgl32.Quat) mgl32.Quat {
	l := math32.Sqrt(q.W*q.W + q.V.Dot(q.V))
	if l < 1e-6 || math32.IsNaN(l) || math32.IsInf(l, 0) {
		return mgl32.QuatIdent()
	}
	return mgl32.Quat{W: q.W / l, V: q.V.Mul(1 / l)}
}

// Quantize rounds v to the nearest float32 value, which is what survives replication.
func Quantize(v mgl64.Vec3) mgl64.Vec3 {
	return Vec32To64(Vec64To32(v))
}
