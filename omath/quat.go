package omath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	WorldForward = mgl64.Vec3{1, 0, 0}
	WorldRight   = mgl64.Vec3{0, 1, 0}
	WorldUp      = mgl64.Vec3{0, 0, 1}
)

// QuatFromZX builds a rotation whose Z axis is z and whose X axis is as close to x as possible.
func QuatFromZX(z, x mgl64.Vec3) mgl64.Quat {
	newZ := SafeNormal(z)
	if IsZero(newZ) {
		return mgl64.QuatIdent()
	}
	norm := SafeNormal(x)
	if IsZero(norm) || math.Abs(newZ.Dot(norm)) > 1-KindaSmallNumber {
		norm = perpendicularTo(newZ)
	}
	newY := SafeNormal(newZ.Cross(norm))
	newX := newY.Cross(newZ)
	return fromAxes(newX, newY, newZ)
}

// QuatFromXZ builds a rotation whose X axis is x and whose Z axis is as close to z as possible.
func QuatFromXZ(x, z mgl64.Vec3) mgl64.Quat {
	newX := SafeNormal(x)
	if IsZero(newX) {
		return mgl64.QuatIdent()
	}
	norm := SafeNormal(z)
	if IsZero(norm) || math.Abs(newX.Dot(norm)) > 1-KindaSmallNumber {
		norm = perpendicularTo(newX)
	}
	newY := SafeNormal(norm.Cross(newX))
	newZ := newX.Cross(newY)
	return fromAxes(newX, newY, newZ)
}

func fromAxes(x, y, z mgl64.Vec3) mgl64.Quat {
	m := mgl64.Mat4FromCols(x.Vec4(0), y.Vec4(0), z.Vec4(0), mgl64.Vec4{0, 0, 0, 1})
	return mgl64.Mat4ToQuat(m).Normalize()
}

func perpendicularTo(v mgl64.Vec3) mgl64.Vec3 {
	if math.Abs(v[2]) < 0.9 {
		return SafeNormal(WorldUp.Cross(v).Cross(v).Mul(-1))
	}
	return SafeNormal(WorldForward.Sub(ProjectOnto(WorldForward, v)))
}

// ForwardOf returns the X axis of q.
func ForwardOf(q mgl64.Quat) mgl64.Vec3 {
	return q.Rotate(WorldForward)
}

// RightOf returns the Y axis of q.
func RightOf(q mgl64.Quat) mgl64.Vec3 {
	return q.Rotate(WorldRight)
}

// UpOf returns the Z axis of q.
func UpOf(q mgl64.Quat) mgl64.Vec3 {
	return q.Rotate(WorldUp)
}

// Slerp interpolates along the shortest arc between a and b.
func Slerp(a, b mgl64.Quat, alpha float64) mgl64.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	if alpha <= 0 {
		return a
	} else if alpha >= 1 {
		return b
	}
	return mgl64.QuatSlerp(a, b, alpha).Normalize()
}

// QuatEqual reports whether a and b describe the same rotation within tolerance.
func QuatEqual(a, b mgl64.Quat, tolerance float64) bool {
	return 1-math.Abs(a.Normalize().Dot(b.Normalize())) <= tolerance
}
