package omath

import "github.com/go-gl/mathgl/mgl64"

// Transform is a location, rotation and scale. Add and Sub treat transforms as offsets
// rather than composing them hierarchically.
type Transform struct {
	Location mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
}

// NewTransform returns a unit-scale transform.
func NewTransform(location mgl64.Vec3, rotation mgl64.Quat) Transform {
	return Transform{Location: location, Rotation: rotation, Scale: mgl64.Vec3{1, 1, 1}}
}

// Sub returns the offset from base to t: locations and scales subtract, and the rotation
// is t relative to base.
func (t Transform) Sub(base Transform) Transform {
	return Transform{
		Location: t.Location.Sub(base.Location),
		Rotation: t.Rotation.Mul(base.Rotation.Inverse()).Normalize(),
		Scale:    t.Scale.Sub(base.Scale),
	}
}

// Add applies offset to t. Add(base, t.Sub(base)) reproduces t.
func (t Transform) Add(offset Transform) Transform {
	return Transform{
		Location: t.Location.Add(offset.Location),
		Rotation: offset.Rotation.Mul(t.Rotation).Normalize(),
		Scale:    t.Scale.Add(offset.Scale),
	}
}

// Lerp blends from t to other.
func (t Transform) Lerp(other Transform, alpha float64) Transform {
	return Transform{
		Location: LerpVec(t.Location, other.Location, alpha),
		Rotation: Slerp(t.Rotation, other.Rotation, alpha),
		Scale:    LerpVec(t.Scale, other.Scale, alpha),
	}
}

// ToWorld converts a transform expressed relative to t into world space.
func (t Transform) ToWorld(local Transform) Transform {
	return Transform{
		Location: t.Location.Add(t.Rotation.Rotate(mulComponents(local.Location, t.Scale))),
		Rotation: t.Rotation.Mul(local.Rotation).Normalize(),
		Scale:    mulComponents(local.Scale, t.Scale),
	}
}

// ToLocal converts a world space transform into one relative to t.
func (t Transform) ToLocal(world Transform) Transform {
	inv := t.Rotation.Inverse()
	return Transform{
		Location: divComponents(inv.Rotate(world.Location.Sub(t.Location)), t.Scale),
		Rotation: inv.Mul(world.Rotation).Normalize(),
		Scale:    divComponents(world.Scale, t.Scale),
	}
}

// Equal reports whether t and other match within tolerance.
func (t Transform) Equal(other Transform, tolerance float64) bool {
	return IsNearlyZero(t.Location.Sub(other.Location), tolerance) &&
		IsNearlyZero(t.Scale.Sub(other.Scale), tolerance) &&
		QuatEqual(t.Rotation, other.Rotation, tolerance)
}

func mulComponents(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func divComponents(a, b mgl64.Vec3) mgl64.Vec3 {
	var out mgl64.Vec3
	for i := range a {
		if b[i] != 0 {
			out[i] = a[i] / b[i]
		}
	}
	return out
}
