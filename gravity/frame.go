package gravity

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/omath"
)

// ParallelThreshold is the dot product above which two unit axes are treated as parallel.
const ParallelThreshold = 0.999845

// Frame is the gravity-relative reference frame of a single agent. The zero value is a
// world Z-up frame with gravity enabled.
type Frame struct {
	up    mgl64.Vec3
	set   bool
	zeroG bool
}

// NewFrame returns a frame with the given up axis. A zero axis produces a zero-g frame
// oriented to world up.
func NewFrame(up mgl64.Vec3) Frame {
	var f Frame
	f.SetUp(up)
	return f
}

// Up returns the unit up axis. In zero-g this is the last resolved axis.
func (f Frame) Up() mgl64.Vec3 {
	if !f.set {
		return omath.WorldUp
	}
	return f.up
}

// Down returns the negated up axis.
func (f Frame) Down() mgl64.Vec3 {
	return f.Up().Mul(-1)
}

// ZeroG reports whether gravity is switched off for this frame.
func (f Frame) ZeroG() bool {
	return f.zeroG
}

// SetUp changes the up axis. A zero vector switches the frame to zero-g while keeping the
// previous axis as orientation reference; any other vector re-enables gravity. It reports
// whether the zero-g state changed.
func (f *Frame) SetUp(up mgl64.Vec3) (zeroGChanged bool) {
	n := omath.SafeNormal(up)
	if omath.IsZero(n) {
		zeroGChanged = !f.zeroG
		f.zeroG = true
		return zeroGChanged
	}
	zeroGChanged = f.zeroG
	f.up, f.set, f.zeroG = n, true, false
	return zeroGChanged
}

// SetZeroG toggles zero-g without touching the axis.
func (f *Frame) SetZeroG(zeroG bool) {
	f.zeroG = zeroG
}

// Direction returns the unit gravity direction, or a zero vector in zero-g.
func (f Frame) Direction() mgl64.Vec3 {
	if f.zeroG {
		return mgl64.Vec3{}
	}
	return f.Down()
}

// Gravity returns the gravity acceleration for the given world gravity magnitude (negative
// means "down" as in a Z-up world) and per-agent scale.
func (f Frame) Gravity(gravityZ, scale float64) mgl64.Vec3 {
	if f.zeroG {
		return mgl64.Vec3{}
	}
	return f.Up().Mul(gravityZ * scale)
}

// Decompose splits v into its component along the up axis and the remainder.
func (f Frame) Decompose(v mgl64.Vec3) (parallel, planar mgl64.Vec3) {
	return DecomposeAlong(v, f.Up())
}

// Planar returns the part of v perpendicular to the up axis.
func (f Frame) Planar(v mgl64.Vec3) mgl64.Vec3 {
	return omath.PlaneProject(v, f.Up())
}

// Vertical returns the signed length of v along the up axis.
func (f Frame) Vertical(v mgl64.Vec3) float64 {
	return v.Dot(f.Up())
}

// WithVertical replaces the up component of v by height.
func (f Frame) WithVertical(v mgl64.Vec3, height float64) mgl64.Vec3 {
	return f.Planar(v).Add(f.Up().Mul(height))
}

// DecomposeAlong splits v into its component along axis and the remainder. The axis is
// normalised first; a zero axis yields a zero parallel part.
func DecomposeAlong(v, axis mgl64.Vec3) (parallel, planar mgl64.Vec3) {
	n := omath.SafeNormal(axis)
	parallel = omath.ProjectOnto(v, n)
	return parallel, v.Sub(parallel)
}

// DesiredRotation returns the capsule rotation aligned to the frame, keeping forward as
// close to the current forward axis as possible.
func (f Frame) DesiredRotation(current mgl64.Quat) mgl64.Quat {
	return omath.QuatFromZX(f.Up(), omath.ForwardOf(current))
}

// Aligned reports whether the rotation's up axis is already parallel to the frame.
func (f Frame) Aligned(rotation mgl64.Quat) bool {
	return omath.UpOf(rotation).Dot(f.Up()) >= ParallelThreshold
}

// SmoothRotation eases rotation toward the frame at rate*dt. Nothing changes in zero-g or
// when the capsule is already aligned.
func (f Frame) SmoothRotation(rotation mgl64.Quat, dt, rate float64) mgl64.Quat {
	if f.zeroG || f.Aligned(rotation) {
		return rotation
	}
	return omath.Slerp(rotation, f.DesiredRotation(rotation), math.Min(rate*dt, 1))
}

// SnapRotation aligns rotation to the frame instantly. Nothing changes in zero-g.
func (f Frame) SnapRotation(rotation mgl64.Quat) mgl64.Quat {
	if f.zeroG || f.Aligned(rotation) {
		return rotation
	}
	return f.DesiredRotation(rotation)
}
