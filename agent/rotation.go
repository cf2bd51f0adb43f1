package agent

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/omath"
)

// yawBetween returns the signed angle in radians that turns from onto to around up.
func yawBetween(from, to, up mgl64.Vec3) float64 {
	return math.Atan2(up.Dot(from.Cross(to)), from.Dot(to))
}

// updateAim stores the planar aim direction of in and how fast it turned since the last tick.
// Agents without an aim look along their capsule.
func (a *Agent) updateAim(dt float64, aim mgl64.Vec3) {
	up := a.c.CapsuleUp()
	dir := omath.SafeNormal(omath.PlaneProject(aim, up))
	if omath.IsZero(dir) {
		dir = a.forward()
	}
	a.aimYawRate = 0
	if dt > 0 && !omath.IsZero(dir) && !omath.IsZero(a.aim) {
		a.aimYawRate = math.Abs(mgl64.RadToDeg(yawBetween(a.aim, dir, up))) / dt
	}
	a.aim = dir
}

// rotate turns the capsule around its up axis on the ground and in the air. Other modes rotate
// the capsule themselves.
func (a *Agent) rotate(dt float64) {
	if dt <= 0 {
		return
	}
	switch a.c.Mode() {
	case movement.ModeWalking:
		a.rotateGrounded(dt)
	case movement.ModeFalling:
		a.rotateInAir(dt)
	}
}

func (a *Agent) rotateGrounded(dt float64) {
	velocity := a.c.Frame().Planar(a.c.Velocity())
	speed := velocity.Len()
	if (speed > 1 && !omath.IsZero(a.c.Acceleration())) || speed > 150 {
		rate := a.groundedRotationRate(speed)
		switch a.rotationMode() {
		case rotateToVelocity:
			a.smoothRotation(omath.SafeNormal(velocity), 800, rate, dt)
		case rotateToLook:
			a.smoothRotation(a.aim, 500, rate, dt)
		case rotateToAim:
			a.smoothRotation(a.aim, 1000, 20, dt)
		}
		return
	}
	if a.rotationMode() == rotateToAim {
		a.limitRotation(-100, 100, 20, dt)
	}
}

func (a *Agent) rotateInAir(dt float64) {
	if a.rotationMode() == rotateToAim {
		a.smoothRotation(a.aim, 0, 15, dt)
		a.airForward = a.forward()
		return
	}
	a.smoothRotation(a.airForward, 0, 5, dt)
}

// groundedRotationRate grows with the gait of the agent and with how fast it aims around.
func (a *Agent) groundedRotationRate(speed float64) float64 {
	g := a.gaitSpeeds()
	return g.RotationRate.Sample(mappedSpeed(g, speed)) * omath.MapRangeClamped(a.aimYawRate, 0, 300, 1, 3)
}

// smoothRotation turns the target forward toward desired by at most targetRate degrees per second,
// then eases the capsule toward the target at actorRate. A targetRate of zero snaps the target.
func (a *Agent) smoothRotation(desired mgl64.Vec3, targetRate, actorRate, dt float64) {
	up := a.c.CapsuleUp()
	desired = omath.SafeNormal(omath.PlaneProject(desired, up))
	forward := a.forward()
	if omath.IsZero(desired) || omath.IsZero(forward) {
		return
	}
	target := omath.SafeNormal(omath.PlaneProject(a.targetForward, up))
	if omath.IsZero(target) {
		target = forward
	}
	if delta := yawBetween(target, desired, up); targetRate <= 0 || math.Abs(delta) <= mgl64.DegToRad(targetRate*dt) {
		target = desired
	} else {
		step := math.Copysign(mgl64.DegToRad(targetRate*dt), delta)
		target = mgl64.QuatRotate(step, up).Rotate(target)
	}
	a.targetForward = target

	angle := yawBetween(forward, target, up) * omath.ClampFloat(dt*actorRate, 0, 1)
	if math.Abs(angle) > omath.SmallNumber {
		a.c.SetRotation(mgl64.QuatRotate(angle, up).Mul(a.c.Rotation()))
	}
}

// limitRotation keeps the capsule within [minYaw, maxYaw] degrees of the aim direction.
func (a *Agent) limitRotation(minYaw, maxYaw, rate, dt float64) {
	up := a.c.CapsuleUp()
	forward := a.forward()
	if omath.IsZero(forward) || omath.IsZero(a.aim) {
		return
	}
	delta := mgl64.RadToDeg(yawBetween(forward, a.aim, up))
	if delta >= minYaw && delta <= maxYaw {
		return
	}
	bound := maxYaw
	if delta > 0 {
		bound = minYaw
	}
	a.smoothRotation(mgl64.QuatRotate(mgl64.DegToRad(bound), up).Rotate(a.aim), 0, rate, dt)
}
