package agent

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/omath"
	"github.com/oomph-ac/locomotion/settings"
)

// Gait is the pace an agent moves at on the ground.
type Gait uint8

const (
	GaitWalking Gait = iota
	GaitRunning
	GaitSprinting
)

func (g Gait) String() string {
	switch g {
	case GaitWalking:
		return "walking"
	case GaitRunning:
		return "running"
	case GaitSprinting:
		return "sprinting"
	}
	return fmt.Sprintf("gait(%d)", uint8(g))
}

type rotationMode uint8

const (
	rotateToVelocity rotationMode = iota
	rotateToLook
	rotateToAim
)

func (a *Agent) rotationMode() rotationMode {
	switch {
	case a.input.Aiming:
		return rotateToAim
	case a.s.Locomotion.RotationMode == settings.RotationLookingDirection:
		return rotateToLook
	}
	return rotateToVelocity
}

// gaitSpeeds returns the speeds of the current rotation mode.
func (a *Agent) gaitSpeeds() settings.GaitSpeeds {
	switch a.rotationMode() {
	case rotateToLook:
		return a.s.Locomotion.LookingDirection
	case rotateToAim:
		return a.s.Locomotion.Aiming
	}
	return a.s.Locomotion.VelocityDirection
}

func speedOf(g settings.GaitSpeeds, gait Gait) float64 {
	switch gait {
	case GaitWalking:
		return g.WalkSpeed
	case GaitSprinting:
		return g.SprintSpeed
	}
	return g.RunSpeed
}

// mappedSpeed maps speed onto [0, 3] so that 1, 2 and 3 are the walk, run and sprint speeds.
func mappedSpeed(g settings.GaitSpeeds, speed float64) float64 {
	switch {
	case speed > g.RunSpeed:
		return omath.MapRangeClamped(speed, g.RunSpeed, g.SprintSpeed, 2, 3)
	case speed > g.WalkSpeed:
		return omath.MapRangeClamped(speed, g.WalkSpeed, g.RunSpeed, 1, 2)
	}
	return omath.MapRangeClamped(speed, 0, g.WalkSpeed, 0, 1)
}

func desiredGait(in Input) Gait {
	switch {
	case in.Sprint:
		return GaitSprinting
	case in.Walk:
		return GaitWalking
	}
	return GaitRunning
}

// canSprint reports if the input is strong enough to sprint. Agents looking around must also
// move roughly where they look, and aiming agents never sprint.
func (a *Agent) canSprint(in Input) bool {
	if omath.IsZero(in.Move) || in.Move.Len() <= 0.9 {
		return false
	}
	switch a.rotationMode() {
	case rotateToVelocity:
		return true
	case rotateToLook:
		up := a.c.CapsuleUp()
		dir := omath.SafeNormal(omath.PlaneProject(in.Move, up))
		return !omath.IsZero(dir) && math.Abs(mgl64.RadToDeg(yawBetween(dir, a.aim, up))) < 50
	}
	return false
}

// allowedGait returns the fastest gait the agent may move at.
func (a *Agent) allowedGait(in Input) Gait {
	desired := desiredGait(in)
	if desired != GaitSprinting {
		return desired
	}
	if in.Crouch || !a.canSprint(in) {
		return GaitRunning
	}
	return GaitSprinting
}

// actualGait returns the gait matching speed. An agent only sprints if it is allowed to.
func actualGait(g settings.GaitSpeeds, allowed Gait, speed float64) Gait {
	switch {
	case speed > g.RunSpeed+10:
		if allowed == GaitSprinting {
			return GaitSprinting
		}
		return GaitRunning
	case speed >= g.WalkSpeed+10:
		return GaitRunning
	}
	return GaitWalking
}

// updateGait sets the walking speed limit to the speed of the allowed gait. The limit is only
// requested when it changes, so that the change is replicated once.
func (a *Agent) updateGait(in Input) {
	g := a.gaitSpeeds()
	allowed := a.allowedGait(in)
	a.gait = actualGait(g, allowed, a.c.Frame().Planar(a.c.Velocity()).Len())

	if speed := speedOf(g, allowed); speed != a.gaitSpeed {
		a.gaitSpeed = speed
		a.c.RequestMaxWalkSpeed(speed)
	}
}
