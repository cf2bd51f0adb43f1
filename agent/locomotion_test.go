package agent

import (
	"math"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/omath"
	"github.com/oomph-ac/locomotion/settings"
)

var up = mgl64.Vec3{0, 0, 1}

func yawDegrees(from, to mgl64.Vec3) float64 {
	return mgl64.RadToDeg(yawBetween(from, to, up))
}

func TestWalkGaitUsesWalkSpeed(t *testing.T) {
	a, _ := newAgent(t, flatWorld())
	walk := settings.DefaultSettings().Locomotion.VelocityDirection.WalkSpeed
	if res := a.Tick(dt, Input{Move: forward, Walk: true}); !res.SettingsChanged {
		t.Fatalf("expected walking to change the walk speed")
	}
	if got := a.Component().Config().MaxWalkSpeed; got != walk {
		t.Fatalf("expected a walk speed of %v, got %v", walk, got)
	}
	for range 30 {
		a.Tick(dt, Input{Move: forward, Walk: true})
	}
	if st := a.Animation(); st.Gait != GaitWalking || st.Speed > walk+1e-6 {
		t.Fatalf("expected a walking gait at most %v fast, got %v at %v", walk, st.Gait, st.Speed)
	}
}

func TestSprintGait(t *testing.T) {
	a, _ := newAgent(t, flatWorld())
	for range 60 {
		a.Tick(dt, Input{Move: forward, Sprint: true})
	}
	if st := a.Animation(); st.Gait != GaitSprinting {
		t.Fatalf("expected a sprinting gait at %v, got %v", st.Speed, st.Gait)
	}

	// Light analog input is not enough to sprint.
	a, _ = newAgent(t, flatWorld())
	if res := a.Tick(dt, Input{Move: mgl64.Vec3{0.5, 0, 0}, Sprint: true}); res.SettingsChanged {
		t.Fatalf("expected no walk speed change without full input")
	}
	if got, want := a.Component().Config().MaxWalkSpeed, settings.DefaultSettings().Locomotion.VelocityDirection.RunSpeed; got != want {
		t.Fatalf("expected the run speed %v, got %v", want, got)
	}
}

func TestCapsuleTurnsTowardVelocity(t *testing.T) {
	a, _ := newAgent(t, flatWorld())
	left := mgl64.Vec3{0, 1, 0}
	var maxYawRate float64
	for range 30 {
		a.Tick(dt, Input{Move: left})
		maxYawRate = math.Max(maxYawRate, a.Animation().AimYawRate)
	}
	if f := a.forward(); f.Dot(left) < 0.99 {
		t.Fatalf("expected the capsule to face its velocity, got forward %v", f)
	}
	if u := omath.UpOf(a.Component().Rotation()); u.Dot(up) < 0.999 {
		t.Fatalf("expected the capsule to stay upright, got up %v", u)
	}
	if maxYawRate <= 0 {
		t.Fatalf("expected turning to report a yaw rate")
	}
}

func TestLookingDirectionFollowsAim(t *testing.T) {
	s := settings.DefaultSettings()
	s.Locomotion.RotationMode = settings.RotationLookingDirection
	a, _ := newAgentWithSettings(t, s, flatWorld())
	right := mgl64.Vec3{0, -1, 0}
	for range 30 {
		a.Tick(dt, Input{Move: forward, Aim: right, Sprint: true})
	}
	if f := a.forward(); f.Dot(right) < 0.99 {
		t.Fatalf("expected the capsule to face the aim direction, got forward %v", f)
	}
	if got := a.Component().Config().MaxWalkSpeed; got != s.Locomotion.LookingDirection.RunSpeed {
		t.Fatalf("expected sprinting away from the aim direction to be refused, got a walk speed of %v", got)
	}

	a.Tick(dt, Input{Move: forward, Aim: forward, Sprint: true})
	if got := a.Component().Config().MaxWalkSpeed; got != s.Locomotion.LookingDirection.SprintSpeed {
		t.Fatalf("expected sprinting along the aim direction, got a walk speed of %v", got)
	}
}

func TestAimingLimitsRotation(t *testing.T) {
	a, _ := newAgent(t, flatWorld())
	aim := mgl64.Vec3{math.Cos(mgl64.DegToRad(150)), math.Sin(mgl64.DegToRad(150)), 0}
	for range 30 {
		a.Tick(dt, Input{Aim: aim, Aiming: true})
	}
	if delta := yawDegrees(a.forward(), aim); math.Abs(delta-100) > 1 {
		t.Fatalf("expected the capsule to turn until 100 degrees from the aim, got %v", delta)
	}
	if got := a.Component().Config().MaxWalkSpeed; got != settings.DefaultSettings().Locomotion.Aiming.RunSpeed {
		t.Fatalf("expected the aiming run speed, got %v", got)
	}

	a, _ = newAgent(t, flatWorld())
	for range 30 {
		a.Tick(dt, Input{Aim: mgl64.Vec3{0, 1, 0}, Aiming: true})
	}
	if f := a.forward(); f.Dot(forward) < 0.999 {
		t.Fatalf("expected aiming within the limit not to turn the capsule, got forward %v", f)
	}
}

func TestInAirRotation(t *testing.T) {
	a, _ := newAgent(t, flatWorld(), WithTransform(mgl64.Vec3{0, 0, 1000}, mgl64.QuatIdent()), WithMode(movement.ModeFalling))
	left := mgl64.Vec3{0, 1, 0}
	for range 10 {
		a.Tick(dt, Input{Aim: left, Aiming: true})
	}
	if f := a.forward(); f.Dot(left) < 0.99 {
		t.Fatalf("expected aiming in the air to turn the capsule, got forward %v", f)
	}
	for range 5 {
		a.Tick(dt, Input{})
	}
	if f := a.forward(); f.Dot(left) < 0.99 || a.Component().Mode() != movement.ModeFalling {
		t.Fatalf("expected the capsule to keep its heading in the air, got forward %v in %v", f, a.Component().Mode())
	}
}

func TestJumpTurnsTowardJumpDirection(t *testing.T) {
	a, l := newAgent(t, flatWorld())
	left := mgl64.Vec3{0, 1, 0}
	a.Component().SetVelocity(left.Mul(600))
	a.Tick(dt, Input{Jump: true})
	if l.jumped != 1 {
		t.Fatalf("expected a jump")
	}
	for range 10 {
		a.Tick(dt, Input{})
	}
	if a.Component().Mode() != movement.ModeFalling {
		t.Fatalf("expected the agent to still be in the air, got %v", a.Component().Mode())
	}
	if f := a.forward(); f.Dot(left) < 0.9 {
		t.Fatalf("expected the capsule to turn toward the jump direction, got forward %v", f)
	}
}

// drop lets a falling agent land with in held.
func drop(t *testing.T, a *Agent, in Input) {
	t.Helper()
	for i := 0; a.Component().Mode() == movement.ModeFalling; i++ {
		if i > 200 {
			t.Fatalf("expected the agent to land")
		}
		a.Tick(dt, in)
	}
}

func TestLandingFrictionIsRestored(t *testing.T) {
	s := settings.DefaultSettings()
	a, _ := newAgent(t, flatWorld(), WithTransform(mgl64.Vec3{0, 0, 300}, mgl64.QuatIdent()), WithMode(movement.ModeFalling))
	drop(t, a, Input{})
	if got := a.Component().Config().BrakingFrictionFactor; got != s.Locomotion.LandingFrictionWithoutInput {
		t.Fatalf("expected landing without input to brake with %v, got %v", s.Locomotion.LandingFrictionWithoutInput, got)
	}
	for range 5 {
		a.Tick(dt, Input{})
	}
	if got := a.Component().Config().BrakingFrictionFactor; got != s.Locomotion.LandingFrictionWithoutInput {
		t.Fatalf("expected the landing friction to last, got %v", got)
	}
	for range 15 {
		a.Tick(dt, Input{})
	}
	if got := a.Component().Config().BrakingFrictionFactor; got != s.Movement.BrakingFrictionFactor {
		t.Fatalf("expected the braking friction to be restored to %v, got %v", s.Movement.BrakingFrictionFactor, got)
	}

	a, _ = newAgent(t, flatWorld(), WithTransform(mgl64.Vec3{0, 0, 150}, mgl64.QuatIdent()), WithMode(movement.ModeFalling))
	drop(t, a, Input{Move: forward})
	if got := a.Component().Config().BrakingFrictionFactor; got != s.Locomotion.LandingFrictionWithInput {
		t.Fatalf("expected landing with input to brake with %v, got %v", s.Locomotion.LandingFrictionWithInput, got)
	}
}

func TestHardLandingWithInputBreaksFall(t *testing.T) {
	a, l := newAgent(t, flatWorld(), WithTransform(mgl64.Vec3{0, 0, 400}, mgl64.QuatIdent()), WithMode(movement.ModeFalling))
	drop(t, a, Input{Move: forward})
	if !slices.Contains(l.montages, BreakfallMontage) {
		t.Fatalf("expected a breakfall montage, got %v", l.montages)
	}
	if got := a.Component().Config().BrakingFrictionFactor; got != settings.DefaultSettings().Movement.BrakingFrictionFactor {
		t.Fatalf("expected a breakfall to keep the braking friction, got %v", got)
	}
}

func TestRagdollOnLand(t *testing.T) {
	s := settings.DefaultSettings()
	s.Locomotion.RagdollOnLand = true
	a, l := newAgentWithSettings(t, s, flatWorld(), WithTransform(mgl64.Vec3{0, 0, 800}, mgl64.QuatIdent()), WithMode(movement.ModeFalling))
	drop(t, a, Input{Move: forward})
	if !a.Ragdoll().Active() || a.Component().Mode() != movement.ModeRagdoll {
		t.Fatalf("expected a hard landing to start the ragdoll, got %v", a.Component().Mode())
	}
	if slices.Contains(l.montages, BreakfallMontage) {
		t.Fatalf("expected no breakfall when landing as a ragdoll")
	}

	// A soft landing never ragdolls.
	a, _ = newAgentWithSettings(t, s, flatWorld(), WithTransform(mgl64.Vec3{0, 0, 150}, mgl64.QuatIdent()), WithMode(movement.ModeFalling))
	drop(t, a, Input{})
	if a.Ragdoll().Active() {
		t.Fatalf("expected a soft landing not to ragdoll")
	}
}
