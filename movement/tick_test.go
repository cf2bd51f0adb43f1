package movement

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/assert"
	"github.com/oomph-ac/locomotion/world"
)

type switchingDriver struct {
	to    Mode
	seen  Mode
	calls int
}

func (d *switchingDriver) Phys(c *Component, _ float64) {
	d.calls++
	c.SetMode(d.to)
	d.seen = c.Mode()
}

func TestStandingStillOnFlatFloor(t *testing.T) {
	c := newWalker(t, flatWorld())
	start := c.Location()
	for i := 0; i < 10; i++ {
		res := c.Tick(1.0/60.0, RoleAuthority)
		if res.Mode != ModeWalking {
			t.Fatalf("expected to keep walking, got %v", res.Mode)
		}
	}
	if c.Location() != start {
		t.Fatalf("expected the capsule not to move, got %v", c.Location())
	}
	if c.Velocity() != (mgl64.Vec3{}) {
		t.Fatalf("expected no velocity, got %v", c.Velocity())
	}
}

func TestWalkingAccelerates(t *testing.T) {
	c := newWalker(t, flatWorld())
	c.SetInputAcceleration(mgl64.Vec3{1, 0, 0})
	for i := 0; i < 60; i++ {
		c.Tick(1.0/60.0, RoleAuthority)
	}
	if speed := c.Velocity().Len(); math.Abs(speed-600) > 1 {
		t.Fatalf("expected to reach the max walk speed, got %v", speed)
	}
	if math.Abs(c.Location().Z()-standingZ) > 0.3 {
		t.Fatalf("expected to stay on the floor, got %v", c.Location())
	}
}

func TestFallingLandsOnFloor(t *testing.T) {
	obs := &recordingObserver{}
	c := New(DefaultConfig(), flatWorld(), WithTransform(mgl64.Vec3{0, 0, 188}, mgl64.QuatIdent()), WithObserver(obs))
	for i := 0; i < 120 && c.Mode() == ModeFalling; i++ {
		c.Tick(1.0/60.0, RoleAuthority)
	}
	if c.Mode() != ModeWalking {
		t.Fatalf("expected to land, got %v", c.Mode())
	}
	if obs.landed != 1 {
		t.Fatalf("expected one landing notification, got %d", obs.landed)
	}
	if bottom := c.Location().Z() - 88; bottom < MinFloorDist-1e-3 || bottom > MaxFloorDist+1e-3 {
		t.Fatalf("expected to rest within the floor band, bottom at %v", bottom)
	}
	if len(obs.changes) != 1 || obs.changes[0] != [2]Mode{ModeFalling, ModeWalking} {
		t.Fatalf("expected one falling to walking change, got %v", obs.changes)
	}
}

func TestWalkingOffLedgeFalls(t *testing.T) {
	w := world.New(world.NewBox("ledge", mgl64.Vec3{-1000, -1000, -10}, mgl64.Vec3{100, 1000, 0}))
	c := newWalker(t, w)
	c.SetInputAcceleration(mgl64.Vec3{1, 0, 0})
	for i := 0; i < 60 && c.Mode() == ModeWalking; i++ {
		c.Tick(1.0/30.0, RoleAuthority)
	}
	if c.Mode() != ModeFalling {
		t.Fatalf("expected to fall off the ledge, got %v at %v", c.Mode(), c.Location())
	}
}

func TestLedgeStopsAgentThatMayNotWalkOff(t *testing.T) {
	w := world.New(world.NewBox("ledge", mgl64.Vec3{-1000, -1000, -10}, mgl64.Vec3{100, 1000, 0}))
	c := newWalker(t, w)
	cfg := c.Config()
	cfg.CanWalkOffLedges = false
	c.SetConfig(cfg)
	c.SetInputAcceleration(mgl64.Vec3{1, 0, 0})
	for i := 0; i < 60; i++ {
		c.Tick(1.0/30.0, RoleAuthority)
	}
	if c.Mode() != ModeWalking {
		t.Fatalf("expected the agent to stay on the ledge, got %v at %v", c.Mode(), c.Location())
	}
}

func TestJump(t *testing.T) {
	obs := &recordingObserver{}
	c := newWalker(t, flatWorld(), WithObserver(obs))
	c.Jump()
	res := c.Tick(1.0/60.0, RoleAuthority)
	if res.Mode != ModeFalling {
		t.Fatalf("expected to be falling after a jump, got %v", res.Mode)
	}
	if res.Velocity.Z() <= 0 || res.Location.Z() <= standingZ {
		t.Fatalf("expected to move up, got velocity %v at %v", res.Velocity, res.Location)
	}
	for i := 0; i < 120 && c.Mode() == ModeFalling; i++ {
		c.Tick(1.0/60.0, RoleAuthority)
	}
	if obs.apexes != 1 {
		t.Fatalf("expected one apex notification, got %d", obs.apexes)
	}
	if c.Mode() != ModeWalking {
		t.Fatalf("expected to land again, got %v", c.Mode())
	}
}

func TestCrouchedAgentCannotJump(t *testing.T) {
	c := newWalker(t, flatWorld())
	c.SetCrouch(true)
	c.Tick(1.0/60.0, RoleAuthority)
	if !c.Crouching() {
		t.Fatalf("expected to be crouching")
	}
	c.Jump()
	if res := c.Tick(1.0/60.0, RoleAuthority); res.Mode != ModeWalking {
		t.Fatalf("expected a crouched agent not to jump, got %v", res.Mode)
	}
}

func TestImpulseLiftsOff(t *testing.T) {
	c := newWalker(t, flatWorld())
	c.AddImpulse(mgl64.Vec3{0, 0, 1000}, true)
	res := c.Tick(1.0/60.0, RoleAuthority)
	if res.Mode != ModeFalling {
		t.Fatalf("expected an upward impulse to lift the agent off, got %v", res.Mode)
	}
	if res.Velocity.Z() <= 900 {
		t.Fatalf("expected the impulse in the velocity, got %v", res.Velocity)
	}
}

func TestDownwardForceKeepsWalking(t *testing.T) {
	c := newWalker(t, flatWorld())
	c.AddForce(mgl64.Vec3{0, 0, -10000})
	if res := c.Tick(1.0/60.0, RoleAuthority); res.Mode != ModeWalking {
		t.Fatalf("expected a downward force not to lift the agent off, got %v", res.Mode)
	}
}

func TestLaunch(t *testing.T) {
	c := newWalker(t, flatWorld())
	c.Launch(mgl64.Vec3{100, 0, 500})
	res := c.Tick(1.0/60.0, RoleAuthority)
	if res.Mode != ModeFalling || res.Velocity.X() <= 0 || res.Velocity.Z() <= 0 {
		t.Fatalf("expected to be launched, got %v with %v", res.Mode, res.Velocity)
	}
}

func TestZeroGravityScaleStopsFalling(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GravityScale = 0
	c := New(cfg, flatWorld(), WithTransform(mgl64.Vec3{0, 0, 500}, mgl64.QuatIdent()))
	c.SetVelocity(mgl64.Vec3{100, 0, -100})
	c.SetInputAcceleration(mgl64.Vec3{1, 0, 0})
	res := c.Tick(1.0/60.0, RoleAuthority)
	if res.Velocity != (mgl64.Vec3{}) || c.Acceleration() != (mgl64.Vec3{}) {
		t.Fatalf("expected velocity and acceleration to be zeroed, got %v / %v", res.Velocity, c.Acceleration())
	}
	if res.Location != (mgl64.Vec3{0, 0, 500}) {
		t.Fatalf("expected the capsule not to move, got %v", res.Location)
	}
}

func TestZeroGravitySwitchesToFlying(t *testing.T) {
	obs := &recordingObserver{}
	c := New(DefaultConfig(), flatWorld(), WithTransform(mgl64.Vec3{0, 0, 500}, mgl64.QuatIdent()), WithObserver(obs))
	c.SetGravityUp(mgl64.Vec3{})
	if c.Mode() != ModeFlying || !c.Frame().ZeroG() {
		t.Fatalf("expected zero-g to make the agent fly, got %v", c.Mode())
	}
	c.SetVelocity(mgl64.Vec3{100, 0, 0})
	c.Tick(1.0/60.0, RoleAuthority)
	if c.Location().X() <= 0 || c.Location().Z() != 500 {
		t.Fatalf("expected to drift without gravity, got %v", c.Location())
	}

	c.SetGravityUp(mgl64.Vec3{0, 0, 1})
	if c.Mode() != ModeFalling {
		t.Fatalf("expected restoring gravity to make the agent fall, got %v", c.Mode())
	}
	want := [][2]Mode{{ModeFalling, ModeFlying}, {ModeFlying, ModeFalling}}
	if len(obs.changes) != len(want) || obs.changes[0] != want[0] || obs.changes[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, obs.changes)
	}
}

func TestGravityAlongOtherAxis(t *testing.T) {
	c := New(DefaultConfig(), world.New(), WithTransform(mgl64.Vec3{}, mgl64.QuatIdent()))
	c.SetGravityUp(mgl64.Vec3{1, 0, 0})
	c.Tick(0.1, RoleAuthority)
	if c.Velocity().X() >= 0 {
		t.Fatalf("expected to fall along -x, got %v", c.Velocity())
	}
	if math.Abs(c.Velocity().Z()) > 1e-6 {
		t.Fatalf("expected no fall along z, got %v", c.Velocity())
	}
}

func TestModeChangeDuringDispatchIsDeferred(t *testing.T) {
	obs := &recordingObserver{}
	d := &switchingDriver{to: ModeFalling}
	c := New(DefaultConfig(), flatWorld(), WithTransform(mgl64.Vec3{0, 0, 500}, mgl64.QuatIdent()), WithDriver(ModeCustom, d), WithObserver(obs))
	c.SetMode(ModeCustom)

	res := c.Tick(1.0/60.0, RoleAuthority)
	if d.calls != 1 {
		t.Fatalf("expected the driver to run once, got %d", d.calls)
	}
	if d.seen != ModeCustom {
		t.Fatalf("expected the mode to stay custom while the driver runs, got %v", d.seen)
	}
	if res.Mode != ModeFalling {
		t.Fatalf("expected the requested mode after the tick, got %v", res.Mode)
	}
	want := [][2]Mode{{ModeFalling, ModeCustom}, {ModeCustom, ModeFalling}}
	if len(obs.changes) != len(want) || obs.changes[0] != want[0] || obs.changes[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, obs.changes)
	}
}

func TestUnknownModeFallsBackToNone(t *testing.T) {
	c := New(DefaultConfig(), flatWorld())
	c.SetMode(Mode(200))
	if c.Mode() != ModeNone {
		t.Fatalf("expected an unknown mode to become none, got %v", c.Mode())
	}
}

func TestIterationBudgetExhausted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSimulationIterations = 1
	c := New(cfg, flatWorld(), WithTransform(mgl64.Vec3{0, 0, 89}, mgl64.QuatIdent()))
	res := c.Tick(0.1, RoleAuthority)
	if res.Mode != ModeWalking {
		t.Fatalf("expected to land, got %v", res.Mode)
	}
	if !res.BudgetExhausted || res.Iterations != 1 {
		t.Fatalf("expected the budget to run out after one iteration, got %+v", res)
	}
	if c.Diagnostics().BudgetExhausted != 1 {
		t.Fatalf("expected one exhausted budget to be counted, got %d", c.Diagnostics().BudgetExhausted)
	}
}

func TestNaNVelocityIsClamped(t *testing.T) {
	if assert.Enabled {
		t.Skip("assertions panic on non-finite velocity")
	}
	c := newWalker(t, flatWorld())
	c.SetVelocity(mgl64.Vec3{math.NaN(), 0, 0})
	res := c.Tick(1.0/60.0, RoleAuthority)
	if !res.NaNClamped || c.Diagnostics().NaNClamped != 1 {
		t.Fatalf("expected the velocity to be clamped, got %+v", res)
	}
	if res.Velocity != (mgl64.Vec3{}) {
		t.Fatalf("expected a zero velocity, got %v", res.Velocity)
	}
}

func TestRequestMaxWalkSpeed(t *testing.T) {
	c := newWalker(t, flatWorld())
	c.RequestMaxWalkSpeed(300)
	res := c.Tick(1.0/60.0, RoleAuthority)
	if !res.SettingsChanged || c.Config().MaxWalkSpeed != 300 {
		t.Fatalf("expected the walk speed change to be applied, got %+v", res)
	}
	if res = c.Tick(1.0/60.0, RoleAuthority); res.SettingsChanged {
		t.Fatalf("expected the change to be reported once")
	}
}

func TestBasedMovementFollowsPlatform(t *testing.T) {
	platform := world.NewBox("platform", mgl64.Vec3{-500, -500, -10}, mgl64.Vec3{500, 500, 0}, world.WithVelocity(mgl64.Vec3{50, 0, 0}))
	w := world.New(platform)
	c := newWalker(t, w)
	if c.Base() == nil || c.Base().ID() != "platform" {
		t.Fatalf("expected to stand on the platform, got %v", c.Base())
	}
	w.Tick(0.1)
	c.Tick(0.1, RoleAuthority)
	if math.Abs(c.Location().X()-5) > 1e-6 {
		t.Fatalf("expected to be carried 5 units, got %v", c.Location())
	}
}

func TestSimulatedProxyWaitsForUpdate(t *testing.T) {
	c := New(DefaultConfig(), flatWorld(), WithTransform(mgl64.Vec3{0, 0, 500}, mgl64.QuatIdent()))
	res := c.Tick(1.0/60.0, RoleSimulatedProxy)
	if res.Location != (mgl64.Vec3{0, 0, 500}) || res.Velocity != (mgl64.Vec3{}) {
		t.Fatalf("expected no movement before the first update, got %+v", res)
	}

	c.ReceiveNetworkUpdate(mgl64.Vec3{0, 0, 500}, mgl64.QuatIdent(), mgl64.Vec3{}, ModeFalling)
	res = c.Tick(1.0/60.0, RoleSimulatedProxy)
	if res.Velocity.Z() >= 0 {
		t.Fatalf("expected the proxy to fall, got %v", res.Velocity)
	}
	if res.Iterations != 0 {
		t.Fatalf("expected the proxy not to run physics iterations, got %d", res.Iterations)
	}
}

func TestSimulatedProxyLands(t *testing.T) {
	c := New(DefaultConfig(), flatWorld())
	c.ReceiveNetworkUpdate(mgl64.Vec3{0, 0, 88 + 1.5}, mgl64.QuatIdent(), mgl64.Vec3{}, ModeFalling)
	if res := c.Tick(1.0/60.0, RoleSimulatedProxy); res.Mode != ModeWalking {
		t.Fatalf("expected the proxy to land, got %v", res.Mode)
	}
}

func TestSimulatedProxyAppliesReplicatedMode(t *testing.T) {
	c := New(DefaultConfig(), flatWorld())
	c.ReceiveNetworkUpdate(mgl64.Vec3{0, 0, 500}, mgl64.QuatIdent(), mgl64.Vec3{100, 0, 0}, ModeFlying)
	res := c.Tick(1.0/60.0, RoleSimulatedProxy)
	if res.Mode != ModeFlying {
		t.Fatalf("expected the replicated mode, got %v", res.Mode)
	}
	if res.Location.X() <= 0 || res.Velocity != (mgl64.Vec3{100, 0, 0}) {
		t.Fatalf("expected the proxy to extrapolate its velocity, got %+v", res)
	}
}
