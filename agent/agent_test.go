package agent

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/mantle"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/network"
	"github.com/oomph-ac/locomotion/settings"
	"github.com/oomph-ac/locomotion/world"
)

const dt = 1.0 / 30.0

// standingZ is the center height of a default capsule resting on a floor at z=0.
const standingZ = 88 + 2.15

var forward = mgl64.Vec3{1, 0, 0}

type recordingListener struct {
	NopListener

	changes  [][2]movement.Mode
	landed   int
	jumped   int
	mantles  []mantle.Params
	poses    []bool
	montages []string
}

func (l *recordingListener) HandleModeChange(_ *Agent, previous, current movement.Mode) {
	l.changes = append(l.changes, [2]movement.Mode{previous, current})
}

func (l *recordingListener) HandleLanded(*Agent, collision.Hit) { l.landed++ }
func (l *recordingListener) HandleJumped(*Agent)                { l.jumped++ }

func (l *recordingListener) HandleMantleStart(_ *Agent, p mantle.Params) {
	l.mantles = append(l.mantles, p)
}

func (l *recordingListener) HandleRagdollPose(_ *Agent, _ string, grounded, _ bool) {
	l.poses = append(l.poses, grounded)
}

func (l *recordingListener) HandleMontage(_ *Agent, montage string, _ float64) {
	l.montages = append(l.montages, montage)
}

type panickingListener struct {
	NopListener
}

func (panickingListener) HandleJumped(*Agent) { panic("listener failure") }

// wallWorld returns a floor with an 80 unit high wall starting 60 units in front of the origin.
func wallWorld() *world.World {
	return world.New(
		world.NewBox("floor", mgl64.Vec3{-1000, -1000, -10}, mgl64.Vec3{1000, 1000, 0}),
		world.NewBox("wall", mgl64.Vec3{60, -500, -10}, mgl64.Vec3{1000, 500, 80}),
	)
}

func flatWorld() *world.World {
	return world.New(world.NewBox("floor", mgl64.Vec3{-1000, -1000, -10}, mgl64.Vec3{1000, 1000, 0}))
}

func newAgent(t *testing.T, w *world.World, opts ...Option) (*Agent, *recordingListener) {
	t.Helper()
	return newAgentWithSettings(t, settings.DefaultSettings(), w, opts...)
}

func newAgentWithSettings(t *testing.T, s settings.Settings, w *world.World, opts ...Option) (*Agent, *recordingListener) {
	t.Helper()
	l := &recordingListener{}
	opts = append([]Option{WithTransform(mgl64.Vec3{0, 0, standingZ}, mgl64.QuatIdent()), WithListener(l)}, opts...)
	a := New("agent", s, w, opts...)
	return a, l
}

func TestJumpAtWallMantles(t *testing.T) {
	a, l := newAgent(t, wallWorld())
	res := a.Tick(dt, Input{Move: forward, Jump: true})
	if res.Mode != movement.ModeMantling || !a.Mantle().Active() {
		t.Fatalf("expected jumping at the wall to mantle, got mode %v", res.Mode)
	}
	if res.Jumped || l.jumped != 0 {
		t.Fatalf("expected the mantle to replace the jump")
	}
	if len(l.mantles) != 1 || l.mantles[0].Type != mantle.TypeLowMantle {
		t.Fatalf("expected one low mantle to be reported, got %+v", l.mantles)
	}

	for i := 0; a.Mantle().Active(); i++ {
		if i > 200 {
			t.Fatalf("expected the mantle to finish")
		}
		a.Tick(dt, Input{})
	}
	if mode := a.Component().Mode(); mode != movement.ModeWalking {
		t.Fatalf("expected the agent to walk after the mantle, got %v", mode)
	}
	if z := a.Component().Location().Z(); math.Abs(z-(80+standingZ)) > 1 {
		t.Fatalf("expected the agent to stand on the wall, got z %v", z)
	}
}

func TestJumpWithoutLedgeJumps(t *testing.T) {
	a, l := newAgent(t, flatWorld())
	res := a.Tick(dt, Input{Move: forward, Jump: true})
	if !res.Jumped || res.Mode != movement.ModeFalling {
		t.Fatalf("expected a jump, got %+v", res)
	}
	if l.jumped != 1 || len(l.mantles) != 0 {
		t.Fatalf("expected one jump and no mantle, got %d jumps and %d mantles", l.jumped, len(l.mantles))
	}
}

func TestRagdollCancelsMantle(t *testing.T) {
	a, l := newAgent(t, wallWorld())
	a.Tick(dt, Input{Move: forward, Jump: true})
	for range 5 {
		a.Tick(dt, Input{})
	}
	if !a.Mantle().Active() {
		t.Fatalf("expected the mantle to be in progress")
	}
	clock := a.Mantle().Clock()
	if !clock.Playing() || clock.Position <= 0 {
		t.Fatalf("expected the mantle clock to run, got %+v", clock)
	}

	a.Tick(dt, Input{RagdollToggle: true})
	if a.Component().Mode() != movement.ModeRagdoll || !a.Ragdoll().Active() {
		t.Fatalf("expected the agent to be a ragdoll, got %v", a.Component().Mode())
	}
	clock = a.Mantle().Clock()
	if a.Mantle().Active() || clock.Playing() {
		t.Fatalf("expected the ragdoll to stop the mantle clock")
	}

	// Holding the toggle does nothing, releasing and pressing it again ends the ragdoll.
	a.Tick(dt, Input{RagdollToggle: true})
	if !a.Ragdoll().Active() {
		t.Fatalf("expected the ragdoll to stay active while the toggle is held")
	}
	for range 30 {
		a.Tick(dt, Input{})
	}
	a.Tick(dt, Input{RagdollToggle: true})
	if a.Ragdoll().Active() {
		t.Fatalf("expected pressing the toggle again to end the ragdoll")
	}
	if len(l.poses) != 1 || !l.poses[0] {
		t.Fatalf("expected one grounded ragdoll pose, got %v", l.poses)
	}
	if len(l.montages) != 1 || (l.montages[0] != GetUpBackMontage && l.montages[0] != GetUpFrontMontage) {
		t.Fatalf("expected a get up montage, got %v", l.montages)
	}
}

func TestListenerReceivesLanding(t *testing.T) {
	a, l := newAgent(t, flatWorld(), WithTransform(mgl64.Vec3{0, 0, 300}, mgl64.QuatIdent()), WithMode(movement.ModeFalling), WithEventBuffer(64))
	for i := 0; a.Component().Mode() != movement.ModeWalking; i++ {
		if i > 100 {
			t.Fatalf("expected the agent to land")
		}
		a.Tick(dt, Input{})
	}
	if l.landed != 1 {
		t.Fatalf("expected one landing, got %d", l.landed)
	}
	if last := l.changes[len(l.changes)-1]; last != [2]movement.Mode{movement.ModeFalling, movement.ModeWalking} {
		t.Fatalf("expected the last mode change to be falling to walking, got %v", last)
	}

	var landed, changed bool
	for len(a.Events()) > 0 {
		switch e := (<-a.Events()).(type) {
		case LandedEvent:
			landed = e.Tick() > 0
		case ModeChangeEvent:
			changed = changed || e.Current == movement.ModeWalking
		}
	}
	if !landed || !changed {
		t.Fatalf("expected landing and mode change events, got landed %v changed %v", landed, changed)
	}
	if a.DroppedEvents() != 0 {
		t.Fatalf("expected no dropped events, got %d", a.DroppedEvents())
	}
}

func TestFullEventBufferDropsEvents(t *testing.T) {
	a, _ := newAgent(t, flatWorld(), WithTransform(mgl64.Vec3{0, 0, 300}, mgl64.QuatIdent()), WithMode(movement.ModeFalling), WithEventBuffer(1))
	for i := 0; a.Component().Mode() != movement.ModeWalking; i++ {
		if i > 100 {
			t.Fatalf("expected the agent to land")
		}
		a.Tick(dt, Input{})
	}
	if a.DroppedEvents() == 0 {
		t.Fatalf("expected events to be dropped instead of blocking the tick")
	}
}

func TestEventsAreIdempotent(t *testing.T) {
	a, l := newAgent(t, flatWorld())
	a.hooks.HandleEvent(network.Event{Type: network.EventStartRagdoll})
	a.hooks.HandleEvent(network.Event{Type: network.EventStartRagdoll})
	if !a.Ragdoll().Active() || a.Component().Mode() != movement.ModeRagdoll {
		t.Fatalf("expected the event to start the ragdoll")
	}
	a.Tick(dt, Input{})

	a.hooks.HandleEvent(network.Event{Type: network.EventEndRagdoll})
	a.hooks.HandleEvent(network.Event{Type: network.EventEndRagdoll})
	if a.Ragdoll().Active() {
		t.Fatalf("expected the event to end the ragdoll")
	}
	if len(l.poses) != 1 {
		t.Fatalf("expected the ragdoll to end once, got %d", len(l.poses))
	}

	a.hooks.HandleEvent(network.Event{Type: network.EventPlayMontage, Montage: "Wave", PlayRate: 1})
	if n := len(l.montages); n == 0 || l.montages[n-1] != "Wave" {
		t.Fatalf("expected the montage to be played, got %v", l.montages)
	}
}

func TestMantleEventFollowsLedge(t *testing.T) {
	w := wallWorld()
	a, l := newAgent(t, w)
	e := network.Event{
		Type:         network.EventStartMantle,
		MantleType:   mantle.TypeLowMantle,
		MantleHeight: 80,
		LedgeID:      "wall",
		Location:     mgl64.Vec3{75, 0, 80 + 90},
		Rotation:     mgl64.QuatIdent(),
	}
	a.hooks.HandleEvent(e)
	a.hooks.HandleEvent(e)
	if !a.Mantle().Active() || len(l.mantles) != 1 {
		t.Fatalf("expected one mantle to start, got %d", len(l.mantles))
	}
	if ledge := a.Mantle().Params().Ledge.Component; ledge == nil || ledge.ID() != "wall" {
		t.Fatalf("expected the mantle to follow the wall, got %v", ledge)
	}
}

func TestSprintChangesWalkSpeed(t *testing.T) {
	a, _ := newAgent(t, flatWorld())
	res := a.Tick(dt, Input{Move: forward, Sprint: true})
	if !res.SettingsChanged {
		t.Fatalf("expected sprinting to change the walk speed")
	}
	if want := settings.DefaultSettings().Locomotion.VelocityDirection.SprintSpeed; a.Component().Config().MaxWalkSpeed != want {
		t.Fatalf("expected a walk speed of %v, got %v", want, a.Component().Config().MaxWalkSpeed)
	}
	if res = a.Tick(dt, Input{Move: forward, Sprint: true}); res.SettingsChanged {
		t.Fatalf("expected holding sprint to change nothing")
	}
	a.Tick(dt, Input{Move: forward})
	if want := settings.DefaultSettings().Locomotion.VelocityDirection.RunSpeed; a.Component().Config().MaxWalkSpeed != want {
		t.Fatalf("expected the walk speed to be restored to %v, got %v", want, a.Component().Config().MaxWalkSpeed)
	}
}

func TestAnimationState(t *testing.T) {
	a, _ := newAgent(t, flatWorld())
	for range 10 {
		a.Tick(dt, Input{Move: forward})
	}
	st := a.Animation()
	if st.Mode != movement.ModeWalking || !st.HasMovementInput || st.Speed <= 0 {
		t.Fatalf("expected a walking animation state with input, got %+v", st)
	}
	if st.Acceleration.X() <= 0 {
		t.Fatalf("expected forward acceleration, got %v", st.Acceleration)
	}

	if st.Gait != GaitRunning {
		t.Fatalf("expected a running gait, got %v", st.Gait)
	}

	a.Tick(0.1, Input{Aim: mgl64.Vec3{0, 1, 0}})
	if math.Abs(a.Animation().AimYawRate-900) > 1 {
		t.Fatalf("expected aiming 90 degrees away in 0.1s to be 900 degrees per second, got %v", a.Animation().AimYawRate)
	}
	if a.Animation().HasMovementInput {
		t.Fatalf("expected no movement input")
	}
}

func TestTickRecoversPanics(t *testing.T) {
	a, _ := newAgent(t, flatWorld(), WithListener(panickingListener{}))
	a.Tick(dt, Input{Jump: true})
	if a.Component().Mode() != movement.ModeFalling {
		t.Fatalf("expected the jump to have happened before the panic, got %v", a.Component().Mode())
	}

	a, _ = newAgent(t, flatWorld(), WithListener(panickingListener{}), WithRepanic())
	defer func() {
		if recover() == nil {
			t.Fatalf("expected the panic to be raised again")
		}
	}()
	a.Tick(dt, Input{Jump: true})
}

func TestProxyFollowsReplicatedActions(t *testing.T) {
	w := wallWorld()
	at, pt := network.Pipe(64)
	auth, _ := newAgent(t, w, WithTransport(at))
	proxy, l := newAgent(t, w, WithTransport(pt), WithRole(movement.RoleSimulatedProxy))

	auth.Tick(dt, Input{Move: forward, Jump: true})
	proxy.Tick(dt, Input{})
	if !proxy.Mantle().Active() || len(l.mantles) != 1 {
		t.Fatalf("expected the proxy to mantle with its authority")
	}
	if ledge := proxy.Mantle().Params().Ledge.Component; ledge == nil || ledge.ID() != "wall" {
		t.Fatalf("expected the replicated mantle to follow the wall, got %v", ledge)
	}

	if !auth.StartRagdoll() {
		t.Fatalf("expected the authority to start a ragdoll")
	}
	if proxy.StartRagdoll() {
		t.Fatalf("expected a simulated proxy to refuse starting a ragdoll itself")
	}
	auth.Tick(dt, Input{})
	proxy.Tick(dt, Input{})
	if !proxy.Ragdoll().Active() || proxy.Mantle().Active() {
		t.Fatalf("expected the proxy ragdoll to replace its mantle")
	}

	for range 20 {
		auth.Tick(dt, Input{})
		proxy.Tick(dt, Input{})
	}
	auth.EndRagdoll()
	auth.Tick(dt, Input{})
	proxy.Tick(dt, Input{})
	if proxy.Ragdoll().Active() {
		t.Fatalf("expected the proxy ragdoll to end with its authority")
	}
	if proxy.Reconciler().Stats().Received == 0 {
		t.Fatalf("expected the proxy to receive frames")
	}
}
