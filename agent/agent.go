package agent

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/getsentry/sentry-go"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/mantle"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/network"
	"github.com/oomph-ac/locomotion/oerror"
	"github.com/oomph-ac/locomotion/omath"
	"github.com/oomph-ac/locomotion/ragdoll"
	"github.com/oomph-ac/locomotion/settings"
)

const (
	GetUpFrontMontage = "GetUp_Front"
	GetUpBackMontage  = "GetUp_Back"
)

// ComponentFinder is implemented by collision queries that can look up their bodies by ID, such
// as world.World. Agents need it to follow a replicated mantle onto a moving ledge.
type ComponentFinder interface {
	Component(id string) (collision.Component, bool)
}

// Input is the player or AI input of one tick.
type Input struct {
	// Move is the desired movement direction. Its length is the analog input strength.
	Move mgl64.Vec3
	// Jump is held while the jump button is down. Pressing it tries to mantle before jumping.
	Jump   bool
	Crouch bool
	// Walk and Sprint pick the gait. Agents run if neither is held.
	Walk   bool
	Sprint bool
	// Aim is the direction the agent looks in. Agents without one look along their capsule.
	Aim mgl64.Vec3
	// Aiming turns the capsule toward Aim and slows the agent down.
	Aiming bool
	// RagdollToggle starts or ends the ragdoll when pressed.
	RagdollToggle bool
}

// AnimationState is what an animation system needs from an agent after a tick.
type AnimationState struct {
	Mode movement.Mode
	// Speed is the velocity along the walking plane of the capsule.
	Speed float64
	// Acceleration is the change in velocity over the tick.
	Acceleration     mgl64.Vec3
	HasMovementInput bool
	// AimYawRate is how fast the aim direction turned around the capsule up axis, in degrees per
	// second.
	AimYawRate float64
	Gait       Gait
}

// Agent is a capsule character: a movement component together with the controllers that take it
// over while mantling or as a ragdoll, replicated to its other instances by a network.Reconciler.
// An Agent is not safe for concurrent use, except for Handle and the event channel.
type Agent struct {
	id   string
	log  *slog.Logger
	role movement.Role
	s    settings.Settings
	q    collision.Query

	c       *movement.Component
	mantle  *mantle.Controller
	ragdoll *ragdoll.Blender
	net     *network.Reconciler
	hooks   *hooks

	lMu sync.RWMutex
	l   Listener

	events  chan Event
	dropped atomic.Uint64
	repanic bool

	ticks        uint64
	input        Input
	anim         AnimationState
	lastVelocity mgl64.Vec3

	gait      Gait
	gaitSpeed float64

	aim           mgl64.Vec3
	aimYawRate    float64
	targetForward mgl64.Vec3
	airForward    mgl64.Vec3

	landing      *landing
	frictionLeft float64
}

// Option configures an Agent.
type Option func(o *options)

type options struct {
	log       *slog.Logger
	role      movement.Role
	debugger  *movement.Debugger
	transport network.Transport
	recorder  *network.Recorder
	body      ragdoll.PhysicsBody
	listener  Listener

	location mgl64.Vec3
	rotation mgl64.Quat
	mode     movement.Mode

	eventBuffer int
	repanic     bool
}

// WithLogger ...
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithRole sets the network role of the agent. Agents are authorities by default.
func WithRole(role movement.Role) Option {
	return func(o *options) {
		o.role = role
	}
}

// WithDebugger overrides the debugger built from the debug modes of the settings.
func WithDebugger(d *movement.Debugger) Option {
	return func(o *options) {
		o.debugger = d
	}
}

// WithTransport connects the agent to its other instances over t.
func WithTransport(t network.Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// WithRecorder records every network frame the agent sends or accepts.
func WithRecorder(rec *network.Recorder) Option {
	return func(o *options) {
		o.recorder = rec
	}
}

// WithBody sets the physics body simulating the ragdoll. Agents without one use a
// ragdoll.PointBody.
func WithBody(body ragdoll.PhysicsBody) Option {
	return func(o *options) {
		o.body = body
	}
}

// WithListener ...
func WithListener(l Listener) Option {
	return func(o *options) {
		o.listener = l
	}
}

// WithTransform places the agent.
func WithTransform(location mgl64.Vec3, rotation mgl64.Quat) Option {
	return func(o *options) {
		o.location, o.rotation = location, rotation
	}
}

// WithMode sets the mode the agent starts in. Agents start walking by default.
func WithMode(mode movement.Mode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// WithEventBuffer makes the agent send its events on a channel with room for n events.
func WithEventBuffer(n int) Option {
	return func(o *options) {
		o.eventBuffer = n
	}
}

// WithRepanic makes Tick panic again after reporting a panic instead of recovering from it.
func WithRepanic() Option {
	return func(o *options) {
		o.repanic = true
	}
}

// New returns an agent moving through q. The settings must be valid.
func New(id string, s settings.Settings, q collision.Query, opts ...Option) *Agent {
	o := options{log: slog.Default(), rotation: mgl64.QuatIdent(), mode: movement.ModeWalking, listener: NopListener{}}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log.With("agent", id, "role", o.role.String())
	a := &Agent{
		id:      id,
		log:     log,
		role:    o.role,
		s:       s,
		q:       q,
		l:       o.listener,
		repanic: o.repanic,
	}
	if a.l == nil {
		a.l = NopListener{}
	}
	if o.eventBuffer > 0 {
		a.events = make(chan Event, o.eventBuffer)
	}
	a.hooks = &hooks{a: a}

	debugger := o.debugger
	if debugger == nil {
		if modes, _ := s.DebugModes(); modes != 0 {
			debugger = movement.NewDebugger(log, modes)
		}
	}
	copts := []movement.Option{movement.WithTransform(o.location, o.rotation), movement.WithObserver(a.hooks)}
	if debugger != nil {
		copts = append(copts, movement.WithDebugger(debugger))
	}
	a.c = movement.New(s.Movement, q, copts...)
	a.mantle = mantle.New(a.c, s.Mantle, log)

	body := o.body
	if body == nil {
		body = ragdoll.NewPointBody(a.c)
	}
	a.ragdoll = ragdoll.New(a.c, body, s.Ragdoll, log)
	a.ragdoll.Handle(a.hooks)

	a.net = network.New(a.c, o.transport, o.role, s.Network,
		network.WithLogger(log),
		network.WithRecorder(o.recorder),
		network.WithEventHandler(a.hooks),
		network.WithRagdollTarget(a.ragdoll),
	)
	a.c.SetMode(o.mode)
	a.lastVelocity, a.gaitSpeed, a.gait = a.c.Velocity(), s.Movement.MaxWalkSpeed, GaitRunning
	a.aim, a.targetForward, a.airForward = a.forward(), a.forward(), a.forward()
	return a
}

// ID ...
func (a *Agent) ID() string {
	return a.id
}

// Role ...
func (a *Agent) Role() movement.Role {
	return a.role
}

// Settings returns the settings the agent was created with, including movement settings applied
// later with SetSettings.
func (a *Agent) Settings() settings.Settings {
	return a.s
}

// SetSettings validates s and applies its movement and locomotion settings to the agent. The other
// sections only apply to agents created afterwards.
func (a *Agent) SetSettings(s settings.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	a.s.Movement, a.s.Locomotion = s.Movement, s.Locomotion
	a.c.SetConfig(s.Movement)
	a.gaitSpeed, a.frictionLeft = s.Movement.MaxWalkSpeed, 0
	return nil
}

// Component returns the movement component of the agent.
func (a *Agent) Component() *movement.Component {
	return a.c
}

// Mantle ...
func (a *Agent) Mantle() *mantle.Controller {
	return a.mantle
}

// Ragdoll ...
func (a *Agent) Ragdoll() *ragdoll.Blender {
	return a.ragdoll
}

// Reconciler ...
func (a *Agent) Reconciler() *network.Reconciler {
	return a.net
}

// Animation returns the animation state of the last tick.
func (a *Agent) Animation() AnimationState {
	return a.anim
}

// VisualLocation returns the location the agent should be drawn at.
func (a *Agent) VisualLocation() mgl64.Vec3 {
	return a.net.VisualLocation()
}

// Report returns the diagnostics of the movement component followed by the network report.
func (a *Agent) Report() *orderedmap.OrderedMap[string, any] {
	report := a.c.Diagnostics().Report()
	stats := a.net.Report()
	for _, key := range stats.Keys() {
		v, _ := stats.Get(key)
		report.Set("net_"+key, v)
	}
	report.Set("dropped_events", a.dropped.Load())
	return report
}

// Tick applies in and advances the agent by dt seconds. A panic during the tick is reported to
// sentry and logged; the agent keeps the state it had when the panic happened.
func (a *Agent) Tick(dt float64, in Input) (res movement.TickResult) {
	defer a.recoverPanic()
	return a.tick(dt, in)
}

func (a *Agent) tick(dt float64, in Input) movement.TickResult {
	a.ticks++
	in.Move, _ = omath.ZeroNonFinite(in.Move)
	in.Aim, _ = omath.ZeroNonFinite(in.Aim)
	prev := a.input
	a.input = in
	a.updateAim(dt, in.Aim)

	jump := in.Jump
	if a.role.RunsPhysics() {
		if in.RagdollToggle && !prev.RagdollToggle {
			a.ToggleRagdoll()
		}
		a.restoreFriction(dt)
		if a.c.Mode() == movement.ModeWalking {
			a.updateGait(in)
		}
		if in.Jump && !prev.Jump && a.tryMantle(in.Move) {
			jump = false
		}
	}

	res := a.net.Tick(dt, network.Input{Acceleration: in.Move, Jump: jump, Crouch: in.Crouch})
	if res.Jumped {
		if velocity := a.c.Frame().Planar(res.Velocity); velocity.Len() > 100 {
			a.airForward = omath.SafeNormal(velocity)
		} else {
			a.airForward = a.forward()
		}
		a.listener().HandleJumped(a)
		a.emit(JumpedEvent{tick: tick(a.ticks)})
	}
	if a.role.RunsPhysics() {
		a.react()
		a.rotate(dt)
	}
	a.anim = a.animate(dt, res)
	return res
}

// tryMantle looks for a ledge in the direction of move and mantles onto it.
func (a *Agent) tryMantle(move mgl64.Vec3) bool {
	if mode := a.c.Mode(); mode != movement.ModeWalking && mode != movement.ModeFalling {
		return false
	}
	p, ok := a.mantle.Check(a.mantle.TraceSettings(), move)
	if !ok {
		return false
	}
	e := network.Event{
		Type:         network.EventStartMantle,
		MantleType:   p.Type,
		MantleHeight: p.Height,
		Location:     p.Ledge.Transform.Location,
		Rotation:     p.Ledge.Transform.Rotation,
	}
	if p.Ledge.Component != nil {
		e.LedgeID = p.Ledge.Component.ID()
	}
	a.net.SendEvent(e)
	a.mantleStarted(p)
	return true
}

func (a *Agent) mantleStarted(p mantle.Params) {
	a.listener().HandleMantleStart(a, p)
	a.emit(MantleStartEvent{tick: tick(a.ticks), Params: p})
}

// ToggleRagdoll ends an active ragdoll or starts a new one.
func (a *Agent) ToggleRagdoll() bool {
	if a.ragdoll.Active() {
		return a.EndRagdoll()
	}
	return a.StartRagdoll()
}

// StartRagdoll turns the agent into a ragdoll, cancelling a mantle in progress. Simulated proxies
// only follow their authority and cannot start a ragdoll themselves.
func (a *Agent) StartRagdoll() bool {
	if !a.role.RunsPhysics() || !a.ragdoll.Start() {
		return false
	}
	a.net.SendEvent(network.Event{Type: network.EventStartRagdoll})
	return true
}

// EndRagdoll hands the agent back to the movement component.
func (a *Agent) EndRagdoll() bool {
	if !a.role.RunsPhysics() || !a.ragdoll.End() {
		return false
	}
	a.net.SendEvent(network.Event{Type: network.EventEndRagdoll, Location: a.c.Location()})
	return true
}

// PlayMontage asks every instance of the agent to play montage.
func (a *Agent) PlayMontage(montage string, playRate float64) {
	if a.role.RunsPhysics() {
		a.net.SendEvent(network.Event{Type: network.EventPlayMontage, Montage: montage, PlayRate: playRate})
	}
	a.montage(montage, playRate)
}

func (a *Agent) montage(montage string, playRate float64) {
	a.listener().HandleMontage(a, montage, playRate)
	a.emit(MontageEvent{tick: tick(a.ticks), Montage: montage, PlayRate: playRate})
}

// forward returns the facing of the capsule along its walking plane.
func (a *Agent) forward() mgl64.Vec3 {
	up := a.c.CapsuleUp()
	return omath.SafeNormal(omath.PlaneProject(omath.ForwardOf(a.c.Rotation()), up))
}

func (a *Agent) animate(dt float64, res movement.TickResult) AnimationState {
	st := AnimationState{
		Mode:             res.Mode,
		Speed:            omath.PlaneProject(res.Velocity, a.c.CapsuleUp()).Len(),
		HasMovementInput: !omath.IsZero(a.c.Acceleration()),
		AimYawRate:       a.aimYawRate,
		Gait:             a.gait,
	}
	if dt > 0 {
		st.Acceleration = res.Velocity.Sub(a.lastVelocity).Mul(1 / dt)
	}
	a.lastVelocity = res.Velocity
	return st
}

// recoverPanic reports a panic of the current tick to sentry with the state of the agent.
func (a *Agent) recoverPanic() {
	r := recover()
	if r == nil {
		return
	}
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("agent", a.id)
		scope.SetTag("role", a.role.String())
		scope.SetTag("mode", a.c.Mode().String())
		scope.SetExtra("location", fmt.Sprint(a.c.Location()))
		scope.SetExtra("diagnostics", movement.ReportString(a.Report()))
	})
	hub.Recover(oerror.New("agent tick panicked: %v", r))
	hub.Flush(5 * time.Second)

	a.log.Error("agent tick panicked", "err", r, "mode", a.c.Mode().String())
	if a.repanic {
		panic(r)
	}
}
