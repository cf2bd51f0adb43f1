package ragdoll

import (
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/omath"
)

// Blender hands an agent over to its physics body and back. While the agent is in
// movement.ModeRagdoll the capsule has no collision and follows the pelvis of the body. The
// blender registers itself as the driver of that mode.
type Blender struct {
	movement.NopObserver

	c    *movement.Component
	body PhysicsBody
	cfg  Config
	log  *slog.Logger
	h    Handler

	active bool

	lastVelocity   mgl64.Vec3
	stunTimer      float64
	spring         float64
	gravityEnabled bool

	target   mgl64.Vec3
	pull     float64
	onGround bool
	faceUp   bool
}

// New returns a blender moving c with body. A nil logger uses slog.Default.
func New(c *movement.Component, body PhysicsBody, cfg Config, log *slog.Logger) *Blender {
	if log == nil {
		log = slog.Default()
	}
	b := &Blender{c: c, body: body, cfg: cfg, log: log, h: NopHandler{}, stunTimer: cfg.MaxStunTimerValue}
	c.RegisterDriver(movement.ModeRagdoll, b)
	c.AddObserver(b)
	return b
}

// Handle sets the handler receiving animation requests. A nil handler resets it.
func (b *Blender) Handle(h Handler) {
	if h == nil {
		h = NopHandler{}
	}
	b.h = h
}

// Active reports whether the agent is a ragdoll.
func (b *Blender) Active() bool {
	return b.active
}

// Velocity returns the last sampled velocity of the body.
func (b *Blender) Velocity() mgl64.Vec3 {
	return b.lastVelocity
}

// Target returns the location the capsule follows.
func (b *Blender) Target() mgl64.Vec3 {
	return b.target
}

// SetTarget sets the location a replica pulls its body towards. Instances that simulate the
// body themselves overwrite it every tick.
func (b *Blender) SetTarget(target mgl64.Vec3) {
	b.target = target
}

// OnGround reports whether the ragdoll rested on the ground during the last tick.
func (b *Blender) OnGround() bool {
	return b.onGround
}

// FaceUp reports whether the ragdoll lies on its back.
func (b *Blender) FaceUp() bool {
	return b.faceUp
}

// Stiffness returns the joint motor spring applied during the last tick.
func (b *Blender) Stiffness() float64 {
	return b.spring
}

// StunScalar returns how far the joint stiffness recovered since the last impact, from 0 right
// after an impact to 1.
func (b *Blender) StunScalar() float64 {
	return omath.ClampFloat(b.stunTimer/b.cfg.MaxStunTimerValue, 0, 1)
}

// GravityEnabled reports whether gravity was applied to the body during the last tick.
func (b *Blender) GravityEnabled() bool {
	return b.gravityEnabled
}

// Start turns the agent into a ragdoll. Starting an active ragdoll is a no-op and returns false.
func (b *Blender) Start() bool {
	if b.active {
		return false
	}
	b.active = true
	b.target = b.body.BoneLocation(BonePelvis)
	b.lastVelocity = b.body.LinearVelocity(BoneRoot)
	b.pull = 0

	b.c.SetMode(movement.ModeRagdoll)
	b.c.SetCollisionEnabled(false)
	b.body.SetSimulatePhysics(BonePelvis, true)
	b.body.SetGravityEnabled(false)
	b.h.HandleStart()

	b.log.Debug("ragdoll started", "location", b.target)
	return true
}

// End hands the agent back to the movement component. A grounded ragdoll gets up and walks,
// anything else falls with the last velocity of the body. Ending an inactive ragdoll is a no-op
// and returns false.
func (b *Blender) End() bool {
	if !b.active {
		return false
	}
	velocity := b.lastVelocity
	b.release()
	if b.onGround {
		b.c.SetVelocity(mgl64.Vec3{})
		b.c.SetMode(movement.ModeWalking)
	} else {
		b.c.SetMode(movement.ModeFalling)
		b.c.SetVelocity(velocity)
	}
	b.log.Debug("ragdoll ended", "grounded", b.onGround, "face_up", b.faceUp)
	return true
}

// release saves the pose and stops simulating the body.
func (b *Blender) release() {
	b.active = false
	b.body.SnapshotPose(PoseName)
	b.c.SetCollisionEnabled(true)
	b.body.SetSimulatePhysics(BonePelvis, false)
	b.h.HandleEnd(PoseName, b.onGround, b.faceUp)
}

// Tick samples the body and moves the capsule after it.
func (b *Blender) Tick(dt float64) {
	if !b.active || dt <= 0 {
		return
	}
	c, cfg := b.c, b.cfg
	if s, ok := b.body.(Stepper); ok {
		s.Step(dt)
	}

	velocity := b.body.LinearVelocity(BoneRoot)
	if omath.IsZero(velocity) && c.Role() == movement.RoleSimulatedProxy {
		// Replica bodies report no velocity between updates, so the last one decays instead.
		velocity = b.lastVelocity.Mul(0.5)
	}
	if math.Abs(b.lastVelocity.Len()-velocity.Len()) > cfg.ImpactVelocityDelta {
		b.stunTimer = 0
		c.Debugger().Notify(movement.DebugModeRagdoll, true, "ragdoll impact: speed %.1f -> %.1f", b.lastVelocity.Len(), velocity.Len())
	}

	// Faster ragdolls hold their pose better, recently stunned ones go limp.
	b.spring = omath.MapRangeClamped(velocity.Len(), 0, cfg.SpringSpeed, 0, cfg.MaxSpring) * b.StunScalar()
	b.body.SetMotorDrive(b.spring)
	b.stunTimer = min(b.stunTimer+dt, cfg.MaxStunTimerValue)

	// Gravity stops at terminal speed so the body cannot tunnel through the floor.
	gravDir := c.GravityDirection()
	b.gravityEnabled = !omath.IsZero(gravDir) && velocity.Dot(gravDir) < cfg.TerminalSpeed
	if b.gravityEnabled {
		b.body.AddForce(BoneRoot, c.Gravity(), true)
	}
	b.lastVelocity = velocity
	c.SetVelocity(velocity)

	b.followBody(dt)
}

// followBody places the capsule at the pelvis, resting on the ground if there is any below.
func (b *Blender) followBody(dt float64) {
	c, cfg := b.c, b.cfg
	replica := c.Role() == movement.RoleSimulatedProxy
	if !replica {
		b.target = b.body.BoneLocation(BonePelvis)
	}

	down := c.GravityDirection()
	up := down.Mul(-1)
	if omath.IsZero(down) {
		up = c.CapsuleUp()
	}

	pelvis := b.body.BoneRotation(BonePelvis)
	b.faceUp = omath.ForwardOf(pelvis).Dot(up) > 0
	heading := omath.SafeNormal(omath.PlaneProject(omath.UpOf(pelvis), up))
	if omath.IsZero(heading) {
		heading = omath.SafeNormal(omath.PlaneProject(omath.ForwardOf(pelvis), up))
	} else if b.faceUp {
		heading = heading.Mul(-1)
	}
	if omath.IsZero(heading) {
		heading = omath.SafeNormal(omath.PlaneProject(omath.ForwardOf(c.Rotation()), up))
	}

	location := b.target
	b.onGround = false
	if !omath.IsZero(down) {
		halfHeight := c.Config().CapsuleHalfHeight
		q := collision.Adapter{Query: c.Collision().Query, Filter: collision.Filter{
			Channel: collision.ChannelVisibility,
			Ignore:  c.Collision().Filter.Ignore,
		}}
		hit := q.LineTrace(b.target, b.target.Add(down.Mul(halfHeight)))
		if b.onGround = hit.IsValidBlockingHit(); b.onGround {
			impactDist := math.Abs(hit.ImpactPoint.Sub(b.target).Dot(down))
			location = location.Add(up.Mul(halfHeight - impactDist + cfg.GroundOffset))
		}
	}

	if replica {
		// Replicas drag their own body towards the replicated pelvis to hide jitter.
		b.pull = omath.FInterpTo(b.pull, cfg.MaxPull, dt, cfg.PullInterpRate)
		bone := BonePelvis
		if omath.PlaneProject(b.lastVelocity, up).Len() > cfg.SpinePullSpeed {
			bone = BoneSpine
		}
		b.body.AddForce(bone, b.target.Sub(b.body.BoneLocation(bone)).Mul(b.pull), true)
	}

	c.SetLocation(location)
	if !omath.IsZero(heading) {
		c.SetRotation(omath.QuatFromXZ(heading, up))
	}
}

// Phys ...
func (b *Blender) Phys(_ *movement.Component, dt float64) {
	b.Tick(dt)
}

// HandleModeChange releases the body when another mode takes over the capsule.
func (b *Blender) HandleModeChange(_ *movement.Component, previous, current movement.Mode) {
	if b.active && previous == movement.ModeRagdoll && current != movement.ModeRagdoll {
		b.release()
	}
}
