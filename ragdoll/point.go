package ragdoll

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/omath"
)

// Stepper is implemented by bodies that are not simulated by an external physics scene. The
// Blender steps them at the start of every tick.
type Stepper interface {
	Step(dt float64)
}

const (
	pointRadius   = 20
	spineOffset   = 30
	pointFriction = 4
)

// PointBody is a PhysicsBody simulating the whole skeleton as a single sphere. Until it is
// simulated it follows the capsule of the agent, so a ragdoll starts where the agent stands.
type PointBody struct {
	c *movement.Component

	simulating bool
	gravity    bool
	spring     float64
	pose       string

	location mgl64.Vec3
	velocity mgl64.Vec3
	rotation mgl64.Quat
	accel    mgl64.Vec3
}

// Compile time check to make sure PointBody implements PhysicsBody.
var _ PhysicsBody = (*PointBody)(nil)

// NewPointBody returns a body for the agent moved by c.
func NewPointBody(c *movement.Component) *PointBody {
	return &PointBody{c: c, gravity: true, rotation: mgl64.QuatIdent()}
}

// Pose returns the name of the last saved pose.
func (b *PointBody) Pose() string {
	return b.pose
}

// Simulating reports whether the body moves on its own.
func (b *PointBody) Simulating() bool {
	return b.simulating
}

func (b *PointBody) SetSimulatePhysics(_ string, on bool) {
	if on && !b.simulating {
		b.location, b.velocity, b.rotation = b.c.Location(), b.c.Velocity(), b.c.Rotation()
	}
	b.simulating = on
	b.accel = mgl64.Vec3{}
}

func (b *PointBody) SetGravityEnabled(on bool)    { b.gravity = on }
func (b *PointBody) SetMotorDrive(spring float64) { b.spring = spring }
func (b *PointBody) SnapshotPose(name string)     { b.pose = name }

func (b *PointBody) LinearVelocity(string) mgl64.Vec3 {
	if !b.simulating {
		return b.c.Velocity()
	}
	return b.velocity
}

func (b *PointBody) BoneLocation(bone string) mgl64.Vec3 {
	location, rotation := b.location, b.rotation
	if !b.simulating {
		location, rotation = b.c.Location(), b.c.Rotation()
	}
	if bone == BoneSpine {
		return location.Add(omath.UpOf(rotation).Mul(spineOffset))
	}
	return location
}

func (b *PointBody) BoneRotation(string) mgl64.Quat {
	if !b.simulating {
		return b.c.Rotation()
	}
	return b.rotation
}

func (b *PointBody) AddForce(_ string, force mgl64.Vec3, _ bool) {
	// The body has unit mass, so forces and accelerations are the same.
	b.accel = b.accel.Add(force)
}

// Step integrates the forces added since the last step and moves the sphere through the world.
// Blocking surfaces remove the velocity into them and apply friction along them.
func (b *PointBody) Step(dt float64) {
	if !b.simulating || dt <= 0 {
		b.accel = mgl64.Vec3{}
		return
	}
	b.velocity = b.velocity.Add(b.accel.Mul(dt))
	b.accel = mgl64.Vec3{}

	q := b.c.Collision()
	shape := collision.Sphere(pointRadius)
	remaining := b.velocity.Mul(dt)
	for range 3 {
		if omath.IsNearlyZero(remaining, omath.KindaSmallNumber) {
			break
		}
		location, hit := q.Move(shape, b.location, remaining)
		if hit.StartPenetrating {
			b.location = b.location.Add(collision.PenetrationAdjustment(hit, b.c.Config().MaxDepenetrationWithGeometry))
			continue
		}
		b.location = location
		if !hit.Blocking {
			break
		}
		remaining = omath.PlaneProject(remaining.Mul(1-hit.Time), hit.Normal)
		b.velocity = omath.PlaneProject(b.velocity, hit.Normal).Mul(max(0, 1-pointFriction*dt))
	}
}
