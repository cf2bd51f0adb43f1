package ragdoll

import "github.com/go-gl/mathgl/mgl64"

const (
	BoneRoot   = "root"
	BonePelvis = "pelvis"
	BoneSpine  = "spine_03"

	// PoseName is the name the ragdoll pose is saved under when the ragdoll ends.
	PoseName = "RagdollPose"
)

// PhysicsBody is the simulated skeleton of an agent. The blender only drives it; solving the
// bodies and joints is up to the implementation.
type PhysicsBody interface {
	// SetSimulatePhysics toggles simulation of root and every bone below it.
	SetSimulatePhysics(root string, on bool)
	// SetGravityEnabled toggles the built-in gravity of the body. The blender keeps it off and
	// applies gravity itself so any gravity direction works.
	SetGravityEnabled(on bool)
	LinearVelocity(bone string) mgl64.Vec3
	BoneLocation(bone string) mgl64.Vec3
	// BoneRotation returns the world rotation of bone. The pelvis X axis points out of the belly
	// and its Z axis up the spine.
	BoneRotation(bone string) mgl64.Quat
	// SetMotorDrive sets the spring strength of every joint motor.
	SetMotorDrive(spring float64)
	// AddForce adds force to bone. With accelChange set the force is an acceleration and ignores
	// the mass of the bone.
	AddForce(bone string, force mgl64.Vec3, accelChange bool)
	// SnapshotPose saves the current pose under name for blending out of the ragdoll.
	SnapshotPose(name string)
}

// Handler receives the animation requests of a Blender. Calls happen on the goroutine ticking
// the agent.
type Handler interface {
	// HandleStart is called when the ragdoll starts. Active animations should stop.
	HandleStart()
	// HandleEnd is called once the ragdoll ended and the pose was saved under pose. A grounded
	// ragdoll plays a get up animation matching faceUp.
	HandleEnd(pose string, grounded, faceUp bool)
}

// NopHandler implements Handler with no-op methods.
type NopHandler struct{}

// Compile time check to make sure NopHandler implements Handler.
var _ Handler = NopHandler{}

func (NopHandler) HandleStart()                {}
func (NopHandler) HandleEnd(string, bool, bool) {}
