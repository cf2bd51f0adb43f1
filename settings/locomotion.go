package settings

import (
	"github.com/oomph-ac/locomotion/mantle"
	"github.com/oomph-ac/locomotion/oerror"
)

// GaitSpeeds are the walking speed limits of each gait together with the rate the capsule turns
// at while grounded.
type GaitSpeeds struct {
	WalkSpeed   float64 `yaml:"walk_speed"`
	RunSpeed    float64 `yaml:"run_speed"`
	SprintSpeed float64 `yaml:"sprint_speed"`
	// RotationRate is sampled with the speed mapped to [0, 3]: stopped, walking, running and
	// sprinting.
	RotationRate mantle.FloatCurve `yaml:"rotation_rate"`
}

// Locomotion tunes the gaits, the capsule rotation and the landing reactions of an agent.
type Locomotion struct {
	// RotationMode is velocity_direction or looking_direction. Agents aim while Input.Aiming is
	// held regardless.
	RotationMode string `yaml:"rotation_mode"`

	VelocityDirection GaitSpeeds `yaml:"velocity_direction"`
	LookingDirection  GaitSpeeds `yaml:"looking_direction"`
	Aiming            GaitSpeeds `yaml:"aiming"`

	RagdollOnLand           bool    `yaml:"ragdoll_on_land"`
	RagdollOnLandVelocity   float64 `yaml:"ragdoll_on_land_velocity"`
	BreakfallOnLand         bool    `yaml:"breakfall_on_land"`
	BreakfallOnLandVelocity float64 `yaml:"breakfall_on_land_velocity"`

	// Soft landings brake with these friction factors for LandingFrictionTime seconds.
	LandingFrictionWithInput    float64 `yaml:"landing_friction_with_input"`
	LandingFrictionWithoutInput float64 `yaml:"landing_friction_without_input"`
	LandingFrictionTime         float64 `yaml:"landing_friction_time"`
}

func defaultRotationRate() mantle.FloatCurve {
	return mantle.NewFloatCurve(
		mantle.Key{Time: 0, Value: 5},
		mantle.Key{Time: 1, Value: 10},
		mantle.Key{Time: 2, Value: 12},
		mantle.Key{Time: 3, Value: 15},
	)
}

// DefaultLocomotion ...
func DefaultLocomotion() Locomotion {
	return Locomotion{
		RotationMode: RotationVelocityDirection,
		VelocityDirection: GaitSpeeds{
			WalkSpeed: 200, RunSpeed: 600, SprintSpeed: 900, RotationRate: defaultRotationRate(),
		},
		LookingDirection: GaitSpeeds{
			WalkSpeed: 200, RunSpeed: 600, SprintSpeed: 900, RotationRate: defaultRotationRate(),
		},
		Aiming: GaitSpeeds{
			WalkSpeed: 200, RunSpeed: 450, SprintSpeed: 450, RotationRate: defaultRotationRate(),
		},
		RagdollOnLandVelocity:       1000,
		BreakfallOnLand:             true,
		BreakfallOnLandVelocity:     600,
		LandingFrictionWithInput:    0.5,
		LandingFrictionWithoutInput: 3,
		LandingFrictionTime:         0.5,
	}
}

const (
	RotationVelocityDirection = "velocity_direction"
	RotationLookingDirection  = "looking_direction"
)

// Validate ...
func (l Locomotion) Validate() error {
	if l.RotationMode != RotationVelocityDirection && l.RotationMode != RotationLookingDirection {
		return oerror.New("unknown rotation mode %q", l.RotationMode)
	}
	for name, g := range map[string]GaitSpeeds{
		"velocity direction": l.VelocityDirection,
		"looking direction":  l.LookingDirection,
		"aiming":             l.Aiming,
	} {
		if g.WalkSpeed < 0 || g.RunSpeed < g.WalkSpeed || g.SprintSpeed < g.RunSpeed {
			return oerror.New("%s gait speeds must be ordered walk <= run <= sprint, got %v/%v/%v", name, g.WalkSpeed, g.RunSpeed, g.SprintSpeed)
		}
	}
	if l.LandingFrictionTime < 0 {
		return oerror.New("landing friction time must not be negative, got %v", l.LandingFrictionTime)
	}
	return nil
}
