package movement

import (
	"github.com/oomph-ac/locomotion/oerror"
)

// Config holds the tunables of a movement component. Distances are in centimetres, speeds in
// centimetres per second.
type Config struct {
	CapsuleRadius     float64 `yaml:"capsule_radius"`
	CapsuleHalfHeight float64 `yaml:"capsule_half_height"`

	MaxWalkSpeed           float64 `yaml:"max_walk_speed"`
	MaxWalkSpeedCrouched   float64 `yaml:"max_walk_speed_crouched"`
	MaxFlySpeed            float64 `yaml:"max_fly_speed"`
	MaxSwimSpeed           float64 `yaml:"max_swim_speed"`
	MaxCustomMovementSpeed float64 `yaml:"max_custom_movement_speed"`
	MaxAcceleration        float64 `yaml:"max_acceleration"`
	ForceMaxAccel          bool    `yaml:"force_max_accel"`

	BrakingDecelerationWalking  float64 `yaml:"braking_deceleration_walking"`
	BrakingDecelerationFalling  float64 `yaml:"braking_deceleration_falling"`
	BrakingDecelerationFlying   float64 `yaml:"braking_deceleration_flying"`
	BrakingDecelerationSwimming float64 `yaml:"braking_deceleration_swimming"`
	GroundFriction              float64 `yaml:"ground_friction"`
	BrakingFrictionFactor       float64 `yaml:"braking_friction_factor"`
	// BrakingFriction replaces the mode friction while braking when UseSeparateBrakingFriction is set.
	BrakingFriction            float64 `yaml:"braking_friction"`
	UseSeparateBrakingFriction bool    `yaml:"use_separate_braking_friction"`
	BrakingSubStepTime         float64 `yaml:"braking_sub_step_time"`
	FallingLateralFriction     float64 `yaml:"falling_lateral_friction"`
	FluidFriction              float64 `yaml:"fluid_friction"`

	AirControl                       float64 `yaml:"air_control"`
	AirControlBoostMultiplier        float64 `yaml:"air_control_boost_multiplier"`
	AirControlBoostVelocityThreshold float64 `yaml:"air_control_boost_velocity_threshold"`

	JumpZVelocity    float64 `yaml:"jump_z_velocity"`
	GravityZ         float64 `yaml:"gravity_z"`
	GravityScale     float64 `yaml:"gravity_scale"`
	TerminalVelocity float64 `yaml:"terminal_velocity"`

	MaxStepHeight         float64 `yaml:"max_step_height"`
	WalkableFloorZ        float64 `yaml:"walkable_floor_z"`
	PerchRadiusThreshold  float64 `yaml:"perch_radius_threshold"`
	PerchAdditionalHeight float64 `yaml:"perch_additional_height"`
	LedgeCheckThreshold   float64 `yaml:"ledge_check_threshold"`
	// CatchAirDistance starts a fall when the floor drops away by more than this. Zero disables it.
	CatchAirDistance float64 `yaml:"catch_air_distance"`

	CanWalkOffLedges                 bool `yaml:"can_walk_off_ledges"`
	CanWalkOffLedgesWhenCrouching    bool `yaml:"can_walk_off_ledges_when_crouching"`
	MaintainHorizontalGroundVelocity bool `yaml:"maintain_horizontal_ground_velocity"`
	ImpartBaseVelocity               bool `yaml:"impart_base_velocity"`
	FallingRemovesSpeedZ             bool `yaml:"falling_removes_speed_z"`

	MaxSimulationTimeStep        float64 `yaml:"max_simulation_time_step"`
	MaxSimulationIterations      int     `yaml:"max_simulation_iterations"`
	MaxDepenetrationWithGeometry float64 `yaml:"max_depenetration_with_geometry"`

	Mass         float64 `yaml:"mass"`
	RotationRate float64 `yaml:"rotation_rate"`
}

// DefaultConfig returns the default movement configuration.
func DefaultConfig() Config {
	return Config{
		CapsuleRadius:     34,
		CapsuleHalfHeight: 88,

		MaxWalkSpeed:           600,
		MaxWalkSpeedCrouched:   300,
		MaxFlySpeed:            600,
		MaxSwimSpeed:           300,
		MaxCustomMovementSpeed: 600,
		MaxAcceleration:        2048,

		BrakingDecelerationWalking: 2048,
		GroundFriction:             8,
		BrakingFrictionFactor:      2,
		BrakingSubStepTime:         1.0 / 33.0,
		FluidFriction:              0.3,

		AirControl:                       0.05,
		AirControlBoostMultiplier:        2,
		AirControlBoostVelocityThreshold: 25,

		JumpZVelocity:    420,
		GravityZ:         -980,
		GravityScale:     1,
		TerminalVelocity: 4000,

		MaxStepHeight:         45,
		WalkableFloorZ:        0.71,
		PerchAdditionalHeight: 40,
		LedgeCheckThreshold:   4,

		CanWalkOffLedges:                 true,
		CanWalkOffLedgesWhenCrouching:    true,
		MaintainHorizontalGroundVelocity: true,
		ImpartBaseVelocity:               true,

		MaxSimulationTimeStep:        0.05,
		MaxSimulationIterations:      8,
		MaxDepenetrationWithGeometry: 500,

		Mass:         100,
		RotationRate: 10,
	}
}

// Validate checks the configuration for values the integrator cannot work with.
func (c Config) Validate() error {
	switch {
	case c.CapsuleRadius <= 0:
		return oerror.New("capsule radius must be positive, got %v", c.CapsuleRadius)
	case c.CapsuleHalfHeight < c.CapsuleRadius:
		return oerror.New("capsule half height %v is shorter than its radius %v", c.CapsuleHalfHeight, c.CapsuleRadius)
	case c.MaxStepHeight < 0:
		return oerror.New("max step height must not be negative, got %v", c.MaxStepHeight)
	case c.WalkableFloorZ < 0 || c.WalkableFloorZ > 1:
		return oerror.New("walkable floor z must be within [0, 1], got %v", c.WalkableFloorZ)
	case c.MaxSimulationTimeStep <= MinTickTime:
		return oerror.New("max simulation time step is too small: %v", c.MaxSimulationTimeStep)
	case c.MaxSimulationIterations < 1:
		return oerror.New("max simulation iterations must be at least 1, got %d", c.MaxSimulationIterations)
	case c.TerminalVelocity < 0:
		return oerror.New("terminal velocity must not be negative, got %v", c.TerminalVelocity)
	case c.Mass <= 0:
		return oerror.New("mass must be positive, got %v", c.Mass)
	}
	return nil
}
