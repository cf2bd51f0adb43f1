package ragdoll

import "github.com/oomph-ac/locomotion/oerror"

// Config tunes how a ragdoll is driven.
type Config struct {
	// MaxStunTimerValue is how long joint stiffness takes to recover after an impact.
	MaxStunTimerValue float64 `yaml:"max_stun_timer_value"`
	// ImpactVelocityDelta is the change of speed within one tick treated as an impact.
	ImpactVelocityDelta float64 `yaml:"impact_velocity_delta"`
	// SpringSpeed and MaxSpring map the ragdoll speed onto the joint motor spring.
	SpringSpeed float64 `yaml:"spring_speed"`
	MaxSpring   float64 `yaml:"max_spring"`
	// TerminalSpeed is the speed along gravity above which no more gravity is applied.
	TerminalSpeed float64 `yaml:"terminal_speed"`
	// Pull settings are used on replicas to drag the local body towards the replicated target.
	MaxPull        float64 `yaml:"max_pull"`
	PullInterpRate float64 `yaml:"pull_interp_rate"`
	SpinePullSpeed float64 `yaml:"spine_pull_speed"`
	// GroundOffset is the gap kept between a grounded capsule and the floor.
	GroundOffset float64 `yaml:"ground_offset"`
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		MaxStunTimerValue:   4,
		ImpactVelocityDelta: 1200,
		SpringSpeed:         1000,
		MaxSpring:           2300,
		TerminalSpeed:       4000,
		MaxPull:             750,
		PullInterpRate:      0.6,
		SpinePullSpeed:      300,
		GroundOffset:        2,
	}
}

// Validate ...
func (c Config) Validate() error {
	switch {
	case c.MaxStunTimerValue <= 0:
		return oerror.New("ragdoll stun time must be positive, got %v", c.MaxStunTimerValue)
	case c.SpringSpeed <= 0:
		return oerror.New("ragdoll spring speed must be positive, got %v", c.SpringSpeed)
	case c.TerminalSpeed <= 0:
		return oerror.New("ragdoll terminal speed must be positive, got %v", c.TerminalSpeed)
	}
	return nil
}
