package network

import "github.com/oomph-ac/locomotion/oerror"

// Config tunes replication of an agent.
type Config struct {
	// MaxSavedMoves is the number of unacknowledged moves an autonomous proxy keeps.
	MaxSavedMoves int `yaml:"max_saved_moves"`
	// MaxMoveDeltaTime caps the time step of a client move applied by the authority.
	MaxMoveDeltaTime float64 `yaml:"max_move_delta_time"`

	// An autonomous proxy is corrected when its prediction is further off the authority than
	// these thresholds.
	PositionCorrectionThreshold float64 `yaml:"position_correction_threshold"`
	VelocityCorrectionThreshold float64 `yaml:"velocity_correction_threshold"`

	// Corrections of simulated proxies further than NoSmoothNetUpdateDist snap. Shorter ones are
	// smoothed with an offset of at most MaxSmoothNetUpdateDist decaying over
	// SmoothNetUpdateTime seconds.
	MaxSmoothNetUpdateDist float64 `yaml:"max_smooth_net_update_dist"`
	NoSmoothNetUpdateDist  float64 `yaml:"no_smooth_net_update_dist"`
	SmoothNetUpdateTime    float64 `yaml:"smooth_net_update_time"`

	// DuplicateWindow is the number of recent frame checksums remembered to drop duplicates.
	DuplicateWindow int `yaml:"duplicate_window"`
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		MaxSavedMoves:               96,
		MaxMoveDeltaTime:            0.125,
		PositionCorrectionThreshold: 3,
		VelocityCorrectionThreshold: 10,
		MaxSmoothNetUpdateDist:      92,
		NoSmoothNetUpdateDist:       140,
		SmoothNetUpdateTime:         0.1,
		DuplicateWindow:             64,
	}
}

// Validate ...
func (c Config) Validate() error {
	switch {
	case c.MaxSavedMoves <= 0:
		return oerror.New("max saved moves must be positive, got %d", c.MaxSavedMoves)
	case c.MaxMoveDeltaTime <= 0:
		return oerror.New("max move delta time must be positive, got %v", c.MaxMoveDeltaTime)
	case c.PositionCorrectionThreshold < 0 || c.VelocityCorrectionThreshold < 0:
		return oerror.New("correction thresholds must not be negative")
	case c.MaxSmoothNetUpdateDist > c.NoSmoothNetUpdateDist:
		return oerror.New("max smooth distance %v exceeds the snap distance %v", c.MaxSmoothNetUpdateDist, c.NoSmoothNetUpdateDist)
	case c.DuplicateWindow <= 0:
		return oerror.New("duplicate window must be positive, got %d", c.DuplicateWindow)
	}
	return nil
}
