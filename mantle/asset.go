package mantle

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/oerror"
)

// Type is the kind of mantle an agent performs.
type Type uint8

const (
	TypeHighMantle Type = iota
	TypeLowMantle
	TypeFallingCatch
)

// String ...
func (t Type) String() string {
	switch t {
	case TypeHighMantle:
		return "high_mantle"
	case TypeLowMantle:
		return "low_mantle"
	case TypeFallingCatch:
		return "falling_catch"
	default:
		return fmt.Sprintf("mantle_type(%d)", uint8(t))
	}
}

// TraceSettings controls how far ahead and how high Check searches for a ledge.
type TraceSettings struct {
	MaxLedgeHeight      float64 `yaml:"max_ledge_height"`
	MinLedgeHeight      float64 `yaml:"min_ledge_height"`
	ReachDistance       float64 `yaml:"reach_distance"`
	ForwardTraceRadius  float64 `yaml:"forward_trace_radius"`
	DownwardTraceRadius float64 `yaml:"downward_trace_radius"`
}

// Asset describes one mantle animation: where it starts relative to the ledge, and how the
// height of the ledge maps to the start position and play rate of its correction curve.
type Asset struct {
	// StartingOffset is the animated start of the mantle relative to the target. Y is the
	// distance in front of the ledge and Z the height below it.
	StartingOffset    mgl64.Vec3  `yaml:"starting_offset"`
	LowHeight         float64     `yaml:"low_height"`
	LowPlayRate       float64     `yaml:"low_play_rate"`
	LowStartPosition  float64     `yaml:"low_start_position"`
	HighHeight        float64     `yaml:"high_height"`
	HighPlayRate      float64     `yaml:"high_play_rate"`
	HighStartPosition float64     `yaml:"high_start_position"`
	Curve             VectorCurve `yaml:"curve"`
}

// Config holds everything the controller needs besides the agent.
type Config struct {
	Grounded TraceSettings `yaml:"grounded"`
	Falling  TraceSettings `yaml:"falling"`
	High     Asset         `yaml:"high"`
	Low      Asset         `yaml:"low"`
	// BlendIn maps the clock position to how much of the mantle blend is applied, so a mantle
	// starting in the middle of its curve does not pop.
	BlendIn FloatCurve `yaml:"blend_in"`
	// HighThreshold is the ledge height above which a grounded mantle is a high one.
	HighThreshold float64 `yaml:"high_threshold"`
	// AcceptableVelocity is the fastest a ledge may move and still be mantled.
	AcceptableVelocity float64 `yaml:"acceptable_velocity"`
}

// positionCorrectionCurve is shared by both default assets. X is the overall blend towards the
// target, Y the horizontal and Z the vertical correction.
func positionCorrectionCurve() VectorCurve {
	return VectorCurve{
		X: NewFloatCurve(Key{0, 0}, Key{0.5, 0}, Key{1.5, 1}),
		Y: NewFloatCurve(Key{0, 0}, Key{0.3, 1}),
		Z: NewFloatCurve(Key{0, 0}, Key{0.2, 1}),
	}
}

// DefaultConfig ...
func DefaultConfig() Config {
	return Config{
		Grounded: TraceSettings{
			MaxLedgeHeight:      250,
			MinLedgeHeight:      50,
			ReachDistance:       75,
			ForwardTraceRadius:  30,
			DownwardTraceRadius: 30,
		},
		Falling: TraceSettings{
			MaxLedgeHeight:      150,
			MinLedgeHeight:      50,
			ReachDistance:       70,
			ForwardTraceRadius:  30,
			DownwardTraceRadius: 30,
		},
		High: Asset{
			StartingOffset:    mgl64.Vec3{0, 65, 200},
			LowHeight:         125,
			LowPlayRate:       1.2,
			LowStartPosition:  0.6,
			HighHeight:        200,
			HighPlayRate:      1.2,
			HighStartPosition: 0,
			Curve:             positionCorrectionCurve(),
		},
		Low: Asset{
			StartingOffset:    mgl64.Vec3{0, 65, 100},
			LowHeight:         50,
			LowPlayRate:       1,
			LowStartPosition:  0.5,
			HighHeight:        100,
			HighPlayRate:      1,
			HighStartPosition: 0,
			Curve:             positionCorrectionCurve(),
		},
		BlendIn:            NewFloatCurve(Key{0, 0}, Key{0.2, 1}),
		HighThreshold:      125,
		AcceptableVelocity: 10,
	}
}

// Validate ...
func (c Config) Validate() error {
	for name, s := range map[string]TraceSettings{"grounded": c.Grounded, "falling": c.Falling} {
		if s.MaxLedgeHeight < s.MinLedgeHeight {
			return oerror.New("%s mantle trace: max ledge height %v is below min ledge height %v", name, s.MaxLedgeHeight, s.MinLedgeHeight)
		}
		if s.ReachDistance <= 0 || s.ForwardTraceRadius <= 0 || s.DownwardTraceRadius <= 0 {
			return oerror.New("%s mantle trace: reach and trace radii must be positive", name)
		}
	}
	for name, a := range map[string]Asset{"high": c.High, "low": c.Low} {
		if _, end := a.Curve.TimeRange(); end <= 0 {
			return oerror.New("%s mantle asset has an empty correction curve", name)
		}
	}
	if c.AcceptableVelocity < 0 {
		return oerror.New("acceptable mantle velocity must not be negative, got %v", c.AcceptableVelocity)
	}
	return nil
}

// asset returns the asset played for t.
func (c Config) asset(t Type) Asset {
	if t == TypeHighMantle {
		return c.High
	}
	return c.Low
}
