package mantle

import (
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/omath"
)

// Key is a single point on a FloatCurve.
type Key struct {
	Time  float64 `yaml:"time"`
	Value float64 `yaml:"value"`
}

// FloatCurve is a piecewise linear curve. Sampling before the first key or after the last one
// returns the value of that key.
type FloatCurve struct {
	Keys []Key `yaml:"keys"`
}

// NewFloatCurve returns a curve through keys, sorted by time.
func NewFloatCurve(keys ...Key) FloatCurve {
	keys = slices.Clone(keys)
	slices.SortStableFunc(keys, func(a, b Key) int {
		switch {
		case a.Time < b.Time:
			return -1
		case a.Time > b.Time:
			return 1
		}
		return 0
	})
	return FloatCurve{Keys: keys}
}

// Sample returns the value of the curve at t.
func (c FloatCurve) Sample(t float64) float64 {
	switch len(c.Keys) {
	case 0:
		return 0
	case 1:
		return c.Keys[0].Value
	}
	if t <= c.Keys[0].Time {
		return c.Keys[0].Value
	}
	last := c.Keys[len(c.Keys)-1]
	if t >= last.Time {
		return last.Value
	}
	i, _ := slices.BinarySearchFunc(c.Keys, t, func(k Key, t float64) int {
		if k.Time < t {
			return -1
		}
		if k.Time > t {
			return 1
		}
		return 0
	})
	if c.Keys[i].Time == t {
		return c.Keys[i].Value
	}
	a, b := c.Keys[i-1], c.Keys[i]
	return omath.Lerp(a.Value, b.Value, (t-a.Time)/(b.Time-a.Time))
}

// TimeRange returns the times of the first and last key.
func (c FloatCurve) TimeRange() (float64, float64) {
	if len(c.Keys) == 0 {
		return 0, 0
	}
	return c.Keys[0].Time, c.Keys[len(c.Keys)-1].Time
}

// VectorCurve samples three independent float curves.
type VectorCurve struct {
	X FloatCurve `yaml:"x"`
	Y FloatCurve `yaml:"y"`
	Z FloatCurve `yaml:"z"`
}

// Sample ...
func (c VectorCurve) Sample(t float64) mgl64.Vec3 {
	return mgl64.Vec3{c.X.Sample(t), c.Y.Sample(t), c.Z.Sample(t)}
}

// TimeRange returns the smallest range covering the keys of all three curves.
func (c VectorCurve) TimeRange() (float64, float64) {
	lo, hi := 0.0, 0.0
	first := true
	for _, curve := range [...]FloatCurve{c.X, c.Y, c.Z} {
		if len(curve.Keys) == 0 {
			continue
		}
		start, end := curve.TimeRange()
		if first || start < lo {
			lo = start
		}
		if first || end > hi {
			hi = end
		}
		first = false
	}
	return lo, hi
}

// Clock is the progress of a timed blend. Position runs from 0 to Length, advancing Rate seconds
// of curve time per second of simulation.
type Clock struct {
	Length   float64
	Rate     float64
	Position float64
	playing  bool
}

// Play restarts the clock. A non-positive rate plays at normal speed.
func (c *Clock) Play(length, rate float64) {
	if rate <= 0 {
		rate = 1
	}
	c.Length, c.Rate, c.Position = max(length, 0), rate, 0
	c.playing = true
}

// Advance moves the clock forward by dt and reports whether it reached the end.
func (c *Clock) Advance(dt float64) bool {
	if !c.playing {
		return false
	}
	c.Position = min(c.Position+dt*c.Rate, c.Length)
	if c.Position >= c.Length {
		c.playing = false
		return true
	}
	return false
}

// Playing reports whether the clock is running.
func (c *Clock) Playing() bool {
	return c.playing
}

// Stop halts the clock where it is.
func (c *Clock) Stop() {
	c.playing = false
}
