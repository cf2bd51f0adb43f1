package network

import "github.com/go-gl/mathgl/mgl64"

// Smoother hides corrections of simulated proxies. The capsule jumps to the corrected location
// while the visual offset between the old and new location decays over time.
type Smoother struct {
	cfg Config

	offset    mgl64.Vec3
	remaining float64
}

// NewSmoother ...
func NewSmoother(cfg Config) *Smoother {
	return &Smoother{cfg: cfg}
}

// Correct records a correction of the capsule from old to corrected. It reports whether the
// distance was too large to smooth and the visual snapped to the new location.
func (s *Smoother) Correct(old, corrected mgl64.Vec3) (snapped bool) {
	offset := old.Add(s.offset).Sub(corrected)
	switch l := offset.Len(); {
	case l > s.cfg.NoSmoothNetUpdateDist:
		s.offset, s.remaining = mgl64.Vec3{}, 0
		return true
	case l > s.cfg.MaxSmoothNetUpdateDist:
		offset = offset.Mul(s.cfg.MaxSmoothNetUpdateDist / l)
	}
	s.offset, s.remaining = offset, s.cfg.SmoothNetUpdateTime
	if s.remaining <= 0 {
		s.offset = mgl64.Vec3{}
	}
	return false
}

// Tick decays the offset linearly so it reaches zero SmoothNetUpdateTime after the correction.
func (s *Smoother) Tick(dt float64) {
	if s.remaining <= dt {
		s.offset, s.remaining = mgl64.Vec3{}, 0
		return
	}
	s.offset = s.offset.Mul((s.remaining - dt) / s.remaining)
	s.remaining -= dt
}

// Offset returns the visual offset to add to the capsule location.
func (s *Smoother) Offset() mgl64.Vec3 {
	return s.offset
}

// Reset drops the offset.
func (s *Smoother) Reset() {
	s.offset, s.remaining = mgl64.Vec3{}, 0
}
