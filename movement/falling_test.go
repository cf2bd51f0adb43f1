package movement

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/omath"
	"github.com/oomph-ac/locomotion/world"
)

// halfSpace blocks everything below the plane through the origin with the given normal.
type halfSpace struct {
	normal mgl64.Vec3
}

// slopeWorld is a world of half spaces. Its surfaces are tilted, which boxes cannot be.
type slopeWorld []halfSpace

// clearance returns the distance between shape placed at center and the surface of h, negative
// when they overlap, and the point of the shape closest to the surface.
func (h halfSpace) clearance(shape collision.Shape, center mgl64.Vec3) (float64, mgl64.Vec3) {
	a, b := shape.Segment(center)
	low := a
	if h.normal.Dot(b) < h.normal.Dot(a) {
		low = b
	}
	return h.normal.Dot(low) - shape.Radius, low.Sub(h.normal.Mul(shape.Radius))
}

func (w slopeWorld) Sweep(shape collision.Shape, start, end mgl64.Vec3, _ collision.Filter) collision.Hit {
	best := collision.NoHit(start, end)
	delta := end.Sub(start)
	for _, h := range w {
		clearance, point := h.clearance(shape, start)
		if clearance < -1e-6 {
			if !best.StartPenetrating || -clearance > best.PenetrationDepth {
				best = collision.Hit{
					Blocking: true, StartPenetrating: true, Location: start, ImpactPoint: point,
					Normal: h.normal, ImpactNormal: h.normal, PenetrationDepth: -clearance,
					TraceStart: start, TraceEnd: end,
				}
			}
			continue
		}
		approach := -h.normal.Dot(delta)
		if best.StartPenetrating || approach <= 0 || clearance > approach {
			continue
		}
		t := math.Max(0, clearance/approach)
		if best.Blocking && best.Time <= t {
			continue
		}
		best = collision.Hit{
			Blocking: true, Time: t, Distance: delta.Len() * t, Location: start.Add(delta.Mul(t)),
			ImpactPoint: point.Add(delta.Mul(t)), Normal: h.normal, ImpactNormal: h.normal,
			TraceStart: start, TraceEnd: end,
		}
	}
	return best
}

func (w slopeWorld) LineTrace(start, end mgl64.Vec3, filter collision.Filter) collision.Hit {
	return w.Sweep(collision.Line(), start, end, filter)
}

func (w slopeWorld) Overlap(shape collision.Shape, center mgl64.Vec3, _ collision.Filter) bool {
	for _, h := range w {
		if clearance, _ := h.clearance(shape, center); clearance < -1e-6 {
			return true
		}
	}
	return false
}

func newFaller(t *testing.T, q collision.Query, location mgl64.Vec3, opts ...Option) *Component {
	t.Helper()
	opts = append([]Option{
		WithTransform(location, mgl64.QuatIdent()),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	}, opts...)
	c := New(DefaultConfig(), q, opts...)
	if c.Mode() != ModeFalling {
		t.Fatalf("expected a new component to fall, got %v", c.Mode())
	}
	return c
}

func tallWall(id string, min, max mgl64.Vec3) *world.Body {
	return world.NewBox(id, mgl64.Vec3{min.X(), min.Y(), -1000}, mgl64.Vec3{max.X(), max.Y(), 1000})
}

func TestFallingSlidesAlongWall(t *testing.T) {
	obs := &recordingObserver{}
	w := world.New(tallWall("wall", mgl64.Vec3{100, -1000}, mgl64.Vec3{200, 1000}))
	c := newFaller(t, w, mgl64.Vec3{60, 0, 500}, WithObserver(obs))
	c.SetVelocity(mgl64.Vec3{300, 300, 0})

	for range 20 {
		c.Tick(1.0/60.0, RoleAuthority)
	}
	if c.Mode() != ModeFalling {
		t.Fatalf("expected to keep falling, got %v", c.Mode())
	}
	location := c.Location()
	if location.X() < 60 || location.X() > 66+1e-3 {
		t.Fatalf("expected to stop at the wall, got %v", location)
	}
	if location.Y() < 50 || location.Z() >= 500 {
		t.Fatalf("expected to slide along the wall while falling, got %v", location)
	}
	if v := c.Velocity(); math.Abs(v.X()) > 1e-9 || v.Y() <= 0 {
		t.Fatalf("expected the velocity into the wall to be removed, got %v", v)
	}
	if len(obs.impacts) == 0 || obs.impacts[0] != "wall" {
		t.Fatalf("expected an impact with the wall, got %v", obs.impacts)
	}
}

func TestFallingIntoCornerFollowsCrease(t *testing.T) {
	obs := &recordingObserver{}
	w := world.New(
		tallWall("wall_x", mgl64.Vec3{100, -1000}, mgl64.Vec3{200, 1000}),
		tallWall("wall_y", mgl64.Vec3{-1000, 100}, mgl64.Vec3{1000, 200}),
	)
	c := newFaller(t, w, mgl64.Vec3{60, 60, 500}, WithObserver(obs))
	c.SetVelocity(mgl64.Vec3{300, 300, 0})

	for range 20 {
		c.Tick(1.0/60.0, RoleAuthority)
	}
	location := c.Location()
	if location.X() > 66+1e-3 || location.Y() > 66+1e-3 {
		t.Fatalf("expected to stay out of both walls, got %v", location)
	}
	if location.Z() >= 500 || c.Mode() != ModeFalling {
		t.Fatalf("expected to fall down the corner, got %v in %v", location, c.Mode())
	}
	if planar := omath.PlaneProject(c.Velocity(), omath.WorldUp); planar.Len() > 1 {
		t.Fatalf("expected no planar velocity left in the corner, got %v", c.Velocity())
	}
	seen := map[string]bool{}
	for _, id := range obs.impacts {
		seen[id] = true
	}
	if !seen["wall_x"] || !seen["wall_y"] {
		t.Fatalf("expected impacts with both walls, got %v", obs.impacts)
	}
}

func TestFallingIntoDitchLands(t *testing.T) {
	obs := &recordingObserver{}
	ditch := slopeWorld{
		{normal: mgl64.Vec3{math.Sqrt(3) / 2, 0, 0.5}},
		{normal: mgl64.Vec3{-math.Sqrt(3) / 2, 0, 0.5}},
	}
	c := newFaller(t, ditch, mgl64.Vec3{0, 0, 300}, WithObserver(obs))

	for range 120 {
		c.Tick(1.0/60.0, RoleAuthority)
	}
	if obs.landed == 0 || c.Diagnostics().Landings == 0 {
		t.Fatalf("expected the ditch to count as a landing")
	}
	// Both slopes are 34 away from the lower hemisphere center at z=68.
	location := c.Location()
	if math.Abs(location.X()) > 1 || location.Z() < 121 || location.Z() > 124 {
		t.Fatalf("expected to rest at the bottom of the ditch, got %v", location)
	}
}

func TestEscapeDitchHops(t *testing.T) {
	c := newFaller(t, world.New(), mgl64.Vec3{0, 0, 500})
	const dt = 1.0 / 60.0

	c.escapeDitch(c.Location(), c.GravityDirection(), dt)
	v := c.Velocity()
	if math.Abs(v.Z()-c.Config().JumpZVelocity*0.25) > 1e-9 {
		t.Fatalf("expected an upward hop of a quarter jump, got %v", v)
	}
	if math.Abs(v.X()) > 75 || math.Abs(v.Y()) > 75 || (v.X() == 0 && v.Y() == 0) {
		t.Fatalf("expected a small random planar nudge, got %v", v)
	}
	if math.Abs(c.Location().Z()-(500+v.Z()*dt)) > 1e-9 {
		t.Fatalf("expected the hop to be applied, got %v", c.Location())
	}

	// An agent that moved this tick is not stuck.
	before := c.Velocity()
	c.escapeDitch(c.Location().Sub(mgl64.Vec3{50, 0, 0}), c.GravityDirection(), dt)
	if c.Velocity() != before {
		t.Fatalf("expected a moving agent to keep its velocity, got %v", c.Velocity())
	}
}

func TestSlopeBoostIsLimitedWhileFalling(t *testing.T) {
	c := newFaller(t, world.New(), mgl64.Vec3{0, 0, 500})
	slope := omath.SafeNormal(mgl64.Vec3{-1, 0, 1})

	slide := c.computeSlideVector(mgl64.Vec3{10, 6, 2}, 1, slope, collision.Hit{})
	if !slide.ApproxEqualThreshold(mgl64.Vec3{2, 6, 2}, 1e-9) {
		t.Fatalf("expected the rise limited to the intended 2 and the rest turned sideways, got %v", slide)
	}
	slide = c.computeSlideVector(mgl64.Vec3{10, 0, -1}, 1, slope, collision.Hit{})
	if !omath.IsNearlyZero(slide, 1e-9) {
		t.Fatalf("expected a descending move not to be boosted up the slope, got %v", slide)
	}
	slide = c.computeSlideVector(mgl64.Vec3{0, 0, -10}, 1, slope, collision.Hit{})
	if slide.Z() >= 0 {
		t.Fatalf("expected a slide down the slope to be kept, got %v", slide)
	}

	c.SetMode(ModeFlying)
	slide = c.computeSlideVector(mgl64.Vec3{10, 6, 2}, 1, slope, collision.Hit{})
	if !slide.ApproxEqualThreshold(mgl64.Vec3{6, 6, 6}, 1e-9) {
		t.Fatalf("expected a flying slide to follow the slope, got %v", slide)
	}
}
