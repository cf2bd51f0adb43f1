package world

import (
	"slices"
	"sync"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/block/cube/trace"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/omath"
)

// broadphaseMargin grows swept bounds before testing them against bodies.
const broadphaseMargin = 0.01

// World is a collection of axis-aligned box bodies implementing collision.Query. It is safe for
// concurrent queries; bodies may be moved between ticks with Tick or Body.Translate while no query
// is running.
type World struct {
	mu     sync.RWMutex
	bodies map[string]*Body
	order  []string
}

// New returns an empty world.
func New(bodies ...*Body) *World {
	w := &World{bodies: make(map[string]*Body)}
	for _, b := range bodies {
		w.Add(b)
	}
	return w
}

// Add inserts b, replacing any body with the same ID.
func (w *World) Add(b *Body) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.bodies[b.id]; !ok {
		w.order = append(w.order, b.id)
	}
	w.bodies[b.id] = b
}

// Remove deletes the body with the given ID.
func (w *World) Remove(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.bodies[id]; !ok {
		return
	}
	delete(w.bodies, id)
	w.order = slices.DeleteFunc(w.order, func(other string) bool { return other == id })
}

// Body returns the body with the given ID.
func (w *World) Body(id string) (*Body, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b, ok := w.bodies[id]
	return b, ok
}

// Component returns the body with the given ID as a collision.Component.
func (w *World) Component(id string) (collision.Component, bool) {
	b, ok := w.Body(id)
	if !ok {
		return nil, false
	}
	return b, true
}

// Tick moves every body by its velocity over dt seconds.
func (w *World) Tick(dt float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range w.order {
		b := w.bodies[id]
		if !omath.IsZero(b.velocity) {
			b.Translate(b.velocity.Mul(dt))
		}
	}
}

// candidates returns the bodies that can respond to a query of filter within bounds.
func (w *World) candidates(filter collision.Filter, bounds cube.BBox) []*Body {
	var out []*Body
	for _, id := range w.order {
		b := w.bodies[id]
		if filter.Ignores(id) || !b.Responds(filter.Channel) {
			continue
		}
		if b.BBox().IntersectsWith(bounds) {
			out = append(out, b)
		}
	}
	return out
}

// Sweep ...
func (w *World) Sweep(shape collision.Shape, start, end mgl64.Vec3, filter collision.Filter) collision.Hit {
	if shape.IsNearlyZero() {
		return w.LineTrace(start, end, filter)
	}
	w.mu.RLock()
	defer w.mu.RUnlock()

	best := collision.NoHit(start, end)
	for _, b := range w.candidates(filter, sweptBounds(shape, start, end, broadphaseMargin)) {
		hit, ok := sweepBox(shape, start, end, b.BBox())
		if !ok {
			continue
		}
		hit.Component = b
		if better(hit, best) {
			best = hit
		}
	}
	return best
}

// LineTrace ...
func (w *World) LineTrace(start, end mgl64.Vec3, filter collision.Filter) collision.Hit {
	w.mu.RLock()
	defer w.mu.RUnlock()

	best := collision.NoHit(start, end)
	length := end.Sub(start).Len()
	dir := omath.SafeNormal(end.Sub(start))
	if length == 0 {
		return best
	}
	for _, b := range w.candidates(filter, sweptBounds(collision.Line(), start, end, broadphaseMargin)) {
		bb := b.BBox()
		var hit collision.Hit
		if bb.Vec3Within(start) {
			normal := dir.Mul(-1)
			hit = collision.Hit{
				Blocking: true, StartPenetrating: true, Location: start, ImpactPoint: start,
				Normal: normal, ImpactNormal: normal, TraceStart: start, TraceEnd: end,
			}
		} else {
			result, ok := trace.BBoxIntercept(bb, start, end)
			if !ok {
				continue
			}
			normal := cube.Pos{}.Side(result.Face()).Vec3()
			if normal.Dot(dir) >= 0 {
				continue
			}
			t := result.Position().Sub(start).Len() / length
			hit = collision.Hit{
				Blocking: true, Time: t, Distance: t * length,
				Location: result.Position(), ImpactPoint: result.Position(),
				Normal: normal, ImpactNormal: normal, TraceStart: start, TraceEnd: end,
			}
		}
		hit.Component = b
		if better(hit, best) {
			best = hit
		}
	}
	return best
}

// Overlap ...
func (w *World) Overlap(shape collision.Shape, center mgl64.Vec3, filter collision.Filter) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, b := range w.candidates(filter, sweptBounds(shape, center, center, broadphaseMargin)) {
		if shape.IsNearlyZero() {
			if b.BBox().Vec3Within(center) {
				return true
			}
			continue
		}
		if shapeClearance(shape, center, b.BBox()) < -penetrationTolerance {
			return true
		}
	}
	return false
}

// better reports whether hit should replace best as the reported result. Penetrations win over
// regular hits so callers can resolve them first.
func better(hit, best collision.Hit) bool {
	if !best.Blocking {
		return true
	}
	if hit.StartPenetrating != best.StartPenetrating {
		return hit.StartPenetrating
	}
	if hit.StartPenetrating {
		return hit.PenetrationDepth > best.PenetrationDepth
	}
	return hit.Time < best.Time
}
