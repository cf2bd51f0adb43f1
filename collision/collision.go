package collision

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/omath"
)

// ShapeKind is the kind of primitive swept through the world.
type ShapeKind uint8

const (
	ShapeLine ShapeKind = iota
	ShapeSphere
	ShapeCapsule
)

// Shape is a swept primitive. Capsules are oriented along Up, which need not be world Z.
type Shape struct {
	Kind       ShapeKind
	Radius     float64
	HalfHeight float64
	Up         mgl64.Vec3
}

// Capsule returns a capsule shape. The half height includes the hemispherical caps and is never
// shorter than the radius.
func Capsule(radius, halfHeight float64, up mgl64.Vec3) Shape {
	radius = max(radius, 0)
	return Shape{Kind: ShapeCapsule, Radius: radius, HalfHeight: max(halfHeight, radius), Up: omath.SafeNormal(up)}
}

// Sphere returns a sphere shape.
func Sphere(radius float64) Shape {
	return Shape{Kind: ShapeSphere, Radius: max(radius, 0), HalfHeight: max(radius, 0), Up: omath.WorldUp}
}

// Line returns a zero-extent shape for line traces.
func Line() Shape {
	return Shape{Kind: ShapeLine, Up: omath.WorldUp}
}

// Inflate grows a capsule or sphere by the given radius and half height. Negative amounts shrink
// it; the result keeps a non-negative radius and a half height of at least the radius.
func (s Shape) Inflate(radius, halfHeight float64) Shape {
	switch s.Kind {
	case ShapeCapsule:
		return Capsule(s.Radius+radius, s.HalfHeight+halfHeight, s.Up)
	case ShapeSphere:
		return Sphere(s.Radius + radius)
	}
	return s
}

// Shrink is Inflate with negated amounts.
func (s Shape) Shrink(radius, halfHeight float64) Shape {
	return s.Inflate(-radius, -halfHeight)
}

// Segment returns the end points of the inner segment of the shape placed at center.
func (s Shape) Segment(center mgl64.Vec3) (a, b mgl64.Vec3) {
	if s.Kind != ShapeCapsule {
		return center, center
	}
	axis := s.Up.Mul(s.HalfHeight - s.Radius)
	return center.Sub(axis), center.Add(axis)
}

// IsNearlyZero reports whether the shape has no usable extent.
func (s Shape) IsNearlyZero() bool {
	return s.Kind == ShapeLine || s.Radius < omath.KindaSmallNumber
}

// Channel selects which bodies respond to a query.
type Channel uint8

const (
	ChannelPawn Channel = iota
	ChannelClimbable
	ChannelVisibility
)

// Filter restricts which bodies a query may hit.
type Filter struct {
	Channel Channel
	Ignore  []string
}

// Ignores reports whether the body with the given ID is excluded by the filter.
func (f Filter) Ignores(id string) bool {
	for _, ignored := range f.Ignore {
		if ignored == id {
			return true
		}
	}
	return false
}

// Component is a body that can be hit by queries.
type Component interface {
	// ID uniquely identifies the body within its world.
	ID() string
	// Transform returns the current world transform of the body.
	Transform() omath.Transform
	// Velocity returns the linear velocity of the body.
	Velocity() mgl64.Vec3
	// WalkableFloorZ lets a surface override the walkable slope threshold of an agent.
	WalkableFloorZ(base float64) float64
	// CanStepUp reports whether agents may step onto this body.
	CanStepUp() bool
	// Responds reports whether the body blocks queries on channel.
	Responds(channel Channel) bool
}

// Hit is the result of a sweep, line trace or overlap.
type Hit struct {
	// Blocking is true when the query was stopped by a body.
	Blocking bool
	// StartPenetrating is true when the shape was already overlapping a body at the start.
	StartPenetrating bool
	// Time is the fraction of the query travelled before the hit, in [0, 1].
	Time float64
	// Distance is Time times the query length.
	Distance float64
	// Location is where the shape center ends up.
	Location mgl64.Vec3
	// ImpactPoint is the contact point on the body.
	ImpactPoint mgl64.Vec3
	// Normal is the normal of the swept shape at the contact, pointing away from the body.
	Normal mgl64.Vec3
	// ImpactNormal is the normal of the body surface at the contact.
	ImpactNormal mgl64.Vec3
	// PenetrationDepth is how far to push along Normal to leave the body when StartPenetrating.
	PenetrationDepth float64
	TraceStart       mgl64.Vec3
	TraceEnd         mgl64.Vec3
	Component        Component
}

// NoHit returns a non-blocking result for a query from start to end.
func NoHit(start, end mgl64.Vec3) Hit {
	return Hit{Time: 1, Distance: end.Sub(start).Len(), Location: end, TraceStart: start, TraceEnd: end}
}

// IsValidBlockingHit reports whether the hit blocked without starting inside the body.
func (h Hit) IsValidBlockingHit() bool {
	return h.Blocking && !h.StartPenetrating
}

// Query is the collision capability the integrator relies on. Implementations must be
// deterministic for identical inputs.
type Query interface {
	// Sweep moves shape from start to end and returns the first blocking hit.
	Sweep(shape Shape, start, end mgl64.Vec3, filter Filter) Hit
	// LineTrace casts a ray from start to end and returns the first blocking hit.
	LineTrace(start, end mgl64.Vec3, filter Filter) Hit
	// Overlap reports whether shape placed at center overlaps any body.
	Overlap(shape Shape, center mgl64.Vec3, filter Filter) bool
}
