package world

import (
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/omath"
)

// Body is an axis-aligned box in the world. Its box is stored relative to its origin so that
// moving the body only changes the origin.
type Body struct {
	id       string
	box      cube.BBox
	origin   mgl64.Vec3
	velocity mgl64.Vec3

	walkableZ    float64
	hasWalkableZ bool
	noStepUp     bool
	channels     map[collision.Channel]bool
}

// BodyOption configures a Body.
type BodyOption func(*Body)

// WithVelocity makes the body move with the given velocity every World.Tick.
func WithVelocity(v mgl64.Vec3) BodyOption {
	return func(b *Body) { b.velocity = v }
}

// WithWalkableFloorZ overrides the walkable slope threshold of agents standing on the body.
func WithWalkableFloorZ(z float64) BodyOption {
	return func(b *Body) { b.walkableZ, b.hasWalkableZ = z, true }
}

// WithoutStepUp stops agents from stepping onto the body.
func WithoutStepUp() BodyOption {
	return func(b *Body) { b.noStepUp = true }
}

// WithChannels restricts the channels the body blocks. Bodies block every channel by default.
func WithChannels(channels ...collision.Channel) BodyOption {
	return func(b *Body) {
		b.channels = make(map[collision.Channel]bool, len(channels))
		for _, c := range channels {
			b.channels[c] = true
		}
	}
}

// NewBox creates a body spanning min to max in world space.
func NewBox(id string, min, max mgl64.Vec3, opts ...BodyOption) *Body {
	b := &Body{id: id, box: cube.Box(min[0], min[1], min[2], max[0], max[1], max[2])}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ID ...
func (b *Body) ID() string {
	return b.id
}

// BBox returns the world space box of the body.
func (b *Body) BBox() cube.BBox {
	return b.box.Translate(b.origin)
}

// Transform ...
func (b *Body) Transform() omath.Transform {
	return omath.NewTransform(b.origin, mgl64.QuatIdent())
}

// Velocity ...
func (b *Body) Velocity() mgl64.Vec3 {
	return b.velocity
}

// SetVelocity ...
func (b *Body) SetVelocity(v mgl64.Vec3) {
	b.velocity = v
}

// Translate moves the body by delta.
func (b *Body) Translate(delta mgl64.Vec3) {
	b.origin = b.origin.Add(delta)
}

// WalkableFloorZ ...
func (b *Body) WalkableFloorZ(base float64) float64 {
	if b.hasWalkableZ {
		return b.walkableZ
	}
	return base
}

// CanStepUp ...
func (b *Body) CanStepUp() bool {
	return !b.noStepUp
}

// Responds ...
func (b *Body) Responds(channel collision.Channel) bool {
	return b.channels == nil || b.channels[channel]
}
