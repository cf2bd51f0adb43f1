package mantle

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/omath"
)

// Ledge is a transform paired with the body it belongs to. Depending on where it is used the
// transform is either in world space or in the local space of the body.
type Ledge struct {
	Component collision.Component
	Transform omath.Transform
}

// Params is a mantle found by Check, or received from the authority.
type Params struct {
	Type   Type
	Height float64
	// Ledge is the world space target of the capsule.
	Ledge Ledge
}

// WorldToLocal converts a world space ledge into the local space of its body. Ledges without a
// body stay in world space.
func WorldToLocal(ledge Ledge) Ledge {
	if ledge.Component == nil {
		return ledge
	}
	return Ledge{Component: ledge.Component, Transform: componentTransform(ledge.Component).ToLocal(ledge.Transform)}
}

// LocalToWorld returns the current world transform of a ledge stored in the local space of its
// body, following the body if it moved since.
func LocalToWorld(ledge Ledge) omath.Transform {
	if ledge.Component == nil {
		return ledge.Transform
	}
	return componentTransform(ledge.Component).ToWorld(ledge.Transform)
}

// componentTransform returns the transform of c with a unit scale if it reports none.
func componentTransform(c collision.Component) omath.Transform {
	t := c.Transform()
	if omath.IsZero(t.Scale) {
		t.Scale = mgl64.Vec3{1, 1, 1}
	}
	if t.Rotation.Len() == 0 {
		t.Rotation = mgl64.QuatIdent()
	}
	return t
}
