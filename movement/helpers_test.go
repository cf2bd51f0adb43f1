package movement

import (
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/world"
)

// standingZ is the capsule center height of a default capsule resting on a floor whose top is z=0.
const standingZ = 88 + 2.15

type recordingObserver struct {
	NopObserver

	changes [][2]Mode
	landed  int
	apexes  int
	stuck   int
	impacts []string
}

func (o *recordingObserver) HandleModeChange(_ *Component, previous, current Mode) {
	o.changes = append(o.changes, [2]Mode{previous, current})
}

func (o *recordingObserver) HandleLanded(*Component, collision.Hit) {
	o.landed++
}

func (o *recordingObserver) HandleJumpApex(*Component) {
	o.apexes++
}

func (o *recordingObserver) HandleStuck(*Component, collision.Hit) {
	o.stuck++
}

func (o *recordingObserver) HandleImpact(_ *Component, hit collision.Hit, _ float64, _ mgl64.Vec3) {
	id := ""
	if hit.Component != nil {
		id = hit.Component.ID()
	}
	o.impacts = append(o.impacts, id)
}

func flatWorld(bodies ...*world.Body) *world.World {
	w := world.New(world.NewBox("floor", mgl64.Vec3{-1000, -1000, -10}, mgl64.Vec3{1000, 1000, 0}))
	for _, b := range bodies {
		w.Add(b)
	}
	return w
}

// newWalker returns a walking component standing at the origin of w.
func newWalker(t *testing.T, w *world.World, opts ...Option) *Component {
	t.Helper()
	opts = append([]Option{
		WithTransform(mgl64.Vec3{0, 0, standingZ}, mgl64.QuatIdent()),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	}, opts...)
	c := New(DefaultConfig(), w, opts...)
	c.SetMode(ModeWalking)
	if c.Mode() != ModeWalking {
		t.Fatalf("expected walking mode, got %v", c.Mode())
	}
	if !c.Floor().IsWalkableFloor() {
		t.Fatalf("expected a walkable floor below the capsule, got %+v", c.Floor())
	}
	return c
}
