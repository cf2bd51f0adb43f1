package movement

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/collision"
	"github.com/oomph-ac/locomotion/omath"
	"github.com/oomph-ac/locomotion/world"
)

func TestWalkableIsMonotonic(t *testing.T) {
	up := omath.WorldUp
	walkable := false
	for i := 0; i <= 100; i++ {
		z := float64(i) / 100
		normal := omath.SafeNormal(mgl64.Vec3{math.Sqrt(1 - z*z), 0, z})
		hit := collision.Hit{Blocking: true, Normal: normal, ImpactNormal: normal}
		ok := Walkable(hit, up, 0.71)
		if walkable && !ok {
			t.Fatalf("surface with normal z %.2f is not walkable although a steeper one was", z)
		}
		walkable = ok
		if ok && normal.Z() < 0.71 {
			t.Fatalf("surface with normal z %.2f should not be walkable", normal.Z())
		}
	}
	if !walkable {
		t.Fatalf("expected a flat floor to be walkable")
	}
}

func TestNonBlockingHitIsNeverWalkable(t *testing.T) {
	hit := collision.Hit{ImpactNormal: omath.WorldUp, Normal: omath.WorldUp}
	if Walkable(hit, omath.WorldUp, 0) {
		t.Fatalf("expected a non-blocking hit to be unwalkable")
	}
	hit.Blocking, hit.StartPenetrating = true, true
	if Walkable(hit, omath.WorldUp, 0) {
		t.Fatalf("expected a penetrating hit to be unwalkable")
	}
}

func TestWalkableFloorZOverride(t *testing.T) {
	slope := world.NewBox("slope", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}, world.WithWalkableFloorZ(0.95))
	normal := omath.SafeNormal(mgl64.Vec3{0.5, 0, 1})
	hit := collision.Hit{Blocking: true, Normal: normal, ImpactNormal: normal, Component: slope}
	if Walkable(hit, omath.WorldUp, 0.71) {
		t.Fatalf("expected the body override to make the slope unwalkable")
	}
	hit.Component = nil
	if !Walkable(hit, omath.WorldUp, 0.71) {
		t.Fatalf("expected the slope to be walkable without override")
	}
}

func TestFindFloorOnFlatGround(t *testing.T) {
	c := newWalker(t, flatWorld())
	floor := c.FindFloor(c.Location(), false, nil)
	if !floor.IsWalkableFloor() || floor.LineTrace {
		t.Fatalf("expected a walkable sweep floor, got %+v", floor)
	}
	if math.Abs(floor.FloorDist-2.15) > 1e-3 {
		t.Fatalf("expected floor distance 2.15, got %v", floor.FloorDist)
	}
	if floor.Hit.Component == nil || floor.Hit.Component.ID() != "floor" {
		t.Fatalf("expected the floor body to be hit, got %v", floor.Hit.Component)
	}
	if c.Base() == nil || c.Base().ID() != "floor" {
		t.Fatalf("expected the floor to be the base, got %v", c.Base())
	}
}

func TestFindFloorWithoutCollision(t *testing.T) {
	c := newWalker(t, flatWorld())
	c.SetCollisionEnabled(false)
	if floor := c.FindFloor(c.Location(), false, nil); floor.BlockingHit || floor.IsWalkableFloor() {
		t.Fatalf("expected no floor without collision, got %+v", floor)
	}
}

func TestFindFloorTooFarBelow(t *testing.T) {
	c := New(DefaultConfig(), flatWorld(), WithTransform(mgl64.Vec3{0, 0, 500}, mgl64.QuatIdent()))
	if floor := c.FindFloor(c.Location(), false, nil); floor.IsWalkableFloor() {
		t.Fatalf("expected no floor within reach, got %+v", floor)
	}
}

func TestAdjustFloorHeightMovesIntoBand(t *testing.T) {
	c := newWalker(t, flatWorld())
	c.location = mgl64.Vec3{0, 0, 88 + 10}
	c.floor = c.FindFloor(c.location, false, nil)
	if !c.floor.IsWalkableFloor() {
		t.Fatalf("expected a walkable floor 10 units below, got %+v", c.floor)
	}
	c.adjustFloorHeight()
	bottom := c.location.Z() - 88
	if bottom < MinFloorDist-1e-3 || bottom > MaxFloorDist+1e-3 {
		t.Fatalf("expected the capsule bottom within the floor band, got %v", bottom)
	}
}

// ledgeWorld is a floor ending at x=100, optionally with a lower floor 30 units below beyond it.
func ledgeWorld(lower bool) *world.World {
	w := world.New(world.NewBox("ledge", mgl64.Vec3{-1000, -1000, -10}, mgl64.Vec3{100, 1000, 0}))
	if lower {
		w.Add(world.NewBox("lower", mgl64.Vec3{100, -1000, -40}, mgl64.Vec3{1000, 1000, -30}))
	}
	return w
}

func newPercher(t *testing.T, w *world.World) *Component {
	t.Helper()
	c := newWalker(t, w)
	cfg := c.Config()
	cfg.PerchRadiusThreshold = 20
	c.SetConfig(cfg)
	return c
}

func TestFindFloorEdgeWithinPerchRadius(t *testing.T) {
	c := newPercher(t, ledgeWorld(false))
	floor := c.FindFloor(mgl64.Vec3{110, 0, standingZ}, false, nil)
	if !floor.IsWalkableFloor() || floor.LineTrace {
		t.Fatalf("expected the ledge edge to be a walkable sweep floor, got %+v", floor)
	}
	if floor.FloorDist <= MaxFloorDist || floor.FloorDist > 4 {
		t.Fatalf("expected the edge slightly below the floor band, got %v", floor.FloorDist)
	}
}

func TestFindFloorCannotPerchOverDrop(t *testing.T) {
	c := newPercher(t, ledgeWorld(false))
	floor := c.FindFloor(mgl64.Vec3{120, 0, standingZ}, false, nil)
	if floor.IsWalkableFloor() {
		t.Fatalf("expected no perch over a drop, got %+v", floor)
	}
	if !floor.BlockingHit || floor.Hit.Component == nil || floor.Hit.Component.ID() != "ledge" {
		t.Fatalf("expected the ledge edge to still block, got %+v", floor)
	}
}

func TestFindFloorPerchesAboveLowerFloor(t *testing.T) {
	c := newPercher(t, ledgeWorld(true))
	floor := c.FindFloor(mgl64.Vec3{120, 0, standingZ}, false, nil)
	if !floor.IsWalkableFloor() || floor.LineTrace {
		t.Fatalf("expected to perch on the ledge edge, got %+v", floor)
	}
	if math.Abs(floor.FloorDist-8.65) > 0.05 {
		t.Fatalf("expected the edge distance to be kept, got %v", floor.FloorDist)
	}

	perch, ok := c.computePerchResult(c.validPerchRadius(), floor.Hit, 87.4)
	if !ok || perch.Hit.Component == nil || perch.Hit.Component.ID() != "lower" {
		t.Fatalf("expected the narrow sweep to find the lower floor, got %+v", perch)
	}
	if math.Abs(perch.FloorDist-18.1) > 0.05 {
		t.Fatalf("expected the lower floor 18.1 below the narrow capsule, got %v", perch.FloorDist)
	}
	if _, ok := c.computePerchResult(c.validPerchRadius(), floor.Hit, 25); ok {
		t.Fatalf("expected the lower floor to be out of reach of a short perch")
	}
}

func TestFindFloorFallsBackToLineTrace(t *testing.T) {
	kerb := world.NewBox("kerb", mgl64.Vec3{30, -1000, -10}, mgl64.Vec3{60, 1000, 19})
	c := newWalker(t, flatWorld(kerb))
	floor := c.FindFloor(c.Location(), false, nil)
	if !floor.IsWalkableFloor() || !floor.LineTrace {
		t.Fatalf("expected a walkable line trace floor, got %+v", floor)
	}
	if math.Abs(floor.FloorDist-1.15) > 0.05 {
		t.Fatalf("expected the sweep distance to the kerb edge, got %v", floor.FloorDist)
	}
	if math.Abs(floor.LineDist-2.15) > 1e-3 {
		t.Fatalf("expected the line distance to the floor, got %v", floor.LineDist)
	}
	if floor.Hit.Component == nil || floor.Hit.Component.ID() != "floor" {
		t.Fatalf("expected the line trace to hit the floor, got %v", floor.Hit.Component)
	}

	location := c.Location()
	c.floor = floor
	c.adjustFloorHeight()
	if c.Location() != location {
		t.Fatalf("expected a line trace floor inside the band to keep the capsule in place, got %v", c.Location())
	}
}
