package network

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestSmootherSnapsLargeCorrections(t *testing.T) {
	s := NewSmoother(DefaultConfig())
	if !s.Correct(mgl64.Vec3{}, mgl64.Vec3{150, 0, 0}) {
		t.Fatalf("expected a correction beyond 140 to snap")
	}
	if s.Offset() != (mgl64.Vec3{}) {
		t.Fatalf("expected no offset after snapping, got %v", s.Offset())
	}
}

func TestSmootherClampsOffset(t *testing.T) {
	s := NewSmoother(DefaultConfig())
	if s.Correct(mgl64.Vec3{}, mgl64.Vec3{100, 0, 0}) {
		t.Fatalf("expected a correction below 140 to be smoothed")
	}
	if want := (mgl64.Vec3{-92, 0, 0}); s.Offset().Sub(want).Len() > 1e-9 {
		t.Fatalf("expected the offset to be clamped to %v, got %v", want, s.Offset())
	}
}

func TestSmootherDecays(t *testing.T) {
	s := NewSmoother(DefaultConfig())
	s.Correct(mgl64.Vec3{}, mgl64.Vec3{10, 0, 0})
	if s.Offset() != (mgl64.Vec3{-10, 0, 0}) {
		t.Fatalf("expected the visual to stay at the old location, got offset %v", s.Offset())
	}
	s.Tick(0.05)
	if s.Offset().Sub(mgl64.Vec3{-5, 0, 0}).Len() > 1e-9 {
		t.Fatalf("expected half the offset after half the smoothing time, got %v", s.Offset())
	}
	s.Tick(0.05)
	if s.Offset() != (mgl64.Vec3{}) {
		t.Fatalf("expected the offset to be gone after the smoothing time, got %v", s.Offset())
	}
}

func TestSmootherAccumulatesOffset(t *testing.T) {
	s := NewSmoother(DefaultConfig())
	s.Correct(mgl64.Vec3{}, mgl64.Vec3{10, 0, 0})
	// The visual is still at the origin, so the second correction smooths from there.
	s.Correct(mgl64.Vec3{10, 0, 0}, mgl64.Vec3{20, 0, 0})
	if s.Offset() != (mgl64.Vec3{-20, 0, 0}) {
		t.Fatalf("expected the offsets to add up, got %v", s.Offset())
	}
}
