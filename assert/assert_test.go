package assert

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestFiniteVec(t *testing.T) {
	if !FiniteVec(mgl64.Vec3{1, 2, 3}, "vec") {
		t.Fatalf("expected finite vector to pass")
	}
	if Enabled {
		return
	}
	if FiniteVec(mgl64.Vec3{math.NaN(), 0, 0}, "vec") {
		t.Fatalf("expected NaN vector to be reported")
	}
	if FiniteVec(mgl64.Vec3{0, math.Inf(1), 0}, "vec") {
		t.Fatalf("expected infinite vector to be reported")
	}
}
