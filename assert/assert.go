package assert

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/oerror"
)

// IsTrue panics with a formatted error if ok is false and assertions are enabled.
func IsTrue(ok bool, message string, args ...any) {
	if Enabled && !ok {
		panic(oerror.New(message, args...))
	}
}

// FiniteVec reports whether every component of v is a finite number. When assertions
// are enabled a non-finite vector panics instead.
func FiniteVec(v mgl64.Vec3, what string) bool {
	finite := !(math.IsNaN(v[0]) || math.IsNaN(v[1]) || math.IsNaN(v[2]) ||
		math.IsInf(v[0], 0) || math.IsInf(v[1], 0) || math.IsInf(v[2], 0))
	IsTrue(finite, "%s is not finite: %v", what, v)
	return finite
}
