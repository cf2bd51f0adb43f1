package mantle

import (
	"math"
	"testing"
)

func TestFloatCurveSample(t *testing.T) {
	curve := NewFloatCurve(Key{1, 10}, Key{0, 0}, Key{2, 10})
	tests := []struct {
		time, want float64
	}{
		{-1, 0},
		{0, 0},
		{0.25, 2.5},
		{1, 10},
		{1.5, 10},
		{3, 10},
	}
	for _, tt := range tests {
		if got := curve.Sample(tt.time); math.Abs(got-tt.want) > 1e-12 {
			t.Fatalf("Sample(%v) = %v, want %v", tt.time, got, tt.want)
		}
	}
	if got := (FloatCurve{}).Sample(5); got != 0 {
		t.Fatalf("expected an empty curve to sample 0, got %v", got)
	}
}

func TestVectorCurveTimeRange(t *testing.T) {
	curve := VectorCurve{
		X: NewFloatCurve(Key{0.5, 0}, Key{1, 1}),
		Z: NewFloatCurve(Key{0.2, 0}, Key{3, 1}),
	}
	if lo, hi := curve.TimeRange(); lo != 0.2 || hi != 3 {
		t.Fatalf("expected the range [0.2, 3], got [%v, %v]", lo, hi)
	}
	if v := curve.Sample(3); v.X() != 1 || v.Y() != 0 || v.Z() != 1 {
		t.Fatalf("unexpected sample %v", v)
	}
}

func TestClock(t *testing.T) {
	var c Clock
	if c.Advance(1) {
		t.Fatalf("expected a stopped clock not to finish")
	}
	c.Play(1, 2)
	if c.Advance(0.25) || c.Position != 0.5 {
		t.Fatalf("expected the clock at 0.5, got %v", c.Position)
	}
	if !c.Advance(0.5) || c.Position != 1 || c.Playing() {
		t.Fatalf("expected the clock to finish at its length, got %v", c.Position)
	}
	c.Play(-1, 0)
	if c.Length != 0 || c.Rate != 1 || !c.Advance(0) {
		t.Fatalf("expected an empty clock to finish on the first advance, got %+v", c)
	}
}
