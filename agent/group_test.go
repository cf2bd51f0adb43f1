package agent

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/settings"
	"github.com/oomph-ac/locomotion/worker"
)

func TestGroupTicksEveryAgent(t *testing.T) {
	pool := worker.New(2)
	defer pool.Close()

	w := flatWorld()
	g := NewGroup(pool)
	for i, id := range []string{"a", "b", "c"} {
		g.Add(New(id, settings.DefaultSettings(), w, WithTransform(mgl64.Vec3{0, float64(i) * 200, standingZ}, mgl64.QuatIdent())))
	}
	if g.Len() != 3 {
		t.Fatalf("expected three agents, got %d", g.Len())
	}

	var results []float64
	for range 10 {
		res := g.Tick(dt, func(a *Agent) Input {
			if a.ID() == "b" {
				return Input{}
			}
			return Input{Move: forward}
		})
		results = results[:0]
		for _, r := range res {
			results = append(results, r.Location.X())
		}
	}
	if results[0] <= 0 || results[1] != 0 || results[2] <= 0 {
		t.Fatalf("expected only agents with input to move, got x %v", results)
	}
	if b, _ := g.Agent("b"); b.Component().Location().Y() != 200 {
		t.Fatalf("expected agent b to stay in place, got %v", b.Component().Location())
	}

	if !g.Remove("b") || g.Remove("b") {
		t.Fatalf("expected agent b to be removed once")
	}
	if res := g.Tick(dt, nil); len(res) != 2 {
		t.Fatalf("expected two results after removing an agent, got %d", len(res))
	}
}
