package agent

import (
	"sync"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/oomph-ac/locomotion/movement"
	"github.com/oomph-ac/locomotion/worker"
)

// Group ticks the agents of one world in parallel. Agents only read the world while ticking, so
// anything moving the world, such as world.World.Tick, must happen between calls to Tick.
type Group struct {
	pool *worker.Pool

	mu     sync.Mutex
	agents *orderedmap.OrderedMap[string, *Agent]
}

// NewGroup returns an empty group ticking its agents on pool.
func NewGroup(pool *worker.Pool) *Group {
	return &Group{pool: pool, agents: orderedmap.NewOrderedMap[string, *Agent]()}
}

// Add adds a to the group, replacing any agent with the same ID.
func (g *Group) Add(a *Agent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.agents.Set(a.ID(), a)
}

// Remove ...
func (g *Group) Remove(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.agents.Delete(id)
}

// Agent ...
func (g *Group) Agent(id string) (*Agent, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.agents.Get(id)
}

// Len ...
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.agents.Len()
}

// Tick advances every agent by dt with the input returned by input, which is called on the
// goroutine ticking that agent. The results are returned in the order the agents were added.
func (g *Group) Tick(dt float64, input func(a *Agent) Input) []movement.TickResult {
	g.mu.Lock()
	agents := make([]*Agent, 0, g.agents.Len())
	for el := g.agents.Front(); el != nil; el = el.Next() {
		agents = append(agents, el.Value)
	}
	g.mu.Unlock()

	results := make([]movement.TickResult, len(agents))
	jobs := make([]func(), len(agents))
	for i, a := range agents {
		jobs[i] = func() {
			var in Input
			if input != nil {
				in = input(a)
			}
			results[i] = a.Tick(dt, in)
		}
	}
	g.pool.Run(jobs...)
	return results
}
