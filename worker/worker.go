package worker

import (
	"runtime"
	"sync"

	"github.com/getsentry/sentry-go"
)

// Pool runs functions on a fixed number of goroutines. A panicking function is reported to
// sentry and does not take its worker down.
type Pool struct {
	queue chan func()
	once  sync.Once
	wg    sync.WaitGroup
}

// New starts a pool with n workers. A non-positive n uses one worker per CPU.
func New(n int) *Pool {
	if n <= 0 {
		n = runtime.NumCPU()
	}
	p := &Pool{queue: make(chan func(), n)}
	p.wg.Add(n)
	for range n {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for f := range p.queue {
		run(f)
	}
}

func run(f func()) {
	defer sentry.Recover()
	f()
}

// Submit queues f. To be used by a function that may be CPU intensive. Submit blocks while every
// worker is busy and the queue is full, and panics if the pool was closed.
func (p *Pool) Submit(f func()) {
	p.queue <- f
}

// Run submits every function in fs and waits for all of them to return.
func (p *Pool) Run(fs ...func()) {
	var wg sync.WaitGroup
	wg.Add(len(fs))
	for _, f := range fs {
		p.Submit(func() {
			defer wg.Done()
			f()
		})
	}
	wg.Wait()
}

// Close stops the workers once the queued functions ran.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.queue)
	})
	p.wg.Wait()
}
