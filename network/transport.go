package network

import (
	"sync"

	"github.com/oomph-ac/locomotion/oerror"
)

// Transport carries encoded frames between the instances of an agent. Implementations must be
// safe for concurrent use.
type Transport interface {
	// Send queues b for delivery. The transport owns b afterwards.
	Send(b []byte) error
	// Receive returns the channel received frames are delivered on. It is closed once the
	// transport is closed.
	Receive() <-chan []byte
	Close() error
}

// ErrClosed is returned when sending on a closed transport.
var ErrClosed = oerror.New("transport closed")

// Pipe returns two connected in-memory transports. Frames sent on one are received on the other
// in order. Sending blocks once size frames are waiting to be received.
func Pipe(size int) (Transport, Transport) {
	a, b := make(chan []byte, size), make(chan []byte, size)
	shared := &pipeState{closed: make(chan struct{})}
	return &pipe{in: a, out: b, pipeState: shared}, &pipe{in: b, out: a, pipeState: shared}
}

// pipeState is shared by both ends of a pipe.
type pipeState struct {
	// mu is held for reading while sending so the channels are not closed under a sender.
	mu     sync.RWMutex
	closed chan struct{}
	once   sync.Once
}

type pipe struct {
	in, out chan []byte
	*pipeState
}

func (p *pipe) Send(b []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	select {
	case <-p.closed:
		return ErrClosed
	default:
	}
	select {
	case p.out <- b:
		return nil
	case <-p.closed:
		return ErrClosed
	}
}

func (p *pipe) Receive() <-chan []byte {
	return p.in
}

// Close closes both ends of the pipe. Frames already sent can still be received.
func (p *pipe) Close() error {
	p.once.Do(func() {
		close(p.closed)
		p.mu.Lock()
		close(p.in)
		close(p.out)
		p.mu.Unlock()
	})
	return nil
}
