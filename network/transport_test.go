package network

import (
	"bytes"
	"errors"
	"testing"
)

func TestPipe(t *testing.T) {
	a, b := Pipe(4)
	if err := a.Send([]byte{1}); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if err := b.Send([]byte{2}); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if got := <-b.Receive(); !bytes.Equal(got, []byte{1}) {
		t.Fatalf("expected the frame sent on a, got %v", got)
	}
	if got := <-a.Receive(); !bytes.Equal(got, []byte{2}) {
		t.Fatalf("expected the frame sent on b, got %v", got)
	}

	_ = a.Send([]byte{3})
	if err := a.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := b.Send([]byte{4}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected sending on a closed pipe to fail, got %v", err)
	}
	if got, ok := <-b.Receive(); !ok || !bytes.Equal(got, []byte{3}) {
		t.Fatalf("expected frames sent before closing to arrive, got %v", got)
	}
	if _, ok := <-b.Receive(); ok {
		t.Fatalf("expected the receive channel to be closed")
	}
}
