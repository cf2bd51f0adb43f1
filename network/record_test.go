package network

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/oomph-ac/locomotion/movement"
)

func TestRecordingRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	rec, err := NewRecorder(&buf)
	if err != nil {
		t.Fatalf("unexpected error creating recorder: %v", err)
	}
	for seq := uint64(1); seq <= 3; seq++ {
		b, err := Encode(&Snapshot{Sequence: seq, Rotation: mgl64.QuatIdent(), Mode: movement.ModeWalking})
		if err != nil {
			t.Fatalf("unexpected encode error: %v", err)
		}
		if err := rec.Write(b); err != nil {
			t.Fatalf("unexpected write error: %v", err)
		}
	}
	if rec.Frames() != 3 {
		t.Fatalf("expected 3 frames, got %d", rec.Frames())
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	replay, err := NewReplay(&buf)
	if err != nil {
		t.Fatalf("unexpected error creating replay: %v", err)
	}
	defer replay.Close()
	for seq := uint64(1); seq <= 3; seq++ {
		m, err := replay.Next()
		if err != nil {
			t.Fatalf("unexpected error reading frame %d: %v", seq, err)
		}
		if s, ok := m.(*Snapshot); !ok || s.Sequence != seq {
			t.Fatalf("expected snapshot %d, got %+v", seq, m)
		}
	}
	if _, err := replay.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected the replay to end, got %v", err)
	}
}
