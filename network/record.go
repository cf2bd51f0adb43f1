package network

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/oomph-ac/locomotion/oerror"
)

// maxFrameSize is the largest frame a Replay accepts.
const maxFrameSize = 1 << 16

// Recorder writes frames to a zstd compressed stream. Every frame is prefixed with its length as
// an unsigned varint.
type Recorder struct {
	mu     sync.Mutex
	enc    *zstd.Encoder
	frames int
}

// NewRecorder returns a recorder writing to w. The recorder must be closed to flush the stream.
func NewRecorder(w io.Writer) (*Recorder, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("create zstd writer: %w", err)
	}
	return &Recorder{enc: enc}, nil
}

// Write appends frame to the recording.
func (r *Recorder) Write(frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var l [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(l[:], uint64(len(frame)))
	if _, err := r.enc.Write(l[:n]); err != nil {
		return fmt.Errorf("write frame length: %w", err)
	}
	if _, err := r.enc.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	r.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close flushes the recording. It does not close the underlying writer.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc.Close()
}

// Replay reads the frames written by a Recorder.
type Replay struct {
	dec *zstd.Decoder
	r   *bufio.Reader
}

// NewReplay returns a replay reading from r.
func NewReplay(r io.Reader) (*Replay, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("create zstd reader: %w", err)
	}
	return &Replay{dec: dec, r: bufio.NewReader(dec)}, nil
}

// NextFrame returns the next raw frame. It returns io.EOF once the recording ended.
func (p *Replay) NextFrame() ([]byte, error) {
	l, err := binary.ReadUvarint(p.r)
	if err != nil {
		return nil, err
	}
	if l > maxFrameSize {
		return nil, oerror.New("recorded frame of %d bytes exceeds the limit of %d", l, maxFrameSize)
	}
	frame := make([]byte, l)
	if _, err := io.ReadFull(p.r, frame); err != nil {
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return frame, nil
}

// Next decodes the next frame. It returns io.EOF once the recording ended.
func (p *Replay) Next() (Message, error) {
	frame, err := p.NextFrame()
	if err != nil {
		return nil, err
	}
	return Decode(frame)
}

// Close ...
func (p *Replay) Close() {
	p.dec.Close()
}
