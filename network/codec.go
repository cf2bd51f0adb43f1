package network

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/oomph-ac/locomotion/internal"
	"github.com/oomph-ac/locomotion/oerror"
	"github.com/sandertv/gophertunnel/minecraft/protocol"
	"github.com/zeebo/xxh3"
)

// checksumSize is the size of the xxh3 checksum trailing every frame.
const checksumSize = 8

// String ...
func (k Kind) String() string {
	switch k {
	case KindSnapshot:
		return "snapshot"
	case KindMove:
		return "move"
	case KindEvent:
		return "event"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Encode writes m into a frame holding its kind, its fields and an xxh3 checksum of both.
// Vectors are sent as float32, so Encode leaves m holding the values the receiver decodes.
func Encode(m Message) (b []byte, err error) {
	buf := internal.GetBuffer()
	defer internal.PutBuffer(buf)
	defer func() {
		if r := recover(); r != nil {
			b, err = nil, oerror.New("error encoding %v: %v", m.Kind(), r)
		}
	}()

	buf.WriteByte(byte(m.Kind()))
	m.Marshal(protocol.NewWriter(buf, 0))

	b = make([]byte, buf.Len(), buf.Len()+checksumSize)
	copy(b, buf.Bytes())
	return binary.LittleEndian.AppendUint64(b, xxh3.Hash(b)), nil
}

// Decode reads a frame written by Encode. Frames with a bad checksum, an unknown kind, invalid
// fields or trailing bytes are rejected.
func Decode(b []byte) (m Message, err error) {
	sum, ok := Checksum(b)
	if !ok {
		return nil, oerror.New("frame too short: %d bytes", len(b))
	}
	payload := b[:len(b)-checksumSize]
	if got := xxh3.Hash(payload); got != sum {
		return nil, oerror.New("checksum mismatch: frame has %x, payload hashes to %x", sum, got)
	}

	switch kind := Kind(payload[0]); kind {
	case KindSnapshot:
		m = &Snapshot{}
	case KindMove:
		m = &Move{}
	case KindEvent:
		m = &Event{}
	default:
		return nil, oerror.New("unknown message kind %v", kind)
	}

	buf := bytes.NewBuffer(payload[1:])
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, oerror.New("error decoding %v: %v", m.Kind(), r)
		}
	}()
	m.Marshal(protocol.NewReader(buf, 0, false))
	if buf.Len() != 0 {
		return nil, oerror.New("%d unread bytes after %v", buf.Len(), m.Kind())
	}
	return m, nil
}

// Checksum returns the checksum trailing frame b. It returns false if b cannot be a frame.
func Checksum(b []byte) (uint64, bool) {
	if len(b) <= checksumSize {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b[len(b)-checksumSize:]), true
}
