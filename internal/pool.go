package internal

import (
	"bytes"
	"sync"
)

// BufferPool holds scratch buffers for snapshot and event encoding.
var BufferPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 128))
	},
}

// GetBuffer returns an empty buffer from BufferPool.
func GetBuffer() *bytes.Buffer {
	buf := BufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns buf to BufferPool. Callers must not retain buf.Bytes().
func PutBuffer(buf *bytes.Buffer) {
	BufferPool.Put(buf)
}
