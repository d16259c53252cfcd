package hal

import (
	"io"
	"sync"
)

// ringSize is the capacity of a RingLogger. It must be a power of 2.
const ringSize = 4096

// RingLogger keeps the most recent log output in a fixed ring so it can be
// dumped later, like a kernel message buffer. Old bytes are overwritten once
// the ring is full.
type RingLogger struct {
	mu             sync.Mutex
	buffer         [ringSize]byte
	rIndex, wIndex int
}

// NewRingLogger returns an empty RingLogger.
func NewRingLogger() *RingLogger {
	return &RingLogger{}
}

func (rb *RingLogger) WriteLineString(s string) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	for i := 0; i < len(s); i++ {
		rb.put(s[i])
	}
	rb.put('\n')
}

func (rb *RingLogger) WriteLineBytes(b []byte) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	for _, c := range b {
		rb.put(c)
	}
	rb.put('\n')
}

func (rb *RingLogger) put(b byte) {
	rb.buffer[rb.wIndex] = b
	rb.wIndex = (rb.wIndex + 1) & (ringSize - 1)
	if rb.rIndex == rb.wIndex {
		rb.rIndex = (rb.rIndex + 1) & (ringSize - 1)
	}
}

// Read reads up to len(p) unread bytes into p. It returns io.EOF once the
// ring is drained.
func (rb *RingLogger) Read(p []byte) (n int, err error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	switch {
	case rb.rIndex < rb.wIndex:
		n = rb.wIndex - rb.rIndex
		if pLen := len(p); pLen < n {
			n = pLen
		}
		copy(p, rb.buffer[rb.rIndex:rb.rIndex+n])
		rb.rIndex += n
		return n, nil
	case rb.rIndex > rb.wIndex:
		n = len(rb.buffer) - rb.rIndex
		if pLen := len(p); pLen < n {
			n = pLen
		}
		copy(p, rb.buffer[rb.rIndex:rb.rIndex+n])
		rb.rIndex += n
		if rb.rIndex == len(rb.buffer) {
			rb.rIndex = 0
		}
		return n, nil
	default:
		return 0, io.EOF
	}
}

// Bytes drains the ring and returns its contents.
func (rb *RingLogger) Bytes() []byte {
	out, _ := io.ReadAll(rb)
	return out
}
