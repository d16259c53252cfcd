package kernel

import (
	"strconv"
	"sync/atomic"
	"unicode/utf8"
)

// MaxDebugBytes is the largest message a DebugQueue slot holds.
const MaxDebugBytes = 1024

const debugSlots = 8

// DebugWriter is the kernel's log sink: it accepts one UTF-8 text message per
// call and reports nothing back.
type DebugWriter interface {
	WriteLineString(s string)
}

type debugMessage struct {
	n    uint16
	data [MaxDebugBytes]byte
}

// DebugQueue buffers kernel notices raised inside a quantum until the board
// drains them to the output device.
//
// It is a fixed-size single-producer/single-consumer queue: no allocations,
// and writes never block. Messages that do not fit are counted and reported on
// the next Flush.
type DebugQueue struct {
	_       noCopy
	head    atomic.Uint32
	tail    atomic.Uint32
	dropped atomic.Uint32
	slots   [debugSlots]debugMessage
}

// WriteLineString implements DebugWriter.
func (q *DebugQueue) WriteLineString(s string) {
	if !q.TryPush(s) {
		q.dropped.Add(1)
	}
}

// TryPush enqueues s, returning false if the queue is full. Messages longer
// than MaxDebugBytes are cut at a rune boundary.
func (q *DebugQueue) TryPush(s string) bool {
	head := q.head.Load()
	tail := q.tail.Load()
	if head-tail >= debugSlots {
		return false
	}

	if len(s) > MaxDebugBytes {
		cut := MaxDebugBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	slot := &q.slots[head%debugSlots]
	slot.n = uint16(copy(slot.data[:], s))
	q.head.Store(head + 1)
	return true
}

// Len returns the number of queued messages.
func (q *DebugQueue) Len() int {
	return int(q.head.Load() - q.tail.Load())
}

// Dropped returns the number of messages dropped since the last Flush.
func (q *DebugQueue) Dropped() uint32 { return q.dropped.Load() }

// Flush writes every queued message to w in order, followed by a notice if
// messages were dropped. It returns the number of lines written.
func (q *DebugQueue) Flush(w DebugWriter) int {
	n := 0
	for {
		tail := q.tail.Load()
		if tail == q.head.Load() {
			break
		}
		slot := &q.slots[tail%debugSlots]
		line := string(slot.data[:slot.n])
		q.tail.Store(tail + 1)
		if w != nil {
			w.WriteLineString(line)
		}
		n++
	}
	if d := q.dropped.Swap(0); d > 0 {
		if w != nil {
			w.WriteLineString("debug: " + strconv.FormatUint(uint64(d), 10) + " messages dropped")
		}
		n++
	}
	return n
}

// noCopy lets go vet's copylocks check flag a DebugQueue passed by value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
