package kernel

import (
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"
)

type lineRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *lineRecorder) WriteLineString(s string) {
	r.mu.Lock()
	r.lines = append(r.lines, s)
	r.mu.Unlock()
}

func TestDebugQueueFlushEmpty(t *testing.T) {
	var q DebugQueue
	var rec lineRecorder

	if n := q.Flush(&rec); n != 0 {
		t.Fatalf("Flush() = %d, want 0", n)
	}
	if len(rec.lines) != 0 {
		t.Fatalf("Flush() wrote %v", rec.lines)
	}
}

func TestDebugQueueFull(t *testing.T) {
	var q DebugQueue

	for i := 0; i < debugSlots; i++ {
		if ok := q.TryPush("m" + strconv.Itoa(i)); !ok {
			t.Fatalf("TryPush() ok = false at slot %d, want true", i)
		}
	}
	if ok := q.TryPush("extra"); ok {
		t.Fatalf("TryPush() ok = true when full, want false")
	}
	q.WriteLineString("dropped")
	if q.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", q.Dropped())
	}

	var rec lineRecorder
	if n := q.Flush(&rec); n != debugSlots+1 {
		t.Fatalf("Flush() = %d, want %d", n, debugSlots+1)
	}
	for i := 0; i < debugSlots; i++ {
		if want := "m" + strconv.Itoa(i); rec.lines[i] != want {
			t.Fatalf("line %d = %q, want %q", i, rec.lines[i], want)
		}
	}
	if last := rec.lines[debugSlots]; last != "debug: 1 messages dropped" {
		t.Fatalf("drop notice = %q", last)
	}
	if q.Len() != 0 || q.Dropped() != 0 {
		t.Fatalf("after Flush Len() = %d, Dropped() = %d", q.Len(), q.Dropped())
	}
}

func TestDebugQueueTruncatesAtRuneBoundary(t *testing.T) {
	var q DebugQueue
	msg := strings.Repeat("a", MaxDebugBytes-1) + "é"

	q.WriteLineString(msg)

	var rec lineRecorder
	q.Flush(&rec)
	if got := rec.lines[0]; got != strings.Repeat("a", MaxDebugBytes-1) {
		t.Fatalf("truncated length = %d, want %d", len(got), MaxDebugBytes-1)
	}
}

func TestDebugQueueConcurrent(t *testing.T) {
	oldProcs := runtime.GOMAXPROCS(2)
	defer runtime.GOMAXPROCS(oldProcs)

	const total = 10_000

	var q DebugQueue
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < total; i++ {
			for !q.TryPush(strconv.Itoa(i)) {
				runtime.Gosched()
			}
		}
	}()

	var rec lineRecorder
	for len(rec.lines) < total {
		if q.Flush(&rec) == 0 {
			runtime.Gosched()
		}
	}
	<-done

	for i, line := range rec.lines {
		if line != strconv.Itoa(i) {
			t.Fatalf("line %d = %q, want in-order delivery", i, line)
		}
	}
}

func TestDebugQueueCarriesLocker(t *testing.T) {
	field := reflect.TypeOf((*DebugQueue)(nil)).Elem().Field(0)
	locker := reflect.TypeOf((*sync.Locker)(nil)).Elem()
	if !reflect.PointerTo(field.Type).Implements(locker) {
		t.Fatalf("DebugQueue first field %s does not implement sync.Locker", field.Type)
	}
}
