package kernel

import (
	"fmt"

	"go.uber.org/zap"
)

// ReadOnlyProcessBuffer is a revocable, read-only handle to a byte range in a
// process's memory. The zero value is the empty handle.
//
// Holding a handle does not give access to the bytes; Enter does, and only for
// the duration of the call.
type ReadOnlyProcessBuffer struct {
	k      *Kernel
	pid    ProcessID
	addr   uint32
	length uint32
}

// newReadOnlyBuffer validates [addr, addr+length) against pid's memory.
// A zero-length range is always accepted.
func (k *Kernel) newReadOnlyBuffer(pid ProcessID, addr, length uint32) (ReadOnlyProcessBuffer, error) {
	p, err := k.lookup(pid)
	if err != nil {
		return ReadOnlyProcessBuffer{}, err
	}
	if length > 0 {
		if _, ok := p.mem.view(addr, length); !ok {
			return ReadOnlyProcessBuffer{}, ErrAddressOutOfBounds
		}
	}
	return ReadOnlyProcessBuffer{k: k, pid: pid, addr: addr, length: length}, nil
}

// Addr returns the start address in the owning process's memory.
func (b ReadOnlyProcessBuffer) Addr() uint32 { return b.addr }

// Len returns the length of the range.
func (b ReadOnlyProcessBuffer) Len() int { return int(b.length) }

// ProcessID returns the owner. It is the zero ID for the empty handle.
func (b ReadOnlyProcessBuffer) ProcessID() ProcessID { return b.pid }

func (b ReadOnlyProcessBuffer) String() string {
	if b.k == nil {
		return "buffer(empty)"
	}
	return fmt.Sprintf("buffer(%s, %#x+%d)", b.pid, b.addr, b.length)
}

// Enter borrows the buffer's bytes for the duration of fn. The empty handle
// and zero-length ranges yield an empty slice. It fails with ErrNoSuchProcess if the owner is no
// longer live.
//
// The slice passed to fn is invalidated when fn returns.
func (b ReadOnlyProcessBuffer) Enter(fn func(*ReadableProcessSlice)) error {
	if b.k == nil {
		fn(&ReadableProcessSlice{})
		return nil
	}

	p, err := b.k.lookup(b.pid)
	if err != nil {
		return err
	}
	if b.length == 0 {
		fn(&ReadableProcessSlice{})
		return nil
	}
	view, ok := p.mem.view(b.addr, b.length)
	if !ok {
		return ErrAddressOutOfBounds
	}
	if err := p.mem.borrow(); err != nil {
		b.k.log.Error("borrow process memory", zap.Stringer("pid", b.pid), zap.Error(err))
		return ErrKernelError
	}

	s := &ReadableProcessSlice{b: view}
	defer func() {
		s.b = nil
		if err := p.mem.unborrow(); err != nil {
			b.k.log.Error("release process memory", zap.Stringer("pid", b.pid), zap.Error(err))
		}
	}()
	fn(s)
	return nil
}

// ReadableProcessSlice is the read-only view handed out by
// ReadOnlyProcessBuffer.Enter.
type ReadableProcessSlice struct {
	b []byte
}

// Len returns the number of readable bytes.
func (s *ReadableProcessSlice) Len() int { return len(s.b) }

// At returns byte i. It panics if i is out of range.
func (s *ReadableProcessSlice) At(i int) byte { return s.b[i] }

// CopyTo copies the whole view into dst, which must be exactly Len bytes.
func (s *ReadableProcessSlice) CopyTo(dst []byte) error {
	if len(dst) != len(s.b) {
		return ErrSize
	}
	copy(dst, s.b)
	return nil
}
