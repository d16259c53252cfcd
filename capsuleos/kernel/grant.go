package kernel

import (
	"fmt"
	"unsafe"
)

// Grant is a driver's table of per-process state.
//
// Each process gets its own zero-initialized T, created on first access and
// charged against the process grant budget. A slot belongs to one process
// incarnation: after a restart the old value is discarded and the next Enter
// starts from a fresh T.
type Grant[T any] struct {
	k     *Kernel
	slots [maxProcesses]grantSlot[T]
}

type grantSlot[T any] struct {
	owner   uint32
	data    *T
	entered bool
}

// NewGrant creates a grant for driver num. c must carry RightMemoryAllocation.
func NewGrant[T any](k *Kernel, c Capability, num uint32) (*Grant[T], error) {
	if k == nil {
		return nil, fmt.Errorf("new grant %#x: nil kernel", num)
	}
	if !c.has(RightMemoryAllocation) {
		return nil, fmt.Errorf("new grant %#x: %w", num, ErrCapability)
	}
	return &Grant[T]{k: k}, nil
}

// Enter runs fn with exclusive access to pid's state, allocating it first if
// needed. It fails with ErrNoSuchProcess if pid is not live, ErrOutOfMemory if
// the grant budget is exhausted, and ErrAlreadyInUse if pid's slot is already
// entered further up the stack.
func (g *Grant[T]) Enter(pid ProcessID, fn func(*T)) error {
	p, err := g.k.lookup(pid)
	if err != nil {
		return err
	}

	s := &g.slots[pid.index]
	if s.owner != pid.id || s.data == nil {
		var zero T
		if !p.allocGrant(int(unsafe.Sizeof(zero)), g.k.grantSize) {
			return ErrOutOfMemory
		}
		*s = grantSlot[T]{owner: pid.id, data: new(T)}
	}
	if s.entered {
		return ErrAlreadyInUse
	}

	s.entered = true
	defer func() { s.entered = false }()
	fn(s.data)
	return nil
}

// Each calls fn for every live process that has state in this grant. Slots
// that are currently entered are skipped.
func (g *Grant[T]) Each(fn func(ProcessID, *T)) {
	for i := 0; i < g.k.procCount; i++ {
		s := &g.slots[i]
		if s.data == nil || s.entered {
			continue
		}
		pid := ProcessID{index: uint8(i), id: s.owner}
		if _, err := g.k.lookup(pid); err != nil {
			continue
		}
		g.visit(s, pid, fn)
	}
}

func (g *Grant[T]) visit(s *grantSlot[T], pid ProcessID, fn func(ProcessID, *T)) {
	s.entered = true
	defer func() { s.entered = false }()
	fn(pid, s.data)
}
