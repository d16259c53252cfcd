package kernel

import "testing"

const testDriverNum = 0x99

type noteState struct {
	notes uint32
	buf   ReadOnlyProcessBuffer
}

// noteDriver counts commands per process and keeps one allowed buffer.
type noteDriver struct {
	grant *Grant[noteState]
}

func newNoteDriver(t *testing.T, k *Kernel) *noteDriver {
	t.Helper()
	g, err := NewGrant[noteState](k, k.MintCapability(RightMemoryAllocation), testDriverNum)
	if err != nil {
		t.Fatalf("NewGrant() err = %v", err)
	}
	d := &noteDriver{grant: g}
	if err := k.RegisterDriver(testDriverNum, d); err != nil {
		t.Fatalf("RegisterDriver() err = %v", err)
	}
	return d
}

func (d *noteDriver) Command(cmd, arg1, arg2 uint32, pid ProcessID) SyscallReturn {
	var n uint32
	err := d.grant.Enter(pid, func(s *noteState) {
		s.notes++
		n = s.notes
	})
	if err != nil {
		return ReturnFailure(CodeOf(err))
	}
	return ReturnSuccessU32(n)
}

func (d *noteDriver) AllowReadOnly(pid ProcessID, num uint32, buf ReadOnlyProcessBuffer) (ReadOnlyProcessBuffer, error) {
	if num != 0 {
		return buf, ErrNoSupport
	}
	err := d.grant.Enter(pid, func(s *noteState) {
		s.buf, buf = buf, s.buf
	})
	return buf, err
}

func (d *noteDriver) AllocateGrant(pid ProcessID) error {
	return d.grant.Enter(pid, func(*noteState) {})
}

func (d *noteDriver) counts() map[ProcessID]uint32 {
	out := map[ProcessID]uint32{}
	d.grant.Each(func(pid ProcessID, s *noteState) { out[pid] = s.notes })
	return out
}

func idle(*Context) {}

func mustLoad(t *testing.T, k *Kernel, name string, app App) ProcessID {
	t.Helper()
	pid, err := k.LoadProcess(name, app)
	if err != nil {
		t.Fatalf("LoadProcess(%q) err = %v", name, err)
	}
	return pid
}

func newTestKernel(t *testing.T, opts ...Option) *Kernel {
	t.Helper()
	k := New(opts...)
	t.Cleanup(func() {
		if err := k.Close(); err != nil {
			t.Errorf("Close() err = %v", err)
		}
	})
	return k
}

// once returns an app that runs fn in its first quantum and then exits.
func once(fn func(*Context)) App {
	return AppFunc(func(ctx *Context) {
		fn(ctx)
		ctx.Exit(0)
	})
}

// run loads fn as a one-shot process and runs the kernel until it is idle.
// Other processes must not be runnable forever.
func run(t *testing.T, k *Kernel, fn func(*Context)) ProcessID {
	t.Helper()
	pid := mustLoad(t, k, t.Name(), once(fn))
	if n := k.RunUntilIdle(1000); n == 1000 {
		t.Fatalf("RunUntilIdle() did not go idle")
	}
	return pid
}
