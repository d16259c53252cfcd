// Package print implements the print driver: a process registers a read-only
// buffer and asks the kernel to forward its contents, as UTF-8 text, to the
// kernel log sink.
//
// Commands:
//
//	0 -> acknowledge
//	1 -> print the registered buffer
//	2 -> bytes printed so far
//
// Allow (read-only):
//
//	0 -> buffer to print
package print

import (
	"errors"
	"math"
	"unicode/utf8"

	"capsule/capsuleos/kernel"
	"capsule/capsuleos/proto"

	"go.uber.org/zap"
)

// DriverNum is the driver number the print driver is registered under.
const DriverNum = proto.DriverPrint

const bufSize = proto.PrintBufferSize

type appStorage struct {
	counter uint32
	buffer  kernel.ReadOnlyProcessBuffer
}

// Driver is the print driver.
type Driver struct {
	grant   *kernel.Grant[appStorage]
	sink    kernel.DebugWriter
	log     *zap.Logger
	metrics *Metrics

	// staging is reused by every print; only staging[:n] of the current
	// print is ever read.
	staging [bufSize]byte
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the logger used for rejection diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.log = l
		}
	}
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// Register creates the driver's grant and makes it reachable as DriverNum.
// c must carry kernel.RightMemoryAllocation.
func Register(k *kernel.Kernel, c kernel.Capability, sink kernel.DebugWriter, opts ...Option) (*Driver, error) {
	if sink == nil {
		return nil, errors.New("print: nil log sink")
	}
	grant, err := kernel.NewGrant[appStorage](k, c, DriverNum)
	if err != nil {
		return nil, err
	}
	d := &Driver{grant: grant, sink: sink, log: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	if err := k.RegisterDriver(DriverNum, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Command implements kernel.SyscallDriver.
func (d *Driver) Command(cmd, arg1, arg2 uint32, pid kernel.ProcessID) kernel.SyscallReturn {
	_, _ = arg1, arg2
	ret := d.command(proto.Command(cmd), pid)
	d.metrics.observeCommand(proto.Command(cmd), ret)
	return ret
}

func (d *Driver) command(cmd proto.Command, pid kernel.ProcessID) kernel.SyscallReturn {
	switch cmd {
	case proto.CmdAck:
		return kernel.ReturnSuccess()

	case proto.CmdPrint:
		n, err := d.print(pid)
		if err != nil {
			d.log.Debug("print rejected",
				zap.Stringer("pid", pid),
				zap.Stringer("code", kernel.CodeOf(err)),
				zap.Error(err),
			)
			return kernel.ReturnFailure(kernel.CodeOf(err))
		}
		d.metrics.observePrinted(n)
		return kernel.ReturnSuccess()

	case proto.CmdCount:
		var counter uint32
		err := d.grant.Enter(pid, func(s *appStorage) {
			counter = s.counter
		})
		if err != nil {
			return kernel.ReturnFailure(kernel.CodeOf(err))
		}
		return kernel.ReturnSuccessU32(counter)

	default:
		return kernel.ReturnFailure(kernel.ErrNoSupport)
	}
}

// print forwards pid's registered buffer to the sink and returns the number
// of bytes forwarded. Nothing reaches the sink and the counter is unchanged
// unless the whole buffer fits the staging area and is valid UTF-8.
func (d *Driver) print(pid kernel.ProcessID) (int, error) {
	var (
		n        int
		printErr error
	)
	err := d.grant.Enter(pid, func(s *appStorage) {
		err := s.buffer.Enter(func(buf *kernel.ReadableProcessSlice) {
			n, printErr = d.stage(buf)
		})
		if err != nil {
			printErr = err
			return
		}
		if printErr != nil {
			return
		}
		d.sink.WriteLineString(string(d.staging[:n]))
		s.counter = addSaturating(s.counter, uint32(n))
	})
	if err != nil {
		return 0, err
	}
	return n, printErr
}

// stage copies buf into the staging area and validates it.
func (d *Driver) stage(buf *kernel.ReadableProcessSlice) (int, error) {
	n := buf.Len()
	if n > len(d.staging) {
		return 0, kernel.ErrSize
	}
	if err := buf.CopyTo(d.staging[:n]); err != nil {
		return 0, err
	}
	if !utf8.Valid(d.staging[:n]) {
		return 0, kernel.ErrInval
	}
	return n, nil
}

// AllowReadOnly implements kernel.SyscallDriver. Only AllowPrintBuffer is
// recognized; the new buffer replaces the old one, which is handed back.
func (d *Driver) AllowReadOnly(pid kernel.ProcessID, num uint32, buf kernel.ReadOnlyProcessBuffer) (kernel.ReadOnlyProcessBuffer, error) {
	if proto.Allow(num) != proto.AllowPrintBuffer {
		d.metrics.observeAllow(kernel.ErrNoSupport)
		return buf, kernel.ErrNoSupport
	}
	err := d.grant.Enter(pid, func(s *appStorage) {
		s.buffer, buf = buf, s.buffer
	})
	d.metrics.observeAllow(err)
	if err != nil {
		return buf, err
	}
	return buf, nil
}

// AllocateGrant implements kernel.SyscallDriver.
func (d *Driver) AllocateGrant(pid kernel.ProcessID) error {
	return d.grant.Enter(pid, func(*appStorage) {})
}

// Counters returns the byte counter of every process that has driver state.
func (d *Driver) Counters() map[kernel.ProcessID]uint32 {
	out := make(map[kernel.ProcessID]uint32)
	d.grant.Each(func(pid kernel.ProcessID, s *appStorage) {
		out[pid] = s.counter
	})
	return out
}

// addSaturating adds n to c, sticking at math.MaxUint32 instead of wrapping.
func addSaturating(c, n uint32) uint32 {
	if n > math.MaxUint32-c {
		return math.MaxUint32
	}
	return c + n
}
