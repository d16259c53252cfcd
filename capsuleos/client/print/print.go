package print

import (
	"capsule/capsuleos/kernel"
	"capsule/capsuleos/proto"
)

// Write copies b into the calling process's memory at off.
func Write(ctx *kernel.Context, off uint32, b []byte) error {
	mem := ctx.Memory()
	if mem == nil {
		return kernel.ErrNoSuchProcess
	}
	if uint64(off)+uint64(len(b)) > uint64(len(mem)) {
		return kernel.ErrSize
	}
	copy(mem[off:], b)
	return nil
}

// Allow registers [addr, addr+length) as the print buffer and returns the
// previously registered range.
func Allow(ctx *kernel.Context, addr, length uint32) (prevAddr, prevLen uint32, err error) {
	ret := ctx.AllowReadOnly(proto.DriverPrint, uint32(proto.AllowPrintBuffer), addr, length)
	prevAddr, prevLen, _ = ret.U32U32()
	return prevAddr, prevLen, ret.Err()
}

// Flush prints the currently registered buffer.
func Flush(ctx *kernel.Context) error {
	return ctx.Command(proto.DriverPrint, uint32(proto.CmdPrint), 0, 0).Err()
}

// Print stores b at off, registers it and prints it.
func Print(ctx *kernel.Context, off uint32, b []byte) error {
	if err := Write(ctx, off, b); err != nil {
		return err
	}
	if _, _, err := Allow(ctx, off, uint32(len(b))); err != nil {
		return err
	}
	return Flush(ctx)
}

// Count returns the number of bytes the process has printed.
func Count(ctx *kernel.Context) (uint32, error) {
	ret := ctx.Command(proto.DriverPrint, uint32(proto.CmdCount), 0, 0)
	if err := ret.Err(); err != nil {
		return 0, err
	}
	n, _ := ret.U32()
	return n, nil
}

// Ack probes whether the print driver is present.
func Ack(ctx *kernel.Context) error {
	return ctx.Command(proto.DriverPrint, uint32(proto.CmdAck), 0, 0).Err()
}
