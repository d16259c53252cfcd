package kernel

import "fmt"

// ReturnVariant selects the layout of a SyscallReturn in the return registers.
type ReturnVariant uint32

const (
	Failure       ReturnVariant = 0
	FailureU32    ReturnVariant = 1
	FailureU32U32 ReturnVariant = 2
	Success       ReturnVariant = 128
	SuccessU32    ReturnVariant = 129
	SuccessU32U32 ReturnVariant = 130
)

func (v ReturnVariant) String() string {
	switch v {
	case Failure:
		return "failure"
	case FailureU32:
		return "failure_u32"
	case FailureU32U32:
		return "failure_u32_u32"
	case Success:
		return "success"
	case SuccessU32:
		return "success_u32"
	case SuccessU32U32:
		return "success_u32_u32"
	default:
		return fmt.Sprintf("variant(%d)", uint32(v))
	}
}

// SyscallReturn is the value handed back to a process across the kernel boundary.
//
// Failures carry the ErrorCode in r1; payload words follow it.
type SyscallReturn struct {
	variant ReturnVariant
	r1      uint32
	r2      uint32
	r3      uint32
}

// ReturnSuccess returns a success with no payload.
func ReturnSuccess() SyscallReturn { return SyscallReturn{variant: Success} }

// ReturnSuccessU32 returns a success carrying one word.
func ReturnSuccessU32(v uint32) SyscallReturn {
	return SyscallReturn{variant: SuccessU32, r1: v}
}

// ReturnSuccessU32U32 returns a success carrying two words.
func ReturnSuccessU32U32(a, b uint32) SyscallReturn {
	return SyscallReturn{variant: SuccessU32U32, r1: a, r2: b}
}

// ReturnFailure returns a failure with no payload.
func ReturnFailure(code ErrorCode) SyscallReturn {
	return SyscallReturn{variant: Failure, r1: uint32(code)}
}

// ReturnFailureU32U32 returns a failure carrying two words.
func ReturnFailureU32U32(code ErrorCode, a, b uint32) SyscallReturn {
	return SyscallReturn{variant: FailureU32U32, r1: uint32(code), r2: a, r3: b}
}

func (r SyscallReturn) Variant() ReturnVariant { return r.variant }

// IsSuccess reports whether r is one of the success variants.
func (r SyscallReturn) IsSuccess() bool { return r.variant >= Success }

// Code returns the error code of a failure. It is zero for successes.
func (r SyscallReturn) Code() ErrorCode {
	if r.IsSuccess() {
		return 0
	}
	return ErrorCode(r.r1)
}

// Err returns the failure code as an error, or nil on success.
func (r SyscallReturn) Err() error {
	if r.IsSuccess() {
		return nil
	}
	return r.Code()
}

// U32 returns the first payload word of a SuccessU32 return.
func (r SyscallReturn) U32() (uint32, bool) {
	if r.variant != SuccessU32 {
		return 0, false
	}
	return r.r1, true
}

// U32U32 returns the two payload words of a U32U32 return, success or failure.
func (r SyscallReturn) U32U32() (a, b uint32, ok bool) {
	switch r.variant {
	case SuccessU32U32:
		return r.r1, r.r2, true
	case FailureU32U32:
		return r.r2, r.r3, true
	default:
		return 0, 0, false
	}
}

// Registers returns the register image seen by the process: r0 holds the
// variant, r1..r3 the payload.
func (r SyscallReturn) Registers() [4]uint32 {
	return [4]uint32{uint32(r.variant), r.r1, r.r2, r.r3}
}

func (r SyscallReturn) String() string {
	switch r.variant {
	case Success:
		return "success"
	case SuccessU32:
		return fmt.Sprintf("success(%d)", r.r1)
	case SuccessU32U32:
		return fmt.Sprintf("success(%d, %d)", r.r1, r.r2)
	case FailureU32U32:
		return fmt.Sprintf("failure(%s, %d, %d)", ErrorCode(r.r1), r.r2, r.r3)
	default:
		return fmt.Sprintf("failure(%s)", ErrorCode(r.r1))
	}
}

// SyscallDriver is a kernel-resident driver reachable through a driver number.
type SyscallDriver interface {
	// Command runs command cmd for the calling process.
	Command(cmd, arg1, arg2 uint32, pid ProcessID) SyscallReturn

	// AllowReadOnly offers buf to the driver under allow number num. On
	// success it returns the buffer previously held for num. On failure it
	// returns the offered buffer unchanged together with the error.
	AllowReadOnly(pid ProcessID, num uint32, buf ReadOnlyProcessBuffer) (ReadOnlyProcessBuffer, error)

	// AllocateGrant creates the driver's per-process state ahead of use.
	AllocateGrant(pid ProcessID) error
}

// Subscriber is implemented by drivers that deliver upcalls.
type Subscriber interface {
	Subscribe(pid ProcessID, num uint32) error
}

// RegisterDriver makes d reachable under the driver number num.
func (k *Kernel) RegisterDriver(num uint32, d SyscallDriver) error {
	if d == nil {
		return fmt.Errorf("register driver %#x: nil driver", num)
	}
	if _, ok := k.drivers[num]; ok {
		return fmt.Errorf("register driver %#x: %w", num, ErrAlready)
	}
	k.drivers[num] = d
	return nil
}

func (k *Kernel) driver(num uint32) (SyscallDriver, bool) {
	d, ok := k.drivers[num]
	return d, ok
}
