package kernel

import (
	"errors"
	"fmt"
)

// ErrorCode is the status code returned to processes in a failure variant.
//
// The numeric values are part of the syscall ABI.
type ErrorCode uint32

const (
	ErrFail ErrorCode = iota + 1
	ErrBusy
	ErrAlready
	ErrOff
	ErrReserve
	ErrInval
	ErrSize
	ErrCancel
	ErrNoMem
	ErrNoSupport
	ErrNoDevice
	ErrUninstalled
	ErrNoAck
)

func (c ErrorCode) String() string {
	switch c {
	case ErrFail:
		return "FAIL"
	case ErrBusy:
		return "BUSY"
	case ErrAlready:
		return "ALREADY"
	case ErrOff:
		return "OFF"
	case ErrReserve:
		return "RESERVE"
	case ErrInval:
		return "INVAL"
	case ErrSize:
		return "SIZE"
	case ErrCancel:
		return "CANCEL"
	case ErrNoMem:
		return "NOMEM"
	case ErrNoSupport:
		return "NOSUPPORT"
	case ErrNoDevice:
		return "NODEVICE"
	case ErrUninstalled:
		return "UNINSTALLED"
	case ErrNoAck:
		return "NOACK"
	default:
		return fmt.Sprintf("ErrorCode(%d)", uint32(c))
	}
}

func (c ErrorCode) Error() string { return c.String() }

// ParseErrorCode returns the code with the given name.
func ParseErrorCode(name string) (ErrorCode, bool) {
	for c := ErrFail; c <= ErrNoAck; c++ {
		if c.String() == name {
			return c, true
		}
	}
	return 0, false
}

// ProcessError reports why the kernel could not act on behalf of a process.
type ProcessError uint8

const (
	ErrNoSuchProcess ProcessError = iota + 1
	ErrOutOfMemory
	ErrAddressOutOfBounds
	ErrAlreadyInUse
	ErrKernelError
)

func (e ProcessError) Error() string {
	switch e {
	case ErrNoSuchProcess:
		return "no such process"
	case ErrOutOfMemory:
		return "out of grant memory"
	case ErrAddressOutOfBounds:
		return "address out of bounds"
	case ErrAlreadyInUse:
		return "grant already entered"
	case ErrKernelError:
		return "kernel error"
	default:
		return "unknown process error"
	}
}

// Code maps the error onto the caller-visible status code.
func (e ProcessError) Code() ErrorCode {
	switch e {
	case ErrOutOfMemory:
		return ErrNoMem
	case ErrAddressOutOfBounds, ErrNoSuchProcess:
		return ErrInval
	default:
		return ErrFail
	}
}

// CodeOf translates err into the single status code a process receives.
// Unrecognized errors become ErrFail.
func CodeOf(err error) ErrorCode {
	var code ErrorCode
	if errors.As(err, &code) {
		return code
	}
	var perr ProcessError
	if errors.As(err, &perr) {
		return perr.Code()
	}
	return ErrFail
}
