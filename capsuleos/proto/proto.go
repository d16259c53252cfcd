// Package proto holds the driver numbers and call numbers shared by kernel
// drivers and userland.
package proto

import "fmt"

// DriverPrint is the driver number of the print driver.
const DriverPrint uint32 = 0xa0001

// PrintBufferSize is the most bytes a single print command forwards.
const PrintBufferSize = 1024

// Command is a command number of the print driver.
type Command uint32

const (
	CmdAck Command = iota
	CmdPrint
	CmdCount
)

func (c Command) String() string {
	switch c {
	case CmdAck:
		return "ack"
	case CmdPrint:
		return "print"
	case CmdCount:
		return "count"
	default:
		return fmt.Sprintf("cmd%d", uint32(c))
	}
}

// Allow is a read-only allow number of the print driver.
type Allow uint32

// AllowPrintBuffer registers the buffer printed by CmdPrint.
const AllowPrintBuffer Allow = 0

func (a Allow) String() string {
	if a == AllowPrintBuffer {
		return "buffer"
	}
	return fmt.Sprintf("allow%d", uint32(a))
}
