package kernel

import (
	"fmt"

	"go.uber.org/zap"
)

// PanicInfo contains details about a recovered process fault.
type PanicInfo struct {
	Process  ProcessID
	Name     string
	Value    any
	Stack    []byte
	Restarts int
}

// fault handles a panic raised while slot idx was running. The kernel keeps
// running; the process is stopped or restarted according to the fault policy.
func (k *Kernel) fault(idx int, value any) {
	p := &k.procs[idx]
	info := PanicInfo{
		Process:  ProcessID{index: uint8(idx), id: p.id},
		Name:     p.name,
		Value:    value,
		Stack:    captureStack(),
		Restarts: p.restarts,
	}
	p.state = StateFaulted
	k.log.Warn("process faulted",
		zap.String("name", p.name),
		zap.Stringer("pid", info.Process),
		zap.String("panic", fmt.Sprint(value)),
		zap.Stringer("policy", k.faultPolicy),
	)
	if k.onFault != nil {
		k.onFault(info)
	}
	if k.faultPolicy == FaultRestart && p.restarts < k.maxRestarts {
		k.restart(idx)
	}
}
