package kernel

import "fmt"

// ProcessID identifies one incarnation of a process.
//
// It is opaque by construction: only the kernel creates ProcessIDs, and an ID
// stops being valid once the process exits, faults or is restarted.
type ProcessID struct {
	index uint8
	id    uint32
}

// Index returns the process table slot.
func (p ProcessID) Index() int { return int(p.index) }

func (p ProcessID) String() string {
	return fmt.Sprintf("%d:%d", p.index, p.id)
}

// State is the scheduling state of a process.
type State uint8

const (
	StateEmpty State = iota
	StateRunnable
	StateExited
	StateFaulted
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateRunnable:
		return "runnable"
	case StateExited:
		return "exited"
	case StateFaulted:
		return "faulted"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// App is the userland code of a process. Step runs one scheduling quantum.
type App interface {
	Step(*Context)
}

// AppFunc adapts a function to App.
type AppFunc func(*Context)

func (f AppFunc) Step(ctx *Context) { f(ctx) }

type process struct {
	name     string
	app      App
	id       uint32
	state    State
	exitCode uint32
	restarts int

	mem       *processMemory
	grantUsed int
}

func (p *process) alive() bool { return p.state == StateRunnable }

// allocGrant charges size bytes against the process grant budget.
func (p *process) allocGrant(size, budget int) bool {
	if size > budget-p.grantUsed {
		return false
	}
	p.grantUsed += size
	return true
}

// ProcessInfo is a read-only snapshot of a process table entry.
type ProcessInfo struct {
	ID        ProcessID
	Name      string
	State     State
	ExitCode  uint32
	Restarts  int
	GrantUsed int
}
