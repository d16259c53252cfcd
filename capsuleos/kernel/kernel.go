package kernel

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

const (
	maxProcesses = 16

	// DefaultMemorySize is the RAM region given to each process.
	DefaultMemorySize = 4096
	// DefaultGrantSize is the per-process budget for driver grant state.
	DefaultGrantSize = 1024
)

// Rights define which privileged kernel operations a capability allows.
type Rights uint8

const (
	// RightMemoryAllocation allows creating grants in process memory.
	RightMemoryAllocation Rights = 1 << iota
	// RightProcessManagement allows restarting and terminating processes.
	RightProcessManagement
)

// Capability is a kernel-side token for privileged operations.
//
// It is opaque by construction (no exported fields). Only board code holding
// the *Kernel can mint one, and processes never receive them.
type Capability struct {
	rights Rights
}

func (c Capability) valid() bool { return c.rights != 0 }

func (c Capability) Valid() bool { return c.valid() }

func (c Capability) has(r Rights) bool { return c.rights&r == r }

// Restrict returns a capability with a reduced set of rights.
func (c Capability) Restrict(rights Rights) Capability {
	r := c.rights & rights
	if r == 0 {
		return Capability{}
	}
	return Capability{rights: r}
}

// ErrCapability is returned when a capability lacks the required right.
var ErrCapability = errors.New("capability does not grant this operation")

// FaultPolicy decides what happens to a process whose Step panics.
type FaultPolicy uint8

const (
	FaultStop FaultPolicy = iota
	FaultRestart
)

func (p FaultPolicy) String() string {
	if p == FaultRestart {
		return "restart"
	}
	return "stop"
}

// ParseFaultPolicy parses "stop" or "restart".
func ParseFaultPolicy(s string) (FaultPolicy, error) {
	switch s {
	case "stop", "":
		return FaultStop, nil
	case "restart":
		return FaultRestart, nil
	default:
		return FaultStop, fmt.Errorf("unknown fault policy %q", s)
	}
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithLogger sets the logger for kernel lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(k *Kernel) {
		if l != nil {
			k.log = l
		}
	}
}

// WithMemorySize sets the RAM region size of every process.
func WithMemorySize(n int) Option {
	return func(k *Kernel) {
		if n > 0 {
			k.memorySize = n
		}
	}
}

// WithGrantSize sets the per-process grant budget. Zero is allowed and makes
// every grant allocation fail.
func WithGrantSize(n int) Option {
	return func(k *Kernel) {
		if n >= 0 {
			k.grantSize = n
		}
	}
}

// WithFaultPolicy sets the fault policy and how many restarts a process gets.
func WithFaultPolicy(p FaultPolicy, maxRestarts int) Option {
	return func(k *Kernel) {
		k.faultPolicy = p
		k.maxRestarts = maxRestarts
	}
}

// WithFaultHandler installs a hook called for every process fault.
// It must not panic.
func WithFaultHandler(fn func(PanicInfo)) Option {
	return func(k *Kernel) { k.onFault = fn }
}

// Kernel is a cooperative process scheduler plus the syscall router.
//
// It is not safe for concurrent use: syscalls are serviced synchronously from
// Step, one process at a time.
type Kernel struct {
	log         *zap.Logger
	memorySize  int
	grantSize   int
	faultPolicy FaultPolicy
	maxRestarts int
	onFault     func(PanicInfo)

	procs     [maxProcesses]process
	procCount int
	nextID    uint32
	rr        int

	drivers map[uint32]SyscallDriver
}

// New creates a kernel instance.
func New(opts ...Option) *Kernel {
	k := &Kernel{
		log:        zap.NewNop(),
		memorySize: DefaultMemorySize,
		grantSize:  DefaultGrantSize,
		drivers:    make(map[uint32]SyscallDriver),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// MintCapability returns a capability with the given rights. Board setup code
// calls it once per trusted component.
func (k *Kernel) MintCapability(rights Rights) Capability {
	return Capability{rights: rights}
}

// LoadProcess admits a new process running app and returns its ID.
func (k *Kernel) LoadProcess(name string, app App) (ProcessID, error) {
	if app == nil {
		return ProcessID{}, fmt.Errorf("load %q: nil app", name)
	}
	if k.procCount >= maxProcesses {
		return ProcessID{}, fmt.Errorf("load %q: process table full", name)
	}
	mem, err := allocMemory(k.memorySize)
	if err != nil {
		return ProcessID{}, fmt.Errorf("load %q: %w", name, err)
	}

	idx := k.procCount
	k.procCount++
	k.procs[idx] = process{name: name, app: app, mem: mem}
	pid := k.admit(idx)
	k.log.Info("process loaded",
		zap.String("name", name),
		zap.Stringer("pid", pid),
		zap.Int("memory", mem.size()),
		zap.Int("grant_budget", k.grantSize),
	)
	return pid, nil
}

// admit gives slot idx a fresh identity and pre-allocates driver grants.
func (k *Kernel) admit(idx int) ProcessID {
	k.nextID++
	p := &k.procs[idx]
	p.id = k.nextID
	p.state = StateRunnable
	p.exitCode = 0
	p.grantUsed = 0
	pid := ProcessID{index: uint8(idx), id: p.id}

	nums := make([]uint32, 0, len(k.drivers))
	for num := range k.drivers {
		nums = append(nums, num)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	for _, num := range nums {
		if err := k.drivers[num].AllocateGrant(pid); err != nil {
			k.log.Warn("grant preallocation failed",
				zap.String("name", p.name),
				zap.Stringer("pid", pid),
				zap.Uint32("driver", num),
				zap.Error(err),
			)
		}
	}
	return pid
}

// lookup returns the live process for pid.
func (k *Kernel) lookup(pid ProcessID) (*process, error) {
	if int(pid.index) >= k.procCount {
		return nil, ErrNoSuchProcess
	}
	p := &k.procs[pid.index]
	if p.id != pid.id || !p.alive() {
		return nil, ErrNoSuchProcess
	}
	return p, nil
}

// Step runs one quantum of the next runnable process, round-robin.
// It reports whether a process ran.
func (k *Kernel) Step() bool {
	for i := 0; i < k.procCount; i++ {
		idx := (k.rr + i) % k.procCount
		if !k.procs[idx].alive() {
			continue
		}
		k.rr = (idx + 1) % k.procCount
		k.runStep(idx)
		return true
	}
	return false
}

func (k *Kernel) runStep(idx int) {
	p := &k.procs[idx]
	ctx := &Context{k: k, pid: ProcessID{index: uint8(idx), id: p.id}}
	defer ctx.invalidate()
	defer func() {
		if r := recover(); r != nil {
			k.fault(idx, r)
		}
	}()
	p.app.Step(ctx)
}

// RunUntilIdle steps processes until none is runnable or maxSteps quanta ran
// (maxSteps <= 0 means no limit). It returns the number of quanta run.
func (k *Kernel) RunUntilIdle(maxSteps int) int {
	n := 0
	for maxSteps <= 0 || n < maxSteps {
		if !k.Step() {
			break
		}
		n++
	}
	return n
}

// Runnable returns the number of runnable processes.
func (k *Kernel) Runnable() int {
	n := 0
	for i := 0; i < k.procCount; i++ {
		if k.procs[i].alive() {
			n++
		}
	}
	return n
}

func (k *Kernel) exit(pid ProcessID, code uint32) {
	p, err := k.lookup(pid)
	if err != nil {
		return
	}
	p.state = StateExited
	p.exitCode = code
	k.log.Info("process exited",
		zap.String("name", p.name),
		zap.Stringer("pid", pid),
		zap.Uint32("code", code),
	)
}

// Restart gives the process a new identity with zeroed memory and no grant
// state. Every outstanding ProcessID and buffer for it becomes invalid.
func (k *Kernel) Restart(c Capability, pid ProcessID) (ProcessID, error) {
	if !c.has(RightProcessManagement) {
		return ProcessID{}, ErrCapability
	}
	if int(pid.index) >= k.procCount || k.procs[pid.index].id != pid.id {
		return ProcessID{}, ErrNoSuchProcess
	}
	return k.restart(int(pid.index)), nil
}

func (k *Kernel) restart(idx int) ProcessID {
	p := &k.procs[idx]
	old := ProcessID{index: uint8(idx), id: p.id}
	p.mem.zero()
	p.restarts++
	pid := k.admit(idx)
	k.log.Info("process restarted",
		zap.String("name", p.name),
		zap.Stringer("old_pid", old),
		zap.Stringer("pid", pid),
		zap.Int("restarts", p.restarts),
	)
	return pid
}

// Terminate stops the process for good.
func (k *Kernel) Terminate(c Capability, pid ProcessID) error {
	if !c.has(RightProcessManagement) {
		return ErrCapability
	}
	p, err := k.lookup(pid)
	if err != nil {
		return err
	}
	p.state = StateTerminated
	k.log.Info("process terminated", zap.String("name", p.name), zap.Stringer("pid", pid))
	return nil
}

// Processes returns a snapshot of the process table.
func (k *Kernel) Processes() []ProcessInfo {
	out := make([]ProcessInfo, 0, k.procCount)
	for i := 0; i < k.procCount; i++ {
		out = append(out, k.info(i))
	}
	return out
}

// Process returns the table entry currently in pid's slot.
func (k *Kernel) Process(pid ProcessID) (ProcessInfo, bool) {
	if int(pid.index) >= k.procCount {
		return ProcessInfo{}, false
	}
	return k.info(int(pid.index)), true
}

func (k *Kernel) info(idx int) ProcessInfo {
	p := &k.procs[idx]
	return ProcessInfo{
		ID:        ProcessID{index: uint8(idx), id: p.id},
		Name:      p.name,
		State:     p.state,
		ExitCode:  p.exitCode,
		Restarts:  p.restarts,
		GrantUsed: p.grantUsed,
	}
}

// Close terminates every process and unmaps process memory.
func (k *Kernel) Close() error {
	var errs []error
	for i := 0; i < k.procCount; i++ {
		p := &k.procs[i]
		p.state = StateTerminated
		if p.mem != nil {
			if err := p.mem.release(); err != nil {
				errs = append(errs, fmt.Errorf("release %q: %w", p.name, err))
			}
		}
	}
	return errors.Join(errs...)
}
