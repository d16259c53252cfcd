// Package app assembles the kernel, the print driver and the host log sinks
// into a runnable system.
package app

import (
	"errors"
	"fmt"

	printdrv "capsule/capsuleos/drivers/print"
	"capsule/capsuleos/kernel"
	"capsule/capsuleos/services/console"
	"capsule/capsuleos/tasks/hello"
	"capsule/hal"
	"capsule/internal/config"
	"capsule/internal/scenario"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Config selects what the system runs and where printed text goes.
type Config struct {
	Kernel config.KernelConfig

	// Hello names the greeting tasks to load when Scenario is nil. A nil
	// slice loads DefaultHello; an empty one loads nothing.
	Hello []string
	// Lines is how many greetings each hello task prints.
	Lines int
	// Scenario replaces the hello tasks with scripted processes.
	Scenario *scenario.Scenario

	// Console draws printed text on the HAL framebuffer.
	Console bool
	// LogPrints also sends printed text to Logger.
	LogPrints bool

	Logger   *zap.Logger
	Registry prometheus.Registerer
}

// DefaultHello is the task set loaded when Config.Hello is nil.
var DefaultHello = []string{"alpha", "beta"}

// System is a booted kernel plus its output plumbing. Printed text reaches
// the sinks during the print call; fault notices are queued and written after
// the quantum that faulted.
type System struct {
	k      *kernel.Kernel
	driver *printdrv.Driver
	queue  *kernel.DebugQueue
	out    hal.Logger
	ring   *hal.RingLogger
	report *scenario.Report
	log    *zap.Logger
}

// New boots a system on h.
func New(h hal.HAL, cfg Config) (*System, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Kernel == (config.KernelConfig{}) {
		cfg.Kernel = config.Default().Kernel
	}
	policy, err := kernel.ParseFaultPolicy(cfg.Kernel.FaultPolicy)
	if err != nil {
		return nil, err
	}

	s := &System{
		queue: &kernel.DebugQueue{},
		ring:  hal.NewRingLogger(),
		log:   log,
	}
	s.out = s.sinks(h, cfg)

	s.k = kernel.New(
		kernel.WithLogger(log.Named("kernel")),
		kernel.WithMemorySize(cfg.Kernel.MemorySize),
		kernel.WithGrantSize(cfg.Kernel.GrantSize),
		kernel.WithFaultPolicy(policy, cfg.Kernel.MaxRestarts),
		kernel.WithFaultHandler(faultReporter(s.queue, log)),
	)

	opts := []printdrv.Option{printdrv.WithLogger(log.Named("print"))}
	if cfg.Registry != nil {
		opts = append(opts, printdrv.WithMetrics(printdrv.NewMetrics(cfg.Registry)))
	}
	c := s.k.MintCapability(kernel.RightMemoryAllocation)
	if s.driver, err = printdrv.Register(s.k, c, s.out, opts...); err != nil {
		_ = s.k.Close()
		return nil, fmt.Errorf("register print driver: %w", err)
	}

	if err := s.load(cfg); err != nil {
		_ = s.k.Close()
		return nil, err
	}
	return s, nil
}

func (s *System) sinks(h hal.HAL, cfg Config) hal.Logger {
	var loggers []hal.Logger
	if h != nil {
		loggers = append(loggers, h.Logger())
	}
	loggers = append(loggers, s.ring)
	if cfg.Console && h != nil {
		if c := console.New(h.Display()); c != nil {
			loggers = append(loggers, c)
		} else {
			s.log.Warn("console requested but no framebuffer is available")
		}
	}
	if cfg.LogPrints {
		loggers = append(loggers, hal.NewZapLogger(s.log, "print"))
	}
	return hal.Tee(loggers...)
}

func (s *System) load(cfg Config) error {
	if cfg.Scenario != nil {
		rep, err := cfg.Scenario.Install(s.k)
		if err != nil {
			return fmt.Errorf("install scenario: %w", err)
		}
		s.report = rep
		return nil
	}
	names := cfg.Hello
	if names == nil {
		names = DefaultHello
	}
	for _, name := range names {
		if _, err := s.k.LoadProcess(name, hello.New(name, cfg.Lines)); err != nil {
			return err
		}
	}
	return nil
}

// Step runs one scheduling quantum and drains queued fault notices to the
// sinks. It returns hal.ErrHalt once no process is runnable.
func (s *System) Step() error {
	ran := s.k.Step()
	s.queue.Flush(s.out)
	if !ran {
		return hal.ErrHalt
	}
	return nil
}

// Run steps the system until it is idle or maxSteps quanta ran
// (maxSteps <= 0 means no limit).
func (s *System) Run(maxSteps int) int {
	n := 0
	for maxSteps <= 0 || n < maxSteps {
		if err := s.Step(); err != nil {
			break
		}
		n++
	}
	return n
}

// Kernel returns the system kernel.
func (s *System) Kernel() *kernel.Kernel { return s.k }

// Counters returns the print driver's byte counters.
func (s *System) Counters() map[kernel.ProcessID]uint32 { return s.driver.Counters() }

// Report returns the scenario report, or nil when running hello tasks.
func (s *System) Report() *scenario.Report { return s.report }

// Recent drains the in-memory copy of recent output.
func (s *System) Recent() []byte { return s.ring.Bytes() }

// Close releases process memory.
func (s *System) Close() error { return s.k.Close() }

// Stepper adapts New to hal.RunHeadless. The system is closed when the run
// halts; the returned System pointer is filled in once the HAL exists.
func Stepper(cfg Config, sys **System) func(hal.HAL) (func() error, error) {
	return func(h hal.HAL) (func() error, error) {
		s, err := New(h, cfg)
		if err != nil {
			return nil, err
		}
		if sys != nil {
			*sys = s
		}
		return func() error {
			err := s.Step()
			if errors.Is(err, hal.ErrHalt) {
				if cerr := s.Close(); cerr != nil {
					return cerr
				}
			}
			return err
		}, nil
	}
}
