package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"capsule/app"
	printclient "capsule/capsuleos/client/print"
	"capsule/capsuleos/kernel"
	"capsule/hal"
	"capsule/internal/scenario"

	"github.com/google/subcommands"
	"go.uber.org/zap"
)

// Run implements subcommands.Command for "run".
type Run struct {
	quiet bool
	steps int
}

func (*Run) Name() string     { return "run" }
func (*Run) Synopsis() string { return "run a YAML scenario against the print driver" }
func (*Run) Usage() string {
	return `run [options] <scenario.yaml> - run scripted processes and check every result.

Printed text goes to stdout, the step report to stderr. The exit status is
non-zero if any step did not return what the scenario expects.
`
}

func (r *Run) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.quiet, "quiet", false, "only report failures")
	f.IntVar(&r.steps, "max-steps", 10000, "stop after this many scheduling quanta")
}

func (r *Run) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	cfg, log := env(args)

	sc, err := scenario.Load(f.Arg(0))
	if err != nil {
		log.Error("load scenario", zap.Error(err))
		return subcommands.ExitFailure
	}
	sys, err := app.New(hal.NewWithConfig(hal.HostConfig{Out: os.Stdout}), app.Config{
		Kernel:   cfg.Kernel,
		Scenario: sc,
		Logger:   log,
	})
	if err != nil {
		log.Error("boot", zap.Error(err))
		return subcommands.ExitFailure
	}
	defer sys.Close()

	sys.Run(r.steps)
	rep := sys.Report()
	writeReport(os.Stderr, rep, r.quiet)
	if len(rep.Failures()) > 0 {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func writeReport(w io.Writer, rep *scenario.Report, quiet bool) {
	if !quiet {
		io.WriteString(w, rep.String())
		return
	}
	for _, res := range rep.Failures() {
		fmt.Fprintln(w, res)
	}
}

// Print implements subcommands.Command for "print".
type Print struct {
	procs int
}

func (*Print) Name() string     { return "print" }
func (*Print) Synopsis() string { return "print text through the driver from one or more processes" }
func (*Print) Usage() string {
	return `print [-n N] <text>... - each process prints every argument, then its byte count.
`
}

func (p *Print) SetFlags(f *flag.FlagSet) {
	f.IntVar(&p.procs, "n", 1, "number of processes")
}

func (p *Print) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() == 0 || p.procs < 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	cfg, log := env(args)
	texts := f.Args()

	sys, err := app.New(hal.NewWithConfig(hal.HostConfig{Out: os.Stdout}), app.Config{
		Kernel: cfg.Kernel,
		Hello:  []string{},
		Logger: log,
	})
	if err != nil {
		log.Error("boot", zap.Error(err))
		return subcommands.ExitFailure
	}
	defer sys.Close()

	failed := false
	for i := 0; i < p.procs; i++ {
		name := fmt.Sprintf("p%d", i)
		step := 0
		_, err := sys.Kernel().LoadProcess(name, kernel.AppFunc(func(ctx *kernel.Context) {
			if step < len(texts) {
				if err := printclient.Print(ctx, 0, []byte(texts[step])); err != nil {
					log.Warn("print failed", zap.String("process", name), zap.Error(err))
					failed = true
				}
				step++
				return
			}
			n, err := printclient.Count(ctx)
			if err != nil {
				failed = true
			}
			fmt.Fprintf(os.Stderr, "%s: %d bytes\n", name, n)
			ctx.Exit(0)
		}))
		if err != nil {
			log.Error("load", zap.Error(err))
			return subcommands.ExitFailure
		}
	}
	sys.Run(0)
	if failed {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// Codes implements subcommands.Command for "codes".
type Codes struct{}

func (*Codes) Name() string           { return "codes" }
func (*Codes) Synopsis() string       { return "list syscall status codes" }
func (*Codes) Usage() string          { return "codes - list syscall status codes.\n" }
func (*Codes) SetFlags(*flag.FlagSet) {}

func (*Codes) Execute(context.Context, *flag.FlagSet, ...any) subcommands.ExitStatus {
	for c := kernel.ErrFail; c <= kernel.ErrNoAck; c++ {
		fmt.Printf("%2d %s\n", uint32(c), c)
	}
	return subcommands.ExitSuccess
}
