// Command printsim drives the print driver from the command line.
//
//	printsim run scenario.yaml     run a scripted scenario and report mismatches
//	printsim print [-n N] text...  print text from N processes
//	printsim codes                 list the status codes processes can receive
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"capsule/internal/buildinfo"
	"capsule/internal/config"
	"capsule/internal/logging"

	"github.com/google/subcommands"
	"go.uber.org/zap"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&Run{}, "")
	subcommands.Register(&Print{}, "")
	subcommands.Register(&Codes{}, "")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.Logging.Development, "log-dev", cfg.Logging.Development, "human-readable log output")
	flag.IntVar(&cfg.Kernel.MemorySize, "memory", cfg.Kernel.MemorySize, "bytes of memory per process")
	flag.IntVar(&cfg.Kernel.GrantSize, "grant", cfg.Kernel.GrantSize, "bytes of grant budget per process")
	flag.StringVar(&cfg.Kernel.FaultPolicy, "fault-policy", cfg.Kernel.FaultPolicy, "stop or restart faulted processes")
	flag.Parse()

	log, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.Debug("printsim", zap.String("build", buildinfo.String()))

	status := subcommands.Execute(context.Background(), cfg, log)
	_ = log.Sync()
	os.Exit(int(status))
}

// env unpacks the values main passes to every command.
func env(args []any) (*config.Config, *zap.Logger) {
	return args[0].(*config.Config), args[1].(*zap.Logger)
}
