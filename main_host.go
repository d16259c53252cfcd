//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"capsule/app"
	"capsule/hal"
	"capsule/internal/buildinfo"
	"capsule/internal/config"
	"capsule/internal/logging"
	"capsule/internal/scenario"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var (
		hcfg         hal.HeadlessConfig
		hello        string
		lines        int
		scenarioPath string
		logPrints    bool
	)
	flag.IntVar(&hcfg.Hz, "hz", 60, "Scheduling quanta per second.")
	flag.Uint64Var(&hcfg.Ticks, "ticks", 0, "Stop after N quanta (0 = run until idle).")
	flag.StringVar(&hello, "hello", strings.Join(app.DefaultHello, ","), "Comma-separated names of greeting processes.")
	flag.IntVar(&lines, "lines", 3, "Greetings printed by each process.")
	flag.StringVar(&scenarioPath, "scenario", "", "Run a YAML scenario instead of the greeting processes.")
	flag.BoolVar(&logPrints, "log-prints", false, "Also log printed text through the structured logger.")
	flag.BoolVar(&cfg.Console.Enabled, "console", cfg.Console.Enabled, "Draw printed text on the framebuffer console.")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level.")
	flag.StringVar(&cfg.Metrics.Addr, "metrics-addr", cfg.Metrics.Addr, "Serve Prometheus metrics on this address.")
	flag.Parse()

	log, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer log.Sync()
	log.Info("capsule starting", zap.String("build", buildinfo.Short()))

	if err := run(log, cfg, hcfg, appConfig(cfg, hello, lines, logPrints), scenarioPath); err != nil {
		log.Error("capsule stopped", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func appConfig(cfg *config.Config, hello string, lines int, logPrints bool) app.Config {
	ac := app.Config{
		Kernel:    cfg.Kernel,
		Lines:     lines,
		Console:   cfg.Console.Enabled,
		LogPrints: logPrints,
		Hello:     []string{},
	}
	for _, name := range strings.Split(hello, ",") {
		if name = strings.TrimSpace(name); name != "" {
			ac.Hello = append(ac.Hello, name)
		}
	}
	return ac
}

func run(log *zap.Logger, cfg *config.Config, hcfg hal.HeadlessConfig, ac app.Config, scenarioPath string) error {
	ac.Logger = log
	if scenarioPath != "" {
		sc, err := scenario.Load(scenarioPath)
		if err != nil {
			return err
		}
		ac.Scenario = sc
	}
	hcfg.Host.Out = os.Stdout
	if cfg.Console.Enabled {
		hcfg.Host.Width, hcfg.Host.Height = cfg.Console.Width, cfg.Console.Height
	}

	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		ac.Registry = reg
		srv := serveMetrics(log, cfg.Metrics.Addr, reg)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var sys *app.System
	err := hal.RunHeadless(ctx, app.Stepper(ac, &sys), hcfg)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		return err
	}

	if sys != nil {
		if rep := sys.Report(); rep != nil {
			fmt.Fprint(os.Stderr, rep.String())
			if n := len(rep.Failures()); n > 0 {
				return fmt.Errorf("scenario: %d failed steps", n)
			}
		}
	}
	return nil
}

func serveMetrics(log *zap.Logger, addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr))
	return srv
}
