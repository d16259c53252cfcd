package app

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	printclient "capsule/capsuleos/client/print"
	"capsule/capsuleos/kernel"
	"capsule/hal"
	"capsule/internal/config"
	"capsule/internal/scenario"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHelloSystem(t *testing.T) {
	var out bytes.Buffer
	h := hal.NewWithConfig(hal.HostConfig{Out: &out})

	s, err := New(h, Config{Hello: []string{"a", "b"}, Lines: 1})
	require.NoError(t, err)
	defer s.Close()

	n := s.Run(0)
	assert.Equal(t, 4, n)

	want := "a: hello #1\nb: hello #1\na: printed 11 bytes\nb: printed 11 bytes\n"
	assert.Equal(t, want, out.String())
	assert.Equal(t, want, string(s.Recent()))
	assert.Nil(t, s.Report())
}

func TestPrintBurstReachesSink(t *testing.T) {
	var out bytes.Buffer
	s, err := New(hal.NewWithConfig(hal.HostConfig{Out: &out}), Config{Hello: []string{}})
	require.NoError(t, err)
	defer s.Close()

	const lines = 20
	var (
		want   []string
		errs   []error
		count  uint32
		cntErr error
	)
	_, err = s.Kernel().LoadProcess("burst", kernel.AppFunc(func(ctx *kernel.Context) {
		for i := 0; i < lines; i++ {
			line := fmt.Sprintf("line%02d", i)
			want = append(want, line)
			errs = append(errs, printclient.Print(ctx, 0, []byte(line)))
		}
		count, cntErr = printclient.Count(ctx)
		ctx.Exit(0)
	}))
	require.NoError(t, err)

	assert.Equal(t, 1, s.Run(0))
	for i, err := range errs {
		assert.NoError(t, err, "print %d", i)
	}
	require.NoError(t, cntErr)
	assert.Equal(t, uint32(lines*6), count)
	assert.Equal(t, strings.Join(want, "\n")+"\n", out.String())
	assert.NotContains(t, out.String(), "dropped")
}

func TestScenarioSystem(t *testing.T) {
	sc, err := scenario.ParseBytes([]byte(`
processes:
  - name: a
    steps:
      - op: allow
        text: "héllo"
      - op: print
      - op: count
        count: 6
      - op: fault
  - name: b
    steps:
      - op: allow
        hex: "80"
      - op: print
        expect: INVAL
`))
	require.NoError(t, err)

	var out bytes.Buffer
	reg := prometheus.NewRegistry()
	core, logs := observer.New(zapcore.InfoLevel)
	s, err := New(hal.NewWithConfig(hal.HostConfig{Out: &out}), Config{
		Kernel:    config.KernelConfig{MemorySize: 256, GrantSize: 64, FaultPolicy: "stop"},
		Scenario:  sc,
		LogPrints: true,
		Logger:    zap.New(core),
		Registry:  reg,
	})
	require.NoError(t, err)
	defer s.Close()

	s.Run(100)

	rep := s.Report()
	require.NotNil(t, rep)
	assert.Empty(t, rep.Failures(), rep.String())
	assert.Len(t, rep.Results, 6)

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "héllo", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "capsule fault: process=a"), lines[1])

	assert.Equal(t, 1, logs.FilterMessage("héllo").FilterField(zap.String("source", "print")).Len())
	assert.Equal(t, 1, logs.FilterMessage("process faulted").Len())

	n, err := testutil.GatherAndCount(reg, "capsule_print_bytes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestConsoleSink(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	headless, err := New(hal.NewWithConfig(hal.HostConfig{Out: &bytes.Buffer{}}), Config{Console: true, Logger: zap.New(core)})
	require.NoError(t, err)
	defer headless.Close()
	assert.Equal(t, 1, logs.FilterMessage("console requested but no framebuffer is available").Len())

	s, err := New(hal.NewWithConfig(hal.HostConfig{Out: &bytes.Buffer{}, Width: 160, Height: 80}), Config{Console: true})
	require.NoError(t, err)
	defer s.Close()
	s.Run(0)
}

func TestBadFaultPolicy(t *testing.T) {
	_, err := New(nil, Config{Kernel: config.KernelConfig{FaultPolicy: "reboot"}})
	assert.Error(t, err)
}

func TestStepperHalts(t *testing.T) {
	var out bytes.Buffer
	var sys *System
	err := hal.RunHeadless(context.Background(), Stepper(Config{Hello: []string{"x"}}, &sys), hal.HeadlessConfig{
		Hz:   1000,
		Host: hal.HostConfig{Out: &out},
	})
	require.NoError(t, err)
	require.NotNil(t, sys)
	assert.Contains(t, out.String(), "x: printed 11 bytes")
}
