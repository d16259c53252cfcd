package hal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRingLoggerReadsInOrder(t *testing.T) {
	rb := NewRingLogger()
	rb.WriteLineString("one")
	rb.WriteLineBytes([]byte("two"))

	if got := string(rb.Bytes()); got != "one\ntwo\n" {
		t.Fatalf("Bytes() = %q, want %q", got, "one\ntwo\n")
	}
	if got := rb.Bytes(); len(got) != 0 {
		t.Fatalf("Bytes() after drain = %q, want empty", got)
	}
}

func TestRingLoggerOverwritesOldest(t *testing.T) {
	rb := NewRingLogger()
	line := strings.Repeat("x", 99)
	for i := 0; i < 100; i++ {
		rb.WriteLineString(line)
	}
	rb.WriteLineString("last")

	got := rb.Bytes()
	if len(got) != ringSize-1 {
		t.Fatalf("len(Bytes()) = %d, want %d", len(got), ringSize-1)
	}
	if !bytes.HasSuffix(got, []byte("last\n")) {
		t.Fatalf("Bytes() does not end with the newest line: %q", got[len(got)-10:])
	}
}

func TestTee(t *testing.T) {
	var a, b bytes.Buffer
	l := Tee(NewWriterLogger(&a), nil, NewWriterLogger(&b))
	l.WriteLineString("hi")
	l.WriteLineBytes([]byte("there"))

	for _, buf := range []*bytes.Buffer{&a, &b} {
		if got := buf.String(); got != "hi\nthere\n" {
			t.Fatalf("tee output = %q", got)
		}
	}
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewZapLogger(zap.New(core), "print")
	l.WriteLineString("hello")
	l.WriteLineBytes([]byte("bytes"))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Message != "hello" || entries[0].ContextMap()["source"] != "print" {
		t.Fatalf("entry = %+v", entries[0])
	}
	if entries[1].Message != "bytes" {
		t.Fatalf("entry = %+v", entries[1])
	}

	NewZapLogger(nil, "x").WriteLineString("dropped")
}

func TestHostHAL(t *testing.T) {
	var out bytes.Buffer
	h := NewWithConfig(HostConfig{Out: &out})
	h.Logger().WriteLineString("line")
	if out.String() != "line\n" {
		t.Fatalf("logger output = %q", out.String())
	}
	if h.Display() != nil {
		t.Fatal("Display() without size is not nil")
	}

	h = NewWithConfig(HostConfig{Out: &out, Width: 4, Height: 2})
	fb := h.Display().Framebuffer()
	if fb.Width() != 4 || fb.Height() != 2 || fb.StrideBytes() != 8 || fb.Format() != PixelFormatRGB565 {
		t.Fatalf("framebuffer = %dx%d stride %d", fb.Width(), fb.Height(), fb.StrideBytes())
	}
	fb.ClearRGB(0xff, 0, 0)
	if buf := fb.Buffer(); buf[0] != 0x00 || buf[1] != 0xf8 {
		t.Fatalf("red pixel = %#x %#x, want 0x00 0xf8", buf[0], buf[1])
	}
	if err := fb.Present(); err != nil {
		t.Fatalf("Present() err = %v", err)
	}
}

func TestRunHeadlessHalt(t *testing.T) {
	var out bytes.Buffer
	steps := 0
	err := RunHeadless(context.Background(), func(h HAL) (func() error, error) {
		return func() error {
			steps++
			h.Logger().WriteLineString("tick")
			if steps == 3 {
				return ErrHalt
			}
			return nil
		}, nil
	}, HeadlessConfig{Hz: 1000, Host: HostConfig{Out: &out}})
	if err != nil {
		t.Fatalf("RunHeadless() err = %v", err)
	}
	if steps != 3 || out.String() != "tick\ntick\ntick\n" {
		t.Fatalf("steps = %d, output = %q", steps, out.String())
	}
}

func TestRunHeadlessTickBudget(t *testing.T) {
	steps := 0
	err := RunHeadless(context.Background(), func(HAL) (func() error, error) {
		return func() error { steps++; return nil }, nil
	}, HeadlessConfig{Hz: 1000, Ticks: 5, Host: HostConfig{Out: &bytes.Buffer{}}})
	if err != nil || steps != 5 {
		t.Fatalf("RunHeadless() = %v after %d steps, want nil after 5", err, steps)
	}
}

func TestRunHeadlessErrors(t *testing.T) {
	boom := errors.New("boom")
	err := RunHeadless(context.Background(), func(HAL) (func() error, error) {
		return nil, boom
	}, HeadlessConfig{Host: HostConfig{Out: &bytes.Buffer{}}})
	if !errors.Is(err, boom) {
		t.Fatalf("setup err = %v, want boom", err)
	}

	err = RunHeadless(context.Background(), func(HAL) (func() error, error) {
		return func() error { return boom }, nil
	}, HeadlessConfig{Hz: 1000, Host: HostConfig{Out: &bytes.Buffer{}}})
	if !errors.Is(err, boom) {
		t.Fatalf("step err = %v, want boom", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = RunHeadless(ctx, func(HAL) (func() error, error) {
		return func() error { return nil }, nil
	}, HeadlessConfig{Hz: 10, Host: HostConfig{Out: &bytes.Buffer{}}})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("cancelled err = %v, want deadline exceeded", err)
	}
}
