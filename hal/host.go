//go:build !tinygo

package hal

import (
	"io"
	"os"
	"sync"
)

type hostHAL struct {
	logger Logger
	fb     *hostFramebuffer
}

// HostConfig selects the host devices.
type HostConfig struct {
	// Out receives log lines. Defaults to os.Stdout.
	Out io.Writer
	// Logger replaces the writer-backed logger when set.
	Logger Logger
	// Width and Height size the framebuffer; zero disables the display.
	Width  int
	Height int
}

// New returns a host HAL implementation writing to stdout with a 320x320
// framebuffer.
func New() HAL {
	return NewWithConfig(HostConfig{Width: 320, Height: 320})
}

// NewWithConfig returns a host HAL implementation.
func NewWithConfig(cfg HostConfig) HAL {
	return newHost(cfg)
}

func newHost(cfg HostConfig) *hostHAL {
	h := &hostHAL{logger: cfg.Logger}
	if h.logger == nil {
		out := cfg.Out
		if out == nil {
			out = os.Stdout
		}
		h.logger = NewWriterLogger(out)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		h.fb = newHostFramebuffer(cfg.Width, cfg.Height)
	}
	return h
}

func (h *hostHAL) Logger() Logger { return h.logger }

func (h *hostHAL) Display() Display {
	if h.fb == nil {
		return nil
	}
	return hostDisplay{fb: h.fb}
}

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

// WriterLogger writes each line to an io.Writer followed by '\n'.
type WriterLogger struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterLogger returns a Logger writing to w.
func NewWriterLogger(w io.Writer) *WriterLogger {
	return &WriterLogger{w: w}
}

func (l *WriterLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.w, s)
	l.w.Write([]byte{'\n'})
}

func (l *WriterLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}
