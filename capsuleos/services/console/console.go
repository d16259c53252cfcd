// Package console renders kernel log output on a framebuffer through a
// VT100-style terminal.
package console

import (
	"sync"

	"capsule/hal"

	"tinygo.org/x/tinyfont/proggy"
	"tinygo.org/x/tinyterm"
)

// Console is a hal.Logger that draws each line on a framebuffer.
type Console struct {
	mu    sync.Mutex
	fb    hal.Framebuffer
	d     *fbDisplay
	t     *tinyterm.Terminal
	rows  int
	lines int
}

const fontHeight = 10

// New returns a console drawing on disp's framebuffer, or nil if there is
// no usable framebuffer.
func New(disp hal.Display) *Console {
	if disp == nil {
		return nil
	}
	fb := disp.Framebuffer()
	if fb == nil || fb.Format() != hal.PixelFormatRGB565 {
		return nil
	}
	c := &Console{fb: fb, d: newFBDisplay(fb), rows: fb.Height() / fontHeight}
	if c.rows == 0 {
		return nil
	}
	c.reset()
	return c
}

func (c *Console) reset() {
	c.t = tinyterm.NewTerminal(c.d)
	c.t.Configure(&tinyterm.Config{
		Font:       &proggy.TinySZ8pt7b,
		FontHeight: fontHeight,
		FontOffset: 6,
	})
	c.fb.ClearRGB(0, 0, 0)
	_ = c.fb.Present()
}

// Reset clears the screen.
func (c *Console) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
	c.lines = 0
}

func (c *Console) WriteLineString(s string) {
	c.WriteLineBytes([]byte(s))
}

func (c *Console) WriteLineBytes(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// The framebuffer has no hardware scroll: start over at the top once
	// the screen is full.
	if c.lines > 0 && c.lines%c.rows == 0 {
		c.reset()
	}
	_, _ = c.t.Write(b)
	_, _ = c.t.Write([]byte("\r\n"))
	_ = c.d.Display()
	c.lines++
}

// Lines returns the number of lines written since the last Reset.
func (c *Console) Lines() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines
}
