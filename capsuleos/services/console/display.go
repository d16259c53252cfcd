package console

import (
	"image/color"

	"capsule/hal"

	"tinygo.org/x/drivers"
)

// fbDisplay adapts an RGB565 hal.Framebuffer to tinyterm's Displayer.
type fbDisplay struct {
	fb     hal.Framebuffer
	w, h   int
	stride int
}

func newFBDisplay(fb hal.Framebuffer) *fbDisplay {
	return &fbDisplay{fb: fb, w: fb.Width(), h: fb.Height(), stride: fb.StrideBytes()}
}

func (d *fbDisplay) Size() (x, y int16) {
	return int16(d.w), int16(d.h)
}

// offset returns the byte offset of pixel (x, y), or -1 if it is off screen.
func (d *fbDisplay) offset(x, y int) int {
	if x < 0 || x >= d.w || y < 0 || y >= d.h {
		return -1
	}
	off := y*d.stride + x*2
	if off+1 >= len(d.fb.Buffer()) {
		return -1
	}
	return off
}

func (d *fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	off := d.offset(int(x), int(y))
	if off < 0 {
		return
	}
	p := rgb565(c)
	buf := d.fb.Buffer()
	buf[off] = byte(p)
	buf[off+1] = byte(p >> 8)
}

func (d *fbDisplay) Display() error {
	return d.fb.Present()
}

// ScrollUp moves the picture up by lines rows and fills the bottom with bg.
func (d *fbDisplay) ScrollUp(lines int16, bg color.RGBA) error {
	n := int(lines)
	if n <= 0 {
		return nil
	}
	if n >= d.h {
		return d.FillRectangle(0, 0, int16(d.w), int16(d.h), bg)
	}
	buf := d.fb.Buffer()
	copy(buf, buf[n*d.stride:d.h*d.stride])
	return d.FillRectangle(0, int16(d.h-n), int16(d.w), int16(n), bg)
}

func (d *fbDisplay) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	x0, x1 := clamp(int(x), d.w), clamp(int(x)+int(width), d.w)
	y0, y1 := clamp(int(y), d.h), clamp(int(y)+int(height), d.h)
	if x0 >= x1 || y0 >= y1 {
		return nil
	}

	p := rgb565(c)
	buf := d.fb.Buffer()
	row := buf[y0*d.stride+x0*2 : y0*d.stride+x1*2]
	for i := 0; i < len(row); i += 2 {
		row[i] = byte(p)
		row[i+1] = byte(p >> 8)
	}
	for py := y0 + 1; py < y1; py++ {
		copy(buf[py*d.stride+x0*2:], row)
	}
	return nil
}

func (d *fbDisplay) SetScroll(line int16) {}

func (d *fbDisplay) SetRotation(rotation drivers.Rotation) error { return nil }

func rgb565(c color.RGBA) uint16 {
	return uint16(c.R>>3)<<11 | uint16(c.G>>2)<<5 | uint16(c.B>>3)
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
