//go:build unix

package kernel

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// allocMemory maps size bytes of anonymous memory followed by an inaccessible
// guard page, so reads past the end of a process region fault.
func allocMemory(size int) (*processMemory, error) {
	if size <= 0 {
		return nil, fmt.Errorf("alloc process memory: invalid size %d", size)
	}
	page := unix.Getpagesize()
	body := (size + page - 1) / page * page

	full, err := unix.Mmap(-1, 0, body+page, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mmap %d bytes: %w", body+page, err)
	}
	if err := unix.Mprotect(full[body:], unix.PROT_NONE); err != nil {
		_ = unix.Munmap(full)
		return nil, fmt.Errorf("mprotect guard page: %w", err)
	}
	return &processMemory{b: full[:size:size], full: full}, nil
}

func (m *processMemory) protect(readOnly bool) error {
	prot := unix.PROT_READ | unix.PROT_WRITE
	if readOnly {
		prot = unix.PROT_READ
	}
	page := unix.Getpagesize()
	body := len(m.full) - page
	if err := unix.Mprotect(m.full[:body], prot); err != nil {
		return fmt.Errorf("mprotect process memory: %w", err)
	}
	return nil
}

func (m *processMemory) release() error {
	if m.full == nil {
		return nil
	}
	err := unix.Munmap(m.full)
	m.full = nil
	m.b = nil
	if err != nil {
		return fmt.Errorf("munmap process memory: %w", err)
	}
	return nil
}
