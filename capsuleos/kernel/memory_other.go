//go:build !unix

package kernel

import "fmt"

// allocMemory falls back to heap memory on hosts without mmap. There is no
// guard page and borrows are not write-protected.
func allocMemory(size int) (*processMemory, error) {
	if size <= 0 {
		return nil, fmt.Errorf("alloc process memory: invalid size %d", size)
	}
	b := make([]byte, size)
	return &processMemory{b: b, full: b}, nil
}

func (m *processMemory) protect(readOnly bool) error {
	_ = readOnly
	return nil
}

func (m *processMemory) release() error {
	m.full = nil
	m.b = nil
	return nil
}
