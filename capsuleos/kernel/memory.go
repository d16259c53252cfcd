package kernel

// processMemory is the RAM region owned by one process.
//
// The kernel never writes to it on behalf of a driver. While a driver borrows
// part of it the whole region is mapped read-only (where the host supports it).
type processMemory struct {
	b       []byte
	full    []byte // b plus rounding and guard, as mapped
	borrows int
}

func (m *processMemory) size() int { return len(m.b) }

// view returns the bytes in [addr, addr+length) if they lie inside the region.
func (m *processMemory) view(addr, length uint32) ([]byte, bool) {
	end := uint64(addr) + uint64(length)
	if end > uint64(len(m.b)) {
		return nil, false
	}
	return m.b[addr:end:end], true
}

func (m *processMemory) borrow() error {
	if m.borrows == 0 {
		if err := m.protect(true); err != nil {
			return err
		}
	}
	m.borrows++
	return nil
}

func (m *processMemory) unborrow() error {
	if m.borrows == 0 {
		return nil
	}
	m.borrows--
	if m.borrows == 0 {
		return m.protect(false)
	}
	return nil
}

func (m *processMemory) zero() {
	clear(m.b)
}
