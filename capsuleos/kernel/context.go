package kernel

// Context is the syscall surface of one process during one Step.
//
// A Context must not be kept past the Step it was passed to; afterwards every
// call fails as if the process did not exist.
type Context struct {
	k   *Kernel
	pid ProcessID
}

// ProcessID returns the calling process.
func (c *Context) ProcessID() ProcessID { return c.pid }

func (c *Context) invalidate() { c.k = nil }

func (c *Context) process() (*process, bool) {
	if c.k == nil {
		return nil, false
	}
	p, err := c.k.lookup(c.pid)
	return p, err == nil
}

// Memory returns the process's own RAM region. The slice is only valid
// during the current Step.
func (c *Context) Memory() []byte {
	p, ok := c.process()
	if !ok {
		return nil
	}
	return p.mem.b
}

// Command invokes command cmd on driver.
func (c *Context) Command(driver, cmd, arg1, arg2 uint32) SyscallReturn {
	if _, ok := c.process(); !ok {
		return ReturnFailure(ErrNoSuchProcess.Code())
	}
	d, ok := c.k.driver(driver)
	if !ok {
		return ReturnFailure(ErrNoDevice)
	}
	return d.Command(cmd, arg1, arg2, c.pid)
}

// AllowReadOnly shares [addr, addr+length) of the process's memory with
// driver under allow number num. On success the payload is the address and
// length of the buffer previously allowed; on failure it is the offered one.
func (c *Context) AllowReadOnly(driver, num, addr, length uint32) SyscallReturn {
	if _, ok := c.process(); !ok {
		return ReturnFailureU32U32(ErrNoSuchProcess.Code(), addr, length)
	}
	d, ok := c.k.driver(driver)
	if !ok {
		return ReturnFailureU32U32(ErrNoDevice, addr, length)
	}
	buf, err := c.k.newReadOnlyBuffer(c.pid, addr, length)
	if err != nil {
		return ReturnFailureU32U32(CodeOf(err), addr, length)
	}

	prev, err := d.AllowReadOnly(c.pid, num, buf)
	if err != nil {
		return ReturnFailureU32U32(CodeOf(err), prev.addr, prev.length)
	}
	return ReturnSuccessU32U32(prev.addr, prev.length)
}

// Subscribe registers for upcall num of driver. Drivers without upcalls
// reject every subscription with ErrNoSupport.
func (c *Context) Subscribe(driver, num uint32) SyscallReturn {
	if _, ok := c.process(); !ok {
		return ReturnFailure(ErrNoSuchProcess.Code())
	}
	d, ok := c.k.driver(driver)
	if !ok {
		return ReturnFailure(ErrNoDevice)
	}
	s, ok := d.(Subscriber)
	if !ok {
		return ReturnFailure(ErrNoSupport)
	}
	if err := s.Subscribe(c.pid, num); err != nil {
		return ReturnFailure(CodeOf(err))
	}
	return ReturnSuccess()
}

// Exit terminates the calling process with code.
func (c *Context) Exit(code uint32) {
	if c.k == nil {
		return
	}
	c.k.exit(c.pid, code)
}
