//go:build windows && 386

package winapi

// FloatSaveArea mirrors Win32's FLOATING_SAVE_AREA, embedded in the
// 32-bit CONTEXT.
type FloatSaveArea struct {
	ControlWord   uint32
	StatusWord    uint32
	TagWord       uint32
	ErrorOffset   uint32
	ErrorSelector uint32
	DataOffset    uint32
	DataSelector  uint32
	RegisterArea  [80]byte
	Cr0NpxState   uint32
}

// Context mirrors Win32's CONTEXT for x86-32.
type Context struct {
	ContextFlags uint32

	Dr0 uint32
	Dr1 uint32
	Dr2 uint32
	Dr3 uint32
	Dr6 uint32
	Dr7 uint32

	FloatSave FloatSaveArea

	SegGs uint32
	SegFs uint32
	SegEs uint32
	SegDs uint32

	Edi uint32
	Esi uint32
	Ebx uint32
	Edx uint32
	Ecx uint32
	Eax uint32

	Ebp    uint32
	Eip    uint32
	SegCs  uint32
	EFlags uint32
	Esp    uint32
	SegSs  uint32

	ExtendedRegisters [512]byte
}

func (c *Context) IP() uintptr { return uintptr(c.Eip) }

func (c *Context) SetIP(ip uintptr) { c.Eip = uint32(ip) }

func (c *Context) SetResumeFlag() { c.EFlags |= EFlagsResumeFlag }

func (c *Context) DrSlot(i int) uintptr {
	switch i {
	case 0:
		return uintptr(c.Dr0)
	case 1:
		return uintptr(c.Dr1)
	case 2:
		return uintptr(c.Dr2)
	case 3:
		return uintptr(c.Dr3)
	default:
		panic("winapi: debug register slot out of range")
	}
}

func (c *Context) SetDrSlot(i int, addr uintptr) {
	switch i {
	case 0:
		c.Dr0 = uint32(addr)
	case 1:
		c.Dr1 = uint32(addr)
	case 2:
		c.Dr2 = uint32(addr)
	case 3:
		c.Dr3 = uint32(addr)
	default:
		panic("winapi: debug register slot out of range")
	}
}

func (c *Context) SetDr7Slot(i int, enabled bool, rw, length uint8) {
	lBit := uint32(1) << (2 * i)
	rwShift := 16 + 4*i
	lenShift := 18 + 4*i
	mask := uint32(0xF) << rwShift

	c.Dr7 &^= mask
	c.Dr7 &^= lBit
	if enabled {
		c.Dr7 |= lBit
		c.Dr7 |= uint32(rw&0x3) << rwShift
		c.Dr7 |= uint32(length&0x3) << lenShift
		c.Dr7 |= 1 << 8
	}
}

func (c *Context) DR7SlotEnabled(i int) bool {
	return c.Dr7&(uint32(1)<<(2*i)) != 0
}

// DR6BitSet reports whether Dr6's B<i> bit is set.
func (c *Context) DR6BitSet(i int) bool {
	return c.Dr6&(uint32(1)<<uint(i)) != 0
}

// ClearDr6 zeroes the debug status register after a single-step trap has
// been handled.
func (c *Context) ClearDr6() { c.Dr6 = 0 }
