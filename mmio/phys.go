package mmio

import (
	"sync/atomic"
	"unsafe"
)

// Phys is a physical window in a single address space kernel.
type Phys struct {
	base uintptr
}

// Map returns the window starting at base. It performs no access.
func Map(base uintptr) Phys { return Phys{base: base} }

func (p Phys) Base() uintptr { return p.base }

func (p Phys) Load8(off uintptr) uint8   { return load8(p.base + off) }
func (p Phys) Load16(off uintptr) uint16 { return load16(p.base + off) }
func (p Phys) Load32(off uintptr) uint32 { return load32(p.base + off) }

func (p Phys) Store8(off uintptr, v uint8)   { store8(p.base+off, v) }
func (p Phys) Store16(off uintptr, v uint16) { store16(p.base+off, v) }
func (p Phys) Store32(off uintptr, v uint32) { store32(p.base+off, v) }

// Physical is the Space of the bare-metal kernel: every window is the
// physical address itself.
type Physical struct{}

func (Physical) Window(base, _ uintptr) Region { return Map(base) }

// ---------------- raw accessors ----------------

// 32-bit accesses go through sync/atomic, which the compiler never
// merges, reorders or drops. There are no 8/16-bit atomics, so narrower
// widths use pointer accesses behind a call boundary the compiler may not
// see through.

//go:nocheckptr
func load32(addr uintptr) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(addr)))
}

//go:nocheckptr
func store32(addr uintptr, v uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(addr)), v)
}

//go:noinline
//go:nocheckptr
func load16(addr uintptr) uint16 {
	return *(*uint16)(unsafe.Pointer(addr))
}

//go:noinline
//go:nocheckptr
func store16(addr uintptr, v uint16) {
	*(*uint16)(unsafe.Pointer(addr)) = v
}

//go:noinline
//go:nocheckptr
func load8(addr uintptr) uint8 {
	return *(*uint8)(unsafe.Pointer(addr))
}

//go:noinline
//go:nocheckptr
func store8(addr uintptr, v uint8) {
	*(*uint8)(unsafe.Pointer(addr)) = v
}
