//go:build linux

package mmio

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"pibsp-go/errcode"
)

// DevMem maps physical windows through /dev/mem so the drivers can run
// from Linux userspace on a real board. Needs root (or CAP_SYS_RAWIO) and a
// kernel booted with iomem=relaxed for ranges already claimed by a driver.
type DevMem struct {
	f    *os.File
	maps []*Mem
}

// OpenDevMem opens path (normally /dev/mem, or /dev/gpiomem for the GPIO
// block only).
func OpenDevMem(path string) (*DevMem, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, err
	}
	return &DevMem{f: f}, nil
}

// Window maps [base, base+size). Mapping failures are fatal: a Space has no
// error path and the caller cannot do anything useful without the window.
func (d *DevMem) Window(base, size uintptr) Region {
	m, err := d.Map(base, size)
	if err != nil {
		errcode.Abort("mmio.DevMem.Window", err)
	}
	return m
}

// Map maps one window.
func (d *DevMem) Map(base, size uintptr) (*Mem, error) {
	page := uintptr(os.Getpagesize())
	start := base &^ (page - 1)
	length := (base - start + size + page - 1) &^ (page - 1)
	buf, err := unix.Mmap(int(d.f.Fd()), int64(start), int(length),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	m := &Mem{base: base, buf: buf, delta: base - start, size: size}
	d.maps = append(d.maps, m)
	return m, nil
}

// Close unmaps every window and closes the device file.
func (d *DevMem) Close() error {
	var first error
	for _, m := range d.maps {
		if err := unix.Munmap(m.buf); err != nil && first == nil {
			first = err
		}
	}
	d.maps = nil
	if err := d.f.Close(); err != nil && first == nil {
		first = err
	}
	return first
}

// Mem is one mapped window.
type Mem struct {
	base  uintptr
	buf   []byte
	delta uintptr // base - page start
	size  uintptr
}

func (m *Mem) Base() uintptr { return m.base }

func (m *Mem) addr(off uintptr, width uintptr) uintptr {
	if off+width > m.size {
		errcode.Fatal(errcode.UnmappedRegister, "mmio.Mem", "access outside mapped window")
	}
	return uintptr(unsafe.Pointer(&m.buf[0])) + m.delta + off
}

func (m *Mem) Load8(off uintptr) uint8   { return load8(m.addr(off, 1)) }
func (m *Mem) Load16(off uintptr) uint16 { return load16(m.addr(off, 2)) }
func (m *Mem) Load32(off uintptr) uint32 { return load32(m.addr(off, 4)) }

func (m *Mem) Store8(off uintptr, v uint8)   { store8(m.addr(off, 1), v) }
func (m *Mem) Store16(off uintptr, v uint16) { store16(m.addr(off, 2), v) }
func (m *Mem) Store32(off uintptr, v uint32) { store32(m.addr(off, 4), v) }
