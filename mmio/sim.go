package mmio

import (
	"encoding/binary"
	"sort"
	"strconv"

	"pibsp-go/errcode"
)

// Access is one recorded load or store on a Sim.
type Access struct {
	Store bool
	Off   uintptr
	Width int // bytes
	Value uint32
}

// Sim is a little-endian backing store standing in for device memory.
// Hooks model side effects (self-clearing bits, FIFOs, W1C status); without
// a hook a location behaves like plain RAM.
type Sim struct {
	base   uintptr
	mem    []byte
	loads  map[uintptr]func() uint32
	stores map[uintptr]func(v uint32)
	trace  []Access
}

// NewSim returns a zeroed window of size bytes at base.
func NewSim(base, size uintptr) *Sim {
	return &Sim{
		base:   base,
		mem:    make([]byte, size),
		loads:  map[uintptr]func() uint32{},
		stores: map[uintptr]func(uint32){},
	}
}

func (s *Sim) Base() uintptr { return s.base }
func (s *Sim) Size() uintptr { return uintptr(len(s.mem)) }

// OnLoad makes loads at off return fn() instead of the stored bytes.
func (s *Sim) OnLoad(off uintptr, fn func() uint32) { s.loads[off] = fn }

// OnStore calls fn after every store at off. The stored value is already in
// memory when fn runs; fn may Poke a different one.
func (s *Sim) OnStore(off uintptr, fn func(v uint32)) { s.stores[off] = fn }

// Peek32 and Poke32 access the backing store without hooks or tracing.
func (s *Sim) Peek32(off uintptr) uint32 {
	s.check(off, 4)
	return binary.LittleEndian.Uint32(s.mem[off:])
}

func (s *Sim) Poke32(off uintptr, v uint32) {
	s.check(off, 4)
	binary.LittleEndian.PutUint32(s.mem[off:], v)
}

// Trace returns every access since the last ResetTrace, in order.
func (s *Sim) Trace() []Access { return s.trace }

func (s *Sim) ResetTrace() { s.trace = s.trace[:0] }

// Stores returns the values stored at off, in order.
func (s *Sim) Stores(off uintptr) []uint32 {
	var out []uint32
	for _, a := range s.trace {
		if a.Store && a.Off == off {
			out = append(out, a.Value)
		}
	}
	return out
}

// Loads counts the loads performed at off.
func (s *Sim) Loads(off uintptr) int {
	n := 0
	for _, a := range s.trace {
		if !a.Store && a.Off == off {
			n++
		}
	}
	return n
}

func (s *Sim) Load8(off uintptr) uint8   { return uint8(s.load(off, 1)) }
func (s *Sim) Load16(off uintptr) uint16 { return uint16(s.load(off, 2)) }
func (s *Sim) Load32(off uintptr) uint32 { return s.load(off, 4) }

func (s *Sim) Store8(off uintptr, v uint8)   { s.store(off, 1, uint32(v)) }
func (s *Sim) Store16(off uintptr, v uint16) { s.store(off, 2, uint32(v)) }
func (s *Sim) Store32(off uintptr, v uint32) { s.store(off, 4, v) }

func (s *Sim) load(off uintptr, width int) uint32 {
	s.check(off, width)
	var v uint32
	if fn, ok := s.loads[off]; ok {
		v = fn() & widthMask(width)
	} else {
		switch width {
		case 1:
			v = uint32(s.mem[off])
		case 2:
			v = uint32(binary.LittleEndian.Uint16(s.mem[off:]))
		default:
			v = binary.LittleEndian.Uint32(s.mem[off:])
		}
	}
	s.trace = append(s.trace, Access{Off: off, Width: width, Value: v})
	return v
}

func (s *Sim) store(off uintptr, width int, v uint32) {
	s.check(off, width)
	switch width {
	case 1:
		s.mem[off] = uint8(v)
	case 2:
		binary.LittleEndian.PutUint16(s.mem[off:], uint16(v))
	default:
		binary.LittleEndian.PutUint32(s.mem[off:], v)
	}
	s.trace = append(s.trace, Access{Store: true, Off: off, Width: width, Value: v})
	if fn, ok := s.stores[off]; ok {
		fn(v)
	}
}

func (s *Sim) check(off uintptr, width int) {
	if off+uintptr(width) > uintptr(len(s.mem)) {
		errcode.Fatal(errcode.UnmappedRegister, "mmio.Sim",
			"offset 0x"+strconv.FormatUint(uint64(off), 16)+" outside window at 0x"+
				strconv.FormatUint(uint64(s.base), 16))
	}
}

func widthMask(width int) uint32 {
	switch width {
	case 1:
		return 0xFF
	case 2:
		return 0xFFFF
	}
	return 0xFFFF_FFFF
}

// ---------------- SimSpace ----------------

// SimSpace is a machine made of Sims, one per requested window.
type SimSpace struct {
	windows map[uintptr]*Sim
}

func NewSimSpace() *SimSpace { return &SimSpace{windows: map[uintptr]*Sim{}} }

// Window returns the Sim at base, creating it on first use. Asking again
// for the same base returns the same Sim, grown if needed.
func (sp *SimSpace) Window(base, size uintptr) Region {
	return sp.Sim(base, size)
}

// Sim is Window with the concrete type, for installing hooks.
func (sp *SimSpace) Sim(base, size uintptr) *Sim {
	if s, ok := sp.windows[base]; ok {
		if size > s.Size() {
			s.mem = append(s.mem, make([]byte, size-s.Size())...)
		}
		return s
	}
	s := NewSim(base, size)
	sp.windows[base] = s
	return s
}

// Lookup returns the Sim previously created at base.
func (sp *SimSpace) Lookup(base uintptr) (*Sim, bool) {
	s, ok := sp.windows[base]
	return s, ok
}

// Bases lists the windows in address order.
func (sp *SimSpace) Bases() []uintptr {
	out := make([]uintptr, 0, len(sp.windows))
	for b := range sp.windows {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
