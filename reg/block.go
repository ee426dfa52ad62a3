package reg

import (
	"github.com/usbarmory/tamago/bits"

	"pibsp-go/errcode"
	"pibsp-go/mmio"
)

// Block is a peripheral's register window. Every access is checked against
// the register's permission; a violation aborts at the call site.
type Block struct {
	r mmio.Region
}

func NewBlock(r mmio.Region) Block { return Block{r: r} }

func (b Block) Region() mmio.Region { return b.r }

// Addr is the effective address of r.
func (b Block) Addr(r Register) uintptr { return b.r.Base() + r.Offset }

func (b Block) canRead(r Register, op string) {
	if !r.Perm.Readable() {
		errcode.FatalDepth(2, errcode.WriteOnlyRegister, op, r.Name)
	}
}

func (b Block) canWrite(r Register, op string) {
	if !r.Perm.Writable() {
		errcode.FatalDepth(2, errcode.ReadOnlyRegister, op, r.Name)
	}
}

func (b Block) Read8(r Register) uint8 {
	b.canRead(r, "reg.Read8")
	return b.r.Load8(r.Offset)
}

func (b Block) Read16(r Register) uint16 {
	b.canRead(r, "reg.Read16")
	return b.r.Load16(r.Offset)
}

func (b Block) Read32(r Register) uint32 {
	b.canRead(r, "reg.Read32")
	return b.r.Load32(r.Offset)
}

func (b Block) Write8(r Register, v uint8) {
	b.canWrite(r, "reg.Write8")
	b.r.Store8(r.Offset, v)
}

func (b Block) Write16(r Register, v uint16) {
	b.canWrite(r, "reg.Write16")
	b.r.Store16(r.Offset, v)
}

func (b Block) Write32(r Register, v uint32) {
	b.canWrite(r, "reg.Write32")
	b.r.Store32(r.Offset, v)
}

// ---------------- Read-modify-write ----------------
// These need a readable and writable register.

func (b Block) rmw(r Register, op string) uint32 {
	if r.Perm != ReadWrite {
		code := errcode.ReadOnlyRegister
		if r.Perm == WriteOnly {
			code = errcode.WriteOnlyRegister
		}
		errcode.FatalDepth(2, code, op, r.Name)
	}
	return b.r.Load32(r.Offset)
}

// Modify32 clears then sets the given bits in one read-modify-write.
func (b Block) Modify32(r Register, clear, set uint32) {
	v := b.rmw(r, "reg.Modify32")
	b.r.Store32(r.Offset, v&^clear|set)
}

// SetField writes val into the mask-wide field at pos, keeping other bits.
// A val wider than mask is fatal rather than spilling into the next field.
func (b Block) SetField(r Register, pos, mask int, val uint32) {
	if val&^uint32(mask) != 0 {
		errcode.FatalDepth(1, errcode.InvalidParams, "reg.SetField", r.String()+": value wider than field")
	}
	v := b.rmw(r, "reg.SetField")
	bits.SetN(&v, pos, mask, val)
	b.r.Store32(r.Offset, v)
}

// SetBit sets or clears a single bit, keeping other bits.
func (b Block) SetBit(r Register, pos int, on bool) {
	v := b.rmw(r, "reg.SetBit")
	if on {
		bits.Set(&v, pos)
	} else {
		bits.Clear(&v, pos)
	}
	b.r.Store32(r.Offset, v)
}

// Field reads the mask-wide field at pos.
func (b Block) Field(r Register, pos, mask int) uint32 {
	b.canRead(r, "reg.Field")
	v := b.r.Load32(r.Offset)
	return bits.Get(&v, pos, mask)
}

func (b Block) IsSet(r Register, pos int) bool {
	b.canRead(r, "reg.IsSet")
	v := b.r.Load32(r.Offset)
	return bits.IsSet(&v, pos)
}
