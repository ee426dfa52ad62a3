package reg

import (
	"pibsp-go/errcode"
	"pibsp-go/mmio"
)

// View is a register block together with its typed register map, so drivers
// can write v.Write32(v.Regs.CR, x).
type View[T any] struct {
	Block
	Regs *T
}

// Map binds layout to the region. A layout with duplicate names or offsets
// is a fatal invalid_layout.
func Map[T any](r mmio.Region, layout *T) View[T] {
	if err := SetOf(layout).Validate(); err != nil {
		e := err.(*errcode.E)
		errcode.FatalDepth(1, e.C, "reg.Map", e.Msg)
	}
	return View[T]{Block: NewBlock(r), Regs: layout}
}

// Set lists the registers of the view in declaration order.
func (v View[T]) Set() Set { return SetOf(v.Regs) }
