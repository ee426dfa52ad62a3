package uart

import "strings"

// Interrupt is a set of PL011 interrupt causes as laid out in RIS/MIS/ICR.
type Interrupt uint16

const (
	IntRI Interrupt = 1 << iota
	IntCTS
	IntDCD
	IntDSR
	IntRX
	IntTX
	IntRT // receive timeout
	IntFE // framing
	IntPE // parity
	IntBE // break
	IntOE // overrun

	IntAll = IntOE<<1 - 1
)

var interruptNames = [...]string{"RI", "CTS", "DCD", "DSR", "RX", "TX", "RT", "FE", "PE", "BE", "OE"}

func (m Interrupt) String() string {
	if m == 0 {
		return "none"
	}
	var b strings.Builder
	for i, n := range interruptNames {
		if m&(1<<i) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('|')
		}
		b.WriteString(n)
	}
	return b.String()
}

// PendingInterrupts returns the masked interrupt status.
func (s *Inner) PendingInterrupts() Interrupt {
	return Interrupt(s.v.Read32(s.v.Regs.MIS)) & IntAll
}

// ClearInterrupts acknowledges the given causes.
func (s *Inner) ClearInterrupts(m Interrupt) {
	s.v.Write32(s.v.Regs.ICR, uint32(m&IntAll))
}

// EnableInterrupts sets the interrupt mask to m.
func (s *Inner) EnableInterrupts(m Interrupt) {
	s.v.Write32(s.v.Regs.IMSC, uint32(m&IntAll))
}
