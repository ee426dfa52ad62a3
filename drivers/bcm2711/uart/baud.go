package uart

import (
	"strconv"

	"pibsp-go/errcode"
	"pibsp-go/x/mathx"
)

// Divisor is the PL011 baud divisor: IBRD + FBRD/64.
type Divisor struct {
	Integer  uint16
	Fraction uint8 // 6 bits
}

// Sixtyfourths returns the divisor in units of 1/64.
func (d Divisor) Sixtyfourths() uint32 { return uint32(d.Integer)<<6 | uint32(d.Fraction) }

// Achieved returns the baud rate the divisor produces from clock, truncated.
func (d Divisor) Achieved(clock uint32) uint32 {
	n := d.Sixtyfourths()
	if n == 0 {
		return 0
	}
	return uint32(uint64(clock) * 4 / uint64(n))
}

// BaudDivisor computes the divisor for target at the given UART reference
// clock: integer part ⌊clock/(16·target)⌋, fractional part rounded to 1/64.
//
// A fraction that rounds up to 64, or an integer part wider than 16 bits,
// is divisor_overflow. A divisor whose achieved rate misses target by more
// than 1/64 is baud_unattainable. The check is exact:
//
//	|4·clock − target·D| · 64 > target·D, with D in 1/64ths.
func BaudDivisor(clock, target uint32) (Divisor, error) {
	const op = "uart.BaudDivisor"
	if target == 0 || clock == 0 {
		return Divisor{}, errcode.New(errcode.BaudUnattainable, op, "zero clock or baud")
	}
	c, t := uint64(clock), uint64(target)
	den := 16 * t
	ipart := c / den
	fpart := mathx.RoundDiv((c%den)*64, den)
	if fpart >= 64 {
		return Divisor{}, errcode.New(errcode.DivisorOverflow, op, "fraction "+strconv.FormatUint(fpart, 10)+" needs more than 6 bits")
	}
	if ipart > 0xFFFF {
		return Divisor{}, errcode.New(errcode.DivisorOverflow, op, "integer part "+strconv.FormatUint(ipart, 10)+" needs more than 16 bits")
	}
	d := Divisor{Integer: uint16(ipart), Fraction: uint8(fpart)}
	n := uint64(d.Sixtyfourths())
	if n == 0 {
		return Divisor{}, errcode.New(errcode.BaudUnattainable, op, strconv.FormatUint(t, 10)+" baud needs a zero divisor")
	}
	if mathx.AbsDiff(4*c, t*n)*64 > t*n {
		return Divisor{}, errcode.New(errcode.BaudUnattainable, op,
			strconv.FormatUint(t, 10)+" baud achieves "+strconv.FormatUint(uint64(d.Achieved(clock)), 10))
	}
	return d, nil
}
