// Package uart drives the BCM2711 PL011 UART as a polled transmit-only
// console.
package uart

import "pibsp-go/reg"

type registers struct {
	DR, RSRECR, FR, ILPR, IBRD, FBRD, LCRH, CR reg.Register
	IFLS, IMSC, RIS, MIS, ICR, DMACR           reg.Register
	ITCR, ITIP, ITOP, TDR                      reg.Register
}

var regs = registers{
	DR:     reg.RW("DR", 0x00),
	RSRECR: reg.RW("RSRECR", 0x04),
	FR:     reg.RO("FR", 0x18),
	ILPR:   reg.RW("ILPR", 0x20),
	IBRD:   reg.RW("IBRD", 0x24),
	FBRD:   reg.RW("FBRD", 0x28),
	LCRH:   reg.RW("LCRH", 0x2c),
	CR:     reg.RW("CR", 0x30),
	IFLS:   reg.RW("IFLS", 0x34),
	IMSC:   reg.RW("IMSC", 0x38),
	RIS:    reg.RO("RIS", 0x3c),
	MIS:    reg.RO("MIS", 0x40),
	ICR:    reg.WO("ICR", 0x44),
	DMACR:  reg.RW("DMACR", 0x48),
	ITCR:   reg.RW("ITCR", 0x80),
	ITIP:   reg.RW("ITIP", 0x84),
	ITOP:   reg.RW("ITOP", 0x88),
	TDR:    reg.RW("TDR", 0x8c),
}

// Size is the extent of the PL011 register window.
const Size = 0x90

const (
	// FR
	frRXFE = 4
	frTXFF = 5
	frTXFE = 7

	// LCRH
	lcrhParity = 1 // PEN|EPS, 2 bits
	lcrhSTP2   = 3
	lcrhFEN    = 4
	lcrhWLEN   = 5 // 2 bits

	// CR
	crUARTEN = 1 << 0
	crTXE    = 1 << 8
	crRXE    = 1 << 9

	// FIFODepth is the PL011 FIFO depth in entries.
	FIFODepth = 16

	// DefaultClockHz is used when no clock rate is published.
	DefaultClockHz = 48_000_000
)
