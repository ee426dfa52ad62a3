// Package i2c drives the BCM2711 Broadcom Serial Controller (BSC) as a
// polled I2C master.
package i2c

import "pibsp-go/reg"

type registers struct {
	C, S, DLEN, A, FIFO, DIV, DEL, CLKT reg.Register
}

var regs = registers{
	C:    reg.RW("C", 0x00),
	S:    reg.RW("S", 0x04),
	DLEN: reg.RW("DLEN", 0x08),
	A:    reg.RW("A", 0x0c),
	FIFO: reg.RW("FIFO", 0x10),
	DIV:  reg.RW("DIV", 0x14),
	DEL:  reg.RW("DEL", 0x18),
	CLKT: reg.RW("CLKT", 0x1c),
}

// Size is the extent of the BSC register window.
const Size = 0x20

const (
	// C
	cREAD  = 0
	cCLEAR = 4 // 2 bits
	cST    = 7
	cI2CEN = 15

	// CoreClockHz is the VPU core clock feeding the BSC divider.
	CoreClockHz = 150_000_000

	// ProbeAddress receives the diagnostic write issued by Initialize.
	ProbeAddress = 0x7f
	probeMessage = "I2C Init Done"

	MaxAddress = 0x7f

	// FIFODepth bounds a single write; WriteSlave fills the FIFO before
	// starting and never refills it.
	FIFODepth = 16
)

// Status is the BSC S register.
type Status uint32

const (
	StatusTA   Status = 1 << 0 // transfer active
	StatusDONE Status = 1 << 1
	StatusTXW  Status = 1 << 2
	StatusRXR  Status = 1 << 3
	StatusTXD  Status = 1 << 4 // FIFO can accept data
	StatusRXD  Status = 1 << 5 // FIFO contains data
	StatusTXE  Status = 1 << 6
	StatusRXF  Status = 1 << 7
	StatusERR  Status = 1 << 8 // slave did not acknowledge
	StatusCLKT Status = 1 << 9 // slave held SCL too long

	statusW1C = StatusDONE | StatusERR | StatusCLKT
)

func (s Status) Done() bool     { return s&StatusDONE != 0 }
func (s Status) NACK() bool     { return s&StatusERR != 0 }
func (s Status) TimedOut() bool { return s&StatusCLKT != 0 }
func (s Status) Active() bool   { return s&StatusTA != 0 }
