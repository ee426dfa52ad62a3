// Package gpio drives one BCM2711 GPIO pin per driver instance.
package gpio

import "pibsp-go/reg"

const (
	// Pins 0..57 exist on the BCM2711.
	MaxPin = 57

	pinsPerFSEL = 10 // 3-bit function fields per GPFSELn
	pinsPerBank = 32 // 1-bit fields per SET/CLR/LEV/EDS/...n
	pinsPerPull = 16 // 2-bit fields per GPIO_PUP_PDN_CNTRL_REGn

	fselMask = 0b111
	pullMask = 0b11
)

type registers struct {
	GPFSEL [6]reg.Register
	GPSET  [2]reg.Register
	GPCLR  [2]reg.Register
	GPLEV  [2]reg.Register
	GPEDS  [2]reg.Register
	GPREN  [2]reg.Register
	GPFEN  [2]reg.Register
	GPHEN  [2]reg.Register
	GPLEN  [2]reg.Register
	GPAREN [2]reg.Register
	GPAFEN [2]reg.Register
	PUPPDN [4]reg.Register
}

var regs = registers{
	GPFSEL: [6]reg.Register{
		reg.RW("GPFSEL0", 0x00),
		reg.RW("GPFSEL1", 0x04),
		reg.RW("GPFSEL2", 0x08),
		reg.RW("GPFSEL3", 0x0c),
		reg.RW("GPFSEL4", 0x10),
		reg.RW("GPFSEL5", 0x14),
	},
	GPSET:  [2]reg.Register{reg.WO("GPSET0", 0x1c), reg.WO("GPSET1", 0x20)},
	GPCLR:  [2]reg.Register{reg.WO("GPCLR0", 0x28), reg.WO("GPCLR1", 0x2c)},
	GPLEV:  [2]reg.Register{reg.RO("GPLEV0", 0x34), reg.RO("GPLEV1", 0x38)},
	GPEDS:  [2]reg.Register{reg.RW("GPEDS0", 0x40), reg.RW("GPEDS1", 0x44)},
	GPREN:  [2]reg.Register{reg.RW("GPREN0", 0x4c), reg.RW("GPREN1", 0x50)},
	GPFEN:  [2]reg.Register{reg.RW("GPFEN0", 0x58), reg.RW("GPFEN1", 0x5c)},
	GPHEN:  [2]reg.Register{reg.RW("GPHEN0", 0x64), reg.RW("GPHEN1", 0x68)},
	GPLEN:  [2]reg.Register{reg.RW("GPLEN0", 0x70), reg.RW("GPLEN1", 0x74)},
	GPAREN: [2]reg.Register{reg.RW("GPAREN0", 0x7c), reg.RW("GPAREN1", 0x80)},
	GPAFEN: [2]reg.Register{reg.RW("GPAFEN0", 0x88), reg.RW("GPAFEN1", 0x8c)},
	PUPPDN: [4]reg.Register{
		reg.RW("GPIO_PUP_PDN_CNTRL_REG0", 0xe4),
		reg.RW("GPIO_PUP_PDN_CNTRL_REG1", 0xe8),
		reg.RW("GPIO_PUP_PDN_CNTRL_REG2", 0xec),
		reg.RW("GPIO_PUP_PDN_CNTRL_REG3", 0xf0),
	},
}

// Size is the extent of the GPIO register window.
const Size = 0xf4

// Function is the 3-bit function-select code.
type Function uint8

const (
	Input  Function = 0b000
	Output Function = 0b001
	Alt0   Function = 0b100
	Alt1   Function = 0b101
	Alt2   Function = 0b110
	Alt3   Function = 0b111
	Alt4   Function = 0b011
	Alt5   Function = 0b010
)

func (f Function) String() string {
	switch f {
	case Input:
		return "input"
	case Output:
		return "output"
	case Alt0:
		return "alt0"
	case Alt1:
		return "alt1"
	case Alt2:
		return "alt2"
	case Alt3:
		return "alt3"
	case Alt4:
		return "alt4"
	case Alt5:
		return "alt5"
	}
	return "invalid"
}

// Pull is the 2-bit pull-resistor code.
type Pull uint8

const (
	PullNone Pull = 0b00
	PullUp   Pull = 0b01
	PullDown Pull = 0b10
)

func (p Pull) String() string {
	switch p {
	case PullNone:
		return "none"
	case PullUp:
		return "up"
	case PullDown:
		return "down"
	}
	return "invalid"
}
