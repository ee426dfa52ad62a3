// Package board describes the Raspberry Pi 4: where its peripherals live,
// how the bring-up wires them, and the firmware facts the drivers need.
package board

// Physical addresses (ARM view, low-peripheral mode).
const (
	GPIOBase     = 0xFE20_0000
	UART0Base    = 0xFE20_1000
	PACTLBase    = 0xFE20_4E00 // PACTL_CS, shared interrupt status
	AUXIRQBase   = 0xFE21_5000
	I2C0Base     = 0xFE80_4000
	IRQBanksBase = 0xFF84_1D08
)

// UARTClockPhandle is the firmware clock node assigning the UART reference
// rate.
const UARTClockPhandle = 0x43
