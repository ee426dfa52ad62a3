package board

import (
	"pibsp-go/drivers/bcm2711/gpio"
	"pibsp-go/drivers/bcm2711/uart"
)

// Plan specifies the wiring and operating parameters of a bring-up.
type Plan struct {
	Name string
	GPIO uintptr // GPIO block base
	UART UARTPlan
	I2C  I2CPlan
	IRQ  IRQPlan
}

// PinPlan routes one GPIO to a peripheral.
type PinPlan struct {
	Pin      int
	Function gpio.Function
	Pull     gpio.Pull
}

type UARTPlan struct {
	Base         uintptr
	TX, RX       PinPlan
	Baud         uint32
	Parity       uart.Parity
	WordLength   uart.WordLength
	StopBits     uart.StopBits
	ClockPhandle uint32 // device-tree node publishing the reference clock
}

type I2CPlan struct {
	Base         uintptr
	SDA, SCL     PinPlan
	Hz           uint32 // bus frequency
	TimeoutTicks uint16 // clock-stretch timeout in SCL cycles
}

type IRQPlan struct {
	Banks uintptr
	PACTL uintptr
	AUX   uintptr
}

// Pins lists every pin the plan routes, in bring-up order.
func (p Plan) Pins() []PinPlan {
	return []PinPlan{p.UART.TX, p.UART.RX, p.I2C.SDA, p.I2C.SCL}
}

// Default is the Raspberry Pi 4 console and sensor-bus setup: UART0 on
// GPIO14/15 at 9600 8N1, I2C on GPIO2/3 at 100 kHz.
func Default() Plan {
	return Plan{
		Name: "rpi4",
		GPIO: GPIOBase,
		UART: UARTPlan{
			Base:         UART0Base,
			TX:           PinPlan{Pin: 14, Function: gpio.Alt0, Pull: gpio.PullUp},
			RX:           PinPlan{Pin: 15, Function: gpio.Alt0, Pull: gpio.PullUp},
			Baud:         9600,
			Parity:       uart.ParityNone,
			WordLength:   uart.Bits8,
			StopBits:     uart.StopOne,
			ClockPhandle: UARTClockPhandle,
		},
		I2C: I2CPlan{
			Base:         I2C0Base,
			SDA:          PinPlan{Pin: 2, Function: gpio.Alt0, Pull: gpio.PullUp},
			SCL:          PinPlan{Pin: 3, Function: gpio.Alt0, Pull: gpio.PullUp},
			Hz:           100_000,
			TimeoutTicks: 3,
		},
		IRQ: IRQPlan{
			Banks: IRQBanksBase,
			PACTL: PACTLBase,
			AUX:   AUXIRQBase,
		},
	}
}
