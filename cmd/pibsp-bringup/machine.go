package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"pibsp-go/board"
	"pibsp-go/drivers/bcm2711/gpio"
	"pibsp-go/drivers/bcm2711/i2c"
	"pibsp-go/drivers/bcm2711/uart"
	"pibsp-go/mmio"
)

// simulated devices on the I2C bus
var simSlaves = map[uint32]bool{0x38: true, 0x68: true}

// machine is a simulated Raspberry Pi 4 good enough for the bring-up: the
// UART transmits to out and the I2C controller acknowledges simSlaves.
type machine struct {
	space *mmio.SimSpace
}

func newMachine(plan board.Plan, out io.Writer) *machine {
	sp := mmio.NewSimSpace()
	sp.Sim(plan.GPIO, gpio.Size)

	u := sp.Sim(plan.UART.Base, uart.Size)
	u.Poke32(0x18, 1<<7|1<<4) // FR: TXFE | RXFE
	u.OnStore(0x00, func(v uint32) {
		if c := byte(v); c != '\r' {
			out.Write([]byte{c})
		}
	})

	b := sp.Sim(plan.I2C.Base, i2c.Size)
	b.OnLoad(0x04, func() uint32 {
		st := i2c.StatusDONE | i2c.StatusRXD
		if !simSlaves[b.Peek32(0x0c)] {
			st = i2c.StatusDONE | i2c.StatusERR
		}
		return uint32(st)
	})
	return &machine{space: sp}
}

func (m *machine) dump(w io.Writer) {
	for _, base := range m.space.Bases() {
		s, _ := m.space.Lookup(base)
		stores := 0
		for _, a := range s.Trace() {
			if a.Store {
				stores++
			}
		}
		fmt.Fprintf(w, "%#010x  %-8s  %d accesses, %d stores\n",
			base, humanize.IBytes(uint64(s.Size())), len(s.Trace()), stores)
	}
}
