package irq

import (
	"testing"

	"github.com/go-logr/logr/testr"

	"pibsp-go/mmio"
)

const (
	banksBase = 0xFF84_1D08
	pactlBase = 0xFE20_4E00
	auxBase   = 0xFE21_5000
)

func newTable(t *testing.T) (*Table, *mmio.SimSpace) {
	t.Helper()
	sp := mmio.NewSimSpace()
	return New(sp, Config{BanksBase: banksBase, PACTLBase: pactlBase, AUXBase: auxBase, Log: testr.New(t)}), sp
}

func pend(sp *mmio.SimSpace, src Source) {
	s, _ := sp.Lookup(banksBase)
	off := uintptr(src.Bank() * 8)
	s.Poke32(off, s.Peek32(off)|1<<src.Bit())
}

func TestSourceBanking(t *testing.T) {
	cases := []struct {
		src       Source
		bank, bit int
	}{
		{AUX, 2, 29},
		{I2C, 3, 21},
		{SPI, 3, 22},
		{UART, 3, 25},
		{0, 0, 0},
		{159, 4, 31},
	}
	for _, c := range cases {
		if c.src.Bank() != c.bank || c.src.Bit() != c.bit {
			t.Fatalf("%v: bank=%d bit=%d", c.src, c.src.Bank(), c.src.Bit())
		}
	}
	if UART.String() != "vc57" {
		t.Fatalf("String = %q", UART.String())
	}
}

func TestDispatch_UARTFamily(t *testing.T) {
	tab, sp := newTable(t)
	pend(sp, UART)
	pactl, _ := sp.Lookup(pactlBase)
	pactl.Poke32(0, 1<<20|1<<17) // UART0 and UART4

	var notified []Event
	tab.Notify = func(e Event) { notified = append(notified, e) }
	evs := tab.Dispatch()
	if len(evs) != 2 || len(notified) != 2 {
		t.Fatalf("events = %+v", evs)
	}
	if evs[0].Instance != "UART4" || evs[1].Instance != "UART0" || evs[0].Family != FamilyUART {
		t.Fatalf("events = %+v", evs)
	}
}

func TestDispatch_AUXReadsAuxStatus(t *testing.T) {
	tab, sp := newTable(t)
	pend(sp, AUX)
	aux, _ := sp.Lookup(auxBase)
	aux.Poke32(0, 0b101)
	pactl, _ := sp.Lookup(pactlBase)
	pactl.Poke32(0, 0xFFFF_FFFF)

	evs := tab.Dispatch()
	if len(evs) != 2 || evs[0].Instance != "MiniUART" || evs[1].Instance != "SPI2" {
		t.Fatalf("events = %+v", evs)
	}
	if pactl.Loads(0) != 0 {
		t.Fatal("AUX classification read PACTL_CS")
	}
}

func TestDispatch_I2CAndSPI(t *testing.T) {
	tab, sp := newTable(t)
	pend(sp, I2C)
	pend(sp, SPI)
	pactl, _ := sp.Lookup(pactlBase)
	pactl.Poke32(0, 1<<8|1<<3)

	evs := tab.Dispatch()
	if len(evs) != 2 {
		t.Fatalf("events = %+v", evs)
	}
	if evs[0] != (Event{Source: I2C, Family: FamilyI2C, Instance: "I2C0"}) {
		t.Fatalf("first = %+v", evs[0])
	}
	if evs[1] != (Event{Source: SPI, Family: FamilySPI, Instance: "SPI3"}) {
		t.Fatalf("second = %+v", evs[1])
	}
}

func TestDispatch_UnknownSourcesAreIgnored(t *testing.T) {
	tab, sp := newTable(t)
	banks, _ := sp.Lookup(banksBase)
	banks.Poke32(0x00, 0xFFFF_FFFF)
	banks.Poke32(0x20, 1<<31)
	called := false
	tab.Notify = func(Event) { called = true }

	if evs := tab.Dispatch(); len(evs) != 0 || called {
		t.Fatalf("events = %+v", evs)
	}
	if got := len(tab.Pending()); got != 33 {
		t.Fatalf("pending = %d", got)
	}
}

func TestDispatch_FamilyWithoutInstance(t *testing.T) {
	tab, sp := newTable(t)
	pend(sp, UART)
	if evs := tab.Dispatch(); len(evs) != 0 {
		t.Fatalf("events = %+v", evs)
	}
}
