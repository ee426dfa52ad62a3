// Package irq classifies pending BCM2711 peripheral interrupts.
//
// The table reads the pending banks, maps every set bit to a Source and,
// for the VideoCore family summary sources, reads the shared status
// register that names the concrete instance. It does not service anything:
// each classification is reported to Notify, which is where drivers get
// bound to their interrupts.
package irq

import (
	"math/bits"
	"strconv"

	"github.com/go-logr/logr"

	"pibsp-go/mmio"
	"pibsp-go/reg"
)

// Source identifies one pending bit: bank*32 + bit.
type Source uint16

const (
	Banks       = 5
	bitsPerBank = 32

	// VCBase is the Source of VideoCore interrupt 0 (bank 2, bit 0).
	VCBase Source = 2 * bitsPerBank

	AUX  = VCBase + 29
	I2C  = VCBase + 53
	SPI  = VCBase + 54
	UART = VCBase + 57
)

func (s Source) Bank() int { return int(s) / bitsPerBank }
func (s Source) Bit() int  { return int(s) % bitsPerBank }

func (s Source) String() string {
	if s >= VCBase {
		return "vc" + strconv.Itoa(int(s-VCBase))
	}
	return "src" + strconv.Itoa(int(s))
}

type Family uint8

const (
	FamilyAUX Family = iota + 1
	FamilyI2C
	FamilySPI
	FamilyUART
)

func (f Family) String() string {
	switch f {
	case FamilyAUX:
		return "aux"
	case FamilyI2C:
		return "i2c"
	case FamilySPI:
		return "spi"
	case FamilyUART:
		return "uart"
	}
	return "unknown"
}

// Event names the peripheral instance behind a pending source.
type Event struct {
	Source   Source
	Family   Family
	Instance string
}

type bankRegs struct {
	PEND [Banks]reg.Register
}

type statusRegs struct {
	STATUS reg.Register
}

var (
	bankLayout = bankRegs{PEND: [Banks]reg.Register{
		reg.RO("PEND0", 0x00),
		reg.RO("PEND1", 0x08),
		reg.RO("PEND2", 0x10),
		reg.RO("PEND3", 0x18),
		reg.RO("PEND4", 0x20),
	}}
	pactlLayout = statusRegs{STATUS: reg.RO("PACTL_CS", 0x00)}
	auxLayout   = statusRegs{STATUS: reg.RO("AUX_IRQ", 0x00)}
)

// BanksSize is the extent of the pending-bank window.
const BanksSize = 0x24

// instanceBit names the instance signalled by one bit of a status register.
type instanceBit struct {
	bit  int
	name string
}

var (
	auxInstances = []instanceBit{{0, "MiniUART"}, {1, "SPI1"}, {2, "SPI2"}}
	i2cInstances = []instanceBit{
		{8, "I2C0"}, {9, "I2C1"}, {10, "I2C2"}, {11, "I2C3"},
		{12, "I2C4"}, {13, "I2C5"}, {14, "I2C6"}, {15, "I2C7"},
	}
	spiInstances = []instanceBit{
		{0, "SPI0"}, {1, "SPI1"}, {2, "SPI2"}, {3, "SPI3"},
		{4, "SPI4"}, {5, "SPI5"}, {6, "SPI6"},
	}
	uartInstances = []instanceBit{
		{16, "UART5"}, {17, "UART4"}, {18, "UART3"}, {19, "UART2"}, {20, "UART0"},
	}
)

type Config struct {
	BanksBase uintptr
	PACTLBase uintptr
	AUXBase   uintptr
	Log       logr.Logger
}

// Table is the interrupt dispatch table.
type Table struct {
	banks reg.View[bankRegs]
	pactl reg.View[statusRegs]
	aux   reg.View[statusRegs]
	log   logr.Logger

	// Notify receives every classification. Nil drops them.
	Notify func(Event)
}

func New(space mmio.Space, cfg Config) *Table {
	return &Table{
		banks: reg.Map(space.Window(cfg.BanksBase, BanksSize), &bankLayout),
		pactl: reg.Map(space.Window(cfg.PACTLBase, 4), &pactlLayout),
		aux:   reg.Map(space.Window(cfg.AUXBase, 4), &auxLayout),
		log:   cfg.Log.WithName("irq"),
	}
}

// Pending reads every bank and lists the set sources in ascending order.
func (t *Table) Pending() []Source {
	var out []Source
	for b := 0; b < Banks; b++ {
		w := t.banks.Read32(t.banks.Regs.PEND[b])
		for w != 0 {
			bit := bits.TrailingZeros32(w)
			w &^= 1 << bit
			out = append(out, Source(b*bitsPerBank+bit))
		}
	}
	return out
}

// Dispatch classifies every pending source and returns the events raised.
// Sources without a classifier are ignored.
func (t *Table) Dispatch() []Event {
	var out []Event
	for _, src := range t.Pending() {
		out = append(out, t.Classify(src)...)
	}
	return out
}

// Classify resolves one source to the instances behind it.
func (t *Table) Classify(src Source) []Event {
	var evs []Event
	switch src {
	case AUX:
		// PACTL_CS carries no AUX bits; the mini UART and SPI1/2 report in AUX_IRQ.
		evs = t.match(src, FamilyAUX, t.aux, auxInstances)
	case I2C:
		evs = t.match(src, FamilyI2C, t.pactl, i2cInstances)
	case SPI:
		evs = t.match(src, FamilySPI, t.pactl, spiInstances)
	case UART:
		evs = t.match(src, FamilyUART, t.pactl, uartInstances)
	default:
		return nil
	}
	for _, e := range evs {
		t.log.V(1).Info("interrupt", "source", e.Source, "family", e.Family, "instance", e.Instance)
		if t.Notify != nil {
			t.Notify(e)
		}
	}
	return evs
}

func (t *Table) match(src Source, fam Family, v reg.View[statusRegs], set []instanceBit) []Event {
	status := v.Read32(v.Regs.STATUS)
	var evs []Event
	for _, ib := range set {
		if status&(1<<ib.bit) != 0 {
			evs = append(evs, Event{Source: src, Family: fam, Instance: ib.name})
		}
	}
	return evs
}
