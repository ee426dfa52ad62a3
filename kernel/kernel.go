// Package kernel brings the peripheral drivers up in dependency order.
//
// Nothing here is global: a Kernel owns one manager per peripheral type,
// the routed GPIO pins, the interrupt table and the console. Pass it to
// whatever needs a driver.
package kernel

import (
	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"

	"pibsp-go/board"
	"pibsp-go/bus"
	"pibsp-go/console"
	"pibsp-go/driver"
	"pibsp-go/drivers/bcm2711/gpio"
	"pibsp-go/drivers/bcm2711/i2c"
	"pibsp-go/drivers/bcm2711/irq"
	"pibsp-go/drivers/bcm2711/uart"
	"pibsp-go/errcode"
	"pibsp-go/mmio"
)

// Banner is printed on the console once every driver is up.
const Banner = "Drivers initialized successfully!"

// Driver states, retained on Events under driver/<name>.
const (
	StateInitialized = "initialized"
	StateReleased    = "released"
)

type Config struct {
	Space   mmio.Space       // nil means mmio.Physical
	Plan    board.Plan       // zero Name means board.Default()
	Clock   uart.ClockSource // UART reference clock; nil falls back to the default rate
	Console *console.Console // nil creates one
	Events  *bus.Bus         // nil creates one
	Log     logr.Logger      // zero logs through the console
}

type Kernel struct {
	Console *console.Console
	Events  *bus.Bus
	UART    driver.Manager[*uart.Inner]
	I2C     driver.Manager[*i2c.Inner]
	IRQ     *irq.Table

	cfg     Config
	log     logr.Logger
	pins    []*gpio.Pin
	uart    *uart.UART
	bus     *i2c.I2C
	started bool
}

func New(cfg Config) *Kernel {
	if cfg.Space == nil {
		cfg.Space = mmio.Physical{}
	}
	if cfg.Plan.Name == "" {
		cfg.Plan = board.Default()
	}
	if cfg.Console == nil {
		cfg.Console = console.New()
	}
	if cfg.Events == nil {
		cfg.Events = bus.New(16)
	}
	log := cfg.Log
	if log.GetSink() == nil {
		log = cfg.Console.Logger(0)
	}
	k := &Kernel{Console: cfg.Console, Events: cfg.Events, cfg: cfg, log: log}
	k.UART = driver.Manager[*uart.Inner]{Name: "uart", Log: log}
	k.I2C = driver.Manager[*i2c.Inner]{Name: "i2c", Log: log}
	return k
}

// Plan is the wiring the kernel brings up.
func (k *Kernel) Plan() board.Plan { return k.cfg.Plan }

// Pins returns the GPIO pins routed so far, in bring-up order.
func (k *Kernel) Pins() []*gpio.Pin { return k.pins }

// Bus returns the I2C controller once it is initialised.
func (k *Kernel) Bus() (*i2c.I2C, bool) { return k.bus, k.bus != nil && k.I2C.Active() }

// UARTDriver returns the console UART once it is initialised.
func (k *Kernel) UARTDriver() (*uart.UART, bool) {
	return k.uart, k.uart != nil && k.UART.Active()
}

// InitDrivers runs the bring-up sequence:
//
//  1. route the UART pins, then register and initialise the UART;
//  2. make the UART the console sink;
//  3. route the I2C pins, then register and initialise the I2C controller;
//  4. build the interrupt table and print Banner.
//
// Any fault aborts the sequence. The fault is logged with its location
// while the console is still live, then pins and drivers brought up before
// it are released and the panic continues. Calls after the first do nothing.
func (k *Kernel) InitDrivers() {
	if k.started {
		return
	}
	k.started = true
	done := false
	defer func() {
		if done {
			return
		}
		r := recover()
		if f, ok := r.(*errcode.E); ok {
			k.log.Error(f, "bring-up aborted", "at", f.Loc)
		}
		k.Shutdown()
		if r != nil {
			panic(r)
		}
	}()

	p := k.cfg.Plan
	sp := k.cfg.Space
	gpioWin := sp.Window(p.GPIO, gpio.Size)

	k.route(gpioWin, p.UART.TX, p.UART.RX)
	k.uart = uart.New(sp.Window(p.UART.Base, uart.Size), uart.Config{
		BaudRate:   p.UART.Baud,
		Parity:     p.UART.Parity,
		WordLength: p.UART.WordLength,
		StopBits:   p.UART.StopBits,
		Clock:      k.cfg.Clock,
		Log:        k.log,
	})
	k.UART.Register(k.uart)
	k.UART.InitializeAll()
	k.state("uart", StateInitialized)
	k.Console.Register(k.uart)

	k.route(gpioWin, p.I2C.SDA, p.I2C.SCL)
	k.bus = i2c.New(sp.Window(p.I2C.Base, i2c.Size), i2c.Config{
		BusHz:        p.I2C.Hz,
		TimeoutTicks: p.I2C.TimeoutTicks,
		Log:          k.log,
	})
	k.I2C.Register(k.bus)
	k.I2C.InitializeAll()
	k.state("i2c", StateInitialized)

	k.IRQ = irq.New(sp, irq.Config{
		BanksBase: p.IRQ.Banks,
		PACTLBase: p.IRQ.PACTL,
		AUXBase:   p.IRQ.AUX,
		Log:       k.log,
	})
	k.IRQ.Notify = func(e irq.Event) {
		k.Events.Publish(&bus.Message{Topic: bus.T("irq", e.Family, e.Instance), Payload: e})
	}

	k.Console.Printf("%s\n", Banner)
	k.summary()
	done = true
}

func (k *Kernel) route(win mmio.Region, pins ...board.PinPlan) {
	for _, pp := range pins {
		pin := gpio.New(win, gpio.Config{Pin: pp.Pin, Function: pp.Function, Pull: pp.Pull, Log: k.log})
		k.pins = append(k.pins, pin)
		pin.Init()
	}
}

func (k *Kernel) summary() {
	var clock uint32
	var framing string
	k.uart.Inner().Lock(func(s *uart.Inner) {
		clock = s.ClockHz()
		framing = s.Config().Framing()
	})
	k.log.Info("bring-up complete",
		"board", k.cfg.Plan.Name,
		"console", humanize.Comma(int64(k.cfg.Plan.UART.Baud))+" "+framing,
		"uartclk", humanize.SI(float64(clock), "Hz"),
		"i2c", humanize.SI(float64(k.cfg.Plan.I2C.Hz), "Hz"),
		"pins", len(k.pins))
}

// Shutdown releases the drivers, then the pins in reverse order. It is safe
// to call more than once. The console UART is detached before it is
// disabled, so teardown output lands in the console's early buffer.
func (k *Kernel) Shutdown() {
	if k.I2C.Active() {
		k.I2C.ReleaseAll()
		k.state("i2c", StateReleased)
	}
	if k.UART.Active() {
		k.Console.Detach()
		k.UART.ReleaseAll()
		k.state("uart", StateReleased)
	}
	for i := len(k.pins) - 1; i >= 0; i-- {
		k.pins[i].Close()
	}
}

func (k *Kernel) state(name, st string) {
	k.Events.Publish(&bus.Message{Topic: bus.T("driver", name), Payload: st, Retained: true})
}

// HandleIRQ dispatches every pending interrupt. Each event is also
// published on Events under irq/<family>/<instance>.
func (k *Kernel) HandleIRQ() []irq.Event {
	if k.IRQ == nil {
		return nil
	}
	return k.IRQ.Dispatch()
}
