// cmd/pibsp-bringup/main.go
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/hako/durafmt"

	"pibsp-go/board"
	"pibsp-go/bus"
	"pibsp-go/drivers/bcm2711/uart"
	"pibsp-go/errcode"
	"pibsp-go/kernel"
	"pibsp-go/mmio"
)

// ---------- Flags ----------

var (
	backend   = flag.String("backend", "sim", "memory backend: sim or devmem")
	devmem    = flag.String("devmem", "/dev/mem", "device for the devmem backend")
	dtbPath   = flag.String("dtb", "", "flattened device tree supplying the UART clock")
	overrides = flag.String("set", "", `plan overrides, e.g. "uart.baud=115200 i2c.hz=400000"`)
	verbosity = flag.Int("v", 0, "log verbosity")
	scan      = flag.Bool("scan", false, "probe the I2C bus after bring-up")
	dump      = flag.Bool("dump", false, "list the simulated register windows after bring-up")
	irqPass   = flag.Bool("irq", false, "run one interrupt dispatch pass after bring-up")
)

func main() {
	flag.Parse()

	stdr.SetVerbosity(*verbosity)
	lg := stdr.New(log.New(os.Stderr, "", log.LstdFlags))

	plan, err := board.ParseOverrides(board.Default(), *overrides)
	if err != nil {
		fail(lg, err, "bad -set")
	}

	var clock uart.ClockSource
	if *dtbPath != "" {
		f, err := os.Open(*dtbPath)
		if err != nil {
			fail(lg, err, "open dtb")
		}
		tree, err := board.ParseDeviceTree(f, plan.UART.ClockPhandle)
		f.Close()
		if err != nil {
			fail(lg, err, "parse dtb")
		}
		clock = tree
	}

	var (
		space mmio.Space
		sim   *machine
	)
	switch *backend {
	case "sim":
		sim = newMachine(plan, os.Stdout)
		space = sim.space
	case "devmem":
		dm, closeFn, err := openDevMem(*devmem)
		if err != nil {
			fail(lg, err, "open "+*devmem)
		}
		defer closeFn()
		space = dm
	default:
		fail(lg, errcode.New(errcode.InvalidParams, "main", *backend), "unknown -backend")
	}

	k := kernel.New(kernel.Config{Space: space, Plan: plan, Clock: clock, Log: lg})
	start := time.Now()
	if f := errcode.Catch(k.InitDrivers); f != nil {
		fail(lg, f, "bring-up failed")
	}
	defer k.Shutdown()
	lg.Info("bring-up time", "took", durafmt.Parse(time.Since(start)).String())

	states := k.Events.Subscribe(bus.T("driver", bus.Any))
	defer states.Unsubscribe()
	logEvents(lg, states)

	if *scan {
		scanBus(k, lg)
	}
	if *irqPass {
		events := k.Events.Subscribe(bus.T("irq", bus.Rest))
		k.HandleIRQ()
		logEvents(lg, events)
		events.Unsubscribe()
	}
	if *dump && sim != nil {
		sim.dump(os.Stdout)
	}
	lg.Info("console", "chars", humanize.Comma(int64(k.Console.CharsWritten())))
}

// ---------- Helpers ----------

func scanBus(k *kernel.Kernel, lg logr.Logger) {
	bus, ok := k.Bus()
	if !ok {
		return
	}
	var found []string
	var r [1]byte
	for addr := uint16(0x08); addr < 0x78; addr++ {
		if err := bus.Tx(addr, nil, r[:]); err == nil {
			found = append(found, fmt.Sprintf("0x%02x", addr))
		} else if errcode.Of(err) != errcode.TransferFailed {
			lg.Error(err, "scan stopped", "addr", addr)
			break
		}
	}
	lg.Info("i2c scan", "found", found)
}

func logEvents(lg logr.Logger, sub *bus.Subscription) {
	for {
		select {
		case m := <-sub.Channel():
			lg.Info("event", "topic", m.Topic.String(), "payload", m.Payload)
		default:
			return
		}
	}
}

func fail(lg logr.Logger, err error, msg string) {
	lg.Error(err, msg)
	os.Exit(1)
}
