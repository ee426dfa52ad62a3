package uart

import (
	"testing"

	"github.com/go-logr/logr/testr"

	"pibsp-go/errcode"
	"pibsp-go/mmio"
)

const (
	base = 0xFE20_1000

	offDR   = 0x00
	offFR   = 0x18
	offIBRD = 0x24
	offFBRD = 0x28
	offLCRH = 0x2c
	offCR   = 0x30
	offMIS  = 0x40
	offICR  = 0x44
)

func newUART(t *testing.T, cfg Config) (*UART, *mmio.Sim) {
	t.Helper()
	sim := mmio.NewSim(base, Size)
	cfg.Log = testr.New(t)
	return New(sim, cfg), sim
}

func idleFIFOs(sim *mmio.Sim) { sim.Poke32(offFR, 1<<frTXFE|1<<frRXFE) }

func TestInitialize_8N1At9600(t *testing.T) {
	u, sim := newUART(t, Config{BaudRate: 9600, Clock: FixedClock(48_000_000)})
	idleFIFOs(sim)
	u.Inner().Lock(func(s *Inner) { s.Initialize() })

	lcrh := sim.Peek32(offLCRH)
	if wlen := (lcrh >> 5) & 0b11; wlen != 0b11 {
		t.Fatalf("WLEN = %#b", wlen)
	}
	if parity := (lcrh >> 1) & 0b11; parity != 0b00 {
		t.Fatalf("parity = %#b", parity)
	}
	if stp2 := (lcrh >> 3) & 1; stp2 != 0 {
		t.Fatalf("STP2 = %d", stp2)
	}
	if sim.Peek32(offIBRD) != 312 || sim.Peek32(offFBRD) != 32 {
		t.Fatalf("IBRD=%d FBRD=%d", sim.Peek32(offIBRD), sim.Peek32(offFBRD))
	}
	if sim.Peek32(offCR) != 0x301 {
		t.Fatalf("CR = %#x", sim.Peek32(offCR))
	}
}

func TestInitialize_Order(t *testing.T) {
	u, sim := newUART(t, Config{BaudRate: 115200, Clock: FixedClock(48_000_000)})
	idleFIFOs(sim)
	u.Inner().Lock(func(s *Inner) { s.Initialize() })

	var order []uintptr
	for _, a := range sim.Trace() {
		if a.Store {
			order = append(order, a.Off)
		}
	}
	want := []uintptr{offCR, offIBRD, offFBRD, offLCRH, offLCRH, offLCRH}
	if len(order) != len(want) {
		t.Fatalf("stores = %#x", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("store %d at %#x, want %#x (all %#x)", i, order[i], want[i], order)
		}
	}
}

func TestInitialize_DefaultClock(t *testing.T) {
	u, sim := newUART(t, Config{BaudRate: 9600})
	idleFIFOs(sim)
	u.Inner().Lock(func(s *Inner) {
		s.Initialize()
		if s.ClockHz() != DefaultClockHz {
			t.Fatalf("clock = %d", s.ClockHz())
		}
	})
}

func TestInitialize_UnattainableBaudIsFatal(t *testing.T) {
	u, sim := newUART(t, Config{BaudRate: 7_000_000, Clock: FixedClock(48_000_000)})
	idleFIFOs(sim)
	f := errcode.Catch(func() { u.Inner().Lock(func(s *Inner) { s.Initialize() }) })
	if f == nil || f.C != errcode.BaudUnattainable {
		t.Fatalf("fault = %v", f)
	}
	if got := sim.Stores(offCR); len(got) != 0 {
		t.Fatalf("UART enabled before the divisor was checked: CR stores = %#x", got)
	}
}

func TestApplyLineControl_KeepsOmittedSettings(t *testing.T) {
	u, sim := newUART(t, Config{BaudRate: 9600, Parity: ParityOdd, StopBits: StopTwo})
	sim.Poke32(offLCRH, 1<<lcrhFEN|1<<7) // FEN and SPS must survive
	u.Inner().Lock(func(s *Inner) {
		s.ApplyLineControl()
		if got := sim.Peek32(offLCRH); got != 1<<7|0b11<<5|1<<4|1<<3|0b01<<1 {
			t.Fatalf("stored settings: LCRH = %#b", got)
		}
		s.ApplyLineControl(WithParity(ParityEven), WithWordLength(Bits7))
		if got := sim.Peek32(offLCRH); got != 1<<7|0b10<<5|1<<4|1<<3|0b11<<1 {
			t.Fatalf("overrides: LCRH = %#b", got)
		}
		if s.Config().StopBits != StopTwo || s.Config().Framing() != "7E2" {
			t.Fatalf("config = %+v", s.Config())
		}
	})
}

func TestFlush(t *testing.T) {
	cases := []struct {
		name       string
		fr         uint32
		fenToggles int
		drReads    int
	}{
		{"idle", 1<<frTXFE | 1<<frRXFE, 0, 0},
		{"tx pending", 1 << frRXFE, 2, 0},
		{"rx pending", 1 << frTXFE, 0, FIFODepth + 1},
		{"both pending", 0, 2, FIFODepth + 1},
	}
	for _, c := range cases {
		u, sim := newUART(t, Config{BaudRate: 9600})
		sim.Poke32(offFR, c.fr)
		sim.Poke32(offLCRH, 1<<lcrhFEN)
		u.Inner().Lock(func(s *Inner) { s.Flush() })

		stores := sim.Stores(offLCRH)
		if len(stores) != c.fenToggles {
			t.Fatalf("%s: LCRH stores = %#x", c.name, stores)
		}
		if c.fenToggles == 2 && (stores[0]&(1<<lcrhFEN) != 0 || stores[1]&(1<<lcrhFEN) == 0) {
			t.Fatalf("%s: FEN not disabled then enabled: %#x", c.name, stores)
		}
		if n := sim.Loads(offDR); n != c.drReads {
			t.Fatalf("%s: DR reads = %d", c.name, n)
		}
		if n := sim.Loads(offFR); n != 1 {
			t.Fatalf("%s: FR sampled %d times", c.name, n)
		}
	}
}

func TestWrite_ExpandsNewlineAndCounts(t *testing.T) {
	u, sim := newUART(t, Config{BaudRate: 9600})
	busy := 3
	sim.OnLoad(offFR, func() uint32 {
		if busy > 0 {
			busy--
			return 1 << frTXFF
		}
		return 0
	})
	n, err := u.WriteString("ok\n")
	if err != nil || n != 3 {
		t.Fatalf("WriteString = %d, %v", n, err)
	}
	got := sim.Stores(offDR)
	want := []uint32{'o', 'k', '\r', '\n'}
	if len(got) != len(want) {
		t.Fatalf("DR stores = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("DR stores = %q", got)
		}
	}
	if u.CharsWritten() != 4 {
		t.Fatalf("CharsWritten = %d", u.CharsWritten())
	}
	u.Write([]byte("x"))
	if u.CharsWritten() != 5 {
		t.Fatalf("CharsWritten should be cumulative, got %d", u.CharsWritten())
	}
}

func TestInterrupts(t *testing.T) {
	u, sim := newUART(t, Config{BaudRate: 9600})
	sim.Poke32(offMIS, uint32(IntRX|IntOE)|1<<15)
	u.Inner().Lock(func(s *Inner) {
		m := s.PendingInterrupts()
		if m != IntRX|IntOE {
			t.Fatalf("pending = %v", m)
		}
		if m.String() != "RX|OE" {
			t.Fatalf("String = %q", m.String())
		}
		s.ClearInterrupts(m)
	})
	if got := sim.Stores(offICR); len(got) != 1 || got[0] != uint32(IntRX|IntOE) {
		t.Fatalf("ICR stores = %#x", got)
	}
}

func TestRelease(t *testing.T) {
	u, sim := newUART(t, Config{BaudRate: 9600})
	idleFIFOs(sim)
	u.Inner().Lock(func(s *Inner) {
		s.Initialize()
		s.Release()
	})
	if sim.Peek32(offCR) != 0 {
		t.Fatalf("CR = %#x", sim.Peek32(offCR))
	}
}
