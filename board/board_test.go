package board

import (
	"bytes"
	"encoding/binary"
	"testing"

	"pibsp-go/drivers/bcm2711/gpio"
	"pibsp-go/drivers/bcm2711/uart"
	"pibsp-go/errcode"
	"pibsp-go/mmio"
)

// ---------------- FDT builder ----------------

type prop struct {
	name string
	val  []byte
}

type node struct {
	name     string
	props    []prop
	children []node
}

func u32(v uint32) []byte { return binary.BigEndian.AppendUint32(nil, v) }

// buildFDT encodes a minimal version-17 flattened device tree.
func buildFDT(root node) []byte {
	var strs bytes.Buffer
	offs := map[string]uint32{}
	var st bytes.Buffer
	pad := func() {
		for st.Len()%4 != 0 {
			st.WriteByte(0)
		}
	}
	var emit func(n node)
	emit = func(n node) {
		st.Write(u32(1))
		st.WriteString(n.name)
		st.WriteByte(0)
		pad()
		for _, p := range n.props {
			off, ok := offs[p.name]
			if !ok {
				off = uint32(strs.Len())
				offs[p.name] = off
				strs.WriteString(p.name)
				strs.WriteByte(0)
			}
			st.Write(u32(3))
			st.Write(u32(uint32(len(p.val))))
			st.Write(u32(off))
			st.Write(p.val)
			pad()
		}
		for _, c := range n.children {
			emit(c)
		}
		st.Write(u32(2))
	}
	emit(root)
	st.Write(u32(9))

	const hdrLen, rsvLen = 40, 16
	offStruct := uint32(hdrLen + rsvLen)
	offStrings := offStruct + uint32(st.Len())
	total := offStrings + uint32(strs.Len())

	var out bytes.Buffer
	for _, v := range []uint32{
		fdtMagic, total, offStruct, offStrings, hdrLen,
		17, 16, 0, uint32(strs.Len()), uint32(st.Len()),
	} {
		out.Write(u32(v))
	}
	out.Write(make([]byte, rsvLen))
	out.Write(st.Bytes())
	out.Write(strs.Bytes())
	return out.Bytes()
}

func rpiTree(rateProp string, rate uint32) []byte {
	return buildFDT(node{
		props: []prop{{"#address-cells", u32(2)}},
		children: []node{
			{name: "soc", children: []node{
				{name: "gpio@7e200000", props: []prop{{"phandle", u32(0x10)}}},
				{name: "clocks", children: []node{
					{name: "clock@3", props: []prop{
						{"phandle", u32(UARTClockPhandle)},
						{rateProp, append(u32(rate), u32(0)...)},
					}},
				}},
			}},
		},
	})
}

// ---------------- Device tree ----------------

func TestDeviceTree_ClockRate(t *testing.T) {
	for _, name := range clockRateProps {
		tree, err := ParseDeviceTree(bytes.NewReader(rpiTree(name, 3_000_000)), UARTClockPhandle)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		hz, ok := tree.UARTClockHz()
		if !ok || hz != 3_000_000 {
			t.Fatalf("%s: clock = %d, %v", name, hz, ok)
		}
		if _, ok := tree.ClockRate(0x10); ok {
			t.Fatalf("%s: node without clock property answered", name)
		}
		if _, ok := tree.ClockRate(0x99); ok {
			t.Fatalf("%s: unknown phandle answered", name)
		}
	}
	var _ uart.ClockSource = (*DeviceTree)(nil)
}

func TestLoadDeviceTree_FromMemory(t *testing.T) {
	blob := rpiTree("assigned-clock-rates", 48_000_000)
	sim := mmio.NewSim(0x0800_0000, uintptr(len(blob)+64))
	for i, b := range blob {
		sim.Store8(uintptr(i), b)
	}
	tree, err := LoadDeviceTree(sim, UARTClockPhandle)
	if err != nil {
		t.Fatal(err)
	}
	if hz, ok := tree.UARTClockHz(); !ok || hz != 48_000_000 {
		t.Fatalf("clock = %d, %v", hz, ok)
	}

	empty := mmio.NewSim(0x0800_0000, 64)
	if _, err := LoadDeviceTree(empty, UARTClockPhandle); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("err = %v", err)
	}
}

func TestNilDeviceTreeHasNoClock(t *testing.T) {
	var tree *DeviceTree
	if _, ok := tree.UARTClockHz(); ok {
		t.Fatal("nil tree answered")
	}
}

// ---------------- Plan ----------------

func TestDefaultPlan(t *testing.T) {
	p := Default()
	if p.UART.Base != 0xFE20_1000 || p.I2C.Base != 0xFE80_4000 || p.GPIO != 0xFE20_0000 {
		t.Fatalf("bases: %+v", p)
	}
	pins := p.Pins()
	want := []int{14, 15, 2, 3}
	for i, pp := range pins {
		if pp.Pin != want[i] || pp.Function != gpio.Alt0 || pp.Pull != gpio.PullUp {
			t.Fatalf("pin %d: %+v", i, pp)
		}
	}
	if p.UART.Baud != 9600 || p.I2C.Hz != 100_000 || p.I2C.TimeoutTicks != 3 {
		t.Fatalf("rates: %+v %+v", p.UART, p.I2C)
	}
}

func TestParseOverrides(t *testing.T) {
	p, err := ParseOverrides(Default(), `uart.baud=115200 'uart.framing=7E2' i2c.hz=400_000 i2c.timeout=0x40 uart.phandle=0x44`)
	if err != nil {
		t.Fatal(err)
	}
	if p.UART.Baud != 115200 || p.UART.WordLength != uart.Bits7 || p.UART.Parity != uart.ParityEven || p.UART.StopBits != uart.StopTwo {
		t.Fatalf("uart: %+v", p.UART)
	}
	if p.I2C.Hz != 400_000 || p.I2C.TimeoutTicks != 0x40 || p.UART.ClockPhandle != 0x44 {
		t.Fatalf("i2c: %+v", p.I2C)
	}

	p, err = ParseOverrides(Default(), "uart.parity=odd uart.bits=5 uart.stop=1")
	if err != nil || p.UART.Parity != uart.ParityOdd || p.UART.WordLength != uart.Bits5 {
		t.Fatalf("p=%+v err=%v", p.UART, err)
	}

	for _, bad := range []string{
		"uart.baud",
		"uart.bits=9",
		"uart.stop=3",
		"uart.parity=mark",
		"uart.framing=8X1",
		"gpio.pin=4",
		"i2c.hz=fast",
		`uart.baud="unterminated`,
	} {
		got, err := ParseOverrides(Default(), bad)
		if errcode.Of(err) != errcode.InvalidParams {
			t.Fatalf("%q: err = %v", bad, err)
		}
		if got != Default() {
			t.Fatalf("%q: plan modified on error", bad)
		}
	}
}
