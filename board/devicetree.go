package board

import (
	"bytes"
	"encoding/binary"
	"io"
	"strconv"

	"github.com/u-root/u-root/pkg/dt"

	"pibsp-go/errcode"
	"pibsp-go/mmio"
)

const (
	fdtMagic   = 0xd00dfeed
	maxFDTSize = 1 << 20
)

// Clock rates are published by the firmware clock node as
// assigned-clock-rates; some overlays spell it assigned-clocks-rates.
var clockRateProps = []string{"assigned-clock-rates", "assigned-clocks-rates"}

// DeviceTree answers the one question the drivers ask the firmware: the
// UART reference clock.
type DeviceTree struct {
	fdt     *dt.FDT
	Phandle uint32
}

// ParseDeviceTree reads a flattened device tree blob.
func ParseDeviceTree(r io.ReadSeeker, phandle uint32) (*DeviceTree, error) {
	fdt, err := dt.ReadFDT(r)
	if err != nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "board.ParseDeviceTree", Err: err}
	}
	return &DeviceTree{fdt: fdt, Phandle: phandle}, nil
}

// LoadDeviceTree copies the blob the firmware left at the start of r.
func LoadDeviceTree(r mmio.Region, phandle uint32) (*DeviceTree, error) {
	const op = "board.LoadDeviceTree"
	var hdr [8]byte
	for i := range hdr {
		hdr[i] = r.Load8(uintptr(i))
	}
	if binary.BigEndian.Uint32(hdr[0:]) != fdtMagic {
		return nil, errcode.New(errcode.InvalidParams, op, "no device tree at 0x"+strconv.FormatUint(uint64(r.Base()), 16))
	}
	size := binary.BigEndian.Uint32(hdr[4:])
	if size < 40 || size > maxFDTSize {
		return nil, errcode.New(errcode.InvalidParams, op, "implausible size "+strconv.FormatUint(uint64(size), 10))
	}
	blob := make([]byte, size)
	for i := range blob {
		blob[i] = r.Load8(uintptr(i))
	}
	return ParseDeviceTree(bytes.NewReader(blob), phandle)
}

// ClockRate returns the first cell of the clock-rate property on the node
// whose phandle is ph.
func (t *DeviceTree) ClockRate(ph uint32) (uint32, bool) {
	if t == nil || t.fdt == nil {
		return 0, false
	}
	n := findPhandle(t.fdt.RootNode, ph)
	if n == nil {
		return 0, false
	}
	for _, name := range clockRateProps {
		if v, ok := property(n, name); ok && len(v) >= 4 {
			return binary.BigEndian.Uint32(v), true
		}
	}
	return 0, false
}

// UARTClockHz makes the tree a uart.ClockSource.
func (t *DeviceTree) UARTClockHz() (uint32, bool) {
	if t == nil {
		return 0, false
	}
	return t.ClockRate(t.Phandle)
}

func findPhandle(n *dt.Node, ph uint32) *dt.Node {
	if n == nil {
		return nil
	}
	for _, name := range []string{"phandle", "linux,phandle"} {
		if v, ok := property(n, name); ok && len(v) == 4 && binary.BigEndian.Uint32(v) == ph {
			return n
		}
	}
	for _, c := range n.Children {
		if m := findPhandle(c, ph); m != nil {
			return m
		}
	}
	return nil
}

func property(n *dt.Node, name string) ([]byte, bool) {
	for _, p := range n.Properties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return nil, false
}
