// Package mmio is the only place in the tree that turns integers into
// device addresses. Everything above it talks to a Region: a window of
// device memory starting at a fixed base, accessed with explicit widths.
//
// Three backends exist:
//
//	Map(base)           physical window, for the bare-metal kernel
//	NewSim(base, size)  byte backing store with hooks, for tests and the host simulator
//	OpenDevMem(...)     /dev/mem mapping, for running the drivers from Linux (root only)
package mmio

// Region is a window of memory-mapped registers. Offsets are in bytes from
// Base. Every access is performed exactly once, in program order.
type Region interface {
	Base() uintptr

	Load8(off uintptr) uint8
	Load16(off uintptr) uint16
	Load32(off uintptr) uint32

	Store8(off uintptr, v uint8)
	Store16(off uintptr, v uint16)
	Store32(off uintptr, v uint32)
}

// Space hands out regions for physical windows. The bring-up code asks a
// Space for every peripheral it drives, so swapping the Space swaps the
// whole machine.
type Space interface {
	Window(base, size uintptr) Region
}
