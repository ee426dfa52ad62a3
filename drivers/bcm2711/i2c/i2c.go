package i2c

import (
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/hako/durafmt"
	"tinygo.org/x/drivers"

	"pibsp-go/errcode"
	"pibsp-go/lock"
	"pibsp-go/mmio"
	"pibsp-go/reg"
	"pibsp-go/x/mathx"
	"pibsp-go/x/timex"
)

type Direction uint8

const (
	Write Direction = iota
	Read
)

// State tracks the controller through Idle → Configured → Transferring → Idle.
type State uint8

const (
	Idle State = iota
	Configured
	Transferring
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Configured:
		return "configured"
	case Transferring:
		return "transferring"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

type Config struct {
	CoreClockHz  uint32 // zero means CoreClockHz
	BusHz        uint32
	TimeoutTicks uint16 // SCL cycles a slave may stretch the clock
	Log          logr.Logger
}

// Inner is the controller's private state.
type Inner struct {
	v     reg.View[registers]
	cfg   Config
	state State
	dir   Direction
	addr  uint16
	dlen  int
	div   uint32
	log   logr.Logger
}

func (s *Inner) State() State         { return s.state }
func (s *Inner) Direction() Direction { return s.dir }
func (s *Inner) Address() uint16      { return s.addr }
func (s *Inner) DataLength() int      { return s.dlen }
func (s *Inner) ClockDivisor() uint32 { return s.div }

// Initialize enables the controller, programs the clock divider and the
// clock-stretch timeout, then writes a probe message to ProbeAddress.
func (s *Inner) Initialize() {
	s.v.Write32(s.v.Regs.C, 1<<cI2CEN)
	s.SetClockDivisor()
	s.SetTimeout()
	s.state = Configured
	s.log.Info("I2C initialized",
		"bus", s.cfg.BusHz, "div", s.div,
		"timeout", durafmt.Parse(s.TimeoutDuration()).String())
	s.WriteSlave(ProbeAddress, []byte(probeMessage))
}

// Release disables the controller.
func (s *Inner) Release() {
	s.v.Write32(s.v.Regs.C, 0)
	s.state = Idle
}

// SetClockDivisor writes core/bus, rounded up so SCL never runs faster than
// BusHz, to DIV, clamped to the 16-bit field. DIV=0 would mean 32768, so
// the floor is 2.
func (s *Inner) SetClockDivisor() uint32 {
	if s.cfg.BusHz == 0 {
		errcode.FatalDepth(1, errcode.InvalidParams, "i2c.SetClockDivisor", "zero bus frequency")
	}
	s.div = mathx.Clamp(mathx.CeilDiv(s.cfg.CoreClockHz, s.cfg.BusHz), 2, 0xFFFF)
	s.v.Write32(s.v.Regs.DIV, s.div)
	return s.div
}

func (s *Inner) SetTimeout() {
	s.v.Write32(s.v.Regs.CLKT, uint32(s.cfg.TimeoutTicks))
}

// TimeoutDuration is the clock-stretch timeout at the configured bus rate.
func (s *Inner) TimeoutDuration() time.Duration {
	return timex.Ticks(uint32(s.cfg.TimeoutTicks), s.cfg.BusHz)
}

// SetAddress programs a 7-bit slave address; the 8th bit is fatal.
func (s *Inner) SetAddress(addr uint16) {
	if addr > MaxAddress {
		errcode.FatalDepth(1, errcode.InvalidAddress, "i2c.SetAddress", "0x"+strconv.FormatUint(uint64(addr), 16)+" is not a 7-bit address")
	}
	s.addr = addr
	s.v.Write32(s.v.Regs.A, uint32(addr))
}

// SetDirection flips C.READ, keeping the other control bits.
func (s *Inner) SetDirection(d Direction) {
	s.dir = d
	s.v.SetBit(s.v.Regs.C, cREAD, d == Read)
}

func (s *Inner) setDataLength(n int) {
	s.dlen = n
	s.v.Write32(s.v.Regs.DLEN, uint32(n))
}

func (s *Inner) clearFIFO() {
	s.v.SetField(s.v.Regs.C, cCLEAR, 0b11, 0b11)
}

func (s *Inner) clearStatus() {
	s.v.Write32(s.v.Regs.S, uint32(statusW1C))
}

func (s *Inner) start() {
	if !s.v.IsSet(s.v.Regs.C, cI2CEN) {
		errcode.FatalDepth(2, errcode.NotEnabled, "i2c.start", "transfer started with I2CEN clear")
	}
	s.v.SetBit(s.v.Regs.C, cST, true)
	s.state = Transferring
}

// WriteSlave queues data for addr and starts the transfer. Completion is
// visible through Status. More than FIFODepth bytes is fatal.
func (s *Inner) WriteSlave(addr uint16, data []byte) {
	if len(data) > FIFODepth {
		errcode.FatalDepth(1, errcode.InvalidParams, "i2c.WriteSlave", strconv.Itoa(len(data))+" bytes exceed the FIFO")
	}
	s.SetDirection(Write)
	s.SetAddress(addr)
	s.setDataLength(len(data))
	s.clearFIFO()
	for _, b := range data {
		s.v.Write32(s.v.Regs.FIFO, uint32(b))
	}
	s.clearStatus()
	s.start()
}

// ReadSlave starts a read of len(buf) bytes from addr and drains exactly
// that many bytes from the FIFO.
func (s *Inner) ReadSlave(addr uint16, buf []byte) {
	s.SetDirection(Read)
	s.SetAddress(addr)
	s.setDataLength(len(buf))
	s.clearFIFO()
	s.start()
	for i := range buf {
		buf[i] = s.v.Read8(s.v.Regs.FIFO)
	}
	s.state = Idle
}

// Status reads S. A finished transfer returns the controller to Idle.
func (s *Inner) Status() Status {
	st := Status(s.v.Read32(s.v.Regs.S))
	if s.state == Transferring && st.Done() {
		s.state = Idle
	}
	return st
}

// wait polls S until one of the bits in mask is set.
func (s *Inner) wait(mask Status) Status {
	for {
		if st := s.Status(); st&mask != 0 {
			return st
		}
	}
}

// ---------------- Driver ----------------

// I2C owns a BSC instance.
type I2C struct {
	m *lock.NullLock[*Inner]
}

var _ drivers.I2C = (*I2C)(nil)

// New binds a driver to the BSC block at r.
func New(r mmio.Region, cfg Config) *I2C {
	if cfg.CoreClockHz == 0 {
		cfg.CoreClockHz = CoreClockHz
	}
	return &I2C{m: lock.NewNull(&Inner{
		v:   reg.Map(r, &regs),
		cfg: cfg,
		log: cfg.Log.WithName("i2c"),
	})}
}

func (b *I2C) Inner() lock.Mutex[*Inner] { return b.m }

// Tx performs a write of w followed by a read into r, either of which may
// be empty. Unlike WriteSlave and ReadSlave it reports bus failures as
// errors: invalid_address, invalid_params (w longer than FIFODepth),
// not_enabled, transfer_failed (NACK) and timeout (clock stretch).
func (b *I2C) Tx(addr uint16, w, r []byte) error {
	const op = "i2c.Tx"
	if addr > MaxAddress {
		return errcode.New(errcode.InvalidAddress, op, "0x"+strconv.FormatUint(uint64(addr), 16))
	}
	if len(w) > FIFODepth {
		return errcode.New(errcode.InvalidParams, op, strconv.Itoa(len(w))+" bytes exceed the FIFO")
	}
	return lock.With[*Inner](b.m, func(s *Inner) error {
		if !s.v.IsSet(s.v.Regs.C, cI2CEN) {
			return errcode.New(errcode.NotEnabled, op, "")
		}
		if len(w) > 0 {
			s.WriteSlave(addr, w)
			if err := s.finish(op, s.wait(statusW1C)); err != nil {
				return err
			}
		}
		if len(r) > 0 {
			s.SetDirection(Read)
			s.SetAddress(addr)
			s.setDataLength(len(r))
			s.clearFIFO()
			s.clearStatus()
			s.start()
			for i := range r {
				st := s.wait(StatusRXD | StatusERR | StatusCLKT)
				if st&(StatusERR|StatusCLKT) != 0 {
					return s.finish(op, st)
				}
				r[i] = s.v.Read8(s.v.Regs.FIFO)
			}
			return s.finish(op, s.wait(statusW1C))
		}
		return nil
	})
}

// finish acknowledges a completed transfer and maps its outcome.
func (s *Inner) finish(op string, st Status) error {
	s.clearStatus()
	s.state = Idle
	switch {
	case st.NACK():
		return errcode.New(errcode.TransferFailed, op, "no acknowledge from 0x"+strconv.FormatUint(uint64(s.addr), 16))
	case st.TimedOut():
		return errcode.New(errcode.Timeout, op, "clock stretch timeout")
	}
	return nil
}
