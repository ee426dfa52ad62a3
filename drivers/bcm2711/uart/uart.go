package uart

import (
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"

	"pibsp-go/errcode"
	"pibsp-go/lock"
	"pibsp-go/mmio"
	"pibsp-go/reg"
)

// ---------------- Line settings ----------------

// Parity values are the LCRH PEN/EPS field codes.
type Parity uint8

const (
	ParityNone Parity = 0b00
	ParityOdd  Parity = 0b01
	ParityEven Parity = 0b11
)

func (p Parity) String() string {
	switch p {
	case ParityNone:
		return "N"
	case ParityOdd:
		return "O"
	case ParityEven:
		return "E"
	}
	return "?"
}

// WordLength is the number of data bits, 5..8.
type WordLength uint8

const (
	Bits5 WordLength = 5
	Bits6 WordLength = 6
	Bits7 WordLength = 7
	Bits8 WordLength = 8
)

type StopBits uint8

const (
	StopOne StopBits = 0
	StopTwo StopBits = 1
)

// ClockSource publishes the UART reference clock, typically read from the
// device tree.
type ClockSource interface {
	UARTClockHz() (hz uint32, ok bool)
}

// FixedClock is a ClockSource that always reports its value.
type FixedClock uint32

func (c FixedClock) UARTClockHz() (uint32, bool) { return uint32(c), c != 0 }

type Config struct {
	BaudRate   uint32
	Parity     Parity
	WordLength WordLength // zero means Bits8
	StopBits   StopBits
	Clock      ClockSource // nil means DefaultClockHz
	Log        logr.Logger
}

// Framing renders the settings as e.g. "8N1".
func (c Config) Framing() string {
	stop := "1"
	if c.StopBits == StopTwo {
		stop = "2"
	}
	return strconv.Itoa(int(c.WordLength)) + c.Parity.String() + stop
}

// LineOption overrides one stored line setting. Settings without an option
// keep their stored value.
type LineOption func(*Inner)

func WithParity(p Parity) LineOption         { return func(s *Inner) { s.cfg.Parity = p } }
func WithWordLength(w WordLength) LineOption { return func(s *Inner) { s.cfg.WordLength = w } }
func WithStopBits(b StopBits) LineOption     { return func(s *Inner) { s.cfg.StopBits = b } }

// ---------------- Driver state ----------------

// Inner is the UART's private state.
type Inner struct {
	v       reg.View[registers]
	cfg     Config
	clock   uint32
	div     Divisor
	written int
	log     logr.Logger
}

func (s *Inner) Config() Config    { return s.cfg }
func (s *Inner) Divisor() Divisor  { return s.div }
func (s *Inner) CharsWritten() int { return s.written }
func (s *Inner) ClockHz() uint32   { return s.clock }

// ResolveClockRate asks the configured clock source once and caches the
// answer. Without one, DefaultClockHz is used and noted in the log.
func (s *Inner) ResolveClockRate() uint32 {
	if s.clock != 0 {
		return s.clock
	}
	if s.cfg.Clock != nil {
		if hz, ok := s.cfg.Clock.UARTClockHz(); ok && hz != 0 {
			s.clock = hz
			return s.clock
		}
	}
	s.clock = DefaultClockHz
	s.log.Info("clock rate not published, default loaded", "clock", humanize.SI(float64(s.clock), "Hz"))
	return s.clock
}

// Initialize resolves the clock, enables the UART, programs the baud
// divisor, flushes the FIFOs and applies the stored line settings. An
// unusable baud rate is fatal and leaves CR untouched.
func (s *Inner) Initialize() {
	clock := s.ResolveClockRate()
	d, err := BaudDivisor(clock, s.cfg.BaudRate)
	if err != nil {
		errcode.Abort("uart.Initialize", err)
	}

	s.v.Write32(s.v.Regs.CR, crUARTEN|crTXE|crRXE)
	s.div = d
	s.v.Write32(s.v.Regs.IBRD, uint32(d.Integer))
	s.v.Write32(s.v.Regs.FBRD, uint32(d.Fraction))

	s.Flush()
	s.ApplyLineControl()
	s.log.Info("UART initialized",
		"baud", s.cfg.BaudRate, "framing", s.cfg.Framing(),
		"clock", humanize.SI(float64(clock), "Hz"),
		"ibrd", d.Integer, "fbrd", d.Fraction, "achieved", d.Achieved(clock))
}

// Release disables the UART.
func (s *Inner) Release() {
	s.v.Write32(s.v.Regs.CR, 0)
}

// ApplyLineControl stores the given overrides and packs parity, word length
// and stop bits into LCRH, one read-modify-write per field.
func (s *Inner) ApplyLineControl(opts ...LineOption) {
	for _, o := range opts {
		o(s)
	}
	if s.cfg.WordLength < Bits5 || s.cfg.WordLength > Bits8 {
		errcode.FatalDepth(1, errcode.InvalidParams, "uart.ApplyLineControl", "word length "+strconv.Itoa(int(s.cfg.WordLength)))
	}
	s.v.SetField(s.v.Regs.LCRH, lcrhParity, 0b11, uint32(s.cfg.Parity))
	s.v.SetField(s.v.Regs.LCRH, lcrhWLEN, 0b11, uint32(s.cfg.WordLength-Bits5))
	s.v.SetBit(s.v.Regs.LCRH, lcrhSTP2, s.cfg.StopBits == StopTwo)
}

// Flush discards pending FIFO contents. A non-empty transmit FIFO is dropped
// by toggling LCRH.FEN; a non-empty receive FIFO is drained with exactly
// FIFODepth+1 reads. Flags are sampled once.
func (s *Inner) Flush() {
	fr := s.v.Read32(s.v.Regs.FR)
	if fr&(1<<frTXFE) == 0 {
		s.v.SetBit(s.v.Regs.LCRH, lcrhFEN, false)
		s.v.SetBit(s.v.Regs.LCRH, lcrhFEN, true)
	}
	if fr&(1<<frRXFE) == 0 {
		for i := 0; i < FIFODepth+1; i++ {
			s.v.Read32(s.v.Regs.DR)
		}
	}
}

// ---------------- Transmit ----------------

func (s *Inner) put(c byte) {
	for s.v.IsSet(s.v.Regs.FR, frTXFF) {
	}
	s.v.Write32(s.v.Regs.DR, uint32(c))
	s.written++
}

// WriteByte transmits c, expanding '\n' to "\r\n".
func (s *Inner) WriteByte(c byte) error {
	if c == '\n' {
		s.put('\r')
	}
	s.put(c)
	return nil
}

func (s *Inner) Write(p []byte) (int, error) {
	for _, c := range p {
		s.WriteByte(c)
	}
	return len(p), nil
}

func (s *Inner) WriteString(str string) (int, error) {
	for i := 0; i < len(str); i++ {
		s.WriteByte(str[i])
	}
	return len(str), nil
}

// ---------------- Driver ----------------

// UART owns a PL011 instance. It is the console sink once initialised.
type UART struct {
	m *lock.NullLock[*Inner]
}

// New binds a driver to the PL011 block at r. Nothing is touched until
// Initialize.
func New(r mmio.Region, cfg Config) *UART {
	if cfg.WordLength == 0 {
		cfg.WordLength = Bits8
	}
	return &UART{m: lock.NewNull(&Inner{
		v:   reg.Map(r, &regs),
		cfg: cfg,
		log: cfg.Log.WithName("uart"),
	})}
}

func (u *UART) Inner() lock.Mutex[*Inner] { return u.m }

func (u *UART) Write(p []byte) (int, error) {
	var n int
	u.m.Lock(func(s *Inner) { n, _ = s.Write(p) })
	return n, nil
}

func (u *UART) WriteString(str string) (int, error) {
	var n int
	u.m.Lock(func(s *Inner) { n, _ = s.WriteString(str) })
	return n, nil
}

func (u *UART) CharsWritten() int {
	return lock.With[*Inner](u.m, (*Inner).CharsWritten)
}
