package gpio

import (
	"strconv"

	"github.com/go-logr/logr"

	"pibsp-go/errcode"
	"pibsp-go/lock"
	"pibsp-go/mmio"
	"pibsp-go/reg"
)

type Level uint8

const (
	Low Level = iota
	High
)

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// State tracks the pin through Unconfigured → FunctionSelected → (Driven | Released).
type State uint8

const (
	Unconfigured State = iota
	FunctionSelected
	Driven
	Released
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case FunctionSelected:
		return "function-selected"
	case Driven:
		return "driven"
	case Released:
		return "released"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// ---------------- Banking ----------------

// FunctionSelect returns the GPFSEL register index and bit offset of pin.
func FunctionSelect(pin int) (bank int, shift int) {
	checkPin(pin, "gpio.FunctionSelect")
	return pin / pinsPerFSEL, (pin % pinsPerFSEL) * 3
}

// OutputBit returns the bank (0 or 1) and bit used for pin by the
// set/clear/level/event/edge-enable register pairs.
func OutputBit(pin int) (bank int, bit int) {
	checkPin(pin, "gpio.OutputBit")
	if pin < pinsPerBank {
		return 0, pin
	}
	return 1, pin - pinsPerBank
}

// PullControl returns the GPIO_PUP_PDN_CNTRL register index and bit offset of pin.
func PullControl(pin int) (idx int, shift int) {
	checkPin(pin, "gpio.PullControl")
	return pin / pinsPerPull, (pin % pinsPerPull) * 2
}

func checkPin(pin int, op string) {
	if pin < 0 || pin > MaxPin {
		errcode.FatalDepth(2, errcode.InvalidPin, op, "pin "+strconv.Itoa(pin))
	}
}

// ---------------- Driver state ----------------

type Config struct {
	Pin      int
	Function Function
	Pull     Pull
	Log      logr.Logger
}

// Inner is the pin's private state. Reach it through Pin.Inner.
type Inner struct {
	pin   int
	fn    Function
	pull  Pull
	level Level
	state State
	v     reg.View[registers]
	log   logr.Logger
}

func (s *Inner) Pin() int           { return s.pin }
func (s *Inner) Function() Function { return s.fn }
func (s *Inner) Pull() Pull         { return s.pull }
func (s *Inner) Level() Level       { return s.level }
func (s *Inner) State() State       { return s.state }

// Initialize asserts the output bit, programs the function and pull fields
// and samples the level.
func (s *Inner) Initialize() {
	s.pulse(s.v.Regs.GPSET)

	bank, shift := FunctionSelect(s.pin)
	s.v.SetField(s.v.Regs.GPFSEL[bank], shift, fselMask, uint32(s.fn))

	idx, pshift := PullControl(s.pin)
	s.v.SetField(s.v.Regs.PUPPDN[idx], pshift, pullMask, uint32(s.pull))

	s.SampleLevel()
	s.state = FunctionSelected
	s.log.Info("GPIO initialized", "pin", s.pin, "function", s.fn, "pull", s.pull, "level", s.level)
}

// Release clears the output bit.
func (s *Inner) Release() {
	s.pulse(s.v.Regs.GPCLR)
	s.state = Released
	s.log.Info("GPIO cleared", "pin", s.pin)
}

func (s *Inner) SetOutput() {
	s.pulse(s.v.Regs.GPSET)
	s.state = Driven
}

func (s *Inner) ClearOutput() {
	s.pulse(s.v.Regs.GPCLR)
}

// SampleLevel reads and records the pin's level.
func (s *Inner) SampleLevel() Level {
	bank, bit := OutputBit(s.pin)
	s.level = Low
	if s.v.IsSet(s.v.Regs.GPLEV[bank], bit) {
		s.level = High
	}
	return s.level
}

// CheckEdgeEvent reports whether an edge was detected since the last
// ClearEdgeEvent. It does not clear the event.
func (s *Inner) CheckEdgeEvent() bool {
	bank, bit := OutputBit(s.pin)
	return s.v.IsSet(s.v.Regs.GPEDS[bank], bit)
}

// ClearEdgeEvent acknowledges the pin's event (GPEDS is write-one-to-clear).
func (s *Inner) ClearEdgeEvent() {
	s.pulse(s.v.Regs.GPEDS)
}

// EnableEdgeDetect arms or disarms synchronous rising/falling edge detection.
func (s *Inner) EnableEdgeDetect(rising, falling bool) {
	bank, bit := OutputBit(s.pin)
	s.v.SetBit(s.v.Regs.GPREN[bank], bit, rising)
	s.v.SetBit(s.v.Regs.GPFEN[bank], bit, falling)
}

// pulse writes the pin's single bit into one register of a bank pair.
func (s *Inner) pulse(pair [2]reg.Register) {
	bank, bit := OutputBit(s.pin)
	s.v.Write32(pair[bank], 1<<bit)
}

// ---------------- Driver ----------------

// Pin owns one GPIO pin. Close releases it; call it on every exit path.
type Pin struct {
	m      *lock.NullLock[*Inner]
	closed bool
}

// New binds a driver to cfg.Pin on the GPIO block at r. A pin above 57,
// a function code above 7 or an unknown pull code is fatal.
func New(r mmio.Region, cfg Config) *Pin {
	if cfg.Pin < 0 || cfg.Pin > MaxPin {
		errcode.FatalDepth(1, errcode.InvalidPin, "gpio.New", "pin "+strconv.Itoa(cfg.Pin))
	}
	if cfg.Function > Alt3 {
		errcode.FatalDepth(1, errcode.InvalidParams, "gpio.New", "function code "+strconv.Itoa(int(cfg.Function)))
	}
	if cfg.Pull > PullDown {
		errcode.FatalDepth(1, errcode.InvalidParams, "gpio.New", "pull code "+strconv.Itoa(int(cfg.Pull)))
	}
	return &Pin{m: lock.NewNull(&Inner{
		pin:  cfg.Pin,
		fn:   cfg.Function,
		pull: cfg.Pull,
		v:    reg.Map(r, &regs),
		log:  cfg.Log.WithName("gpio"),
	})}
}

func (p *Pin) Inner() lock.Mutex[*Inner] { return p.m }

// Init runs Initialize under the lock.
func (p *Pin) Init() {
	p.m.Lock(func(s *Inner) { s.Initialize() })
}

// State reports the pin's lifecycle state.
func (p *Pin) State() State {
	return lock.With[*Inner](p.m, func(s *Inner) State { return s.state })
}

// Close releases the pin once; later calls do nothing.
func (p *Pin) Close() {
	if p.closed {
		return
	}
	p.closed = true
	p.m.Lock(func(s *Inner) { s.Release() })
}
