package board

import (
	"strconv"
	"strings"

	"github.com/google/shlex"

	"pibsp-go/drivers/bcm2711/uart"
	"pibsp-go/errcode"
)

// ParseOverrides applies shell-style key=value settings to p, e.g.
//
//	uart.baud=115200 uart.parity=even i2c.hz=400000
//
// Keys: uart.baud, uart.parity (none|odd|even), uart.bits (5..8),
// uart.stop (1|2), uart.framing (e.g. 8N1), uart.phandle, i2c.hz,
// i2c.timeout. The plan is returned unchanged on error.
func ParseOverrides(p Plan, args string) (Plan, error) {
	const op = "board.ParseOverrides"
	toks, err := shlex.Split(args)
	if err != nil {
		return p, &errcode.E{C: errcode.InvalidParams, Op: op, Err: err}
	}
	out := p
	for _, tok := range toks {
		key, val, ok := strings.Cut(tok, "=")
		if !ok {
			return p, errcode.New(errcode.InvalidParams, op, "expected key=value, got "+strconv.Quote(tok))
		}
		if err := apply(&out, key, val); err != nil {
			return p, &errcode.E{C: errcode.InvalidParams, Op: op, Msg: key, Err: err}
		}
	}
	return out, nil
}

func apply(p *Plan, key, val string) error {
	switch key {
	case "uart.baud":
		return setUint(&p.UART.Baud, val, 32)
	case "uart.phandle":
		return setUint(&p.UART.ClockPhandle, val, 32)
	case "uart.parity":
		par, err := parseParity(val)
		if err == nil {
			p.UART.Parity = par
		}
		return err
	case "uart.bits":
		n, err := strconv.ParseUint(val, 10, 8)
		if err != nil || n < 5 || n > 8 {
			return errcode.New(errcode.InvalidParams, "", "word length "+val)
		}
		p.UART.WordLength = uart.WordLength(n)
	case "uart.stop":
		switch val {
		case "1":
			p.UART.StopBits = uart.StopOne
		case "2":
			p.UART.StopBits = uart.StopTwo
		default:
			return errcode.New(errcode.InvalidParams, "", "stop bits "+val)
		}
	case "uart.framing":
		if len(val) != 3 {
			return errcode.New(errcode.InvalidParams, "", "framing "+val)
		}
		for _, kv := range [][2]string{{"uart.bits", val[:1]}, {"uart.parity", val[1:2]}, {"uart.stop", val[2:]}} {
			if err := apply(p, kv[0], kv[1]); err != nil {
				return err
			}
		}
	case "i2c.hz":
		return setUint(&p.I2C.Hz, val, 32)
	case "i2c.timeout":
		n, err := strconv.ParseUint(val, 0, 16)
		if err != nil {
			return err
		}
		p.I2C.TimeoutTicks = uint16(n)
	default:
		return errcode.New(errcode.InvalidParams, "", "unknown key")
	}
	return nil
}

func setUint(dst *uint32, val string, bits int) error {
	n, err := strconv.ParseUint(val, 0, bits)
	if err != nil {
		return err
	}
	*dst = uint32(n)
	return nil
}

func parseParity(s string) (uart.Parity, error) {
	switch strings.ToLower(s) {
	case "none", "n":
		return uart.ParityNone, nil
	case "odd", "o":
		return uart.ParityOdd, nil
	case "even", "e":
		return uart.ParityEven, nil
	}
	return 0, errcode.New(errcode.InvalidParams, "", "parity "+s)
}
