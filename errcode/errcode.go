package errcode

import (
	"path/filepath"
	"runtime"
	"strconv"
)

// Code is a stable error identifier shared by every driver.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// Register map / access.
	ReadOnlyRegister  Code = "read_only_register"  // write to an RO register
	WriteOnlyRegister Code = "write_only_register" // read from a WO register
	UnmappedRegister  Code = "unmapped_register"
	InvalidLayout     Code = "invalid_layout"

	// Configuration.
	InvalidPin       Code = "invalid_pin"
	InvalidAddress   Code = "invalid_address"
	InvalidParams    Code = "invalid_params"
	BaudUnattainable Code = "baud_unattainable"
	DivisorOverflow  Code = "divisor_overflow"

	// Preconditions.
	NotEnabled Code = "not_enabled"

	// Bus outcomes (reported, never fatal).
	TransferFailed Code = "transfer_failed"
	Timeout        Code = "timeout"

	Error Code = "error" // generic fallback
)

// E keeps context, a cause and, for faults, the location that raised it.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
	Loc string // file:line of the caller that raised a fault
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Loc != "" {
		s += " (" + e.Loc + ")"
	}
	return s
}

func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is match an *E against its bare Code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// New returns a non-fatal coded error.
func New(c Code, op, msg string) *E {
	return &E{C: c, Op: op, Msg: msg}
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// ---------------- Faults ----------------

// Fatal aborts the current flow of control with an *E identifying the
// caller. There is no recovery at the driver layer: the bring-up sequence
// either completes or halts.
func Fatal(c Code, op, msg string) {
	panic(&E{C: c, Op: op, Msg: msg, Loc: caller(2)})
}

// FatalDepth is Fatal with the reported location moved depth frames further
// up the stack. Helpers that fault on behalf of their caller use depth 1.
func FatalDepth(depth int, c Code, op, msg string) {
	panic(&E{C: c, Op: op, Msg: msg, Loc: caller(2 + depth)})
}

// Abort raises err as a fault. Coded errors keep their code; anything else
// is wrapped as Error.
func Abort(op string, err error) {
	e, ok := err.(*E)
	if !ok {
		e = &E{C: Of(err), Op: op, Err: err}
	} else {
		cp := *e
		e = &cp
	}
	if e.Loc == "" {
		e.Loc = caller(2)
	}
	panic(e)
}

// Catch runs fn and returns the fault it raised, if any. Panics that are not
// faults are propagated unchanged.
func Catch(fn func()) (fault *E) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*E)
			if !ok {
				panic(r)
			}
			fault = e
		}
	}()
	fn()
	return nil
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "???"
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}
