// Package reg describes peripheral register maps and performs
// permission-checked access to them.
//
// A peripheral declares its registers once, as a struct of Register values:
//
//	var regs = struct{ DR, FR reg.Register }{
//		DR: reg.RW("DR", 0x00),
//		FR: reg.RO("FR", 0x18),
//	}
//
// and maps them onto a window with Map, which yields a View: the Block
// accessors plus field-style access to the register descriptors.
package reg

import (
	"reflect"
	"strconv"

	"pibsp-go/errcode"
)

// Perm is the access permission of a register.
type Perm uint8

const (
	ReadOnly Perm = iota + 1
	WriteOnly
	ReadWrite
)

func (p Perm) String() string {
	switch p {
	case ReadOnly:
		return "RO"
	case WriteOnly:
		return "WO"
	case ReadWrite:
		return "RW"
	}
	return "Perm(" + strconv.Itoa(int(p)) + ")"
}

func (p Perm) Readable() bool { return p == ReadOnly || p == ReadWrite }
func (p Perm) Writable() bool { return p == WriteOnly || p == ReadWrite }

// Register is one register of a peripheral: a name, a byte offset from the
// peripheral base, and what the hardware allows.
type Register struct {
	Name   string
	Offset uintptr
	Perm   Perm
}

func RO(name string, off uintptr) Register { return Register{Name: name, Offset: off, Perm: ReadOnly} }
func WO(name string, off uintptr) Register { return Register{Name: name, Offset: off, Perm: WriteOnly} }
func RW(name string, off uintptr) Register { return Register{Name: name, Offset: off, Perm: ReadWrite} }

func (r Register) String() string {
	return r.Name + "@0x" + strconv.FormatUint(uint64(r.Offset), 16) + "(" + r.Perm.String() + ")"
}

// Set is a flat list of registers.
type Set []Register

// Validate checks that names and offsets are unique and permissions known.
func (s Set) Validate() error {
	names := make(map[string]struct{}, len(s))
	offs := make(map[uintptr]string, len(s))
	for _, r := range s {
		if r.Name == "" {
			return errcode.New(errcode.InvalidLayout, "reg.Set.Validate", "unnamed register at 0x"+strconv.FormatUint(uint64(r.Offset), 16))
		}
		if r.Perm < ReadOnly || r.Perm > ReadWrite {
			return errcode.New(errcode.InvalidLayout, "reg.Set.Validate", r.Name+": unknown permission")
		}
		if _, dup := names[r.Name]; dup {
			return errcode.New(errcode.InvalidLayout, "reg.Set.Validate", "duplicate name "+r.Name)
		}
		if other, dup := offs[r.Offset]; dup {
			return errcode.New(errcode.InvalidLayout, "reg.Set.Validate", r.Name+" shares its offset with "+other)
		}
		names[r.Name] = struct{}{}
		offs[r.Offset] = r.Name
	}
	return nil
}

// Lookup finds a register by name.
func (s Set) Lookup(name string) (Register, bool) {
	for _, r := range s {
		if r.Name == name {
			return r, true
		}
	}
	return Register{}, false
}

// SetOf flattens a register-map struct (fields of type Register, or arrays
// and slices of Register) into a Set, in declaration order.
func SetOf(layout any) Set {
	v := reflect.Indirect(reflect.ValueOf(layout))
	var out Set
	collect(v, &out)
	return out
}

var registerType = reflect.TypeOf(Register{})

func collect(v reflect.Value, out *Set) {
	switch {
	case v.Type() == registerType:
		*out = append(*out, v.Interface().(Register))
	case v.Kind() == reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !v.Type().Field(i).IsExported() {
				continue
			}
			collect(v.Field(i), out)
		}
	case v.Kind() == reflect.Array || v.Kind() == reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			collect(v.Index(i), out)
		}
	}
}
