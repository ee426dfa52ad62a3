package uart

import (
	"testing"

	"pibsp-go/errcode"
)

func TestBaudDivisor(t *testing.T) {
	cases := []struct {
		clock, baud uint32
		ibrd        uint16
		fbrd        uint8
	}{
		{48_000_000, 9600, 312, 32},
		{48_000_000, 115200, 26, 3},
		{3_000_000, 115200, 1, 40},
		{48_000_000, 3_000_000, 1, 0},
	}
	for _, c := range cases {
		d, err := BaudDivisor(c.clock, c.baud)
		if err != nil {
			t.Fatalf("%d@%d: %v", c.baud, c.clock, err)
		}
		if d.Integer != c.ibrd || d.Fraction != c.fbrd {
			t.Fatalf("%d@%d: got %d+%d/64 want %d+%d/64", c.baud, c.clock, d.Integer, d.Fraction, c.ibrd, c.fbrd)
		}
		// Achieved rate within 1/64 of target.
		got := d.Achieved(c.clock)
		diff := int64(got) - int64(c.baud)
		if diff < 0 {
			diff = -diff
		}
		if diff*64 > int64(c.baud) {
			t.Fatalf("%d@%d: achieved %d", c.baud, c.clock, got)
		}
	}
}

func TestBaudDivisor_9600IsExact(t *testing.T) {
	d, err := BaudDivisor(48_000_000, 9600)
	if err != nil {
		t.Fatal(err)
	}
	if d.Achieved(48_000_000) != 9600 {
		t.Fatalf("achieved %d", d.Achieved(48_000_000))
	}
}

func TestBaudDivisor_Unattainable(t *testing.T) {
	// 48 MHz / (16 * 7 MBd) = 0.4286 → 27/64, which runs 1.59% fast.
	for _, c := range []struct{ clock, baud uint32 }{
		{48_000_000, 7_000_000},
		{48_000_000, 4_000_000_000},
		{48_000_000, 0},
	} {
		_, err := BaudDivisor(c.clock, c.baud)
		if errcode.Of(err) != errcode.BaudUnattainable {
			t.Fatalf("%d@%d: err = %v", c.baud, c.clock, err)
		}
	}
}

func TestBaudDivisor_FractionOverflow(t *testing.T) {
	// 1,615,990 / 16,000 = 100.999375 → fraction rounds to 64/64.
	_, err := BaudDivisor(1_615_990, 1000)
	if errcode.Of(err) != errcode.DivisorOverflow {
		t.Fatalf("err = %v", err)
	}
	// Integer part wider than IBRD.
	_, err = BaudDivisor(48_000_000, 1)
	if errcode.Of(err) != errcode.DivisorOverflow {
		t.Fatalf("err = %v", err)
	}
}
