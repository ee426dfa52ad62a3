package mathx

import "testing"

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 3) != 3 || Clamp(-1, 0, 3) != 0 || Clamp(2, 3, 0) != 2 {
		t.Fatal("Clamp")
	}
	if Clamp[uint32](1_500_000, 0, 0xFFFF) != 0xFFFF {
		t.Fatal("Clamp to 16-bit field")
	}
	if !Between(7, 10, 0) || Between(11, 0, 10) {
		t.Fatal("Between")
	}
}

func TestIntDiv(t *testing.T) {
	cases := []struct{ a, b, ceil, round uint64 }{
		{10, 5, 2, 2},
		{11, 5, 3, 2},
		{12, 5, 3, 2},
		{13, 5, 3, 3},
		{4_915_200, 153_600, 32, 32},
		{4_992_000, 153_600, 33, 33}, // .5 rounds up
		{7, 0, 0, 0},
	}
	for _, c := range cases {
		if got := CeilDiv(c.a, c.b); got != c.ceil {
			t.Fatalf("CeilDiv(%d,%d)=%d want %d", c.a, c.b, got, c.ceil)
		}
		if got := RoundDiv(c.a, c.b); got != c.round {
			t.Fatalf("RoundDiv(%d,%d)=%d want %d", c.a, c.b, got, c.round)
		}
	}
	if RoundDiv[uint8](255, 2) != 128 {
		t.Fatal("RoundDiv wrapped near the top of the type")
	}
	if AbsDiff[uint32](3, 10) != 7 || AbsDiff[uint32](10, 3) != 7 {
		t.Fatal("AbsDiff")
	}
}
