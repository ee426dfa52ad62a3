package timex

import (
	"testing"
	"time"
)

func TestTicks(t *testing.T) {
	cases := []struct {
		n, hz uint32
		want  time.Duration
	}{
		{3, 100_000, 30 * time.Microsecond},
		{1, 48_000_000, 20 * time.Nanosecond},
		{0xffff, 100_000, 655_350 * time.Microsecond},
		{5, 0, 0},
	}
	for _, c := range cases {
		if got := Ticks(c.n, c.hz); got != c.want {
			t.Fatalf("Ticks(%d, %d) = %v, want %v", c.n, c.hz, got, c.want)
		}
	}
}
