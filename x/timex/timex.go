package timex

import "time"

// Ticks returns the duration of n cycles at freqHz, truncated to the
// nanosecond. freqHz==0 yields 0.
func Ticks(n, freqHz uint32) time.Duration {
	if freqHz == 0 {
		return 0
	}
	return time.Duration(uint64(n) * uint64(time.Second) / uint64(freqHz))
}
