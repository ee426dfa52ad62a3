package mathx

import "golang.org/x/exp/constraints"

// CeilDiv returns ceil(a/b); b == 0 yields 0.
func CeilDiv[T constraints.Unsigned](a, b T) T {
	if b == 0 {
		return 0
	}
	return a/b + min(a%b, 1)
}

// RoundDiv returns a/b rounded half up; b == 0 yields 0. The remainder is
// compared instead of adding b/2 to a, so a near the top of T does not wrap.
func RoundDiv[T constraints.Unsigned](a, b T) T {
	if b == 0 {
		return 0
	}
	q, r := a/b, a%b
	if r >= b-b/2 {
		q++
	}
	return q
}
