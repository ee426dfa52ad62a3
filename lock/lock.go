// Package lock serialises access to driver-private state.
//
// Only NullLock exists: the kernel runs a single flow of control with no
// preemption, so the lock simply hands the state to the closure. Drivers are
// written against Mutex so a real primitive can replace it without touching
// them.
package lock

// Mutex grants exclusive access to a T for the duration of f.
type Mutex[T any] interface {
	Lock(f func(T))
}

// NullLock is a Mutex that performs no synchronisation. It is not re-entrant
// in spirit: callers must not Lock again from within f.
type NullLock[T any] struct {
	v T
}

func NewNull[T any](v T) *NullLock[T] { return &NullLock[T]{v: v} }

func (l *NullLock[T]) Lock(f func(T)) { f(l.v) }

// With locks m and returns f's result.
func With[T, R any](m Mutex[T], f func(T) R) R {
	var r R
	m.Lock(func(v T) { r = f(v) })
	return r
}
