// Package driver manages the register → initialize → release lifecycle of
// one driver instance per peripheral type.
package driver

import (
	"github.com/go-logr/logr"

	"pibsp-go/lock"
)

// Initializer is the lifecycle capability of driver-private state.
type Initializer interface {
	Initialize()
	Release()
}

// Driver exposes its private state only through a lock.
type Driver[S Initializer] interface {
	Inner() lock.Mutex[S]
}

// Manager owns at most one driver of a peripheral type. The zero value is
// an empty manager.
type Manager[S Initializer] struct {
	Name string
	Log  logr.Logger

	d           Driver[S]
	initialized bool
	released    bool
}

// Register installs d, replacing any driver registered before it. The new
// driver has not been initialised.
func (m *Manager[S]) Register(d Driver[S]) {
	if m.d != nil {
		m.Log.V(1).Info("driver replaced", "type", m.Name)
	}
	m.d = d
	m.initialized = false
	m.released = false
}

// Registered reports the current driver, if any.
func (m *Manager[S]) Registered() (Driver[S], bool) {
	return m.d, m.d != nil
}

// InitializeAll initialises the registered driver under its lock. It is a
// no-op when nothing is registered, and runs Initialize exactly once per
// registration.
func (m *Manager[S]) InitializeAll() {
	if m.d == nil || m.initialized {
		return
	}
	m.d.Inner().Lock(func(s S) { s.Initialize() })
	m.initialized = true
	m.Log.V(1).Info("driver initialized", "type", m.Name)
}

// ReleaseAll releases an initialised driver once.
func (m *Manager[S]) ReleaseAll() {
	if m.d == nil || !m.initialized || m.released {
		return
	}
	m.d.Inner().Lock(func(s S) { s.Release() })
	m.released = true
	m.Log.V(1).Info("driver released", "type", m.Name)
}

// Initialized reports whether the current registration has been initialised.
func (m *Manager[S]) Initialized() bool { return m.initialized }

// Active reports whether the driver is initialised and not yet released.
func (m *Manager[S]) Active() bool { return m.initialized && !m.released }
