// File: api/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral reactor contract consumed by datagram handles.
// One reactor instance drives all registered descriptors from a
// single goroutine; readiness and deferred callbacks are always
// delivered on that goroutine.

package api

// Interest is a bitmask of readiness conditions.
type Interest uint8

const (
	InterestRead Interest = 1 << iota
	InterestWrite
	InterestError
)

// ReadyFunc is invoked on the loop goroutine when a registered
// descriptor becomes ready for any of the requested interests.
type ReadyFunc func(fd int, ev Interest)

// Reactor is the event loop surface a handle submits work to.
type Reactor interface {
	// Register adds fd to the watch set. Interest may be zero; the
	// callback is retained until Unregister.
	Register(fd int, interest Interest, cb ReadyFunc) error

	// Modify replaces the interest set for a registered fd.
	Modify(fd int, interest Interest) error

	// Unregister removes fd from the watch set.
	Unregister(fd int) error

	// Defer schedules fn to run on the loop goroutine during the next
	// tick. Safe to call from any goroutine. Completion callbacks are
	// always dispatched through here so they never reenter the call
	// that submitted the operation.
	Defer(fn func())
}
