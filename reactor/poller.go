// File: reactor/poller.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral poller contract implemented per OS.

package reactor

import "github.com/momentics/hioload-udp/api"

// Event is one readiness notification returned by a poll wait.
type Event struct {
	FD int
	Ev api.Interest
}

// poller abstracts the OS readiness mechanism.
type poller interface {
	// add registers fd with the given interest set.
	add(fd int, interest api.Interest) error

	// mod replaces the interest set for fd.
	mod(fd int, interest api.Interest) error

	// del removes fd from the watch set.
	del(fd int) error

	// wait blocks up to timeoutMs for readiness and fills events.
	// timeoutMs < 0 blocks indefinitely.
	wait(events []Event, timeoutMs int) (int, error)

	// wake interrupts a concurrent wait. Safe from any goroutine.
	wake() error

	// close releases poller resources.
	close() error
}
