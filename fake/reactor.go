// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

// Package fake provides deterministic test doubles for the reactor
// contract: registrations are recorded, readiness is fired by hand
// and deferred callbacks run on explicit Flush.
package fake

import (
	"github.com/momentics/hioload-udp/api"
)

type registration struct {
	interest api.Interest
	cb       api.ReadyFunc
}

// Reactor is a hand-driven api.Reactor for unit tests.
type Reactor struct {
	// Immediate makes Defer run callbacks inline instead of queueing.
	Immediate bool

	// ModifyErr, when set, is returned by Modify to simulate a
	// reactor registration failure.
	ModifyErr error

	regs     map[int]*registration
	deferred []func()
}

// NewReactor creates an empty fake reactor.
func NewReactor() *Reactor {
	return &Reactor{regs: make(map[int]*registration)}
}

// Register implements api.Reactor.
func (f *Reactor) Register(fd int, interest api.Interest, cb api.ReadyFunc) error {
	f.regs[fd] = &registration{interest: interest, cb: cb}
	return nil
}

// Modify implements api.Reactor.
func (f *Reactor) Modify(fd int, interest api.Interest) error {
	if f.ModifyErr != nil {
		return f.ModifyErr
	}
	r, ok := f.regs[fd]
	if !ok {
		return api.NewError(api.ErrCodeInvalidArgument, "fake.Modify", "fd not registered")
	}
	r.interest = interest
	return nil
}

// Unregister implements api.Reactor.
func (f *Reactor) Unregister(fd int) error {
	delete(f.regs, fd)
	return nil
}

// Defer implements api.Reactor.
func (f *Reactor) Defer(fn func()) {
	if f.Immediate {
		fn()
		return
	}
	f.deferred = append(f.deferred, fn)
}

// Flush runs queued deferred callbacks and reports how many ran.
// Callbacks deferred while flushing run in the same pass, like a real
// loop tick draining its queue.
func (f *Reactor) Flush() int {
	n := 0
	for len(f.deferred) > 0 {
		fn := f.deferred[0]
		f.deferred = f.deferred[1:]
		fn()
		n++
	}
	return n
}

// Fire invokes the readiness callback registered for fd.
func (f *Reactor) Fire(fd int, ev api.Interest) {
	if r, ok := f.regs[fd]; ok {
		r.cb(fd, ev)
	}
}

// Interest returns the current interest set for fd.
func (f *Reactor) Interest(fd int) api.Interest {
	if r, ok := f.regs[fd]; ok {
		return r.interest
	}
	return 0
}

// Registered reports whether fd is in the watch set.
func (f *Reactor) Registered(fd int) bool {
	_, ok := f.regs[fd]
	return ok
}

var _ api.Reactor = (*Reactor)(nil)
