// Package api
// Author: momentics <momentics@gmail.com>
//
// Tagged receive completion variant. A message is either
// error-flavored (Err set, no payload, no sender) or data-flavored
// (Region and Sender set). Zero-length OS completions are discarded
// before this type is ever constructed.

package api

// Message is one inbound datagram delivery, or a receive error.
type Message struct {
	// Err, when non-nil, marks an OS-level receive failure. Region
	// and Sender are zero in that case.
	Err error

	// Region locates the datagram payload inside its slab.
	Region Region

	// Sender is the decoded source address of the datagram.
	Sender Addr
}

// IsError reports whether the message is the error variant.
func (m Message) IsError() bool { return m.Err != nil }
