// File: udp/recv.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Inbound path: slab-amortized receive drain. Each readiness
// callback allocates a window from the owner's active slab, fills it
// with recvfrom, shrinks the window to the bytes actually written and
// delivers the region without copying.

package udp

import "github.com/momentics/hioload-udp/api"

// MessageFunc receives inbound deliveries. The region is only valid
// during the callback at this layer's contract; consumers that keep
// the bytes must copy them out before returning.
type MessageFunc func(h *Handle, m api.Message)

// RecvStart registers the handle for inbound datagrams. An unbound
// handle is bound to the wildcard address first; a handle that is
// already receiving is a no-op success.
func (h *Handle) RecvStart() error {
	if h.closed {
		return api.ErrClosed
	}
	if h.receiving {
		return nil
	}
	family := h.family
	if family == api.FamilyUnspec {
		family = api.FamilyIPv4
	}
	if err := h.ensureSocket("udp.RecvStart", family); err != nil {
		return err
	}
	if !h.bound {
		if err := h.bindWildcard("udp.RecvStart", family); err != nil {
			return err
		}
	}
	h.receiving = true
	if err := h.updateInterest(); err != nil {
		// Without read interest the handle is not receiving; roll
		// back so a retry RecvStart goes through the full path.
		h.receiving = false
		return err
	}
	return nil
}

// RecvStop deregisters the receive stream. Safe to call when not
// receiving. A delivery already queued by the reactor before the stop
// may still land; none begins after.
func (h *Handle) RecvStop() error {
	if h.closed || !h.receiving {
		return nil
	}
	h.receiving = false
	return h.updateInterest()
}

// onReadable drains the socket until it would block, the batch bound
// is hit, or a receive error is surfaced.
func (h *Handle) onReadable() {
	for i := 0; h.receiving && i < h.cfg.MaxBatch; i++ {
		buf := h.alloc.Allocate(h, h.cfg.RecvBufferSize)
		n, from, err := sockRecvFrom(h.fd, buf)
		if err != nil {
			// Shrink always runs first so the window returns to the
			// slab's free cursor.
			h.alloc.Shrink(h, buf, 0)
			if isAgain(err) {
				return
			}
			h.recvErrs.Add(1)
			h.count("udp.recv_errors", 1)
			h.deliver(api.Message{Err: err})
			return
		}
		region := h.alloc.Shrink(h, buf, n)
		if n == 0 {
			// Spurious empty completion, not a message.
			continue
		}
		h.received.Add(1)
		h.recvdBytes.Add(uint64(n))
		h.count("udp.received", 1)
		h.count("udp.received_bytes", int64(n))
		h.deliver(api.Message{Region: region, Sender: from})
	}
}

func (h *Handle) deliver(m api.Message) {
	if cb := h.onMessage; cb != nil {
		cb(h, m)
	}
}
