// File: udp/send.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Outbound path: one SendRequest per call, one completion per
// request. Sends that cannot be written immediately park on the
// handle's FIFO queue until the socket turns writable.

package udp

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/momentics/hioload-udp/api"
)

// transmit is the wire write, indirect so tests can interpose
// would-block and transport-error conditions.
var transmit = sockSendTo

// SendCompleteFunc is invoked exactly once per accepted send: status
// is nil on success or the transport error, and buf is the original
// buffer the caller handed in, released back to the caller here.
type SendCompleteFunc func(status error, h *Handle, req *SendRequest, buf []byte)

// SendRequest tracks one in-flight outbound datagram. It retains the
// source buffer until its completion callback has run, then dies;
// requests are never reused.
type SendRequest struct {
	h    *Handle
	buf  []byte // original buffer, retained for the request lifetime
	data []byte // window being transmitted
	dest api.Addr
	done bool
}

// Dest returns the destination the request was submitted to.
func (r *SendRequest) Dest() api.Addr { return r.dest }

// Len returns the payload length.
func (r *SendRequest) Len() int { return len(r.data) }

// Send transmits buf[offset:offset+length] to addr:port over IPv4.
// Out-of-bounds offset/length is a caller contract violation and
// panics. On synchronous submission failure the request is released
// and (nil, err) returned; no completion callback will fire. On
// acceptance the returned request sees exactly one OnSendComplete,
// on the loop goroutine, even when the transport reports an error.
func (h *Handle) Send(buf []byte, offset, length, port int, addr string) (*SendRequest, error) {
	return h.send("udp.Send", api.FamilyIPv4, buf, offset, length, port, addr)
}

// Send6 is Send under IPv6.
func (h *Handle) Send6(buf []byte, offset, length, port int, addr string) (*SendRequest, error) {
	return h.send("udp.Send6", api.FamilyIPv6, buf, offset, length, port, addr)
}

func (h *Handle) send(op string, family api.Family, buf []byte, offset, length, port int, addr string) (*SendRequest, error) {
	if offset < 0 || length < 0 || offset > len(buf) || length > len(buf)-offset {
		panic(fmt.Sprintf("%s: slice [%d:%d) out of range for buffer of %d bytes", op, offset, offset+length, len(buf)))
	}
	if h.closed {
		return nil, api.ErrClosed
	}
	ip, zone, err := parseIP(op, family, addr)
	if err != nil {
		return nil, err
	}
	if err := h.ensureSocket(op, family); err != nil {
		return nil, err
	}
	if !h.bound {
		// As with the OS auto-bind on first transmit: an unbound
		// handle picks up the wildcard address of the send's family.
		if err := h.bindWildcard(op, family); err != nil {
			return nil, err
		}
	}

	req := &SendRequest{
		h:    h,
		buf:  buf,
		data: buf[offset : offset+length],
		dest: api.Addr{Family: family, IP: ip, Port: port, Zone: zone},
	}

	// Earlier sends parked on EAGAIN still hold the wire. Transmitting
	// now would overtake them even if the socket has turned writable,
	// so the request queues behind and the drain keeps submission
	// order. Write interest is already registered.
	if h.pending.Length() > 0 {
		h.pending.Add(req)
		return req, nil
	}

	err = transmit(h.fd, req.data, req.dest)
	switch {
	case err == nil:
		// Completed on the spot; the callback still goes through the
		// loop tick so it never reenters the submitting call.
		h.r.Defer(func() { h.finishSend(req, nil) })
	case isAgain(err):
		if merr := h.r.Modify(h.fd, h.interest|api.InterestWrite); merr != nil {
			return nil, merr
		}
		h.interest |= api.InterestWrite
		h.pending.Add(req)
	default:
		// Accepted but failed in transport: surfaced via the
		// completion status, not the return value.
		h.r.Defer(func() { h.finishSend(req, err) })
	}
	return req, nil
}

// onWritable drains parked sends in submission order.
func (h *Handle) onWritable() {
	for h.pending.Length() > 0 {
		req := h.pending.Peek().(*SendRequest)
		err := transmit(h.fd, req.data, req.dest)
		if isAgain(err) {
			return
		}
		h.pending.Remove()
		h.finishSend(req, err)
	}
	_ = h.updateInterest()
}

// finishSend is the single completion point for a request.
func (h *Handle) finishSend(req *SendRequest, status error) {
	if req.done {
		return
	}
	req.done = true

	if status != nil {
		h.sendErrs.Add(1)
		h.count("udp.send_errors", 1)
	} else {
		h.sent.Add(1)
		h.sentBytes.Add(uint64(len(req.data)))
		h.count("udp.sent", 1)
		h.count("udp.sent_bytes", int64(len(req.data)))
	}

	buf := req.buf
	if cb := h.onSendComplete; cb != nil {
		cb(status, h, req, buf)
	}
	// Drop the retained reference; the request is dead.
	req.buf = nil
	req.data = nil
}

// isAgain reports whether err is the kernel's would-block condition.
func isAgain(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}
