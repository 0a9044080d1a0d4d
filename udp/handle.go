// File: udp/handle.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Datagram handle lifecycle: construction, binding, teardown.

package udp

import (
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/control"
)

// BindFlag is an opaque bitmask applied at bind time.
type BindFlag uint32

const (
	// BindReuseAddr sets SO_REUSEADDR before binding.
	BindReuseAddr BindFlag = 1 << iota

	// BindIPv6Only restricts an IPv6 handle to IPv6 traffic.
	BindIPv6Only
)

// Handle is one UDP endpoint registered with a reactor. The socket is
// created lazily, once the address family is known from the first
// bind, send or membership operation.
//
// All methods must be called on the loop goroutine.
type Handle struct {
	r       api.Reactor
	alloc   api.SlabAllocator
	cfg     control.Config
	metrics *control.MetricsRegistry

	fd        int
	family    api.Family
	bound     bool
	receiving bool
	closed    bool
	interest  api.Interest

	// pending holds sends parked on EAGAIN, drained in FIFO order on
	// writability. Loop-goroutine only, so the queue needs no lock.
	pending *queue.Queue

	onMessage      MessageFunc
	onSendComplete SendCompleteFunc

	sent       atomic.Uint64
	sentBytes  atomic.Uint64
	sendErrs   atomic.Uint64
	received   atomic.Uint64
	recvdBytes atomic.Uint64
	recvErrs   atomic.Uint64
}

// NewHandle creates an unbound handle attached to the given reactor
// and slab allocator.
func NewHandle(r api.Reactor, alloc api.SlabAllocator, cfg control.Config) *Handle {
	return &Handle{
		r:       r,
		alloc:   alloc,
		cfg:     cfg.Normalize(),
		fd:      -1,
		pending: queue.New(),
	}
}

// SetMetrics attaches a registry for handle counters.
func (h *Handle) SetMetrics(m *control.MetricsRegistry) { h.metrics = m }

// OnMessage registers the inbound delivery callback.
func (h *Handle) OnMessage(fn MessageFunc) { h.onMessage = fn }

// OnSendComplete registers the send completion callback.
func (h *Handle) OnSendComplete(fn SendCompleteFunc) { h.onSendComplete = fn }

// Bind binds the handle under IPv4.
func (h *Handle) Bind(addr string, port int, flags BindFlag) error {
	return h.doBind("udp.Bind", api.FamilyIPv4, addr, port, flags)
}

// Bind6 binds the handle under IPv6.
func (h *Handle) Bind6(addr string, port int, flags BindFlag) error {
	return h.doBind("udp.Bind6", api.FamilyIPv6, addr, port, flags)
}

func (h *Handle) doBind(op string, family api.Family, addr string, port int, flags BindFlag) error {
	ip, zone, err := parseIP(op, family, addr)
	if err != nil {
		return err
	}
	if err := h.ensureSocket(op, family); err != nil {
		return err
	}
	if flags&BindReuseAddr != 0 {
		if err := sockSetReuseAddr(h.fd); err != nil {
			return err
		}
	}
	if family == api.FamilyIPv6 && flags&BindIPv6Only != 0 {
		if err := sockSetV6Only(h.fd); err != nil {
			return err
		}
	}
	// A second bind on the same family is delegated to the OS, which
	// reports EINVAL. The handle never carries two bound families:
	// ensureSocket rejects the mismatch before this point.
	if err := sockBind(h.fd, api.Addr{Family: family, IP: ip, Port: port, Zone: zone}); err != nil {
		return err
	}
	h.bound = true
	return nil
}

// LocalAddr queries the OS for the locally bound address.
func (h *Handle) LocalAddr() (api.Addr, error) {
	if h.closed {
		return api.Addr{}, api.ErrClosed
	}
	if h.fd < 0 {
		return api.Addr{}, api.NewError(api.ErrCodeInvalidArgument, "udp.LocalAddr", "handle is not bound")
	}
	return sockName(h.fd)
}

// Close tears the handle down: parked sends complete with ErrClosed
// (exactly once each), the descriptor leaves the reactor and every
// later operation fails with ErrClosed. Idempotent.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.receiving = false

	for h.pending.Length() > 0 {
		req := h.pending.Remove().(*SendRequest)
		h.r.Defer(func() { h.finishSend(req, api.ErrClosed) })
	}

	var err error
	if h.fd >= 0 {
		_ = h.r.Unregister(h.fd)
		err = sockClose(h.fd)
		h.fd = -1
	}
	if f, ok := h.alloc.(interface{ Forget(owner any) }); ok {
		f.Forget(h)
	}
	return err
}

// Stats is a snapshot of the handle's I/O counters.
type Stats struct {
	DatagramsSent     uint64
	BytesSent         uint64
	SendErrors        uint64
	DatagramsReceived uint64
	BytesReceived     uint64
	RecvErrors        uint64
}

// Stats returns the current counters.
func (h *Handle) Stats() Stats {
	return Stats{
		DatagramsSent:     h.sent.Load(),
		BytesSent:         h.sentBytes.Load(),
		SendErrors:        h.sendErrs.Load(),
		DatagramsReceived: h.received.Load(),
		BytesReceived:     h.recvdBytes.Load(),
		RecvErrors:        h.recvErrs.Load(),
	}
}

// ensureSocket creates and registers the descriptor for the family on
// first use, and rejects family mixing afterwards.
func (h *Handle) ensureSocket(op string, family api.Family) error {
	if h.closed {
		return api.ErrClosed
	}
	if h.fd >= 0 {
		if h.family != family {
			return api.NewError(api.ErrCodeInvalidArgument, op, "address family mismatch: handle is "+h.family.String())
		}
		return nil
	}
	fd, err := sockOpen(family)
	if err != nil {
		return err
	}
	if err := h.r.Register(fd, 0, h.onReady); err != nil {
		_ = sockClose(fd)
		return err
	}
	h.fd = fd
	h.family = family
	return nil
}

// bindWildcard performs the implicit bind that send and recvStart
// rely on for unbound handles.
func (h *Handle) bindWildcard(op string, family api.Family) error {
	ip, _, err := parseIP(op, family, wildcard(family))
	if err != nil {
		return err
	}
	if err := sockBind(h.fd, api.Addr{Family: family, IP: ip}); err != nil {
		return err
	}
	h.bound = true
	return nil
}

func (h *Handle) onReady(_ int, ev api.Interest) {
	if h.closed {
		return
	}
	if ev&api.InterestWrite != 0 {
		h.onWritable()
	}
	if ev&(api.InterestRead|api.InterestError) != 0 {
		h.onReadable()
	}
}

// updateInterest reconciles the reactor interest set with the
// handle's current receive/pending-send state.
func (h *Handle) updateInterest() error {
	var want api.Interest
	if h.receiving {
		want |= api.InterestRead
	}
	if h.pending.Length() > 0 {
		want |= api.InterestWrite
	}
	if want == h.interest {
		return nil
	}
	if err := h.r.Modify(h.fd, want); err != nil {
		return err
	}
	h.interest = want
	return nil
}

func (h *Handle) count(key string, delta int64) {
	if h.metrics != nil {
		h.metrics.Add(key, delta)
	}
}
