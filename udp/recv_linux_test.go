// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// recv_linux_test.go — Inbound path: slab-backed deliveries, zero and
// error completions.
package udp

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/fake"
)

// driveRecv fires readiness until pred holds or the deadline passes.
// The fake reactor has no poller, so the test polls in its place.
func driveRecv(t *testing.T, fr *fake.Reactor, fd int, pred func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !pred() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for delivery")
		}
		fr.Fire(fd, api.InterestRead)
		fr.Flush()
		time.Sleep(time.Millisecond)
	}
}

func TestRecvDeliversDatagram(t *testing.T) {
	h, fr := newTestHandle(t)

	if err := h.Bind("127.0.0.1", 0, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := h.RecvStart(); err != nil {
		t.Fatalf("RecvStart: %v", err)
	}
	if fr.Interest(h.fd)&api.InterestRead == 0 {
		t.Errorf("read interest not registered")
	}

	var msgs []api.Message
	h.OnMessage(func(mh *Handle, m api.Message) {
		if mh != h {
			t.Errorf("message handle mismatch")
		}
		msgs = append(msgs, m)
	})

	local, _ := h.LocalAddr()
	peer, err := net.Dial("udp4", local.String())
	if err != nil {
		t.Fatalf("peer: %v", err)
	}
	defer peer.Close()
	if _, err := peer.Write([]byte("world")); err != nil {
		t.Fatalf("peer write: %v", err)
	}

	driveRecv(t, fr, h.fd, func() bool { return len(msgs) > 0 })

	m := msgs[0]
	if m.IsError() {
		t.Fatalf("error message: %v", m.Err)
	}
	if m.Region.Length != 5 {
		t.Errorf("region length = %d, want 5", m.Region.Length)
	}
	if !bytes.Equal(m.Region.Bytes(), []byte("world")) {
		t.Errorf("payload = %q", m.Region.Bytes())
	}
	peerPort := peer.LocalAddr().(*net.UDPAddr).Port
	if m.Sender.Port != peerPort {
		t.Errorf("sender port = %d, want %d", m.Sender.Port, peerPort)
	}
	if m.Sender.Family != api.FamilyIPv4 || !m.Sender.IP.Equal(net.IPv4(127, 0, 0, 1)) {
		t.Errorf("sender = %v", m.Sender)
	}

	if st := h.Stats(); st.DatagramsReceived != 1 || st.BytesReceived != 5 {
		t.Errorf("stats = %+v", st)
	}
}

func TestConsecutiveReceivesShareASlab(t *testing.T) {
	h, fr := newTestHandle(t)

	if err := h.Bind("127.0.0.1", 0, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := h.RecvStart(); err != nil {
		t.Fatalf("RecvStart: %v", err)
	}

	var msgs []api.Message
	h.OnMessage(func(_ *Handle, m api.Message) { msgs = append(msgs, m) })

	local, _ := h.LocalAddr()
	peer, err := net.Dial("udp4", local.String())
	if err != nil {
		t.Fatalf("peer: %v", err)
	}
	defer peer.Close()

	peer.Write([]byte("aaa"))
	peer.Write([]byte("bbbb"))
	driveRecv(t, fr, h.fd, func() bool { return len(msgs) >= 2 })

	a, b := msgs[0], msgs[1]
	if a.Region.Slab.ID() != b.Region.Slab.ID() {
		t.Errorf("consecutive receives rolled slabs: %d then %d", a.Region.Slab.ID(), b.Region.Slab.ID())
	}
	if b.Region.Offset != a.Region.Offset+a.Region.Length {
		t.Errorf("regions not adjacent: %+v then %+v", a.Region, b.Region)
	}
	// The first payload survived the second receive untouched.
	if !bytes.Equal(a.Region.Bytes(), []byte("aaa")) {
		t.Errorf("first payload clobbered: %q", a.Region.Bytes())
	}
}

func TestZeroLengthDatagramProducesNoDelivery(t *testing.T) {
	h, fr := newTestHandle(t)

	if err := h.Bind("127.0.0.1", 0, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := h.RecvStart(); err != nil {
		t.Fatalf("RecvStart: %v", err)
	}

	var msgs []api.Message
	h.OnMessage(func(_ *Handle, m api.Message) { msgs = append(msgs, m) })

	local, _ := h.LocalAddr()
	peer, err := net.Dial("udp4", local.String())
	if err != nil {
		t.Fatalf("peer: %v", err)
	}
	defer peer.Close()

	// Empty datagram first, then a real one. Only the real one is
	// delivered; the empty completion is discarded.
	peer.Write(nil)
	peer.Write([]byte("data!"))
	driveRecv(t, fr, h.fd, func() bool { return len(msgs) > 0 })

	if len(msgs) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(msgs))
	}
	if !bytes.Equal(msgs[0].Region.Bytes(), []byte("data!")) {
		t.Errorf("payload = %q", msgs[0].Region.Bytes())
	}
}

func TestRecvErrorDeliversErrorFlavoredMessage(t *testing.T) {
	h, _ := newTestHandle(t)

	if err := h.Bind("127.0.0.1", 0, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := h.RecvStart(); err != nil {
		t.Fatalf("RecvStart: %v", err)
	}

	var msgs []api.Message
	h.OnMessage(func(_ *Handle, m api.Message) { msgs = append(msgs, m) })

	// Pull the descriptor out from under the handle so the next
	// recvfrom reports an OS error.
	_ = sockClose(h.fd)
	h.onReadable()
	h.fd = -1 // keep Close from double-closing

	if len(msgs) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(msgs))
	}
	m := msgs[0]
	if !m.IsError() {
		t.Fatal("expected error-flavored message")
	}
	if m.Region.Slab != nil || m.Region.Length != 0 {
		t.Errorf("error message carries payload: %+v", m.Region)
	}
	if m.Sender.IsValid() {
		t.Errorf("error message carries sender: %v", m.Sender)
	}
	if st := h.Stats(); st.RecvErrors != 1 {
		t.Errorf("stats = %+v", st)
	}
}

func TestRecvStartUnboundAutoBinds(t *testing.T) {
	h, _ := newTestHandle(t)

	if err := h.RecvStart(); err != nil {
		t.Fatalf("RecvStart: %v", err)
	}
	addr, err := h.LocalAddr()
	if err != nil {
		t.Fatalf("LocalAddr: %v", err)
	}
	if addr.Family != api.FamilyIPv4 || addr.Port == 0 {
		t.Errorf("auto-bind addr = %v", addr)
	}
}

func TestRecvStartRollsBackOnReactorFailure(t *testing.T) {
	h, fr := newTestHandle(t)
	if err := h.Bind("127.0.0.1", 0, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	fr.ModifyErr = errors.New("epoll ctl mod: no space left on device")
	if err := h.RecvStart(); err == nil {
		t.Fatal("RecvStart succeeded despite reactor failure")
	}
	if h.receiving {
		t.Errorf("handle believes it is receiving with no read interest")
	}

	// A retry after the failure clears must take the full path and
	// actually register interest, not no-op.
	fr.ModifyErr = nil
	if err := h.RecvStart(); err != nil {
		t.Fatalf("retry RecvStart: %v", err)
	}
	if fr.Interest(h.fd)&api.InterestRead == 0 {
		t.Errorf("read interest missing after retry")
	}
}

func TestRecvStartTwiceIsSuccess(t *testing.T) {
	h, _ := newTestHandle(t)
	if err := h.RecvStart(); err != nil {
		t.Fatalf("first RecvStart: %v", err)
	}
	if err := h.RecvStart(); err != nil {
		t.Fatalf("second RecvStart: %v", err)
	}
}

func TestRecvStopIsIdempotentAndStopsDeliveries(t *testing.T) {
	h, fr := newTestHandle(t)

	if err := h.RecvStop(); err != nil {
		t.Errorf("RecvStop before start: %v", err)
	}

	if err := h.Bind("127.0.0.1", 0, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := h.RecvStart(); err != nil {
		t.Fatalf("RecvStart: %v", err)
	}

	var msgs []api.Message
	h.OnMessage(func(_ *Handle, m api.Message) { msgs = append(msgs, m) })

	if err := h.RecvStop(); err != nil {
		t.Fatalf("RecvStop: %v", err)
	}
	if fr.Interest(h.fd)&api.InterestRead != 0 {
		t.Errorf("read interest still set after stop")
	}

	// A datagram is waiting, but the stream is stopped: firing
	// readiness must not deliver or crash.
	local, _ := h.LocalAddr()
	peer, err := net.Dial("udp4", local.String())
	if err != nil {
		t.Fatalf("peer: %v", err)
	}
	defer peer.Close()
	peer.Write([]byte("late"))
	time.Sleep(10 * time.Millisecond)

	fr.Fire(h.fd, api.InterestRead)
	fr.Flush()
	if len(msgs) != 0 {
		t.Errorf("delivery after RecvStop: %d", len(msgs))
	}

	if err := h.RecvStop(); err != nil {
		t.Errorf("second RecvStop: %v", err)
	}
}
