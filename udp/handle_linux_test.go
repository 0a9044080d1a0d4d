// Copyright 2025 momentics@gmail.com
// Licensed under the Apache License, Version 2.0.

// handle_linux_test.go — Handle lifecycle against real sockets, with
// a hand-driven fake reactor.
package udp

import (
	"errors"
	"syscall"
	"testing"

	"github.com/momentics/hioload-udp/api"
	"github.com/momentics/hioload-udp/control"
	"github.com/momentics/hioload-udp/core/slab"
	"github.com/momentics/hioload-udp/fake"
)

func newTestHandle(t *testing.T) (*Handle, *fake.Reactor) {
	t.Helper()
	fr := fake.NewReactor()
	h := NewHandle(fr, slab.NewAllocator(0), control.DefaultConfig())
	t.Cleanup(func() { _ = h.Close() })
	return h, fr
}

func TestBindAndLocalAddr(t *testing.T) {
	h, fr := newTestHandle(t)

	if err := h.Bind("0.0.0.0", 0, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if !fr.Registered(h.fd) {
		t.Errorf("fd not registered with reactor")
	}

	addr, err := h.LocalAddr()
	if err != nil {
		t.Fatalf("LocalAddr: %v", err)
	}
	if addr.Family != api.FamilyIPv4 {
		t.Errorf("family = %v, want IPv4", addr.Family)
	}
	if addr.Port == 0 {
		t.Errorf("port not assigned")
	}
}

func TestBind6(t *testing.T) {
	h, _ := newTestHandle(t)

	if err := h.Bind6("::1", 0, BindIPv6Only); err != nil {
		t.Fatalf("Bind6: %v", err)
	}
	addr, err := h.LocalAddr()
	if err != nil {
		t.Fatalf("LocalAddr: %v", err)
	}
	if addr.Family != api.FamilyIPv6 {
		t.Errorf("family = %v, want IPv6", addr.Family)
	}
}

func TestBindBadAddress(t *testing.T) {
	h, _ := newTestHandle(t)
	err := h.Bind("definitely not an address", 0, 0)
	if err == nil {
		t.Fatal("bad address accepted")
	}
	var e *api.Error
	if !errors.As(err, &e) || e.Code != api.ErrCodeInvalidArgument {
		t.Errorf("error = %v, want invalid-argument", err)
	}
	// No socket was created for a rejected bind.
	if h.fd != -1 {
		t.Errorf("socket created despite parse failure")
	}
}

func TestDoubleBindReportsOSError(t *testing.T) {
	h, _ := newTestHandle(t)
	if err := h.Bind("127.0.0.1", 0, 0); err != nil {
		t.Fatalf("first Bind: %v", err)
	}
	err := h.Bind("127.0.0.1", 0, 0)
	if err == nil {
		t.Fatal("second bind succeeded")
	}
	if !errors.Is(err, syscall.EINVAL) {
		t.Errorf("second bind error = %v, want EINVAL", err)
	}
}

func TestFamilyMismatchRejected(t *testing.T) {
	h, _ := newTestHandle(t)
	if err := h.Bind("127.0.0.1", 0, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := h.Bind6("::1", 0, 0); err == nil {
		t.Fatal("rebind under the other family succeeded")
	}
	// Still the original family.
	addr, err := h.LocalAddr()
	if err != nil || addr.Family != api.FamilyIPv4 {
		t.Errorf("addr = %v, %v; want IPv4", addr, err)
	}
}

func TestBindReuseAddr(t *testing.T) {
	h1, _ := newTestHandle(t)
	if err := h1.Bind("127.0.0.1", 0, BindReuseAddr); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	addr, err := h1.LocalAddr()
	if err != nil {
		t.Fatalf("LocalAddr: %v", err)
	}

	h2, _ := newTestHandle(t)
	if err := h2.Bind("127.0.0.1", addr.Port, BindReuseAddr); err != nil {
		t.Fatalf("rebinding with SO_REUSEADDR: %v", err)
	}
}

func TestOptionsIdempotent(t *testing.T) {
	h, _ := newTestHandle(t)
	if err := h.Bind("127.0.0.1", 0, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := h.SetBroadcast(1); err != nil {
			t.Fatalf("SetBroadcast #%d: %v", i+1, err)
		}
		if err := h.SetTTL(64); err != nil {
			t.Fatalf("SetTTL #%d: %v", i+1, err)
		}
		if err := h.SetMulticastTTL(3); err != nil {
			t.Fatalf("SetMulticastTTL #%d: %v", i+1, err)
		}
		if err := h.SetMulticastLoopback(1); err != nil {
			t.Fatalf("SetMulticastLoopback #%d: %v", i+1, err)
		}
	}
}

func TestOptionsBeforeBindCreateSocket(t *testing.T) {
	h, _ := newTestHandle(t)
	if err := h.SetTTL(32); err != nil {
		t.Fatalf("SetTTL on fresh handle: %v", err)
	}
	if h.fd < 0 {
		t.Errorf("socket not materialized")
	}
}

func TestDropNeverJoinedGroupSurfacesOSError(t *testing.T) {
	h, _ := newTestHandle(t)
	// No local membership tracking: the OS decides and its error is
	// passed through.
	err := h.DropMembership("224.0.0.251", "127.0.0.1")
	if err == nil {
		t.Fatal("dropping a never-joined group succeeded")
	}
	var e *api.Error
	if !errors.As(err, &e) || e.Code != api.ErrCodeOS {
		t.Errorf("error = %v, want OS-flavored", err)
	}
}

func TestMembershipBadGroup(t *testing.T) {
	h, _ := newTestHandle(t)
	if err := h.AddMembership("bogus", ""); err == nil {
		t.Fatal("bad group accepted")
	}
}

func TestCloseMakesOperationsFail(t *testing.T) {
	h, fr := newTestHandle(t)
	if err := h.Bind("127.0.0.1", 0, 0); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	fd := h.fd

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if fr.Registered(fd) {
		t.Errorf("fd still registered after close")
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	if err := h.Bind("127.0.0.1", 0, 0); !errors.Is(err, api.ErrClosed) {
		t.Errorf("Bind after close = %v, want ErrClosed", err)
	}
	if err := h.RecvStart(); !errors.Is(err, api.ErrClosed) {
		t.Errorf("RecvStart after close = %v, want ErrClosed", err)
	}
	if err := h.SetTTL(1); !errors.Is(err, api.ErrClosed) {
		t.Errorf("SetTTL after close = %v, want ErrClosed", err)
	}
	if _, err := h.Send([]byte("x"), 0, 1, 1, "127.0.0.1"); !errors.Is(err, api.ErrClosed) {
		t.Errorf("Send after close = %v, want ErrClosed", err)
	}
}

func TestLocalAddrUnbound(t *testing.T) {
	h, _ := newTestHandle(t)
	if _, err := h.LocalAddr(); err == nil {
		t.Fatal("LocalAddr on unbound handle succeeded")
	}
}
