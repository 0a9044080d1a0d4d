//go:build !linux
// +build !linux

// File: udp/sock_stub.go
// Author: momentics <momentics@gmail.com>
//
// Fallback shim for platforms without a native implementation.

package udp

import (
	"net"

	"github.com/momentics/hioload-udp/api"
)

func sockOpen(api.Family) (int, error) { return -1, api.ErrNotSupported }

func sockClose(int) error { return api.ErrNotSupported }

func sockBind(int, api.Addr) error { return api.ErrNotSupported }

func sockSendTo(int, []byte, api.Addr) error { return api.ErrNotSupported }

func sockRecvFrom(int, []byte) (int, api.Addr, error) {
	return 0, api.Addr{}, api.ErrNotSupported
}

func sockName(int) (api.Addr, error) { return api.Addr{}, api.ErrNotSupported }

func sockSetReuseAddr(int) error { return api.ErrNotSupported }

func sockSetV6Only(int) error { return api.ErrNotSupported }

func sockSetTTL(int, api.Family, int) error { return api.ErrNotSupported }

func sockSetBroadcast(int, int) error { return api.ErrNotSupported }

func sockSetMulticastTTL(int, api.Family, int) error { return api.ErrNotSupported }

func sockSetMulticastLoopback(int, api.Family, int) error { return api.ErrNotSupported }

func sockMembership(int, api.Family, net.IP, string, bool) error { return api.ErrNotSupported }
