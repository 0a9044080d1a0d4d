//go:build !linux
// +build !linux

// File: reactor/poller_stub.go
// Author: momentics <momentics@gmail.com>
//
// Fallback poller for platforms without a native implementation.

package reactor

import "github.com/momentics/hioload-udp/api"

type stubPoller struct{}

func newPoller() (poller, error) {
	return nil, api.ErrNotSupported
}
