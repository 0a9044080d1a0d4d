// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the single-threaded event loop driving all
// datagram I/O: a platform poller (epoll on Linux, stub elsewhere)
// plus a deferred-callback run queue. Every readiness and completion
// callback is invoked on the loop goroutine.
package reactor
