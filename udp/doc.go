// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package udp implements the asynchronous datagram handle: a
// connectionless UDP endpoint driven by a single-threaded reactor,
// with slab-amortized receive buffers and one-shot send completion
// callbacks.
//
// All handle methods and callbacks belong to the loop goroutine. No
// operation blocks: bind, send, option calls and recv start/stop
// return with only the submission outcome; completion lands later via
// the registered callbacks on the same goroutine.
package udp
