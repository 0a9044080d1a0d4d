// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Runtime tuning knobs for the reactor and datagram handles.

package control

import "time"

// Config carries the tunables shared by the loop and handles.
type Config struct {
	// SlabSize is the backing region size for receive slabs.
	SlabSize int

	// RecvBufferSize is the suggested capacity requested from the
	// slab allocator per receive.
	RecvBufferSize int

	// MaxBatch bounds both poll events per tick and datagrams drained
	// per readiness callback, to keep the loop fair across handles.
	MaxBatch int

	// PollTimeout bounds a single poll wait. The loop also wakes
	// early for deferred callbacks.
	PollTimeout time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		SlabSize:       1 << 20,
		RecvBufferSize: 64 * 1024,
		MaxBatch:       128,
		PollTimeout:    time.Second,
	}
}

// Normalize fills zero or nonsense fields with defaults.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.SlabSize <= 0 {
		c.SlabSize = def.SlabSize
	}
	if c.RecvBufferSize <= 0 {
		c.RecvBufferSize = def.RecvBufferSize
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = def.MaxBatch
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = def.PollTimeout
	}
	return c
}
