// File: core/slab/slab.go
// Package slab implements an owner-keyed arena allocator for receive
// buffers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package slab

import (
	"fmt"
	"sync/atomic"

	"github.com/momentics/hioload-udp/api"
)

// DefaultSlabSize is the backing region size for each slab.
const DefaultSlabSize = 1 << 20 // 1 MiB

// Slab is one backing arena. Regions handed out for committed
// receives hold a reference to it, which keeps the array alive until
// every consumer is done.
type Slab struct {
	id     uint64
	data   []byte
	cursor int
}

// Bytes returns the full backing array.
func (s *Slab) Bytes() []byte { return s.data }

// ID returns the slab generation, unique per allocator.
func (s *Slab) ID() uint64 { return s.id }

var _ api.Slab = (*Slab)(nil)

// Allocator hands out windows from per-owner active slabs. All calls
// happen on the reactor goroutine; there is no locking here. A
// multi-threaded reactor would need to serialize access per slab.
type Allocator struct {
	slabSize int
	nextID   uint64
	active   map[any]*Slab

	slabsAllocated atomic.Uint64
	bytesCommitted atomic.Uint64
}

// NewAllocator creates an allocator with the given slab size.
// Sizes below one page are rounded up to DefaultSlabSize.
func NewAllocator(slabSize int) *Allocator {
	if slabSize < 4096 {
		slabSize = DefaultSlabSize
	}
	return &Allocator{
		slabSize: slabSize,
		active:   make(map[any]*Slab),
	}
}

// Allocate returns a window of suggested bytes at the owner's cursor.
// Rolls to a fresh slab when the active one cannot fit the request.
// Requests larger than the slab size get a dedicated slab.
func (a *Allocator) Allocate(owner any, suggested int) []byte {
	if suggested <= 0 {
		return nil
	}
	size := a.slabSize
	if suggested > size {
		size = suggested
	}
	s := a.active[owner]
	if s == nil || len(s.data)-s.cursor < suggested {
		a.nextID++
		s = &Slab{id: a.nextID, data: make([]byte, size)}
		a.active[owner] = s
		a.slabsAllocated.Add(1)
	}
	return s.data[s.cursor : s.cursor+suggested]
}

// Shrink commits used bytes of the window returned by the matching
// Allocate and returns the committed region. The unused tail stays at
// the free cursor for the owner's next receive.
func (a *Allocator) Shrink(owner any, buf []byte, used int) api.Region {
	s := a.active[owner]
	if s == nil {
		panic(fmt.Sprintf("slab: shrink without allocate (owner %v)", owner))
	}
	if used < 0 {
		used = 0
	}
	if used > len(buf) {
		panic(fmt.Sprintf("slab: shrink beyond window: %d > %d", used, len(buf)))
	}
	off := s.cursor
	s.cursor += used
	a.bytesCommitted.Add(uint64(used))
	return api.Region{Slab: s, Offset: off, Length: used}
}

// Forget drops the owner's active slab reference. Outstanding regions
// stay valid; the next Allocate for this owner starts a fresh slab.
func (a *Allocator) Forget(owner any) {
	delete(a.active, owner)
}

// Stats aggregates allocation accounting.
type Stats struct {
	SlabsAllocated uint64
	BytesCommitted uint64
}

// Stats returns a snapshot of allocation counters.
func (a *Allocator) Stats() Stats {
	return Stats{
		SlabsAllocated: a.slabsAllocated.Load(),
		BytesCommitted: a.bytesCommitted.Load(),
	}
}

var _ api.SlabAllocator = (*Allocator)(nil)
