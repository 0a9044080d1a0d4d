// Package api
// Author: momentics
//
// Slab allocation contract for the receive path. A slab is a large
// region subdivided on demand so consecutive receives on one handle
// reuse the same backing array until it is exhausted.
//
// All operations are zero-copy; consumers that need to retain bytes
// past the delivery callback must Copy them out.

package api

// Slab is an opaque backing arena handed out by a SlabAllocator.
type Slab interface {
	// Bytes returns the slab's full backing array.
	Bytes() []byte

	// ID returns the slab generation, unique per allocator.
	ID() uint64
}

// Region locates the filled prefix of one receive inside its slab.
// Offset is relative to the slab base, so no pointer arithmetic is
// needed to find the bytes.
type Region struct {
	Slab   Slab
	Offset int
	Length int
}

// Bytes returns the filled window. Valid only while the slab's
// backing array is alive; the region keeps it alive.
func (r Region) Bytes() []byte {
	return r.Slab.Bytes()[r.Offset : r.Offset+r.Length]
}

// Copy returns a standalone copy of the region contents.
func (r Region) Copy() []byte {
	out := make([]byte, r.Length)
	copy(out, r.Bytes())
	return out
}

// SlabAllocator supplies scratch memory for receives, keyed by the
// owning handle. Allocate and Shrink are always called back to back
// on the loop goroutine; the allocator needs no internal locking
// under the single-threaded reactor model.
type SlabAllocator interface {
	// Allocate returns a window of suggested bytes at the owner's
	// active slab cursor, rolling to a fresh slab when the current
	// one cannot fit the request.
	Allocate(owner any, suggested int) []byte

	// Shrink commits exactly used bytes of the window returned by the
	// matching Allocate, releasing the unused tail back to the slab's
	// free cursor, and returns the committed region. used == 0
	// commits nothing.
	Shrink(owner any, buf []byte, used int) Region
}
