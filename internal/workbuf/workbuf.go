// Package workbuf implements the engine's aligned audio-rate scratch
// buffer: a float slab carrying one sub-signal across a render slice, with
// a "constant from index K" marker that downstream processors may exploit
// to skip work, and a valid/invalid flag so unconnected ports read as
// silence without a branch at every call site.
package workbuf

import "math"

// SizeMax bounds a single Buffer's logical length. The three trailing
// slots reserved for SIMD overread keep this below int32 range with room
// to spare, matching the original engine's WORK_BUFFER_SIZE_MAX.
const SizeMax = (math.MaxInt32 / 4) - 3

// overreadSlots is the number of trailing scratch slots every Buffer
// carries beyond its logical size, so that a processor written to stride
// past `size` by a fixed small amount (as some vectorized fills do) never
// runs off the allocation.
const overreadSlots = 3

// notSet marks a Buffer with no known constant tail.
const notSet = math.MaxInt32

// Buffer is one audio-rate scratch slab.
type Buffer struct {
	data       []float64
	size       int
	constStart int32 // notSet if no constant run is known
	isFinal    bool  // the constant tail is known to persist for the voice's life
	valid      bool  // zero-initialized lazily; false means "treat as silence"
}

// New allocates a Buffer of the given logical size. Panics if size exceeds
// SizeMax, mirroring the original engine's allocation-time assertion.
func New(size int) *Buffer {
	if size < 0 || size > SizeMax {
		panic("workbuf: size out of range")
	}
	return &Buffer{
		data:       make([]float64, size+overreadSlots),
		size:       size,
		constStart: notSet,
	}
}

// Size returns the buffer's logical length (excluding overread slots).
func (b *Buffer) Size() int { return b.size }

// Data exposes the raw backing slice, sized size+overreadSlots, for
// processors that want direct vectorizable access. Callers must not read
// or write past index stop-1 except into the reserved overread slots.
func (b *Buffer) Data() []float64 { return b.data }

// Clear zeros indices [start, stop) and invalidates any constant-run
// knowledge for that range, since zero is itself a constant value the
// caller must still be explicit about via SetConstStart if desired.
func (b *Buffer) Clear(start, stop int) {
	b.checkRange(start, stop)
	for i := start; i < stop; i++ {
		b.data[i] = 0
	}
	if start < stop && int(b.constStart) < stop {
		b.constStart = notSet
	}
}

// Copy writes src[start:stop] into dst[start:stop] element-wise. No
// NaN/Inf handling: per spec this is a pure elementwise operation and
// relies on upstream processors to have already clamped.
func Copy(dst, src *Buffer, start, stop int) {
	dst.checkRange(start, stop)
	src.checkRange(start, stop)
	copy(dst.data[start:stop], src.data[start:stop])
}

// Mix accumulates src[start:stop] into dst[start:stop].
func Mix(dst, src *Buffer, start, stop int) {
	dst.checkRange(start, stop)
	src.checkRange(start, stop)
	for i := start; i < stop; i++ {
		dst.data[i] += src.data[i]
	}
}

func (b *Buffer) checkRange(start, stop int) {
	if start < 0 || stop > b.size || start > stop {
		panic("workbuf: range out of bounds")
	}
}

// SetConstStart declares that indices [k, b.size) hold an identical value.
// This is a hint for readers to short-circuit; it does not itself write
// anything; the caller remains responsible for having actually filled
// those indices with the constant value.
func (b *Buffer) SetConstStart(k int32) {
	b.constStart = k
}

// ConstStart returns the index from which the buffer's tail is known
// constant, or a value >= b.size if no such run is known.
func (b *Buffer) ConstStart() int32 {
	if b.constStart == notSet {
		return int32(b.size)
	}
	return b.constStart
}

// HasConstTail reports whether any suffix of the buffer is known constant.
func (b *Buffer) HasConstTail() bool {
	return b.constStart != notSet && int(b.constStart) < b.size
}

// SetFinal marks whether the constant tail (if any) is known to persist
// for the remainder of the voice's life, letting processors further
// downstream drop the voice once they observe e.g. -inf dB force.
func (b *Buffer) SetFinal(final bool) {
	b.isFinal = final
}

// IsFinal reports whether the constant tail is marked final.
func (b *Buffer) IsFinal() bool { return b.isFinal }

// MarkValid flags the buffer as holding meaningful data for this slice.
func (b *Buffer) MarkValid() { b.valid = true }

// Invalidate flags the buffer as not holding meaningful data; consumers
// must treat it as all-zero without reading it.
func (b *Buffer) Invalidate() { b.valid = false }

// IsValid reports whether the buffer currently holds meaningful data.
func (b *Buffer) IsValid() bool { return b.valid }

// GetContentsMut returns the mutable backing slice for in-place writes.
// Because the buffer is about to be overwritten without regard to any
// previously recorded optimization, this clears both the const-run marker
// and the final flag, per the write discipline in the spec: once is_final
// is set on a buffer exposed to a consumer, no further writes are allowed
// within the slice except through this explicit "I know what I'm doing"
// entry point used only at the start of a fresh render pass.
func (b *Buffer) GetContentsMut() []float64 {
	b.constStart = notSet
	b.isFinal = false
	return b.data
}

// At returns the value at index i, treating an invalid buffer as silence.
func (b *Buffer) At(i int) float64 {
	if !b.valid {
		return 0
	}
	return b.data[i]
}
