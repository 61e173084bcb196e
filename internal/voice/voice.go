package voice

import (
	"github.com/kunquat-go/synthcore/internal/graph"
	"github.com/kunquat-go/synthcore/internal/workbuf"
)

// Voice is one render slot: a priority, the group it currently belongs to
// (0 means free), a polymorphic per-processor state block, a private
// random stream, and a scratch work buffer reserved for its processor's
// own internal use (distinct from the graph package's per-port buffers,
// which live on ThreadState and are keyed by device rather than voice).
type Voice struct {
	Priority Priority
	GroupID  uint64
	State    graph.VoiceState

	// Device is the processor this voice renders through, set by the
	// event.AudioUnit implementation's InitVoice alongside State. Owned by
	// internal/player, which is the only caller that dereferences it.
	Device *graph.Device

	randState uint64
	scratch   *workbuf.Buffer // reserved per-voice scratch, set by ReserveWorkBuffers

	// threadState and threadStateDevice cache the per-port ThreadState
	// internal/player builds the first time this slot renders Device, so
	// a fresh single-device Connections/StateArena isn't rebuilt every
	// chunk. Invalidated (rebuilt) whenever Device changes, since the two
	// are only valid together.
	threadState       *graph.ThreadState
	threadStateDevice *graph.Device
}

// ThreadState returns the cached per-port ThreadState for dev, or nil if
// none is cached yet or the cache was built for a different device.
func (v *Voice) ThreadState(dev *graph.Device) *graph.ThreadState {
	if v.threadStateDevice != dev {
		return nil
	}
	return v.threadState
}

// SetThreadState caches ts as the per-port ThreadState to reuse for dev
// on subsequent renders of this slot.
func (v *Voice) SetThreadState(dev *graph.Device, ts *graph.ThreadState) {
	v.threadStateDevice = dev
	v.threadState = ts
}

// Active reports whether this voice currently carries a live note.
func (v *Voice) Active() bool {
	return v.GroupID != 0 && v.State != nil && v.State.Active()
}

// SeedRandom derives this voice's random stream from a channel- or
// note-level seed, per the per-channel splitmix64-style derivation
// described for random-controlled processors.
func (v *Voice) SeedRandom(seed uint64) {
	v.randState = seed
}

// NextRandom advances and returns the next value in this voice's random
// stream (a splitmix64 step: fast, good avalanche, no shared state across
// voices so concurrent voice rendering never contends on a PRNG).
func (v *Voice) NextRandom() uint64 {
	v.randState += 0x9E3779B97F4A7C15
	z := v.randState
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Scratch returns this voice's reserved work buffer, or nil if
// ReserveWorkBuffers has not yet been called on the owning pool.
func (v *Voice) Scratch() *workbuf.Buffer { return v.scratch }

func (v *Voice) reset() {
	v.Priority = Inactive
	v.GroupID = 0
	v.State = nil
	v.Device = nil
}
