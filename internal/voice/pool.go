package voice

import (
	"sync"
	"sync/atomic"

	"github.com/kunquat-go/synthcore/internal/workbuf"
)

// Pool is the fixed-size (resizable between renders) slab of Voice slots
// shared by every audio unit. Allocation and grouped iteration are guarded
// by a single mutex, matching Mixer.mu in internal/media/mixer.go — the
// pool mutex is the only runtime lock anywhere in the render path.
type Pool struct {
	mu          sync.Mutex
	voices      []Voice
	nextGroupID uint64 // atomic

	scratchSize int

	iterIdx int
}

// NewPool constructs a pool of the given size. A size-0 pool is legal:
// GetVoice always returns nil and note-ons are silently dropped.
func NewPool(size int) *Pool {
	return &Pool{voices: make([]Voice, size)}
}

// Size returns the pool's current slot count.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.voices)
}

// Resize grows or shrinks the pool. Shrinking discards the trailing
// voices outright (their groups, if any, lose members without the usual
// whole-group eviction — a caller resizing mid-playback must accept that
// tradeoff, matching the original's resize-between-renders contract).
func (p *Pool) Resize(size int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if size <= len(p.voices) {
		p.voices = p.voices[:size]
		return
	}
	grown := make([]Voice, size)
	copy(grown, p.voices)
	p.voices = grown
	if p.scratchSize > 0 {
		p.reserveLocked(p.scratchSize)
	}
}

// NewGroupID returns a monotonically increasing nonzero group identifier.
func (p *Pool) NewGroupID() uint64 {
	return atomic.AddUint64(&p.nextGroupID, 1)
}

// GetVoice implements the allocation protocol: among all voices whose
// current group is not groupID, pick the lowest-priority one (ties broken
// by slot position). If that voice belongs to another live group, the
// entire group is evicted first so that no two processors realizing the
// same note can ever disagree about whether the note is still alive.
// Returns nil if the pool has no slots or every slot already belongs to
// groupID.
func (p *Pool) GetVoice(groupID uint64) *Voice {
	p.mu.Lock()
	defer p.mu.Unlock()

	best := -1
	for i := range p.voices {
		if p.voices[i].GroupID == groupID {
			continue
		}
		if best == -1 || p.voices[i].Priority < p.voices[best].Priority {
			best = i
		}
	}
	if best == -1 {
		return nil
	}

	if victim := p.voices[best].GroupID; victim != 0 {
		p.evictGroupLocked(victim)
	}

	v := &p.voices[best]
	v.reset()
	v.GroupID = groupID
	v.Priority = New
	return v
}

func (p *Pool) evictGroupLocked(groupID uint64) {
	for i := range p.voices {
		if p.voices[i].GroupID == groupID {
			p.voices[i].reset()
		}
	}
}

// Release transitions a voice from FG to BG on note-off: it keeps
// rendering its release envelope but is no longer addressable by control
// events for that note. Synchronous with the caller's note-off handling
// (no separate release-queue step).
func (p *Pool) Release(v *Voice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v.Priority == FG || v.Priority == New {
		v.Priority = BG
	}
}

// Deactivate frees a voice immediately, independent of group membership.
// Called once a voice's Impl chain reports it is no longer producing
// audible signal (e.g. a finished release envelope).
func (p *Pool) Deactivate(v *Voice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v.reset()
}

// ResetAll immediately frees every voice in the pool, discarding group
// membership and per-voice render state. Used by the Player on a full
// playback reset (spec §6 reset(track)), where every previously live
// voice must stop producing sound rather than finish its release tail.
func (p *Pool) ResetAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.voices {
		p.voices[i].reset()
	}
	p.iterIdx = 0
}

// ActiveCount returns the number of non-free voices, for metrics.
func (p *Pool) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for i := range p.voices {
		if p.voices[i].GroupID != 0 {
			n++
		}
	}
	return n
}

// ReserveWorkBuffers (re)allocates the per-voice scratch slab, one buffer
// of the given size per slot, and re-points every Voice to its slice. The
// original implementation's analogue is resized the same way whenever the
// render buffer size changes.
func (p *Pool) ReserveWorkBuffers(size int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reserveLocked(size)
}

func (p *Pool) reserveLocked(size int) {
	p.scratchSize = size
	for i := range p.voices {
		p.voices[i].scratch = workbuf.New(size)
	}
}
