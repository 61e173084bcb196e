package graph

import "github.com/kunquat-go/synthcore/internal/workbuf"

// walkColor is the render-time memoization color: it lets the recursive
// mix walk (render.go) avoid re-rendering a device reached via two
// different fan-in paths within the same render call. Reset by Clear.
type walkColor int

const (
	colorNew walkColor = iota
	colorReached
	colorVisited
)

// ThreadState is one device's per-render-thread scratch: its receive and
// send port buffers (both the mixed-signal family and, inside audio
// units, the per-voice-group family), the DFS walk color, and the
// has-mixed-audio flag. Keyed by (device id, thread index) via StateArena.
type ThreadState struct {
	color          walkColor
	hasMixedAudio  bool
	inConnected    [PortsMax]bool
	mixedIn        [PortsMax]*workbuf.Buffer
	mixedOut       [PortsMax]*workbuf.Buffer
	voiceIn        [PortsMax]*workbuf.Buffer
	voiceOut       [PortsMax]*workbuf.Buffer
	bufSize        int
}

func newThreadState(bufSize int) *ThreadState {
	return &ThreadState{bufSize: bufSize}
}

// MixedIn returns (allocating on first use) the mixed-signal receive
// buffer for port idx.
func (t *ThreadState) MixedIn(idx int) *workbuf.Buffer {
	if t.mixedIn[idx] == nil {
		t.mixedIn[idx] = workbuf.New(t.bufSize)
	}
	return t.mixedIn[idx]
}

// MixedOut returns (allocating on first use) the mixed-signal send buffer
// for port idx.
func (t *ThreadState) MixedOut(idx int) *workbuf.Buffer {
	if t.mixedOut[idx] == nil {
		t.mixedOut[idx] = workbuf.New(t.bufSize)
	}
	return t.mixedOut[idx]
}

// VoiceIn returns (allocating on first use) the per-voice-group receive
// buffer for port idx. Recycled across voice groups by the caller
// (internal/voice) clearing it between groups rather than reallocating.
func (t *ThreadState) VoiceIn(idx int) *workbuf.Buffer {
	if t.voiceIn[idx] == nil {
		t.voiceIn[idx] = workbuf.New(t.bufSize)
	}
	return t.voiceIn[idx]
}

// VoiceOut returns (allocating on first use) the per-voice-group send
// buffer for port idx.
func (t *ThreadState) VoiceOut(idx int) *workbuf.Buffer {
	if t.voiceOut[idx] == nil {
		t.voiceOut[idx] = workbuf.New(t.bufSize)
	}
	return t.voiceOut[idx]
}

// ClearMixedBuffers zeros all mixed-signal input buffers for [start, stop)
// and resets has-mixed-audio, per spec §4.3.
func (t *ThreadState) ClearMixedBuffers(start, stop int) {
	for _, b := range t.mixedIn {
		if b != nil {
			b.Clear(start, stop)
			b.Invalidate()
		}
	}
	t.hasMixedAudio = false
	t.color = colorNew
	for i := range t.inConnected {
		t.inConnected[i] = false
	}
}

// ClearVoiceBuffers zeros all per-voice port buffers for [start, stop).
func (t *ThreadState) ClearVoiceBuffers(start, stop int) {
	for _, b := range t.voiceIn {
		if b != nil {
			b.Clear(start, stop)
			b.Invalidate()
		}
	}
	for _, b := range t.voiceOut {
		if b != nil {
			b.Clear(start, stop)
			b.Invalidate()
		}
	}
}

// HasMixedAudio reports whether this device produced any mixed-signal
// output during the current render call.
func (t *ThreadState) HasMixedAudio() bool { return t.hasMixedAudio }

func (t *ThreadState) markInputConnected(port int) { t.inConnected[port] = true }

// InputConnected reports whether receive port `port` received any signal
// during the current render call's Mix step.
func (t *ThreadState) InputConnected(port int) bool { return t.inConnected[port] }

// DeviceState holds one Device's per-thread ThreadState family.
type DeviceState struct {
	threads []*ThreadState
}

// Thread returns the ThreadState for the given thread index.
func (s *DeviceState) Thread(idx int) *ThreadState {
	return s.threads[idx]
}

// StateArena is the keyed collection of DeviceState, one per device id,
// each holding one ThreadState per render thread (spec §4.3). It is
// recreated whenever the audio rate, buffer size, or connections graph
// changes (spec §3 "Device states" lifecycle).
type StateArena struct {
	states      map[NodeID]*DeviceState
	threadCount int
	bufSize     int
}

// NewStateArena builds a fresh arena for the given graph, thread count,
// and maximum render chunk size.
func NewStateArena(c *Connections, threadCount, bufSize int) *StateArena {
	a := &StateArena{
		states:      make(map[NodeID]*DeviceState, len(c.nodes)),
		threadCount: threadCount,
		bufSize:     bufSize,
	}
	for id := range c.nodes {
		ds := &DeviceState{threads: make([]*ThreadState, threadCount)}
		for i := range ds.threads {
			ds.threads[i] = newThreadState(bufSize)
		}
		a.states[id] = ds
	}
	return a
}

// For returns the DeviceState for id. Panics if id is not part of the
// graph this arena was built for — a programming error, not a runtime
// condition the render path needs to tolerate.
func (a *StateArena) For(id NodeID) *DeviceState {
	ds, ok := a.states[id]
	if !ok {
		panic("graph: no device state for " + string(id))
	}
	return ds
}

// ThreadCount returns the number of per-thread states each device carries.
func (a *StateArena) ThreadCount() int { return a.threadCount }
