// Package processor holds graph.Impl implementations. Debug is the only
// one built out in full: a minimal signal generator whose sole purpose is
// to exercise the render path's single-pulse and repeated-pulse test
// scenarios (spec §8) without needing a real oscillator or sample
// decoder. Real voice/audio-unit generators (sine, additive, sample,
// filter, ...) are out of scope; Debug stands in for all of them at the
// graph.Impl boundary.
package processor

import (
	"encoding/json"
	"fmt"

	"github.com/kunquat-go/synthcore/internal/graph"
)

// Debug is a one-output-port processor with two modes, selected by the
// p_b_single_pulse key:
//
//   - false (default): repeated-pulse — every fourth frame (counting from
//     the device or voice's own start of life) is 1.0, the other three
//     are 0.5.
//   - true: single-pulse — frame 0 is 1.0, every frame after is 0.0.
//
// Both the mixed-signal path (device-lifetime position) and the
// per-voice path (voice-lifetime position) implement the same rule
// against their own position counter.
type Debug struct {
	dev         *graph.Device
	singlePulse bool
	pos         int64
}

// VoiceState is Debug's per-voice state block: an active flag plus the
// voice's own frame position, independent of the device's mixed-signal
// position.
type VoiceState struct {
	active bool
	pos    int64
}

// Active implements graph.VoiceState.
func (v *VoiceState) Active() bool { return v.active }

// SetActive implements graph.VoiceState.
func (v *VoiceState) SetActive(active bool) { v.active = active }

// NewDebug constructs an uninitialized Debug processor; Init must be
// called before use, matching every other Impl's lifecycle.
func NewDebug() *Debug {
	return &Debug{}
}

// Init implements graph.Impl.
func (d *Debug) Init(dev *graph.Device) error {
	d.dev = dev
	if !dev.HasPort(graph.PortOut, 0) {
		dev.DeclarePort(graph.PortOut, 0)
	}
	return nil
}

// SetAudioRate implements graph.Impl. Debug's output does not depend on
// the audio rate.
func (d *Debug) SetAudioRate(rate int32) {}

// SetBufferSize implements graph.Impl. Debug allocates nothing of its
// own; all scratch comes from the caller's ThreadState.
func (d *Debug) SetBufferSize(size int) {}

// UpdateTempo implements graph.Impl. Debug's output does not depend on
// tempo.
func (d *Debug) UpdateTempo(tempo float64) {}

// Reset implements graph.Impl: restarts the mixed-signal position
// counter, so a fresh single-pulse fires again at frame 0.
func (d *Debug) Reset() {
	d.pos = 0
}

// RenderMixed implements graph.Impl.
func (d *Debug) RenderMixed(ts *graph.ThreadState, start, stop int, tempo float64) {
	out := ts.MixedOut(0)
	buf := out.GetContentsMut()
	for i := start; i < stop; i++ {
		buf[i] = d.sample(d.pos)
		d.pos++
	}
	out.MarkValid()
}

// NewVoiceState implements graph.Impl.
func (d *Debug) NewVoiceState() graph.VoiceState {
	return &VoiceState{}
}

// InitVoiceState implements graph.Impl: resets the fresh voice's own
// position counter to 0, independent of the device's mixed-signal
// position.
func (d *Debug) InitVoiceState(vstate graph.VoiceState) {
	vs := vstate.(*VoiceState)
	vs.active = true
	vs.pos = 0
}

// RenderVoice implements graph.Impl. In single-pulse mode the voice
// deactivates itself once its one frame of signal has been emitted, so
// the voice pool can reclaim the slot on the next GetVoice call.
func (d *Debug) RenderVoice(vstate graph.VoiceState, ts *graph.ThreadState, start, stop int, tempo float64) int {
	vs := vstate.(*VoiceState)
	out := ts.VoiceOut(0)
	buf := out.GetContentsMut()

	for i := start; i < stop; i++ {
		buf[i] = d.sample(vs.pos)
		vs.pos++
		if d.singlePulse && vs.pos == 1 {
			out.MarkValid()
			vs.SetActive(false)
			return i + 1
		}
	}
	out.MarkValid()
	return stop
}

// sample computes the signal value at the given lifetime position,
// shared by the mixed and per-voice render paths.
func (d *Debug) sample(pos int64) float64 {
	if d.singlePulse {
		if pos == 0 {
			return 1.0
		}
		return 0.0
	}
	if pos%4 == 0 {
		return 1.0
	}
	return 0.5
}

// debugManifest is the JSON shape of the p_b_single_pulse key.
type debugManifest struct {
	SinglePulse bool `json:"single_pulse"`
}

// SetKey implements graph.Impl. Only p_b_single_pulse.json is recognized;
// any other key path is ignored (spec §7: unknown keys are non-fatal).
func (d *Debug) SetKey(keyPath string, value []byte) error {
	if keyPath != "p_b_single_pulse.json" {
		return nil
	}
	var m debugManifest
	if err := json.Unmarshal(value, &m); err != nil {
		return fmt.Errorf("processor: debug: p_b_single_pulse.json: %w", err)
	}
	d.singlePulse = m.SinglePulse
	return nil
}
