package player

import (
	"github.com/kunquat-go/synthcore/internal/event"
	"github.com/kunquat-go/synthcore/internal/graph"
	"github.com/kunquat-go/synthcore/internal/voice"
)

// audioUnitBinding implements event.AudioUnit for one audio unit: the
// single processor device that realizes its notes. A richer audio unit
// with an interior chain of several processors connected voice-rate (the
// way master-level devices connect mixed-rate, per internal/graph) is
// out of scope here — the only Impl this module ships, processor.Debug,
// is single-port and single-stage, so there is nothing to exercise a
// multi-processor voice-rate walk against.
type audioUnitBinding struct {
	device *graph.Device
}

// ProcessorCount implements event.AudioUnit.
func (b *audioUnitBinding) ProcessorCount() int {
	if b.device == nil || b.device.Impl == nil {
		return 0
	}
	return 1
}

// InitVoice implements event.AudioUnit: allocates and initializes the
// voice's state block via the bound device's Impl, and records the
// device on the voice so the render loop knows which Impl to call each
// chunk.
func (b *audioUnitBinding) InitVoice(procIndex int, v *voice.Voice) {
	if procIndex != 0 || b.device == nil || b.device.Impl == nil {
		return
	}
	v.Device = b.device
	v.State = b.device.Impl.NewVoiceState()
	b.device.Impl.InitVoiceState(v.State)
}

// auTable implements event.AudioUnitTable over a plain index->binding map,
// mutated only between render calls (RegisterAudioUnit).
type auTable struct {
	units map[int]*audioUnitBinding
}

func newAUTable() *auTable {
	return &auTable{units: make(map[int]*audioUnitBinding)}
}

// Lookup implements event.AudioUnitTable.
func (t *auTable) Lookup(index int) (event.AudioUnit, bool) {
	b, ok := t.units[index]
	if !ok {
		return nil, false
	}
	return b, true
}
