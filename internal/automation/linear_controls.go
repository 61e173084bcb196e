package automation

import "github.com/kunquat-go/synthcore/internal/workbuf"

// LinearControls composes a base value, a Slider, and an LFO behind a
// clamp range, and fills a work buffer with the resulting sample-accurate
// stream (spec §4.6).
type LinearControls struct {
	slider   *Slider
	lfo      *LFO
	minValue float64
	maxValue float64
}

// NewLinearControls constructs a stream at rest, holding initial as both
// its base value and its clamp range.
func NewLinearControls(initial float64) *LinearControls {
	return &LinearControls{
		slider:   NewSlider(initial),
		lfo:      NewLFO(),
		minValue: initial,
		maxValue: initial,
	}
}

// SetRange sets the clamp bounds applied after the slider and LFO fill.
func (lc *LinearControls) SetRange(min, max float64) {
	lc.minValue, lc.maxValue = min, max
}

// Range returns the current clamp bounds.
func (lc *LinearControls) Range() (min, max float64) { return lc.minValue, lc.maxValue }

// Slider exposes the underlying value slider for slide_* events.
func (lc *LinearControls) Slider() *Slider { return lc.slider }

// LFO exposes the underlying oscillator for oscillate/tremolo/vibrato
// events.
func (lc *LinearControls) LFO() *LFO { return lc.lfo }

// Value returns the stream's instantaneous value without filling a
// buffer, useful for a single reference sample (e.g. a control that never
// got its own work buffer, such as a channel's current panning).
func (lc *LinearControls) Value() float64 {
	return clamp(lc.slider.Value(), lc.minValue, lc.maxValue)
}

// SetAudioRate forwards to the slider and LFO.
func (lc *LinearControls) SetAudioRate(rate int32) {
	lc.slider.SetAudioRate(rate)
	lc.lfo.SetAudioRate(rate)
}

// SetTempo forwards to the slider and LFO.
func (lc *LinearControls) SetTempo(tempo float64) {
	lc.slider.SetTempo(tempo)
	lc.lfo.SetTempo(tempo)
}

// FillWorkBuffer produces a full sample-accurate stream into wb[start:stop]:
// the slider's slide (vectorized for as many steps as remain active, then
// splatting its resting value), the LFO's additive or multiplicative
// contribution, and finally the clamp range. const_start is advanced
// conservatively: the buffer is only known constant from the point where
// neither the slider nor the LFO touched it.
func (lc *LinearControls) FillWorkBuffer(wb *workbuf.Buffer, start, stop int) {
	data := wb.GetContentsMut()

	written := lc.slider.FillRun(data, start, stop)
	constStart := start + written
	resting := lc.slider.Value()
	for i := start + written; i < stop; i++ {
		data[i] = resting
	}

	if lc.lfo.AddRun(data, start, stop) {
		constStart = stop
	}

	for i := start; i < stop; i++ {
		data[i] = clamp(data[i], lc.minValue, lc.maxValue)
	}

	wb.SetConstStart(int32(constStart))
	wb.MarkValid()
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Convert affinely retargets src's stream from [rangeMin, rangeMax] to
// [mapMinTo, mapMaxTo] and writes the result into dest: base value,
// slider current/target, LFO depth, and clamp bounds are all remapped. A
// flipped destination range (mapMinTo > mapMaxTo) inverts the direction
// of every slide and oscillation, matching the sign of the scale factor.
func Convert(dest, src *LinearControls, mapMinTo, mapMaxTo float64, rangeMin, rangeMax float64) {
	scale := (mapMaxTo - mapMinTo) / (rangeMax - rangeMin)
	remap := func(v float64) float64 { return mapMinTo + (v-rangeMin)*scale }

	dest.slider.current = remap(src.slider.current)
	dest.slider.target = remap(src.slider.target)
	dest.slider.step = src.slider.step * scale
	dest.slider.left = src.slider.left

	dest.lfo.enabled = src.lfo.enabled
	dest.lfo.mode = src.lfo.mode
	dest.lfo.phase = src.lfo.phase
	dest.lfo.speed.current = src.lfo.speed.current
	dest.lfo.speed.target = src.lfo.speed.target
	dest.lfo.speed.step = src.lfo.speed.step
	dest.lfo.speed.left = src.lfo.speed.left
	dest.lfo.depth.current = src.lfo.depth.current * scale
	dest.lfo.depth.target = src.lfo.depth.target * scale
	dest.lfo.depth.step = src.lfo.depth.step * scale
	dest.lfo.depth.left = src.lfo.depth.left

	a, b := remap(src.minValue), remap(src.maxValue)
	if a > b {
		a, b = b, a
	}
	dest.minValue, dest.maxValue = a, b
}
