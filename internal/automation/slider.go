// Package automation implements the parameter-automation runtime: sample
// accurate sliders, an LFO, and the Linear_controls composition that
// drives continuous channel and per-voice parameters. Grounded on
// internal/media/mixer.go's tone generator (InjectTone/drainTone/
// generateBeep fill a fixed-frequency buffer sample-by-sample; here the
// same fill-a-buffer-sample-accurately idiom drives a slide/oscillate
// stream instead of a fixed tone).
package automation

import "github.com/kunquat-go/synthcore/internal/tstamp"

// Slider is a sample-accurate linear ramp between two scalar values.
type Slider struct {
	current float64
	target  float64
	step    float64
	left    int64

	audioRate int32
	tempo     float64
}

// NewSlider constructs a Slider at rest, holding the given initial value.
func NewSlider(initial float64) *Slider {
	return &Slider{current: initial, target: initial, audioRate: 48000, tempo: 120}
}

// SetAudioRate updates the sample rate used to convert slide lengths
// (expressed as Tstamp beats) into sample counts.
func (s *Slider) SetAudioRate(rate int32) { s.audioRate = rate }

// SetTempo updates the tempo used for the same conversion.
func (s *Slider) SetTempo(tempo float64) { s.tempo = tempo }

// Value returns the slider's current value.
func (s *Slider) Value() float64 { return s.current }

// Target returns the slider's destination value (equal to current when
// the slider is at rest).
func (s *Slider) Target() float64 { return s.target }

// SetValue immediately sets the current value and cancels any slide.
func (s *Slider) SetValue(v float64) {
	s.current = v
	s.target = v
	s.left = 0
	s.step = 0
}

// SlideTarget starts a new linear slide from the current value to target
// over length (beats), converted to a sample count via the slider's
// current audio rate and tempo. A zero-length slide sets the value
// immediately.
func (s *Slider) SlideTarget(target float64, length tstamp.Tstamp) {
	steps := tstamp.ToFrames(length, s.tempo, s.audioRate)
	if steps <= 0 {
		s.SetValue(target)
		return
	}
	s.target = target
	s.left = steps
	s.step = (target - s.current) / float64(steps)
}

// ChangeTarget retargets an in-progress slide without resetting its
// current position: the remaining step count is unchanged, only the
// per-sample increment is recomputed. Calling it while no slide is active
// sets the value to target at once, as SetValue does.
func (s *Slider) ChangeTarget(target float64) {
	if s.left <= 0 {
		s.SetValue(target)
		return
	}
	s.target = target
	s.step = (target - s.current) / float64(s.left)
}

// Break freezes the slide at its current value.
func (s *Slider) Break() {
	s.target = s.current
	s.left = 0
	s.step = 0
}

// Active reports whether the slider is still sliding.
func (s *Slider) Active() bool { return s.left > 0 }

// EstimateActiveStepsLeft returns the number of samples remaining before
// the slider reaches its target (0 if inactive), letting a caller
// vectorize a fill up to that many samples before switching to a splat.
func (s *Slider) EstimateActiveStepsLeft() int64 { return s.left }

// FillRun writes consecutive slid values into dst[start:stop] for as long
// as the slide remains active, and returns how many samples it wrote.
// The caller is responsible for splatting Value() into the remainder.
func (s *Slider) FillRun(dst []float64, start, stop int) int {
	n := stop - start
	active := n
	if int64(active) > s.left {
		active = int(s.left)
	}
	for i := 0; i < active; i++ {
		s.current += s.step
		dst[start+i] = s.current
	}
	s.left -= int64(active)
	if s.left <= 0 {
		s.left = 0
		s.current = s.target
		s.step = 0
	}
	return active
}
