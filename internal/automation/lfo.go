package automation

import "math"

// LFOMode selects how the oscillator's contribution combines with the
// value it modulates.
type LFOMode int

const (
	// LFOLinear adds the oscillator's contribution to the base value.
	// The only mode Linear_controls uses.
	LFOLinear LFOMode = iota
	// LFOExponential multiplies the base value by (1 + contribution).
	LFOExponential
)

// LFO is a sine oscillator whose speed (Hz) and depth are themselves
// sliders, so speed and depth changes ramp smoothly instead of stepping.
type LFO struct {
	enabled bool
	mode    LFOMode
	phase   float64 // cycles, wrapped to [0, 1)

	speed *Slider // Hz
	depth *Slider

	audioRate int32
}

// NewLFO constructs a disabled LFO at zero speed and depth.
func NewLFO() *LFO {
	return &LFO{
		speed:     NewSlider(0),
		depth:     NewSlider(0),
		audioRate: 48000,
	}
}

// SetAudioRate updates the sample rate used to advance phase and to
// convert the speed/depth sliders' slide lengths.
func (l *LFO) SetAudioRate(rate int32) {
	l.audioRate = rate
	l.speed.SetAudioRate(rate)
	l.depth.SetAudioRate(rate)
}

// SetTempo forwards to the speed and depth sliders.
func (l *LFO) SetTempo(tempo float64) {
	l.speed.SetTempo(tempo)
	l.depth.SetTempo(tempo)
}

// SetMode selects linear (additive) or exponential (multiplicative) mode.
func (l *LFO) SetMode(m LFOMode) { l.mode = m }

// Enable turns the oscillator on or off. A disabled LFO contributes
// nothing (additive mode: 0; multiplicative: factor 1).
func (l *LFO) Enable(on bool) { l.enabled = on }

// Enabled reports whether the oscillator is on.
func (l *LFO) Enabled() bool { return l.enabled }

// SpeedSlider and DepthSlider expose the underlying sliders so events can
// retarget or break them directly (speed_slide, depth_slide).
func (l *LFO) SpeedSlider() *Slider { return l.speed }
func (l *LFO) DepthSlider() *Slider { return l.depth }

// Active reports whether this LFO currently contributes a non-constant
// signal: enabled with nonzero depth, or its speed/depth sliders still
// ramping (which can turn depth from zero to nonzero mid-buffer).
func (l *LFO) Active() bool {
	if !l.enabled {
		return false
	}
	return l.depth.Value() != 0 || l.depth.Active() || l.speed.Active()
}

// AddRun advances the oscillator sample-by-sample over dst[start:stop],
// combining its contribution into the existing values per mode. Returns
// whether the LFO was enabled (and therefore touched the buffer) for any
// sample in the run.
func (l *LFO) AddRun(dst []float64, start, stop int) bool {
	if !l.enabled {
		return false
	}
	for i := start; i < stop; i++ {
		hz := l.speed.current
		l.speed.current += stepOrZero(l.speed)
		depth := l.depth.current
		l.depth.current += stepOrZero(l.depth)

		l.phase += hz / float64(l.audioRate)
		l.phase -= math.Floor(l.phase)
		contribution := depth * math.Sin(2*math.Pi*l.phase)

		switch l.mode {
		case LFOExponential:
			dst[i] *= 1 + contribution
		default:
			dst[i] += contribution
		}
	}
	consumeSteps(l.speed, stop-start)
	consumeSteps(l.depth, stop-start)
	return true
}

// stepOrZero returns the slider's per-sample increment only while it is
// still sliding, so AddRun's manual advance matches Slider.FillRun.
func stepOrZero(s *Slider) float64 {
	if s.left > 0 {
		return s.step
	}
	return 0
}

func consumeSteps(s *Slider, n int) {
	if s.left <= 0 {
		return
	}
	if int64(n) >= s.left {
		s.left = 0
		s.current = s.target
		s.step = 0
		return
	}
	s.left -= int64(n)
}

// ResetPhase zeroes the oscillator's phase, used on note-on so a
// discontinuous-onset processor (e.g. additive base wave) starts its LFO
// at zero crossing instead of an arbitrary phase.
func (l *LFO) ResetPhase() { l.phase = 0 }
