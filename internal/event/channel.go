package event

import (
	"github.com/kunquat-go/synthcore/internal/automation"
	"github.com/kunquat-go/synthcore/internal/voice"
)

// Channel is one musical channel's playback state: current foreground
// voices, background voice references, the automated pitch/force/panning
// controls, the general-events enabled stack, carry flags, and named
// streams written by events and read by Stream processors.
type Channel struct {
	Pitch   *automation.LinearControls
	Force   *automation.LinearControls
	Panning *automation.LinearControls

	CarryForce bool
	CarryPitch bool

	AUInput        int
	ExpressionIdx  int
	HitIdx         int

	RandState uint64

	Streams map[string]*automation.LinearControls

	foreground  []*voice.Voice
	background  []uint64 // group ids of voices released to BG
	enabledStack []bool
}

// NewChannel constructs a channel with pitch in Hz-free cents space
// (base value 0 = reference note), force in dB, and centered panning.
func NewChannel() *Channel {
	pitch := automation.NewLinearControls(0)
	pitch.SetRange(-4800, 4800)

	force := automation.NewLinearControls(0)
	force.SetRange(-120, 24)

	panning := automation.NewLinearControls(0)
	panning.SetRange(-1, 1)

	return &Channel{
		Pitch:   pitch,
		Force:   force,
		Panning: panning,
		Streams: make(map[string]*automation.LinearControls),
	}
}

// Enabled reports whether the general-events enabled stack currently
// permits non-general events to apply (an unmatched "if false" suppresses
// everything until the matching "else" or "end if").
func (c *Channel) Enabled() bool {
	for _, v := range c.enabledStack {
		if !v {
			return false
		}
	}
	return true
}

// PushIf pushes a new frame onto the enabled-events stack for an "if".
func (c *Channel) PushIf(cond bool) {
	c.enabledStack = append(c.enabledStack, cond)
}

// Else flips the top frame of the enabled-events stack.
func (c *Channel) Else() {
	if n := len(c.enabledStack); n > 0 {
		c.enabledStack[n-1] = !c.enabledStack[n-1]
	}
}

// EndIf pops the top frame of the enabled-events stack.
func (c *Channel) EndIf() {
	if n := len(c.enabledStack); n > 0 {
		c.enabledStack = c.enabledStack[:n-1]
	}
}

// ForegroundVoices returns the voices currently playing this channel's
// held note.
func (c *Channel) ForegroundVoices() []*voice.Voice { return c.foreground }

// SetForegroundVoices replaces the channel's foreground voice group,
// e.g. immediately after a note-on allocation.
func (c *Channel) SetForegroundVoices(vs []*voice.Voice) { c.foreground = vs }

// ReleaseForeground moves the channel's current foreground voices to the
// background (note-off) and clears the foreground slot.
func (c *Channel) ReleaseForeground(pool *voice.Pool) {
	for _, v := range c.foreground {
		pool.Release(v)
		c.background = append(c.background, v.GroupID)
	}
	c.foreground = nil
}

// BackgroundGroupIDs returns the group ids of voices released to BG by
// this channel and not yet reclaimed by the pool.
func (c *Channel) BackgroundGroupIDs() []uint64 { return c.background }

// Stream returns (creating at 0 if absent) the named continuous stream a
// Stream processor reads from.
func (c *Channel) Stream(name string) *automation.LinearControls {
	s, ok := c.Streams[name]
	if !ok {
		s = automation.NewLinearControls(0)
		s.SetRange(-1, 1)
		c.Streams[name] = s
	}
	return s
}

// ApplyNoteOn sets the channel's starting pitch and force for a fresh
// note, honoring the carry flags (a carried parameter keeps its previous
// value instead of resetting).
func (c *Channel) ApplyNoteOn(pitchCents float64) {
	if !c.CarryPitch {
		c.Pitch.Slider().SetValue(pitchCents)
	}
	if !c.CarryForce {
		c.Force.Slider().SetValue(0)
	}
}
