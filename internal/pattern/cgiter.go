package pattern

import (
	"errors"

	"github.com/kunquat-go/synthcore/internal/tstamp"
)

// ErrEmptyTrack is returned when a normal-mode Cgiter is started on a
// track with no systems in its order list.
var ErrEmptyTrack = errors.New("pattern: track has no systems")

// Cgiter is the playback cursor over one channel's column: it tracks a
// Position and yields trigger rows at the current position exactly once
// each. It operates in one of two modes, fixed at construction: normal
// (follows a TrackList) or pattern-playback (loops one instance).
type Cgiter struct {
	source Source
	tracks TrackList
	column int

	pos         tstamp.Position
	rowReturned bool
	hasFinished bool
}

// NewCgiterNormal constructs a Cgiter that follows tracks[track] from its
// first system, reading column `column` of each pattern instance visited.
func NewCgiterNormal(source Source, tracks TrackList, track, column int) (*Cgiter, error) {
	if track < 0 || track >= len(tracks) || len(tracks[track]) == 0 {
		return nil, ErrEmptyTrack
	}
	return &Cgiter{
		source: source,
		tracks: tracks,
		column: column,
		pos: tstamp.Position{
			Track:   int32(track),
			System:  0,
			PatInst: tracks[track][0],
		},
	}, nil
}

// NewCgiterPatternPlayback constructs a Cgiter that loops inst directly,
// outside any song structure (Track and System are -1, per
// Position.IsPatternPlayback).
func NewCgiterPatternPlayback(source Source, inst tstamp.PatInstRef, column int) *Cgiter {
	return &Cgiter{
		source: source,
		column: column,
		pos: tstamp.Position{
			Track:   -1,
			System:  -1,
			PatInst: inst,
		},
	}
}

// Position returns the cursor's current position.
func (c *Cgiter) Position() tstamp.Position { return c.pos }

// HasFinished reports whether playback has exhausted the track list
// (normal mode only; pattern-playback loops forever unless its pattern
// has zero length).
func (c *Cgiter) HasFinished() bool { return c.hasFinished }

// ClearRowReturned lets the next Move re-arm row dispatch at the new
// position. Called by the Player after dispatching the current row's
// triggers (spec §4.9 step h).
func (c *Cgiter) ClearRowReturned() { c.rowReturned = false }

func (c *Cgiter) currentPattern() (*Pattern, bool) {
	return c.source.Pattern(c.pos.PatInst)
}

// TriggersAtRow returns the triggers at the cursor's exact current
// position in its column, or nil if they were already returned for this
// position (the row_returned guard) or the pattern is unresolvable.
func (c *Cgiter) TriggersAtRow() []Trigger {
	if c.rowReturned || c.hasFinished {
		return nil
	}
	pat, ok := c.currentPattern()
	if !ok {
		return nil
	}
	col := pat.Column(c.column)
	if col == nil {
		return nil
	}
	rows := col.At(c.pos.PatPos)
	if len(rows) > 0 {
		c.rowReturned = true
	}
	return rows
}

// GetLocalBPDist narrows dist (via min-update) to the Tstamp distance to
// the next event in this column, or to end-of-pattern if no event is
// closer.
func (c *Cgiter) GetLocalBPDist(dist *tstamp.Tstamp) {
	if c.hasFinished {
		return
	}
	pat, ok := c.currentPattern()
	if !ok {
		return
	}
	candidate := pat.Length.Sub(c.pos.PatPos)
	if col := pat.Column(c.column); col != nil {
		if next, ok := col.NextTriggerPos(c.pos.PatPos); ok {
			if d := next.Sub(c.pos.PatPos); d.Less(candidate) {
				candidate = d
			}
		}
	}
	if candidate.Less(*dist) {
		*dist = candidate
	}
}

// GetGlobalBPDist narrows dist (via min-update) to the Tstamp distance to
// the next row, in any column of the current pattern, whose trigger name
// satisfies isBreakpoint (a global breakpoint: tempo change, jump,
// pattern delay, and similar module-wide ordering events).
func (c *Cgiter) GetGlobalBPDist(isBreakpoint func(name string) bool, dist *tstamp.Tstamp) {
	if c.hasFinished {
		return
	}
	pat, ok := c.currentPattern()
	if !ok {
		return
	}
	candidate := pat.Length.Sub(c.pos.PatPos)
	for i := 0; i < pat.ColumnCount(); i++ {
		col := pat.Column(i)
		if next, ok := col.nextBreakpointPos(c.pos.PatPos, isBreakpoint); ok {
			if d := next.Sub(c.pos.PatPos); d.Less(candidate) {
				candidate = d
			}
		}
	}
	if candidate.Less(*dist) {
		*dist = candidate
	}
}

// Move advances the cursor's pattern position by dist. Reaching or
// exceeding the pattern's length triggers a transition: the next system
// in normal mode, or a loop-back (or termination, for a zero-length
// pattern) in pattern-playback mode.
//
// Move assumes dist never overshoots end-of-pattern by more than one
// pattern length, which holds as long as the caller always derives dist
// from GetLocalBPDist/GetGlobalBPDist as the scheduler does; it is not a
// general-purpose seek.
func (c *Cgiter) Move(dist tstamp.Tstamp) {
	if c.hasFinished {
		return
	}
	c.pos.PatPos = c.pos.PatPos.Add(dist)

	pat, ok := c.currentPattern()
	if !ok {
		c.hasFinished = true
		return
	}
	if pat.Length.LessEqual(c.pos.PatPos) {
		c.advance(pat.Length)
	}
}

// JumpToSystem redirects a normal-mode cursor to a different system
// (order-list index) within its track, used by a jump event. Invalid in
// pattern-playback mode, where there is no order list to index into.
func (c *Cgiter) JumpToSystem(system int) error {
	if c.pos.IsPatternPlayback() {
		return errors.New("pattern: cannot jump in pattern-playback mode")
	}
	order := c.tracks[c.pos.Track]
	if system < 0 || system >= len(order) {
		return errors.New("pattern: jump target system out of range")
	}
	c.pos.System = int32(system)
	c.pos.PatInst = order[system]
	c.pos.PatPos = tstamp.Zero
	c.rowReturned = false
	c.hasFinished = false
	return nil
}

func (c *Cgiter) advance(patLength tstamp.Tstamp) {
	if c.pos.IsPatternPlayback() {
		if patLength.IsZero() {
			c.pos.PatPos = tstamp.Zero
			c.hasFinished = true
			return
		}
		for patLength.LessEqual(c.pos.PatPos) {
			c.pos.PatPos = c.pos.PatPos.Sub(patLength)
		}
		c.rowReturned = false
		return
	}

	order := c.tracks[c.pos.Track]
	next := int(c.pos.System) + 1
	if next >= len(order) {
		c.hasFinished = true
		return
	}
	c.pos.System = int32(next)
	c.pos.PatInst = order[next]
	c.pos.PatPos = tstamp.Zero
	c.rowReturned = false
}
