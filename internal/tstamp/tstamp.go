// Package tstamp implements Kunquat's fixed-point musical time value and
// the small position/reference types built on top of it.
package tstamp

import "fmt"

// Beat is the fractional-beat denominator. One musical beat is divided into
// this many indivisible fractional units, matching the original engine's
// fixed-point resolution.
const Beat int32 = 882000

// Tstamp is a total-ordered fixed-point musical timestamp: an integer beat
// count plus a fractional-beat remainder in [0, Beat).
type Tstamp struct {
	Beats int64
	Rem   int32
}

// Zero is the additive identity.
var Zero = Tstamp{}

// New builds a Tstamp, normalizing a remainder outside [0, Beat).
func New(beats int64, rem int32) Tstamp {
	return normalize(beats, rem)
}

func normalize(beats int64, rem int32) Tstamp {
	for rem < 0 {
		rem += Beat
		beats--
	}
	for rem >= Beat {
		rem -= Beat
		beats++
	}
	return Tstamp{Beats: beats, Rem: rem}
}

// Add returns t + o.
func (t Tstamp) Add(o Tstamp) Tstamp {
	return normalize(t.Beats+o.Beats, t.Rem+o.Rem)
}

// Sub returns t - o.
func (t Tstamp) Sub(o Tstamp) Tstamp {
	return normalize(t.Beats-o.Beats, t.Rem-o.Rem)
}

// Cmp returns -1, 0 or 1 as t is less than, equal to, or greater than o.
func (t Tstamp) Cmp(o Tstamp) int {
	switch {
	case t.Beats < o.Beats:
		return -1
	case t.Beats > o.Beats:
		return 1
	case t.Rem < o.Rem:
		return -1
	case t.Rem > o.Rem:
		return 1
	default:
		return 0
	}
}

// Less reports whether t < o.
func (t Tstamp) Less(o Tstamp) bool { return t.Cmp(o) < 0 }

// LessEqual reports whether t <= o.
func (t Tstamp) LessEqual(o Tstamp) bool { return t.Cmp(o) <= 0 }

// IsZero reports whether t is exactly zero.
func (t Tstamp) IsZero() bool { return t.Beats == 0 && t.Rem == 0 }

// Min returns the lesser of t and o.
func Min(t, o Tstamp) Tstamp {
	if o.Less(t) {
		return o
	}
	return t
}

// ToFrames converts the timestamp to a frame count at the given tempo
// (beats per minute) and audio rate (frames per second). Fractional frames
// are truncated, matching the original engine's sample-accurate scheduler
// (it always schedules on an integer frame boundary).
func ToFrames(t Tstamp, tempo float64, audioRate int32) int64 {
	if tempo <= 0 {
		return 0
	}
	totalBeats := float64(t.Beats) + float64(t.Rem)/float64(Beat)
	seconds := totalBeats * 60.0 / tempo
	return int64(seconds * float64(audioRate))
}

// FromFrames converts a frame count back to a Tstamp at the given tempo and
// audio rate. Used by the scheduler to re-derive "distance so far" after
// clamping a render chunk to a buffer boundary.
func FromFrames(frames int64, tempo float64, audioRate int32) Tstamp {
	if audioRate <= 0 {
		return Zero
	}
	seconds := float64(frames) / float64(audioRate)
	totalBeats := seconds * tempo / 60.0
	beats := int64(totalBeats)
	rem := int32((totalBeats - float64(beats)) * float64(Beat))
	return normalize(beats, rem)
}

func (t Tstamp) String() string {
	return fmt.Sprintf("%d+%d/%d", t.Beats, t.Rem, Beat)
}

// PatInstRef addresses one playable instance of a pattern.
type PatInstRef struct {
	Pattern  int32
	Instance int32
}

func (r PatInstRef) String() string {
	return fmt.Sprintf("pat_%03d_inst_%03d", r.Pattern, r.Instance)
}

// Position locates playback within a song. Track and System are -1 in the
// "pattern-playback" variant, which loops a single pattern instance outside
// any song structure.
type Position struct {
	Track   int32
	System  int32
	PatPos  Tstamp
	PatInst PatInstRef
}

// IsPatternPlayback reports whether this position lacks track/system
// context (the Cgiter is looping a single pattern instance directly).
func (p Position) IsPatternPlayback() bool {
	return p.Track < 0 && p.System < 0
}
