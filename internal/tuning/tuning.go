// Package tuning implements the microtonal pitch lookup table (spec §4.10,
// component K): an ordered list of notes within one octave, a reference
// note/pitch pair, and retuning against a fixed note. Grounded on the
// teacher's internal/media/mixer.go init(), which builds the G.711
// u-law/a-law decode tables once at startup rather than computing the
// companding formula per sample; here the per-note Hz factor table is
// built once at construction and after every retune, not per query.
package tuning

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// NotesMax bounds the number of notes a table may define within one
// octave, matching the original engine's KQT_TUNING_TABLE_NOTES.
const NotesMax = 176

// defaultOctaveRatio is the ratio of one octave step when the table does
// not declare a custom one (2/1, standard 12-tone-equal-tempered octave).
const defaultOctaveRatio = 2.0

var (
	// ErrTooManyNotes is returned by AddNote once NotesMax is reached.
	ErrTooManyNotes = errors.New("tuning: too many notes")
	// ErrNoteOutOfRange is returned for a note index outside [0, count).
	ErrNoteOutOfRange = errors.New("tuning: note index out of range")
	// ErrEmptyTable is returned by any Hz query on a table with no notes.
	ErrEmptyTable = errors.New("tuning: table has no notes")
)

// Table is one microtonal tuning table: an ascending list of note offsets
// (in cents from the start of the octave), an octave ratio, and a
// reference note/pitch pair fixing the table's absolute pitch.
type Table struct {
	centsOffsets []float64 // ascending, centsOffsets[0] == 0
	octaveRatio  float64
	refNote      int
	refPitch     float64 // Hz

	factors []float64 // precomputed Hz-per-note-at-octave-0 multiplier, rebuilt by build()
}

// New constructs a table with a single note at offset 0 (so it is never
// empty), the standard 2/1 octave ratio, reference note 0, and the given
// reference pitch in Hz.
func New(refPitch float64) *Table {
	t := &Table{
		centsOffsets: []float64{0},
		octaveRatio:  defaultOctaveRatio,
		refNote:      0,
		refPitch:     refPitch,
	}
	t.build()
	return t
}

// NoteCount returns the number of notes defined in one octave.
func (t *Table) NoteCount() int { return len(t.centsOffsets) }

// SetOctaveRatio overrides the default 2/1 octave ratio (e.g. for a
// stretched-octave or non-octave-repeating tuning) and rebuilds the
// factor table.
func (t *Table) SetOctaveRatio(ratio float64) {
	t.octaveRatio = ratio
	t.build()
}

// AddNote appends a note at the given cents offset from the start of the
// octave (must be strictly greater than the previous note's offset, and
// less than the octave width implied by octaveRatio). Rebuilds the
// factor table.
func (t *Table) AddNote(cents float64) error {
	if len(t.centsOffsets) >= NotesMax {
		return ErrTooManyNotes
	}
	last := t.centsOffsets[len(t.centsOffsets)-1]
	if cents <= last {
		return fmt.Errorf("tuning: note offset %v must exceed previous offset %v", cents, last)
	}
	octaveWidth := 1200 * math.Log2(t.octaveRatio)
	if cents >= octaveWidth {
		return fmt.Errorf("tuning: note offset %v must be less than the octave width %v", cents, octaveWidth)
	}
	t.centsOffsets = append(t.centsOffsets, cents)
	t.build()
	return nil
}

// RefNote returns the current reference note index.
func (t *Table) RefNote() int { return t.refNote }

// RefPitch returns the current reference pitch in Hz.
func (t *Table) RefPitch() float64 { return t.refPitch }

// build precomputes, for every note index, the Hz the note would sound at
// in octave 0, given the current reference note/pitch. Called once at
// construction and after every structural or retuning change so queries
// stay O(1).
func (t *Table) build() {
	t.factors = make([]float64, len(t.centsOffsets))
	refCents := t.centsOffsets[t.refNote%len(t.centsOffsets)]
	for i, cents := range t.centsOffsets {
		t.factors[i] = t.refPitch * math.Exp2((cents-refCents)/1200)
	}
}

// NoteToHz converts (note index, octave) into Hz, where octave 0 is the
// octave containing the reference note.
func (t *Table) NoteToHz(noteIndex, octave int) (float64, error) {
	if len(t.factors) == 0 {
		return 0, ErrEmptyTable
	}
	if noteIndex < 0 || noteIndex >= len(t.factors) {
		return 0, ErrNoteOutOfRange
	}
	return t.factors[noteIndex] * math.Pow(t.octaveRatio, float64(octave)), nil
}

// CentsToHz converts an absolute cents value (relative to the reference
// note at octave 0) into Hz, independent of the note grid — used for
// continuous pitch automation (spec §4.5 "Pitch buffers carry frequency
// in Hz, converted from cents").
func (t *Table) CentsToHz(cents float64) float64 {
	return t.refPitch * math.Exp2(cents/1200)
}

// HzToNearestNote is the inverse lookup used by hit-map and note-map
// samples: given a frequency, returns the (note index, octave) whose
// pitch is closest to it.
func (t *Table) HzToNearestNote(hz float64) (noteIndex, octave int, err error) {
	if len(t.factors) == 0 || hz <= 0 {
		return 0, 0, ErrEmptyTable
	}

	octaveWidth := 1200 * math.Log2(t.octaveRatio)
	refCents := t.centsOffsets[t.refNote%len(t.centsOffsets)]
	cents := 1200 * math.Log2(hz/t.refPitch)
	absoluteCents := cents + refCents

	octave = int(math.Floor(absoluteCents / octaveWidth))
	withinOctave := absoluteCents - float64(octave)*octaveWidth

	idx := sort.SearchFloat64s(t.centsOffsets, withinOctave)
	best := idx
	bestDist := math.MaxFloat64
	for _, cand := range []int{idx - 1, idx, idx + 1} {
		if cand < 0 || cand >= len(t.centsOffsets) {
			continue
		}
		d := math.Abs(t.centsOffsets[cand] - withinOctave)
		if d < bestDist {
			bestDist = d
			best = cand
		}
	}
	return best, octave, nil
}

// Retune shifts the reference note to newRefNote while holding the pitch
// of fixedPoint (a note index in octave 0) constant, then rebuilds the
// factor table. This lets a module retarget its reference note (e.g. for
// a modulating scale change) without an audible pitch jump at the note
// the player is sustaining.
//
// retune(new_ref=old_ref, fixed_point=anything) is a no-op: it rebuilds
// the same factor table from the same reference, satisfying the
// idempotence property in spec §8.
func (t *Table) Retune(newRefNote, fixedPoint int) error {
	if len(t.factors) == 0 {
		return ErrEmptyTable
	}
	if newRefNote < 0 || newRefNote >= len(t.centsOffsets) {
		return ErrNoteOutOfRange
	}
	if fixedPoint < 0 || fixedPoint >= len(t.centsOffsets) {
		return ErrNoteOutOfRange
	}

	fixedHzBefore := t.factors[fixedPoint]

	refCentsNew := t.centsOffsets[newRefNote]
	// After the move, fixedPoint sounds at
	// newRefPitch * 2^((fixedCents-refCentsNew)/1200), which must still
	// equal fixedHzBefore, so solve for the new reference pitch.
	fixedCents := t.centsOffsets[fixedPoint]
	newRefPitch := fixedHzBefore / math.Exp2((fixedCents-refCentsNew)/1200)

	t.refNote = newRefNote
	t.refPitch = newRefPitch
	t.build()
	return nil
}

// RetuneWithSource copies src's note grid, octave ratio, and reference
// pitch into t, then applies Retune(newRefNote, fixedPoint) on top —
// "copies initial parameters from another table then applies retuning"
// per spec §4.10.
func (t *Table) RetuneWithSource(src *Table, newRefNote, fixedPoint int) error {
	t.centsOffsets = append([]float64(nil), src.centsOffsets...)
	t.octaveRatio = src.octaveRatio
	t.refNote = src.refNote
	t.refPitch = src.refPitch
	t.build()
	return t.Retune(newRefNote, fixedPoint)
}
