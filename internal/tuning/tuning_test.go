package tuning

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestNewDefaultsToOneNoteAtRefPitch(t *testing.T) {
	tb := New(440)
	if tb.NoteCount() != 1 {
		t.Fatalf("NoteCount() = %d, want 1", tb.NoteCount())
	}
	hz, err := tb.NoteToHz(0, 0)
	if err != nil {
		t.Fatalf("NoteToHz: %v", err)
	}
	if !almostEqual(hz, 440, 1e-9) {
		t.Errorf("NoteToHz(0,0) = %v, want 440", hz)
	}
}

func TestNoteToHzOctaves(t *testing.T) {
	tb := New(440)
	hzUp, err := tb.NoteToHz(0, 1)
	if err != nil {
		t.Fatalf("NoteToHz: %v", err)
	}
	if !almostEqual(hzUp, 880, 1e-9) {
		t.Errorf("NoteToHz(0,1) = %v, want 880", hzUp)
	}

	hzDown, err := tb.NoteToHz(0, -1)
	if err != nil {
		t.Fatalf("NoteToHz: %v", err)
	}
	if !almostEqual(hzDown, 220, 1e-9) {
		t.Errorf("NoteToHz(0,-1) = %v, want 220", hzDown)
	}
}

func TestAddNoteRequiresAscendingOffsets(t *testing.T) {
	tb := New(440)
	if err := tb.AddNote(100); err != nil {
		t.Fatalf("AddNote(100): %v", err)
	}
	if err := tb.AddNote(100); err == nil {
		t.Error("AddNote(100) again: expected error for non-ascending offset")
	}
	if err := tb.AddNote(50); err == nil {
		t.Error("AddNote(50): expected error for offset below previous note")
	}
}

func TestAddNoteRejectsOffsetAtOrPastOctaveWidth(t *testing.T) {
	tb := New(440)
	if err := tb.AddNote(1200); err == nil {
		t.Error("AddNote(1200): expected error, offset must be < octave width")
	}
}

func TestCentsToHz(t *testing.T) {
	tb := New(440)
	if !almostEqual(tb.CentsToHz(1200), 880, 1e-9) {
		t.Errorf("CentsToHz(1200) = %v, want 880", tb.CentsToHz(1200))
	}
	if !almostEqual(tb.CentsToHz(0), 440, 1e-9) {
		t.Errorf("CentsToHz(0) = %v, want 440", tb.CentsToHz(0))
	}
}

func TestHzToNearestNoteRoundTrips12TET(t *testing.T) {
	tb := New(440)
	for _, cents := range []float64{100, 200, 300, 400, 500, 600, 700, 800, 900, 1000, 1100} {
		if err := tb.AddNote(cents); err != nil {
			t.Fatalf("AddNote(%v): %v", cents, err)
		}
	}

	for expectIdx, cents := range tb.centsOffsets {
		hz := tb.CentsToHz(cents)
		idx, octave, err := tb.HzToNearestNote(hz)
		if err != nil {
			t.Fatalf("HzToNearestNote(%v): %v", hz, err)
		}
		if idx != expectIdx {
			t.Errorf("HzToNearestNote(%v Hz) note = %d, want %d", hz, idx, expectIdx)
		}
		if octave != 0 {
			t.Errorf("HzToNearestNote(%v Hz) octave = %d, want 0", hz, octave)
		}
	}
}

func TestRetuneHoldsFixedPointPitch(t *testing.T) {
	tb := New(440)
	for _, cents := range []float64{100, 200, 300, 400, 500, 600, 700, 800, 900, 1000, 1100} {
		if err := tb.AddNote(cents); err != nil {
			t.Fatalf("AddNote(%v): %v", cents, err)
		}
	}

	fixedPoint := 7
	before, err := tb.NoteToHz(fixedPoint, 0)
	if err != nil {
		t.Fatalf("NoteToHz: %v", err)
	}

	if err := tb.Retune(3, fixedPoint); err != nil {
		t.Fatalf("Retune: %v", err)
	}

	after, err := tb.NoteToHz(fixedPoint, 0)
	if err != nil {
		t.Fatalf("NoteToHz: %v", err)
	}
	if !almostEqual(before, after, 1e-6) {
		t.Errorf("fixed point pitch changed across Retune: before=%v after=%v", before, after)
	}
	if tb.RefNote() != 3 {
		t.Errorf("RefNote() = %d, want 3", tb.RefNote())
	}
}

// TestRetuneNoOpWhenRefUnchanged covers the idempotence property: retuning
// to the same reference note rebuilds an identical factor table.
func TestRetuneNoOpWhenRefUnchanged(t *testing.T) {
	tb := New(440)
	for _, cents := range []float64{100, 200, 300} {
		if err := tb.AddNote(cents); err != nil {
			t.Fatalf("AddNote(%v): %v", cents, err)
		}
	}

	before := append([]float64(nil), tb.factors...)
	if err := tb.Retune(tb.RefNote(), 2); err != nil {
		t.Fatalf("Retune: %v", err)
	}
	for i, f := range tb.factors {
		if !almostEqual(f, before[i], 1e-9) {
			t.Errorf("factor[%d] changed on no-op retune: before=%v after=%v", i, before[i], f)
		}
	}
}

func TestRetuneWithSourceCopiesThenRetunes(t *testing.T) {
	src := New(432)
	for _, cents := range []float64{150, 350, 700} {
		if err := src.AddNote(cents); err != nil {
			t.Fatalf("AddNote(%v): %v", cents, err)
		}
	}

	dst := New(220)
	if err := dst.RetuneWithSource(src, 1, 0); err != nil {
		t.Fatalf("RetuneWithSource: %v", err)
	}

	if dst.NoteCount() != src.NoteCount() {
		t.Fatalf("NoteCount() = %d, want %d", dst.NoteCount(), src.NoteCount())
	}
	if dst.RefNote() != 1 {
		t.Errorf("RefNote() = %d, want 1", dst.RefNote())
	}
}

func TestNoteToHzOutOfRange(t *testing.T) {
	tb := New(440)
	if _, err := tb.NoteToHz(5, 0); err == nil {
		t.Error("NoteToHz(5,0): expected ErrNoteOutOfRange")
	}
	if _, err := tb.NoteToHz(-1, 0); err == nil {
		t.Error("NoteToHz(-1,0): expected ErrNoteOutOfRange")
	}
}

func TestTooManyNotes(t *testing.T) {
	tb := New(440)
	step := 1200.0 / (NotesMax + 1)
	var addErr error
	for i := 1; i <= NotesMax; i++ {
		addErr = tb.AddNote(step * float64(i))
		if addErr != nil {
			break
		}
	}
	if addErr == nil {
		t.Fatal("expected AddNote to eventually fail with ErrTooManyNotes")
	}
}
