package pattern

import (
	"testing"

	"github.com/kunquat-go/synthcore/internal/tstamp"
)

type fakeSource struct {
	patterns map[tstamp.PatInstRef]*Pattern
}

func (s *fakeSource) Pattern(ref tstamp.PatInstRef) (*Pattern, bool) {
	p, ok := s.patterns[ref]
	return p, ok
}

func TestColumnInsertKeepsSortedAndStableTies(t *testing.T) {
	c := NewColumn()
	c.Insert(Trigger{Pos: tstamp.New(1, 0), Name: "second-at-1"})
	c.Insert(Trigger{Pos: tstamp.New(0, 0), Name: "at-0"})
	c.Insert(Trigger{Pos: tstamp.New(1, 0), Name: "first-at-1"})

	rows := c.At(tstamp.New(1, 0))
	if len(rows) != 2 {
		t.Fatalf("len = %d, want 2", len(rows))
	}
	if rows[0].Name != "second-at-1" || rows[1].Name != "first-at-1" {
		t.Fatalf("tie order not preserved: got %v", rows)
	}
}

func TestColumnNextTriggerPos(t *testing.T) {
	c := NewColumn()
	c.Insert(Trigger{Pos: tstamp.New(2, 0), Name: "a"})
	c.Insert(Trigger{Pos: tstamp.New(5, 0), Name: "b"})

	pos, ok := c.NextTriggerPos(tstamp.New(2, 0))
	if !ok || pos.Cmp(tstamp.New(5, 0)) != 0 {
		t.Fatalf("expected next trigger at beat 5, got %v ok=%v", pos, ok)
	}

	_, ok = c.NextTriggerPos(tstamp.New(5, 0))
	if ok {
		t.Fatal("expected no trigger strictly after the last one")
	}
}

func buildTwoSystemTrack() (*fakeSource, TrackList) {
	inst0 := tstamp.PatInstRef{Pattern: 0, Instance: 0}
	inst1 := tstamp.PatInstRef{Pattern: 1, Instance: 0}

	pat0 := NewPattern(tstamp.New(4, 0), 1)
	pat0.Column(0).Insert(Trigger{Pos: tstamp.New(2, 0), Name: "n+"})
	pat1 := NewPattern(tstamp.New(2, 0), 1)

	src := &fakeSource{patterns: map[tstamp.PatInstRef]*Pattern{
		inst0: pat0,
		inst1: pat1,
	}}
	tracks := TrackList{OrderList{inst0, inst1}}
	return src, tracks
}

func TestCgiterNormalAdvancesToNextSystem(t *testing.T) {
	src, tracks := buildTwoSystemTrack()
	cg, err := NewCgiterNormal(src, tracks, 0, 0)
	if err != nil {
		t.Fatalf("NewCgiterNormal: %v", err)
	}

	cg.Move(tstamp.New(4, 0)) // reaches end of pat0 (length 4)
	pos := cg.Position()
	if pos.System != 1 {
		t.Fatalf("system = %d, want 1", pos.System)
	}
	if !pos.PatPos.IsZero() {
		t.Fatalf("pat pos = %v, want zero after transition", pos.PatPos)
	}
}

func TestCgiterNormalFinishesAtTrackEnd(t *testing.T) {
	src, tracks := buildTwoSystemTrack()
	cg, _ := NewCgiterNormal(src, tracks, 0, 0)

	cg.Move(tstamp.New(4, 0)) // -> system 1
	cg.Move(tstamp.New(2, 0)) // pat1 length 2, reaches end -> no more systems
	if !cg.HasFinished() {
		t.Fatal("expected cgiter to finish after last system")
	}
}

func TestCgiterTriggersAtRowHonorsRowReturned(t *testing.T) {
	src, tracks := buildTwoSystemTrack()
	cg, _ := NewCgiterNormal(src, tracks, 0, 0)

	cg.Move(tstamp.New(2, 0)) // land exactly on the n+ trigger
	rows := cg.TriggersAtRow()
	if len(rows) != 1 || rows[0].Name != "n+" {
		t.Fatalf("rows = %v, want one n+ trigger", rows)
	}

	again := cg.TriggersAtRow()
	if again != nil {
		t.Fatal("expected nil on repeated call before ClearRowReturned")
	}

	cg.ClearRowReturned()
	rows = cg.TriggersAtRow()
	if len(rows) != 1 {
		t.Fatal("expected row to be returnable again after ClearRowReturned")
	}
}

func TestCgiterPatternPlaybackLoops(t *testing.T) {
	inst := tstamp.PatInstRef{Pattern: 0, Instance: 0}
	pat := NewPattern(tstamp.New(2, 0), 1)
	src := &fakeSource{patterns: map[tstamp.PatInstRef]*Pattern{inst: pat}}

	cg := NewCgiterPatternPlayback(src, inst, 0)
	if !cg.Position().IsPatternPlayback() {
		t.Fatal("expected pattern-playback position")
	}

	cg.Move(tstamp.New(3, 0)) // overshoots the 2-beat pattern by 1 beat
	if cg.HasFinished() {
		t.Fatal("non-zero-length pattern must loop, not finish")
	}
	if got := cg.Position().PatPos; got.Cmp(tstamp.New(1, 0)) != 0 {
		t.Fatalf("looped position = %v, want beat 1", got)
	}
}

func TestCgiterPatternPlaybackZeroLengthTerminates(t *testing.T) {
	inst := tstamp.PatInstRef{Pattern: 0, Instance: 0}
	pat := NewPattern(tstamp.Zero, 1)
	src := &fakeSource{patterns: map[tstamp.PatInstRef]*Pattern{inst: pat}}

	cg := NewCgiterPatternPlayback(src, inst, 0)
	cg.Move(tstamp.Zero)
	if !cg.HasFinished() {
		t.Fatal("expected a zero-length pattern to terminate, not loop forever")
	}
}

func TestGetLocalBPDistNarrowsToNextEvent(t *testing.T) {
	src, tracks := buildTwoSystemTrack()
	cg, _ := NewCgiterNormal(src, tracks, 0, 0)

	dist := tstamp.New(100, 0)
	cg.GetLocalBPDist(&dist)
	if dist.Cmp(tstamp.New(2, 0)) != 0 {
		t.Fatalf("dist = %v, want 2 (distance to the n+ trigger)", dist)
	}
}
