package event

import (
	"io"
	"log/slog"
	"testing"

	"github.com/kunquat-go/synthcore/internal/pattern"
	"github.com/kunquat-go/synthcore/internal/tstamp"
	"github.com/kunquat-go/synthcore/internal/voice"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAU struct {
	procs int
}

func (a *fakeAU) ProcessorCount() int { return a.procs }
func (a *fakeAU) InitVoice(procIndex int, v *voice.Voice) {
	v.State = &fakeVState{active: true}
}

type fakeVState struct{ active bool }

func (s *fakeVState) Active() bool     { return s.active }
func (s *fakeVState) SetActive(b bool) { s.active = b }

type fakeAUTable struct {
	units map[int]AudioUnit
}

func (t *fakeAUTable) Lookup(idx int) (AudioUnit, bool) {
	u, ok := t.units[idx]
	return u, ok
}

func newTestContext(t *testing.T, pool *voice.Pool) Context {
	t.Helper()
	ch := NewChannel()
	return Context{
		Master:       NewMaster(120, nil),
		Channels:     []*Channel{ch},
		ChannelIndex: 0,
		Pool:         pool,
		AUTable:      &fakeAUTable{units: map[int]AudioUnit{0: &fakeAU{procs: 2}}},
		Binds:        NewBindTable(),
	}
}

func TestNoteOnAllocatesWholeGroup(t *testing.T) {
	pool := voice.NewPool(4)
	ctx := newTestContext(t, pool)
	d := NewDispatcher(discardLogger())

	err := d.Dispatch(ctx, pattern.Trigger{Name: "n+", Arg: pattern.Arg{Type: pattern.ArgFloat, Float: 0}})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	voices := ctx.Channel().ForegroundVoices()
	if len(voices) != 2 {
		t.Fatalf("allocated %d voices, want 2", len(voices))
	}
	if voices[0].GroupID != voices[1].GroupID {
		t.Fatal("expected both voices to share one group id")
	}
}

func TestNoteOffReleasesToBackground(t *testing.T) {
	pool := voice.NewPool(4)
	ctx := newTestContext(t, pool)
	d := NewDispatcher(discardLogger())

	d.Dispatch(ctx, pattern.Trigger{Name: "n+", Arg: pattern.Arg{Type: pattern.ArgFloat}})
	d.Dispatch(ctx, pattern.Trigger{Name: "n-"})

	if len(ctx.Channel().ForegroundVoices()) != 0 {
		t.Fatal("expected no foreground voices after note-off")
	}
	if len(ctx.Channel().BackgroundGroupIDs()) != 2 {
		t.Fatalf("background group ids = %d, want 2", len(ctx.Channel().BackgroundGroupIDs()))
	}
}

func TestGeneralIfSuppressesChannelEvents(t *testing.T) {
	pool := voice.NewPool(4)
	ctx := newTestContext(t, pool)
	d := NewDispatcher(discardLogger())

	d.Dispatch(ctx, pattern.Trigger{Name: "if", Arg: pattern.Arg{Type: pattern.ArgBool, Bool: false}})
	d.Dispatch(ctx, pattern.Trigger{Name: ".f", Arg: pattern.Arg{Type: pattern.ArgFloat, Float: -6}})

	if ctx.Channel().Force.Value() != 0 {
		t.Fatalf("force = %v, want unchanged (suppressed by if false)", ctx.Channel().Force.Value())
	}

	d.Dispatch(ctx, pattern.Trigger{Name: "end if"})
	d.Dispatch(ctx, pattern.Trigger{Name: ".f", Arg: pattern.Arg{Type: pattern.ArgFloat, Float: -6}})
	if ctx.Channel().Force.Value() != -6 {
		t.Fatalf("force = %v, want -6 after end if", ctx.Channel().Force.Value())
	}
}

func TestUnknownEventIsDroppedNotFatal(t *testing.T) {
	pool := voice.NewPool(1)
	ctx := newTestContext(t, pool)
	d := NewDispatcher(discardLogger())

	if err := d.Dispatch(ctx, pattern.Trigger{Name: "nonexistent"}); err != nil {
		t.Fatalf("expected no error for unknown event, got %v", err)
	}
}

func TestMismatchedArgTypeIsDropped(t *testing.T) {
	pool := voice.NewPool(1)
	ctx := newTestContext(t, pool)
	d := NewDispatcher(discardLogger())

	err := d.Dispatch(ctx, pattern.Trigger{Name: ".f", Arg: pattern.Arg{Type: pattern.ArgBool, Bool: true}})
	if err != nil {
		t.Fatalf("expected mismatched-type drop, not an error: %v", err)
	}
	if ctx.Channel().Force.Value() != 0 {
		t.Fatal("force should be unchanged when the argument type mismatched")
	}
}

func TestBindExpandsFollowUpEvent(t *testing.T) {
	pool := voice.NewPool(1)
	ctx := newTestContext(t, pool)
	d := NewDispatcher(discardLogger())

	ctx.Binds.Add(BindRule{
		EventName: ".f",
		Follow: []FollowEvent{
			{TargetChannel: -1, EventName: ".p", Arg: func(a pattern.Arg) pattern.Arg {
				return pattern.Arg{Type: pattern.ArgFloat, Float: a.Float * 2}
			}},
		},
	})

	d.Dispatch(ctx, pattern.Trigger{Name: ".f", Arg: pattern.Arg{Type: pattern.ArgFloat, Float: -3}})

	if ctx.Channel().Force.Value() != -3 {
		t.Fatalf("force = %v, want -3", ctx.Channel().Force.Value())
	}
	if ctx.Channel().Pitch.Value() != -6 {
		t.Fatalf("pitch (via bind) = %v, want -6", ctx.Channel().Pitch.Value())
	}
}

func TestBindRecursionIsBounded(t *testing.T) {
	pool := voice.NewPool(1)
	ctx := newTestContext(t, pool)
	d := NewDispatcher(discardLogger())

	// "/t" binds to itself, which would recurse forever without a depth
	// bound. Each hop bumps the tempo by 1 so we can count how many
	// actually ran.
	ctx.Binds.Add(BindRule{
		EventName: "/t",
		Follow: []FollowEvent{
			{TargetChannel: -1, EventName: "/t", Arg: func(a pattern.Arg) pattern.Arg {
				return pattern.Arg{Type: pattern.ArgFloat, Float: a.Float + 1}
			}},
		},
	})

	err := d.Dispatch(ctx, pattern.Trigger{Name: "/t", Arg: pattern.Arg{Type: pattern.ArgFloat, Float: 100}})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	// Depth starts at 0 for the original trigger; binds fire at depths
	// 1..maxBindDepth inclusive before the bound stops expansion, so the
	// tempo should have been bumped maxBindDepth times from the initial
	// apply (the root call is depth 0 and is not itself bound-limited).
	if ctx.Master.Tempo > 100+maxBindDepth {
		t.Fatalf("tempo = %v, bind recursion exceeded the depth bound", ctx.Master.Tempo)
	}
}

func TestMasterJumpRedirectsCgiter(t *testing.T) {
	inst0 := tstamp.PatInstRef{Pattern: 0}
	inst1 := tstamp.PatInstRef{Pattern: 1}
	inst2 := tstamp.PatInstRef{Pattern: 2}
	src := &fakePatternSource{}
	tracks := pattern.TrackList{pattern.OrderList{inst0, inst1, inst2}}
	cg, err := pattern.NewCgiterNormal(src, tracks, 0, 0)
	if err != nil {
		t.Fatalf("NewCgiterNormal: %v", err)
	}

	pool := voice.NewPool(1)
	ctx := newTestContext(t, pool)
	ctx.Master.Cgiters = []*pattern.Cgiter{cg}
	d := NewDispatcher(discardLogger())

	err = d.Dispatch(ctx, pattern.Trigger{Name: "/j", Arg: pattern.Arg{Type: pattern.ArgInt, Int: 2}})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if cg.Position().System != 2 {
		t.Fatalf("system = %d, want 2 after jump", cg.Position().System)
	}
}

type fakePatternSource struct{}

func (fakePatternSource) Pattern(ref tstamp.PatInstRef) (*pattern.Pattern, bool) {
	return pattern.NewPattern(tstamp.New(4, 0), 1), true
}
