package event

import (
	"github.com/kunquat-go/synthcore/internal/pattern"
	"github.com/kunquat-go/synthcore/internal/tstamp"
	"github.com/kunquat-go/synthcore/internal/voice"
)

// defaultStreamSlideLength is the slide duration used by the one-argument
// "<stream>/slide" event. A richer composite argument (target + length)
// would need a second Arg field; this keeps the event schema uniform at
// the cost of a fixed slide length for streams specifically.
var defaultStreamSlideLength = tstamp.New(1, 0)

// builtinHandlers maps each name in builtinNames to its Handler. Kept as
// a separate table from the name/group/arg metadata in names.go so the
// two can be read side by side.
var builtinHandlers = map[string]Handler{
	"if":     generalIf{},
	"else":   generalElse{},
	"end if": generalEndIf{},

	"c.debug": controlDebug{},

	"/t": masterSetTempo{},
	"/j": masterJump{},
	"/p": masterPatternDelay{},
	"/m": masterSetMode{},

	"n+": channelNoteOn{},
	"n-": channelNoteOff{},
	".f": channelSetForce{},
	".p": channelSetPitch{},
	".o": channelSetPanning{},
	"Cf": channelCarryForce{},
	"Cp": channelCarryPitch{},

	".a": auSetInput{},
	".x": auSetExpression{},
	".h": auSetHit{},
}

type generalIf struct{}

func (generalIf) Apply(ctx Context, arg pattern.Arg) error {
	ctx.Channel().PushIf(arg.Bool)
	return nil
}

type generalElse struct{}

func (generalElse) Apply(ctx Context, _ pattern.Arg) error {
	ctx.Channel().Else()
	return nil
}

type generalEndIf struct{}

func (generalEndIf) Apply(ctx Context, _ pattern.Arg) error {
	ctx.Channel().EndIf()
	return nil
}

// controlDebug is a no-op placeholder for the Control group (global,
// non-musical events such as tracing); it exists so the group has at
// least one registered name to dispatch through.
type controlDebug struct{}

func (controlDebug) Apply(Context, pattern.Arg) error { return nil }

type masterSetTempo struct{}

func (masterSetTempo) Apply(ctx Context, arg pattern.Arg) error {
	if arg.Float > 0 {
		ctx.Master.Tempo = arg.Float
	}
	return nil
}

type masterJump struct{}

func (masterJump) Apply(ctx Context, arg pattern.Arg) error {
	system := int(arg.Int)
	for _, cg := range ctx.Master.Cgiters {
		_ = cg.JumpToSystem(system) // invalid targets are dropped per-cgiter, not fatal
	}
	ctx.Master.jumpCount++
	return nil
}

type masterPatternDelay struct{}

func (masterPatternDelay) Apply(ctx Context, arg pattern.Arg) error {
	ctx.Master.PendingDelay = ctx.Master.PendingDelay.Add(arg.TstampVal)
	return nil
}

type masterSetMode struct{}

func (masterSetMode) Apply(ctx Context, arg pattern.Arg) error {
	ctx.Master.Mode = PlaybackMode(arg.Int)
	return nil
}

type channelNoteOn struct{}

func (channelNoteOn) Apply(ctx Context, arg pattern.Arg) error {
	ch := ctx.Channel()
	au, ok := ctx.AUTable.Lookup(ch.AUInput)
	if !ok {
		return nil
	}
	count := au.ProcessorCount()
	if count == 0 {
		return nil
	}

	groupID := ctx.Pool.NewGroupID()
	voices := make([]*voice.Voice, 0, count)
	for i := 0; i < count; i++ {
		v := ctx.Pool.GetVoice(groupID)
		if v == nil {
			break // pool exhausted or size 0: note-on silently drops
		}
		au.InitVoice(i, v)
		voices = append(voices, v)
	}
	ch.SetForegroundVoices(voices)
	ch.ApplyNoteOn(arg.Float)
	return nil
}

type channelNoteOff struct{}

func (channelNoteOff) Apply(ctx Context, _ pattern.Arg) error {
	ctx.Channel().ReleaseForeground(ctx.Pool)
	return nil
}

type channelSetForce struct{}

func (channelSetForce) Apply(ctx Context, arg pattern.Arg) error {
	ctx.Channel().Force.Slider().SetValue(arg.Float)
	return nil
}

type channelSetPitch struct{}

func (channelSetPitch) Apply(ctx Context, arg pattern.Arg) error {
	ctx.Channel().Pitch.Slider().SetValue(arg.Float)
	return nil
}

type channelSetPanning struct{}

func (channelSetPanning) Apply(ctx Context, arg pattern.Arg) error {
	ctx.Channel().Panning.Slider().SetValue(arg.Float)
	return nil
}

type channelCarryForce struct{}

func (channelCarryForce) Apply(ctx Context, arg pattern.Arg) error {
	ctx.Channel().CarryForce = arg.Bool
	return nil
}

type channelCarryPitch struct{}

func (channelCarryPitch) Apply(ctx Context, arg pattern.Arg) error {
	ctx.Channel().CarryPitch = arg.Bool
	return nil
}

type auSetInput struct{}

func (auSetInput) Apply(ctx Context, arg pattern.Arg) error {
	ctx.Channel().AUInput = int(arg.Int)
	return nil
}

type auSetExpression struct{}

func (auSetExpression) Apply(ctx Context, arg pattern.Arg) error {
	ctx.Channel().ExpressionIdx = int(arg.Int)
	return nil
}

type auSetHit struct{}

func (auSetHit) Apply(ctx Context, arg pattern.Arg) error {
	ctx.Channel().HitIdx = int(arg.Int)
	return nil
}

type streamSetHandler struct{ name string }

func (h *streamSetHandler) Apply(ctx Context, arg pattern.Arg) error {
	ctx.Channel().Stream(h.name).Slider().SetValue(arg.Float)
	return nil
}

type streamSlideHandler struct{ name string }

func (h *streamSlideHandler) Apply(ctx Context, arg pattern.Arg) error {
	ctx.Channel().Stream(h.name).Slider().SlideTarget(arg.Float, defaultStreamSlideLength)
	return nil
}

type streamOscSpeedHandler struct{ name string }

func (h *streamOscSpeedHandler) Apply(ctx Context, arg pattern.Arg) error {
	ctx.Channel().Stream(h.name).LFO().SpeedSlider().SetValue(arg.Float)
	ctx.Channel().Stream(h.name).LFO().Enable(true)
	return nil
}

type streamOscDepthHandler struct{ name string }

func (h *streamOscDepthHandler) Apply(ctx Context, arg pattern.Arg) error {
	ctx.Channel().Stream(h.name).LFO().DepthSlider().SetValue(arg.Float)
	ctx.Channel().Stream(h.name).LFO().Enable(true)
	return nil
}
