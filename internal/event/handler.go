package event

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/kunquat-go/synthcore/internal/pattern"
	"github.com/kunquat-go/synthcore/internal/voice"
)

// AudioUnit is the narrow view of an audio unit a note-on/note-off needs:
// how many voices (one per processor) a note requires, and how to
// initialize each processor's per-voice state. Implemented by whatever
// owns the device graph (internal/player), kept here as an interface so
// event has no import-time dependency on graph or the module loader.
type AudioUnit interface {
	ProcessorCount() int
	InitVoice(procIndex int, v *voice.Voice)
}

// AudioUnitTable resolves a channel's current au-input index to an
// AudioUnit.
type AudioUnitTable interface {
	Lookup(index int) (AudioUnit, bool)
}

// Context is the mutable state one Dispatch call threads through: which
// channel the trigger's column maps to, the full channel set (binds may
// target a different channel), the shared voice pool, the au-input
// table, and Master. Cheap to copy by value; WithChannel returns a copy
// pointed at a different channel index.
type Context struct {
	Master       *Master
	Channels     []*Channel
	ChannelIndex int
	Pool         *voice.Pool
	AUTable      AudioUnitTable
	Binds        *BindTable
}

// Channel returns the channel this context currently targets.
func (c Context) Channel() *Channel { return c.Channels[c.ChannelIndex] }

// WithChannel returns a copy of c targeting a different channel index.
func (c Context) WithChannel(idx int) Context {
	c.ChannelIndex = idx
	return c
}

// Handler applies one event's effect.
type Handler interface {
	Apply(ctx Context, arg pattern.Arg) error
}

type registration struct {
	group   Group
	arg     pattern.ArgType
	handler Handler
}

// Dispatcher routes triggers to registered Handlers by event name,
// enforcing the channel's enabled-events stack for non-general events and
// expanding binds after a successful apply. Grounded on
// internal/flow/engine.go's handler registry (RegisterHandler +
// map[string]NodeHandler + type-string dispatch).
type Dispatcher struct {
	handlers map[string]registration
	logger   *slog.Logger
	dropped  uint64 // atomic; unknown-name or mismatched-arg triggers
}

// NewDispatcher constructs a Dispatcher with every builtin event name
// registered to its handler.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string]registration),
		logger:   logger.With("subsystem", "event-dispatcher"),
	}
	d.registerBuiltins()
	return d
}

// Register adds or replaces the handler for name.
func (d *Dispatcher) Register(name string, group Group, arg pattern.ArgType, h Handler) {
	d.handlers[name] = registration{group: group, arg: arg, handler: h}
}

// RegisterStream registers the four event names (set, slide, oscillate
// speed, oscillate depth) for a module-declared named stream.
func (d *Dispatcher) RegisterStream(name string) {
	d.Register(name+"/set", GroupAu, pattern.ArgFloat, &streamSetHandler{name: name})
	d.Register(name+"/slide", GroupAu, pattern.ArgFloat, &streamSlideHandler{name: name})
	d.Register(name+"/osc_speed", GroupAu, pattern.ArgFloat, &streamOscSpeedHandler{name: name})
	d.Register(name+"/osc_depth", GroupAu, pattern.ArgFloat, &streamOscDepthHandler{name: name})
}

// Dispatch applies tr against ctx, then expands any matching binds.
// Unknown event names and argument-type mismatches are dropped and
// logged rather than returned as an error, matching the render path's
// defensive, non-fatal error policy.
func (d *Dispatcher) Dispatch(ctx Context, tr pattern.Trigger) error {
	return d.dispatchAt(ctx, tr, 0)
}

func (d *Dispatcher) dispatchAt(ctx Context, tr pattern.Trigger, depth int) error {
	reg, ok := d.handlers[tr.Name]
	if !ok {
		d.logger.Warn("dropping unrecognized event", "name", tr.Name)
		atomic.AddUint64(&d.dropped, 1)
		return nil
	}
	if reg.group != GroupGeneral && !ctx.Channel().Enabled() {
		return nil
	}
	if reg.arg != pattern.ArgNone && tr.Arg.Type != reg.arg {
		d.logger.Warn("dropping event with mismatched argument type",
			"name", tr.Name, "want", reg.arg, "got", tr.Arg.Type)
		atomic.AddUint64(&d.dropped, 1)
		return nil
	}

	if err := reg.handler.Apply(ctx, tr.Arg); err != nil {
		return fmt.Errorf("event %q: %w", tr.Name, err)
	}

	if depth >= maxBindDepth {
		return nil
	}
	for _, follow := range ctx.Binds.Matches(tr.Name, tr.Arg) {
		followCtx := ctx
		if follow.TargetChannel >= 0 {
			followCtx = ctx.WithChannel(follow.TargetChannel)
		}
		arg := tr.Arg
		if follow.Arg != nil {
			arg = follow.Arg(tr.Arg)
		}
		followTr := pattern.Trigger{Pos: tr.Pos, Name: follow.EventName, Arg: arg}
		if err := d.dispatchAt(followCtx, followTr, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// DroppedCount returns the number of triggers dropped so far for an
// unrecognized name or a mismatched argument type, for
// internal/metrics.RenderProvider.
func (d *Dispatcher) DroppedCount() uint64 {
	return atomic.LoadUint64(&d.dropped)
}

func (d *Dispatcher) registerBuiltins() {
	for name, info := range builtinNames {
		d.handlers[name] = registration{group: info.group, arg: info.arg, handler: builtinHandlers[name]}
	}
}
