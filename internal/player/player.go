// Package player implements the render loop: the scheduler that advances
// each channel's playback cursor exactly to its next event, dispatches
// that row's triggers, renders the resulting audio in sample-accurate
// chunks, and folds the per-voice instrument signal into a single mixed
// master bus. Grounded on the teacher's internal/media/mixer.go (a
// RenderFrame-style fixed-chunk loop driving G.711 state machines under
// one mutex) and internal/flow/engine.go (the step-at-a-time dispatch
// loop Play's inner scheduler generalizes from call-flow steps to
// musical trigger rows).
package player

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/kunquat-go/synthcore/internal/config"
	"github.com/kunquat-go/synthcore/internal/event"
	"github.com/kunquat-go/synthcore/internal/graph"
	"github.com/kunquat-go/synthcore/internal/pattern"
	"github.com/kunquat-go/synthcore/internal/tstamp"
	"github.com/kunquat-go/synthcore/internal/voice"
	"github.com/kunquat-go/synthcore/internal/workbuf"
)

// dcLeak is the DC blocker's leaky-integrator coefficient, chosen close
// to 1 so the high-pass corner sits well below audible bass (spec §5
// "DC blocking"): y[n] = x[n] - x[n-1] + R*y[n-1].
const dcLeak = 0.995

// Player owns one module's entire playback state: the master device
// graph, the voice pool, the event dispatcher and its Master/Channel
// state, and the per-render-call scratch and gain stages applied after
// voices are summed. Not safe for concurrent use from more than one
// goroutine at a time — like the teacher's Mixer, all state mutation
// happens under the caller's own serialization (here, one Play/Fire
// caller at a time; internal/api serializes per Handle).
type Player struct {
	cfg    *config.Config
	logger *slog.Logger

	source       pattern.Source
	tracks       pattern.TrackList
	channelCount int

	audioRate int32
	bufSize   int

	masterConns  *graph.Connections
	masterStates *graph.StateArena

	pool       *voice.Pool
	dispatcher *event.Dispatcher
	master     *event.Master
	channels   []*event.Channel
	binds      *event.BindTable
	auTable    *auTable

	limiter *rate.Limiter

	instrumentBus *workbuf.Buffer
	lastAudio     []float64

	dcX1 float64
	dcY1 float64

	mixVolume  float64 // linear gain applied to the summed signal
	forceShift float64 // additional linear gain, e.g. a global force offset converted from dB

	stopped bool

	renderCalls    uint64
	renderNanos    uint64
	framesRendered uint64
}

// New constructs a Player for a module with channelCount channels, each
// walking its own Cgiter over tracks (all sharing source for pattern
// lookup). The master graph is a single root device: audio-unit voice
// rendering happens off-graph into the instrument bus (see audiounit.go
// on single-processor-per-audio-unit scope),
// so root needs no input edges of its own — it exists so graph-shape
// metrics (internal/metrics.GraphProvider) have something to report and
// so a future mixed-signal master effect has somewhere to attach.
func New(cfg *config.Config, logger *slog.Logger, source pattern.Source, tracks pattern.TrackList, channelCount int) (*Player, error) {
	root := graph.NewDevice(graph.RootID, graph.KindRoot)
	root.DeclarePort(graph.PortIn, 0)

	conns, err := graph.Build(map[graph.NodeID]*graph.Device{graph.RootID: root}, nil)
	if err != nil {
		return nil, fmt.Errorf("player: building master graph: %w", err)
	}

	cgiters := make([]*pattern.Cgiter, channelCount)
	channels := make([]*event.Channel, channelCount)
	for i := range cgiters {
		cg, err := pattern.NewCgiterNormal(source, tracks, 0, i)
		if err != nil {
			return nil, fmt.Errorf("player: channel %d: %w", i, err)
		}
		cgiters[i] = cg
		channels[i] = event.NewChannel()
	}

	p := &Player{
		cfg:           cfg,
		logger:        logger.With("subsystem", "player"),
		source:        source,
		tracks:        tracks,
		channelCount:  channelCount,
		audioRate:     int32(cfg.AudioRate),
		bufSize:       cfg.AudioBufferSize,
		masterConns:   conns,
		masterStates:  graph.NewStateArena(conns, cfg.ThreadCount, cfg.AudioBufferSize),
		pool:          voice.NewPool(cfg.VoiceCount),
		dispatcher:    event.NewDispatcher(logger),
		master:        event.NewMaster(120, cgiters),
		channels:      channels,
		binds:         event.NewBindTable(),
		auTable:       newAUTable(),
		limiter:       rate.NewLimiter(rate.Limit(cfg.FireRateLimit), cfg.FireRateBurst),
		instrumentBus: workbuf.New(cfg.AudioBufferSize),
		mixVolume:     1.0,
		forceShift:    1.0,
	}
	p.pool.ReserveWorkBuffers(cfg.AudioBufferSize)
	return p, nil
}

// RegisterAudioUnit binds index (the value a channel's ".a" event
// selects via AUInput) to the processor device dev, so note-on events
// targeting that index allocate and render through dev.
func (p *Player) RegisterAudioUnit(index int, dev *graph.Device) {
	p.auTable.units[index] = &audioUnitBinding{device: dev}
}

// SetMixVolume sets the linear gain applied to the summed voice signal
// before the DC blocker (spec §5 "Mix volume").
func (p *Player) SetMixVolume(linear float64) { p.mixVolume = linear }

// SetForceShift sets an additional linear gain applied alongside
// mix-volume, modeling a module-wide force offset expressed in the same
// stage as mix-volume rather than as a separate per-sample pass.
func (p *Player) SetForceShift(linear float64) { p.forceShift = linear }

// NodeCount implements internal/metrics.GraphProvider.
func (p *Player) NodeCount() int { return p.masterConns.NodeCount() }

// ActiveCount implements internal/metrics.VoiceProvider.
func (p *Player) ActiveCount() int { return p.pool.ActiveCount() }

// Size implements internal/metrics.VoiceProvider.
func (p *Player) Size() int { return p.pool.Size() }

// RenderCallsTotal implements internal/metrics.RenderProvider.
func (p *Player) RenderCallsTotal() uint64 { return atomic.LoadUint64(&p.renderCalls) }

// RenderSecondsTotal implements internal/metrics.RenderProvider.
func (p *Player) RenderSecondsTotal() float64 {
	return float64(atomic.LoadUint64(&p.renderNanos)) / float64(time.Second)
}

// FramesRenderedTotal implements internal/metrics.RenderProvider.
func (p *Player) FramesRenderedTotal() uint64 { return atomic.LoadUint64(&p.framesRendered) }

// DroppedEventsTotal implements internal/metrics.RenderProvider.
func (p *Player) DroppedEventsTotal() uint64 { return p.dispatcher.DroppedCount() }

// Nanoseconds returns the playback position in nanoseconds implied by the
// total frames rendered so far at the configured audio rate (spec §6
// nanoseconds()) — a position in rendered audio, not a wall-clock
// timer.
func (p *Player) Nanoseconds() int64 {
	frames := atomic.LoadUint64(&p.framesRendered)
	return int64(frames) * int64(time.Second) / int64(p.audioRate)
}

// HasStopped reports whether every channel's Cgiter has exhausted its
// track (ModeStop is reached implicitly once nothing is left to play).
func (p *Player) HasStopped() bool {
	if p.stopped {
		return true
	}
	for _, cg := range p.master.Cgiters {
		if !cg.HasFinished() {
			return false
		}
	}
	return true
}

// GetAudio returns the mono PCM produced by the most recent Play call.
func (p *Player) GetAudio() []float64 { return p.lastAudio }

// Reset reinitializes playback at the start of track, discarding all
// voice and channel state. The module's note data (Source) and bindings
// are untouched; only playback position and transient automation state
// reset, matching spec §4.1's stop/start lifecycle. track < 0 selects
// pattern-playback semantics are not supported here (no Handle-level
// "fixed instance" is known to the Player); negative values are rejected.
func (p *Player) Reset(track int) error {
	cgiters := make([]*pattern.Cgiter, p.channelCount)
	for i := range cgiters {
		cg, err := pattern.NewCgiterNormal(p.source, p.tracks, track, i)
		if err != nil {
			return fmt.Errorf("player: reset to track %d: %w", track, err)
		}
		cgiters[i] = cg
	}

	p.master = event.NewMaster(p.master.Tempo, cgiters)
	p.channels = make([]*event.Channel, p.channelCount)
	for i := range p.channels {
		p.channels[i] = event.NewChannel()
	}
	p.pool.ResetAll()
	p.stopped = false
	p.lastAudio = nil
	p.dcX1, p.dcY1 = 0, 0
	return nil
}

// ResetDCBlocker clears the DC-blocking filter's history without
// affecting playback position (spec §6 reset_dc_blocker).
func (p *Player) ResetDCBlocker() {
	p.dcX1, p.dcY1 = 0, 0
}

// SetAudioRate changes the render audio rate (spec §6 set_audio_rate),
// propagating to every device's Impl (mixed-signal devices in the master
// graph and every registered audio unit's voice processor) the way the
// original engine's Device_set_audio_rate cascades across the whole
// device tree. Does not allocate new device state; buffer sizes are
// unaffected.
func (p *Player) SetAudioRate(rate int32) {
	p.audioRate = rate
	p.forEachImpl(func(impl graph.Impl) { impl.SetAudioRate(rate) })
}

// SetAudioBufferSize changes the maximum frames rendered per internal
// chunk (spec §6 set_audio_buffer_size), rebuilding every device-state
// arena at the new size (spec §3 "Device states" lifecycle: recreated on
// buffer-size change) and re-pointing the voice pool's per-voice scratch
// slab.
func (p *Player) SetAudioBufferSize(size int) {
	p.bufSize = size
	p.masterStates = graph.NewStateArena(p.masterConns, p.cfg.ThreadCount, size)
	p.instrumentBus = workbuf.New(size)
	p.pool.ReserveWorkBuffers(size)
	p.forEachImpl(func(impl graph.Impl) { impl.SetBufferSize(size) })
}

// SetThreadCount changes the number of per-thread device states available
// for parallel voice-group rendering (spec §6 set_thread_count, spec §5
// "Voice rendering parallelism"). Rebuilds the master state arena; each
// voice's own single-device arena (see voiceThreadState) is always
// single-threaded and unaffected.
func (p *Player) SetThreadCount(n int) {
	p.cfg.ThreadCount = n
	p.masterStates = graph.NewStateArena(p.masterConns, n, p.bufSize)
}

// forEachImpl calls fn on every device Impl reachable from the master
// graph plus every processor bound to a registered audio unit, covering
// both halves of the device tree a rate/buffer-size change must reach.
func (p *Player) forEachImpl(fn func(graph.Impl)) {
	for _, id := range p.masterConns.Order() {
		if dev := p.masterConns.Device(id); dev != nil && dev.Impl != nil {
			fn(dev.Impl)
		}
	}
	for _, b := range p.auTable.units {
		if b.device != nil && b.device.Impl != nil {
			fn(b.device.Impl)
		}
	}
}

// Fire applies tr to channel idx, honoring the Handle's fire rate limit
// (spec §6 "fire() admission control"): a burst exceeding FireRateBurst
// triggers over FireRateLimit/sec is dropped rather than queued, since a
// control-surface caller that floods fire() should see its own events
// dropped, not pile up latency for every later, legitimate one.
func (p *Player) Fire(ctx context.Context, channelIdx int, tr pattern.Trigger) error {
	if channelIdx < 0 || channelIdx >= len(p.channels) {
		return fmt.Errorf("player: channel %d out of range", channelIdx)
	}
	if !p.limiter.Allow() {
		p.logger.Warn("dropping fire(): rate limit exceeded", "channel", channelIdx)
		return nil
	}
	return p.dispatcher.Dispatch(p.eventContext(channelIdx), tr)
}

func (p *Player) eventContext(channelIdx int) event.Context {
	return event.Context{
		Master:       p.master,
		Channels:     p.channels,
		ChannelIndex: channelIdx,
		Pool:         p.pool,
		AUTable:      p.auTable,
		Binds:        p.binds,
	}
}

// Play renders up to nframes frames, dispatching and advancing in
// sample-accurate chunks the way the original engine's Player_work
// schedules around event boundaries (spec §4.9): each chunk is clamped
// to the nearest upcoming event in any channel (local or global
// breakpoint) and to the buffer size, so no chunk ever needs to stop
// mid-render for an event that should have applied at its start. Returns
// the number of frames actually rendered (less than nframes once every
// channel's Cgiter finishes).
func (p *Player) Play(nframes int) (int, error) {
	start := time.Now()
	rendered := 0

	for rendered < nframes && !p.HasStopped() {
		p.dispatchCurrentRow()

		chunk := p.nextChunkFrames(nframes - rendered)
		if chunk <= 0 {
			break
		}

		p.renderChunk(chunk)
		p.advance(chunk)

		rendered += chunk
	}

	atomic.AddUint64(&p.renderCalls, 1)
	atomic.AddUint64(&p.renderNanos, uint64(time.Since(start).Nanoseconds()))
	atomic.AddUint64(&p.framesRendered, uint64(rendered))

	return rendered, nil
}

// Skip advances playback by up to nframes frames exactly like Play, but
// discards the rendered audio (spec §6 skip()) — used by a caller seeking
// forward without wanting to hear (or transmit) the skipped span. Voice
// and event state still advance normally, so a subsequent Play resumes
// sample-accurately from the skipped-to position.
func (p *Player) Skip(nframes int) (int, error) {
	n, err := p.Play(nframes)
	p.lastAudio = nil
	return n, err
}

// dispatchCurrentRow applies every channel's triggers at its Cgiter's
// current row, then clears the row-returned guard so the next
// nextChunkFrames call can look past this row. Binds may redirect a
// follow-up event to a different channel, which is why dispatch must
// see every channel before any Cgiter advances.
func (p *Player) dispatchCurrentRow() {
	for i, cg := range p.master.Cgiters {
		for _, tr := range cg.TriggersAtRow() {
			if err := p.dispatcher.Dispatch(p.eventContext(i), tr); err != nil {
				p.logger.Warn("dropping trigger application error", "channel", i, "event", tr.Name, "error", err)
			}
		}
	}
	for _, cg := range p.master.Cgiters {
		cg.ClearRowReturned()
	}
}

// nextChunkFrames computes how many frames to render before the next
// event boundary, folding in any pending pattern delay and clamping to
// both the buffer size and the caller's remaining frame budget.
func (p *Player) nextChunkFrames(remaining int) int {
	dist := tstamp.New(1<<30, 0) // effectively +inf: no channel has come close to a pattern this long
	for _, cg := range p.master.Cgiters {
		cg.GetLocalBPDist(&dist)
		cg.GetGlobalBPDist(event.IsGlobalBreakpoint, &dist)
	}
	dist = dist.Add(p.master.TakePendingDelay())

	frames := int(tstamp.ToFrames(dist, p.master.Tempo, p.audioRate))
	if frames <= 0 {
		frames = 1 // always make forward progress even at distance 0
	}
	if frames > remaining {
		frames = remaining
	}
	if frames > p.bufSize {
		frames = p.bufSize
	}
	return frames
}

// advance moves every channel's Cgiter forward by the rendered chunk,
// converted back to musical time at the tempo that was in effect when
// the chunk started (a mid-chunk tempo change takes effect on the next
// chunk, never retroactively).
func (p *Player) advance(chunkFrames int) {
	dist := tstamp.FromFrames(int64(chunkFrames), p.master.Tempo, p.audioRate)
	for _, cg := range p.master.Cgiters {
		cg.Move(dist)
	}
}

// renderChunk renders exactly chunkFrames of audio: clears and re-mixes
// the master graph, sums every active voice group's output into the
// instrument bus, combines the two, and applies the mix-volume/
// force-shift gain stage and the DC blocker.
func (p *Player) renderChunk(chunkFrames int) {
	const thread = 0
	start, stop := 0, chunkFrames

	p.masterConns.ClearMixed(p.masterStates, thread, start, stop)
	p.masterConns.MixMixed(p.masterStates, thread, start, stop, p.master.Tempo)

	bus := p.instrumentBus.GetContentsMut()
	for i := start; i < stop; i++ {
		bus[i] = 0
	}
	p.instrumentBus.Invalidate()
	p.renderVoiceGroups(start, stop)

	rootTS := p.masterStates.For(graph.RootID).Thread(thread)
	rootIn := rootTS.MixedIn(0)

	out := make([]float64, chunkFrames)
	gain := p.mixVolume * p.forceShift
	for i := 0; i < chunkFrames; i++ {
		sample := bus[start+i]
		if rootIn.IsValid() {
			sample += rootIn.At(start + i)
		}
		sample *= gain

		dc := sample - p.dcX1 + dcLeak*p.dcY1
		p.dcX1 = sample
		p.dcY1 = dc

		out[i] = dc
	}
	p.lastAudio = out
}

// renderVoiceGroups walks every active voice group, rendering each
// voice through its bound processor device directly into a scratch
// per-voice buffer and mix-accumulating the result into the instrument
// bus. A voice that deactivates mid-chunk (RenderVoice returns a stop
// index short of `stop`) is released back to the pool immediately, per
// spec §5 "deactivation is immediate, not deferred to end of chunk".
func (p *Player) renderVoiceGroups(start, stop int) {
	p.pool.SortGroups()
	p.pool.StartGroupIteration()

	for {
		group, ok := p.pool.GetNextGroup()
		if !ok {
			break
		}
		for _, v := range group.Voices {
			p.renderOneVoice(v, start, stop)
		}
	}
}

func (p *Player) renderOneVoice(v *voice.Voice, start, stop int) {
	dev := v.Device
	if dev == nil || dev.Impl == nil || v.State == nil || !v.State.Active() {
		return
	}

	ts := p.voiceThreadState(v)
	ts.ClearVoiceBuffers(start, stop)

	renderStop := dev.Impl.RenderVoice(v.State, ts, start, stop, p.master.Tempo)

	out := ts.VoiceOut(0)
	if out.IsValid() {
		workbuf.Mix(p.instrumentBus, out, start, renderStop)
		p.instrumentBus.MarkValid()
	}

	if !v.State.Active() {
		p.pool.Deactivate(v)
	}
}

// voiceThreadState returns scratch ThreadState for rendering v's
// processor. Each voice owns its own per-call scratch (v.Scratch is a
// workbuf.Buffer for the processor's own internal state, a different
// thing from the per-port ThreadState built here) so a dedicated
// single-device Connections/StateArena is built per voice rather than
// shared across the group — two voices realizing the same note through
// the same processor device must not clobber each other's VoiceOut
// buffer mid-chunk. Cached on the Voice and rebuilt only when its bound
// Device changes (a fresh note-on through a different processor).
func (p *Player) voiceThreadState(v *voice.Voice) *graph.ThreadState {
	if ts := v.ThreadState(v.Device); ts != nil {
		return ts
	}
	conns, err := graph.Build(map[graph.NodeID]*graph.Device{v.Device.ID: v.Device}, nil)
	if err != nil {
		// A single device with no edges has no ports to validate and no
		// cycle to find; Build cannot fail for this input.
		panic(fmt.Sprintf("player: building single-device voice graph for %s: %v", v.Device.ID, err))
	}
	ts := graph.NewStateArena(conns, 1, p.bufSize).For(v.Device.ID).Thread(0)
	v.SetThreadState(v.Device, ts)
	return ts
}
