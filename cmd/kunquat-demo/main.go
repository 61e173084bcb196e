// Command kunquat-demo drives the synthesis core library directly
// (without the HTTP control surface) to render the single-pulse and
// repeated-pulse debug scenarios described for the render path (spec §8)
// to a WAV file. It stands in for the original engine's ao/libjack
// command-line players, both explicitly out of scope here (spec.md §1
// Non-goals): rather than opening a live audio device, it writes a
// standard RIFF/WAVE container a caller can inspect with any audio tool.
package main

import (
	"encoding/binary"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"

	"github.com/kunquat-go/synthcore/internal/config"
	"github.com/kunquat-go/synthcore/internal/graph"
	"github.com/kunquat-go/synthcore/internal/pattern"
	"github.com/kunquat-go/synthcore/internal/player"
	"github.com/kunquat-go/synthcore/internal/processor"
	"github.com/kunquat-go/synthcore/internal/tstamp"
)

func main() {
	singlePulse := flag.Bool("single-pulse", false, "use the single-pulse debug processor instead of repeated-pulse")
	seconds := flag.Float64("seconds", 1.0, "seconds of audio to render")
	out := flag.String("out", "kunquat-demo.wav", "output WAV file path")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg := &config.Config{
		AudioRate:       48000,
		AudioBufferSize: 1024,
		VoiceCount:      16,
		ThreadCount:     1,
	}

	src := newDemoSource()

	p, err := player.New(cfg, logger, src, src.tracks, 1)
	if err != nil {
		logger.Error("constructing player", "error", err)
		os.Exit(1)
	}

	dev := graph.NewDevice("proc0", graph.KindProcessor)
	debug := processor.NewDebug()
	if err := debug.Init(dev); err != nil {
		logger.Error("initializing debug processor", "error", err)
		os.Exit(1)
	}
	manifest, _ := json.Marshal(map[string]bool{"single_pulse": *singlePulse})
	if err := debug.SetKey("p_b_single_pulse.json", manifest); err != nil {
		logger.Error("configuring debug processor", "error", err)
		os.Exit(1)
	}
	dev.Impl = debug
	p.RegisterAudioUnit(0, dev)

	totalFrames := int(*seconds * float64(cfg.AudioRate))
	samples := make([]float64, 0, totalFrames)

	for len(samples) < totalFrames {
		remaining := totalFrames - len(samples)
		chunk := cfg.AudioBufferSize
		if chunk > remaining {
			chunk = remaining
		}
		n, err := p.Play(chunk)
		if err != nil {
			logger.Error("rendering", "error", err)
			os.Exit(1)
		}
		samples = append(samples, p.GetAudio()...)
		if n == 0 {
			break
		}
	}

	f, err := os.Create(*out)
	if err != nil {
		logger.Error("creating output file", "error", err)
		os.Exit(1)
	}
	defer f.Close()

	if err := writeWAV(f, samples, int32(cfg.AudioRate)); err != nil {
		logger.Error("writing wav", "error", err)
		os.Exit(1)
	}

	logger.Info("rendered demo audio", "frames", len(samples), "out", *out, "single_pulse", *singlePulse)
}

// demoSource is a one-pattern, one-track, one-channel module source:
// just enough Source/TrackList for a Cgiter to walk, firing a ".a 0"
// then "n+" at row zero of a several-second pattern so the whole render
// exercises one continuously active voice.
type demoSource struct {
	pat    *pattern.Pattern
	tracks pattern.TrackList
}

func newDemoSource() *demoSource {
	length := tstamp.New(3600, 0) // long enough that a fixed-seconds render never hits end of pattern
	pat := pattern.NewPattern(length, 1)

	col := pat.Column(0)
	col.Insert(pattern.Trigger{
		Pos:  tstamp.Zero,
		Name: ".a",
		Arg:  pattern.Arg{Type: pattern.ArgInt, Int: 0},
	})
	col.Insert(pattern.Trigger{
		Pos:  tstamp.Zero,
		Name: "n+",
		Arg:  pattern.Arg{Type: pattern.ArgFloat, Float: 0},
	})

	ref := tstamp.PatInstRef{Pattern: 0, Instance: 0}
	return &demoSource{
		pat:    pat,
		tracks: pattern.TrackList{pattern.OrderList{ref}},
	}
}

// Pattern implements pattern.Source.
func (s *demoSource) Pattern(ref tstamp.PatInstRef) (*pattern.Pattern, bool) {
	if ref.Pattern != 0 {
		return nil, false
	}
	return s.pat, true
}

// writeWAV writes samples (in [-1, 1]) as 16-bit mono PCM in a standard
// RIFF/WAVE container.
func writeWAV(w io.Writer, samples []float64, rate int32) error {
	const bitsPerSample = 16
	const channels = 1
	byteRate := rate * channels * bitsPerSample / 8
	blockAlign := int16(channels * bitsPerSample / 8)
	dataSize := uint32(len(samples) * 2)

	if _, err := w.Write([]byte("RIFF")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(36+dataSize)); err != nil {
		return err
	}
	if _, err := w.Write([]byte("WAVE")); err != nil {
		return err
	}
	if _, err := w.Write([]byte("fmt ")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(16)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int16(1)); err != nil { // PCM
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int16(channels)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, rate); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, byteRate); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, blockAlign); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, int16(bitsPerSample)); err != nil {
		return err
	}
	if _, err := w.Write([]byte("data")); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, dataSize); err != nil {
		return err
	}

	for _, s := range samples {
		if s > 1 {
			s = 1
		}
		if s < -1 {
			s = -1
		}
		if err := binary.Write(w, binary.LittleEndian, int16(s*32767)); err != nil {
			return err
		}
	}
	return nil
}
