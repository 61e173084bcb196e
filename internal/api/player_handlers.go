package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kunquat-go/synthcore/internal/pattern"
	"github.com/kunquat-go/synthcore/internal/player"
	"github.com/kunquat-go/synthcore/internal/tstamp"
)

// playerFor looks up the Player registered for the request's Handle,
// writing a 404 and returning false if none is registered.
func (s *Server) playerFor(w http.ResponseWriter, r *http.Request) (*player.Player, bool) {
	p := s.players.Get(chi.URLParam(r, "handleID"))
	if p == nil {
		writeError(w, http.StatusNotFound, "no player registered for this handle")
		return nil, false
	}
	return p, true
}

// handleReset resets playback to the given track (spec §6 reset()).
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	p, ok := s.playerFor(w, r)
	if !ok {
		return
	}

	var req struct {
		Track int `json:"track"`
	}
	if msg := readJSON(r, &req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := p.Reset(req.Track); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// handlePlay renders up to the requested number of frames (spec §6
// play()).
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	p, ok := s.playerFor(w, r)
	if !ok {
		return
	}

	var req struct {
		Frames int `json:"frames"`
	}
	if msg := readJSON(r, &req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	n, err := p.Play(req.Frames)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"frames_rendered": n})
}

// handleSkip advances playback without returning audio (spec §6 skip()).
func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	p, ok := s.playerFor(w, r)
	if !ok {
		return
	}

	var req struct {
		Frames int `json:"frames"`
	}
	if msg := readJSON(r, &req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	n, err := p.Skip(req.Frames)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"frames_rendered": n})
}

// fireRequest is the wire shape of a single trigger application.
type fireRequest struct {
	Channel int    `json:"channel"`
	Name    string `json:"name"`
	Pos     struct {
		Beats int64 `json:"beats"`
		Rem   int32 `json:"rem"`
	} `json:"pos"`
	Arg struct {
		Type  string  `json:"type"`
		Bool  bool    `json:"bool,omitempty"`
		Int   int64   `json:"int,omitempty"`
		Float float64 `json:"float,omitempty"`
		Beats int64   `json:"beats,omitempty"`
		Rem   int32   `json:"rem,omitempty"`
	} `json:"arg"`
}

func (req *fireRequest) toTrigger() (pattern.Trigger, error) {
	var arg pattern.Arg
	switch req.Arg.Type {
	case "", "none":
		arg.Type = pattern.ArgNone
	case "bool":
		arg.Type = pattern.ArgBool
		arg.Bool = req.Arg.Bool
	case "int":
		arg.Type = pattern.ArgInt
		arg.Int = req.Arg.Int
	case "float":
		arg.Type = pattern.ArgFloat
		arg.Float = req.Arg.Float
	case "tstamp":
		arg.Type = pattern.ArgTstamp
		arg.TstampVal = tstamp.New(req.Arg.Beats, req.Arg.Rem)
	default:
		return pattern.Trigger{}, fmt.Errorf("unknown arg type %q", req.Arg.Type)
	}

	return pattern.Trigger{
		Pos:  tstamp.New(req.Pos.Beats, req.Pos.Rem),
		Name: req.Name,
		Arg:  arg,
	}, nil
}

// handleFire applies a single trigger to a channel (spec §6 fire()),
// subject to the Player's own per-Handle fire-rate admission control.
func (s *Server) handleFire(w http.ResponseWriter, r *http.Request) {
	p, ok := s.playerFor(w, r)
	if !ok {
		return
	}

	var req fireRequest
	if msg := readJSON(r, &req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	tr, err := req.toTrigger()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := p.Fire(r.Context(), req.Channel, tr); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// handleGetAudio returns the mono PCM produced by the most recent play()
// call (spec §6 get_audio()).
func (s *Server) handleGetAudio(w http.ResponseWriter, r *http.Request) {
	p, ok := s.playerFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"samples": p.GetAudio()})
}

// handleStatus reports whether playback has stopped and the current
// rendered-position clock (spec §6 has_stopped()/nanoseconds()).
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := s.playerFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"has_stopped": p.HasStopped(),
		"nanoseconds": p.Nanoseconds(),
	})
}

// handleResetDCBlocker clears the DC-blocking filter's history (spec §6
// reset_dc_blocker()).
func (s *Server) handleResetDCBlocker(w http.ResponseWriter, r *http.Request) {
	p, ok := s.playerFor(w, r)
	if !ok {
		return
	}
	p.ResetDCBlocker()
	writeJSON(w, http.StatusOK, nil)
}

// handleSetAudioRate changes the render audio rate (spec §6
// set_audio_rate()).
func (s *Server) handleSetAudioRate(w http.ResponseWriter, r *http.Request) {
	p, ok := s.playerFor(w, r)
	if !ok {
		return
	}

	var req struct {
		Rate int32 `json:"rate"`
	}
	if msg := readJSON(r, &req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	p.SetAudioRate(req.Rate)
	writeJSON(w, http.StatusOK, nil)
}

// handleSetAudioBufferSize changes the maximum frames rendered per
// internal chunk (spec §6 set_audio_buffer_size()).
func (s *Server) handleSetAudioBufferSize(w http.ResponseWriter, r *http.Request) {
	p, ok := s.playerFor(w, r)
	if !ok {
		return
	}

	var req struct {
		Size int `json:"size"`
	}
	if msg := readJSON(r, &req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	p.SetAudioBufferSize(req.Size)
	writeJSON(w, http.StatusOK, nil)
}

// handleSetThreadCount changes the render thread count (spec §6
// set_thread_count()).
func (s *Server) handleSetThreadCount(w http.ResponseWriter, r *http.Request) {
	p, ok := s.playerFor(w, r)
	if !ok {
		return
	}

	var req struct {
		Count int `json:"count"`
	}
	if msg := readJSON(r, &req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	p.SetThreadCount(req.Count)
	writeJSON(w, http.StatusOK, nil)
}
