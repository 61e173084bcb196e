package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kunquat-go/synthcore/internal/modstore"
)

// maxDataBodySize bounds one set_data payload (spec §4.3): large enough
// for a WavPack sample or an Ogg Vorbis prompt, small enough that a
// malformed client can't exhaust the data directory in one request.
const maxDataBodySize = 64 << 20

// handleNewHandle allocates a fresh Handle and returns its id, the way
// the original engine's kqt_new_Handle hands back a fresh handle number.
func (s *Server) handleNewHandle(w http.ResponseWriter, r *http.Request) {
	h := s.store.NewHandle()
	writeJSON(w, http.StatusCreated, map[string]any{"handle_id": h.ID()})
}

// handleDeleteHandle removes every key stored under the Handle
// (del_Handle).
func (s *Server) handleDeleteHandle(w http.ResponseWriter, r *http.Request) {
	h := s.store.OpenHandle(chi.URLParam(r, "handleID"))
	if err := h.Delete(); err != nil {
		s.logger.Error("deleting handle", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.players.Unregister(h.ID())
	writeJSON(w, http.StatusOK, nil)
}

// handleSetData stores the request body under the key path given by the
// wildcard portion of the URL (set_data). The key suffix classifies the
// payload kind (.json/.wv/.wav/.ogg); malformed JSON is rejected here
// rather than at validate time.
func (s *Server) handleSetData(w http.ResponseWriter, r *http.Request) {
	keyPath := chi.URLParam(r, "*")
	if keyPath == "" {
		writeError(w, http.StatusBadRequest, "missing key path")
		return
	}

	r.Body = http.MaxBytesReader(nil, r.Body, maxDataBodySize)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "request body too large or unreadable")
		return
	}

	h := s.store.OpenHandle(chi.URLParam(r, "handleID"))
	if err := h.SetData(keyPath, data); err != nil {
		if errors.Is(err, modstore.ErrUnknownKeySuffix) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("set_data", "key", keyPath, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// handleGetData returns the raw bytes stored under a key path
// (get_data).
func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	keyPath := chi.URLParam(r, "*")
	h := s.store.OpenHandle(chi.URLParam(r, "handleID"))

	data, err := h.GetData(keyPath)
	if errors.Is(err, modstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, "key not found")
		return
	}
	if err != nil {
		s.logger.Error("get_data", "key", keyPath, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// handleListKeys returns every key path set on the Handle.
func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	h := s.store.OpenHandle(chi.URLParam(r, "handleID"))
	keys, err := h.Keys()
	if err != nil {
		s.logger.Error("listing keys", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

// handleValidate checks that every key in the request's required_keys
// list is present on the Handle, returning a FormatError's missing-key
// list verbatim on failure (spec §4.3 Open Question: a hard error naming
// every missing key, not a silent default).
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RequiredKeys []string `json:"required_keys"`
	}
	if msg := readJSON(r, &req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	h := s.store.OpenHandle(chi.URLParam(r, "handleID"))
	err := h.Validate(req.RequiredKeys)
	if err == nil {
		writeJSON(w, http.StatusOK, map[string]any{"valid": true})
		return
	}

	var fmtErr *modstore.FormatError
	if errors.As(err, &fmtErr) {
		writeJSON(w, http.StatusOK, map[string]any{
			"valid":        false,
			"missing_keys": fmtErr.MissingKeys,
		})
		return
	}

	s.logger.Error("validating handle", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
