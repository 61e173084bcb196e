// Package api implements the control surface: an HTTP interface for
// creating Handles, loading module data into them, and driving a
// registered Player's playback (spec §6). Grounded on the teacher's
// internal/api package: a chi.Mux wrapped in a Server struct, JSON
// envelope responses, and a readJSON helper enforcing a body size limit
// and rejecting unknown fields.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// envelope is the standard API response wrapper: { "data": ..., "error": ... }.
type envelope struct {
	Data  any    `json:"data"`
	Error string `json:"error,omitempty"`
}

// maxRequestBodySize is the upper limit for JSON request bodies (1 MB for
// control messages; set_data's own payload goes through a dedicated
// binary endpoint with a larger limit, see handle_handlers.go).
const maxRequestBodySize = 1 << 20

// writeJSON writes a JSON response with the given status code and data payload.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Data: data}); err != nil {
		slog.Error("api: failed to encode json response", "error", err)
	}
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Error: msg}); err != nil {
		slog.Error("api: failed to encode json error response", "error", err)
	}
}

// readJSON decodes a JSON request body into dst, enforcing a size limit
// and rejecting unknown fields. Returns "" on success, a user-facing
// error string otherwise.
func readJSON(r *http.Request, dst any) string {
	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var unmarshalErr *json.UnmarshalTypeError
		var maxBytesErr *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxErr):
			return "malformed json"
		case errors.As(err, &unmarshalErr):
			if unmarshalErr.Field != "" {
				return "invalid value for field " + unmarshalErr.Field
			}
			return "invalid json value"
		case errors.Is(err, io.EOF):
			return "request body must not be empty"
		case errors.As(err, &maxBytesErr):
			return "request body too large"
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return "unknown field " + field
		default:
			return "invalid request body"
		}
	}

	if dec.More() {
		return "request body must contain a single json object"
	}
	return ""
}
