package modstore

import (
	"encoding/json"
	"errors"
)

var errMalformedJSON = errors.New("malformed JSON payload")

// isWellFormedJSON reports whether data is syntactically valid JSON.
// set_data rejects malformed JSON immediately rather than storing it and
// failing later during validate, per the teacher's readJSON pattern in
// internal/api/response.go of checking the decoder eagerly.
func isWellFormedJSON(data []byte) bool {
	return json.Valid(data)
}
