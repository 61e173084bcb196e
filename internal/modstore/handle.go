package modstore

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// KeyKind classifies a key path by its file suffix, the way the engine
// dispatches set_data payloads to a JSON, WavPack, WAV, or Ogg Vorbis
// reader (spec §4.3).
type KeyKind int

const (
	KeyKindJSON KeyKind = iota
	KeyKindWavPack
	KeyKindWAV
	KeyKindOGG
)

// ErrUnknownKeySuffix is returned by SetData for a key path whose suffix
// does not match any recognized payload kind.
var ErrUnknownKeySuffix = errors.New("modstore: unrecognized key suffix")

// ErrNotFound is returned by GetData when the key does not exist for the
// handle.
var ErrNotFound = errors.New("modstore: key not found")

// FormatError reports one or more mandatory keys missing from a handle at
// validation time (spec §4.3 Open Question: missing mandatory keys is a
// hard error, not a silent default).
type FormatError struct {
	MissingKeys []string // in the order the caller listed them
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("modstore: missing mandatory keys: %s", strings.Join(e.MissingKeys, ", "))
}

// classifyKey maps a key path's suffix to a KeyKind.
func classifyKey(keyPath string) (KeyKind, error) {
	switch filepath.Ext(keyPath) {
	case ".json":
		return KeyKindJSON, nil
	case ".wv":
		return KeyKindWavPack, nil
	case ".wav":
		return KeyKindWAV, nil
	case ".ogg":
		return KeyKindOGG, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKeySuffix, keyPath)
	}
}

// Handle is one loaded module: a named collection of key/value pairs
// persisted in the shared Store, addressed by HandleID. Mirrors the
// original engine's kqt_Handle lifecycle (new, set_data, validate, del).
type Handle struct {
	id    string
	store *Store
}

// NewHandle allocates a fresh, empty Handle backed by store.
func (s *Store) NewHandle() *Handle {
	return &Handle{id: uuid.NewString(), store: s}
}

// OpenHandle reattaches to a Handle previously created with the given id
// (e.g. after a process restart), without checking that it holds any
// data yet.
func (s *Store) OpenHandle(id string) *Handle {
	return &Handle{id: id, store: s}
}

// ID returns the handle's unique identifier.
func (h *Handle) ID() string { return h.id }

// SetData stores data under keyPath, replacing any previous value. The
// key suffix must be one recognized payload kind; malformed JSON is
// rejected immediately rather than stored and discovered at validate
// time.
func (h *Handle) SetData(keyPath string, data []byte) error {
	kind, err := classifyKey(keyPath)
	if err != nil {
		return err
	}
	if kind == KeyKindJSON && !isWellFormedJSON(data) {
		return fmt.Errorf("modstore: %q: %w", keyPath, errMalformedJSON)
	}

	sum := blake2b.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	_, err = h.store.db.Exec(`
		INSERT INTO module_keys (handle_id, key_path, data, checksum)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (handle_id, key_path) DO UPDATE SET
			data = excluded.data,
			checksum = excluded.checksum,
			updated_at = datetime('now')
	`, h.id, keyPath, data, checksum)
	if err != nil {
		return fmt.Errorf("modstore: set_data %q: %w", keyPath, err)
	}
	return nil
}

// GetData retrieves the bytes stored under keyPath, or ErrNotFound.
func (h *Handle) GetData(keyPath string) ([]byte, error) {
	var data []byte
	err := h.store.db.QueryRow(
		"SELECT data FROM module_keys WHERE handle_id = ? AND key_path = ?",
		h.id, keyPath,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("modstore: %q: %w", keyPath, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("modstore: get_data %q: %w", keyPath, err)
	}
	return data, nil
}

// Checksum returns the stored content hash for keyPath, or ErrNotFound.
func (h *Handle) Checksum(keyPath string) (string, error) {
	var checksum string
	err := h.store.db.QueryRow(
		"SELECT checksum FROM module_keys WHERE handle_id = ? AND key_path = ?",
		h.id, keyPath,
	).Scan(&checksum)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("modstore: %q: %w", keyPath, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("modstore: checksum %q: %w", keyPath, err)
	}
	return checksum, nil
}

// Keys returns every key path set on the handle, sorted.
func (h *Handle) Keys() ([]string, error) {
	rows, err := h.store.db.Query("SELECT key_path FROM module_keys WHERE handle_id = ?", h.id)
	if err != nil {
		return nil, fmt.Errorf("modstore: listing keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("modstore: scanning key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Has reports whether keyPath has been set on the handle.
func (h *Handle) Has(keyPath string) (bool, error) {
	var count int
	err := h.store.db.QueryRow(
		"SELECT COUNT(*) FROM module_keys WHERE handle_id = ? AND key_path = ?",
		h.id, keyPath,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("modstore: checking %q: %w", keyPath, err)
	}
	return count > 0, nil
}

// Validate checks that every key in requiredKeys is present on the
// handle. Missing mandatory keys are a hard FormatError naming every key
// missing, in the order requiredKeys lists them, not a
// silently-substituted default.
func (h *Handle) Validate(requiredKeys []string) error {
	var missing []string
	for _, key := range requiredKeys {
		ok, err := h.Has(key)
		if err != nil {
			return err
		}
		if !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &FormatError{MissingKeys: missing}
	}
	return nil
}

// Delete removes every key belonging to the handle (del_Handle).
func (h *Handle) Delete() error {
	_, err := h.store.db.Exec("DELETE FROM module_keys WHERE handle_id = ?", h.id)
	if err != nil {
		return fmt.Errorf("modstore: deleting handle %s: %w", h.id, err)
	}
	return nil
}
