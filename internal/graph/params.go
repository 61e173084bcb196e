package graph

import "sync"

// ParamStore is a device's parameter key/value store. Keys are the
// trailing component of a module key path (e.g. "p_volume.json"); values
// are the raw bytes as ingested by modstore.Handle.SetData, already
// version-stripped. Reads and writes are safe for concurrent use because
// key updates can arrive on a control-plane goroutine while the render
// path concurrently reads via Impl.SetKey having already applied them
// synchronously between render calls (see spec §5).
type ParamStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewParamStore creates an empty parameter store.
func NewParamStore() *ParamStore {
	return &ParamStore{values: make(map[string][]byte)}
}

// Set stores the raw bytes for key, overwriting any previous value.
// Setting the same key to an identical value twice is idempotent (§8).
func (s *ParamStore) Set(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.values[key] = cp
}

// Get returns the raw bytes for key and whether it was present.
func (s *ParamStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Has reports whether key has been set.
func (s *ParamStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.values[key]
	return ok
}

// Keys returns a snapshot of all set keys, in no particular order.
func (s *ParamStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys
}
