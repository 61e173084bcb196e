package api

import (
	"sync"

	"github.com/kunquat-go/synthcore/internal/player"
)

// PlayerRegistry maps a Handle id to the in-process player.Player driving
// it. Full module-file parsing (zip container, JSON streader) is out of
// scope (spec §1 Non-goals), so the control surface cannot itself turn a
// Handle's stored keys into a working Player — an embedder builds the
// Player directly with the Go library (see cmd/kunquat-demo) and
// registers it here so the HTTP layer can drive it.
type PlayerRegistry struct {
	mu      sync.RWMutex
	players map[string]*player.Player
}

// NewPlayerRegistry creates an empty registry.
func NewPlayerRegistry() *PlayerRegistry {
	return &PlayerRegistry{players: make(map[string]*player.Player)}
}

// Register associates p with handleID, replacing any previous Player for
// that id.
func (reg *PlayerRegistry) Register(handleID string, p *player.Player) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.players[handleID] = p
}

// Unregister removes any Player associated with handleID.
func (reg *PlayerRegistry) Unregister(handleID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.players, handleID)
}

// Get returns the Player registered for handleID, or nil if none.
func (reg *PlayerRegistry) Get(handleID string) *player.Player {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return reg.players[handleID]
}
