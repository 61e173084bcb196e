package event

import (
	"github.com/kunquat-go/synthcore/internal/pattern"
	"github.com/kunquat-go/synthcore/internal/tstamp"
)

// PlaybackMode selects what the Player advances between render calls.
type PlaybackMode int

const (
	ModeStop PlaybackMode = iota
	ModeSong
	ModePattern
)

// Master holds the playback-wide state owned by the Player: tempo, the
// current playback mode, a pending pattern-delay extension, and one
// Cgiter per channel (each walks the same track list but its own
// column). Mutated only by Master-group events and by the Player's
// advance step, never mid-render.
type Master struct {
	Tempo        float64
	Mode         PlaybackMode
	PendingDelay tstamp.Tstamp
	jumpCount    int

	RandState uint64

	Cgiters []*pattern.Cgiter
}

// NewMaster constructs Master state at the given starting tempo, with one
// Cgiter per channel (cgiters must already be positioned by the caller,
// e.g. via pattern.NewCgiterNormal per channel column).
func NewMaster(tempo float64, cgiters []*pattern.Cgiter) *Master {
	return &Master{Tempo: tempo, Mode: ModeSong, Cgiters: cgiters}
}

// TakePendingDelay returns and clears the currently pending pattern
// delay, for the Player's scheduler to fold into its next distance
// computation.
func (m *Master) TakePendingDelay() tstamp.Tstamp {
	d := m.PendingDelay
	m.PendingDelay = tstamp.Zero
	return d
}

// JumpCount returns how many jump events have fired, a safety counter a
// caller may use to bound runaway jump loops in malformed modules.
func (m *Master) JumpCount() int { return m.jumpCount }
