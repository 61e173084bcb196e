// Package voice implements the voice pool: a fixed-size slab of render
// slots shared by all audio units, allocated by group so that every
// processor realizing one note lives and dies together. Grounded on
// internal/media/mixer.go's Mixer.participants map/mutex pattern (see
// DESIGN.md), reworked from a keyed-by-call-id registry into a
// priority-ordered, group-stealing slot pool.
package voice

// Priority orders voices for stealing: lower values are stolen first.
// Matches spec's INACTIVE < BG < FG < NEW ordering.
type Priority int

const (
	// Inactive voices are free slots, always stolen before anything live.
	Inactive Priority = iota
	// BG voices have received note-off and are running their release
	// envelope; they still produce audio but no longer accept control.
	BG
	// FG ranks between BG and New. No code in this module assigns it:
	// GetVoice hands out voices as New, and Release moves New and FG
	// voices alike to BG.
	FG
	// New voices were just allocated. They are stolen last, but not
	// exempt: GetVoice takes a New voice when no lower-priority slot is
	// left, whether or not it has rendered yet.
	New
)

func (p Priority) String() string {
	switch p {
	case Inactive:
		return "inactive"
	case BG:
		return "bg"
	case FG:
		return "fg"
	case New:
		return "new"
	default:
		return "unknown"
	}
}
