package pattern

import "github.com/kunquat-go/synthcore/internal/tstamp"

// Pattern is a fixed-length block of per-channel Columns, addressed as a
// playable instance via a PatInstRef.
type Pattern struct {
	Length  tstamp.Tstamp
	columns []*Column
}

// NewPattern constructs a pattern of the given length with columnCount
// empty columns.
func NewPattern(length tstamp.Tstamp, columnCount int) *Pattern {
	p := &Pattern{Length: length, columns: make([]*Column, columnCount)}
	for i := range p.columns {
		p.columns[i] = NewColumn()
	}
	return p
}

// ColumnCount returns the number of columns in the pattern.
func (p *Pattern) ColumnCount() int { return len(p.columns) }

// Column returns column idx, or nil if out of range.
func (p *Pattern) Column(idx int) *Column {
	if idx < 0 || idx >= len(p.columns) {
		return nil
	}
	return p.columns[idx]
}

// Source resolves a PatInstRef to a concrete Pattern. Implemented by
// whatever owns the module's pattern table (in this module,
// cmd/kunquat-demo's demoSource); Cgiter
// depends only on this narrow interface rather than the concrete module
// type, so the playback cursor has no import-time dependency on storage.
type Source interface {
	Pattern(ref tstamp.PatInstRef) (*Pattern, bool)
}

// OrderList is the sequence of pattern instances played, in order, for
// one track.
type OrderList []tstamp.PatInstRef

// TrackList indexes OrderLists by track number.
type TrackList []OrderList
