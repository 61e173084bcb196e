package pattern

import "github.com/kunquat-go/synthcore/internal/tstamp"

// Column is one channel's ordered trigger row data within a Pattern,
// kept sorted by position. Triggers sharing a position keep their
// insertion order, matching the "insertion order" tie-break the Player's
// scheduler relies on (spec §5 ordering guarantees).
type Column struct {
	triggers []Trigger
}

// NewColumn constructs an empty column.
func NewColumn() *Column {
	return &Column{}
}

// Insert adds a trigger, keeping the column sorted by position. Among
// triggers at the same position, tr is placed after any already present
// (stable insertion order).
func (c *Column) Insert(tr Trigger) {
	i := len(c.triggers)
	for i > 0 && tr.Pos.Less(c.triggers[i-1].Pos) {
		i--
	}
	c.triggers = append(c.triggers, Trigger{})
	copy(c.triggers[i+1:], c.triggers[i:])
	c.triggers[i] = tr
}

// At returns every trigger exactly at pos, in insertion order.
func (c *Column) At(pos tstamp.Tstamp) []Trigger {
	var rows []Trigger
	for _, tr := range c.triggers {
		if tr.Pos.Cmp(pos) == 0 {
			rows = append(rows, tr)
		}
	}
	return rows
}

// NextTriggerPos returns the position of the first trigger strictly after
// `after`, or (zero, false) if there is none.
func (c *Column) NextTriggerPos(after tstamp.Tstamp) (tstamp.Tstamp, bool) {
	for _, tr := range c.triggers {
		if after.Less(tr.Pos) {
			return tr.Pos, true
		}
	}
	return tstamp.Zero, false
}

// nextBreakpointPos returns the position of the first trigger strictly
// after `after` whose event name satisfies isBreakpoint, or
// (zero, false) if there is none.
func (c *Column) nextBreakpointPos(after tstamp.Tstamp, isBreakpoint func(name string) bool) (tstamp.Tstamp, bool) {
	for _, tr := range c.triggers {
		if after.Less(tr.Pos) && isBreakpoint(tr.Name) {
			return tr.Pos, true
		}
	}
	return tstamp.Zero, false
}
