// Package pattern implements the columnar trigger storage (Pattern,
// Column) and the playback cursor (Cgiter) that walks it, in both normal
// song-structure playback and the looping pattern-playback mode. Grounded
// on internal/flow/engine.go's FlowGraph/walkGraph (a JSON-shaped graph
// walked node by node); here the walk follows row position within a
// column instead of node edges.
package pattern

import "github.com/kunquat-go/synthcore/internal/tstamp"

// ArgType is the argument shape an Event_names entry declares for a
// trigger's event name.
type ArgType int

const (
	ArgNone ArgType = iota
	ArgBool
	ArgInt
	ArgFloat
	ArgTstamp
)

func (t ArgType) String() string {
	switch t {
	case ArgNone:
		return "none"
	case ArgBool:
		return "bool"
	case ArgInt:
		return "int"
	case ArgFloat:
		return "float"
	case ArgTstamp:
		return "tstamp"
	default:
		return "unknown"
	}
}

// Arg is a trigger's typed argument. Exactly one field is meaningful,
// selected by Type.
type Arg struct {
	Type      ArgType
	Bool      bool
	Int       int64
	Float     float64
	TstampVal tstamp.Tstamp
}

// Trigger is one event occurrence at a position within a column: a short
// event name (".f", "n+", "n-", "/p", ...) plus its argument.
type Trigger struct {
	Pos  tstamp.Tstamp
	Name string
	Arg  Arg
}
