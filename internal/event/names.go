// Package event implements the type-routed event dispatcher, Channel and
// Master playback state, and the bind-expansion table. Grounded directly
// on internal/flow/engine.go's NodeHandler registry (RegisterHandler +
// map[string]NodeHandler + dispatch-by-type-string), reworked from a
// call-flow step executor into a musical event applier.
package event

import "github.com/kunquat-go/synthcore/internal/pattern"

// Group is the dispatch category an event name belongs to.
type Group int

const (
	GroupGeneral Group = iota
	GroupControl
	GroupMaster
	GroupChannel
	GroupAu
)

func (g Group) String() string {
	switch g {
	case GroupGeneral:
		return "general"
	case GroupControl:
		return "control"
	case GroupMaster:
		return "master"
	case GroupChannel:
		return "channel"
	case GroupAu:
		return "au"
	default:
		return "unknown"
	}
}

// isGlobalBreakpointNames lists the event names marked as globally
// ordering: the scheduler must end the current render slice at a row
// containing one of these, regardless of which column it sits in.
var isGlobalBreakpointNames = map[string]bool{
	"/t": true, // tempo change
	"/j": true, // jump
	"/p": true, // pattern delay
	"/m": true, // playback mode change
}

// IsGlobalBreakpoint reports whether name is a global breakpoint event,
// for use as the predicate passed to pattern.Cgiter.GetGlobalBPDist.
func IsGlobalBreakpoint(name string) bool {
	return isGlobalBreakpointNames[name]
}

// builtinNames declares the static Event_names table: name -> dispatch
// group and expected argument shape. Registered into every Dispatcher at
// construction; stream events are registered separately per module
// (RegisterStream) since their names are module-defined.
var builtinNames = map[string]struct {
	group Group
	arg   pattern.ArgType
}{
	"if":     {GroupGeneral, pattern.ArgBool},
	"else":   {GroupGeneral, pattern.ArgNone},
	"end if": {GroupGeneral, pattern.ArgNone},

	"c.debug": {GroupControl, pattern.ArgNone},

	"/t": {GroupMaster, pattern.ArgFloat},
	"/j": {GroupMaster, pattern.ArgInt},
	"/p": {GroupMaster, pattern.ArgTstamp},
	"/m": {GroupMaster, pattern.ArgInt},

	"n+": {GroupChannel, pattern.ArgFloat},
	"n-": {GroupChannel, pattern.ArgNone},
	".f": {GroupChannel, pattern.ArgFloat},
	".p": {GroupChannel, pattern.ArgFloat},
	".o": {GroupChannel, pattern.ArgFloat}, // panning
	"Cf": {GroupChannel, pattern.ArgBool},  // carry_force
	"Cp": {GroupChannel, pattern.ArgBool},  // carry_pitch

	".a": {GroupAu, pattern.ArgInt}, // au-input index
	".x": {GroupAu, pattern.ArgInt}, // expression index
	".h": {GroupAu, pattern.ArgInt}, // hit index
}
