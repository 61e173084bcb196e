package event

import "github.com/kunquat-go/synthcore/internal/pattern"

// maxBindDepth bounds bind-expansion recursion (spec §4.8: "recursion is
// bounded by a depth counter"). A bind rule that (directly or via a chain
// of other binds) would trigger itself stops silently once this depth is
// reached rather than looping forever.
const maxBindDepth = 4

// FollowEvent is one event a Bind rule fires after its trigger matches.
// TargetChannel selects which channel receives it; -1 means the same
// channel the original trigger fired on.
type FollowEvent struct {
	TargetChannel int
	EventName     string
	Arg           func(triggerArg pattern.Arg) pattern.Arg
}

// BindRule maps one event name, filtered by a predicate over its
// argument, to a list of follow-up events.
type BindRule struct {
	EventName string
	Predicate func(arg pattern.Arg) bool
	Follow    []FollowEvent
}

// BindTable is the module-global bind mapping: (event name, argument
// predicate) -> follow-up events, evaluated immediately after the
// matched trigger applies.
type BindTable struct {
	rules map[string][]BindRule
}

// NewBindTable constructs an empty bind table.
func NewBindTable() *BindTable {
	return &BindTable{rules: make(map[string][]BindRule)}
}

// Add registers a bind rule.
func (b *BindTable) Add(rule BindRule) {
	b.rules[rule.EventName] = append(b.rules[rule.EventName], rule)
}

// Matches returns every follow-up event list whose rule's event name and
// predicate match (name, arg), in registration order.
func (b *BindTable) Matches(name string, arg pattern.Arg) []FollowEvent {
	var follow []FollowEvent
	for _, rule := range b.rules[name] {
		if rule.Predicate == nil || rule.Predicate(arg) {
			follow = append(follow, rule.Follow...)
		}
	}
	return follow
}
