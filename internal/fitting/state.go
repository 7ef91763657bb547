// Package fitting converges a document to a page budget by alternating edits and
// recompilation until the budget is met or no section can make further progress.
package fitting

// State is a step of the fitting state machine.
type State int

const (
	StateInit State = iota
	StateMeasuring
	StateDone
	StateSelectTarget
	StateEditing
	StateRecompiling
	StateExhausted
	StateFailed
	StateCancelled
)

var stateNames = map[State]string{
	StateInit:         "init",
	StateMeasuring:    "measuring",
	StateDone:         "done",
	StateSelectTarget: "select_target",
	StateEditing:      "editing",
	StateRecompiling:  "recompiling",
	StateExhausted:    "exhausted",
	StateFailed:       "failed",
	StateCancelled:    "cancelled",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Terminal reports whether the run ends in s.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateExhausted, StateFailed, StateCancelled:
		return true
	}
	return false
}
