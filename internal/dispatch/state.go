// filepath: internal/dispatch/state.go
package dispatch

// State tracks a request through the dispatcher lifecycle. Every request
// walks idle -> validating -> executing -> responding; failures jump
// straight to responding.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateExecuting
	StateResponding
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateExecuting:
		return "executing"
	case StateResponding:
		return "responding"
	default:
		return "unknown"
	}
}
