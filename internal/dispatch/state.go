package dispatch

import "fmt"

// State is an assignment attempt's position in its lifecycle. The table
// below is the only source of legal transitions; anything else is rejected,
// so a confirmed attempt can never slide back to an earlier state.
type State int

const (
	StateInit State = iota
	StateOptimisticApplied
	StateAwaitingServer
	StateConfirmed
	StateFailed
	StateReconciling
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateOptimisticApplied:
		return "optimistic_applied"
	case StateAwaitingServer:
		return "awaiting_server"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	case StateReconciling:
		return "reconciling"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var transitions = map[State][]State{
	StateInit:              {StateOptimisticApplied},
	StateOptimisticApplied: {StateAwaitingServer},
	StateAwaitingServer:    {StateConfirmed, StateFailed},
	StateConfirmed:         {StateReconciling},
	StateFailed:            {StateReconciling},
	StateReconciling:       {StateDone},
	StateDone:              {},
}

// attempt tracks one RequestAssignment call through the machine. Attempts
// are per-call values; two concurrent attempts for the same order are not
// serialized here (the server arbitrates via the reconciliation rule).
type attempt struct {
	state State
}

func newAttempt() *attempt { return &attempt{state: StateInit} }

func (a *attempt) to(next State) error {
	for _, allowed := range transitions[a.state] {
		if allowed == next {
			a.state = next
			return nil
		}
	}
	return fmt.Errorf("illegal assignment transition %s -> %s", a.state, next)
}
