package accel

import "fmt"

// State is a stage of one accelerated run.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateBuffersUploaded
	StateKernelDispatched
	StateResultsReadBack
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateUninitialized:    "uninitialized",
	StateInitialized:      "initialized",
	StateBuffersUploaded:  "buffers-uploaded",
	StateKernelDispatched: "kernel-dispatched",
	StateResultsReadBack:  "results-read-back",
	StateDone:             "done",
	StateFailed:           "failed",
}

// String returns the lower-case name of the state.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// machine enforces the linear stage order of a run. Any non-terminal state
// may move to StateFailed.
type machine struct {
	state State
	trace func(from, to State)
}

func (m *machine) advance(to State) error {
	from := m.state
	if from.Terminal() || (to != StateFailed && to != from+1) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	m.state = to
	if m.trace != nil {
		m.trace(from, to)
	}
	return nil
}

// fail moves the run to StateFailed unless it already finished.
func (m *machine) fail() {
	if !m.state.Terminal() {
		_ = m.advance(StateFailed)
	}
}
