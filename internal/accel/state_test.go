package accel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMachine_LinearOrder walks the happy path and checks the trace.
func TestMachine_LinearOrder(t *testing.T) {
	var seen []State
	m := &machine{trace: func(_, to State) { seen = append(seen, to) }}

	for _, s := range []State{StateInitialized, StateBuffersUploaded, StateKernelDispatched, StateResultsReadBack, StateDone} {
		require.NoError(t, m.advance(s))
	}
	assert.Equal(t, []State{StateInitialized, StateBuffersUploaded, StateKernelDispatched, StateResultsReadBack, StateDone}, seen)

	// Done is terminal: neither another stage nor failure is accepted.
	assert.ErrorIs(t, m.advance(StateFailed), ErrInvalidTransition)
	m.fail()
	assert.Equal(t, StateDone, m.state)
}

// TestMachine_RejectsSkips verifies that stages cannot be skipped or
// repeated.
func TestMachine_RejectsSkips(t *testing.T) {
	m := &machine{}
	assert.ErrorIs(t, m.advance(StateBuffersUploaded), ErrInvalidTransition)
	require.NoError(t, m.advance(StateInitialized))
	assert.ErrorIs(t, m.advance(StateInitialized), ErrInvalidTransition)
	assert.ErrorIs(t, m.advance(StateDone), ErrInvalidTransition)
	assert.Equal(t, StateInitialized, m.state)
}

// TestMachine_Fail verifies that any running stage can fail and that
// Failed is terminal.
func TestMachine_Fail(t *testing.T) {
	m := &machine{}
	require.NoError(t, m.advance(StateInitialized))
	require.NoError(t, m.advance(StateBuffersUploaded))
	m.fail()
	assert.Equal(t, StateFailed, m.state)
	assert.ErrorIs(t, m.advance(StateKernelDispatched), ErrInvalidTransition)
}

// TestState_String covers known and out-of-range values.
func TestState_String(t *testing.T) {
	assert.Equal(t, "uninitialized", StateUninitialized.String())
	assert.Equal(t, "kernel-dispatched", StateKernelDispatched.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(42)", State(42).String())
	assert.True(t, StateDone.Terminal())
	assert.False(t, StateResultsReadBack.Terminal())
}
