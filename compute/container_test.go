package compute

import (
	"testing"

	"github.com/ccicconetti/serverlessedge/transport"
	"github.com/stretchr/testify/require"
)

func fixedLambda(ops, mem uint64) Lambda {
	return Lambda{
		Name: "l",
		Requirements: func(*Processor, *transport.LambdaRequest) Requirements {
			return Requirements{Ops: ops, Memory: mem}
		},
		Output: CopyInputOutput(),
	}
}

// GIVEN a 10-core/1000-ops processor with 100 bytes of memory and a
// 10-op/10-byte lambda
// WHEN 12 tasks are pushed
// THEN 10 are active and 2 pending; popping drains the pending queue one
// at a time (S4).
func TestContainerAdmissionS4(t *testing.T) {
	p := NewProcessor("p0", ProcessorCPU, 1000, 10, 100)
	c := NewContainer("c0", p, fixedLambda(10, 10), 10)

	for i := uint64(0); i < 12; i++ {
		require.NoError(t, c.Push(&transport.LambdaRequest{Function: "l"}, i))
	}
	require.Equal(t, 10, c.Active())
	require.Equal(t, 2, c.Pending())

	_, err := c.Pop()
	require.NoError(t, err)
	require.Equal(t, 1, c.Pending())

	_, err = c.Pop()
	require.NoError(t, err)
	require.Equal(t, 0, c.Pending())
}

func TestContainerOversizedRequestRejected(t *testing.T) {
	p := NewProcessor("p0", ProcessorCPU, 1000, 1, 50)
	c := NewContainer("c0", p, fixedLambda(10, 100), 1)
	err := c.Push(&transport.LambdaRequest{}, 0)
	require.ErrorIs(t, err, ErrOversizedRequest)
}

func TestContainerPopEmptyFails(t *testing.T) {
	p := NewProcessor("p0", ProcessorCPU, 1000, 1, 50)
	c := NewContainer("c0", p, fixedLambda(10, 10), 1)
	_, err := c.Pop()
	require.ErrorIs(t, err, ErrEmptyActive)
}

// GIVEN a single-core processor running one task of 1000 ops at 1000 ops/s
// WHEN 1 second elapses
// THEN the task completes (property 7, single-copy case).
func TestProcessorSingleTaskCompletesInExpectedTime(t *testing.T) {
	p := NewProcessor("p0", ProcessorCPU, 1000, 1, 100)
	c := NewContainer("c0", p, fixedLambda(1000, 10), 1)
	require.NoError(t, c.Push(&transport.LambdaRequest{}, 0))

	require.NoError(t, c.Advance(1.0))
	nearest, err := c.Nearest()
	require.NoError(t, err)
	require.InDelta(t, 0, nearest, 1e-9)
}

// WHEN two tasks of the same size run concurrently on one core
// THEN each takes roughly twice as long as it would alone (property 7).
func TestProcessorTwoConcurrentTasksShareRate(t *testing.T) {
	p := NewProcessor("p0", ProcessorCPU, 1000, 1, 100)
	c := NewContainer("c0", p, fixedLambda(1000, 10), 2)
	require.NoError(t, c.Push(&transport.LambdaRequest{}, 0))
	require.NoError(t, c.Push(&transport.LambdaRequest{}, 1))

	require.NoError(t, c.Advance(1.0))
	nearest, err := c.Nearest()
	require.NoError(t, err)
	require.InDelta(t, 1.0, nearest, 1e-9)
}
