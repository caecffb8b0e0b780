package compute

import (
	"testing"
	"time"

	"github.com/ccicconetti/serverlessedge/transport"
	"github.com/stretchr/testify/require"
)

func echoLambda(ops, mem uint64) Lambda {
	return Lambda{
		Name: "l",
		Requirements: func(*Processor, *transport.LambdaRequest) Requirements {
			return Requirements{Ops: ops, Memory: mem}
		},
		Output: CopyInputOutput(),
	}
}

// GIVEN a computer with one processor and one container
// WHEN a task is pushed
// THEN the dispatcher thread eventually delivers its completion to the
// callback.
func TestComputerDispatchDeliversCompletion(t *testing.T) {
	done := make(chan *transport.LambdaResponse, 1)
	comp := NewComputer("c0", func(_ uint64, resp *transport.LambdaResponse) {
		done <- resp
	}, nil)
	defer comp.Close()

	require.NoError(t, comp.AddProcessor("p0", ProcessorCPU, 1e9, 1, 1000))
	require.NoError(t, comp.AddContainer("ctr", "p0", echoLambda(1, 1), 1))

	_, err := comp.AddTask(&transport.LambdaRequest{Function: "l", Input: []byte("hi")})
	require.NoError(t, err)

	select {
	case resp := <-done:
		require.True(t, resp.OK())
		require.Equal(t, []byte("hi"), resp.Output)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatcher to deliver completion")
	}
}

func TestComputerAddTaskUnknownLambda(t *testing.T) {
	comp := NewComputer("c0", func(uint64, *transport.LambdaResponse) {}, nil)
	defer comp.Close()

	_, err := comp.AddTask(&transport.LambdaRequest{Function: "ghost"})
	require.ErrorIs(t, err, ErrNoContainerFound)
}

func TestComputerAddProcessorDuplicateRejected(t *testing.T) {
	comp := NewComputer("c0", func(uint64, *transport.LambdaResponse) {}, nil)
	defer comp.Close()

	require.NoError(t, comp.AddProcessor("p0", ProcessorCPU, 1000, 1, 1000))
	err := comp.AddProcessor("p0", ProcessorCPU, 1000, 1, 1000)
	require.ErrorIs(t, err, ErrDupProcessorName)
}

func TestComputerAddContainerValidatesProcessorAndLambdaUniqueness(t *testing.T) {
	comp := NewComputer("c0", func(uint64, *transport.LambdaResponse) {}, nil)
	defer comp.Close()

	require.ErrorIs(t, comp.AddContainer("c1", "ghost", echoLambda(1, 1), 1), ErrNoProcessorFound)

	require.NoError(t, comp.AddProcessor("p0", ProcessorCPU, 1000, 1, 1000))
	require.NoError(t, comp.AddContainer("c1", "p0", echoLambda(1, 1), 1))
	require.ErrorIs(t, comp.AddContainer("c1", "p0", echoLambda(1, 1), 1), ErrDupContainerName)
	require.ErrorIs(t, comp.AddContainer("c2", "p0", echoLambda(1, 1), 1), ErrDupLambdaName)
}

// GIVEN a computer that has already admitted one task
// WHEN AddProcessor or AddContainer is called afterwards
// THEN both are rejected with ErrInitDone.
func TestComputerConfigurationLockedAfterFirstTask(t *testing.T) {
	comp := NewComputer("c0", func(uint64, *transport.LambdaResponse) {}, nil)
	defer comp.Close()

	require.NoError(t, comp.AddProcessor("p0", ProcessorCPU, 1000, 1, 1000))
	require.NoError(t, comp.AddContainer("ctr", "p0", echoLambda(1_000_000_000, 1), 1))
	_, err := comp.AddTask(&transport.LambdaRequest{Function: "l"})
	require.NoError(t, err)

	require.ErrorIs(t, comp.AddProcessor("p1", ProcessorCPU, 1000, 1, 1000), ErrInitDone)
	require.ErrorIs(t, comp.AddContainer("ctr2", "p0", echoLambda(1, 1), 1), ErrInitDone)
}

// SimTask never mutates state: two identical calls must report identical
// predictions.
func TestComputerSimTaskHasNoSideEffects(t *testing.T) {
	comp := NewComputer("c0", func(uint64, *transport.LambdaResponse) {}, nil)
	defer comp.Close()

	require.NoError(t, comp.AddProcessor("p0", ProcessorCPU, 1000, 1, 1000))
	require.NoError(t, comp.AddContainer("ctr", "p0", echoLambda(1000, 10), 1))

	d1, _, err := comp.SimTask(&transport.LambdaRequest{Function: "l"})
	require.NoError(t, err)
	d2, _, err := comp.SimTask(&transport.LambdaRequest{Function: "l"})
	require.NoError(t, err)
	require.Equal(t, d1, d2)

	_, _, err = comp.SimTask(&transport.LambdaRequest{Function: "ghost"})
	require.ErrorIs(t, err, ErrNoContainerFound)
}

func TestComputerContainerListReflectsConfiguration(t *testing.T) {
	comp := NewComputer("c0", func(uint64, *transport.LambdaResponse) {}, nil)
	defer comp.Close()

	require.NoError(t, comp.AddProcessor("p0", ProcessorCPU, 1000, 1, 1000))
	require.NoError(t, comp.AddContainer("ctr", "p0", echoLambda(1, 1), 4))

	list := comp.ContainerList()
	require.Len(t, list.Containers, 1)
	require.Equal(t, "ctr", list.Containers[0].Name)
	require.Equal(t, "p0", list.Containers[0].Processor)
	require.Equal(t, "l", list.Containers[0].Lambda)
	require.EqualValues(t, 4, list.Containers[0].NumWorkers)
}
