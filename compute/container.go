package compute

import (
	"errors"
	"fmt"

	"github.com/ccicconetti/serverlessedge/transport"
)

// ErrOversizedRequest is returned by Push when a request's memory
// requirement exceeds the processor's total memory capacity: the request
// can never be served here, regardless of current load.
var ErrOversizedRequest = errors.New("compute: request memory requirement exceeds processor capacity")

// ErrEmptyActive is returned by Pop and Nearest when the container has no
// active tasks.
var ErrEmptyActive = errors.New("compute: container has no active tasks")

// ErrNegativeElapsed is returned by Advance when elapsed is negative.
var ErrNegativeElapsed = errors.New("compute: elapsed time must not be negative")

// Task is a unit of work admitted to a container: a unique id, a memory
// reservation charged against the processor, a residual-operations
// counter, and the eagerly-built response that will accompany it on
// completion.
type Task struct {
	ID          uint64
	Memory      uint64
	ResidualOps uint64
	Response    *transport.LambdaResponse
}

// Container is a (name, processor, lambda, worker-count) tuple hosting
// tasks on a shared virtual-time processor. The active list stores
// residuals differentially: element i's recorded ResidualOps is its true
// residual minus the sum of residuals of elements 0..i-1, so the head
// always holds the absolute residual of the nearest-to-completion task and
// Advance needs to touch only the head.
type Container struct {
	Name       string
	Processor  *Processor
	Lambda     Lambda
	NumWorkers uint64

	active  []*Task
	pending []*Task
}

// NewContainer builds a container bound to processor, hosting lambda with
// numWorkers concurrency. Panics if numWorkers is zero: a container with
// no workers is a construction-time programming error, not a request-time
// failure.
func NewContainer(name string, processor *Processor, lambda Lambda, numWorkers uint64) *Container {
	if numWorkers == 0 {
		panic("compute: container must have at least one worker")
	}
	return &Container{Name: name, Processor: processor, Lambda: lambda, NumWorkers: numWorkers}
}

// Active returns the number of tasks currently occupying a worker slot.
func (c *Container) Active() int { return len(c.active) }

// Pending returns the number of tasks waiting for a worker slot and/or
// memory.
func (c *Container) Pending() int { return len(c.pending) }

// Push admits req as a new task with the given id. If the container is
// full or the processor lacks memory right now, the task is enqueued to
// pending; otherwise it is admitted immediately.
func (c *Container) Push(req *transport.LambdaRequest, id uint64) error {
	reqs := c.Lambda.Requirements(c.Processor, req)
	if reqs.Memory > c.Processor.MemTotal() {
		return fmt.Errorf("%w: container %s", ErrOversizedRequest, c.Name)
	}

	resp := &transport.LambdaResponse{
		RetCode: transport.StatusOK,
		Output:  c.Lambda.Output(req),
	}
	task := &Task{ID: id, Memory: reqs.Memory, ResidualOps: reqs.Ops, Response: resp}

	if uint64(len(c.active)) >= c.NumWorkers || reqs.Memory > c.Processor.MemAvailable() {
		c.pending = append(c.pending, task)
		return nil
	}

	if err := c.Processor.Allocate(reqs.Memory); err != nil {
		// Precondition already checked MemAvailable; this should not
		// happen under the single-mutex concurrency model, but surface it
		// rather than silently proceeding.
		return err
	}
	c.makeActive(task)
	return nil
}

// makeActive inserts task into the differentially-encoded active list at
// the position that preserves ascending absolute-residual order.
func (c *Container) makeActive(task *Task) {
	var sum uint64
	insertAt := len(c.active)
	for i, t := range c.active {
		if sum+t.ResidualOps > task.ResidualOps {
			insertAt = i
			break
		}
		sum += t.ResidualOps
	}
	newResidual := task.ResidualOps - sum
	if insertAt < len(c.active) {
		c.active[insertAt].ResidualOps -= newResidual
	}
	task.ResidualOps = newResidual

	c.active = append(c.active, nil)
	copy(c.active[insertAt+1:], c.active[insertAt:])
	c.active[insertAt] = task
}

// Pop removes and returns the task nearest to completion (the active
// list's head), frees its memory, and admits as many pending tasks as
// worker slots and memory allow, front-to-back, stopping at the first one
// that does not currently fit.
func (c *Container) Pop() (*Task, error) {
	if len(c.active) == 0 {
		return nil, fmt.Errorf("%w: container %s", ErrEmptyActive, c.Name)
	}
	head := c.active[0]
	c.active = c.active[1:]
	_ = c.Processor.Free(head.Memory)

	for len(c.pending) > 0 && uint64(len(c.active)) < c.NumWorkers {
		next := c.pending[0]
		if next.Memory > c.Processor.MemAvailable() {
			break
		}
		c.pending = c.pending[1:]
		_ = c.Processor.Allocate(next.Memory)
		c.makeActive(next)
	}
	return head, nil
}

// Advance performs elapsed seconds' worth of operations on the active
// list's head only — the differential encoding guarantees this keeps
// every element's absolute residual correct without touching the rest of
// the list.
func (c *Container) Advance(elapsed float64) error {
	if elapsed < 0 {
		return ErrNegativeElapsed
	}
	if len(c.active) == 0 {
		return nil
	}
	ops := c.Processor.TimeToOps(elapsed)
	head := c.active[0]
	if ops > head.ResidualOps {
		ops = head.ResidualOps
	}
	head.ResidualOps -= ops
	return nil
}

// Nearest returns the residual processing time of the task nearest to
// completion.
func (c *Container) Nearest() (float64, error) {
	if len(c.active) == 0 {
		return 0, fmt.Errorf("%w: container %s", ErrEmptyActive, c.Name)
	}
	return c.Processor.OpsToTime(c.active[0].ResidualOps), nil
}

// Simulate predicts the completion time of a hypothetical task without
// mutating any state: the processor time of every pending task, plus the
// active head's remaining time if all workers are busy, plus the new
// task's own time (OpsToTime if full, OpsToTimePlusOne if a worker is
// free).
func (c *Container) Simulate(req *transport.LambdaRequest) float64 {
	reqs := c.Lambda.Requirements(c.Processor, req)

	var total float64
	for _, t := range c.pending {
		total += c.Processor.OpsToTime(t.ResidualOps)
	}

	full := uint64(len(c.active)) >= c.NumWorkers
	if full && len(c.active) > 0 {
		total += c.Processor.OpsToTime(c.active[0].ResidualOps)
	}
	if full {
		total += c.Processor.OpsToTime(reqs.Ops)
	} else {
		total += c.Processor.OpsToTimePlusOne(reqs.Ops)
	}
	return total
}
