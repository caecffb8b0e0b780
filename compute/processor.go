// Package compute implements the edge-computer scheduling core: the
// per-processor virtual-time model, the container's differential-residual
// active task list, and the computer's dispatcher and utilization-
// collector threads.
package compute

import (
	"errors"
	"fmt"
	"math"
)

// ErrInsufficientMemory is returned by Allocate when the requested size
// exceeds the processor's currently available memory.
var ErrInsufficientMemory = errors.New("compute: insufficient processor memory")

// ErrInvalidFree is returned by Free when the requested size exceeds the
// processor's currently used memory.
var ErrInvalidFree = errors.New("compute: free exceeds used memory")

// ProcessorType tags the kind of hardware a Processor represents; the
// scheduling core treats all types identically, the tag exists purely for
// bookkeeping and reporting.
type ProcessorType int

const (
	ProcessorCPU ProcessorType = iota
	ProcessorGPU
)

func (t ProcessorType) String() string {
	switch t {
	case ProcessorGPU:
		return "gpu"
	default:
		return "cpu"
	}
}

// movingAvg is a simple exponential moving average over a named time
// window, used for the processor's 10s/30s utilization windows.
type movingAvg struct {
	window float64
	have   bool
	avg    float64
	last   float64
}

func newMovingAvg(window float64) movingAvg {
	return movingAvg{window: window}
}

func (m *movingAvg) add(sample, elapsed float64) {
	m.last = sample
	if !m.have {
		m.avg = sample
		m.have = true
		return
	}
	if elapsed <= 0 {
		return
	}
	decay := math.Exp(-elapsed / m.window)
	m.avg = m.avg*decay + sample*(1-decay)
}

func (m *movingAvg) average() float64 {
	return m.avg
}

// Processor is a named, multi-core virtual-time resource: per-core
// operation rate r, core count K, and a live count of running tasks R. Its
// equivalent per-task rate is min(K,R)*r/R, shared fairly among every task
// currently admitted to any container bound to it.
type Processor struct {
	Name  string
	Type  ProcessorType
	Speed float64 // operations per second, per core
	Cores uint64

	memTotal uint64
	memUsed  uint64
	running  uint64

	busyTime float64
	load10   movingAvg
	load30   movingAvg
}

// NewProcessor builds a processor. Panics if name is empty, speed is not
// positive, cores is zero, or memTotal is zero — these are construction
// invariants checked once at computer-configuration time, not
// request-time failures.
func NewProcessor(name string, typ ProcessorType, speed float64, cores uint64, memTotal uint64) *Processor {
	if name == "" {
		panic("compute: processor name must not be empty")
	}
	if speed <= 0 {
		panic("compute: processor speed must be positive")
	}
	if cores == 0 {
		panic("compute: processor must have at least one core")
	}
	if memTotal == 0 {
		panic("compute: processor must have non-zero memory")
	}
	return &Processor{
		Name:     name,
		Type:     typ,
		Speed:    speed,
		Cores:    cores,
		memTotal: memTotal,
		load10:   newMovingAvg(10),
		load30:   newMovingAvg(30),
	}
}

// MemTotal returns the processor's total memory capacity.
func (p *Processor) MemTotal() uint64 { return p.memTotal }

// MemUsed returns the memory currently reserved by running tasks.
func (p *Processor) MemUsed() uint64 { return p.memUsed }

// MemAvailable returns the memory not currently reserved.
func (p *Processor) MemAvailable() uint64 { return p.memTotal - p.memUsed }

// Running returns the number of tasks currently occupying a worker slot
// on any container bound to this processor.
func (p *Processor) Running() uint64 { return p.running }

// Allocate reserves size bytes and counts one more running task.
func (p *Processor) Allocate(size uint64) error {
	if size > p.MemAvailable() {
		return fmt.Errorf("%w: requested %d, available %d", ErrInsufficientMemory, size, p.MemAvailable())
	}
	p.memUsed += size
	p.running++
	return nil
}

// Free releases size bytes and counts one fewer running task.
func (p *Processor) Free(size uint64) error {
	if size > p.memUsed {
		return fmt.Errorf("%w: requested %d, used %d", ErrInvalidFree, size, p.memUsed)
	}
	p.memUsed -= size
	p.running--
	return nil
}

// equivalentSpeed returns min(cores, running)*speed/running, the rate at
// which each of the running tasks currently progresses; running must be
// positive.
func (p *Processor) equivalentSpeed() float64 {
	active := p.running
	if active > p.Cores {
		active = p.Cores
	}
	return float64(active) * p.Speed / float64(p.running)
}

// equivalentSpeedFor is equivalentSpeed as it would read with a
// hypothetical running count, used by OpsToTimePlusOne.
func (p *Processor) equivalentSpeedFor(running uint64) float64 {
	active := running
	if active > p.Cores {
		active = p.Cores
	}
	return float64(active) * p.Speed / float64(running)
}

// OpsToTime converts a residual operation count to wall-clock seconds at
// the processor's current equivalent rate; zero if nothing is running.
func (p *Processor) OpsToTime(ops uint64) float64 {
	if p.running == 0 {
		return 0
	}
	return float64(ops) / p.equivalentSpeed()
}

// OpsToTimePlusOne is OpsToTime computed as if one more task were already
// admitted, used by the simulation API (Container.Simulate) to predict the
// effect of accepting a hypothetical new task without mutating state.
func (p *Processor) OpsToTimePlusOne(ops uint64) float64 {
	return float64(ops) / p.equivalentSpeedFor(p.running+1)
}

// TimeToOps converts a wall-clock duration to the number of operations
// the processor would perform at its current equivalent rate; zero if
// nothing is running.
func (p *Processor) TimeToOps(elapsed float64) uint64 {
	if p.running == 0 {
		return 0
	}
	return uint64(math.Round(elapsed * p.equivalentSpeed()))
}

// AddBusy accumulates the integral of running-task count over elapsed
// seconds, to be consumed by the next Utilization call. Callers invoke
// this once per dispatcher tick, before the running count is allowed to
// change, so it captures Σ(dt·R(dt)) exactly as the tasks were scheduled
// during that tick.
func (p *Processor) AddBusy(elapsed float64) {
	p.busyTime += elapsed * float64(p.running)
}

// Utilization reports min(1, busyTime/(cores*elapsed)) since the previous
// call, resets the busy-time accumulator, and feeds the 10s/30s moving
// average windows.
func (p *Processor) Utilization(elapsed float64) float64 {
	if elapsed <= 0 {
		return 0
	}
	util := p.busyTime / (float64(p.Cores) * elapsed)
	if util > 1 {
		util = 1
	}
	p.busyTime = 0
	p.load10.add(util, elapsed)
	p.load30.add(util, elapsed)
	return util
}

// LastUtils returns the {instantaneous, 10s average, 30s average} triple
// reported in responses, or zeros if Utilization has never been called.
func (p *Processor) LastUtils() [3]float64 {
	if !p.load30.have {
		return [3]float64{}
	}
	return [3]float64{p.load30.last, p.load10.average(), p.load30.average()}
}
