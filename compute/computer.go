package compute

import (
	"fmt"
	"sync"
	"time"

	"github.com/ccicconetti/serverlessedge/transport"
)

// Callback delivers a completed task's response to whoever submitted it.
type Callback func(id uint64, resp *transport.LambdaResponse)

// UtilCallback delivers a snapshot of per-processor utilization, keyed by
// processor name, once per collection interval.
type UtilCallback func(utils map[string]float64)

const utilCollectionPeriod = time.Second

// Computer owns a set of processors and the containers bound to them, and
// runs two background goroutines once the first task is admitted: a
// dispatcher that advances every container's head task and delivers
// completions, and (if a UtilCallback was supplied) a utilization collector
// that samples every processor once a second. Both goroutines share theComputer's
// single mutex with every exported method, so no two of Advance/Push/Pop
// ever race across containers.
type Computer struct {
	Name string

	callback     Callback
	utilCallback UtilCallback
	clock        func() float64

	mu       sync.Mutex
	started  bool
	running  bool // true while the virtual clock is advancing (some container has an active task)
	lastTick float64

	processors     map[string]*Processor
	containerNames map[string]struct{}
	containers     map[string]*Container // keyed by lambda name

	nextID uint64

	wake     chan struct{}
	doneCh   chan struct{}
	wg       sync.WaitGroup
	closeOne sync.Once
}

// NewComputer builds a computer. Panics if callback is nil: every admitted
// task must have somewhere to deliver its response.
func NewComputer(name string, callback Callback, utilCallback UtilCallback) *Computer {
	if callback == nil {
		panic("compute: computer callback must not be nil")
	}
	epoch := time.Now()
	return &Computer{
		Name:           name,
		callback:       callback,
		utilCallback:   utilCallback,
		clock:          func() float64 { return time.Since(epoch).Seconds() },
		processors:     make(map[string]*Processor),
		containerNames: make(map[string]struct{}),
		containers:     make(map[string]*Container),
		wake:           make(chan struct{}, 1),
		doneCh:         make(chan struct{}),
	}
}

// AddProcessor registers a new processor. Fails with ErrInitDone once the
// first task has been admitted by AddTask, and with ErrDupProcessorName on a
// repeated name.
func (c *Computer) AddProcessor(name string, typ ProcessorType, speed float64, cores, memTotal uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return ErrInitDone
	}
	if _, exists := c.processors[name]; exists {
		return fmt.Errorf("%w: %s on computer %s", ErrDupProcessorName, name, c.Name)
	}
	c.processors[name] = NewProcessor(name, typ, speed, cores, memTotal)
	return nil
}

// AddContainer registers a new container hosting lambda on the named
// processor. Fails with ErrInitDone once the first task has been
// admitted by AddTask, ErrDupContainerName on a repeated container name,
// ErrNoProcessorFound if processorName is unknown, and ErrDupLambdaName if
// another container already hosts a lambda of the same name (at most one
// container per lambda per computer).
func (c *Computer) AddContainer(name, processorName string, lambda Lambda, numWorkers uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return ErrInitDone
	}
	if _, exists := c.containerNames[name]; exists {
		return fmt.Errorf("%w: %s on computer %s", ErrDupContainerName, name, c.Name)
	}
	proc, ok := c.processors[processorName]
	if !ok {
		return fmt.Errorf("%w: %s on computer %s", ErrNoProcessorFound, processorName, c.Name)
	}
	if _, exists := c.containers[lambda.Name]; exists {
		return fmt.Errorf("%w: %s on computer %s", ErrDupLambdaName, lambda.Name, c.Name)
	}
	c.containerNames[name] = struct{}{}
	c.containers[lambda.Name] = NewContainer(name, proc, lambda, numWorkers)
	return nil
}

// AddTask admits req to its lambda's container and returns the id under
// which its eventual response will be delivered to the callback. Starts
// the background goroutines on the very first call.
func (c *Computer) AddTask(req *transport.LambdaRequest) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	container, ok := c.containers[req.Function]
	if !ok {
		return 0, fmt.Errorf("%w: lambda %s", ErrNoContainerFound, req.Function)
	}
	if !c.started {
		c.startLocked()
	}

	id := c.nextID
	c.nextID++

	c.pauseLocked()
	err := container.Push(req, id)
	c.resumeLocked()
	if err != nil {
		return 0, err
	}
	c.notify()
	return id, nil
}

// SimTask predicts, without admitting anything, how long req would take to
// complete if pushed now, alongside the target container's most recently
// collected utilization triple.
func (c *Computer) SimTask(req *transport.LambdaRequest) (float64, [3]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	container, ok := c.containers[req.Function]
	if !ok {
		return 0, [3]float64{}, fmt.Errorf("%w: lambda %s", ErrNoContainerFound, req.Function)
	}
	return container.Simulate(req), container.Processor.LastUtils(), nil
}

// ContainerList snapshots the computer's current container configuration.
func (c *Computer) ContainerList() transport.ContainerList {
	c.mu.Lock()
	defer c.mu.Unlock()

	var list transport.ContainerList
	for lambdaName, ct := range c.containers {
		list.Containers = append(list.Containers, transport.ContainerDescriptor{
			Name:       ct.Name,
			Processor:  ct.Processor.Name,
			Lambda:     lambdaName,
			NumWorkers: uint32(ct.NumWorkers),
		})
	}
	return list
}

// Close terminates the background goroutines, if any were started, and
// waits for them to exit.
func (c *Computer) Close() {
	c.closeOne.Do(func() {
		close(c.doneCh)
	})
	c.wg.Wait()
}

func (c *Computer) startLocked() {
	c.started = true
	c.lastTick = c.clock()
	c.wg.Add(1)
	go c.dispatch()
	if c.utilCallback != nil {
		c.wg.Add(1)
		go c.collectUtilization()
	}
}

func (c *Computer) notify() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// someActiveLocked reports whether any container currently has a task
// occupying a worker slot.
func (c *Computer) someActiveLocked() bool {
	for _, ct := range c.containers {
		if ct.Active() > 0 {
			return true
		}
	}
	return false
}

// pauseLocked freezes the virtual clock: it charges every processor's
// busy-time accumulator and advances every container's head task by the
// elapsed wall-clock time since the last pause/resume, then marks the
// clock stopped. Callers always follow with resumeLocked once they are
// done mutating container/processor state, so the pair forms an atomic
// "tick" with respect to the virtual clock.
func (c *Computer) pauseLocked() {
	if !c.running {
		return
	}
	now := c.clock()
	elapsed := now - c.lastTick
	for _, p := range c.processors {
		p.AddBusy(elapsed)
	}
	for _, ct := range c.containers {
		_ = ct.Advance(elapsed)
	}
	c.running = false
}

// resumeLocked restarts the virtual clock if any container has work to do.
func (c *Computer) resumeLocked() {
	if c.someActiveLocked() {
		c.lastTick = c.clock()
		c.running = true
	}
}

// sleepDurationLocked is how long the dispatcher should wait before its
// next tick: the residual time of the nearest-to-completion task across
// every container, capped at one second so AddTask's wake signal is never
// starved for more than that if it is ever missed.
func (c *Computer) sleepDurationLocked() time.Duration {
	sleep := 1.0
	for _, ct := range c.containers {
		if ct.Active() == 0 {
			continue
		}
		nearest, err := ct.Nearest()
		if err != nil {
			continue
		}
		if nearest < sleep {
			sleep = nearest
		}
	}
	if sleep < 0 {
		sleep = 0
	}
	return time.Duration(sleep * float64(time.Second))
}

// completionEpsilon accounts for floating-point rounding in the
// ops<->time conversions: a residual this close to zero is complete.
const completionEpsilon = 1e-9

// dispatchCompletedLocked pops and delivers every container's completed
// head tasks, and admits whatever pending work now fits.
func (c *Computer) dispatchCompletedLocked() {
	for _, ct := range c.containers {
		for ct.Active() > 0 {
			nearest, err := ct.Nearest()
			if err != nil || nearest > completionEpsilon {
				break
			}
			task, err := ct.Pop()
			if err != nil {
				break
			}
			c.callback(task.ID, task.Response)
		}
	}
}

// dispatch is the computer's dispatcher thread: it sleeps until the
// nearest task across every container is due, advances the virtual clock,
// delivers completions, and repeats.
func (c *Computer) dispatch() {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		sleep := c.sleepDurationLocked()
		c.mu.Unlock()

		timer := time.NewTimer(sleep)
		select {
		case <-c.doneCh:
			timer.Stop()
			return
		case <-c.wake:
			timer.Stop()
		case <-timer.C:
		}

		c.mu.Lock()
		select {
		case <-c.doneCh:
			c.mu.Unlock()
			return
		default:
		}
		if c.someActiveLocked() {
			c.pauseLocked()
			c.dispatchCompletedLocked()
			c.resumeLocked()
		}
		c.mu.Unlock()
	}
}

// collectUtilization is the computer's utilization-collector thread: once
// a second it samples every processor's utilization since the previous
// sample and delivers the snapshot to UtilCallback.
func (c *Computer) collectUtilization() {
	defer c.wg.Done()
	ticker := time.NewTicker(utilCollectionPeriod)
	defer ticker.Stop()
	last := c.clock()

	for {
		select {
		case <-c.doneCh:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		select {
		case <-c.doneCh:
			c.mu.Unlock()
			return
		default:
		}
		now := c.clock()
		elapsed := now - last
		last = now
		snapshot := make(map[string]float64, len(c.processors))
		for name, p := range c.processors {
			snapshot[name] = p.Utilization(elapsed)
		}
		c.mu.Unlock()

		c.utilCallback(snapshot)
	}
}
