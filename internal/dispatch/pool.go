package dispatch

import (
	"context"
	"sync"

	"github.com/cortexstack/connector-gateway/internal/logger"
)

// ErrPoolClosed is returned when submitting to a stopped pool.
var ErrPoolClosed = poolClosedError{}

type poolClosedError struct{}

func (poolClosedError) Error() string { return "dispatch pool is closed" }

// task pairs a dispatch function with the channel its result goes to.
type task struct {
	ctx     context.Context
	fn      Func
	payload map[string]interface{}
	result  chan Result
}

// Pool runs dispatches on a bounded set of workers so async callers
// never spawn unbounded goroutines.
type Pool struct {
	tasks chan task
	done  chan struct{}
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a pool with the given worker count and queue buffer.
func NewPool(workers, bufferSize int) *Pool {
	p := &Pool{
		tasks: make(chan task, bufferSize),
		done:  make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// worker processes tasks until the channel drains after Stop. Tasks
// still queued when the stop signal lands are failed, not run, so
// every submitted result channel receives exactly one value.
func (p *Pool) worker() {
	defer p.wg.Done()

	for t := range p.tasks {
		select {
		case <-p.done:
			t.result <- Result{Err: ErrPoolClosed}
			close(t.result)
			continue
		default:
		}
		payload, err := t.fn(t.ctx, t.payload)
		t.result <- Result{Payload: payload, Err: err}
		close(t.result)
	}
	logger.Debug("Dispatch worker exiting: task queue drained")
}

// Submit schedules fn on the pool and returns the channel its Result
// will arrive on. The channel receives exactly one value.
func (p *Pool) Submit(ctx context.Context, fn Func, payload map[string]interface{}) <-chan Result {
	result := make(chan Result, 1)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		result <- Result{Err: ErrPoolClosed}
		close(result)
		return result
	}
	p.tasks <- task{ctx: ctx, fn: fn, payload: payload, result: result}
	return result
}

// Async wraps fn so each call runs on the pool.
func (p *Pool) Async(fn Func) func(ctx context.Context, payload map[string]interface{}) <-chan Result {
	return func(ctx context.Context, payload map[string]interface{}) <-chan Result {
		return p.Submit(ctx, fn, payload)
	}
}

// Stop rejects further submissions, closes the task channel so workers
// drain it, and waits for in-flight dispatches. The closed flag flips
// under the lock, so no Submit can send after the channel closes.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.done)
		close(p.tasks)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
