package taskpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrInvariant marks broken admission bookkeeping. It is raised as a panic,
// never returned: it signals a bug in the pool, not a failed task.
var ErrInvariant = errors.New("task pool invariant violated")

// Stats is a point-in-time view of a pool.
type Stats struct {
	MaxParallel int `json:"maxParallel"`
	Running     int `json:"running"`
	Waiting     int `json:"waiting"`
}

// Pool admits tasks up to a fixed parallelism limit and queues the rest FIFO.
// It is safe for concurrent use.
//
// A finishing task hands its slot directly to the head of the queue while
// holding the lock, so a slot is never both released and re-admitted twice,
// and a newcomer can never overtake a queued caller.
type Pool struct {
	maxParallel int

	mu      sync.Mutex
	running int
	queue   []chan struct{}
}

// New creates a pool that runs at most maxParallel tasks at once.
// Values below 1 are treated as 1.
func New(maxParallel int) *Pool {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Pool{maxParallel: maxParallel}
}

// Run blocks until the task is admitted, runs it, and returns its error
// verbatim. The slot is released when the task returns or panics.
//
// If ctx is done before admission the caller leaves the queue with an error
// wrapping ctx.Err() and task is never invoked. Once admitted, ctx is only
// handed to the task.
func (p *Pool) Run(ctx context.Context, task func(context.Context) error) error {
	if err := p.acquire(ctx); err != nil {
		return fmt.Errorf("wait for admission: %w", err)
	}
	defer p.release()

	return task(ctx)
}

// Do runs task through p and returns its value. It is the typed form of Run.
func Do[T any](ctx context.Context, p *Pool, task func(context.Context) (T, error)) (T, error) {
	var out T
	err := p.Run(ctx, func(ctx context.Context) error {
		v, err := task(ctx)
		out = v
		return err
	})
	return out, err
}

// Stats returns the current admission counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		MaxParallel: p.maxParallel,
		Running:     p.running,
		Waiting:     len(p.queue),
	}
}

func (p *Pool) acquire(ctx context.Context) error {
	p.mu.Lock()
	if p.running < p.maxParallel && len(p.queue) == 0 {
		p.running++
		err := p.checkLocked()
		p.mu.Unlock()
		if err != nil {
			panic(err)
		}
		runningTasks.Inc()
		admittedTotal.Inc()
		return nil
	}

	ready := make(chan struct{})
	p.queue = append(p.queue, ready)
	p.mu.Unlock()
	waitingTasks.Inc()

	select {
	case <-ready:
		// release already counted us as running.
		return nil
	case <-ctx.Done():
	}

	p.mu.Lock()
	select {
	case <-ready:
		// Admitted at the same moment the caller gave up. Pass the slot on.
		p.mu.Unlock()
		p.release()
		return ctx.Err()
	default:
	}
	for i, ch := range p.queue {
		if ch == ready {
			p.queue = append(p.queue[:i], p.queue[i+1:]...)
			break
		}
	}
	p.mu.Unlock()
	waitingTasks.Dec()
	return ctx.Err()
}

// release frees the caller's slot. When someone is queued the slot moves to
// the head of the queue without the running count ever dropping.
func (p *Pool) release() {
	p.mu.Lock()
	p.running--
	handedOff := false
	if len(p.queue) > 0 {
		next := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.running++
		close(next)
		handedOff = true
	}
	err := p.checkLocked()
	p.mu.Unlock()
	if err != nil {
		panic(err)
	}

	if handedOff {
		waitingTasks.Dec()
		admittedTotal.Inc()
		return
	}
	runningTasks.Dec()
}

func (p *Pool) checkLocked() error {
	if p.running < 0 || p.running > p.maxParallel {
		return fmt.Errorf("%w: %d running with limit %d", ErrInvariant, p.running, p.maxParallel)
	}
	if len(p.queue) > 0 && p.running < p.maxParallel {
		return fmt.Errorf("%w: %d queued with a free slot", ErrInvariant, len(p.queue))
	}
	return nil
}
