package classify

import (
	"context"
	"log/slog"
	"sync"
)

// Dispatcher accepts classification tasks. Submit must not block.
type Dispatcher interface {
	Submit(task Task) *Future
}

// Future is the pending result of a submitted task.
type Future struct {
	done    chan struct{}
	outcome Outcome
	record  *Record
	err     error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(outcome Outcome, rec *Record, err error) {
	f.outcome, f.record, f.err = outcome, rec, err
	close(f.done)
}

// Done returns a channel that is closed once the task has finished.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the task finishes or ctx is done. The error is the
// task's error, or ctx.Err() if ctx ended first.
func (f *Future) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-f.done:
		return f.outcome, f.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Record returns the published record. It is nil until the task finished
// with the Published outcome.
func (f *Future) Record() *Record {
	select {
	case <-f.done:
		return f.record
	default:
		return nil
	}
}

type job struct {
	task   Task
	future *Future
}

// Pool runs classification tasks on a fixed number of workers. Tasks wait
// in an unbounded FIFO backlog; completion order across tasks is not
// defined.
type Pool struct {
	classifier *Classifier
	workers    int
	logger     *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	backlog []job
	closed  bool

	wg sync.WaitGroup
}

// NewPool creates a pool and starts its workers. workers below one is
// treated as one.
func NewPool(classifier *Classifier, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}

	p := &Pool{
		classifier: classifier,
		workers:    workers,
		logger:     slog.Default().With("component", "classify.pool"),
	}
	p.cond = sync.NewCond(&p.mu)

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	p.logger.Info("classification pool started", "workers", workers)
	return p
}

// Submit implements Dispatcher. After Close the returned future is already
// resolved as Discarded with ErrPoolClosed.
func (p *Pool) Submit(task Task) *Future {
	f := newFuture()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		f.resolve(Discarded, nil, ErrPoolClosed)
		return f
	}
	p.backlog = append(p.backlog, job{task: task, future: f})
	n := len(p.backlog)
	p.cond.Signal()
	p.mu.Unlock()

	p.observeBacklog(n)
	return f
}

// Backlog returns the number of tasks waiting for a worker.
func (p *Pool) Backlog() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.backlog)
}

// Workers returns the number of workers.
func (p *Pool) Workers() int {
	return p.workers
}

// Close stops accepting tasks and waits for the backlog to drain. It returns
// ctx.Err() if ctx ends first; workers keep draining in the background.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		p.cond.Broadcast()
	}
	remaining := len(p.backlog)
	p.mu.Unlock()

	p.logger.Info("draining classification pool", "backlog", remaining)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("classification pool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		j, ok := p.next()
		if !ok {
			return
		}
		outcome, rec, err := p.classifier.Run(context.Background(), j.task)
		j.future.resolve(outcome, rec, err)
	}
}

// next blocks until a job is available. It returns false once the pool is
// closed and the backlog is empty.
func (p *Pool) next() (job, bool) {
	p.mu.Lock()
	for len(p.backlog) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.backlog) == 0 {
		p.mu.Unlock()
		return job{}, false
	}

	j := p.backlog[0]
	p.backlog[0] = job{}
	p.backlog = p.backlog[1:]
	n := len(p.backlog)
	p.mu.Unlock()

	p.observeBacklog(n)
	return j, true
}

func (p *Pool) observeBacklog(n int) {
	if p.classifier.observer != nil {
		p.classifier.observer.ObserveBacklog(n)
	}
}

// Inline is a Dispatcher that runs each task on the caller's goroutine
// before Submit returns.
type Inline struct {
	Classifier *Classifier
}

// Submit implements Dispatcher.
func (d Inline) Submit(task Task) *Future {
	f := newFuture()
	outcome, rec, err := d.Classifier.Run(context.Background(), task)
	f.resolve(outcome, rec, err)
	return f
}
