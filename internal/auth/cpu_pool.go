package auth

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"go.uber.org/zap"
)

// cpuTask is one unit of blocking, CPU-bound work submitted to a Pool.
type cpuTask struct {
	ctx    context.Context
	fn     func() (string, error)
	result chan cpuResult
}

type cpuResult struct {
	userID string
	err    error
}

// Pool is a bounded worker pool for CPU-bound work — password hashing and
// verification — that must not run on the goroutine handling the inbound
// HTTP request, so a slow hash never stalls the request multiplexer.
//
// This mirrors the email worker's goroutine-pool lifecycle (start N
// goroutines, close a channel to drain and stop) but dispatches closures
// instead of email jobs, and returns a result to the caller instead of
// firing and forgetting.
type Pool struct {
	log     *zap.Logger
	tasks   chan cpuTask
	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// NewPool starts a Pool with workerCount goroutines. A workerCount <= 0
// defaults to runtime.NumCPU().
func NewPool(log *zap.Logger, workerCount int) *Pool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		log:   log,
		tasks: make(chan cpuTask, workerCount*4),
	}

	for i := 0; i < workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i + 1)
	}

	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for task := range p.tasks {
		userID, err := task.fn()
		select {
		case task.result <- cpuResult{userID: userID, err: err}:
		case <-task.ctx.Done():
			p.log.Debug("cpu pool: caller gone before result delivered", zap.Int("worker", id))
		}
	}
}

// Run dispatches fn onto the pool and blocks until it completes or ctx is
// cancelled. fn itself keeps running to completion even if ctx is
// cancelled first — there is no way to interrupt argon2.IDKey mid-flight.
func (p *Pool) Run(ctx context.Context, fn func() (string, error)) (string, error) {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return "", fmt.Errorf("cpu pool: closed")
	}
	p.closeMu.Unlock()

	task := cpuTask{ctx: ctx, fn: fn, result: make(chan cpuResult, 1)}

	select {
	case p.tasks <- task:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case res := <-task.result:
		return res.userID, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops accepting new work and waits for in-flight tasks to finish.
func (p *Pool) Close() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	p.closeMu.Unlock()

	close(p.tasks)
	p.wg.Wait()
}
