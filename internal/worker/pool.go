package worker

import (
	"context"
	"sync"
)

// Job is a unit of work run by the pool
type Job interface {
	Execute(ctx context.Context) Result
}

// Result is what a job produced
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of goroutines. Results are drained by a
// collector goroutine while jobs are still being submitted, so batches larger
// than the channel buffers never block.
type Pool struct {
	workers int
	jobs    chan Job
	results chan Result

	collector *ResultCollector
	collected chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	wg        sync.WaitGroup
	startOnce sync.Once
	closeJobs sync.Once
	closeOut  sync.Once
}

// NewPool creates a pool bound to ctx. Cancelling ctx stops the workers;
// jobs not yet started are dropped.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:   workers,
		jobs:      make(chan Job, workers*2),
		results:   make(chan Result, workers*2),
		collector: NewResultCollector(),
		collected: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the workers and the result collector
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker()
		}
		go p.collect()
	})
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			// A job picked up after cancellation is still run: it reports
			// ctx.Err() itself rather than vanishing
			p.results <- job.Execute(p.ctx)
		}
	}
}

func (p *Pool) collect() {
	defer close(p.collected)
	for r := range p.results {
		p.collector.Add(r)
	}
}

// Submit queues a job. It returns the context error once the pool is cancelled.
func (p *Pool) Submit(job Job) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobs <- job:
		return nil
	}
}

// Wait closes the queue, waits for running jobs and returns every result
// collected, in completion order
func (p *Pool) Wait() []Result {
	p.closeJobs.Do(func() { close(p.jobs) })
	return p.drain()
}

// Shutdown cancels outstanding work and returns the results gathered so far
func (p *Pool) Shutdown() []Result {
	p.cancel()
	return p.drain()
}

func (p *Pool) drain() []Result {
	p.startOnce.Do(func() { go p.collect() }) // never started: only the collector is needed
	p.wg.Wait()
	p.closeOut.Do(func() { close(p.results) })
	<-p.collected
	p.cancel()
	return p.collector.Results()
}

// ResultCollector gathers results from concurrent producers
type ResultCollector struct {
	mu      sync.Mutex
	results []Result
}

// NewResultCollector creates a new result collector
func NewResultCollector() *ResultCollector {
	return &ResultCollector{results: make([]Result, 0)}
}

// Add appends a result
func (c *ResultCollector) Add(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

// Results returns a copy of the collected results
func (c *ResultCollector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}
