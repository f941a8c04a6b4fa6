// Package dispatch runs island workflows off the caller's goroutine.
//
// Jobs are hashed by key onto a fixed set of workers, each draining its own
// queue in order, so jobs sharing a key run one after another in submission
// order while unrelated keys proceed in parallel.
package dispatch

import (
	"hash/fnv"
	"sync"

	"github.com/mroshb/islands/pkg/errors"
	"github.com/mroshb/islands/pkg/logger"
)

// ErrPoolStopped is returned for work submitted after Stop.
var ErrPoolStopped = errors.New(errors.ErrCodeInternalError, "worker pool stopped")

const defaultQueueSize = 100

type Pool struct {
	queues []chan func()
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewPool starts workers goroutines, each with a queue of queueSize jobs.
// Non-positive arguments fall back to one worker and the default queue size.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	p := &Pool{queues: make([]chan func(), workers)}
	for i := range p.queues {
		p.queues[i] = make(chan func(), queueSize)
		p.wg.Add(1)
		go p.worker(p.queues[i])
	}
	return p
}

func (p *Pool) worker(queue chan func()) {
	defer p.wg.Done()
	for job := range queue {
		p.run(job)
	}
}

func (p *Pool) run(job func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in dispatched job", "error", r)
		}
	}()
	job()
}

func (p *Pool) queueFor(key string) chan func() {
	h := fnv.New32a()
	h.Write([]byte(key))
	return p.queues[h.Sum32()%uint32(len(p.queues))]
}

// Submit queues fn behind every earlier job with the same key. It blocks
// while that worker's queue is full.
func (p *Pool) Submit(key string, fn func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	p.queueFor(key) <- fn
	return nil
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return len(p.queues)
}

// Stop rejects new work, runs everything already queued, and waits for the
// workers to exit. It is safe to call more than once.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()

	p.wg.Wait()
}
