package workpool

import (
	"container/heap"
	"errors"
	"sync"

	"miner-node/logging"
)

var (
	// ErrQueueFull is returned by Submit when the queue is at capacity.
	// Overflow is rejected loudly, never dropped.
	ErrQueueFull = errors.New("work queue is full")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("work pool is closed")
)

// Task is one unit of queued work. Higher Priority runs first; tasks with
// equal priority run in submission order.
type Task struct {
	Priority float64
	Run      func() (interface{}, error)
}

// Result carries a finished task's return values.
type Result struct {
	Value interface{}
	Err   error
}

type item struct {
	task   Task
	seq    uint64
	result chan Result
}

type taskHeap []*item

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].task.Priority != h[j].task.Priority {
		return h[i].task.Priority > h[j].task.Priority
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x interface{}) { *h = append(*h, x.(*item)) }
func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

// Pool runs queued tasks on a fixed set of workers, highest priority first.
type Pool struct {
	mu     sync.Mutex
	heap   taskHeap
	seq    uint64
	wake   chan struct{}
	closed bool
	wg     sync.WaitGroup
}

// New creates and starts a pool with the given worker count and queue
// capacity. The pool runs until Close() is called.
func New(workers, queueCapacity int) *Pool {
	p := &Pool{wake: make(chan struct{}, queueCapacity)}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}

	logging.Info("Work pool started", logging.Pool,
		"workers", workers, "queueCapacity", queueCapacity)
	return p
}

// Submit queues a task and returns the channel its result will arrive on.
// The channel is buffered, so a caller that gives up waiting does not block
// the worker.
func (p *Pool) Submit(t Task) (<-chan Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if len(p.heap) >= cap(p.wake) {
		return nil, ErrQueueFull
	}

	it := &item{task: t, seq: p.seq, result: make(chan Result, 1)}
	p.seq++
	heap.Push(&p.heap, it)
	// Queue length is bounded by the wake buffer, this never blocks.
	p.wake <- struct{}{}
	return it.result, nil
}

// Queued reports how many tasks are waiting for a worker.
func (p *Pool) Queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.heap)
}

func (p *Pool) next() *item {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.heap) == 0 {
		return nil
	}
	return heap.Pop(&p.heap).(*item)
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for range p.wake {
		it := p.next()
		if it == nil {
			continue
		}
		value, err := it.task.Run()
		it.result <- Result{Value: value, Err: err}
	}
}

// Close rejects further submissions, drains the queued work and waits for
// the workers to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.wake)
	p.mu.Unlock()

	p.wg.Wait()
	logging.Info("Work pool stopped", logging.Pool)
}
