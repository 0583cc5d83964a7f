// Package workerpool implements a bounded pool of goroutines that grows
// lazily as tasks queue up, used by internal/dispatcher to run message
// handlers off the read loop.
//
// The growth rule (start a new worker only once the queue has more than
// one pending task and the pool is below its maximum, or when the pool is
// currently empty) and the drain/re-arm lifecycle (Drain waits for all
// workers to exit, then the pool accepts Submit calls again) are ported
// directly from original_source/lsp/threadpool.cpp's
// ThreadPool::addTask/addThread/waitUntilFinished. The task-queue-plus-
// condition-variable shape follows the idiom in
// yunhoi129-moai-adk/internal/git/ops/pool.go, adapted from a channel-based
// queue to a mutex-guarded slice so the growth rule can inspect queue depth
// and worker count atomically.
// file: internal/workerpool/pool.go
package workerpool

import "sync"

// Pool runs submitted tasks on a bounded, lazily-grown set of goroutines.
type Pool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	wg       sync.WaitGroup
	tasks    []func()
	threads  int
	maxThreads int
	draining bool
}

// New creates a pool with initialThreads workers running immediately, able
// to grow up to maxThreads as work backs up. maxThreads below 1 is treated
// as 1.
func New(initialThreads, maxThreads int) *Pool {
	if maxThreads < 1 {
		maxThreads = 1
	}
	p := &Pool{maxThreads: maxThreads}
	p.cond = sync.NewCond(&p.mu)

	p.mu.Lock()
	for i := 0; i < initialThreads; i++ {
		p.addThreadLocked()
	}
	p.mu.Unlock()
	return p
}

// Submit queues task for execution, starting another worker if the queue
// is backing up and the pool has room to grow, or if the pool currently
// has no workers at all. Submit after Drain has completed is legal: the
// pool re-arms itself the way ThreadPool does after waitUntilFinished.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return ErrDraining
	}

	p.tasks = append(p.tasks, task)
	if (len(p.tasks) > 1 && p.threads < p.maxThreads) || p.threads == 0 {
		p.addThreadLocked()
	}
	p.mu.Unlock()

	p.cond.Signal()
	return nil
}

// Drain stops accepting new tasks, lets every worker finish its current
// and queued work, then waits for all workers to exit. After Drain
// returns, the pool is re-armed and Submit may be called again, mirroring
// ThreadPool::waitUntilFinished's reset of m_waitForNewTasks.
func (p *Pool) Drain() {
	p.mu.Lock()
	p.draining = true
	p.mu.Unlock()
	p.cond.Broadcast()

	p.wg.Wait()

	p.mu.Lock()
	p.threads = 0
	p.draining = false
	p.mu.Unlock()
}

// Pending reports the number of tasks not yet started.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

func (p *Pool) addThreadLocked() {
	p.threads++
	p.wg.Add(1)
	go p.worker()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for !p.draining && len(p.tasks) == 0 {
			p.cond.Wait()
		}
		if len(p.tasks) == 0 {
			p.mu.Unlock()
			return
		}
		task := p.tasks[0]
		p.tasks = p.tasks[1:]
		p.mu.Unlock()

		runTask(task)
	}
}

// runTask runs task, recovering a panic raised inside it so that one
// failing task does not take down its worker or the process.
func runTask(task func()) {
	defer func() { _ = recover() }()
	task()
}
