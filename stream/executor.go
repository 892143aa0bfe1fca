package stream

import "sync"

// executor runs jobs one at a time. A job submitted while another is
// running, including from inside that job, is queued and run by the
// goroutine already draining the queue.
type executor struct {
	mu       sync.Mutex
	queue    []func()
	draining bool
}

func (e *executor) do(job func()) {
	e.mu.Lock()
	e.queue = append(e.queue, job)
	if e.draining {
		e.mu.Unlock()
		return
	}
	e.draining = true
	for len(e.queue) > 0 {
		next := e.queue[0]
		e.queue[0] = nil
		e.queue = e.queue[1:]
		e.mu.Unlock()
		e.run(next)
		e.mu.Lock()
	}
	e.draining = false
	e.mu.Unlock()
}

// run executes job. A panicking job releases the queue to the next caller.
func (e *executor) run(job func()) {
	ok := false
	defer func() {
		if !ok {
			e.mu.Lock()
			e.draining = false
			e.mu.Unlock()
		}
	}()
	job()
	ok = true
}
