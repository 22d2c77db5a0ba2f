package bot

import "sync"

type queue struct {
	pending []func()
	running bool
}

// Dispatcher runs the jobs of one user in arrival order; jobs of
// different users run concurrently.
type Dispatcher struct {
	mu     sync.Mutex
	queues map[int64]*queue
	wg     sync.WaitGroup
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		queues: make(map[int64]*queue),
	}
}

func (d *Dispatcher) Dispatch(userId int64, job func()) {
	d.mu.Lock()
	q, ok := d.queues[userId]
	if !ok {
		q = &queue{}
		d.queues[userId] = q
	}
	q.pending = append(q.pending, job)
	start := !q.running
	q.running = true
	d.mu.Unlock()

	if start {
		d.wg.Add(1)
		go d.drain(userId, q)
	}
}

func (d *Dispatcher) drain(userId int64, q *queue) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			delete(d.queues, userId)
			d.mu.Unlock()
			return
		}
		job := q.pending[0]
		q.pending = q.pending[1:]
		d.mu.Unlock()

		job()
	}
}

// Wait blocks until all queued jobs are done
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
