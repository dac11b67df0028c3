package editor

import "sync"

type writeJob struct {
	markup      string
	title       string
	description string
	announce    bool
	result      chan<- error
}

// persister carries out fork writes one at a time in FIFO order. Its queue
// is unbounded so the event loop never blocks on it.
type persister struct {
	mu    sync.Mutex
	queue []writeJob
	wake  chan struct{}
	stop  chan struct{}
	done  chan struct{}
}

func newPersister() *persister {
	return &persister{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (p *persister) enqueue(j writeJob) {
	p.mu.Lock()
	p.queue = append(p.queue, j)
	p.mu.Unlock()
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// run drains the queue with write until close is called and nothing is left.
func (p *persister) run(write func(writeJob)) {
	defer close(p.done)
	for {
		p.mu.Lock()
		if len(p.queue) > 0 {
			j := p.queue[0]
			p.queue = p.queue[1:]
			p.mu.Unlock()
			write(j)
			continue
		}
		p.mu.Unlock()

		select {
		case <-p.wake:
		case <-p.stop:
			p.mu.Lock()
			left := len(p.queue)
			p.mu.Unlock()
			if left == 0 {
				return
			}
		}
	}
}

// close stops the persister after the remaining writes are done.
func (p *persister) close() {
	close(p.stop)
	<-p.done
}
