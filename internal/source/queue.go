package source

import (
	"sync"

	"fleetwatch/internal/metrics"
)

// Queue is the bounded hand-off between source readers and the parser.
// Producers never block: a full queue drops the line.
type Queue struct {
	mu     sync.Mutex
	ch     chan Line
	closed bool
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 1
	}
	return &Queue{ch: make(chan Line, size)}
}

// Push enqueues l and reports whether it was accepted.
func (q *Queue) Push(l Line) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	select {
	case q.ch <- l:
		return true
	default:
		metrics.QueueDrops.Add(1)
		return false
	}
}

// Lines is drained by the single consumer. It is closed by Shutdown after
// the buffered lines are delivered.
func (q *Queue) Lines() <-chan Line { return q.ch }

// Shutdown stops accepting lines. It is safe to call more than once.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

func (q *Queue) Len() int { return len(q.ch) }
