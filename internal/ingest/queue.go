package ingest

import "sync"

// queue is the hand-off between the serial reader and the parser drive
// loop: a fixed-capacity byte ring with single producer / single consumer.
// The lock is held only for an append or a drain, never across parsing.
//
// Overflow drops the oldest bytes. The newest bytes carry the most recent
// fix, and a stalled consumer must not be able to stall the producer; the
// drop counter makes sustained overrun observable.
type queue struct {
	mu      sync.Mutex
	buf     []byte
	head    int
	n       int
	dropped uint64

	notify chan struct{}
}

func newQueue(size int) *queue {
	if size < 1 {
		size = 1
	}
	return &queue{
		buf:    make([]byte, size),
		notify: make(chan struct{}, 1),
	}
}

// Append adds bytes to the tail and signals the consumer. Bytes beyond
// capacity evict from the head.
func (q *queue) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	q.mu.Lock()
	for _, c := range p {
		if q.n == len(q.buf) {
			q.head = (q.head + 1) % len(q.buf)
			q.n--
			q.dropped++
		}
		q.buf[(q.head+q.n)%len(q.buf)] = c
		q.n++
	}
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Drain empties the queue into dst and returns the filled slice. The caller
// parses the result outside the lock.
func (q *queue) Drain(dst []byte) []byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	dst = dst[:0]
	for i := 0; i < q.n; i++ {
		dst = append(dst, q.buf[(q.head+i)%len(q.buf)])
	}
	q.head = 0
	q.n = 0
	return dst
}

// Wait is the empty-to-non-empty event the consumer blocks on.
func (q *queue) Wait() <-chan struct{} { return q.notify }

func (q *queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

func (q *queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}
